package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

const (
	embedClass = "responsive-embed"
	tableClass = "table-scroll"
)

// Sanitizer cleans CMS article bodies for embedding in the page.
// It is stateless and safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New creates a Sanitizer
func New() *Sanitizer {
	return &Sanitizer{policy: newPolicy()}
}

// Sanitize returns the cleaned article body. featuredURL and mediaID
// identify the featured image so that its inline copy can be removed;
// pass "" and 0 when unknown.
//
// The result of Sanitize is a fixed point: sanitizing it again returns it unchanged.
// Markup that matches no rule is passed through.
func (s *Sanitizer) Sanitize(body, featuredURL string, mediaID int) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	cleaned := shortcodeRegex.ReplaceAllString(body, "")
	cleaned = s.policy.Sanitize(cleaned)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))

	if err != nil {
		return strings.TrimSpace(cleaned)
	}

	root := doc.Find("body")

	removeFeaturedImage(root, featuredURL, mediaID)
	removeNoise(root)
	normalizeEmbeds(root)
	cleanupWrappers(root)

	out, err := root.Html()

	if err != nil {
		return strings.TrimSpace(cleaned)
	}

	return strings.TrimSpace(out)
}
