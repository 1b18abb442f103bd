package sanitize

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CMS size and edit suffixes: photo-300x200.jpg, photo-scaled.jpg, photo-e1712345678901.jpg
var sizeSuffixRegex = regexp.MustCompile(`(?:-\d+x\d+|-scaled|-e\d{10,})+$`)

var cmsClassPrefixes = []string{"wp-", "has-", "is-", "align", "size-", "attachment-"}

// removeFeaturedImage drops inline copies of the featured image matched by
// media id or by file name stem. Both passes always run: the id class does not
// survive sanitizing, so the result must not depend on whether it matched.
func removeFeaturedImage(root *goquery.Selection, featuredURL string, mediaID int) {
	if mediaID > 0 {
		idClass := "wp-image-" + strconv.Itoa(mediaID)
		dataID := strconv.Itoa(mediaID)

		root.Find("img").Each(func(_ int, img *goquery.Selection) {
			if img.HasClass(idClass) || img.AttrOr("data-id", "") == dataID {
				removeImage(img)
			}
		})
	}

	stem := imageStem(featuredURL)

	if stem == "" {
		return
	}

	root.Find("img").Each(func(_ int, img *goquery.Selection) {
		if imageStem(img.AttrOr("src", "")) == stem {
			removeImage(img)
		}
	})
}

// removeImage removes img together with the figure or link that only exists to hold it.
func removeImage(img *goquery.Selection) {
	if figure := img.Closest("figure"); figure.Length() > 0 && figure.Find("img").Length() == 1 {
		figure.Remove()
		return
	}

	if parent := img.Parent(); goquery.NodeName(parent) == "a" && parent.Children().Length() == 1 {
		parent.Remove()
		return
	}

	img.Remove()
}

// imageStem returns the lowercased file name without extension and size suffixes.
func imageStem(src string) string {
	src = strings.TrimSpace(src)

	if src == "" {
		return ""
	}

	p := src

	if u, err := url.Parse(src); err == nil {
		p = u.Path
	}

	base := path.Base(p)

	if base == "." || base == "/" {
		return ""
	}

	stem := strings.TrimSuffix(base, path.Ext(base))
	stem = sizeSuffixRegex.ReplaceAllString(stem, "")

	return strings.ToLower(stem)
}

// removeNoise unwraps spans, drops inline styles and CMS classes, then
// removes the paragraphs and divs left empty.
func removeNoise(root *goquery.Selection) {
	root.Find("span").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithSelection(s.Contents())
	})

	root.Find("[style]").RemoveAttr("style")

	root.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		filterClasses(s, isCMSClass)
	})

	removeEmpty(root, "p, div")
}

// normalizeEmbeds makes iframes and videos responsive and tables scrollable.
func normalizeEmbeds(root *goquery.Selection) {
	root.Find("iframe, video").Each(func(_ int, s *goquery.Selection) {
		s.RemoveAttr("width")
		s.RemoveAttr("height")
		s.RemoveAttr("style")

		if s.Parent().HasClass(embedClass) {
			return
		}

		liftOutOfParagraph(s)
		s.WrapHtml(`<div class="` + embedClass + `"></div>`)
	})

	root.Find("table").Each(func(_ int, s *goquery.Selection) {
		if s.Parent().HasClass(tableClass) {
			return
		}

		s.WrapHtml(`<div class="` + tableClass + `"></div>`)
	})
}

// liftOutOfParagraph moves s out of its paragraph: a div inside a p does
// not survive reparsing.
func liftOutOfParagraph(s *goquery.Selection) {
	p := s.Closest("p")

	if p.Length() == 0 {
		return
	}

	if p.Children().Length() == 1 && s.Parent().IsSelection(p) &&
		strings.TrimSpace(strings.ReplaceAll(p.Text(), "\u00a0", " ")) == "" {
		s.Unwrap()
		return
	}

	p.AfterSelection(s)
}

// cleanupWrappers removes captions and the CMS embed wrappers.
func cleanupWrappers(root *goquery.Selection) {
	root.Find("figcaption").Remove()

	root.Find(".wp-block-embed__wrapper").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithSelection(s.Contents())
	})

	root.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		filterClasses(s, isEmbedClass)
	})

	removeEmpty(root, "p, div, figure")
}

// removeEmpty removes matching elements without content, innermost first.
func removeEmpty(root *goquery.Selection, selector string) {
	sel := root.Find(selector)

	for i := sel.Length() - 1; i >= 0; i-- {
		s := sel.Eq(i)

		if s.Children().Not("br").Length() > 0 {
			continue
		}

		if strings.TrimSpace(strings.ReplaceAll(s.Text(), "\u00a0", " ")) == "" {
			s.Remove()
		}
	}
}

func filterClasses(s *goquery.Selection, drop func(string) bool) {
	class, ok := s.Attr("class")

	if !ok {
		return
	}

	var kept []string

	for _, token := range strings.Fields(class) {
		if !drop(token) {
			kept = append(kept, token)
		}
	}

	if len(kept) == 0 {
		s.RemoveAttr("class")
		return
	}

	s.SetAttr("class", strings.Join(kept, " "))
}

// isCMSClass reports theme and block editor classes. Embed classes are
// kept for cleanupWrappers.
func isCMSClass(token string) bool {
	if strings.Contains(token, "embed") {
		return false
	}

	for _, prefix := range cmsClassPrefixes {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}

	return false
}

func isEmbedClass(token string) bool {
	return strings.HasPrefix(token, "wp-") && strings.Contains(token, "embed")
}
