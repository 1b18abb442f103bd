package article

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxExcerptLength = 150
	ellipsis         = "..."
	punctuation      = ",.;:!? "
)

var tagCharsReplacer = strings.NewReplacer("<", "", ">", "")

var (
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
	// WordPress appends "[&hellip;]" or "[...]" to automatic excerpts.
	readMoreRegex = regexp.MustCompile(`\s*\[(?:\x{2026}|\.\.\.)\]\s*$`)
)

// StripHTML returns the text content of an HTML fragment with entities
// decoded, non-breaking spaces turned into spaces and whitespace collapsed.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	text := s

	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))

		if err == nil {
			text = doc.Text()
		}
	}

	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = multipleSpacesRegex.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// formatExcerpt strips markup and truncates the excerpt to maxExcerptLength
// characters followed by an ellipsis. Excerpts never contain angle brackets.
func formatExcerpt(s string) string {
	text := StripHTML(s)
	// Anything that still looks like a tag came from double-encoded markup.
	text = tagCharsReplacer.Replace(text)
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	text = readMoreRegex.ReplaceAllString(strings.TrimSpace(text), "")

	return truncateAtWordBoundary(text, maxExcerptLength)
}

// truncateAtWordBoundary truncates text at a word boundary
func truncateAtWordBoundary(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	lastWordEnd := 0
	currentCount := 0

	for i, r := range text {
		if currentCount == limit {
			var truncated string

			if unicode.IsSpace(r) {
				// The cut falls exactly between two words
				truncated = text[:i]
			} else if lastWordEnd > 0 {
				truncated = text[:lastWordEnd]
			} else {
				// If no word boundary found, just truncate at the limit
				truncated = text[:i]
			}

			// Remove trailing punctuation before adding ellipsis
			truncated = strings.TrimRight(truncated, punctuation)

			return truncated + ellipsis
		}

		currentCount++

		if unicode.IsSpace(r) {
			lastWordEnd = i
		}
	}

	return text
}
