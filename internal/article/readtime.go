package article

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const wordsPerMinute = 200

// ReadingMinutes estimates the reading time of an article body, at least one minute.
func ReadingMinutes(body string) int {
	words := len(strings.Fields(articleText(body)))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute

	return max(minutes, 1)
}

func articleText(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	if a, err := readability.FromReader(strings.NewReader(body), nil); err == nil && a.TextContent != "" {
		return a.TextContent
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))

	if err != nil {
		return body
	}

	return doc.Text()
}
