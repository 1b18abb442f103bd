package article

import (
	"slices"
	"strings"

	"github.com/nDmitry/wpblog/internal/entity"
	"golang.org/x/text/cases"
)

// MaxSearchResults bounds the instant-search result set.
const MaxSearchResults = 5

// FilterByCategory returns the posts filed under categoryID.
// A nil categoryID returns all posts.
func FilterByCategory(posts []entity.DisplayPost, categoryID *int) []entity.DisplayPost {
	if categoryID == nil {
		return slices.Clone(posts)
	}

	filtered := make([]entity.DisplayPost, 0, len(posts))

	for _, p := range posts {
		if p.HasCategory(*categoryID) {
			filtered = append(filtered, p)
		}
	}

	return filtered
}

// SortByDate returns a copy of posts ordered by publication date.
// Posts with equal dates keep their original relative order.
func SortByDate(posts []entity.DisplayPost, order entity.SortOrder) []entity.DisplayPost {
	sorted := slices.Clone(posts)

	slices.SortStableFunc(sorted, func(a, b entity.DisplayPost) int {
		if order == entity.Oldest {
			return a.PublishedAt.Compare(b.PublishedAt)
		}

		return b.PublishedAt.Compare(a.PublishedAt)
	})

	return sorted
}

// Take returns at most the first n posts, never nil.
func Take(posts []entity.DisplayPost, n int) []entity.DisplayPost {
	if n < 0 {
		n = 0
	}

	if n > len(posts) {
		n = len(posts)
	}

	return append([]entity.DisplayPost{}, posts[:n]...)
}

// Search returns up to MaxSearchResults posts whose title or excerpt
// contains query, ignoring case. A blank query matches nothing.
func Search(posts []entity.DisplayPost, query string) []entity.DisplayPost {
	query = strings.TrimSpace(query)
	results := []entity.DisplayPost{}

	if query == "" {
		return results
	}

	fold := cases.Fold()
	needle := fold.String(query)

	for _, p := range posts {
		if strings.Contains(fold.String(p.Title), needle) || strings.Contains(fold.String(p.Excerpt), needle) {
			results = append(results, p)

			if len(results) == MaxSearchResults {
				break
			}
		}
	}

	return results
}
