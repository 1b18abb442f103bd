package entity

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	FormatAtom = "atom"
	FormatRSS  = "rss"
)

// SortOrder is the date ordering of a post list.
type SortOrder string

const (
	Newest SortOrder = "newest"
	Oldest SortOrder = "oldest"
)

const (
	PostsToShowDefault = 9
	PostsToShowMax     = 100
	RelatedDefault     = 3
	FeedItemsDefault   = 20
)

// ListParams represents validated request parameters for a post list
type ListParams struct {
	// Category is a category id or slug, empty for all categories
	Category string

	Order SortOrder

	// Limit is the number of posts to show
	Limit int
}

// NewListParamsFromRequest parses and validates post list parameters
func NewListParamsFromRequest(r *http.Request) (*ListParams, error) {
	qp := r.URL.Query()

	order, err := parseOrder(qp.Get("order"))

	if err != nil {
		return nil, err
	}

	limit, err := parseLimit(qp.Get("limit"), PostsToShowDefault)

	if err != nil {
		return nil, err
	}

	return &ListParams{
		Category: strings.TrimSpace(qp.Get("category")),
		Order:    order,
		Limit:    limit,
	}, nil
}

// NewRelatedLimitFromRequest parses the number of related posts to return
func NewRelatedLimitFromRequest(r *http.Request) (int, error) {
	return parseLimit(r.URL.Query().Get("limit"), RelatedDefault)
}

// FeedParams represents validated request parameters for feed generation
type FeedParams struct {
	// Format is the feed format, either "atom" or "rss"
	Format string

	// Limit is the maximum number of feed items
	Limit int
}

// NewFeedParamFromRequest parses and validates request parameters and creates a new FeedParams
func NewFeedParamFromRequest(r *http.Request) (*FeedParams, error) {
	qp := r.URL.Query()

	format := qp.Get("format")

	if format == "" {
		format = FormatRSS
	} else if format != FormatRSS && format != FormatAtom {
		return nil, fmt.Errorf("format must be %s or %s", FormatRSS, FormatAtom)
	}

	limit, err := parseLimit(qp.Get("limit"), FeedItemsDefault)

	if err != nil {
		return nil, err
	}

	return &FeedParams{
		Format: format,
		Limit:  limit,
	}, nil
}

func parseOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(s)) {
	case "", Newest:
		return Newest, nil
	case Oldest:
		return Oldest, nil
	default:
		return "", fmt.Errorf("order must be %s or %s", Newest, Oldest)
	}
}

func parseLimit(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}

	limit, err := strconv.Atoi(s)

	if err != nil {
		return 0, fmt.Errorf("limit must be a valid integer")
	}

	if limit < 1 || limit > PostsToShowMax {
		return 0, fmt.Errorf("limit must be between 1 and %d", PostsToShowMax)
	}

	return limit, nil
}
