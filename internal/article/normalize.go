package article

import (
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"
	"github.com/nDmitry/wpblog/internal/app"
	"github.com/nDmitry/wpblog/internal/entity"
)

const (
	dateLayout       = "2 January 2006"
	categoryTaxonomy = "category"
)

// Normalizer turns CMS posts into display-ready posts.
type Normalizer struct {
	locale monday.Locale
	image  entity.ImageConfig
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer formatting dates in locale (e.g. fr_FR)
func NewNormalizer(locale string, image entity.ImageConfig) *Normalizer {
	return &Normalizer{
		locale: monday.Locale(locale),
		image:  image,
		logger: app.Logger(),
	}
}

// Normalize maps a RawPost to a DisplayPost.
// Missing fields degrade to empty values, it never fails.
func (n *Normalizer) Normalize(raw entity.RawPost) entity.DisplayPost {
	post := entity.DisplayPost{
		ID:         raw.ID,
		Title:      StripHTML(raw.Title.Text()),
		Excerpt:    formatExcerpt(raw.Excerpt.Text()),
		ISODate:    raw.Date,
		Slug:       raw.Slug,
		Categories: postCategories(raw),
	}

	if raw.Title == nil || raw.Excerpt == nil {
		n.logger.Warn("Post is missing fields, using defaults",
			"id", raw.ID,
			"slug", raw.Slug,
			"hasTitle", raw.Title != nil,
			"hasExcerpt", raw.Excerpt != nil)
	}

	if publishedAt, err := parseDate(raw.Date); err == nil {
		post.PublishedAt = publishedAt
		post.Date = monday.Format(publishedAt, dateLayout, n.locale)
	} else if raw.Date != "" {
		n.logger.Warn("Could not parse post date",
			"id", raw.ID,
			"date", raw.Date,
			"error", err)
	}

	media := featuredMedia(raw)
	post.ImageURL = n.ImageURL(media.SourceURL)
	post.ImageAlt = StripHTML(media.AltText)

	if post.ImageAlt == "" {
		post.ImageAlt = post.Title
	}

	post.FeaturedMediaID = media.ID

	if post.FeaturedMediaID == 0 {
		post.FeaturedMediaID = raw.FeaturedMedia
	}

	return post
}

// NormalizeAll normalizes a batch; one malformed post never affects the others.
func (n *Normalizer) NormalizeAll(raws []entity.RawPost) []entity.DisplayPost {
	posts := make([]entity.DisplayPost, 0, len(raws))

	for _, raw := range raws {
		posts = append(posts, n.Normalize(raw))
	}

	return posts
}

// ImageURL returns src with sizing and quality parameters, or the
// placeholder when src is empty.
func (n *Normalizer) ImageURL(src string) string {
	src = strings.TrimSpace(src)

	if src == "" {
		return n.image.Placeholder
	}

	u, err := url.Parse(src)

	if err != nil {
		return src
	}

	query := u.Query()

	if n.image.Width > 0 {
		query.Set("w", strconv.Itoa(n.image.Width))
	}

	if n.image.Quality > 0 {
		query.Set("q", strconv.Itoa(n.image.Quality))
	}

	u.RawQuery = query.Encode()

	return u.String()
}

func parseDate(s string) (time.Time, error) {
	// WordPress "date" is site-local without a zone; it is kept as-is.
	return dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
}

func featuredMedia(raw entity.RawPost) entity.Media {
	if raw.Embedded == nil {
		return entity.Media{}
	}

	for _, m := range raw.Embedded.FeaturedMedia {
		if m.SourceURL != "" {
			return m
		}
	}

	return entity.Media{}
}

// postCategories flattens the embedded terms, keeping categories only.
// Without embedded terms the bare category ids are used.
func postCategories(raw entity.RawPost) []entity.PostCategory {
	categories := []entity.PostCategory{}
	seen := make(map[int]bool)

	if raw.Embedded != nil {
		for _, group := range raw.Embedded.Terms {
			for _, term := range group {
				if term.Taxonomy != "" && term.Taxonomy != categoryTaxonomy {
					continue
				}

				if seen[term.ID] {
					continue
				}

				seen[term.ID] = true

				categories = append(categories, entity.PostCategory{
					ID:   term.ID,
					Name: StripHTML(term.Name),
					Slug: term.Slug,
				})
			}
		}
	}

	if len(categories) > 0 {
		return categories
	}

	for _, id := range raw.Categories {
		if !seen[id] {
			seen[id] = true
			categories = append(categories, entity.PostCategory{ID: id})
		}
	}

	return categories
}
