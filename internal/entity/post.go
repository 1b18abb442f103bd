package entity

import (
	"bytes"
	"encoding/json"
	"time"
)

// RawPost is a post as returned by the WordPress REST API.
type RawPost struct {
	ID            int       `json:"id"`
	Date          string    `json:"date"`
	Slug          string    `json:"slug"`
	Title         *Rendered `json:"title"`
	Excerpt       *Rendered `json:"excerpt"`
	Content       *Rendered `json:"content"`
	Categories    []int     `json:"categories"`
	FeaturedMedia int       `json:"featured_media"`
	Embedded      *Embedded `json:"_embedded,omitempty"`
}

// Rendered holds an HTML-encoded field of a WordPress object.
type Rendered struct {
	Rendered string `json:"rendered"`
}

// UnmarshalJSON accepts {"rendered": "..."}, a bare string or null.
// Any other shape leaves the field empty instead of failing the whole post.
func (r *Rendered) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &r.Rendered)
	case '{':
		var obj struct {
			Rendered *string `json:"rendered"`
		}

		if err := json.Unmarshal(data, &obj); err != nil || obj.Rendered == nil {
			return nil
		}

		r.Rendered = *obj.Rendered
	}

	return nil
}

// Text returns the rendered value or an empty string for a nil field.
func (r *Rendered) Text() string {
	if r == nil {
		return ""
	}

	return r.Rendered
}

// Embedded is the bundle returned alongside a post when requested with _embed.
type Embedded struct {
	FeaturedMedia []Media  `json:"wp:featuredmedia"`
	Terms         [][]Term `json:"wp:term"`
}

// Media describes a featured media attachment.
// Restricted attachments come back as error objects with an empty SourceURL.
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
	AltText   string `json:"alt_text"`
}

// Term is a taxonomy term (category or tag) embedded in a post.
type Term struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Taxonomy string `json:"taxonomy"`
}

// Category is a WordPress category with its post count.
type Category struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// Displayable reports whether the category has at least one post.
func (c Category) Displayable() bool {
	return c.Count > 0
}

// PostCategory is the category reference carried by a DisplayPost.
type PostCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// DisplayPost is a normalized, render-ready post.
type DisplayPost struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	// Plain text, at most 150 characters plus an ellipsis.
	Excerpt string `json:"excerpt"`
	// Date formatted for display in the configured locale.
	Date string `json:"date"`
	// Date as received from the CMS.
	ISODate         string         `json:"isoDate"`
	PublishedAt     time.Time      `json:"publishedAt"`
	Slug            string         `json:"slug"`
	ImageURL        string         `json:"imageUrl"`
	ImageAlt        string         `json:"imageAlt"`
	FeaturedMediaID int            `json:"featuredMediaId,omitempty"`
	Categories      []PostCategory `json:"categories"`
}

// HasCategory reports whether the post is filed under the category id.
func (p DisplayPost) HasCategory(id int) bool {
	for _, c := range p.Categories {
		if c.ID == id {
			return true
		}
	}

	return false
}

// Article is a single post prepared for the article view.
type Article struct {
	DisplayPost
	// Sanitized HTML body.
	Content        string `json:"content"`
	ReadingMinutes int    `json:"readingMinutes"`
}
