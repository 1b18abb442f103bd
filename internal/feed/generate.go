package feed

import (
	"fmt"
	"strings"

	"github.com/gorilla/feeds"
	"github.com/nDmitry/wpblog/internal/entity"
)

// Generator builds syndication feeds for the blog
type Generator struct {
	site entity.SiteConfig
}

// NewGenerator creates a feed generator for a site
func NewGenerator(site entity.SiteConfig) *Generator {
	site.URL = strings.TrimRight(site.URL, "/")

	return &Generator{site: site}
}

// Generate creates a feed from posts and returns it as a byte array.
// Posts are expected newest first, only the first params.Limit are used.
func (g *Generator) Generate(posts []entity.DisplayPost, params *entity.FeedParams) ([]byte, error) {
	feed := &feeds.Feed{
		Title:       g.site.Title,
		Link:        &feeds.Link{Href: g.site.URL + "/blog"},
		Description: g.site.Description,
	}

	if g.site.Author != "" {
		feed.Author = &feeds.Author{Name: g.site.Author}
	}

	for i, p := range posts {
		if params.Limit > 0 && i == params.Limit {
			break
		}

		link := g.PostURL(p.Slug)

		feed.Items = append(feed.Items, &feeds.Item{
			Id:          link,
			Title:       p.Title,
			Link:        &feeds.Link{Href: link},
			Description: p.Excerpt,
			Created:     p.PublishedAt,
		})

		if feed.Created.IsZero() || p.PublishedAt.After(feed.Created) {
			feed.Created = p.PublishedAt
		}
	}

	var content string
	var err error

	switch params.Format {
	case entity.FormatRSS:
		content, err = feed.ToRss()
	case entity.FormatAtom:
		content, err = feed.ToAtom()
	default:
		return nil, fmt.Errorf("unsupported feed format: %s", params.Format)
	}

	if err != nil {
		return nil, fmt.Errorf("could not marshal posts to feed: %w", err)
	}

	return []byte(content), nil
}

// PostURL is the public address of a post on the site
func (g *Generator) PostURL(slug string) string {
	return g.site.URL + "/blog/" + slug
}
