package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gocolly/colly/v2"
	"github.com/nDmitry/wpblog/internal/app"
	"github.com/nDmitry/wpblog/internal/entity"
	"golang.org/x/sync/errgroup"
)

const (
	userAgent = "wpblog/1.0 (+https://github.com/nDmitry/wpblog)"

	// TotalPagesHeader reports the number of pages of a collection.
	TotalPagesHeader = "X-WP-TotalPages"

	maxBodySize         = 32 << 20
	maxConcurrentPages  = 4
	categoriesPerPage   = 100
	defaultPostsPerPage = 100
)

// Client fetches posts and categories from the WordPress REST API.
type Client struct {
	baseURL    string
	perPage    int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the API rooted at baseURL, e.g. https://example.com/wp-json/wp/v2
func NewClient(baseURL string, perPage int) *Client {
	return NewClientWithHTTP(baseURL, perPage, httpClient)
}

// NewClientWithHTTP creates a client that sends requests through hc
func NewClientWithHTTP(baseURL string, perPage int, hc *http.Client) *Client {
	if perPage <= 0 {
		perPage = defaultPostsPerPage
	}

	return &Client{
		baseURL:    baseURL,
		perPage:    perPage,
		httpClient: hc,
		logger:     app.Logger(),
	}
}

type response struct {
	statusCode int
	header     http.Header
	body       []byte
}

func (r *response) ok() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

// FetchAllPosts returns every published post in CMS order.
// Pages after the first are requested concurrently; a failed page is logged
// and contributes no posts.
func (c *Client) FetchAllPosts(ctx context.Context) ([]entity.RawPost, error) {
	first, err := c.get(ctx, "/posts", c.pageQuery(1))

	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSourceUnavailable, err)
	}

	if !first.ok() {
		return nil, fmt.Errorf("%w: posts page 1 returned status %d", entity.ErrSourceUnavailable, first.statusCode)
	}

	firstPosts, err := c.decodePosts(first.body)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSourceUnavailable, err)
	}

	totalPages, _ := strconv.Atoi(first.header.Get(TotalPagesHeader))

	if totalPages <= 1 {
		return firstPosts, nil
	}

	// Indexed by page number so that arrival order does not matter.
	pages := make([][]entity.RawPost, totalPages+1)
	pages[1] = firstPosts

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPages)

	for page := 2; page <= totalPages; page++ {
		g.Go(func() error {
			posts, err := c.fetchPage(gctx, page)

			if err != nil {
				c.logger.Warn("Could not fetch posts page, skipping it",
					"page", page,
					"error", err)

				return nil
			}

			pages[page] = posts

			return nil
		})
	}

	// Page failures never cancel the group.
	_ = g.Wait()

	var posts []entity.RawPost

	for _, p := range pages {
		posts = append(posts, p...)
	}

	return posts, nil
}

func (c *Client) fetchPage(ctx context.Context, page int) ([]entity.RawPost, error) {
	res, err := c.get(ctx, "/posts", c.pageQuery(page))

	if err != nil {
		return nil, err
	}

	if !res.ok() {
		return nil, fmt.Errorf("posts page %d returned status %d", page, res.statusCode)
	}

	return c.decodePosts(res.body)
}

// FetchPostBySlug returns the post with the given slug
func (c *Client) FetchPostBySlug(ctx context.Context, slug string) (*entity.RawPost, error) {
	query := url.Values{}
	query.Set("slug", slug)
	query.Set("_embed", "1")

	res, err := c.get(ctx, "/posts", query)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSourceUnavailable, err)
	}

	if !res.ok() {
		return nil, fmt.Errorf("post %q: %w (status %d)", slug, entity.ErrNotFound, res.statusCode)
	}

	posts, err := c.decodePosts(res.body)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSourceUnavailable, err)
	}

	if len(posts) == 0 {
		return nil, fmt.Errorf("post %q: %w", slug, entity.ErrNotFound)
	}

	return &posts[0], nil
}

// FetchCategories returns the categories that have at least one post
func (c *Client) FetchCategories(ctx context.Context) ([]entity.Category, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(categoriesPerPage))

	res, err := c.get(ctx, "/categories", query)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSourceUnavailable, err)
	}

	if !res.ok() {
		return nil, fmt.Errorf("%w: categories returned status %d", entity.ErrSourceUnavailable, res.statusCode)
	}

	var all []entity.Category

	if err := json.Unmarshal(res.body, &all); err != nil {
		return nil, fmt.Errorf("%w: could not decode categories: %w", entity.ErrSourceUnavailable, err)
	}

	categories := make([]entity.Category, 0, len(all))

	for _, cat := range all {
		if cat.Displayable() {
			categories = append(categories, cat)
		}
	}

	return categories, nil
}

// FetchPostsByCategory returns at most limit posts filed under the category
func (c *Client) FetchPostsByCategory(ctx context.Context, categoryID, limit int) ([]entity.RawPost, error) {
	query := url.Values{}
	query.Set("categories", strconv.Itoa(categoryID))
	query.Set("per_page", strconv.Itoa(limit))
	query.Set("_embed", "1")

	res, err := c.get(ctx, "/posts", query)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSourceUnavailable, err)
	}

	if !res.ok() {
		return nil, fmt.Errorf("%w: category %d posts returned status %d",
			entity.ErrSourceUnavailable, categoryID, res.statusCode)
	}

	posts, err := c.decodePosts(res.body)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSourceUnavailable, err)
	}

	return posts, nil
}

func (c *Client) pageQuery(page int) url.Values {
	query := url.Values{}
	query.Set("_embed", "1")
	query.Set("per_page", strconv.Itoa(c.perPage))
	query.Set("page", strconv.Itoa(page))

	return query
}

// decodePosts decodes a post array element by element so that a single
// undecodable post does not discard the rest of the batch.
func (c *Client) decodePosts(body []byte) ([]entity.RawPost, error) {
	var items []json.RawMessage

	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("could not decode posts: %w", err)
	}

	posts := make([]entity.RawPost, 0, len(items))

	for i, item := range items {
		var post entity.RawPost

		if err := json.Unmarshal(item, &post); err != nil {
			c.logger.Warn("Skipping malformed post",
				"index", i,
				"error", err)

			continue
		}

		posts = append(posts, post)
	}

	return posts, nil
}

// get performs a single GET request with a fresh collector.
// Non-2xx responses are returned as-is; only transport failures are errors.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (*response, error) {
	target := c.baseURL + endpoint

	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(maxBodySize),
	)
	collector.SetClient(c.httpClient)

	var res *response

	collector.OnResponse(func(r *colly.Response) {
		header := http.Header{}

		if r.Headers != nil {
			header = r.Headers.Clone()
		}

		res = &response{
			statusCode: r.StatusCode,
			header:     header,
			body:       r.Body,
		}
	})

	if err := collector.Visit(target); err != nil {
		return nil, fmt.Errorf("could not visit %s: %w", target, err)
	}

	if res == nil {
		return nil, fmt.Errorf("no response from %s", target)
	}

	return res, nil
}
