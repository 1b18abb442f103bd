package rest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nDmitry/wpblog/internal/app"
	"github.com/nDmitry/wpblog/internal/article"
	"github.com/nDmitry/wpblog/internal/entity"
)

// StatusClientClosedRequest is written when the client cancels the request
const StatusClientClosedRequest = 499

// PurgeTokenHeader carries the secret required to invalidate the cache
const PurgeTokenHeader = "X-Purge-Token"

// BlogService answers blog queries
type BlogService interface {
	Posts(ctx context.Context) ([]entity.DisplayPost, error)
	Post(ctx context.Context, slug string) (*entity.Article, error)
	Categories(ctx context.Context) ([]entity.Category, error)
	ResolveCategory(ctx context.Context, ref string) (*entity.Category, error)
	Related(ctx context.Context, a *entity.Article, limit int) ([]entity.DisplayPost, error)
	Invalidate(ctx context.Context, slug string) error
}

// Generator defines the interface for feed generation
type Generator interface {
	Generate(posts []entity.DisplayPost, params *entity.FeedParams) ([]byte, error)
}

// PostList is a page of posts with the size of the full result
type PostList struct {
	Posts   []entity.DisplayPost `json:"posts"`
	Total   int                  `json:"total"`
	HasMore bool                 `json:"hasMore"`
}

// BlogHandler handles routes for the blog
type BlogHandler struct {
	blog       BlogService
	generator  Generator
	purgeToken string
	cacheTTL   int
	logger     *slog.Logger
}

// NewBlogHandler creates a new BlogHandler and registers its routes on mux.
// cacheTTL is in minutes and drives the Cache-Control header.
func NewBlogHandler(mux *http.ServeMux, b BlogService, g Generator, purgeToken string, cacheTTL int) *BlogHandler {
	h := &BlogHandler{
		blog:       b,
		generator:  g,
		purgeToken: purgeToken,
		cacheTTL:   cacheTTL,
		logger:     app.Logger(),
	}

	mux.HandleFunc("GET /blog/posts", h.ListPosts)
	mux.HandleFunc("GET /blog/posts/{slug}", h.GetPost)
	mux.HandleFunc("GET /blog/posts/{slug}/related", h.GetRelated)
	mux.HandleFunc("GET /blog/categories", h.ListCategories)
	mux.HandleFunc("GET /blog/search", h.Search)
	mux.HandleFunc("GET /blog/feed", h.GetFeed)
	mux.HandleFunc("POST /blog/cache/invalidate", h.InvalidateCache)

	return h
}

// ListPosts filters, sorts and pages the post list
func (h *BlogHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	params, err := entity.NewListParamsFromRequest(r)

	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	var categoryID *int

	if params.Category != "" {
		category, err := h.blog.ResolveCategory(r.Context(), params.Category)

		if err != nil {
			h.handleServiceError(w, err)
			return
		}

		categoryID = &category.ID
	}

	posts, err := h.blog.Posts(r.Context())

	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	filtered := article.SortByDate(article.FilterByCategory(posts, categoryID), params.Order)

	h.serveJSON(w, PostList{
		Posts:   article.Take(filtered, params.Limit),
		Total:   len(filtered),
		HasMore: len(filtered) > params.Limit,
	})
}

// GetPost returns a full article
func (h *BlogHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	a, err := h.blog.Post(r.Context(), r.PathValue("slug"))

	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.serveJSON(w, a)
}

// GetRelated returns posts sharing the article's main category
func (h *BlogHandler) GetRelated(w http.ResponseWriter, r *http.Request) {
	limit, err := entity.NewRelatedLimitFromRequest(r)

	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	a, err := h.blog.Post(r.Context(), r.PathValue("slug"))

	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	related, err := h.blog.Related(r.Context(), a, limit)

	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.serveJSON(w, related)
}

// ListCategories returns the categories that have posts
func (h *BlogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.blog.Categories(r.Context())

	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.serveJSON(w, categories)
}

// Search matches posts by title and excerpt
func (h *BlogHandler) Search(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blog.Posts(r.Context())

	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.serveJSON(w, article.Search(posts, r.URL.Query().Get("q")))
}

// GetFeed returns the newest posts as an RSS or Atom feed
func (h *BlogHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	params, err := entity.NewFeedParamFromRequest(r)

	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	posts, err := h.blog.Posts(r.Context())

	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	content, err := h.generator.Generate(article.SortByDate(posts, entity.Newest), params)

	if err != nil {
		h.handleError(w, err, http.StatusInternalServerError)
		return
	}

	h.serveFeed(w, content, params.Format)
}

// InvalidateCache drops cached entries, optionally for a single post
func (h *BlogHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if h.purgeToken != "" {
		token := r.Header.Get(PurgeTokenHeader)

		if subtle.ConstantTimeCompare([]byte(token), []byte(h.purgeToken)) != 1 {
			h.handleError(w, errors.New("invalid purge token"), http.StatusUnauthorized)
			return
		}
	}

	slug := r.URL.Query().Get("slug")

	if err := h.blog.Invalidate(r.Context(), slug); err != nil {
		h.handleError(w, err, http.StatusInternalServerError)
		return
	}

	h.serveJSON(w, map[string]string{"status": "ok", "slug": slug})
}

// serveJSON sends a value to the client as JSON
func (h *BlogHandler) serveJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	h.setCacheControl(w)
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		handleBadErrorResponse(err, v)
	}
}

// serveFeed sends the feed to the client with appropriate headers
func (h *BlogHandler) serveFeed(w http.ResponseWriter, content []byte, format string) {
	var contentType string
	switch format {
	case entity.FormatRSS:
		contentType = "application/rss+xml"
	case entity.FormatAtom:
		contentType = "application/atom+xml"
	default:
		contentType = "application/xml"
	}

	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	h.setCacheControl(w)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(content); err != nil {
		handleBadErrorResponse(err, content)
	}
}

func (h *BlogHandler) setCacheControl(w http.ResponseWriter) {
	if h.cacheTTL > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(h.cacheTTL*60))
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
}

// handleServiceError maps service errors to status codes
func (h *BlogHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		// The client is gone, the status only reaches the logs.
		h.logger.Info("Request canceled", "error", err)
		w.WriteHeader(StatusClientClosedRequest)
	case errors.Is(err, entity.ErrNotFound):
		h.handleError(w, err, http.StatusNotFound)
	case errors.Is(err, entity.ErrSourceUnavailable):
		h.handleError(w, err, http.StatusBadGateway)
	default:
		h.handleError(w, fmt.Errorf("internal error: %w", err), http.StatusInternalServerError)
	}
}

// handleError responds with an error message
func (h *BlogHandler) handleError(w http.ResponseWriter, err error, statusCode int) {
	h.logger.Error("Request error", "error", err, "status", statusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]string{"error": err.Error()}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		handleBadErrorResponse(err, response)
	}
}

func handleBadErrorResponse(err error, resp any) {
	app.Logger().Error(
		"failed to encode an error response",
		"error", err,
		"response", resp,
	)
}
