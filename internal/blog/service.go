package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nDmitry/wpblog/internal/app"
	"github.com/nDmitry/wpblog/internal/article"
	"github.com/nDmitry/wpblog/internal/cache"
	"github.com/nDmitry/wpblog/internal/entity"
)

const (
	keyAllPosts   = "blog:posts:all"
	keyCategories = "blog:categories"

	keyCategoryPostsPrefix = "blog:posts:category:"

	cacheWriteTimeout = 5 * time.Second
)

// Source retrieves raw content from the CMS
type Source interface {
	FetchAllPosts(ctx context.Context) ([]entity.RawPost, error)
	FetchPostBySlug(ctx context.Context, slug string) (*entity.RawPost, error)
	FetchCategories(ctx context.Context) ([]entity.Category, error)
	FetchPostsByCategory(ctx context.Context, categoryID, limit int) ([]entity.RawPost, error)
}

// Sanitizer cleans an article body
type Sanitizer interface {
	Sanitize(body, featuredURL string, mediaID int) string
}

// Service answers blog queries from the cache, falling back to the CMS.
type Service struct {
	source     Source
	cache      cache.Cache
	ttl        time.Duration
	normalizer *article.Normalizer
	sanitizer  Sanitizer
	aliases    map[string]string
	logger     *slog.Logger
}

// Options configures a Service
type Options struct {
	// TTL is the freshness window of cached query results, 0 disables caching
	TTL time.Duration
	// CategoryAliases maps alternate category slugs to canonical ones
	CategoryAliases map[string]string
}

// NewService creates a blog service
func NewService(src Source, c cache.Cache, n *article.Normalizer, s Sanitizer, opts Options) *Service {
	aliases := make(map[string]string, len(opts.CategoryAliases))

	for alias, canonical := range opts.CategoryAliases {
		aliases[strings.ToLower(alias)] = strings.ToLower(canonical)
	}

	return &Service{
		source:     src,
		cache:      c,
		ttl:        opts.TTL,
		normalizer: n,
		sanitizer:  s,
		aliases:    aliases,
		logger:     app.Logger(),
	}
}

// Posts returns every post, normalized, in CMS order
func (s *Service) Posts(ctx context.Context) ([]entity.DisplayPost, error) {
	return readThrough(ctx, s, keyAllPosts, func(ctx context.Context) ([]entity.DisplayPost, error) {
		raws, err := s.source.FetchAllPosts(ctx)

		if err != nil {
			return nil, err
		}

		return s.normalizer.NormalizeAll(raws), nil
	})
}

// Post returns a single article with its sanitized body
func (s *Service) Post(ctx context.Context, slug string) (*entity.Article, error) {
	slug = strings.TrimSpace(slug)

	if slug == "" {
		return nil, fmt.Errorf("empty slug: %w", entity.ErrNotFound)
	}

	return readThrough(ctx, s, postKey(slug), func(ctx context.Context) (*entity.Article, error) {
		raw, err := s.source.FetchPostBySlug(ctx, slug)

		if err != nil {
			return nil, err
		}

		post := s.normalizer.Normalize(*raw)

		featuredURL := ""

		if post.FeaturedMediaID != 0 {
			featuredURL = post.ImageURL
		}

		content := s.sanitizer.Sanitize(raw.Content.Text(), featuredURL, post.FeaturedMediaID)

		return &entity.Article{
			DisplayPost:    post,
			Content:        content,
			ReadingMinutes: article.ReadingMinutes(content),
		}, nil
	})
}

// PostsByCategory returns at most limit posts of a category, as ordered by the CMS
func (s *Service) PostsByCategory(ctx context.Context, categoryID, limit int) ([]entity.DisplayPost, error) {
	key := fmt.Sprintf("%s%d:%d", keyCategoryPostsPrefix, categoryID, limit)

	return readThrough(ctx, s, key, func(ctx context.Context) ([]entity.DisplayPost, error) {
		raws, err := s.source.FetchPostsByCategory(ctx, categoryID, limit)

		if err != nil {
			return nil, err
		}

		return s.normalizer.NormalizeAll(raws), nil
	})
}

// Categories returns the categories that have posts
func (s *Service) Categories(ctx context.Context) ([]entity.Category, error) {
	return readThrough(ctx, s, keyCategories, func(ctx context.Context) ([]entity.Category, error) {
		categories, err := s.source.FetchCategories(ctx)

		if err != nil {
			return nil, err
		}

		displayable := make([]entity.Category, 0, len(categories))

		for _, c := range categories {
			if c.Displayable() {
				displayable = append(displayable, c)
			}
		}

		return displayable, nil
	})
}

// ResolveCategory finds a displayable category by numeric id or slug.
// Slugs are looked up after alias resolution.
func (s *Service) ResolveCategory(ctx context.Context, ref string) (*entity.Category, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))

	categories, err := s.Categories(ctx)

	if err != nil {
		return nil, err
	}

	if id, convErr := strconv.Atoi(ref); convErr == nil {
		for _, c := range categories {
			if c.ID == id {
				return &c, nil
			}
		}

		return nil, fmt.Errorf("category %d: %w", id, entity.ErrNotFound)
	}

	if canonical, ok := s.aliases[ref]; ok {
		ref = canonical
	}

	for _, c := range categories {
		if strings.EqualFold(c.Slug, ref) {
			return &c, nil
		}
	}

	return nil, fmt.Errorf("category %q: %w", ref, entity.ErrNotFound)
}

// Related returns up to limit posts sharing the article's first category
func (s *Service) Related(ctx context.Context, a *entity.Article, limit int) ([]entity.DisplayPost, error) {
	if len(a.Categories) == 0 {
		return []entity.DisplayPost{}, nil
	}

	// One extra in case the article itself is among the results.
	posts, err := s.PostsByCategory(ctx, a.Categories[0].ID, limit+1)

	if err != nil {
		return nil, err
	}

	related := make([]entity.DisplayPost, 0, limit)

	for _, p := range posts {
		if p.ID == a.ID {
			continue
		}

		if len(related) == limit {
			break
		}

		related = append(related, p)
	}

	return related, nil
}

// Invalidate drops cached entries affected by a change to the post with slug,
// including every per-category listing.
func (s *Service) Invalidate(ctx context.Context, slug string) error {
	keys := []string{keyAllPosts, keyCategories}

	if slug = strings.TrimSpace(slug); slug != "" {
		keys = append(keys, postKey(slug))
	}

	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("could not invalidate cache: %w", err)
	}

	if err := s.cache.DeletePrefix(ctx, keyCategoryPostsPrefix); err != nil {
		return fmt.Errorf("could not invalidate category listings: %w", err)
	}

	s.logger.Info("Cache invalidated", "keys", keys, "prefix", keyCategoryPostsPrefix)

	return nil
}

func postKey(slug string) string {
	return "blog:post:" + slug
}

// readThrough returns the cached value for key, or loads, caches and returns it.
func readThrough[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	var value T

	if s.ttl > 0 {
		cached, err := s.cache.Get(ctx, key)

		if err == nil {
			if err = json.Unmarshal(cached, &value); err == nil {
				return value, nil
			}

			s.logger.Warn("Could not decode cached value", "key", key, "error", err)
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Error("Cache error", "key", key, "error", err)
		}
	}

	value, err := load(ctx)

	if err != nil {
		return value, err
	}

	if s.ttl > 0 {
		s.store(key, value)
	}

	return value, nil
}

func (s *Service) store(key string, value any) {
	encoded, err := json.Marshal(value)

	if err != nil {
		s.logger.Error("Could not encode value for cache", "key", key, "error", err)
		return
	}

	// Use background context for caching to avoid cancellation
	ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()

	if err := s.cache.Set(ctx, key, encoded, s.ttl); err != nil {
		s.logger.Error("Failed to cache content", "key", key, "error", err)
	}
}
