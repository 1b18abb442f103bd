package blog_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nDmitry/wpblog/internal/article"
	"github.com/nDmitry/wpblog/internal/blog"
	"github.com/nDmitry/wpblog/internal/cache"
	"github.com/nDmitry/wpblog/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSource is a mock implementation of the Source interface
type MockSource struct {
	FetchAllPostsFunc        func(ctx context.Context) ([]entity.RawPost, error)
	FetchPostBySlugFunc      func(ctx context.Context, slug string) (*entity.RawPost, error)
	FetchCategoriesFunc      func(ctx context.Context) ([]entity.Category, error)
	FetchPostsByCategoryFunc func(ctx context.Context, categoryID, limit int) ([]entity.RawPost, error)
}

func (m *MockSource) FetchAllPosts(ctx context.Context) ([]entity.RawPost, error) {
	return m.FetchAllPostsFunc(ctx)
}

func (m *MockSource) FetchPostBySlug(ctx context.Context, slug string) (*entity.RawPost, error) {
	return m.FetchPostBySlugFunc(ctx, slug)
}

func (m *MockSource) FetchCategories(ctx context.Context) ([]entity.Category, error) {
	return m.FetchCategoriesFunc(ctx)
}

func (m *MockSource) FetchPostsByCategory(ctx context.Context, categoryID, limit int) ([]entity.RawPost, error) {
	return m.FetchPostsByCategoryFunc(ctx, categoryID, limit)
}

// MockSanitizer records the arguments it was called with
type MockSanitizer struct {
	FeaturedURL string
	MediaID     int
}

func (m *MockSanitizer) Sanitize(body, featuredURL string, mediaID int) string {
	m.FeaturedURL = featuredURL
	m.MediaID = mediaID

	return strings.TrimSpace(body)
}

// MockCache is a cache that always fails
type MockCache struct {
	err error
}

func (m *MockCache) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, m.err
}

func (m *MockCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return m.err
}

func (m *MockCache) Delete(_ context.Context, _ ...string) error {
	return m.err
}

func (m *MockCache) DeletePrefix(_ context.Context, _ string) error {
	return m.err
}

func (m *MockCache) Close() error {
	return nil
}

func rawPost(id int, slug string, categories ...int) entity.RawPost {
	return entity.RawPost{
		ID:         id,
		Date:       fmt.Sprintf("2024-03-%02dT10:00:00", id),
		Slug:       slug,
		Title:      &entity.Rendered{Rendered: "Post " + slug},
		Excerpt:    &entity.Rendered{Rendered: "<p>Résumé " + slug + "</p>"},
		Content:    &entity.Rendered{Rendered: "<p>Contenu de " + slug + "</p>"},
		Categories: categories,
	}
}

func newService(src blog.Source, c cache.Cache, s blog.Sanitizer, ttl time.Duration) *blog.Service {
	n := article.NewNormalizer("fr_FR", entity.ImageConfig{
		Width:       1200,
		Quality:     80,
		Placeholder: "/images/blog-placeholder.jpg",
	})

	return blog.NewService(src, c, n, s, blog.Options{
		TTL:             ttl,
		CategoryAliases: map[string]string{"Soins": "reiki"},
	})
}

func TestService_PostsReadThrough(t *testing.T) {
	calls := 0
	src := &MockSource{
		FetchAllPostsFunc: func(_ context.Context) ([]entity.RawPost, error) {
			calls++
			return []entity.RawPost{rawPost(1, "un"), rawPost(2, "deux")}, nil
		},
	}

	svc := newService(src, cache.NewMemoryCache(), &MockSanitizer{}, time.Minute)

	first, err := svc.Posts(context.Background())
	require.NoError(t, err)

	second, err := svc.Posts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].Slug, second[0].Slug)
	assert.True(t, first[1].PublishedAt.Equal(second[1].PublishedAt))
}

func TestService_PostsWithoutCaching(t *testing.T) {
	calls := 0
	src := &MockSource{
		FetchAllPostsFunc: func(_ context.Context) ([]entity.RawPost, error) {
			calls++
			return []entity.RawPost{rawPost(1, "un")}, nil
		},
	}

	svc := newService(src, cache.NewMemoryCache(), &MockSanitizer{}, 0)

	for range 3 {
		_, err := svc.Posts(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 3, calls)
}

func TestService_CacheErrorsAreBypassed(t *testing.T) {
	src := &MockSource{
		FetchAllPostsFunc: func(_ context.Context) ([]entity.RawPost, error) {
			return []entity.RawPost{rawPost(1, "un")}, nil
		},
	}

	svc := newService(src, &MockCache{err: errors.New("connection refused")}, &MockSanitizer{}, time.Minute)

	posts, err := svc.Posts(context.Background())

	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestService_SourceErrorIsNotCached(t *testing.T) {
	fail := true
	src := &MockSource{
		FetchAllPostsFunc: func(_ context.Context) ([]entity.RawPost, error) {
			if fail {
				return nil, fmt.Errorf("%w: boom", entity.ErrSourceUnavailable)
			}
			return []entity.RawPost{rawPost(1, "un")}, nil
		},
	}

	svc := newService(src, cache.NewMemoryCache(), &MockSanitizer{}, time.Minute)

	_, err := svc.Posts(context.Background())
	assert.ErrorIs(t, err, entity.ErrSourceUnavailable)

	fail = false

	posts, err := svc.Posts(context.Background())
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestService_Post(t *testing.T) {
	tests := []struct {
		name            string
		raw             entity.RawPost
		expectedURL     string
		expectedMediaID int
	}{
		{
			name: "Featured image is passed to the sanitizer",
			raw: func() entity.RawPost {
				p := rawPost(4, "pleine-lune")
				p.FeaturedMedia = 77
				p.Embedded = &entity.Embedded{FeaturedMedia: []entity.Media{{
					ID:        77,
					SourceURL: "https://cms.example.com/uploads/pleine-lune.jpg",
				}}}
				return p
			}(),
			expectedURL:     "https://cms.example.com/uploads/pleine-lune.jpg?q=80&w=1200",
			expectedMediaID: 77,
		},
		{
			name:            "Placeholder is never matched against the body",
			raw:             rawPost(5, "sans-image"),
			expectedURL:     "",
			expectedMediaID: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &MockSource{
				FetchPostBySlugFunc: func(_ context.Context, slug string) (*entity.RawPost, error) {
					assert.Equal(t, tt.raw.Slug, slug)
					raw := tt.raw
					return &raw, nil
				},
			}
			sanitizer := &MockSanitizer{}

			svc := newService(src, cache.NewMemoryCache(), sanitizer, time.Minute)

			a, err := svc.Post(context.Background(), tt.raw.Slug)

			require.NoError(t, err)
			assert.Equal(t, tt.raw.Slug, a.Slug)
			assert.Equal(t, "<p>Contenu de "+tt.raw.Slug+"</p>", a.Content)
			assert.Equal(t, 1, a.ReadingMinutes)
			assert.Equal(t, tt.expectedURL, sanitizer.FeaturedURL)
			assert.Equal(t, tt.expectedMediaID, sanitizer.MediaID)
		})
	}
}

func TestService_PostNotFound(t *testing.T) {
	src := &MockSource{
		FetchPostBySlugFunc: func(_ context.Context, slug string) (*entity.RawPost, error) {
			return nil, fmt.Errorf("post %q: %w", slug, entity.ErrNotFound)
		},
	}

	svc := newService(src, cache.NewMemoryCache(), &MockSanitizer{}, time.Minute)

	_, err := svc.Post(context.Background(), "absent")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = svc.Post(context.Background(), "  ")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestService_ResolveCategory(t *testing.T) {
	src := &MockSource{
		FetchCategoriesFunc: func(_ context.Context) ([]entity.Category, error) {
			return []entity.Category{
				{ID: 3, Name: "Reiki", Slug: "reiki", Count: 4},
				{ID: 5, Name: "Bien-être", Slug: "bien-etre", Count: 2},
				{ID: 9, Name: "Vide", Slug: "vide", Count: 0},
			}, nil
		},
	}

	svc := newService(src, cache.NewMemoryCache(), &MockSanitizer{}, time.Minute)

	tests := []struct {
		name       string
		ref        string
		expectedID int
		notFound   bool
	}{
		{name: "By numeric id", ref: "5", expectedID: 5},
		{name: "By slug", ref: "reiki", expectedID: 3},
		{name: "By slug in another case", ref: "Bien-Etre", expectedID: 5},
		{name: "By alias", ref: "soins", expectedID: 3},
		{name: "Empty category is hidden", ref: "vide", notFound: true},
		{name: "Unknown id", ref: "42", notFound: true},
		{name: "Unknown slug", ref: "astrologie", notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := svc.ResolveCategory(context.Background(), tt.ref)

			if tt.notFound {
				assert.ErrorIs(t, err, entity.ErrNotFound)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, c.ID)
		})
	}
}

func TestService_Related(t *testing.T) {
	src := &MockSource{
		FetchPostsByCategoryFunc: func(_ context.Context, categoryID, limit int) ([]entity.RawPost, error) {
			assert.Equal(t, 3, categoryID)
			assert.Equal(t, 3, limit)
			return []entity.RawPost{rawPost(7, "sept", 3), rawPost(1, "un", 3), rawPost(2, "deux", 3)}, nil
		},
	}

	svc := newService(src, cache.NewMemoryCache(), &MockSanitizer{}, time.Minute)

	a := &entity.Article{DisplayPost: entity.DisplayPost{
		ID:         1,
		Slug:       "un",
		Categories: []entity.PostCategory{{ID: 3, Slug: "reiki"}, {ID: 5, Slug: "bien-etre"}},
	}}

	related, err := svc.Related(context.Background(), a, 2)

	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, 7, related[0].ID)
	assert.Equal(t, 2, related[1].ID)
}

func TestService_RelatedWithoutCategory(t *testing.T) {
	svc := newService(&MockSource{}, cache.NewMemoryCache(), &MockSanitizer{}, time.Minute)

	related, err := svc.Related(context.Background(), &entity.Article{}, 3)

	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestService_Invalidate(t *testing.T) {
	calls := 0
	src := &MockSource{
		FetchPostBySlugFunc: func(_ context.Context, slug string) (*entity.RawPost, error) {
			calls++
			raw := rawPost(1, slug)
			return &raw, nil
		},
	}

	svc := newService(src, cache.NewMemoryCache(), &MockSanitizer{}, time.Minute)

	_, err := svc.Post(context.Background(), "un")
	require.NoError(t, err)

	_, err = svc.Post(context.Background(), "un")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	require.NoError(t, svc.Invalidate(context.Background(), "un"))

	_, err = svc.Post(context.Background(), "un")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestService_InvalidateCacheError(t *testing.T) {
	svc := newService(&MockSource{}, &MockCache{err: errors.New("down")}, &MockSanitizer{}, time.Minute)

	assert.Error(t, svc.Invalidate(context.Background(), "un"))
}

func TestService_InvalidateCategoryListings(t *testing.T) {
	calls := 0
	src := &MockSource{
		FetchPostsByCategoryFunc: func(_ context.Context, _, _ int) ([]entity.RawPost, error) {
			calls++
			return []entity.RawPost{rawPost(7, "sept", 3), rawPost(1, "un", 3)}, nil
		},
	}

	svc := newService(src, cache.NewMemoryCache(), &MockSanitizer{}, time.Minute)

	a := &entity.Article{DisplayPost: entity.DisplayPost{
		ID:         2,
		Categories: []entity.PostCategory{{ID: 3}},
	}}

	_, err := svc.Related(context.Background(), a, 3)
	require.NoError(t, err)

	_, err = svc.Related(context.Background(), a, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	require.NoError(t, svc.Invalidate(context.Background(), ""))

	_, err = svc.Related(context.Background(), a, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
