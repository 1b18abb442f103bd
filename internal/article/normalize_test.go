package article_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/nDmitry/wpblog/internal/article"
	"github.com/nDmitry/wpblog/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNormalizer() *article.Normalizer {
	return article.NewNormalizer("fr_FR", entity.ImageConfig{
		Width:       1200,
		Quality:     80,
		Placeholder: "/images/blog-placeholder.jpg",
	})
}

func rendered(s string) *entity.Rendered {
	return &entity.Rendered{Rendered: s}
}

func TestNormalizer_Normalize(t *testing.T) {
	n := newNormalizer()

	raw := entity.RawPost{
		ID:            12,
		Date:          "2024-03-12T09:30:00",
		Slug:          "le-reiki-et-vous",
		Title:         rendered("Le Reiki &amp; vous&nbsp;: <em>premiers pas</em>"),
		Excerpt:       rendered("<p>Une s&eacute;ance de Reiki &#8211; &lt;douce&gt; et profonde. [&hellip;]</p>\n"),
		Categories:    []int{3},
		FeaturedMedia: 77,
		Embedded: &entity.Embedded{
			FeaturedMedia: []entity.Media{{
				ID:        77,
				SourceURL: "https://cms.example.com/wp-content/uploads/2024/03/reiki.jpg",
				AltText:   "Mains posées",
			}},
			Terms: [][]entity.Term{
				{
					{ID: 3, Name: "Reiki &amp; énergie", Slug: "reiki", Taxonomy: "category"},
					{ID: 5, Name: "Bien-être", Slug: "bien-etre", Taxonomy: "category"},
				},
				{
					{ID: 40, Name: "débutant", Slug: "debutant", Taxonomy: "post_tag"},
				},
			},
		},
	}

	post := n.Normalize(raw)

	assert.Equal(t, 12, post.ID)
	assert.Equal(t, "Le Reiki & vous : premiers pas", post.Title)
	assert.Equal(t, "Une séance de Reiki – douce et profonde.", post.Excerpt)
	assert.Equal(t, "12 mars 2024", post.Date)
	assert.Equal(t, "2024-03-12T09:30:00", post.ISODate)
	assert.Equal(t, time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC), post.PublishedAt)
	assert.Equal(t, "le-reiki-et-vous", post.Slug)
	assert.Equal(t, "https://cms.example.com/wp-content/uploads/2024/03/reiki.jpg?q=80&w=1200", post.ImageURL)
	assert.Equal(t, "Mains posées", post.ImageAlt)
	assert.Equal(t, 77, post.FeaturedMediaID)
	assert.Equal(t, []entity.PostCategory{
		{ID: 3, Name: "Reiki & énergie", Slug: "reiki"},
		{ID: 5, Name: "Bien-être", Slug: "bien-etre"},
	}, post.Categories)
}

func TestNormalizer_NormalizeMalformed(t *testing.T) {
	n := newNormalizer()

	tests := []struct {
		name  string
		raw   entity.RawPost
		check func(t *testing.T, post entity.DisplayPost)
	}{
		{
			name: "Missing title and excerpt",
			raw:  entity.RawPost{ID: 1, Slug: "empty"},
			check: func(t *testing.T, post entity.DisplayPost) {
				assert.Equal(t, "", post.Title)
				assert.Equal(t, "", post.Excerpt)
				assert.Equal(t, "", post.Date)
				assert.True(t, post.PublishedAt.IsZero())
			},
		},
		{
			name: "No featured media uses placeholder",
			raw:  entity.RawPost{ID: 2, Title: rendered("Astrologie 101")},
			check: func(t *testing.T, post entity.DisplayPost) {
				assert.Equal(t, "/images/blog-placeholder.jpg", post.ImageURL)
				assert.Equal(t, "Astrologie 101", post.ImageAlt)
			},
		},
		{
			name: "Restricted featured media uses placeholder",
			raw: entity.RawPost{ID: 3, Embedded: &entity.Embedded{
				FeaturedMedia: []entity.Media{{ID: 0}},
			}},
			check: func(t *testing.T, post entity.DisplayPost) {
				assert.Equal(t, "/images/blog-placeholder.jpg", post.ImageURL)
			},
		},
		{
			name: "Unparseable date",
			raw:  entity.RawPost{ID: 4, Date: "someday"},
			check: func(t *testing.T, post entity.DisplayPost) {
				assert.Equal(t, "", post.Date)
				assert.Equal(t, "someday", post.ISODate)
			},
		},
		{
			name: "Category ids without embedded terms",
			raw:  entity.RawPost{ID: 5, Categories: []int{7, 7, 9}},
			check: func(t *testing.T, post entity.DisplayPost) {
				assert.Equal(t, []entity.PostCategory{{ID: 7}, {ID: 9}}, post.Categories)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var post entity.DisplayPost

			require.NotPanics(t, func() {
				post = n.Normalize(tt.raw)
			})

			tt.check(t, post)
		})
	}
}

func TestNormalizer_NormalizeAll(t *testing.T) {
	n := newNormalizer()

	posts := n.NormalizeAll([]entity.RawPost{
		{ID: 1, Title: rendered("Premier")},
		{ID: 2},
		{ID: 3, Title: rendered("Troisième")},
	})

	require.Len(t, posts, 3)
	assert.Equal(t, "Premier", posts[0].Title)
	assert.Equal(t, "", posts[1].Title)
	assert.Equal(t, "Troisième", posts[2].Title)
}

func TestNormalizer_TitleKeepsEncodedBrackets(t *testing.T) {
	post := newNormalizer().Normalize(entity.RawPost{
		Title:   rendered("Je &lt;3 le Reiki"),
		Excerpt: rendered("<p>Je &lt;3 le Reiki</p>"),
	})

	assert.Equal(t, "Je <3 le Reiki", post.Title)
	assert.Equal(t, "Je 3 le Reiki", post.Excerpt)
}

func TestNormalizer_ExcerptInvariant(t *testing.T) {
	n := newNormalizer()
	long := strings.Repeat("L'astrologie éclaire <b>le</b> chemin &amp; la conscience. ", 20)

	excerpts := []string{
		"",
		"<p>Court.</p>",
		long,
		"<p>" + strings.Repeat("x", 400) + "</p>",
		"&lt;script&gt;alert(1)&lt;/script&gt; texte",
		"<div><p>Un</p><p>Deux</p></div>",
		"<p>" + strings.Repeat("é", 149) + " fin du texte</p>",
	}

	for _, excerpt := range excerpts {
		post := n.Normalize(entity.RawPost{Excerpt: rendered(excerpt)})

		assert.NotContains(t, post.Excerpt, "<")
		assert.NotContains(t, post.Excerpt, ">")
		assert.LessOrEqual(t, utf8.RuneCountInString(post.Excerpt), 153, excerpt)
	}

	post := n.Normalize(entity.RawPost{Excerpt: rendered(long)})
	assert.True(t, strings.HasSuffix(post.Excerpt, "..."))
	assert.False(t, strings.HasSuffix(post.Excerpt, " ..."))
}

func TestNormalizer_ImageURL(t *testing.T) {
	n := newNormalizer()

	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{"Empty", "", "/images/blog-placeholder.jpg"},
		{"Blank", "   ", "/images/blog-placeholder.jpg"},
		{"Absolute", "https://cms.example.com/a.png", "https://cms.example.com/a.png?q=80&w=1200"},
		{"Existing query", "https://cms.example.com/a.png?ver=2", "https://cms.example.com/a.png?q=80&ver=2&w=1200"},
		{"Relative", "/uploads/b.jpg", "/uploads/b.jpg?q=80&w=1200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.ImageURL(tt.src))
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", ""},
		{"plain", "plain"},
		{"<p>Hello&nbsp;world</p>", "Hello world"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"&quot;cité&quot; &#039;ici&#039;", `"cité" 'ici'`},
		{"<p>a</p>\n\n<p>b</p>", "a b"},
		{"&lt;b&gt;encoded&lt;/b&gt;", "<b>encoded</b>"},
		{"Je &lt;3 le Reiki", "Je <3 le Reiki"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, article.StripHTML(tt.in))
		})
	}
}
