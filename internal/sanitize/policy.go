package sanitize

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Matches [caption id="..."], [/caption], [embed] and [/embed] shortcode markers.
var shortcodeRegex = regexp.MustCompile(`\[/?(?:caption|embed|wp_caption)(?:\s[^\]]*)?\]`)

// newPolicy extends the UGC policy with the media markup article bodies embed.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).Globally()
	p.AllowElements("figure", "figcaption", "iframe", "video", "source")
	p.AllowAttrs("data-id").Matching(bluemonday.Integer).OnElements("img")
	p.AllowAttrs("srcset", "sizes", "loading").OnElements("img")
	p.AllowAttrs("src", "title", "allow", "allowfullscreen", "frameborder", "referrerpolicy", "loading").
		OnElements("iframe")
	p.AllowAttrs("src", "poster", "controls", "preload", "muted", "loop", "playsinline").
		OnElements("video")
	p.AllowAttrs("src", "type").OnElements("source")

	return p
}
