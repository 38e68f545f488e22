package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name       string
		html       string
		wantText   string
		wantImages []string
	}{
		{name: "empty", html: "", wantText: ""},
		{name: "plain text passthrough", html: "just plain text", wantText: "just plain text"},
		{
			name:       "strips tags and collects images",
			html:       `<p>Hello <b>world</b></p><img src="https://example.com/a.png">`,
			wantText:   "Hello world",
			wantImages: []string{"https://example.com/a.png"},
		},
		{
			name:     "drops script and style content",
			html:     `<p>Visible</p><script>evil()</script><style>.x{color:red}</style>`,
			wantText: "Visible",
		},
		{
			name:     "ignores non-http image src",
			html:     `<img src="/relative.png"><p>text</p>`,
			wantText: "text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, images := CleanHTML(tt.html)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantImages, images)
		})
	}
}

func TestTruncateText(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, TruncateText(short, "..."))

	long := strings.Repeat("word ", 300)
	out := TruncateText(long, "...")
	assert.LessOrEqual(t, len([]rune(out)), MaxSummaryLength)
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestTruncateTitle(t *testing.T) {
	long := strings.Repeat("a", 300)
	out := TruncateTitle(long)
	assert.Equal(t, MaxTitleLength, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestGetSourceName(t *testing.T) {
	tests := []struct {
		name, link, lang, want string
	}{
		{name: "known domain english", link: "https://www.bbc.com/news/12345", lang: "en", want: "BBC"},
		{name: "known domain chinese", link: "https://bbc.co.uk/news", lang: "zh", want: "英国广播公司"},
		{name: "subdomain of known domain", link: "https://feeds.reuters.com/a", lang: "en", want: "Reuters"},
		{name: "unknown domain falls back to titled segment", link: "https://example.org/post", lang: "en", want: "Example"},
		{name: "invalid url", link: "://bad", lang: "en", want: "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetSourceName(tt.link, tt.lang))
		})
	}
}

func TestIsValidImageURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "jpg extension", url: "https://example.com/photo.jpg", want: true},
		{name: "known image host", url: "https://i.imgur.com/abc", want: true},
		{name: "no scheme", url: "example.com/photo.jpg", want: false},
		{name: "unrelated page", url: "https://example.com/article", want: false},
		{name: "empty", url: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidImageURL(tt.url))
		})
	}
}

func TestProcess(t *testing.T) {
	p := Process("<b>Title</b>", "short summary", "", "https://cnn.com/a", "en")
	assert.Equal(t, "Title", p.Title)
	assert.Equal(t, "short summary", p.Summary)
	assert.Equal(t, "CNN", p.SourceName)
}

func TestExtractFirstImage(t *testing.T) {
	assert.Equal(t, "", ExtractFirstImage("<p>no images</p>"))
	assert.Equal(t, "https://example.com/a.png", ExtractFirstImage(`<img src="https://example.com/a.png">`))
}
