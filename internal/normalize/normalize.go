// Package normalize implements the Content Normalizer: HTML stripping, image
// extraction, source-name lookup and display-length truncation applied to a
// raw feed item before it is persisted as a FeedEntry.
package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"newsflow-bridge/internal/utils/text"
)

// Display length limits shared by both supported chat platforms.
const (
	MaxTitleLength   = 256
	MaxSummaryLength = 1024
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Processed holds the display-ready form of one feed entry.
type Processed struct {
	Title      string
	Summary    string
	PlainText  string
	Images     []string
	SourceName string
}

// CleanHTML strips tags from html, returning the extracted plain text plus
// any <img> src URLs found along the way. If html contains no markup it is
// returned as-is, trimmed.
func CleanHTML(html string) (string, []string) {
	html = strings.TrimSpace(html)
	if html == "" {
		return "", nil
	}
	if !strings.Contains(html, "<") {
		return html, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html, nil
	}
	doc.Find("script, style, noscript").Remove()

	var images []string
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if ok && (strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")) {
			images = append(images, src)
		}
	})

	plain := doc.Text()
	plain = whitespaceRun.ReplaceAllString(plain, " ")
	return strings.TrimSpace(plain), images
}

// TruncateText truncates s to MaxSummaryLength runes, breaking at the last word
// boundary when that doesn't lose more than 30% of the available room.
func TruncateText(s, suffix string) string {
	return truncate(s, MaxSummaryLength, suffix)
}

// TruncateTitle truncates a title to the platform display limit.
func TruncateTitle(title string) string {
	return truncate(title, MaxTitleLength, "...")
}

func truncate(s string, maxLen int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	truncateAt := maxLen - len([]rune(suffix))
	if truncateAt <= 0 {
		suffixRunes := []rune(suffix)
		if len(suffixRunes) > maxLen {
			return string(suffixRunes[:maxLen])
		}
		return suffix
	}

	truncated := runes[:truncateAt]
	lastSpace := lastIndexOf(truncated, ' ')
	if lastSpace > int(float64(truncateAt)*0.7) {
		truncated = truncated[:lastSpace]
	}

	return strings.TrimRight(string(truncated), " \t\n") + suffix
}

func lastIndexOf(runes []rune, target rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

// GetSourceName resolves a human-readable publisher name from an article
// link, falling back to the bare domain when nothing in the table matches.
func GetSourceName(link, language string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return "Unknown"
	}
	domain := strings.ToLower(parsed.Hostname())
	domain = strings.TrimPrefix(domain, "www.")
	if domain == "" {
		return "Unknown"
	}

	if names, ok := domainToSource[domain]; ok {
		return nameFor(names, language, domain)
	}
	for known, names := range domainToSource {
		if strings.HasSuffix(domain, "."+known) {
			return nameFor(names, language, domain)
		}
	}

	parts := strings.Split(domain, ".")
	if len(parts) >= 2 {
		return strings.Title(parts[len(parts)-2])
	}
	return domain
}

func nameFor(names map[string]string, language, domain string) string {
	lang := language
	if lang != "en" && lang != "zh" {
		lang = "en"
	}
	if name, ok := names[lang]; ok {
		return name
	}
	return domain
}

// IsValidImageURL reports whether url looks like a usable image resource:
// an http(s) URL with a recognized image extension, or hosted on a known
// image CDN.
func IsValidImageURL(rawURL string) bool {
	if rawURL == "" || !(strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")) {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	pathLower := strings.ToLower(parsed.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(pathLower, ext) {
			return true
		}
	}
	hostLower := strings.ToLower(parsed.Host)
	for _, host := range imageHosts {
		if strings.Contains(hostLower, host) {
			return true
		}
	}
	return false
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}

var imageHosts = []string{"imgur.com", "i.imgur.com", "pbs.twimg.com", "media."}

// Process turns the raw title/summary/content/link of a feed item into its
// display-ready form.
func Process(title, summary, content, link, language string) Processed {
	cleanTitle := title
	if strings.Contains(title, "<") {
		cleanTitle, _ = CleanHTML(title)
	}
	cleanTitle = TruncateTitle(cleanTitle)

	raw := content
	if raw == "" {
		raw = summary
	}
	plain, images := CleanHTML(raw)
	displaySummary := TruncateText(plain, "...")

	return Processed{
		Title:      cleanTitle,
		Summary:    displaySummary,
		PlainText:  plain,
		Images:     images,
		SourceName: GetSourceName(link, language),
	}
}

// ExtractFirstImage returns the first <img> src found in html, or "".
func ExtractFirstImage(html string) string {
	_, images := CleanHTML(html)
	if len(images) == 0 {
		return ""
	}
	return images[0]
}

// CountRunes re-exports text.CountRunes for callers that only import
// normalize; kept so truncation call sites don't need a second import.
func CountRunes(s string) int {
	return text.CountRunes(s)
}
