package entity

import "time"

// FeedEntry is one article/item under a Feed. Invariant: (feed_id, guid) is
// unique. Created by the Feed Service and never mutated afterward except to
// set the translation cache fields.
type FeedEntry struct {
	ID     int64
	FeedID int64
	GUID   string

	Title       string
	Link        string
	Summary     string
	Content     string
	Author      string
	PublishedAt *time.Time
	ImageURL    string

	// Cached translation. Valid only when TranslationLanguage matches the
	// requesting subscription's target_language.
	TitleTranslated     string
	SummaryTranslated   string
	TranslationLanguage string

	// IsSent is a legacy per-feed hint, not used for dedup; the SentReceipt
	// table is authoritative.
	IsSent bool

	CreatedAt time.Time
}

// DisplayTitle returns the translated title when present, else the original.
func (e *FeedEntry) DisplayTitle() string {
	if e.TitleTranslated != "" {
		return e.TitleTranslated
	}
	return e.Title
}

// DisplaySummary returns the translated summary when present, else the
// original.
func (e *FeedEntry) DisplaySummary() string {
	if e.SummaryTranslated != "" {
		return e.SummaryTranslated
	}
	return e.Summary
}

// SetTranslation records a translation result against the entry. Switching
// target language invalidates previously cached fields by simply overwriting
// them together with the new TranslationLanguage.
func (e *FeedEntry) SetTranslation(titleTranslated, summaryTranslated, lang string) {
	e.TitleTranslated = titleTranslated
	e.SummaryTranslated = summaryTranslated
	e.TranslationLanguage = lang
}

// HasCachedTranslation reports whether the entry already carries a usable
// translation for the given target language.
func (e *FeedEntry) HasCachedTranslation(targetLanguage string) bool {
	return e.TranslationLanguage == targetLanguage && (e.TitleTranslated != "" || e.SummaryTranslated != "")
}
