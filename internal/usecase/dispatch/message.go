// Package dispatch implements the Dispatcher (C7): the per-cycle state
// machine that fetches due feeds, collates unsent entries per subscription,
// translates on demand and hands finished messages to a platform adapter,
// writing a SentReceipt only after a successful send.
package dispatch

import "time"

// Message is the platform-agnostic payload handed to a DeliveryAdapter.
// It carries both the original and translated text; DisplayTitle and
// DisplaySummary pick whichever is appropriate, mirroring entity.FeedEntry.
type Message struct {
	Title       string
	Summary     string
	Link        string
	Source      string
	PublishedAt *time.Time
	ImageURL    string

	TitleTranslated   string
	SummaryTranslated string
}

// DisplayTitle returns the translated title when present, else the original.
func (m *Message) DisplayTitle() string {
	if m.TitleTranslated != "" {
		return m.TitleTranslated
	}
	return m.Title
}

// DisplaySummary returns the translated summary when present, else the
// original.
func (m *Message) DisplaySummary() string {
	if m.SummaryTranslated != "" {
		return m.SummaryTranslated
	}
	return m.Summary
}
