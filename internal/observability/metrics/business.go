package metrics

import (
	"fmt"
	"time"
)

// RecordEntriesFetched records the number of entries fetched from a feed.
func RecordEntriesFetched(feedID int64, count int) {
	EntriesFetchedTotal.WithLabelValues(fmt.Sprintf("%d", feedID)).Add(float64(count))
}

// RecordTranslation records the result of a translation call.
// Status should be either "success" or "failure".
func RecordTranslation(provider string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	TranslationsTotal.WithLabelValues(provider, status).Inc()
}

// RecordTranslationDuration records the time taken for a translation call.
func RecordTranslationDuration(provider string, duration time.Duration) {
	TranslationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTranslationCacheHit records a translation cache hit.
func RecordTranslationCacheHit() {
	TranslationCacheHitsTotal.WithLabelValues("hit").Inc()
}

// RecordTranslationCacheMiss records a translation cache miss.
func RecordTranslationCacheMiss() {
	TranslationCacheHitsTotal.WithLabelValues("miss").Inc()
}

// RecordFeedCrawl records metrics for a feed crawl operation.
func RecordFeedCrawl(feedID int64, duration time.Duration, itemsFound int64) {
	FeedCrawlDuration.WithLabelValues(
		fmt.Sprintf("%d", feedID),
	).Observe(duration.Seconds())

	if itemsFound > 0 {
		RecordEntriesFetched(feedID, int(itemsFound))
	}
}

// RecordFeedCrawlError records an error during feed crawling.
func RecordFeedCrawlError(feedID int64, errorType string) {
	FeedCrawlErrors.WithLabelValues(
		fmt.Sprintf("%d", feedID),
		errorType,
	).Inc()
}

// RecordFeedDeactivated records a feed crossing the consecutive-error threshold.
func RecordFeedDeactivated() {
	FeedsDeactivatedTotal.Inc()
}

// UpdateFeedEntriesTotal updates the total count of feed entries in the database.
func UpdateFeedEntriesTotal(count int) {
	FeedEntriesTotal.Set(float64(count))
}

// UpdateFeedsTotal updates the total count of feeds in the database.
func UpdateFeedsTotal(count int) {
	FeedsTotal.Set(float64(count))
}

// RecordContentFetchSuccess records a successful content fetch operation.
// This tracks both the duration and size of fetched content.
func RecordContentFetchSuccess(duration time.Duration, size int) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
	ContentFetchSize.Observe(float64(size))
}

// RecordContentFetchFailed records a failed content fetch operation.
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a skipped content fetch operation.
// This occurs when RSS content is sufficient (>= threshold) and fetching is unnecessary.
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordDispatchCycle records the duration of one full dispatch cycle.
func RecordDispatchCycle(duration time.Duration) {
	DispatchCycleDuration.Observe(duration.Seconds())
}

// RecordMessageSent records the outcome of a delivery adapter send.
func RecordMessageSent(platform string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	MessagesSentTotal.WithLabelValues(platform, status).Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_feed_entries", "insert_feed_entry").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

// UpdateSubscriptionsTotal updates the total count of active subscriptions.
func UpdateSubscriptionsTotal(count int) {
	SubscriptionsTotal.Set(float64(count))
}

// RecordSubscriptionChange records a subscribe or unsubscribe attempt.
// action should be "subscribe" or "unsubscribe"; outcome one of "created",
// "already_exists", "not_found", "quota_exceeded", "removed".
func RecordSubscriptionChange(action, outcome string) {
	SubscriptionChangesTotal.WithLabelValues(action, outcome).Inc()
}
