// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Business metrics track application-specific operations.
var (
	// FeedEntriesTotal tracks total number of feed entries in the database.
	FeedEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_entries_total",
			Help: "Total number of feed entries in the database",
		},
	)

	// FeedsTotal tracks total number of feeds in the database.
	FeedsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feeds_total",
			Help: "Total number of feeds in the database",
		},
	)

	// SubscriptionsTotal tracks total number of active subscriptions.
	SubscriptionsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Total number of active subscriptions",
		},
	)

	// SubscriptionChangesTotal counts subscribe/unsubscribe operations by outcome.
	SubscriptionChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_changes_total",
			Help: "Total number of subscription create/remove operations",
		},
		[]string{"action", "outcome"},
	)

	// EntriesFetchedTotal counts entries fetched from each feed.
	EntriesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entries_fetched_total",
			Help: "Total number of feed entries fetched from feeds",
		},
		[]string{"feed_id"},
	)

	// TranslationsTotal counts translation calls by provider and status.
	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translations_total",
			Help: "Total number of translation calls",
		},
		[]string{"provider", "status"},
	)

	// TranslationDuration measures time to translate a piece of text.
	TranslationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "translation_duration_seconds",
			Help:    "Time taken to translate text",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"provider"},
	)

	// TranslationCacheHitsTotal counts translation cache hits and misses.
	TranslationCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_cache_hits_total",
			Help: "Total number of translation cache lookups by outcome",
		},
		[]string{"outcome"}, // hit, miss
	)

	// FeedCrawlDuration measures time to crawl a feed.
	FeedCrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_crawl_duration_seconds",
			Help:    "Time taken to crawl a feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"feed_id"},
	)

	// FeedCrawlErrors counts errors during feed crawling.
	FeedCrawlErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_crawl_errors_total",
			Help: "Total number of feed crawl errors",
		},
		[]string{"feed_id", "error_type"},
	)

	// FeedsDeactivatedTotal counts feeds that crossed the error threshold.
	FeedsDeactivatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feeds_deactivated_total",
			Help: "Total number of feeds deactivated after repeated fetch errors",
		},
	)

	// ContentFetchAttemptsTotal counts content fetch attempts by result.
	ContentFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_attempts_total",
			Help: "Total number of content fetch attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// ContentFetchDuration measures time to fetch article content.
	ContentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Time taken to fetch article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// ContentFetchSize measures fetched content size in bytes.
	ContentFetchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "content_fetch_size_bytes",
			Help: "Fetched article content size in bytes",
			Buckets: []float64{
				100, 200, 400, 800, 1600, 3200, 6400, 12800,
				25600, 51200, 102400, 204800, 409600, 819200,
				1638400, 3276800, 6553600, 10485760, // up to 10MB
			},
		},
	)

	// DispatchCycleDuration measures the wall-clock time of one full dispatch cycle.
	DispatchCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_cycle_duration_seconds",
			Help:    "Time taken to complete one dispatch cycle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// MessagesSentTotal counts messages sent through delivery adapters by platform and status.
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of messages sent through delivery adapters",
		},
		[]string{"platform", "status"},
	)
)

// Database metrics track database performance.
var (
	// DBQueryDuration measures database query duration.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections.
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections.
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)
