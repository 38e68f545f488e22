// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - Feed and entry metrics (fetch counts, crawl duration, deactivations)
//   - Translation metrics (calls, duration, cache hit rate)
//   - Dispatch metrics (cycle duration, messages sent per platform)
//   - Database query metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "newsflow-bridge/internal/observability/metrics"
//
//	func fetchFeed(feedID int64) {
//	    start := time.Now()
//	    // ... fetch feed entries ...
//	    count := 10
//
//	    metrics.RecordFeedCrawl(feedID, time.Since(start), int64(count))
//	}
package metrics
