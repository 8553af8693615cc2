// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the ingestion pipeline's metrics: feed crawl and
// content fetch outcomes, summarization duration, article/source counts, and
// the store's connection pool state.
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "feedcrawler/internal/observability/metrics"
//
//	func collectSource(sourceName string, sourceID int64) {
//	    start := time.Now()
//	    // ... parse feed ...
//	    count := 10
//
//	    metrics.RecordArticlesFetched(sourceName, sourceID, count)
//	    metrics.RecordFeedCrawl(sourceID, time.Since(start), int64(count), 0, 0)
//	}
package metrics
