// Package feedcollector parses syndication feeds for every configured
// Source and yields deduplicated candidate articles, resolving aggregator
// redirects along the way.
package feedcollector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"feedcrawler/internal/domain/entity"
	"feedcrawler/internal/observability/metrics"
	"feedcrawler/internal/resilience/circuitbreaker"
	"feedcrawler/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

// CollectedArticle is one candidate yielded by a feed.
type CollectedArticle struct {
	URL         string
	ResolvedURL string
	PubDate     time.Time
	FeedSource  *entity.Source
}

// RedirectResolver resolves an aggregator URL to its final target, exactly
// as Fetcher.ResolveRedirect does; kept as an interface so tests can stub
// it without a real browser.
type RedirectResolver interface {
	ResolveRedirect(ctx context.Context, rawURL string) (string, error)
}

// ExistingURLChecker reports whether the Store already holds a fully
// processed record for a URL (content >= 200 chars and evaluated), and
// returns any resolved_url already cached for a URL. Article.ResolvedURL
// is only ever meant to be computed once (entity.Article's doc comment);
// CachedResolvedURL is how collectSource honors that for items that were
// crawled (or attempted and errored) in an earlier cycle but aren't done
// yet.
type ExistingURLChecker interface {
	IsFullyProcessed(ctx context.Context, url string) (bool, error)
	CachedResolvedURL(ctx context.Context, url string) (string, bool, error)
}

// BrowserFeedFetcher fetches a feed URL's raw body via the browser
// fallback tier, used when the direct gofeed parse fails (e.g. the host
// blocks non-browser clients).
type BrowserFeedFetcher interface {
	FetchFeedBody(ctx context.Context, feedURL string) (string, error)
}

// redirectResolutionBatchSize bounds peak concurrent browser contexts used
// to resolve aggregator redirects within a single feed.
const redirectResolutionBatchSize = 5

// Collector parses every configured source's feed and yields the combined,
// deduplicated candidate list.
type Collector struct {
	resolver     RedirectResolver
	existing     ExistingURLChecker
	browserFetch BrowserFeedFetcher
	client       *http.Client
	cb           *circuitbreaker.CircuitBreaker
	retryConfig  retry.Config
}

// New creates a Collector. client is used for the direct gofeed parse
// tier; resolver/existing/browserFetch may be collaborators backed by the
// Fetcher and Store respectively. browserFetch may be nil, in which case a
// direct-parse failure is returned to the caller without a fallback.
func New(client *http.Client, resolver RedirectResolver, existing ExistingURLChecker, browserFetch BrowserFeedFetcher) *Collector {
	return &Collector{
		resolver:     resolver,
		existing:     existing,
		browserFetch: browserFetch,
		client:       client,
		cb:           circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:  retry.FeedFetchConfig(),
	}
}

// CollectAll parses every source's feed under the given concurrency cap and
// returns the combined list, deduplicated by ResolvedURL||URL. A feed-level
// failure is logged and excluded, but does not fail the call.
func (c *Collector) CollectAll(ctx context.Context, sources []*entity.Source, concurrency int) ([]CollectedArticle, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([][]CollectedArticle, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			items, err := c.collectSource(gctx, src)
			if err != nil {
				slog.Warn("feed collection failed for source",
					slog.Int64("source_id", src.ID),
					slog.String("url", src.URL),
					slog.Any("error", err))
				return nil // feed-level failures never abort the cycle
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dedupe(flatten(results)), nil
}

func flatten(results [][]CollectedArticle) []CollectedArticle {
	var out []CollectedArticle
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func dedupe(items []CollectedArticle) []CollectedArticle {
	seen := make(map[string]struct{}, len(items))
	out := make([]CollectedArticle, 0, len(items))
	for _, it := range items {
		key := it.ResolvedURL
		if key == "" {
			key = it.URL
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// collectSource parses one source's feed and resolves redirects for every
// not-yet-fully-processed item, batching resolutions by
// redirectResolutionBatchSize.
func (c *Collector) collectSource(ctx context.Context, src *entity.Source) ([]CollectedArticle, error) {
	start := time.Now()
	sourceID := fmt.Sprintf("%d", src.ID)

	rawItems, err := c.parse(ctx, src.URL)
	if err != nil {
		metrics.FeedCrawlErrors.WithLabelValues(sourceID, "parse_failed").Inc()
		return nil, err
	}
	defer func() {
		metrics.FeedCrawlDuration.WithLabelValues(sourceID).Observe(time.Since(start).Seconds())
	}()
	metrics.ArticlesFetchedTotal.WithLabelValues(src.Name, sourceID).Add(float64(len(rawItems)))

	candidates := make([]rawItem, 0, len(rawItems))
	for _, it := range rawItems {
		if it.URL == "" {
			continue
		}
		if c.existing != nil {
			done, err := c.existing.IsFullyProcessed(ctx, it.URL)
			if err == nil && done {
				continue
			}
		}
		candidates = append(candidates, it)
	}

	out := make([]CollectedArticle, len(candidates))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(redirectResolutionBatchSize)

	for i, it := range candidates {
		i, it := i, it
		g.Go(func() error {
			resolved := it.URL
			if cached, found, err := c.cachedResolvedURL(gctx, it.URL); err == nil && found {
				resolved = cached
			} else if c.resolver != nil {
				if r, err := c.resolver.ResolveRedirect(gctx, it.URL); err == nil {
					resolved = r
				}
			}
			mu.Lock()
			out[i] = CollectedArticle{
				URL:         it.URL,
				ResolvedURL: resolved,
				PubDate:     it.PubDate,
				FeedSource:  src,
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out, nil
}

// cachedResolvedURL looks up a previously stored resolved_url for rawURL,
// found=false whenever there is no checker, no stored article, or no
// resolved_url yet — any of which means ResolveRedirect must still run.
func (c *Collector) cachedResolvedURL(ctx context.Context, rawURL string) (resolved string, found bool, err error) {
	if c.existing == nil {
		return "", false, nil
	}
	return c.existing.CachedResolvedURL(ctx, rawURL)
}

type rawItem struct {
	Title   string
	URL     string
	PubDate time.Time
}

// parse dispatches to the file:// reader, the direct gofeed tier, or (on
// parser failure) the browser-fallback XML/text fetch.
func (c *Collector) parse(ctx context.Context, feedURL string) ([]rawItem, error) {
	if path, ok := filePath(feedURL); ok {
		return c.parseFile(path)
	}

	items, err := c.parseDirect(ctx, feedURL)
	if err == nil {
		return items, nil
	}

	if c.browserFetch == nil {
		return nil, err
	}

	slog.Warn("direct feed parse failed, falling back to browser fetch",
		slog.String("url", feedURL), slog.Any("error", err))

	body, browserErr := c.browserFetch.FetchFeedBody(ctx, feedURL)
	if browserErr != nil {
		return nil, browserErr
	}

	fp := gofeed.NewParser()
	feed, parseErr := fp.ParseString(body)
	if parseErr != nil {
		return nil, parseErr
	}
	return toRawItems(feed.Items), nil
}

func toRawItems(feedItems []*gofeed.Item) []rawItem {
	items := make([]rawItem, 0, len(feedItems))
	for _, it := range feedItems {
		pub := time.Now()
		if it.PublishedParsed != nil {
			pub = *it.PublishedParsed
		}
		items = append(items, rawItem{Title: it.Title, URL: it.Link, PubDate: pub})
	}
	return items
}

func (c *Collector) parseDirect(ctx context.Context, feedURL string) ([]rawItem, error) {
	var items []rawItem
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		v, err := c.cb.Execute(func() (interface{}, error) {
			return c.doParseDirect(ctx, feedURL)
		})
		if err != nil {
			return err
		}
		items = v.([]rawItem)
		return nil
	})
	return items, retryErr
}

func (c *Collector) doParseDirect(ctx context.Context, feedURL string) ([]rawItem, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = "feedcrawlerBot/1.0"
	if c.client != nil {
		fp.Client = c.client
	}

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}
	return toRawItems(feed.Items), nil
}

func (c *Collector) parseFile(path string) ([]rawItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fp := gofeed.NewParser()
	feed, err := fp.ParseString(string(data))
	if err != nil {
		return nil, err
	}
	return toRawItems(feed.Items), nil
}

func filePath(feedURL string) (string, bool) {
	const prefix = "file://"
	if len(feedURL) > len(prefix) && feedURL[:len(prefix)] == prefix {
		return feedURL[len(prefix):], true
	}
	return "", false
}
