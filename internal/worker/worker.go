// Package worker implements the single-cycle ingestion orchestrator: lease
// acquisition, bootstrap, the three crawl/evaluate phases plus image
// backfill, and a guaranteed-exit teardown. It is the component everything
// else in this module (Store, Fetcher, Extractor, FeedCollector,
// DomainQueue, Evaluator, Notifier) is wired together for.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"feedcrawler/internal/domain/entity"
	"feedcrawler/internal/domainqueue"
	"feedcrawler/internal/evaluator"
	"feedcrawler/internal/extractor"
	"feedcrawler/internal/feedcollector"
	"feedcrawler/internal/fetcher"
	"feedcrawler/internal/observability/metrics"
	"feedcrawler/internal/notifier"
	"feedcrawler/internal/store"

	"golang.org/x/sync/errgroup"
)

// defaultSourceURL/defaultSourceName seed the one source created by
// bootstrap when no sources are configured yet.
const (
	defaultSourceURL  = "https://hnrss.org/frontpage"
	defaultSourceName = "Hacker News"

	imageBackfillLimit = 100
	imageBackfillDelay = time.Second
	evaluateBatchLimit = 200
	webhookTimeout     = 10 * time.Second
	progressInterval   = 500 * time.Millisecond
)

// Worker drives one ingestion cycle at a time over its collaborators.
// SummarizerType and LLMModel are process-level ambient settings (loaded
// once from the environment at startup); every other tunable — the LLM
// API key, webhook URL, concurrency caps, score threshold — is reloaded
// from the Store's Config singleton at the top of every cycle, since
// spec.md §6 holds those as data, not environment.
type Worker struct {
	st             *store.Store
	ft             *fetcher.Fetcher
	collector      *feedcollector.Collector
	summarizerType string
	llmModel       string
	logger         *slog.Logger
	metrics        *Metrics
}

// New wires a Worker from its collaborators. collector and ft would
// typically share the same underlying Fetcher: ft.ResolveRedirect and
// ft.FetchFeedBody satisfy feedcollector's RedirectResolver and
// BrowserFeedFetcher interfaces directly. metrics may be nil, in which
// case cycle metrics are simply not recorded.
func New(st *store.Store, ft *fetcher.Fetcher, collector *feedcollector.Collector, summarizerType, llmModel string, logger *slog.Logger, metrics *Metrics) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{st: st, ft: ft, collector: collector, summarizerType: summarizerType, llmModel: llmModel, logger: logger, metrics: metrics}
}

// NewBlocklist adapts st to the Fetcher's Blocklist interface.
func NewBlocklist(st *store.Store) fetcher.Blocklist {
	return blockStore{store: st}
}

// RunCycle runs exactly one ingestion cycle: lease, bootstrap, Phase
// 1/2/2.5/3, teardown. It returns nil whenever another process already
// holds the lease — that is a normal no-op, not a failure. cycleTimeout
// bounds the whole cycle; the teardown block always runs even if the
// cycle is canceled or panics.
func (w *Worker) RunCycle(ctx context.Context, cycleTimeout time.Duration) (err error) {
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	start := time.Now()

	acquired, err := acquireLease(ctx, w.st)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if !acquired {
		w.logger.Info("lease already held by a live worker, skipping cycle")
		if w.metrics != nil {
			w.metrics.recordCycle("skipped", time.Since(start).Seconds())
		}
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker cycle panicked: %v", r)
		}
		lastError := ""
		outcome := "success"
		if err != nil {
			lastError = err.Error()
			outcome = "failure"
		}
		if w.metrics != nil {
			w.metrics.recordCycle(outcome, time.Since(start).Seconds())
			if err == nil {
				w.metrics.CycleLastSuccessStamp.SetToCurrentTime()
			}
		}
		teardownCtx, teardownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer teardownCancel()
		if releaseErr := releaseLease(teardownCtx, w.st, lastError); releaseErr != nil {
			w.logger.Error("failed to release worker lease", slog.Any("error", releaseErr))
		}
		w.ft.Close()
	}()

	err = w.runPhases(ctx)
	return err
}

func (w *Worker) runPhases(ctx context.Context) error {
	cfg, err := w.st.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := w.bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	sources, err := w.st.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	w.reportStoreGauges(ctx, len(sources))

	collected, err := w.phase1Collect(ctx, sources, cfg.FeedFetchConcurrency)
	if err != nil {
		return fmt.Errorf("phase 1 collect: %w", err)
	}

	if err := w.setTask(ctx, entity.TaskPhase2); err != nil {
		w.logger.Warn("failed to set current_task", slog.Any("error", err))
	}
	w.phase2Crawl(ctx, collected, cfg)
	w.ft.Close()

	if err := w.setTask(ctx, entity.TaskPhase2Point5); err != nil {
		w.logger.Warn("failed to set current_task", slog.Any("error", err))
	}
	w.phase2Point5Backfill(ctx)

	if err := w.setTask(ctx, entity.TaskPhase3); err != nil {
		w.logger.Warn("failed to set current_task", slog.Any("error", err))
	}
	w.phase3Evaluate(ctx, cfg)

	return nil
}

// reportStoreGauges updates the article/source/connection-pool Prometheus
// gauges once per cycle. Failures are logged, not fatal: a stale gauge is
// preferable to aborting an ingestion cycle over metrics plumbing.
func (w *Worker) reportStoreGauges(ctx context.Context, sourceCount int) {
	metrics.UpdateSourcesTotal(sourceCount)
	if n, err := w.st.CountArticles(ctx); err == nil {
		metrics.UpdateArticlesTotal(n)
	} else {
		w.logger.Warn("failed to count articles for metrics", slog.Any("error", err))
	}
	stats := w.st.Stats()
	metrics.UpdateDBConnectionStats(stats.InUse, stats.Idle)
}

// bootstrap seeds one default source the first time the Store is empty.
func (w *Worker) bootstrap(ctx context.Context) error {
	sources, err := w.st.ListSources(ctx)
	if err != nil {
		return err
	}
	if len(sources) > 0 {
		return nil
	}
	return w.st.CreateSource(ctx, &entity.Source{URL: defaultSourceURL, Name: defaultSourceName})
}

func (w *Worker) setTask(ctx context.Context, task string) error {
	t := task
	return w.st.UpdateCrawlerStatus(ctx, entity.CrawlerStatusUpdate{CurrentTask: &t})
}

// phase1Collect parses every source's feed and persists a bare Article row
// for every not-yet-known URL, so Phase 2 has something to crawl.
func (w *Worker) phase1Collect(ctx context.Context, sources []*entity.Source, concurrency int) ([]feedcollector.CollectedArticle, error) {
	if err := w.setTask(ctx, entity.TaskPhase1); err != nil {
		w.logger.Warn("failed to set current_task", slog.Any("error", err))
	}

	items, err := w.collector.CollectAll(ctx, sources, concurrency)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		existing, err := w.st.GetArticleByURL(ctx, it.URL)
		if err != nil {
			w.logger.Warn("phase 1: lookup failed", slog.String("url", it.URL), slog.Any("error", err))
			continue
		}
		if existing != nil {
			continue
		}
		if err := w.st.UpsertCrawlResult(ctx, store.CrawlUpsert{
			URL:         it.URL,
			ResolvedURL: it.ResolvedURL,
			PublishedAt: it.PubDate,
		}); err != nil {
			w.logger.Warn("phase 1: persist failed", slog.String("url", it.URL), slog.Any("error", err))
		}
	}

	return items, nil
}

// phase2Crawl dispatches every collected item through a DomainQueue under
// the configured per-domain/global/delay limits, fetching and extracting
// each. Per-item failures are local: recorded to ArticleError and never
// abort the phase.
func (w *Worker) phase2Crawl(ctx context.Context, items []feedcollector.CollectedArticle, cfg *entity.Config) {
	q := domainqueue.New[feedcollector.CollectedArticle](domainqueue.Limits{
		MaxConcurrentPerDomain: cfg.MaxConcurrentPerDomain,
		MaxTotalConcurrent:     cfg.MaxTotalConcurrent,
		DomainDelay:            time.Duration(cfg.DomainDelayMS) * time.Millisecond,
	})
	for _, it := range items {
		q.Enqueue(entity.HostOf(it.URL, it.ResolvedURL), it)
	}

	var dispatched atomic.Int64
	total := len(items)
	progressDone := make(chan struct{})
	go w.reportCrawlProgress(ctx, q, &dispatched, total, progressDone)

	domainqueue.Run(ctx, q, func(itemCtx context.Context, item domainqueue.Item[feedcollector.CollectedArticle]) {
		dispatched.Add(1)
		w.crawlOne(itemCtx, item.Value)
	})
	close(progressDone)
}

func (w *Worker) reportCrawlProgress(ctx context.Context, q *domainqueue.Queue[feedcollector.CollectedArticle], dispatched *atomic.Int64, total int, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			active, queued := q.Snapshot()
			task := fmt.Sprintf("Phase 2: Crawling [%d/%d] (%d active, %d queued)", dispatched.Load(), total, active, queued)
			if err := w.setTask(ctx, task); err != nil {
				return
			}
		}
	}
}

func (w *Worker) crawlOne(ctx context.Context, item feedcollector.CollectedArticle) {
	target := item.ResolvedURL
	if target == "" {
		target = item.URL
	}
	host := entity.HostOf(item.URL, item.ResolvedURL)

	res, err := w.ft.Fetch(ctx, target)
	if err != nil {
		w.recordCrawlError(ctx, item.URL, host, err)
		return
	}

	ext, err := extractor.Extract(res, target)
	if err != nil {
		w.recordCrawlError(ctx, item.URL, host, err)
		return
	}

	if err := w.st.UpsertCrawlResult(ctx, store.CrawlUpsert{
		URL:           item.URL,
		ResolvedURL:   ext.FinalURL,
		OriginalTitle: ext.Title,
		Content:       ext.Text,
		ImageURL:      ext.ImageURL,
		PublishedAt:   item.PubDate,
	}); err != nil {
		w.logger.Warn("phase 2: upsert failed", slog.String("url", item.URL), slog.Any("error", err))
		return
	}
	if err := w.st.ClearArticleError(ctx, item.URL); err != nil {
		w.logger.Warn("phase 2: clear article error failed", slog.String("url", item.URL), slog.Any("error", err))
	}
}

func (w *Worker) recordCrawlError(ctx context.Context, url, host string, err error) {
	_, message := classifyError(host, err)
	recordErr := w.st.RecordArticleError(ctx, &entity.ArticleError{
		URL:          url,
		ErrorMessage: message,
		Phase:        entity.PhaseCrawl,
		Context:      "domain-throttled crawl phase",
	})
	if recordErr != nil {
		w.logger.Warn("phase 2: failed to record article error", slog.String("url", url), slog.Any("error", recordErr))
	}
}

// phase2Point5Backfill fills in image_url for articles that crawled
// successfully but found no lead image, at a fixed pace to stay polite to
// origin hosts a second time.
func (w *Worker) phase2Point5Backfill(ctx context.Context) {
	articles, err := w.st.ArticlesWithoutImages(ctx, imageBackfillLimit)
	if err != nil {
		w.logger.Warn("phase 2.5: list failed", slog.Any("error", err))
		return
	}

	for i, a := range articles {
		if ctx.Err() != nil {
			return
		}

		target := a.ResolvedURL
		if target == "" {
			target = a.URL
		}
		if res, err := w.ft.Fetch(ctx, target); err == nil {
			if ext, err := extractor.Extract(res, target); err == nil && ext.ImageURL != "" {
				if err := w.st.SetArticleImageURL(ctx, a.ID, ext.ImageURL); err != nil {
					w.logger.Warn("phase 2.5: set image failed", slog.Int64("article_id", a.ID), slog.Any("error", err))
				}
			}
		}

		if i < len(articles)-1 {
			select {
			case <-time.After(imageBackfillDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// phase3Evaluate scores every crawled-but-unevaluated article in batches
// of cfg.EvalConcurrency. Per-item LLM failures are settled: they never
// cancel sibling evaluations, only a genuine context cancellation does.
func (w *Worker) phase3Evaluate(ctx context.Context, cfg *entity.Config) {
	backend, err := evaluator.NewBackend(w.summarizerType, cfg.LLMAPIKey, w.llmModel)
	if err != nil {
		w.logger.Warn("phase 3: no usable LLM backend, skipping evaluation", slog.Any("error", err))
		return
	}
	ev := evaluator.New(backend)

	var notify notifier.Notifier = notifier.NewNoOpNotifier()
	if cfg.WebhookURL != "" {
		notify = notifier.New(cfg.WebhookURL, webhookTimeout)
	}

	candidates, err := w.st.Unprocessed(ctx, evaluateBatchLimit)
	if err != nil {
		w.logger.Warn("phase 3: list failed", slog.Any("error", err))
		return
	}

	toEvaluate := make([]*entity.Article, 0, len(candidates))
	for _, a := range candidates {
		if !a.Crawlable() {
			toEvaluate = append(toEvaluate, a)
		}
	}

	concurrency := cfg.EvalConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, a := range toEvaluate {
		a := a
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			w.evaluateOne(gctx, ev, notify, cfg, a)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Worker) evaluateOne(ctx context.Context, ev *evaluator.Evaluator, notify notifier.Notifier, cfg *entity.Config, a *entity.Article) {
	result, err := ev.Evaluate(ctx, a)
	if err != nil {
		if recErr := w.st.RecordArticleError(ctx, &entity.ArticleError{
			URL:          a.URL,
			TitleHint:    a.OriginalTitle,
			ErrorMessage: entity.ErrorKindInvalidLLMResponse.HumanMessage(),
			Phase:        entity.PhaseEval,
			Context:      "evaluation batch",
		}); recErr != nil {
			w.logger.Warn("phase 3: failed to record article error", slog.String("url", a.URL), slog.Any("error", recErr))
		}
		return
	}

	if err := w.st.UpsertEvalResult(ctx, store.EvalUpsert{
		URL:                   a.URL,
		TranslatedTitle:       result.TranslatedTitle,
		Summary:               result.Summary,
		ShortSummary:          result.ShortSummary,
		ScoreNovelty:          result.Scores.Novelty,
		ScoreImportance:       result.Scores.Importance,
		ScoreReliability:      result.Scores.Reliability,
		ScoreContextValue:     result.Scores.ContextValue,
		ScoreThoughtProvoking: result.Scores.ThoughtProvoking,
		AverageScore:          result.AverageScore,
	}); err != nil {
		w.logger.Warn("phase 3: upsert eval failed", slog.String("url", a.URL), slog.Any("error", err))
		return
	}
	if err := w.st.ClearArticleError(ctx, a.URL); err != nil {
		w.logger.Warn("phase 3: clear article error failed", slog.String("url", a.URL), slog.Any("error", err))
	}
	if w.metrics != nil {
		w.metrics.ArticlesProcessedTotal.Inc()
	}

	if result.AverageScore < cfg.ScoreThreshold {
		return
	}
	updated, err := w.st.GetArticleByURL(ctx, a.URL)
	if err != nil || updated == nil {
		return
	}
	if notifyErr := notify.NotifyArticle(ctx, updated, nil); notifyErr != nil {
		w.logger.Warn("phase 3: webhook notify failed", slog.String("url", a.URL), slog.Any("error", notifyErr))
	}
}

// Status returns the CrawlerStatus singleton plus the latest 50
// ArticleErrors, per spec.md §6's status() control-surface contract.
func (w *Worker) Status(ctx context.Context) (*entity.CrawlerStatus, []*entity.ArticleError, error) {
	status, err := w.st.GetCrawlerStatus(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("status: %w", err)
	}
	errs, err := w.st.ListArticleErrors(ctx)
	if err != nil {
		return status, nil, fmt.Errorf("status: %w", err)
	}
	if len(errs) > 50 {
		errs = errs[:50]
	}
	return status, errs, nil
}

// Ingest runs the full crawl+evaluate pipeline for one URL synchronously,
// bypassing the phased cycle but reusing the same Fetcher, Extractor,
// Evaluator and Notifier, per spec.md §6's ingest() contract.
func (w *Worker) Ingest(ctx context.Context, rawURL string) error {
	cfg, err := w.st.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("ingest: load config: %w", err)
	}

	host := entity.HostOf(rawURL, "")
	res, err := w.ft.Fetch(ctx, rawURL)
	if err != nil {
		w.recordCrawlError(ctx, rawURL, host, err)
		return fmt.Errorf("ingest: fetch: %w", err)
	}

	ext, err := extractor.Extract(res, rawURL)
	if err != nil {
		w.recordCrawlError(ctx, rawURL, host, err)
		return fmt.Errorf("ingest: extract: %w", err)
	}

	if err := w.st.UpsertCrawlResult(ctx, store.CrawlUpsert{
		URL:           rawURL,
		ResolvedURL:   ext.FinalURL,
		OriginalTitle: ext.Title,
		Content:       ext.Text,
		ImageURL:      ext.ImageURL,
		PublishedAt:   time.Now(),
	}); err != nil {
		return fmt.Errorf("ingest: upsert crawl: %w", err)
	}

	article, err := w.st.GetArticleByURL(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("ingest: reload article: %w", err)
	}
	if article == nil || article.Crawlable() {
		return fmt.Errorf("ingest: %w: content below minimum length", extractor.ErrExtractionFailed)
	}

	backend, err := evaluator.NewBackend(w.summarizerType, cfg.LLMAPIKey, w.llmModel)
	if err != nil {
		return fmt.Errorf("ingest: backend: %w", err)
	}
	ev := evaluator.New(backend)

	result, err := ev.Evaluate(ctx, article)
	if err != nil {
		_ = w.st.RecordArticleError(ctx, &entity.ArticleError{
			URL:          rawURL,
			TitleHint:    article.OriginalTitle,
			ErrorMessage: entity.ErrorKindInvalidLLMResponse.HumanMessage(),
			Phase:        entity.PhaseEval,
			Context:      "ingest",
		})
		return fmt.Errorf("ingest: evaluate: %w", err)
	}

	if err := w.st.UpsertEvalResult(ctx, store.EvalUpsert{
		URL:                   rawURL,
		TranslatedTitle:       result.TranslatedTitle,
		Summary:               result.Summary,
		ShortSummary:          result.ShortSummary,
		ScoreNovelty:          result.Scores.Novelty,
		ScoreImportance:       result.Scores.Importance,
		ScoreReliability:      result.Scores.Reliability,
		ScoreContextValue:     result.Scores.ContextValue,
		ScoreThoughtProvoking: result.Scores.ThoughtProvoking,
		AverageScore:          result.AverageScore,
	}); err != nil {
		return fmt.Errorf("ingest: upsert eval: %w", err)
	}
	_ = w.st.ClearArticleError(ctx, rawURL)

	if result.AverageScore >= cfg.ScoreThreshold {
		var notify notifier.Notifier = notifier.NewNoOpNotifier()
		if cfg.WebhookURL != "" {
			notify = notifier.New(cfg.WebhookURL, webhookTimeout)
		}
		if updated, err := w.st.GetArticleByURL(ctx, rawURL); err == nil && updated != nil {
			if notifyErr := notify.NotifyArticle(ctx, updated, nil); notifyErr != nil {
				w.logger.Warn("ingest: webhook notify failed", slog.String("url", rawURL), slog.Any("error", notifyErr))
			}
		}
	}

	return nil
}

// Retry re-resolves a previously failed URL through the same Ingest path.
// Resolving an articleId or errorId to its URL is the (out-of-scope) API
// layer's job; it calls Retry once it has the URL.
func (w *Worker) Retry(ctx context.Context, url string) error {
	return w.Ingest(ctx, url)
}
