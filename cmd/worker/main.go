package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedcrawler/internal/domain/entity"
	"feedcrawler/internal/feedcollector"
	"feedcrawler/internal/fetcher"
	"feedcrawler/internal/observability/logging"
	"feedcrawler/internal/store"
	"feedcrawler/internal/worker"

	"github.com/robfig/cron/v3"
)

func main() {
	logger := initLogger()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	workerCfg := worker.LoadConfigFromEnv(logger)
	if err := workerCfg.Validate(); err != nil {
		logger.Error("invalid worker configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(ctx, workerCfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}()

	w := buildWorker(st, logger)

	switch cmd {
	case "run":
		runScheduled(ctx, w, workerCfg, logger)
	case "cycle":
		runOnce(ctx, w, workerCfg, logger)
	case "ingest":
		runIngest(ctx, w, args, logger)
	case "retry":
		runRetry(ctx, w, args, logger)
	case "status":
		runStatus(ctx, w, logger)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: worker <run|cycle|ingest <url>|retry <url>|status>")
}

// initLogger builds the process-wide structured logger. LOG_LEVEL=debug
// raises verbosity; everything else defaults to info.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// buildWorker wires Store, Fetcher, FeedCollector, and the LLM backend
// selection into one worker.Worker. SUMMARIZER_TYPE/LLM_MODEL are read
// once here since they select an implementation
// rather than tune pipeline behavior; everything else tunable lives in
// the Store's Config row and is reloaded every cycle.
func buildWorker(st *store.Store, logger *slog.Logger) *worker.Worker {
	ft := fetcher.New(fetcher.DefaultConfig(), worker.NewBlocklist(st))

	client := &http.Client{Timeout: 30 * time.Second}
	collector := feedcollector.New(client, ft, st, ft)

	summarizerType := os.Getenv("SUMMARIZER_TYPE")
	model := os.Getenv("LLM_MODEL")

	metrics := worker.NewMetrics()

	return worker.New(st, ft, collector, summarizerType, model, logger, metrics)
}

// runScheduled drives the cron-triggered loop: health server up first so
// orchestrators see a live process immediately, readiness flips once the
// schedule is registered (at once if CronSchedule is empty, in which case
// no cron job runs), then the process blocks until a shutdown signal.
func runScheduled(ctx context.Context, w *worker.Worker, cfg worker.Config, logger *slog.Logger) {
	health := worker.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
	go func() {
		if err := health.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	go startMetricsServer(ctx, logger)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	if cfg.CronSchedule == "" {
		health.SetReady(true)
		logger.Info("worker started without a cron schedule")
		<-ctx.Done()
		logger.Info("shutdown signal received, stopping worker")
		return
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.CronSchedule, func() {
		cycleCtx, cancel := context.WithTimeout(context.Background(), cfg.CycleTimeout)
		defer cancel()
		if err := w.RunCycle(cycleCtx, cfg.CycleTimeout); err != nil {
			logger.Error("ingestion cycle failed", slog.Any("error", err))
		}
	})
	if err != nil {
		logger.Error("failed to schedule cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	health.SetReady(true)
	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping worker")
}

// runOnce triggers exactly one ingestion cycle and exits, for manual or
// externally-orchestrated invocation (e.g. a one-shot Kubernetes Job).
func runOnce(ctx context.Context, w *worker.Worker, cfg worker.Config, logger *slog.Logger) {
	if err := w.RunCycle(ctx, cfg.CycleTimeout); err != nil {
		logger.Error("ingestion cycle failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func runIngest(ctx context.Context, w *worker.Worker, args []string, logger *slog.Logger) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: worker ingest <url>")
		os.Exit(1)
	}
	if err := w.Ingest(ctx, args[0]); err != nil {
		logger.Error("ingest failed", slog.String("url", args[0]), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("ingest succeeded", slog.String("url", args[0]))
}

func runRetry(ctx context.Context, w *worker.Worker, args []string, logger *slog.Logger) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: worker retry <url>")
		os.Exit(1)
	}
	if err := w.Retry(ctx, args[0]); err != nil {
		logger.Error("retry failed", slog.String("url", args[0]), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("retry succeeded", slog.String("url", args[0]))
}

func runStatus(ctx context.Context, w *worker.Worker, logger *slog.Logger) {
	status, errs, err := w.Status(ctx)
	if err != nil {
		logger.Error("status failed", slog.Any("error", err))
		os.Exit(1)
	}
	out := struct {
		Status        *entity.CrawlerStatus `json:"status"`
		ArticleErrors []*entity.ArticleError `json:"article_errors"`
	}{status, errs}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
