package worker

import (
	"context"
	"path/filepath"
	"testing"

	"feedcrawler/internal/domain/entity"
	"feedcrawler/internal/feedcollector"
	"feedcrawler/internal/fetcher"
	"feedcrawler/internal/store"
)

func newTestWorker(t *testing.T) (*Worker, *store.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ft := fetcher.New(fetcher.DefaultConfig(), NewBlocklist(st))
	collector := feedcollector.New(nil, ft, nil, nil)
	w := New(st, ft, collector, "openai", "", nil, nil)
	return w, st
}

func TestNew_DefaultsNilLoggerToSlogDefault(t *testing.T) {
	w, _ := newTestWorker(t)
	if w.logger == nil {
		t.Error("expected New to substitute a default logger when nil is passed")
	}
}

func TestBootstrap_SeedsDefaultSourceWhenEmpty(t *testing.T) {
	w, st := newTestWorker(t)
	ctx := context.Background()

	if err := w.bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap() error = %v", err)
	}

	sources, err := st.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected bootstrap to seed exactly 1 source, got %d", len(sources))
	}
	if sources[0].URL != defaultSourceURL {
		t.Errorf("seeded source URL = %q, want %q", sources[0].URL, defaultSourceURL)
	}
}

func TestBootstrap_NoOpWhenSourcesExist(t *testing.T) {
	w, st := newTestWorker(t)
	ctx := context.Background()

	if err := st.CreateSource(ctx, &entity.Source{URL: "https://existing.example.com/feed", Name: "existing"}); err != nil {
		t.Fatalf("CreateSource() error = %v", err)
	}
	if err := w.bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap() error = %v", err)
	}

	sources, err := st.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected bootstrap to leave the existing source alone, got %d sources", len(sources))
	}
}

func TestStatus_ReturnsCrawlerStatusAndRecentErrors(t *testing.T) {
	w, st := newTestWorker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		url := "https://example.com/broken"
		if i > 0 {
			url = "https://example.com/broken" + string(rune('0'+i))
		}
		if err := st.RecordArticleError(ctx, &entity.ArticleError{URL: url, ErrorMessage: "boom", Phase: entity.PhaseCrawl}); err != nil {
			t.Fatalf("RecordArticleError() error = %v", err)
		}
	}

	status, errs, err := w.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status == nil {
		t.Fatal("expected a non-nil CrawlerStatus")
	}
	if len(errs) != 3 {
		t.Errorf("expected 3 article errors, got %d", len(errs))
	}
}

func TestStatus_TruncatesErrorsToFifty(t *testing.T) {
	w, st := newTestWorker(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		url := "https://example.com/broken/" + string(rune('a'+(i%26))) + string(rune('0'+i/26))
		if err := st.RecordArticleError(ctx, &entity.ArticleError{URL: url, ErrorMessage: "boom", Phase: entity.PhaseCrawl}); err != nil {
			t.Fatalf("RecordArticleError() error = %v", err)
		}
	}

	_, errs, err := w.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(errs) != 50 {
		t.Errorf("expected Status to truncate to 50 errors, got %d", len(errs))
	}
}
