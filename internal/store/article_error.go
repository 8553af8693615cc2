package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedcrawler/internal/domain/entity"
)

// RecordArticleError replaces any existing ArticleError for the same url
// with a fresh one — one record per failing URL, as spec.md §3 requires.
func (s *Store) RecordArticleError(ctx context.Context, e *entity.ArticleError) error {
	const query = `
INSERT INTO article_errors (url, title_hint, error_message, stack_trace, phase, context, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	title_hint    = excluded.title_hint,
	error_message = excluded.error_message,
	stack_trace   = excluded.stack_trace,
	phase         = excluded.phase,
	context       = excluded.context,
	created_at    = excluded.created_at
`
	_, err := s.db.ExecContext(ctx, query,
		e.URL, e.TitleHint, e.ErrorMessage, e.StackTrace, string(e.Phase), e.Context, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("RecordArticleError: ExecContext: %w", err)
	}
	return nil
}

// ClearArticleError deletes the ArticleError for url, if any, called on the
// first subsequent successful processing of that URL.
func (s *Store) ClearArticleError(ctx context.Context, url string) error {
	const query = `DELETE FROM article_errors WHERE url = ?`
	_, err := s.db.ExecContext(ctx, query, url)
	if err != nil {
		return fmt.Errorf("ClearArticleError: ExecContext: %w", err)
	}
	return nil
}

// GetArticleError returns the ArticleError for url, or nil if none exists.
func (s *Store) GetArticleError(ctx context.Context, url string) (*entity.ArticleError, error) {
	const query = `
SELECT id, url, title_hint, error_message, stack_trace, phase, context, created_at
FROM article_errors WHERE url = ? LIMIT 1`
	var e entity.ArticleError
	var phase string
	err := s.db.QueryRowContext(ctx, query, url).Scan(
		&e.ID, &e.URL, &e.TitleHint, &e.ErrorMessage, &e.StackTrace, &phase, &e.Context, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetArticleError: %w", err)
	}
	e.Phase = entity.Phase(phase)
	return &e, nil
}

// ListArticleErrors returns every recorded ArticleError, newest first.
func (s *Store) ListArticleErrors(ctx context.Context) ([]*entity.ArticleError, error) {
	const query = `
SELECT id, url, title_hint, error_message, stack_trace, phase, context, created_at
FROM article_errors ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListArticleErrors: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	errs := make([]*entity.ArticleError, 0, 50)
	for rows.Next() {
		var e entity.ArticleError
		var phase string
		if err := rows.Scan(&e.ID, &e.URL, &e.TitleHint, &e.ErrorMessage, &e.StackTrace, &phase, &e.Context, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListArticleErrors: Scan: %w", err)
		}
		e.Phase = entity.Phase(phase)
		errs = append(errs, &e)
	}
	return errs, rows.Err()
}
