package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"feedcrawler/internal/domain/entity"
)

// GetCrawlerStatus returns the singleton CrawlerStatus row.
func (s *Store) GetCrawlerStatus(ctx context.Context) (*entity.CrawlerStatus, error) {
	const query = `
SELECT is_crawling, last_run, current_task, articles_processed, last_error, worker_pid
FROM crawler_status WHERE id = 1`
	var st entity.CrawlerStatus
	var lastRun sql.NullTime
	var currentTask sql.NullString
	var lastError sql.NullString
	var workerPID sql.NullInt64

	err := s.db.QueryRowContext(ctx, query).Scan(
		&st.IsCrawling, &lastRun, &currentTask, &st.ArticlesProcessed, &lastError, &workerPID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetCrawlerStatus: %w", err)
	}
	if lastRun.Valid {
		st.LastRun = &lastRun.Time
	}
	st.CurrentTask = currentTask.String
	st.LastError = lastError.String
	if workerPID.Valid {
		v := int(workerPID.Int64)
		st.WorkerPID = &v
	}
	return &st, nil
}

// UpdateCrawlerStatus atomically writes only the fields set in u, leaving
// every other column at its current value.
func (s *Store) UpdateCrawlerStatus(ctx context.Context, u entity.CrawlerStatusUpdate) error {
	sets := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)

	if u.IsCrawling != nil {
		sets = append(sets, "is_crawling = ?")
		args = append(args, *u.IsCrawling)
	}
	if u.LastRun != nil {
		sets = append(sets, "last_run = ?")
		args = append(args, *u.LastRun)
	}
	if u.CurrentTask != nil {
		sets = append(sets, "current_task = ?")
		args = append(args, *u.CurrentTask)
	}
	if u.ArticlesProcessed != nil {
		sets = append(sets, "articles_processed = ?")
		args = append(args, *u.ArticlesProcessed)
	}
	if u.LastError != nil {
		sets = append(sets, "last_error = ?")
		args = append(args, *u.LastError)
	}
	if u.ClearWorkerPID {
		sets = append(sets, "worker_pid = NULL")
	} else if u.WorkerPID != nil {
		sets = append(sets, "worker_pid = ?")
		args = append(args, *u.WorkerPID)
	}

	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE crawler_status SET " + strings.Join(sets, ", ") + " WHERE id = 1"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("UpdateCrawlerStatus: ExecContext: %w", err)
	}
	return nil
}
