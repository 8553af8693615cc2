package store

import (
	"context"
	"database/sql"
	"fmt"
)

// tableColumns maps each table to the column DDL fragment it should have
// in addition to its id. migrate creates any missing table wholesale and,
// for tables that already exist, adds any column not yet present — SQLite
// has no "ADD COLUMN IF NOT EXISTS", so presence is checked via
// PRAGMA table_info first.
var tableColumns = map[string][]columnDef{
	"sources": {
		{"url", "TEXT NOT NULL"},
		{"name", "TEXT NOT NULL"},
	},
	"articles": {
		{"url", "TEXT NOT NULL"},
		{"resolved_url", "TEXT"},
		{"original_title", "TEXT"},
		{"translated_title", "TEXT"},
		{"summary", "TEXT"},
		{"short_summary", "TEXT"},
		{"content", "TEXT"},
		{"image_url", "TEXT"},
		{"published_at", "DATETIME"},
		{"created_at", "DATETIME"},
		{"score_novelty", "INTEGER"},
		{"score_importance", "INTEGER"},
		{"score_reliability", "INTEGER"},
		{"score_context_value", "INTEGER"},
		{"score_thought_provoking", "INTEGER"},
		{"average_score", "REAL"},
	},
	"article_errors": {
		{"url", "TEXT NOT NULL"},
		{"title_hint", "TEXT"},
		{"error_message", "TEXT"},
		{"stack_trace", "TEXT"},
		{"phase", "TEXT"},
		{"context", "TEXT"},
		{"created_at", "DATETIME"},
	},
	"blocked_domains": {
		{"domain", "TEXT NOT NULL"},
		{"reason", "TEXT"},
		{"created_at", "DATETIME"},
	},
	"crawler_status": {
		{"is_crawling", "INTEGER NOT NULL DEFAULT 0"},
		{"last_run", "DATETIME"},
		{"current_task", "TEXT"},
		{"articles_processed", "INTEGER NOT NULL DEFAULT 0"},
		{"last_error", "TEXT"},
		{"worker_pid", "INTEGER"},
	},
	"config": {
		{"llm_api_key", "TEXT"},
		{"webhook_url", "TEXT"},
		{"score_threshold", "REAL NOT NULL DEFAULT 3.5"},
		{"feed_fetch_concurrency", "INTEGER NOT NULL DEFAULT 5"},
		{"max_concurrent_per_domain", "INTEGER NOT NULL DEFAULT 2"},
		{"max_total_concurrent", "INTEGER NOT NULL DEFAULT 10"},
		{"domain_delay_ms", "INTEGER NOT NULL DEFAULT 1000"},
		{"eval_concurrency", "INTEGER NOT NULL DEFAULT 5"},
	},
}

// uniqueIndexes are created after the table's columns exist, so they can
// reference columns added by a later migration run.
var uniqueIndexes = map[string]string{
	"sources":         "url",
	"articles":        "url",
	"article_errors":  "url",
	"blocked_domains": "domain",
}

type columnDef struct {
	name string
	ddl  string
}

// migrate creates any missing table and adds any missing column, visiting
// tables in map iteration order (unspecified), then creates the unique
// indexes identity relies on.
func (s *Store) migrate(ctx context.Context) error {
	for table, cols := range tableColumns {
		if err := s.createTableIfMissing(ctx, table); err != nil {
			return err
		}
		existing, err := s.existingColumns(ctx, table)
		if err != nil {
			return err
		}
		for _, col := range cols {
			if existing[col.name] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col.name, col.ddl)
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("add column %s.%s: %w", table, col.name, err)
			}
		}
	}

	for table, col := range uniqueIndexes {
		idx := fmt.Sprintf("idx_%s_%s_unique", table, col)
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s(%s)", idx, table, col)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index %s: %w", idx, err)
		}
	}

	return nil
}

func (s *Store) createTableIfMissing(ctx context.Context, table string) error {
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT)", table)
	_, err := s.db.ExecContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *Store) existingColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("table_info %s scan: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
