// Package store is the single embedded-database writer backing every
// entity in the data model: Source, Article, ArticleError, BlockedDomain,
// CrawlerStatus, Config. All reads and writes go through one *sql.DB with
// a single open connection, so they are serialized with each other.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the database handle shared by every entity-specific file in
// this package (source.go, article.go, article_error.go, blocked_domain.go,
// crawler_status.go, config.go).
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path, applies
// the additive migration, and seeds the CrawlerStatus/Config singletons.
// A single open connection enforces the "single writer" requirement from
// spec.md §4.1 — SQLite serializes writes across connections anyway, but
// one connection avoids SQLITE_BUSY entirely instead of retrying into it.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.seedSingletons(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed singletons: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats reports the connection pool state, for the worker's periodic
// gauge reporting. With SetMaxOpenConns(1) InUse/Idle only ever take the
// values 0 or 1, but the shape matches database/sql's own DBStats so a
// future multi-connection Store needs no caller change.
func (s *Store) Stats() sql.DBStats {
	return s.db.Stats()
}

// CountArticles returns the total number of article rows.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n)
	return n, err
}
