package store

import (
	"context"
	"database/sql"
	"fmt"

	"feedcrawler/internal/domain/entity"
)

// ListSources returns every configured Source, ordered by id.
func (s *Store) ListSources(ctx context.Context) ([]*entity.Source, error) {
	const query = `SELECT id, url, name FROM sources ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListSources: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 50)
	for rows.Next() {
		var src entity.Source
		if err := rows.Scan(&src.ID, &src.URL, &src.Name); err != nil {
			return nil, fmt.Errorf("ListSources: Scan: %w", err)
		}
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// GetSource returns the Source by id, or nil if none exists.
func (s *Store) GetSource(ctx context.Context, id int64) (*entity.Source, error) {
	const query = `SELECT id, url, name FROM sources WHERE id = ? LIMIT 1`
	var src entity.Source
	err := s.db.QueryRowContext(ctx, query, id).Scan(&src.ID, &src.URL, &src.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetSource: QueryRowContext: %w", err)
	}
	return &src, nil
}

// CreateSource inserts a new Source, failing if its url already exists.
func (s *Store) CreateSource(ctx context.Context, src *entity.Source) error {
	const query = `INSERT INTO sources (url, name) VALUES (?, ?)`
	res, err := s.db.ExecContext(ctx, query, src.URL, src.Name)
	if err != nil {
		return fmt.Errorf("CreateSource: ExecContext: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("CreateSource: LastInsertId: %w", err)
	}
	src.ID = id
	return nil
}

// DeleteSource removes the Source by id.
func (s *Store) DeleteSource(ctx context.Context, id int64) error {
	const query = `DELETE FROM sources WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("DeleteSource: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteSource: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("DeleteSource: no rows affected")
	}
	return nil
}
