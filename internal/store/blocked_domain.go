package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedcrawler/internal/domain/entity"
)

// ListBlockedDomains returns every permanently-hostile domain.
func (s *Store) ListBlockedDomains(ctx context.Context) ([]*entity.BlockedDomain, error) {
	const query = `SELECT id, domain, reason, created_at FROM blocked_domains ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListBlockedDomains: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	domains := make([]*entity.BlockedDomain, 0, 20)
	for rows.Next() {
		var d entity.BlockedDomain
		if err := rows.Scan(&d.ID, &d.Domain, &d.Reason, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListBlockedDomains: Scan: %w", err)
		}
		domains = append(domains, &d)
	}
	return domains, rows.Err()
}

// BlockDomain adds domain to the permanent blocklist, replacing any
// existing reason if it is already present.
func (s *Store) BlockDomain(ctx context.Context, domain, reason string) error {
	const query = `
INSERT INTO blocked_domains (domain, reason, created_at) VALUES (?, ?, ?)
ON CONFLICT(domain) DO UPDATE SET reason = excluded.reason`
	_, err := s.db.ExecContext(ctx, query, domain, reason, time.Now())
	if err != nil {
		return fmt.Errorf("BlockDomain: ExecContext: %w", err)
	}
	return nil
}

// IsBlocked reports whether host (or a superstring match thereof) is on the
// blocklist.
func (s *Store) IsBlocked(ctx context.Context, host string) (bool, error) {
	const query = `SELECT 1 FROM blocked_domains WHERE ? LIKE '%' || domain || '%' LIMIT 1`
	var one int
	err := s.db.QueryRowContext(ctx, query, host).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsBlocked: %w", err)
	}
	return true, nil
}
