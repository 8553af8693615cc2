package store

import (
	"context"
	"database/sql"
	"fmt"

	"feedcrawler/internal/domain/entity"
)

// GetConfig returns the singleton Config row.
func (s *Store) GetConfig(ctx context.Context) (*entity.Config, error) {
	const query = `
SELECT llm_api_key, webhook_url, score_threshold, feed_fetch_concurrency,
	max_concurrent_per_domain, max_total_concurrent, domain_delay_ms, eval_concurrency
FROM config WHERE id = 1`
	var c entity.Config
	var llmAPIKey, webhookURL sql.NullString
	err := s.db.QueryRowContext(ctx, query).Scan(
		&llmAPIKey, &webhookURL, &c.ScoreThreshold, &c.FeedFetchConcurrency,
		&c.MaxConcurrentPerDomain, &c.MaxTotalConcurrent, &c.DomainDelayMS, &c.EvalConcurrency,
	)
	if err != nil {
		return nil, fmt.Errorf("GetConfig: %w", err)
	}
	c.LLMAPIKey = llmAPIKey.String
	c.WebhookURL = webhookURL.String
	return &c, nil
}

// UpdateConfig overwrites every field of the singleton Config row.
func (s *Store) UpdateConfig(ctx context.Context, c entity.Config) error {
	const query = `
UPDATE config SET
	llm_api_key = ?, webhook_url = ?, score_threshold = ?, feed_fetch_concurrency = ?,
	max_concurrent_per_domain = ?, max_total_concurrent = ?, domain_delay_ms = ?, eval_concurrency = ?
WHERE id = 1`
	_, err := s.db.ExecContext(ctx, query,
		c.LLMAPIKey, c.WebhookURL, c.ScoreThreshold, c.FeedFetchConcurrency,
		c.MaxConcurrentPerDomain, c.MaxTotalConcurrent, c.DomainDelayMS, c.EvalConcurrency,
	)
	if err != nil {
		return fmt.Errorf("UpdateConfig: ExecContext: %w", err)
	}
	return nil
}

// seedSingletons inserts the id=1 CrawlerStatus and Config rows if they do
// not already exist, per spec.md §4.1's "seeds the singletons" requirement.
func (s *Store) seedSingletons(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO crawler_status (id, is_crawling, articles_processed)
SELECT 1, 0, 0 WHERE NOT EXISTS (SELECT 1 FROM crawler_status WHERE id = 1)`); err != nil {
		return fmt.Errorf("seed crawler_status: %w", err)
	}

	d := entity.DefaultConfig()
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO config (id, score_threshold, feed_fetch_concurrency, max_concurrent_per_domain,
	max_total_concurrent, domain_delay_ms, eval_concurrency)
SELECT 1, ?, ?, ?, ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM config WHERE id = 1)`,
		d.ScoreThreshold, d.FeedFetchConcurrency, d.MaxConcurrentPerDomain,
		d.MaxTotalConcurrent, d.DomainDelayMS, d.EvalConcurrency,
	); err != nil {
		return fmt.Errorf("seed config: %w", err)
	}
	return nil
}
