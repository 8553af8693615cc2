package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedcrawler/internal/domain/entity"
)

const minCrawlableContentLength = 200

// CrawlUpsert carries the columns the crawl stage writes. ResolvedURL may
// be left empty to preserve whatever value the row already has — spec.md
// §3's "upsert on url preserves the existing resolved_url if a later write
// omits it" — every other crawl-stage column always overwrites, since the
// crawl stage always produces all of them together.
type CrawlUpsert struct {
	URL           string
	ResolvedURL   string
	OriginalTitle string
	Content       string
	ImageURL      string
	PublishedAt   time.Time
}

// UpsertCrawlResult inserts a new Article row for URL or updates the
// crawl-stage columns of an existing one, per CrawlUpsert's ResolvedURL
// preservation rule.
func (s *Store) UpsertCrawlResult(ctx context.Context, u CrawlUpsert) error {
	const query = `
INSERT INTO articles (url, resolved_url, original_title, content, image_url, published_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	resolved_url   = COALESCE(NULLIF(excluded.resolved_url, ''), articles.resolved_url),
	original_title = excluded.original_title,
	content        = excluded.content,
	image_url      = excluded.image_url,
	published_at   = excluded.published_at
`
	_, err := s.db.ExecContext(ctx, query,
		u.URL, u.ResolvedURL, u.OriginalTitle, u.Content, u.ImageURL, u.PublishedAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("UpsertCrawlResult: ExecContext: %w", err)
	}
	return nil
}

// EvalUpsert carries the columns the evaluation stage writes.
type EvalUpsert struct {
	URL                   string
	TranslatedTitle       string
	Summary               string
	ShortSummary          string
	ScoreNovelty          int
	ScoreImportance       int
	ScoreReliability      int
	ScoreContextValue     int
	ScoreThoughtProvoking int
	AverageScore          float64
}

// UpsertEvalResult writes the evaluation-stage columns of an existing
// Article row, identified by url. The row must already exist (content is a
// crawl-stage column); if it does not, this creates a bare row holding only
// the evaluation columns, which is harmless but should not occur in the
// normal Phase 2 -> Phase 3 flow.
func (s *Store) UpsertEvalResult(ctx context.Context, u EvalUpsert) error {
	const query = `
INSERT INTO articles (url, translated_title, summary, short_summary,
	score_novelty, score_importance, score_reliability, score_context_value, score_thought_provoking,
	average_score, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	translated_title        = excluded.translated_title,
	summary                 = excluded.summary,
	short_summary           = excluded.short_summary,
	score_novelty           = excluded.score_novelty,
	score_importance        = excluded.score_importance,
	score_reliability       = excluded.score_reliability,
	score_context_value     = excluded.score_context_value,
	score_thought_provoking = excluded.score_thought_provoking,
	average_score           = excluded.average_score
`
	_, err := s.db.ExecContext(ctx, query,
		u.URL, u.TranslatedTitle, u.Summary, u.ShortSummary,
		u.ScoreNovelty, u.ScoreImportance, u.ScoreReliability, u.ScoreContextValue, u.ScoreThoughtProvoking,
		u.AverageScore, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("UpsertEvalResult: ExecContext: %w", err)
	}
	return nil
}

const articleColumns = `id, url, resolved_url, original_title, translated_title, summary, short_summary,
	content, image_url, published_at, created_at,
	score_novelty, score_importance, score_reliability, score_context_value, score_thought_provoking, average_score`

func scanArticle(row interface{ Scan(...interface{}) error }) (*entity.Article, error) {
	var a entity.Article
	var resolvedURL, originalTitle, translatedTitle, summary, shortSummary, content, imageURL sql.NullString
	var publishedAt, createdAt sql.NullTime
	var novelty, importance, reliability, contextValue, thoughtProvoking sql.NullInt64
	var avg sql.NullFloat64

	err := row.Scan(&a.ID, &a.URL, &resolvedURL, &originalTitle, &translatedTitle, &summary, &shortSummary,
		&content, &imageURL, &publishedAt, &createdAt,
		&novelty, &importance, &reliability, &contextValue, &thoughtProvoking, &avg)
	if err != nil {
		return nil, err
	}

	a.ResolvedURL = resolvedURL.String
	a.OriginalTitle = originalTitle.String
	a.TranslatedTitle = translatedTitle.String
	a.Summary = summary.String
	a.ShortSummary = shortSummary.String
	a.Content = content.String
	a.ImageURL = imageURL.String
	a.PublishedAt = publishedAt.Time
	a.CreatedAt = createdAt.Time
	if novelty.Valid {
		v := int(novelty.Int64)
		a.ScoreNovelty = &v
	}
	if importance.Valid {
		v := int(importance.Int64)
		a.ScoreImportance = &v
	}
	if reliability.Valid {
		v := int(reliability.Int64)
		a.ScoreReliability = &v
	}
	if contextValue.Valid {
		v := int(contextValue.Int64)
		a.ScoreContextValue = &v
	}
	if thoughtProvoking.Valid {
		v := int(thoughtProvoking.Int64)
		a.ScoreThoughtProvoking = &v
	}
	if avg.Valid {
		v := avg.Float64
		a.AverageScore = &v
	}
	return &a, nil
}

// GetArticle returns the Article by id, or nil if none exists.
func (s *Store) GetArticle(ctx context.Context, id int64) (*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = ? LIMIT 1`
	a, err := scanArticle(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetArticle: %w", err)
	}
	return a, nil
}

// GetArticleByURL returns the Article by url, or nil if none exists.
func (s *Store) GetArticleByURL(ctx context.Context, url string) (*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE url = ? LIMIT 1`
	a, err := scanArticle(s.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetArticleByURL: %w", err)
	}
	return a, nil
}

// IsFullyProcessed reports whether url already has content meeting the
// crawlable threshold and has been evaluated, i.e. nothing further to do.
// Used by FeedCollector to skip redirect resolution for already-done items.
func (s *Store) IsFullyProcessed(ctx context.Context, url string) (bool, error) {
	const query = `
SELECT 1 FROM articles
WHERE url = ? AND length(content) >= ? AND average_score IS NOT NULL
LIMIT 1`
	var one int
	err := s.db.QueryRowContext(ctx, query, url, minCrawlableContentLength).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsFullyProcessed: %w", err)
	}
	return true, nil
}

// CachedResolvedURL returns the previously stored resolved_url for url, if
// any article row exists and already carries one. Used by FeedCollector to
// avoid re-resolving an aggregator redirect (a browser navigation, when the
// base64 fast path doesn't apply) for a URL it has already resolved once.
func (s *Store) CachedResolvedURL(ctx context.Context, url string) (string, bool, error) {
	a, err := s.GetArticleByURL(ctx, url)
	if err != nil {
		return "", false, fmt.Errorf("CachedResolvedURL: %w", err)
	}
	if a == nil || a.ResolvedURL == "" {
		return "", false, nil
	}
	return a.ResolvedURL, true, nil
}

// Unprocessed returns up to limit articles that are crawlable (no content,
// or content below the threshold) or unevaluated, excluding any whose host
// is in BlockedDomain.
func (s *Store) Unprocessed(ctx context.Context, limit int) ([]*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles a
WHERE (content IS NULL OR length(content) < ? OR average_score IS NULL)
AND NOT EXISTS (
	SELECT 1 FROM blocked_domains b
	WHERE a.url LIKE '%' || b.domain || '%' OR a.resolved_url LIKE '%' || b.domain || '%'
)
ORDER BY a.id ASC
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, minCrawlableContentLength, limit)
	if err != nil {
		return nil, fmt.Errorf("Unprocessed: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanArticles(rows)
}

// ArticlesWithoutImages returns up to limit articles that have content but
// no image_url, excluding blocked hosts — the Phase 2.5 image-backfill set.
func (s *Store) ArticlesWithoutImages(ctx context.Context, limit int) ([]*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles a
WHERE (image_url IS NULL OR image_url = '')
AND content IS NOT NULL AND length(content) >= ?
AND NOT EXISTS (
	SELECT 1 FROM blocked_domains b
	WHERE a.url LIKE '%' || b.domain || '%' OR a.resolved_url LIKE '%' || b.domain || '%'
)
ORDER BY a.id ASC
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, minCrawlableContentLength, limit)
	if err != nil {
		return nil, fmt.Errorf("ArticlesWithoutImages: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanArticles(rows)
}

func scanArticles(rows *sql.Rows) ([]*entity.Article, error) {
	articles := make([]*entity.Article, 0, 100)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// SetArticleImageURL backfills an image URL discovered during Phase 2.5.
func (s *Store) SetArticleImageURL(ctx context.Context, id int64, imageURL string) error {
	const query = `UPDATE articles SET image_url = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query, imageURL, id)
	if err != nil {
		return fmt.Errorf("SetArticleImageURL: %w", err)
	}
	return nil
}
