// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects — Article, Source, ArticleError,
// BlockedDomain, CrawlerStatus and Config — along with their validation rules
// and domain-specific errors.
package entity

import "time"

// Article represents one crawled, and eventually evaluated, piece of content.
//
// Fields populate in two stages: the crawl stage fills ResolvedURL,
// OriginalTitle, Content, ImageURL and PublishedAt; the evaluation stage
// fills TranslatedTitle, the summaries and the five scores. URL is the
// canonical identity of the article; ResolvedURL is auxiliary and caches
// aggregator-redirect resolution so it is only ever recomputed once.
type Article struct {
	ID                    int64
	URL                   string
	ResolvedURL           string
	OriginalTitle         string
	TranslatedTitle       string
	Summary               string
	ShortSummary          string
	Content               string
	ImageURL              string
	PublishedAt           time.Time
	CreatedAt             time.Time
	ScoreNovelty          *int
	ScoreImportance       *int
	ScoreReliability      *int
	ScoreContextValue     *int
	ScoreThoughtProvoking *int
	AverageScore          *float64
}

// minCrawlableContentLength is the boundary below which an article is
// considered to still need crawling. Exactly 200 characters is NOT
// crawlable; the check is strict less-than.
const minCrawlableContentLength = 200

// Crawlable reports whether the article still needs the crawl stage: no
// content, or content shorter than the minimum threshold.
func (a *Article) Crawlable() bool {
	return len(a.Content) < minCrawlableContentLength
}

// Evaluated reports whether the article has completed the evaluation stage.
func (a *Article) Evaluated() bool {
	return a.AverageScore != nil
}

// Host derives the scheduling/blocklist key for this article: the
// resolved URL's host when known, otherwise the original URL's host.
func (a *Article) Host() string {
	return HostOf(a.URL, a.ResolvedURL)
}

// HostOf derives the same scheduling/blocklist key as Article.Host from
// bare strings, for callers that only have a candidate URL pair and no
// Article row yet (the Fetcher, the feed collector's dispatch queue).
func HostOf(rawURL, resolvedURL string) string {
	u := resolvedURL
	if u == "" {
		u = rawURL
	}
	return hostOf(u)
}

// AverageOf computes the mean of the five integer evaluation scores.
func AverageOf(novelty, importance, reliability, contextValue, thoughtProvoking int) float64 {
	sum := novelty + importance + reliability + contextValue + thoughtProvoking
	return float64(sum) / 5.0
}
