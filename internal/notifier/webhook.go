package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"feedcrawler/internal/domain/entity"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Payload is the JSON body posted to config.webhook_url, per spec.md §6's
// literal embed shape.
type Payload struct {
	Embeds []Embed `json:"embeds"`
}

// Embed is the single embed object inside Payload.
type Embed struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
	Color       int     `json:"color"`
	Timestamp   string  `json:"timestamp"`
	Image       *Image  `json:"image,omitempty"`
}

// Field is one entry in Embed.Fields.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Image carries the embed's optional image URL.
type Image struct {
	URL string `json:"url"`
}

const embedColor = 5793266 // teacher's Discord-blue constant, reused for the generic embed

// WebhookNotifier posts the structured embed payload to a configured URL,
// with 429/4xx/5xx differentiated retry and a token-bucket rate limiter.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a WebhookNotifier posting to url. 0.5 req/s with burst 3
// mirrors the teacher's Discord rate limit (30 req/min).
func New(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(0.5), 3),
	}
}

// NotifyArticle builds the embed payload and posts it with retry.
func (w *WebhookNotifier) NotifyArticle(ctx context.Context, article *entity.Article, source *entity.Source) error {
	requestID := uuid.New().String()
	ctx = contextWithRequestID(ctx, requestID)

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook rate limiter: %w", err)
	}

	return w.postWithRetry(ctx, requestID, article, source)
}

func buildPayload(article *entity.Article, source *entity.Source) Payload {
	scoreValue := fmt.Sprintf("Avg: %.2f (N:%d I:%d R:%d C:%d T:%d)",
		valueOf(article.AverageScore),
		intOf(article.ScoreNovelty),
		intOf(article.ScoreImportance),
		intOf(article.ScoreReliability),
		intOf(article.ScoreContextValue),
		intOf(article.ScoreThoughtProvoking),
	)

	title := article.TranslatedTitle
	if title == "" {
		title = article.OriginalTitle
	}

	link := article.ResolvedURL
	if link == "" {
		link = article.URL
	}

	embed := Embed{
		Title:       title,
		URL:         link,
		Description: article.ShortSummary,
		Fields: []Field{
			{Name: "Scores", Value: scoreValue, Inline: true},
			{Name: "Source", Value: article.URL, Inline: true},
		},
		Color:     embedColor,
		Timestamp: article.PublishedAt.Format(time.RFC3339),
	}
	if article.ImageURL != "" {
		embed.Image = &Image{URL: article.ImageURL}
	}

	return Payload{Embeds: []Embed{embed}}
}

func valueOf(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func intOf(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func (w *WebhookNotifier) post(ctx context.Context, article *entity.Article, source *entity.Source) error {
	payload := buildPayload(article, source)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute webhook request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp, respBody), Message: "webhook rate limit exceeded"}
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("webhook client error: %s", respBody)}
	}
	return &ServerError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("webhook server error: %s", respBody)}
}

func retryAfter(resp *http.Response, body []byte) time.Duration {
	var errResp struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.RetryAfter > 0 {
		return time.Duration(errResp.RetryAfter * float64(time.Second))
	}
	if h := resp.Header.Get("Retry-After"); h != "" {
		if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}

// postWithRetry makes at most maxAttempts posts: a 429 sleeps for
// retry_after before the next attempt, a 5xx/network error waits
// baseDelay*attempt (linear backoff), a 4xx fails immediately.
func (w *WebhookNotifier) postWithRetry(ctx context.Context, requestID string, article *entity.Article, source *entity.Source) error {
	const (
		maxAttempts = 2
		baseDelay   = 5 * time.Second
	)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := w.post(ctx, article, source)
		if err == nil {
			slog.Info("webhook notification sent",
				slog.String("request_id", requestID),
				slog.Int64("article_id", article.ID),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if rl, ok := is429Error(err); ok {
			slog.Warn("webhook rate limited, backing off",
				slog.String("request_id", requestID),
				slog.Duration("retry_after", rl.RetryAfter))
			select {
			case <-time.After(rl.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("webhook canceled during rate-limit backoff: %w", ctx.Err())
			}
		}

		if !isRetryableError(err) {
			slog.Error("webhook notification failed, non-retryable",
				slog.String("request_id", requestID),
				slog.Any("error", err))
			return err
		}

		if attempt < maxAttempts {
			delay := baseDelay * time.Duration(attempt)
			slog.Warn("webhook notification failed, retrying",
				slog.String("request_id", requestID),
				slog.Any("error", err),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("webhook canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", maxAttempts, lastErr)
}

type contextKey string

const requestIDKey contextKey = "request_id"

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
