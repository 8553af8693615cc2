// Package notifier posts high-scoring evaluations to a webhook channel.
package notifier

import (
	"context"

	"feedcrawler/internal/domain/entity"
)

// Notifier sends a webhook notification about a scored article.
type Notifier interface {
	// NotifyArticle posts the article's evaluation if notifications are
	// enabled. A non-2xx response or transport error is logged but never
	// fails the surrounding evaluation.
	NotifyArticle(ctx context.Context, article *entity.Article, source *entity.Source) error
}

// NoOpNotifier is used whenever config.webhook_url is unset, so the caller
// never needs a nil check.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier { return &NoOpNotifier{} }

// NotifyArticle does nothing.
func (n *NoOpNotifier) NotifyArticle(context.Context, *entity.Article, *entity.Source) error {
	return nil
}
