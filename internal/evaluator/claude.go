package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"feedcrawler/internal/resilience/circuitbreaker"
	"feedcrawler/internal/resilience/retry"
)

// ClaudeBackend evaluates articles using Anthropic's Claude API. Claude has
// no native JSON response-format field for this API vintage, so JSON mode
// is enforced entirely by the prompt; parseResponse tolerates the model
// wrapping its answer in prose regardless.
type ClaudeBackend struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          string
	maxTokens      int
}

// NewClaudeBackend creates a ClaudeBackend with the given API key and model.
func NewClaudeBackend(apiKey, model string) *ClaudeBackend {
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	return &ClaudeBackend{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		model:          model,
		maxTokens:      2048,
	}
}

// Complete sends the prompt to Claude and returns its raw text response.
func (b *ClaudeBackend) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()

	var result string
	retryErr := retry.WithBackoff(ctx, b.retryConfig, func() error {
		cbResult, err := b.circuitBreaker.Execute(func() (interface{}, error) {
			return b.doComplete(ctx, requestID, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("request_id", requestID),
					slog.String("state", b.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("claude evaluate failed after retries: %w", retryErr)
	}
	return result, nil
}

func (b *ClaudeBackend) doComplete(ctx context.Context, requestID, prompt string) (string, error) {
	start := time.Now()

	message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "evaluation failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	slog.InfoContext(ctx, "evaluation completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration))

	return textBlock.Text, nil
}
