package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"feedcrawler/internal/resilience/circuitbreaker"
	"feedcrawler/internal/resilience/retry"
)

// OpenAIBackend evaluates articles using OpenAI's chat completion API with
// its native JSON-object response format, matching spec.md §4.6's "requires
// a JSON response mode" requirement literally.
type OpenAIBackend struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          string
}

// NewOpenAIBackend creates an OpenAIBackend with the given API key and model.
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIBackend{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		model:          model,
	}
}

// Complete sends the prompt to OpenAI with response_format=json_object and
// returns the raw JSON text.
func (b *OpenAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, b.retryConfig, func() error {
		cbResult, err := b.circuitBreaker.Execute(func() (interface{}, error) {
			return b.doComplete(ctx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("state", b.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("openai evaluate failed after retries: %w", retryErr)
	}
	return result, nil
}

func (b *OpenAIBackend) doComplete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "evaluation failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned empty response")
	}

	slog.InfoContext(ctx, "evaluation completed", slog.Duration("duration", duration))

	return resp.Choices[0].Message.Content, nil
}
