package evaluator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"feedcrawler/internal/domain/entity"
	"feedcrawler/internal/evaluator"
)

type stubBackend struct {
	response string
	err      error
}

func (s stubBackend) Complete(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func TestEvaluate_ParsesWellFormedResponse(t *testing.T) {
	backend := stubBackend{response: `{
		"translatedTitle": "翻訳されたタイトル",
		"summary": "long summary",
		"shortSummary": "short summary",
		"scores": {"novelty": 4, "importance": 3, "reliability": 5, "contextValue": 2, "thoughtProvoking": 1}
	}`}
	e := evaluator.New(backend)
	result, err := e.Evaluate(context.Background(), &entity.Article{OriginalTitle: "Title", Content: "Some article content."})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result.TranslatedTitle != "翻訳されたタイトル" {
		t.Errorf("TranslatedTitle = %q", result.TranslatedTitle)
	}
	if result.Scores.Novelty != 4 || result.Scores.ThoughtProvoking != 1 {
		t.Errorf("unexpected scores: %+v", result.Scores)
	}
	wantAvg := float64(4+3+5+2+1) / 5.0
	if result.AverageScore != wantAvg {
		t.Errorf("AverageScore = %v, want %v", result.AverageScore, wantAvg)
	}
}

func TestEvaluate_ToleratesProseWrappedJSON(t *testing.T) {
	backend := stubBackend{response: "Here is the analysis:\n```json\n" + `{"translatedTitle":"t","summary":"s","shortSummary":"ss","scores":{"novelty":3,"importance":3,"reliability":3,"contextValue":3,"thoughtProvoking":3}}` + "\n```\nHope that helps!"}
	e := evaluator.New(backend)
	result, err := e.Evaluate(context.Background(), &entity.Article{OriginalTitle: "T", Content: "C"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result.Scores.Novelty != 3 {
		t.Errorf("Novelty = %d, want 3", result.Scores.Novelty)
	}
}

func TestEvaluate_RejectsMissingScores(t *testing.T) {
	backend := stubBackend{response: `{"translatedTitle":"t","summary":"s","shortSummary":"ss"}`}
	e := evaluator.New(backend)
	_, err := e.Evaluate(context.Background(), &entity.Article{OriginalTitle: "T", Content: "C"})
	if !errors.Is(err, evaluator.ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestEvaluate_RejectsNonJSON(t *testing.T) {
	backend := stubBackend{response: "not json at all"}
	e := evaluator.New(backend)
	_, err := e.Evaluate(context.Background(), &entity.Article{OriginalTitle: "T", Content: "C"})
	if !errors.Is(err, evaluator.ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestEvaluate_PropagatesBackendError(t *testing.T) {
	backendErr := errors.New("api unavailable")
	backend := stubBackend{err: backendErr}
	e := evaluator.New(backend)
	_, err := e.Evaluate(context.Background(), &entity.Article{OriginalTitle: "T", Content: "C"})
	if !errors.Is(err, backendErr) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}

func TestEvaluate_TruncatesOversizedContentAtRuneBoundary(t *testing.T) {
	// 5000 multi-byte runes followed by an ASCII marker the prompt must not
	// include once truncated to maxContentChars runes.
	content := strings.Repeat("一", 5000) + "MARKER"
	backend := &capturingBackend{response: `{"translatedTitle":"t","summary":"s","shortSummary":"ss","scores":{"novelty":1,"importance":1,"reliability":1,"contextValue":1,"thoughtProvoking":1}}`}
	e := evaluator.New(backend)
	_, err := e.Evaluate(context.Background(), &entity.Article{OriginalTitle: "T", Content: content})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if strings.Contains(backend.capturedPrompt, "MARKER") {
		t.Error("expected content beyond maxContentChars runes to be truncated away")
	}
}

type capturingBackend struct {
	response       string
	capturedPrompt string
}

func (c *capturingBackend) Complete(ctx context.Context, prompt string) (string, error) {
	c.capturedPrompt = prompt
	return c.response, nil
}

func TestNewBackend_RequiresAPIKey(t *testing.T) {
	if _, err := evaluator.NewBackend("openai", "", ""); err == nil {
		t.Error("expected an error when OPENAI_API_KEY is missing")
	}
	if _, err := evaluator.NewBackend("claude", "", ""); err == nil {
		t.Error("expected an error when ANTHROPIC_API_KEY is missing")
	}
}

func TestNewBackend_RejectsUnknownType(t *testing.T) {
	if _, err := evaluator.NewBackend("not-a-real-backend", "key", ""); err == nil {
		t.Error("expected an error for an unrecognized SUMMARIZER_TYPE")
	}
}

func TestNewBackend_DefaultsToOpenAI(t *testing.T) {
	backend, err := evaluator.NewBackend("", "test-key", "")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	if backend == nil {
		t.Error("expected a non-nil backend")
	}
}
