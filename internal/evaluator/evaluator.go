// Package evaluator sends article content to an LLM chat-completion
// endpoint and parses the JSON-mode response into a translated title,
// long/short summaries, and five 1..5 scores.
package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedcrawler/internal/domain/entity"
	"feedcrawler/internal/observability/metrics"
	"feedcrawler/internal/utils/text"
)

// maxContentChars is the amount of article content included in the prompt.
const maxContentChars = 5000

// ErrInvalidResponse is returned when the LLM response fails to parse as
// JSON or is missing a numeric scores.novelty field.
var ErrInvalidResponse = errors.New("llm returned invalid analysis data")

// Scores holds the five 1..5 integer ratings an evaluation produces.
type Scores struct {
	Novelty          int `json:"novelty"`
	Importance       int `json:"importance"`
	Reliability      int `json:"reliability"`
	ContextValue     int `json:"contextValue"`
	ThoughtProvoking int `json:"thoughtProvoking"`
}

// Result is the normalized output of an evaluation, ready for Store upsert.
type Result struct {
	TranslatedTitle string
	Summary         string
	ShortSummary    string
	Scores          Scores
	AverageScore    float64
}

// Backend performs the raw LLM call: given a prompt, it returns the model's
// raw text response (expected to be a JSON object per buildPrompt's
// instructions). Claude and OpenAI each implement this differently — OpenAI
// via a native JSON response-format field, Claude via prompt instruction —
// but both are reduced to this same signature so Evaluate's parsing and
// validation logic is shared.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Evaluator evaluates articles using a configured Backend.
type Evaluator struct {
	backend Backend
}

// New creates an Evaluator using the given backend.
func New(backend Backend) *Evaluator {
	return &Evaluator{backend: backend}
}

// NewBackend selects and constructs a Backend from SUMMARIZER_TYPE exactly
// as the teacher's cmd/worker main.go createSummarizer switch does: "claude"
// or "openai", defaulting to "openai" since it is the backend with a true
// native JSON response-format field. model may be empty to use the
// backend's own default.
func NewBackend(summarizerType, apiKey, model string) (Backend, error) {
	if summarizerType == "" {
		summarizerType = "openai"
	}
	switch summarizerType {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when SUMMARIZER_TYPE=openai")
		}
		return NewOpenAIBackend(apiKey, model), nil
	case "claude":
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required when SUMMARIZER_TYPE=claude")
		}
		return NewClaudeBackend(apiKey, model), nil
	default:
		return nil, fmt.Errorf("invalid SUMMARIZER_TYPE %q: expected openai or claude", summarizerType)
	}
}

// Evaluate sends the article's title and (truncated) content to the
// backend and parses the result. It never retries on a malformed response;
// that is the caller's concern (ArticleError with ErrorKindInvalidLLMResponse).
func (e *Evaluator) Evaluate(ctx context.Context, article *entity.Article) (*Result, error) {
	content := article.Content
	if text.CountRunes(content) > maxContentChars {
		content = string([]rune(content)[:maxContentChars])
	}

	prompt := buildPrompt(article.OriginalTitle, content)

	start := time.Now()
	raw, err := e.backend.Complete(ctx, prompt)
	metrics.SummarizationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordArticleSummarized(false)
		return nil, fmt.Errorf("evaluator backend: %w", err)
	}

	result, err := parseResponse(raw)
	metrics.RecordArticleSummarized(err == nil)
	return result, err
}

// buildPrompt constructs the JSON-mode evaluation prompt. Both backends
// share this: OpenAI's native response-format field still benefits from an
// explicit schema description, and Claude has no response-format field at
// all so the instruction is the only enforcement it gets.
func buildPrompt(title, content string) string {
	return fmt.Sprintf(`You are evaluating a news article. Respond with a single JSON object only — no surrounding text — containing exactly these fields:

{
  "translatedTitle": "<title translated to Japanese>",
  "summary": "<a thorough Japanese summary of the article>",
  "shortSummary": "<a one or two sentence Japanese summary>",
  "scores": {
    "novelty": <integer 1-5>,
    "importance": <integer 1-5>,
    "reliability": <integer 1-5>,
    "contextValue": <integer 1-5>,
    "thoughtProvoking": <integer 1-5>
  }
}

Title: %s

Content:
%s`, title, content)
}

type responseShape struct {
	TranslatedTitle string `json:"translatedTitle"`
	Summary         string `json:"summary"`
	ShortSummary    string `json:"shortSummary"`
	Scores          *struct {
		Novelty          json.Number `json:"novelty"`
		Importance       json.Number `json:"importance"`
		Reliability      json.Number `json:"reliability"`
		ContextValue     json.Number `json:"contextValue"`
		ThoughtProvoking json.Number `json:"thoughtProvoking"`
	} `json:"scores"`
}

// parseResponse validates the response parses as JSON with a numeric
// scores.novelty field, per spec, then computes the average score.
func parseResponse(raw string) (*Result, error) {
	body := extractJSONObject(raw)

	var resp responseShape
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if resp.Scores == nil {
		return nil, ErrInvalidResponse
	}

	novelty, err := resp.Scores.Novelty.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: scores.novelty not numeric", ErrInvalidResponse)
	}
	importance, _ := resp.Scores.Importance.Float64()
	reliability, _ := resp.Scores.Reliability.Float64()
	contextValue, _ := resp.Scores.ContextValue.Float64()
	thoughtProvoking, _ := resp.Scores.ThoughtProvoking.Float64()

	scores := Scores{
		Novelty:          int(novelty),
		Importance:       int(importance),
		Reliability:      int(reliability),
		ContextValue:     int(contextValue),
		ThoughtProvoking: int(thoughtProvoking),
	}

	avg := float64(scores.Novelty+scores.Importance+scores.Reliability+scores.ContextValue+scores.ThoughtProvoking) / 5.0

	return &Result{
		TranslatedTitle: resp.TranslatedTitle,
		Summary:         resp.Summary,
		ShortSummary:    resp.ShortSummary,
		Scores:          scores,
		AverageScore:    avg,
	}, nil
}

// extractJSONObject trims anything before the first '{' and after the last
// '}', tolerating a chat model that wraps its JSON in prose or a markdown
// fence despite being instructed not to.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
