package entity

import "time"

// Phase tags the pipeline stage that produced an ArticleError.
type Phase string

const (
	PhaseCrawl  Phase = "CRAWL"
	PhaseEval   Phase = "EVAL"
	PhaseNotify Phase = "NOTIFY"
)

// ArticleError is one record per failing URL. A new failure replaces the
// prior record for the same URL; it is deleted on the URL's next fully
// successful processing.
type ArticleError struct {
	ID           int64
	URL          string
	TitleHint    string
	ErrorMessage string
	StackTrace   string
	Phase        Phase
	Context      string
	CreatedAt    time.Time
}

// ErrorKind enumerates the taxonomy of failures the pipeline produces, each
// mapped to a short human-readable message.
type ErrorKind string

const (
	ErrorKindTimeout             ErrorKind = "timeout"
	ErrorKindNotFound            ErrorKind = "not_found"
	ErrorKindBlocked             ErrorKind = "blocked"
	ErrorKindBotProtection       ErrorKind = "bot_protection"
	ErrorKindReadabilityFailed   ErrorKind = "readability_failed"
	ErrorKindInvalidLLMResponse  ErrorKind = "invalid_llm_response"
	ErrorKindTransport           ErrorKind = "transport"
	ErrorKindStorage             ErrorKind = "storage"
)

// HumanMessage returns the fixed human-facing message for an error kind, or
// a generic fallback for transport errors carrying their own detail.
func (k ErrorKind) HumanMessage() string {
	switch k {
	case ErrorKindTimeout:
		return "Failed to reach source (Timeout)"
	case ErrorKindNotFound:
		return "Article not found (404)"
	case ErrorKindReadabilityFailed:
		return "Could not extract readable text from page"
	case ErrorKindInvalidLLMResponse:
		return "AI returned invalid analysis data"
	default:
		return string(k)
	}
}

// BlockedMessage formats the human message for a blocked-domain failure.
func BlockedMessage(host string) string {
	return "Domain blocked: " + host
}
