package fetcher

import "errors"

// Sentinel errors surfaced by Fetch. Callers translate these into
// entity.ErrorKind values for ArticleError records.
var (
	// ErrBlocked indicates the host is in the blocklist or a bot-protection
	// fingerprint was just matched.
	ErrBlocked = errors.New("host is blocked")

	// ErrBotProtection indicates a commercial bot-protection challenge page
	// was detected after a browser fetch.
	ErrBotProtection = errors.New("bot protection challenge detected")

	// ErrNotFound indicates an HTTP 404; the caller must not retry or fall
	// back to the browser tier for this status code.
	ErrNotFound = errors.New("article not found (404)")

	// ErrTimeout indicates the request exceeded its configured timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrTooManyRedirects indicates the direct tier's redirect chain
	// exceeded Config.MaxRedirects.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded Config.MaxBodySize.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidURL indicates the URL is malformed or uses a scheme other
	// than http/https.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a private IP address
	// (SSRF prevention).
	ErrPrivateIP = errors.New("private IP access denied")
)
