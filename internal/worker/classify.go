package worker

import (
	"errors"
	"fmt"

	"feedcrawler/internal/domain/entity"
	"feedcrawler/internal/extractor"
	"feedcrawler/internal/fetcher"
)

// classifyError maps a Fetch/Extract failure to the error taxonomy and
// produces the human message ArticleError.ErrorMessage carries, per
// spec.md §7.
func classifyError(host string, err error) (entity.ErrorKind, string) {
	switch {
	case errors.Is(err, fetcher.ErrNotFound):
		return entity.ErrorKindNotFound, entity.ErrorKindNotFound.HumanMessage()
	case errors.Is(err, fetcher.ErrBotProtection):
		return entity.ErrorKindBotProtection, entity.BlockedMessage(host)
	case errors.Is(err, fetcher.ErrBlocked):
		return entity.ErrorKindBlocked, entity.BlockedMessage(host)
	case errors.Is(err, fetcher.ErrTimeout):
		return entity.ErrorKindTimeout, entity.ErrorKindTimeout.HumanMessage()
	case errors.Is(err, extractor.ErrExtractionFailed):
		return entity.ErrorKindReadabilityFailed, entity.ErrorKindReadabilityFailed.HumanMessage()
	default:
		return entity.ErrorKindTransport, transportMessage(err)
	}
}

// transportMessage builds the ArticleError message for an unclassified
// transport failure, folding in the HTTP status when the error carries one
// (a 5xx response reaches here uncategorized by classifyError's switch).
func transportMessage(err error) string {
	const base = "Failed to fetch content"
	if code, status, ok := fetcher.HTTPStatus(err); ok {
		return fmt.Sprintf("%s (HTTP %d %s) [%s]", base, code, status, err)
	}
	return fmt.Sprintf("%s [%s]", base, err)
}
