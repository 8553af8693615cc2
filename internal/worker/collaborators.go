package worker

import (
	"context"

	"feedcrawler/internal/store"
)

// blockStore is the subset of the Store the Fetcher's Blocklist interface
// needs; Store's BlockDomain/IsBlocked already match it except for the
// method name, so this is a one-line adapter rather than a reach for
// anything new.
type blockStore struct {
	store *store.Store
}

func (b blockStore) IsBlocked(ctx context.Context, host string) (bool, error) {
	return b.store.IsBlocked(ctx, host)
}

func (b blockStore) Block(ctx context.Context, host, reason string) error {
	return b.store.BlockDomain(ctx, host, reason)
}
