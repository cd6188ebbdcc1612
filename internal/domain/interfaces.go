package domain

import (
	"context"
)

// MarketSource defines the outbound boundary to the market-data API.
// All three calls are best effort and uncached; a zero-length result with a
// nil error is a valid answer (see ErrEmptyResult handling in the service).
type MarketSource interface {
	// Search runs one free-text query and returns matching pairs on any chain
	Search(ctx context.Context, query string) ([]PairRecord, error)
	// TokenPairs returns all pairs for a single token on the target chain
	TokenPairs(ctx context.Context, address string) ([]PairRecord, error)
	// Tokens returns pairs for a batch of token addresses on the target chain
	Tokens(ctx context.Context, addresses []string) ([]PairRecord, error)
}

// WatchlistStore is the persistence collaborator for saved token addresses.
// The engine only reads it; add/remove are driven by the UI surface.
type WatchlistStore interface {
	List() ([]string, error)
	Add(address string) error
	Remove(address string) error
}

// IconFetcher caches token icons locally for the presentation layer
type IconFetcher interface {
	Fetch(ctx context.Context, symbol, iconURL string) (string, error)
}

// ConfigStore persists small key-value UI state across restarts
// (last view mode, rank strategy).
type ConfigStore interface {
	SaveConfig(key, value string) error
	LoadConfigMap() (map[string]string, error)
}
