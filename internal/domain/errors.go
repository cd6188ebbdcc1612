package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// FetchError is returned when every query of an orchestration run failed.
// Individual query failures inside a partially successful run are swallowed;
// only total failure surfaces. Retriable: the next tick resolves it.
type FetchError struct {
	Queries int   // queries attempted in the run
	Err     error // last underlying failure
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("all %d queries failed: %v", e.Queries, e.Err)
}

func (e *FetchError) IsRetriable() bool {
	return true
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a FetchError for a fully failed run
func NewFetchError(queries int, last error) *FetchError {
	return &FetchError{Queries: queries, Err: last}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidAddress is returned when a user-supplied address fails the
	// 0x/40-hex check. It is rejected before any network call. Not retriable.
	ErrInvalidAddress = errors.New("invalid address (0x + 40 hex characters)")

	// ErrEmptyResult means the source answered but returned zero usable
	// records. Distinct from FetchError: the UI shows "no pools found",
	// not an error banner.
	ErrEmptyResult = errors.New("no pools found")

	// ErrWatchlistFull is returned when the watchlist already holds the
	// maximum number of entries.
	ErrWatchlistFull = errors.New("watchlist is full")
)
