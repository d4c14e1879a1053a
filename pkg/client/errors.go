package client

import (
	"errors"
	"fmt"

	"github.com/marsimaging/rover-photos/pkg/query"
)

var (
	// ErrQuotaExceeded is returned when the hourly quota is consumed and
	// no stale fallback is available.
	ErrQuotaExceeded = errors.New("hourly request quota exceeded")

	// ErrFetchFailed classifies transport failures from the Mars Photos
	// API. Match with errors.Is; the concrete *FetchError carries detail.
	ErrFetchFailed = errors.New("fetch failed")
)

// FetchError is a failed API call for a specific query. The quota slot
// consumed by the attempt is not refunded.
type FetchError struct {
	Key query.Key
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Key, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports ErrFetchFailed as a match so callers can classify without
// knowing the concrete type.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}
