package domain

import "errors"

var (
	// ErrNoDataReturned is recorded when an adapter succeeds without returning anything
	ErrNoDataReturned = errors.New("no_data_returned")

	// ErrAttemptTimeout is returned when a single scrape attempt exceeds its timeout
	ErrAttemptTimeout = errors.New("scrape attempt timed out")

	// ErrAdapterPanic wraps a panic recovered from a site adapter
	ErrAdapterPanic = errors.New("adapter panicked")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when a key is not found in the job store
	ErrCacheMiss = errors.New("cache miss")

	// ErrFetchFailed is returned when a site page cannot be fetched
	ErrFetchFailed = errors.New("site fetch failed")

	// ErrUnknownSite is returned when a configured site has no adapter
	ErrUnknownSite = errors.New("unknown site")
)
