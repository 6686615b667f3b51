package acquire

import "errors"

var (
	// ErrFetcherRequired indicates a nil Fetcher was supplied.
	ErrFetcherRequired = errors.New("fetcher is required")

	// ErrNoQueries indicates an empty query list was supplied.
	ErrNoQueries = errors.New("at least one query is required")

	// ErrUnexpectedStatus indicates an HTTP response outside the 2xx range.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrRateLimited indicates the remote service answered 429.
	ErrRateLimited = errors.New("rate limited")
)
