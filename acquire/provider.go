package acquire

import "context"

// RawResult is a search hit as returned by a SearchProvider.
type RawResult struct {
	URL     string
	Title   string
	Text    string
	Summary string
}

// SearchProvider runs a search and returns the page contents of the hits.
// Implementations return an error wrapping core.ErrProviderUnavailable when
// they are not configured.
type SearchProvider interface {
	// Name identifies the provider in document metadata, e.g. "exa".
	Name() string

	SearchAndFetch(ctx context.Context, query string, maxResults int, domains []string) ([]RawResult, error)
}

// Fetcher retrieves the cleaned text of a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
