// Package acquire collects the web documents that feed the knowledge index.
//
// An Acquirer runs a fixed set of queries against a SearchProvider restricted
// to an allowlist of domains, keeps results whose cleaned text is at least
// core.MinContentLength long and, when too few results come back, fetches a
// list of known pages directly. Documents are deduplicated by URL with the
// query string stripped (first occurrence wins) and truncated to the
// requested limit.
//
// Acquisition never fails because of a provider or a page: errors are logged
// and count as zero results. Only context cancellation is returned.
package acquire
