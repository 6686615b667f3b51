// Package normalize cleans acquired web text before it is chunked.
//
// Cleaning happens in two passes. Whitespace collapses line endings, blank
// line runs and horizontal whitespace. StripBoilerplate then removes short
// lines and the navigation and consent lines common to marketing pages.
// HTMLToText extracts readable text from raw HTML and applies both passes.
//
// All functions are pure and safe for concurrent use.
package normalize
