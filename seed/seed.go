// Package seed holds the bundled bootstrap knowledge corpus.
//
// The corpus is loaded into the vector index by the seed command and doubles
// as the local keyword fallback when vector search is unavailable.
package seed

import "strings"

// Entry is a single curated knowledge record.
type Entry struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Topic    string `json:"topic"`
	Content  string `json:"content"`
}

// Corpus is an ordered collection of entries.
type Corpus []Entry

// Match returns the entries whose content or topic contains query,
// compared case-insensitively, in corpus order and truncated to limit.
// A limit of zero or less returns every match.
func (c Corpus) Match(query string, limit int) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Entry
	for _, e := range c {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(e.Content), q) || strings.Contains(strings.ToLower(e.Topic), q) {
			out = append(out, e)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (c Corpus) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range c {
		if !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	return out
}

// Default returns a copy of the bundled corpus.
func Default() Corpus {
	return append(Corpus(nil), entries...)
}
