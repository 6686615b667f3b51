package acquire

import "github.com/poiesic/ragline/core"

// Dedupe removes documents whose normalized URL was already seen.
// The first occurrence wins and order is preserved.
func Dedupe(docs []*core.SourceDocument) []*core.SourceDocument {
	seen := make(map[string]struct{}, len(docs))
	out := make([]*core.SourceDocument, 0, len(docs))
	for _, d := range docs {
		key := d.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
