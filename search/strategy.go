package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/seed"
	"github.com/poiesic/ragline/storage"
)

// MinScore is the similarity a vector match must exceed to be used as
// context.
const MinScore = 0.7

// Outcome is the tagged result of one strategy.
type Outcome struct {
	Hit      bool
	Passages []core.Passage
	Reason   string // why the strategy missed
}

// Hit returns a successful outcome. passages may be empty.
func Hit(passages []core.Passage) Outcome {
	return Outcome{Hit: true, Passages: passages}
}

// Miss returns an outcome that lets the next strategy run.
func Miss(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Strategy is one way of finding passages for a query.
type Strategy interface {
	Name() string
	Search(ctx context.Context, query string, topK int) Outcome
}

// VectorStrategy embeds the query and searches the vector index.
type VectorStrategy struct {
	embedder ai.Embedder
	store    storage.VectorStore
	index    string
	logger   *slog.Logger
}

var _ Strategy = (*VectorStrategy)(nil)

// NewVectorStrategy creates a vector similarity strategy over index.
func NewVectorStrategy(embedder ai.Embedder, store storage.VectorStore, index string, logger *slog.Logger) *VectorStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorStrategy{
		embedder: embedder,
		store:    store,
		index:    index,
		logger:   logger.With("strategy", "vector"),
	}
}

func (v *VectorStrategy) Name() string { return "vector" }

// Search misses when the query cannot be embedded or the store cannot be
// read. Otherwise it hits with the matches scoring above MinScore, in store
// order.
func (v *VectorStrategy) Search(ctx context.Context, query string, topK int) Outcome {
	embedding, err := v.embedder.EmbedText(ctx, query)
	if err != nil {
		v.logger.Warn("could not embed query", "err", err)
		return Miss(fmt.Sprintf("embed query: %v", err))
	}

	matches, err := v.store.Query(ctx, v.index, embedding, topK, nil)
	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrStoreRead, err)
		v.logger.Error("vector query failed", "index", v.index, "err", err)
		return Miss(err.Error())
	}

	passages := make([]core.Passage, 0, len(matches))
	for _, m := range matches {
		if m.Score <= MinScore || m.Metadata.Text == "" {
			continue
		}
		source := m.Metadata.URL
		if source == "" {
			source = m.ID
		}
		passages = append(passages, core.Passage{Text: m.Metadata.Text, Score: m.Score, Source: source})
	}
	v.logger.Debug("vector search complete", "matches", len(matches), "kept", len(passages))
	return Hit(passages)
}

// KeywordStrategy scans a seed corpus for the query text. It always hits.
type KeywordStrategy struct {
	corpus seed.Corpus
}

var _ Strategy = (*KeywordStrategy)(nil)

// NewKeywordStrategy creates a keyword strategy over corpus.
func NewKeywordStrategy(corpus seed.Corpus) *KeywordStrategy {
	return &KeywordStrategy{corpus: corpus}
}

func (k *KeywordStrategy) Name() string { return "keyword" }

func (k *KeywordStrategy) Search(_ context.Context, query string, topK int) Outcome {
	entries := k.corpus.Match(query, topK)
	passages := make([]core.Passage, len(entries))
	for i, e := range entries {
		passages[i] = core.Passage{Text: e.Content, Source: e.ID}
	}
	return Hit(passages)
}
