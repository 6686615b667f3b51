package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/seed"
	"github.com/poiesic/ragline/storage"
)

const (
	// DefaultTopK is the number of passages requested when none is given.
	DefaultTopK = 5

	// DefaultIndex is the vector index searched by default.
	DefaultIndex = "knowledge-base"
)

// Retriever finds context passages by trying strategies in order.
type Retriever struct {
	embedder   ai.Embedder
	store      storage.VectorStore
	index      string
	corpus     seed.Corpus
	strategies []Strategy
	monitor    Monitor
	logger     *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithIndex sets the vector index to search.
func WithIndex(name string) Option {
	return func(r *Retriever) error {
		r.index = name
		return nil
	}
}

// WithCorpus sets the corpus used by the keyword fallback.
// Default is seed.Default().
func WithCorpus(corpus seed.Corpus) Option {
	return func(r *Retriever) error {
		r.corpus = corpus
		return nil
	}
}

// WithStrategies replaces the default vector-then-keyword order.
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Retriever) error {
		if len(strategies) == 0 {
			return ErrNoStrategies
		}
		r.strategies = strategies
		return nil
	}
}

// WithMonitor sets a monitor that observes every search.
func WithMonitor(monitor Monitor) Option {
	return func(r *Retriever) error {
		r.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a retriever over store and the seed corpus.
func NewRetriever(embedder ai.Embedder, store storage.VectorStore, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}

	r := &Retriever{
		embedder: embedder,
		store:    store,
		index:    DefaultIndex,
		corpus:   seed.Default(),
		monitor:  &noopMonitor{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")

	if r.strategies == nil {
		r.strategies = []Strategy{
			NewVectorStrategy(r.embedder, r.store, r.index, r.logger),
			NewKeywordStrategy(r.corpus),
		}
	}
	if r.monitor == nil {
		r.monitor = &noopMonitor{}
	}

	return r, nil
}

// Search returns up to topK passages for query. A topK of zero or less
// selects DefaultTopK. The first strategy that hits decides the result; when
// every strategy misses the result is empty.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]core.Passage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	r.monitor.Start(query)
	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome := s.Search(ctx, query, topK)
		if !outcome.Hit {
			r.monitor.StrategyMissed(s.Name(), outcome.Reason)
			continue
		}

		passages := outcome.Passages
		if len(passages) > topK {
			passages = passages[:topK]
		}
		r.monitor.StrategyHit(s.Name(), passages)
		r.monitor.Finish(passages)
		r.logger.Info("found relevant contexts", "strategy", s.Name(), "count", len(passages))
		return passages, nil
	}

	r.logger.Warn("no strategy produced results", "query", query)
	r.monitor.Finish(nil)
	return []core.Passage{}, nil
}

// Texts returns the text of each passage.
func Texts(passages []core.Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Text
	}
	return out
}
