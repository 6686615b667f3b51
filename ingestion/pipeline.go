package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/chunking"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/storage"
)

const (
	// DefaultIndex is the name of the knowledge index.
	DefaultIndex = "knowledge-base"

	// DefaultDimension matches text-embedding-3-small.
	DefaultDimension = 1536

	// DefaultBatchSize is the number of chunks embedded per call.
	DefaultBatchSize = 100

	// DefaultTopic is the metadata topic of ingested web chunks.
	DefaultTopic = "knowledge"
)

// Pipeline chunks, embeds and writes documents into a vector index.
// It is safe for concurrent use.
type Pipeline struct {
	store       storage.VectorStore
	embedder    ai.Embedder
	index       string
	dimension   int
	metric      core.Metric
	topic       string
	pool        *ants.Pool
	maxAttempts int
	retryDelay  time.Duration
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithIndex sets the index name, dimension and similarity metric.
// Default is "knowledge-base", 1536, cosine.
func WithIndex(name string, dimension int, metric core.Metric) Option {
	return func(p *Pipeline) error {
		if name == "" {
			return errors.New("index name cannot be empty")
		}
		if dimension <= 0 {
			return errors.New("index dimension must be positive")
		}
		if _, err := core.ParseMetric(string(metric)); err != nil {
			return err
		}
		p.index = name
		p.dimension = dimension
		p.metric = metric
		return nil
	}
}

// WithConcurrency sets how many batches may be in flight at once.
// Default is 1, which processes batches strictly in order.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) error {
		if p.pool != nil {
			p.pool.Release()
			p.pool = nil
		}
		if n <= 1 {
			return nil
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithRetry sets embedding attempts per batch and the base backoff delay.
// Default is a single attempt.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithTopic sets the topic recorded on web chunks.
func WithTopic(topic string) Option {
	return func(p *Pipeline) error {
		p.topic = topic
		return nil
	}
}

// WithProgress writes batch progress to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		store:       store,
		embedder:    embedder,
		index:       DefaultIndex,
		dimension:   DefaultDimension,
		metric:      core.MetricCosine,
		topic:       DefaultTopic,
		maxAttempts: 1,
		retryDelay:  time.Second,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Index returns the name of the index the pipeline writes to.
func (p *Pipeline) Index() string {
	return p.index
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	ChunkMaxLength int  // Maximum chunk length in bytes (default 900)
	BatchSize      int  // Chunks per embedding call (default 100)
	ClearOld       bool // Remove every record of the index before writing
}

func (o *IngestOptions) withDefaults() IngestOptions {
	out := IngestOptions{}
	if o != nil {
		out = *o
	}
	if out.ChunkMaxLength <= 0 {
		out.ChunkMaxLength = chunking.DefaultMaxLength
	}
	if out.BatchSize <= 0 {
		out.BatchSize = DefaultBatchSize
	}
	return out
}

// Ingest chunks, embeds and writes docs. Documents shorter than
// core.MinContentLength are dropped. The returned stats count every input
// document, every chunk produced and every record written.
func (p *Pipeline) Ingest(ctx context.Context, docs []*core.SourceDocument, opts *IngestOptions) (*core.IngestStats, error) {
	o := opts.withDefaults()
	stats := &core.IngestStats{Docs: len(docs)}

	if err := p.prepare(ctx, o.ClearOld); err != nil {
		return stats, err
	}

	items := p.chunk(docs, o.ChunkMaxLength)
	stats.Chunks = len(items)
	if len(items) == 0 {
		p.logger.Info("nothing to ingest", "docs", len(docs))
		return stats, nil
	}

	upserted, err := p.run(ctx, items, o.BatchSize)
	stats.Upserted = upserted
	if err != nil {
		return stats, err
	}

	p.logger.Info("ingestion complete",
		"docs", stats.Docs,
		"chunks", stats.Chunks,
		"upserted", stats.Upserted)
	return stats, nil
}

// prepare ensures the index exists and optionally empties it.
func (p *Pipeline) prepare(ctx context.Context, clear bool) error {
	if err := p.store.EnsureIndex(ctx, p.index, p.dimension, p.metric); err != nil {
		return fmt.Errorf("%w: ensure index %q: %w", core.ErrStoreWrite, p.index, err)
	}
	if clear {
		p.logger.Info("clearing existing vectors", "index", p.index)
		if err := p.store.DeleteAll(ctx, p.index); err != nil {
			return fmt.Errorf("%w: clear index %q: %w", core.ErrStoreWrite, p.index, err)
		}
	}
	return nil
}

// chunk splits substantial documents into pending records.
func (p *Pipeline) chunk(docs []*core.SourceDocument, maxLength int) []pending {
	var items []pending
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			p.logger.Warn("skipping invalid document", "err", err)
			continue
		}
		if !core.IsSubstantial(doc.Text) {
			p.logger.Debug("skipping short document", "url", doc.URL, "length", len(doc.Text))
			continue
		}

		parts := chunking.Split(doc.Text, maxLength)
		for i, part := range parts {
			items = append(items, pending{
				id:   core.ChunkID(doc.URL, i),
				text: part,
				metadata: core.Metadata{
					Text:       part,
					Category:   core.CategoryWeb,
					Topic:      p.topic,
					URL:        doc.URL,
					Title:      doc.Title,
					Source:     doc.Provider,
					ChunkIndex: i,
					ChunkCount: len(parts),
				},
			})
		}
	}
	return items
}

// run embeds and writes items in batches and returns the number written.
func (p *Pipeline) run(ctx context.Context, items []pending, batchSize int) (int, error) {
	bp := &batchProcessor{
		store:       p.store,
		embedder:    p.embedder,
		index:       p.index,
		maxAttempts: p.maxAttempts,
		retryDelay:  p.retryDelay,
		logger:      p.logger,
	}
	batches := split(items, batchSize)

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(items))
		tracker.Start()
		defer tracker.Finish()
	}

	if p.pool == nil {
		return p.runSequential(ctx, bp, batches, tracker)
	}
	return p.runPooled(ctx, bp, batches, tracker)
}

func (p *Pipeline) runSequential(ctx context.Context, bp *batchProcessor, batches [][]pending, tracker *ProgressTracker) (int, error) {
	upserted := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return upserted, err
		}
		n, err := bp.process(ctx, i+1, batch)
		if err != nil {
			return upserted, err
		}
		upserted += n
		track(tracker, n, len(batch))
	}
	return upserted, nil
}

// runPooled stops submitting after the first failure; batches already
// running finish.
func (p *Pipeline) runPooled(parent context.Context, bp *batchProcessor, batches [][]pending, tracker *ProgressTracker) (int, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		upserted int
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			n, err := bp.process(ctx, i+1, batch)
			if err != nil {
				fail(err)
				return
			}
			mu.Lock()
			upserted += n
			mu.Unlock()
			track(tracker, n, len(batch))
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return upserted, firstErr
	}
	if err := parent.Err(); err != nil {
		return upserted, err
	}
	return upserted, nil
}

func track(tracker *ProgressTracker, written, size int) {
	if tracker == nil {
		return
	}
	if written > 0 {
		tracker.Upserted(written)
	} else {
		tracker.Skipped(size)
	}
}

// Release frees the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
