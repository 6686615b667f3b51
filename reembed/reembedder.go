// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/ingestion"
	"github.com/poiesic/ragline/storage"
)

const (
	// DefaultBatchSize is the number of records embedded per request.
	DefaultBatchSize = 100

	// DefaultMaxAttempts bounds embedding retries per batch.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the base delay for exponential backoff.
	DefaultRetryDelay = time.Second
)

// Reembedder recomputes the vector of every record in an index.
type Reembedder struct {
	store       storage.VectorStore
	scanner     storage.Scanner
	embedder    ai.Embedder
	source      string
	target      string
	dimension   int
	metric      core.Metric
	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures a Reembedder.
type Option func(*Reembedder) error

// WithSource names the index whose records are read.
func WithSource(name string) Option {
	return func(r *Reembedder) error {
		if name == "" {
			return fmt.Errorf("source index name is required")
		}
		r.source = name
		return nil
	}
}

// WithTarget writes the new vectors to a separate index, created with the
// given dimension and metric when it does not exist.
func WithTarget(name string, dimension int, metric core.Metric) Option {
	return func(r *Reembedder) error {
		if name == "" || dimension <= 0 {
			return fmt.Errorf("target index needs a name and a positive dimension")
		}
		r.target, r.dimension, r.metric = name, dimension, metric
		return nil
	}
}

// WithBatchSize sets the number of records embedded per request.
func WithBatchSize(n int) Option {
	return func(r *Reembedder) error {
		if n <= 0 {
			return ErrInvalidBatchSize
		}
		r.batchSize = n
		return nil
	}
}

// WithRetry sets the embedding retry budget for a batch.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(r *Reembedder) error {
		if maxAttempts <= 0 {
			return ingestion.ErrInvalidMaxAttempts
		}
		r.maxAttempts, r.retryDelay = maxAttempts, baseDelay
		return nil
	}
}

// WithProgress reports progress to w.
func WithProgress(w io.Writer) Option {
	return func(r *Reembedder) error {
		r.progress = w
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// NewReembedder creates a reembedder over store. The store must implement
// storage.Scanner.
func NewReembedder(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Reembedder, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	scanner, ok := store.(storage.Scanner)
	if !ok {
		return nil, ErrScanUnsupported
	}
	r := &Reembedder{
		store:       store,
		scanner:     scanner,
		embedder:    embedder,
		source:      ingestion.DefaultIndex,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.target == "" {
		r.target = r.source
	}
	r.logger = r.logger.With("component", "reembedder")
	return r, nil
}

// Run re-embeds every record of the source index and writes it to the
// target. It returns the number of records written. Records without text are
// skipped. A batch that cannot be embedded stops the run.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	total := 0
	if counter, ok := r.store.(storage.Counter); ok {
		n, err := counter.Count(ctx, r.source)
		if err != nil {
			return 0, fmt.Errorf("%w: count %s: %w", core.ErrStoreRead, r.source, err)
		}
		total = n
	}
	if total == 0 {
		r.logger.Info("no records to reembed", "index", r.source)
		return 0, nil
	}

	if r.target != r.source {
		if err := r.store.EnsureIndex(ctx, r.target, r.dimension, r.metric); err != nil {
			return 0, fmt.Errorf("%w: ensure index %s: %w", core.ErrStoreWrite, r.target, err)
		}
	}

	r.logger.Info("reembedding index",
		"source", r.source,
		"target", r.target,
		"records", total,
		"batch_size", r.batchSize)

	var tracker *ingestion.ProgressTracker
	if r.progress != nil {
		tracker = ingestion.NewProgressTracker(r.progress, total)
		tracker.Start()
	}

	written := 0
	batchNum := 0
	err := r.scanner.Scan(ctx, r.source, r.batchSize, func(batch []*core.VectorRecord) error {
		batchNum++
		n, skipped, err := r.process(ctx, batchNum, batch)
		written += n
		if tracker != nil {
			tracker.Upserted(n)
			tracker.Skipped(skipped)
		}
		return err
	})
	if tracker != nil {
		tracker.Finish()
	}
	if err != nil {
		return written, err
	}

	r.logger.Info("reembedding complete", "target", r.target, "written", written)
	return written, nil
}

func (r *Reembedder) process(ctx context.Context, batchNum int, batch []*core.VectorRecord) (int, int, error) {
	records := make([]*core.VectorRecord, 0, len(batch))
	texts := make([]string, 0, len(batch))
	for _, rec := range batch {
		if rec.Metadata.Text == "" {
			r.logger.Warn("skipping record without text", "id", rec.ID)
			continue
		}
		records = append(records, rec)
		texts = append(texts, rec.Metadata.Text)
	}
	skipped := len(batch) - len(records)
	if len(records) == 0 {
		return 0, skipped, nil
	}

	var vectors [][]float32
	err := ingestion.RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = r.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts",
				ingestion.ErrEmbeddingMismatch, len(vectors), len(texts))
		}
		return nil
	}, r.maxAttempts, r.retryDelay)
	if err != nil {
		return 0, skipped, fmt.Errorf("embed batch %d: %w", batchNum, err)
	}

	updated := make([]*core.VectorRecord, len(records))
	for i, rec := range records {
		updated[i] = &core.VectorRecord{ID: rec.ID, Vector: vectors[i], Metadata: rec.Metadata}
	}
	if err := r.store.Upsert(ctx, r.target, updated...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, skipped, ctxErr
		}
		return 0, skipped, fmt.Errorf("%w: upsert batch %d: %w", core.ErrStoreWrite, batchNum, err)
	}
	return len(updated), skipped, nil
}
