package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/storage"
)

// pending is a record awaiting its vector.
type pending struct {
	id       string
	text     string
	metadata core.Metadata
}

// batchProcessor embeds and writes one batch of pending records.
type batchProcessor struct {
	store       storage.VectorStore
	embedder    ai.Embedder
	index       string
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// process returns the number of records written. Embedding failures and
// count mismatches skip the batch and return (0, nil); write failures are
// returned wrapped in core.ErrStoreWrite.
func (bp *batchProcessor) process(ctx context.Context, n int, items []pending) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.text
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(texts), len(vectors))
		}
		return nil
	}, bp.maxAttempts, bp.retryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		bp.logger.Warn("embedding batch failed, skipping", "batch", n, "size", len(items), "err", err)
		return 0, nil
	}

	records := make([]*core.VectorRecord, len(items))
	for i, item := range items {
		records[i] = &core.VectorRecord{
			ID:       item.id,
			Vector:   vectors[i],
			Metadata: item.metadata,
		}
	}

	if err := bp.store.Upsert(ctx, bp.index, records...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: upsert batch %d: %w", core.ErrStoreWrite, n, err)
	}
	bp.logger.Info("upserted batch", "batch", n, "records", len(records))
	return len(records), nil
}

// split partitions items into consecutive batches of at most size.
func split(items []pending, size int) [][]pending {
	var batches [][]pending
	for start := 0; start < len(items); start += size {
		batches = append(batches, items[start:min(start+size, len(items))])
	}
	return batches
}
