package storage

import (
	"context"

	"github.com/poiesic/ragline/core"
)

// VectorStore is a vector index keyed by record ID.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// EnsureIndex creates the named index if it does not exist and blocks
	// until the index is ready. Calling it for an existing index is a no-op.
	EnsureIndex(ctx context.Context, name string, dimension int, metric core.Metric) error

	// DeleteAll removes every record from the named index. The index itself
	// is kept.
	DeleteAll(ctx context.Context, name string) error

	// Upsert writes records into the named index, overwriting any record
	// with the same ID.
	Upsert(ctx context.Context, name string, records ...*core.VectorRecord) error

	// Query returns up to topK records most similar to vector, ordered by
	// score (highest first). A non-empty filter keeps only records whose
	// metadata fields equal every filter value.
	Query(ctx context.Context, name string, vector []float32, topK int, filter map[string]any) ([]*core.Match, error)

	// Close releases resources held by the store.
	Close() error
}

// IndexInfo describes an index.
type IndexInfo struct {
	Name      string      `json:"name"`
	Dimension int         `json:"dimension"`
	Metric    core.Metric `json:"metric"`
}

// IndexDescriber is implemented by stores that can report index details.
type IndexDescriber interface {
	DescribeIndex(ctx context.Context, name string) (*IndexInfo, error)
}

// Counter is implemented by stores that can count the records of an index.
type Counter interface {
	Count(ctx context.Context, name string) (int, error)
}

// Scanner is implemented by stores that can walk every record of an index.
// fn receives batches of at most batchSize records; an error from fn stops
// the scan and is returned.
type Scanner interface {
	Scan(ctx context.Context, name string, batchSize int, fn func([]*core.VectorRecord) error) error
}
