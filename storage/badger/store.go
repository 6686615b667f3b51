package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/storage"
)

// scanCheckInterval is how many records a scan visits between context checks.
const scanCheckInterval = 256

// Store implements storage.VectorStore on BadgerDB with exhaustive scans.
type Store struct {
	backend *Backend
	owned   bool
	logger  *slog.Logger
}

var (
	_ storage.VectorStore    = (*Store)(nil)
	_ storage.IndexDescriber = (*Store)(nil)
	_ storage.Counter        = (*Store)(nil)
	_ storage.Scanner        = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// newStore is an internal constructor that returns the concrete type.
func newStore(backend *Backend, owned bool, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	s := &Store{
		backend: backend,
		owned:   owned,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "badger-store")
	return s, nil
}

// NewStore creates a vector store on an existing backend. Closing the store
// leaves the backend open.
func NewStore(backend *Backend, opts ...Option) (storage.VectorStore, error) {
	return newStore(backend, false, opts...)
}

// OpenStore opens a backend at path and returns a store that owns it.
func OpenStore(path string, inMemory bool, opts ...Option) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	s, err := newStore(backend, true, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

// EnsureIndex records the index definition if it is not present.
// BadgerDB indexes are ready as soon as they are written.
func (s *Store) EnsureIndex(ctx context.Context, name string, dimension int, metric core.Metric) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if name == "" || dimension <= 0 {
		return fmt.Errorf("%w: index name and positive dimension required", storage.ErrInvalidQuery)
	}
	metric, err := core.ParseMetric(string(metric))
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnsupportedMetric, err)
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readIndexInfo(tx, name)
		if err == nil {
			if existing.Dimension != dimension || existing.Metric != metric {
				s.logger.Warn("index exists with different settings",
					"index", name,
					"dimension", existing.Dimension,
					"metric", existing.Metric)
			}
			return nil
		}
		if !errors.Is(err, storage.ErrIndexNotFound) {
			return err
		}

		data, err := storage.MarshalIndexInfo(&storage.IndexInfo{Name: name, Dimension: dimension, Metric: metric})
		if err != nil {
			return err
		}
		if err := tx.Set(makeIndexKey(name), data); err != nil {
			return err
		}
		s.logger.Info("created index", "index", name, "dimension", dimension, "metric", metric)
		return tx.Commit()
	}, true)
}

// DescribeIndex returns the stored index definition.
func (s *Store) DescribeIndex(ctx context.Context, name string) (*storage.IndexInfo, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var info *storage.IndexInfo
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		info, err = readIndexInfo(tx, name)
		return err
	}, false)
	return info, err
}

// DeleteAll drops every record of the index. The definition is kept.
func (s *Store) DeleteAll(ctx context.Context, name string) error {
	if _, err := s.DescribeIndex(ctx, name); err != nil {
		return err
	}
	if err := s.backend.DropPrefix(makeVectorPrefix(name)); err != nil {
		return err
	}
	s.logger.Info("cleared index", "index", name)
	return nil
}

// Upsert writes records, overwriting existing records with the same ID.
func (s *Store) Upsert(ctx context.Context, name string, records ...*core.VectorRecord) error {
	info, err := s.DescribeIndex(ctx, name)
	if err != nil {
		return err
	}

	values := make([][]byte, len(records))
	for i, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return err
		}
		if len(record.Vector) != info.Dimension {
			return fmt.Errorf("%w: record %s has %d, index %s expects %d",
				storage.ErrDimensionMismatch, record.ID, len(record.Vector), name, info.Dimension)
		}
		stored := *record
		stored.Vector = storage.PrepareVector(record.Vector, info.Metric)
		if values[i], err = storage.MarshalRecord(&stored); err != nil {
			return err
		}
	}

	return s.backend.WithWriteBatch(func(wb *badger.WriteBatch) error {
		for i, record := range records {
			if err := wb.Set(makeVectorKey(name, record.ID), values[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Query scores every record of the index against vector and returns the
// topK best matches that pass filter.
func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int, filter map[string]any) ([]*core.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}
	info, err := s.DescribeIndex(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != info.Dimension {
		return nil, fmt.Errorf("%w: query has %d, index %s expects %d",
			storage.ErrDimensionMismatch, len(vector), name, info.Dimension)
	}
	query := storage.PrepareVector(vector, info.Metric)

	var matches []*core.Match
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		visited := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if visited++; visited%scanCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			var record *core.VectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if !storage.MatchesFilter(&record.Metadata, filter) {
				continue
			}
			matches = append(matches, &core.Match{
				ID:       record.ID,
				Score:    storage.Score(query, record.Vector, info.Metric),
				Metadata: record.Metadata,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by score descending
	slices.SortStableFunc(matches, func(a, b *core.Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of records in the index.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	if _, err := s.DescribeIndex(ctx, name); err != nil {
		return 0, err
	}
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorPrefix(name)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// IDs returns the record IDs of the index in key order.
func (s *Store) IDs(ctx context.Context, name string) ([]string, error) {
	if _, err := s.DescribeIndex(ctx, name); err != nil {
		return nil, err
	}
	prefix := makeVectorPrefix(name)
	var ids []string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			ids = append(ids, string(iter.Item().Key()[len(prefix):]))
		}
		return nil
	}, false)
	return ids, err
}

// Scan reads the index in key order and hands records to fn in batches.
// fn runs inside a read transaction, so writes it makes are not visible to
// the scan.
func (s *Store) Scan(ctx context.Context, name string, batchSize int, fn func([]*core.VectorRecord) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", storage.ErrInvalidQuery)
	}
	if _, err := s.DescribeIndex(ctx, name); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		batch := make([]*core.VectorRecord, 0, batchSize)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.VectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			batch = append(batch, record)
			if len(batch) == batchSize {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(batch); err != nil {
					return err
				}
				batch = make([]*core.VectorRecord, 0, batchSize)
			}
		}
		if len(batch) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(batch)
		}
		return nil
	}, false)
}

// Close closes the backend if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.backend.Close()
}

func (s *Store) check(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

func readIndexInfo(tx *badger.Txn, name string) (*storage.IndexInfo, error) {
	item, err := tx.Get(makeIndexKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrIndexNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	var info *storage.IndexInfo
	err = item.Value(func(val []byte) error {
		info, err = storage.UnmarshalIndexInfo(val)
		return err
	})
	return info, err
}
