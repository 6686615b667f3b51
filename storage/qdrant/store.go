package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/storage"
	qc "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	idField     = "_id"
	defaultPort = 6334
)

// pointsClient is the subset of the Qdrant client the store calls.
type pointsClient interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	GetCollectionInfo(ctx context.Context, name string) (*qc.CollectionInfo, error)
	CreateCollection(ctx context.Context, request *qc.CreateCollection) error
	Upsert(ctx context.Context, request *qc.UpsertPoints) (*qc.UpdateResult, error)
	Delete(ctx context.Context, request *qc.DeletePoints) (*qc.UpdateResult, error)
	Query(ctx context.Context, request *qc.QueryPoints) ([]*qc.ScoredPoint, error)
	Count(ctx context.Context, request *qc.CountPoints) (uint64, error)
	Close() error
}

var _ pointsClient = (*qc.Client)(nil)

// Store implements storage.VectorStore against a Qdrant server.
type Store struct {
	client       pointsClient
	apiKey       string
	poolSize     uint
	pollInterval time.Duration
	readyTimeout time.Duration
	logger       *slog.Logger
}

var (
	_ storage.VectorStore = (*Store)(nil)
	_ storage.Counter     = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store) error

// WithAPIKey sets the api-key sent with every call.
func WithAPIKey(key string) Option {
	return func(s *Store) error {
		s.apiKey = key
		return nil
	}
}

// WithPoolSize sets the number of gRPC connections.
func WithPoolSize(n uint) Option {
	return func(s *Store) error {
		if n == 0 {
			return errors.New("pool size must be positive")
		}
		s.poolSize = n
		return nil
	}
}

// WithReadiness sets how often and for how long EnsureIndex polls a new
// collection before giving up.
func WithReadiness(interval, timeout time.Duration) Option {
	return func(s *Store) error {
		if interval <= 0 || timeout <= 0 {
			return errors.New("readiness interval and timeout must be positive")
		}
		s.pollInterval = interval
		s.readyTimeout = timeout
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// New creates a store for the Qdrant gRPC endpoint at rawURL. An https
// scheme enables TLS; a missing port selects 6334. No connection is made
// until the first call.
func New(rawURL string, opts ...Option) (storage.VectorStore, error) {
	s, err := newStore(nil, opts...)
	if err != nil {
		return nil, err
	}
	cfg, err := clientConfig(rawURL)
	if err != nil {
		return nil, err
	}
	cfg.APIKey = s.apiKey
	cfg.PoolSize = s.poolSize

	client, err := qc.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s: %w", rawURL, err)
	}
	s.client = client
	s.logger.Info("qdrant client ready", "host", cfg.Host, "port", cfg.Port, "tls", cfg.UseTLS)
	return s, nil
}

func newStore(client pointsClient, opts ...Option) (*Store, error) {
	s := &Store{
		client:       client,
		poolSize:     1,
		pollInterval: 500 * time.Millisecond,
		readyTimeout: 30 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "qdrant-store")
	return s, nil
}

func clientConfig(rawURL string) (*qc.Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid qdrant url %q", rawURL)
	}
	cfg := &qc.Config{
		Host:                   u.Hostname(),
		Port:                   defaultPort,
		UseTLS:                 u.Scheme == "https",
		SkipCompatibilityCheck: true,
	}
	switch u.Scheme {
	case "http", "https", "grpc":
	default:
		return nil, fmt.Errorf("invalid qdrant url %q: unsupported scheme", rawURL)
	}
	if port := u.Port(); port != "" {
		if cfg.Port, err = strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("invalid qdrant url %q: %w", rawURL, err)
		}
	}
	return cfg, nil
}

// PointID maps a record ID to its Qdrant point ID.
func PointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func distance(metric core.Metric) (qc.Distance, error) {
	switch metric {
	case core.MetricCosine, "":
		return qc.Distance_Cosine, nil
	case core.MetricDotProduct:
		return qc.Distance_Dot, nil
	case core.MetricEuclidean:
		return qc.Distance_Euclid, nil
	}
	return qc.Distance_UnknownDistance, fmt.Errorf("%w: %q", storage.ErrUnsupportedMetric, metric)
}

// mapError turns a missing collection into storage.ErrIndexNotFound.
func mapError(name string, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s: %w", storage.ErrIndexNotFound, name, err)
	}
	return err
}

// EnsureIndex creates the collection if needed and waits for it to turn green.
func (s *Store) EnsureIndex(ctx context.Context, name string, dimension int, metric core.Metric) error {
	if name == "" || dimension <= 0 {
		return fmt.Errorf("%w: index name and positive dimension required", storage.ErrInvalidQuery)
	}
	dist, err := distance(metric)
	if err != nil {
		return err
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		info, err := s.client.GetCollectionInfo(ctx, name)
		if err != nil {
			return mapError(name, err)
		}
		if info.GetStatus() == qc.CollectionStatus_Green {
			return nil
		}
	} else {
		err := s.client.CreateCollection(ctx, &qc.CreateCollection{
			CollectionName: name,
			VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
				Size:     uint64(dimension),
				Distance: dist,
			}),
		})
		if err != nil {
			return err
		}
		s.logger.Info("created collection", "index", name, "dimension", dimension, "distance", dist.String())
	}

	return s.waitReady(ctx, name)
}

func (s *Store) waitReady(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, s.readyTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		info, err := s.client.GetCollectionInfo(ctx, name)
		if err != nil {
			return mapError(name, err)
		}
		if info.GetStatus() == qc.CollectionStatus_Green {
			return nil
		}
		s.logger.Debug("waiting for collection", "index", name, "status", info.GetStatus().String())
		select {
		case <-ctx.Done():
			return fmt.Errorf("collection %s not ready: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *Store) distanceOf(ctx context.Context, name string) (qc.Distance, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return qc.Distance_UnknownDistance, mapError(name, err)
	}
	return info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetDistance(), nil
}

// DeleteAll removes every point while keeping the collection.
func (s *Store) DeleteAll(ctx context.Context, name string) error {
	_, err := s.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: name,
		Wait:           qc.PtrOf(true),
		Points:         qc.NewPointsSelectorFilter(&qc.Filter{}),
	})
	return mapError(name, err)
}

// Upsert writes records as points and waits for the write to apply.
func (s *Store) Upsert(ctx context.Context, name string, records ...*core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*qc.PointStruct, len(records))
	for i, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return err
		}
		fields := record.Metadata.Fields()
		fields[idField] = record.ID
		payload, err := qc.TryValueMap(fields)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		points[i] = &qc.PointStruct{
			Id:      qc.NewIDUUID(PointID(record.ID)),
			Vectors: qc.NewVectorsDense(record.Vector),
			Payload: payload,
		}
	}
	_, err := s.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: name,
		Wait:           qc.PtrOf(true),
		Points:         points,
	})
	return mapError(name, err)
}

// Query runs a similarity search with optional equality filters.
func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int, metaFilter map[string]any) ([]*core.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}
	filter, err := buildFilter(metaFilter)
	if err != nil {
		return nil, err
	}
	dist, err := s.distanceOf(ctx, name)
	if err != nil {
		return nil, err
	}

	points, err := s.client.Query(ctx, &qc.QueryPoints{
		CollectionName: name,
		Query:          qc.NewQueryDense(vector),
		Filter:         filter,
		Limit:          qc.PtrOf(uint64(topK)),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, mapError(name, err)
	}

	matches := make([]*core.Match, 0, len(points))
	for _, p := range points {
		id, meta := fromPayload(p.GetPayload())
		score := p.GetScore()
		if dist == qc.Distance_Euclid {
			score = 1 / (1 + score)
		}
		matches = append(matches, &core.Match{ID: id, Score: score, Metadata: meta})
	}
	return matches, nil
}

// Count returns the exact number of points in the collection.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	n, err := s.client.Count(ctx, &qc.CountPoints{
		CollectionName: name,
		Exact:          qc.PtrOf(true),
	})
	if err != nil {
		return 0, mapError(name, err)
	}
	return int(n), nil
}

// Close releases the gRPC connections.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// buildFilter turns equality filters into Qdrant match conditions.
func buildFilter(metaFilter map[string]any) (*qc.Filter, error) {
	if len(metaFilter) == 0 {
		return nil, nil
	}
	filter := &qc.Filter{}
	for key, value := range metaFilter {
		var cond *qc.Condition
		switch v := value.(type) {
		case string:
			cond = qc.NewMatchKeyword(key, v)
		case int:
			cond = qc.NewMatchInt(key, int64(v))
		case int64:
			cond = qc.NewMatchInt(key, v)
		case bool:
			cond = qc.NewMatchBool(key, v)
		default:
			return nil, fmt.Errorf("%w: unsupported filter value for %q: %T", storage.ErrInvalidQuery, key, value)
		}
		filter.Must = append(filter.Must, cond)
	}
	return filter, nil
}

func fromPayload(payload map[string]*qc.Value) (string, core.Metadata) {
	str := func(key string) string { return payload[key].GetStringValue() }
	num := func(key string) int { return int(payload[key].GetIntegerValue()) }
	return str(idField), core.Metadata{
		Text:       str("text"),
		Category:   str("category"),
		Topic:      str("topic"),
		URL:        str("url"),
		Title:      str("title"),
		Source:     str("source"),
		ChunkIndex: num("chunkIndex"),
		ChunkCount: num("chunkCount"),
	}
}
