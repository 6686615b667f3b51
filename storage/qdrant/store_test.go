package qdrant

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/storage"
	qc "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeClient keeps collections in memory and answers the calls the store makes.
type fakeClient struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection
	pendingGets int // info calls answered "yellow" after creation
	queries     []*qc.QueryPoints
	closed      int
}

type fakeCollection struct {
	params *qc.VectorParams
	polls  int
	points map[string]*qc.PointStruct
}

var _ pointsClient = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{collections: map[string]*fakeCollection{}}
}

func notFound(name string) error {
	return status.Errorf(codes.NotFound, "Collection `%s` doesn't exist", name)
}

func (f *fakeClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeClient) GetCollectionInfo(ctx context.Context, name string) (*qc.CollectionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.collections[name]
	if c == nil {
		return nil, notFound(name)
	}
	state := qc.CollectionStatus_Green
	if c.polls < f.pendingGets {
		state = qc.CollectionStatus_Yellow
	}
	c.polls++
	return &qc.CollectionInfo{
		Status: state,
		Config: &qc.CollectionConfig{
			Params: &qc.CollectionParams{VectorsConfig: qc.NewVectorsConfig(c.params)},
		},
	}, nil
}

func (f *fakeClient) CreateCollection(ctx context.Context, request *qc.CreateCollection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[request.GetCollectionName()] = &fakeCollection{
		params: request.GetVectorsConfig().GetParams(),
		points: map[string]*qc.PointStruct{},
	}
	return nil
}

func (f *fakeClient) Upsert(ctx context.Context, request *qc.UpsertPoints) (*qc.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.collections[request.GetCollectionName()]
	if c == nil {
		return nil, notFound(request.GetCollectionName())
	}
	for _, p := range request.GetPoints() {
		if uint64(len(denseOf(p))) != c.params.GetSize() {
			return nil, status.Error(codes.InvalidArgument, "Wrong input: Vector dimension error")
		}
		c.points[p.GetId().GetUuid()] = p
	}
	return &qc.UpdateResult{Status: qc.UpdateStatus_Completed}, nil
}

func (f *fakeClient) Delete(ctx context.Context, request *qc.DeletePoints) (*qc.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.collections[request.GetCollectionName()]
	if c == nil {
		return nil, notFound(request.GetCollectionName())
	}
	filter := request.GetPoints().GetFilter()
	for id, p := range c.points {
		if matchesFilter(p.GetPayload(), filter) {
			delete(c.points, id)
		}
	}
	return &qc.UpdateResult{Status: qc.UpdateStatus_Completed}, nil
}

func (f *fakeClient) Query(ctx context.Context, request *qc.QueryPoints) ([]*qc.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, request)
	c := f.collections[request.GetCollectionName()]
	if c == nil {
		return nil, notFound(request.GetCollectionName())
	}
	query := request.GetQuery().GetNearest().GetDense().GetData()
	euclid := c.params.GetDistance() == qc.Distance_Euclid

	var hits []*qc.ScoredPoint
	for _, p := range c.points {
		if !matchesFilter(p.GetPayload(), request.GetFilter()) {
			continue
		}
		vector := denseOf(p)
		score := storage.DotProduct(storage.NormalizeVector(query), storage.NormalizeVector(vector))
		if euclid {
			score = float32(storage.EuclideanDistance(query, vector))
		}
		hits = append(hits, &qc.ScoredPoint{Id: p.GetId(), Payload: p.GetPayload(), Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if euclid {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].Score > hits[j].Score
	})
	if limit := int(request.GetLimit()); len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeClient) Count(ctx context.Context, request *qc.CountPoints) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.collections[request.GetCollectionName()]
	if c == nil {
		return 0, notFound(request.GetCollectionName())
	}
	return uint64(len(c.points)), nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func denseOf(p *qc.PointStruct) []float32 {
	return p.GetVectors().GetVector().GetDense().GetData()
}

func matchesFilter(payload map[string]*qc.Value, filter *qc.Filter) bool {
	for _, cond := range filter.GetMust() {
		field := cond.GetField()
		value := payload[field.GetKey()]
		switch m := field.GetMatch().GetMatchValue().(type) {
		case *qc.Match_Keyword:
			if value.GetStringValue() != m.Keyword {
				return false
			}
		case *qc.Match_Integer:
			if value.GetIntegerValue() != m.Integer {
				return false
			}
		case *qc.Match_Boolean:
			if value.GetBoolValue() != m.Boolean {
				return false
			}
		}
	}
	return true
}

func newTestStore(t *testing.T, fake *fakeClient) *Store {
	t.Helper()
	s, err := newStore(fake, WithReadiness(time.Millisecond, time.Second))
	require.NoError(t, err)
	return s
}

func rec(id string, vector ...float32) *core.VectorRecord {
	return &core.VectorRecord{ID: id, Vector: vector, Metadata: core.Metadata{
		Text:       "text " + id,
		Topic:      "fees",
		URL:        "https://ex.com/" + id,
		ChunkIndex: 2,
		ChunkCount: 3,
	}}
}

func TestEnsureIndex(t *testing.T) {
	fake := newFakeClient()
	fake.pendingGets = 2
	s := newTestStore(t, fake)
	ctx := context.Background()

	require.NoError(t, s.EnsureIndex(ctx, "kb", 3, core.MetricCosine))
	require.NoError(t, s.EnsureIndex(ctx, "kb", 3, core.MetricCosine))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Contains(t, fake.collections, "kb")
	assert.Equal(t, qc.Distance_Cosine, fake.collections["kb"].params.GetDistance())
	assert.Equal(t, uint64(3), fake.collections["kb"].params.GetSize())
	assert.GreaterOrEqual(t, fake.collections["kb"].polls, 3, "waited for green")
}

func TestEnsureIndex_Invalid(t *testing.T) {
	s := newTestStore(t, newFakeClient())
	ctx := context.Background()

	assert.ErrorIs(t, s.EnsureIndex(ctx, "kb", 0, core.MetricCosine), storage.ErrInvalidQuery)
	assert.ErrorIs(t, s.EnsureIndex(ctx, "kb", 3, "manhattan"), storage.ErrUnsupportedMetric)
}

func TestEnsureIndex_NotReady(t *testing.T) {
	fake := newFakeClient()
	fake.pendingGets = 1 << 20
	s, err := newStore(fake, WithReadiness(time.Millisecond, 20*time.Millisecond))
	require.NoError(t, err)

	err = s.EnsureIndex(context.Background(), "kb", 3, core.MetricCosine)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpsertQueryDelete(t *testing.T) {
	fake := newFakeClient()
	s := newTestStore(t, fake)
	ctx := context.Background()
	require.NoError(t, s.EnsureIndex(ctx, "kb", 2, core.MetricCosine))

	require.NoError(t, s.Upsert(ctx, "kb", rec("a:0", 1, 0), rec("a:1", 0, 1)))
	require.NoError(t, s.Upsert(ctx, "kb", rec("a:0", 1, 0.1)))

	count, err := s.Count(ctx, "kb")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "upsert overwrites by id")

	matches, err := s.Query(ctx, "kb", []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a:0", matches[0].ID)
	assert.Equal(t, core.Metadata{
		Text:       "text a:0",
		Topic:      "fees",
		URL:        "https://ex.com/a:0",
		ChunkIndex: 2,
		ChunkCount: 3,
	}, matches[0].Metadata)
	assert.Greater(t, matches[0].Score, float32(0.9))

	matches, err = s.Query(ctx, "kb", []float32{1, 0}, 5, map[string]any{"topic": "other"})
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = s.Query(ctx, "kb", []float32{1, 0}, 5, map[string]any{"topic": "fees", "chunkIndex": 2})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	require.NoError(t, s.DeleteAll(ctx, "kb"))
	count, err = s.Count(ctx, "kb")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpsert_UsesStablePointIDs(t *testing.T) {
	fake := newFakeClient()
	s := newTestStore(t, fake)
	ctx := context.Background()
	require.NoError(t, s.EnsureIndex(ctx, "kb", 2, core.MetricCosine))
	require.NoError(t, s.Upsert(ctx, "kb", rec("https://ex.com/a:0", 1, 0)))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	p, ok := fake.collections["kb"].points[PointID("https://ex.com/a:0")]
	require.True(t, ok)
	assert.Equal(t, "https://ex.com/a:0", p.GetPayload()[idField].GetStringValue())
}

func TestQuery_Filter(t *testing.T) {
	fake := newFakeClient()
	s := newTestStore(t, fake)
	ctx := context.Background()
	require.NoError(t, s.EnsureIndex(ctx, "kb", 2, core.MetricCosine))

	_, err := s.Query(ctx, "kb", []float32{1, 0}, 3, map[string]any{"topic": "fees"})
	require.NoError(t, err)
	require.Len(t, fake.queries, 1)
	req := fake.queries[0]
	assert.Equal(t, uint64(3), req.GetLimit())
	require.Len(t, req.GetFilter().GetMust(), 1)
	assert.Equal(t, "topic", req.GetFilter().GetMust()[0].GetField().GetKey())
	assert.Equal(t, "fees", req.GetFilter().GetMust()[0].GetField().GetMatch().GetKeyword())

	_, err = s.Query(ctx, "kb", []float32{1, 0}, 3, map[string]any{"score": 0.5})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = s.Query(ctx, "kb", []float32{1, 0}, 0, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestQuery_Euclid(t *testing.T) {
	s := newTestStore(t, newFakeClient())
	ctx := context.Background()
	require.NoError(t, s.EnsureIndex(ctx, "kb", 2, core.MetricEuclidean))
	require.NoError(t, s.Upsert(ctx, "kb", rec("near", 1, 1), rec("far", 4, 5)))

	matches, err := s.Query(ctx, "kb", []float32{1, 1}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "near", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.InDelta(t, 1.0/6.0, matches[1].Score, 1e-6)
}

func TestErrors(t *testing.T) {
	s := newTestStore(t, newFakeClient())
	ctx := context.Background()

	_, err := s.Query(ctx, "missing", []float32{1}, 1, nil)
	assert.ErrorIs(t, err, storage.ErrIndexNotFound)

	_, err = s.Count(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrIndexNotFound)

	assert.ErrorIs(t, s.DeleteAll(ctx, "missing"), storage.ErrIndexNotFound)

	require.NoError(t, s.EnsureIndex(ctx, "kb", 2, core.MetricCosine))
	err = s.Upsert(ctx, "kb", rec("bad", 1, 2, 3))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestClose(t *testing.T) {
	fake := newFakeClient()
	s := newTestStore(t, fake)
	require.NoError(t, s.Close())
	assert.Equal(t, 1, fake.closed)
}

func TestPointID(t *testing.T) {
	assert.Equal(t, PointID("abc:1"), PointID("abc:1"))
	assert.NotEqual(t, PointID("abc:1"), PointID("abc:2"))
	assert.Len(t, PointID("abc:1"), 36)
}

func TestClientConfig(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		host    string
		port    int
		tls     bool
		wantErr bool
	}{
		{name: "default port", url: "http://qdrant", host: "qdrant", port: 6334},
		{name: "explicit port", url: "http://localhost:7334", host: "localhost", port: 7334},
		{name: "tls", url: "https://cloud.example.com:6334", host: "cloud.example.com", port: 6334, tls: true},
		{name: "grpc scheme", url: "grpc://10.0.0.5:6334", host: "10.0.0.5", port: 6334},
		{name: "no host", url: "not a url", wantErr: true},
		{name: "bad scheme", url: "ftp://qdrant:6334", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := clientConfig(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, cfg.Host)
			assert.Equal(t, tt.port, cfg.Port)
			assert.Equal(t, tt.tls, cfg.UseTLS)
			assert.True(t, cfg.SkipCompatibilityCheck)
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)

	_, err = New("http://localhost:6334", WithPoolSize(0))
	assert.Error(t, err)

	// Connections are lazy, so no server is needed.
	store, err := New("http://localhost:6334", WithAPIKey("secret"))
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}
