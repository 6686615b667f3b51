package ragline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/ragline/acquire"
	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/ai/mock"
	"github.com/poiesic/ragline/config"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/ingestion"
	"github.com/poiesic/ragline/seed"
	"github.com/poiesic/ragline/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearch struct {
	results []acquire.RawResult
}

func (s *stubSearch) Name() string { return "stub" }

func (s *stubSearch) SearchAndFetch(ctx context.Context, query string, maxResults int, domains []string) ([]acquire.RawResult, error) {
	return s.results, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return "", fmt.Errorf("%w: offline", acquire.ErrUnexpectedStatus)
}

// closeCounter records Close calls on the provider it wraps.
type closeCounter struct {
	ai.AIProvider
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return c.AIProvider.Close()
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.InMemory = true
	cfg.Store.Path = ""
	cfg.AI.Dimensions = mock.DefaultDimensions
	cfg.Ingest.MaxAttempts = 1
	return cfg
}

func page(url string, sentences int) acquire.RawResult {
	var b strings.Builder
	for i := range sentences {
		fmt.Fprintf(&b, "Page %s sentence %d explains the card in plain words. ", url, i)
	}
	return acquire.RawResult{URL: url, Title: "Page " + url, Text: b.String()}
}

func openTest(t *testing.T, opts ...Option) (*Knowledge, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProvider().(*mock.MockProvider)
	opts = append([]Option{WithProvider(provider), WithFetcher(stubFetcher{})}, opts...)
	k, err := Open(testConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { k.Close() })
	return k, provider
}

func TestOpen_Defaults(t *testing.T) {
	cfg := testConfig()
	k, err := Open(cfg)
	require.NoError(t, err)
	defer k.Close()

	// Without a credential the provider reports itself unavailable.
	_, err = k.provider.Embedder().EmbedText(context.Background(), "x")
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Type = "unknown"
	_, err := Open(cfg)
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	search := &stubSearch{results: []acquire.RawResult{
		page("https://ex.com/a", 30),
		page("https://ex.com/b", 5),
		page("https://ex.com/a?ref=x", 30),
		{URL: "https://ex.com/short", Text: "too short"},
	}}
	k, _ := openTest(t, WithSearchProvider(search))
	ctx := context.Background()

	stats, err := k.Refresh(ctx, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Docs)
	assert.Greater(t, stats.Chunks, 2)
	assert.Equal(t, stats.Chunks, stats.Upserted)

	count, err := k.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.Chunks, count)

	// Refreshing again is idempotent.
	again, err := k.Refresh(ctx, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, stats, again)
	count, err = k.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.Chunks, count)
}

func TestRefresh_ClearOld(t *testing.T) {
	search := &stubSearch{results: []acquire.RawResult{page("https://ex.com/a", 30)}}
	k, _ := openTest(t, WithSearchProvider(search))
	ctx := context.Background()

	_, err := k.Seed(ctx)
	require.NoError(t, err)

	stats, err := k.Refresh(ctx, 5, &ingestion.IngestOptions{ClearOld: true})
	require.NoError(t, err)

	count, err := k.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.Upserted, count)
}

func TestSeedAndAsk(t *testing.T) {
	k, provider := openTest(t)
	ctx := context.Background()

	written, err := k.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(seed.Default()), written)

	entry := seed.Default()[0]
	passages, err := k.Search(ctx, entry.Content, 3)
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	assert.Equal(t, entry.Content, passages[0].Text)

	resp := k.Ask(ctx, entry.Content, []core.Turn{{Role: "user", Content: "hello"}})
	assert.Equal(t, "mock answer", resp.Text)
	assert.Contains(t, resp.Contexts, entry.Content)

	prompt := provider.GetMockCompleter().LastPrompt()
	assert.Contains(t, prompt.Context, entry.Content)
	assert.Contains(t, prompt.User, "user: hello")
}

func TestSearch_FallsBackWhenProviderUnavailable(t *testing.T) {
	cfg := testConfig()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	k, err := Open(cfg, WithStore(store), WithProvider(ai.NewUnavailableProvider("test")))
	require.NoError(t, err)
	defer k.Close()

	passages, err := k.Search(context.Background(), "fee", 2)
	require.NoError(t, err)
	want := seed.Default().Match("fee", 2)
	require.Len(t, passages, len(want))
	for i := range want {
		assert.Equal(t, want[i].Content, passages[i].Text)
	}

	resp := k.Ask(context.Background(), "fee", nil)
	assert.Contains(t, resp.Text, cfg.Assistant.SupportContact)

	// A borrowed store stays open.
	require.NoError(t, k.Close())
	require.NoError(t, store.EnsureIndex(context.Background(), "still-open", 3, core.MetricCosine))
}

func TestClose_LeavesBorrowedProviderOpen(t *testing.T) {
	provider := &closeCounter{AIProvider: mock.NewMockProvider()}
	k, err := Open(testConfig(), WithProvider(provider), WithFetcher(stubFetcher{}))
	require.NoError(t, err)

	require.NoError(t, k.Close())
	assert.Equal(t, 0, provider.closed)

	// The caller can keep embedding with it.
	_, err = provider.Embedder().EmbedText(context.Background(), "still usable")
	require.NoError(t, err)
}

func TestClear(t *testing.T) {
	k, _ := openTest(t)
	ctx := context.Background()

	_, err := k.Seed(ctx)
	require.NoError(t, err)
	require.NoError(t, k.Clear(ctx))

	count, err := k.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRefresh_UsesConfiguredLimit(t *testing.T) {
	var results []acquire.RawResult
	for i := range 30 {
		results = append(results, page(fmt.Sprintf("https://ex.com/%d", i), 5))
	}
	k, _ := openTest(t, WithSearchProvider(&stubSearch{results: results}))

	stats, err := k.Refresh(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Ingest.Limit, stats.Docs)
}

func TestReembed(t *testing.T) {
	k, provider := openTest(t)
	ctx := context.Background()

	written, err := k.Seed(ctx)
	require.NoError(t, err)

	embedder := provider.GetMockEmbedder()
	before := embedder.CallCount()
	n, err := k.Reembed(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, written, n)
	assert.Greater(t, embedder.CallCount(), before)

	n, err = k.Reembed(ctx, "knowledge-v2")
	require.NoError(t, err)
	assert.Equal(t, written, n)

	count, err := k.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, written, count)
}
