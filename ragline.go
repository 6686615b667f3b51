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


package ragline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/ragline/acquire"
	"github.com/poiesic/ragline/acquire/exa"
	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/ai/openai"
	"github.com/poiesic/ragline/answer"
	"github.com/poiesic/ragline/config"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/ingestion"
	"github.com/poiesic/ragline/reembed"
	"github.com/poiesic/ragline/search"
	"github.com/poiesic/ragline/seed"
	"github.com/poiesic/ragline/storage"
	"github.com/poiesic/ragline/storage/badger"
	"github.com/poiesic/ragline/storage/qdrant"
)

// Knowledge is a knowledge base: acquisition, ingestion, retrieval and
// grounded answers over one vector index.
type Knowledge struct {
	cfg          *config.Config
	store        storage.VectorStore
	ownsStore    bool
	provider     ai.AIProvider
	ownsProvider bool
	acquirer     *acquire.Acquirer
	pipeline     *ingestion.Pipeline
	retriever    *search.Retriever
	responder    *answer.Responder
	corpus       seed.Corpus
	progress     io.Writer
	logger       *slog.Logger
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	logger         *slog.Logger
	store          storage.VectorStore
	provider       ai.AIProvider
	searchProvider acquire.SearchProvider
	fetcher        acquire.Fetcher
	progress       io.Writer
	corpus         seed.Corpus
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *openOptions) {
		o.logger = logger
	}
}

// WithStore uses store instead of the configured one. The caller keeps
// ownership and must close it.
func WithStore(store storage.VectorStore) Option {
	return func(o *openOptions) {
		o.store = store
	}
}

// WithProvider uses provider instead of the configured AI provider.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *openOptions) {
		o.provider = provider
	}
}

// WithSearchProvider uses provider for web search instead of Exa.
func WithSearchProvider(provider acquire.SearchProvider) Option {
	return func(o *openOptions) {
		o.searchProvider = provider
	}
}

// WithFetcher uses fetcher for direct page fetches.
func WithFetcher(fetcher acquire.Fetcher) Option {
	return func(o *openOptions) {
		o.fetcher = fetcher
	}
}

// WithProgress reports ingestion progress to w.
func WithProgress(w io.Writer) Option {
	return func(o *openOptions) {
		o.progress = w
	}
}

// WithCorpus replaces the bundled seed corpus.
func WithCorpus(corpus seed.Corpus) Option {
	return func(o *openOptions) {
		o.corpus = corpus
	}
}

// Open builds a Knowledge from cfg. A nil cfg uses config.Default().
func Open(cfg *config.Config, opts ...Option) (*Knowledge, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &openOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.corpus == nil {
		o.corpus = seed.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	k := &Knowledge{cfg: cfg, corpus: o.corpus, progress: o.progress, logger: o.logger.With("component", "knowledge")}

	store, owned, err := openStore(cfg, o)
	if err != nil {
		return nil, err
	}
	k.store, k.ownsStore = store, owned

	provider, owned, err := openProvider(cfg, o)
	if err != nil {
		k.Close()
		return nil, err
	}
	k.provider, k.ownsProvider = provider, owned

	if err := k.build(cfg, o); err != nil {
		k.Close()
		return nil, err
	}
	return k, nil
}

func openStore(cfg *config.Config, o *openOptions) (storage.VectorStore, bool, error) {
	if o.store != nil {
		return o.store, false, nil
	}
	switch cfg.Store.Type {
	case config.StoreQdrant:
		store, err := qdrant.New(cfg.Store.Qdrant.URL,
			qdrant.WithAPIKey(cfg.Store.Qdrant.APIKey),
			qdrant.WithLogger(o.logger))
		return store, true, err
	default:
		store, err := badger.OpenStore(cfg.Store.Path, cfg.Store.InMemory, badger.WithLogger(o.logger))
		return store, true, err
	}
}

func openProvider(cfg *config.Config, o *openOptions) (ai.AIProvider, bool, error) {
	if o.provider != nil {
		return o.provider, false, nil
	}
	pc := cfg.ProviderConfig()
	if !pc.Configured() {
		o.logger.Warn("no AI credential configured, embedding and completion are unavailable",
			"env", config.EnvOpenAIKey)
		return ai.NewUnavailableProvider(config.EnvOpenAIKey + " not set"), true, nil
	}
	provider, err := openai.NewProvider(pc, openai.WithLogger(o.logger))
	if err != nil {
		return nil, false, err
	}
	return provider, true, nil
}

func (k *Knowledge) build(cfg *config.Config, o *openOptions) error {
	metric, err := core.ParseMetric(cfg.Store.Metric)
	if err != nil {
		return err
	}

	var searchProvider acquire.SearchProvider
	switch {
	case o.searchProvider != nil:
		searchProvider = o.searchProvider
	case cfg.Exa.APIKey != "":
		client, err := exa.New(cfg.Exa.APIKey,
			exa.WithBaseURL(cfg.Exa.BaseURL),
			exa.WithRateLimit(cfg.Exa.RatePerSecond, 1),
			exa.WithLogger(o.logger))
		if err != nil {
			return err
		}
		searchProvider = client
	default:
		k.logger.Warn("no search credential configured, acquisition uses direct fetches only",
			"env", config.EnvExaKey)
	}

	acqOpts := []acquire.Option{acquire.WithLogger(o.logger)}
	if len(cfg.Ingest.Queries) > 0 {
		acqOpts = append(acqOpts, acquire.WithQueries(cfg.Ingest.Queries...))
	}
	if len(cfg.Ingest.Domains) > 0 {
		acqOpts = append(acqOpts, acquire.WithDomains(cfg.Ingest.Domains...))
	}
	if len(cfg.Ingest.FallbackURLs) > 0 {
		acqOpts = append(acqOpts, acquire.WithFallbackURLs(cfg.Ingest.FallbackURLs...))
	}
	if o.fetcher != nil {
		acqOpts = append(acqOpts, acquire.WithFetcher(o.fetcher))
	}
	if k.acquirer, err = acquire.New(searchProvider, acqOpts...); err != nil {
		return err
	}

	pipeOpts := []ingestion.Option{
		ingestion.WithIndex(cfg.Store.Index, cfg.AI.Dimensions, metric),
		ingestion.WithConcurrency(cfg.Ingest.Concurrency),
		ingestion.WithTopic(cfg.Ingest.Topic),
		ingestion.WithLogger(o.logger),
	}
	if cfg.Ingest.MaxAttempts > 0 {
		pipeOpts = append(pipeOpts, ingestion.WithRetry(cfg.Ingest.MaxAttempts, cfg.Ingest.RetryDelay))
	}
	if o.progress != nil {
		pipeOpts = append(pipeOpts, ingestion.WithProgress(o.progress))
	}
	if k.pipeline, err = ingestion.NewPipeline(k.store, k.provider.Embedder(), pipeOpts...); err != nil {
		return err
	}

	if k.retriever, err = search.NewRetriever(k.provider.Embedder(), k.store,
		search.WithIndex(cfg.Store.Index),
		search.WithCorpus(k.corpus),
		search.WithMonitor(&search.LogMonitor{Logger: o.logger}),
		search.WithLogger(o.logger),
	); err != nil {
		return err
	}

	respOpts := []answer.Option{
		answer.WithSupportContact(cfg.Assistant.SupportContact),
		answer.WithHistoryTurns(cfg.Assistant.HistoryTurns),
		answer.WithLogger(o.logger),
	}
	if cfg.Assistant.TopK > 0 {
		respOpts = append(respOpts, answer.WithTopK(cfg.Assistant.TopK))
	}
	if cfg.Assistant.SystemPrompt != "" {
		respOpts = append(respOpts, answer.WithSystemPrompt(cfg.Assistant.SystemPrompt))
	}
	k.responder, err = answer.NewResponder(k.retriever, k.provider.Completer(), respOpts...)
	return err
}

// Refresh acquires up to limit documents and ingests them. A limit of zero
// or less uses the configured limit. Zero fields of opts take configured
// values.
func (k *Knowledge) Refresh(ctx context.Context, limit int, opts *ingestion.IngestOptions) (*core.IngestStats, error) {
	if limit <= 0 {
		limit = k.cfg.Ingest.Limit
	}
	k.logger.Info("acquiring knowledge", "limit", limit)
	docs, err := k.acquirer.Acquire(ctx, limit)
	if err != nil {
		return nil, err
	}
	k.logger.Info("ingesting acquired documents", "count", len(docs))
	return k.Ingest(ctx, docs, opts)
}

// Ingest writes docs into the index.
func (k *Knowledge) Ingest(ctx context.Context, docs []*core.SourceDocument, opts *ingestion.IngestOptions) (*core.IngestStats, error) {
	o := ingestion.IngestOptions{}
	if opts != nil {
		o = *opts
	}
	if o.ChunkMaxLength <= 0 {
		o.ChunkMaxLength = k.cfg.Ingest.ChunkMaxLength
	}
	if o.BatchSize <= 0 {
		o.BatchSize = k.cfg.Ingest.BatchSize
	}
	return k.pipeline.Ingest(ctx, docs, &o)
}

// Seed loads the seed corpus into the index and returns the records written.
func (k *Knowledge) Seed(ctx context.Context) (int, error) {
	return k.pipeline.IngestSeed(ctx, k.corpus)
}

// Search returns up to topK passages for query.
func (k *Knowledge) Search(ctx context.Context, query string, topK int) ([]core.Passage, error) {
	return k.retriever.Search(ctx, query, topK)
}

// Ask answers query using retrieved context and the conversation history.
func (k *Knowledge) Ask(ctx context.Context, query string, history []core.Turn) answer.Response {
	return k.responder.Respond(ctx, query, history)
}

// Clear removes every record from the index.
func (k *Knowledge) Clear(ctx context.Context) error {
	metric, err := core.ParseMetric(k.cfg.Store.Metric)
	if err != nil {
		return err
	}
	index := k.pipeline.Index()
	if err := k.store.EnsureIndex(ctx, index, k.cfg.AI.Dimensions, metric); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreWrite, err)
	}
	if err := k.store.DeleteAll(ctx, index); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreWrite, err)
	}
	k.logger.Info("cleared knowledge base", "index", index)
	return nil
}

// Count returns the number of records in the index, when the store can
// count.
func (k *Knowledge) Count(ctx context.Context) (int, error) {
	counter, ok := k.store.(storage.Counter)
	if !ok {
		return 0, errors.New("store cannot count records")
	}
	n, err := counter.Count(ctx, k.pipeline.Index())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrStoreRead, err)
	}
	return n, nil
}

// Reembed recomputes every vector of the index with the current embedder.
// An empty target rewrites the index in place; otherwise the vectors go to
// the target index, created with the configured dimension and metric.
func (k *Knowledge) Reembed(ctx context.Context, target string) (int, error) {
	opts := []reembed.Option{
		reembed.WithSource(k.pipeline.Index()),
		reembed.WithBatchSize(k.cfg.Ingest.BatchSize),
		reembed.WithLogger(k.logger),
	}
	if target != "" {
		metric, err := core.ParseMetric(k.cfg.Store.Metric)
		if err != nil {
			return 0, err
		}
		opts = append(opts, reembed.WithTarget(target, k.cfg.AI.Dimensions, metric))
	}
	if k.cfg.Ingest.MaxAttempts > 0 {
		opts = append(opts, reembed.WithRetry(k.cfg.Ingest.MaxAttempts, k.cfg.Ingest.RetryDelay))
	}
	if k.progress != nil {
		opts = append(opts, reembed.WithProgress(k.progress))
	}
	r, err := reembed.NewReembedder(k.store, k.provider.Embedder(), opts...)
	if err != nil {
		return 0, err
	}
	return r.Run(ctx)
}

// Close releases the pipeline and, when Open created them, the provider and
// the store.
func (k *Knowledge) Close() error {
	if k.pipeline != nil {
		k.pipeline.Release()
	}
	if k.provider != nil && k.ownsProvider {
		if err := k.provider.Close(); err != nil {
			k.logger.Error("error closing AI provider", "err", err)
		}
	}
	if k.store != nil && k.ownsStore {
		if err := k.store.Close(); err != nil {
			k.logger.Error("error closing vector store", "err", err)
			return err
		}
	}
	return nil
}
