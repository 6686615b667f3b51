package acquire

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/normalize"
)

const (
	// DefaultLimit is the number of documents requested when none is given.
	DefaultLimit = 15

	// DefaultMinResults is the accepted-result count below which the
	// fallback pages are fetched.
	DefaultMinResults = 5

	// minPerQuery is the smallest per-query result request.
	minPerQuery = 3
)

// DefaultQueries target product, support and app content.
var DefaultQueries = []string{
	"site:aven.com Aven credit card balance transfer rewards fees",
	"site:aven.com support help contact privacy security",
	"site:aven.com app iOS Android features",
	"Aven fintech credit card overview",
}

// DefaultDomains is the search domain allowlist.
var DefaultDomains = []string{
	"aven.com",
	"www.aven.com",
	"tryaven.com",
	"www.tryaven.com",
	"blog.aven.com",
}

// DefaultFallbackURLs are fetched directly when search yields too little.
var DefaultFallbackURLs = []string{
	"https://www.aven.com/",
	"https://www.aven.com/legal/privacy",
	"https://www.aven.com/legal/terms",
	"https://www.aven.com/help",
}

// Acquirer produces a deduplicated, bounded set of cleaned documents.
type Acquirer struct {
	provider     SearchProvider
	fetcher      Fetcher
	queries      []string
	domains      []string
	fallbackURLs []string
	minResults   int
	logger       *slog.Logger
}

// Option configures an Acquirer.
type Option func(*Acquirer) error

// WithQueries replaces the search queries.
func WithQueries(queries ...string) Option {
	return func(a *Acquirer) error {
		if len(queries) == 0 {
			return ErrNoQueries
		}
		a.queries = queries
		return nil
	}
}

// WithDomains replaces the domain allowlist.
func WithDomains(domains ...string) Option {
	return func(a *Acquirer) error {
		a.domains = domains
		return nil
	}
}

// WithFallbackURLs replaces the directly fetched pages.
func WithFallbackURLs(urls ...string) Option {
	return func(a *Acquirer) error {
		a.fallbackURLs = urls
		return nil
	}
}

// WithFetcher sets the fetcher used for fallback pages.
func WithFetcher(f Fetcher) Option {
	return func(a *Acquirer) error {
		if f == nil {
			return ErrFetcherRequired
		}
		a.fetcher = f
		return nil
	}
}

// WithMinResults sets the accepted-result count that triggers the fallback.
func WithMinResults(n int) Option {
	return func(a *Acquirer) error {
		a.minResults = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Acquirer) error {
		if logger != nil {
			a.logger = logger
		}
		return nil
	}
}

// New creates an Acquirer. A nil provider skips search and goes straight to
// the fallback pages.
func New(provider SearchProvider, opts ...Option) (*Acquirer, error) {
	a := &Acquirer{
		provider:     provider,
		queries:      DefaultQueries,
		domains:      DefaultDomains,
		fallbackURLs: DefaultFallbackURLs,
		minResults:   DefaultMinResults,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.fetcher == nil {
		a.fetcher = NewHTTPFetcher(WithFetchLogger(a.logger))
	}
	a.logger = a.logger.With("component", "acquirer")
	return a, nil
}

// Acquire collects up to limit documents. A limit of zero or less selects
// DefaultLimit. The only error returned is context cancellation.
func (a *Acquirer) Acquire(ctx context.Context, limit int) ([]*core.SourceDocument, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	docs, err := a.search(ctx, limit)
	if err != nil {
		return nil, err
	}

	if len(docs) < a.minResults {
		a.logger.Info("search returned too few documents, fetching known pages",
			"accepted", len(docs),
			"pages", len(a.fallbackURLs))
		direct, err := a.fetchFallback(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, direct...)
	}

	docs = Dedupe(docs)
	if len(docs) > limit {
		docs = docs[:limit]
	}

	a.logger.Info("acquired documents", "count", len(docs))
	return docs, nil
}

func (a *Acquirer) search(ctx context.Context, limit int) ([]*core.SourceDocument, error) {
	if a.provider == nil {
		a.logger.Warn("no search provider configured, skipping search")
		return nil, nil
	}

	perQuery := max(limit/len(a.queries), minPerQuery)
	var docs []*core.SourceDocument
	for _, q := range a.queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, err := a.provider.SearchAndFetch(ctx, q, perQuery, a.domains)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, core.ErrProviderUnavailable) {
				a.logger.Warn("search provider unavailable, skipping search", "err", err)
				return docs, nil
			}
			a.logger.Error("search failed", "query", q, "err", err)
			continue
		}

		for _, r := range results {
			if doc := toDocument(r, a.provider.Name()); doc != nil {
				docs = append(docs, doc)
			}
		}
	}
	return docs, nil
}

func (a *Acquirer) fetchFallback(ctx context.Context) ([]*core.SourceDocument, error) {
	var docs []*core.SourceDocument
	for _, url := range a.fallbackURLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := a.fetcher.Fetch(ctx, url)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			a.logger.Error("direct fetch failed", "url", url, "err", err)
			continue
		}
		text = normalize.Clean(text)
		if !core.IsSubstantial(text) {
			a.logger.Debug("dropping short page", "url", url, "length", len(text))
			continue
		}
		docs = append(docs, &core.SourceDocument{
			URL:      url,
			Title:    url,
			Text:     text,
			Provider: core.ProviderDirect,
		})
	}
	return docs, nil
}

// toDocument cleans a search hit, falling back from text to summary, and
// returns nil when the result is too short to keep.
func toDocument(r RawResult, provider string) *core.SourceDocument {
	if r.URL == "" {
		return nil
	}
	raw := r.Text
	if raw == "" {
		raw = r.Summary
	}
	text := normalize.Clean(raw)
	if !core.IsSubstantial(text) {
		return nil
	}
	title := r.Title
	if title == "" {
		title = r.URL
	}
	return &core.SourceDocument{
		URL:      r.URL,
		Title:    title,
		Text:     text,
		Provider: provider,
	}
}
