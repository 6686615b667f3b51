// Package exa implements acquire.SearchProvider with the Exa search API.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/ragline/acquire"
	"github.com/poiesic/ragline/core"
	"github.com/tmc/langchaingo/httputil"
)

const (
	// DefaultBaseURL is the Exa API endpoint.
	DefaultBaseURL = "https://api.exa.ai"

	// DefaultTimeout bounds one search call.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxCharacters caps the page text returned per result.
	DefaultMaxCharacters = 12000

	// maxNumResults is the largest result count Exa accepts per call.
	maxNumResults = 25
)

// Client calls the Exa search_and_contents endpoint.
type Client struct {
	apiKey        string
	baseURL       string
	client        *http.Client
	timeout       time.Duration
	maxCharacters int
	limiter       *acquire.RateLimiter
	logger        *slog.Logger
}

var _ acquire.SearchProvider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if baseURL == "" {
			return errors.New("base url cannot be empty")
		}
		c.baseURL = strings.TrimSuffix(baseURL, "/")
		return nil
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		c.client = client
		return nil
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		c.timeout = d
		return nil
	}
}

// WithMaxCharacters caps the text returned per result.
func WithMaxCharacters(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return errors.New("max characters must be positive")
		}
		c.maxCharacters = n
		return nil
	}
}

// WithRateLimit paces calls to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) error {
		c.limiter = acquire.NewRateLimiter(perSecond, burst)
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// New creates a client. An empty apiKey yields a client whose searches fail
// with core.ErrProviderUnavailable.
func New(apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:        apiKey,
		baseURL:       DefaultBaseURL,
		client:        httputil.DefaultClient,
		timeout:       DefaultTimeout,
		maxCharacters: DefaultMaxCharacters,
		limiter:       acquire.NewRateLimiter(5, 5),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "exa-client")
	return c, nil
}

// Name implements acquire.SearchProvider.
func (c *Client) Name() string {
	return core.ProviderExa
}

type contentsRequest struct {
	MaxCharacters int  `json:"max_characters"`
	IncludeHTML   bool `json:"include_html"`
	Summary       bool `json:"summary"`
}

type searchRequest struct {
	Query          string          `json:"query"`
	NumResults     int             `json:"num_results"`
	IncludeDomains []string        `json:"include_domains,omitempty"`
	Type           string          `json:"type"`
	Contents       contentsRequest `json:"contents"`
	UseAutoprompt  bool            `json:"use_autoprompt"`
}

type result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	Summary string `json:"summary"`
	Content *struct {
		Text    string `json:"text"`
		Summary string `json:"summary"`
	} `json:"content"`
}

type searchResponse struct {
	Results []result `json:"results"`
}

// SearchAndFetch implements acquire.SearchProvider. maxResults is clamped
// to the 1..25 range Exa accepts. Results without a URL are dropped.
func (c *Client) SearchAndFetch(ctx context.Context, query string, maxResults int, domains []string) ([]acquire.RawResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: exa api key not configured", core.ErrProviderUnavailable)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(searchRequest{
		Query:          query,
		NumResults:     min(max(maxResults, 1), maxNumResults),
		IncludeDomains: domains,
		Type:           "neural",
		Contents: contentsRequest{
			MaxCharacters: c.maxCharacters,
			Summary:       true,
		},
		UseAutoprompt: true,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search_and_contents", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.limiter.ObserveResponse(resp, time.Minute)
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: exa search", acquire.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: exa search: %d: %s", acquire.ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode exa response: %w", err)
	}

	out := make([]acquire.RawResult, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if r.URL == "" {
			continue
		}
		raw := acquire.RawResult{URL: r.URL, Title: r.Title, Text: r.Text, Summary: r.Summary}
		if r.Content != nil {
			raw.Text = firstNonEmpty(r.Content.Text, raw.Text)
			raw.Summary = firstNonEmpty(r.Content.Summary, raw.Summary)
		}
		out = append(out, raw)
	}

	c.logger.Debug("exa search complete", "query", query, "results", len(out))
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
