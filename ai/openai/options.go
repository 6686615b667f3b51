package openai

import (
	"errors"
	"log/slog"
	"net/http"
)

// Option configures the OpenAI-backed services.
type Option func(*options) error

type options struct {
	httpClient *http.Client
	batchSize  int
	logger     *slog.Logger
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		o.httpClient = client
		return nil
	}
}

// WithEmbeddingBatchSize bounds how many texts are sent per embeddings request.
func WithEmbeddingBatchSize(size int) Option {
	return func(o *options) error {
		if size < 1 {
			return errors.New("embedding batch size must be at least 1")
		}
		o.batchSize = size
		return nil
	}
}

// WithLogger sets the parent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := &options{
		batchSize: 512,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
