package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error wrapping core.ErrProviderUnavailable if the provider
	// is not configured or fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in one call.
	// The i-th returned vector belongs to the i-th input text.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer turns a prompt into natural-language text.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete generates a response for the prompt. An empty response is
	// returned as-is; callers decide how to treat it.
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Completer returns the text completion service.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	Close() error
}
