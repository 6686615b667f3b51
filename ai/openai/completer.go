package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
type Completer struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompleter(config *ai.Config, settings *options) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientOpts := []openai.Option{
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(token(config)),
		openai.WithModel(config.CompletionModel),
	}
	if settings.httpClient != nil {
		clientOpts = append(clientOpts, openai.WithHTTPClient(settings.httpClient))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      settings.logger.With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config, opts ...Option) (ai.Completer, error) {
	settings, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newCompleter(config, settings)
}

// Complete sends the prompt as a system message, an optional context
// system message and a human message, and returns the first choice.
func (c *Completer) Complete(ctx context.Context, prompt ai.Prompt) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt.System),
	}
	if prompt.Context != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, prompt.Context))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, prompt.User))

	response, err := c.client.GenerateContent(ctx, content,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return "", fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
	}

	if len(response.Choices) < 1 {
		c.logger.Debug("no choices returned from model")
		return "", nil
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
