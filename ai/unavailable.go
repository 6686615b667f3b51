package ai

import (
	"context"
	"fmt"

	"github.com/poiesic/ragline/core"
)

// UnavailableProvider stands in for a provider that cannot be reached.
// Every call fails with an error wrapping core.ErrProviderUnavailable.
type UnavailableProvider struct {
	reason string
}

var (
	_ AIProvider = (*UnavailableProvider)(nil)
	_ Embedder   = (*UnavailableProvider)(nil)
	_ Completer  = (*UnavailableProvider)(nil)
)

// NewUnavailableProvider returns a provider that reports reason on every call.
func NewUnavailableProvider(reason string) *UnavailableProvider {
	return &UnavailableProvider{reason: reason}
}

func (p *UnavailableProvider) err() error {
	return fmt.Errorf("%w: %s", core.ErrProviderUnavailable, p.reason)
}

func (p *UnavailableProvider) Embedder() Embedder   { return p }
func (p *UnavailableProvider) Completer() Completer { return p }
func (p *UnavailableProvider) Close() error         { return nil }

func (p *UnavailableProvider) EmbedText(context.Context, string) ([]float32, error) {
	return nil, p.err()
}

func (p *UnavailableProvider) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, p.err()
}

func (p *UnavailableProvider) Complete(context.Context, Prompt) (string, error) {
	return "", p.err()
}
