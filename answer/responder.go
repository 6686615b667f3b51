package answer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/search"
)

const (
	// DefaultTopK is the number of passages retrieved per question.
	DefaultTopK = 5

	// DefaultHistoryTurns is how many recent turns are quoted in the prompt.
	DefaultHistoryTurns = 4
)

var (
	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrCompleterRequired is returned when a completer is not provided.
	ErrCompleterRequired = errors.New("completer required")
)

// Searcher finds context passages for a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]core.Passage, error)
}

var _ Searcher = (*search.Retriever)(nil)

// Response is a generated reply with the context it was grounded on.
type Response struct {
	Text     string   `json:"response"`
	Contexts []string `json:"contexts"`
}

// Responder answers questions from retrieved context.
type Responder struct {
	searcher     Searcher
	completer    ai.Completer
	system       string
	contact      string
	topK         int
	historyTurns int
	logger       *slog.Logger
}

// Option configures a Responder.
type Option func(*Responder) error

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(r *Responder) error {
		if strings.TrimSpace(prompt) == "" {
			return errors.New("system prompt cannot be empty")
		}
		r.system = prompt
		return nil
	}
}

// WithSupportContact sets the contact named in apologies.
func WithSupportContact(contact string) Option {
	return func(r *Responder) error {
		if contact != "" {
			r.contact = contact
		}
		return nil
	}
}

// WithTopK sets the number of passages retrieved.
func WithTopK(k int) Option {
	return func(r *Responder) error {
		if k <= 0 {
			return errors.New("topK must be positive")
		}
		r.topK = k
		return nil
	}
}

// WithHistoryTurns sets how many recent turns are quoted. Zero quotes all.
func WithHistoryTurns(n int) Option {
	return func(r *Responder) error {
		if n < 0 {
			return errors.New("history turns cannot be negative")
		}
		r.historyTurns = n
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Responder) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewResponder creates a responder.
func NewResponder(searcher Searcher, completer ai.Completer, opts ...Option) (*Responder, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	r := &Responder{
		searcher:     searcher,
		completer:    completer,
		system:       DefaultSystemPrompt,
		contact:      DefaultSupportContact,
		topK:         DefaultTopK,
		historyTurns: DefaultHistoryTurns,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "responder")
	return r, nil
}

// Respond answers query. It never fails: retrieval errors and unusable
// completions produce an apology instead.
func (r *Responder) Respond(ctx context.Context, query string, history []core.Turn) Response {
	passages, err := r.searcher.Search(ctx, query, r.topK)
	if err != nil {
		r.logger.Error("failed to retrieve context", "err", err)
		return Response{Text: technicalApology(r.contact), Contexts: []string{}}
	}
	contexts := search.Texts(passages)

	text, err := r.completer.Complete(ctx, ai.Prompt{
		System:  r.system,
		Context: buildContext(passages),
		User:    buildUserPrompt(query, history, r.historyTurns),
	})
	if err != nil {
		r.logger.Error("failed to generate response", "err", err)
		text = ""
	}
	if strings.TrimSpace(text) == "" {
		text = generationApology(r.contact)
	}

	r.logger.Info("generated response", "contexts", len(contexts))
	return Response{Text: text, Contexts: contexts}
}
