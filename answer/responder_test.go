package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/ai/mock"
	"github.com/poiesic/ragline/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	passages []core.Passage
	err      error
	topK     int
	query    string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, topK int) ([]core.Passage, error) {
	f.query = query
	f.topK = topK
	return f.passages, f.err
}

func TestRespond_Grounded(t *testing.T) {
	searcher := &fakeSearcher{passages: []core.Passage{{Text: "Fees are zero."}, {Text: "Rewards are 2%."}}}
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, prompt ai.Prompt) (string, error) {
		return "There is no annual fee.", nil
	}
	r, err := NewResponder(searcher, completer)
	require.NoError(t, err)

	resp := r.Respond(context.Background(), "What are the fees?", nil)

	assert.Equal(t, "There is no annual fee.", resp.Text)
	assert.Equal(t, []string{"Fees are zero.", "Rewards are 2%."}, resp.Contexts)
	assert.Equal(t, "What are the fees?", searcher.query)
	assert.Equal(t, DefaultTopK, searcher.topK)

	prompt := completer.LastPrompt()
	assert.Equal(t, DefaultSystemPrompt, prompt.System)
	assert.Equal(t, "Relevant information from our knowledge base:\nFees are zero.\n\nRewards are 2%.", prompt.Context)
	assert.Equal(t, "User Question: What are the fees?", prompt.User)
}

func TestRespond_NoContext(t *testing.T) {
	completer := mock.NewMockCompleter()
	r, err := NewResponder(&fakeSearcher{}, completer)
	require.NoError(t, err)

	resp := r.Respond(context.Background(), "hello", nil)
	assert.Equal(t, "mock answer", resp.Text)
	assert.Empty(t, resp.Contexts)
	assert.True(t, strings.HasSuffix(completer.LastPrompt().Context, NoContextMarker))
}

func TestRespond_HistoryIsTrimmed(t *testing.T) {
	completer := mock.NewMockCompleter()
	r, err := NewResponder(&fakeSearcher{}, completer)
	require.NoError(t, err)

	history := []core.Turn{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
		{Role: "assistant", Content: "four"},
		{Role: "user", Content: "five"},
	}
	r.Respond(context.Background(), "six?", history)

	assert.Equal(t,
		"User Question: six?\n\nPrevious conversation:\nassistant: two\nuser: three\nassistant: four\nuser: five",
		completer.LastPrompt().User)
}

func TestRespond_CompletionFailure(t *testing.T) {
	for name, fn := range map[string]func(context.Context, ai.Prompt) (string, error){
		"error": func(context.Context, ai.Prompt) (string, error) { return "", core.ErrProviderUnavailable },
		"empty": func(context.Context, ai.Prompt) (string, error) { return "  ", nil },
	} {
		t.Run(name, func(t *testing.T) {
			completer := mock.NewMockCompleter()
			completer.CompleteFunc = fn
			r, err := NewResponder(&fakeSearcher{passages: []core.Passage{{Text: "ctx"}}}, completer,
				WithSupportContact("555-0100"))
			require.NoError(t, err)

			resp := r.Respond(context.Background(), "q", nil)
			assert.Contains(t, resp.Text, "trouble generating a response")
			assert.Contains(t, resp.Text, "555-0100")
			assert.Equal(t, []string{"ctx"}, resp.Contexts)
		})
	}
}

func TestRespond_RetrievalFailure(t *testing.T) {
	completer := mock.NewMockCompleter()
	r, err := NewResponder(&fakeSearcher{err: errors.New("boom")}, completer)
	require.NoError(t, err)

	resp := r.Respond(context.Background(), "q", nil)
	assert.Contains(t, resp.Text, "technical difficulties")
	assert.Contains(t, resp.Text, DefaultSupportContact)
	assert.NotNil(t, resp.Contexts)
	assert.Empty(t, resp.Contexts)
	assert.Zero(t, completer.CallCount())
}

func TestRespond_Options(t *testing.T) {
	searcher := &fakeSearcher{}
	completer := mock.NewMockCompleter()
	r, err := NewResponder(searcher, completer, WithTopK(2), WithSystemPrompt("Be brief."), WithHistoryTurns(1))
	require.NoError(t, err)

	r.Respond(context.Background(), "q", []core.Turn{{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}})
	assert.Equal(t, 2, searcher.topK)
	assert.Equal(t, "Be brief.", completer.LastPrompt().System)
	assert.Equal(t, "User Question: q\n\nPrevious conversation:\nassistant: b", completer.LastPrompt().User)
}

func TestNewResponder_Validation(t *testing.T) {
	_, err := NewResponder(nil, mock.NewMockCompleter())
	assert.ErrorIs(t, err, ErrSearcherRequired)

	_, err = NewResponder(&fakeSearcher{}, nil)
	assert.ErrorIs(t, err, ErrCompleterRequired)

	_, err = NewResponder(&fakeSearcher{}, mock.NewMockCompleter(), WithTopK(0))
	assert.Error(t, err)

	_, err = NewResponder(&fakeSearcher{}, mock.NewMockCompleter(), WithSystemPrompt(" "))
	assert.Error(t, err)
}

func TestSuggestedQuestions(t *testing.T) {
	for _, c := range []string{"general", "account", "support", "features"} {
		assert.Len(t, SuggestedQuestions(c), 5, c)
	}
	assert.Equal(t, SuggestedQuestions("general"), SuggestedQuestions("unknown"))
	assert.Equal(t, SuggestedQuestions("general"), SuggestedQuestions(""))

	qs := SuggestedQuestions("account")
	qs[0] = "mutated"
	assert.NotEqual(t, "mutated", SuggestedQuestions("account")[0])
}
