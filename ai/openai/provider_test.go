package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/ragline/ai"
	"github.com/poiesic/ragline/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(i), 1, 0},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "test-embed",
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-chat",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "  The annual fee is zero.  "},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	})
	mux.HandleFunc("/broken/v1/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider(t *testing.T) {
	srv := newTestServer(t)
	cfg := ai.NewConfig(ai.WithHost(srv.URL), ai.WithAPIKey("sk-test"))

	provider, err := NewProvider(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	defer provider.Close()

	ctx := context.Background()

	t.Run("embed texts keeps order", func(t *testing.T) {
		vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"a", "b", "c"})
		require.NoError(t, err)
		require.Len(t, vectors, 3)
		assert.Equal(t, float32(2), vectors[2][0])
	})

	t.Run("embed text", func(t *testing.T) {
		vector, err := provider.Embedder().EmbedText(ctx, "a")
		require.NoError(t, err)
		assert.Len(t, vector, 3)
	})

	t.Run("complete", func(t *testing.T) {
		answer, err := provider.Completer().Complete(ctx, ai.Prompt{
			System:  "You are helpful.",
			Context: "Fees: none.",
			User:    "User Question: what is the fee?",
		})
		require.NoError(t, err)
		assert.Equal(t, "The annual fee is zero.", answer)
	})
}

func TestProvider_Failures(t *testing.T) {
	srv := newTestServer(t)
	cfg := ai.NewConfig(ai.WithHost(srv.URL+"/broken"), ai.WithAPIKey("sk-test"))

	provider, err := NewProvider(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = provider.Embedder().EmbedTexts(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)

	_, err = provider.Completer().Complete(context.Background(), ai.Prompt{System: "s", User: "u"})
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := ai.NewConfig(ai.WithEmbeddingModel(""))
	_, err := NewProvider(cfg)
	assert.Error(t, err)

	_, err = NewProvider(ai.DefaultConfig(), WithHTTPClient(nil))
	assert.Error(t, err)
}
