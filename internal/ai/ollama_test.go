package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/dispensary/internal/config"
)

func TestOllamaChat_SendsImagesAndCountsTokens(t *testing.T) {
	var got ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"role": "assistant", "content": " looks like nitrogen deficiency "},
			"prompt_eval_count": 40,
			"eval_count":        12,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llava")
	out, err := p.Chat(context.Background(), ChatRequest{
		System:   "be helpful",
		Messages: []Message{{Role: RoleUser, Content: "yellow leaves"}},
		Images:   []Image{{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "looks like nitrogen deficiency", out.Text)
	assert.Equal(t, int64(52), out.TokensUsed)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, []string{"AQID"}, got.Messages[1].Images)
	assert.False(t, got.Stream)
}

func TestOllamaChat_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "").Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
}

func TestRegistry_DefaultProviders(t *testing.T) {
	reg := NewDefaultRegistry(config.AIConfig{OllamaBaseURL: "http://127.0.0.1:1", OllamaModel: "llava"})
	assert.Equal(t, []string{"gemini", "ollama"}, reg.Names())

	p, err := reg.Get(context.Background(), " Ollama ", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = reg.Get(context.Background(), "gemini", "")
	require.Error(t, err, "missing api key")

	_, err = reg.Get(context.Background(), "openai", "")
	require.Error(t, err)
}

func TestCachedByModel_BuildsOncePerModel(t *testing.T) {
	builds := 0
	fail := true
	f := cachedByModel(func(ctx context.Context, model string) (Provider, error) {
		builds++
		if model == "flaky" && fail {
			return nil, errors.New("boom")
		}
		return NewOllamaProvider("http://127.0.0.1:1", model), nil
	})
	ctx := context.Background()

	a, err := f(ctx, "llava")
	require.NoError(t, err)
	b, err := f(ctx, "llava")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, builds)

	_, err = f(ctx, "bakllava")
	require.NoError(t, err)
	assert.Equal(t, 2, builds)

	_, err = f(ctx, "flaky")
	require.Error(t, err)
	fail = false
	_, err = f(ctx, "flaky")
	require.NoError(t, err)
	assert.Equal(t, 4, builds)
}
