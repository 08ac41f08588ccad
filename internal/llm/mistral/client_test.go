package mistral_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/llm/mistral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer mk", r.Header.Get("Authorization"))

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "mistral-small-latest", body["model"])

		_, _ = w.Write([]byte(`{"object":"chat.completion","choices":[{"message":{"role":"assistant","content":"Bonjour"}}]}`))
	}))
	defer ts.Close()

	client, err := mistral.NewClient(config.ProviderConfig{ID: "mistral", BaseURL: ts.URL + "/v1"})
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), llm.Completion{Model: "mistral-small-latest", Prompt: "Salut", APIKey: "mk"})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", reply)
}

func TestComplete_ZeroTemperature(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		temp, ok := body["temperature"]
		assert.True(t, ok)
		assert.InDelta(t, 0.0, temp, 0.0001)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer ts.Close()

	client, _ := mistral.NewClient(config.ProviderConfig{ID: "mistral", BaseURL: ts.URL, Temperature: 0})
	_, err := client.Complete(context.Background(), llm.Completion{Model: "m", Prompt: "p", APIKey: "k"})
	require.NoError(t, err)
}

func TestComplete_ChunkedContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":[{"type":"thinking","thinking":[]},{"type":"text","text":"Bon"},{"type":"text","text":"jour"}]}}]}`))
	}))
	defer ts.Close()

	client, _ := mistral.NewClient(config.ProviderConfig{ID: "mistral", BaseURL: ts.URL})
	reply, err := client.Complete(context.Background(), llm.Completion{Model: "m", Prompt: "p", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", reply)
}

func TestComplete_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized","request_id":"abc"}`))
	}))
	defer ts.Close()

	client, _ := mistral.NewClient(config.ProviderConfig{ID: "mistral", BaseURL: ts.URL})
	_, err := client.Complete(context.Background(), llm.Completion{Model: "m", Prompt: "p", APIKey: "k"})

	var upstreamErr *llm.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, "Unauthorized", upstreamErr.Message)
	assert.Equal(t, "mistral", upstreamErr.Provider)

	_, err = client.Complete(context.Background(), llm.Completion{Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, llm.ErrMissingCredential)
}

func TestModelsAllowList(t *testing.T) {
	p, _ := mistral.NewClient(config.ProviderConfig{ID: "mistral", Models: []string{"open-mistral-7b"}})
	assert.Equal(t, []string{"open-mistral-7b"}, p.(*mistral.Client).Models())
}
