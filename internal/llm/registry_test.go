package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ id string }

func (s stubProvider) Name() string { return s.id }
func (s stubProvider) Complete(context.Context, Completion) (string, error) { return "ok", nil }
func (s stubProvider) Probe(context.Context, ProbeRequest) error { return nil }

func init() {
	Register("stub", func(cfg config.ProviderConfig) (Provider, error) {
		if cfg.BaseURL == "broken" {
			return nil, errors.New("bad base url")
		}
		return stubProvider{id: cfg.ID}, nil
	})
}

func TestRegistry(t *testing.T) {
	factory, err := GetFactory("stub")
	require.NoError(t, err)

	r := NewRegistry()
	for _, id := range []string{"b", "a"} {
		p, err := factory(config.ProviderConfig{ID: id, Type: "stub"})
		require.NoError(t, err)
		r.Add(p)
	}

	assert.Equal(t, []string{"a", "b"}, r.IDs())
	p, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", p.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestGetFactory_Unknown(t *testing.T) {
	_, err := GetFactory("nope")
	assert.ErrorContains(t, err, "provider factory not found")
}

func TestRegister_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register("stub", func(config.ProviderConfig) (Provider, error) { return nil, nil })
	})
}

func TestWrapUpstream(t *testing.T) {
	assert.NoError(t, WrapUpstream("openai", nil))

	transport := fmt.Errorf("request failed: %w", errors.New("connection refused"))
	err := WrapUpstream("openai", transport)
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Zero(t, ue.StatusCode)
	assert.ErrorIs(t, err, transport)

	httpErr := &httpclient.UpstreamError{StatusCode: 500, Body: []byte(`{"detail":"model not loaded"}`), URL: "http://x"}
	err = WrapUpstream("custom", httpErr)
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 500, ue.StatusCode)
	assert.Equal(t, "model not loaded", ue.Message)
	assert.Contains(t, err.Error(), "custom: upstream status 500")

	err = WrapUpstream("custom", &httpclient.UpstreamError{StatusCode: 502, Body: []byte("<html>Bad Gateway</html>")})
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "<html>Bad Gateway</html>", ue.Message)
}
