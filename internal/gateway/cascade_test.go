package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/llm/openai"
	"github.com/nulzo/chat-router/internal/netguard"
	"github.com/nulzo/chat-router/internal/store/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProvider implements llm.Provider for testing
type MockProvider struct {
	mock.Mock
	ID string
}

func (m *MockProvider) Name() string { return m.ID }

func (m *MockProvider) Complete(ctx context.Context, req llm.Completion) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) Probe(ctx context.Context, req llm.ProbeRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type staticCloud bool

func (s staticCloud) IsCloud() bool { return bool(s) }

func atURL(url string) interface{} {
	return mock.MatchedBy(func(c llm.Completion) bool { return c.BaseURL == url })
}

func newIntegration(primary string, fallbacks ...model.Endpoint) *model.Integration {
	return &model.Integration{
		ID:         "i-1",
		UserID:     "u-1",
		Name:       "My Ollama",
		ProviderID: "custom_my_ollama",
		BaseURL:    primary,
		APIShape:   model.APIShapeOpenAI,
		IsActive:   true,
		Fallbacks:  fallbacks,
	}
}

func TestResolve_FirstSuccessWinsInOrder(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	p.On("Complete", mock.Anything, atURL("http://a.example/v1")).Return("", errors.New("a down")).Once()
	p.On("Complete", mock.Anything, atURL("http://b.example/v1")).Return("from b", nil).Once()

	c := NewCascade(p, WithCloudDetector(staticCloud(false)))
	integ := newIntegration("http://a.example/v1",
		model.Endpoint{URL: "http://b.example/v1"},
		model.Endpoint{URL: "http://c.example/v1"},
	)

	res, err := c.Resolve(context.Background(), "hi", "llama3", "", integ)
	require.NoError(t, err)
	assert.Equal(t, "from b", res.Reply)
	assert.Equal(t, "My Ollama", res.Model)
	assert.Equal(t, 2, res.Attempts)

	p.AssertExpectations(t)
	p.AssertNotCalled(t, "Complete", mock.Anything, atURL("http://c.example/v1"))
}

func TestResolve_SkipsLoopbackOnCloud(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	p.On("Complete", mock.Anything, atURL("https://api.example.com/v1")).Return("remote", nil).Once()

	c := NewCascade(p, WithCloudDetector(staticCloud(true)))
	integ := newIntegration("http://localhost:11434/v1", model.Endpoint{URL: "https://api.example.com/v1"})

	res, err := c.Resolve(context.Background(), "hi", "", "", integ)
	require.NoError(t, err)
	assert.Equal(t, "remote", res.Reply)
	assert.Equal(t, 1, res.Attempts)
	p.AssertNotCalled(t, "Complete", mock.Anything, atURL("http://localhost:11434/v1"))
}

func TestResolve_SoleLoopbackOnCloudFailsFast(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	c := NewCascade(p, WithCloudDetector(staticCloud(true)))

	_, err := c.Resolve(context.Background(), "hi", "", "", newIntegration("http://127.0.0.1:1234/v1"))

	assert.Equal(t, KindLocalhostOnCloud, KindOf(err))
	p.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestResolve_SoleLoopbackFallbackOnCloudFailsFast(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	c := NewCascade(p, WithCloudDetector(staticCloud(true)))

	_, err := c.Resolve(context.Background(), "hi", "", "", newIntegration("", model.Endpoint{URL: "http://0.0.0.0:8000"}))
	assert.Equal(t, KindLocalhostOnCloud, KindOf(err))
}

func TestResolve_LoopbackAttemptedOffCloud(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	p.On("Complete", mock.Anything, atURL("http://localhost:11434/v1")).Return("local", nil).Once()

	c := NewCascade(p, WithCloudDetector(staticCloud(false)))
	res, err := c.Resolve(context.Background(), "hi", "", "", newIntegration("http://localhost:11434/v1"))

	require.NoError(t, err)
	assert.Equal(t, "local", res.Reply)
	p.AssertExpectations(t)
}

func TestResolve_AllExhaustedReportsAttemptsAndLastError(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	p.On("Complete", mock.Anything, atURL("http://a.example")).Return("", errors.New("first failure")).Once()
	p.On("Complete", mock.Anything, atURL("http://b.example")).
		Return("", &llm.UpstreamError{Provider: "custom", StatusCode: 503, Message: "second failure"}).Once()

	c := NewCascade(p, WithCloudDetector(staticCloud(false)))
	_, err := c.Resolve(context.Background(), "hi", "", "", newIntegration("http://a.example", model.Endpoint{URL: "http://b.example"}))

	var re *RouteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KindAllFallbacksExhausted, re.Kind)
	assert.Equal(t, 2, re.Attempted)
	assert.Equal(t, 2, re.Candidates)
	assert.Equal(t, "second failure", LastUpstreamMessage(re.Err))
	assert.Contains(t, err.Error(), "second failure")
}

func TestResolve_AllSkippedOnCloud(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	c := NewCascade(p, WithCloudDetector(staticCloud(true)))

	_, err := c.Resolve(context.Background(), "hi", "", "",
		newIntegration("http://localhost:1", model.Endpoint{URL: "http://127.0.0.1:2"}, model.Endpoint{URL: ""}))

	var re *RouteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KindAllFallbacksExhausted, re.Kind)
	assert.Zero(t, re.Attempted)
	assert.Equal(t, 3, re.Candidates)
	assert.NoError(t, re.Err)
	p.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestResolve_CredentialResolution(t *testing.T) {
	keyAt := func(url, key string) interface{} {
		return mock.MatchedBy(func(c llm.Completion) bool { return c.BaseURL == url && c.APIKey == key })
	}

	t.Run("caller credential for primary and keyless fallbacks", func(t *testing.T) {
		p := &MockProvider{ID: "custom"}
		p.On("Complete", mock.Anything, keyAt("http://a", "user-key")).Return("", errors.New("x")).Once()
		p.On("Complete", mock.Anything, keyAt("http://b", "fb-key")).Return("", errors.New("x")).Once()
		p.On("Complete", mock.Anything, keyAt("http://c", "user-key")).Return("ok", nil).Once()

		c := NewCascade(p, WithCloudDetector(staticCloud(false)))
		_, err := c.Resolve(context.Background(), "hi", "", "user-key", newIntegration("http://a",
			model.Endpoint{URL: "http://b", APIKey: "fb-key"},
			model.Endpoint{URL: "http://c"},
		))
		require.NoError(t, err)
		p.AssertExpectations(t)
	})

	t.Run("placeholder when nothing is supplied", func(t *testing.T) {
		p := &MockProvider{ID: "custom"}
		p.On("Complete", mock.Anything, keyAt("http://a", "ollama")).Return("ok", nil).Once()

		c := NewCascade(p, WithCloudDetector(staticCloud(false)))
		_, err := c.Resolve(context.Background(), "hi", "", "", newIntegration("http://a"))
		require.NoError(t, err)
		p.AssertExpectations(t)
	})

	t.Run("configured placeholder", func(t *testing.T) {
		p := &MockProvider{ID: "custom"}
		p.On("Complete", mock.Anything, keyAt("http://a", "none")).Return("ok", nil).Once()

		c := NewCascade(p, WithCloudDetector(staticCloud(false)), WithPlaceholderKey("none"))
		_, err := c.Resolve(context.Background(), "hi", "", "", newIntegration("http://a"))
		require.NoError(t, err)
		p.AssertExpectations(t)
	})
}

func TestResolve_PassesAttemptTimeoutAndModel(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	p.On("Complete", mock.Anything, mock.MatchedBy(func(c llm.Completion) bool {
		return c.Timeout == 5*time.Second && c.Model == "qwen2.5" && c.Prompt == "hi"
	})).Return("ok", nil).Once()

	c := NewCascade(p, WithCloudDetector(staticCloud(false)), WithAttemptTimeout(5*time.Second))
	_, err := c.Resolve(context.Background(), "hi", "qwen2.5", "", newIntegration("http://a"))
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestResolve_InvalidIntegration(t *testing.T) {
	c := NewCascade(&MockProvider{ID: "custom"}, WithCloudDetector(staticCloud(false)))

	_, err := c.Resolve(context.Background(), "hi", "", "", nil)
	assert.Equal(t, KindInvalidIntegration, KindOf(err))

	_, err = c.Resolve(context.Background(), "hi", "", "", newIntegration(""))
	assert.Equal(t, KindInvalidIntegration, KindOf(err))
}

func TestResolve_DeadlineStopsCascade(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	p.On("Complete", mock.Anything, atURL("http://slow")).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded).Once()

	c := NewCascade(p, WithCloudDetector(staticCloud(false)), WithDeadline(30*time.Millisecond))
	_, err := c.Resolve(context.Background(), "hi", "", "", newIntegration("http://slow", model.Endpoint{URL: "http://never"}))

	var re *RouteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KindAllFallbacksExhausted, re.Kind)
	assert.Equal(t, 1, re.Attempted)
	assert.ErrorIs(t, re.Err, context.DeadlineExceeded)
	p.AssertNotCalled(t, "Complete", mock.Anything, atURL("http://never"))
}

func TestResolve_DeadlineKeepsLastUpstreamFailure(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	p.On("Complete", mock.Anything, atURL("http://a.example")).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", &llm.UpstreamError{Provider: "custom", StatusCode: 503, Message: "model is loading"}).Once()

	c := NewCascade(p, WithCloudDetector(staticCloud(false)), WithDeadline(30*time.Millisecond))
	_, err := c.Resolve(context.Background(), "hi", "", "", newIntegration("http://a.example", model.Endpoint{URL: "http://b.example"}))

	var re *RouteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KindAllFallbacksExhausted, re.Kind)
	assert.Equal(t, 1, re.Attempted)
	assert.Equal(t, 2, re.Candidates)
	assert.Equal(t, "all fallbacks exhausted; cascade deadline reached", re.Message)
	assert.Equal(t, "model is loading", LastUpstreamMessage(re.Err))
	assert.ErrorIs(t, re.Err, context.DeadlineExceeded)
	p.AssertNotCalled(t, "Complete", mock.Anything, atURL("http://b.example"))
}

func TestResolve_DeadlineBetweenCandidates(t *testing.T) {
	p := &MockProvider{ID: "custom"}
	p.On("Complete", mock.Anything, atURL("http://a.example")).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", &llm.UpstreamError{Provider: "custom", StatusCode: 502, Message: "bad gateway"}).Once()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	c := NewCascade(p, WithCloudDetector(staticCloud(false)))
	_, err := c.Resolve(ctx, "hi", "", "", newIntegration("http://a.example", model.Endpoint{URL: "http://b.example"}))

	var re *RouteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "bad gateway", LastUpstreamMessage(re.Err))
	assert.ErrorIs(t, re.Err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "bad gateway")
}

// loopbackOnly treats a fixed set of URLs as loopback so an httptest server
// on 127.0.0.1 can stand in for a public fallback.
type loopbackOnly map[string]bool

func (l loopbackOnly) IsLoopback(url string) bool { return l[url] }

func TestResolve_CloudScenarioEndToEnd(t *testing.T) {
	var hits int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello"}}]}`))
	}))
	defer upstream.Close()

	adapter, err := openai.NewAdapter(config.ProviderConfig{ID: "custom", Type: "openai"})
	require.NoError(t, err)

	primary := "http://localhost:11434/v1"
	c := NewCascade(adapter,
		WithCloudDetector(staticCloud(true)),
		WithClassifier(loopbackOnly{primary: true}),
	)

	integ := newIntegration(primary, model.Endpoint{URL: upstream.URL + "/v1", APIKey: "k"})
	integ.ProviderID = "custom_ollama"

	res, err := c.Resolve(context.Background(), "hi", "", "", integ)
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Reply)
	assert.Equal(t, integ.Name, res.Model)
	assert.Equal(t, 1, hits)
}

func TestDefaultCascadeUsesHostMatch(t *testing.T) {
	c := NewCascade(&MockProvider{ID: "custom"})
	assert.IsType(t, netguard.HostMatch{}, c.classifier)
	assert.Equal(t, DefaultAttemptTimeout, c.attemptTimeout)
	assert.True(t, strings.EqualFold(c.placeholder, DefaultPlaceholderKey))
}
