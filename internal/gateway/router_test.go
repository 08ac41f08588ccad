package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/store/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRouter(providers ...llm.Provider) (*Router, *MockProvider) {
	reg := llm.NewRegistry()
	for _, p := range providers {
		reg.Add(p)
	}
	custom := &MockProvider{ID: "custom"}
	cascade := NewCascade(custom, WithCloudDetector(staticCloud(false)))
	return NewRouter(reg, cascade, nil), custom
}

func TestRoute_HostedMissingCredential(t *testing.T) {
	openaiP := &MockProvider{ID: "openai"}
	r, _ := newTestRouter(openaiP)

	_, err := r.Route(context.Background(), Request{ProviderID: "openai", Model: "gpt-4o", Prompt: "hi"})

	assert.Equal(t, KindMissingCredential, KindOf(err))
	openaiP.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestRoute_HostedSuccess(t *testing.T) {
	anthropicP := &MockProvider{ID: "anthropic"}
	anthropicP.On("Complete", mock.Anything, llm.Completion{
		Model:  "claude-3-5-haiku-latest",
		Prompt: "hi",
		APIKey: "sk-ant-1",
	}).Return("hello", nil).Once()

	r, _ := newTestRouter(anthropicP)
	res, err := r.Route(context.Background(), Request{
		ProviderID: "anthropic",
		Model:      "claude-3-5-haiku-latest",
		Prompt:     "hi",
		Credential: "sk-ant-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "hello", res.Reply)
	assert.Equal(t, "claude-3-5-haiku-latest", res.Model)
	anthropicP.AssertExpectations(t)
}

func TestRoute_HostedUpstreamErrorIsNotRetried(t *testing.T) {
	mistralP := &MockProvider{ID: "mistral"}
	mistralP.On("Complete", mock.Anything, mock.Anything).
		Return("", &llm.UpstreamError{Provider: "mistral", StatusCode: 429, Message: "rate limited"}).Once()

	r, _ := newTestRouter(mistralP)
	_, err := r.Route(context.Background(), Request{ProviderID: "mistral", Model: "open-mistral-7b", Prompt: "hi", Credential: "k"})

	var re *RouteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KindUpstream, re.Kind)
	assert.Equal(t, "mistral", re.Provider)
	assert.Equal(t, "rate limited", re.Message)

	var ue *llm.UpstreamError
	assert.True(t, errors.As(err, &ue))
	mistralP.AssertNumberOfCalls(t, "Complete", 1)
}

func TestRoute_HostedNotEnabled(t *testing.T) {
	r, _ := newTestRouter()
	_, err := r.Route(context.Background(), Request{ProviderID: "inception", Model: "mercury", Prompt: "hi", Credential: "k"})
	assert.Equal(t, KindUnknownProvider, KindOf(err))
}

func TestRoute_UnknownProvider(t *testing.T) {
	r, _ := newTestRouter()
	for _, id := range []string{"", "gemini", "Custom_x", "OPENAI"} {
		_, err := r.Route(context.Background(), Request{ProviderID: id, Prompt: "hi", Credential: "k"})
		assert.Equal(t, KindUnknownProvider, KindOf(err), id)
	}
}

func TestRoute_CustomRequiresUsableIntegration(t *testing.T) {
	r, custom := newTestRouter()

	_, err := r.Route(context.Background(), Request{ProviderID: "custom_x", Prompt: "hi"})
	assert.Equal(t, KindInvalidIntegration, KindOf(err))

	inactive := newIntegration("http://a")
	inactive.IsActive = false
	_, err = r.Route(context.Background(), Request{ProviderID: "custom_x", Prompt: "hi", Integration: inactive})
	assert.Equal(t, KindInvalidIntegration, KindOf(err))

	grpc := newIntegration("http://a")
	grpc.APIShape = "grpc"
	_, err = r.Route(context.Background(), Request{ProviderID: "custom_x", Prompt: "hi", Integration: grpc})
	assert.Equal(t, KindInvalidIntegration, KindOf(err))

	custom.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestRoute_CustomDelegatesToCascadeWithDerivedModel(t *testing.T) {
	r, custom := newTestRouter()
	custom.On("Complete", mock.Anything, mock.MatchedBy(func(c llm.Completion) bool {
		return c.Model == "llama3.2" && c.BaseURL == "http://box:11434/v1" && c.APIKey == "ollama"
	})).Return("hey", nil).Once()

	integ := newIntegration("http://box:11434/v1")
	integ.Name = "llama box"
	res, err := r.Route(context.Background(), Request{
		ProviderID:  "custom_local_llama3_2",
		Model:       "default",
		Prompt:      "hi",
		Integration: integ,
	})

	require.NoError(t, err)
	assert.Equal(t, "hey", res.Reply)
	assert.Equal(t, "llama box", res.Model)
	custom.AssertExpectations(t)
}

func TestDeriveModel(t *testing.T) {
	assert.Equal(t, "llama3.2", DeriveModel("custom_local_llama3_2", ""))
	assert.Equal(t, "qwen2.5.coder", DeriveModel("custom_local_qwen2_5_coder", "default"))
	assert.Equal(t, "mistral", DeriveModel("custom_local_llama3_2", "mistral"))
	assert.Equal(t, "", DeriveModel("custom_remote", ""))
	assert.Equal(t, "default", DeriveModel("custom_local_", "default"))
}

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("openai", nil)
	require.NoError(t, err)
	assert.Equal(t, Hosted{Kind: llm.OpenAI}, target)

	integ := &model.Integration{ProviderID: "custom_a"}
	target, err = ParseTarget("custom_a", integ)
	require.NoError(t, err)
	assert.Equal(t, Custom{ProviderID: "custom_a", Integration: integ}, target)

	assert.True(t, IsHosted("inception"))
	assert.False(t, IsHosted("custom_inception"))
	assert.True(t, IsCustom("custom_"))
}
