package integrations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nulzo/chat-router/internal/credentials"
	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/model"
	"github.com/nulzo/chat-router/internal/store/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	calls []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userID, provider string) {
	r.calls = append(r.calls, userID+"/"+provider)
}

func newTestService(t *testing.T) (*Service, store.Repository, *recordingInvalidator) {
	t.Helper()
	repo, err := sqlstore.Open(sqlstore.DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	key, err := credentials.GenerateKey(32)
	require.NoError(t, err)
	enc, err := credentials.NewEncryptionFromBase64(key)
	require.NoError(t, err)

	inv := &recordingInvalidator{}
	return NewService(repo, enc, inv, nil), repo, inv
}

func TestCreate_DerivesProviderIDAndEncryptsFallbacks(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	integ, created, err := svc.Create(ctx, "u1", Input{
		Name:    "  My Ollama Box! ",
		BaseURL: "http://localhost:11434/v1",
		Fallbacks: []model.Endpoint{
			{URL: "https://llm.example.com/v1", APIKey: "sk-fallback"},
		},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "custom_my_ollama_box", integ.ProviderID)
	assert.Equal(t, "My Ollama Box!", integ.Name)
	assert.Equal(t, model.APIShapeOpenAI, integ.APIShape)
	assert.True(t, integ.IsActive)

	raw, err := repo.Integrations().GetByID(ctx, "u1", integ.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, raw.FallbacksEnc)
	assert.NotContains(t, raw.FallbacksEnc, "sk-fallback")

	got, err := svc.GetByProviderID(ctx, "u1", "custom_my_ollama_box")
	require.NoError(t, err)
	require.Len(t, got.Fallbacks, 1)
	assert.Equal(t, "sk-fallback", got.Fallbacks[0].APIKey)
	assert.Equal(t, 2, got.EndpointCount())
}

func TestCreate_DuplicateReturnsExisting(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, created, err := svc.Create(ctx, "u1", Input{Name: "Box", BaseURL: "http://a.example"})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.Create(ctx, "u1", Input{Name: "box", BaseURL: "http://b.example"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "http://a.example", second.BaseURL)

	other, created, err := svc.Create(ctx, "u2", Input{Name: "Box"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestCreate_RejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]Input{
		"empty name":       {Name: "  "},
		"script name":      {Name: "<script>alert(1)</script>"},
		"symbol name":      {Name: "!!!"},
		"long name":        {Name: strings.Repeat("a", MaxNameLength+1)},
		"ftp url":          {Name: "a", BaseURL: "ftp://files.example"},
		"javascript url":   {Name: "a", BaseURL: "javascript:alert(1)"},
		"onerror url":      {Name: "a", BaseURL: "http://x.example/?onerror=1"},
		"long url":         {Name: "a", BaseURL: "https://x.example/" + strings.Repeat("a", MaxURLLength)},
		"hostless url":     {Name: "a", BaseURL: "http://"},
		"grpc shape":       {Name: "a", APIShape: "grpc"},
		"blank fallback":   {Name: "a", Fallbacks: []model.Endpoint{{URL: " "}}},
		"invalid fallback": {Name: "a", Fallbacks: []model.Endpoint{{URL: "file:///etc/passwd"}}},
	}
	for name, in := range cases {
		_, _, err := svc.Create(ctx, "u1", in)
		var iie *InvalidInputError
		assert.True(t, errors.As(err, &iie), name)
	}
}

func TestValidateURL(t *testing.T) {
	got, err := ValidateURL("  http://localhost:11434/v1 ", "Base URL")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1", got)

	got, err = ValidateURL("", "Base URL")
	require.NoError(t, err)
	assert.Empty(t, got)

	long := "https://x.example/" + strings.Repeat("a", MaxURLLength)
	reasons := map[string]string{
		"ftp://files.example":         "must be an http or https URL with a host",
		"javascript:alert(1)":         "must be an http or https URL with a host",
		"https:///v1":                 "must be an http or https URL with a host",
		"not a url":                   "must be an http or https URL with a host",
		"https://x.example/?<script>": "contains potentially dangerous content",
		long:                          "is too long (max 2048 characters)",
	}
	for raw, reason := range reasons {
		_, err := ValidateURL(raw, "Base URL")
		var iie *InvalidInputError
		require.True(t, errors.As(err, &iie), raw)
		assert.Equal(t, "Base URL", iie.Field)
		assert.Equal(t, reason, iie.Reason, raw)
	}
}

func TestValidateName(t *testing.T) {
	got, err := ValidateName("  Local Box ", "Integration name")
	require.NoError(t, err)
	assert.Equal(t, "Local Box", got)

	_, err = ValidateName(" ", "Integration name")
	assert.EqualError(t, err, "Integration name: is required")

	_, err = ValidateName(strings.Repeat("a", MaxNameLength+1), "Integration name")
	assert.EqualError(t, err, "Integration name: is too long (max 255 characters)")
}

func TestUpdate_RenameRederivesProviderID(t *testing.T) {
	svc, _, inv := newTestService(t)
	ctx := context.Background()

	integ, _, err := svc.Create(ctx, "u1", Input{Name: "Old Name", BaseURL: "http://a.example"})
	require.NoError(t, err)

	disabled := false
	updated, err := svc.Update(ctx, "u1", integ.ID, Input{Name: "New Name", BaseURL: "http://b.example", IsActive: &disabled})
	require.NoError(t, err)
	assert.Equal(t, "custom_new_name", updated.ProviderID)
	assert.Equal(t, "http://b.example", updated.BaseURL)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{"u1/custom_old_name", "u1/custom_new_name"}, inv.calls)

	_, err = svc.GetByProviderID(ctx, "u1", "custom_old_name")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(ctx, "u2", integ.ID, Input{Name: "Hijack"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_RenameCollision(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, "u1", Input{Name: "one"})
	require.NoError(t, err)
	two, _, err := svc.Create(ctx, "u1", Input{Name: "two"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "u1", two.ID, Input{Name: "One"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDeleteAndList(t *testing.T) {
	svc, _, inv := newTestService(t)
	ctx := context.Background()

	integ, _, err := svc.Create(ctx, "u1", Input{Name: "box", Fallbacks: []model.Endpoint{{URL: "http://fb.example"}}})
	require.NoError(t, err)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "http://fb.example", list[0].Fallbacks[0].URL)

	require.NoError(t, svc.Delete(ctx, "u1", integ.ID))
	assert.Equal(t, []string{"u1/custom_box"}, inv.calls)
	assert.ErrorIs(t, svc.Delete(ctx, "u1", integ.ID), ErrNotFound)

	list, err = svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProviderID(t *testing.T) {
	assert.Equal(t, "custom_my_box", ProviderID("My Box"))
	assert.Equal(t, "custom_local_llama3_2", ProviderID("local llama3_2"))
	assert.Equal(t, "custom_a-b", ProviderID("A-B?"))
	assert.Equal(t, "custom_café", ProviderID("Café"))
}
