package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/nulzo/chat-router/releases/latest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLatest_Newer(t *testing.T) {
	srv := releaseServer(t, http.StatusOK, `{"tag_name":"v1.4.0"}`)
	c := NewChecker("nulzo/chat-router").WithBaseURL(srv.URL)
	c.Current = "v1.3.9"

	tag, newer, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", tag)
	assert.True(t, newer)
}

func TestLatest_UpToDate(t *testing.T) {
	srv := releaseServer(t, http.StatusOK, `{"tag_name":"v1.4.0"}`)
	c := NewChecker("nulzo/chat-router").WithBaseURL(srv.URL)
	c.Current = "1.4.0"

	_, newer, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, newer)
}

func TestLatest_Errors(t *testing.T) {
	srv := releaseServer(t, http.StatusNotFound, `{"message":"Not Found"}`)
	_, _, err := NewChecker("nulzo/chat-router").WithBaseURL(srv.URL).Latest(context.Background())
	assert.ErrorContains(t, err, "404")

	srv = releaseServer(t, http.StatusOK, `{"tag_name":"nightly"}`)
	_, _, err = NewChecker("nulzo/chat-router").WithBaseURL(srv.URL).Latest(context.Background())
	assert.ErrorContains(t, err, "invalid release tag")
}
