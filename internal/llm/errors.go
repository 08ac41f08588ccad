package llm

import (
	"errors"
	"fmt"

	"github.com/nulzo/chat-router/internal/httpclient"
	"github.com/tidwall/gjson"
)

// ErrMissingCredential is returned before any network call when a request carries no key.
var ErrMissingCredential = errors.New("missing credential")

// UpstreamError is a transport failure, a non-2xx answer or an unreadable body from a provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// WrapUpstream converts an httpclient error into an *UpstreamError. The message
// is taken from the usual provider error envelopes when the body carries one.
func WrapUpstream(provider string, err error) error {
	if err == nil {
		return nil
	}

	var httpErr *httpclient.UpstreamError
	if !errors.As(err, &httpErr) {
		return &UpstreamError{Provider: provider, Message: err.Error(), Err: err}
	}

	return &UpstreamError{
		Provider:   provider,
		StatusCode: httpErr.StatusCode,
		Message:    upstreamMessage(httpErr.Body),
		Err:        err,
	}
}

// MalformedResponse reports a 2xx answer whose body lacks the expected reply.
func MalformedResponse(provider, detail string) error {
	return &UpstreamError{Provider: provider, Message: "malformed response: " + detail}
}

func upstreamMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return truncate(string(body), 512)
	}
	for _, path := range []string{"error.message", "message", "detail", "error"} {
		if r := gjson.GetBytes(body, path); r.Exists() && r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return truncate(string(body), 512)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
