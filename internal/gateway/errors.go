package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a routing failure so callers can map it to distinct responses.
type Kind string

const (
	KindUnknownProvider       Kind = "unknown_provider"
	KindMissingCredential     Kind = "missing_credential"
	KindLocalhostOnCloud      Kind = "localhost_on_cloud"
	KindUpstream              Kind = "upstream_error"
	KindAllFallbacksExhausted Kind = "all_fallbacks_exhausted"
	KindInvalidIntegration    Kind = "invalid_integration"
)

// RouteError is the only error type Route and Resolve return.
type RouteError struct {
	Kind     Kind
	Provider string
	Message  string

	// Attempted and Candidates are set for cascade failures.
	Attempted  int
	Candidates int

	Err error
}

func (e *RouteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Kind == KindAllFallbacksExhausted {
		msg = fmt.Sprintf("%s (attempted %d of %d endpoints)", msg, e.Attempted, e.Candidates)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *RouteError) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first RouteError in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var re *RouteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
