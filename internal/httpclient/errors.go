package httpclient

import (
	"fmt"
	"net/http"
)

// UpstreamError is a non-2xx answer. Body is kept whole so adapters can pull
// the provider's own message out of it.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s answered %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}
