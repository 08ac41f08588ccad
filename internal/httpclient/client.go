package httpclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client sends JSON requests to upstream providers and returns the raw body.
// It never retries.
type Client struct {
	http *resty.Client
}

func New(timeout time.Duration) *Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// SendRequest handles the common logic of creating a request, sending it, and checking the status code.
// A non-2xx response is returned as *UpstreamError.
func (c *Client) SendRequest(ctx context.Context, method, url string, headers map[string]string, body interface{}) ([]byte, error) {
	req := c.http.R().SetContext(ctx).SetHeaders(headers)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("request to %s timed out: %w", url, err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
			URL:        url,
		}
	}

	return resp.Body(), nil
}
