// Package httpclient is the JSON-over-HTTP transport shared by the outbound
// service adapters.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"viberate/internal/infrastructure/resilience"
)

const maxErrorBody = 512

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Retryable reports whether the remote side or the network is at fault.
func Retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}
	return err != nil
}

// Client sends JSON requests to one base URL. A nil Breaker disables circuit
// breaking.
type Client struct {
	baseURL    string
	authorize  func(*http.Request)
	httpClient *http.Client
	breaker    *resilience.Breaker
}

func New(baseURL string, timeout time.Duration, authorize func(*http.Request)) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		authorize:  authorize,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls. Client errors
// (4xx other than 429) do not trip it.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	if b != nil {
		b.TripOn(Retryable)
	}
	c.breaker = b
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do encodes in as the request body when non-nil and decodes the response
// into out when non-nil.
func (c *Client) Do(ctx context.Context, method string, path string, in any, out any) error {
	if c.baseURL == "" {
		return errors.New("base url is not configured")
	}

	var body []byte
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = encoded
	}

	var data []byte
	call := func(ctx context.Context) error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.authorize != nil {
			c.authorize(req)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			snippet := strings.TrimSpace(string(raw))
			if len(snippet) > maxErrorBody {
				snippet = snippet[:maxErrorBody]
			}
			return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: snippet}
		}
		data = raw
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
