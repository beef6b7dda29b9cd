package runagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fwojciec/relay"
	"golang.org/x/time/rate"
)

// Interface compliance check.
var _ relay.Transport = (*Client)(nil)

// Client implements [relay.Transport] for the run-agent endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	header     http.Header
}

// Option configures a [Client].
type Option func(*Client)

// WithEndpoint sets the request URL. Useful for testing with httptest.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit makes every request wait for a token from l first.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Add(key, value) }
}

// New creates a new run-agent [Client] with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: http.DefaultClient,
		header:     make(http.Header),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Send posts req and returns the response body for streaming. A non-2xx
// status or a failed exchange returns a *relay.TransportError; the body
// must be closed by the caller.
func (c *Client) Send(ctx context.Context, req relay.Request) (io.ReadCloser, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("runagent: %w", err)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return nil, fmt.Errorf("runagent: rate limit: %w", err)
		}
	}

	body, err := json.Marshal(apiRequest{
		Query:     req.Query,
		Model:     req.Model,
		UserID:    req.UserID,
		TenantID:  req.TenantID,
		SessionID: req.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("runagent: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("runagent: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &relay.TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return resp.Body, nil
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &relay.TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	text := strings.TrimSpace(string(body))
	var apiErr apiErrorResponse
	if json.Unmarshal(body, &apiErr) == nil {
		switch {
		case apiErr.Detail != "":
			text = apiErr.Detail
		case apiErr.Error != "":
			text = apiErr.Error
		case apiErr.Message != "":
			text = apiErr.Message
		}
	}
	return &relay.TransportError{StatusCode: resp.StatusCode, Body: text}
}
