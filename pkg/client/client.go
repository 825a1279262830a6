package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is the network impact analyzer SDK client.
type Client struct {
	endpoint   string
	http       *http.Client
	backoff    BackoffStrategy
	maxRetries int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetries sets how often a request is retried while the daemon is
// unreachable, not ready or rate limiting.
func WithRetries(n int, b BackoffStrategy) Option {
	return func(c *Client) {
		c.maxRetries = n
		if b != nil {
			c.backoff = b
		}
	}
}

// NewClient creates a new client.
// endpoint defaults to "http://127.0.0.1:8000" if empty.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8000"
	}
	c := &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff:    DefaultBackoff(),
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze runs an impact analysis and returns summaries and previews.
func (c *Client) Analyze(ctx context.Context, req Request) (Response, error) {
	if req.Identifier == "" {
		return Response{}, fmt.Errorf("invalid request: identifier is required")
	}
	resp, err := c.post(ctx, "/analyze", req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// AnalyzeCSV runs an impact analysis and downloads the annotated rows. An
// empty class returns a zip archive with both datasets; "we" or "others"
// returns that dataset as a single CSV.
func (c *Client) AnalyzeCSV(ctx context.Context, req Request, class string) (Download, error) {
	q := url.Values{}
	if class != "" {
		q.Set("class", class)
	}
	return c.download(ctx, req, q)
}

// AnalyzeSummary runs an impact analysis and downloads the combined JSON
// summary of both datasets.
func (c *Client) AnalyzeSummary(ctx context.Context, req Request) (Download, error) {
	return c.download(ctx, req, url.Values{"format": {"json"}})
}

func (c *Client) download(ctx context.Context, req Request, q url.Values) (Download, error) {
	if req.Identifier == "" {
		return Download{}, fmt.Errorf("invalid request: identifier is required")
	}
	path := "/analyze/csv"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	resp, err := c.post(ctx, path, req)
	if err != nil {
		return Download{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Download{}, fmt.Errorf("failed to read download: %w", err)
	}
	d := Download{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		d.Filename = params["filename"]
	}
	return d, nil
}

// Health returns the readiness of the daemon. A daemon that is up but not
// ready yields the decoded body together with an APIError.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return Health{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Health{}, err
	}
	defer resp.Body.Close()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("failed to decode health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return h, &APIError{StatusCode: resp.StatusCode, Code: h.Status}
	}
	return h, nil
}

// Topology fetches the graph statistics of each dataset.
func (c *Client) Topology(ctx context.Context) (Topology, error) {
	return c.topology(ctx, "/topology")
}

// NodeLinks fetches the graph statistics together with the edges incident
// to node in each dataset graph. An unknown node yields ErrNotFound.
func (c *Client) NodeLinks(ctx context.Context, node string) (Topology, error) {
	if node == "" {
		return Topology{}, fmt.Errorf("invalid request: node is required")
	}
	return c.topology(ctx, "/topology?"+url.Values{"node": {node}}.Encode())
}

func (c *Client) topology(ctx context.Context, path string) (Topology, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return Topology{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Topology{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Topology{}, decodeAPIError(resp)
	}
	var t Topology
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return Topology{}, fmt.Errorf("failed to decode topology: %w", err)
	}
	return t, nil
}

// Drill runs a drill scenario on the daemon and returns the raw result.
func (c *Client) Drill(ctx context.Context, scenario any) (json.RawMessage, error) {
	resp, err := c.post(ctx, "/drill", scenario)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode drill result: %w", err)
	}
	return out, nil
}

// post sends a JSON body and retries transient failures. The caller owns
// the body of a 200 response.
func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff.Delay(attempt-1, lastErr)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("daemon unreachable: %w", err)
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		apiErr := decodeAPIError(resp)
		resp.Body.Close()
		if !errors.Is(apiErr, ErrUnavailable) {
			return nil, apiErr
		}
		lastErr = apiErr
	}
	return nil, lastErr
}

func decodeAPIError(resp *http.Response) *APIError {
	e := &APIError{}
	if err := json.NewDecoder(resp.Body).Decode(e); err != nil || e.Code == "" {
		e.Code = http.StatusText(resp.StatusCode)
	}
	e.StatusCode = resp.StatusCode
	e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	return e
}

// parseRetryAfter reads delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now), 0)
	}
	return 0
}
