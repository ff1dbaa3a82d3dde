package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client is the rag-service API client entry point.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	hc        *http.Client
}

// New creates a client for the service at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("rag: invalid base URL %q", baseURL)
	}

	cfg := &clientConfig{
		timeout:   defaultTimeout,
		userAgent: "rag-go-client",
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    cfg.apiKey,
		userAgent: cfg.userAgent,
		hc:        hc,
	}, nil
}

// Documents returns the document service for a given collection.
// An empty collection name targets the server default.
func (c *Client) Documents(collection string) *DocumentService {
	return &DocumentService{client: c, collection: collection}
}

// Query runs a retrieval-augmented query and returns the synthesized answer.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	var resp QueryResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/query", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports the service health. A degraded service returns the
// report alongside a non-nil error.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/health", nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rag: GET /health: %w", err)
	}
	defer resp.Body.Close()

	var report HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("rag: decode health report: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &report, fmt.Errorf("rag: service %s", report.Status)
	}
	return &report, nil
}

// doJSON performs a JSON request/response round trip.
func (c *Client) doJSON(
	ctx context.Context, method, path string, query url.Values, in, out any,
) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("rag: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, query, body, contentType, out)
}

// do sends one request and decodes the response into out (if non-nil).
// Non-2xx responses become *APIError.
func (c *Client) do(
	ctx context.Context, method, path string, query url.Values,
	body io.Reader, contentType string, out any,
) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := c.newRequest(ctx, method, u, body, contentType)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("rag: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("rag: decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(
	ctx context.Context, method, u string, body io.Reader, contentType string,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("rag: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var wire struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &wire); err == nil && wire.Code != "" {
		apiErr.Code = wire.Code
		apiErr.Message = wire.Message
		return apiErr
	}

	apiErr.Code = "internal_error"
	apiErr.Message = http.StatusText(resp.StatusCode)
	return apiErr
}

// IsRetryable reports whether the error is transient and the request may
// be retried (rate limiting, provider or storage trouble).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrProvider) ||
		errors.Is(err, ErrStorage)
}
