package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/osamaatef1/rag-service/internal/domain"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxFetchBytes       = 10 << 20 // 10 MiB
)

// Fetcher downloads a URL and extracts readable text from the response.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client falls back to a default with a
// bounded timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Fetcher{client: client}
}

// Fetch downloads rawURL and returns its extracted text. HTML responses are
// parsed for readable content; plain text is returned as-is.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, domain.ErrValidation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w: %w", err, domain.ErrValidation)
	}
	req.Header.Set("Accept", "text/html, text/plain;q=0.9, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w: %w", rawURL, err, domain.ErrValidation)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d: %w", rawURL, resp.StatusCode, domain.ErrValidation)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("read response body: %w: %w", err, domain.ErrValidation)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") || looksLikeHTML(body) {
		text, err := extractHTML(body)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w: %w", rawURL, err, domain.ErrValidation)
		}
		return text, nil
	}
	return string(body), nil
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}
