package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-shiori/go-readability"
)

const maxExcerptLen = 500

// Extractor fetches a post's target article and reduces it to a short plain
// text excerpt for the digest.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
}

func NewExtractor(httpClient *http.Client, userAgent string) *Extractor {
	return &Extractor{httpClient: httpClient, userAgent: userAgent}
}

func (e *Extractor) Fetch(ctx context.Context, url string) (string, error) {
	data, err := e.fetchArticle(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}

	excerpt, err := e.Run(data)
	if err != nil {
		return "", err
	}

	slog.Debug("Excerpt extracted", "url", url, "length", len(excerpt))
	return excerpt, nil
}

// Run extracts readable text from raw HTML and truncates it to excerpt size.
func (e *Extractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	runes := []rune(text)
	if len(runes) > maxExcerptLen {
		text = string(runes[:maxExcerptLen]) + "…"
	}

	return text, nil
}

func (e *Extractor) fetchArticle(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
