package reddit

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/reddit-digest/app/digest"
)

const defaultRSSBaseURL = "https://www.reddit.com"

// RSSClient reads a subreddit's public RSS feed. It needs no credentials but
// carries no scores, comment counts or comments; posts rank by recency only.
type RSSClient struct {
	// BaseURL is overridable for tests.
	BaseURL string

	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
}

var _ digest.SourceClient = (*RSSClient)(nil)

func NewRSSClient(httpClient *http.Client, userAgent string) *RSSClient {
	return &RSSClient{
		BaseURL:    defaultRSSBaseURL,
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
	}
}

func (c *RSSClient) FetchPosts(ctx context.Context, spec digest.SourceSpec) ([]digest.Post, int, error) {
	u := fmt.Sprintf("%s/r/%s/%s.rss", c.BaseURL, url.PathEscape(spec.Name), spec.Mode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch r/%s feed: %w", spec.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, 0, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	feed, err := c.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	posts := make([]digest.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		post := digest.Post{
			ID:        cmp.Or(item.GUID, item.Link),
			Title:     item.Title,
			URL:       item.Link,
			Permalink: item.Link,
		}
		if item.PublishedParsed != nil {
			post.CreatedAt = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			post.CreatedAt = item.UpdatedParsed.UTC()
		}
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			post.Author = item.Authors[0].Name
		}
		posts = append(posts, post)
	}

	return posts, len(posts), nil
}

// FetchComments is a no-op: the RSS feed carries no comment data.
func (c *RSSClient) FetchComments(ctx context.Context, post digest.Post) ([]digest.Comment, error) {
	return nil, nil
}
