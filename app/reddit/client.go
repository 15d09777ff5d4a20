package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/reddit-digest/app/digest"
)

const (
	defaultBaseURL = "https://oauth.reddit.com"

	pageLimit       = 100
	maxListingPages = 100

	baseBackoff = 1 * time.Second
	maxBackoff  = 30 * time.Second
	jitterMax   = 250 * time.Millisecond
)

// ErrNotFound marks a source or user that does not exist. Never retried.
var ErrNotFound = errors.New("not found")

// topTimeFilter maps an exact lookback window to Reddit's "t" parameter for
// the top listing. Windows without an exact mapping scan the listing as-is.
var topTimeFilter = map[int]string{
	1:    "hour",
	24:   "day",
	168:  "week",
	720:  "month",
	8760: "year",
}

// AuthorCache persists author account creation timestamps between runs.
// A stored nil timestamp marks an author whose metadata could not be fetched,
// so the lookup is not repeated every run.
type AuthorCache interface {
	Get(name string) (*time.Time, bool, error)
	Put(name string, createdAt *time.Time) error
}

// Client fetches posts and comments from the Reddit JSON API with bounded
// retries and a shared rate-limit budget.
type Client struct {
	// BaseURL is overridable for tests.
	BaseURL string

	httpClient  *http.Client
	auth        TokenSource
	limiter     *rate.Limiter
	authors     AuthorCache
	clock       digest.Clock
	userAgent   string
	maxAttempts int

	mu   sync.Mutex
	memo map[string]*time.Time // per-process author memo on top of the cache
}

var _ digest.SourceClient = (*Client)(nil)

func NewClient(httpClient *http.Client, auth TokenSource, authors AuthorCache,
	limiter *rate.Limiter, clock digest.Clock, userAgent string, maxAttempts int) *Client {
	return &Client{
		BaseURL:     defaultBaseURL,
		httpClient:  httpClient,
		auth:        auth,
		limiter:     limiter,
		authors:     authors,
		clock:       clock,
		userAgent:   userAgent,
		maxAttempts: maxAttempts,
		memo:        make(map[string]*time.Time),
	}
}

// FetchPosts walks the listing pages for the spec's mode via the "after"
// cursor. For the "new" mode the walk stops early once a page's oldest post
// precedes the window lower bound; other modes are not guaranteed to be
// reverse-chronological, so the full page set is scanned.
func (c *Client) FetchPosts(ctx context.Context, spec digest.SourceSpec) ([]digest.Post, int, error) {
	cutoff := c.clock.Now().Add(-time.Duration(spec.WindowHours) * time.Hour)

	var posts []digest.Post
	total := 0
	after := ""

	for page := 0; page < maxListingPages; page++ {
		var l listing
		if err := c.getJSON(ctx, c.listingURL(spec, after), &l); err != nil {
			return nil, 0, fmt.Errorf("failed to fetch r/%s listing: %w", spec.Name, err)
		}

		if len(l.Data.Children) == 0 {
			break
		}

		pageDone := false
		for _, child := range l.Data.Children {
			if child.Kind != "t3" {
				continue
			}
			total++
			post := toPost(child.Data)
			posts = append(posts, post)
			if spec.Mode == "new" && post.CreatedAt.Before(cutoff) {
				pageDone = true
			}
		}

		if pageDone || l.Data.After == "" {
			break
		}
		after = l.Data.After
	}

	return posts, total, nil
}

// FetchComments retrieves the top-level comments of a post and resolves each
// author's account creation time through the cache, falling back to the
// /user/<name>/about endpoint.
func (c *Client) FetchComments(ctx context.Context, post digest.Post) ([]digest.Comment, error) {
	u := fmt.Sprintf("%s/comments/%s.json?raw_json=1&limit=%d&depth=1&sort=top",
		c.BaseURL, url.PathEscape(post.ID), pageLimit)

	// The comments endpoint returns a two-element array: the post listing
	// followed by the comment listing.
	var listings []listing
	if err := c.getJSON(ctx, u, &listings); err != nil {
		return nil, fmt.Errorf("failed to fetch comments for post %s: %w", post.ID, err)
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var comments []digest.Comment
	for _, child := range listings[1].Data.Children {
		if child.Kind != "t1" || child.Data.Depth > 0 {
			continue
		}
		createdAt, err := c.resolveAuthor(ctx, child.Data.Author)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve author %q: %w", child.Data.Author, err)
		}
		comments = append(comments, digest.Comment{
			ID:              child.Data.ID,
			PostID:          post.ID,
			Body:            child.Data.Body,
			Author:          child.Data.Author,
			AuthorCreatedAt: createdAt,
			Score:           child.Data.Score,
		})
	}

	return comments, nil
}

func (c *Client) listingURL(spec digest.SourceSpec, after string) string {
	q := url.Values{}
	q.Set("raw_json", "1")
	q.Set("limit", strconv.Itoa(pageLimit))
	if spec.Mode == "top" {
		if t, ok := topTimeFilter[spec.WindowHours]; ok {
			q.Set("t", t)
		}
	}
	if after != "" {
		q.Set("after", after)
	}
	return fmt.Sprintf("%s/r/%s/%s.json?%s", c.BaseURL, url.PathEscape(spec.Name), spec.Mode, q.Encode())
}

// resolveAuthor returns the account creation time for an author, or nil when
// it cannot be determined. Deleted authors and failed lookups are remembered
// so they are not queried again.
func (c *Client) resolveAuthor(ctx context.Context, name string) (*time.Time, error) {
	if name == "" || name == "[deleted]" {
		return nil, nil
	}

	c.mu.Lock()
	if createdAt, ok := c.memo[name]; ok {
		c.mu.Unlock()
		return createdAt, nil
	}
	c.mu.Unlock()

	if c.authors != nil {
		createdAt, ok, err := c.authors.Get(name)
		if err != nil {
			return nil, fmt.Errorf("author cache read failed: %w", err)
		}
		if ok {
			c.remember(name, createdAt)
			return createdAt, nil
		}
	}

	var about aboutResponse
	u := fmt.Sprintf("%s/user/%s/about.json?raw_json=1", c.BaseURL, url.PathEscape(name))
	err := c.getJSON(ctx, u, &about)

	var createdAt *time.Time
	switch {
	case err == nil && about.Data.CreatedUTC > 0:
		t := time.Unix(int64(about.Data.CreatedUTC), 0).UTC()
		createdAt = &t
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		// Suspended or deleted accounts surface as fetch errors; cache the
		// unknown so the comment stays excluded without re-querying.
		slog.Debug("Author lookup failed", "author", name, "error", err)
	}

	c.remember(name, createdAt)
	if c.authors != nil {
		if err := c.authors.Put(name, createdAt); err != nil {
			slog.Warn("Author cache write failed", "author", name, "error", err)
		}
	}

	return createdAt, nil
}

func (c *Client) remember(name string, createdAt *time.Time) {
	c.mu.Lock()
	c.memo[name] = createdAt
	c.mu.Unlock()
}

// getJSON performs a GET with the shared rate limiter and bounded retries.
// 429 responses wait for the server-supplied Retry-After (or the backoff
// schedule) and retry; timeouts and 5xx retry with exponential backoff plus
// jitter; 401/403/404 fail immediately.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter wait failed: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		if c.auth != nil {
			token, err := c.auth.Token(ctx)
			if err != nil {
				return fmt.Errorf("failed to obtain token: %w", err)
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if waitErr := c.backoff(ctx, attempt, 0); waitErr != nil {
				return waitErr
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			if waitErr := c.backoff(ctx, attempt, 0); waitErr != nil {
				return waitErr
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				// Truncated responses happen under load; retryable.
				lastErr = fmt.Errorf("failed to parse response: %w", err)
				if waitErr := c.backoff(ctx, attempt, 0); waitErr != nil {
					return waitErr
				}
				continue
			}
			return nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("authentication rejected with status %d", resp.StatusCode)

		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound

		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (status 429)")
			delay := retryAfter(resp)
			slog.Debug("Rate limited, backing off", "url", url, "attempt", attempt, "retry_after", delay.String())
			if waitErr := c.backoff(ctx, attempt, delay); waitErr != nil {
				return waitErr
			}

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error (status %d)", resp.StatusCode)
			if waitErr := c.backoff(ctx, attempt, 0); waitErr != nil {
				return waitErr
			}

		default:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", c.maxAttempts, lastErr)
}

// backoff waits before the next attempt. A positive serverDelay (from
// Retry-After) overrides the exponential schedule.
func (c *Client) backoff(ctx context.Context, attempt int, serverDelay time.Duration) error {
	if attempt >= c.maxAttempts {
		return nil
	}

	delay := serverDelay
	if delay <= 0 {
		delay = baseBackoff << uint(attempt-1)
		if delay > maxBackoff {
			delay = maxBackoff
		}
		delay += time.Duration(rand.Int63n(int64(jitterMax)))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	delay := time.Duration(seconds) * time.Second
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

func toPost(t thing) digest.Post {
	permalink := t.Permalink
	if permalink != "" {
		permalink = "https://reddit.com" + permalink
	}
	return digest.Post{
		ID:           t.ID,
		Title:        t.Title,
		URL:          t.URL,
		Permalink:    permalink,
		Author:       t.Author,
		Score:        t.Score,
		CommentCount: t.NumComments,
		CreatedAt:    time.Unix(int64(t.CreatedUTC), 0).UTC(),
	}
}
