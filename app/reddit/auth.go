package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTokenURL = "https://www.reddit.com/api/v1/access_token"

// TokenSource provides a valid bearer token for API requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken returns a TokenSource that always yields the given token.
// Useful for tests and pre-issued tokens.
func StaticToken(token string) TokenSource {
	return staticToken(token)
}

type staticToken string

func (t staticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// AppAuth implements the application-only OAuth flow (client_credentials).
// Tokens are cached and refreshed shortly before expiry.
type AppAuth struct {
	TokenURL string

	clientID     string
	clientSecret string
	userAgent    string
	httpClient   *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewAppAuth(clientID, clientSecret, userAgent string, httpClient *http.Client) *AppAuth {
	return &AppAuth{
		TokenURL:     defaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		httpClient:   httpClient,
	}
}

func (a *AppAuth) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.expiresAt.Add(-1*time.Minute)) {
		return a.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty access token")
	}

	a.token = tok.AccessToken
	a.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	return a.token, nil
}
