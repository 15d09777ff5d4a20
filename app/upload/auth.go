package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultGoogleTokenURL = "https://oauth2.googleapis.com/token"

// TokenSource provides a valid bearer token for the upload destination.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// credentialsFile is the stored OAuth grant for the Drive upload.
type credentialsFile struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// GoogleAuth refreshes an access token from a stored refresh-token grant.
// Tokens are cached until shortly before expiry.
type GoogleAuth struct {
	TokenURL string

	creds      credentialsFile
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

var _ TokenSource = (*GoogleAuth)(nil)

// NewGoogleAuth loads the credentials file written by the one-time
// interactive authorization flow.
func NewGoogleAuth(credentialsPath string, httpClient *http.Client) (*GoogleAuth, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, fmt.Errorf("credentials file is missing client_id, client_secret or refresh_token")
	}

	return &GoogleAuth{
		TokenURL:   defaultGoogleTokenURL,
		creds:      creds,
		httpClient: httpClient,
	}, nil
}

func (a *GoogleAuth) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.expiresAt.Add(-1*time.Minute)) {
		return a.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", a.creds.ClientID)
	form.Set("client_secret", a.creds.ClientSecret)
	form.Set("refresh_token", a.creds.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
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
