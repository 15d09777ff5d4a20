package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/lysyi3m/reddit-digest/app/digest"
)

const (
	defaultDriveAPIURL    = "https://www.googleapis.com/drive/v3"
	defaultDriveUploadURL = "https://www.googleapis.com/upload/drive/v3"

	folderMimeType = "application/vnd.google-apps.folder"
	docMimeType    = "application/vnd.google-apps.document"
)

// DriveUploader converts the markdown digest into a Google Doc inside
// <folderName>/<YYYY-MM-DD>/ on Drive.
type DriveUploader struct {
	// Base URLs are overridable for tests.
	APIURL    string
	UploadURL string

	httpClient *http.Client
	auth       TokenSource
	folderName string
	clock      digest.Clock
}

var _ Uploader = (*DriveUploader)(nil)

func NewDriveUploader(httpClient *http.Client, auth TokenSource, folderName string, clock digest.Clock) *DriveUploader {
	return &DriveUploader{
		APIURL:     defaultDriveAPIURL,
		UploadURL:  defaultDriveUploadURL,
		httpClient: httpClient,
		auth:       auth,
		folderName: folderName,
		clock:      clock,
	}
}

func (u *DriveUploader) Upload(ctx context.Context, title, text string) (string, error) {
	parentID, err := u.ensureFolder(ctx, u.folderName, "")
	if err != nil {
		return "", fmt.Errorf("failed to ensure folder %q: %w", u.folderName, err)
	}

	day := u.clock.Now().Format("2006-01-02")
	dayID, err := u.ensureFolder(ctx, day, parentID)
	if err != nil {
		return "", fmt.Errorf("failed to ensure folder %q: %w", day, err)
	}

	docID, err := u.uploadDoc(ctx, title, text, dayID)
	if err != nil {
		return "", err
	}

	ref := "https://docs.google.com/document/d/" + docID + "/edit"
	slog.Info("Digest uploaded", "folder", u.folderName+"/"+day, "doc", ref)
	return ref, nil
}

// ensureFolder returns the id of the named folder under parentID (root when
// empty), creating it when missing.
func (u *DriveUploader) ensureFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false", folderMimeType, name)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", parentID)
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("fields", "files(id,name)")

	var found struct {
		Files []struct {
			ID string `json:"id"`
		} `json:"files"`
	}
	if err := u.doJSON(ctx, http.MethodGet, u.APIURL+"/files?"+q.Encode(), "", nil, &found); err != nil {
		return "", err
	}
	if len(found.Files) > 0 {
		return found.Files[0].ID, nil
	}

	meta := map[string]any{
		"name":     name,
		"mimeType": folderMimeType,
	}
	if parentID != "" {
		meta["parents"] = []string{parentID}
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal folder metadata: %w", err)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := u.doJSON(ctx, http.MethodPost, u.APIURL+"/files?fields=id", "application/json", bytes.NewReader(payload), &created); err != nil {
		return "", err
	}

	return created.ID, nil
}

// uploadDoc performs a multipart upload that converts the markdown text into
// a Google Doc in one request.
func (u *DriveUploader) uploadDoc(ctx context.Context, title, text, parentID string) (string, error) {
	meta := map[string]any{
		"name":     title,
		"mimeType": docMimeType,
		"parents":  []string{parentID},
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal doc metadata: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	metaPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create metadata part: %w", err)
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return "", fmt.Errorf("failed to write metadata part: %w", err)
	}

	textPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/markdown; charset=UTF-8"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create content part: %w", err)
	}
	if _, err := textPart.Write([]byte(text)); err != nil {
		return "", fmt.Errorf("failed to write content part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	contentType := "multipart/related; boundary=" + writer.Boundary()

	var created struct {
		ID string `json:"id"`
	}
	if err := u.doJSON(ctx, http.MethodPost, u.UploadURL+"/files?uploadType=multipart&fields=id", contentType, &body, &created); err != nil {
		return "", fmt.Errorf("failed to upload doc: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("upload returned no document id")
	}

	return created.ID, nil
}

func (u *DriveUploader) doJSON(ctx context.Context, method, url, contentType string, body io.Reader, out any) error {
	token, err := u.auth.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("drive returned status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
