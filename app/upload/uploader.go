package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lysyi3m/reddit-digest/app/digest"
)

// Uploader hands a rendered document to a destination and returns an opaque
// reference to it (a path or a remote URL).
type Uploader interface {
	Upload(ctx context.Context, title, text string) (string, error)
}

// LocalWriter writes the digest as a timestamped markdown file into the
// output directory.
type LocalWriter struct {
	outputDir string
	clock     digest.Clock
}

var _ Uploader = (*LocalWriter)(nil)

func NewLocalWriter(outputDir string, clock digest.Clock) *LocalWriter {
	return &LocalWriter{outputDir: outputDir, clock: clock}
}

func (w *LocalWriter) Upload(ctx context.Context, title, text string) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir, title+".md")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write digest file: %w", err)
	}

	return path, nil
}

// Filename builds the timestamped document title used for both the local
// file and the uploaded doc.
func Filename(clock digest.Clock) string {
	return "reddit_digest_" + clock.Now().Format("2006-01-02_15-04-05")
}
