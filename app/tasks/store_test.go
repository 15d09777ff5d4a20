package tasks

import (
	"fmt"
	"testing"
	"time"

	"github.com/lysyi3m/reddit-digest/app/digest"
)

func TestStore_Latest_Empty(t *testing.T) {
	s := NewStore()

	if _, _, _, ok := s.Latest(); ok {
		t.Errorf("Expected no digest before the first generation")
	}
}

func TestStore_SetAndLatest(t *testing.T) {
	s := NewStore()
	generatedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.Set("reddit_digest_2025-06-01_12-00-00", "# Digest\n", generatedAt, 2, nil)

	name, text, got, ok := s.Latest()
	if !ok {
		t.Fatalf("Expected digest to be available")
	}
	if name != "reddit_digest_2025-06-01_12-00-00" || text != "# Digest\n" || !got.Equal(generatedAt) {
		t.Errorf("Unexpected stored digest: %q %q %v", name, text, got)
	}
}

func TestStore_Stats(t *testing.T) {
	s := NewStore()

	failures := []digest.SourceFailure{
		{Source: "beta", Err: fmt.Errorf("server error")},
	}
	s.Set("digest", "text", time.Now(), 3, failures)

	sections, failed := s.Stats()
	if sections != 3 {
		t.Errorf("Expected 3 sections, got %d", sections)
	}
	if len(failed) != 1 || failed[0] != `source "beta": server error` {
		t.Errorf("Unexpected failures %v", failed)
	}
}

func TestStore_Set_ReplacesPrevious(t *testing.T) {
	s := NewStore()

	s.Set("first", "old", time.Now(), 1, []digest.SourceFailure{{Source: "x", Err: fmt.Errorf("boom")}})
	s.Set("second", "new", time.Now(), 2, nil)

	name, text, _, _ := s.Latest()
	if name != "second" || text != "new" {
		t.Errorf("Expected the latest digest, got %q %q", name, text)
	}

	_, failed := s.Stats()
	if len(failed) != 0 {
		t.Errorf("Expected failure list replaced, got %v", failed)
	}
}
