package digest

import (
	"testing"
	"time"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func TestFilterer_Run_InclusiveWindowBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFilterer(fixedClock{now: now})

	posts := []Post{
		{ID: "exact", CreatedAt: now.Add(-24 * time.Hour)},
		{ID: "older", CreatedAt: now.Add(-24*time.Hour - time.Second)},
		{ID: "recent", CreatedAt: now.Add(-time.Hour)},
	}

	result := f.Run(posts, 24, 0)

	if len(result) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(result))
	}
	for _, p := range result {
		if p.ID == "older" {
			t.Errorf("Expected post older than the window to be excluded")
		}
	}
}

func TestFilterer_Run_TotalOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFilterer(fixedClock{now: now})

	created := now.Add(-2 * time.Hour)
	posts := []Post{
		{ID: "b", Score: 10, CreatedAt: created},
		{ID: "a", Score: 10, CreatedAt: created},
		{ID: "newer", Score: 10, CreatedAt: now.Add(-time.Hour)},
		{ID: "top", Score: 50, CreatedAt: now.Add(-3 * time.Hour)},
	}

	result := f.Run(posts, 24, 0)

	expected := []string{"top", "newer", "a", "b"}
	if len(result) != len(expected) {
		t.Fatalf("Expected %d posts, got %d", len(expected), len(result))
	}
	for i, id := range expected {
		if result[i].ID != id {
			t.Errorf("Expected post %q at position %d, got %q", id, i, result[i].ID)
		}
	}
}

func TestFilterer_Run_OrderIndependentOfInput(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFilterer(fixedClock{now: now})

	posts := []Post{
		{ID: "x", Score: 5, CreatedAt: now.Add(-time.Hour)},
		{ID: "y", Score: 8, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "z", Score: 5, CreatedAt: now.Add(-3 * time.Hour)},
	}
	reversed := []Post{posts[2], posts[1], posts[0]}

	a := f.Run(posts, 24, 0)
	b := f.Run(reversed, 24, 0)

	if len(a) != len(b) {
		t.Fatalf("Expected identical result lengths, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("Expected identical order at position %d, got %q and %q", i, a[i].ID, b[i].ID)
		}
	}
}

func TestFilterer_Run_TopNTruncates(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFilterer(fixedClock{now: now})

	posts := []Post{
		{ID: "p1", Score: 1, CreatedAt: now.Add(-time.Hour)},
		{ID: "p2", Score: 3, CreatedAt: now.Add(-time.Hour)},
		{ID: "p3", Score: 2, CreatedAt: now.Add(-time.Hour)},
	}

	result := f.Run(posts, 24, 2)

	if len(result) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(result))
	}
	if result[0].ID != "p2" || result[1].ID != "p3" {
		t.Errorf("Expected posts p2, p3, got %q, %q", result[0].ID, result[1].ID)
	}
}

func TestFilterer_Run_WindowThenRankThenTruncate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFilterer(fixedClock{now: now})

	posts := []Post{
		{ID: "1", Score: 10, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: "2", Score: 50, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "3", Score: 50, CreatedAt: now.Add(-30 * time.Hour)},
	}

	result := f.Run(posts, 24, 2)

	if len(result) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(result))
	}
	if result[0].ID != "2" || result[1].ID != "1" {
		t.Errorf("Expected posts 2, 1 (high score first, stale post excluded), got %q, %q",
			result[0].ID, result[1].ID)
	}
}

func TestFilterer_Run_TopNZeroUnbounded(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFilterer(fixedClock{now: now})

	posts := make([]Post, 0, 10)
	for i := 0; i < 10; i++ {
		posts = append(posts, Post{ID: string(rune('a' + i)), Score: i, CreatedAt: now.Add(-time.Hour)})
	}

	result := f.Run(posts, 24, 0)

	if len(result) != 10 {
		t.Errorf("Expected all 10 posts with topN 0, got %d", len(result))
	}
}

func TestFilterer_Run_DeduplicatesByID(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFilterer(fixedClock{now: now})

	posts := []Post{
		{ID: "dup", Score: 1, CreatedAt: now.Add(-time.Hour)},
		{ID: "dup", Score: 99, CreatedAt: now.Add(-time.Hour)},
		{ID: "other", Score: 5, CreatedAt: now.Add(-time.Hour)},
	}

	result := f.Run(posts, 24, 0)

	if len(result) != 2 {
		t.Fatalf("Expected 2 posts after deduplication, got %d", len(result))
	}
	for _, p := range result {
		if p.ID == "dup" && p.Score != 1 {
			t.Errorf("Expected first occurrence of duplicate to survive, got score %d", p.Score)
		}
	}
}

func TestFilterer_Run_NegativeScores(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFilterer(fixedClock{now: now})

	posts := []Post{
		{ID: "downvoted", Score: -5, CreatedAt: now.Add(-time.Hour)},
		{ID: "zero", Score: 0, CreatedAt: now.Add(-time.Hour)},
	}

	result := f.Run(posts, 24, 0)

	if len(result) != 2 {
		t.Fatalf("Expected negative-score posts to be kept, got %d posts", len(result))
	}
	if result[0].ID != "zero" {
		t.Errorf("Expected zero-score post ranked above negative, got %q first", result[0].ID)
	}
}
