package authors

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestRepository_Get_MissingAuthor(t *testing.T) {
	repo := openTestRepository(t)

	createdAt, found, err := repo.Get("nobody")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if found {
		t.Errorf("Expected missing author to report not found")
	}
	if createdAt != nil {
		t.Errorf("Expected nil timestamp for missing author")
	}
}

func TestRepository_PutGet_RoundTrip(t *testing.T) {
	repo := openTestRepository(t)

	created := time.Date(2018, 3, 15, 10, 0, 0, 0, time.UTC)
	if err := repo.Put("alice", &created); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	got, found, err := repo.Get("alice")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if !found {
		t.Fatalf("Expected author to be found")
	}
	if got == nil || !got.Equal(created) {
		t.Errorf("Expected %v, got %v", created, got)
	}
}

func TestRepository_Put_UnknownAuthor(t *testing.T) {
	repo := openTestRepository(t)

	if err := repo.Put("suspended", nil); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	createdAt, found, err := repo.Get("suspended")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if !found {
		t.Errorf("Expected unknown author to still be present in the cache")
	}
	if createdAt != nil {
		t.Errorf("Expected nil timestamp for unknown metadata, got %v", createdAt)
	}
}

func TestRepository_Put_Upsert(t *testing.T) {
	repo := openTestRepository(t)

	if err := repo.Put("alice", nil); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Put("alice", &created); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	got, _, err := repo.Get("alice")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if got == nil || !got.Equal(created) {
		t.Errorf("Expected upsert to replace the entry, got %v", got)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 cached author after upsert, got %d", count)
	}
}

func TestRepository_Count(t *testing.T) {
	repo := openTestRepository(t)

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty cache, got %d", count)
	}

	created := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.Put("alice", &created)
	repo.Put("bob", nil)

	count, err = repo.Count()
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 cached authors, got %d", count)
	}
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	repo, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open repository: %v", err)
	}
	created := time.Date(2017, 8, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Put("alice", &created); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	repo.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen repository: %v", err)
	}
	defer reopened.Close()

	got, found, err := reopened.Get("alice")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if !found || got == nil || !got.Equal(created) {
		t.Errorf("Expected entry to survive reopen, got %v (found %v)", got, found)
	}
}
