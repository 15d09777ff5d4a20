package tasks

import (
	"sync"
	"time"

	"github.com/lysyi3m/reddit-digest/app/digest"
)

// Store holds the most recently generated digest for the HTTP API. Written
// by the digest task, read by the handlers.
type Store struct {
	mu          sync.RWMutex
	name        string
	text        string
	generatedAt time.Time
	sections    int
	failures    []digest.SourceFailure
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Set(name, text string, generatedAt time.Time, sections int, failures []digest.SourceFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.text = text
	s.generatedAt = generatedAt
	s.sections = sections
	s.failures = failures
}

// Latest returns the current digest; ok is false before the first
// successful generation.
func (s *Store) Latest() (name, text string, generatedAt time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name, s.text, s.generatedAt, s.text != ""
}

// Stats returns section and failure counts for the latest generation.
func (s *Store) Stats() (sections int, failures []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.failures {
		failures = append(failures, f.Error())
	}
	return s.sections, failures
}
