package digest

import (
	"context"
	"fmt"
	"sync"

	"github.com/studyloop/tutor-backend/internal/homework"
)

// Store persists digests, at most one per assignment.
type Store interface {
	// GetDigest returns the digest for an assignment, or an error
	// wrapping homework.ErrNotFound when none exists.
	GetDigest(ctx context.Context, assignmentID string) (*Digest, error)
	// UpsertDigest inserts the digest or fully replaces the existing
	// one for the same assignment.
	UpsertDigest(ctx context.Context, d *Digest) error
	// SetConfirmedProblems replaces the confirmed selection of an
	// existing digest.
	SetConfirmedProblems(ctx context.Context, assignmentID string, problemIDs []string) error
}

// MemoryStore is an in-memory digest store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	digests map[string]*Digest
}

// NewMemoryStore creates a new in-memory digest store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{digests: make(map[string]*Digest)}
}

func (s *MemoryStore) GetDigest(_ context.Context, assignmentID string) (*Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.digests[assignmentID]
	if !ok {
		return nil, fmt.Errorf("digest for assignment %s: %w", assignmentID, homework.ErrNotFound)
	}
	return copyDigest(d), nil
}

func (s *MemoryStore) UpsertDigest(_ context.Context, d *Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests[d.AssignmentID] = copyDigest(d)
	return nil
}

func (s *MemoryStore) SetConfirmedProblems(_ context.Context, assignmentID string, problemIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.digests[assignmentID]
	if !ok {
		return fmt.Errorf("digest for assignment %s: %w", assignmentID, homework.ErrNotFound)
	}
	d.ConfirmedProblemIDs = append([]string(nil), problemIDs...)
	return nil
}

func copyDigest(d *Digest) *Digest {
	copied := *d
	copied.TopProblems = append([]ProblemSummary(nil), d.TopProblems...)
	copied.Summary.CommonStuckReasons = append([]string(nil), d.Summary.CommonStuckReasons...)
	copied.ConfirmedProblemIDs = append([]string(nil), d.ConfirmedProblemIDs...)
	return &copied
}
