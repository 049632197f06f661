package homework

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AssignmentStore reads assignment records.
type AssignmentStore interface {
	GetAssignment(ctx context.Context, id string) (*Assignment, error)
}

// ProblemStore reads and mutates the problems of an assignment.
type ProblemStore interface {
	// ListProblems returns all problems of an assignment ordered by
	// problem number.
	ListProblems(ctx context.Context, assignmentID string) ([]Problem, error)
	// UpdateAttempt replaces a problem's latest attempt.
	UpdateAttempt(ctx context.Context, problemID string, attempt Attempt) error
}

// HelpStore reads a student's recorded help requests per problem.
type HelpStore interface {
	// EarliestHint returns the earliest recorded help text for a
	// problem, or "" when the problem has none.
	EarliestHint(ctx context.Context, problemID string) (string, error)
}

// MemoryStore is an in-memory implementation of all homework stores,
// used in development and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[string]*Assignment
	problems    map[string]*Problem
	hints       map[string][]timedHint // problemID -> hints in record order
}

type timedHint struct {
	text string
	at   time.Time
}

// NewMemoryStore creates a new in-memory homework store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assignments: make(map[string]*Assignment),
		problems:    make(map[string]*Problem),
		hints:       make(map[string][]timedHint),
	}
}

// AddAssignment inserts an assignment and returns its id.
func (s *MemoryStore) AddAssignment(a Assignment) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.assignments[a.ID] = &a
	return a.ID
}

// AddProblem inserts a problem and returns its id.
func (s *MemoryStore) AddProblem(p Problem) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.LatestAttempt.Status == "" {
		p.LatestAttempt.Status = StatusNotStarted
	}
	s.problems[p.ID] = &p
	if a, ok := s.assignments[p.AssignmentID]; ok {
		a.Progress.Total++
		bumpCounter(&a.Progress, p.LatestAttempt.Status, 1)
	}
	return p.ID
}

// AddHint records a help text for a problem.
func (s *MemoryStore) AddHint(problemID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hints[problemID] = append(s.hints[problemID], timedHint{text: text, at: time.Now()})
}

func (s *MemoryStore) GetAssignment(_ context.Context, id string) (*Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	copied := *a
	return &copied, nil
}

func (s *MemoryStore) ListProblems(_ context.Context, assignmentID string) ([]Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Problem
	for _, p := range s.problems {
		if p.AssignmentID == assignmentID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProblemNumber < out[j].ProblemNumber })
	return out, nil
}

func (s *MemoryStore) UpdateAttempt(_ context.Context, problemID string, attempt Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.problems[problemID]
	if !ok {
		return fmt.Errorf("problem %s: %w", problemID, ErrNotFound)
	}
	if attempt.UpdatedAt.IsZero() {
		attempt.UpdatedAt = time.Now()
	}
	if a, ok := s.assignments[p.AssignmentID]; ok && p.LatestAttempt.Status != attempt.Status {
		bumpCounter(&a.Progress, p.LatestAttempt.Status, -1)
		bumpCounter(&a.Progress, attempt.Status, 1)
	}
	p.LatestAttempt = attempt
	return nil
}

func bumpCounter(pr *Progress, status AttemptStatus, delta int) {
	switch status {
	case StatusSolved:
		pr.Solved += delta
	case StatusStuck:
		pr.Stuck += delta
	case StatusQuestion:
		pr.Question += delta
	}
}

func (s *MemoryStore) EarliestHint(_ context.Context, problemID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hints := s.hints[problemID]
	if len(hints) == 0 {
		return "", nil
	}
	earliest := hints[0]
	for _, h := range hints[1:] {
		if h.at.Before(earliest.at) {
			earliest = h
		}
	}
	return earliest.text, nil
}
