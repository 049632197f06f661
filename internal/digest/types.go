// Package digest builds and persists the per-assignment teacher digest:
// the highest-priority problems, common stuck reasons mined from help
// history, and aggregate time figures.
package digest

import (
	"errors"
	"time"

	"github.com/studyloop/tutor-backend/internal/homework"
)

// ErrValidation is returned for bad caller input, such as confirming
// more than MaxConfirmedProblems problems at once.
var ErrValidation = errors.New("invalid input")

const (
	// MaxTopProblems caps the number of problem summaries in a digest.
	MaxTopProblems = 5
	// MaxConfirmedProblems caps the teacher's confirmed selection.
	MaxConfirmedProblems = 5

	maxStuckReasons = 5
	maxStuckVisited = 10
	reasonMaxRunes  = 50
)

// ProblemSummary is the compact projection of one high-priority problem.
// StuckReason is set only when the latest attempt status is stuck.
type ProblemSummary struct {
	ProblemID        string                 `json:"problem_id"`
	ProblemNumber    int                    `json:"problem_number"`
	ProblemText      string                 `json:"problem_text,omitempty"`
	ImageURL         string                 `json:"image_url,omitempty"`
	Status           homework.AttemptStatus `json:"status"`
	Score            int                    `json:"score"`
	StuckReason      string                 `json:"stuck_reason,omitempty"`
	TimeSpentSeconds *int                   `json:"time_spent_seconds,omitempty"`
}

// Summary aggregates over all problems of the assignment, not just the
// ones that made the top list. AverageTimeSpentSeconds is nil when the
// assignment has no problems.
type Summary struct {
	TotalProblems           int      `json:"total_problems"`
	Solved                  int      `json:"solved"`
	Stuck                   int      `json:"stuck"`
	Question                int      `json:"question"`
	CommonStuckReasons      []string `json:"common_stuck_reasons,omitempty"`
	AverageTimeSpentSeconds *int     `json:"average_time_spent_seconds,omitempty"`
}

// Digest is the persisted teacher summary, at most one per assignment.
type Digest struct {
	AssignmentID        string           `json:"assignment_id"`
	StudentID           string           `json:"student_id"`
	TopProblems         []ProblemSummary `json:"top_problems"`
	Summary             Summary          `json:"summary"`
	ConfirmedProblemIDs []string         `json:"confirmed_problem_ids,omitempty"`
	Checksum            string           `json:"checksum"`
	GeneratedAt         time.Time        `json:"generated_at"`
}
