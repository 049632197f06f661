// Package homework holds the student assignment domain: assignments,
// their problems, attempt history, and the stores that persist them.
package homework

import (
	"errors"
	"time"
)

// ErrNotFound is returned when an assignment or problem does not exist.
var ErrNotFound = errors.New("not found")

// AttemptStatus is the student-reported state of a problem.
type AttemptStatus string

const (
	StatusNotStarted AttemptStatus = "not_started"
	StatusSolved     AttemptStatus = "solved"
	StatusStuck      AttemptStatus = "stuck"
	StatusQuestion   AttemptStatus = "question"
)

// Valid reports whether s is a known status.
func (s AttemptStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusSolved, StatusStuck, StatusQuestion:
		return true
	}
	return false
}

// Attempt is the latest recorded status transition for one problem.
type Attempt struct {
	Status           AttemptStatus `json:"status"`
	UpdatedAt        time.Time     `json:"updated_at"`
	TimeSpentSeconds *int          `json:"time_spent_seconds,omitempty"`
	StuckReason      string        `json:"stuck_reason,omitempty"` // student-reported, only meaningful when stuck
}

// Problem is one problem of an assignment.
type Problem struct {
	ID            string  `json:"id"`
	AssignmentID  string  `json:"assignment_id"`
	ProblemNumber int     `json:"problem_number"`
	ProblemText   string  `json:"problem_text,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
	LatestAttempt Attempt `json:"latest_attempt"`
}

// Progress holds an assignment's status totals.
type Progress struct {
	Total    int `json:"total"`
	Solved   int `json:"solved"`
	Stuck    int `json:"stuck"`
	Question int `json:"question"`
}

// Assignment is a homework unit owned by one student.
type Assignment struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Title     string    `json:"title"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
}
