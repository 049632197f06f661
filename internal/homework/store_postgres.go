package homework

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyloop/tutor-backend/internal/platform/database"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed implementation of the homework
// stores.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed homework store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	a := &Assignment{}
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, student_id::text, title,
		        total_problems, solved_problems, stuck_problems, question_problems,
		        created_at
		 FROM assignments
		 WHERE id = $1::uuid`,
		id,
	).Scan(
		&a.ID,
		&a.StudentID,
		&a.Title,
		&a.Progress.Total,
		&a.Progress.Solved,
		&a.Progress.Stuck,
		&a.Progress.Question,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListProblems(ctx context.Context, assignmentID string) ([]Problem, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, assignment_id::text, problem_number,
		        COALESCE(problem_text, ''), COALESCE(image_url, ''),
		        status, attempt_updated_at, time_spent_seconds,
		        COALESCE(stuck_reason, '')
		 FROM problems
		 WHERE assignment_id = $1::uuid
		 ORDER BY problem_number ASC`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query problems: %w", err)
	}
	defer rows.Close()

	var out []Problem
	for rows.Next() {
		var p Problem
		if err := rows.Scan(
			&p.ID,
			&p.AssignmentID,
			&p.ProblemNumber,
			&p.ProblemText,
			&p.ImageURL,
			&p.LatestAttempt.Status,
			&p.LatestAttempt.UpdatedAt,
			&p.LatestAttempt.TimeSpentSeconds,
			&p.LatestAttempt.StuckReason,
		); err != nil {
			return nil, fmt.Errorf("scan problem: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate problems: %w", err)
	}
	return out, nil
}

// UpdateAttempt replaces the problem's latest attempt and keeps the
// owning assignment's progress counters in step, in one transaction.
func (s *PostgresStore) UpdateAttempt(ctx context.Context, problemID string, attempt Attempt) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if !attempt.Status.Valid() {
		return fmt.Errorf("invalid attempt status %q", attempt.Status)
	}
	updatedAt := attempt.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	return database.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var assignmentID, oldStatus string
		err := tx.QueryRow(ctx,
			`SELECT assignment_id::text, status FROM problems WHERE id = $1::uuid FOR UPDATE`,
			problemID,
		).Scan(&assignmentID, &oldStatus)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("problem %s: %w", problemID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock problem: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE problems
			 SET status = $2, attempt_updated_at = $3, time_spent_seconds = $4, stuck_reason = $5
			 WHERE id = $1::uuid`,
			problemID,
			attempt.Status,
			updatedAt,
			attempt.TimeSpentSeconds,
			attempt.StuckReason,
		)
		if err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}

		if oldStatus == string(attempt.Status) {
			return nil
		}
		if old := counterColumn(AttemptStatus(oldStatus)); old != "" {
			if _, err := tx.Exec(ctx,
				`UPDATE assignments SET `+old+` = `+old+` - 1 WHERE id = $1::uuid`,
				assignmentID,
			); err != nil {
				return fmt.Errorf("decrement %s: %w", old, err)
			}
		}
		if next := counterColumn(attempt.Status); next != "" {
			if _, err := tx.Exec(ctx,
				`UPDATE assignments SET `+next+` = `+next+` + 1 WHERE id = $1::uuid`,
				assignmentID,
			); err != nil {
				return fmt.Errorf("increment %s: %w", next, err)
			}
		}
		return nil
	})
}

// counterColumn maps a status to its assignments counter column.
// Not-started problems are only counted in the total.
func counterColumn(status AttemptStatus) string {
	switch status {
	case StatusSolved:
		return "solved_problems"
	case StatusStuck:
		return "stuck_problems"
	case StatusQuestion:
		return "question_problems"
	}
	return ""
}

func (s *PostgresStore) EarliestHint(ctx context.Context, problemID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var text string
	err := s.pool.QueryRow(ctx,
		`SELECT hint_text
		 FROM help_requests
		 WHERE problem_id = $1::uuid
		 ORDER BY created_at ASC
		 LIMIT 1`,
		problemID,
	).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get earliest hint: %w", err)
	}
	return text, nil
}
