package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyloop/tutor-backend/internal/homework"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed digest store. Digests live in a
// single row per assignment; the upsert replaces the whole document,
// so concurrent generations resolve last-write-wins.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed digest store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetDigest(ctx context.Context, assignmentID string) (*Digest, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	d := &Digest{}
	var topJSON, summaryJSON, confirmedJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT assignment_id::text, student_id::text,
		        top_problems, summary, COALESCE(confirmed_problem_ids, '[]'::jsonb),
		        checksum, generated_at
		 FROM digests
		 WHERE assignment_id = $1::uuid`,
		assignmentID,
	).Scan(
		&d.AssignmentID,
		&d.StudentID,
		&topJSON,
		&summaryJSON,
		&confirmedJSON,
		&d.Checksum,
		&d.GeneratedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("digest for assignment %s: %w", assignmentID, homework.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get digest: %w", err)
	}

	if err := json.Unmarshal(topJSON, &d.TopProblems); err != nil {
		return nil, fmt.Errorf("decode top problems: %w", err)
	}
	if err := json.Unmarshal(summaryJSON, &d.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if err := json.Unmarshal(confirmedJSON, &d.ConfirmedProblemIDs); err != nil {
		return nil, fmt.Errorf("decode confirmed problems: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) UpsertDigest(ctx context.Context, d *Digest) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	topJSON, err := json.Marshal(d.TopProblems)
	if err != nil {
		return fmt.Errorf("encode top problems: %w", err)
	}
	summaryJSON, err := json.Marshal(d.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	confirmedJSON, err := json.Marshal(d.ConfirmedProblemIDs)
	if err != nil {
		return fmt.Errorf("encode confirmed problems: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO digests (assignment_id, student_id, top_problems, summary,
		                      confirmed_problem_ids, checksum, generated_at)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7)
		 ON CONFLICT (assignment_id) DO UPDATE SET
		   student_id = EXCLUDED.student_id,
		   top_problems = EXCLUDED.top_problems,
		   summary = EXCLUDED.summary,
		   confirmed_problem_ids = EXCLUDED.confirmed_problem_ids,
		   checksum = EXCLUDED.checksum,
		   generated_at = EXCLUDED.generated_at`,
		d.AssignmentID,
		d.StudentID,
		topJSON,
		summaryJSON,
		confirmedJSON,
		d.Checksum,
		d.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert digest: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetConfirmedProblems(ctx context.Context, assignmentID string, problemIDs []string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	confirmedJSON, err := json.Marshal(problemIDs)
	if err != nil {
		return fmt.Errorf("encode confirmed problems: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE digests SET confirmed_problem_ids = $2 WHERE assignment_id = $1::uuid`,
		assignmentID,
		confirmedJSON,
	)
	if err != nil {
		return fmt.Errorf("set confirmed problems: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("digest for assignment %s: %w", assignmentID, homework.ErrNotFound)
	}
	return nil
}
