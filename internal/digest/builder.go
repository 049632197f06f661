package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyloop/tutor-backend/internal/homework"
)

// Builder assembles and persists assignment digests.
type Builder struct {
	assignments homework.AssignmentStore
	problems    homework.ProblemStore
	help        homework.HelpStore
	store       Store
	logger      *slog.Logger
	now         func() time.Time
}

// NewBuilder creates a digest builder over the given collaborators.
func NewBuilder(assignments homework.AssignmentStore, problems homework.ProblemStore, help homework.HelpStore, store Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		assignments: assignments,
		problems:    problems,
		help:        help,
		store:       store,
		logger:      logger,
		now:         time.Now,
	}
}

// Build generates the digest for an assignment and upserts it, keyed by
// assignment id. Nothing is persisted if any collaborator read fails.
// When the scored content is unchanged since the stored digest, the
// stored record is returned as-is without a write, so repeated
// generation after no status change is idempotent.
func (b *Builder) Build(ctx context.Context, assignmentID string) (*Digest, error) {
	type listResult struct {
		problems []homework.Problem
		err      error
	}
	// The assignment and its problem list are independent reads.
	listCh := make(chan listResult, 1)
	go func() {
		ps, err := b.problems.ListProblems(ctx, assignmentID)
		listCh <- listResult{problems: ps, err: err}
	}()

	assignment, err := b.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		<-listCh
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	listed := <-listCh
	if listed.err != nil {
		return nil, fmt.Errorf("list problems: %w", listed.err)
	}

	d := assemble(assignment, listed.problems)
	reasons, err := b.collectStuckReasons(ctx, listed.problems)
	if err != nil {
		return nil, err
	}
	d.Summary.CommonStuckReasons = reasons
	d.Checksum = contentChecksum(d)

	stored, err := b.store.GetDigest(ctx, assignmentID)
	if err != nil && !errors.Is(err, homework.ErrNotFound) {
		return nil, fmt.Errorf("load stored digest: %w", err)
	}
	if stored != nil && stored.Checksum == d.Checksum {
		b.logger.Debug("digest unchanged, keeping stored record",
			"assignment_id", assignmentID)
		return stored, nil
	}

	// Content changed, so any previous teacher confirmation is stale
	// and the digest starts unconfirmed again.
	d.GeneratedAt = b.now()
	if err := b.store.UpsertDigest(ctx, d); err != nil {
		return nil, fmt.Errorf("persist digest: %w", err)
	}

	b.logger.Info("digest generated",
		"assignment_id", assignmentID,
		"student_id", d.StudentID,
		"top_problems", len(d.TopProblems),
		"stuck_reasons", len(d.Summary.CommonStuckReasons))
	return d, nil
}

// Confirm records the teacher's reviewed selection on an existing
// digest. At most MaxConfirmedProblems ids may be chosen, and each must
// name a problem in the digest's top list.
func (b *Builder) Confirm(ctx context.Context, assignmentID string, problemIDs []string) (*Digest, error) {
	if len(problemIDs) > MaxConfirmedProblems {
		return nil, fmt.Errorf("%w: at most %d problems can be confirmed, got %d",
			ErrValidation, MaxConfirmedProblems, len(problemIDs))
	}

	d, err := b.store.GetDigest(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("load digest: %w", err)
	}

	known := make(map[string]bool, len(d.TopProblems))
	for _, p := range d.TopProblems {
		known[p.ProblemID] = true
	}
	seen := make(map[string]bool, len(problemIDs))
	confirmed := make([]string, 0, len(problemIDs))
	for _, id := range problemIDs {
		if !known[id] {
			return nil, fmt.Errorf("%w: problem %s is not part of the digest", ErrValidation, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		confirmed = append(confirmed, id)
	}

	if err := b.store.SetConfirmedProblems(ctx, assignmentID, confirmed); err != nil {
		return nil, fmt.Errorf("persist confirmation: %w", err)
	}
	d.ConfirmedProblemIDs = confirmed

	b.logger.Info("digest confirmed",
		"assignment_id", assignmentID,
		"confirmed", len(confirmed))
	return d, nil
}

// assemble builds the digest's scored fields from the assignment and
// its full problem list. Stuck reasons are filled in separately.
func assemble(a *homework.Assignment, problems []homework.Problem) *Digest {
	ranked := rankProblems(problems)
	if len(ranked) > MaxTopProblems {
		ranked = ranked[:MaxTopProblems]
	}

	top := make([]ProblemSummary, 0, len(ranked))
	for _, sp := range ranked {
		s := ProblemSummary{
			ProblemID:        sp.ID,
			ProblemNumber:    sp.ProblemNumber,
			ProblemText:      sp.ProblemText,
			ImageURL:         sp.ImageURL,
			Status:           sp.LatestAttempt.Status,
			Score:            sp.Score,
			TimeSpentSeconds: sp.LatestAttempt.TimeSpentSeconds,
		}
		if sp.LatestAttempt.Status == homework.StatusStuck {
			s.StuckReason = sp.LatestAttempt.StuckReason
		}
		top = append(top, s)
	}

	sum := Summary{TotalProblems: len(problems)}
	totalSeconds := 0
	for _, p := range problems {
		switch p.LatestAttempt.Status {
		case homework.StatusSolved:
			sum.Solved++
		case homework.StatusStuck:
			sum.Stuck++
		case homework.StatusQuestion:
			sum.Question++
		}
		if p.LatestAttempt.TimeSpentSeconds != nil {
			totalSeconds += *p.LatestAttempt.TimeSpentSeconds
		}
	}
	if len(problems) > 0 {
		avg := totalSeconds / len(problems)
		sum.AverageTimeSpentSeconds = &avg
	}

	return &Digest{
		AssignmentID: a.ID,
		StudentID:    a.StudentID,
		TopProblems:  top,
		Summary:      sum,
	}
}

// collectStuckReasons visits up to the first maxStuckVisited stuck
// problems in problem order, takes each one's earliest recorded help
// text truncated to reasonMaxRunes runes, and keeps the first
// maxStuckReasons distinct strings.
func (b *Builder) collectStuckReasons(ctx context.Context, problems []homework.Problem) ([]string, error) {
	var reasons []string
	seen := make(map[string]bool)
	visited := 0
	for _, p := range problems {
		if p.LatestAttempt.Status != homework.StatusStuck {
			continue
		}
		if visited == maxStuckVisited || len(reasons) == maxStuckReasons {
			break
		}
		visited++

		hint, err := b.help.EarliestHint(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("earliest hint for problem %s: %w", p.ID, err)
		}
		if hint == "" {
			continue
		}
		reason := truncateRunes(hint, reasonMaxRunes)
		if seen[reason] {
			continue
		}
		seen[reason] = true
		reasons = append(reasons, reason)
	}
	return reasons, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
