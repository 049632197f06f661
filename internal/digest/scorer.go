package digest

import (
	"sort"

	"github.com/studyloop/tutor-backend/internal/homework"
)

// ScoreAttempt computes a problem's teacher-attention score from its
// latest attempt. A stuck problem contributes 5, an open question 4,
// and time spent adds one point per full minute, capped at 3.
func ScoreAttempt(a homework.Attempt) int {
	score := 0
	switch a.Status {
	case homework.StatusStuck:
		score += 5
	case homework.StatusQuestion:
		score += 4
	}
	if a.TimeSpentSeconds != nil && *a.TimeSpentSeconds > 0 {
		minutes := *a.TimeSpentSeconds / 60
		if minutes > 3 {
			minutes = 3
		}
		score += minutes
	}
	return score
}

type scoredProblem struct {
	homework.Problem
	Score int
}

// rankProblems scores every problem and sorts descending by score.
// Ties keep the incoming order, which ListProblems guarantees to be
// problem-number order.
func rankProblems(problems []homework.Problem) []scoredProblem {
	ranked := make([]scoredProblem, 0, len(problems))
	for _, p := range problems {
		ranked = append(ranked, scoredProblem{Problem: p, Score: ScoreAttempt(p.LatestAttempt)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}
