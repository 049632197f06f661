package curriculum

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// NoMatchHint is returned when a subject and grade resolved but no
// curriculum term occurs in the text. It is still useful downstream:
// the prompt learns the transcript matched nothing in the syllabus.
const NoMatchHint = "No curriculum keyword matched the student's words."

const (
	maxHintEntries  = 5
	maxHintConcepts = 6
	maxHintKeywords = 6
)

// Match is one scored subunit. Score is the number of distinct terms
// (keywords, speech triggers, and concepts) found in the input text.
type Match struct {
	Score           int
	SubjectLabel    string
	CourseLabel     string
	UnitLabel       string
	SubunitTitle    string
	Concepts        []string
	MatchedKeywords []string
}

// Matcher scores free-form text against loaded curriculum trees.
// It holds only immutable reference data and is safe for concurrent use.
type Matcher struct {
	trees    []Tree
	subjects []subjectAlias
}

// subjectAlias maps a canonical subject name to its code. Aliases are
// evaluated in order; the first name contained in the caller's label wins.
type subjectAlias struct {
	name string // case-folded canonical subject label
	code string
}

// NewMatcher creates a matcher over the given trees. Subject aliases are
// derived from the trees in encounter order, so resolution is
// deterministic for a fixed tree load order.
func NewMatcher(trees []Tree) *Matcher {
	m := &Matcher{trees: trees}

	seen := make(map[string]bool)
	for _, tree := range trees {
		for _, node := range tree.Nodes {
			if seen[node.SubjectCode] {
				continue
			}
			seen[node.SubjectCode] = true
			m.subjects = append(m.subjects, subjectAlias{
				name: fold(node.SubjectLabel),
				code: node.SubjectCode,
			})
		}
	}
	return m
}

// ResolveSubject maps a free-form subject label to a subject code.
func (m *Matcher) ResolveSubject(label string) (string, bool) {
	folded := fold(label)
	if folded == "" {
		return "", false
	}
	for _, alias := range m.subjects {
		if strings.Contains(folded, alias.name) || strings.Contains(alias.name, folded) {
			return alias.code, true
		}
	}
	return "", false
}

// ResolveGrade maps a free-form grade label to a curriculum tree.
// Trees are consulted in load order; the first tree with a marker
// contained in the label wins.
func (m *Matcher) ResolveGrade(label string) (*Tree, bool) {
	folded := fold(label)
	if folded == "" {
		return nil, false
	}
	for i := range m.trees {
		for _, marker := range m.trees[i].GradeMarkers {
			if strings.Contains(folded, fold(marker)) {
				return &m.trees[i], true
			}
		}
	}
	return nil, false
}

// Match scores every subunit of the resolved tree whose node carries the
// resolved subject code and returns the top five matches, ranked by
// score descending with ties keeping tree scan order. It returns nil
// when the text is empty or subject/grade cannot be resolved; that is
// "nothing to match against", not an error.
func (m *Matcher) Match(text, subjectLabel, gradeLabel string) []Match {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	code, ok := m.ResolveSubject(subjectLabel)
	if !ok {
		return nil
	}
	tree, ok := m.ResolveGrade(gradeLabel)
	if !ok {
		return nil
	}

	folded := fold(text)

	var matches []Match
	for _, node := range tree.Nodes {
		if node.SubjectCode != code {
			continue
		}
		for _, sub := range node.Subunits {
			matched := matchTerms(folded, sub)
			if len(matched) == 0 {
				continue
			}
			matches = append(matches, Match{
				Score:           len(matched),
				SubjectLabel:    node.SubjectLabel,
				CourseLabel:     node.CourseLabel,
				UnitLabel:       node.UnitLabel,
				SubunitTitle:    sub.Title,
				Concepts:        sub.Concepts,
				MatchedKeywords: matched,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > maxHintEntries {
		matches = matches[:maxHintEntries]
	}
	return matches
}

// Hint returns a formatted multi-line hint for prompt augmentation.
// ok is false when there was nothing to match against (empty text,
// unknown subject, or unknown grade); a resolved tree with zero matching
// terms still yields a hint (NoMatchHint) with ok true.
func (m *Matcher) Hint(text, subjectLabel, gradeLabel string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	if _, ok := m.ResolveSubject(subjectLabel); !ok {
		return "", false
	}
	if _, ok := m.ResolveGrade(gradeLabel); !ok {
		return "", false
	}
	return FormatHint(m.Match(text, subjectLabel, gradeLabel)), true
}

// FormatHint renders matches as the hint text prepended to AI prompts.
func FormatHint(matches []Match) string {
	if len(matches) == 0 {
		return NoMatchHint
	}

	var b strings.Builder
	b.WriteString("Curriculum topics the student is likely asking about:\n")
	for i, match := range matches {
		fmt.Fprintf(&b, "%d. %s > %s > %s (matched %d terms)\n",
			i+1, match.CourseLabel, match.UnitLabel, match.SubunitTitle, match.Score)
		if len(match.Concepts) > 0 {
			fmt.Fprintf(&b, "   concepts: %s\n", strings.Join(limit(match.Concepts, maxHintConcepts), ", "))
		}
		if len(match.MatchedKeywords) > 0 {
			fmt.Fprintf(&b, "   matched: %s\n", strings.Join(limit(match.MatchedKeywords, maxHintKeywords), ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// matchTerms returns the distinct terms of the subunit found as
// substrings of the case-folded text, in term declaration order.
func matchTerms(foldedText string, sub Subunit) []string {
	var matched []string
	seen := make(map[string]bool)

	terms := make([]string, 0, len(sub.Keywords)+len(sub.SpeechTriggers)+len(sub.Concepts))
	terms = append(terms, sub.Keywords...)
	terms = append(terms, sub.SpeechTriggers...)
	terms = append(terms, sub.Concepts...)

	for _, term := range terms {
		folded := fold(term)
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		if strings.Contains(foldedText, folded) {
			matched = append(matched, term)
		}
	}
	return matched
}

// fold case-folds a string for comparison. A fresh caser per call: a
// cases.Caser is stateful and must not be shared between goroutines.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
