package curriculum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/studyloop/tutor-backend/internal/curriculum"
)

const middleSchoolTree = `
grade_band: middle-1
grade_markers: ["middle 1", "grade 7", "7th"]
nodes:
  - subject_code: MATH
    subject_label: Mathematics
    course_label: Pre-Algebra
    unit_label: Equations
    subunits:
      - title: One-step equations
        concepts: [inverse operations, balance]
        keywords: [equation, solve for x]
        speech_triggers: [move to the other side]
      - title: Two-step equations
        concepts: [order of operations]
        keywords: [two-step, coefficient]
        speech_triggers: []
  - subject_code: SCI
    subject_label: Science
    course_label: Life Science
    unit_label: Cells
    subunits:
      - title: Cell structure
        concepts: [organelles]
        keywords: [mitochondria, nucleus]
        speech_triggers: [powerhouse]
`

func writeTree(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoader_LoadTrees(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "01-middle1.yaml", middleSchoolTree)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	trees := loader.Trees()
	if len(trees) != 1 {
		t.Fatalf("Trees() = %d trees, want 1", len(trees))
	}
	if trees[0].GradeBand != "middle-1" {
		t.Errorf("GradeBand = %q, want middle-1", trees[0].GradeBand)
	}
	if len(trees[0].Nodes) != 2 {
		t.Errorf("Nodes = %d, want 2", len(trees[0].Nodes))
	}
	if got := trees[0].Nodes[0].Subunits[0].Title; got != "One-step equations" {
		t.Errorf("first subunit title = %q", got)
	}
}

func TestLoader_SkipsInvalidTree(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "01-middle1.yaml", middleSchoolTree)
	// Missing grade_markers fails schema validation.
	writeTree(t, dir, "02-broken.yaml", `
grade_band: middle-2
nodes: []
`)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if trees := loader.Trees(); len(trees) != 1 {
		t.Errorf("Trees() = %d, want 1 (invalid tree should be skipped)", len(trees))
	}
}

func TestLoader_SkipsUnparseableYAML(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "bad.yaml", "{{not yaml")

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if trees := loader.Trees(); len(trees) != 0 {
		t.Errorf("Trees() = %d, want 0", len(trees))
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	loader, err := curriculum.NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if trees := loader.Trees(); len(trees) != 0 {
		t.Errorf("Trees() = %d, want 0 for empty dir", len(trees))
	}
}

func TestLoader_LoadOrderIsLexical(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "02-second.yaml", `
grade_band: band-b
grade_markers: ["b"]
nodes:
  - subject_code: MATH
    subject_label: Mathematics
    course_label: C
    unit_label: U
    subunits:
      - title: T
`)
	writeTree(t, dir, "01-first.yaml", `
grade_band: band-a
grade_markers: ["a"]
nodes:
  - subject_code: MATH
    subject_label: Mathematics
    course_label: C
    unit_label: U
    subunits:
      - title: T
`)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	trees := loader.Trees()
	if len(trees) != 2 {
		t.Fatalf("Trees() = %d, want 2", len(trees))
	}
	if trees[0].GradeBand != "band-a" || trees[1].GradeBand != "band-b" {
		t.Errorf("load order = %q, %q; want lexical by filename", trees[0].GradeBand, trees[1].GradeBand)
	}
}
