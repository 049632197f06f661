package curriculum

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook layout: one tree per file. A "Meta" sheet carries the grade
// band in B1 and semicolon-separated grade markers in B2. A "Nodes"
// sheet lists one subunit per row under a header row:
//
//	subject_code | subject_label | course_label | unit_label | subunit_title | concepts | keywords | speech_triggers
//
// List cells are semicolon-separated. Consecutive rows sharing
// subject/course/unit collapse into one node.
const (
	sheetMeta  = "Meta"
	sheetNodes = "Nodes"
)

func (l *Loader) loadWorkbook(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		slog.Warn("skipping unreadable curriculum workbook", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	tree, err := workbookTree(f)
	if err != nil {
		slog.Warn("skipping invalid curriculum workbook", "path", path, "error", err)
		return nil
	}

	l.mu.Lock()
	l.trees = append(l.trees, *tree)
	l.mu.Unlock()

	return nil
}

func workbookTree(f *excelize.File) (*Tree, error) {
	gradeBand, err := f.GetCellValue(sheetMeta, "B1")
	if err != nil {
		return nil, fmt.Errorf("read grade band: %w", err)
	}
	if gradeBand == "" {
		return nil, fmt.Errorf("missing grade band in %s!B1", sheetMeta)
	}

	markersCell, err := f.GetCellValue(sheetMeta, "B2")
	if err != nil {
		return nil, fmt.Errorf("read grade markers: %w", err)
	}
	markers := splitList(markersCell)
	if len(markers) == 0 {
		return nil, fmt.Errorf("missing grade markers in %s!B2", sheetMeta)
	}

	rows, err := f.GetRows(sheetNodes)
	if err != nil {
		return nil, fmt.Errorf("read nodes sheet: %w", err)
	}

	tree := &Tree{GradeBand: gradeBand, GradeMarkers: markers}
	var current *Node
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) < 5 || row[0] == "" {
			continue
		}

		sub := Subunit{
			Title:          row[4],
			Concepts:       columnList(row, 5),
			Keywords:       columnList(row, 6),
			SpeechTriggers: columnList(row, 7),
		}

		if current == nil ||
			current.SubjectCode != row[0] ||
			current.CourseLabel != row[2] ||
			current.UnitLabel != row[3] {
			tree.Nodes = append(tree.Nodes, Node{
				SubjectCode:  row[0],
				SubjectLabel: row[1],
				CourseLabel:  row[2],
				UnitLabel:    row[3],
			})
			current = &tree.Nodes[len(tree.Nodes)-1]
		}
		current.Subunits = append(current.Subunits, sub)
	}

	if len(tree.Nodes) == 0 {
		return nil, fmt.Errorf("workbook has no subunit rows")
	}
	return tree, nil
}

func columnList(row []string, idx int) []string {
	if idx >= len(row) {
		return nil
	}
	return splitList(row[idx])
}

func splitList(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
