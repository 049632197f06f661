package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// treeSchema validates curriculum tree files before they are accepted.
// Authored trees come from spreadsheets and hand-edited YAML, so a
// malformed file is skipped with a warning rather than failing startup.
const treeSchema = `{
  "type": "object",
  "required": ["grade_band", "grade_markers", "nodes"],
  "properties": {
    "grade_band": {"type": "string", "minLength": 1},
    "grade_markers": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "minLength": 1}
    },
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["subject_code", "subject_label", "course_label", "unit_label", "subunits"],
        "properties": {
          "subject_code": {"type": "string", "minLength": 1},
          "subject_label": {"type": "string", "minLength": 1},
          "course_label": {"type": "string"},
          "unit_label": {"type": "string"},
          "subunits": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["title"],
              "properties": {
                "title": {"type": "string", "minLength": 1},
                "concepts": {"type": "array", "items": {"type": "string"}},
                "keywords": {"type": "array", "items": {"type": "string"}},
                "speech_triggers": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

// Loader loads curriculum trees from the filesystem. Trees keep the
// lexical order of the files they came from, which fixes grade
// resolution order.
type Loader struct {
	rootDir string
	trees   []Tree
	mu      sync.RWMutex
}

// NewLoader creates a new curriculum loader and loads all trees.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{rootDir: rootDir}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "trees", len(l.trees))
	return l, nil
}

// Trees returns all loaded trees in load order.
func (l *Loader) Trees() []Tree {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Tree{}, l.trees...)
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
			return l.loadTree(path)
		case strings.HasSuffix(path, ".xlsx"):
			return l.loadWorkbook(path)
		}
		return nil
	})
}

func (l *Loader) loadTree(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Validate against the schema first; YAML decodes to plain Go
	// values that gojsonschema can consume directly.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		slog.Warn("skipping unparseable curriculum YAML", "path", path, "error", err)
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(treeSchema),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("validating %s: %w", path, err)
	}
	if !result.Valid() {
		slog.Warn("skipping invalid curriculum tree", "path", path, "errors", schemaErrors(result))
		return nil
	}

	var tree Tree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		slog.Warn("skipping undecodable curriculum tree", "path", path, "error", err)
		return nil
	}

	l.mu.Lock()
	l.trees = append(l.trees, tree)
	l.mu.Unlock()

	return nil
}

func schemaErrors(result *gojsonschema.Result) string {
	var parts []string
	for _, e := range result.Errors() {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}
