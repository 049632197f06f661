package curriculum

// Subunit is the finest-grained curriculum entry. Its keywords, speech
// triggers, and concepts are the terms the matcher scores against.
type Subunit struct {
	Title          string   `yaml:"title" json:"title"`
	Concepts       []string `yaml:"concepts" json:"concepts"`
	Keywords       []string `yaml:"keywords" json:"keywords"`
	SpeechTriggers []string `yaml:"speech_triggers" json:"speech_triggers"`
}

// Node groups the subunits of one unit of a course. Every node belongs to
// exactly one subject code; subject codes partition the forest.
type Node struct {
	SubjectCode  string    `yaml:"subject_code" json:"subject_code"`
	SubjectLabel string    `yaml:"subject_label" json:"subject_label"`
	CourseLabel  string    `yaml:"course_label" json:"course_label"`
	UnitLabel    string    `yaml:"unit_label" json:"unit_label"`
	Subunits     []Subunit `yaml:"subunits" json:"subunits"`
}

// Tree is the curriculum forest for one grade band, loaded as static
// reference data and immutable afterwards.
type Tree struct {
	GradeBand string `yaml:"grade_band" json:"grade_band"`

	// GradeMarkers are substrings that resolve a free-form grade label
	// to this tree. Trees are consulted in load order, first hit wins.
	GradeMarkers []string `yaml:"grade_markers" json:"grade_markers"`

	Nodes []Node `yaml:"nodes" json:"nodes"`
}
