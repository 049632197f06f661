package digest

import (
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"
)

// contentChecksum hashes the scored fields of a digest. The teacher's
// confirmed selection and the generation timestamp are excluded, so a
// rebuild with unchanged problem data produces the same checksum.
func contentChecksum(d *Digest) string {
	payload := struct {
		AssignmentID string           `json:"assignment_id"`
		StudentID    string           `json:"student_id"`
		TopProblems  []ProblemSummary `json:"top_problems"`
		Summary      Summary          `json:"summary"`
	}{d.AssignmentID, d.StudentID, d.TopProblems, d.Summary}

	data, _ := json.Marshal(payload)
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
