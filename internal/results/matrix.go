package results

import (
	"encoding/json"

	"rezscan/internal/types"
)

// Candidate is one heatmap input row
type Candidate struct {
	ID         string
	Name       string
	SkillMatch *types.SkillMatch
}

// CandidatesFrom pairs each match with its resolved display name
func CandidatesFrom(matches []types.MatchResult, resolve NameResolver) []Candidate {
	if resolve == nil {
		resolve = IdentityResolver
	}
	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, Candidate{
			ID:         m.ResumeID,
			Name:       resolve(m.ResumeID),
			SkillMatch: m.SkillMatch,
		})
	}
	return candidates
}

// MatrixRow is the presence vector of one candidate against the matrix columns
type MatrixRow struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Presence []bool `json:"presence"`
}

// Matrix is a candidate by skill presence table. The zero value is the
// no-data marker.
type Matrix struct {
	hasData bool
	columns []string
	rows    []MatrixRow
}

// BuildMatrix derives the skill presence matrix. Candidates without skill data
// are skipped; if none remain the result reports NoData. Columns come from the
// first remaining candidate's job description skills, deduplicated in order.
func BuildMatrix(candidates []Candidate) Matrix {
	withData := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.SkillMatch != nil {
			withData = append(withData, c)
		}
	}
	if len(withData) == 0 {
		return Matrix{}
	}

	columns := dedupe(withData[0].SkillMatch.JobDescriptionSkills)

	rows := make([]MatrixRow, 0, len(withData))
	for _, c := range withData {
		owned := make(map[string]struct{}, len(c.SkillMatch.ResumeSkills))
		for _, skill := range c.SkillMatch.ResumeSkills {
			owned[skill] = struct{}{}
		}

		presence := make([]bool, len(columns))
		for i, skill := range columns {
			_, presence[i] = owned[skill]
		}

		rows = append(rows, MatrixRow{
			ID:       c.ID,
			Label:    c.Name,
			Presence: presence,
		})
	}

	return Matrix{hasData: true, columns: columns, rows: rows}
}

// NoData reports that no candidate carried skill data
func (m Matrix) NoData() bool {
	return !m.hasData
}

// Columns returns the reference skills in column order
func (m Matrix) Columns() []string {
	out := make([]string, len(m.columns))
	copy(out, m.columns)
	return out
}

// Rows returns the matrix rows in candidate order
func (m Matrix) Rows() []MatrixRow {
	out := make([]MatrixRow, len(m.rows))
	for i, r := range m.rows {
		presence := make([]bool, len(r.Presence))
		copy(presence, r.Presence)
		out[i] = MatrixRow{ID: r.ID, Label: r.Label, Presence: presence}
	}
	return out
}

// RowCount is the number of candidates with skill data
func (m Matrix) RowCount() int { return len(m.rows) }

// ColumnCount is the number of reference skills
func (m Matrix) ColumnCount() int { return len(m.columns) }

// Cell reports whether the candidate in row has the skill in col.
// Out of range coordinates report false.
func (m Matrix) Cell(row, col int) bool {
	if row < 0 || row >= len(m.rows) || col < 0 || col >= len(m.columns) {
		return false
	}
	return m.rows[row].Presence[col]
}

// Vector returns the presence vector of row, ordered like Columns
func (m Matrix) Vector(row int) []bool {
	if row < 0 || row >= len(m.rows) {
		return nil
	}
	out := make([]bool, len(m.rows[row].Presence))
	copy(out, m.rows[row].Presence)
	return out
}

// PresentCount counts the reference skills held by the candidate in row
func (m Matrix) PresentCount(row int) int {
	if row < 0 || row >= len(m.rows) {
		return 0
	}
	n := 0
	for _, present := range m.rows[row].Presence {
		if present {
			n++
		}
	}
	return n
}

type matrixJSON struct {
	NoData  bool        `json:"no_data"`
	Columns []string    `json:"columns"`
	Rows    []MatrixRow `json:"rows"`
}

// MarshalJSON exposes the matrix to JSON renderers
func (m Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(matrixJSON{
		NoData:  m.NoData(),
		Columns: m.Columns(),
		Rows:    m.Rows(),
	})
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
