package results

import (
	"fmt"
	"testing"

	"rezscan/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeMatches(n int) []types.MatchResult {
	matches := make([]types.MatchResult, n)
	for i := range matches {
		matches[i] = types.MatchResult{
			ResumeID:        fmt.Sprintf("resume_%d", i),
			Rank:            i + 1,
			SimilarityScore: 0.9 - float64(i)*0.1,
			Explanation: types.Explanation{
				CosineSimilarity:    0.8 - float64(i)*0.05,
				EuclideanSimilarity: 0.6 - float64(i)*0.05,
			},
		}
	}
	return matches
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		fraction float64
		expected string
	}{
		{0, "0.0%"},
		{1, "100.0%"},
		{0.123, "12.3%"},
		{0.8125, "81.3%"},
		{0.5625, "56.3%"},
		{0.0625, "6.3%"},
		{0.99999, "100.0%"},
		{0.00049, "0.0%"},
		{0.0005, "0.1%"},
		{0.456, "45.6%"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPercent(tt.fraction))
		})
	}
}

func TestParseResumeIndex(t *testing.T) {
	tests := []struct {
		id     string
		index  int
		parsed bool
	}{
		{"resume_0", 0, true},
		{"resume_12", 12, true},
		{"resume_", 0, false},
		{"resume_-1", 0, false},
		{"resume_+1", 0, false},
		{"resume_2a", 0, false},
		{"cv_2", 0, false},
		{"", 0, false},
		{"resume_99999999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			idx, ok := ParseResumeIndex(tt.id)
			assert.Equal(t, tt.parsed, ok)
			if tt.parsed {
				assert.Equal(t, tt.index, idx)
			}
		})
	}
}

func TestFileListResolver(t *testing.T) {
	names := []string{"alice.pdf", "bob.docx", "carol.txt", "", "erin.pdf"}
	resolve := FileListResolver(names)

	assert.Equal(t, "carol.txt", resolve("resume_2"))
	assert.Equal(t, "resume_9", resolve("resume_9"), "out of range falls back to the raw id")
	assert.Equal(t, "resume_3", resolve("resume_3"), "empty stored name falls back to the raw id")
	assert.Equal(t, "garbage", resolve("garbage"))

	names[0] = "mutated.pdf"
	assert.Equal(t, "alice.pdf", resolve("resume_0"), "resolver must not alias the caller's slice")
}

func TestBuildRankedViewWindowing(t *testing.T) {
	resp := &types.MatchResponse{Matches: makeMatches(7)}

	tests := []struct {
		name     string
		window   Window
		expected int
		hasMore  bool
	}{
		{"default window", DefaultWindow(), 5, true},
		{"all", All(), 7, false},
		{"larger than list", Top(10), 7, false},
		{"zero", Top(0), 0, true},
		{"negative behaves as zero", Top(-3), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := BuildRankedView(resp, IdentityResolver, tt.window)
			require.Len(t, view.Rows, tt.expected)
			assert.Equal(t, 7, view.Total)
			assert.Equal(t, tt.hasMore, view.HasMore)
			assert.Equal(t, tt.window.IsAll(), view.ShowingAll)
			for i, row := range view.Rows {
				assert.Equal(t, resp.Matches[i].ResumeID, row.ResumeID, "rows keep service order")
			}
		})
	}
}

func TestBuildRankedViewKeepsServiceOrder(t *testing.T) {
	matches := makeMatches(3)
	// Out of rank order on purpose; the view must not re-sort.
	matches[0].Rank, matches[2].Rank = 3, 1
	view := BuildRankedView(&types.MatchResponse{Matches: matches}, nil, All())

	assert.Equal(t, []int{3, 2, 1}, []int{view.Rows[0].Rank, view.Rows[1].Rank, view.Rows[2].Rank})
}

func TestRankedRowMatchPercent(t *testing.T) {
	m := types.MatchResult{
		ResumeID: "resume_1",
		Rank:     1,
		Explanation: types.Explanation{
			CosineSimilarity:    0.75,
			EuclideanSimilarity: 0.375,
		},
	}
	row := NewRankedRow(m, FileListResolver([]string{"a.pdf", "b.pdf"}))

	assert.Equal(t, "b.pdf", row.Name)
	assert.InDelta(t, 0.5625, row.MatchPercent, 1e-12)
	assert.Equal(t, "75.0%", row.CosineText)
	assert.Equal(t, "37.5%", row.EuclideanText)
	assert.Equal(t, "56.3%", row.MatchText)
}

func TestBuildRankedViewSummaryPassthrough(t *testing.T) {
	resp := &types.MatchResponse{
		Message:             "Successfully matched 2 resumes",
		SimilarityMetric:    "combined",
		TopK:                5,
		SimilarityThreshold: 0.3,
		RankingSummary: types.RankingSummary{
			TotalMatches:      2,
			AverageScore:      0.61,
			ScoreDistribution: types.ScoreDistribution{High: 1, Medium: 0, Low: 1},
		},
		Matches: makeMatches(2),
	}

	view := BuildRankedView(resp, nil, DefaultWindow())

	assert.Equal(t, 2, view.Summary.TotalMatches)
	assert.Equal(t, 0.61, view.Summary.AverageScore)
	assert.Equal(t, types.ScoreDistribution{High: 1, Low: 1}, view.Summary.Distribution)
	assert.Equal(t, "combined", view.Summary.SimilarityMetric)
	assert.Equal(t, "Successfully matched 2 resumes", view.Summary.Message)
}

func TestBuildRankedViewNilResponse(t *testing.T) {
	view := BuildRankedView(nil, nil, All())
	assert.Empty(t, view.Rows)
	assert.Zero(t, view.Total)
}

func TestBuildMatrixTwoCandidates(t *testing.T) {
	candidates := []Candidate{
		{ID: "resume_0", Name: "A", SkillMatch: &types.SkillMatch{
			JobDescriptionSkills: []string{"Python", "SQL"},
			ResumeSkills:         []string{"Python"},
		}},
		{ID: "resume_1", Name: "B", SkillMatch: &types.SkillMatch{
			JobDescriptionSkills: []string{"Python", "SQL"},
			ResumeSkills:         []string{"SQL", "Python"},
		}},
	}

	m := BuildMatrix(candidates)

	require.False(t, m.NoData())
	assert.Equal(t, []string{"Python", "SQL"}, m.Columns())
	rows := m.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Label)
	assert.Equal(t, []bool{true, false}, rows[0].Presence)
	assert.Equal(t, []bool{true, true}, rows[1].Presence)
	assert.True(t, m.Cell(1, 1))
	assert.False(t, m.Cell(0, 1))
	assert.Equal(t, 2, m.PresentCount(1))
	assert.Equal(t, []bool{true, false}, m.Vector(0))
	assert.Nil(t, m.Vector(5))
}

func TestBuildMatrixNoData(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
	}{
		{"nil input", nil},
		{"all missing skill data", []Candidate{{ID: "resume_0"}, {ID: "resume_1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BuildMatrix(tt.candidates)
			assert.True(t, m.NoData())
			assert.Zero(t, m.RowCount())
			assert.False(t, m.Cell(0, 0))
		})
	}
}

func TestBuildMatrixColumnsFromFirstWithData(t *testing.T) {
	candidates := []Candidate{
		{ID: "resume_0", Name: "no-data"},
		{ID: "resume_1", Name: "first", SkillMatch: &types.SkillMatch{
			JobDescriptionSkills: []string{"Go", "Docker", "Go", "AWS", "docker"},
			ResumeSkills:         []string{"docker", "AWS"},
		}},
		{ID: "resume_2", Name: "second", SkillMatch: &types.SkillMatch{
			JobDescriptionSkills: []string{"Kubernetes"},
			ResumeSkills:         []string{"Go", "Kubernetes"},
		}},
	}

	m := BuildMatrix(candidates)

	assert.Equal(t, []string{"Go", "Docker", "AWS", "docker"}, m.Columns(), "dedupe keeps first occurrence order and case")
	rows := m.Rows()
	require.Len(t, rows, 2, "candidates without skill data are skipped")
	assert.Equal(t, []bool{false, false, true, true}, rows[0].Presence, "membership is case sensitive")
	assert.Equal(t, []bool{true, false, false, false}, rows[1].Presence)
}

func TestBuildMatrixEmptyColumnsStillHasData(t *testing.T) {
	m := BuildMatrix([]Candidate{{ID: "resume_0", SkillMatch: &types.SkillMatch{}}})

	assert.False(t, m.NoData())
	assert.Equal(t, 1, m.RowCount())
	assert.Zero(t, m.ColumnCount())
}

func TestMatrixJSON(t *testing.T) {
	data, err := BuildMatrix(nil).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"no_data":true,"columns":[],"rows":[]}`, string(data))
}

func TestCandidatesFrom(t *testing.T) {
	matches := makeMatches(2)
	matches[1].SkillMatch = &types.SkillMatch{ResumeSkills: []string{"Go"}}

	candidates := CandidatesFrom(matches, FileListResolver([]string{"a.pdf"}))

	require.Len(t, candidates, 2)
	assert.Equal(t, "a.pdf", candidates[0].Name)
	assert.Equal(t, "resume_1", candidates[1].Name)
	assert.Nil(t, candidates[0].SkillMatch)
	assert.NotNil(t, candidates[1].SkillMatch)
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "Showing top 5 matches based on cosine similarity", Caption(DefaultWindow(), "cosine"))
	assert.Equal(t, "Showing all matches based on euclidean similarity", Caption(All(), "euclidean"))
	assert.Equal(t, "Showing top 3 matches", Caption(Top(3), ""))

	view := BuildRankedView(&types.MatchResponse{SimilarityMetric: "combined", Matches: makeMatches(2)}, nil, All())
	assert.Equal(t, "Showing all matches based on combined similarity", view.Caption)
}
