package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"

	"rezscan/internal/errors"
	"rezscan/internal/results"
	"rezscan/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sevenMatches() []types.MatchResult {
	matches := make([]types.MatchResult, 7)
	for i := range matches {
		matches[i] = types.MatchResult{
			ResumeID: fmt.Sprintf("resume_%d", i),
			Rank:     i + 1,
			Explanation: types.Explanation{
				CosineSimilarity:    0.75,
				EuclideanSimilarity: 0.375,
			},
		}
	}
	return matches
}

func TestSerializeCoversFullList(t *testing.T) {
	matches := sevenMatches()
	doc := Serialize(matches, results.FileListResolver([]string{"alice.pdf", "bob.pdf"}))

	assert.Equal(t, Title, doc.Title)
	assert.Equal(t, []string{"Rank", "Resume Name", "Cosine Similarity", "Euclidean Score", "Match %"}, doc.Columns)
	require.Len(t, doc.Rows, 7)

	assert.Equal(t, Row{Rank: "1", Name: "alice.pdf", Cosine: "75.0%", Euclidean: "37.5%", Match: "56.3%"}, doc.Rows[0])
	assert.Equal(t, "resume_6", doc.Rows[6].Name)
}

func TestSerializeMatchesOnScreenFormatting(t *testing.T) {
	matches := sevenMatches()
	matches[3].Explanation = types.Explanation{CosineSimilarity: 0.8123, EuclideanSimilarity: 0.4567}

	doc := Serialize(matches, nil)
	view := results.BuildRankedView(&types.MatchResponse{Matches: matches}, nil, results.All())

	for i, row := range doc.Rows {
		assert.Equal(t, view.Rows[i].MatchText, row.Match)
		assert.Equal(t, view.Rows[i].CosineText, row.Cosine)
		assert.Equal(t, view.Rows[i].EuclideanText, row.Euclidean)
	}
}

func TestSerializeDoesNotShareColumns(t *testing.T) {
	doc := Serialize(nil, nil)
	doc.Columns[0] = "changed"
	assert.Equal(t, "Rank", Columns[0])
	assert.Empty(t, doc.Rows)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name        string
		expected    Format
		expectError bool
	}{
		{"", FormatPDF, false},
		{"pdf", FormatPDF, false},
		{"csv", FormatCSV, false},
		{"markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"xlsx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFormat(tt.name)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "detailed_match_table.pdf", FileName("", FormatPDF))
	assert.Equal(t, DefaultFileName, FileName(DefaultBaseName, FormatPDF))
	assert.Equal(t, "ranking.csv", FileName("ranking", FormatCSV))
	assert.Equal(t, "ranking.md", FileName("ranking", FormatMarkdown))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	doc := Serialize(sevenMatches(), results.FileListResolver([]string{"smith, j.pdf"}))

	require.NoError(t, Render(&buf, doc, FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 8)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{"1", "smith, j.pdf", "75.0%", "37.5%", "56.3%"}, records[1])
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	doc := Serialize(sevenMatches()[:1], results.FileListResolver([]string{"a|b.pdf"}))

	require.NoError(t, Render(&buf, doc, FormatMarkdown))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "# Detailed Match Table", lines[0])
	assert.Equal(t, "| Rank | Resume Name | Cosine Similarity | Euclidean Score | Match % |", lines[2])
	assert.Equal(t, `| 1 | a\|b.pdf | 75.0% | 37.5% | 56.3% |`, lines[4])
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	doc := Serialize(sevenMatches(), results.FileListResolver([]string{"alice.pdf"}))

	require.NoError(t, writePDF(&buf, doc, false))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF-"))
	assert.Contains(t, out, "Detailed Match Table")
	assert.Contains(t, out, "alice.pdf")
	assert.Contains(t, out, "resume_6")
}

func TestRenderPDFCompressed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Serialize(sevenMatches(), nil), FormatPDF))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderUnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, Document{}, Format("xlsx"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
}
