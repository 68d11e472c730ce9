package results

import (
	"fmt"

	"rezscan/internal/types"
)

// DefaultWindowSize is the number of rows shown before "show all"
const DefaultWindowSize = 5

// Window selects how many ranked rows a view contains
type Window struct {
	size int
	all  bool
}

// Top keeps the first k matches. Negative k behaves as zero.
func Top(k int) Window {
	if k < 0 {
		k = 0
	}
	return Window{size: k}
}

// All keeps every match
func All() Window {
	return Window{all: true}
}

// DefaultWindow is Top(DefaultWindowSize)
func DefaultWindow() Window {
	return Top(DefaultWindowSize)
}

// IsAll reports whether the window shows every match
func (w Window) IsAll() bool { return w.all }

// Size is the row limit of a finite window; it is zero for All
func (w Window) Size() int { return w.size }

func (w Window) limit(n int) int {
	if w.all || w.size > n {
		return n
	}
	return w.size
}

// RankedRow is one display-ready table row
type RankedRow struct {
	Rank            int     `json:"rank"`
	ResumeID        string  `json:"resume_id"`
	Name            string  `json:"name"`
	SimilarityScore float64 `json:"similarity_score"`
	Cosine          float64 `json:"cosine_similarity"`
	Euclidean       float64 `json:"euclidean_similarity"`
	MatchPercent    float64 `json:"match_percent"`
	CosineText      string  `json:"cosine_text"`
	EuclideanText   string  `json:"euclidean_text"`
	MatchText       string  `json:"match_text"`
}

// Summary is passed through from the service ranking summary unchanged
type Summary struct {
	TotalMatches        int                     `json:"total_matches"`
	AverageScore        float64                 `json:"average_score"`
	Distribution        types.ScoreDistribution `json:"score_distribution"`
	SimilarityMetric    string                  `json:"similarity_metric"`
	Message             string                  `json:"message,omitempty"`
	TopK                int                     `json:"top_k"`
	SimilarityThreshold float64                 `json:"similarity_threshold"`
}

// RankedView is the windowed projection of a match response
type RankedView struct {
	Rows       []RankedRow `json:"rows"`
	Total      int         `json:"total"`
	ShowingAll bool        `json:"showing_all"`
	HasMore    bool        `json:"has_more"`
	Caption    string      `json:"caption"`
	Summary    Summary     `json:"summary"`

	// Toggleable is set by callers that know the finite window size
	Toggleable bool `json:"toggleable"`
}

// MatchPercent is the unweighted mean of the cosine and euclidean scores
func MatchPercent(m types.MatchResult) float64 {
	return (m.Explanation.CosineSimilarity + m.Explanation.EuclideanSimilarity) / 2
}

// NewRankedRow projects one match into a display row
func NewRankedRow(m types.MatchResult, resolve NameResolver) RankedRow {
	if resolve == nil {
		resolve = IdentityResolver
	}
	matchPercent := MatchPercent(m)
	return RankedRow{
		Rank:            m.Rank,
		ResumeID:        m.ResumeID,
		Name:            resolve(m.ResumeID),
		SimilarityScore: m.SimilarityScore,
		Cosine:          m.Explanation.CosineSimilarity,
		Euclidean:       m.Explanation.EuclideanSimilarity,
		MatchPercent:    matchPercent,
		CosineText:      FormatPercent(m.Explanation.CosineSimilarity),
		EuclideanText:   FormatPercent(m.Explanation.EuclideanSimilarity),
		MatchText:       FormatPercent(matchPercent),
	}
}

// WindowMatches returns the first matches selected by w, in service order
func WindowMatches(matches []types.MatchResult, w Window) []types.MatchResult {
	n := w.limit(len(matches))
	return matches[:n:n]
}

// RankRows projects the windowed matches into rows
func RankRows(matches []types.MatchResult, resolve NameResolver, w Window) []RankedRow {
	windowed := WindowMatches(matches, w)
	rows := make([]RankedRow, 0, len(windowed))
	for _, m := range windowed {
		rows = append(rows, NewRankedRow(m, resolve))
	}
	return rows
}

// SummaryOf copies the service summary statistics
func SummaryOf(resp *types.MatchResponse) Summary {
	return Summary{
		TotalMatches:        resp.RankingSummary.TotalMatches,
		AverageScore:        resp.RankingSummary.AverageScore,
		Distribution:        resp.RankingSummary.ScoreDistribution,
		SimilarityMetric:    resp.SimilarityMetric,
		Message:             resp.Message,
		TopK:                resp.TopK,
		SimilarityThreshold: resp.SimilarityThreshold,
	}
}

// BuildRankedView derives the ranked table for resp. The match order from the
// service is kept as is.
func BuildRankedView(resp *types.MatchResponse, resolve NameResolver, w Window) RankedView {
	if resp == nil {
		return RankedView{Rows: []RankedRow{}, ShowingAll: w.IsAll(), Caption: Caption(w, "")}
	}
	rows := RankRows(resp.Matches, resolve, w)
	return RankedView{
		Rows:       rows,
		Total:      len(resp.Matches),
		ShowingAll: w.IsAll(),
		HasMore:    len(resp.Matches) > len(rows),
		Caption:    Caption(w, resp.SimilarityMetric),
		Summary:    SummaryOf(resp),
	}
}

// Caption describes the window in words, e.g. "Showing top 5 matches based on cosine similarity"
func Caption(w Window, metric string) string {
	scope := "all"
	if !w.IsAll() {
		scope = fmt.Sprintf("top %d", w.Size())
	}
	if metric == "" {
		return fmt.Sprintf("Showing %s matches", scope)
	}
	return fmt.Sprintf("Showing %s matches based on %s similarity", scope, metric)
}
