package types

import (
	"fmt"
	"math"

	"rezscan/internal/errors"
)

// scoreTolerance absorbs float noise from the service around the [0,1] bounds
const scoreTolerance = 1e-9

// Validate guards the boundary with the scoring service. A response that
// fails here must never be presented.
func (r *MatchResponse) Validate() error {
	if r == nil {
		return errors.NewValidationError(errors.ErrCodeInvalidResponse, "empty match response", nil)
	}
	for i := range r.Matches {
		if err := r.Matches[i].Validate(); err != nil {
			return errors.NewValidationError(errors.ErrCodeInvalidResponse,
				fmt.Sprintf("invalid match at position %d", i), err).
				WithContext("position", i)
		}
	}
	return nil
}

// ClampNegativeCosine raises cosine based scores in [-1,0) to zero. Embedding
// cosine similarity ranges over [-1,1] while presented scores are fractions,
// so an unrelated resume may come back slightly below zero. Euclidean scores
// are never adjusted. It returns the ids of the adjusted resumes.
func (r *MatchResponse) ClampNegativeCosine() []string {
	if r == nil {
		return nil
	}
	var clamped []string
	for i := range r.Matches {
		m := &r.Matches[i]
		adjusted := clampNegative(&m.Explanation.CosineSimilarity)
		if r.SimilarityMetric != "euclidean" && clampNegative(&m.SimilarityScore) {
			adjusted = true
		}
		if adjusted {
			clamped = append(clamped, m.ResumeID)
		}
	}
	return clamped
}

func clampNegative(v *float64) bool {
	if *v < 0 && *v >= -1 {
		*v = 0
		return true
	}
	return false
}

// Validate checks a single match result
func (m *MatchResult) Validate() error {
	if m.ResumeID == "" {
		return fmt.Errorf("resume_id is empty")
	}
	if m.Rank < 1 {
		return fmt.Errorf("resume %s: rank must be positive, got %d", m.ResumeID, m.Rank)
	}
	scores := []struct {
		name  string
		value float64
	}{
		{"similarity_score", m.SimilarityScore},
		{"cosine_similarity", m.Explanation.CosineSimilarity},
		{"euclidean_similarity", m.Explanation.EuclideanSimilarity},
	}
	for _, s := range scores {
		if !inUnitInterval(s.value) {
			return fmt.Errorf("resume %s: %s out of range: %v", m.ResumeID, s.name, s.value)
		}
	}
	if m.SkillMatch != nil {
		if err := m.SkillMatch.Validate(); err != nil {
			return fmt.Errorf("resume %s: %w", m.ResumeID, err)
		}
	}
	return nil
}

// Validate checks that matching skills are present on both sides
func (s *SkillMatch) Validate() error {
	if len(s.MatchingSkills) == 0 {
		return nil
	}
	jd := toSet(s.JobDescriptionSkills)
	resume := toSet(s.ResumeSkills)
	for _, skill := range s.MatchingSkills {
		if !jd[skill] || !resume[skill] {
			return fmt.Errorf("matching skill %q is not shared by job description and resume", skill)
		}
	}
	return nil
}

func inUnitInterval(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return v >= -scoreTolerance && v <= 1+scoreTolerance
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
