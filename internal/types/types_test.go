package types

import (
	"encoding/json"
	"testing"
)

// serviceReply mirrors a complete /api/match reply, including the text
// statistics blocks and the explanation sentence
const serviceReply = `{
  "message": "Files processed successfully with BERT",
  "similarity_metric": "cosine",
  "top_k": 5,
  "similarity_threshold": 0.3,
  "ranking_summary": {
    "total_matches": 2,
    "average_score": 0.55,
    "score_distribution": {"high": 1, "medium": 0, "low": 1},
    "top_ranked": [
      {"rank": 1, "resume_id": "resume_1", "score": 0.81},
      {"rank": 2, "resume_id": "resume_0", "score": 0.29}
    ]
  },
  "job_description": {
    "statistics": {"word_count": 120, "unique_words": 85, "avg_word_length": 5.42, "keyword_density": 61.5}
  },
  "matches": [
    {
      "resume_id": "resume_1",
      "rank": 1,
      "similarity_score": 0.81,
      "explanation": {
        "cosine_similarity": 0.81,
        "euclidean_similarity": 0.42,
        "explanation": "The documents have a cosine similarity of 0.81. This indicates a strong match in terms of content and context."
      },
      "skill_match": {
        "job_description_skills": ["Python", "SQL", "Docker"],
        "resume_skills": ["Python", "Docker", "Kubernetes"],
        "matching_skills": ["Python", "Docker"],
        "missing_skills": ["SQL"],
        "extra_skills": ["Kubernetes"],
        "match_percentage": 0.6666666666666666
      }
    },
    {
      "resume_id": "resume_0",
      "rank": 2,
      "similarity_score": 0.29,
      "explanation": {
        "cosine_similarity": 0.29,
        "euclidean_similarity": 0.31,
        "explanation": "The documents appear to be quite different in terms of content and context."
      },
      "skill_match": {
        "job_description_skills": ["Python", "SQL", "Docker"],
        "resume_skills": [],
        "matching_skills": [],
        "missing_skills": ["Python", "SQL", "Docker"],
        "extra_skills": [],
        "match_percentage": 0
      }
    }
  ],
  "resumes": {
    "count": 2,
    "statistics": [
      {"word_count": 300, "unique_words": 180, "avg_word_length": 5.1, "keyword_density": 58.25},
      {"word_count": 0, "unique_words": 0, "avg_word_length": 0, "keyword_density": 0}
    ]
  }
}`

func TestDecodeServiceReply(t *testing.T) {
	var resp MatchResponse
	if err := json.Unmarshal([]byte(serviceReply), &resp); err != nil {
		t.Fatalf("Failed to decode service reply: %v", err)
	}
	if err := resp.Validate(); err != nil {
		t.Fatalf("Expected decoded reply to validate, got: %v", err)
	}

	if resp.JobDescription.Statistics.KeywordDensity != 61.5 {
		t.Errorf("Expected job description keyword density 61.5, got %v", resp.JobDescription.Statistics.KeywordDensity)
	}
	if resp.Resumes.Count != 2 || len(resp.Resumes.Statistics) != 2 {
		t.Fatalf("Expected 2 resume statistics, got %+v", resp.Resumes)
	}
	if resp.Resumes.Statistics[0].WordCount != 300 {
		t.Errorf("Expected word count 300, got %d", resp.Resumes.Statistics[0].WordCount)
	}
	if len(resp.RankingSummary.TopRanked) != 2 {
		t.Errorf("Expected 2 top ranked entries, got %d", len(resp.RankingSummary.TopRanked))
	}

	first := resp.Matches[0]
	if first.Explanation.Explanation == "" {
		t.Error("Expected explanation sentence to be decoded")
	}
	if first.SkillMatch == nil {
		t.Fatal("Expected skill match on first result")
	}
	if len(first.SkillMatch.MissingSkills) != 1 || first.SkillMatch.MissingSkills[0] != "SQL" {
		t.Errorf("Expected missing skills [SQL], got %v", first.SkillMatch.MissingSkills)
	}
	if len(first.SkillMatch.ExtraSkills) != 1 || first.SkillMatch.ExtraSkills[0] != "Kubernetes" {
		t.Errorf("Expected extra skills [Kubernetes], got %v", first.SkillMatch.ExtraSkills)
	}

	second := resp.Matches[1]
	if second.SkillMatch == nil || len(second.SkillMatch.ResumeSkills) != 0 {
		t.Errorf("Expected empty but present skill match, got %+v", second.SkillMatch)
	}
}

func TestClampNegativeCosine(t *testing.T) {
	tests := []struct {
		name          string
		metric        string
		cosine        float64
		score         float64
		expectClamped bool
		expectScore   float64
	}{
		{"slightly negative", "cosine", -0.02, -0.02, true, 0},
		{"in range", "cosine", 0.4, 0.4, false, 0.4},
		{"below minus one is left for validation", "cosine", -1.5, -1.5, false, -1.5},
		{"euclidean ranking keeps its score", "euclidean", -0.02, 0.3, true, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMatch("resume_0", 1)
			m.Explanation.CosineSimilarity = tt.cosine
			m.SimilarityScore = tt.score
			resp := &MatchResponse{SimilarityMetric: tt.metric, Matches: []MatchResult{m}}

			clamped := resp.ClampNegativeCosine()
			if tt.expectClamped != (len(clamped) == 1) {
				t.Errorf("Expected clamped=%v, got %v", tt.expectClamped, clamped)
			}
			if resp.Matches[0].SimilarityScore != tt.expectScore {
				t.Errorf("Expected similarity score %v, got %v", tt.expectScore, resp.Matches[0].SimilarityScore)
			}
			if tt.expectClamped && resp.Matches[0].Explanation.CosineSimilarity != 0 {
				t.Errorf("Expected cosine clamped to 0, got %v", resp.Matches[0].Explanation.CosineSimilarity)
			}
		})
	}

	var nilResp *MatchResponse
	if got := nilResp.ClampNegativeCosine(); got != nil {
		t.Errorf("Expected nil for nil response, got %v", got)
	}
}
