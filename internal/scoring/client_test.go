package scoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"rezscan/internal/config"
	"rezscan/internal/errors"
	"rezscan/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matchReply = `{
  "message": "Matching completed successfully",
  "similarity_metric": "cosine",
  "top_k": 5,
  "similarity_threshold": 0.3,
  "ranking_summary": {"total_matches": 2, "average_score": 0.6,
    "score_distribution": {"high": 1, "medium": 1, "low": 0}},
  "job_description": {"skills": ["Python", "SQL"]},
  "matches": [
    {"resume_id": "resume_1", "rank": 1, "similarity_score": 0.8,
     "explanation": {"cosine_similarity": 0.8, "euclidean_similarity": 0.6},
     "skill_match": {"job_description_skills": ["Python", "SQL"], "resume_skills": ["Python"],
       "matching_skills": ["Python"], "match_percentage": 50}},
    {"resume_id": "resume_0", "rank": 2, "similarity_score": 0.4,
     "explanation": {"cosine_similarity": 0.4, "euclidean_similarity": 0.3}}
  ]
}`

// fullReply is the complete reply shape of the scoring service, statistics included
const fullReply = `{
  "message": "Files processed successfully with BERT",
  "similarity_metric": "cosine",
  "top_k": 5,
  "similarity_threshold": 0.3,
  "ranking_summary": {"total_matches": 2, "average_score": 0.39,
    "score_distribution": {"high": 0, "medium": 1, "low": 1},
    "top_ranked": [{"rank": 1, "resume_id": "resume_1", "score": 0.79},
      {"rank": 2, "resume_id": "resume_0", "score": -0.01}]},
  "job_description": {"statistics": {"word_count": 42, "unique_words": 30,
    "avg_word_length": 5.9, "keyword_density": 61.9}},
  "matches": [
    {"resume_id": "resume_1", "rank": 1, "similarity_score": 0.79,
     "explanation": {"cosine_similarity": 0.79, "euclidean_similarity": 0.4,
       "explanation": "This suggests a good match with some differences in specific details."},
     "skill_match": {"job_description_skills": ["Go", "SQL"], "resume_skills": ["Go"],
       "matching_skills": ["Go"], "missing_skills": ["SQL"], "extra_skills": [],
       "match_percentage": 0.5}},
    {"resume_id": "resume_0", "rank": 2, "similarity_score": -0.01,
     "explanation": {"cosine_similarity": -0.01, "euclidean_similarity": 0.28,
       "explanation": "The documents appear to be quite different in terms of content and context."},
     "skill_match": {"job_description_skills": ["Go", "SQL"], "resume_skills": ["Java"],
       "matching_skills": [], "missing_skills": ["Go", "SQL"], "extra_skills": ["Java"],
       "match_percentage": 0}}
  ],
  "resumes": {"count": 2, "statistics": [
    {"word_count": 210, "unique_words": 150, "avg_word_length": 5.2, "keyword_density": 57.14},
    {"word_count": 180, "unique_words": 120, "avg_word_length": 4.8, "keyword_density": 55}]}
}`

func testConfig(baseURL string) config.ScoringConfig {
	return config.ScoringConfig{
		BaseURL:             baseURL,
		MatchPath:           "/api/match",
		HealthPath:          "/api/health",
		MaxResponseSize:     1 << 20,
		SimilarityMetric:    "cosine",
		TopK:                5,
		SimilarityThreshold: 0.3,
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			MinRequests:      3,
			FailureThreshold: 0.6,
		},
	}
}

func testRequest() Request {
	return Request{
		JobDescription: types.Attachment{Name: "jd.txt", Content: []byte("python developer")},
		Resumes: []types.Attachment{
			{Name: "alice.pdf", Content: []byte("alice")},
			{Name: "bob.docx", Content: []byte("bob")},
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testConfig(srv.URL), errors.NewDiscardLogger(), WithHTTPClient(srv.Client()))
}

func TestMatchSendsMultipartForm(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/match", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		jd := r.MultipartForm.File[FieldJobDescription]
		require.Len(t, jd, 1)
		assert.Equal(t, "jd.txt", jd[0].Filename)

		resumes := r.MultipartForm.File[FieldResumes]
		require.Len(t, resumes, 2)
		assert.Equal(t, "alice.pdf", resumes[0].Filename)
		assert.Equal(t, "bob.docx", resumes[1].Filename)

		f, err := resumes[1].Open()
		require.NoError(t, err)
		content, _ := io.ReadAll(f)
		assert.Equal(t, "bob", string(content))

		assert.Equal(t, "cosine", r.FormValue(FieldSimilarityMetric))
		assert.Equal(t, "5", r.FormValue(FieldTopK))
		assert.Equal(t, "0.3", r.FormValue(FieldSimilarityThreshold))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, matchReply)
	})

	resp, err := client.Match(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, "resume_1", resp.Matches[0].ResumeID)
	require.NotNil(t, resp.Matches[0].SkillMatch)
	assert.Nil(t, resp.Matches[1].SkillMatch)
	assert.Equal(t, 2, resp.RankingSummary.TotalMatches)
}

func TestMatchOverridesDefaults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "combined", r.FormValue(FieldSimilarityMetric))
		assert.Equal(t, "10", r.FormValue(FieldTopK))
		assert.Equal(t, "0", r.FormValue(FieldSimilarityThreshold))
		_, _ = io.WriteString(w, matchReply)
	})

	zero := 0.0
	req := testRequest()
	req.SimilarityMetric = "combined"
	req.TopK = 10
	req.SimilarityThreshold = &zero

	_, err := client.Match(context.Background(), req)
	require.NoError(t, err)
}

func TestMatchRejectsBadRequestLocally(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	tests := []struct {
		name   string
		mutate func(*Request)
		code   string
	}{
		{"no job description", func(r *Request) { r.JobDescription = types.Attachment{} }, errors.ErrCodeMissingInput},
		{"no resumes", func(r *Request) { r.Resumes = nil }, errors.ErrCodeMissingInput},
		{"unknown metric", func(r *Request) { r.SimilarityMetric = "jaccard" }, errors.ErrCodeInvalidRequest},
		{"negative top k", func(r *Request) { r.TopK = -1 }, errors.ErrCodeInvalidRequest},
		{"threshold too high", func(r *Request) {
			v := 1.5
			r.SimilarityThreshold = &v
		}, errors.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mutate(&req)
			_, err := client.Match(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.Zero(t, calls.Load())
}

func TestMatchServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Job description file is required"})
	})

	_, err := client.Match(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeScoringFailed))

	serverErr, ok := ServerErrorOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, serverErr.StatusCode)
	assert.Equal(t, "Job description file is required", serverErr.Message)
	assert.False(t, IsTransportFailure(err))
}

func TestMatchServerErrorWithoutBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "<html>oops</html>")
	})

	_, err := client.Match(context.Background(), testRequest())
	serverErr, ok := ServerErrorOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
	assert.Empty(t, serverErr.Message)
}

func TestMatchDecodesFullServiceReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, fullReply)
	})

	resp, err := client.Match(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, resp.Matches, 2)

	assert.Equal(t, 61.9, resp.JobDescription.Statistics.KeywordDensity)
	require.Len(t, resp.Resumes.Statistics, 2)
	assert.Equal(t, 57.14, resp.Resumes.Statistics[0].KeywordDensity)
	assert.NotEmpty(t, resp.Matches[0].Explanation.Explanation)
	assert.Equal(t, []string{"SQL"}, resp.Matches[0].SkillMatch.MissingSkills)
	assert.Equal(t, []string{"Java"}, resp.Matches[1].SkillMatch.ExtraSkills)

	// a slightly negative cosine is clamped rather than rejecting the reply
	assert.Equal(t, 0.0, resp.Matches[1].Explanation.CosineSimilarity)
	assert.Equal(t, 0.0, resp.Matches[1].SimilarityScore)
	assert.Equal(t, 0.28, resp.Matches[1].Explanation.EuclideanSimilarity)
}

func TestMatchMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"rank zero", `{"matches":[{"resume_id":"resume_0","rank":0,"similarity_score":0.5,"explanation":{}}]}`},
		{"score above one", `{"matches":[{"resume_id":"resume_0","rank":1,"similarity_score":1.5,"explanation":{}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.Match(context.Background(), testRequest())
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidResponse), "got %v", err)
		})
	}
}

func TestMatchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(testConfig(url), errors.NewDiscardLogger())
	_, err := client.Match(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, IsTransportFailure(err))
	assert.True(t, errors.HasCode(err, errors.ErrCodeScoringUnreachable))
}

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(testConfig(url), errors.NewDiscardLogger())
	for range 3 {
		_, err := client.Match(context.Background(), testRequest())
		require.True(t, errors.HasCode(err, errors.ErrCodeScoringUnreachable))
	}

	_, err := client.Match(context.Background(), testRequest())
	assert.True(t, errors.HasCode(err, errors.ErrCodeScoringUnavailable), "got %v", err)
	assert.True(t, IsTransportFailure(err))
	assert.False(t, client.IsHealthy())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"bad"}`)
	})

	for range 5 {
		_, err := client.Match(context.Background(), testRequest())
		require.True(t, errors.HasCode(err, errors.ErrCodeScoringFailed))
	}
	assert.True(t, client.IsHealthy())

	stats := client.Stats()["match"].(map[string]any)
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, "closed", stats["state"])
}

func TestMatchHonoursContext(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Match(ctx, testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHealth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/health", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"healthy","message":"API is running"}`)
	})

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "API is running", status.Message)
}
