package types

// MatchResponse is the scoring service reply to a match request.
// Matches arrive already ranked and are never re-sorted here.
type MatchResponse struct {
	Message             string         `json:"message"`
	SimilarityMetric    string         `json:"similarity_metric"`
	TopK                int            `json:"top_k"`
	SimilarityThreshold float64        `json:"similarity_threshold"`
	RankingSummary      RankingSummary `json:"ranking_summary"`
	JobDescription      JobDescription `json:"job_description"`
	Matches             []MatchResult  `json:"matches"`
	Resumes             ResumeSummary  `json:"resumes"`
}

// MatchResult is one candidate resume scored against the job description
type MatchResult struct {
	ResumeID        string      `json:"resume_id"`
	Rank            int         `json:"rank"`
	SimilarityScore float64     `json:"similarity_score"`
	Explanation     Explanation `json:"explanation"`
	// SkillMatch is nil when the service produced no skill data for this resume
	SkillMatch *SkillMatch `json:"skill_match,omitempty"`
}

// Explanation carries the per-metric similarity scores
type Explanation struct {
	CosineSimilarity    float64 `json:"cosine_similarity"`
	EuclideanSimilarity float64 `json:"euclidean_similarity"`
	Explanation         string  `json:"explanation,omitempty"`
}

// SkillMatch compares the job description skills with one resume's skills.
// Skill strings are case-sensitive, exactly as the service returned them.
type SkillMatch struct {
	JobDescriptionSkills []string `json:"job_description_skills"`
	ResumeSkills         []string `json:"resume_skills"`
	MatchingSkills       []string `json:"matching_skills,omitempty"`
	MissingSkills        []string `json:"missing_skills,omitempty"`
	ExtraSkills          []string `json:"extra_skills,omitempty"`
	MatchPercentage      float64  `json:"match_percentage"`
}

// RankingSummary holds service computed statistics over all matches
type RankingSummary struct {
	TotalMatches      int               `json:"total_matches"`
	AverageScore      float64           `json:"average_score"`
	ScoreDistribution ScoreDistribution `json:"score_distribution"`
	TopRanked         []RankedEntry     `json:"top_ranked,omitempty"`
}

// ScoreDistribution buckets matches by score; bucket bounds belong to the service
type ScoreDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// RankedEntry is a compact rank/score pair from the summary
type RankedEntry struct {
	Rank     int     `json:"rank"`
	ResumeID string  `json:"resume_id"`
	Score    float64 `json:"score"`
}

// JobDescription describes the analysed job description
type JobDescription struct {
	Statistics TextStatistics `json:"statistics"`
	Skills     []string       `json:"skills"`
}

// TextStatistics are word statistics reported for a document
type TextStatistics struct {
	WordCount     int     `json:"word_count"`
	UniqueWords   int     `json:"unique_words"`
	AvgWordLength float64 `json:"avg_word_length"`
	// KeywordDensity is the percentage of non stop words, 0 to 100
	KeywordDensity float64 `json:"keyword_density"`
}

// ResumeSummary describes the uploaded resumes as seen by the service
type ResumeSummary struct {
	Count      int              `json:"count"`
	Statistics []TextStatistics `json:"statistics,omitempty"`
}

// HealthStatus is the scoring service health reply
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Attachment is an opaque uploaded file. Contents are never parsed here.
type Attachment struct {
	Name    string `json:"name"`
	Content []byte `json:"-"`
}

// Empty reports whether the attachment carries no file
func (a Attachment) Empty() bool {
	return a.Name == "" && len(a.Content) == 0
}
