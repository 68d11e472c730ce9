package session

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"rezscan/internal/config"
	"rezscan/internal/errors"
	"rezscan/internal/report"
	"rezscan/internal/scoring"
	"rezscan/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMatcher answers Match from a queue of canned replies
type fakeMatcher struct {
	mu      sync.Mutex
	calls   int
	replies []reply
	gate    chan struct{}
	lastReq scoring.Request
}

type reply struct {
	resp *types.MatchResponse
	err  error
}

func (f *fakeMatcher) Match(ctx context.Context, req scoring.Request) (*types.MatchResponse, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.resp, r.err
}

func (f *fakeMatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func responseWith(n int) *types.MatchResponse {
	matches := make([]types.MatchResult, n)
	for i := range matches {
		matches[i] = types.MatchResult{
			ResumeID:        fmt.Sprintf("resume_%d", i),
			Rank:            i + 1,
			SimilarityScore: 0.5,
			Explanation:     types.Explanation{CosineSimilarity: 0.8, EuclideanSimilarity: 0.6},
			SkillMatch: &types.SkillMatch{
				JobDescriptionSkills: []string{"Python", "SQL"},
				ResumeSkills:         []string{"Python"},
			},
		}
	}
	return &types.MatchResponse{
		SimilarityMetric: "cosine",
		Matches:          matches,
		RankingSummary:   types.RankingSummary{TotalMatches: n, AverageScore: 0.5},
	}
}

func submission(resumes ...string) Submission {
	sub := Submission{JobDescription: types.Attachment{Name: "jd.txt", Content: []byte("jd")}}
	for _, name := range resumes {
		sub.Resumes = append(sub.Resumes, types.Attachment{Name: name, Content: []byte(name)})
	}
	return sub
}

func newController(m Matcher) *Controller {
	return NewController(Options{
		Matcher:    m,
		Progress:   config.ProgressConfig{Interval: time.Millisecond, Step: 10, Ceiling: 90},
		WindowSize: 5,
	})
}

func TestSubmitRejectsMissingInput(t *testing.T) {
	m := &fakeMatcher{replies: []reply{{resp: responseWith(1)}}}
	c := newController(m)

	err := c.Submit(context.Background(), Submission{Resumes: submission("a.pdf").Resumes})
	var missing *MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "job_description", missing.Field)
	assert.Equal(t, MessageMissingJobDescription, err.Error())

	err = c.Submit(context.Background(), submission())
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "resumes", missing.Field)

	assert.Zero(t, m.callCount(), "no network call for missing input")
	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, Notice{Kind: NoticeInput, Message: MessageMissingResumes}, *snap.Notice)
}

func TestSubmitSuccess(t *testing.T) {
	m := &fakeMatcher{replies: []reply{{resp: responseWith(7)}}}
	c := newController(m)

	require.NoError(t, c.Submit(context.Background(), submission("a.pdf", "b.pdf")))

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, 100, snap.Progress)
	assert.False(t, snap.ShowAll)
	assert.Nil(t, snap.Notice)

	view, err := c.RankedView()
	require.NoError(t, err)
	assert.Len(t, view.Rows, 5)
	assert.Equal(t, 7, view.Total)
	assert.True(t, view.Toggleable)
	assert.Equal(t, "a.pdf", view.Rows[0].Name)
	assert.Equal(t, "b.pdf", view.Rows[1].Name)
	assert.Equal(t, "resume_2", view.Rows[2].Name, "unresolved ids stay raw")
}

func TestToggleShowAll(t *testing.T) {
	c := newController(&fakeMatcher{replies: []reply{{resp: responseWith(7)}}})
	require.NoError(t, c.Submit(context.Background(), submission("a.pdf")))

	assert.True(t, c.ToggleShowAll())
	view, err := c.RankedView()
	require.NoError(t, err)
	assert.Len(t, view.Rows, 7)
	assert.True(t, view.ShowingAll)

	assert.False(t, c.ToggleShowAll())
	view, err = c.RankedView()
	require.NoError(t, err)
	assert.Len(t, view.Rows, 5)

	heatmap, err := c.Heatmap()
	require.NoError(t, err)
	assert.Equal(t, 7, heatmap.RowCount(), "heatmap covers every match")
	assert.Equal(t, []string{"Python", "SQL"}, heatmap.Columns())
}

func TestNewResponseClearsShowAll(t *testing.T) {
	m := &fakeMatcher{replies: []reply{{resp: responseWith(7)}, {resp: responseWith(3)}}}
	c := newController(m)
	require.NoError(t, c.Submit(context.Background(), submission("a.pdf")))
	c.SetShowAll(true)

	require.NoError(t, c.Submit(context.Background(), submission("x.pdf")))
	view, err := c.RankedView()
	require.NoError(t, err)
	assert.False(t, view.ShowingAll)
	assert.Equal(t, 3, view.Total)
	assert.False(t, view.Toggleable)
	assert.Equal(t, "x.pdf", view.Rows[0].Name, "names replaced with the response")
}

func TestSubmitFailureReturnsToIdle(t *testing.T) {
	transport := errors.NewNetworkError(errors.ErrCodeScoringUnreachable, "No response from scoring service", nil)
	m := &fakeMatcher{replies: []reply{{resp: responseWith(2)}, {err: transport}}}
	c := newController(m)
	require.NoError(t, c.Submit(context.Background(), submission("a.pdf")))

	err := c.Submit(context.Background(), submission("a.pdf"))
	require.Error(t, err)

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Zero(t, snap.Matches)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, NoticeTransport, snap.Notice.Kind)
	assert.Equal(t, MessageNoResponse, snap.Notice.Message)

	_, err = c.RankedView()
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSubmitWhileInFlight(t *testing.T) {
	m := &fakeMatcher{replies: []reply{{resp: responseWith(2)}}, gate: make(chan struct{})}
	c := newController(m)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), submission("a.pdf")) }()

	require.Eventually(t, func() bool { return c.State() == StateSubmitting }, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Submit(context.Background(), submission("b.pdf")), ErrSubmissionInFlight)
	assert.ErrorIs(t, c.Reset(), ErrSubmissionInFlight)

	require.Eventually(t, func() bool { return c.Snapshot().Progress == 90 }, time.Second, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 90, c.Snapshot().Progress, "progress stops at the ceiling")

	close(m.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 100, c.Snapshot().Progress)
	assert.Equal(t, 1, m.callCount())
}

func TestSubmitCancelled(t *testing.T) {
	m := &fakeMatcher{replies: []reply{{resp: responseWith(2)}}, gate: make(chan struct{})}
	c := newController(m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Submit(ctx, submission("a.pdf")) }()
	require.Eventually(t, func() bool { return c.State() == StateSubmitting }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, StateIdle, c.State())
}

func TestAccessorsRequireReady(t *testing.T) {
	c := newController(&fakeMatcher{replies: []reply{{resp: responseWith(1)}}})

	_, err := c.RankedView()
	assert.ErrorIs(t, err, ErrNoResults)
	_, err = c.Heatmap()
	assert.ErrorIs(t, err, ErrNoResults)
	_, err = c.Summary()
	assert.ErrorIs(t, err, ErrNoResults)
	_, err = c.Report()
	assert.ErrorIs(t, err, ErrNoResults)

	var buf bytes.Buffer
	_, err = c.Export(&buf, report.FormatPDF)
	assert.ErrorIs(t, err, ErrNoResults)
	assert.Zero(t, buf.Len())
}

func TestExportUsesFullList(t *testing.T) {
	c := newController(&fakeMatcher{replies: []reply{{resp: responseWith(7)}}})
	require.NoError(t, c.Submit(context.Background(), submission("a.pdf")))

	doc, err := c.Report()
	require.NoError(t, err)
	assert.Len(t, doc.Rows, 7, "report ignores the window")

	var buf bytes.Buffer
	name, err := c.Export(&buf, report.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "detailed_match_table.csv", name)
	assert.Equal(t, StateReady, c.State(), "export does not change state")
}

func TestReset(t *testing.T) {
	c := newController(&fakeMatcher{replies: []reply{{resp: responseWith(7)}}})
	require.NoError(t, c.Submit(context.Background(), submission("a.pdf")))
	c.SetShowAll(true)

	require.NoError(t, c.Reset())
	snap := c.Snapshot()
	assert.Equal(t, Snapshot{State: StateIdle}, snap)

	require.NoError(t, c.Reset(), "reset from idle is allowed")
}

func TestSummaryPassthrough(t *testing.T) {
	resp := responseWith(2)
	resp.RankingSummary.ScoreDistribution = types.ScoreDistribution{High: 1, Medium: 1}
	resp.Message = "Matching completed successfully"
	c := newController(&fakeMatcher{replies: []reply{{resp: resp}}})
	require.NoError(t, c.Submit(context.Background(), submission("a.pdf")))

	summary, err := c.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalMatches)
	assert.Equal(t, 1, summary.Distribution.High)
	assert.Equal(t, "cosine", summary.SimilarityMetric)
	assert.Equal(t, "Matching completed successfully", summary.Message)
}

func TestSubmitForwardsParameters(t *testing.T) {
	m := &fakeMatcher{replies: []reply{{resp: responseWith(1)}}}
	c := newController(m)

	threshold := 0.5
	sub := submission("a.pdf")
	sub.SimilarityMetric = "euclidean"
	sub.TopK = 3
	sub.SimilarityThreshold = &threshold
	require.NoError(t, c.Submit(context.Background(), sub))

	assert.Equal(t, "euclidean", m.lastReq.SimilarityMetric)
	assert.Equal(t, 3, m.lastReq.TopK)
	assert.Equal(t, &threshold, m.lastReq.SimilarityThreshold)
	assert.Len(t, m.lastReq.Resumes, 1)
}

func TestNextProgress(t *testing.T) {
	cfg := config.ProgressConfig{Step: 10, Ceiling: 90}
	p := 0
	for range 20 {
		p = nextProgress(p, cfg)
		assert.LessOrEqual(t, p, 90)
	}
	assert.Equal(t, 90, p)

	assert.Equal(t, 90, nextProgress(84, config.ProgressConfig{Step: 7, Ceiling: 90}))
}

func TestSubmitAsync(t *testing.T) {
	m := &fakeMatcher{replies: []reply{{resp: responseWith(3)}}, gate: make(chan struct{})}
	c := newController(m)

	done, err := c.SubmitAsync(context.Background(), submission("a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, StateSubmitting, c.State(), "state changes before SubmitAsync returns")

	_, err = c.SubmitAsync(context.Background(), submission("b.pdf"))
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(m.gate)
	require.NoError(t, <-done)
	assert.Equal(t, StateReady, c.State())

	_, err = c.SubmitAsync(context.Background(), Submission{})
	var missing *MissingInputError
	assert.ErrorAs(t, err, &missing)
	assert.Equal(t, StateReady, c.State(), "missing input keeps the previous results")
}
