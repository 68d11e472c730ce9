package session

import (
	"context"
	"io"
	"sync"
	"time"

	"rezscan/internal/config"
	"rezscan/internal/errors"
	"rezscan/internal/report"
	"rezscan/internal/results"
	"rezscan/internal/scoring"
	"rezscan/internal/types"
)

// State is the lifecycle position of a Controller
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Matcher is the part of the scoring service a Controller uses
type Matcher interface {
	Match(ctx context.Context, req scoring.Request) (*types.MatchResponse, error)
}

// Submission is one analysis request as entered by the user
type Submission struct {
	JobDescription      types.Attachment
	Resumes             []types.Attachment
	SimilarityMetric    string
	TopK                int
	SimilarityThreshold *float64
}

// Validate checks the required uploads
func (s Submission) Validate() error {
	if s.JobDescription.Empty() {
		return &MissingInputError{Field: scoring.FieldJobDescription}
	}
	if len(s.Resumes) == 0 {
		return &MissingInputError{Field: scoring.FieldResumes}
	}
	return nil
}

func (s Submission) request() scoring.Request {
	return scoring.Request{
		JobDescription:      s.JobDescription,
		Resumes:             s.Resumes,
		SimilarityMetric:    s.SimilarityMetric,
		TopK:                s.TopK,
		SimilarityThreshold: s.SimilarityThreshold,
	}
}

// fileNames lists the resume names in upload order
func (s Submission) fileNames() []string {
	names := make([]string, len(s.Resumes))
	for i, r := range s.Resumes {
		names[i] = r.Name
	}
	return names
}

// Options configures a Controller
type Options struct {
	Matcher        Matcher
	Progress       config.ProgressConfig
	WindowSize     int
	ReportBaseName string
	Logger         *errors.Logger
}

// Snapshot is a point-in-time view of a Controller for UIs
type Snapshot struct {
	State    State   `json:"state"`
	Progress int     `json:"progress"`
	ShowAll  bool    `json:"show_all"`
	Matches  int     `json:"matches"`
	Notice   *Notice `json:"notice,omitempty"`
}

// Controller owns one result presentation session
type Controller struct {
	matcher     Matcher
	progressCfg config.ProgressConfig
	windowSize  int
	baseName    string
	logger      *errors.Logger

	mu       sync.Mutex
	state    State
	progress int
	showAll  bool
	response *types.MatchResponse
	names    []string
	notice   *Notice
	updated  time.Time
}

// NewController creates an idle Controller
func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = errors.NewDiscardLogger()
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = results.DefaultWindowSize
	}
	if opts.Progress.Interval <= 0 {
		opts.Progress = config.ProgressConfig{Interval: 500 * time.Millisecond, Step: 10, Ceiling: 90}
	}
	if opts.ReportBaseName == "" {
		opts.ReportBaseName = report.DefaultBaseName
	}

	return &Controller{
		matcher:     opts.Matcher,
		progressCfg: opts.Progress,
		windowSize:  opts.WindowSize,
		baseName:    opts.ReportBaseName,
		logger:      opts.Logger,
		updated:     time.Now(),
	}
}

// Submit sends sub to the scoring service and blocks until it answers.
// On success the previous response is replaced and the show-all flag cleared.
// On failure the controller returns to Idle with no response.
func (c *Controller) Submit(ctx context.Context, sub Submission) error {
	if err := c.begin(sub); err != nil {
		return err
	}
	return c.run(ctx, sub)
}

// SubmitAsync performs the checks of Submit synchronously and runs the scoring
// call in the background. The returned channel yields its result once.
// When SubmitAsync returns nil the controller is already Submitting.
func (c *Controller) SubmitAsync(ctx context.Context, sub Submission) (<-chan error, error) {
	if err := c.begin(sub); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		done <- c.run(ctx, sub)
	}()
	return done, nil
}

// begin moves the controller to Submitting or explains why it cannot
func (c *Controller) begin(sub Submission) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSubmitting {
		return ErrSubmissionInFlight
	}
	if err := sub.Validate(); err != nil {
		c.setNoticeLocked(err)
		return err
	}
	c.state = StateSubmitting
	c.progress = 0
	c.notice = nil
	c.touchLocked()
	return nil
}

func (c *Controller) run(ctx context.Context, sub Submission) error {
	c.logger.Debug("Submitting match request",
		"resumes", len(sub.Resumes),
		"similarity_metric", sub.SimilarityMetric)

	stop := c.startProgress()
	resp, err := c.matcher.Match(ctx, sub.request())
	stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()

	if err != nil {
		c.clearLocked()
		c.setNoticeLocked(err)
		c.logger.LogError(err, "Match submission failed", "resumes", len(sub.Resumes))
		return err
	}

	c.response = resp
	c.names = sub.fileNames()
	c.showAll = false
	c.progress = 100
	c.state = StateReady
	return nil
}

// ToggleShowAll flips the show-all flag and returns the new value
func (c *Controller) ToggleShowAll() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showAll = !c.showAll
	c.touchLocked()
	return c.showAll
}

// SetShowAll sets the show-all flag
func (c *Controller) SetShowAll(showAll bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showAll = showAll
	c.touchLocked()
}

// RankedView derives the ranked table for the current window
func (c *Controller) RankedView() (results.RankedView, error) {
	resp, resolve, w, err := c.current()
	if err != nil {
		return results.RankedView{}, err
	}
	view := results.BuildRankedView(resp, resolve, w)
	view.Toggleable = view.Total > c.windowSize
	return view, nil
}

// Heatmap builds the skill matrix over every match. The window does not apply.
func (c *Controller) Heatmap() (results.Matrix, error) {
	resp, resolve, _, err := c.current()
	if err != nil {
		return results.Matrix{}, err
	}
	return results.BuildMatrix(results.CandidatesFrom(resp.Matches, resolve)), nil
}

// Summary returns the service ranking summary
func (c *Controller) Summary() (results.Summary, error) {
	resp, _, _, err := c.current()
	if err != nil {
		return results.Summary{}, err
	}
	return results.SummaryOf(resp), nil
}

// Report serializes the full match list, whatever the show-all flag says
func (c *Controller) Report() (report.Document, error) {
	resp, resolve, _, err := c.current()
	if err != nil {
		return report.Document{}, err
	}
	return report.Serialize(resp.Matches, resolve), nil
}

// Export renders the report to w and returns the file name to save it under
func (c *Controller) Export(w io.Writer, f report.Format) (string, error) {
	doc, err := c.Report()
	if err != nil {
		return "", err
	}
	if err := report.Render(w, doc, f); err != nil {
		c.logger.LogError(err, "Report export failed", "format", string(f))
		return "", err
	}
	return report.FileName(c.baseName, f), nil
}

// Reset discards results and uploads. It is refused while a submission runs.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSubmitting {
		return ErrSubmissionInFlight
	}
	c.clearLocked()
	c.notice = nil
	c.touchLocked()
	return nil
}

// Snapshot returns the current state for display
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:    c.state,
		Progress: c.progress,
		ShowAll:  c.showAll,
	}
	if c.response != nil {
		snap.Matches = len(c.response.Matches)
	}
	if c.notice != nil {
		n := *c.notice
		snap.Notice = &n
	}
	return snap
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastUpdated reports when the controller last changed
func (c *Controller) LastUpdated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updated
}

// current returns the response and the derivation inputs when Ready
func (c *Controller) current() (*types.MatchResponse, results.NameResolver, results.Window, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.response == nil {
		return nil, nil, results.Window{}, ErrNoResults
	}
	w := results.Top(c.windowSize)
	if c.showAll {
		w = results.All()
	}
	return c.response, results.FileListResolver(c.names), w, nil
}

func (c *Controller) clearLocked() {
	c.state = StateIdle
	c.response = nil
	c.names = nil
	c.showAll = false
	c.progress = 0
}

func (c *Controller) setNoticeLocked(err error) {
	n := NoticeFor(err)
	c.notice = &n
}

func (c *Controller) touchLocked() {
	c.updated = time.Now()
}
