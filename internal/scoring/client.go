package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"time"

	"rezscan/internal/config"
	"rezscan/internal/errors"
	"rezscan/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Form field names understood by the scoring service
const (
	FieldJobDescription      = "job_description"
	FieldResumes             = "resumes"
	FieldSimilarityMetric    = "similarity_metric"
	FieldTopK                = "top_k"
	FieldSimilarityThreshold = "similarity_threshold"
)

// Scorer is the contract the presentation layer needs from the scoring service
type Scorer interface {
	Match(ctx context.Context, req Request) (*types.MatchResponse, error)
	Health(ctx context.Context) (*types.HealthStatus, error)
}

// Request is one match submission. Zero parameters take the configured defaults.
type Request struct {
	JobDescription      types.Attachment
	Resumes             []types.Attachment
	SimilarityMetric    string
	TopK                int
	SimilarityThreshold *float64
}

// Client talks to the scoring service over HTTP
type Client struct {
	cfg        config.ScoringConfig
	httpClient *http.Client
	logger     *errors.Logger

	matchBreaker  *Breaker[*types.MatchResponse]
	healthBreaker *Breaker[*types.HealthStatus]
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a scoring client from configuration
func NewClient(cfg config.ScoringConfig, logger *errors.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
		logger:        logger,
		matchBreaker:  NewBreaker[*types.MatchResponse]("scoring-match", cfg.CircuitBreaker, logger),
		healthBreaker: NewBreaker[*types.HealthStatus]("scoring-health", cfg.CircuitBreaker, logger),
	}
	for _, opt := range opts {
		opt(c)
	}

	logger.Debug("Initialized scoring client",
		"base_url", cfg.BaseURL,
		"match_path", cfg.MatchPath,
		"timeout", cfg.Timeout.String(),
		"circuit_breaker", cfg.CircuitBreaker.Enabled)

	return c
}

// Match uploads the job description and resumes and returns the validated ranking
func (c *Client) Match(ctx context.Context, req Request) (*types.MatchResponse, error) {
	req = c.withDefaults(req)
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	body, contentType, err := EncodeRequest(req)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "Failed to encode match request", err)
	}

	start := time.Now()
	resp, err := c.matchBreaker.Execute(func() (*types.MatchResponse, error) {
		return c.postMatch(ctx, body, contentType)
	})
	if err != nil {
		c.logger.LogError(err, "Match request failed",
			"resumes", len(req.Resumes),
			"similarity_metric", req.SimilarityMetric,
			"duration", time.Since(start).String())
		return nil, err
	}

	c.logger.Info("Match request completed",
		"resumes", len(req.Resumes),
		"matches", len(resp.Matches),
		"similarity_metric", req.SimilarityMetric,
		"duration", time.Since(start).String())
	return resp, nil
}

func (c *Client) postMatch(ctx context.Context, body []byte, contentType string) (*types.MatchResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.MatchPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Invalid scoring service URL", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	payload, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var out types.MatchResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidResponse,
			"Scoring service returned malformed JSON", err)
	}
	if clamped := out.ClampNegativeCosine(); len(clamped) > 0 {
		c.logger.Warn("Clamped negative cosine similarity to zero",
			"resumes", clamped)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health queries the scoring service health endpoint
func (c *Client) Health(ctx context.Context) (*types.HealthStatus, error) {
	return c.healthBreaker.Execute(func() (*types.HealthStatus, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+c.cfg.HealthPath, nil)
		if err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Invalid scoring service URL", err)
		}
		httpReq.Header.Set("Accept", "application/json")

		payload, err := c.do(httpReq)
		if err != nil {
			return nil, err
		}

		var status types.HealthStatus
		if err := json.Unmarshal(payload, &status); err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidResponse,
				"Scoring service returned malformed health reply", err)
		}
		return &status, nil
	})
}

// do sends req and returns the body of a 2xx reply
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeScoringUnreachable,
			"No response from scoring service", err).
			WithContext("url", req.URL.String())
	}
	defer func() { _ = resp.Body.Close() }()

	limit := c.cfg.MaxResponseSize
	if limit <= 0 {
		limit = 8 * 1024 * 1024
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeScoringUnreachable,
			"Failed to read scoring service reply", err)
	}
	if int64(len(payload)) > limit {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidResponse,
			fmt.Sprintf("Scoring service reply exceeds %d bytes", limit), nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serverErr := parseServerError(resp.StatusCode, payload)
		return nil, errors.NewScoringError(errors.ErrCodeScoringFailed,
			"Scoring service rejected the request", serverErr).
			WithContext("status", resp.StatusCode)
	}
	return payload, nil
}

// Stats returns circuit breaker statistics for both endpoints
func (c *Client) Stats() map[string]any {
	return map[string]any{
		"match":  c.matchBreaker.Stats(),
		"health": c.healthBreaker.Stats(),
	}
}

// IsHealthy reports whether the match breaker is closed
func (c *Client) IsHealthy() bool {
	return c.matchBreaker.IsHealthy()
}

func (c *Client) withDefaults(req Request) Request {
	if req.SimilarityMetric == "" {
		req.SimilarityMetric = c.cfg.SimilarityMetric
	}
	if req.TopK == 0 {
		req.TopK = c.cfg.TopK
	}
	if req.SimilarityThreshold == nil {
		threshold := c.cfg.SimilarityThreshold
		req.SimilarityThreshold = &threshold
	}
	return req
}

// ValidateRequest checks a request before anything leaves the process
func ValidateRequest(req Request) error {
	if req.JobDescription.Empty() {
		return errors.NewValidationError(errors.ErrCodeMissingInput, "Job description is required", nil).
			WithContext("field", FieldJobDescription)
	}
	if len(req.Resumes) == 0 {
		return errors.NewValidationError(errors.ErrCodeMissingInput, "At least one resume is required", nil).
			WithContext("field", FieldResumes)
	}
	if !slices.Contains(config.SimilarityMetrics, req.SimilarityMetric) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Unsupported similarity metric: %s", req.SimilarityMetric), nil)
	}
	if req.TopK < 1 {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "top_k must be at least 1", nil)
	}
	if t := req.SimilarityThreshold; t != nil && (*t < 0 || *t > 1) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "similarity_threshold must be within [0,1]", nil)
	}
	return nil
}

// EncodeRequest builds the multipart body for a match request
func EncodeRequest(req Request) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := writeFile(mw, FieldJobDescription, req.JobDescription); err != nil {
		return nil, "", err
	}
	for _, r := range req.Resumes {
		if err := writeFile(mw, FieldResumes, r); err != nil {
			return nil, "", err
		}
	}

	fields := [][2]string{
		{FieldSimilarityMetric, req.SimilarityMetric},
		{FieldTopK, strconv.Itoa(req.TopK)},
	}
	if req.SimilarityThreshold != nil {
		fields = append(fields, [2]string{FieldSimilarityThreshold, strconv.FormatFloat(*req.SimilarityThreshold, 'f', -1, 64)})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func writeFile(mw *multipart.Writer, field string, a types.Attachment) error {
	name := a.Name
	if name == "" {
		name = field
	}
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	_, err = part.Write(a.Content)
	return err
}

// IsTransportFailure reports whether err means the service could not be reached
func IsTransportFailure(err error) bool {
	return errors.HasCode(err, errors.ErrCodeScoringUnreachable) ||
		errors.HasCode(err, errors.ErrCodeScoringUnavailable)
}

// ServerErrorOf extracts the service's own rejection from err
func ServerErrorOf(err error) (*ServerError, bool) {
	var serverErr *ServerError
	if stderrors.As(err, &serverErr) {
		return serverErr, true
	}
	return nil, false
}
