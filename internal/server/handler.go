package server

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"rezscan/internal/common"
	"rezscan/internal/errors"
	"rezscan/internal/observability"
	"rezscan/internal/scoring"
	"rezscan/internal/session"
	"rezscan/internal/types"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// multipartMemory is how much of an upload is buffered in memory before spilling to disk
const multipartMemory = 32 << 20

// lookup resolves the {id} path value, writing a 404 when it is unknown
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (string, *session.Controller, bool) {
	id := r.PathValue("id")
	ctrl, err := s.Sessions.Get(id)
	if err != nil {
		s.writeAppError(w, err)
		return "", nil, false
	}
	return id, ctrl, true
}

// createSessionHandler starts a new idle session
func (s *Server) createSessionHandler(om *observability.ObservabilityManager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ctrl := s.Sessions.Create()
		om.RecordBusinessMetric(r.Context(), observability.MetricSessionCreated, 1)
		s.Logger.Debug("Session created", "session_id", id, "active_sessions", s.Sessions.Len())
		s.writeJSON(w, http.StatusCreated, SessionResponse{ID: id, Snapshot: ctrl.Snapshot()})
	})
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{ID: id, Snapshot: ctrl.Snapshot()})
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if ctrl.State() == session.StateSubmitting {
		s.writeAppError(w, session.ErrSubmissionInFlight)
		return
	}
	s.Sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// createSubmitHandler accepts the uploads and scores them in the background.
// The reply is 202 with the session already Submitting; clients poll the session for progress.
func (s *Server) createSubmitHandler(om *observability.ObservabilityManager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("rezscan.api").Start(r.Context(), "api.submit")
		defer span.End()

		id, ctrl, ok := s.lookup(w, r)
		if !ok {
			return
		}

		sub, err := s.parseSubmission(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			s.writeAppError(w, err)
			return
		}
		span.SetAttributes(attribute.Int("resumes.count", len(sub.Resumes)))

		// The scoring call must survive the request, but stays in its trace
		bg := oteltrace.ContextWithSpanContext(s.baseCtx, oteltrace.SpanContextFromContext(ctx))

		s.inFlight.Add(1)
		done, err := ctrl.SubmitAsync(bg, sub)
		if err != nil {
			s.inFlight.Done()
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}
		go func() {
			defer s.inFlight.Done()
			if err := <-done; err == nil {
				s.Logger.Info("Submission scored", "session_id", id, "resumes", len(sub.Resumes))
			}
		}()

		s.writeJSON(w, http.StatusAccepted, SessionResponse{ID: id, Snapshot: ctrl.Snapshot()})
	})
}

// parseSubmission reads the multipart upload form
func (s *Server) parseSubmission(r *http.Request) (session.Submission, error) {
	var sub session.Submission

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return sub, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"content-type must be multipart/form-data", nil)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return sub, errors.NewValidationError(errors.ErrCodeFileTooLarge,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return sub, errors.NewValidationError(errors.ErrCodeInvalidRequest, "malformed multipart form", err)
	}
	form := r.MultipartForm

	if files := form.File[scoring.FieldJobDescription]; len(files) > 0 {
		a, err := s.readUpload(files[0])
		if err != nil {
			return sub, err
		}
		sub.JobDescription = a
	}
	for _, fh := range form.File[scoring.FieldResumes] {
		a, err := s.readUpload(fh)
		if err != nil {
			return sub, err
		}
		sub.Resumes = append(sub.Resumes, a)
	}

	sub.SimilarityMetric = r.FormValue(scoring.FieldSimilarityMetric)
	if v := r.FormValue(scoring.FieldTopK); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return sub, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				scoring.FieldTopK+" must be an integer", err)
		}
		sub.TopK = k
	}
	if v := r.FormValue(scoring.FieldSimilarityThreshold); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return sub, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				scoring.FieldSimilarityThreshold+" must be a number", err)
		}
		sub.SimilarityThreshold = &t
	}

	return sub, nil
}

// readUpload loads one uploaded file, enforcing the per-file size limit
func (s *Server) readUpload(fh *multipart.FileHeader) (types.Attachment, error) {
	limit := s.AppConfig.App.MaxFileSize
	if limit > 0 && fh.Size > limit {
		return types.Attachment{}, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("%s exceeds the %d byte upload limit", fh.Filename, limit), nil).
			WithContext("file", fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return types.Attachment{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "cannot open upload", err).
			WithContext("file", fh.Filename)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return types.Attachment{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "cannot read upload", err).
			WithContext("file", fh.Filename)
	}
	return types.Attachment{Name: fh.Filename, Content: content}, nil
}

func (s *Server) resultsHandler(w http.ResponseWriter, r *http.Request) {
	_, ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	view, err := ctrl.RankedView()
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) toggleHandler(w http.ResponseWriter, r *http.Request) {
	_, ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if _, err := ctrl.RankedView(); err != nil {
		s.writeAppError(w, err)
		return
	}
	ctrl.ToggleShowAll()
	view, err := ctrl.RankedView()
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) heatmapHandler(w http.ResponseWriter, r *http.Request) {
	_, ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	matrix, err := ctrl.Heatmap()
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, matrix)
}

// createReportHandler streams the full match table as a download
func (s *Server) createReportHandler(om *observability.ObservabilityManager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("rezscan.api").Start(r.Context(), "api.report")
		defer span.End()

		_, ctrl, ok := s.lookup(w, r)
		if !ok {
			return
		}

		format, err := common.ValidateReportFormat(r.URL.Query().Get("format"), s.AppConfig.Report.DefaultFormat)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		span.SetAttributes(attribute.String("report.format", string(format)))

		// Render fully before writing headers so failures still get a JSON error
		var buf bytes.Buffer
		filename, err := ctrl.Export(&buf, format)
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, err)
			return
		}
		om.RecordBusinessMetric(ctx, observability.MetricReportExported, 1,
			attribute.String("format", string(format)))

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			s.Logger.LogError(err, "Failed to write report", "format", string(format))
		}
	})
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := ctrl.Reset(); err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{ID: id, Snapshot: ctrl.Snapshot()})
}
