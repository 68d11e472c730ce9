package session

import (
	stderrors "errors"

	"rezscan/internal/errors"
	"rezscan/internal/scoring"
)

// User-facing messages
const (
	MessageMissingJobDescription = "Please upload a job description"
	MessageMissingResumes        = "Please upload at least one resume"
	MessageNoResponse            = "No response from server. Please check if the backend is running."
	MessageProcessingFailed      = "An error occurred during processing"
)

// ErrSubmissionInFlight is returned for a submit or reset while a submission runs
var ErrSubmissionInFlight = errors.NewValidationError(errors.ErrCodeSubmissionInFlight,
	"A submission is already in progress", nil)

// ErrNoResults is returned by result accessors outside the Ready state
var ErrNoResults = errors.NewValidationError(errors.ErrCodeNoResults,
	"No results available, submit a job description and resumes first", nil)

// MissingInputError reports a required upload that was not provided
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	if e.Field == scoring.FieldJobDescription {
		return MessageMissingJobDescription
	}
	return MessageMissingResumes
}

// NoticeKind classifies a notice for display
type NoticeKind string

const (
	NoticeInput     NoticeKind = "input"
	NoticeTransport NoticeKind = "transport"
	NoticeServer    NoticeKind = "server"
	NoticeState     NoticeKind = "state"
)

// Notice is a failure rendered for the user
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// NoticeFor converts err into the notice shown to the user. A nil error yields
// the zero Notice.
func NoticeFor(err error) Notice {
	if err == nil {
		return Notice{}
	}

	var missing *MissingInputError
	if stderrors.As(err, &missing) {
		return Notice{Kind: NoticeInput, Message: missing.Error()}
	}
	if stderrors.Is(err, ErrSubmissionInFlight) || stderrors.Is(err, ErrNoResults) {
		appErr, _ := errors.As(err)
		return Notice{Kind: NoticeState, Message: appErr.Message}
	}
	if scoring.IsTransportFailure(err) {
		return Notice{Kind: NoticeTransport, Message: MessageNoResponse}
	}
	if serverErr, ok := scoring.ServerErrorOf(err); ok {
		if serverErr.Message != "" {
			return Notice{Kind: NoticeServer, Message: serverErr.Message}
		}
		return Notice{Kind: NoticeServer, Message: MessageProcessingFailed}
	}
	if appErr, ok := errors.As(err); ok && appErr.Type == errors.ErrorTypeValidation && appErr.Code == errors.ErrCodeInvalidRequest {
		return Notice{Kind: NoticeInput, Message: appErr.Message}
	}
	return Notice{Kind: NoticeServer, Message: MessageProcessingFailed}
}
