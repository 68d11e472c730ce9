package scoring

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServerError is a non-2xx reply from the scoring service
type ServerError struct {
	StatusCode int
	// Message is the service's "error" field, empty when it sent none
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("scoring service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("scoring service returned status %d: %s", e.StatusCode, e.Message)
}

// errorBody is the shape of the service's error replies
type errorBody struct {
	Error string `json:"error"`
}

func parseServerError(status int, body []byte) *ServerError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return &ServerError{StatusCode: status}
	}
	return &ServerError{StatusCode: status, Message: strings.TrimSpace(eb.Error)}
}
