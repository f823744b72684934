package apiclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.StatusCode)
}

// ServerMessage is the human-readable message the backend sent, if any
func (e *APIError) ServerMessage() string {
	return e.Message
}

type errorBody struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
}

// parseErrorMessage pulls the user-facing message out of an error body:
// "message" first, then a string "detail", then "error".
func parseErrorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(eb.Message); msg != "" {
		return msg
	}
	if len(eb.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(eb.Detail, &detail); err == nil && strings.TrimSpace(detail) != "" {
			return strings.TrimSpace(detail)
		}
	}
	return strings.TrimSpace(eb.Error)
}
