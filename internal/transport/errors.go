package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrResponseTooLarge is wrapped in an UnexpectedError when a body exceeds the read limit.
var ErrResponseTooLarge = errors.New("response body exceeds 4 MiB limit")

// APIError is raised for non-2xx responses and for envelopes with isSuccessful=false.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Errors     []string
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// StatusText returns the response reason phrase.
func (e *APIError) StatusText() string {
	if e == nil {
		return ""
	}
	return e.Status
}

// ErrorList returns the detail messages reported by the backend.
func (e *APIError) ErrorList() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.Errors))
	copy(out, e.Errors)
	return out
}

// NetworkError covers failures below the HTTP layer: DNS, refused connections, aborted or timed-out requests.
type NetworkError struct {
	Method  string
	URL     string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return ""
	}
	if e.Timeout {
		return fmt.Sprintf("%s %s: request timed out", e.Method, e.URL)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *NetworkError) IsNetwork() bool { return e != nil }

func (e *NetworkError) IsTimeout() bool { return e != nil && e.Timeout }

// UnexpectedError wraps failures that are neither HTTP nor connectivity problems, such as an undecodable envelope.
type UnexpectedError struct {
	Op  string
	Err error
}

func (e *UnexpectedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UnexpectedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Name is the classifier code for unexpected failures.
func (e *UnexpectedError) Name() string { return "UNKNOWN_ERROR" }

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
