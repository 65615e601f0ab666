package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// HTTPFailure is implemented by API-class errors carrying a response status.
type HTTPFailure interface {
	error
	HTTPStatus() int
	StatusText() string
	ErrorList() []string
}

// NetworkFailure is implemented by connectivity and timeout errors raised below the HTTP layer.
type NetworkFailure interface {
	error
	IsNetwork() bool
	IsTimeout() bool
}

// ValidationFailure is implemented by payload validation errors.
type ValidationFailure interface {
	error
	ValidationReasons() []string
}

type namedError interface {
	error
	Name() string
}

// APIErrorResponse is the normalized, serializable error record handed to UI-facing callers.
type APIErrorResponse struct {
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	Code       Code      `json:"code"`
	StatusCode *int      `json:"statusCode,omitempty"`
	Errors     []string  `json:"errors,omitempty"`
	Context    string    `json:"context"`
	Timestamp  time.Time `json:"timestamp"`

	cause error
}

func (r *APIErrorResponse) Error() string {
	if r == nil {
		return ""
	}
	if r.Context == "" {
		return fmt.Sprintf("%s: %s", r.Code, r.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Code, r.Message, r.Context)
}

func (r *APIErrorResponse) Unwrap() error {
	if r == nil {
		return nil
	}
	return r.cause
}

// Retryable reports whether the failure class is worth retrying.
func (r *APIErrorResponse) Retryable() bool {
	if r == nil {
		return false
	}
	return MetadataFor(r.Code).Retryable
}

// HTTPStatusCode returns the response status, or 0 when none was received.
func (r *APIErrorResponse) HTTPStatusCode() int {
	if r == nil || r.StatusCode == nil {
		return 0
	}
	return *r.StatusCode
}

// AsResponse extracts a classified record from err.
func AsResponse(err error) *APIErrorResponse {
	if err == nil {
		return nil
	}
	var typed *APIErrorResponse
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err classifies to code.
func IsCode(err error, code Code) bool {
	if resp := AsResponse(err); resp != nil {
		return resp.Code == code
	}
	if typed := As(err); typed != nil {
		return typed.Code() == code
	}
	return false
}

// Classify converts any failure into an APIErrorResponse stamped with context and the current time.
func Classify(v any, operation string) *APIErrorResponse {
	return ClassifyAt(v, operation, time.Now().UTC())
}

func ClassifyAt(v any, operation string, at time.Time) *APIErrorResponse {
	resp := &APIErrorResponse{
		Status:    "error",
		Context:   operation,
		Timestamp: at,
	}

	err, isErr := v.(error)
	if v == nil || !isErr || err == nil {
		resp.Code = CodeUnknown
		resp.Message = fmt.Sprintf("%s occurred", operation)
		return resp
	}
	resp.cause = err

	if existing := AsResponse(err); existing != nil {
		clone := *existing
		if clone.Context == "" {
			clone.Context = operation
		}
		return &clone
	}

	var httpErr HTTPFailure
	if stdErrors.As(err, &httpErr) {
		status := httpErr.HTTPStatus()
		resp.Code = CodeForStatus(status)
		resp.Message = httpErr.Error()
		resp.StatusCode = &status
		resp.Errors = httpErr.ErrorList()
		return resp
	}

	if isNetwork, timeout := networkClass(err); isNetwork {
		zero := 0
		resp.Code = CodeNetwork
		resp.StatusCode = &zero
		resp.Message = "Network connection failed"
		if timeout {
			resp.Message = "Request timed out"
		}
		resp.Errors = []string{err.Error()}
		return resp
	}

	var validationErr ValidationFailure
	if stdErrors.As(err, &validationErr) {
		resp.Code = CodeValidation
		resp.Message = validationErr.Error()
		resp.Errors = validationErr.ValidationReasons()
		return resp
	}

	if typed := As(err); typed != nil {
		resp.Code = typed.Code()
		resp.Message = typed.Message()
		return resp
	}

	var named namedError
	if stdErrors.As(err, &named) && strings.TrimSpace(named.Name()) != "" {
		resp.Code = Code(named.Name())
		resp.Message = err.Error()
		return resp
	}

	resp.Code = CodeUnknown
	resp.Message = err.Error()
	return resp
}

// CodeForStatus maps an HTTP status onto the error taxonomy.
func CodeForStatus(status int) Code {
	switch {
	case status == 404:
		return CodeNotFound
	case status == 409:
		return CodeConflict
	case status >= 500:
		return CodeServer
	case status >= 400:
		return CodeClient
	}
	return CodeAPI
}

func networkClass(err error) (bool, bool) {
	var netFailure NetworkFailure
	if stdErrors.As(err, &netFailure) && netFailure.IsNetwork() {
		return true, netFailure.IsTimeout()
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true, true
	}
	if stdErrors.Is(err, context.Canceled) {
		return true, false
	}
	var netErr net.Error
	if stdErrors.As(err, &netErr) {
		return true, netErr.Timeout()
	}
	return false, false
}
