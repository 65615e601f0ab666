package types

import "strings"

// Envelope is the uniform wrapper returned by every backend call.
type Envelope[T any] struct {
	IsSuccessful bool     `json:"isSuccessful"`
	Data         *T       `json:"data"`
	Errors       []string `json:"errors"`
	ErrorMessage *string  `json:"errorMessage"`
}

// FailureMessage returns errorMessage, else the joined errors, else a generic fallback.
func (e Envelope[T]) FailureMessage() string {
	if e.ErrorMessage != nil && strings.TrimSpace(*e.ErrorMessage) != "" {
		return *e.ErrorMessage
	}
	if joined := strings.Join(e.Errors, ", "); joined != "" {
		return joined
	}
	return "Unknown error"
}
