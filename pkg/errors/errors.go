package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeNetwork           Code = "NETWORK_ERROR"
	CodeNotFound          Code = "NOT_FOUND_ERROR"
	CodeConflict          Code = "CONFLICT_ERROR"
	CodeClient            Code = "CLIENT_ERROR"
	CodeServer            Code = "SERVER_ERROR"
	CodeAPI               Code = "API_ERROR"
	CodeUnknown           Code = "UNKNOWN_ERROR"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInvalidTransition Code = "INVALID_TRANSITION_ERROR"
	CodeConfig            Code = "CONFIG_ERROR"
)

type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeNetwork: {
		HTTPStatus:    0,
		Retryable:     true,
		PublicMessage: "network connection failed",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		Retryable:     false,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		Retryable:     false,
		PublicMessage: "conflict detected",
	},
	CodeClient: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "request rejected",
	},
	CodeServer: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "server error",
	},
	CodeAPI: {
		HTTPStatus:    http.StatusOK,
		Retryable:     false,
		PublicMessage: "api reported a failure",
	},
	CodeUnknown: {
		HTTPStatus:    0,
		Retryable:     false,
		PublicMessage: "unexpected error",
	},
	CodeValidation: {
		HTTPStatus:    0,
		Retryable:     false,
		PublicMessage: "validation failed",
	},
	CodeInvalidTransition: {
		HTTPStatus:    0,
		Retryable:     false,
		PublicMessage: "status transition disallowed",
	},
	CodeConfig: {
		HTTPStatus:    0,
		Retryable:     false,
		PublicMessage: "client misconfigured",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeUnknown]
}

// Error is a client-side failure raised before or around a network call (input gates, config).
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
