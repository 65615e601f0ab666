package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/angelmondragon/packtrack/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, http.StatusOK, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}

	var body types.Envelope[map[string]string]
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if !body.IsSuccessful || body.Data == nil || (*body.Data)["hello"] != "world" {
		t.Fatalf("unexpected payload %+v", body)
	}
}

func TestWriteErrorUsesValidationMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeValidation, "package id is required"))

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}

	var body types.Envelope[any]
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.IsSuccessful {
		t.Fatal("expected unsuccessful envelope")
	}
	if body.FailureMessage() != "package id is required" {
		t.Fatalf("unexpected message %q", body.FailureMessage())
	}
}

type notFound struct{}

func (notFound) Error() string       { return "missing" }
func (notFound) HTTPStatus() int     { return http.StatusNotFound }
func (notFound) StatusText() string  { return "Not Found" }
func (notFound) ErrorList() []string { return []string{"missing"} }

func TestWriteErrorKeepsUpstreamStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, notFound{})

	if got := w.Code; got != http.StatusNotFound {
		t.Fatalf("expected status 404 but got %d", got)
	}
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}
}
