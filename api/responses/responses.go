package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/angelmondragon/packtrack/pkg/logger"
	"github.com/angelmondragon/packtrack/pkg/types"
)

// WriteSuccess answers with the same envelope shape the package API uses.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.Envelope[any]{IsSuccessful: true, Data: &data, Errors: []string{}})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	classified := pkgerrors.Classify(err, "monitor")

	status := classified.HTTPStatusCode()
	if status < http.StatusBadRequest {
		status = pkgerrors.MetadataFor(classified.Code).HTTPStatus
	}
	switch {
	case status >= http.StatusBadRequest:
	case classified.Code == pkgerrors.CodeValidation, classified.Code == pkgerrors.CodeInvalidTransition:
		status = http.StatusBadRequest
	case classified.Code == pkgerrors.CodeNetwork:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	message := classified.Message
	errs := classified.Errors
	if errs == nil {
		errs = []string{}
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"error_code": string(classified.Code),
			"status":     status,
		})
		logg.Error(ctx, "request.error", err)
	}

	writeJSON(w, status, types.Envelope[any]{Errors: errs, ErrorMessage: &message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
