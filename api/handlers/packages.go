package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packtrack/api/responses"
	"github.com/angelmondragon/packtrack/internal/models"
	"github.com/angelmondragon/packtrack/internal/packages"
	"github.com/angelmondragon/packtrack/internal/query"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/angelmondragon/packtrack/pkg/logger"
)

// PackageReader is the read side of the package repository.
type PackageReader interface {
	Package(ctx context.Context, id string) (packages.Detail, error)
	PackagesState() query.State[[]models.Package]
}

// PackagesState renders the cached list entry as a client would observe it, without fetching.
func PackagesState(reader PackageReader) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, http.StatusOK, reader.PackagesState())
	}
}

// Package reads one package through the cache.
func Package(logg *logger.Logger, reader PackageReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		detail, err := reader.Package(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !detail.Found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("package %s not found", id)))
			return
		}
		responses.WriteSuccess(w, http.StatusOK, detail.Package)
	}
}
