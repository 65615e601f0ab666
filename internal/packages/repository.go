package packages

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/packtrack/internal/models"
	"github.com/angelmondragon/packtrack/internal/query"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/angelmondragon/packtrack/pkg/enums"
	"github.com/angelmondragon/packtrack/pkg/logger"
)

// Keys is the cache key family for packages.
var Keys = query.Keys("package")

// Detail is the result of a single-package read. Found is false when the backend answered 404.
type Detail struct {
	Package models.Package
	Found   bool
}

type (
	CreateOptions = query.MutateOptions[models.CreatePackageRequest, models.Package]
	UpdateOptions = query.MutateOptions[StatusUpdate, models.Package]
)

// Repository is the cache-aware package data layer.
type Repository struct {
	client *Client
	store  *query.Store
	logger *logger.Logger
}

func NewRepository(client *Client, store *query.Store, log *logger.Logger) *Repository {
	return &Repository{client: client, store: store, logger: log}
}

// Packages returns the package list, from cache when fresh.
func (r *Repository) Packages(ctx context.Context) ([]models.Package, error) {
	return query.Fetch(ctx, r.store, Keys.List(), query.FetchOptions{Operation: "getPackages"}, r.loadPackages)
}

// RefreshPackages refetches the list even when it is fresh.
func (r *Repository) RefreshPackages(ctx context.Context) ([]models.Package, error) {
	list, err := query.Refetch(ctx, r.store, Keys.List(), query.FetchOptions{Operation: "getPackages"}, r.loadPackages)
	if err != nil {
		return nil, err
	}
	invalidateDerived(r.store)
	return list, nil
}

func (r *Repository) loadPackages(ctx context.Context) ([]models.Package, error) {
	raw, err := r.client.List(ctx)
	if err != nil {
		return nil, err
	}
	return models.DecodePackages(raw)
}

// Package reads one package. A 404 resolves to Detail{Found: false} and is cached like any value.
func (r *Repository) Package(ctx context.Context, id string) (Detail, error) {
	operation := fmt.Sprintf("getPackage(%s)", id)
	if strings.TrimSpace(id) == "" {
		return Detail{}, pkgerrors.Classify(pkgerrors.New(pkgerrors.CodeValidation, "package id is required"), operation)
	}
	ctx = r.logger.WithPackageID(ctx, id)
	return query.Fetch(ctx, r.store, Keys.Detail(id), query.FetchOptions{Operation: operation}, func(ctx context.Context) (Detail, error) {
		raw, err := r.client.Get(ctx, id)
		if err != nil {
			if pkgerrors.Classify(err, operation).Code == pkgerrors.CodeNotFound {
				r.logger.Debug(ctx, "package not found")
				return Detail{}, nil
			}
			return Detail{}, err
		}
		pkg, err := models.DecodePackage(raw)
		if err != nil {
			return Detail{}, err
		}
		return Detail{Package: pkg, Found: true}, nil
	})
}

// History reads the status history. It is never served from cache.
func (r *Repository) History(ctx context.Context, id string) ([]models.HistoryEntry, error) {
	operation := fmt.Sprintf("getPackageHistory(%s)", id)
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.Classify(pkgerrors.New(pkgerrors.CodeValidation, "package id is required"), operation)
	}
	policy := query.NoCachePolicy
	return query.Fetch(ctx, r.store, Keys.History(id), query.FetchOptions{Policy: &policy, Operation: operation}, func(ctx context.Context) ([]models.HistoryEntry, error) {
		raw, err := r.client.History(ctx, id)
		if err != nil {
			return nil, err
		}
		return models.DecodeHistory(raw)
	})
}

// Search returns packages whose tracking number contains trackingID, case-insensitively.
func (r *Repository) Search(ctx context.Context, trackingID string) ([]models.Package, error) {
	needle := strings.ToLower(strings.TrimSpace(trackingID))
	operation := fmt.Sprintf("searchPackages(%s)", needle)
	return query.Fetch(ctx, r.store, Keys.Search(needle), query.FetchOptions{Operation: operation, NoRetry: true}, func(ctx context.Context) ([]models.Package, error) {
		all, err := r.Packages(ctx)
		if err != nil {
			return nil, err
		}
		return filter(all, func(pkg models.Package) bool {
			return strings.Contains(strings.ToLower(pkg.TrackingNumber), needle)
		}), nil
	})
}

// FilterByStatus returns the packages currently in status.
func (r *Repository) FilterByStatus(ctx context.Context, status enums.PackageStatus) ([]models.Package, error) {
	operation := fmt.Sprintf("filterPackages(%s)", status.Label())
	return query.Fetch(ctx, r.store, Keys.Status(status.Label()), query.FetchOptions{Operation: operation, NoRetry: true}, func(ctx context.Context) ([]models.Package, error) {
		all, err := r.Packages(ctx)
		if err != nil {
			return nil, err
		}
		return filter(all, func(pkg models.Package) bool { return pkg.Status == status }), nil
	})
}

// PackagesState exposes the list entry for rendering without fetching.
func (r *Repository) PackagesState() query.State[[]models.Package] {
	return query.StateOf[[]models.Package](r.store, Keys.List())
}

// PackageState exposes a detail entry for rendering without fetching.
func (r *Repository) PackageState(id string) query.State[Detail] {
	return query.StateOf[Detail](r.store, Keys.Detail(id))
}

// CreatePackage validates req, creates the package, prepends it to the cached list and seeds its detail entry.
func (r *Repository) CreatePackage(ctx context.Context, req models.CreatePackageRequest, opts CreateOptions) (models.Package, error) {
	return query.Mutate(ctx, r.store, r.createMutation(), req.Normalize(), opts)
}

func (r *Repository) createMutation() query.Mutation[models.CreatePackageRequest, models.Package] {
	return query.Mutation[models.CreatePackageRequest, models.Package]{
		Name: "createPackage",
		Fn: func(ctx context.Context, req models.CreatePackageRequest) (models.Package, error) {
			if err := req.Validate(); err != nil {
				return models.Package{}, err
			}
			raw, err := r.client.Create(ctx, req)
			if err != nil {
				return models.Package{}, err
			}
			return models.DecodePackage(raw)
		},
		Apply: func(s *query.Store, _ models.CreatePackageRequest, pkg models.Package, _ []bool) {
			query.UpdateAs(s, Keys.List(), func(list []models.Package) []models.Package {
				out := make([]models.Package, 0, len(list)+1)
				out = append(out, pkg)
				return append(out, list...)
			})
			s.Set(Keys.Detail(pkg.ID), Detail{Package: pkg, Found: true})
			invalidateDerived(s)
		},
		SuccessMessage: func(_ models.CreatePackageRequest, pkg models.Package) string {
			return fmt.Sprintf("Package %s created successfully!", pkg.TrackingNumber)
		},
		ErrorMessage: "Failed to create package",
	}
}

// UpdateStatus sends a status change already gated by PlanStatusChange. On success the detail
// entry is replaced, the list entry is patched in place and the history entry is invalidated.
func (r *Repository) UpdateStatus(ctx context.Context, update StatusUpdate, opts UpdateOptions) (models.Package, error) {
	return query.Mutate(ctx, r.store, r.updateMutation(update.PackageID, false), update, opts)
}

// UpdateStatusOptimistic is UpdateStatus with the detail entry moved to the target status
// before the request completes and restored if it fails.
func (r *Repository) UpdateStatusOptimistic(ctx context.Context, update StatusUpdate, opts UpdateOptions) (models.Package, error) {
	return query.Mutate(ctx, r.store, r.updateMutation(update.PackageID, true), update, opts)
}

func (r *Repository) updateMutation(id string, optimistic bool) query.Mutation[StatusUpdate, models.Package] {
	m := query.Mutation[StatusUpdate, models.Package]{
		Name: fmt.Sprintf("updatePackageStatus(%s)", id),
		Fn: func(ctx context.Context, update StatusUpdate) (models.Package, error) {
			raw, err := r.client.UpdateStatus(ctx, update.PackageID, update.Status)
			if err != nil {
				return models.Package{}, err
			}
			return models.DecodePackage(raw)
		},
		Apply: func(s *query.Store, update StatusUpdate, pkg models.Package, latest []bool) {
			if len(latest) == 0 || latest[0] {
				s.Set(Keys.Detail(update.PackageID), Detail{Package: pkg, Found: true})
				query.UpdateAs(s, Keys.List(), func(list []models.Package) []models.Package {
					return patchStatus(list, update.PackageID, pkg.Status)
				})
			}
			s.Invalidate(Keys.History(update.PackageID))
			invalidateDerived(s)
		},
		SuccessMessage: func(update StatusUpdate, _ models.Package) string {
			return fmt.Sprintf("Package status updated to %s", update.Status.DisplayName())
		},
		ErrorMessage: "Failed to update package status",
	}
	if optimistic {
		m.Optimistic = func(s *query.Store, update StatusUpdate) []*query.Snapshot {
			return []*query.Snapshot{s.BeginOptimistic(Keys.Detail(update.PackageID), func(current any, ok bool) (any, bool) {
				detail, isDetail := current.(Detail)
				if !ok || !isDetail || !detail.Found {
					return nil, false
				}
				detail.Package = detail.Package.WithStatus(update.Status)
				return detail, true
			})}
		}
	}
	return m
}

func invalidateDerived(s *query.Store) {
	s.InvalidatePrefix(Keys.Searches())
	s.InvalidatePrefix(Keys.Statuses())
}

func patchStatus(list []models.Package, id string, status enums.PackageStatus) []models.Package {
	out := make([]models.Package, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == id {
			out[i].Status = status
		}
	}
	return out
}

func filter(list []models.Package, keep func(models.Package) bool) []models.Package {
	out := make([]models.Package, 0, len(list))
	for _, pkg := range list {
		if keep(pkg) {
			out = append(out, pkg)
		}
	}
	return out
}
