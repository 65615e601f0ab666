package packages

import (
	"strings"

	"github.com/angelmondragon/packtrack/internal/models"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/angelmondragon/packtrack/pkg/enums"
)

// StatusUpdate is the input of the update-status mutation.
type StatusUpdate struct {
	PackageID string
	Status    enums.PackageStatus
}

// AllowedStatuses lists the statuses pkg may move to next.
func AllowedStatuses(pkg models.Package) []enums.PackageStatus {
	return enums.ValidNextStatuses(pkg.Status)
}

// PlanStatusChange gates a status change before any request is made: the target
// must be one of the allowed next statuses of the package's current status.
func PlanStatusChange(current models.Package, target enums.PackageStatus) (StatusUpdate, error) {
	if strings.TrimSpace(current.ID) == "" {
		return StatusUpdate{}, pkgerrors.New(pkgerrors.CodeValidation, "package id is required")
	}
	if err := enums.ValidateTransition(current.Status, target); err != nil {
		return StatusUpdate{}, err
	}
	return StatusUpdate{PackageID: current.ID, Status: target}, nil
}
