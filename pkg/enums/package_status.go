package enums

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
)

// PackageStatus is the numeric package lifecycle code used on the wire.
type PackageStatus int

const (
	PackageStatusUnknown   PackageStatus = -1
	PackageStatusCreated   PackageStatus = 0
	PackageStatusSent      PackageStatus = 1
	PackageStatusAccepted  PackageStatus = 2
	PackageStatusReturned  PackageStatus = 3
	PackageStatusCancelled PackageStatus = 4
)

const unknownLabel = "Unknown"

var validPackageStatuses = []PackageStatus{
	PackageStatusCreated,
	PackageStatusSent,
	PackageStatusAccepted,
	PackageStatusReturned,
	PackageStatusCancelled,
}

var packageStatusLabels = map[PackageStatus]string{
	PackageStatusCreated:   "Created",
	PackageStatusSent:      "Sent",
	PackageStatusAccepted:  "Accepted",
	PackageStatusReturned:  "Returned",
	PackageStatusCancelled: "Cancelled",
}

var packageStatusDisplayNames = map[PackageStatus]string{
	PackageStatusCreated:   "Created",
	PackageStatusSent:      "In Transit",
	PackageStatusAccepted:  "Delivered",
	PackageStatusReturned:  "Returned",
	PackageStatusCancelled: "Canceled",
}

// Accepted and Cancelled have no entry and are therefore terminal.
var packageStatusTransitions = map[PackageStatus][]PackageStatus{
	PackageStatusCreated:  {PackageStatusSent, PackageStatusCancelled},
	PackageStatusSent:     {PackageStatusAccepted, PackageStatusReturned, PackageStatusCancelled},
	PackageStatusReturned: {PackageStatusSent, PackageStatusCancelled},
}

// String implements fmt.Stringer.
func (s PackageStatus) String() string {
	return s.Label()
}

// Label returns the canonical label, or "Unknown" for unrecognized codes.
func (s PackageStatus) Label() string {
	if label, ok := packageStatusLabels[s]; ok {
		return label
	}
	return unknownLabel
}

// DisplayName returns the customer-facing wording used in notifications.
func (s PackageStatus) DisplayName() string {
	if name, ok := packageStatusDisplayNames[s]; ok {
		return name
	}
	return unknownLabel
}

// Code returns the numeric wire code.
func (s PackageStatus) Code() int {
	return int(s)
}

// IsValid reports whether the value is a known PackageStatus.
func (s PackageStatus) IsValid() bool {
	_, ok := packageStatusLabels[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s PackageStatus) IsTerminal() bool {
	return len(packageStatusTransitions[s]) == 0
}

// ValidNextStatuses returns the states reachable from current in one step.
func ValidNextStatuses(current PackageStatus) []PackageStatus {
	next := packageStatusTransitions[current]
	out := make([]PackageStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is an allowed transition.
func CanTransition(from, to PackageStatus) bool {
	for _, candidate := range packageStatusTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ValidateTransition rejects transitions outside the allowed next-state set.
func ValidateTransition(from, to PackageStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	allowed := make([]string, 0, len(packageStatusTransitions[from]))
	for _, candidate := range packageStatusTransitions[from] {
		allowed = append(allowed, candidate.Label())
	}
	return pkgerrors.New(
		pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot change status from %s to %s", from.Label(), to.Label()),
	).WithDetails(map[string]any{"from": from.Label(), "to": to.Label(), "allowed": allowed})
}

// PackageStatusFromCode maps a wire code onto a status; unrecognized codes map to PackageStatusUnknown.
func PackageStatusFromCode(code int) PackageStatus {
	status := PackageStatus(code)
	if status.IsValid() {
		return status
	}
	return PackageStatusUnknown
}

// LabelForCode returns the label for a wire code.
func LabelForCode(code int) string {
	return PackageStatusFromCode(code).Label()
}

// ParsePackageStatus accepts a label (case-insensitive) or a numeric code.
func ParsePackageStatus(value string) (PackageStatus, error) {
	trimmed := strings.TrimSpace(value)
	if code, err := strconv.Atoi(trimmed); err == nil {
		status := PackageStatus(code)
		if status.IsValid() {
			return status, nil
		}
		return PackageStatusUnknown, fmt.Errorf("invalid package status %q", value)
	}
	for _, candidate := range validPackageStatuses {
		if strings.EqualFold(candidate.Label(), trimmed) {
			return candidate, nil
		}
	}
	if strings.EqualFold(trimmed, unknownLabel) {
		return PackageStatusUnknown, nil
	}
	return PackageStatusUnknown, fmt.Errorf("invalid package status %q", value)
}

// PackageStatuses lists every known status in lifecycle order.
func PackageStatuses() []PackageStatus {
	out := make([]PackageStatus, len(validPackageStatuses))
	copy(out, validPackageStatuses)
	return out
}

// StatusOption is a value/label pair for status pickers.
type StatusOption struct {
	Value PackageStatus `json:"value"`
	Label string        `json:"label"`
}

// PackageStatusOptions returns the filter options in lifecycle order.
func PackageStatusOptions() []StatusOption {
	options := make([]StatusOption, 0, len(validPackageStatuses))
	for _, status := range validPackageStatuses {
		options = append(options, StatusOption{Value: status, Label: status.Label()})
	}
	return options
}

// MarshalJSON encodes the status as its label.
func (s PackageStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Label())
}

// UnmarshalJSON accepts either a numeric code or a label.
func (s *PackageStatus) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		*s = PackageStatusFromCode(code)
		return nil
	}
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("package status must be a number or string: %w", err)
	}
	parsed, err := ParsePackageStatus(label)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
