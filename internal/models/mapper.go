package models

import (
	"strconv"

	"github.com/angelmondragon/packtrack/internal/schema"
	"github.com/angelmondragon/packtrack/pkg/enums"
)

// StatusFromWire converts a wire status (numeric code or label) into a domain status.
// Unrecognized values map to PackageStatusUnknown.
func StatusFromWire(value string) enums.PackageStatus {
	if code, err := strconv.Atoi(value); err == nil {
		return enums.PackageStatusFromCode(code)
	}
	status, err := enums.ParsePackageStatus(value)
	if err != nil {
		return enums.PackageStatusUnknown
	}
	return status
}

func MapPerson(record schema.PersonRecord) Person {
	return Person{
		ID:          record.ID,
		Name:        record.Name,
		Phone:       record.Phone,
		Address:     record.Address,
		Email:       record.Email,
		CompanyName: record.CompanyName,
	}
}

func MapPackage(record schema.PackageRecord) Package {
	return Package{
		ID:             record.ID,
		TrackingNumber: record.TrackingNumber,
		Status:         StatusFromWire(record.Status),
		CreatedAt:      record.CreatedAt,
		Sender:         MapPerson(record.Sender),
		Recipient:      MapPerson(record.Recipient),
	}
}

func MapPackages(records []schema.PackageRecord) []Package {
	out := make([]Package, 0, len(records))
	for _, record := range records {
		out = append(out, MapPackage(record))
	}
	return out
}

func MapHistory(records []schema.HistoryRecord) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		out = append(out, HistoryEntry{
			ID:        record.ID,
			Status:    StatusFromWire(record.Status),
			ChangedAt: record.ChangedAt,
		})
	}
	return out
}

// DecodePackage validates and maps a single package payload.
func DecodePackage(raw []byte) (Package, error) {
	record, err := schema.ParsePackage(raw).Unwrap()
	if err != nil {
		return Package{}, err
	}
	return MapPackage(record), nil
}

// DecodePackages validates and maps a package list payload.
func DecodePackages(raw []byte) ([]Package, error) {
	records, err := schema.ParsePackages(raw).Unwrap()
	if err != nil {
		return nil, err
	}
	return MapPackages(records), nil
}

// DecodeHistory validates and maps a history payload.
func DecodeHistory(raw []byte) ([]HistoryEntry, error) {
	records, err := schema.ParseHistory(raw).Unwrap()
	if err != nil {
		return nil, err
	}
	return MapHistory(records), nil
}

// DecodePerson validates and maps a sender/recipient payload.
func DecodePerson(raw []byte) (Person, error) {
	record, err := schema.ParsePerson(raw).Unwrap()
	if err != nil {
		return Person{}, err
	}
	return MapPerson(record), nil
}

// WithStatus returns a copy of p carrying status.
func (p Package) WithStatus(status enums.PackageStatus) Package {
	p.Status = status
	return p
}
