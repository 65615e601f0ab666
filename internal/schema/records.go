package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// PersonRecord is a validated sender or recipient.
type PersonRecord struct {
	ID          string
	Name        string
	Phone       string
	Address     string
	Email       *string
	CompanyName *string
}

// PackageRecord is a validated package; Status holds the wire value as text (code or label).
type PackageRecord struct {
	ID             string
	TrackingNumber string
	Status         string
	CreatedAt      time.Time
	Sender         PersonRecord
	Recipient      PersonRecord
}

// HistoryRecord is one validated status-history entry.
type HistoryRecord struct {
	ID        string
	Status    string
	ChangedAt time.Time
}

type personWire struct {
	ID          *string `json:"id" validate:"notblank"`
	Name        *string `json:"name" validate:"required"`
	Phone       *string `json:"phone" validate:"required"`
	Address     *string `json:"address" validate:"required"`
	Email       *string `json:"email"`
	CompanyName *string `json:"companyName"`
}

type packageWire struct {
	ID             *string         `json:"id" validate:"notblank"`
	TrackingNumber *string         `json:"trackingNumber" validate:"notblank"`
	CurrentStatus  json.RawMessage `json:"currentStatus"`
	Status         json.RawMessage `json:"status"`
	CreatedAt      *string         `json:"createdAt" validate:"required"`
	Sender         *personWire     `json:"sender" validate:"required"`
	Recipient      *personWire     `json:"recipient" validate:"required"`
}

type historyWire struct {
	ID        *string         `json:"id" validate:"notblank"`
	Status    json.RawMessage `json:"status"`
	ChangedAt *string         `json:"changedAt" validate:"required"`
}

// ParsePerson validates a sender/recipient object.
func ParsePerson(raw []byte) Result[PersonRecord] {
	var wire personWire
	if reasons := decodeObject(raw, &wire); len(reasons) > 0 {
		return invalid[PersonRecord]("person", reasons)
	}
	return ok("person", wire.record())
}

func (w *personWire) record() PersonRecord {
	return PersonRecord{
		ID:          *w.ID,
		Name:        *w.Name,
		Phone:       *w.Phone,
		Address:     *w.Address,
		Email:       w.Email,
		CompanyName: w.CompanyName,
	}
}

// ParsePackage validates a package object. currentStatus is renamed to Status;
// a plain status field is accepted when currentStatus is absent.
func ParsePackage(raw []byte) Result[PackageRecord] {
	var wire packageWire
	if reasons := decodeObject(raw, &wire); len(reasons) > 0 {
		return invalid[PackageRecord]("package", reasons)
	}

	var reasons []string
	field, statusRaw := "currentStatus", wire.CurrentStatus
	if !present(statusRaw) && present(wire.Status) {
		field, statusRaw = "status", wire.Status
	}
	var status string
	if !present(statusRaw) {
		reasons = append(reasons, "currentStatus is required")
	} else if value, reason := decodeStatus(field, statusRaw); reason != "" {
		reasons = append(reasons, reason)
	} else {
		status = value
	}
	createdAt, reason := parseTimestamp("createdAt", *wire.CreatedAt)
	if reason != "" {
		reasons = append(reasons, reason)
	}
	if len(reasons) > 0 {
		return invalid[PackageRecord]("package", reasons)
	}

	return ok("package", PackageRecord{
		ID:             *wire.ID,
		TrackingNumber: *wire.TrackingNumber,
		Status:         status,
		CreatedAt:      createdAt,
		Sender:         wire.Sender.record(),
		Recipient:      wire.Recipient.record(),
	})
}

// ParsePackages validates every element; one invalid element rejects the batch.
func ParsePackages(raw []byte) Result[[]PackageRecord] {
	return parseList("package list", raw, ParsePackage)
}

// ParseHistoryEntry validates a single history entry.
func ParseHistoryEntry(raw []byte) Result[HistoryRecord] {
	var wire historyWire
	if reasons := decodeObject(raw, &wire); len(reasons) > 0 {
		return invalid[HistoryRecord]("history entry", reasons)
	}

	var reasons []string
	var status string
	if !present(wire.Status) {
		reasons = append(reasons, "status is required")
	} else if value, reason := decodeStatus("status", wire.Status); reason != "" {
		reasons = append(reasons, reason)
	} else {
		status = value
	}
	changedAt, reason := parseTimestamp("changedAt", *wire.ChangedAt)
	if reason != "" {
		reasons = append(reasons, reason)
	}
	if len(reasons) > 0 {
		return invalid[HistoryRecord]("history entry", reasons)
	}
	return ok("history entry", HistoryRecord{ID: *wire.ID, Status: status, ChangedAt: changedAt})
}

// ParseHistory validates a history list with the same all-or-nothing rule as ParsePackages.
func ParseHistory(raw []byte) Result[[]HistoryRecord] {
	return parseList("package history", raw, ParseHistoryEntry)
}

func parseList[T any](resource string, raw []byte, parse func([]byte) Result[T]) Result[[]T] {
	items, reasons := decodeArray(raw)
	if len(reasons) > 0 {
		return invalid[[]T](resource, reasons)
	}

	values := make([]T, 0, len(items))
	var errs error
	for i, item := range items {
		result := parse(item)
		if !result.OK() {
			for _, reason := range prefixReasons(fmt.Sprintf("[%d] ", i), result.Reasons) {
				errs = multierr.Append(errs, fmt.Errorf("%s", reason))
			}
			continue
		}
		values = append(values, result.Value)
	}
	if errs != nil {
		collected := multierr.Errors(errs)
		out := make([]string, len(collected))
		for i, err := range collected {
			out[i] = err.Error()
		}
		return invalid[[]T](resource, out)
	}
	return ok(resource, values)
}
