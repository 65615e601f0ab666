package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/angelmondragon/packtrack/internal/schema"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/angelmondragon/packtrack/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wirePackage = `{
	"id": "p-1",
	"trackingNumber": "TRK-001",
	"currentStatus": "1",
	"createdAt": "2024-03-01T10:15:00.5Z",
	"sender": {"id": "s-1", "name": "Ada", "phone": "+15550001", "address": "1 Main St", "companyName": "ACME"},
	"recipient": {"id": "r-1", "name": "Bob", "phone": "+15550002", "address": "2 Side St"}
}`

func TestDecodePackageMapsStatus(t *testing.T) {
	pkg, err := DecodePackage([]byte(wirePackage))
	require.NoError(t, err)
	assert.Equal(t, enums.PackageStatusSent, pkg.Status)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 0, 500000000, time.UTC), pkg.CreatedAt)
	assert.Equal(t, "ACME", *pkg.Sender.CompanyName)
}

func TestDecodePackageIsIdempotentOnOutputShape(t *testing.T) {
	first, err := DecodePackage([]byte(wirePackage))
	require.NoError(t, err)

	raw, err := json.Marshal(first)
	require.NoError(t, err)
	second, err := DecodePackage(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	raw, err = json.Marshal(second)
	require.NoError(t, err)
	third, err := DecodePackage(raw)
	require.NoError(t, err)
	assert.Equal(t, second, third)
}

func TestStatusFromWire(t *testing.T) {
	tests := map[string]enums.PackageStatus{
		"0":         enums.PackageStatusCreated,
		"2":         enums.PackageStatusAccepted,
		"Cancelled": enums.PackageStatusCancelled,
		"returned":  enums.PackageStatusReturned,
		"17":        enums.PackageStatusUnknown,
		"Lost":      enums.PackageStatusUnknown,
	}
	for wire, want := range tests {
		assert.Equal(t, want, StatusFromWire(wire), wire)
	}
}

func TestDecodePackageUnknownCodeDoesNotFail(t *testing.T) {
	raw := `{"id":"p","trackingNumber":"T","currentStatus":9,"createdAt":"2024-03-01T10:15:00Z",
		"sender":{"id":"s","name":"n","phone":"1","address":"a"},
		"recipient":{"id":"r","name":"n","phone":"1","address":"a"}}`
	pkg, err := DecodePackage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, enums.PackageStatusUnknown, pkg.Status)
	assert.Equal(t, "Unknown", pkg.Status.Label())
}

func TestDecodePackageValidationErrorClassifies(t *testing.T) {
	_, err := DecodePackage([]byte(`{"trackingNumber":"T"}`))
	require.Error(t, err)
	var validationErr *schema.ValidationError
	require.ErrorAs(t, err, &validationErr)

	classified := pkgerrors.Classify(err, "getPackage(p)")
	assert.Equal(t, pkgerrors.CodeValidation, classified.Code)
	assert.Contains(t, classified.Errors, "id is required")
}

func TestDecodeHistoryAndPerson(t *testing.T) {
	history, err := DecodeHistory([]byte(`[{"id":"h","status":"Accepted","changedAt":"2024-03-01T10:15:00Z"}]`))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enums.PackageStatusAccepted, history[0].Status)

	person, err := DecodePerson([]byte(`{"id":"s-1","name":"Ada","phone":"+1555","address":"1 Main St"}`))
	require.NoError(t, err)
	assert.Equal(t, Person{ID: "s-1", Name: "Ada", Phone: "+1555", Address: "1 Main St"}, person)

	_, err = DecodePackages([]byte(`[{"id":"p"}]`))
	assert.Error(t, err)
}

func TestWithStatusCopies(t *testing.T) {
	original := Package{ID: "p", Status: enums.PackageStatusCreated}
	updated := original.WithStatus(enums.PackageStatusSent)
	assert.Equal(t, enums.PackageStatusCreated, original.Status)
	assert.Equal(t, enums.PackageStatusSent, updated.Status)
}
