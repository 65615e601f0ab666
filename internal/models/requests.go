package models

import (
	"strings"

	"github.com/angelmondragon/packtrack/internal/validators"
)

// Normalize trims whitespace from every text field.
func (r CreatePackageRequest) Normalize() CreatePackageRequest {
	r.TrackingNumber = strings.TrimSpace(r.TrackingNumber)
	r.SenderID = strings.TrimSpace(r.SenderID)
	r.RecipientID = strings.TrimSpace(r.RecipientID)
	r.Description = trimOptional(r.Description)
	return r
}

// Validate checks required ids and optional measurements.
func (r CreatePackageRequest) Validate() error {
	return validators.Struct(&r)
}

// Normalize trims whitespace and drops empty optional fields.
func (r CreatePersonRequest) Normalize() CreatePersonRequest {
	r.Name = validators.SanitizeString(r.Name, 0)
	r.Phone = strings.ReplaceAll(strings.TrimSpace(r.Phone), " ", "")
	r.Address = validators.SanitizeString(r.Address, 0)
	r.Email = trimOptional(r.Email)
	r.CompanyName = trimOptional(r.CompanyName)
	return r
}

// Validate applies the sender/recipient form rules.
func (r CreatePersonRequest) Validate() error {
	return validators.Struct(&r)
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
