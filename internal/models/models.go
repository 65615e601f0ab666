package models

import (
	"time"

	"github.com/angelmondragon/packtrack/pkg/enums"
)

// Person is a sender or recipient. Immutable once created.
type Person struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Address     string  `json:"address"`
	Email       *string `json:"email,omitempty"`
	CompanyName *string `json:"companyName,omitempty"`
}

// Package is the cached client-side view of a backend package.
type Package struct {
	ID             string              `json:"id"`
	TrackingNumber string              `json:"trackingNumber"`
	Status         enums.PackageStatus `json:"status"`
	CreatedAt      time.Time           `json:"createdAt"`
	Sender         Person              `json:"sender"`
	Recipient      Person              `json:"recipient"`
}

// HistoryEntry records one status change.
type HistoryEntry struct {
	ID        string              `json:"id"`
	Status    enums.PackageStatus `json:"status"`
	ChangedAt time.Time           `json:"changedAt"`
}

// Dimensions are optional package measurements.
type Dimensions struct {
	Length float64 `json:"length" validate:"gt=0"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// CreatePackageRequest is the POST /Package body. Sender and recipient must exist already.
type CreatePackageRequest struct {
	TrackingNumber string      `json:"trackingNumber" validate:"notblank,max=64"`
	SenderID       string      `json:"senderId" validate:"notblank"`
	RecipientID    string      `json:"recipientId" validate:"notblank"`
	Weight         *float64    `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Dimensions     *Dimensions `json:"dimensions,omitempty"`
	Description    *string     `json:"description,omitempty" validate:"omitempty,max=500"`
}

// CreatePersonRequest is the POST /Sender and POST /Recipient body.
type CreatePersonRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=50"`
	Phone       string  `json:"phone" validate:"required,phone"`
	Address     string  `json:"address" validate:"required,min=5,max=200"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	CompanyName *string `json:"companyName,omitempty" validate:"omitempty,max=100"`
}
