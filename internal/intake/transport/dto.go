// Package transport defines the intake module's HTTP DTOs.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// SubmitLeadRequest is an inbound lead submission. Contact identity (email or
// phone) is the only hard requirement; everything else is best effort.
type SubmitLeadRequest struct {
	FirstName   string `json:"firstName" validate:"max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
	Email       string `json:"email" validate:"omitempty,email,max=254"`
	Phone       string `json:"phone" validate:"omitempty,min=8,max=20"`
	Category    string `json:"category" validate:"required,min=2,max=50"`
	Street      string `json:"street" validate:"max=200"`
	HouseNumber string `json:"houseNumber" validate:"max=20"`
	ZipCode     string `json:"zipCode" validate:"max=10"`
	City        string `json:"city" validate:"max=100"`
	Source      string `json:"source" validate:"max=100"`
}

// LeadResponse is the API view of a lead.
type LeadResponse struct {
	ID                     uuid.UUID `json:"id"`
	FirstName              string    `json:"firstName"`
	LastName               string    `json:"lastName"`
	Email                  string    `json:"email,omitempty"`
	Phone                  string    `json:"phone,omitempty"`
	Category               string    `json:"category"`
	Street                 string    `json:"street,omitempty"`
	HouseNumber            string    `json:"houseNumber,omitempty"`
	ZipCode                string    `json:"zipCode,omitempty"`
	City                   string    `json:"city,omitempty"`
	Lat                    *float64  `json:"lat,omitempty"`
	Lon                    *float64  `json:"lon,omitempty"`
	GeoPrecision           string    `json:"geoPrecision,omitempty"`
	Source                 string    `json:"source,omitempty"`
	SubmissionCount        int       `json:"submissionCount"`
	TotalDistributionCount int       `json:"totalDistributionCount"`
	UniqueCustomerCount    int       `json:"uniqueCustomerCount"`
	FirstSeenAt            time.Time `json:"firstSeenAt"`
	LastSeenAt             time.Time `json:"lastSeenAt"`
}

// SubmitLeadResponse wraps the lead with the dedup outcome.
type SubmitLeadResponse struct {
	Lead           LeadResponse `json:"lead"`
	IsResubmission bool         `json:"isResubmission"`
}
