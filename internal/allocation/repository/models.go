// Package repository provides data access for customer batches and
// distributions, including the atomic quota increment the executor relies on.
package repository

import (
	"time"

	"leadrouter_backend/internal/geo"
	"leadrouter_backend/internal/territory"

	"github.com/google/uuid"
)

// DistributionKind distinguishes first-time deliveries from re-deliveries
// after the reuse window.
type DistributionKind string

const (
	// KindFresh is a first-time allocation of a lead to a customer. Consumes quota.
	KindFresh DistributionKind = "fresh"
	// KindReuse is a re-delivery at least the reuse window after the previous
	// one. Does not consume quota.
	KindReuse DistributionKind = "reuse"
)

// SinkStatus tracks whether the distribution's copy reached the external sheet.
type SinkStatus string

const (
	// SinkPending means the row was created but the sheet push has not happened yet.
	SinkPending SinkStatus = "pending"
	// SinkSynced means the sheet push succeeded.
	SinkSynced SinkStatus = "synced"
	// SinkFailed means the sheet push failed; an out-of-band retry picks it up.
	SinkFailed SinkStatus = "failed"
)

// CustomerBatch is a customer's capacity-bounded allocation window for one
// service category, with its territory definition.
type CustomerBatch struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	CustomerName  string
	CustomerEmail string
	Category      string
	TotalCapacity int
	CurrentCount  int
	IsActive      bool
	IsCompleted   bool
	Territory     territory.Definition
	SinkTarget    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Distribution records one lead routed to one customer batch. Append-only.
type Distribution struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	CustomerID    uuid.UUID
	BatchID       uuid.UUID
	Kind          DistributionKind
	DistanceKm    *float64
	PriorityScore float64
	Reason        string
	SinkStatus    SinkStatus
	CreatedAt     time.Time
}

// Lead is the slice of lead state the allocation pass needs.
type Lead struct {
	ID           uuid.UUID
	Category     string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	ZipCode      string
	City         string
	Coordinate   *geo.Coordinate
	GeoPrecision geo.Precision
}

// HasCoordinate reports whether the lead can be territory-matched at all.
func (l Lead) HasCoordinate() bool {
	return l.Coordinate != nil
}

// IncrementOutcome is the result of the conditional quota increment.
type IncrementOutcome struct {
	// Won is false when another allocation pass took the last slot first.
	Won bool
	// NewCount is the batch count after the increment (only set when Won).
	NewCount int
	// Completed is true when this increment filled the batch to capacity.
	Completed bool
}
