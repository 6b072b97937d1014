// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadrouter_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Intake Domain Events
// =============================================================================

// LeadReceived is published after intake created or updated a lead.
// Subscribers kick off the allocation pass for the lead.
type LeadReceived struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	Category        string    `json:"category"`
	IsResubmission  bool      `json:"isResubmission"`
	SubmissionCount int       `json:"submissionCount"`
	Source          string    `json:"source,omitempty"`
}

func (e LeadReceived) EventName() string { return "intake.lead.received" }

// LeadQualified is published when the ad qualification scorer has scored a lead.
type LeadQualified struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	BatchID   uuid.UUID `json:"batchId"`
	Qualified bool      `json:"qualified"`
	Score     int       `json:"score"`
	Reasons   []string  `json:"reasons,omitempty"`
}

func (e LeadQualified) EventName() string { return "qualify.lead.scored" }

// =============================================================================
// Allocation Domain Events
// =============================================================================

// DistributionCreated is published for every distribution row written by the executor.
type DistributionCreated struct {
	BaseEvent
	DistributionID uuid.UUID `json:"distributionId"`
	LeadID         uuid.UUID `json:"leadId"`
	CustomerID     uuid.UUID `json:"customerId"`
	BatchID        uuid.UUID `json:"batchId"`
	Kind           string    `json:"kind"` // "fresh" or "reuse"
}

func (e DistributionCreated) EventName() string { return "allocation.distribution.created" }

// BatchCompleted is published when a conditional increment fills a batch to capacity.
// The notification module listens for this to inform the customer.
type BatchCompleted struct {
	BaseEvent
	BatchID       uuid.UUID `json:"batchId"`
	CustomerID    uuid.UUID `json:"customerId"`
	Category      string    `json:"category"`
	TotalCapacity int       `json:"totalCapacity"`
}

func (e BatchCompleted) EventName() string { return "allocation.batch.completed" }

// SinkSyncFailed is published when pushing a distribution to the external sheet
// sink fails. The distribution row itself is already committed; a retry task
// picks the row up out-of-band.
type SinkSyncFailed struct {
	BaseEvent
	DistributionID uuid.UUID `json:"distributionId"`
	BatchID        uuid.UUID `json:"batchId"`
	Reason         string    `json:"reason"`
}

func (e SinkSyncFailed) EventName() string { return "allocation.sink.sync_failed" }
