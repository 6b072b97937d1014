// Package transport defines the allocation module's HTTP DTOs.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// DistributionResponse is the API view of one distribution row.
type DistributionResponse struct {
	ID            uuid.UUID `json:"id"`
	LeadID        uuid.UUID `json:"leadId"`
	CustomerID    uuid.UUID `json:"customerId"`
	BatchID       uuid.UUID `json:"batchId"`
	Kind          string    `json:"kind"`
	DistanceKm    *float64  `json:"distanceKm,omitempty"`
	PriorityScore float64   `json:"priorityScore"`
	Reason        string    `json:"reason,omitempty"`
	SinkStatus    string    `json:"sinkStatus"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AllocationRunResponse summarizes a manually triggered allocation pass.
type AllocationRunResponse struct {
	LeadID        uuid.UUID              `json:"leadId"`
	FreshCount    int                    `json:"freshCount"`
	ReuseCount    int                    `json:"reuseCount"`
	Distributions []DistributionResponse `json:"distributions"`
}
