package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrBatchNotFound is returned when a batch lookup finds no row.
var ErrBatchNotFound = errors.New("customer batch not found")

// ErrLeadNotFound is returned when a lead lookup finds no row.
var ErrLeadNotFound = errors.New("lead not found")

// ErrDistributionNotFound is returned when a distribution lookup finds no row.
var ErrDistributionNotFound = errors.New("distribution not found")

// Store is the persistence contract for the allocation pass. The pgx
// implementation is Repository; tests use an in-memory fake.
type Store interface {
	// GetLead loads the allocation view of a lead.
	GetLead(ctx context.Context, leadID uuid.UUID) (Lead, error)

	// GetBatch loads a single batch.
	GetBatch(ctx context.Context, batchID uuid.UUID) (CustomerBatch, error)

	// GetDistribution loads a single distribution.
	GetDistribution(ctx context.Context, distributionID uuid.UUID) (Distribution, error)

	// ListOpenBatches returns active, non-completed batches for the category
	// that still have quota headroom. Reads a consistent snapshot; headroom is
	// re-verified by TryIncrementBatchCount at write time.
	ListOpenBatches(ctx context.Context, category string) ([]CustomerBatch, error)

	// LatestDistributionsByLead returns the most recent distribution per
	// customer for the lead.
	LatestDistributionsByLead(ctx context.Context, leadID uuid.UUID) (map[uuid.UUID]Distribution, error)

	// TryIncrementBatchCount performs the single atomic conditional increment:
	// current_count advances by one only while below total_capacity. When the
	// increment fills the batch it also flips is_completed/is_active in the
	// same statement. A lost race is reported via Won=false, never an error.
	TryIncrementBatchCount(ctx context.Context, batchID uuid.UUID) (IncrementOutcome, error)

	// CreateDistribution appends a distribution row. The row's ID and
	// CreatedAt are filled in by the store.
	CreateDistribution(ctx context.Context, d *Distribution) error

	// UpdateSinkStatus records the outcome of the sheet push for a distribution.
	UpdateSinkStatus(ctx context.Context, distributionID uuid.UUID, status SinkStatus) error

	// ListPendingSinkDistributions returns distributions whose sheet push has
	// not succeeded yet, oldest first.
	ListPendingSinkDistributions(ctx context.Context, limit int) ([]Distribution, error)

	// BumpLeadDistributionCounters advances the lead's total distribution and
	// unique customer counters after an allocation pass.
	BumpLeadDistributionCounters(ctx context.Context, leadID uuid.UUID, distributions, newCustomers int) error
}
