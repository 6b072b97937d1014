package repository

import (
	"context"
	"errors"

	"leadrouter_backend/internal/geo"
	"leadrouter_backend/internal/territory"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the pgx-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new allocation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// GetLead loads the allocation view of a lead.
func (r *Repository) GetLead(ctx context.Context, leadID uuid.UUID) (Lead, error) {
	var (
		lead      Lead
		lat, lon  *float64
		precision *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, category, first_name, last_name, email, phone, zip_code, city,
		       lat, lon, geo_precision
		FROM leads
		WHERE id = $1
	`, leadID).Scan(
		&lead.ID, &lead.Category, &lead.FirstName, &lead.LastName, &lead.Email,
		&lead.Phone, &lead.ZipCode, &lead.City, &lat, &lon, &precision,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	if err != nil {
		return Lead{}, err
	}

	if lat != nil && lon != nil {
		lead.Coordinate = &geo.Coordinate{Lat: *lat, Lon: *lon}
	}
	if precision != nil {
		lead.GeoPrecision = geo.Precision(*precision)
	}
	return lead, nil
}

const batchColumns = `
	b.id, b.customer_id, c.name, c.email, b.category,
	b.total_capacity, b.current_count, b.is_active, b.is_completed,
	b.territory_kind, b.center_lat, b.center_lon, b.radius_km, b.regions,
	b.sink_target, b.created_at, b.updated_at`

func scanBatch(row pgx.Row) (CustomerBatch, error) {
	var (
		batch                CustomerBatch
		kind                 string
		centerLat, centerLon *float64
		radiusKm             *float64
		regions              []string
	)
	err := row.Scan(
		&batch.ID, &batch.CustomerID, &batch.CustomerName, &batch.CustomerEmail,
		&batch.Category, &batch.TotalCapacity, &batch.CurrentCount,
		&batch.IsActive, &batch.IsCompleted,
		&kind, &centerLat, &centerLon, &radiusKm, &regions,
		&batch.SinkTarget, &batch.CreatedAt, &batch.UpdatedAt,
	)
	if err != nil {
		return CustomerBatch{}, err
	}

	batch.Territory = territory.Definition{Kind: territory.Kind(kind), Regions: regions}
	if centerLat != nil && centerLon != nil {
		batch.Territory.Center = &geo.Coordinate{Lat: *centerLat, Lon: *centerLon}
	}
	if radiusKm != nil {
		batch.Territory.RadiusKm = *radiusKm
	}
	return batch, nil
}

// GetBatch loads a single batch with its owning customer.
func (r *Repository) GetBatch(ctx context.Context, batchID uuid.UUID) (CustomerBatch, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+batchColumns+`
		FROM customer_batches b
		JOIN customers c ON c.id = b.customer_id
		WHERE b.id = $1
	`, batchID)

	batch, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return CustomerBatch{}, ErrBatchNotFound
	}
	return batch, err
}

// ListOpenBatches returns batches with quota headroom for the category.
func (r *Repository) ListOpenBatches(ctx context.Context, category string) ([]CustomerBatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+batchColumns+`
		FROM customer_batches b
		JOIN customers c ON c.id = b.customer_id
		WHERE b.category = $1
		  AND b.is_active = true
		  AND b.is_completed = false
		  AND b.current_count < b.total_capacity
		ORDER BY b.created_at
	`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []CustomerBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// LatestDistributionsByLead returns the newest distribution per customer.
func (r *Repository) LatestDistributionsByLead(ctx context.Context, leadID uuid.UUID) (map[uuid.UUID]Distribution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (customer_id)
		       id, lead_id, customer_id, batch_id, kind, distance_km,
		       priority_score, reason, sink_status, created_at
		FROM distributions
		WHERE lead_id = $1
		ORDER BY customer_id, created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[uuid.UUID]Distribution)
	for rows.Next() {
		var d Distribution
		if err := rows.Scan(
			&d.ID, &d.LeadID, &d.CustomerID, &d.BatchID, &d.Kind, &d.DistanceKm,
			&d.PriorityScore, &d.Reason, &d.SinkStatus, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		result[d.CustomerID] = d
	}
	return result, rows.Err()
}

// GetDistribution loads a single distribution row.
func (r *Repository) GetDistribution(ctx context.Context, distributionID uuid.UUID) (Distribution, error) {
	var d Distribution
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, customer_id, batch_id, kind, distance_km,
		       priority_score, reason, sink_status, created_at
		FROM distributions
		WHERE id = $1
	`, distributionID).Scan(
		&d.ID, &d.LeadID, &d.CustomerID, &d.BatchID, &d.Kind, &d.DistanceKm,
		&d.PriorityScore, &d.Reason, &d.SinkStatus, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Distribution{}, ErrDistributionNotFound
	}
	return d, err
}

// TryIncrementBatchCount advances the quota counter in one conditional UPDATE.
// The WHERE clause re-checks headroom so two concurrent passes can never both
// take the last slot; the loser simply matches zero rows.
func (r *Repository) TryIncrementBatchCount(ctx context.Context, batchID uuid.UUID) (IncrementOutcome, error) {
	var (
		newCount int
		capacity int
	)
	err := r.pool.QueryRow(ctx, `
		UPDATE customer_batches
		SET current_count = current_count + 1,
		    is_completed = (current_count + 1 >= total_capacity),
		    is_active = (current_count + 1 < total_capacity),
		    updated_at = now()
		WHERE id = $1
		  AND is_active = true
		  AND current_count < total_capacity
		RETURNING current_count, total_capacity
	`, batchID).Scan(&newCount, &capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return IncrementOutcome{Won: false}, nil
	}
	if err != nil {
		return IncrementOutcome{}, err
	}

	return IncrementOutcome{
		Won:       true,
		NewCount:  newCount,
		Completed: newCount >= capacity,
	}, nil
}

// CreateDistribution appends a distribution row.
func (r *Repository) CreateDistribution(ctx context.Context, d *Distribution) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO distributions
			(lead_id, customer_id, batch_id, kind, distance_km, priority_score, reason, sink_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, d.LeadID, d.CustomerID, d.BatchID, d.Kind, d.DistanceKm,
		d.PriorityScore, d.Reason, d.SinkStatus,
	).Scan(&d.ID, &d.CreatedAt)
}

// UpdateSinkStatus records the sheet push outcome.
func (r *Repository) UpdateSinkStatus(ctx context.Context, distributionID uuid.UUID, status SinkStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE distributions SET sink_status = $2 WHERE id = $1
	`, distributionID, status)
	return err
}

// ListPendingSinkDistributions returns rows still waiting for a sheet push.
func (r *Repository) ListPendingSinkDistributions(ctx context.Context, limit int) ([]Distribution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, customer_id, batch_id, kind, distance_km,
		       priority_score, reason, sink_status, created_at
		FROM distributions
		WHERE sink_status IN ('pending', 'failed')
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Distribution
	for rows.Next() {
		var d Distribution
		if err := rows.Scan(
			&d.ID, &d.LeadID, &d.CustomerID, &d.BatchID, &d.Kind, &d.DistanceKm,
			&d.PriorityScore, &d.Reason, &d.SinkStatus, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// BumpLeadDistributionCounters advances the lead counters after a pass.
func (r *Repository) BumpLeadDistributionCounters(ctx context.Context, leadID uuid.UUID, distributions, newCustomers int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET total_distribution_count = total_distribution_count + $2,
		    unique_customer_count = unique_customer_count + $3
		WHERE id = $1
	`, leadID, distributions, newCustomers)
	return err
}
