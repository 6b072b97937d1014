// Package repository provides data access for leads.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLeadNotFound is returned when a lead lookup finds no row.
var ErrLeadNotFound = errors.New("lead not found")

// Lead is a deduplicated contact event. Created on first sighting of a
// contact identity; repeat sightings bump the counters. Never deleted.
type Lead struct {
	ID                     uuid.UUID
	FirstName              string
	LastName               string
	Email                  string
	Phone                  string
	Category               string
	Street                 string
	HouseNumber            string
	ZipCode                string
	City                   string
	Lat                    *float64
	Lon                    *float64
	GeoPrecision           *string
	Source                 string
	SubmissionCount        int
	TotalDistributionCount int
	UniqueCustomerCount    int
	QualificationScore     *int
	QualificationReasons   []string
	FirstSeenAt            time.Time
	LastSeenAt             time.Time
}

// Repository is the pgx-backed lead store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new lead repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, first_name, last_name, email, phone, category,
	street, house_number, zip_code, city, lat, lon, geo_precision,
	source, submission_count, total_distribution_count, unique_customer_count,
	qualification_score, qualification_reasons, first_seen_at, last_seen_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&lead.Category, &lead.Street, &lead.HouseNumber, &lead.ZipCode,
		&lead.City, &lead.Lat, &lead.Lon, &lead.GeoPrecision, &lead.Source,
		&lead.SubmissionCount, &lead.TotalDistributionCount,
		&lead.UniqueCustomerCount, &lead.QualificationScore,
		&lead.QualificationReasons, &lead.FirstSeenAt, &lead.LastSeenAt,
	)
	return lead, err
}

// GetByID loads a lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// FindByContact looks up an existing lead by exact email or exact phone match.
// Empty identity values never match anything.
func (r *Repository) FindByContact(ctx context.Context, email, phone string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE ($1 <> '' AND email = $1)
		   OR ($2 <> '' AND phone = $2)
		ORDER BY first_seen_at
		LIMIT 1
	`, email, phone)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// Insert creates a new lead row with submission_count = 1.
func (r *Repository) Insert(ctx context.Context, lead *Lead) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO leads
			(first_name, last_name, email, phone, category, street, house_number,
			 zip_code, city, lat, lon, geo_precision, source,
			 qualification_score, qualification_reasons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, submission_count, total_distribution_count,
		          unique_customer_count, first_seen_at, last_seen_at
	`, lead.FirstName, lead.LastName, lead.Email, lead.Phone, lead.Category,
		lead.Street, lead.HouseNumber, lead.ZipCode, lead.City,
		lead.Lat, lead.Lon, lead.GeoPrecision, lead.Source,
		lead.QualificationScore, lead.QualificationReasons,
	).Scan(&lead.ID, &lead.SubmissionCount, &lead.TotalDistributionCount,
		&lead.UniqueCustomerCount, &lead.FirstSeenAt, &lead.LastSeenAt)
}

// RecordResubmission bumps the submission counter and refreshes last_seen_at.
// Address and coordinate fields are overwritten only when the new submission
// supplies them; COALESCE/NULLIF keeps previously known values intact.
func (r *Repository) RecordResubmission(ctx context.Context, id uuid.UUID, update Lead) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET submission_count = submission_count + 1,
		    last_seen_at = now(),
		    first_name = COALESCE(NULLIF($2, ''), first_name),
		    last_name = COALESCE(NULLIF($3, ''), last_name),
		    email = COALESCE(NULLIF($4, ''), email),
		    phone = COALESCE(NULLIF($5, ''), phone),
		    street = COALESCE(NULLIF($6, ''), street),
		    house_number = COALESCE(NULLIF($7, ''), house_number),
		    zip_code = COALESCE(NULLIF($8, ''), zip_code),
		    city = COALESCE(NULLIF($9, ''), city),
		    lat = COALESCE($10, lat),
		    lon = COALESCE($11, lon),
		    geo_precision = COALESCE($12, geo_precision)
		WHERE id = $1
		RETURNING `+leadColumns+`
	`, id, update.FirstName, update.LastName, update.Email, update.Phone,
		update.Street, update.HouseNumber, update.ZipCode, update.City,
		update.Lat, update.Lon, update.GeoPrecision)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// SetQualification stores the ad qualification score and reasons on the lead.
func (r *Repository) SetQualification(ctx context.Context, id uuid.UUID, score int, reasons []string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET qualification_score = $2, qualification_reasons = $3 WHERE id = $1
	`, id, score, reasons)
	return err
}
