// Command lead-geocode backfills coordinates for leads that were stored
// before postal code resolution existed, or whose resolution degraded to the
// national default.
package main

import (
	"context"
	"time"

	"leadrouter_backend/internal/geo"
	"leadrouter_backend/platform/config"
	"leadrouter_backend/platform/db"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type leadRow struct {
	id      uuid.UUID
	zipCode string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead geocode backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	var opts []geo.Option
	if cfg.IsNominatimEnabled() {
		opts = append(opts, geo.WithGeocoder(geo.NewNominatimGeocoder(cfg.NominatimURL, log)))
	}
	resolver := geo.NewResolver(log, opts...)

	const batchSize = 25
	for {
		leads, err := listLeadsMissingCoordinates(ctx, pool, batchSize)
		if err != nil {
			log.Error("failed to list leads", "error", err)
			return
		}
		if len(leads) == 0 {
			log.Info("no leads left to geocode")
			return
		}

		progress := false

		for _, lead := range leads {
			result, err := resolver.Resolve(ctx, lead.zipCode)
			if err != nil {
				log.Info("skipping unresolvable postal code", "leadId", lead.id, "zipCode", lead.zipCode)
				continue
			}
			if result.Precision == geo.PrecisionDefault {
				// No better than what the lead already has.
				continue
			}

			if err := updateLeadCoordinates(ctx, pool, lead.id, result); err != nil {
				log.Error("failed to update lead", "leadId", lead.id, "error", err)
				time.Sleep(time.Second)
				continue
			}

			log.Info("lead geocoded", "leadId", lead.id,
				"lat", result.Coordinate.Lat, "lon", result.Coordinate.Lon,
				"precision", string(result.Precision))
			progress = true
			// Stay polite towards the public geocoder.
			time.Sleep(time.Second)
		}

		if !progress {
			log.Info("no further progress possible, stopping")
			return
		}
	}
}

func listLeadsMissingCoordinates(ctx context.Context, pool *pgxpool.Pool, limit int) ([]leadRow, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, zip_code
		FROM leads
		WHERE zip_code <> ''
		  AND (lat IS NULL OR geo_precision = 'default')
		ORDER BY first_seen_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []leadRow
	for rows.Next() {
		var lead leadRow
		if err := rows.Scan(&lead.id, &lead.zipCode); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func updateLeadCoordinates(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, result geo.Result) error {
	_, err := pool.Exec(ctx, `
		UPDATE leads SET lat = $2, lon = $3, geo_precision = $4 WHERE id = $1
	`, id, result.Coordinate.Lat, result.Coordinate.Lon, string(result.Precision))
	return err
}
