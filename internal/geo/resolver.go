package geo

import (
	"context"

	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/logger"
)

// Result is a resolved coordinate with its precision tier.
type Result struct {
	Coordinate Coordinate
	Precision  Precision
}

// Degraded reports whether territory matches based on this result should be
// flagged as low confidence.
func (r Result) Degraded() bool {
	return r.Precision == PrecisionDefault
}

// Geocoder looks up a precise coordinate for a postal code. The boolean is
// false when the geocoder has no result for the code (not an error).
type Geocoder interface {
	Geocode(ctx context.Context, postcode string) (Coordinate, bool, error)
}

// Cache stores geocoder results keyed by normalized postcode.
type Cache interface {
	Get(ctx context.Context, postcode string) (Coordinate, bool, error)
	Set(ctx context.Context, postcode string, c Coordinate) error
}

// Resolver turns a Dutch postal code into an approximate coordinate.
//
// Resolution tiers, in order: cache, external geocoder (when configured),
// embedded district table, embedded zone table, national default. Only a
// malformed postal code is an error; an unknown but well-formed code degrades
// to a lower tier and is logged for observability.
type Resolver struct {
	cache    Cache
	geocoder Geocoder
	log      *logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache attaches a cache in front of the geocoder.
func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithGeocoder attaches an external geocoder as the precise tier.
func WithGeocoder(g Geocoder) Option {
	return func(r *Resolver) { r.geocoder = g }
}

// NewResolver creates a Resolver. Without options it is a pure function over
// the embedded tables.
func NewResolver(log *logger.Logger, opts ...Option) *Resolver {
	r := &Resolver{log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps a postal code to a coordinate.
func (r *Resolver) Resolve(ctx context.Context, postalCode string) (Result, error) {
	normalized, ok := NormalizePostcode(postalCode)
	if !ok {
		return Result{}, apperr.Validation("unrecognized postal code format").WithOp("geo.Resolve")
	}

	if r.cache != nil {
		if c, hit, err := r.cache.Get(ctx, normalized); err == nil && hit {
			return Result{Coordinate: c, Precision: PrecisionExact}, nil
		} else if err != nil {
			r.log.Warn("geo cache read failed", "error", err)
		}
	}

	if r.geocoder != nil {
		c, found, err := r.geocoder.Geocode(ctx, normalized)
		if err != nil {
			r.log.Warn("geocoder lookup failed, falling back to static tables", "postcode", normalized, "error", err)
		} else if found {
			if r.cache != nil {
				if err := r.cache.Set(ctx, normalized, c); err != nil {
					r.log.Warn("geo cache write failed", "error", err)
				}
			}
			return Result{Coordinate: c, Precision: PrecisionExact}, nil
		}
	}

	if c, precision, ok := lookupStatic(normalized); ok {
		return Result{Coordinate: c, Precision: precision}, nil
	}

	r.log.GeoFallback(normalized)
	return Result{Coordinate: DefaultCoordinate, Precision: PrecisionDefault}, nil
}
