// Package territory decides whether a lead's coordinate falls inside a
// customer batch's territory definition.
package territory

import (
	"leadrouter_backend/internal/geo"
)

// Kind discriminates the territory definition variants.
type Kind string

const (
	// KindRadius matches within a radius around a center coordinate.
	KindRadius Kind = "radius"
	// KindRegions matches a set of named regions (provinces).
	KindRegions Kind = "regions"
	// KindCountry matches anywhere in the country.
	KindCountry Kind = "country"
)

// Priority scores per kind. Candidates are ranked ascending, so a tighter
// territory outranks a broader one. Radius territories use their radius in km
// directly, which keeps them ahead of region and country territories for any
// realistic radius.
const (
	// RegionsPriority is the fixed score for region-list territories.
	RegionsPriority = 150.0
	// CountryPriority is the fixed score for full-country territories.
	CountryPriority = 400.0
)

// Definition is a customer batch's territory. Immutable once attached to a
// batch; reconfiguration happens through batch administration, not here.
type Definition struct {
	Kind     Kind
	Center   *geo.Coordinate // radius kind
	RadiusKm float64         // radius kind
	Regions  []string        // regions kind
}

// MatchResult is the outcome of matching one coordinate against a definition.
type MatchResult struct {
	Matches    bool
	DistanceKm *float64 // set for radius territories regardless of outcome
	Region     string   // resolved region for region-list territories
}

// Valid reports whether the definition has all fields its kind requires.
// Incomplete definitions fail closed: they match nothing.
func (d Definition) Valid() bool {
	switch d.Kind {
	case KindRadius:
		return d.Center != nil && d.RadiusKm > 0
	case KindRegions:
		return len(d.Regions) > 0
	case KindCountry:
		return true
	default:
		return false
	}
}

// Match tests a lead coordinate against the definition.
func (d Definition) Match(lead geo.Coordinate) MatchResult {
	if !d.Valid() {
		return MatchResult{}
	}

	switch d.Kind {
	case KindCountry:
		return MatchResult{Matches: true}

	case KindRadius:
		distance := geo.Haversine(lead, *d.Center)
		return MatchResult{
			Matches:    distance <= d.RadiusKm,
			DistanceKm: &distance,
		}

	case KindRegions:
		region := geo.NearestRegion(lead)
		for _, allowed := range d.Regions {
			if allowed == region {
				return MatchResult{Matches: true, Region: region}
			}
		}
		return MatchResult{Region: region}
	}

	return MatchResult{}
}

// PriorityScore returns the ranking score for this definition. Lower scores
// rank first.
func (d Definition) PriorityScore() float64 {
	switch d.Kind {
	case KindRadius:
		return d.RadiusKm
	case KindRegions:
		return RegionsPriority
	default:
		return CountryPriority
	}
}
