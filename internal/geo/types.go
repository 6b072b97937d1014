// Package geo resolves Dutch postal codes to approximate coordinates and
// provides great-circle distance math for territory matching.
package geo

// Coordinate is a WGS84 lat/lon pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Precision describes how a coordinate was obtained. Coordinates resolved via
// the fallback tiers degrade matching precision and are flagged on the lead.
type Precision string

const (
	// PrecisionExact comes from an external geocoder hit (full address or postcode).
	PrecisionExact Precision = "exact"
	// PrecisionDistrict comes from the two-digit postcode centroid table.
	PrecisionDistrict Precision = "district"
	// PrecisionArea comes from the one-digit postcode zone table.
	PrecisionArea Precision = "area"
	// PrecisionDefault is the national centroid used when nothing matched.
	PrecisionDefault Precision = "default"
)

// DefaultCoordinate is the approximate geographic center of the Netherlands.
// Used as the last-resort fallback for unrecognized postal codes.
var DefaultCoordinate = Coordinate{Lat: 52.1326, Lon: 5.2913}
