package geo

// Region is a named allocation region (a Dutch province) with a reference
// centroid. Region membership for a lead is decided by nearest centroid,
// which is a documented approximation: coordinates near a province border
// can resolve to the neighboring province. An authoritative postcode-to-
// province table would remove the ambiguity but is not shipped.
type Region struct {
	Name     string
	Centroid Coordinate
}

// Regions lists the twelve Dutch provinces with approximate centroids.
var Regions = []Region{
	{"Groningen", Coordinate{53.217, 6.741}},
	{"Friesland", Coordinate{53.111, 5.778}},
	{"Drenthe", Coordinate{52.863, 6.618}},
	{"Overijssel", Coordinate{52.439, 6.442}},
	{"Flevoland", Coordinate{52.527, 5.595}},
	{"Gelderland", Coordinate{52.061, 5.939}},
	{"Utrecht", Coordinate{52.085, 5.163}},
	{"Noord-Holland", Coordinate{52.581, 4.918}},
	{"Zuid-Holland", Coordinate{52.021, 4.494}},
	{"Zeeland", Coordinate{51.494, 3.849}},
	{"Noord-Brabant", Coordinate{51.562, 5.184}},
	{"Limburg", Coordinate{51.210, 5.938}},
}

// NearestRegion returns the name of the region whose centroid is closest to c.
func NearestRegion(c Coordinate) string {
	var (
		best     string
		bestDist float64 = -1
	)
	for _, region := range Regions {
		d := Haversine(c, region.Centroid)
		if bestDist < 0 || d < bestDist {
			best = region.Name
			bestDist = d
		}
	}
	return best
}

// KnownRegion reports whether name matches one of the configured regions.
func KnownRegion(name string) bool {
	for _, region := range Regions {
		if region.Name == name {
			return true
		}
	}
	return false
}
