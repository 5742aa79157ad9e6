// Package geo resolves a coordinate to the nearest active jurisdictional
// office by great-circle distance.
package geo

import (
	"math"

	"civicwatch/internal/station"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Match is the nearest station and its great-circle distance.
type Match struct {
	Station    *station.Station
	DistanceKm float64
}

// Nearest scans the candidates linearly and returns the closest one. The
// candidate set is expected to be small (tens to low hundreds of offices),
// so no spatial index is used. Ties keep the first-encountered candidate;
// callers must pass candidates in a stable order for deterministic results.
// Returns ok=false when there are no candidates.
func Nearest(coord Coordinate, candidates []*station.Station) (Match, bool) {
	var best Match
	found := false
	for _, cand := range candidates {
		d := DistanceKm(coord.Latitude, coord.Longitude, cand.Latitude, cand.Longitude)
		if !found || d < best.DistanceKm {
			best = Match{Station: cand, DistanceKm: d}
			found = true
		}
	}
	return best, found
}

// DistanceKm computes the haversine great-circle distance in kilometers
// between two WGS84 points given in degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
