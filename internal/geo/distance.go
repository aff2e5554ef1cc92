// Package geo provides great-circle distance utilities for proximity-aware
// place ranking.
package geo

import (
	"math"

	"github.com/weplace/weplace/internal/place"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two
// points given in decimal degrees, using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	if math.IsNaN(lat1) || math.IsNaN(lng1) || math.IsNaN(lat2) || math.IsNaN(lng2) {
		return math.Inf(1)
	}

	rlat1 := lat1 * math.Pi / 180
	rlng1 := lng1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlng2 := lng2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlng := rlng2 - rlng1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return c * EarthRadiusKm
}

// DistanceBetween returns the distance in kilometers between two coordinate
// pairs, or +Inf when either side is missing. Callers must treat the
// infinite sentinel as "proximity unknown", never as an error.
func DistanceBetween(a, b *place.Coordinates) float64 {
	if a == nil || b == nil {
		return math.Inf(1)
	}
	return Distance(a.Lat, a.Lng, b.Lat, b.Lng)
}
