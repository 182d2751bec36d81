// Package geomath holds the numeric side of the game: distances on the
// sphere, great-circle paths for drawing, and the distance-to-points rule.
// Nothing here does I/O.
package geomath

import (
	"math"

	"github.com/playperu/cityguesser/internal/geoquiz"
)

// EarthRadiusKm is the mean Earth radius (IUGG).
const EarthRadiusKm = 6371.0088

// GeodesicDistanceKm returns the great-circle distance between a and b.
func GeodesicDistanceKm(a, b geoquiz.LatLon) float64 {
	return angularDistance(a, b) * EarthRadiusKm
}

// angularDistance is the haversine central angle in radians. The haversine
// term is clamped to [0, 1] so that rounding near antipodes cannot push
// sqrt/asin out of their domain.
func angularDistance(a, b geoquiz.LatLon) float64 {
	φ1 := radians(a.Lat)
	φ2 := radians(b.Lat)
	dφ := radians(b.Lat - a.Lat)
	dλ := radians(b.Lon - a.Lon)

	sinDφ := math.Sin(dφ / 2)
	sinDλ := math.Sin(dλ / 2)

	h := sinDφ*sinDφ + math.Cos(φ1)*math.Cos(φ2)*sinDλ*sinDλ
	return 2 * math.Asin(math.Sqrt(clamp(h, 0, 1)))
}

// initialBearing returns the forward azimuth from a to b in radians.
func initialBearing(a, b geoquiz.LatLon) float64 {
	φ1 := radians(a.Lat)
	φ2 := radians(b.Lat)
	dλ := radians(b.Lon - a.Lon)

	y := math.Sin(dλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(dλ)
	return math.Atan2(y, x)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
