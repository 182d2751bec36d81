package geomath

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/playperu/cityguesser/internal/geoquiz"
)

var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// DistanceToAreaKm returns the shortest distance from p to a Polygon or
// MultiPolygon (lon/lat order, as in GeoJSON). Points inside the area or on
// its border are at distance 0.
//
// Containment uses planar ray casting on lon/lat, which is how the
// boundaries are drawn; edge distances are spherical cross-track distances.
func DistanceToAreaKm(p geoquiz.LatLon, area orb.Geometry) (float64, error) {
	pt := orb.Point{p.Lon, p.Lat}

	var polys orb.MultiPolygon
	switch g := area.(type) {
	case orb.Polygon:
		polys = orb.MultiPolygon{g}
	case orb.MultiPolygon:
		polys = g
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, area)
	}

	if planar.MultiPolygonContains(polys, pt) {
		return 0, nil
	}

	best := math.Inf(1)
	for _, poly := range polys {
		for _, ring := range poly {
			for i := 0; i+1 < len(ring); i++ {
				d := segmentDistance(p, toLatLon(ring[i]), toLatLon(ring[i+1]))
				if d < best {
					best = d
				}
			}
		}
	}
	if math.IsInf(best, 1) {
		return 0, fmt.Errorf("%w: area has no edges", ErrUnsupportedGeometry)
	}
	return best * EarthRadiusKm, nil
}

// segmentDistance is the angular distance from p to the minor arc a→b.
func segmentDistance(p, a, b geoquiz.LatLon) float64 {
	dap := angularDistance(a, p)
	dbp := angularDistance(b, p)
	best := math.Min(dap, dbp)

	dab := angularDistance(a, b)
	if dab == 0 || dap == 0 {
		return best
	}

	diff := initialBearing(a, p) - initialBearing(a, b)
	if math.Cos(diff) <= 0 {
		// p projects behind a
		return best
	}

	xt := math.Asin(clamp(math.Sin(dap)*math.Sin(diff), -1, 1))
	cosXT := math.Cos(xt)
	if cosXT < 1e-12 {
		return best
	}
	along := math.Acos(clamp(math.Cos(dap)/cosXT, -1, 1))
	if along > dab {
		return best
	}
	return math.Min(best, math.Abs(xt))
}

func toLatLon(p orb.Point) geoquiz.LatLon {
	return geoquiz.LatLon{Lat: p.Lat(), Lon: p.Lon()}
}
