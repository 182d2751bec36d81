package geomath

import (
	"math"

	"github.com/playperu/cityguesser/internal/geoquiz"
)

// DefaultPathSegments is the resolution used for the guess-to-target line.
const DefaultPathSegments = 100

// GreatCirclePath interpolates segments+1 points from start to end along the
// great circle using slerp. Identical endpoints yield [start, end].
func GreatCirclePath(start, end geoquiz.LatLon, segments int) []geoquiz.LatLon {
	if segments < 1 {
		segments = 1
	}

	d := angularDistance(start, end)
	if d == 0 {
		return []geoquiz.LatLon{start, end}
	}

	p := toVector(start)
	q := toVector(end)
	sinD := math.Sin(d)

	// Antipodal endpoints have no unique great circle; sweep through a fixed
	// perpendicular instead of dividing by sin(d) ≈ 0.
	antipodal := d > math.Pi/2 && sinD < 1e-12
	var perp vec3
	if antipodal {
		perp = perpendicular(p)
	}

	path := make([]geoquiz.LatLon, segments+1)
	path[0] = start
	for i := 1; i < segments; i++ {
		f := float64(i) / float64(segments)

		var v vec3
		if antipodal {
			v = p.scale(math.Cos(f * math.Pi)).add(perp.scale(math.Sin(f * math.Pi)))
		} else {
			a := math.Sin((1-f)*d) / sinD
			b := math.Sin(f*d) / sinD
			v = p.scale(a).add(q.scale(b))
		}
		path[i] = v.latLon()
	}
	path[segments] = end
	return path
}

type vec3 struct{ x, y, z float64 }

func toVector(p geoquiz.LatLon) vec3 {
	φ := radians(p.Lat)
	λ := radians(p.Lon)
	return vec3{
		x: math.Cos(φ) * math.Cos(λ),
		y: math.Cos(φ) * math.Sin(λ),
		z: math.Sin(φ),
	}
}

func (v vec3) add(o vec3) vec3 { return vec3{v.x + o.x, v.y + o.y, v.z + o.z} }

func (v vec3) scale(k float64) vec3 { return vec3{v.x * k, v.y * k, v.z * k} }

func (v vec3) cross(o vec3) vec3 {
	return vec3{
		x: v.y*o.z - v.z*o.y,
		y: v.z*o.x - v.x*o.z,
		z: v.x*o.y - v.y*o.x,
	}
}

func (v vec3) norm() float64 { return math.Sqrt(v.x*v.x + v.y*v.y + v.z*v.z) }

func (v vec3) latLon() geoquiz.LatLon {
	return geoquiz.LatLon{
		Lat: degrees(math.Atan2(v.z, math.Hypot(v.x, v.y))),
		Lon: degrees(math.Atan2(v.y, v.x)),
	}
}

// perpendicular returns a unit vector orthogonal to v.
func perpendicular(v vec3) vec3 {
	w := v.cross(vec3{z: 1})
	if w.norm() < 1e-9 {
		// v is a pole
		w = v.cross(vec3{x: 1})
	}
	return w.scale(1 / w.norm())
}
