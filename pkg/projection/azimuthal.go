// Package projection implements the azimuthal-equidistant map projection
// used to flatten hemisphere coordinates onto the plotting plane. The
// projection preserves true great-circle distance from the chosen pole, so
// radial distances on the map can be read directly as retinal arc lengths.
package projection

import (
	"math"

	"retinamap/internal/models"
)

// Orientation fixes the pole and screen rotation of the projection. The
// same Orientation must be used for the density samples and for the
// landmark outline; projecting the two with different orientations
// desynchronizes the rendered boundary from the density field.
type Orientation struct {
	// PoleLat, PoleLon place the projection pole on the hemisphere,
	// in radians. The pole is conventionally the dorsal landmark.
	PoleLat float64
	PoleLon float64

	// Rotation turns the projected plane so a chosen anatomical
	// direction faces a fixed screen direction, in radians.
	Rotation float64
}

// DefaultOrientation returns the standard orientation: pole at the
// hemisphere zenith with no screen rotation.
func DefaultOrientation() Orientation {
	return Orientation{PoleLat: math.Pi / 2}
}

// Project maps a hemisphere point (lat, lon in radians) to planar (u, v)
// under the azimuthal-equidistant projection. The planar distance from the
// origin equals the great-circle distance from the pole, and the planar
// bearing equals the azimuth from the pole rotated by o.Rotation.
//
// Project carries no state and is safe to call concurrently.
func Project(lat, lon float64, o Orientation) (u, v float64) {
	sinP, cosP := math.Sincos(o.PoleLat)
	sinL, cosL := math.Sincos(lat)
	dLon := lon - o.PoleLon
	sinD, cosD := math.Sincos(dLon)

	// Great-circle distance from the pole.
	cosC := sinP*sinL + cosP*cosL*cosD
	// Clamp against rounding before acos.
	if cosC > 1 {
		cosC = 1
	} else if cosC < -1 {
		cosC = -1
	}
	c := math.Acos(cosC)

	// k = c/sin(c) scales the orthographic direction to true distance.
	var k float64
	sinC := math.Sin(c)
	if sinC < 1e-12 {
		// At the pole itself the direction is undefined and the
		// distance is zero.
		return 0, 0
	}
	k = c / sinC

	u = k * cosL * sinD
	v = k * (cosP*sinL - sinP*cosL*cosD)

	sinR, cosR := math.Sincos(o.Rotation)
	return u*cosR - v*sinR, u*sinR + v*cosR
}

// Invert recovers (lat, lon) from planar (u, v). It is the exact inverse of
// Project for any point strictly inside the antipode circle c < pi.
func Invert(u, v float64, o Orientation) (lat, lon float64) {
	// Undo the screen rotation.
	sinR, cosR := math.Sincos(o.Rotation)
	u, v = u*cosR+v*sinR, -u*sinR+v*cosR

	c := math.Hypot(u, v)
	if c < 1e-12 {
		return o.PoleLat, o.PoleLon
	}

	sinP, cosP := math.Sincos(o.PoleLat)
	sinC, cosC := math.Sincos(c)

	s := cosC*sinP + v*sinC*cosP/c
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	lat = math.Asin(s)
	lon = o.PoleLon + math.Atan2(u*sinC, c*cosP*cosC-v*sinP*sinC)
	return lat, lon
}

// ProjectPoints projects a spherical point set, preserving order and the
// density-presence rule: outline points stay density-free.
func ProjectPoints(points []models.SphericalPoint, o Orientation) []models.ProjectedPoint {
	projected := make([]models.ProjectedPoint, len(points))
	for i, p := range points {
		u, v := Project(p.Lat, p.Lon, o)
		projected[i] = models.ProjectedPoint{
			U:        u,
			V:        v,
			Count:    p.Count,
			HasCount: p.HasCount,
		}
	}
	return projected
}
