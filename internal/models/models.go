// Package models defines the plain data types shared by the retinamap
// pipeline stages. Every type here is produced once by its stage and
// never mutated afterwards.
package models

// RawSample is a single counting-frame measurement on the flatmount:
// a planar position (in pixels or pre-normalized units) plus the number
// of cells counted at that position.
type RawSample struct {
	// X, Y are the sample position on the flatmount image.
	X, Y float64

	// Count is the cell count observed in the counting frame.
	Count float64
}

// TableRow is one entry of the combined coordinate table emitted by the
// importer. Sample rows carry a density count; outline rows do not.
type TableRow struct {
	// X, Y are normalized flatmount coordinates.
	X, Y float64

	// Count is the density count for sample rows.
	Count float64

	// HasCount distinguishes sample rows (true) from landmark outline
	// rows (false). Outline rows never contribute to the interpolation.
	HasCount bool
}

// SphericalPoint is a point placed on the unit hemisphere by the
// reconstruction oracle. Latitude and longitude are in radians.
type SphericalPoint struct {
	Lat, Lon float64

	// Count and HasCount follow the same density-presence rule as TableRow.
	Count    float64
	HasCount bool
}

// ProjectedPoint is a point mapped to the azimuthal-equidistant plane.
type ProjectedPoint struct {
	U, V float64

	// Count and HasCount follow the same density-presence rule as TableRow.
	Count    float64
	HasCount bool
}

// EyeGeometry holds the physical dimensions of the eye the retina was
// dissected from, in consistent physical units (typically mm).
type EyeGeometry struct {
	// LensDiameter is the diameter of the lens.
	LensDiameter float64

	// EyeDiameter is the equatorial diameter of the eye.
	EyeDiameter float64

	// AxialLength is the front-to-back length of the eye.
	AxialLength float64
}
