// Package sphere maps normalized flatmount coordinates onto the unit
// hemisphere. The geometric reconstruction itself, folding the cut
// flatmount back onto the sphere, is delegated to an opaque oracle; this
// package only marshals points through it, preserving order and count.
package sphere

import (
	"errors"
	"math"
)

// ErrUnmappable is returned by an Oracle for a point outside its resolved
// domain, typically a coordinate beyond the reconstructed rim.
var ErrUnmappable = errors.New("point outside reconstruction domain")

// Oracle is the reconstruction collaborator contract. Given a normalized
// flatmount coordinate it returns the hemisphere position in radians, or
// ErrUnmappable (possibly wrapped) when the point cannot be placed.
type Oracle interface {
	Place(x, y float64) (lat, lon float64, err error)
}

// FoldbackOracle is a reference oracle that treats the normalized flatmount
// as an azimuthal-equidistant chart of the hemisphere centered on the chart
// midpoint: radial distance from the center maps linearly to colatitude,
// and the planar bearing becomes longitude. It stands in for a full
// incision-aware reconstruction, whose mesh-relaxation optimization lives
// outside this module.
type FoldbackOracle struct {
	// CenterX, CenterY is the chart point that folds to the hemisphere
	// zenith.
	CenterX, CenterY float64

	// Rim is the chart radius that folds to the equator. Points farther
	// than Rim from the center are unmappable.
	Rim float64
}

// NewFoldbackOracle returns the oracle for the unit chart: center at
// (0.5, 0.5) with the inscribed circle as the rim.
func NewFoldbackOracle() *FoldbackOracle {
	return &FoldbackOracle{CenterX: 0.5, CenterY: 0.5, Rim: 0.5}
}

// Place folds a normalized chart coordinate onto the hemisphere.
func (o *FoldbackOracle) Place(x, y float64) (lat, lon float64, err error) {
	dx := x - o.CenterX
	dy := y - o.CenterY
	r := math.Hypot(dx, dy)

	const tol = 1e-9
	if r > o.Rim+tol {
		return 0, 0, ErrUnmappable
	}

	// Radial distance maps linearly to colatitude, so the fold is
	// distance-true along chart radials.
	colat := (r / o.Rim) * (math.Pi / 2)
	lat = math.Pi/2 - colat
	lon = math.Atan2(dy, dx)
	return lat, lon, nil
}
