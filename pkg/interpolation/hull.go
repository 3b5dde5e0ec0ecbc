package interpolation

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// convexHull computes the convex hull of the sample sites as a closed ring,
// using Andrew's monotone chain. The hull bounds the region where the
// fitted surface is supported by data; outside it every value is
// extrapolation.
func convexHull(u, v []float64) orb.Ring {
	pts := make([]orb.Point, len(u))
	for i := range u {
		pts[i] = orb.Point{u[i], v[i]}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	n := len(pts)
	if n < 3 {
		return nil
	}

	hull := make([]orb.Point, 0, 2*n)

	// Lower chain.
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Upper chain.
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// The chain ends back at its starting point, closing the ring.
	return orb.Ring(hull)
}

// cross is the z-component of (b-a) x (c-a); positive for a left turn.
func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// inHull reports whether (u, v) lies inside or on the sample convex hull.
func (t *ThinPlate) inHull(u, v float64) bool {
	if t.hull == nil {
		return false
	}
	return planar.RingContains(t.hull, orb.Point{u, v})
}
