package interpolation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"retinamap/internal/models"
)

// sampleSite is a 2D sample location, satisfying kdtree.Comparable so
// coincident samples can be found without an O(n^2) sweep.
type sampleSite struct {
	U, V float64
}

// Compare implements the kdtree.Comparable interface.
func (p sampleSite) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(sampleSite)
	switch d {
	case 0:
		return p.U - q.U
	case 1:
		return p.V - q.V
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree.
func (p sampleSite) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between two sites.
func (p sampleSite) Distance(c kdtree.Comparable) float64 {
	q := c.(sampleSite)
	du := p.U - q.U
	dv := p.V - q.V
	return du*du + dv*dv
}

// sampleSites is a collection of sampleSite that satisfies kdtree.Interface.
type sampleSites []sampleSite

func (p sampleSites) Index(i int) kdtree.Comparable         { return p[i] }
func (p sampleSites) Len() int                              { return len(p) }
func (p sampleSites) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method.
func (p sampleSites) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(sitePlane{sampleSites: p, Dim: d}, kdtree.MedianOfRandoms(sitePlane{sampleSites: p, Dim: d}, 100))
}

// sitePlane implements sort.Interface and kdtree.SortSlicer for sampleSites.
type sitePlane struct {
	sampleSites
	kdtree.Dim
}

func (p sitePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.sampleSites[i].U < p.sampleSites[j].U
	case 1:
		return p.sampleSites[i].V < p.sampleSites[j].V
	default:
		panic("illegal dimension")
	}
}

func (p sitePlane) Slice(start, end int) kdtree.SortSlicer {
	return sitePlane{sampleSites: p.sampleSites[start:end], Dim: p.Dim}
}

func (p sitePlane) Swap(i, j int) {
	p.sampleSites[i], p.sampleSites[j] = p.sampleSites[j], p.sampleSites[i]
}

// checkCoincident fails when any two samples are closer than coincidentTol.
// Duplicated sites make the kernel matrix rows identical and the system
// singular before the solver can notice.
func checkCoincident(u, v []float64) error {
	sites := make(sampleSites, len(u))
	for i := range u {
		sites[i] = sampleSite{U: u[i], V: v[i]}
	}
	tree := kdtree.New(sites, false)

	tolSq := coincidentTol * coincidentTol
	for i, s := range sites {
		keeper := kdtree.NewNKeeper(2)
		tree.NearestSet(keeper, s)

		// The nearest hit is the site itself at distance zero; a second
		// hit inside tolerance is a duplicate.
		within := 0
		for _, cd := range keeper.Heap {
			if cd.Comparable == nil || math.IsInf(cd.Dist, 1) {
				continue
			}
			if cd.Dist <= tolSq {
				within++
			}
		}
		if within > 1 {
			return &models.NumericalError{
				Stage:  models.StageInterpolate,
				Reason: fmt.Sprintf("coincident samples at (%.6g, %.6g)", u[i], v[i]),
			}
		}
	}
	return nil
}

// checkCollinear fails when the samples lie on a single line, which makes
// the affine block of the thin-plate system rank-deficient. Collinearity
// is read off the singular values of the [1 u v] basis matrix.
func checkCollinear(u, v []float64) error {
	n := len(u)
	p := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		p.Set(i, 0, 1)
		p.Set(i, 1, u[i])
		p.Set(i, 2, v[i])
	}

	var svd mat.SVD
	if !svd.Factorize(p, mat.SVDNone) {
		return &models.NumericalError{
			Stage:  models.StageInterpolate,
			Reason: "singular value decomposition of the affine basis failed",
		}
	}

	sv := svd.Values(nil)
	if sv[2] <= collinearTol*sv[0] {
		return &models.NumericalError{
			Stage:  models.StageInterpolate,
			Reason: "samples are collinear beyond tolerance",
		}
	}
	return nil
}
