// Package interpolation fits a thin-plate-spline surface to projected
// density samples and evaluates it on a regular grid. The spline minimizes
// the sum of squared residuals plus lambda times the bending-energy
// penalty; lambda = 0 interpolates the samples exactly, and larger values
// trade fidelity for smoothness.
package interpolation

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"retinamap/internal/models"
)

// Metric selects how the fit-quality statistic is computed.
type Metric int

const (
	// MetricInSample scores the fit by its residuals at the sample
	// locations. Cheap, but optimistic for small lambda.
	MetricInSample Metric = iota

	// MetricCrossValidated scores the fit by leave-one-out
	// cross-validation: each sample is predicted from a spline fitted
	// without it. Honest but costs n extra solves.
	MetricCrossValidated
)

// Quality is the fit-quality statistic attached to a fitted spline. It is
// computed once at fit time and never recomputed on access.
type Quality struct {
	Metric   Metric
	RMSE     float64
	RSquared float64
}

// Tolerances for the degeneracy checks. Samples closer than coincidentTol
// make the kernel matrix singular; a third singular value of the polynomial
// block below collinearTol (relative) means the samples lie on a line.
const (
	coincidentTol = 1e-9
	collinearTol  = 1e-12
)

// ThinPlate is a fitted thin-plate spline f(u, v). It is immutable after
// Fit and safe for concurrent evaluation.
type ThinPlate struct {
	u, v, z []float64
	lambda  float64

	// w are the kernel weights and a the affine part, so
	// f(u,v) = a0 + a1*u + a2*v + sum_i w_i * U(|p - p_i|).
	w []float64
	a [3]float64

	hull    orb.Ring
	quality Quality
}

// Fit solves the regularized thin-plate system for the given projected
// density samples. Outline points (no density) are ignored. It fails with
// a NumericalError when the system is ill-posed: fewer than three samples,
// lambda < 0, coincident samples, or collinear samples.
func Fit(samples []models.ProjectedPoint, lambda float64, metric Metric) (*ThinPlate, error) {
	if lambda < 0 {
		return nil, &models.NumericalError{
			Stage:  models.StageInterpolate,
			Reason: fmt.Sprintf("smoothing parameter must be non-negative, got %g", lambda),
		}
	}

	var u, v, z []float64
	for _, p := range samples {
		if !p.HasCount {
			continue
		}
		u = append(u, p.U)
		v = append(v, p.V)
		z = append(z, p.Count)
	}

	tp, err := fit(u, v, z, lambda)
	if err != nil {
		return nil, err
	}
	tp.hull = convexHull(u, v)

	switch metric {
	case MetricCrossValidated:
		rmse, r2, err := crossValidate(u, v, z, lambda)
		if err != nil {
			return nil, err
		}
		tp.quality = Quality{Metric: MetricCrossValidated, RMSE: rmse, RSquared: r2}
	default:
		est := make([]float64, len(z))
		for i := range z {
			est[i] = tp.At(u[i], v[i])
		}
		tp.quality = Quality{
			Metric:   MetricInSample,
			RMSE:     rmse(est, z),
			RSquared: stat.RSquaredFrom(est, z, nil),
		}
	}
	return tp, nil
}

// fit assembles and solves the augmented thin-plate system
//
//	| K + lambda*I   P | |w|   |z|
//	| P^T            0 | |a| = |0|
//
// where K is the kernel matrix and P the affine basis [1 u v].
func fit(u, v, z []float64, lambda float64) (*ThinPlate, error) {
	n := len(z)
	if n < 3 {
		return nil, &models.NumericalError{
			Stage:  models.StageInterpolate,
			Reason: fmt.Sprintf("need at least 3 density samples for a well-posed thin-plate system, got %d", n),
		}
	}
	if err := checkCoincident(u, v); err != nil {
		return nil, err
	}
	if err := checkCollinear(u, v); err != nil {
		return nil, err
	}

	size := n + 3
	a := mat.NewDense(size, size, nil)
	b := mat.NewVecDense(size, nil)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k := kernel(math.Hypot(u[i]-u[j], v[i]-v[j]))
			a.Set(i, j, k)
			a.Set(j, i, k)
		}
		a.Set(i, i, a.At(i, i)+lambda)

		a.Set(i, n, 1)
		a.Set(i, n+1, u[i])
		a.Set(i, n+2, v[i])
		a.Set(n, i, 1)
		a.Set(n+1, i, u[i])
		a.Set(n+2, i, v[i])

		b.SetVec(i, z[i])
	}

	// QR is rank-revealing enough for this bordered system and matches
	// the solver used elsewhere in the pipeline's history.
	var qr mat.QR
	qr.Factorize(a)

	x := mat.NewVecDense(size, nil)
	if err := qr.SolveVecTo(x, false, b); err != nil {
		return nil, &models.NumericalError{
			Stage:  models.StageInterpolate,
			Reason: fmt.Sprintf("thin-plate system is singular: %v", err),
		}
	}

	tp := &ThinPlate{
		u:      append([]float64(nil), u...),
		v:      append([]float64(nil), v...),
		z:      append([]float64(nil), z...),
		lambda: lambda,
		w:      make([]float64, n),
	}
	for i := 0; i < n; i++ {
		tp.w[i] = x.AtVec(i)
	}
	tp.a[0] = x.AtVec(n)
	tp.a[1] = x.AtVec(n + 1)
	tp.a[2] = x.AtVec(n + 2)
	return tp, nil
}

// kernel is the thin-plate radial basis U(r) = r^2 log r^2, with the
// removable singularity at r = 0 filled by its limit 0.
func kernel(r float64) float64 {
	if r <= 0 {
		return 0
	}
	return r * r * math.Log(r*r)
}

// At evaluates the fitted surface at (u, v).
func (t *ThinPlate) At(u, v float64) float64 {
	f := t.a[0] + t.a[1]*u + t.a[2]*v
	for i := range t.w {
		f += t.w[i] * kernel(math.Hypot(u-t.u[i], v-t.v[i]))
	}
	return f
}

// Quality returns the fit-quality statistic computed at fit time.
func (t *ThinPlate) Quality() Quality { return t.quality }

// Lambda returns the smoothing parameter the spline was fitted with.
func (t *ThinPlate) Lambda() float64 { return t.lambda }

// NumSamples returns the number of density samples in the fit.
func (t *ThinPlate) NumSamples() int { return len(t.z) }

// rmse is the root-mean-square deviation between estimates and truth.
func rmse(est, z []float64) float64 {
	var ss float64
	for i := range z {
		d := est[i] - z[i]
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(z)))
}

// crossValidate computes the leave-one-out RMSE and R^2: each sample is
// predicted by a spline fitted without it. Folds whose reduced sample set
// is itself degenerate are skipped. Folds run in parallel across the
// available cores; each worker owns a disjoint index range, so the result
// is independent of the worker count.
func crossValidate(u, v, z []float64, lambda float64) (float64, float64, error) {
	n := len(z)
	if n < 4 {
		return 0, 0, &models.NumericalError{
			Stage:  models.StageInterpolate,
			Reason: fmt.Sprintf("need at least 4 samples for leave-one-out validation, got %d", n),
		}
	}

	est := make([]float64, n)
	valid := make([]bool, n)

	numWorkers := runtime.NumCPU()
	if numWorkers > n {
		numWorkers = n
	}
	perWorker := (n + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			uu := make([]float64, n-1)
			vv := make([]float64, n-1)
			zz := make([]float64, n-1)
			for i := start; i < end; i++ {
				copy(uu, u[:i])
				copy(uu[i:], u[i+1:])
				copy(vv, v[:i])
				copy(vv[i:], v[i+1:])
				copy(zz, z[:i])
				copy(zz[i:], z[i+1:])

				tp, err := fit(uu, vv, zz, lambda)
				if err != nil {
					continue
				}
				est[i] = tp.At(u[i], v[i])
				valid[i] = true
			}
		}(start, end)
	}
	wg.Wait()

	var heldEst, heldZ []float64
	for i := range z {
		if valid[i] {
			heldEst = append(heldEst, est[i])
			heldZ = append(heldZ, z[i])
		}
	}
	if len(heldZ) == 0 {
		return 0, 0, &models.NumericalError{
			Stage:  models.StageInterpolate,
			Reason: "every leave-one-out fold was degenerate",
		}
	}
	return rmse(heldEst, heldZ), stat.RSquaredFrom(heldEst, heldZ, nil), nil
}
