package interpolation

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"retinamap/internal/models"
)

// DefaultMaxRadius is the output radius of the evaluated grid as a multiple
// of the unit hemisphere radius. The projected equator sits at pi/2, so
// 1.6 keeps the full hemisphere plus a small margin inside the grid.
const DefaultMaxRadius = 1.6

// Surface is the fitted spline evaluated on a regular grid spanning
// [-MaxRadius, MaxRadius] in both axes. Undefined cells are NaN and must
// be excluded from downstream consumption.
type Surface struct {
	// Values holds the grid in row-major order, Res*Res long.
	Values []float64

	// Res is the grid resolution per axis.
	Res int

	// MaxRadius is the half-extent of the grid.
	MaxRadius float64

	// Extrapolated records whether cells outside the sample convex hull
	// were evaluated. When true, values beyond the hull are model-derived,
	// not measured.
	Extrapolated bool

	// Quality is the fit-quality statistic of the underlying spline.
	Quality Quality
}

// At returns the grid value at row i, column j and whether it is defined.
func (s *Surface) At(i, j int) (float64, bool) {
	v := s.Values[i*s.Res+j]
	return v, !math.IsNaN(v)
}

// Coord returns the (u, v) position of the grid cell at row i, column j.
func (s *Surface) Coord(i, j int) (u, v float64) {
	step := 2 * s.MaxRadius / float64(s.Res-1)
	return -s.MaxRadius + float64(j)*step, -s.MaxRadius + float64(i)*step
}

// Surface evaluates the fitted spline on a res-by-res grid. With
// extrapolation disabled, cells outside the sample convex hull are left
// undefined; with it enabled, every cell inside maxRadius is evaluated.
// Cells beyond maxRadius are always undefined. A maxRadius of zero or less
// selects DefaultMaxRadius.
//
// Rows are evaluated in parallel across the available cores. Each worker
// writes a disjoint row range, so the grid is deterministic regardless of
// worker count.
func (t *ThinPlate) Surface(res int, maxRadius float64, extrapolate bool) (*Surface, error) {
	if res < 2 {
		return nil, &models.NumericalError{
			Stage:  models.StageInterpolate,
			Reason: fmt.Sprintf("grid resolution must be at least 2, got %d", res),
		}
	}
	if maxRadius <= 0 {
		maxRadius = DefaultMaxRadius
	}

	s := &Surface{
		Values:       make([]float64, res*res),
		Res:          res,
		MaxRadius:    maxRadius,
		Extrapolated: extrapolate,
		Quality:      t.quality,
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > res {
		numWorkers = res
	}
	rowsPerWorker := (res + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > res {
			endRow = res
		}
		if startRow >= endRow {
			continue
		}

		wg.Add(1)
		go func(startRow, endRow int) {
			defer wg.Done()
			for i := startRow; i < endRow; i++ {
				for j := 0; j < res; j++ {
					u, v := s.Coord(i, j)
					switch {
					case math.Hypot(u, v) > maxRadius:
						s.Values[i*res+j] = math.NaN()
					case !extrapolate && !t.inHull(u, v):
						s.Values[i*res+j] = math.NaN()
					default:
						s.Values[i*res+j] = t.At(u, v)
					}
				}
			}
		}(startRow, endRow)
	}
	wg.Wait()

	return s, nil
}
