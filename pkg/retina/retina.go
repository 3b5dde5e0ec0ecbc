// Package retina drives the full flatmount-to-hemisphere density mapping
// pipeline and assembles its immutable result. A construction is one
// synchronous pass: import and normalize the coordinate tables, fold them
// onto the hemisphere, project to the plane, fit the thin-plate surface,
// and combine everything into a Retina. Any stage failure aborts the
// construction; a partial Retina is never returned.
package retina

import (
	"fmt"
	"log"

	"retinamap/internal/models"
	"retinamap/pkg/flatmount"
	"retinamap/pkg/interpolation"
	"retinamap/pkg/projection"
	"retinamap/pkg/sphere"
)

// Params holds one construction's configuration. Constructions are
// independent: nothing is cached or shared between calls.
type Params struct {
	// SamplePath is the CSV of (x, y, count) counting-frame measurements.
	SamplePath string

	// OutlinePath is the CSV of ordered (x, y) landmark outline points.
	OutlinePath string

	// Frame is the counting frame; its height and width must be equal.
	Frame flatmount.Frame

	// Calibration converts raw coordinates to the unit frame. Nil means
	// Uncalibrated.
	Calibration flatmount.Calibration

	// Eye is the physical geometry of the source eye.
	Eye models.EyeGeometry

	// Lambda is the thin-plate smoothing parameter, >= 0.
	Lambda float64

	// GridRes is the output grid resolution per axis, >= 2.
	GridRes int

	// MaxRadius is the grid half-extent; zero or less selects
	// interpolation.DefaultMaxRadius.
	MaxRadius float64

	// Extrapolate evaluates the surface outside the sample convex hull
	// when true; otherwise those cells stay undefined.
	Extrapolate bool

	// Orientation fixes the projection pole and screen rotation. The
	// zero value is replaced by projection.DefaultOrientation. The same
	// orientation is applied to samples and outline; the two must never
	// diverge.
	Orientation projection.Orientation

	// Metric selects the fit-quality statistic.
	Metric interpolation.Metric

	// Oracle is the reconstruction collaborator. Nil selects the
	// built-in fold-back oracle.
	Oracle sphere.Oracle

	// Verbose enables staged progress logging.
	Verbose bool
}

// Retina is the immutable construction result.
type Retina struct {
	surface *interpolation.Surface
	samples []models.ProjectedPoint
	outline []models.ProjectedPoint
	eye     models.EyeGeometry
}

// Surface returns the interpolated density surface.
func (r *Retina) Surface() *interpolation.Surface { return r.surface }

// Samples returns the projected density samples. The slice is shared;
// treat it as read-only.
func (r *Retina) Samples() []models.ProjectedPoint { return r.samples }

// Outline returns the projected landmark outline. The slice is shared;
// treat it as read-only.
func (r *Retina) Outline() []models.ProjectedPoint { return r.outline }

// Eye returns the physical eye geometry.
func (r *Retina) Eye() models.EyeGeometry { return r.eye }

// Builder runs the construction pipeline for one Params set.
type Builder struct {
	params Params
}

// NewBuilder creates a builder. Parameter validation happens in Build,
// before any file access.
func NewBuilder(params Params) *Builder {
	return &Builder{params: params}
}

// Build runs Import -> Map -> Project -> Interpolate -> Assemble and
// returns the finished Retina. Errors carry the failing stage and the
// offending input; they are deterministic, so retrying without changing
// the configuration or data will fail identically.
func (b *Builder) Build() (*Retina, error) {
	p := b.params
	if err := validate(&p); err != nil {
		return nil, err
	}

	b.logf("Step 1: Importing and normalizing coordinate tables...")
	importer, err := flatmount.NewImporter(p.Frame, p.Calibration)
	if err != nil {
		return nil, err
	}
	table, err := importer.Import(p.SamplePath, p.OutlinePath)
	if err != nil {
		return nil, err
	}
	b.logf("Imported %d samples and %d outline points", table.NumSamples, table.NumOutline)

	b.logf("Step 2: Folding flatmount onto the hemisphere...")
	mapped, err := sphere.NewMapper(p.Oracle).MapTable(table)
	if err != nil {
		return nil, err
	}

	b.logf("Step 3: Projecting to the azimuthal-equidistant plane...")
	projected := projection.ProjectPoints(mapped, p.Orientation)
	samples := projected[:table.NumSamples]
	outline := projected[table.NumSamples:]

	b.logf("Step 4: Fitting thin-plate surface (lambda=%g, grid %dx%d)...", p.Lambda, p.GridRes, p.GridRes)
	tp, err := interpolation.Fit(samples, p.Lambda, p.Metric)
	if err != nil {
		return nil, err
	}
	surface, err := tp.Surface(p.GridRes, p.MaxRadius, p.Extrapolate)
	if err != nil {
		return nil, err
	}
	b.logf("Fit quality: RMSE=%.4f R2=%.4f", surface.Quality.RMSE, surface.Quality.RSquared)

	b.logf("Step 5: Assembling retina object...")
	return assemble(surface, samples, outline, p.Eye)
}

// validate rejects invalid construction parameters before any file access.
func validate(p *Params) error {
	if p.Frame.Height != p.Frame.Width {
		return &models.ConfigurationError{
			Stage:  models.StageImport,
			Reason: fmt.Sprintf("counting frame must be square, got height=%g width=%g", p.Frame.Height, p.Frame.Width),
		}
	}
	if p.Lambda < 0 {
		return &models.ConfigurationError{
			Stage:  models.StageInterpolate,
			Reason: fmt.Sprintf("smoothing parameter must be non-negative, got %g", p.Lambda),
		}
	}
	if p.GridRes < 2 {
		return &models.ConfigurationError{
			Stage:  models.StageInterpolate,
			Reason: fmt.Sprintf("grid resolution must be at least 2, got %d", p.GridRes),
		}
	}

	if p.Calibration == nil {
		p.Calibration = flatmount.Uncalibrated{}
	}
	if p.Oracle == nil {
		p.Oracle = sphere.NewFoldbackOracle()
	}
	if (p.Orientation == projection.Orientation{}) {
		p.Orientation = projection.DefaultOrientation()
	}
	return nil
}

// assemble combines the pipeline outputs into the immutable Retina. It
// recomputes nothing and fails only on structural inconsistency.
func assemble(surface *interpolation.Surface, samples, outline []models.ProjectedPoint, eye models.EyeGeometry) (*Retina, error) {
	if surface == nil || len(surface.Values) == 0 {
		return nil, &models.ConfigurationError{
			Stage:  models.StageAssemble,
			Reason: "missing interpolated surface",
		}
	}
	if len(samples) == 0 {
		return nil, &models.ConfigurationError{
			Stage:  models.StageAssemble,
			Reason: "missing projected samples",
		}
	}
	return &Retina{
		surface: surface,
		samples: samples,
		outline: outline,
		eye:     eye,
	}, nil
}

func (b *Builder) logf(format string, args ...any) {
	if b.params.Verbose {
		log.Printf(format, args...)
	}
}
