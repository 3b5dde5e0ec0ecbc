package models

import "fmt"

// Pipeline stage identifiers attached to every error so a failure can be
// traced to the step that produced it.
const (
	StageImport      = "import"
	StageMap         = "map"
	StageProject     = "project"
	StageInterpolate = "interpolate"
	StageAssemble    = "assemble"
)

// ConfigurationError reports an invalid construction parameter, such as a
// non-square counting frame or a negative smoothing parameter. It is always
// raised before any file access occurs.
type ConfigurationError struct {
	Stage  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %s", e.Stage, e.Reason)
}

// IOError reports a missing or malformed input. Row is the 1-based data row
// that failed to parse, or 0 when the failure is not row-specific.
type IOError struct {
	Stage string
	Path  string
	Row   int
	Err   error
}

func (e *IOError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s: %s row %d: %v", e.Stage, e.Path, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// MappingError reports a point the reconstruction oracle could not place on
// the hemisphere. Row indexes into the combined coordinate table. The
// pipeline never produces a partial result for an unmappable point, so the
// density estimate can never silently carry a coverage gap.
type MappingError struct {
	Stage string
	Row   int
	X, Y  float64
	Err   error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s: row %d (%.4f, %.4f): %v", e.Stage, e.Row, e.X, e.Y, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// NumericalError reports an ill-posed or degenerate interpolation system:
// too few samples, coincident or collinear sample positions, or a smoothing
// parameter outside its domain.
type NumericalError struct {
	Stage  string
	Reason string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}
