package flatmount

// Calibration converts raw flatmount coordinates (typically pixels) into
// the normalized unit frame the rest of the pipeline works in. It is a
// closed tagged variant: inputs are either Calibrated or Uncalibrated, and
// the two paths stay type-distinguishable instead of hiding behind an
// overloaded flag.
type Calibration interface {
	// Apply maps a raw coordinate pair to normalized coordinates.
	Apply(x, y float64) (float64, float64)

	isCalibration()
}

// Calibrated is a pixel-to-physical affine transform recorded during
// imaging. The transform maps the (MinX, MinY)..(MaxX, MaxY) pixel bounds
// onto the unit frame by scaling with DeltaX and DeltaY.
type Calibrated struct {
	MaxX, MaxY     float64
	MinX, MinY     float64
	DeltaX, DeltaY float64
}

// Apply maps a pixel coordinate through the affine transform.
func (c Calibrated) Apply(x, y float64) (float64, float64) {
	return (x - c.MinX) / c.DeltaX, (y - c.MinY) / c.DeltaY
}

func (c Calibrated) isCalibration() {}

// Uncalibrated marks inputs whose coordinates are already normalized.
type Uncalibrated struct{}

// Apply returns the coordinates unchanged.
func (Uncalibrated) Apply(x, y float64) (float64, float64) { return x, y }

func (Uncalibrated) isCalibration() {}
