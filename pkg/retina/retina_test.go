package retina

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"retinamap/internal/models"
	"retinamap/pkg/flatmount"
	"retinamap/pkg/interpolation"
)

// writeInputs creates a mappable sample/outline pair on the unit chart:
// samples inside the fold-back rim, outline tracing a circle near it.
func writeInputs(t *testing.T, dir string) (samplePath, outlinePath string, nSamples, nOutline int) {
	t.Helper()

	var sb strings.Builder
	nSamples = 12
	for i := 0; i < nSamples; i++ {
		angle := 2 * math.Pi * float64(i) / float64(nSamples)
		r := 0.15 + 0.15*float64(i%3)
		x := 0.5 + r*math.Cos(angle)
		y := 0.5 + r*math.Sin(angle)
		count := 100 + 50*math.Sin(angle) + 20*r
		fmt.Fprintf(&sb, "%g,%g,%g\n", x, y, count)
	}
	samplePath = filepath.Join(dir, "samples.csv")
	if err := os.WriteFile(samplePath, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("Failed to write samples: %v", err)
	}

	sb.Reset()
	nOutline = 8
	for i := 0; i < nOutline; i++ {
		angle := 2 * math.Pi * float64(i) / float64(nOutline)
		fmt.Fprintf(&sb, "%g,%g\n", 0.5+0.45*math.Cos(angle), 0.5+0.45*math.Sin(angle))
	}
	outlinePath = filepath.Join(dir, "outline.csv")
	if err := os.WriteFile(outlinePath, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("Failed to write outline: %v", err)
	}
	return samplePath, outlinePath, nSamples, nOutline
}

// TestBuildPipeline verifies a full construction: every stage runs, the
// result carries the surface, both projected point sets, and the eye
// geometry, and the density-presence rule holds throughout.
func TestBuildPipeline(t *testing.T) {
	dir := t.TempDir()
	samplePath, outlinePath, nSamples, nOutline := writeInputs(t, dir)

	eye := models.EyeGeometry{LensDiameter: 2.5, EyeDiameter: 6.2, AxialLength: 6.0}
	builder := NewBuilder(Params{
		SamplePath:  samplePath,
		OutlinePath: outlinePath,
		Frame:       flatmount.Frame{Height: 25, Width: 25},
		Eye:         eye,
		Lambda:      0.001,
		GridRes:     41,
		Extrapolate: false,
	})

	retina, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if retina.Surface() == nil {
		t.Fatal("Expected an interpolated surface")
	}
	if retina.Surface().Res != 41 {
		t.Errorf("Expected grid resolution 41, got %d", retina.Surface().Res)
	}
	if len(retina.Samples()) != nSamples {
		t.Errorf("Expected %d projected samples, got %d", nSamples, len(retina.Samples()))
	}
	if len(retina.Outline()) != nOutline {
		t.Errorf("Expected %d projected outline points, got %d", nOutline, len(retina.Outline()))
	}
	if retina.Eye() != eye {
		t.Errorf("Expected eye geometry %+v, got %+v", eye, retina.Eye())
	}

	for i, s := range retina.Samples() {
		if !s.HasCount {
			t.Errorf("Projected sample %d lost its density count", i)
		}
	}
	for i, o := range retina.Outline() {
		if o.HasCount {
			t.Errorf("Projected outline point %d carries a density count", i)
		}
	}

	// Some grid cells must be defined over the sampled region.
	defined := 0
	for i := 0; i < retina.Surface().Res; i++ {
		for j := 0; j < retina.Surface().Res; j++ {
			if _, ok := retina.Surface().At(i, j); ok {
				defined++
			}
		}
	}
	if defined == 0 {
		t.Error("Expected defined cells over the sampled region")
	}
}

// TestBuildRejectsNonSquareFrameBeforeIO verifies that an unequal counting
// frame fails with a ConfigurationError before any file access: the input
// paths here do not exist, so reaching the importer would surface an
// IOError instead.
func TestBuildRejectsNonSquareFrameBeforeIO(t *testing.T) {
	builder := NewBuilder(Params{
		SamplePath:  "/nonexistent/samples.csv",
		OutlinePath: "/nonexistent/outline.csv",
		Frame:       flatmount.Frame{Height: 25, Width: 30},
		Lambda:      0,
		GridRes:     21,
	})

	_, err := builder.Build()
	if err == nil {
		t.Fatal("Expected error for non-square frame, got nil")
	}

	var cfgErr *models.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %T: %v", err, err)
	}
	var ioErr *models.IOError
	if errors.As(err, &ioErr) {
		t.Error("File access occurred before parameter validation")
	}
}

// TestBuildRejectsNegativeLambda verifies the lambda guard in parameter
// validation, again before any file access.
func TestBuildRejectsNegativeLambda(t *testing.T) {
	builder := NewBuilder(Params{
		SamplePath:  "/nonexistent/samples.csv",
		OutlinePath: "/nonexistent/outline.csv",
		Frame:       flatmount.Frame{Height: 25, Width: 25},
		Lambda:      -1,
		GridRes:     21,
	})

	_, err := builder.Build()
	var cfgErr *models.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError for negative lambda, got %T: %v", err, err)
	}
	if cfgErr.Stage != models.StageInterpolate {
		t.Errorf("Expected stage %q, got %q", models.StageInterpolate, cfgErr.Stage)
	}
}

// TestBuildUnmappableSample verifies that a sample outside the oracle's
// domain aborts the construction with a MappingError and no partial result.
func TestBuildUnmappableSample(t *testing.T) {
	dir := t.TempDir()
	samplePath, outlinePath, _, _ := writeInputs(t, dir)

	// Append a sample far outside the fold-back rim.
	f, err := os.OpenFile(samplePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to open samples for append: %v", err)
	}
	if _, err := f.WriteString("0.01,0.01,50\n"); err != nil {
		t.Fatalf("Failed to append sample: %v", err)
	}
	f.Close()

	builder := NewBuilder(Params{
		SamplePath:  samplePath,
		OutlinePath: outlinePath,
		Frame:       flatmount.Frame{Height: 25, Width: 25},
		GridRes:     21,
	})

	retina, err := builder.Build()
	if err == nil {
		t.Fatal("Expected MappingError, got nil")
	}
	if retina != nil {
		t.Error("Expected no partial retina on mapping failure")
	}

	var mapErr *models.MappingError
	if !errors.As(err, &mapErr) {
		t.Fatalf("Expected MappingError, got %T: %v", err, err)
	}
}

// TestBuildExtrapolationPolicy verifies that enabling extrapolation fills
// every cell inside the bounding radius.
func TestBuildExtrapolationPolicy(t *testing.T) {
	dir := t.TempDir()
	samplePath, outlinePath, _, _ := writeInputs(t, dir)

	params := Params{
		SamplePath:  samplePath,
		OutlinePath: outlinePath,
		Frame:       flatmount.Frame{Height: 25, Width: 25},
		GridRes:     31,
		Extrapolate: true,
	}
	retina, err := NewBuilder(params).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	s := retina.Surface()
	if !s.Extrapolated {
		t.Error("Expected surface to record the extrapolation flag")
	}
	for i := 0; i < s.Res; i++ {
		for j := 0; j < s.Res; j++ {
			u, v := s.Coord(i, j)
			if math.Hypot(u, v) <= interpolation.DefaultMaxRadius {
				if _, ok := s.At(i, j); !ok {
					t.Fatalf("Undefined cell inside maxRadius at (%.3f, %.3f)", u, v)
				}
			}
		}
	}
}

// TestBuildIndependentConstructions verifies that two constructions from
// the same inputs share no state and agree exactly.
func TestBuildIndependentConstructions(t *testing.T) {
	dir := t.TempDir()
	samplePath, outlinePath, _, _ := writeInputs(t, dir)

	params := Params{
		SamplePath:  samplePath,
		OutlinePath: outlinePath,
		Frame:       flatmount.Frame{Height: 25, Width: 25},
		Lambda:      0.01,
		GridRes:     25,
	}

	first, err := NewBuilder(params).Build()
	if err != nil {
		t.Fatalf("First build failed: %v", err)
	}
	second, err := NewBuilder(params).Build()
	if err != nil {
		t.Fatalf("Second build failed: %v", err)
	}

	for i := range first.Surface().Values {
		a := first.Surface().Values[i]
		b := second.Surface().Values[i]
		if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
			t.Fatalf("Cell %d differs between constructions: %g vs %g", i, a, b)
		}
	}
}
