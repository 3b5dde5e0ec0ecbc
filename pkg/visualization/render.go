// Package visualization renders an interpolated density surface and its
// landmark outline as a 2D map image. It is a consumer of the pipeline's
// outputs only: all state is explicit in the values passed in, with no
// process-wide plotting device.
package visualization

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"retinamap/internal/models"
	"retinamap/pkg/interpolation"
)

// surfaceGrid adapts a Surface to plotter.GridXYZ. Undefined cells stay
// NaN; the heatmap leaves them blank.
type surfaceGrid struct {
	s *interpolation.Surface
}

func (g surfaceGrid) Dims() (c, r int) { return g.s.Res, g.s.Res }

func (g surfaceGrid) Z(c, r int) float64 { return g.s.Values[r*g.s.Res+c] }

func (g surfaceGrid) X(c int) float64 {
	u, _ := g.s.Coord(0, c)
	return u
}

func (g surfaceGrid) Y(r int) float64 {
	_, v := g.s.Coord(r, 0)
	return v
}

// RenderPNG draws the density surface as a heatmap with the projected
// landmark outline overlaid, and writes the result to path. The outline is
// drawn exactly as projected; it never masks the surface.
func RenderPNG(surface *interpolation.Surface, outline []models.ProjectedPoint, path string) error {
	if surface == nil {
		return fmt.Errorf("visualization: no surface to render")
	}

	p := plot.New()
	p.Title.Text = "Cell density"
	p.X.Label.Text = "u"
	p.Y.Label.Text = "v"

	grid := surfaceGrid{s: surface}
	hm := plotter.NewHeatMap(grid, palette.Heat(16, 1))
	hm.Min, hm.Max = definedRange(surface)
	p.Add(hm)

	if len(outline) > 0 {
		pts := make(plotter.XYs, 0, len(outline)+1)
		for _, o := range outline {
			pts = append(pts, plotter.XY{X: o.U, Y: o.V})
		}
		// Close the boundary curve.
		pts = append(pts, pts[0])

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("visualization: outline line: %w", err)
		}
		line.Color = color.RGBA{R: 20, G: 20, B: 20, A: 255}
		line.Width = vg.Points(1.5)
		p.Add(line)
	}

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("visualization: save %s: %w", path, err)
	}
	return nil
}

// definedRange returns the min and max over the defined cells of the
// surface, so undefined cells cannot poison the color scale.
func definedRange(s *interpolation.Surface) (min, max float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min > max {
		// Every cell undefined; give the palette a harmless range.
		return 0, 1
	}
	if min == max {
		return min, min + 1
	}
	return min, max
}
