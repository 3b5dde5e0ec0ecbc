// Package flatmount imports and normalizes the raw coordinate tables
// measured on a dissected, flattened retina: the counting-frame density
// samples and the landmark outline. Its output is a single ordered
// coordinate table, samples first, that the spherical mapper consumes.
package flatmount

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"retinamap/internal/models"
)

// Frame is the fixed-size counting frame used to count cells at each
// sample location. Cell densities are only comparable across samples when
// the frame is square, so construction rejects any other shape.
type Frame struct {
	Height float64
	Width  float64
}

// Table is the combined, normalized coordinate table: all sample rows
// followed by all landmark outline rows, in input order.
type Table struct {
	Rows       []models.TableRow
	NumSamples int
	NumOutline int
}

// Samples returns the sample rows of the table.
func (t *Table) Samples() []models.TableRow { return t.Rows[:t.NumSamples] }

// Outline returns the landmark outline rows of the table.
func (t *Table) Outline() []models.TableRow { return t.Rows[t.NumSamples:] }

// Importer reads, calibrates and normalizes the flatmount inputs.
type Importer struct {
	frame Frame
	cal   Calibration
}

// NewImporter validates the counting frame and calibration before any file
// is touched. A non-square frame or a degenerate calibration fails with a
// ConfigurationError.
func NewImporter(frame Frame, cal Calibration) (*Importer, error) {
	if frame.Height != frame.Width {
		return nil, &models.ConfigurationError{
			Stage:  models.StageImport,
			Reason: fmt.Sprintf("counting frame must be square, got height=%g width=%g", frame.Height, frame.Width),
		}
	}
	if frame.Height <= 0 {
		return nil, &models.ConfigurationError{
			Stage:  models.StageImport,
			Reason: fmt.Sprintf("counting frame size must be positive, got %g", frame.Height),
		}
	}
	if cal == nil {
		cal = Uncalibrated{}
	}
	if c, ok := cal.(Calibrated); ok {
		if c.DeltaX <= 0 || c.DeltaY <= 0 {
			return nil, &models.ConfigurationError{
				Stage:  models.StageImport,
				Reason: fmt.Sprintf("calibration deltas must be positive, got deltaX=%g deltaY=%g", c.DeltaX, c.DeltaY),
			}
		}
	}
	return &Importer{frame: frame, cal: cal}, nil
}

// Import reads the sample table (x, y, count) and the outline table (x, y),
// applies the calibration, and returns the combined normalized table with
// all sample rows preceding all outline rows. The normalized table is also
// written next to the sample input as a durable audit artifact; the
// pipeline never reads it back.
func (im *Importer) Import(samplePath, outlinePath string) (*Table, error) {
	sampleRecs, err := im.readRows(samplePath, 3)
	if err != nil {
		return nil, err
	}
	outline, err := im.readRows(outlinePath, 2)
	if err != nil {
		return nil, err
	}

	samples := make([]models.RawSample, len(sampleRecs))
	for i, rec := range sampleRecs {
		samples[i] = models.RawSample{X: rec[0], Y: rec[1], Count: rec[2]}
	}

	table := &Table{
		Rows:       make([]models.TableRow, 0, len(samples)+len(outline)),
		NumSamples: len(samples),
		NumOutline: len(outline),
	}
	for _, s := range samples {
		x, y := im.cal.Apply(s.X, s.Y)
		table.Rows = append(table.Rows, models.TableRow{X: x, Y: y, Count: s.Count, HasCount: true})
	}
	for _, rec := range outline {
		x, y := im.cal.Apply(rec[0], rec[1])
		table.Rows = append(table.Rows, models.TableRow{X: x, Y: y})
	}

	if err := writeAudit(auditPath(samplePath), table); err != nil {
		return nil, err
	}
	return table, nil
}

// readRows parses a CSV file into rows of exactly wantCols float columns.
// A first line that does not parse as numbers is treated as a header.
func (im *Importer) readRows(path string, wantCols int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.IOError{Stage: models.StageImport, Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, &models.IOError{Stage: models.StageImport, Path: path, Err: err}
	}
	if len(records) == 0 {
		return nil, &models.IOError{Stage: models.StageImport, Path: path, Err: fmt.Errorf("file is empty")}
	}

	rows := make([][]float64, 0, len(records))
	for i, rec := range records {
		vals, err := parseRecord(rec, wantCols)
		if err != nil {
			if i == 0 {
				// Header line.
				continue
			}
			return nil, &models.IOError{Stage: models.StageImport, Path: path, Row: i + 1, Err: err}
		}
		rows = append(rows, vals)
	}
	if len(rows) == 0 {
		return nil, &models.IOError{Stage: models.StageImport, Path: path, Err: fmt.Errorf("no data rows")}
	}
	return rows, nil
}

// parseRecord converts one CSV record into wantCols floats.
func parseRecord(rec []string, wantCols int) ([]float64, error) {
	if len(rec) != wantCols {
		return nil, fmt.Errorf("expected %d columns, got %d", wantCols, len(rec))
	}
	vals := make([]float64, wantCols)
	for i, field := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %v", i+1, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// auditPath derives the audit artifact location from the sample input path.
func auditPath(samplePath string) string {
	ext := filepath.Ext(samplePath)
	return strings.TrimSuffix(samplePath, ext) + "_normalized.csv"
}

// writeAudit persists the combined normalized table. Outline rows leave the
// count column empty so the two row kinds stay distinguishable in the
// artifact.
func writeAudit(path string, table *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return &models.IOError{Stage: models.StageImport, Path: path, Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"x", "y", "count"}); err != nil {
		return &models.IOError{Stage: models.StageImport, Path: path, Err: err}
	}
	for _, row := range table.Rows {
		count := ""
		if row.HasCount {
			count = strconv.FormatFloat(row.Count, 'g', -1, 64)
		}
		rec := []string{
			strconv.FormatFloat(row.X, 'g', -1, 64),
			strconv.FormatFloat(row.Y, 'g', -1, 64),
			count,
		}
		if err := w.Write(rec); err != nil {
			return &models.IOError{Stage: models.StageImport, Path: path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &models.IOError{Stage: models.StageImport, Path: path, Err: err}
	}
	return nil
}
