package sphere

import (
	"retinamap/internal/models"
	"retinamap/pkg/flatmount"
)

// Mapper sends a combined coordinate table through the reconstruction
// oracle. It owns no geometry: ordering, count and the density-presence
// rule are preserved exactly, and any unplaceable point aborts the whole
// mapping so the density estimate can never carry a silent coverage gap.
type Mapper struct {
	oracle Oracle
}

// NewMapper creates a mapper backed by the given oracle.
func NewMapper(oracle Oracle) *Mapper {
	return &Mapper{oracle: oracle}
}

// MapTable places every row of the table on the hemisphere, in input
// order. The first unplaceable point fails with a MappingError naming the
// offending row; no partial result is returned.
func (m *Mapper) MapTable(table *flatmount.Table) ([]models.SphericalPoint, error) {
	points := make([]models.SphericalPoint, len(table.Rows))
	for i, row := range table.Rows {
		lat, lon, err := m.oracle.Place(row.X, row.Y)
		if err != nil {
			return nil, &models.MappingError{
				Stage: models.StageMap,
				Row:   i,
				X:     row.X,
				Y:     row.Y,
				Err:   err,
			}
		}
		points[i] = models.SphericalPoint{
			Lat:      lat,
			Lon:      lon,
			Count:    row.Count,
			HasCount: row.HasCount,
		}
	}
	return points, nil
}
