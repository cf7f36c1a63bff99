package demindex

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"math"
	"strconv"

	"github.com/paulmach/orb/geo"
	"github.com/pkg/errors"
)

// A Raster is a dense grid of values covering a GeoField. Column 0 is the
// western edge and row 0 is the northern edge, so X increases eastward and Y
// increases southward. Values are stored row by row.
type Raster[V any] struct {
	field  GeoField
	cols   int
	rows   int
	values []V
}

// NewRaster returns a new Raster covering field with cols columns and rows
// rows. All values are initially the zero value of V.
func NewRaster[V any](field GeoField, cols, rows int) *Raster[V] {
	r := &Raster[V]{
		field: field,
		cols:  max(cols, 0),
		rows:  max(rows, 0),
	}
	r.values = make([]V, r.cols*r.rows)
	return r
}

// NewRasterWithCellSize returns a new Raster with cells of approximately
// cellSize meters square. The lower left corner of field is kept and the upper
// right corner is moved outward so that field holds a whole number of cells.
func NewRasterWithCellSize[V any](field GeoField, cellSize float64) (*Raster[V], error) {
	if cellSize <= 0 || math.IsNaN(cellSize) {
		return nil, errors.Errorf("invalid cell size %f", cellSize)
	}
	if field.IsZeroArea() {
		return nil, errors.Errorf("%s: zero area", field)
	}
	east, north := metersPerDegree(field.LowerLeft)
	size := field.Size()
	cols := max(int(math.Ceil(size.Lon*east/cellSize-1e-9)), 1)
	rows := max(int(math.Ceil(size.Lat*north/cellSize-1e-9)), 1)
	field.UpperRight = LatLon{
		Lat: field.LowerLeft.Lat + cellSize*float64(rows)/north,
		Lon: field.LowerLeft.Lon + cellSize*float64(cols)/east,
	}
	return NewRaster[V](field, cols, rows), nil
}

// metersPerDegree returns the length of one degree of longitude and one degree
// of latitude at p.
func metersPerDegree(p LatLon) (east, north float64) {
	origin := p.Point()
	east = geo.DistanceHaversine(origin, LatLon{Lat: p.Lat, Lon: p.Lon + 1}.Point())
	north = geo.DistanceHaversine(origin, LatLon{Lat: p.Lat + 1, Lon: p.Lon}.Point())
	return east, north
}

// Field returns the area covered by r.
func (r *Raster[V]) Field() GeoField {
	return r.field
}

// Size returns the number of columns and rows in r.
func (r *Raster[V]) Size() (int, int) {
	return r.cols, r.rows
}

// IsSizeSet returns whether r has a two dimensional extent.
func (r *Raster[V]) IsSizeSet() bool {
	return r.cols > 0 && r.rows > 0
}

// Len returns the number of cells in r.
func (r *Raster[V]) Len() int {
	return len(r.values)
}

// CellSize returns the size of a single cell in degrees.
func (r *Raster[V]) CellSize() LatLon {
	if !r.IsSizeSet() {
		return LatLon{}
	}
	size := r.field.Size()
	return LatLon{Lat: size.Lat / float64(r.rows), Lon: size.Lon / float64(r.cols)}
}

// CellSizeMeters returns the approximate width and height of a single cell in
// meters, measured at the lower left corner.
func (r *Raster[V]) CellSizeMeters() (float64, float64) {
	cellSize := r.CellSize()
	east, north := metersPerDegree(r.field.LowerLeft)
	return cellSize.Lon * east, cellSize.Lat * north
}

// GeoToGrid returns the address of the cell containing p. The result may lie
// outside r. If r has no size then the zero address is returned.
func (r *Raster[V]) GeoToGrid(p LatLon) GridAddress {
	if !r.IsSizeSet() {
		return GridAddress{}
	}
	size := r.field.Size()
	return GridAddress{
		X: int(math.Floor(float64(r.cols) * (p.Lon - r.field.LowerLeft.Lon) / size.Lon)),
		Y: int(math.Floor(float64(r.rows) * (r.field.UpperRight.Lat - p.Lat) / size.Lat)),
	}
}

// GridToGeo returns the center of the cell at a. a may lie outside r. If r
// has no size then the zero position is returned.
func (r *Raster[V]) GridToGeo(a GridAddress) LatLon {
	if !r.IsSizeSet() {
		return LatLon{}
	}
	cellSize := r.CellSize()
	return LatLon{
		Lat: r.field.UpperRight.Lat - cellSize.Lat*(float64(a.Y)+0.5),
		Lon: r.field.LowerLeft.Lon + cellSize.Lon*(float64(a.X)+0.5),
	}
}

// CellField returns the area covered by the cell at a.
func (r *Raster[V]) CellField(a GridAddress) GeoField {
	if !r.IsSizeSet() {
		return GeoField{}
	}
	cellSize := r.CellSize()
	center := r.GridToGeo(a)
	half := LatLon{Lat: cellSize.Lat / 2, Lon: cellSize.Lon / 2}
	return GeoField{LowerLeft: center.Sub(half), UpperRight: center.Add(half)}
}

// Bounds returns the addresses inside r.
func (r *Raster[V]) Bounds() GridRect {
	return GridRect{Max: GridAddress{X: r.cols - 1, Y: r.rows - 1}}
}

func (r *Raster[V]) InBounds(a GridAddress) bool {
	return 0 <= a.X && a.X < r.cols && 0 <= a.Y && a.Y < r.rows
}

// Get returns the value at a.
func (r *Raster[V]) Get(a GridAddress) (V, error) {
	if !r.InBounds(a) {
		var zero V
		return zero, errors.Wrapf(ErrOutOfBounds, "address %s", a)
	}
	return r.values[a.Y*r.cols+a.X], nil
}

// Set sets the value at a.
func (r *Raster[V]) Set(a GridAddress, value V) error {
	if !r.InBounds(a) {
		return errors.Wrapf(ErrOutOfBounds, "address %s", a)
	}
	r.values[a.Y*r.cols+a.X] = value
	return nil
}

// Value returns the value of the cell containing p. Positions on the eastern
// or southern edge of r belong to the last column or row.
func (r *Raster[V]) Value(p LatLon) (V, error) {
	var zero V
	if !r.IsSizeSet() {
		return zero, ErrSizeUnset
	}
	if !r.field.Contains(p) {
		return zero, errors.Wrapf(ErrOutOfBounds, "position %s", p)
	}
	a := r.GeoToGrid(p)
	a.X = min(max(a.X, 0), r.cols-1)
	a.Y = min(max(a.Y, 0), r.rows-1)
	return r.values[a.Y*r.cols+a.X], nil
}

// SetValues replaces r's values with values, which must have exactly one
// value per cell in row order. r takes ownership of values.
func (r *Raster[V]) SetValues(values []V) error {
	if !r.IsSizeSet() {
		return ErrSizeUnset
	}
	if len(values) != r.cols*r.rows {
		return errors.Errorf("got %d values, expected %dx%d", len(values), r.cols, r.rows)
	}
	r.values = values
	return nil
}

// Values returns r's values in row order. The slice is shared with r.
func (r *Raster[V]) Values() []V {
	return r.values
}

// Fill sets every cell in r to value.
func (r *Raster[V]) Fill(value V) {
	for i := range r.values {
		r.values[i] = value
	}
}

// Crop returns a new Raster containing the cells of r that intersect field.
// The corners of the result lie on the cell boundaries of r. It returns false
// if field does not overlap r.
func (r *Raster[V]) Crop(field GeoField) (*Raster[V], bool) {
	if !r.IsSizeSet() || field.IsZeroArea() {
		return nil, false
	}
	rect := NewGridRect(r.GeoToGrid(field.UpperLeft()), r.GeoToGrid(field.LowerRight())).And(r.Bounds())
	if rect.IsEmpty() {
		return nil, false
	}

	one := GridAddress{X: 1, Y: 1}
	upperLeft := r.GridToGeo(rect.Min).Median(r.GridToGeo(rect.Min.Sub(one)))
	lowerRight := r.GridToGeo(rect.Max).Median(r.GridToGeo(rect.Max.Add(one)))
	cropped := NewRaster[V](NewGeoField(upperLeft, lowerRight), rect.Width(), rect.Height())
	for y := range cropped.rows {
		src := (rect.Min.Y+y)*r.cols + rect.Min.X
		copy(cropped.values[y*cropped.cols:(y+1)*cropped.cols], r.values[src:src+cropped.cols])
	}
	return cropped, true
}

// Clone returns a deep copy of r.
func (r *Raster[V]) Clone() *Raster[V] {
	clone := &Raster[V]{
		field:  r.field,
		cols:   r.cols,
		rows:   r.rows,
		values: make([]V, len(r.values)),
	}
	copy(clone.values, r.values)
	return clone
}

// All iterates over every cell in r in row order.
func (r *Raster[V]) All() iter.Seq2[GridAddress, V] {
	return func(yield func(GridAddress, V) bool) {
		for i, value := range r.values {
			if !yield(GridAddress{X: i % r.cols, Y: i / r.cols}, value) {
				return
			}
		}
	}
}

// WriteCSV writes the center and value of every cell in r to w.
func (r *Raster[V]) WriteCSV(w io.Writer) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"Longitude", "Latitude", "Value"}); err != nil {
		return err
	}
	for a, value := range r.All() {
		p := r.GridToGeo(a)
		if err := csvWriter.Write([]string{
			strconv.FormatFloat(p.Lon, 'f', -1, 64),
			strconv.FormatFloat(p.Lat, 'f', -1, 64),
			fmt.Sprint(value),
		}); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func (r *Raster[V]) String() string {
	return fmt.Sprintf("%s,%dx%d", r.field, r.cols, r.rows)
}
