package demindex

import (
	"math"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/pkg/errors"
)

// newTestRaster returns a 4x4 raster of one degree cells covering (0,0) to
// (4,4) whose values are their index.
func newTestRaster(t *testing.T) *Raster[float32] {
	t.Helper()
	r := NewRaster[float32](NewGeoField(LatLon{}, LatLon{Lat: 4, Lon: 4}), 4, 4)
	values := make([]float32, 16)
	for i := range values {
		values[i] = float32(i)
	}
	assert.NoError(t, r.SetValues(values))
	return r
}

func TestRasterGeometry(t *testing.T) {
	r := newTestRaster(t)
	assert.True(t, r.IsSizeSet())
	assert.Equal(t, 16, r.Len())
	assert.Equal(t, LatLon{Lat: 1, Lon: 1}, r.CellSize())
	assert.Equal(t, GridRect{Max: GridAddress{X: 3, Y: 3}}, r.Bounds())

	for _, tc := range []struct {
		name    string
		p       LatLon
		address GridAddress
		center  LatLon
	}{
		{
			name:    "northwest",
			p:       LatLon{Lat: 3.5, Lon: 0.5},
			address: GridAddress{X: 0, Y: 0},
			center:  LatLon{Lat: 3.5, Lon: 0.5},
		},
		{
			name:    "southeast",
			p:       LatLon{Lat: 0.25, Lon: 3.75},
			address: GridAddress{X: 3, Y: 3},
			center:  LatLon{Lat: 0.5, Lon: 3.5},
		},
		{
			name:    "outside",
			p:       LatLon{Lat: 5.5, Lon: -0.5},
			address: GridAddress{X: -1, Y: -2},
			center:  LatLon{Lat: 5.5, Lon: -0.5},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			address := r.GeoToGrid(tc.p)
			assert.Equal(t, tc.address, address)
			assert.Equal(t, tc.center, r.GridToGeo(address))
		})
	}

	assert.Equal(t, NewGeoField(LatLon{Lat: 2, Lon: 1}, LatLon{Lat: 3, Lon: 2}), r.CellField(GridAddress{X: 1, Y: 1}))

	width, height := r.CellSizeMeters()
	// One degree is roughly 111km near the equator.
	assert.True(t, 110000 < width && width < 112000)
	assert.True(t, 110000 < height && height < 112000)
}

func TestRasterUnset(t *testing.T) {
	r := NewRaster[float32](GeoField{}, 0, 0)
	assert.False(t, r.IsSizeSet())
	assert.Equal(t, GridAddress{}, r.GeoToGrid(LatLon{Lat: 1, Lon: 1}))
	assert.Equal(t, LatLon{}, r.GridToGeo(GridAddress{X: 1, Y: 1}))
	_, err := r.Value(LatLon{})
	assert.True(t, errors.Is(err, ErrSizeUnset))
	assert.True(t, errors.Is(r.SetValues(nil), ErrSizeUnset))
	_, ok := r.Crop(NewGeoField(LatLon{}, LatLon{Lat: 1, Lon: 1}))
	assert.False(t, ok)
}

func TestRasterGetSet(t *testing.T) {
	r := newTestRaster(t)

	value, err := r.Get(GridAddress{X: 1, Y: 2})
	assert.NoError(t, err)
	assert.Equal(t, float32(9), value)

	assert.NoError(t, r.Set(GridAddress{X: 1, Y: 2}, 100))
	value, err = r.Get(GridAddress{X: 1, Y: 2})
	assert.NoError(t, err)
	assert.Equal(t, float32(100), value)

	_, err = r.Get(GridAddress{X: 4, Y: 0})
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.True(t, errors.Is(r.Set(GridAddress{X: 0, Y: -1}, 1), ErrOutOfBounds))

	assert.Error(t, r.SetValues(make([]float32, 15)))
}

func TestRasterValue(t *testing.T) {
	r := newTestRaster(t)
	for _, tc := range []struct {
		name     string
		p        LatLon
		expected float32
	}{
		{name: "northwest_corner", p: LatLon{Lat: 4, Lon: 0}, expected: 0},
		{name: "inside", p: LatLon{Lat: 2.5, Lon: 1.5}, expected: 5},
		{name: "east_edge", p: LatLon{Lat: 3.5, Lon: 4}, expected: 3},
		{name: "south_edge", p: LatLon{Lat: 0, Lon: 0.5}, expected: 12},
		{name: "southeast_corner", p: LatLon{Lat: 0, Lon: 4}, expected: 15},
	} {
		t.Run(tc.name, func(t *testing.T) {
			value, err := r.Value(tc.p)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, value)
		})
	}

	_, err := r.Value(LatLon{Lat: 4.5, Lon: 1})
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestRasterCrop(t *testing.T) {
	r := newTestRaster(t)

	cropped, ok := r.Crop(NewGeoField(LatLon{Lat: 0.5, Lon: 0.5}, LatLon{Lat: 2.5, Lon: 2.5}))
	assert.True(t, ok)
	assert.Equal(t, NewGeoField(LatLon{}, LatLon{Lat: 3, Lon: 3}), cropped.Field())
	cols, rows := cropped.Size()
	assert.Equal(t, 3, cols)
	assert.Equal(t, 3, rows)
	assert.Equal(t, []float32{4, 5, 6, 8, 9, 10, 12, 13, 14}, cropped.Values())

	// A field sticking out of the raster is clipped.
	cropped, ok = r.Crop(NewGeoField(LatLon{Lat: 3.5, Lon: 3.5}, LatLon{Lat: 10, Lon: 10}))
	assert.True(t, ok)
	assert.Equal(t, NewGeoField(LatLon{Lat: 3, Lon: 3}, LatLon{Lat: 4, Lon: 4}), cropped.Field())
	assert.Equal(t, []float32{3}, cropped.Values())

	_, ok = r.Crop(NewGeoField(LatLon{Lat: 10, Lon: 10}, LatLon{Lat: 11, Lon: 11}))
	assert.False(t, ok)
}

func TestRasterClone(t *testing.T) {
	r := newTestRaster(t)
	clone := r.Clone()
	assert.Equal(t, r.Values(), clone.Values())
	assert.NoError(t, clone.Set(GridAddress{}, 100))
	value, err := r.Get(GridAddress{})
	assert.NoError(t, err)
	assert.Equal(t, float32(0), value)
}

func TestRasterFill(t *testing.T) {
	r := NewRaster[float32](NewGeoField(LatLon{}, LatLon{Lat: 1, Lon: 1}), 2, 2)
	r.Fill(float32(math.NaN()))
	for _, value := range r.Values() {
		assert.True(t, math.IsNaN(float64(value)))
	}
}

func TestRasterAll(t *testing.T) {
	r := NewRaster[int](NewGeoField(LatLon{}, LatLon{Lat: 2, Lon: 3}), 3, 2)
	assert.NoError(t, r.SetValues([]int{0, 1, 2, 3, 4, 5}))

	var addresses []GridAddress
	var values []int
	for address, value := range r.All() {
		addresses = append(addresses, address)
		values = append(values, value)
	}
	assert.Equal(t, []GridAddress{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0},
		{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1},
	}, addresses)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, values)

	for address := range r.All() {
		assert.Equal(t, GridAddress{}, address)
		break
	}
}

func TestRasterWriteCSV(t *testing.T) {
	r := NewRaster[float32](NewGeoField(LatLon{}, LatLon{Lat: 1, Lon: 2}), 2, 1)
	assert.NoError(t, r.SetValues([]float32{1.5, float32(math.NaN())}))

	var sb strings.Builder
	assert.NoError(t, r.WriteCSV(&sb))
	assert.Equal(t, ""+
		"Longitude,Latitude,Value\n"+
		"0.5,0.5,1.5\n"+
		"1.5,0.5,NaN\n",
		sb.String())
}

func TestNewRasterWithCellSize(t *testing.T) {
	field := NewGeoField(LatLon{Lat: 35, Lon: 139}, LatLon{Lat: 35.01, Lon: 139.01})
	r, err := NewRasterWithCellSize[float32](field, 100)
	assert.NoError(t, err)
	cols, rows := r.Size()
	// 0.01 degrees is about 910m east and 1110m north at this latitude.
	assert.Equal(t, 10, cols)
	assert.Equal(t, 12, rows)
	assert.Equal(t, field.LowerLeft, r.Field().LowerLeft)
	width, height := r.CellSizeMeters()
	assert.True(t, math.Abs(width-100) < 1e-6)
	assert.True(t, math.Abs(height-100) < 1e-6)

	_, err = NewRasterWithCellSize[float32](field, 0)
	assert.Error(t, err)
	_, err = NewRasterWithCellSize[float32](GeoField{}, 100)
	assert.Error(t, err)
}
