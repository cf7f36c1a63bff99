package demindex_test

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-demindex"
)

func newRaster[V any](t *testing.T, cols, rows int, values ...V) *demindex.Raster[V] {
	t.Helper()
	field := demindex.NewGeoField(demindex.LatLon{}, demindex.LatLon{Lat: float64(rows), Lon: float64(cols)})
	r := demindex.NewRaster[V](field, cols, rows)
	assert.NoError(t, r.SetValues(values))
	return r
}

func TestExtrema(t *testing.T) {
	nan := float32(math.NaN())
	lo, hi, ok := demindex.Extrema(newRaster(t, 2, 2, nan, 3, -1, nan))
	assert.True(t, ok)
	assert.Equal(t, float32(-1), lo)
	assert.Equal(t, float32(3), hi)

	_, _, ok = demindex.Extrema(newRaster(t, 1, 1, nan))
	assert.False(t, ok)

	loInt, hiInt, ok := demindex.Extrema(newRaster(t, 3, 1, 5, 7, 6))
	assert.True(t, ok)
	assert.Equal(t, 5, loInt)
	assert.Equal(t, 7, hiInt)
}

func TestMask(t *testing.T) {
	r := newRaster(t, 2, 2, float32(10), 20, 30, float32(math.NaN()))
	mask := demindex.Mask(r, func(value float32) bool {
		return value >= 20
	})
	assert.Equal(t, r.Field(), mask.Field())
	assert.Equal(t, []float32{0, 1, 1, 0}, mask.Values())
}

func TestArithmetic(t *testing.T) {
	a := newRaster(t, 2, 1, 1, 2)
	b := newRaster(t, 2, 1, 10, 20)

	sum, err := demindex.Add(a, b)
	assert.NoError(t, err)
	assert.Equal(t, []int{11, 22}, sum.Values())

	difference, err := demindex.Sub(b, a)
	assert.NoError(t, err)
	assert.Equal(t, []int{9, 18}, difference.Values())

	product, err := demindex.Mul(a, b)
	assert.NoError(t, err)
	assert.Equal(t, []int{10, 40}, product.Values())

	_, err = demindex.Add(a, newRaster(t, 1, 2, 1, 2))
	assert.Error(t, err)
}

func TestInterpolate(t *testing.T) {
	// Cell centers are at (1.5, 0.5), (1.5, 1.5), (0.5, 0.5), and (0.5, 1.5).
	r := newRaster(t, 2, 2, 0.0, 1, 2, 3)
	for _, tc := range []struct {
		name     string
		p        demindex.LatLon
		expected float64
	}{
		{name: "center", p: demindex.LatLon{Lat: 1, Lon: 1}, expected: 1.5},
		{name: "northwest_cell", p: demindex.LatLon{Lat: 1.5, Lon: 0.5}, expected: 0},
		{name: "southeast_cell", p: demindex.LatLon{Lat: 0.5, Lon: 1.5}, expected: 3},
		{name: "northwest_corner", p: demindex.LatLon{Lat: 2, Lon: 0}, expected: 0},
		{name: "southeast_corner", p: demindex.LatLon{Lat: 0, Lon: 2}, expected: 3},
		{name: "north_edge", p: demindex.LatLon{Lat: 2, Lon: 1}, expected: 0.5},
		{name: "west_edge", p: demindex.LatLon{Lat: 1, Lon: 0}, expected: 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := demindex.Interpolate(r, tc.p)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}

	_, err := demindex.Interpolate(r, demindex.LatLon{Lat: 3, Lon: 1})
	assert.Error(t, err)
}
