package demindex

import (
	"cmp"
	"math"

	"github.com/pkg/errors"
)

// A Number is an element type that supports arithmetic.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Extrema returns the smallest and largest values in r, ignoring NaNs. ok is
// false if r has no comparable values.
func Extrema[V cmp.Ordered](r *Raster[V]) (lo, hi V, ok bool) {
	for _, value := range r.values {
		if value != value { // NaN.
			continue
		}
		if !ok {
			lo, hi, ok = value, value, true
			continue
		}
		lo = min(lo, value)
		hi = max(hi, value)
	}
	return lo, hi, ok
}

// Mask returns a Raster with the same geometry as r holding 1 where pred is
// true and 0 elsewhere.
func Mask[V any](r *Raster[V], pred func(V) bool) *Raster[float32] {
	mask := NewRaster[float32](r.field, r.cols, r.rows)
	for i, value := range r.values {
		if pred(value) {
			mask.values[i] = 1
		}
	}
	return mask
}

// Add returns the cell-wise sum of a and b.
func Add[V Number](a, b *Raster[V]) (*Raster[V], error) {
	return combine(a, b, func(x, y V) V { return x + y })
}

// Sub returns the cell-wise difference of a and b.
func Sub[V Number](a, b *Raster[V]) (*Raster[V], error) {
	return combine(a, b, func(x, y V) V { return x - y })
}

// Mul returns the cell-wise product of a and b.
func Mul[V Number](a, b *Raster[V]) (*Raster[V], error) {
	return combine(a, b, func(x, y V) V { return x * y })
}

func combine[V Number](a, b *Raster[V], f func(V, V) V) (*Raster[V], error) {
	if a.cols != b.cols || a.rows != b.rows || !a.field.Equal(b.field, 8) {
		return nil, errors.Errorf("geometry mismatch: %s and %s", a, b)
	}
	result := NewRaster[V](a.field, a.cols, a.rows)
	for i := range result.values {
		result.values[i] = f(a.values[i], b.values[i])
	}
	return result, nil
}

// Interpolate returns the value at p bilinearly interpolated between the
// centers of the four nearest cells of r.
func Interpolate[V Number](r *Raster[V], p LatLon) (float64, error) {
	if !r.IsSizeSet() {
		return math.NaN(), ErrSizeUnset
	}
	if !r.field.Contains(p) {
		return math.NaN(), errors.Wrapf(ErrOutOfBounds, "position %s", p)
	}
	size := r.field.Size()
	fx := float64(r.cols)*(p.Lon-r.field.LowerLeft.Lon)/size.Lon - 0.5
	fy := float64(r.rows)*(r.field.UpperRight.Lat-p.Lat)/size.Lat - 0.5
	x0, dx := interpolationCell(fx, r.cols)
	y0, dy := interpolationCell(fy, r.rows)
	x1 := min(x0+1, r.cols-1)
	y1 := min(y0+1, r.rows-1)
	sample := func(x, y int) float64 {
		return float64(r.values[y*r.cols+x])
	}
	return 0 +
		sample(x0, y0)*(1-dx)*(1-dy) +
		sample(x1, y0)*dx*(1-dy) +
		sample(x0, y1)*(1-dx)*dy +
		sample(x1, y1)*dx*dy, nil
}

// interpolationCell returns the lower cell index and the fractional distance
// towards the next cell for the fractional cell position f.
func interpolationCell(f float64, n int) (int, float64) {
	if n < 2 || f <= 0 {
		return 0, 0
	}
	if f >= float64(n-1) {
		return n - 2, 1
	}
	i := int(math.Floor(f))
	return i, f - float64(i)
}
