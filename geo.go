// Package demindex indexes directories of gridded elevation tiles and answers
// point and area queries over them without loading every tile into memory.
package demindex

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// A LatLon is a geographic position in degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// A GridAddress is an integer grid coordinate. X increases eastward. Within a
// Raster, Y increases southward; within a Registry, Y increases northward.
type GridAddress struct {
	X int
	Y int
}

// A GridRect is an inclusive rectangle of grid addresses.
type GridRect struct {
	Min GridAddress
	Max GridAddress
}

// A GeoField is a geographic rectangle.
type GeoField struct {
	LowerLeft  LatLon
	UpperRight LatLon
}

func (p LatLon) Add(q LatLon) LatLon {
	return LatLon{Lat: p.Lat + q.Lat, Lon: p.Lon + q.Lon}
}

func (p LatLon) Sub(q LatLon) LatLon {
	return LatLon{Lat: p.Lat - q.Lat, Lon: p.Lon - q.Lon}
}

// Median returns the point halfway between p and q.
func (p LatLon) Median(q LatLon) LatLon {
	return LatLon{Lat: (p.Lat + q.Lat) / 2, Lon: (p.Lon + q.Lon) / 2}
}

// Equal returns whether p and q are equal when rounded to digits decimal
// places.
func (p LatLon) Equal(q LatLon, digits int) bool {
	scale := math.Pow10(digits)
	return math.Round(p.Lat*scale) == math.Round(q.Lat*scale) &&
		math.Round(p.Lon*scale) == math.Round(q.Lon*scale)
}

// Point returns p as an orb.Point.
func (p LatLon) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func (p LatLon) String() string {
	return fmt.Sprintf("%.8f,%.8f", p.Lat, p.Lon)
}

func (a GridAddress) Add(b GridAddress) GridAddress {
	return GridAddress{X: a.X + b.X, Y: a.Y + b.Y}
}

func (a GridAddress) Sub(b GridAddress) GridAddress {
	return GridAddress{X: a.X - b.X, Y: a.Y - b.Y}
}

// Length returns the Euclidean distance of a from the origin.
func (a GridAddress) Length() float64 {
	return math.Hypot(float64(a.X), float64(a.Y))
}

// Compare orders addresses by their distance from the origin. It is suitable
// for use with slices.SortFunc.
func (a GridAddress) Compare(b GridAddress) int {
	switch la, lb := a.Length(), b.Length(); {
	case la < lb:
		return -1
	case la > lb:
		return 1
	default:
		return 0
	}
}

func (a GridAddress) String() string {
	return fmt.Sprintf("%d,%d", a.X, a.Y)
}

// NewGridRect returns the smallest GridRect containing a and b.
func NewGridRect(a, b GridAddress) GridRect {
	return GridRect{
		Min: GridAddress{X: min(a.X, b.X), Y: min(a.Y, b.Y)},
		Max: GridAddress{X: max(a.X, b.X), Y: max(a.Y, b.Y)},
	}
}

// Width returns the number of columns in r.
func (r GridRect) Width() int {
	return max(r.Max.X-r.Min.X+1, 0)
}

// Height returns the number of rows in r.
func (r GridRect) Height() int {
	return max(r.Max.Y-r.Min.Y+1, 0)
}

// IsEmpty returns whether r contains no addresses.
func (r GridRect) IsEmpty() bool {
	return r.Max.X < r.Min.X || r.Max.Y < r.Min.Y
}

func (r GridRect) Contains(a GridAddress) bool {
	return r.Min.X <= a.X && a.X <= r.Max.X && r.Min.Y <= a.Y && a.Y <= r.Max.Y
}

// And returns the intersection of r and s. The result is empty if they do not
// overlap.
func (r GridRect) And(s GridRect) GridRect {
	return GridRect{
		Min: GridAddress{X: max(r.Min.X, s.Min.X), Y: max(r.Min.Y, s.Min.Y)},
		Max: GridAddress{X: min(r.Max.X, s.Max.X), Y: min(r.Max.Y, s.Max.Y)},
	}
}

func (r GridRect) Translate(delta GridAddress) GridRect {
	return GridRect{Min: r.Min.Add(delta), Max: r.Max.Add(delta)}
}

// Addresses returns every address in r, column by column.
func (r GridRect) Addresses() []GridAddress {
	if r.IsEmpty() {
		return nil
	}
	addresses := make([]GridAddress, 0, r.Width()*r.Height())
	for x := r.Min.X; x <= r.Max.X; x++ {
		for y := r.Min.Y; y <= r.Max.Y; y++ {
			addresses = append(addresses, GridAddress{X: x, Y: y})
		}
	}
	return addresses
}

// NewGeoField returns the GeoField with corners a and b, in any order.
func NewGeoField(a, b LatLon) GeoField {
	return GeoField{
		LowerLeft:  LatLon{Lat: min(a.Lat, b.Lat), Lon: min(a.Lon, b.Lon)},
		UpperRight: LatLon{Lat: max(a.Lat, b.Lat), Lon: max(a.Lon, b.Lon)},
	}
}

// GeoFieldFromBound returns the GeoField equivalent to bound.
func GeoFieldFromBound(bound orb.Bound) GeoField {
	return NewGeoField(
		LatLon{Lat: bound.Min.Lat(), Lon: bound.Min.Lon()},
		LatLon{Lat: bound.Max.Lat(), Lon: bound.Max.Lon()},
	)
}

// Bound returns f as an orb.Bound.
func (f GeoField) Bound() orb.Bound {
	return orb.Bound{Min: f.LowerLeft.Point(), Max: f.UpperRight.Point()}
}

// Size returns the height and width of f in degrees.
func (f GeoField) Size() LatLon {
	return f.UpperRight.Sub(f.LowerLeft)
}

func (f GeoField) Center() LatLon {
	return f.LowerLeft.Median(f.UpperRight)
}

func (f GeoField) UpperLeft() LatLon {
	return LatLon{Lat: f.UpperRight.Lat, Lon: f.LowerLeft.Lon}
}

func (f GeoField) LowerRight() LatLon {
	return LatLon{Lat: f.LowerLeft.Lat, Lon: f.UpperRight.Lon}
}

// IsZeroArea returns whether f has no extent on either axis.
func (f GeoField) IsZeroArea() bool {
	size := f.Size()
	return size.Lat == 0 || size.Lon == 0
}

// Contains returns whether p is inside f, edges included.
func (f GeoField) Contains(p LatLon) bool {
	return f.Bound().Contains(p.Point())
}

// And returns the intersection of f and g. The result has zero area if they
// do not overlap.
func (f GeoField) And(g GeoField) GeoField {
	if !f.Bound().Intersects(g.Bound()) {
		return GeoField{}
	}
	return GeoField{
		LowerLeft: LatLon{
			Lat: max(f.LowerLeft.Lat, g.LowerLeft.Lat),
			Lon: max(f.LowerLeft.Lon, g.LowerLeft.Lon),
		},
		UpperRight: LatLon{
			Lat: min(f.UpperRight.Lat, g.UpperRight.Lat),
			Lon: min(f.UpperRight.Lon, g.UpperRight.Lon),
		},
	}
}

func (f GeoField) Translate(delta LatLon) GeoField {
	return GeoField{LowerLeft: f.LowerLeft.Add(delta), UpperRight: f.UpperRight.Add(delta)}
}

// Equal returns whether f and g have the same corners to digits decimal
// places.
func (f GeoField) Equal(g GeoField, digits int) bool {
	return f.LowerLeft.Equal(g.LowerLeft, digits) && f.UpperRight.Equal(g.UpperRight, digits)
}

func (f GeoField) String() string {
	return fmt.Sprintf("%s,%s", f.LowerLeft, f.UpperRight)
}
