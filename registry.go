package demindex

import (
	"cmp"
	"math"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/hauke96/sigolo/v2"
	"golang.org/x/sync/errgroup"
)

const (
	// offsetTolerance is the largest origin offset, in degrees, that is
	// treated as zero. It is about 30cm on the ground.
	offsetTolerance = 3e-6

	// tileSizeDigits is the number of decimal places to which tile sizes
	// must agree.
	tileSizeDigits = 8
)

// A Registry indexes tiles that share one geometry: the same size in degrees,
// the same number of cells, and the same lattice origin. Tiles are keyed by
// the grid address of their center. Address Y increases northward.
//
// A Registry is built by calls to Add and AddTiles and is then read-only.
// Adding tiles concurrently with any other method is not allowed. All other
// methods are safe for concurrent use.
type Registry struct {
	offset      LatLon
	tileSize    LatLon
	cols        int
	rows        int
	cellSize    LatLon
	tiles       map[GridAddress]*Tile
	concurrency int
}

// A MapStats records how many tiles were found for a stitched map and how
// many of them contributed values.
type MapStats struct {
	Requested   int
	Contributed int
}

// NewRegistry returns a new empty Registry.
func NewRegistry() *Registry {
	return newRegistry(runtime.GOMAXPROCS(0))
}

func newRegistry(concurrency int) *Registry {
	return &Registry{
		tiles:       make(map[GridAddress]*Tile),
		concurrency: max(concurrency, 1),
	}
}

// Len returns the number of tiles in r.
func (r *Registry) Len() int {
	return len(r.tiles)
}

// Offset returns the origin offset of r's lattice.
func (r *Registry) Offset() LatLon {
	return r.offset
}

// TileSize returns the size of every tile in r in degrees.
func (r *Registry) TileSize() LatLon {
	return r.tileSize
}

// MeshDimensions returns the number of columns and rows in every tile in r.
func (r *Registry) MeshDimensions() (int, int) {
	return r.cols, r.rows
}

// CellSize returns the size of a single cell in degrees.
func (r *Registry) CellSize() LatLon {
	return r.cellSize
}

// CellArea returns the area of a single cell in square degrees. Registries
// with smaller cell areas have finer resolution.
func (r *Registry) CellArea() float64 {
	return r.cellSize.Lat * r.cellSize.Lon
}

// Add adds t to r if t's geometry matches r's, and returns whether it did.
// The first tile added to an empty Registry defines its geometry. A tile whose
// address is already occupied is accepted but discarded.
func (r *Registry) Add(t *Tile) bool {
	metadata := t.Metadata()
	if !metadata.Available() || metadata.Cols <= 0 || metadata.Rows <= 0 {
		return false
	}
	if len(r.tiles) == 0 {
		r.init(metadata)
	}
	if !r.matches(metadata) {
		return false
	}
	address := r.Address(metadata.Field.Center())
	if existing, ok := r.tiles[address]; ok {
		sigolo.Debugf("Discarding tile %s, address %s is already occupied by %s", t.Path(), address, existing.Path())
		return true
	}
	r.tiles[address] = t
	sigolo.Tracef("Added tile %s at address %s", t.Path(), address)
	return true
}

// AddTiles adds every matching tile in tiles to r and returns the tiles that
// did not match, in their original order.
func (r *Registry) AddTiles(tiles []*Tile) []*Tile {
	var remaining []*Tile
	for _, t := range tiles {
		if !r.Add(t) {
			remaining = append(remaining, t)
		}
	}
	return remaining
}

func (r *Registry) init(metadata TileMetadata) {
	r.tileSize = metadata.Field.Size()
	r.cols = metadata.Cols
	r.rows = metadata.Rows
	r.cellSize = LatLon{
		Lat: r.tileSize.Lat / float64(r.rows),
		Lon: r.tileSize.Lon / float64(r.cols),
	}
	r.offset = originOffset(metadata.Field)
	sigolo.Debugf("New registry: tile size %s, mesh %dx%d, offset %s", r.tileSize, r.cols, r.rows, r.offset)
}

func (r *Registry) matches(metadata TileMetadata) bool {
	if metadata.Cols != r.cols || metadata.Rows != r.rows {
		return false
	}
	if !metadata.Field.Size().Equal(r.tileSize, tileSizeDigits) {
		return false
	}
	offset := originOffset(metadata.Field)
	return math.Abs(offset.Lat-r.offset.Lat) <= offsetTolerance &&
		math.Abs(offset.Lon-r.offset.Lon) <= offsetTolerance
}

// originOffset returns the offset of the lattice that field's tile belongs to,
// measured from its upper left corner.
func originOffset(field GeoField) LatLon {
	corner := field.UpperLeft()
	size := field.Size()
	return LatLon{
		Lat: axisOffset(corner.Lat, size.Lat),
		Lon: axisOffset(corner.Lon, size.Lon),
	}
}

// axisOffset returns the remainder of value divided by size, in the range
// (-size, 0]. Remainders within offsetTolerance of a multiple of size are
// zero.
func axisOffset(value, size float64) float64 {
	remainder := math.Mod(value, size)
	if nearlyZero(remainder) {
		return 0
	}
	if value > 0 {
		remainder -= size
	}
	if nearlyZero(remainder) || nearlyZero(remainder+size) {
		return 0
	}
	return remainder
}

func nearlyZero(value float64) bool {
	return math.Abs(value) < offsetTolerance
}

// Address returns the address of the tile that would contain p.
func (r *Registry) Address(p LatLon) GridAddress {
	q := p.Sub(r.offset)
	return GridAddress{
		X: int(math.Floor(q.Lon / r.tileSize.Lon)),
		Y: int(math.Floor(q.Lat / r.tileSize.Lat)),
	}
}

// AddressField returns the area covered by the tile at a.
func (r *Registry) AddressField(a GridAddress) GeoField {
	lowerLeft := LatLon{
		Lat: float64(a.Y)*r.tileSize.Lat + r.offset.Lat,
		Lon: float64(a.X)*r.tileSize.Lon + r.offset.Lon,
	}
	return GeoField{LowerLeft: lowerLeft, UpperRight: lowerLeft.Add(r.tileSize)}
}

// addressRange returns the addresses spanned by the corners of field.
func (r *Registry) addressRange(field GeoField) GridRect {
	return NewGridRect(r.Address(field.LowerLeft), r.Address(field.UpperRight))
}

// Tile returns the tile at a.
func (r *Registry) Tile(a GridAddress) (*Tile, bool) {
	t, ok := r.tiles[a]
	return t, ok
}

// Addresses returns the addresses of every tile in r, nearest the origin
// first.
func (r *Registry) Addresses() []GridAddress {
	addresses := make([]GridAddress, 0, len(r.tiles))
	for address := range r.tiles {
		addresses = append(addresses, address)
	}
	slices.SortFunc(addresses, func(a, b GridAddress) int {
		return cmp.Or(a.Compare(b), cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y))
	})
	return addresses
}

// Tiles returns every tile in r in address order.
func (r *Registry) Tiles() []*Tile {
	addresses := r.Addresses()
	tiles := make([]*Tile, len(addresses))
	for i, address := range addresses {
		tiles[i] = r.tiles[address]
	}
	return tiles
}

// Covers returns whether r has a tile for p.
func (r *Registry) Covers(p LatLon) bool {
	if len(r.tiles) == 0 {
		return false
	}
	_, ok := r.tiles[r.Address(p)]
	return ok
}

// Coverage returns the fraction of the addresses spanned by field that have a
// tile.
func (r *Registry) Coverage(field GeoField) float64 {
	if len(r.tiles) == 0 {
		return 0
	}
	rect := r.addressRange(field)
	covered := 0
	for x := rect.Min.X; x <= rect.Max.X; x++ {
		for y := rect.Min.Y; y <= rect.Max.Y; y++ {
			if _, ok := r.tiles[GridAddress{X: x, Y: y}]; ok {
				covered++
			}
		}
	}
	return float64(covered) / float64(rect.Width()*rect.Height())
}

// Height returns the value at p. It returns NaN if r has no tile for p.
func (r *Registry) Height(p LatLon) (float64, error) {
	if len(r.tiles) == 0 {
		return math.NaN(), nil
	}
	t, ok := r.tiles[r.Address(p)]
	if !ok {
		return math.NaN(), nil
	}
	if err := t.Load(); err != nil {
		return math.NaN(), err
	}
	value, err := t.Raster().Value(p)
	if err != nil {
		return math.NaN(), err
	}
	return float64(value), nil
}

// Load loads, in parallel, every tile spanned by field that has not already
// failed to load. It returns the number of tiles found and the number loaded.
func (r *Registry) Load(field GeoField) MapStats {
	if len(r.tiles) == 0 {
		return MapStats{}
	}
	return r.load(r.addressRange(field))
}

func (r *Registry) load(rect GridRect) MapStats {
	var tiles []*Tile
	for _, address := range rect.Addresses() {
		if t, ok := r.tiles[address]; ok {
			tiles = append(tiles, t)
		}
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, t := range tiles {
		if t.Err() != nil {
			continue
		}
		g.Go(func() error {
			// Failures are recorded on the tile.
			_ = t.Load()
			return nil
		})
	}
	_ = g.Wait()

	stats := MapStats{Requested: len(tiles)}
	for _, t := range tiles {
		if t.Loaded() {
			stats.Contributed++
		}
	}
	return stats
}

// MapSize returns the number of columns and rows of the map CreateMap would
// return for field.
func (r *Registry) MapSize(field GeoField) (int, int) {
	if len(r.tiles) == 0 {
		return 0, 0
	}
	rect := r.addressRange(field)
	return rect.Width() * r.cols, rect.Height() * r.rows
}

// CreateMap returns a single Raster covering every tile address spanned by
// field. Cells without a loaded tile are NaN. It returns nil if r is empty.
// The size of the map is not limited; see MapSize.
func (r *Registry) CreateMap(field GeoField) (*Raster[float32], MapStats) {
	if len(r.tiles) == 0 {
		return nil, MapStats{}
	}
	rect := r.addressRange(field)
	stats := r.load(rect)

	cols, rows := r.MapSize(field)
	m := NewRaster[float32](
		GeoField{
			LowerLeft:  r.AddressField(rect.Min).LowerLeft,
			UpperRight: r.AddressField(rect.Max).UpperRight,
		},
		cols,
		rows,
	)
	m.Fill(float32(math.NaN()))

	var contributed atomic.Int64
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, address := range rect.Addresses() {
		t, ok := r.tiles[address]
		if !ok {
			continue
		}
		// Loaded tiles have the registry's mesh.
		tileRaster := t.Raster()
		if tileRaster == nil {
			continue
		}
		g.Go(func() error {
			// Row 0 is the northern edge but address Y increases northward.
			x0 := (address.X - rect.Min.X) * r.cols
			y0 := (rect.Max.Y - address.Y) * r.rows
			src := tileRaster.Values()
			for y := range r.rows {
				dst := (y0+y)*m.cols + x0
				copy(m.values[dst:dst+r.cols], src[y*r.cols:(y+1)*r.cols])
			}
			contributed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	stats.Contributed = int(contributed.Load())
	mapsCreated.Inc()
	mapTilesContributed.Add(float64(stats.Contributed))
	sigolo.Debugf("Created map %s from %d of %d tiles", m, stats.Contributed, stats.Requested)
	return m, stats
}

func (r *Registry) String() string {
	var sb strings.Builder
	for _, t := range r.Tiles() {
		sb.WriteString(t.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
