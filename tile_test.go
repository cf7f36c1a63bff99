package demindex

import (
	"io/fs"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var errFakeCorrupt = errors.New("corrupt")

type fakeTile struct {
	metadata TileMetadata
	values   []float32
	fail     bool
}

// A fakeReader serves tiles from memory and counts how often each is read.
type fakeReader struct {
	mutex sync.Mutex
	tiles map[string]fakeTile
	loads map[string]int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		tiles: make(map[string]fakeTile),
		loads: make(map[string]int),
	}
}

// add registers a tile with lower left corner (lat, lon), size degrees
// square, and cols*rows values, and returns it.
func (r *fakeReader) add(name string, lat, lon, size float64, cols, rows int, values []float32) *Tile {
	metadata := TileMetadata{
		Name: name,
		Cols: cols,
		Rows: rows,
		Field: GeoField{
			LowerLeft:  LatLon{Lat: lat, Lon: lon},
			UpperRight: LatLon{Lat: lat + size, Lon: lon + size},
		},
		Format: FormatGeoTIFF,
	}
	r.mutex.Lock()
	r.tiles[name] = fakeTile{metadata: metadata, values: values, fail: values == nil}
	r.mutex.Unlock()
	return NewTile(nil, name, metadata, r)
}

func (r *fakeReader) loadCount(name string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.loads[name]
}

func (r *fakeReader) Match(name string) bool {
	return strings.HasSuffix(name, ".dem")
}

func (r *fakeReader) Header(fsys fs.FS, name string) (TileMetadata, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	tile, ok := r.tiles[name]
	if !ok {
		return TileMetadata{}, errors.Wrap(ErrFormatMismatch, name)
	}
	return tile.metadata, nil
}

func (r *fakeReader) Values(fsys fs.FS, name string, metadata TileMetadata) (*Raster[float32], error) {
	r.mutex.Lock()
	r.loads[name]++
	tile, ok := r.tiles[name]
	r.mutex.Unlock()
	if !ok {
		return nil, fs.ErrNotExist
	}
	if tile.fail {
		return nil, errFakeCorrupt
	}
	if metadata.Cols != tile.metadata.Cols || metadata.Rows != tile.metadata.Rows {
		return nil, errors.Wrapf(ErrMeshMismatch, "%s", name)
	}
	raster := NewRaster[float32](tile.metadata.Field, tile.metadata.Cols, tile.metadata.Rows)
	if err := raster.SetValues(slices.Clone(tile.values)); err != nil {
		return nil, err
	}
	return raster, nil
}

func TestTileLoad(t *testing.T) {
	reader := newFakeReader()
	tile := reader.add("a.dem", 35, 130, 1, 2, 2, []float32{1, 2, 3, 4})

	assert.False(t, tile.Loaded())
	assert.Zero(t, tile.Raster())
	assert.False(t, tile.Consistent())

	assert.NoError(t, tile.Load())
	assert.NoError(t, tile.Load())
	assert.True(t, tile.Loaded())
	assert.True(t, tile.Consistent())
	assert.NoError(t, tile.Err())
	assert.Equal(t, 1, reader.loadCount("a.dem"))
	assert.Equal(t, []float32{1, 2, 3, 4}, tile.Raster().Values())
}

func TestTileLoadConcurrent(t *testing.T) {
	reader := newFakeReader()
	tile := reader.add("a.dem", 35, 130, 1, 2, 2, []float32{1, 2, 3, 4})

	var g errgroup.Group
	for range 16 {
		g.Go(tile.Load)
	}
	assert.NoError(t, g.Wait())
	assert.Equal(t, 1, reader.loadCount("a.dem"))
}

func TestTileLoadFailure(t *testing.T) {
	reader := newFakeReader()
	tile := reader.add("bad.dem", 35, 130, 1, 2, 2, nil)

	err := tile.Load()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoadFailure))
	assert.True(t, errors.Is(err, errFakeCorrupt))
	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "bad.dem", loadErr.Path)

	assert.Error(t, tile.Load())
	assert.Equal(t, 1, reader.loadCount("bad.dem"))
	assert.False(t, tile.Loaded())
	assert.True(t, errors.Is(tile.Err(), ErrLoadFailure))
}

func TestTileConsistent(t *testing.T) {
	reader := newFakeReader()
	tile := reader.add("a.dem", 35, 130, 1, 2, 2, []float32{1, 2, 3, 4})
	assert.NoError(t, tile.Load())
	assert.True(t, tile.Consistent())

	// A header that disagrees with the file's field loads but is not
	// consistent.
	metadata := tile.Metadata()
	metadata.Field = metadata.Field.Translate(LatLon{Lat: 1})
	shifted := NewTile(nil, "a.dem", metadata, reader)
	assert.NoError(t, shifted.Load())
	assert.False(t, shifted.Consistent())
}

func TestTileLoadMeshMismatch(t *testing.T) {
	reader := newFakeReader()
	tile := reader.add("a.dem", 35, 130, 1, 2, 2, []float32{1, 2, 3, 4})

	metadata := tile.Metadata()
	metadata.Cols = 4
	mismatched := NewTile(nil, "a.dem", metadata, reader)
	err := mismatched.Load()
	assert.True(t, errors.Is(err, ErrLoadFailure))
	assert.True(t, errors.Is(err, ErrMeshMismatch))
	assert.False(t, mismatched.Loaded())
	assert.False(t, mismatched.Consistent())
}

// A sloppyReader ignores the declared mesh and always returns a 1x1 raster.
type sloppyReader struct{}

func (sloppyReader) Match(name string) bool {
	return true
}

func (sloppyReader) Header(fsys fs.FS, name string) (TileMetadata, error) {
	return TileMetadata{}, ErrFormatMismatch
}

func (sloppyReader) Values(fsys fs.FS, name string, metadata TileMetadata) (*Raster[float32], error) {
	return NewRaster[float32](metadata.Field, 1, 1), nil
}

func TestTileLoadChecksReaderMesh(t *testing.T) {
	tile := NewTile(nil, "a.dem", TileMetadata{
		Cols:  2,
		Rows:  2,
		Field: NewGeoField(LatLon{Lat: 35, Lon: 130}, LatLon{Lat: 36, Lon: 131}),
	}, sloppyReader{})
	err := tile.Load()
	assert.True(t, errors.Is(err, ErrLoadFailure))
	assert.True(t, errors.Is(err, ErrMeshMismatch))
	assert.Zero(t, tile.Raster())
}

func TestTileMetadataAvailable(t *testing.T) {
	assert.True(t, TileMetadata{
		Field: GeoField{UpperRight: LatLon{Lat: 1, Lon: 1}},
	}.Available())
	assert.False(t, TileMetadata{
		Field: GeoField{UpperRight: LatLon{Lat: 1}},
	}.Available())
	assert.False(t, TileMetadata{}.Available())
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "GeoTIFF", FormatGeoTIFF.String())
	assert.Equal(t, "unknown", FormatUnknown.String())
}
