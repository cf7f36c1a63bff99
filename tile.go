package demindex

import (
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
)

// A Format identifies a tile file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatGeoTIFF
)

func (f Format) String() string {
	switch f {
	case FormatGeoTIFF:
		return "GeoTIFF"
	default:
		return "unknown"
	}
}

// TileMetadata is the declared description of a tile, read from its header.
type TileMetadata struct {
	Name   string
	ID     int
	Cols   int
	Rows   int
	Field  GeoField
	Format Format
}

// Available returns whether m describes a usable tile.
func (m TileMetadata) Available() bool {
	return !m.Field.IsZeroArea()
}

func (m TileMetadata) String() string {
	return fmt.Sprintf("%s,%d,%dx%d,%s,%s", m.Name, m.ID, m.Cols, m.Rows, m.Field, m.Format)
}

// A Tile is a tile file and, once loaded, its values. A Tile is safe for
// concurrent use.
type Tile struct {
	fsys      fs.FS
	path      string
	metadata  TileMetadata
	reader    TileReader
	loadMutex sync.Mutex
	raster    atomic.Pointer[Raster[float32]]
	err       atomic.Pointer[LoadError]
}

// NewTile returns a new unloaded Tile.
func NewTile(fsys fs.FS, path string, metadata TileMetadata, reader TileReader) *Tile {
	return &Tile{
		fsys:     fsys,
		path:     path,
		metadata: metadata,
		reader:   reader,
	}
}

func (t *Tile) Metadata() TileMetadata {
	return t.metadata
}

func (t *Tile) Path() string {
	return t.path
}

// Loaded returns whether t's values are in memory.
func (t *Tile) Loaded() bool {
	return t.raster.Load() != nil
}

// Err returns the error that stopped t from loading, if any.
func (t *Tile) Err() error {
	if err := t.err.Load(); err != nil {
		return err
	}
	return nil
}

// Raster returns t's values, or nil if t is not loaded.
func (t *Tile) Raster() *Raster[float32] {
	return t.raster.Load()
}

// Load reads t's values if they are not already loaded. Values whose
// dimensions differ from the declared mesh are a failure. A failed load is
// recorded and returned by every later call without reading the file again.
func (t *Tile) Load() error {
	if t.Loaded() {
		return nil
	}
	if err := t.Err(); err != nil {
		return err
	}

	t.loadMutex.Lock()
	defer t.loadMutex.Unlock()

	if t.Loaded() {
		return nil
	}
	if err := t.Err(); err != nil {
		return err
	}

	raster, err := t.reader.Values(t.fsys, t.path, t.metadata)
	if err == nil {
		if cols, rows := raster.Size(); cols != t.metadata.Cols || rows != t.metadata.Rows {
			err = errors.Wrapf(ErrMeshMismatch, "%dx%d values, expected %dx%d", cols, rows, t.metadata.Cols, t.metadata.Rows)
		}
	}
	if err != nil {
		loadErr := &LoadError{Path: t.path, Err: err}
		t.err.Store(loadErr)
		tileLoadFailures.Inc()
		sigolo.Errorf("Unable to load tile %s: %v", t.path, err)
		return loadErr
	}
	t.raster.Store(raster)
	tileLoads.Inc()
	sigolo.Tracef("Loaded tile %s (%s)", t.path, raster)
	return nil
}

// Consistent returns whether t's loaded values cover exactly the declared
// field with the declared number of cells.
func (t *Tile) Consistent() bool {
	raster := t.Raster()
	if raster == nil {
		return false
	}
	cols, rows := raster.Size()
	return raster.Field() == t.metadata.Field && cols == t.metadata.Cols && rows == t.metadata.Rows
}

func (t *Tile) String() string {
	return fmt.Sprintf("%s,%t,%t,%s", t.path, t.Loaded(), t.Consistent(), t.metadata)
}
