package demindex

import "io/fs"

// A TileReader reads one tile file format.
type TileReader interface {
	// Match returns whether name looks like a file in the reader's format.
	Match(name string) bool

	// Header returns the declared metadata of the tile in name without
	// reading its values. It returns ErrFormatMismatch if name does not
	// contain a recognizable tile.
	Header(fsys fs.FS, name string) (TileMetadata, error)

	// Values reads the values of the tile in name. metadata is the value
	// previously returned by Header. Missing values are NaN.
	Values(fsys fs.FS, name string, metadata TileMetadata) (*Raster[float32], error)
}
