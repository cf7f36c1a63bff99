package demindex

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrFormatMismatch is returned by a TileReader when a file does not
	// contain a recognizable tile. Such files are skipped.
	ErrFormatMismatch = errors.New("format mismatch")

	// ErrLoadFailure is the cause of every LoadError.
	ErrLoadFailure = errors.New("load failure")

	// ErrMapTooLarge is returned when a stitched map would have more cells
	// than an Index allows.
	ErrMapTooLarge = errors.New("map too large")

	// ErrMeshMismatch is returned when a tile's values do not have the
	// dimensions declared in its header.
	ErrMeshMismatch = errors.New("mesh mismatch")

	// ErrOutOfBounds is returned when an address or position lies outside a
	// Raster.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrSizeUnset is returned when a Raster without dimensions is accessed.
	ErrSizeUnset = errors.New("raster size unset")
)

// A LoadError records why a tile could not be loaded. Once a tile has a
// LoadError it is never loaded again.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoadFailure, e.Err}
}
