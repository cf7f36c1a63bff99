package demindex

import (
	"cmp"
	"io/fs"
	"math"
	"runtime"
	"slices"
	"sync"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultCoverageThreshold is the coverage a registry needs before CreateMap
// uses it.
const DefaultCoverageThreshold = 0.3

// DefaultMaxMapCells is the largest map CreateMap stitches by default.
const DefaultMaxMapCells = 1 << 26

// An Index holds every tile found, grouped into one Registry per tile
// geometry. Queries prefer the registry with the finest cells.
//
// Tiles may be added at any time; adding tiles blocks until running queries
// complete.
type Index struct {
	mutex             sync.RWMutex
	registries        []*Registry
	reader            TileReader
	scanner           *Scanner
	concurrency       int
	headerCacheSize   int
	coverageThreshold float64
	maxMapCells       int
}

// An IndexOption sets an option on an Index.
type IndexOption func(*Index)

// New returns a new empty Index.
func New(options ...IndexOption) (*Index, error) {
	i := &Index{
		reader:            NewGeoTIFFReader(),
		concurrency:       runtime.GOMAXPROCS(0),
		headerCacheSize:   4096,
		coverageThreshold: DefaultCoverageThreshold,
		maxMapCells:       DefaultMaxMapCells,
	}
	for _, option := range options {
		option(i)
	}
	i.concurrency = max(i.concurrency, 1)

	var err error
	i.scanner, err = NewScanner(i.reader,
		WithScanConcurrency(i.concurrency),
		WithScanCacheSize(i.headerCacheSize),
	)
	if err != nil {
		return nil, err
	}
	return i, nil
}

// WithReader sets the reader used for tiles found by AddDir.
func WithReader(reader TileReader) IndexOption {
	return func(i *Index) {
		i.reader = reader
	}
}

// WithConcurrency sets the number of tiles read in parallel.
func WithConcurrency(concurrency int) IndexOption {
	return func(i *Index) {
		i.concurrency = concurrency
	}
}

// WithHeaderCacheSize sets the number of tile headers remembered between
// directory scans.
func WithHeaderCacheSize(headerCacheSize int) IndexOption {
	return func(i *Index) {
		i.headerCacheSize = headerCacheSize
	}
}

// WithCoverageThreshold sets the default coverage threshold used by
// CreateMap.
func WithCoverageThreshold(coverageThreshold float64) IndexOption {
	return func(i *Index) {
		i.coverageThreshold = coverageThreshold
	}
}

// WithMaxMapCells sets the largest number of cells in a map returned by
// CreateMap.
func WithMaxMapCells(maxMapCells int) IndexOption {
	return func(i *Index) {
		i.maxMapCells = maxMapCells
	}
}

// CoverageThreshold returns i's default coverage threshold.
func (i *Index) CoverageThreshold() float64 {
	return i.coverageThreshold
}

// AddTiles adds tiles to i. Each tile goes to the first registry whose
// geometry it matches. New registries are created for tiles that match none.
func (i *Index) AddTiles(tiles []*Tile) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	pending := tiles
	for _, registry := range i.registries {
		if len(pending) == 0 {
			break
		}
		pending = registry.AddTiles(pending)
	}
	for len(pending) != 0 {
		registry := newRegistry(i.concurrency)
		remaining := registry.AddTiles(pending)
		if len(remaining) == len(pending) {
			// None of the remaining tiles can start a registry.
			sigolo.Warnf("Ignoring %d tiles without a usable geometry", len(remaining))
			break
		}
		i.registries = append(i.registries, registry)
		pending = remaining
	}

	slices.SortStableFunc(i.registries, func(a, b *Registry) int {
		return cmp.Compare(a.CellArea(), b.CellArea())
	})
	sigolo.Debugf("Index has %d tiles in %d registries", i.lenLocked(), len(i.registries))
}

// AddDir scans dir in fsys for tiles and adds them to i. It returns the
// number of tiles found.
func (i *Index) AddDir(fsys fs.FS, dir string) (int, error) {
	tiles, err := i.scanner.Scan(fsys, dir)
	if err != nil {
		return 0, err
	}
	i.AddTiles(tiles)
	return len(tiles), nil
}

// Registries returns i's registries, finest first.
func (i *Index) Registries() []*Registry {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	return slices.Clone(i.registries)
}

// Len returns the number of tiles in i.
func (i *Index) Len() int {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	return i.lenLocked()
}

func (i *Index) lenLocked() int {
	n := 0
	for _, registry := range i.registries {
		n += registry.Len()
	}
	return n
}

// Ready returns whether i has any tiles.
func (i *Index) Ready() bool {
	return i.Len() != 0
}

// Covers returns whether any registry has a tile for p.
func (i *Index) Covers(p LatLon) bool {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	for _, registry := range i.registries {
		if registry.Covers(p) {
			return true
		}
	}
	return false
}

// Height returns the value at p from the finest registry that has one, or
// NaN if none do.
func (i *Index) Height(p LatLon) float64 {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	return i.heightLocked(p)
}

func (i *Index) heightLocked(p LatLon) float64 {
	for _, registry := range i.registries {
		switch height, err := registry.Height(p); {
		case err != nil:
			sigolo.Tracef("No height at %s: %v", p, err)
		case !math.IsNaN(height):
			return height
		}
	}
	return math.NaN()
}

// Heights returns the values at ps, computed in parallel. Missing values are
// NaN.
func (i *Index) Heights(ps []LatLon) []float64 {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	heights := make([]float64, len(ps))
	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for j, p := range ps {
		g.Go(func() error {
			heights[j] = i.heightLocked(p)
			return nil
		})
	}
	_ = g.Wait()
	return heights
}

// CreateMap returns a map of field stitched from the finest registry whose
// coverage of field is at least coverageThreshold. Registries whose map would
// have more cells than i allows are skipped. It returns nil if no registry
// qualifies, with ErrMapTooLarge if any were skipped for their size.
func (i *Index) CreateMap(field GeoField, coverageThreshold float64) (*Raster[float32], MapStats, error) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	var tooLarge bool
	for _, registry := range i.registries {
		if cols, rows := registry.MapSize(field); float64(cols)*float64(rows) > float64(i.maxMapCells) {
			sigolo.Debugf("Skipping registry %s: map of %s would be %dx%d cells", registry.CellSize(), field, cols, rows)
			tooLarge = true
			continue
		}
		if coverage := registry.Coverage(field); coverage >= coverageThreshold {
			sigolo.Debugf("Creating map of %s with coverage %.2f", field, coverage)
			m, stats := registry.CreateMap(field)
			return m, stats, nil
		}
	}
	if tooLarge {
		return nil, MapStats{}, errors.Wrapf(ErrMapTooLarge, "%s exceeds %d cells", field, i.maxMapCells)
	}
	return nil, MapStats{}, nil
}
