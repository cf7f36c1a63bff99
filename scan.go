package demindex

import (
	"io/fs"
	"path"
	"runtime"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// A headerCacheKey identifies one version of a tile file.
type headerCacheKey struct {
	name    string
	size    int64
	modTime time.Time
}

// A Scanner finds tiles in directories. Headers are remembered so that
// rescanning an unchanged directory does not read any files.
type Scanner struct {
	reader      TileReader
	concurrency int
	cacheSize   int
	headerCache *lru.Cache[headerCacheKey, TileMetadata]
}

// A ScannerOption sets an option on a Scanner.
type ScannerOption func(*Scanner)

// NewScanner returns a new Scanner that reads headers with reader.
func NewScanner(reader TileReader, options ...ScannerOption) (*Scanner, error) {
	s := &Scanner{
		reader:      reader,
		concurrency: runtime.GOMAXPROCS(0),
		cacheSize:   4096,
	}
	for _, option := range options {
		option(s)
	}
	s.concurrency = max(s.concurrency, 1)

	var err error
	s.headerCache, err = lru.New[headerCacheKey, TileMetadata](max(s.cacheSize, 1))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WithScanConcurrency sets the number of headers read in parallel.
func WithScanConcurrency(concurrency int) ScannerOption {
	return func(s *Scanner) {
		s.concurrency = concurrency
	}
}

// WithScanCacheSize sets the number of headers remembered.
func WithScanCacheSize(cacheSize int) ScannerOption {
	return func(s *Scanner) {
		s.cacheSize = cacheSize
	}
}

// Scan returns a Tile for every file directly in dir that contains a usable
// tile header, in file name order. Files that cannot be read are logged and
// skipped. Scan only returns an error if dir itself cannot be read.
func (s *Scanner) Scan(fsys fs.FS, dir string) ([]*Tile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", dir)
	}
	entries = slices.DeleteFunc(entries, func(entry fs.DirEntry) bool {
		return !entry.Type().IsRegular() || !s.reader.Match(entry.Name())
	})

	tiles := make([]*Tile, len(entries))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			name := path.Join(dir, entry.Name())
			metadata, err := s.header(fsys, name, entry)
			switch {
			case errors.Is(err, ErrFormatMismatch):
				headersSkipped.Inc()
				sigolo.Debugf("Skipping %s: %v", name, err)
			case err != nil:
				headersSkipped.Inc()
				sigolo.Warnf("Unable to read header of %s: %v", name, err)
			case !metadata.Available():
				headersSkipped.Inc()
				sigolo.Debugf("Skipping %s: no usable area", name)
			default:
				metadata.ID = i
				tiles[i] = NewTile(fsys, name, metadata, s.reader)
			}
			return nil
		})
	}
	_ = g.Wait()

	tiles = slices.DeleteFunc(tiles, func(t *Tile) bool {
		return t == nil
	})
	sigolo.Debugf("Found %d tiles in %d candidate files in %s", len(tiles), len(entries), dir)
	return tiles, nil
}

// header returns the header of name, using s's cache if possible.
func (s *Scanner) header(fsys fs.FS, name string, entry fs.DirEntry) (TileMetadata, error) {
	info, err := entry.Info()
	if err != nil {
		return TileMetadata{}, err
	}
	key := headerCacheKey{
		name:    name,
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	if metadata, ok := s.headerCache.Get(key); ok {
		headerCacheHits.Inc()
		return metadata, nil
	}
	headerCacheMisses.Inc()

	metadata, err := s.reader.Header(fsys, name)
	if err != nil {
		return TileMetadata{}, err
	}
	s.headerCache.Add(key, metadata)
	return metadata, nil
}
