package demindex

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/fs"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"github.com/pkg/errors"
	"golang.org/x/image/tiff/lzw"
)

// TIFF field values understood by GeoTIFFReader.
const (
	compressionNone = 1
	compressionLZW  = 5

	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

// maxBlockBytes is the largest decoded block GeoTIFFReader will allocate.
const maxBlockBytes = 1 << 30

var errShortRead = errors.New("short read")

// A GeoTIFFReader reads single band GeoTIFF tiles in geographic coordinates.
// Tiled and stripped layouts are supported, uncompressed or LZW compressed,
// with 32-bit float or 16-bit integer samples.
type GeoTIFFReader struct{}

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth                uint16    `tiff:"field,tag=256"`
	ImageLength               uint16    `tiff:"field,tag=257"`
	BitsPerSample             uint16    `tiff:"field,tag=258"`
	Compression               uint16    `tiff:"field,tag=259"`
	PhotometricInterpretation uint16    `tiff:"field,tag=262"`
	StripOffsets              []uint64  `tiff:"field,tag=273"`
	SamplesPerPixel           uint16    `tiff:"field,tag=277"`
	RowsPerStrip              []uint64  `tiff:"field,tag=278"`
	StripByteCounts           []uint64  `tiff:"field,tag=279"`
	PlanarConfiguration       uint16    `tiff:"field,tag=284"`
	Predictor                 uint16    `tiff:"field,tag=317"`
	TileWidth                 uint16    `tiff:"field,tag=322"`
	TileLength                uint16    `tiff:"field,tag=323"`
	TileOffsets               []uint64  `tiff:"field,tag=324"`
	TileByteCounts            []uint64  `tiff:"field,tag=325"`
	SampleFormat              uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag        []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag          []float64 `tiff:"field,tag=33922"`
	GeoKeyDirectoryTag        []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag        []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag         string    `tiff:"field,tag=34737"`
	GDALNoData                string    `tiff:"field,tag=42113"`
}

// A geoTIFFLayout describes where the samples of a GeoTIFF are stored. Blocks
// are either tiles or strips; a strip is a block as wide as the image.
type geoTIFFLayout struct {
	width           int
	length          int
	blockWidth      int
	blockLength     int
	blocksAcross    int
	offsets         []uint64
	byteCounts      []uint64
	compression     int
	bytesPerSample  int
	sampleFormat    int
	noData          float64
	hasNoData       bool
	field           GeoField
	blockSampleSize int
}

// A readAtReadSeeker is the file access github.com/google/tiff needs.
type readAtReadSeeker interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// NewGeoTIFFReader returns a new GeoTIFFReader.
func NewGeoTIFFReader() *GeoTIFFReader {
	return &GeoTIFFReader{}
}

// Match returns whether name has a TIFF extension.
func (r *GeoTIFFReader) Match(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".tif", ".tiff":
		return true
	default:
		return false
	}
}

// Header returns the declared metadata of the GeoTIFF in name.
func (r *GeoTIFFReader) Header(fsys fs.FS, name string) (TileMetadata, error) {
	layout, err := readGeoTIFFLayout(fsys, name)
	if err != nil {
		return TileMetadata{}, err
	}
	base := path.Base(name)
	return TileMetadata{
		Name:   strings.TrimSuffix(base, path.Ext(base)),
		Cols:   layout.width,
		Rows:   layout.length,
		Field:  layout.field,
		Format: FormatGeoTIFF,
	}, nil
}

// Values reads every sample of the GeoTIFF in name. It returns
// ErrMeshMismatch if the image is not metadata.Cols by metadata.Rows samples.
func (r *GeoTIFFReader) Values(fsys fs.FS, name string, metadata TileMetadata) (*Raster[float32], error) {
	file, err := openReadAtReadSeeker(fsys, name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	layout, err := parseGeoTIFFLayout(file)
	if err != nil {
		return nil, err
	}
	if layout.width != metadata.Cols || layout.length != metadata.Rows {
		return nil, errors.Wrapf(ErrMeshMismatch, "%dx%d samples, expected %dx%d", layout.width, layout.length, metadata.Cols, metadata.Rows)
	}

	raster := NewRaster[float32](layout.field, layout.width, layout.length)
	values := raster.Values()
	for blockIndex := range layout.offsets {
		samples, err := layout.readBlock(file, blockIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "block %d", blockIndex)
		}
		x0 := (blockIndex % layout.blocksAcross) * layout.blockWidth
		y0 := (blockIndex / layout.blocksAcross) * layout.blockLength
		// Blocks on the right and bottom edges may extend past the image.
		cols := min(layout.blockWidth, layout.width-x0)
		rows := min(layout.blockLength, layout.length-y0, len(samples)/layout.blockWidth)
		for y := range rows {
			dst := (y0+y)*layout.width + x0
			copy(values[dst:dst+cols], samples[y*layout.blockWidth:y*layout.blockWidth+cols])
		}
	}
	return raster, nil
}

type readAtReadSeekCloser interface {
	readAtReadSeeker
	io.Closer
}

// openReadAtReadSeeker opens name in fsys. Files that do not support random
// access are read into memory.
func openReadAtReadSeeker(fsys fs.FS, name string) (readAtReadSeekCloser, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	if f, ok := file.(readAtReadSeekCloser); ok {
		return f, nil
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return nopCloser{bytes.NewReader(data)}, nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error {
	return nil
}

func readGeoTIFFLayout(fsys fs.FS, name string) (*geoTIFFLayout, error) {
	file, err := openReadAtReadSeeker(fsys, name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseGeoTIFFLayout(file)
}

// parseGeoTIFFLayout parses the first IFD of r. It returns ErrFormatMismatch
// if r is not a GeoTIFF that GeoTIFFReader can read.
func parseGeoTIFFLayout(r readAtReadSeeker) (*geoTIFFLayout, error) {
	tiffTIFF, err := tiff.Parse(r, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, errors.Wrapf(ErrFormatMismatch, "parse: %v", err)
	}
	if len(tiffTIFF.IFDs()) == 0 {
		return nil, errors.Wrap(ErrFormatMismatch, "no IFDs")
	}

	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, errors.Wrapf(ErrFormatMismatch, "unmarshal: %v", err)
	}

	if ifd.SamplesPerPixel > 1 ||
		ifd.PlanarConfiguration > 1 ||
		ifd.Predictor > 1 ||
		len(ifd.ModelPixelScaleTag) < 2 ||
		len(ifd.ModelTiepointTag) < 6 {
		return nil, errors.Wrap(ErrFormatMismatch, "unsupported layout")
	}

	layout := &geoTIFFLayout{
		width:          int(ifd.ImageWidth),
		length:         int(ifd.ImageLength),
		compression:    int(ifd.Compression),
		bytesPerSample: int(ifd.BitsPerSample) / 8,
		sampleFormat:   int(ifd.SampleFormat),
	}
	if layout.compression == 0 {
		layout.compression = compressionNone
	}
	if layout.sampleFormat == 0 {
		layout.sampleFormat = sampleFormatUint
	}
	if layout.compression != compressionNone && layout.compression != compressionLZW {
		return nil, errors.Wrapf(ErrFormatMismatch, "compression %d", layout.compression)
	}
	switch {
	case layout.sampleFormat == sampleFormatFloat && ifd.BitsPerSample == 32:
	case layout.sampleFormat == sampleFormatInt && ifd.BitsPerSample == 16:
	case layout.sampleFormat == sampleFormatUint && ifd.BitsPerSample == 16:
	default:
		return nil, errors.Wrapf(ErrFormatMismatch, "sample format %d with %d bits", layout.sampleFormat, ifd.BitsPerSample)
	}

	switch {
	case ifd.TileWidth != 0 && ifd.TileLength != 0:
		layout.blockWidth = int(ifd.TileWidth)
		layout.blockLength = int(ifd.TileLength)
		layout.offsets = ifd.TileOffsets
		layout.byteCounts = ifd.TileByteCounts
	case len(ifd.StripOffsets) != 0:
		layout.blockWidth = layout.width
		layout.blockLength = layout.length
		if len(ifd.RowsPerStrip) != 0 && ifd.RowsPerStrip[0] != 0 {
			layout.blockLength = min(int(ifd.RowsPerStrip[0]), layout.length)
		}
		layout.offsets = ifd.StripOffsets
		layout.byteCounts = ifd.StripByteCounts
	default:
		return nil, errors.Wrap(ErrFormatMismatch, "no tiles or strips")
	}
	if layout.width <= 0 || layout.length <= 0 || layout.blockWidth <= 0 || layout.blockLength <= 0 {
		return nil, errors.Wrap(ErrFormatMismatch, "empty image")
	}
	layout.blocksAcross = (layout.width + layout.blockWidth - 1) / layout.blockWidth
	blocksDown := (layout.length + layout.blockLength - 1) / layout.blockLength
	if len(layout.offsets) != layout.blocksAcross*blocksDown || len(layout.byteCounts) != len(layout.offsets) {
		return nil, errors.Wrap(ErrFormatMismatch, "incorrect number of block byte counts or offsets")
	}
	layout.blockSampleSize = layout.blockWidth * layout.blockLength
	if layout.blockSampleSize*layout.bytesPerSample > maxBlockBytes {
		return nil, errors.Wrapf(ErrFormatMismatch, "%dx%d block too large", layout.blockWidth, layout.blockLength)
	}
	if err := layout.checkBlocks(r); err != nil {
		return nil, err
	}

	pixelIsPoint := false
	if len(ifd.GeoKeyDirectoryTag) != 0 {
		geoKeys, err := ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag))
		if err != nil {
			return nil, errors.Wrapf(ErrFormatMismatch, "geokeys: %v", err)
		}
		if !geoKeys.Geographic() {
			return nil, errors.Wrap(ErrFormatMismatch, "not in geographic coordinates")
		}
		pixelIsPoint = geoKeys.PixelIsPoint()
	}

	scaleX, scaleY := ifd.ModelPixelScaleTag[0], ifd.ModelPixelScaleTag[1]
	if scaleX <= 0 || scaleY <= 0 {
		return nil, errors.Wrap(ErrFormatMismatch, "invalid pixel scale")
	}
	i, j := ifd.ModelTiepointTag[0], ifd.ModelTiepointTag[1]
	x, y := ifd.ModelTiepointTag[3], ifd.ModelTiepointTag[4]
	upperLeft := LatLon{
		Lat: y + j*scaleY,
		Lon: x - i*scaleX,
	}
	if pixelIsPoint {
		upperLeft.Lat += scaleY / 2
		upperLeft.Lon -= scaleX / 2
	}
	layout.field = NewGeoField(upperLeft, LatLon{
		Lat: upperLeft.Lat - float64(layout.length)*scaleY,
		Lon: upperLeft.Lon + float64(layout.width)*scaleX,
	})

	if noData := strings.TrimRight(ifd.GDALNoData, "\x00 "); noData != "" {
		if layout.noData, err = strconv.ParseFloat(noData, 64); err == nil {
			layout.hasNoData = true
		}
	}

	return layout, nil
}

// checkBlocks checks that every block lies within r and that no uncompressed
// block is larger than a full block.
func (l *geoTIFFLayout) checkBlocks(r io.Seeker) error {
	fileSize, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	maxByteCount := uint64(fileSize)
	if l.compression == compressionNone {
		maxByteCount = min(maxByteCount, uint64(l.blockSampleSize*l.bytesPerSample))
	}
	for blockIndex, byteCount := range l.byteCounts {
		offset := l.offsets[blockIndex]
		if byteCount > maxByteCount || offset > uint64(fileSize)-byteCount {
			return errors.Wrapf(ErrFormatMismatch, "block %d: %d bytes at offset %d in %d byte file", blockIndex, byteCount, offset, fileSize)
		}
	}
	return nil
}

// readBlock reads, decompresses, and decodes the block at blockIndex.
func (l *geoTIFFLayout) readBlock(r io.ReaderAt, blockIndex int) ([]float32, error) {
	byteCount := l.byteCounts[blockIndex]
	data := make([]byte, byteCount)
	switch n, err := r.ReadAt(data, int64(l.offsets[blockIndex])); {
	case n == int(byteCount):
	case err != nil:
		return nil, err
	default:
		return nil, errShortRead
	}

	if l.compression == compressionLZW {
		var err error
		data, err = l.decompress(data)
		if err != nil {
			return nil, err
		}
	}
	return l.decode(data), nil
}

// decompress decompresses LZW compressed block data. The last strip of an
// image may decompress to fewer bytes than a full block.
func (l *geoTIFFLayout) decompress(compressedData []byte) ([]byte, error) {
	data := make([]byte, l.blockSampleSize*l.bytesPerSample)
	lzwReader := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
	defer lzwReader.Close()
	n, err := io.ReadFull(lzwReader, data)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF):
		return data[:n], nil
	default:
		return nil, err
	}
}

// decode decodes little endian samples, replacing no data values with NaN.
func (l *geoTIFFLayout) decode(data []byte) []float32 {
	samples := make([]float32, len(data)/l.bytesPerSample)
	noData := float32(l.noData)
	for i := range samples {
		var sample float32
		switch l.sampleFormat {
		case sampleFormatFloat:
			sample = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
		case sampleFormatInt:
			sample = float32(int16(binary.LittleEndian.Uint16(data[i*2 : (i+1)*2])))
		default:
			sample = float32(binary.LittleEndian.Uint16(data[i*2 : (i+1)*2]))
		}
		if l.hasNoData && sample == noData {
			sample = float32(math.NaN())
		}
		samples[i] = sample
	}
	return samples
}
