package demindex

import "github.com/pkg/errors"

var errGeoKeyParse = errors.New("geokey parse error")

// A GeoKey is a key in a GeoTIFF GeoKeyDirectoryTag.
type GeoKey uint16

const (
	GeoKeyGTModelType  GeoKey = 1024
	GeoKeyGTRasterType GeoKey = 1025
	GeoKeyGTCitation   GeoKey = 1026

	GeoKeyGeodeticCRS            GeoKey = 2048
	GeoKeyAngularUnits           GeoKey = 2054
	GeoKeyEllipsoidSemiMajorAxis GeoKey = 2057
	GeoKeyEllipsoidInvFlattening GeoKey = 2059
)

// Values of GeoKeyGTModelType.
const (
	modelTypeProjected  = 1
	modelTypeGeographic = 2
)

// Value of GeoKeyGTRasterType for point samples.
const rasterTypePixelIsPoint = 2

// Value of GeoKeyAngularUnits for degrees.
const angularUnitsDegree = 9102

const (
	geoDoubleParamsTag = 34736
	geoASCIIParamsTag  = 34737
)

// GeoKeys are the parsed contents of a GeoKeyDirectoryTag and the parameter
// tags it refers to.
type GeoKeys struct {
	Params       map[GeoKey]int
	DoubleParams map[GeoKey]float64
	ASCIIParams  map[GeoKey]string
}

// ParseGeoKeys parses a GeoKeyDirectoryTag.
func ParseGeoKeys(directory []uint16, doubleParams []float64, asciiParams []byte) (*GeoKeys, error) {
	if len(directory) < 4 {
		return nil, errors.Wrapf(errGeoKeyParse, "directory has %d values", len(directory))
	}

	if keyDirectoryVersion := int(directory[0]); keyDirectoryVersion != 1 {
		return nil, errors.Wrapf(errGeoKeyParse, "key directory version %d", keyDirectoryVersion)
	}
	if keyRevision := int(directory[1]); keyRevision != 1 {
		return nil, errors.Wrapf(errGeoKeyParse, "key revision %d", keyRevision)
	}
	if minorRevision := int(directory[2]); minorRevision != 0 && minorRevision != 1 {
		return nil, errors.Wrapf(errGeoKeyParse, "minor revision %d", minorRevision)
	}
	numberOfKeys := int(directory[3])
	if len(directory) != 4+4*numberOfKeys {
		return nil, errors.Wrapf(errGeoKeyParse, "directory has %d values for %d keys", len(directory), numberOfKeys)
	}

	geoKeys := &GeoKeys{
		Params:       make(map[GeoKey]int),
		DoubleParams: make(map[GeoKey]float64),
		ASCIIParams:  make(map[GeoKey]string),
	}
	for i := range numberOfKeys {
		keyValues := directory[4+4*i : 4+4*(i+1)]
		key := GeoKey(keyValues[0])
		tiffTagLocation := int(keyValues[1])
		numberOfValues := int(keyValues[2])
		index := int(keyValues[3])
		switch tiffTagLocation {
		case 0:
			if numberOfValues != 1 {
				return nil, errors.Wrapf(errGeoKeyParse, "key %d has %d inline values", key, numberOfValues)
			}
			geoKeys.Params[key] = index
		case geoDoubleParamsTag:
			// Multi-valued double keys are not used by any key read here.
			if numberOfValues != 1 || index >= len(doubleParams) {
				continue
			}
			geoKeys.DoubleParams[key] = doubleParams[index]
		case geoASCIIParamsTag:
			if index+numberOfValues > len(asciiParams) {
				return nil, errors.Wrapf(errGeoKeyParse, "key %d overruns ASCII params", key)
			}
			geoKeys.ASCIIParams[key] = string(asciiParams[index : index+numberOfValues])
		default:
			return nil, errors.Wrapf(errGeoKeyParse, "key %d in unsupported tag %d", key, tiffTagLocation)
		}
	}
	return geoKeys, nil
}

// Geographic returns whether k describe a raster in geographic coordinates.
// Directories that do not declare a model type are assumed to be geographic.
func (k *GeoKeys) Geographic() bool {
	modelType, ok := k.Params[GeoKeyGTModelType]
	if !ok {
		return true
	}
	if modelType != modelTypeGeographic {
		return false
	}
	angularUnits, ok := k.Params[GeoKeyAngularUnits]
	return !ok || angularUnits == angularUnitsDegree
}

// PixelIsPoint returns whether k declare that raster coordinates refer to
// cell centers rather than cell corners.
func (k *GeoKeys) PixelIsPoint() bool {
	return k.Params[GeoKeyGTRasterType] == rasterTypePixelIsPoint
}
