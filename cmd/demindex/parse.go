package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/twpayne/go-demindex"
)

// A position is a validated latitude and longitude.
type position struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

// A bbox is a validated bounding box.
type bbox struct {
	MinLon float64 `validate:"gte=-180,lte=180"`
	MinLat float64 `validate:"gte=-90,lte=90"`
	MaxLon float64 `validate:"gte=-180,lte=180,gtfield=MinLon"`
	MaxLat float64 `validate:"gte=-90,lte=90,gtfield=MinLat"`
}

func parsePosition(latStr, lonStr string) (demindex.LatLon, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return demindex.LatLon{}, errors.Wrapf(err, "invalid latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return demindex.LatLon{}, errors.Wrapf(err, "invalid longitude %q", lonStr)
	}
	if err := validate.Struct(position{Lat: lat, Lon: lon}); err != nil {
		return demindex.LatLon{}, err
	}
	return demindex.LatLon{Lat: lat, Lon: lon}, nil
}

// parseBBox parses a bounding box in the form minLon,minLat,maxLon,maxLat.
func parseBBox(s string) (demindex.GeoField, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return demindex.GeoField{}, errors.Errorf("invalid bounding box %q, expected minLon,minLat,maxLon,maxLat", s)
	}
	var values [4]float64
	for i, part := range parts {
		var err error
		values[i], err = strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return demindex.GeoField{}, errors.Wrapf(err, "invalid bounding box %q", s)
		}
	}
	b := bbox{MinLon: values[0], MinLat: values[1], MaxLon: values[2], MaxLat: values[3]}
	if err := validate.Struct(b); err != nil {
		return demindex.GeoField{}, err
	}
	return demindex.GeoField{
		LowerLeft:  demindex.LatLon{Lat: b.MinLat, Lon: b.MinLon},
		UpperRight: demindex.LatLon{Lat: b.MaxLat, Lon: b.MaxLon},
	}, nil
}
