package demindex

import (
	"github.com/paulmach/orb/geojson"
)

// A Footprint is the area declared by a tile, for export.
type Footprint struct {
	ID     int
	Name   string
	Path   string
	Format Format
	Field  GeoField
}

// Footprints returns the footprints of every tile in r in address order.
func (r *Registry) Footprints() []Footprint {
	tiles := r.Tiles()
	footprints := make([]Footprint, 0, len(tiles))
	for _, t := range tiles {
		metadata := t.Metadata()
		footprints = append(footprints, Footprint{
			ID:     metadata.ID,
			Name:   metadata.Name,
			Path:   t.Path(),
			Format: metadata.Format,
			Field:  metadata.Field,
		})
	}
	return footprints
}

// Footprints returns the footprints of every tile in i, grouped by registry,
// finest first.
func (i *Index) Footprints() [][]Footprint {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	footprints := make([][]Footprint, 0, len(i.registries))
	for _, registry := range i.registries {
		footprints = append(footprints, registry.Footprints())
	}
	return footprints
}

// FootprintFeatureCollection returns footprints as a GeoJSON feature
// collection with one polygon per tile. The registry property is the index of
// the group each footprint came from.
func FootprintFeatureCollection(footprints [][]Footprint) *geojson.FeatureCollection {
	featureCollection := geojson.NewFeatureCollection()
	for registry, group := range footprints {
		for _, footprint := range group {
			feature := geojson.NewFeature(footprint.Field.Bound().ToPolygon())
			feature.ID = footprint.ID
			center := footprint.Field.Center()
			feature.Properties["id"] = footprint.ID
			feature.Properties["name"] = footprint.Name
			feature.Properties["path"] = footprint.Path
			feature.Properties["format"] = footprint.Format.String()
			feature.Properties["center"] = []float64{center.Lon, center.Lat}
			feature.Properties["registry"] = registry
			featureCollection.Append(feature)
		}
	}
	return featureCollection
}
