package demindex

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tileLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demindex_tile_loads_total",
		Help: "The total number of tiles loaded",
	})
	tileLoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demindex_tile_load_failures_total",
		Help: "The total number of tiles that failed to load",
	})
	headerCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demindex_header_cache_hits_total",
		Help: "The total number of hits on the tile header cache",
	})
	headerCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demindex_header_cache_misses_total",
		Help: "The total number of misses on the tile header cache",
	})
	headersSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demindex_headers_skipped_total",
		Help: "The total number of scanned files without a usable tile header",
	})
	mapsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demindex_maps_created_total",
		Help: "The total number of stitched maps created",
	})
	mapTilesContributed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demindex_map_tiles_contributed_total",
		Help: "The total number of tiles copied into stitched maps",
	})
)
