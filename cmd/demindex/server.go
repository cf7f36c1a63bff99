package main

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/twpayne/go-demindex"
)

// A server answers HTTP queries against an Index.
type server struct {
	index    *demindex.Index
	coverage float64
}

// A heightResponse is the response to a height query. Height is nil where
// there is no data.
type heightResponse struct {
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	Height *float64 `json:"height"`
}

func newRouter(index *demindex.Index, coverage float64) *mux.Router {
	s := &server{
		index:    index,
		coverage: coverage,
	}
	r := mux.NewRouter()
	r.HandleFunc("/height", s.handleHeight).Methods(http.MethodGet)
	r.HandleFunc("/map", s.handleMap).Methods(http.MethodGet)
	r.HandleFunc("/footprints", s.handleFootprints).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *server) handleHeight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := parsePosition(q.Get("lat"), q.Get("lon"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := heightResponse{Lat: p.Lat, Lon: p.Lon}
	if height := s.index.Height(p); !math.IsNaN(height) {
		resp.Height = &height
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *server) handleMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	field, err := parseBBox(q.Get("bbox"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	coverage := s.coverage
	if c := q.Get("coverage"); c != "" {
		coverage, err = strconv.ParseFloat(c, 64)
		if err != nil || coverage < 0 || coverage > 1 {
			http.Error(w, "invalid coverage", http.StatusBadRequest)
			return
		}
	}

	m, stats, err := s.index.CreateMap(field, coverage)
	switch {
	case errors.Is(err, demindex.ErrMapTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		sigolo.Errorf("Error creating map: %+v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	case m == nil:
		http.Error(w, "no data for requested bounding box", http.StatusNotFound)
		return
	}
	sigolo.Debugf("Serving map %s stitched from %d of %d tiles", m, stats.Contributed, stats.Requested)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("X-Tiles-Requested", strconv.Itoa(stats.Requested))
	w.Header().Set("X-Tiles-Contributed", strconv.Itoa(stats.Contributed))
	if err := m.WriteCSV(w); err != nil {
		sigolo.Errorf("Error writing map: %+v", err)
	}
}

func (s *server) handleFootprints(w http.ResponseWriter, _ *http.Request) {
	featureCollection := demindex.FootprintFeatureCollection(s.index.Footprints())
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(featureCollection); err != nil {
		sigolo.Errorf("Error writing footprints: %+v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.index.Ready() {
		http.Error(w, "no tiles", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
