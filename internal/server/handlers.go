// Package server serves the pipeline outputs over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb/geojson"

	"github.com/woozymasta/bcnstops/internal/export"
	"github.com/woozymasta/bcnstops/internal/geo"
	"github.com/woozymasta/bcnstops/internal/gtfs"
	"github.com/woozymasta/bcnstops/internal/processor"
	"github.com/woozymasta/bcnstops/internal/stops"
)

const etagCap = 64

// PropDistance is the feature property holding the distance in meters.
const PropDistance = "distance_m"

// Router wires the handlers and middleware.
func (s *ServerContext) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", s.HandleIndex)
	r.Get("/favicon.svg", s.HandleFavicon)
	r.Get("/health", s.HandleHealth)
	r.Get("/api/manifest", s.HandleManifest)
	r.Get("/api/stops", s.HandleStops)
	r.Get("/api/stops/nearest", s.HandleNearest)
	r.Get("/files/*", s.HandleFile)

	return r
}

// HandleIndex serves the rendered map document.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.serveFile(w, r, s.Outputs.Path(s.Outputs.HTML), "text/html; charset=utf-8") {
		http.Error(w, "map not generated yet", http.StatusNotFound)
	}
}

// HandleFavicon serves the site icon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleHealth reports whether the map document exists.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if _, err := os.Stat(s.Outputs.Path(s.Outputs.HTML)); err != nil {
		status, code = "missing outputs", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]string{"status": status})
}

// HandleManifest serves the manifest of the last run.
func (s *ServerContext) HandleManifest(w http.ResponseWriter, r *http.Request) {
	m, err := s.manifest()
	if err != nil {
		http.Error(w, "manifest not available", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// HandleStops serves the exported stops as GeoJSON. With ?agency= only that
// agency's features are returned. X-Total-Count carries the feature count.
func (s *ServerContext) HandleStops(w http.ResponseWriter, r *http.Request) {
	list, ok := s.readStops(w, r)
	if !ok {
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, stop := range byAgency(list, r.URL.Query().Get("agency")) {
		fc.Append(geo.Feature(stop))
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("X-Total-Count", strconv.Itoa(len(fc.Features)))
	_ = json.NewEncoder(w).Encode(fc)
}

// HandleNearest returns the stop closest to ?lat=&lon= as a GeoJSON feature
// with its great-circle distance in meters. ?agency= narrows the search.
func (s *ServerContext) HandleNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		http.Error(w, "lat must be a number in [-90, 90]", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		http.Error(w, "lon must be a number in [-180, 180]", http.StatusBadRequest)
		return
	}

	list, ok := s.readStops(w, r)
	if !ok {
		return
	}

	nearest, meters, found := stops.Nearest(byAgency(list, q.Get("agency")), lat, lon)
	if !found {
		http.Error(w, "no stops", http.StatusNotFound)
		return
	}

	f := geo.Feature(nearest)
	f.Properties[PropDistance] = math.Round(meters*10) / 10

	w.Header().Set("Content-Type", "application/geo+json")
	_ = json.NewEncoder(w).Encode(f)
}

// readStops loads the GeoJSON export. On failure it writes the response and
// returns false.
func (s *ServerContext) readStops(w http.ResponseWriter, r *http.Request) ([]gtfs.Stop, bool) {
	if s.Outputs.GeoJSON == "" {
		http.NotFound(w, r)
		return nil, false
	}

	list, err := export.ReadGeoJSON(s.Outputs.Path(s.Outputs.GeoJSON))
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}

	return list, true
}

func byAgency(list []gtfs.Stop, agency string) []gtfs.Stop {
	if agency == "" {
		return list
	}

	out := make([]gtfs.Stop, 0, len(list))
	for _, stop := range list {
		if stop.Agency == agency {
			out = append(out, stop)
		}
	}
	return out
}

// HandleFile serves a single output by its manifest name, which may contain
// subdirectories. Only files listed in the manifest are reachable.
func (s *ServerContext) HandleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" || path.IsAbs(name) || strings.Contains(name, "..") {
		http.NotFound(w, r)
		return
	}

	m, err := s.manifest()
	if err != nil || !m.Has(name) {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(name)+`"`)
	if !s.serveFile(w, r, s.Outputs.Path(filepath.FromSlash(name)), "") {
		w.Header().Del("Content-Disposition")
		http.NotFound(w, r)
	}
}

func (s *ServerContext) manifest() (*processor.Manifest, error) {
	if s.Outputs.Manifest == "" {
		return nil, os.ErrNotExist
	}
	return processor.ReadManifest(s.Outputs.Path(s.Outputs.Manifest))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, file string, contentType string) bool {
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, file)
	return true
}
