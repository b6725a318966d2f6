// Package render builds the standalone interactive map document.
package render

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/woozymasta/bcnstops/assets"
	"github.com/woozymasta/bcnstops/internal/config"
	"github.com/woozymasta/bcnstops/internal/export"
	"github.com/woozymasta/bcnstops/internal/gtfs"
	"github.com/woozymasta/bcnstops/internal/stops"
)

// Leaflet is loaded from a CDN; everything else is inlined.
const (
	leafletCSS = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"
	leafletJS  = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"
)

// Marker is one circle marker as serialized into the document.
type Marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Color string  `json:"color"`
	Popup string  `json:"popup"`
}

// LegendEntry is one agency row of the legend.
type LegendEntry struct {
	Label string
	Color string
	Count int
}

type mapConfig struct {
	Center      [2]float64 `json:"center"`
	Zoom        int        `json:"zoom"`
	Tiles       string     `json:"tiles"`
	Attribution string     `json:"attribution"`
	Radius      float64    `json:"radius"`
	FillOpacity float64    `json:"fillOpacity"`
}

type pageData struct {
	Title      string
	Icon       string
	LeafletCSS string
	LeafletJS  string
	CSS        string
	JS         string
	Config     string
	Stops      string
	Legend     []LegendEntry
	Total      int
}

// MarkerColor is a binary choice: PrimaryColor for PrimaryAgency, and
// SecondaryColor for every other label.
func MarkerColor(agency string, m config.Map) string {
	if agency == m.PrimaryAgency {
		return m.PrimaryColor
	}
	return m.SecondaryColor
}

// Popup returns the escaped "name (agency)" popup text.
func Popup(s gtfs.Stop) string {
	return html.EscapeString(fmt.Sprintf("%s (%s)", s.StopName, s.Agency))
}

// Markers converts stops to markers. Stops without coordinates are skipped.
func Markers(list []gtfs.Stop, m config.Map) []Marker {
	markers := make([]Marker, 0, len(list))
	for _, s := range list {
		if !s.HasCoords() {
			continue
		}
		markers = append(markers, Marker{
			Lat:   s.Lat(),
			Lon:   s.Lon(),
			Color: MarkerColor(s.Agency, m),
			Popup: Popup(s),
		})
	}
	return markers
}

// Legend lists agencies in first-seen order with their marker color.
func Legend(list []gtfs.Stop, m config.Map) []LegendEntry {
	counts := stops.CountByAgency(list)

	var entries []LegendEntry
	for _, agency := range stops.Agencies(list) {
		entries = append(entries, LegendEntry{
			Label: agency,
			Color: MarkerColor(agency, m),
			Count: counts[agency],
		})
	}
	return entries
}

// Renderer holds the parsed template and the minified static parts.
type Renderer struct {
	tmpl *template.Template
	min  *minify.M
	css  string
	js   string
	icon string
}

// New parses the embedded template and minifies the CSS, JS and icon once.
func New() (*Renderer, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", minhtml.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	cssMin, err := m.String("text/css", assets.MapCSS)
	if err != nil {
		return nil, fmt.Errorf("minify CSS: %w", err)
	}

	jsMin, err := m.String("text/javascript", assets.MapJS)
	if err != nil {
		return nil, fmt.Errorf("minify JS: %w", err)
	}

	svgMin, err := m.String("image/svg+xml", string(assets.Favicon))
	if err != nil {
		return nil, fmt.Errorf("minify SVG: %w", err)
	}

	tmpl, err := template.New("map").Parse(assets.MapTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	return &Renderer{
		tmpl: tmpl,
		min:  m,
		css:  cssMin,
		js:   jsMin,
		icon: base64.StdEncoding.EncodeToString([]byte(svgMin)),
	}, nil
}

// Render writes the minified document for the stops to w.
func (r *Renderer) Render(w io.Writer, list []gtfs.Stop, m config.Map) error {
	cfgJSON, err := json.Marshal(mapConfig{
		Center:      [2]float64{m.CenterLat, m.CenterLon},
		Zoom:        m.Zoom,
		Tiles:       m.Tiles,
		Attribution: m.Attribution,
		Radius:      m.Radius,
		FillOpacity: m.FillOpacity,
	})
	if err != nil {
		return err
	}

	// json.Marshal escapes <, > and &, so the payload is safe inside <script>.
	stopsJSON, err := json.Marshal(Markers(list, m))
	if err != nil {
		return err
	}

	legend := Legend(list, m)
	for i := range legend {
		legend[i].Label = html.EscapeString(legend[i].Label)
		legend[i].Color = html.EscapeString(legend[i].Color)
	}

	var buf bytes.Buffer
	err = r.tmpl.Execute(&buf, pageData{
		Title:      html.EscapeString(m.Title),
		Icon:       r.icon,
		LeafletCSS: leafletCSS,
		LeafletJS:  leafletJS,
		CSS:        r.css,
		JS:         r.js,
		Config:     string(cfgJSON),
		Stops:      string(stopsJSON),
		Legend:     legend,
		Total:      len(list),
	})
	if err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	return r.min.Minify("text/html", w, &buf)
}

// WriteFile renders the document to path, replacing any previous file.
func (r *Renderer) WriteFile(path string, list []gtfs.Stop, m config.Map) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, list, m); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %s: %w", export.ErrWrite, path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", export.ErrWrite, path, err)
	}

	return nil
}
