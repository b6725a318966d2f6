// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Feeds   []Feed  `yaml:"feeds" json:"feeds" validate:"required,min=1,dive"`
	Outputs Outputs `yaml:"outputs" json:"outputs"`
	Map     Map     `yaml:"map" json:"map"`
	Preview Preview `yaml:"preview" json:"preview"`

	// Zero means the HTTP client never times out.
	HTTPTimeout time.Duration `yaml:"http_timeout,omitempty" json:"http_timeout,omitempty" validate:"gte=0"`
}

// Feed is a single GTFS archive and the agency label attached to its stops.
type Feed struct {
	Label string `yaml:"label" json:"label" validate:"required"`
	URL   string `yaml:"url" json:"url" validate:"required,url"`
}

// Outputs lists the files written by a run. Relative paths are resolved
// against Dir. An empty optional path disables that output.
type Outputs struct {
	Dir        string `yaml:"dir,omitempty" json:"dir,omitempty"`
	Shapefile  string `yaml:"shapefile" json:"shapefile" validate:"required"`
	HTML       string `yaml:"html" json:"html" validate:"required"`
	GeoJSON    string `yaml:"geojson,omitempty" json:"geojson,omitempty"`
	GeoPackage string `yaml:"geopackage,omitempty" json:"geopackage,omitempty"`
	Preview    string `yaml:"preview,omitempty" json:"preview,omitempty"`
	Manifest   string `yaml:"manifest,omitempty" json:"manifest,omitempty"`
}

// Map describes the interactive map document.
type Map struct {
	Title       string  `yaml:"title" json:"title"`
	CenterLat   float64 `yaml:"center_lat" json:"center_lat" validate:"gte=-90,lte=90"`
	CenterLon   float64 `yaml:"center_lon" json:"center_lon" validate:"gte=-180,lte=180"`
	Zoom        int     `yaml:"zoom" json:"zoom" validate:"gte=0,lte=20"`
	Tiles       string  `yaml:"tiles" json:"tiles" validate:"required"`
	Attribution string  `yaml:"attribution,omitempty" json:"attribution,omitempty"`

	// Stops of PrimaryAgency get PrimaryColor, everything else SecondaryColor.
	PrimaryAgency  string  `yaml:"primary_agency" json:"primary_agency"`
	PrimaryColor   string  `yaml:"primary_color" json:"primary_color" validate:"required"`
	SecondaryColor string  `yaml:"secondary_color" json:"secondary_color" validate:"required"`
	Radius         float64 `yaml:"radius" json:"radius" validate:"gt=0"`
	FillOpacity    float64 `yaml:"fill_opacity" json:"fill_opacity" validate:"gte=0,lte=1"`
}

// Preview configures the raster thumbnail.
type Preview struct {
	Size      int     `yaml:"size" json:"size" validate:"gte=64,lte=8192"`
	Padding   int     `yaml:"padding" json:"padding" validate:"gte=0"`
	DotRadius float64 `yaml:"dot_radius" json:"dot_radius" validate:"gt=0"`
	Quality   float32 `yaml:"quality" json:"quality" validate:"gt=0,lte=100"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Feeds: []Feed{
			{
				Label: "TMB Metro",
				URL:   "https://opendata.tmb.cat/dataset/2ad53d5a-3c7a-4cfa-86b3-b77f97a6e8d0/resource/af3f18cc-f2c5-44b4-92ef-08fa9e8a57b1/download/google_transit.zip",
			},
			{
				Label: "FGC Suburban",
				URL:   "https://opendata.fgc.cat/dataset/e8ce3b04-0d90-4a46-b733-77f9dd12b561/resource/61a02b76-9e2e-4a58-a7b8-3625166b1db3/download/google_transit.zip",
			},
		},
		Outputs: Outputs{
			Dir:        ".",
			Shapefile:  "barcelona_metro_suburban_stops.shp",
			HTML:       "barcelona_transit_stops.html",
			GeoJSON:    "barcelona_transit_stops.geojson",
			GeoPackage: "barcelona_transit_stops.gpkg",
			Preview:    "barcelona_transit_stops.webp",
			Manifest:   "manifest.json",
		},
		Map: Map{
			Title: "Barcelona metro & suburban stops",
			// Plaça Catalunya
			CenterLat:      41.3851,
			CenterLon:      2.1734,
			Zoom:           11,
			Tiles:          "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
			Attribution:    `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
			PrimaryAgency:  "TMB Metro",
			PrimaryColor:   "blue",
			SecondaryColor: "green",
			Radius:         3,
			FillOpacity:    0.7,
		},
		Preview: Preview{
			Size:      1024,
			Padding:   32,
			DotRadius: 3,
			Quality:   85,
		},
	}
}

// Load reads the YAML configuration file over the defaults.
// An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// Path resolves an output file name against Dir.
// Empty names stay empty so callers can treat them as disabled.
func (o Outputs) Path(name string) string {
	if name == "" || filepath.IsAbs(name) || o.Dir == "" {
		return name
	}

	return filepath.Join(o.Dir, name)
}
