package server

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/bcnstops/assets"
	"github.com/woozymasta/bcnstops/internal/config"
	"github.com/woozymasta/bcnstops/internal/processor"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Outputs config.Outputs
	Favicon []byte
}

// NewServerContext checks which outputs of the last run are present in the
// output directory and logs what will be served.
func NewServerContext(cfg *config.Config) *ServerContext {
	out := cfg.Outputs

	log.Info().Str("dir", out.Dir).Msg("Initializing server context")

	check := func(kind, name string) {
		if name == "" {
			log.Trace().Str("output", kind).Msg("Output disabled in config")
			return
		}
		if _, err := os.Stat(out.Path(name)); os.IsNotExist(err) {
			log.Warn().
				Str("output", kind).
				Str("path", out.Path(name)).
				Msg("Output not found, run the loader first")
			return
		}
		log.Debug().Str("output", kind).Str("path", out.Path(name)).Msg("Output found")
	}

	check("html", out.HTML)
	check("shapefile", out.Shapefile)
	check("geojson", out.GeoJSON)
	check("geopackage", out.GeoPackage)
	check("preview", out.Preview)
	check("manifest", out.Manifest)

	if out.Manifest != "" {
		if m, err := processor.ReadManifest(out.Path(out.Manifest)); err == nil {
			log.Info().
				Str("run_id", m.RunID).
				Str("generated_at", m.GeneratedAt).
				Int("stops", m.Stops).
				Msg("Serving outputs of last run")
		}
	}

	return &ServerContext{
		Outputs: out,
		Favicon: assets.Favicon,
	}
}
