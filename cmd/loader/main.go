package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/bcnstops/internal/config"
	"github.com/woozymasta/bcnstops/internal/logger"
	"github.com/woozymasta/bcnstops/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile   string `short:"c" long:"config"  env:"CONFIG_FILE"  description:"Path to configuration file (built-in defaults when empty)"`
	OutDir       string `short:"o" long:"out-dir" env:"OUT_DIR"      description:"Output directory (overrides config)"`
	Timeout      string `short:"t" long:"timeout" env:"HTTP_TIMEOUT" description:"Feed download timeout such as 30s, 0 disables (overrides config)"`
	NoGeoJSON    bool   `long:"no-geojson"    description:"Skip GeoJSON export"`
	NoGeoPackage bool   `long:"no-geopackage" description:"Skip GeoPackage export"`
	NoPreview    bool   `long:"no-preview"    description:"Skip WebP preview"`
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := applyOptions(cfg, opts); err != nil {
		log.Fatal().Err(err).Msg("Invalid options")
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("feeds", len(cfg.Feeds)).
		Str("out_dir", cfg.Outputs.Dir).
		Dur("timeout", cfg.HTTPTimeout).
		Msg("Starting loader")

	manifest, err := processor.Run(ctx, client, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Pipeline failed")
	}

	log.Info().
		Str("run_id", manifest.RunID).
		Int("stops", manifest.Stops).
		Strs("outputs", manifest.Outputs).
		Msg("Loader finished successfully")
}

// applyOptions overlays command line overrides on cfg and validates the
// result again.
func applyOptions(cfg *config.Config, opts Options) error {
	if opts.OutDir != "" {
		cfg.Outputs.Dir = opts.OutDir
	}
	if opts.Timeout != "" {
		timeout, err := time.ParseDuration(opts.Timeout)
		if err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
		cfg.HTTPTimeout = timeout
	}
	if opts.NoGeoJSON {
		cfg.Outputs.GeoJSON = ""
	}
	if opts.NoGeoPackage {
		cfg.Outputs.GeoPackage = ""
	}
	if opts.NoPreview {
		cfg.Outputs.Preview = ""
	}

	return cfg.Validate()
}
