package gtfs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// LoadFeed downloads one archive and returns its stops tagged with label.
func LoadFeed(ctx context.Context, client *http.Client, url, label string) ([]Stop, error) {
	log.Info().
		Str("agency", label).
		Str("source", url).
		Msgf("Downloading %s GTFS", label)

	archive, err := Fetch(ctx, client, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	stops, err := ParseStops(archive)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	for i := range stops {
		stops[i].Agency = label
	}

	log.Debug().
		Str("agency", label).
		Int("bytes", len(archive)).
		Int("stops", len(stops)).
		Msg("Feed parsed")

	return stops, nil
}
