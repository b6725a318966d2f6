package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/woozymasta/bcnstops/internal/geo"
	"github.com/woozymasta/bcnstops/internal/gtfs"
	"github.com/woozymasta/bcnstops/internal/stops"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Input  string `short:"i" long:"in"     description:"Input file path (GTFS zip or stops.txt). Reads from stdin if empty"`
	Output string `short:"o" long:"out"    description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Agency string `short:"a" long:"agency" description:"Agency label attached to every stop" required:"true"`
	Raw    bool   `short:"r" long:"raw"    description:"Skip deduplication by stop_id"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Read Input
	var inputData []byte
	var err error

	if opts.Input != "" {
		inputData, err = os.ReadFile(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
	} else {
		inputData, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	var list []gtfs.Stop
	if isZip(inputData) {
		list, err = gtfs.ParseStops(inputData)
	} else {
		list, err = gtfs.ReadStops(bytes.NewReader(inputData))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing stops: %v\n", err)
		os.Exit(1)
	}

	for i := range list {
		list[i].Agency = opts.Agency
	}

	total := len(list)
	if opts.Raw {
		// GeoJSON points need coordinates either way
		list = stops.DropMissingCoords(list)
	} else {
		list = stops.Clean(list)
	}

	// marshal
	outputData, err := json.MarshalIndent(geo.FeatureCollection(list), "", "  ")
	if err == nil && opts.Format == "yaml" {
		outputData, err = toYAML(outputData)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d of %d stops to %s (format: %s)\n",
			len(list), total, opts.Output, opts.Format)
	} else {
		fmt.Println(strings.TrimSpace(string(outputData)))
	}
}

// isZip checks for the local file header signature.
func isZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

// toYAML re-encodes GeoJSON so YAML output keeps the GeoJSON field names.
func toYAML(data []byte) ([]byte, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}
