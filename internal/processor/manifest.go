package processor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/woozymasta/bcnstops/internal/export"
)

// Manifest summarizes a run. It is written next to the outputs.
type Manifest struct {
	RunID       string         `json:"run_id"`
	GeneratedAt string         `json:"generated_at"`
	Feeds       []FeedSummary  `json:"feeds"`
	Stops       int            `json:"stops"`
	ByAgency    map[string]int `json:"by_agency"`
	Cleaning    CleanStats     `json:"cleaning"`
	Outputs     []string       `json:"outputs"`
}

// FeedSummary is the per-feed row count before cleaning.
type FeedSummary struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Rows  int    `json:"rows"`
}

// NewManifest starts a manifest with a fresh run id.
func NewManifest() *Manifest {
	return &Manifest{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Has reports whether name is one of the written outputs.
func (m *Manifest) Has(name string) bool {
	for _, o := range m.Outputs {
		if o == name {
			return true
		}
	}
	return false
}

// WriteManifest writes m as indented JSON, replacing path.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %s: %w", export.ErrWrite, path, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", export.ErrWrite, path, err)
	}

	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &m, nil
}
