// Package stops merges per-agency stop tables and cleans the result.
package stops

import (
	"github.com/woozymasta/bcnstops/internal/gtfs"
)

// Merge concatenates tables in argument order.
func Merge(tables ...[]gtfs.Stop) []gtfs.Stop {
	total := 0
	for _, t := range tables {
		total += len(t)
	}

	merged := make([]gtfs.Stop, 0, total)
	for _, t := range tables {
		merged = append(merged, t...)
	}
	return merged
}

// Dedupe keeps the first row of every stop_id. Later rows are dropped even
// when their attributes differ.
func Dedupe(stops []gtfs.Stop) []gtfs.Stop {
	seen := make(map[string]struct{}, len(stops))
	out := make([]gtfs.Stop, 0, len(stops))

	for _, s := range stops {
		if _, ok := seen[s.StopID]; ok {
			continue
		}
		seen[s.StopID] = struct{}{}
		out = append(out, s)
	}
	return out
}

// DropMissingCoords removes rows lacking latitude or longitude.
func DropMissingCoords(stops []gtfs.Stop) []gtfs.Stop {
	out := make([]gtfs.Stop, 0, len(stops))
	for _, s := range stops {
		if s.HasCoords() {
			out = append(out, s)
		}
	}
	return out
}

// Clean merges the tables, then dedupes, then drops rows without coordinates.
// Dedupe runs first, so a stop whose first row has no coordinates is dropped
// entirely rather than replaced by a later row.
func Clean(tables ...[]gtfs.Stop) []gtfs.Stop {
	return DropMissingCoords(Dedupe(Merge(tables...)))
}

// CountByAgency returns the number of stops per agency label.
func CountByAgency(stops []gtfs.Stop) map[string]int {
	counts := make(map[string]int)
	for _, s := range stops {
		counts[s.Agency]++
	}
	return counts
}

// Agencies returns the distinct agency labels in first-seen order.
func Agencies(stops []gtfs.Stop) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, s := range stops {
		if _, ok := seen[s.Agency]; ok {
			continue
		}
		seen[s.Agency] = struct{}{}
		labels = append(labels, s.Agency)
	}
	return labels
}
