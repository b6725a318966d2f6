package stops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/bcnstops/internal/gtfs"
)

func TestNearest(t *testing.T) {
	list := []gtfs.Stop{
		stop("catalunya", gtfs.Coord(41.3870), gtfs.Coord(2.1700), "TMB Metro"),
		stop("provenca", gtfs.Coord(41.3926), gtfs.Coord(2.1580), "FGC Suburban"),
		stop("sants", gtfs.Coord(41.3791), gtfs.Coord(2.1404), "TMB Metro"),
	}

	got, meters, ok := Nearest(list, 41.3925, 2.1585)
	require.True(t, ok)
	assert.Equal(t, "provenca", got.StopID)
	assert.InDelta(t, 43, meters, 3)

	got, meters, ok = Nearest(list, 41.3870, 2.1700)
	require.True(t, ok)
	assert.Equal(t, "catalunya", got.StopID)
	assert.InDelta(t, 0, meters, 1e-6)
}

func TestNearest_Distance(t *testing.T) {
	// Plaça Catalunya to Sants Estació is roughly 2.6 km
	list := []gtfs.Stop{stop("sants", gtfs.Coord(41.3791), gtfs.Coord(2.1404), "TMB Metro")}

	_, meters, ok := Nearest(list, 41.3870, 2.1700)
	require.True(t, ok)
	assert.InDelta(t, 2630, meters, 100)
}

func TestNearest_SkipsMissingCoords(t *testing.T) {
	list := []gtfs.Stop{
		stop("ghost", nil, gtfs.Coord(2.1700), "TMB Metro"),
		stop("far", gtfs.Coord(41.5), gtfs.Coord(2.3), "FGC Suburban"),
	}

	got, _, ok := Nearest(list, 41.3870, 2.1700)
	require.True(t, ok)
	assert.Equal(t, "far", got.StopID)
}

func TestNearest_TieKeepsFirst(t *testing.T) {
	list := []gtfs.Stop{
		stop("a", gtfs.Coord(41.0), gtfs.Coord(2.0), "TMB Metro"),
		stop("b", gtfs.Coord(41.0), gtfs.Coord(2.0), "FGC Suburban"),
	}

	got, _, ok := Nearest(list, 41.1, 2.1)
	require.True(t, ok)
	assert.Equal(t, "a", got.StopID)
}

func TestNearest_Empty(t *testing.T) {
	_, _, ok := Nearest(nil, 41.3870, 2.1700)
	assert.False(t, ok)

	_, _, ok = Nearest([]gtfs.Stop{stop("ghost", nil, nil, "TMB Metro")}, 41.3870, 2.1700)
	assert.False(t, ok)
}
