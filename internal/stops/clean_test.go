package stops

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/bcnstops/internal/gtfs"
)

func stop(id string, lat, lon *float64, agency string) gtfs.Stop {
	return gtfs.Stop{StopID: id, StopName: "Stop " + id, StopLat: lat, StopLon: lon, Agency: agency}
}

func TestClean_Scenario(t *testing.T) {
	tmb := []gtfs.Stop{
		stop("1", gtfs.Coord(41.0), gtfs.Coord(2.0), "TMB"),
		stop("2", nil, gtfs.Coord(2.1), "TMB"),
	}
	fgc := []gtfs.Stop{
		stop("1", gtfs.Coord(41.0), gtfs.Coord(2.0), "FGC"),
		stop("3", gtfs.Coord(41.2), gtfs.Coord(2.3), "FGC"),
	}

	got := Clean(tmb, fgc)
	require.Len(t, got, 2)

	assert.Equal(t, "1", got[0].StopID)
	assert.Equal(t, "TMB", got[0].Agency)
	assert.Equal(t, "3", got[1].StopID)
	assert.Equal(t, "FGC", got[1].Agency)
}

func TestDedupe_FirstOccurrenceWins(t *testing.T) {
	in := []gtfs.Stop{
		{StopID: "X", StopName: "Espanya", StopLat: gtfs.Coord(41.375), StopLon: gtfs.Coord(2.149), Agency: "TMB Metro"},
		{StopID: "X", StopName: "Pl. Espanya", StopLat: gtfs.Coord(41.374), StopLon: gtfs.Coord(2.147), Agency: "FGC Suburban"},
	}

	got := Dedupe(in)
	require.Len(t, got, 1)
	assert.Equal(t, in[0], got[0])
}

func TestClean_Invariants(t *testing.T) {
	a := []gtfs.Stop{
		stop("1", gtfs.Coord(41.1), gtfs.Coord(2.1), "A"),
		stop("2", gtfs.Coord(41.2), nil, "A"),
		stop("3", nil, nil, "A"),
		stop("1", gtfs.Coord(41.9), gtfs.Coord(2.9), "A"),
	}
	b := []gtfs.Stop{
		stop("4", gtfs.Coord(41.4), gtfs.Coord(2.4), "B"),
		stop("2", gtfs.Coord(41.2), gtfs.Coord(2.2), "B"),
		stop("5", gtfs.Coord(41.5), gtfs.Coord(2.5), "B"),
	}

	got := Clean(a, b)

	seen := map[string]bool{}
	for _, s := range got {
		assert.False(t, seen[s.StopID], "duplicate stop_id %s", s.StopID)
		seen[s.StopID] = true
		assert.NotNil(t, s.StopLat)
		assert.NotNil(t, s.StopLon)
	}

	// "2" first appears without a longitude, so it is gone even though B has it.
	assert.Equal(t, []string{"1", "4", "5"}, ids(got))
}

func TestClean_Idempotent(t *testing.T) {
	in := []gtfs.Stop{
		stop("1", gtfs.Coord(41.1), gtfs.Coord(2.1), "A"),
		stop("1", gtfs.Coord(41.1), gtfs.Coord(2.1), "B"),
		stop("2", nil, gtfs.Coord(2.2), "A"),
		stop("3", gtfs.Coord(41.3), gtfs.Coord(2.3), "B"),
	}

	once := Clean(in)
	twice := Clean(once)
	assert.Equal(t, once, twice)
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	in := []gtfs.Stop{
		stop("1", nil, gtfs.Coord(2.1), "A"),
		stop("2", gtfs.Coord(41.2), gtfs.Coord(2.2), "A"),
	}
	snapshot := append([]gtfs.Stop(nil), in...)

	_ = Clean(in)
	assert.Equal(t, snapshot, in)
}

func TestMerge_PreservesOrder(t *testing.T) {
	got := Merge(
		[]gtfs.Stop{{StopID: "a"}, {StopID: "b"}},
		nil,
		[]gtfs.Stop{{StopID: "c"}},
	)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].StopID)
	assert.Equal(t, "b", got[1].StopID)
	assert.Equal(t, "c", got[2].StopID)
}

func TestClean_Empty(t *testing.T) {
	assert.Empty(t, Clean())
	assert.Empty(t, Clean(nil, nil))
}

func TestCountByAgency(t *testing.T) {
	in := []gtfs.Stop{{Agency: "TMB Metro"}, {Agency: "FGC Suburban"}, {Agency: "TMB Metro"}}
	assert.Equal(t, map[string]int{"TMB Metro": 2, "FGC Suburban": 1}, CountByAgency(in))
	assert.Equal(t, []string{"TMB Metro", "FGC Suburban"}, Agencies(in))
}

func ids(list []gtfs.Stop) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.StopID
	}
	sort.Strings(out)
	return out
}
