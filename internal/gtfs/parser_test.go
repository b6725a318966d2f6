package gtfs

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func TestParseStops(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"agency.txt": "agency_id,agency_name\nTMB,TMB\n",
		"stops.txt": "stop_id,stop_code,stop_name,stop_lat,stop_lon,location_type\n" +
			"1.111,111,Catalunya,41.3870,2.1700,0\n" +
			"1.112,112,\"Passeig de Gràcia, L3\",41.3917,2.1649,0\n" +
			"1.113,113,Sense coordenades,,2.1800,0\n",
	})

	stops, err := ParseStops(archive)
	require.NoError(t, err)
	require.Len(t, stops, 3)

	assert.Equal(t, "1.111", stops[0].StopID)
	assert.Equal(t, "Catalunya", stops[0].StopName)
	require.True(t, stops[0].HasCoords())
	assert.InDelta(t, 41.3870, *stops[0].StopLat, 1e-9)
	assert.InDelta(t, 2.1700, *stops[0].StopLon, 1e-9)

	assert.Equal(t, "Passeig de Gràcia, L3", stops[1].StopName)

	assert.Nil(t, stops[2].StopLat)
	require.NotNil(t, stops[2].StopLon)
	assert.False(t, stops[2].HasCoords())

	for _, s := range stops {
		assert.Empty(t, s.Agency, "parser must not set the agency label")
	}
}

func TestParseStops_NestedFolderAndBOM(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"google_transit/Stops.TXT": "\ufeffstop_id, stop_name ,stop_lat,stop_lon\r\nA,Alpha,41.1,2.1\r\n",
	})

	stops, err := ParseStops(archive)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "A", stops[0].StopID)
	assert.Equal(t, "Alpha", stops[0].StopName)
}

func TestParseStops_NaNIsMissing(t *testing.T) {
	stops, err := ReadStops(strings.NewReader("stop_id,stop_name,stop_lat,stop_lon\nA,Alpha,NaN,2.1\n"))
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Nil(t, stops[0].StopLat)
}

func TestParseStops_ShortRowHasNoCoords(t *testing.T) {
	stops, err := ReadStops(strings.NewReader("stop_id,stop_name,stop_lat,stop_lon\nA,Alpha\n"))
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.False(t, stops[0].HasCoords())
}

func TestParseStops_Errors(t *testing.T) {
	tests := []struct {
		name    string
		archive []byte
		want    error
		msg     string
	}{
		{
			name:    "not a zip",
			archive: []byte("<html>maintenance</html>"),
			want:    ErrArchive,
		},
		{
			name:    "no stops file",
			archive: buildArchive(t, map[string]string{"routes.txt": "route_id\n1\n"}),
			want:    ErrArchive,
			msg:     "stops.txt not found",
		},
		{
			name:    "missing latitude column",
			archive: buildArchive(t, map[string]string{"stops.txt": "stop_id,stop_name,stop_lon\n1,A,2.1\n"}),
			want:    ErrMissingColumn,
			msg:     `"stop_lat"`,
		},
		{
			name:    "empty stops file",
			archive: buildArchive(t, map[string]string{"stops.txt": ""}),
			want:    ErrParse,
		},
		{
			name:    "bad coordinate",
			archive: buildArchive(t, map[string]string{"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n1,A,north,2.1\n"}),
			want:    ErrParse,
			msg:     "line 2",
		},
		{
			name:    "broken quoting",
			archive: buildArchive(t, map[string]string{"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n1,\"A,41.1,2.1\n"}),
			want:    ErrParse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStops(tc.archive)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			if tc.msg != "" {
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}
}
