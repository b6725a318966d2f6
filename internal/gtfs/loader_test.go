package gtfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFeed(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\nS1,Provença,41.3925,2.1577\nS2,Gràcia,41.3994,2.1527\n",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	stops, err := LoadFeed(context.Background(), srv.Client(), srv.URL+"/google_transit.zip", "FGC Suburban")
	require.NoError(t, err)
	require.Len(t, stops, 2)
	for _, s := range stops {
		assert.Equal(t, "FGC Suburban", s.Agency)
	}
}

func TestLoadFeed_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := LoadFeed(context.Background(), srv.Client(), srv.URL, "TMB Metro")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "TMB Metro")
	assert.Contains(t, err.Error(), "status 404")
}

func TestLoadFeed_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := LoadFeed(context.Background(), http.DefaultClient, url, "TMB Metro")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestLoadFeed_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadFeed(ctx, srv.Client(), srv.URL, "TMB Metro")
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, context.Canceled)
}
