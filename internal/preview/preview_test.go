package preview

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/bcnstops/internal/config"
	"github.com/woozymasta/bcnstops/internal/gtfs"
)

func sampleStops() []gtfs.Stop {
	return []gtfs.Stop{
		{StopID: "1", StopName: "Catalunya", StopLat: gtfs.Coord(41.3870), StopLon: gtfs.Coord(2.1700), Agency: "TMB Metro"},
		{StopID: "2", StopName: "Sant Cugat", StopLat: gtfs.Coord(41.4702), StopLon: gtfs.Coord(2.0818), Agency: "FGC Suburban"},
		{StopID: "3", StopName: "Sants", StopLat: gtfs.Coord(41.3791), StopLon: gtfs.Coord(2.1400), Agency: "TMB Metro"},
	}
}

func rgb(img image.Image, p image.Point) (r, g, b uint32) {
	r, g, b, _ = img.At(p.X, p.Y).RGBA()
	return r >> 8, g >> 8, b >> 8
}

func TestRender(t *testing.T) {
	cfg := config.Default()
	cfg.Preview.Size = 256
	cfg.Preview.Padding = 16

	img, err := Render(sampleStops(), cfg.Preview, cfg.Map)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())

	r, g, b := rgb(img, image.Point{1, 1})
	assert.Equal(t, [3]uint32{255, 255, 255}, [3]uint32{r, g, b}, "background")

	c, err := newCanvas(sampleStops(), 256, 16)
	require.NoError(t, err)

	tmb := c.project(2.1700, 41.3870)
	r, g, b = rgb(img, tmb)
	assert.Greater(t, b, r, "TMB stop is blue")
	assert.Greater(t, b, g, "TMB stop is blue")

	fgc := c.project(2.0818, 41.4702)
	r, g, b = rgb(img, fgc)
	assert.Greater(t, g, r, "FGC stop is green")
	assert.Greater(t, g, b, "FGC stop is green")
}

func TestCanvas_FitsInsidePadding(t *testing.T) {
	c, err := newCanvas(sampleStops(), 200, 20)
	require.NoError(t, err)

	for _, s := range sampleStops() {
		p := c.project(s.Lon(), s.Lat())
		assert.True(t, p.In(image.Rect(20, 20, 181, 181)), "%s at %v", s.StopName, p)
	}

	// north-west corner of the box maps to the top-left side
	west := c.project(2.0818, 41.4702)
	east := c.project(2.1700, 41.3870)
	assert.Less(t, west.X, east.X)
	assert.Less(t, west.Y, east.Y)
}

func TestCanvas_SingleStop(t *testing.T) {
	c, err := newCanvas(sampleStops()[:1], 100, 10)
	require.NoError(t, err)
	assert.Equal(t, image.Point{50, 50}, c.project(2.1700, 41.3870))
}

func TestRender_NoStops(t *testing.T) {
	cfg := config.Default()
	_, err := Render([]gtfs.Stop{{StopID: "x"}}, cfg.Preview, cfg.Map)
	assert.ErrorIs(t, err, ErrNoStops)
}

func TestWriteWebP(t *testing.T) {
	cfg := config.Default()
	cfg.Preview.Size = 128
	path := filepath.Join(t.TempDir(), "preview.webp")

	require.NoError(t, WriteWebP(path, sampleStops(), cfg.Preview, cfg.Map))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := webp.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, ParseColor("blue"))
	assert.Equal(t, color.RGBA{0, 128, 0, 255}, ParseColor("Green"))
	assert.Equal(t, color.RGBA{0xce, 0x11, 0x26, 255}, ParseColor("#CE1126"))
	assert.Equal(t, color.RGBA{0xff, 0x00, 0xaa, 255}, ParseColor("#f0a"))
	assert.Equal(t, color.RGBA{0x88, 0x88, 0x88, 255}, ParseColor("not-a-color"))
}
