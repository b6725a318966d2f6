// Package preview draws a static raster thumbnail of the stops.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/colornames"

	"github.com/woozymasta/bcnstops/internal/config"
	"github.com/woozymasta/bcnstops/internal/export"
	"github.com/woozymasta/bcnstops/internal/geo"
	"github.com/woozymasta/bcnstops/internal/gtfs"
	"github.com/woozymasta/bcnstops/internal/render"
)

// ErrNoStops is returned when there is nothing to draw.
var ErrNoStops = errors.New("no stops with coordinates")

// supersample is the factor of the working canvas over the final size.
const supersample = 2

// canvas maps WGS84 coordinates to pixels of a square image. The stops'
// bounding box is fitted and centered inside the padding.
type canvas struct {
	size   int
	scale  float64
	x0, y0 float64
	dx, dy float64
}

func newCanvas(stops []gtfs.Stop, size, padding int) (*canvas, error) {
	b, ok := geo.Bounds(stops)
	if !ok {
		return nil, ErrNoStops
	}

	minX, minY := geo.LonLatToMercator(b.Min.Lon(), b.Max.Lat())
	maxX, maxY := geo.LonLatToMercator(b.Max.Lon(), b.Min.Lat())

	inner := float64(size - 2*padding)
	if inner <= 0 {
		return nil, fmt.Errorf("padding %d leaves no room in %dpx", padding, size)
	}

	span := math.Max(maxX-minX, maxY-minY)
	scale := 1.0
	if span > 0 {
		scale = inner / span
	}

	return &canvas{
		size:  size,
		scale: scale,
		x0:    minX,
		y0:    minY,
		dx:    float64(padding) + (inner-(maxX-minX)*scale)/2,
		dy:    float64(padding) + (inner-(maxY-minY)*scale)/2,
	}, nil
}

func (c *canvas) project(lon, lat float64) image.Point {
	x, y := geo.LonLatToMercator(lon, lat)
	return image.Point{
		X: int(math.Round(c.dx + (x-c.x0)*c.scale)),
		Y: int(math.Round(c.dy + (y-c.y0)*c.scale)),
	}
}

// Render draws one dot per stop, colored like the map markers.
func Render(stops []gtfs.Stop, opts config.Preview, m config.Map) (image.Image, error) {
	hiSize := opts.Size * supersample
	c, err := newCanvas(stops, hiSize, opts.Padding*supersample)
	if err != nil {
		return nil, err
	}

	hi := image.NewRGBA(image.Rect(0, 0, hiSize, hiSize))
	draw.Draw(hi, hi.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	radius := int(math.Max(1, math.Round(opts.DotRadius*supersample)))
	alpha := uint8(math.Round(m.FillOpacity * 255))

	fills := make(map[string]*image.Uniform)
	for _, s := range stops {
		if !s.HasCoords() {
			continue
		}

		name := render.MarkerColor(s.Agency, m)
		fill, ok := fills[name]
		if !ok {
			rgb := ParseColor(name)
			fill = image.NewUniform(color.NRGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: alpha})
			fills[name] = fill
		}

		dot := &circle{p: c.project(s.Lon(), s.Lat()), r: radius}
		draw.DrawMask(hi, dot.Bounds(), fill, image.Point{}, dot, dot.Bounds().Min, draw.Over)
	}

	out := image.NewRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	xdraw.CatmullRom.Scale(out, out.Bounds(), hi, hi.Bounds(), draw.Over, nil)

	return out, nil
}

// WriteWebP renders the preview and encodes it to path.
func WriteWebP(path string, stops []gtfs.Stop, opts config.Preview, m config.Map) (err error) {
	img, err := Render(stops, opts, m)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %s: %w", export.ErrWrite, path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", export.ErrWrite, path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: %s: %w", export.ErrWrite, path, closeErr)
		}
	}()

	if err := webp.Encode(f, img, &webp.Options{Lossless: false, Quality: opts.Quality}); err != nil {
		return fmt.Errorf("%w: %s: %w", export.ErrWrite, path, err)
	}

	log.Debug().
		Str("path", path).
		Int("size", opts.Size).
		Msg("Preview written")

	return nil
}

// ParseColor accepts CSS color names and #rgb/#rrggbb. Unknown values are gray.
func ParseColor(s string) color.RGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[s]; ok {
		return c
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
		}
	}

	return color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 255}
}

// circle is an alpha mask for a filled disc.
type circle struct {
	p image.Point
	r int
}

func (c *circle) ColorModel() color.Model {
	return color.AlphaModel
}

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.p.X-c.r, c.p.Y-c.r, c.p.X+c.r+1, c.p.Y+c.r+1)
}

func (c *circle) At(x, y int) color.Color {
	xx, yy, rr := float64(x-c.p.X), float64(y-c.p.Y), float64(c.r)+0.5
	if xx*xx+yy*yy <= rr*rr {
		return color.Alpha{A: 255}
	}
	return color.Alpha{A: 0}
}
