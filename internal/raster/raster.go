// Package raster holds the in-memory grid model shared by the compositing,
// plotting and export stages: multi-band float64 planes on a regular
// lon/lat grid with a simple affine geotransform.
package raster

import (
	"fmt"
	"math"

	"github.com/coastcube/filmstrip/internal/geo"
)

// Spectral band names used across the pipeline, in plotting order.
// These follow the Landsat surface-reflectance convention.
var SpectralBands = []string{"blue", "green", "red", "nir", "swir1", "swir2"}

// QABand is the per-scene pixel-quality plane: nonzero means the pixel is
// cloud or cloud shadow and must be excluded from compositing.
const QABand = "qa"

// ChangeBand is the derived change-heatmap plane on composite grids
const ChangeBand = "change"

// Grid is a stack of equally-sized band planes on a north-up lon/lat grid.
// OriginLon/OriginLat is the outer corner of the top-left pixel; rows run
// south, so latitude decreases with row index.
type Grid struct {
	Width  int `msgpack:"width"`
	Height int `msgpack:"height"`

	OriginLon float64 `msgpack:"origin_lon"`
	OriginLat float64 `msgpack:"origin_lat"`

	// Pixel sizes in degrees, both stored positive
	PixelWidth  float64 `msgpack:"pixel_width"`
	PixelHeight float64 `msgpack:"pixel_height"`

	BandNames []string    `msgpack:"band_names"`
	Planes    [][]float64 `msgpack:"planes"`
}

// NewGrid allocates a grid with the given bands, all pixels NaN (nodata)
func NewGrid(width, height int, originLon, originLat, pxW, pxH float64, bands []string) *Grid {
	g := &Grid{
		Width:       width,
		Height:      height,
		OriginLon:   originLon,
		OriginLat:   originLat,
		PixelWidth:  pxW,
		PixelHeight: pxH,
		BandNames:   append([]string(nil), bands...),
		Planes:      make([][]float64, len(bands)),
	}
	for i := range g.Planes {
		plane := make([]float64, width*height)
		for j := range plane {
			plane[j] = math.NaN()
		}
		g.Planes[i] = plane
	}
	return g
}

// GridForBounds sizes a grid to cover the bounding box at the given
// resolution. The grid snaps outward so the box is fully covered.
func GridForBounds(b geo.BoundingBox, resX, resY float64, bands []string) *Grid {
	width := int(math.Ceil((b.MaxLon - b.MinLon) / resX))
	height := int(math.Ceil((b.MaxLat - b.MinLat) / resY))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return NewGrid(width, height, b.MinLon, b.MaxLat, resX, resY, bands)
}

// Band returns the plane for the named band, or nil if absent
func (g *Grid) Band(name string) []float64 {
	for i, n := range g.BandNames {
		if n == name {
			return g.Planes[i]
		}
	}
	return nil
}

// AddBand appends a new plane. The plane length must match the grid size.
func (g *Grid) AddBand(name string, plane []float64) error {
	if len(plane) != g.Width*g.Height {
		return fmt.Errorf("band %q plane has %d pixels, grid wants %d", name, len(plane), g.Width*g.Height)
	}
	if g.Band(name) != nil {
		return fmt.Errorf("band %q already present", name)
	}
	g.BandNames = append(g.BandNames, name)
	g.Planes = append(g.Planes, plane)
	return nil
}

// At returns the value of band plane at pixel (x, y)
func (g *Grid) At(plane []float64, x, y int) float64 {
	return plane[y*g.Width+x]
}

// Bounds returns the grid's outer lon/lat extent
func (g *Grid) Bounds() geo.BoundingBox {
	return geo.BoundingBox{
		MinLon: g.OriginLon,
		MaxLon: g.OriginLon + float64(g.Width)*g.PixelWidth,
		MinLat: g.OriginLat - float64(g.Height)*g.PixelHeight,
		MaxLat: g.OriginLat,
	}
}

// PixelCenter returns the lon/lat of the center of pixel (x, y)
func (g *Grid) PixelCenter(x, y int) (lon, lat float64) {
	lon = g.OriginLon + (float64(x)+0.5)*g.PixelWidth
	lat = g.OriginLat - (float64(y)+0.5)*g.PixelHeight
	return lon, lat
}

// PixelAt returns the pixel indices containing the lon/lat point and
// whether the point falls inside the grid.
func (g *Grid) PixelAt(lon, lat float64) (x, y int, ok bool) {
	x = int(math.Floor((lon - g.OriginLon) / g.PixelWidth))
	y = int(math.Floor((g.OriginLat - lat) / g.PixelHeight))
	ok = x >= 0 && x < g.Width && y >= 0 && y < g.Height
	return x, y, ok
}

// ResampleTo projects this grid's bands onto the target grid's geometry
// using nearest-neighbor lookup, returning a new grid. Pixels outside the
// source extent stay NaN.
func (g *Grid) ResampleTo(target *Grid) *Grid {
	out := NewGrid(target.Width, target.Height, target.OriginLon, target.OriginLat,
		target.PixelWidth, target.PixelHeight, g.BandNames)
	for bi, plane := range g.Planes {
		dst := out.Planes[bi]
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				lon, lat := out.PixelCenter(x, y)
				sx, sy, ok := g.PixelAt(lon, lat)
				if !ok {
					continue
				}
				dst[y*out.Width+x] = plane[sy*g.Width+sx]
			}
		}
	}
	return out
}

// Timestep is one epoch of a filmstrip: a composite grid tagged with the
// label of the epoch's start date (YYYY-MM-DD).
type Timestep struct {
	Label string
	Grid  *Grid
}

// FilmstripResult is the multi-temporal output of a filmstrip run,
// immutable once the orchestrator returns it. Steps are ordered by epoch.
type FilmstripResult struct {
	OutputName string
	Steps      []Timestep
}
