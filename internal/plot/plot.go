// Package plot renders the filmstrip figure: one true-color panel per
// epoch laid side by side, followed by the change-heatmap panel.
package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/coastcube/filmstrip/internal/raster"
)

// Panel raster dimensions in pixels
const (
	panelPx = 360
	dpi     = 96
)

// Reflectance mapped to full brightness in the true-color panels
const stretchMax = 0.3

// FileName returns the filmstrip plot name for an output/date/step triple
func FileName(outputName, dateString, stepLabel string) string {
	return fmt.Sprintf("filmstrip_%s_%s_%s.png", outputName, dateString, stepLabel)
}

// RenderFilmstrip draws every epoch panel plus the heatmap panel and
// writes the figure as a PNG to path.
func RenderFilmstrip(result *raster.FilmstripResult, path string) error {
	if result == nil || len(result.Steps) == 0 {
		return fmt.Errorf("nothing to render")
	}

	panels := make([]image.Image, 0, len(result.Steps)+1)
	for _, step := range result.Steps {
		img, err := renderPanel(trueColorImage(step.Grid), step.Grid, step.Label)
		if err != nil {
			return fmt.Errorf("rendering panel %s: %w", step.Label, err)
		}
		panels = append(panels, img)
	}

	last := result.Steps[len(result.Steps)-1]
	if last.Grid.Band(raster.ChangeBand) != nil {
		img, err := renderHeatmapPanel(last.Grid)
		if err != nil {
			return fmt.Errorf("rendering heatmap panel: %w", err)
		}
		panels = append(panels, img)
	}

	return writeStrip(panels, path)
}

// renderPanel wraps a panel image in a titled plot with lon/lat axes
func renderPanel(img image.Image, g *raster.Grid, title string) (image.Image, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "longitude"
	p.Y.Label.Text = "latitude"

	b := g.Bounds()
	p.Add(plotter.NewImage(img, b.MinLon, b.MinLat, b.MaxLon, b.MaxLat))

	return renderToImage(p), nil
}

// renderHeatmapPanel draws the change band with a heat palette
func renderHeatmapPanel(g *raster.Grid) (image.Image, error) {
	p := plot.New()
	p.Title.Text = "change"
	p.X.Label.Text = "longitude"
	p.Y.Label.Text = "latitude"

	hm := plotter.NewHeatMap(&heatGrid{g: g, plane: g.Band(raster.ChangeBand)}, palette.Heat(64, 1))
	hm.NaN = color.Gray{Y: 128}
	p.Add(hm)

	return renderToImage(p), nil
}

func renderToImage(p *plot.Plot) image.Image {
	size := vg.Length(panelPx) * vg.Inch / dpi
	c := vgimg.New(size, size)
	dc := vgdraw.New(c)
	p.Draw(dc)
	return c.Image()
}

// writeStrip lays the panel images out left to right and encodes PNG
func writeStrip(panels []image.Image, path string) (err error) {
	var width, height int
	for _, p := range panels {
		b := p.Bounds()
		width += b.Dx()
		if b.Dy() > height {
			height = b.Dy()
		}
	}

	strip := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(strip, strip.Bounds(), image.White, image.Point{}, draw.Src)
	x := 0
	for _, p := range panels {
		b := p.Bounds()
		draw.Draw(strip, image.Rect(x, 0, x+b.Dx(), b.Dy()), p, b.Min, draw.Src)
		x += b.Dx()
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating plot file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := png.Encode(f, strip); err != nil {
		return fmt.Errorf("encoding plot: %w", err)
	}
	return nil
}

// trueColorImage stretches the red/green/blue bands to an 8-bit image.
// Nodata pixels render black.
func trueColorImage(g *raster.Grid) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	red := g.Band("red")
	green := g.Band("green")
	blue := g.Band("blue")
	if red == nil || green == nil || blue == nil {
		return img
	}

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			px := y*g.Width + x
			img.SetRGBA(x, y, color.RGBA{
				R: stretch(red[px]),
				G: stretch(green[px]),
				B: stretch(blue[px]),
				A: 255,
			})
		}
	}
	return img
}

func stretch(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	s := v / stretchMax
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return uint8(s * 255)
}

// heatGrid adapts a grid band to the plotter's grid interface. Rows are
// flipped because plot Y ascends north while grid rows run south.
type heatGrid struct {
	g     *raster.Grid
	plane []float64
}

func (h *heatGrid) Dims() (c, r int) { return h.g.Width, h.g.Height }

// Z passes nodata through as NaN so the heatmap draws it in its NaN color
// instead of conflating it with a zero change value.
func (h *heatGrid) Z(c, r int) float64 {
	return h.plane[(h.g.Height-1-r)*h.g.Width+c]
}

func (h *heatGrid) X(c int) float64 {
	lon, _ := h.g.PixelCenter(c, 0)
	return lon
}

func (h *heatGrid) Y(r int) float64 {
	_, lat := h.g.PixelCenter(0, h.g.Height-1-r)
	return lat
}
