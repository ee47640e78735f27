package plot

import (
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/coastcube/filmstrip/internal/raster"
)

func testStep(t *testing.T, label string, withChange bool) raster.Timestep {
	t.Helper()

	g := raster.NewGrid(8, 8, 153.0, -27.4, 0.01, 0.01, raster.SpectralBands)
	for _, plane := range g.Planes {
		for i := range plane {
			plane[i] = 0.1
		}
	}
	if withChange {
		change := make([]float64, g.Width*g.Height)
		for i := range change {
			change[i] = float64(i) / float64(len(change))
		}
		if err := g.AddBand(raster.ChangeBand, change); err != nil {
			t.Fatalf("AddBand: %v", err)
		}
	}
	return raster.Timestep{Label: label, Grid: g}
}

func TestFileName(t *testing.T) {
	got := FileName("example", "2021-06-01", "3Y")
	want := "filmstrip_example_2021-06-01_3Y.png"
	if got != want {
		t.Errorf("FileName = %q, want %q", got, want)
	}
}

func TestRenderFilmstripWritesPNG(t *testing.T) {
	result := &raster.FilmstripResult{
		OutputName: "example",
		Steps: []raster.Timestep{
			testStep(t, "2013-01-01", false),
			testStep(t, "2016-01-01", true),
		},
	}

	path := filepath.Join(t.TempDir(), "strip.png")
	if err := RenderFilmstrip(result, path); err != nil {
		t.Fatalf("RenderFilmstrip: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}

	// Two epoch panels plus the heatmap panel, stitched horizontally
	bounds := img.Bounds()
	if bounds.Dx() <= bounds.Dy() {
		t.Errorf("expected a wide strip, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

// Nodata cells must reach the heatmap as NaN so it can draw them in the
// dedicated nodata color rather than as a zero change value.
func TestHeatGridPassesNodataThrough(t *testing.T) {
	step := testStep(t, "2016-01-01", true)
	change := step.Grid.Band(raster.ChangeBand)
	change[0] = math.NaN()

	h := &heatGrid{g: step.Grid, plane: change}
	// Grid row 0 is the top of the raster, plot row Height-1
	if v := h.Z(0, step.Grid.Height-1); !math.IsNaN(v) {
		t.Errorf("Z for nodata pixel = %v, want NaN", v)
	}
	if v := h.Z(1, step.Grid.Height-1); math.IsNaN(v) {
		t.Error("Z for valid pixel unexpectedly NaN")
	}
}

func TestRenderFilmstripWithNodataChange(t *testing.T) {
	step := testStep(t, "2016-01-01", true)
	change := step.Grid.Band(raster.ChangeBand)
	for i := 0; i < len(change)/2; i++ {
		change[i] = math.NaN()
	}
	result := &raster.FilmstripResult{
		OutputName: "example",
		Steps:      []raster.Timestep{step},
	}

	path := filepath.Join(t.TempDir(), "strip.png")
	if err := RenderFilmstrip(result, path); err != nil {
		t.Fatalf("RenderFilmstrip: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected plot file: %v", err)
	}
}

func TestRenderFilmstripRejectsEmptyResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strip.png")
	if err := RenderFilmstrip(nil, path); err == nil {
		t.Error("expected error for nil result")
	}
	if err := RenderFilmstrip(&raster.FilmstripResult{OutputName: "x"}, path); err == nil {
		t.Error("expected error for empty result")
	}
}
