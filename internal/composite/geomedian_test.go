package composite

import (
	"math"
	"testing"

	"github.com/coastcube/filmstrip/internal/raster"
)

var testBands = []string{"red", "green", "blue"}

// sceneWith builds a 2x2 scene where every pixel holds the given band
// values and the QA plane is clear.
func sceneWith(vals [3]float64) *raster.Grid {
	g := raster.NewGrid(2, 2, 0, 1, 0.5, 0.5, append(append([]string{}, testBands...), raster.QABand))
	for bi := 0; bi < 3; bi++ {
		plane := g.Band(testBands[bi])
		for px := range plane {
			plane[px] = vals[bi]
		}
	}
	qa := g.Band(raster.QABand)
	for px := range qa {
		qa[px] = 0
	}
	return g
}

func TestGeomedianSingleScene(t *testing.T) {
	s := sceneWith([3]float64{0.1, 0.2, 0.3})
	out, err := Geomedian([]*raster.Grid{s}, testBands)
	if err != nil {
		t.Fatalf("Geomedian: %v", err)
	}
	for bi, want := range []float64{0.1, 0.2, 0.3} {
		got := out.Band(testBands[bi])[0]
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("band %s = %v, want %v", testBands[bi], got, want)
		}
	}
}

func TestGeomedianResistsOutlier(t *testing.T) {
	// Three identical scenes and one wild outlier: the geometric median
	// must stay near the repeated value, unlike a mean.
	scenes := []*raster.Grid{
		sceneWith([3]float64{0.1, 0.1, 0.1}),
		sceneWith([3]float64{0.1, 0.1, 0.1}),
		sceneWith([3]float64{0.1, 0.1, 0.1}),
		sceneWith([3]float64{0.9, 0.9, 0.9}),
	}
	out, err := Geomedian(scenes, testBands)
	if err != nil {
		t.Fatalf("Geomedian: %v", err)
	}
	got := out.Band("red")[0]
	if math.Abs(got-0.1) > 0.01 {
		t.Errorf("median red = %v, want ~0.1 despite outlier", got)
	}
}

func TestGeomedianSkipsCloudyPixels(t *testing.T) {
	clear := sceneWith([3]float64{0.2, 0.2, 0.2})
	cloudy := sceneWith([3]float64{0.95, 0.95, 0.95})
	for px := range cloudy.Band(raster.QABand) {
		cloudy.Band(raster.QABand)[px] = 1
	}

	out, err := Geomedian([]*raster.Grid{clear, cloudy}, testBands)
	if err != nil {
		t.Fatalf("Geomedian: %v", err)
	}
	if got := out.Band("red")[0]; math.Abs(got-0.2) > 1e-9 {
		t.Errorf("red = %v, cloudy observation should have been masked", got)
	}
}

func TestGeomedianAllMaskedIsNodata(t *testing.T) {
	s := sceneWith([3]float64{0.5, 0.5, 0.5})
	qa := s.Band(raster.QABand)
	for px := range qa {
		qa[px] = 1
	}

	out, err := Geomedian([]*raster.Grid{s}, testBands)
	if err != nil {
		t.Fatalf("Geomedian: %v", err)
	}
	if !math.IsNaN(out.Band("red")[0]) {
		t.Error("fully masked pixel should be nodata")
	}
}

func TestGeomedianEmptyStack(t *testing.T) {
	if _, err := Geomedian(nil, testBands); err == nil {
		t.Error("expected error for empty stack")
	}
}

func TestGeomedianMismatchedGrids(t *testing.T) {
	a := sceneWith([3]float64{0.1, 0.1, 0.1})
	b := raster.NewGrid(3, 3, 0, 1, 0.5, 0.5, append(append([]string{}, testBands...), raster.QABand))
	if _, err := Geomedian([]*raster.Grid{a, b}, testBands); err == nil {
		t.Error("expected error for mismatched grid sizes")
	}
}

func TestChangeHeatmap(t *testing.T) {
	a := sceneWith([3]float64{0.1, 0.1, 0.1})
	b := sceneWith([3]float64{0.1, 0.1, 0.1})
	// Make one pixel of b differ strongly
	b.Band("red")[3] = 0.9

	hm, err := ChangeHeatmap(a, b, testBands)
	if err != nil {
		t.Fatalf("ChangeHeatmap: %v", err)
	}
	if hm[0] != 0 {
		t.Errorf("unchanged pixel heat = %v, want 0", hm[0])
	}
	if math.Abs(hm[3]-1.0) > 1e-9 {
		t.Errorf("changed pixel heat = %v, want 1 (normalized max)", hm[3])
	}
}

func TestChangeHeatmapNodataPropagates(t *testing.T) {
	a := sceneWith([3]float64{0.1, 0.1, 0.1})
	b := sceneWith([3]float64{0.2, 0.2, 0.2})
	a.Band("red")[2] = math.NaN()

	hm, err := ChangeHeatmap(a, b, testBands)
	if err != nil {
		t.Fatalf("ChangeHeatmap: %v", err)
	}
	if !math.IsNaN(hm[2]) {
		t.Error("nodata pixel should stay NaN in heatmap")
	}
	if math.IsNaN(hm[0]) {
		t.Error("valid pixel should not be NaN")
	}
}
