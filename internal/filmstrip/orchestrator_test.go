package filmstrip

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/coastcube/filmstrip/internal/catalog"
	"github.com/coastcube/filmstrip/internal/geo"
	"github.com/coastcube/filmstrip/internal/raster"
	"github.com/coastcube/filmstrip/pkg/config"
)

var testAOI = geo.Polygon{Ring: []geo.Point{
	{Lon: 153.00, Lat: -27.50}, {Lon: 153.02, Lat: -27.50}, {Lon: 153.02, Lat: -27.48}, {Lon: 153.00, Lat: -27.48},
}}

func testAnalysis() *config.AnalysisData {
	return &config.AnalysisData{
		OutputName: "example",
		TimeStart:  "2013",
		TimeEnd:    "2019",
		TimeStep:   config.TimeStepData{Years: 3},
		TideRange:  [2]float64{0, 1},
		Resolution: [2]float64{0.002, 0.002},
		MaxCloud:   0.5,
	}
}

// seedScene writes a uniform-reflectance scene covering the test AOI and
// registers it in the catalog.
func seedScene(t *testing.T, cat *catalog.SQLiteCatalog, bandRoot, id string, at time.Time, reflectance, tide float64) {
	t.Helper()

	bands := append(append([]string{}, raster.SpectralBands...), raster.QABand)
	g := raster.NewGrid(20, 20, 152.99, -27.47, 0.002, 0.002, bands)
	for _, name := range raster.SpectralBands {
		plane := g.Band(name)
		for px := range plane {
			plane[px] = reflectance
		}
	}
	qa := g.Band(raster.QABand)
	for px := range qa {
		qa[px] = 0
	}
	if err := raster.WriteSceneFile(bandRoot, id, g); err != nil {
		t.Fatal(err)
	}

	err := cat.Insert(context.Background(), []catalog.Scene{{
		SceneID:    id,
		Platform:   "landsat-8",
		AcquiredAt: at,
		CloudCover: 0.1,
		TideHeight: tide,
		MinLon:     152.99, MinLat: -27.51, MaxLon: 153.03, MaxLat: -27.47,
	}})
	if err != nil {
		t.Fatal(err)
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *catalog.SQLiteCatalog, string, string) {
	t.Helper()
	dir := t.TempDir()
	bandRoot := filepath.Join(dir, "bands")
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatal(err)
	}

	cat, err := catalog.OpenSQLite(filepath.Join(dir, "scenes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cat.Close() })

	o := New(cat, bandRoot, outDir, zap.NewNop().Sugar())
	o.now = func() time.Time { return time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC) }
	return o, cat, bandRoot, outDir
}

func TestRunProducesOneStepPerEpoch(t *testing.T) {
	o, cat, bandRoot, outDir := newTestOrchestrator(t)

	// Two scenes per 3-year epoch, with reflectance rising over time
	seedScene(t, cat, bandRoot, "LC8_2013A", time.Date(2013, 4, 1, 0, 0, 0, 0, time.UTC), 0.10, 0.1)
	seedScene(t, cat, bandRoot, "LC8_2014A", time.Date(2014, 4, 1, 0, 0, 0, 0, time.UTC), 0.10, 0.2)
	seedScene(t, cat, bandRoot, "LC8_2016A", time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC), 0.20, 0.1)
	seedScene(t, cat, bandRoot, "LC8_2017A", time.Date(2017, 4, 1, 0, 0, 0, 0, time.UTC), 0.20, 0.2)

	result, err := o.Run(context.Background(), testAnalysis(), testAOI)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(result.Steps))
	}
	if result.Steps[0].Label != "2013-01-01" || result.Steps[1].Label != "2016-01-01" {
		t.Errorf("labels = %s, %s", result.Steps[0].Label, result.Steps[1].Label)
	}

	// Composites carry the epoch reflectance
	red := result.Steps[0].Grid.Band("red")
	mid := result.Steps[0].Grid.Width/2 + result.Steps[0].Grid.Width*result.Steps[0].Grid.Height/2
	if math.Abs(red[mid]-0.10) > 0.01 {
		t.Errorf("first epoch red = %v, want ~0.10", red[mid])
	}

	// Every step holds a change band; the second epoch changed everywhere
	for i, step := range result.Steps {
		if step.Grid.Band(raster.ChangeBand) == nil {
			t.Errorf("step %d missing change band", i)
		}
	}
	change := result.Steps[1].Grid.Band(raster.ChangeBand)
	if change[mid] <= 0 {
		t.Errorf("second epoch change = %v, want > 0", change[mid])
	}

	// Plot side effect encodes output name, run date and step
	plotFile := filepath.Join(outDir, "filmstrip_example_2021-06-01_3Y.png")
	if _, err := os.Stat(plotFile); err != nil {
		t.Errorf("expected plot file %s: %v", plotFile, err)
	}
}

// A run against an output directory that does not exist yet must create it
// rather than composite every epoch and fail at the plot write.
func TestRunCreatesOutputDir(t *testing.T) {
	o, cat, bandRoot, _ := newTestOrchestrator(t)
	o.outputDir = filepath.Join(t.TempDir(), "fresh-out")

	seedScene(t, cat, bandRoot, "LC8_2013D", time.Date(2013, 4, 1, 0, 0, 0, 0, time.UTC), 0.10, 0.1)
	seedScene(t, cat, bandRoot, "LC8_2016D", time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC), 0.20, 0.1)

	if _, err := o.Run(context.Background(), testAnalysis(), testAOI); err != nil {
		t.Fatalf("Run with missing output dir: %v", err)
	}

	plotFile := filepath.Join(o.outputDir, "filmstrip_example_2021-06-01_3Y.png")
	if _, err := os.Stat(plotFile); err != nil {
		t.Errorf("expected plot file %s: %v", plotFile, err)
	}
}

func TestRunFailsOnEmptyEpoch(t *testing.T) {
	o, cat, bandRoot, _ := newTestOrchestrator(t)

	// Scenes only in the first epoch
	seedScene(t, cat, bandRoot, "LC8_2013B", time.Date(2013, 4, 1, 0, 0, 0, 0, time.UTC), 0.1, 0.1)

	_, err := o.Run(context.Background(), testAnalysis(), testAOI)
	if err == nil {
		t.Fatal("expected error for epoch with no scenes")
	}
}

func TestRunFailsWithNoScenesAtAll(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	if _, err := o.Run(context.Background(), testAnalysis(), testAOI); err == nil {
		t.Fatal("expected error when catalog is empty")
	}
}

func TestRunRejectsInvalidParameters(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	bad := testAnalysis()
	bad.MaxCloud = 2.0
	if _, err := o.Run(context.Background(), bad, testAOI); err == nil {
		t.Error("invalid max cloud should fail before discovery")
	}

	degenerate := geo.Polygon{Ring: []geo.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}}}
	if _, err := o.Run(context.Background(), testAnalysis(), degenerate); err == nil {
		t.Error("degenerate AOI should fail")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	o, cat, bandRoot, _ := newTestOrchestrator(t)
	seedScene(t, cat, bandRoot, "LC8_2013C", time.Date(2013, 4, 1, 0, 0, 0, 0, time.UTC), 0.1, 0.1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Run(ctx, testAnalysis(), testAOI); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestFilterByTide(t *testing.T) {
	scenes := make([]catalog.Scene, 0, 10)
	for i := 0; i < 10; i++ {
		scenes = append(scenes, catalog.Scene{
			SceneID:    string(rune('a' + i)),
			TideHeight: float64(i) / 10,
		})
	}

	// Lowest-half window drops the high-tide scenes
	kept := filterByTide(scenes, [2]float64{0, 0.5})
	if len(kept) >= len(scenes) || len(kept) == 0 {
		t.Fatalf("kept %d of %d scenes", len(kept), len(scenes))
	}
	for _, s := range kept {
		if s.TideHeight > 0.5 {
			t.Errorf("scene with tide %.2f kept in low window", s.TideHeight)
		}
	}

	// Full window keeps everything
	all := filterByTide(scenes, [2]float64{0, 1})
	if len(all) != 10 {
		t.Errorf("full window kept %d scenes, want 10", len(all))
	}
}
