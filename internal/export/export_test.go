package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coastcube/filmstrip/internal/raster"
	"go.uber.org/zap"
)

func testResult(labels ...string) *raster.FilmstripResult {
	result := &raster.FilmstripResult{OutputName: "example"}
	for _, label := range labels {
		g := raster.NewGrid(4, 4, 153.0, -27.4, 0.01, 0.01, []string{"red", "green", "blue"})
		for _, band := range []string{"red", "green", "blue"} {
			plane := g.Band(band)
			for px := range plane {
				plane[px] = 0.15
			}
		}
		result.Steps = append(result.Steps, raster.Timestep{Label: label, Grid: g})
	}
	return result
}

func TestExportFileNamesAndCount(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, zap.NewNop().Sugar())

	result := testResult("2013-01-01", "2016-01-01", "2019-01-01")
	if err := e.Export(result); err != nil {
		t.Fatalf("Export: %v", err)
	}

	want := []string{
		"geotiff_example_2013-01-01.tif",
		"geotiff_example_2016-01-01.tif",
		"geotiff_example_2019-01-01.tif",
	}
	for _, name := range want {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected file %s: %v", name, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(result.Steps) {
		t.Errorf("exported %d files, want %d (one per timestep)", len(entries), len(result.Steps))
	}
}

func TestExportIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, zap.NewNop().Sugar())

	result := testResult("2013-01-01", "2016-01-01")
	for i := 0; i < 2; i++ {
		if err := e.Export(result); err != nil {
			t.Fatalf("Export pass %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("found %d files after double export, want 2 (overwrite, no accumulation)", len(entries))
	}
}

func TestExportEmptyResult(t *testing.T) {
	e := New(t.TempDir(), zap.NewNop().Sugar())
	if err := e.Export(&raster.FilmstripResult{OutputName: "empty"}); err == nil {
		t.Error("empty result should fail")
	}
	if err := e.Export(nil); err == nil {
		t.Error("nil result should fail")
	}
}

func TestExportStopsAtFailedStep(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, zap.NewNop().Sugar())

	result := testResult("2013-01-01")
	// Second step misses its true-color bands and must fail
	bad := raster.NewGrid(4, 4, 153.0, -27.4, 0.01, 0.01, []string{"nir"})
	result.Steps = append(result.Steps,
		raster.Timestep{Label: "2016-01-01", Grid: bad},
		testResult("2019-01-01").Steps[0])

	if err := e.Export(result); err == nil {
		t.Fatal("expected export failure on bad step")
	}

	if _, err := os.Stat(filepath.Join(dir, "geotiff_example_2013-01-01.tif")); err != nil {
		t.Error("step before the failure should remain on disk")
	}
	if _, err := os.Stat(filepath.Join(dir, "geotiff_example_2019-01-01.tif")); err == nil {
		t.Error("step after the failure should not have been attempted")
	}
}

func TestExportHeatmap(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, zap.NewNop().Sugar())

	result := testResult("2013-01-01", "2016-01-01")
	last := result.Steps[1].Grid
	if err := last.AddBand(raster.ChangeBand, make([]float64, 16)); err != nil {
		t.Fatal(err)
	}

	if err := e.ExportHeatmap(result); err != nil {
		t.Fatalf("ExportHeatmap: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "geotiff_example_change.tif")); err != nil {
		t.Errorf("heatmap file missing: %v", err)
	}

	if err := e.ExportHeatmap(testResult("2013-01-01")); err == nil {
		t.Error("result without change band should fail")
	}
}
