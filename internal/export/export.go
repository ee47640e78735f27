// Package export serializes filmstrip timesteps to georeferenced GeoTIFF
// files, one per epoch.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/coastcube/filmstrip/internal/raster"
	"github.com/coastcube/filmstrip/pkg/geotiff"
	"go.uber.org/zap"
)

// Exporter writes filmstrip results into an output directory
type Exporter struct {
	outputDir string
	logger    *zap.SugaredLogger
}

// New creates an exporter rooted at outputDir
func New(outputDir string, logger *zap.SugaredLogger) *Exporter {
	return &Exporter{outputDir: outputDir, logger: logger}
}

// FileName returns the GeoTIFF name for one timestep of a result
func FileName(outputName, label string) string {
	return fmt.Sprintf("geotiff_%s_%s.tif", outputName, label)
}

// Export writes one RGB GeoTIFF per timestep, in step order, overwriting
// existing files of the same name. Export is sequential with no rollback:
// a failure at step N leaves steps before N on disk and skips the rest.
func (e *Exporter) Export(result *raster.FilmstripResult) error {
	if result == nil || len(result.Steps) == 0 {
		return fmt.Errorf("nothing to export")
	}
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, step := range result.Steps {
		path := filepath.Join(e.outputDir, FileName(result.OutputName, step.Label))
		if err := e.writeStep(step, path); err != nil {
			return fmt.Errorf("exporting timestep %s: %w", step.Label, err)
		}
		e.logger.Infof("wrote %s", path)
	}
	return nil
}

// writeStep renders one composite to a true-color GeoTIFF
func (e *Exporter) writeStep(step raster.Timestep, path string) error {
	g := step.Grid
	r, gr, b, err := trueColorPlanes(g)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	ref := geotiff.Georef{
		OriginLon:   g.OriginLon,
		OriginLat:   g.OriginLat,
		PixelWidth:  g.PixelWidth,
		PixelHeight: g.PixelHeight,
	}
	if err := geotiff.EncodeRGB(f, r, gr, b, g.Width, g.Height, ref); err != nil {
		return fmt.Errorf("encoding GeoTIFF: %w", err)
	}
	return nil
}

// ExportHeatmap writes the change-heatmap band of the final timestep as a
// single-band float GeoTIFF, when the band is present.
func (e *Exporter) ExportHeatmap(result *raster.FilmstripResult) error {
	if result == nil || len(result.Steps) == 0 {
		return fmt.Errorf("nothing to export")
	}
	last := result.Steps[len(result.Steps)-1]
	plane := last.Grid.Band(raster.ChangeBand)
	if plane == nil {
		return fmt.Errorf("timestep %s has no change band", last.Label)
	}

	path := filepath.Join(e.outputDir, fmt.Sprintf("geotiff_%s_change.tif", result.OutputName))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	g := last.Grid
	ref := geotiff.Georef{
		OriginLon:   g.OriginLon,
		OriginLat:   g.OriginLat,
		PixelWidth:  g.PixelWidth,
		PixelHeight: g.PixelHeight,
	}
	if err := geotiff.EncodeGray32(f, plane, g.Width, g.Height, ref); err != nil {
		return fmt.Errorf("encoding heatmap GeoTIFF: %w", err)
	}
	e.logger.Infof("wrote %s", path)
	return nil
}

// trueColorPlanes stretches the red/green/blue reflectance bands to 8-bit.
// Reflectance is clipped at stretchMax; nodata renders black.
const stretchMax = 0.3

func trueColorPlanes(g *raster.Grid) (r, gr, b []uint8, err error) {
	red := g.Band("red")
	green := g.Band("green")
	blue := g.Band("blue")
	if red == nil || green == nil || blue == nil {
		return nil, nil, nil, fmt.Errorf("composite missing true-color bands")
	}

	r = stretch(red)
	gr = stretch(green)
	b = stretch(blue)
	return r, gr, b, nil
}

func stretch(plane []float64) []uint8 {
	out := make([]uint8, len(plane))
	for i, v := range plane {
		if math.IsNaN(v) {
			continue
		}
		scaled := v / stretchMax
		if scaled < 0 {
			scaled = 0
		}
		if scaled > 1 {
			scaled = 1
		}
		out[i] = uint8(scaled*254) + 1
	}
	return out
}
