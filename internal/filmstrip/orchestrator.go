// Package filmstrip is the analysis orchestrator: it partitions the time
// range into epochs, selects cloud- and tide-filtered scenes per epoch,
// composites each epoch with the geomedian, derives change heatmaps and
// renders the filmstrip figure.
package filmstrip

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/coastcube/filmstrip/internal/catalog"
	"github.com/coastcube/filmstrip/internal/composite"
	"github.com/coastcube/filmstrip/internal/geo"
	"github.com/coastcube/filmstrip/internal/plot"
	"github.com/coastcube/filmstrip/internal/raster"
	"github.com/coastcube/filmstrip/pkg/config"
)

// Orchestrator runs filmstrip analyses against an injected catalog
type Orchestrator struct {
	cat       catalog.Catalog
	bandRoot  string
	outputDir string
	logger    *zap.SugaredLogger

	// now is stubbed in tests; the plot filename encodes the run date
	now func() time.Time
}

// New creates an orchestrator. outputDir receives the filmstrip plot; the
// GeoTIFF exporter is a separate stage.
func New(cat catalog.Catalog, bandRoot, outputDir string, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		cat:       cat,
		bandRoot:  bandRoot,
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes the full analysis for the given parameters and area of
// interest. It blocks until every epoch is composited and the filmstrip
// figure is written, logging progress along the way.
func (o *Orchestrator) Run(ctx context.Context, analysis *config.AnalysisData, aoi geo.Polygon) (*raster.FilmstripResult, error) {
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis parameters: %w", err)
	}
	if err := aoi.Validate(); err != nil {
		return nil, fmt.Errorf("invalid area of interest: %w", err)
	}

	area := aoi.AreaKm2()
	if analysis.SizeLimitKm2 > 0 && area > analysis.SizeLimitKm2 {
		o.logger.Warnf("area of interest is %.1f km2, over the %.1f km2 limit; expect a slow run",
			area, analysis.SizeLimitKm2)
	}

	start, end := analysis.TimeBounds()
	epochs := Partition(start, end, analysis.TimeStep)
	o.logger.Infof("analysing %.1f km2 across %d epochs of %s",
		area, len(epochs), analysis.TimeStep.StepLabel())

	scenes, err := o.cat.Scenes(ctx, catalog.Query{
		BBox:      aoi.Bounds(),
		Start:     start,
		End:       end,
		MaxCloud:  analysis.MaxCloud,
		LS7SLCOff: analysis.LS7SLCOff,
	})
	if err != nil {
		return nil, fmt.Errorf("scene discovery: %w", err)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no qualifying scenes in %s to %s", analysis.TimeStart, analysis.TimeEnd)
	}
	o.logger.Infof("found %d candidate scenes", len(scenes))

	scenes = filterByTide(scenes, analysis.TideRange)
	if len(scenes) == 0 {
		return nil, fmt.Errorf("tide range [%.2f,%.2f] excluded every scene",
			analysis.TideRange[0], analysis.TideRange[1])
	}

	target := raster.GridForBounds(aoi.Bounds(), analysis.Resolution[0], analysis.Resolution[1], nil)
	result := &raster.FilmstripResult{OutputName: analysis.OutputName}

	var prev *raster.Grid
	for _, epoch := range epochs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		epochScenes := scenesInWindow(scenes, epoch.Start, epoch.End)
		if len(epochScenes) == 0 {
			return nil, fmt.Errorf("no qualifying scenes for epoch %s", epoch.Label())
		}
		o.logger.Infof("epoch %s: compositing %d scenes", epoch.Label(), len(epochScenes))

		comp, err := o.compositeEpoch(epochScenes, target)
		if err != nil {
			return nil, fmt.Errorf("epoch %s: %w", epoch.Label(), err)
		}

		if err := addChangeBand(comp, prev); err != nil {
			return nil, fmt.Errorf("epoch %s: %w", epoch.Label(), err)
		}
		prev = comp

		result.Steps = append(result.Steps, raster.Timestep{Label: epoch.Label(), Grid: comp})
	}

	if err := os.MkdirAll(o.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	plotPath := filepath.Join(o.outputDir,
		plot.FileName(analysis.OutputName, o.now().Format("2006-01-02"), analysis.TimeStep.StepLabel()))
	if err := plot.RenderFilmstrip(result, plotPath); err != nil {
		return nil, fmt.Errorf("rendering filmstrip: %w", err)
	}
	o.logger.Infof("wrote %s", plotPath)

	return result, nil
}

// compositeEpoch loads, resamples and geomedian-composites one epoch
func (o *Orchestrator) compositeEpoch(scenes []catalog.Scene, target *raster.Grid) (*raster.Grid, error) {
	stack := make([]*raster.Grid, 0, len(scenes))
	for i := range scenes {
		g, err := raster.ReadSceneFile(o.bandRoot, scenes[i].SceneID)
		if err != nil {
			return nil, err
		}
		stack = append(stack, g.ResampleTo(target))
	}
	return composite.Geomedian(stack, raster.SpectralBands)
}

// addChangeBand attaches the change heatmap against the previous epoch's
// composite, or a zero plane for the first epoch.
func addChangeBand(comp, prev *raster.Grid) error {
	if prev == nil {
		return comp.AddBand(raster.ChangeBand, make([]float64, comp.Width*comp.Height))
	}
	heat, err := composite.ChangeHeatmap(prev, comp, raster.SpectralBands)
	if err != nil {
		return err
	}
	return comp.AddBand(raster.ChangeBand, heat)
}

// filterByTide keeps scenes whose modeled tide height falls inside the
// fractional window of the observed tide distribution. The full window
// keeps everything.
func filterByTide(scenes []catalog.Scene, tideRange [2]float64) []catalog.Scene {
	if tideRange[0] <= 0 && tideRange[1] >= 1 {
		return scenes
	}

	heights := make([]float64, len(scenes))
	for i := range scenes {
		heights[i] = scenes[i].TideHeight
	}
	sort.Float64s(heights)

	lo := stat.Quantile(tideRange[0], stat.Empirical, heights, nil)
	hi := stat.Quantile(tideRange[1], stat.Empirical, heights, nil)

	kept := make([]catalog.Scene, 0, len(scenes))
	for _, s := range scenes {
		if s.TideHeight >= lo && s.TideHeight <= hi {
			kept = append(kept, s)
		}
	}
	return kept
}

// scenesInWindow returns the scenes acquired in [start, end). The input
// is ordered by acquisition time, so a range scan suffices.
func scenesInWindow(scenes []catalog.Scene, start, end time.Time) []catalog.Scene {
	var out []catalog.Scene
	for i := range scenes {
		at := scenes[i].AcquiredAt
		if !at.Before(start) && at.Before(end) {
			out = append(out, scenes[i])
		}
	}
	return out
}
