package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/coastcube/filmstrip/internal/catalog"
	"github.com/coastcube/filmstrip/internal/export"
	"github.com/coastcube/filmstrip/internal/filmstrip"
	"github.com/coastcube/filmstrip/internal/geo"
	"github.com/coastcube/filmstrip/internal/log"
	"github.com/coastcube/filmstrip/internal/selector"
	"github.com/coastcube/filmstrip/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run executes a full analysis: resolve the study area, composite each
// epoch, render the filmstrip, and export rasters. It blocks until the
// run finishes or a shutdown signal arrives.
//
// When aoiPath is empty the study area comes from the interactive
// selection server instead of a GeoJSON file.
func (a *App) Run(ctx context.Context, aoiPath string) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			log.Info("shutdown signal received, initiating graceful shutdown...")
			cancel()
		case <-ctx.Done():
		}
	}()

	analysis, err := a.configProvider.GetAnalysis()
	if err != nil {
		return fmt.Errorf("loading analysis parameters: %w", err)
	}
	if err := analysis.Validate(); err != nil {
		return fmt.Errorf("invalid analysis parameters: %w", err)
	}

	catalogCfg, err := a.configProvider.GetCatalogConfig()
	if err != nil {
		return fmt.Errorf("loading catalog configuration: %w", err)
	}

	aoi, err := a.resolveStudyArea(ctx, &wg, aoiPath)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(catalogCfg)
	if err != nil {
		return fmt.Errorf("opening scene catalog: %w", err)
	}
	defer cat.Close()

	orch := filmstrip.New(cat, catalogCfg.BandRoot, analysis.OutputDir, a.logger)
	result, err := orch.Run(ctx, analysis, aoi)
	if err != nil {
		return err
	}

	exporter := export.New(analysis.OutputDir, a.logger)
	if err := exporter.Export(result); err != nil {
		return err
	}
	if err := exporter.ExportHeatmap(result); err != nil {
		return err
	}

	log.Info("analysis complete")

	// Wait for the selection server (if started) to shut down
	cancel()
	wg.Wait()

	return nil
}

// resolveStudyArea loads the study area from a GeoJSON file, or starts
// the selection server and waits for the operator to draw one.
func (a *App) resolveStudyArea(ctx context.Context, wg *sync.WaitGroup, aoiPath string) (geo.Polygon, error) {
	if aoiPath != "" {
		poly, err := geo.LoadGeoJSONFile(aoiPath)
		if err != nil {
			return geo.Polygon{}, fmt.Errorf("loading study area from %s: %w", aoiPath, err)
		}
		return poly, nil
	}

	selectorCfg, err := a.configProvider.GetSelectorConfig()
	if err != nil {
		return geo.Polygon{}, fmt.Errorf("loading selection server configuration: %w", err)
	}
	if selectorCfg == nil {
		return geo.Polygon{}, fmt.Errorf("no study area file given and no selection server configured")
	}

	sel, err := selector.NewController(ctx, wg, *selectorCfg, a.logger)
	if err != nil {
		return geo.Polygon{}, fmt.Errorf("creating selection server: %w", err)
	}
	if err := sel.StartController(); err != nil {
		return geo.Polygon{}, fmt.Errorf("starting selection server: %w", err)
	}

	return sel.Await(ctx)
}
