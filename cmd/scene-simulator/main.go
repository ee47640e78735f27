// Command scene-simulator seeds a scene catalog with synthetic Landsat
// surface-reflectance scenes for development and testing. It writes band
// files under the configured band root and inserts matching metadata
// rows, so a filmstrip run against the seeded catalog behaves like one
// against real archive holdings.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coastcube/filmstrip/internal/catalog"
	"github.com/coastcube/filmstrip/internal/geo"
	"github.com/coastcube/filmstrip/internal/log"
	"github.com/coastcube/filmstrip/internal/raster"
	"github.com/coastcube/filmstrip/internal/tide"
	"github.com/coastcube/filmstrip/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

const (
	defaultBBox   = "152.90,-27.60,153.15,-27.35"
	defaultStart  = "2013-01-01"
	defaultEnd    = "2021-12-31"
	defaultScenes = 120
	defaultPixels = 64

	// Degrees of footprint margin beyond the target box
	footprintMargin = 0.02
)

// platformWindow gives each platform its operational era
type platformWindow struct {
	name  string
	start time.Time
	end   time.Time
}

var platforms = []platformWindow{
	{"landsat-5", time.Date(1984, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2013, 6, 5, 0, 0, 0, 0, time.UTC)},
	{"landsat-7", time.Date(1999, 4, 15, 0, 0, 0, 0, time.UTC), time.Date(2022, 4, 6, 0, 0, 0, 0, time.UTC)},
	{"landsat-8", time.Date(2013, 2, 11, 0, 0, 0, 0, time.UTC), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
}

// catalogWriter is the insert side of the catalog, implemented by both backends
type catalogWriter interface {
	Insert(ctx context.Context, scenes []catalog.Scene) error
	Close() error
}

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	sceneCount := flag.Int("scenes", defaultScenes, "Number of synthetic scenes to generate")
	seed := flag.Int64("seed", 1, "Random seed; the same seed reproduces the same archive")
	bboxArg := flag.String("bbox", defaultBBox, "Scene area as minLon,minLat,maxLon,maxLat")
	startArg := flag.String("start", defaultStart, "Earliest acquisition date (YYYY-MM-DD)")
	endArg := flag.String("end", defaultEnd, "Latest acquisition date (YYYY-MM-DD)")
	pixels := flag.Int("pixels", defaultPixels, "Scene raster width in pixels")
	reset := flag.Bool("reset", false, "Remove existing catalog rows before seeding")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*cfgFile, *cfgBackend, *sceneCount, *seed, *bboxArg, *startArg, *endArg, *pixels, *reset); err != nil {
		log.Errorf("scene-simulator: %v", err)
		os.Exit(1)
	}
}

func run(cfgFile, cfgBackend string, sceneCount int, seed int64, bboxArg, startArg, endArg string, pixels int, reset bool) error {
	ctx := context.Background()

	provider, err := createConfigProvider(cfgFile, cfgBackend)
	if err != nil {
		return err
	}
	defer provider.Close()

	catalogCfg, err := provider.GetCatalogConfig()
	if err != nil {
		return fmt.Errorf("loading catalog configuration: %w", err)
	}
	if err := catalogCfg.Validate(); err != nil {
		return err
	}

	bbox, err := parseBBox(bboxArg)
	if err != nil {
		return err
	}
	start, err := config.ParseDate(startArg)
	if err != nil {
		return fmt.Errorf("parsing -start: %w", err)
	}
	end, err := config.ParseDate(endArg)
	if err != nil {
		return fmt.Errorf("parsing -end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("-start %s must precede -end %s", startArg, endArg)
	}
	if sceneCount < 1 {
		return fmt.Errorf("-scenes must be at least 1")
	}
	if pixels < 8 {
		return fmt.Errorf("-pixels must be at least 8")
	}

	if reset {
		if err := resetCatalog(ctx, catalogCfg); err != nil {
			return fmt.Errorf("resetting catalog: %w", err)
		}
	}

	writer, err := openWriter(catalogCfg)
	if err != nil {
		return err
	}
	defer writer.Close()

	rng := rand.New(rand.NewSource(seed))
	tideModel := tide.Model{Lat: bbox.Center().Lat, Lon: bbox.Center().Lon}

	scenes := make([]catalog.Scene, 0, sceneCount)
	for i := 0; i < sceneCount; i++ {
		scene, grid, err := synthesizeScene(rng, i, bbox, start, end, pixels, tideModel)
		if err != nil {
			return err
		}
		if err := raster.WriteSceneFile(catalogCfg.BandRoot, scene.SceneID, grid); err != nil {
			return fmt.Errorf("writing bands for %s: %w", scene.SceneID, err)
		}
		scenes = append(scenes, scene)
	}

	if err := writer.Insert(ctx, scenes); err != nil {
		return fmt.Errorf("inserting scene metadata: %w", err)
	}

	log.Infof("seeded %d scenes between %s and %s under %s",
		len(scenes), start.Format("2006-01-02"), end.Format("2006-01-02"), catalogCfg.BandRoot)

	if catalogCfg.ConnectionString != "" {
		return reportPostgresCount(ctx, catalogCfg.ConnectionString)
	}
	return nil
}

func createConfigProvider(cfgFile, cfgBackend string) (config.ConfigProvider, error) {
	switch cfgBackend {
	case "yaml":
		return config.NewYAMLProvider(cfgFile), nil
	case "sqlite":
		return config.NewSQLiteProvider(cfgFile)
	}
	return nil, fmt.Errorf("unsupported configuration backend: %s", cfgBackend)
}

func openWriter(cfg *config.CatalogData) (catalogWriter, error) {
	if cfg.ConnectionString != "" {
		return catalog.OpenPostgres(cfg.ConnectionString)
	}
	return catalog.OpenSQLite(cfg.SQLitePath)
}

// resetCatalog clears existing scene rows. Band files are left in place;
// reseeding overwrites the ones it regenerates.
func resetCatalog(ctx context.Context, cfg *config.CatalogData) error {
	if cfg.ConnectionString != "" {
		pool, err := pgxpool.New(ctx, cfg.ConnectionString)
		if err != nil {
			return err
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, "TRUNCATE scenes RESTART IDENTITY"); err != nil {
			return err
		}
		log.Info("truncated existing scenes table")
		return nil
	}

	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, "DELETE FROM scenes"); err != nil {
		// A fresh database has no table yet; the writer will create it
		log.Debugf("sqlite reset skipped: %v", err)
	}
	return nil
}

// reportPostgresCount logs the post-seed row count straight from the pool
func reportPostgresCount(ctx context.Context, connStr string) error {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return err
	}
	defer pool.Close()

	var count int64
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM scenes").Scan(&count); err != nil {
		return err
	}
	log.Infof("catalog now holds %d scenes", count)
	return nil
}

func parseBBox(arg string) (geo.BoundingBox, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 4 {
		return geo.BoundingBox{}, fmt.Errorf("-bbox wants minLon,minLat,maxLon,maxLat")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BoundingBox{}, fmt.Errorf("parsing -bbox component %q: %w", p, err)
		}
		vals[i] = v
	}
	b := geo.BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return geo.BoundingBox{}, fmt.Errorf("-bbox extent is empty")
	}
	return b, nil
}

// synthesizeScene builds one scene: metadata row plus a band grid with a
// coastline that creeps east over the years, so composites from different
// epochs genuinely differ.
func synthesizeScene(rng *rand.Rand, seq int, bbox geo.BoundingBox, start, end time.Time, pixels int, tideModel tide.Model) (catalog.Scene, *raster.Grid, error) {
	acquired := randomTime(rng, start, end)

	platform, err := randomPlatform(rng, acquired)
	if err != nil {
		return catalog.Scene{}, nil, err
	}

	// Cloud cover skews toward clear scenes
	cloud := rng.Float64() * rng.Float64()

	footprint := geo.BoundingBox{
		MinLon: bbox.MinLon - footprintMargin,
		MinLat: bbox.MinLat - footprintMargin,
		MaxLon: bbox.MaxLon + footprintMargin,
		MaxLat: bbox.MaxLat + footprintMargin,
	}

	scene := catalog.Scene{
		SceneID:    fmt.Sprintf("%s_%s_%04d", strings.ToUpper(strings.ReplaceAll(platform, "-", "")), acquired.Format("20060102T150405"), seq),
		Platform:   platform,
		AcquiredAt: acquired,
		CloudCover: cloud,
		TideHeight: tideModel.Height(acquired),
		MinLon:     footprint.MinLon,
		MinLat:     footprint.MinLat,
		MaxLon:     footprint.MaxLon,
		MaxLat:     footprint.MaxLat,
	}

	grid := synthesizeBands(rng, footprint, acquired, start, end, pixels, cloud)
	return scene, grid, nil
}

func randomTime(rng *rand.Rand, start, end time.Time) time.Time {
	span := end.Sub(start)
	return start.Add(time.Duration(rng.Int63n(int64(span)))).UTC()
}

func randomPlatform(rng *rand.Rand, at time.Time) (string, error) {
	var active []string
	for _, p := range platforms {
		if !at.Before(p.start) && at.Before(p.end) {
			active = append(active, p.name)
		}
	}
	if len(active) == 0 {
		return "", fmt.Errorf("no platform operational at %v", at)
	}
	return active[rng.Intn(len(active))], nil
}

// Typical surface reflectances for open water and vegetated land, in
// band order blue, green, red, nir, swir1, swir2
var (
	waterSpectrum = []float64{0.08, 0.06, 0.04, 0.02, 0.01, 0.01}
	landSpectrum  = []float64{0.06, 0.08, 0.10, 0.28, 0.22, 0.15}
	cloudSpectrum = []float64{0.55, 0.55, 0.55, 0.58, 0.40, 0.35}
)

func synthesizeBands(rng *rand.Rand, footprint geo.BoundingBox, acquired, start, end time.Time, pixels int, cloud float64) *raster.Grid {
	resX := (footprint.MaxLon - footprint.MinLon) / float64(pixels)
	resY := (footprint.MaxLat - footprint.MinLat) / float64(pixels)

	bands := append(append([]string(nil), raster.SpectralBands...), raster.QABand)
	grid := raster.NewGrid(pixels, pixels, footprint.MinLon, footprint.MaxLat, resX, resY, bands)

	// The shoreline sits at a longitude fraction that advances from 0.35
	// to 0.65 of the scene width across the simulated period.
	elapsed := acquired.Sub(start).Seconds() / end.Sub(start).Seconds()
	shoreFrac := 0.35 + 0.3*elapsed

	qa := grid.Band(raster.QABand)

	// Clouds are a few round blobs sized by the scene's cloud fraction
	type blob struct{ cx, cy, r float64 }
	var blobs []blob
	for c := cloud; c > 0.05; c -= 0.15 {
		blobs = append(blobs, blob{
			cx: rng.Float64() * float64(pixels),
			cy: rng.Float64() * float64(pixels),
			r:  (0.05 + rng.Float64()*0.15) * float64(pixels),
		})
	}

	for y := 0; y < pixels; y++ {
		for x := 0; x < pixels; x++ {
			idx := y*pixels + x

			// Wiggle the shoreline so it is not a straight edge
			wiggle := 0.04 * math.Sin(float64(y)/float64(pixels)*6*math.Pi)
			land := float64(x)/float64(pixels) > shoreFrac+wiggle

			spectrum := waterSpectrum
			if land {
				spectrum = landSpectrum
			}

			cloudy := false
			for _, b := range blobs {
				dx, dy := float64(x)-b.cx, float64(y)-b.cy
				if dx*dx+dy*dy < b.r*b.r {
					cloudy = true
					break
				}
			}
			if cloudy {
				spectrum = cloudSpectrum
				qa[idx] = 1
			} else {
				qa[idx] = 0
			}

			for bi := range raster.SpectralBands {
				noise := rng.NormFloat64() * 0.01
				grid.Planes[bi][idx] = math.Max(0, spectrum[bi]+noise)
			}
		}
	}

	return grid
}
