// Package catalog provides access to the analysis-ready-data store: a
// database of Landsat surface-reflectance scenes with their acquisition
// metadata. Postgres (GORM) backs shared deployments; SQLite backs
// single-machine use and the scene simulator.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/coastcube/filmstrip/internal/geo"
	"github.com/coastcube/filmstrip/pkg/config"
)

// SLCFailureDate is when the Landsat 7 scan-line corrector failed; scenes
// acquired after this date are degraded and excluded unless the analysis
// opts in with ls7_slc_off.
var SLCFailureDate = time.Date(2003, 5, 31, 0, 0, 0, 0, time.UTC)

// Landsat7 is the platform identifier checked for SLC-off exclusion
const Landsat7 = "landsat-7"

// Scene is one catalogued Landsat acquisition. Band planes live in a
// per-scene file under the catalog band root; the row holds metadata only.
type Scene struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	SceneID    string    `gorm:"uniqueIndex;not null" json:"scene_id"`
	Platform   string    `gorm:"index;not null" json:"platform"`
	AcquiredAt time.Time `gorm:"index;not null" json:"acquired_at"`

	// Fractional scene cloud cover in [0,1]
	CloudCover float64 `json:"cloud_cover"`

	// Modeled tide height at acquisition time, meters
	TideHeight float64 `json:"tide_height"`

	// Scene footprint
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// TableName keeps the GORM table name stable
func (Scene) TableName() string {
	return "scenes"
}

// Bounds returns the scene footprint as a bounding box
func (s *Scene) Bounds() geo.BoundingBox {
	return geo.BoundingBox{MinLon: s.MinLon, MinLat: s.MinLat, MaxLon: s.MaxLon, MaxLat: s.MaxLat}
}

// Query selects scenes for one epoch of a filmstrip analysis
type Query struct {
	BBox geo.BoundingBox

	// Half-open acquisition window [Start, End)
	Start time.Time
	End   time.Time

	// Maximum fractional cloud cover, inclusive
	MaxCloud float64

	// Include Landsat 7 scenes acquired after the SLC failure
	LS7SLCOff bool
}

// Catalog is the read interface the orchestrator depends on
type Catalog interface {
	// Scenes returns qualifying scenes ordered by acquisition time
	Scenes(ctx context.Context, q Query) ([]Scene, error)
	Close() error
}

// Open connects to whichever catalog backend the configuration names
func Open(cfg *config.CatalogData) (Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ConnectionString != "" {
		return OpenPostgres(cfg.ConnectionString)
	}
	return OpenSQLite(cfg.SQLitePath)
}

// matchesPlatformWindow applies the SLC-off rule shared by both backends'
// post-filtering: a Landsat 7 scene after the failure date only qualifies
// when the analysis opted in.
func matchesPlatformWindow(s *Scene, ls7SLCOff bool) bool {
	if s.Platform != Landsat7 {
		return true
	}
	if s.AcquiredAt.Before(SLCFailureDate) {
		return true
	}
	return ls7SLCOff
}

// validateQuery rejects obviously malformed epoch queries
func validateQuery(q Query) error {
	if !q.Start.Before(q.End) {
		return fmt.Errorf("query window start %v must precede end %v", q.Start, q.End)
	}
	if q.MaxCloud < 0 || q.MaxCloud > 1 {
		return fmt.Errorf("query max cloud %f outside [0,1]", q.MaxCloud)
	}
	return nil
}
