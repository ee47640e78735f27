package config

import (
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetAnalysis() (*AnalysisData, error)
	GetCatalogConfig() (*CatalogData, error)
	GetSelectorConfig() (*SelectorData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Analysis AnalysisData  `json:"analysis"`
	Catalog  CatalogData   `json:"catalog"`
	Selector *SelectorData `json:"selector,omitempty"`
}

// AnalysisData holds the filmstrip analysis parameters
type AnalysisData struct {
	OutputName string `json:"output_name"`

	// Time range boundaries. Bare years ("2013") are accepted and
	// resolved to January 1 of that year.
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`

	TimeStep TimeStepData `json:"time_step"`

	// Fractional window [low,high] of the modeled tide distribution;
	// scenes outside the window are excluded.
	TideRange [2]float64 `json:"tide_range"`

	// Output pixel size in degrees (x, y)
	Resolution [2]float64 `json:"resolution"`

	// Maximum fractional scene cloud cover
	MaxCloud float64 `json:"max_cloud"`

	// Include Landsat 7 scenes acquired after the SLC failure
	LS7SLCOff bool `json:"ls7_slc_off"`

	// Optional cap on the area of interest, in square kilometers.
	// Zero means no limit.
	SizeLimitKm2 float64 `json:"size_limit_km2,omitempty"`

	OutputDir string `json:"output_dir,omitempty"`
}

// TimeStepData describes the epoch length used to partition the time range
type TimeStepData struct {
	Years  int `json:"years,omitempty"`
	Months int `json:"months,omitempty"`
}

// CatalogData holds the scene catalog connection settings. Exactly one of
// ConnectionString (Postgres) or SQLitePath should be set.
type CatalogData struct {
	ConnectionString string `json:"connection_string,omitempty"`
	SQLitePath       string `json:"sqlite_path,omitempty"`

	// Root directory containing per-scene band rasters
	BandRoot string `json:"band_root"`
}

// SelectorData holds the interactive area-selection server settings
type SelectorData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}

// dateLayouts accepted for time range boundaries, longest first
var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// ParseDate resolves a time boundary string to a UTC timestamp. Bare
// years and year-months snap to the start of the period.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q (want YYYY, YYYY-MM or YYYY-MM-DD)", s)
}

// Validate checks the analysis parameters before any catalog work begins.
// The upstream notebook delegated all validation to the orchestrator; here
// malformed parameters are rejected at load time instead.
func (a *AnalysisData) Validate() error {
	if a.OutputName == "" {
		return fmt.Errorf("output_name must not be empty")
	}
	start, err := ParseDate(a.TimeStart)
	if err != nil {
		return fmt.Errorf("time_start: %w", err)
	}
	end, err := ParseDate(a.TimeEnd)
	if err != nil {
		return fmt.Errorf("time_end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("time_start %s must precede time_end %s", a.TimeStart, a.TimeEnd)
	}
	if a.TimeStep.Years <= 0 && a.TimeStep.Months <= 0 {
		return fmt.Errorf("time_step must specify a positive number of years or months")
	}
	if a.TimeStep.Years > 0 && a.TimeStep.Months > 0 {
		return fmt.Errorf("time_step must specify years or months, not both")
	}
	if a.TideRange[0] < 0 || a.TideRange[1] > 1 || a.TideRange[0] >= a.TideRange[1] {
		return fmt.Errorf("tide_range [%.2f,%.2f] must be an increasing interval within [0,1]",
			a.TideRange[0], a.TideRange[1])
	}
	if a.MaxCloud < 0 || a.MaxCloud > 1 {
		return fmt.Errorf("max_cloud %.2f must lie in [0,1]", a.MaxCloud)
	}
	if a.Resolution[0] <= 0 || a.Resolution[1] <= 0 {
		return fmt.Errorf("resolution (%g, %g) must be positive", a.Resolution[0], a.Resolution[1])
	}
	if a.SizeLimitKm2 < 0 {
		return fmt.Errorf("size_limit_km2 must not be negative")
	}
	return nil
}

// TimeBounds returns the parsed time range. Validate must have succeeded.
func (a *AnalysisData) TimeBounds() (start, end time.Time) {
	start, _ = ParseDate(a.TimeStart)
	end, _ = ParseDate(a.TimeEnd)
	return start, end
}

// StepLabel renders the time step the way it appears in output filenames,
// e.g. "3Y" or "6M".
func (t TimeStepData) StepLabel() string {
	if t.Years > 0 {
		return fmt.Sprintf("%dY", t.Years)
	}
	return fmt.Sprintf("%dM", t.Months)
}

// Validate checks that exactly one catalog backend is configured
func (c *CatalogData) Validate() error {
	if c.ConnectionString == "" && c.SQLitePath == "" {
		return fmt.Errorf("catalog requires a connection_string or sqlite_path")
	}
	if c.ConnectionString != "" && c.SQLitePath != "" {
		return fmt.Errorf("catalog must configure either Postgres or SQLite, not both")
	}
	if c.BandRoot == "" {
		return fmt.Errorf("catalog band_root must not be empty")
	}
	return nil
}
