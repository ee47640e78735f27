package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validAnalysis() AnalysisData {
	return AnalysisData{
		OutputName: "example",
		TimeStart:  "2013",
		TimeEnd:    "2021",
		TimeStep:   TimeStepData{Years: 3},
		TideRange:  [2]float64{0.0, 1.0},
		Resolution: [2]float64{0.001, 0.001},
		MaxCloud:   0.5,
	}
}

func TestAnalysisValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AnalysisData)
		wantErr bool
	}{
		{
			name:   "valid config",
			mutate: func(a *AnalysisData) {},
		},
		{
			name:   "partial tide window",
			mutate: func(a *AnalysisData) { a.TideRange = [2]float64{0.25, 0.75} },
		},
		{
			name:   "monthly step",
			mutate: func(a *AnalysisData) { a.TimeStep = TimeStepData{Months: 6} },
		},
		{
			name:    "empty output name",
			mutate:  func(a *AnalysisData) { a.OutputName = "" },
			wantErr: true,
		},
		{
			name:    "inverted time range",
			mutate:  func(a *AnalysisData) { a.TimeStart, a.TimeEnd = "2021", "2013" },
			wantErr: true,
		},
		{
			name:    "equal time bounds",
			mutate:  func(a *AnalysisData) { a.TimeEnd = a.TimeStart },
			wantErr: true,
		},
		{
			name:    "tide range above one",
			mutate:  func(a *AnalysisData) { a.TideRange = [2]float64{0.5, 1.5} },
			wantErr: true,
		},
		{
			name:    "tide range inverted",
			mutate:  func(a *AnalysisData) { a.TideRange = [2]float64{0.8, 0.2} },
			wantErr: true,
		},
		{
			name:    "negative max cloud",
			mutate:  func(a *AnalysisData) { a.MaxCloud = -0.1 },
			wantErr: true,
		},
		{
			name:    "max cloud above one",
			mutate:  func(a *AnalysisData) { a.MaxCloud = 1.2 },
			wantErr: true,
		},
		{
			name:    "zero time step",
			mutate:  func(a *AnalysisData) { a.TimeStep = TimeStepData{} },
			wantErr: true,
		},
		{
			name:    "years and months both set",
			mutate:  func(a *AnalysisData) { a.TimeStep = TimeStepData{Years: 1, Months: 6} },
			wantErr: true,
		},
		{
			name:    "zero resolution",
			mutate:  func(a *AnalysisData) { a.Resolution = [2]float64{0, 0.001} },
			wantErr: true,
		},
		{
			name:    "garbage date",
			mutate:  func(a *AnalysisData) { a.TimeStart = "sometime" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAnalysis()
			tt.mutate(&a)
			err := a.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2013", time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2016-07", time.Date(2016, 7, 1, 0, 0, 0, 0, time.UTC)},
		{"2019-03-15", time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseDate("13-2021"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestStepLabel(t *testing.T) {
	if got := (TimeStepData{Years: 3}).StepLabel(); got != "3Y" {
		t.Errorf("StepLabel years = %q, want 3Y", got)
	}
	if got := (TimeStepData{Months: 6}).StepLabel(); got != "6M" {
		t.Errorf("StepLabel months = %q, want 6M", got)
	}
}

func TestYAMLProviderLoad(t *testing.T) {
	yamlContent := `
analysis:
  output-name: coastal_change
  time-start: "2013"
  time-end: "2021"
  time-step:
    years: 3
  tide-range: [0.0, 1.0]
  resolution: [0.00025, 0.00025]
  max-cloud: 0.5
  ls7-slc-off: false
  output-dir: /tmp/filmstrip-out
catalog:
  sqlite-path: /tmp/scenes.db
  band-root: /tmp/bands
selector:
  listen-addr: 127.0.0.1
  port: 8090
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}

	provider := NewYAMLProvider(path)
	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Analysis.OutputName != "coastal_change" {
		t.Errorf("output name = %q", cfg.Analysis.OutputName)
	}
	if cfg.Analysis.TimeStep.Years != 3 {
		t.Errorf("step years = %d, want 3", cfg.Analysis.TimeStep.Years)
	}
	if cfg.Analysis.LS7SLCOff {
		t.Error("ls7_slc_off should be false")
	}
	if cfg.Catalog.SQLitePath != "/tmp/scenes.db" {
		t.Errorf("sqlite path = %q", cfg.Catalog.SQLitePath)
	}
	if cfg.Selector == nil || cfg.Selector.Port != 8090 {
		t.Errorf("selector = %+v, want port 8090", cfg.Selector)
	}

	if err := cfg.Analysis.Validate(); err != nil {
		t.Errorf("loaded analysis should validate: %v", err)
	}
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.db")

	provider, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer provider.Close()

	if err := provider.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	want := &ConfigData{
		Analysis: AnalysisData{
			OutputName: "coastal_change",
			TimeStart:  "2013",
			TimeEnd:    "2021",
			TimeStep:   TimeStepData{Years: 3},
			TideRange:  [2]float64{0.25, 0.75},
			Resolution: [2]float64{0.00025, 0.00025},
			MaxCloud:   0.5,
			OutputDir:  "/tmp/filmstrip-out",
		},
		Catalog: CatalogData{
			SQLitePath: "/tmp/scenes.db",
			BandRoot:   "/tmp/bands",
		},
		Selector: &SelectorData{ListenAddr: "127.0.0.1", Port: 8090},
	}

	if err := provider.SaveConfig(want); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got.Analysis != want.Analysis {
		t.Errorf("analysis round trip mismatch:\n got %+v\nwant %+v", got.Analysis, want.Analysis)
	}
	if got.Catalog != want.Catalog {
		t.Errorf("catalog round trip mismatch:\n got %+v\nwant %+v", got.Catalog, want.Catalog)
	}
	if got.Selector == nil || *got.Selector != *want.Selector {
		t.Errorf("selector round trip mismatch: got %+v", got.Selector)
	}

	// Saving again must replace, not duplicate
	want.Analysis.MaxCloud = 0.2
	if err := provider.SaveConfig(want); err != nil {
		t.Fatalf("second SaveConfig: %v", err)
	}
	got, err = provider.LoadConfig()
	if err != nil {
		t.Fatalf("second LoadConfig: %v", err)
	}
	if got.Analysis.MaxCloud != 0.2 {
		t.Errorf("max cloud after resave = %v, want 0.2", got.Analysis.MaxCloud)
	}
}

func TestSQLiteProviderMissingSelector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.db")

	provider, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer provider.Close()

	if err := provider.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	cfg := &ConfigData{
		Analysis: validAnalysis(),
		Catalog:  CatalogData{SQLitePath: "/tmp/scenes.db", BandRoot: "/tmp/bands"},
	}
	if err := provider.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	sel, err := provider.GetSelectorConfig()
	if err != nil {
		t.Fatalf("GetSelectorConfig: %v", err)
	}
	if sel != nil {
		t.Errorf("expected nil selector when none stored, got %+v", sel)
	}
}
