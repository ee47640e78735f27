package config

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/coastcube/filmstrip/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationFiles embed.FS

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	analysis, err := s.GetAnalysis()
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis config: %w", err)
	}
	config.Analysis = *analysis

	catalog, err := s.GetCatalogConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog config: %w", err)
	}
	config.Catalog = *catalog

	selector, err := s.GetSelectorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load selector config: %w", err)
	}
	config.Selector = selector

	return config, nil
}

// GetAnalysis returns the analysis parameters from the database
func (s *SQLiteProvider) GetAnalysis() (*AnalysisData, error) {
	query := `
		SELECT output_name, time_start, time_end, step_years, step_months,
		       tide_low, tide_high, resolution_x, resolution_y, max_cloud,
		       ls7_slc_off, size_limit_km2, output_dir
		FROM analysis
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var a AnalysisData
	var stepYears, stepMonths sql.NullInt64
	var sizeLimit sql.NullFloat64
	var outputDir sql.NullString

	err := s.db.QueryRow(query).Scan(
		&a.OutputName, &a.TimeStart, &a.TimeEnd, &stepYears, &stepMonths,
		&a.TideRange[0], &a.TideRange[1], &a.Resolution[0], &a.Resolution[1],
		&a.MaxCloud, &a.LS7SLCOff, &sizeLimit, &outputDir,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis config: %w", err)
	}

	if stepYears.Valid {
		a.TimeStep.Years = int(stepYears.Int64)
	}
	if stepMonths.Valid {
		a.TimeStep.Months = int(stepMonths.Int64)
	}
	if sizeLimit.Valid {
		a.SizeLimitKm2 = sizeLimit.Float64
	}
	if outputDir.Valid {
		a.OutputDir = outputDir.String
	}

	return &a, nil
}

// GetCatalogConfig returns the scene catalog configuration from the database
func (s *SQLiteProvider) GetCatalogConfig() (*CatalogData, error) {
	query := `
		SELECT connection_string, sqlite_path, band_root
		FROM catalog
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var c CatalogData
	var connStr, sqlitePath sql.NullString

	err := s.db.QueryRow(query).Scan(&connStr, &sqlitePath, &c.BandRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog config: %w", err)
	}

	if connStr.Valid {
		c.ConnectionString = connStr.String
	}
	if sqlitePath.Valid {
		c.SQLitePath = sqlitePath.String
	}

	return &c, nil
}

// GetSelectorConfig returns the area-selection server configuration from the
// database. A missing row means the selector is disabled; that is not an error.
func (s *SQLiteProvider) GetSelectorConfig() (*SelectorData, error) {
	query := `
		SELECT listen_addr, port
		FROM selector
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var sel SelectorData
	var listenAddr sql.NullString
	var port sql.NullInt64

	err := s.db.QueryRow(query).Scan(&listenAddr, &port)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query selector config: %w", err)
	}

	if listenAddr.Valid {
		sel.ListenAddr = listenAddr.String
	}
	if port.Valid {
		sel.Port = int(port.Int64)
	}

	return &sel, nil
}

// Migrate brings the configuration schema up to the latest version
func (s *SQLiteProvider) Migrate() error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	migrator := migrate.New(s.db, migrate.NewFSProvider(sub, "schema_migrations", "sqlite"))
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("migrating configuration schema: %w", err)
	}
	return nil
}

// SaveConfig writes the complete configuration under the default config
// name, replacing whatever was stored before. The schema must already be
// migrated.
func (s *SQLiteProvider) SaveConfig(cfg *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO configs (name) VALUES ('default')`); err != nil {
		return fmt.Errorf("creating default config row: %w", err)
	}

	var configID int64
	if err := tx.QueryRow(`SELECT id FROM configs WHERE name = 'default'`).Scan(&configID); err != nil {
		return fmt.Errorf("resolving default config row: %w", err)
	}

	for _, table := range []string{"analysis", "catalog", "selector"} {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE config_id = ?", table), configID); err != nil {
			return fmt.Errorf("clearing %s rows: %w", table, err)
		}
	}

	a := cfg.Analysis
	_, err = tx.Exec(`
		INSERT INTO analysis (config_id, output_name, time_start, time_end,
			step_years, step_months, tide_low, tide_high,
			resolution_x, resolution_y, max_cloud, ls7_slc_off,
			size_limit_km2, output_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		configID, a.OutputName, a.TimeStart, a.TimeEnd,
		nullableInt(a.TimeStep.Years), nullableInt(a.TimeStep.Months),
		a.TideRange[0], a.TideRange[1],
		a.Resolution[0], a.Resolution[1], a.MaxCloud, a.LS7SLCOff,
		nullableFloat(a.SizeLimitKm2), nullableString(a.OutputDir),
	)
	if err != nil {
		return fmt.Errorf("saving analysis config: %w", err)
	}

	c := cfg.Catalog
	_, err = tx.Exec(`
		INSERT INTO catalog (config_id, connection_string, sqlite_path, band_root)
		VALUES (?, ?, ?, ?)`,
		configID, nullableString(c.ConnectionString), nullableString(c.SQLitePath), c.BandRoot,
	)
	if err != nil {
		return fmt.Errorf("saving catalog config: %w", err)
	}

	if cfg.Selector != nil {
		_, err = tx.Exec(`
			INSERT INTO selector (config_id, listen_addr, port)
			VALUES (?, ?, ?)`,
			configID, nullableString(cfg.Selector.ListenAddr), nullableInt(cfg.Selector.Port),
		)
		if err != nil {
			return fmt.Errorf("saving selector config: %w", err)
		}
	}

	return tx.Commit()
}

func nullableInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullableFloat(v float64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// IsReadOnly returns false since SQLite configurations can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
