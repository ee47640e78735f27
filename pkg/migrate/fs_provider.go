package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
)

var (
	upPattern   = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)
	downPattern = regexp.MustCompile(`^(\d+)_(.+)\.down\.sql$`)
)

// FSProvider loads migrations from a filesystem, typically an embed.FS.
// Files are named 001_migration_name.up.sql and 001_migration_name.down.sql.
type FSProvider struct {
	fsys         fs.FS
	versionTable string
	driver       string // "sqlite" or "postgres"
}

// NewFSProvider creates a migration provider over the given filesystem
func NewFSProvider(fsys fs.FS, versionTable, driver string) *FSProvider {
	if versionTable == "" {
		versionTable = "schema_migrations"
	}
	if driver == "" {
		driver = "sqlite"
	}
	return &FSProvider{fsys: fsys, versionTable: versionTable, driver: driver}
}

// Migrations parses every migration file in the filesystem
func (p *FSProvider) Migrations() ([]Migration, error) {
	byVersion := make(map[int]*Migration)

	err := fs.WalkDir(p.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		name := d.Name()
		matches := upPattern.FindStringSubmatch(name)
		up := matches != nil
		if matches == nil {
			matches = downPattern.FindStringSubmatch(name)
		}
		if matches == nil {
			return nil
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return fmt.Errorf("bad version in migration file %s: %w", name, err)
		}

		content, err := fs.ReadFile(p.fsys, path)
		if err != nil {
			return fmt.Errorf("reading migration file %s: %w", path, err)
		}

		mig := byVersion[version]
		if mig == nil {
			mig = &Migration{Version: version, Name: strings.ReplaceAll(matches[2], "_", " ")}
			byVersion[version] = mig
		}
		if up {
			mig.Up = string(content)
		} else {
			mig.Down = string(content)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		migrations = append(migrations, *mig)
	}
	return migrations, nil
}

// EnsureVersionTable creates the version tracking table if needed
func (p *FSProvider) EnsureVersionTable(db *sql.DB) error {
	timestampType := "DATETIME"
	if p.driver == "postgres" {
		timestampType = "TIMESTAMP"
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			applied_at %s DEFAULT CURRENT_TIMESTAMP
		)
	`, p.versionTable, timestampType)
	_, err := db.Exec(query)
	return err
}

// CurrentVersion returns the highest applied migration version
func (p *FSProvider) CurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", p.versionTable)).Scan(&version)
	return version, err
}

// SetVersion records the schema version
func (p *FSProvider) SetVersion(db DB, version int) error {
	if version == 0 {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", p.versionTable))
		return err
	}

	var query string
	if p.driver == "postgres" {
		query = fmt.Sprintf(`
			INSERT INTO %s (version, applied_at)
			VALUES ($1, CURRENT_TIMESTAMP)
			ON CONFLICT (version) DO UPDATE SET applied_at = CURRENT_TIMESTAMP
		`, p.versionTable)
	} else {
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (version, applied_at)
			VALUES (?, CURRENT_TIMESTAMP)
		`, p.versionTable)
	}
	_, err := db.Exec(query, version)
	return err
}
