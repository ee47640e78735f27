// Package migrate applies versioned SQL schema migrations. Each
// migration runs in its own transaction together with the version
// bookkeeping, so a failed migration leaves the schema untouched.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one schema version step
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// DB is satisfied by both *sql.DB and *sql.Tx
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Provider supplies migrations and tracks the applied version
type Provider interface {
	Migrations() ([]Migration, error)
	CurrentVersion(db *sql.DB) (int, error)
	SetVersion(db DB, version int) error
	EnsureVersionTable(db *sql.DB) error
}

// Migrator applies migrations from a provider to a database
type Migrator struct {
	db       *sql.DB
	provider Provider
}

// New creates a migrator
func New(db *sql.DB, provider Provider) *Migrator {
	return &Migrator{db: db, provider: provider}
}

// Up applies all pending migrations
func (m *Migrator) Up() error {
	return m.To(-1)
}

// To migrates up or down until the schema is at targetVersion. A target
// of -1 means the latest known version.
func (m *Migrator) To(targetVersion int) error {
	if err := m.provider.EnsureVersionTable(m.db); err != nil {
		return err
	}

	current, err := m.provider.CurrentVersion(m.db)
	if err != nil {
		return err
	}

	migrations, err := m.provider.Migrations()
	if err != nil {
		return err
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	if targetVersion == -1 {
		if len(migrations) == 0 {
			return nil
		}
		targetVersion = migrations[len(migrations)-1].Version
	}

	if targetVersion < current {
		return m.down(migrations, current, targetVersion)
	}

	for _, mig := range migrations {
		if mig.Version > current && mig.Version <= targetVersion {
			if err := m.apply(mig, true); err != nil {
				return fmt.Errorf("applying migration %d (%s): %w", mig.Version, mig.Name, err)
			}
		}
	}
	return nil
}

// CurrentVersion reports the highest applied migration version
func (m *Migrator) CurrentVersion() (int, error) {
	if err := m.provider.EnsureVersionTable(m.db); err != nil {
		return 0, err
	}
	return m.provider.CurrentVersion(m.db)
}

// down reverts migrations above targetVersion, newest first
func (m *Migrator) down(migrations []Migration, current, targetVersion int) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		mig := migrations[i]
		if mig.Version <= current && mig.Version > targetVersion {
			if err := m.apply(mig, false); err != nil {
				return fmt.Errorf("reverting migration %d (%s): %w", mig.Version, mig.Name, err)
			}
		}
	}
	return nil
}

// apply runs one migration and its version update in a transaction
func (m *Migrator) apply(mig Migration, up bool) error {
	stmt := mig.Up
	newVersion := mig.Version
	if !up {
		stmt = mig.Down
		newVersion = mig.Version - 1
	}
	if stmt == "" {
		return fmt.Errorf("migration %d has no SQL for this direction", mig.Version)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return err
	}
	if err := m.provider.SetVersion(tx, newVersion); err != nil {
		return err
	}
	return tx.Commit()
}
