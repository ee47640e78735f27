package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCatalog backs the scene catalog with a local SQLite file, the
// same way the configuration's SQLite provider works
type SQLiteCatalog struct {
	db *sql.DB
}

const sceneSchema = `
CREATE TABLE IF NOT EXISTS scenes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scene_id TEXT NOT NULL UNIQUE,
	platform TEXT NOT NULL,
	acquired_at TIMESTAMP NOT NULL,
	cloud_cover REAL NOT NULL,
	tide_height REAL NOT NULL,
	min_lon REAL NOT NULL,
	min_lat REAL NOT NULL,
	max_lon REAL NOT NULL,
	max_lat REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scenes_acquired_at ON scenes(acquired_at);
CREATE INDEX IF NOT EXISTS idx_scenes_platform ON scenes(platform);
`

// OpenSQLite opens (creating if needed) a SQLite scene catalog
func OpenSQLite(path string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite catalog: %w", err)
	}
	if _, err := db.Exec(sceneSchema); err != nil {
		return nil, fmt.Errorf("failed to create scene table: %w", err)
	}
	return &SQLiteCatalog{db: db}, nil
}

// Scenes returns qualifying scenes ordered by acquisition time
func (c *SQLiteCatalog) Scenes(ctx context.Context, q Query) ([]Scene, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	query := `
		SELECT id, scene_id, platform, acquired_at, cloud_cover, tide_height,
		       min_lon, min_lat, max_lon, max_lat
		FROM scenes
		WHERE acquired_at >= ? AND acquired_at < ?
		  AND cloud_cover <= ?
		  AND min_lon < ? AND max_lon > ? AND min_lat < ? AND max_lat > ?
		ORDER BY acquired_at
	`

	rows, err := c.db.QueryContext(ctx, query,
		q.Start.UTC().Format(time.RFC3339), q.End.UTC().Format(time.RFC3339),
		q.MaxCloud,
		q.BBox.MaxLon, q.BBox.MinLon, q.BBox.MaxLat, q.BBox.MinLat)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		var s Scene
		var acquired string
		err := rows.Scan(&s.ID, &s.SceneID, &s.Platform, &acquired, &s.CloudCover,
			&s.TideHeight, &s.MinLon, &s.MinLat, &s.MaxLon, &s.MaxLat)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scene row: %w", err)
		}
		s.AcquiredAt, err = time.Parse(time.RFC3339, acquired)
		if err != nil {
			return nil, fmt.Errorf("failed to parse acquisition time %q: %w", acquired, err)
		}

		// SLC-off exclusion handled here; SQLite keeps the SQL simple
		if !matchesPlatformWindow(&s, q.LS7SLCOff) {
			continue
		}
		scenes = append(scenes, s)
	}
	return scenes, rows.Err()
}

// Insert adds scenes to the catalog, replacing rows with the same scene ID
func (c *SQLiteCatalog) Insert(ctx context.Context, scenes []Scene) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO scenes
			(scene_id, platform, acquired_at, cloud_cover, tide_height,
			 min_lon, min_lat, max_lon, max_lat)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range scenes {
		_, err = stmt.ExecContext(ctx, s.SceneID, s.Platform,
			s.AcquiredAt.UTC().Format(time.RFC3339), s.CloudCover, s.TideHeight,
			s.MinLon, s.MinLat, s.MaxLon, s.MaxLat)
		if err != nil {
			return fmt.Errorf("failed to insert scene %s: %w", s.SceneID, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (c *SQLiteCatalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
