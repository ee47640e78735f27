package catalog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/coastcube/filmstrip/internal/log"
	"go.uber.org/zap"
)

// PostgresCatalog holds the connection to a Postgres scene catalog
type PostgresCatalog struct {
	DB *gorm.DB
}

// OpenPostgres connects to the Postgres catalog and ensures the scene
// table exists
func OpenPostgres(connectionString string) (*PostgresCatalog, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to scene catalog...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to connect to scene catalog: %w", err)
	}
	log.Info("scene catalog connection successful")

	if err := db.AutoMigrate(&Scene{}); err != nil {
		return nil, fmt.Errorf("migrating scene table: %w", err)
	}

	return &PostgresCatalog{DB: db}, nil
}

// Scenes returns qualifying scenes ordered by acquisition time
func (c *PostgresCatalog) Scenes(ctx context.Context, q Query) ([]Scene, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	var scenes []Scene
	tx := c.DB.WithContext(ctx).
		Where("acquired_at >= ? AND acquired_at < ?", q.Start, q.End).
		Where("cloud_cover <= ?", q.MaxCloud).
		Where("min_lon < ? AND max_lon > ? AND min_lat < ? AND max_lat > ?",
			q.BBox.MaxLon, q.BBox.MinLon, q.BBox.MaxLat, q.BBox.MinLat).
		Order("acquired_at")

	if !q.LS7SLCOff {
		tx = tx.Where("NOT (platform = ? AND acquired_at >= ?)", Landsat7, SLCFailureDate)
	}

	if err := tx.Find(&scenes).Error; err != nil {
		return nil, fmt.Errorf("querying scenes: %w", err)
	}
	return scenes, nil
}

// sceneUpsert makes inserts replace the existing row when the scene ID
// collides, keeping repeated seeding runs idempotent
func sceneUpsert() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "scene_id"}},
		UpdateAll: true,
	}
}

// Insert adds scenes to the catalog, replacing rows with the same scene ID
func (c *PostgresCatalog) Insert(ctx context.Context, scenes []Scene) error {
	if len(scenes) == 0 {
		return nil
	}
	if err := c.DB.WithContext(ctx).Clauses(sceneUpsert()).Create(&scenes).Error; err != nil {
		return fmt.Errorf("inserting scenes: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (c *PostgresCatalog) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
