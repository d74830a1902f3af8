package sqlite

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/jakechorley/colony-allocator/pkg/db"
)

// DB implements db.Database on a local SQLite file through gorm
type DB struct {
	gorm   *gorm.DB
	logger *zap.Logger
}

// NewDB opens (or creates) the SQLite database at path and migrates the schema.
// ":memory:" gives a private in-memory database.
func NewDB(path string, log *zap.Logger) (*DB, error) {
	if path == "" {
		path = ":memory:"
	}

	g, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := g.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying db: %w", err)
	}
	// SQLite allows one writer; an in-memory database is also private to its connection
	sqlDB.SetMaxOpenConns(1)

	if err := g.AutoMigrate(&db.Planet{}, &db.Building{}, &db.AllocationPass{}, &db.Allocation{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Debug("SQLite database ready", zap.String("path", path))

	return &DB{gorm: g, logger: log}, nil
}

// Close closes the underlying connection
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetPlanets retrieves all planet records ordered by ID
func (d *DB) GetPlanets(ctx context.Context) ([]db.Planet, error) {
	var planets []db.Planet
	if err := d.gorm.WithContext(ctx).Order("id").Find(&planets).Error; err != nil {
		return nil, fmt.Errorf("failed to query planets: %w", err)
	}
	return planets, nil
}

// GetBuildings retrieves all building records ordered by planet, then ID
func (d *DB) GetBuildings(ctx context.Context) ([]db.Building, error) {
	var buildings []db.Building
	if err := d.gorm.WithContext(ctx).Order("planet_id, id").Find(&buildings).Error; err != nil {
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}
	return buildings, nil
}

// UpsertPlanets inserts planets or updates them in place
func (d *DB) UpsertPlanets(ctx context.Context, planets []db.Planet) error {
	if len(planets) == 0 {
		return nil
	}
	err := d.gorm.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&planets).Error
	if err != nil {
		return fmt.Errorf("failed to upsert planets: %w", err)
	}
	return nil
}

// UpsertBuildings inserts buildings or updates them in place, including their allocation
func (d *DB) UpsertBuildings(ctx context.Context, buildings []db.Building) error {
	if len(buildings) == 0 {
		return nil
	}
	err := d.gorm.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&buildings).Error
	if err != nil {
		return fmt.Errorf("failed to upsert buildings: %w", err)
	}
	return nil
}

// GetAllocationPasses retrieves all allocation passes, oldest first
func (d *DB) GetAllocationPasses(ctx context.Context) ([]db.AllocationPass, error) {
	var passes []db.AllocationPass
	if err := d.gorm.WithContext(ctx).Order("created_at").Find(&passes).Error; err != nil {
		return nil, fmt.Errorf("failed to query allocation passes: %w", err)
	}
	return passes, nil
}

// GetAllocations retrieves the allocation records of one pass
func (d *DB) GetAllocations(ctx context.Context, passID string) ([]db.Allocation, error) {
	var allocations []db.Allocation
	err := d.gorm.WithContext(ctx).
		Where("pass_id = ?", passID).
		Order("planet_id, building_id").
		Find(&allocations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	return allocations, nil
}

// InsertAllocationPass records a pass, its allocations and the updated
// buildings in one transaction
func (d *DB) InsertAllocationPass(ctx context.Context, pass db.AllocationPass, allocations []db.Allocation, buildings []db.Building) error {
	return d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(buildings) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&buildings).Error; err != nil {
				return fmt.Errorf("failed to upsert buildings: %w", err)
			}
		}
		if err := tx.Create(&pass).Error; err != nil {
			return fmt.Errorf("failed to insert allocation pass: %w", err)
		}
		if len(allocations) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&allocations, 200).Error; err != nil {
			return fmt.Errorf("failed to insert allocations: %w", err)
		}
		return nil
	})
}
