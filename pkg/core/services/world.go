package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/pkg/core/model"
	"github.com/jakechorley/colony-allocator/pkg/db"
	"github.com/jakechorley/colony-allocator/pkg/snapshot"
)

// ImportWorldResult summarises an imported snapshot
type ImportWorldResult struct {
	Planets   int
	Buildings int
}

// ImportWorld reads a snapshot file and upserts every planet and building in it
func ImportWorld(ctx context.Context, store db.WorldStore, logger *zap.Logger, path string) (*ImportWorldResult, error) {
	logger.Debug("Importing world", zap.String("path", path), zap.Bool("compressed", snapshot.IsCompressed(path)))

	world, err := snapshot.Read(path)
	if err != nil {
		return nil, err
	}

	for _, b := range world.Buildings {
		if !model.BuildingKind(b.Kind).IsValid() {
			return nil, fmt.Errorf("%w: building %q has unknown kind %q", snapshot.ErrInvalidSnapshot, b.ID, b.Kind)
		}
	}

	// Planets first so buildings never reference a missing planet
	if len(world.Planets) > 0 {
		if err := store.UpsertPlanets(ctx, world.Planets); err != nil {
			return nil, fmt.Errorf("failed to upsert planets: %w", err)
		}
	}
	if len(world.Buildings) > 0 {
		if err := store.UpsertBuildings(ctx, world.Buildings); err != nil {
			return nil, fmt.Errorf("failed to upsert buildings: %w", err)
		}
	}

	logger.Info("World imported",
		zap.String("path", path),
		zap.Int("planets", len(world.Planets)),
		zap.Int("buildings", len(world.Buildings)))

	return &ImportWorldResult{
		Planets:   len(world.Planets),
		Buildings: len(world.Buildings),
	}, nil
}

// ExportWorld writes every planet and building to a snapshot file.
// Paths ending in .zst are zstd-compressed.
func ExportWorld(ctx context.Context, store db.WorldStore, logger *zap.Logger, path string) (*snapshot.World, error) {
	planets, err := store.GetPlanets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch planets: %w", err)
	}
	buildings, err := store.GetBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch buildings: %w", err)
	}

	world := &snapshot.World{
		ExportedAt: time.Now().UTC(),
		Planets:    planets,
		Buildings:  buildings,
	}
	if world.Planets == nil {
		world.Planets = []db.Planet{}
	}
	if world.Buildings == nil {
		world.Buildings = []db.Building{}
	}

	if err := snapshot.Write(path, world); err != nil {
		return nil, err
	}

	logger.Info("World exported",
		zap.String("path", path),
		zap.Int("planets", len(planets)),
		zap.Int("buildings", len(buildings)))

	return world, nil
}
