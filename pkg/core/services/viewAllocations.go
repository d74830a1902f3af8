package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/pkg/db"
)

// ViewAllocationsStore defines the database operations needed to view a pass
type ViewAllocationsStore interface {
	GetAllocationPasses(ctx context.Context) ([]db.AllocationPass, error)
	GetAllocations(ctx context.Context, passID string) ([]db.Allocation, error)
}

// ViewAllocationsResult is one persisted pass with its allocations,
// sorted by planet then building
type ViewAllocationsResult struct {
	Pass        db.AllocationPass
	Allocations []db.Allocation
}

// ViewAllocations loads the allocations of passID, or of the most recent
// pass when passID is empty
func ViewAllocations(ctx context.Context, store ViewAllocationsStore, logger *zap.Logger, passID string) (*ViewAllocationsResult, error) {
	logger.Debug("Viewing allocations", zap.String("pass_id", passID))

	passes, err := store.GetAllocationPasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allocation passes: %w", err)
	}
	if len(passes) == 0 {
		return nil, fmt.Errorf("no allocation passes found")
	}

	pass, ok := findPass(passes, passID)
	if !ok {
		return nil, fmt.Errorf("allocation pass %s not found", passID)
	}

	allocations, err := store.GetAllocations(ctx, pass.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allocations: %w", err)
	}

	sort.Slice(allocations, func(i, j int) bool {
		if allocations[i].PlanetID != allocations[j].PlanetID {
			return allocations[i].PlanetID < allocations[j].PlanetID
		}
		return allocations[i].BuildingID < allocations[j].BuildingID
	})

	logger.Debug("Loaded allocations",
		zap.String("pass_id", pass.ID),
		zap.String("day", pass.Day),
		zap.Int("count", len(allocations)))

	return &ViewAllocationsResult{Pass: pass, Allocations: allocations}, nil
}

// findPass returns the pass with passID, or the latest pass when passID is empty.
// Latest is the newest CreatedAt, ties broken by the later day.
func findPass(passes []db.AllocationPass, passID string) (db.AllocationPass, bool) {
	if passID != "" {
		for _, p := range passes {
			if p.ID == passID {
				return p, true
			}
		}
		return db.AllocationPass{}, false
	}

	latest := passes[0]
	for _, p := range passes[1:] {
		if p.CreatedAt.After(latest.CreatedAt) || (p.CreatedAt.Equal(latest.CreatedAt) && p.Day > latest.Day) {
			latest = p
		}
	}
	return latest, true
}
