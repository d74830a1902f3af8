package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/internal/config"
	"github.com/jakechorley/colony-allocator/pkg/core/allocator"
	"github.com/jakechorley/colony-allocator/pkg/core/engine"
	"github.com/jakechorley/colony-allocator/pkg/core/model"
	"github.com/jakechorley/colony-allocator/pkg/db"
)

// AllocatePassStore defines the database operations needed for an allocation pass
type AllocatePassStore interface {
	GetPlanets(ctx context.Context) ([]db.Planet, error)
	GetBuildings(ctx context.Context) ([]db.Building, error)
	InsertAllocationPass(ctx context.Context, pass db.AllocationPass, allocations []db.Allocation, buildings []db.Building) error
}

// AllocationEngine computes groups off the caller's goroutine
type AllocationEngine interface {
	Compute(groups []*allocator.Group) []*engine.Task
}

// ShortageRecorder receives each planet's shortages after a pass
type ShortageRecorder interface {
	ObserveShortage(planetID string, workers, energy int)
}

// PlanetOutcome is one planet's result within a pass
type PlanetOutcome struct {
	Planet    model.Planet
	Buildings []*model.Building // every building on the planet, excluded ones at zero
	Excluded  int               // buildings under construction or inactive
	Outcome   allocator.Outcome
	Err       error // set when the planet could not be allocated; its buildings are unchanged
}

// WorkerShortage returns the planet's unmet worker demand
func (p PlanetOutcome) WorkerShortage() int {
	return p.Outcome.WorkerShortage()
}

// EnergyShortage returns the planet's unmet energy demand
func (p PlanetOutcome) EnergyShortage() int {
	return p.Outcome.EnergyShortage()
}

// PassResult is the result of one allocation pass
type PassResult struct {
	Pass    db.AllocationPass
	Planets []PlanetOutcome // sorted by planet ID
}

// Failed returns the number of planets that could not be allocated
func (r *PassResult) Failed() int {
	failed := 0
	for _, p := range r.Planets {
		if p.Err != nil {
			failed++
		}
	}
	return failed
}

// AllocatePass runs one allocation pass over every planet for day.
// Each planet becomes one group on the engine. Unless dryRun, the updated
// buildings and one allocation record per building are persisted in a
// single store transaction.
// A planet that fails (invalid demand, strategy panic) keeps its previous
// allocation and is reported in its PlanetOutcome; the rest of the pass
// still completes. recorder may be nil.
func AllocatePass(
	ctx context.Context,
	store AllocatePassStore,
	eng AllocationEngine,
	cfg *config.Config,
	logger *zap.Logger,
	day time.Time,
	dryRun bool,
	recorder ShortageRecorder,
) (*PassResult, error) {
	dayStr := day.Format(dayLayout)
	logger.Debug("Starting allocation pass", zap.String("day", dayStr), zap.Bool("dry_run", dryRun))

	// Step 1: Load the world
	planetRecords, err := store.GetPlanets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch planets: %w", err)
	}
	buildingRecords, err := store.GetBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch buildings: %w", err)
	}

	logger.Debug("Loaded world",
		zap.Int("planets", len(planetRecords)),
		zap.Int("buildings", len(buildingRecords)))

	overrides, err := compileOverrides(cfg)
	if err != nil {
		return nil, err
	}

	sort.Slice(planetRecords, func(i, j int) bool {
		return planetRecords[i].ID < planetRecords[j].ID
	})

	buildingsByPlanet := make(map[string][]*model.Building)
	for _, record := range buildingRecords {
		buildingsByPlanet[record.PlanetID] = append(buildingsByPlanet[record.PlanetID], toModelBuilding(record))
	}

	// Step 2: Build one group per planet
	result := &PassResult{
		Pass: db.AllocationPass{
			ID:        uuid.New().String(),
			Day:       dayStr,
			DryRun:    dryRun,
			CreatedAt: time.Now().UTC(),
		},
		Planets: make([]PlanetOutcome, len(planetRecords)),
	}

	var groups []*allocator.Group
	var groupPlanets []int

	for i, record := range planetRecords {
		planet := toModelPlanet(record)
		buildings := buildingsByPlanet[planet.ID]
		delete(buildingsByPlanet, planet.ID)

		outcome := &result.Planets[i]
		outcome.Planet = planet
		outcome.Buildings = buildings

		strategy, source, err := resolveStrategy(planet, day, overrides, cfg)
		if err != nil {
			outcome.Err = err
			logger.Warn("Failed to resolve strategy, planet skipped", zap.String("planet", planet.ID), zap.Error(err))
			continue
		}

		var profiles []*allocator.Profile
		for _, b := range buildings {
			if !b.Participates() {
				outcome.Excluded++
				continue
			}
			profiles = append(profiles, b.Profile())
		}

		group, err := allocator.NewGroup(profiles, planet.AvailableWorkers, strategy)
		if err != nil {
			outcome.Err = err
			outcome.Outcome.Strategy = strategy.Name()
			logger.Warn("Invalid allocation group, planet skipped", zap.String("planet", planet.ID), zap.Error(err))
			continue
		}

		logger.Debug("Planet group built",
			zap.String("planet", planet.ID),
			zap.String("strategy", strategy.Name()),
			zap.String("strategy_source", string(source)),
			zap.Int("profiles", len(profiles)),
			zap.Int("excluded", outcome.Excluded),
			zap.Int("available_workers", planet.AvailableWorkers))

		groups = append(groups, group)
		groupPlanets = append(groupPlanets, i)
	}

	for planetID, orphans := range buildingsByPlanet {
		logger.Warn("Buildings reference an unknown planet, skipped",
			zap.String("planet", planetID),
			zap.Int("buildings", len(orphans)))
	}

	// Step 3: Compute on the engine and wait for every write-back
	tasks := eng.Compute(groups)
	for k, task := range tasks {
		outcome := &result.Planets[groupPlanets[k]]

		res, err := task.Wait(ctx)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("allocation pass interrupted: %w", ctx.Err())
		}
		outcome.Outcome = res
		if err != nil {
			outcome.Err = err
			logger.Warn("Planet allocation failed, previous allocation kept",
				zap.String("planet", outcome.Planet.ID),
				zap.Error(err))
		}
	}

	// Step 4: Excluded buildings get nothing this pass. They are released by
	// a Zero group so their write-back goes through the engine's committer
	// like every other allocation.
	var releases []*allocator.Group
	var releasePlanets []int
	for i := range result.Planets {
		outcome := &result.Planets[i]
		if outcome.Err != nil || outcome.Excluded == 0 {
			continue
		}
		releases = append(releases, releaseGroup(outcome.Buildings))
		releasePlanets = append(releasePlanets, i)
	}

	for k, task := range eng.Compute(releases) {
		outcome := &result.Planets[releasePlanets[k]]

		_, err := task.Wait(ctx)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("allocation pass interrupted: %w", ctx.Err())
		}
		if err != nil {
			outcome.Err = fmt.Errorf("failed to release excluded buildings: %w", err)
			logger.Warn("Failed to release excluded buildings, planet not persisted",
				zap.String("planet", outcome.Planet.ID),
				zap.Error(err))
		}
	}

	for _, outcome := range result.Planets {
		if outcome.Err != nil {
			continue
		}

		if recorder != nil {
			recorder.ObserveShortage(outcome.Planet.ID, outcome.WorkerShortage(), outcome.EnergyShortage())
		}

		if outcome.WorkerShortage() > 0 || outcome.EnergyShortage() > 0 {
			logger.Debug("Planet has shortages",
				zap.String("planet", outcome.Planet.ID),
				zap.Int("worker_shortage", outcome.WorkerShortage()),
				zap.Int("energy_shortage", outcome.EnergyShortage()))
		}
	}

	// Step 5: Persist
	var updated []db.Building
	var allocations []db.Allocation
	for _, outcome := range result.Planets {
		if outcome.Err != nil {
			continue
		}
		for _, b := range outcome.Buildings {
			updated = append(updated, toBuildingRecord(b))
			allocations = append(allocations, db.Allocation{
				ID:              uuid.New().String(),
				PassID:          result.Pass.ID,
				PlanetID:        outcome.Planet.ID,
				BuildingID:      b.ID,
				Strategy:        outcome.Outcome.Strategy,
				FellBack:        outcome.Outcome.FellBack,
				WorkerDemand:    b.WorkerDemand,
				WorkerAllocated: b.WorkerAllocated,
				EnergyDemand:    b.EnergyDemand,
				EnergyAllocated: b.EnergyAllocated,
			})
		}
	}

	if dryRun {
		logger.Info("Dry run complete, nothing persisted",
			zap.String("day", dayStr),
			zap.Int("planets", len(result.Planets)),
			zap.Int("failed", result.Failed()))
		return result, nil
	}

	if err := store.InsertAllocationPass(ctx, result.Pass, allocations, updated); err != nil {
		return nil, fmt.Errorf("failed to insert allocation pass: %w", err)
	}

	logger.Info("Allocation pass complete",
		zap.String("pass_id", result.Pass.ID),
		zap.String("day", dayStr),
		zap.Int("planets", len(result.Planets)),
		zap.Int("failed", result.Failed()),
		zap.Int("allocations", len(allocations)))

	return result, nil
}

// releaseGroup builds a Zero group over the buildings that sit out a pass.
// Demand plays no part in a release, so the profiles carry none.
func releaseGroup(buildings []*model.Building) *allocator.Group {
	var profiles []*allocator.Profile
	for _, b := range buildings {
		if !b.Participates() {
			profiles = append(profiles, &allocator.Profile{EfficiencyBound: 1, Owner: b})
		}
	}
	return &allocator.Group{Profiles: profiles, Strategy: allocator.Zero{}}
}
