package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/pkg/core/model"
	"github.com/jakechorley/colony-allocator/pkg/db"
)

// PlanetSummary totals a planet's buildings and current allocation
type PlanetSummary struct {
	Planet          model.Planet
	Buildings       int
	Participating   int
	WorkerDemand    int
	WorkerAllocated int
	EnergyDemand    int // consumer demand only
	EnergyAllocated int // energy delivered to consumers
	EnergyProduced  int
}

// ListPlanets summarises every planet, sorted by ID
func ListPlanets(ctx context.Context, store db.WorldStore, logger *zap.Logger) ([]PlanetSummary, error) {
	planets, err := store.GetPlanets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch planets: %w", err)
	}
	buildings, err := store.GetBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch buildings: %w", err)
	}

	index := make(map[string]int, len(planets))
	summaries := make([]PlanetSummary, len(planets))
	for i, p := range planets {
		summaries[i].Planet = toModelPlanet(p)
		index[p.ID] = i
	}

	for _, record := range buildings {
		i, ok := index[record.PlanetID]
		if !ok {
			continue
		}
		s := &summaries[i]
		b := toModelBuilding(record)

		s.Buildings++
		if !b.Participates() {
			continue
		}
		s.Participating++
		s.WorkerDemand += b.WorkerDemand
		s.WorkerAllocated += b.WorkerAllocated
		if b.ProducesEnergy() {
			s.EnergyProduced += b.EnergyAllocated
		} else {
			s.EnergyDemand += b.EnergyDemand
			s.EnergyAllocated += b.EnergyAllocated
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Planet.ID < summaries[j].Planet.ID
	})

	logger.Debug("Listed planets", zap.Int("planets", len(summaries)), zap.Int("buildings", len(buildings)))

	return summaries, nil
}
