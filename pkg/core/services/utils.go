package services

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jakechorley/colony-allocator/internal/config"
	"github.com/jakechorley/colony-allocator/pkg/core/allocator"
	"github.com/jakechorley/colony-allocator/pkg/core/model"
	"github.com/jakechorley/colony-allocator/pkg/db"
)

const dayLayout = "2006-01-02"

func toModelPlanet(p db.Planet) model.Planet {
	return model.Planet{
		ID:               p.ID,
		Name:             p.Name,
		AvailableWorkers: p.AvailableWorkers,
		Strategy:         p.Strategy,
		Paused:           p.Paused,
	}
}

func toModelBuilding(b db.Building) *model.Building {
	return &model.Building{
		ID:                b.ID,
		PlanetID:          b.PlanetID,
		Name:              b.Name,
		Kind:              model.BuildingKind(b.Kind),
		WorkerDemand:      b.WorkerDemand,
		EnergyDemand:      b.EnergyDemand,
		Damage:            b.Damage,
		UnderConstruction: b.UnderConstruction,
		Active:            b.Active,
		WorkerAllocated:   b.WorkerAllocated,
		EnergyAllocated:   b.EnergyAllocated,
	}
}

func toBuildingRecord(b *model.Building) db.Building {
	return db.Building{
		ID:                b.ID,
		PlanetID:          b.PlanetID,
		Name:              b.Name,
		Kind:              string(b.Kind),
		WorkerDemand:      b.WorkerDemand,
		EnergyDemand:      b.EnergyDemand,
		Damage:            b.Damage,
		UnderConstruction: b.UnderConstruction,
		Active:            b.Active,
		WorkerAllocated:   b.WorkerAllocated,
		EnergyAllocated:   b.EnergyAllocated,
	}
}

// strategyOverride is a config override with its rule parsed
type strategyOverride struct {
	rule     *rrule.RRule
	strategy allocator.Strategy
	planets  []string
}

// compileOverrides parses every configured override, anchoring each rule at
// the simulation start date
func compileOverrides(cfg *config.Config) ([]strategyOverride, error) {
	if len(cfg.StrategyOverrides) == 0 {
		return nil, nil
	}

	start, err := time.Parse(dayLayout, cfg.SimulationStart)
	if err != nil {
		return nil, fmt.Errorf("invalid simulationStart %q: %w", cfg.SimulationStart, err)
	}

	overrides := make([]strategyOverride, 0, len(cfg.StrategyOverrides))
	for i, o := range cfg.StrategyOverrides {
		rule, err := rrule.StrToRRule(o.RRule)
		if err != nil {
			return nil, fmt.Errorf("invalid rrule in strategyOverrides[%d]: %w", i, err)
		}
		rule.DTStart(start)

		strategy, err := allocator.ParseStrategy(o.Strategy)
		if err != nil {
			return nil, fmt.Errorf("strategyOverrides[%d]: %w", i, err)
		}

		overrides = append(overrides, strategyOverride{
			rule:     rule,
			strategy: strategy,
			planets:  o.Planets,
		})
	}

	return overrides, nil
}

// matches reports whether the override applies to planetID on day
func (o strategyOverride) matches(planetID string, day time.Time) bool {
	if len(o.planets) > 0 && !slices.Contains(o.planets, planetID) {
		return false
	}

	// Search the whole day, then compare by date to ignore the time of day
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
	target := dayStart.Format(dayLayout)

	for _, occurrence := range o.rule.Between(dayStart, dayEnd, true) {
		if occurrence.Format(dayLayout) == target {
			return true
		}
	}
	return false
}

// strategySource names where a planet's strategy came from
type strategySource string

const (
	sourcePaused   strategySource = "paused"
	sourceOverride strategySource = "override"
	sourcePlanet   strategySource = "planet"
	sourceDefault  strategySource = "default"
)

// resolveStrategy picks a planet's strategy for day. A paused planet gets
// Zero, then the first matching override wins, then the planet's own
// setting, then the configured default.
func resolveStrategy(planet model.Planet, day time.Time, overrides []strategyOverride, cfg *config.Config) (allocator.Strategy, strategySource, error) {
	if planet.Paused {
		return allocator.Zero{}, sourcePaused, nil
	}

	for _, o := range overrides {
		if o.matches(planet.ID, day) {
			return o.strategy, sourceOverride, nil
		}
	}

	if planet.Strategy != "" {
		strategy, err := allocator.ParseStrategy(planet.Strategy)
		if err != nil {
			return nil, "", fmt.Errorf("planet %s: %w", planet.ID, err)
		}
		return strategy, sourcePlanet, nil
	}

	strategy, err := allocator.ParseStrategy(cfg.DefaultStrategy)
	if err != nil {
		return nil, "", fmt.Errorf("default strategy: %w", err)
	}
	return strategy, sourceDefault, nil
}
