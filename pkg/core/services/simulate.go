package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jakechorley/colony-allocator/internal/config"
	"github.com/jakechorley/colony-allocator/pkg/db"
)

// SimulationResult holds every pass run by Simulate, in day order
type SimulationResult struct {
	Passes []*PassResult
}

// Shortages totals unmet worker and energy demand across every pass
func (r *SimulationResult) Shortages() (workers, energy int) {
	for _, pass := range r.Passes {
		for _, p := range pass.Planets {
			if p.Err != nil {
				continue
			}
			workers += p.WorkerShortage()
			energy += p.EnergyShortage()
		}
	}
	return workers, energy
}

// Simulate runs one allocation pass per day for days consecutive days from
// start. limiter paces the passes; nil runs them back to back.
func Simulate(
	ctx context.Context,
	store AllocatePassStore,
	eng AllocationEngine,
	cfg *config.Config,
	logger *zap.Logger,
	start time.Time,
	days int,
	limiter *rate.Limiter,
	recorder ShortageRecorder,
) (*SimulationResult, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	logger.Info("Starting simulation",
		zap.String("start", start.Format(dayLayout)),
		zap.Int("days", days))

	result := &SimulationResult{Passes: make([]*PassResult, 0, days)}

	for i := 0; i < days; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return result, fmt.Errorf("simulation stopped after %d days: %w", i, err)
			}
		}

		day := start.AddDate(0, 0, i)
		pass, err := AllocatePass(ctx, store, eng, cfg, logger, day, false, recorder)
		if err != nil {
			return result, fmt.Errorf("day %s: %w", day.Format(dayLayout), err)
		}
		result.Passes = append(result.Passes, pass)
	}

	workers, energy := result.Shortages()
	logger.Info("Simulation complete",
		zap.Int("days", len(result.Passes)),
		zap.Int("worker_shortage", workers),
		zap.Int("energy_shortage", energy))

	return result, nil
}

// PassHistoryStore lists persisted passes
type PassHistoryStore interface {
	GetAllocationPasses(ctx context.Context) ([]db.AllocationPass, error)
}

// NextPassDay returns the day after the latest persisted pass, or the
// configured simulation start when nothing has been allocated yet
func NextPassDay(ctx context.Context, store PassHistoryStore, cfg *config.Config) (time.Time, error) {
	passes, err := store.GetAllocationPasses(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to fetch allocation passes: %w", err)
	}

	latest := ""
	for _, p := range passes {
		if p.Day > latest {
			latest = p.Day
		}
	}

	if latest == "" {
		start, err := time.Parse(dayLayout, cfg.SimulationStart)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid simulationStart %q: %w", cfg.SimulationStart, err)
		}
		return start, nil
	}

	day, err := time.Parse(dayLayout, latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid pass day %q: %w", latest, err)
	}
	return day.AddDate(0, 0, 1), nil
}
