package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/colony-allocator/pkg/db"
)

// GetPlanets retrieves all planet records ordered by ID
func (d *DB) GetPlanets(ctx context.Context) ([]db.Planet, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, available_workers, strategy, paused
		FROM planet
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query planets: %w", err)
	}
	defer rows.Close()

	var planets []db.Planet
	for rows.Next() {
		var p db.Planet
		if err := rows.Scan(&p.ID, &p.Name, &p.AvailableWorkers, &p.Strategy, &p.Paused); err != nil {
			return nil, fmt.Errorf("failed to scan planet: %w", err)
		}
		planets = append(planets, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating planets: %w", err)
	}

	return planets, nil
}

// GetBuildings retrieves all building records ordered by planet, then ID
func (d *DB) GetBuildings(ctx context.Context) ([]db.Building, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, planet_id, name, kind, worker_demand, energy_demand, damage,
			under_construction, active, worker_allocated, energy_allocated
		FROM building
		ORDER BY planet_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}
	defer rows.Close()

	var buildings []db.Building
	for rows.Next() {
		var b db.Building
		if err := rows.Scan(
			&b.ID, &b.PlanetID, &b.Name, &b.Kind, &b.WorkerDemand, &b.EnergyDemand, &b.Damage,
			&b.UnderConstruction, &b.Active, &b.WorkerAllocated, &b.EnergyAllocated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		buildings = append(buildings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buildings: %w", err)
	}

	return buildings, nil
}

// UpsertPlanets inserts planets or updates them in place
func (d *DB) UpsertPlanets(ctx context.Context, planets []db.Planet) error {
	if len(planets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range planets {
		batch.Queue(`
			INSERT INTO planet (id, name, available_workers, strategy, paused)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				available_workers = EXCLUDED.available_workers,
				strategy = EXCLUDED.strategy,
				paused = EXCLUDED.paused
		`, p.ID, p.Name, p.AvailableWorkers, p.Strategy, p.Paused)
	}

	return d.sendBatch(ctx, batch, "planets")
}

// UpsertBuildings inserts buildings or updates them in place, including their allocation
func (d *DB) UpsertBuildings(ctx context.Context, buildings []db.Building) error {
	if len(buildings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	queueBuildingUpserts(batch, buildings)

	return d.sendBatch(ctx, batch, "buildings")
}

// queueBuildingUpserts adds one upsert per building to batch
func queueBuildingUpserts(batch *pgx.Batch, buildings []db.Building) {
	for _, b := range buildings {
		batch.Queue(`
			INSERT INTO building (id, planet_id, name, kind, worker_demand, energy_demand, damage,
				under_construction, active, worker_allocated, energy_allocated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				planet_id = EXCLUDED.planet_id,
				name = EXCLUDED.name,
				kind = EXCLUDED.kind,
				worker_demand = EXCLUDED.worker_demand,
				energy_demand = EXCLUDED.energy_demand,
				damage = EXCLUDED.damage,
				under_construction = EXCLUDED.under_construction,
				active = EXCLUDED.active,
				worker_allocated = EXCLUDED.worker_allocated,
				energy_allocated = EXCLUDED.energy_allocated
		`, b.ID, b.PlanetID, b.Name, b.Kind, b.WorkerDemand, b.EnergyDemand, b.Damage,
			b.UnderConstruction, b.Active, b.WorkerAllocated, b.EnergyAllocated)
	}
}

// sendBatch runs a batch inside one transaction
func (d *DB) sendBatch(ctx context.Context, batch *pgx.Batch, what string) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", what, err)
		}
		return nil
	})
}
