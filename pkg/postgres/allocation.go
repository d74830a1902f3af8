package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/colony-allocator/pkg/db"
)

// GetAllocationPasses retrieves all allocation passes, oldest first
func (d *DB) GetAllocationPasses(ctx context.Context) ([]db.AllocationPass, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, day, dry_run, created_at
		FROM allocation_pass
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation passes: %w", err)
	}
	defer rows.Close()

	var passes []db.AllocationPass
	for rows.Next() {
		var p db.AllocationPass
		if err := rows.Scan(&p.ID, &p.Day, &p.DryRun, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation pass: %w", err)
		}
		passes = append(passes, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation passes: %w", err)
	}

	return passes, nil
}

// GetAllocations retrieves the allocation records of one pass
func (d *DB) GetAllocations(ctx context.Context, passID string) ([]db.Allocation, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, pass_id, planet_id, building_id, strategy, fell_back,
			worker_demand, worker_allocated, energy_demand, energy_allocated
		FROM allocation
		WHERE pass_id = $1
		ORDER BY planet_id, building_id
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []db.Allocation
	for rows.Next() {
		var a db.Allocation
		if err := rows.Scan(
			&a.ID, &a.PassID, &a.PlanetID, &a.BuildingID, &a.Strategy, &a.FellBack,
			&a.WorkerDemand, &a.WorkerAllocated, &a.EnergyDemand, &a.EnergyAllocated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}

	return allocations, nil
}

// InsertAllocationPass records a pass, its allocations and the updated
// buildings in one transaction
func (d *DB) InsertAllocationPass(ctx context.Context, pass db.AllocationPass, allocations []db.Allocation, buildings []db.Building) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(buildings) > 0 {
		batch := &pgx.Batch{}
		queueBuildingUpserts(batch, buildings)
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert buildings: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO allocation_pass (id, day, dry_run, created_at)
		VALUES ($1, $2, $3, $4)
	`, pass.ID, pass.Day, pass.DryRun, pass.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert allocation pass: %w", err)
	}

	rows := make([][]any, len(allocations))
	for i, a := range allocations {
		rows[i] = []any{
			a.ID, a.PassID, a.PlanetID, a.BuildingID, a.Strategy, a.FellBack,
			a.WorkerDemand, a.WorkerAllocated, a.EnergyDemand, a.EnergyAllocated,
		}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"allocation"},
		[]string{
			"id", "pass_id", "planet_id", "building_id", "strategy", "fell_back",
			"worker_demand", "worker_allocated", "energy_demand", "energy_allocated",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to insert allocations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
