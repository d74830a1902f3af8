package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/pkg/db"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := NewDB(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestPlanets_UpsertAndGet(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	err := d.UpsertPlanets(ctx, []db.Planet{
		{ID: "p2", Name: "Vesta", AvailableWorkers: 50},
		{ID: "p1", Name: "Ceres", AvailableWorkers: 120, Strategy: "uniform"},
	})
	require.NoError(t, err)

	planets, err := d.GetPlanets(ctx)
	require.NoError(t, err)
	require.Len(t, planets, 2)
	assert.Equal(t, "p1", planets[0].ID, "planets should be ordered by ID")
	assert.Equal(t, "uniform", planets[0].Strategy)

	// Second upsert updates in place
	err = d.UpsertPlanets(ctx, []db.Planet{{ID: "p2", Name: "Vesta", AvailableWorkers: 75, Paused: true}})
	require.NoError(t, err)

	planets, err = d.GetPlanets(ctx)
	require.NoError(t, err)
	require.Len(t, planets, 2)
	assert.Equal(t, 75, planets[1].AvailableWorkers)
	assert.True(t, planets[1].Paused)
}

func TestBuildings_UpsertUpdatesAllocation(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.UpsertPlanets(ctx, []db.Planet{{ID: "p1", Name: "Ceres", AvailableWorkers: 10}}))

	building := db.Building{
		ID: "b1", PlanetID: "p1", Name: "Reactor", Kind: "power_plant",
		WorkerDemand: 10, EnergyDemand: 100, Damage: 0.25, Active: true,
	}
	require.NoError(t, d.UpsertBuildings(ctx, []db.Building{building}))

	building.WorkerAllocated = 7
	building.EnergyAllocated = 70
	require.NoError(t, d.UpsertBuildings(ctx, []db.Building{building}))

	buildings, err := d.GetBuildings(ctx)
	require.NoError(t, err)
	require.Len(t, buildings, 1)
	assert.Equal(t, building, buildings[0])
}

func TestAllocationPass_InsertAndGet(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	older := db.AllocationPass{ID: "pass-1", Day: "2024-01-01", CreatedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}
	newer := db.AllocationPass{ID: "pass-2", Day: "2024-01-02", CreatedAt: time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)}

	require.NoError(t, d.InsertAllocationPass(ctx, newer, []db.Allocation{
		{ID: "a3", PassID: "pass-2", PlanetID: "p1", BuildingID: "b1", Strategy: "uniform", WorkerDemand: 10, WorkerAllocated: 8},
	}, nil))
	require.NoError(t, d.InsertAllocationPass(ctx, older, []db.Allocation{
		{ID: "a1", PassID: "pass-1", PlanetID: "p1", BuildingID: "b2", Strategy: "max_efficiency", FellBack: true},
		{ID: "a2", PassID: "pass-1", PlanetID: "p1", BuildingID: "b1", Strategy: "max_efficiency", FellBack: true},
	}, nil))

	passes, err := d.GetAllocationPasses(ctx)
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, "pass-1", passes[0].ID, "passes should be ordered oldest first")

	allocations, err := d.GetAllocations(ctx, "pass-1")
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, "b1", allocations[0].BuildingID)
	assert.True(t, allocations[0].FellBack)

	allocations, err = d.GetAllocations(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, allocations)
}

func TestAllocationPass_DuplicateRollsBack(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	pass := db.AllocationPass{ID: "pass-1", Day: "2024-01-01", CreatedAt: time.Now()}
	require.NoError(t, d.InsertAllocationPass(ctx, pass, nil, nil))

	err := d.InsertAllocationPass(ctx, db.AllocationPass{ID: "pass-2", Day: "2024-01-02", CreatedAt: time.Now()}, []db.Allocation{
		{ID: "dup", PassID: "pass-2"},
		{ID: "dup", PassID: "pass-2"},
	}, nil)
	assert.Error(t, err)

	passes, err := d.GetAllocationPasses(ctx)
	require.NoError(t, err)
	assert.Len(t, passes, 1, "the failed pass should not be recorded")
}

func TestAllocationPass_UpdatesBuildingsWithPass(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	building := db.Building{ID: "b1", PlanetID: "p1", Name: "Mill", Kind: "factory", WorkerDemand: 20, Active: true}
	require.NoError(t, d.UpsertBuildings(ctx, []db.Building{building}))

	building.WorkerAllocated = 15
	pass := db.AllocationPass{ID: "pass-1", Day: "2024-01-01", CreatedAt: time.Now()}
	require.NoError(t, d.InsertAllocationPass(ctx, pass, []db.Allocation{
		{ID: "a1", PassID: "pass-1", PlanetID: "p1", BuildingID: "b1", WorkerDemand: 20, WorkerAllocated: 15},
	}, []db.Building{building}))

	buildings, err := d.GetBuildings(ctx)
	require.NoError(t, err)
	require.Len(t, buildings, 1)
	assert.Equal(t, 15, buildings[0].WorkerAllocated)

	// Reusing the pass ID fails, and the building update goes with it
	building.WorkerAllocated = 2
	err = d.InsertAllocationPass(ctx, pass, nil, []db.Building{building})
	assert.Error(t, err)

	buildings, err = d.GetBuildings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, buildings[0].WorkerAllocated, "a failed pass must not leave buildings updated")
}

func TestDB_ImplementsDatabase(t *testing.T) {
	var _ db.Database = newTestDB(t)
}
