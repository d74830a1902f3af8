package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/pkg/db"
)

func TestListPlanets_Totals(t *testing.T) {
	store := terraWorld()
	store.planets = append([]db.Planet{{ID: "zeta", Name: "Zeta", AvailableWorkers: 4}}, store.planets...)

	_, err := AllocatePass(context.Background(), store, newTestEngine(t), testConfig(), zap.NewNop(), passDay, false, nil)
	require.NoError(t, err)

	summaries, err := ListPlanets(context.Background(), store, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	terra := summaries[0]
	assert.Equal(t, "terra", terra.Planet.ID)
	assert.Equal(t, 4, terra.Buildings)
	assert.Equal(t, 3, terra.Participating)
	assert.Equal(t, 50, terra.WorkerDemand)
	assert.Equal(t, 50, terra.WorkerAllocated)
	assert.Equal(t, 200, terra.EnergyDemand)
	assert.Equal(t, 100, terra.EnergyAllocated)
	assert.Equal(t, 100, terra.EnergyProduced)

	zeta := summaries[1]
	assert.Equal(t, "zeta", zeta.Planet.ID)
	assert.Equal(t, 0, zeta.Buildings)
}

func TestListPlanets_StoreError(t *testing.T) {
	_, err := ListPlanets(context.Background(), &mockColonyStore{getPlanetsErr: assert.AnError}, zap.NewNop())
	assert.ErrorIs(t, err, assert.AnError)
}
