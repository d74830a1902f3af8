package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/pkg/db"
	"github.com/jakechorley/colony-allocator/pkg/snapshot"
)

func TestExportImportWorld_Compressed(t *testing.T) {
	source := terraWorld()
	path := filepath.Join(t.TempDir(), "exports", "terra.json.zst")

	world, err := ExportWorld(context.Background(), source, zap.NewNop(), path)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Version, world.Version)
	assert.False(t, world.ExportedAt.IsZero())

	target := &mockColonyStore{}
	result, err := ImportWorld(context.Background(), target, zap.NewNop(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Planets)
	assert.Equal(t, 4, result.Buildings)
	assert.Equal(t, source.planets, target.planets)
	assert.Equal(t, source.buildings, target.buildings)
}

func TestExportWorld_EmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")

	world, err := ExportWorld(context.Background(), &mockColonyStore{}, zap.NewNop(), path)
	require.NoError(t, err)
	assert.NotNil(t, world.Planets)

	// An empty world is still a valid snapshot
	read, err := snapshot.Read(path)
	require.NoError(t, err)
	assert.Empty(t, read.Planets)
}

func TestImportWorld_InvalidSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	content := `{"version": 1, "planets": [{"id": "terra", "name": "Terra", "availableWorkers": -3}], "buildings": []}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	store := &mockColonyStore{}
	_, err := ImportWorld(context.Background(), store, zap.NewNop(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrInvalidSnapshot)
	assert.Empty(t, store.upsertedPlanets)
}

func TestImportWorld_MissingFile(t *testing.T) {
	_, err := ImportWorld(context.Background(), &mockColonyStore{}, zap.NewNop(), "/nonexistent/world.json")
	require.Error(t, err)
}

func TestImportWorld_StoreError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	_, err := ExportWorld(context.Background(), terraWorld(), zap.NewNop(), path)
	require.NoError(t, err)

	store := &mockColonyStore{upsertErr: assert.AnError}
	_, err = ImportWorld(context.Background(), store, zap.NewNop(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to upsert planets")
}

func TestExportWorld_StoreError(t *testing.T) {
	store := &mockColonyStore{getBuildingsErr: assert.AnError}

	_, err := ExportWorld(context.Background(), store, zap.NewNop(), filepath.Join(t.TempDir(), "w.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch buildings")
}

var _ db.WorldStore = (*mockColonyStore)(nil)
