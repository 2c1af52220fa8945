package iocache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/precache/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCache_MemoryBackend(t *testing.T) {
	err := MigrateCache(schema.MemoryBackend, "", LatestVersion)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migrations are not supported for memory")
}

func TestMigrateCache_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_migration.db")

	// Run migration to latest version
	err := MigrateCache(schema.SQLiteBackend, dbPath, LatestVersion)
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)

	// Run migration again (should be a no-op)
	err = MigrateCache(schema.SQLiteBackend, dbPath, LatestVersion)
	assert.NoError(t, err)

	// Step down to a specific version
	err = MigrateCache(schema.SQLiteBackend, dbPath, 2)
	assert.NoError(t, err)

	// Rollback to version 0
	err = MigrateCache(schema.SQLiteBackend, dbPath, 0)
	assert.NoError(t, err)

	// Migrate back up
	err = MigrateCache(schema.SQLiteBackend, dbPath, LatestVersion)
	assert.NoError(t, err)
}

func TestApplyMigrations_ReportsVersions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "versions.db")

	result, err := applyMigrations(schema.SQLiteBackend, dbPath, 1)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, uint(1), result.ToVersion)

	result, err = applyMigrations(schema.SQLiteBackend, dbPath, LatestVersion)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, uint(1), result.FromVersion)
	assert.Equal(t, uint(4), result.ToVersion)

	result, err = applyMigrations(schema.SQLiteBackend, dbPath, LatestVersion)
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, uint(4), result.ToVersion)
}
