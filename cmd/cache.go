package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/precache/core"
	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/internal/iocache"
	"github.com/huangsam/precache/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup loads minimal configuration needed for cache maintenance.
// The stores are not opened, so migrations and clearing act on the raw database.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get cache-related config values
	backend, err := contract.ValidateBackend(viper.GetString("cache-backend"), viper.GetString("cache-db-connect"))
	if err != nil {
		return err
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = viper.GetString("cache-db-connect")
	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// printStoreStatus prints cache and history statistics together.
func printStoreStatus() error {
	cacheStatus, err := cacheManager.GetCacheStore().GetStatus(rootCtx)
	if err != nil {
		return fmt.Errorf("failed to get cache status: %w", err)
	}
	historyStatus, err := cacheManager.GetHistoryStore().GetStatus(rootCtx)
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	return outwriter.PrintStatus(cacheStatus, historyStatus, cfg)
}

// cacheCmd focused on bucket storage management.
//
// Note: clear and migrate use minimal initialization (cacheSetup) instead of
// the full sharedSetup, so they never open or migrate the stores themselves.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the stored cache buckets",
	Long: `Inspect and manage the buckets that hold pre-cached responses.

Supported backends: SQLite (default), MySQL, PostgreSQL, or Memory (in-process)

Subcommands:
  status  - Show cache statistics and connection info
  list    - List buckets; the current version is marked with *
  entries - List the entries of one bucket
  clear   - Remove all buckets and lifecycle history
  export  - Export every entry to Parquet
  migrate - Move the database schema to a specific version

Examples:
  # Check cache status
  precache cache status

  # List stored versions
  precache cache list --cache-version v2`,
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the cache and lifecycle history.

Displays:
- Backend type and connection status
- Total number of buckets and entries
- Last and oldest entry timestamps
- Stored body size
- Lifecycle run counts

Examples:
  # Check cache status
  precache cache status

  # Machine-readable status
  precache cache status --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := printStoreStatus(); err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
	},
}

// cacheListCmd lists buckets.
var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored buckets in creation order",
	Long: `List every bucket with its entry count, size and timestamps.
The bucket named by the current cache version is marked as current.

Examples:
  precache cache list
  precache cache list --output csv --output-file buckets.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		buckets, err := core.ListBuckets(rootCtx, cfg, cacheManager.GetCacheStore())
		if err != nil {
			contract.LogFatal("Failed to list buckets", err)
		}
		if err := outwriter.PrintBuckets(buckets, cfg); err != nil {
			contract.LogFatal("Failed to print buckets", err)
		}
	},
}

// cacheEntriesCmd lists the entries of one bucket.
var cacheEntriesCmd = &cobra.Command{
	Use:   "entries <bucket>",
	Short: "List the entries stored in one bucket",
	Long: `List every entry of a bucket ordered by request key.

Examples:
  precache cache entries v1
  precache cache entries v1 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		entries, err := cacheManager.GetCacheStore().Entries(rootCtx, args[0])
		if err != nil {
			contract.LogFatal("Failed to list entries", err)
		}
		if err := outwriter.PrintEntries(entries, cfg); err != nil {
			contract.LogFatal("Failed to print entries", err)
		}
	},
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all buckets and lifecycle history",
	Long: `Delete every bucket and the lifecycle history from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the precache tables

Examples:
  # Clear SQLite cache (default)
  precache cache clear

  # Clear MySQL cache (set connection string via env variable)
  PRECACHE_CACHE_BACKEND=mysql PRECACHE_CACHE_DB_CONNECT="..." precache cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		dbFilePath := iocache.GetDBFilePath()
		if cfg.CacheDBConnect != "" {
			dbFilePath = cfg.CacheDBConnect // SQLite path override
		}
		if err := iocache.ClearCache(cfg.CacheBackend, dbFilePath, cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheExportCmd exports entries to Parquet.
var cacheExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every cache entry to a Parquet file",
	Long: `Write one row per stored entry, across all buckets, to
<output-file>.entries.parquet. Bodies are not exported.

Examples:
  precache cache export --output-file snapshot`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteCacheExport(rootCtx, os.Stdout, cacheManager.GetCacheStore(), cfg.Version, cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export cache entries", err)
		}
	},
}

// cacheMigrateCmd migrates the database schema.
var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the cache database schema",
	Long: `Apply or roll back schema migrations for the configured SQL backend.
Stores apply all migrations when they open, so this is only needed to roll
back or to prepare a database ahead of time.

Examples:
  # Migrate to the latest schema
  precache cache migrate

  # Roll back everything
  precache cache migrate --target-version 0`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.MigrateCache(cfg.CacheBackend, cfg.CacheDBConnect, viper.GetInt("target-version")); err != nil {
			contract.LogFatal("Failed to migrate cache", err)
		}
	},
}
