package cmd

import (
	"os"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/internal/iocache"
	"github.com/huangsam/precache/internal/outwriter"
	"github.com/spf13/cobra"
)

// historyCmd focused on the lifecycle run log.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past install and activate runs",
	Long: `Every install, activate and update is recorded with its outcome, entry count
and error text. History is best-effort: a failure to record never fails the
run itself.

Subcommands:
  status - Show run counts and timestamps
  list   - List every run
  export - Export every run to Parquet

Examples:
  precache history list
  precache history export --output-file audit`,
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display lifecycle history statistics",
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := printStoreStatus(); err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
	},
}

// historyListCmd lists lifecycle runs.
var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List lifecycle runs in order",
	Long: `List every recorded lifecycle run with its event, version, outcome and duration.

Examples:
  precache history list
  precache history list --output csv --output-file runs.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runs, err := cacheManager.GetHistoryStore().Runs(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to list lifecycle runs", err)
		}
		if err := outwriter.PrintHistory(runs, cfg); err != nil {
			contract.LogFatal("Failed to print lifecycle runs", err)
		}
	},
}

// historyExportCmd exports lifecycle runs to Parquet.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export lifecycle runs to a Parquet file",
	Long: `Write one row per lifecycle run to <output-file>.runs.parquet.

Examples:
  precache history export --output-file audit`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteHistoryExport(rootCtx, os.Stdout, cacheManager.GetHistoryStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export lifecycle runs", err)
		}
	},
}
