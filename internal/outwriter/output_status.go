package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
)

// PrintStatus outputs cache and history statistics in the configured format.
func PrintStatus(cache schema.CacheStatus, history schema.HistoryStatus, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatusJSON(w, cache, history)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatusCSV(w, cache, history)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatusText(w, cache, history)
		}, "Wrote status"); err != nil {
			return fmt.Errorf("error writing text output: %w", err)
		}
	}
	return nil
}

// writeStatusText prints one labeled line per statistic.
func writeStatusText(w io.Writer, cache schema.CacheStatus, history schema.HistoryStatus) error {
	lines := []string{
		fmt.Sprintf("Cache Backend: %s", cache.Backend),
		fmt.Sprintf("Connected: %t", cache.Connected),
	}
	if cache.Connected {
		lines = append(lines,
			fmt.Sprintf("Total Buckets: %d", cache.TotalBuckets),
			fmt.Sprintf("Total Entries: %d", cache.TotalEntries),
		)
		if cache.TotalEntries > 0 {
			lines = append(lines,
				fmt.Sprintf("Last Entry: %s", formatTime(cache.LastEntryTime)),
				fmt.Sprintf("Oldest Entry: %s", formatTime(cache.OldestEntryTime)),
			)
		}
		lines = append(lines, fmt.Sprintf("Storage Size: %s", contract.FormatBytes(cache.TableSizeBytes)))
	}
	if history.Connected {
		lines = append(lines,
			fmt.Sprintf("Lifecycle Runs: %d (%d failed)", history.TotalRuns, history.FailedRuns),
		)
		if history.TotalRuns > 0 {
			lines = append(lines,
				fmt.Sprintf("Last Run ID: %d", history.LastRunID),
				fmt.Sprintf("Last Run: %s", formatTime(history.LastRunTime)),
				fmt.Sprintf("Oldest Run: %s", formatTime(history.OldestRunTime)),
			)
		}
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// writeStatusJSON writes both status structs as one object.
func writeStatusJSON(w io.Writer, cache schema.CacheStatus, history schema.HistoryStatus) error {
	return writeJSON(w, struct {
		Cache   schema.CacheStatus   `json:"cache"`
		History schema.HistoryStatus `json:"history"`
	}{cache, history})
}

// writeStatusCSV writes one key/value row per statistic.
func writeStatusCSV(w io.Writer, cache schema.CacheStatus, history schema.HistoryStatus) error {
	return writeCSVWithHeader(w, []string{"key", "value"}, func(cw *csv.Writer) error {
		rows := [][]string{
			{"cache_backend", cache.Backend},
			{"cache_connected", strconv.FormatBool(cache.Connected)},
			{"total_buckets", strconv.Itoa(cache.TotalBuckets)},
			{"total_entries", strconv.Itoa(cache.TotalEntries)},
			{"last_entry", formatTime(cache.LastEntryTime)},
			{"oldest_entry", formatTime(cache.OldestEntryTime)},
			{"storage_bytes", itoa64(cache.TableSizeBytes)},
			{"history_connected", strconv.FormatBool(history.Connected)},
			{"total_runs", strconv.Itoa(history.TotalRuns)},
			{"failed_runs", strconv.Itoa(history.FailedRuns)},
			{"last_run_id", itoa64(history.LastRunID)},
			{"last_run", formatTime(history.LastRunTime)},
		}
		return cw.WriteAll(rows)
	})
}
