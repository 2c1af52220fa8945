// Package parquet provides data structures and functions for exporting cache
// contents and lifecycle history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/precache/schema"
	"github.com/parquet-go/parquet-go"
)

// CacheEntry represents a single stored response without its body.
// This struct maps to the precache_entries database table.
type CacheEntry struct {
	// Bucket is the cache version holding the entry
	Bucket string `parquet:"bucket,snappy,dict"`

	// CacheKey is the request identity (method and absolute URL)
	CacheKey string `parquet:"cache_key,snappy"`

	// URL is the absolute URL of the response
	URL string `parquet:"url,snappy"`

	StatusCode int32 `parquet:"status_code,snappy"`
	SizeBytes  int64 `parquet:"size_bytes,snappy"`

	// StoredAt is when install wrote the entry (stored as TIMESTAMP with nanosecond precision)
	StoredAt time.Time `parquet:"stored_at,snappy"`

	// IsCurrent marks entries in the bucket named by the configured version
	IsCurrent bool `parquet:"is_current"`
}

// LifecycleRun represents one recorded install or activate.
// This struct maps to the precache_lifecycle_runs database table.
type LifecycleRun struct {
	RunID   int64  `parquet:"run_id,snappy"`
	Event   string `parquet:"event,snappy,dict"`
	Version string `parquet:"version,snappy,dict"`

	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is nil for runs that never finished
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is nil for runs that never finished
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	Outcome string `parquet:"outcome,snappy,dict"`
	Entries int32  `parquet:"entries,snappy"`

	// ErrorText is nil for successful runs
	ErrorText *string `parquet:"error_text,optional,snappy"`
}

// FromEntryInfos converts stored entries into Parquet rows.
func FromEntryInfos(entries []schema.EntryInfo, currentVersion string) []CacheEntry {
	rows := make([]CacheEntry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, CacheEntry{
			Bucket:     e.Bucket,
			CacheKey:   e.Key,
			URL:        e.URL,
			StatusCode: int32(e.StatusCode),
			SizeBytes:  e.SizeBytes,
			StoredAt:   e.StoredAt,
			IsCurrent:  e.Bucket == currentVersion,
		})
	}
	return rows
}

// FromLifecycleRuns converts recorded runs into Parquet rows.
func FromLifecycleRuns(runs []schema.LifecycleRun) []LifecycleRun {
	rows := make([]LifecycleRun, 0, len(runs))
	for _, run := range runs {
		row := LifecycleRun{
			RunID:     run.RunID,
			Event:     string(run.Event),
			Version:   run.Version,
			StartTime: run.StartTime,
			Outcome:   string(run.Outcome),
			Entries:   int32(run.Entries),
		}
		if !run.EndTime.IsZero() {
			end := run.EndTime
			durationMs := run.Duration().Milliseconds()
			row.EndTime = &end
			row.RunDurationMs = &durationMs
		}
		if run.Error != "" {
			errText := run.Error
			row.ErrorText = &errText
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteEntriesParquet writes a slice of CacheEntry structs to a Parquet file.
func WriteEntriesParquet(data []CacheEntry, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteRunsParquet writes a slice of LifecycleRun structs to a Parquet file.
func WriteRunsParquet(data []LifecycleRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet infers the schema from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	// Close flushes the footer, so its error matters
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
