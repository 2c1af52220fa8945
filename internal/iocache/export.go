package iocache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/internal/parquet"
	"github.com/huangsam/precache/schema"
)

// ExecuteCacheExport writes every stored entry of every bucket to outputFile + ".entries.parquet".
// Entries of the bucket named by currentVersion are flagged as current.
func ExecuteCacheExport(ctx context.Context, w io.Writer, store contract.CacheStore, currentVersion, outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	buckets, err := store.Buckets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list buckets: %w", err)
	}
	if len(buckets) == 0 {
		return errors.New("no cache buckets found to export")
	}

	var entries []schema.EntryInfo
	for _, bucket := range buckets {
		bucketEntries, err := store.Entries(ctx, bucket.Name)
		if err != nil {
			return fmt.Errorf("failed to retrieve entries of %s: %w", bucket.Name, err)
		}
		entries = append(entries, bucketEntries...)
	}
	_, _ = fmt.Fprintf(w, "Total buckets: %d\n", len(buckets))

	entriesFile := outputFile + ".entries.parquet"
	rows := parquet.FromEntryInfos(entries, currentVersion)
	if err := parquet.WriteEntriesParquet(rows, entriesFile); err != nil {
		return fmt.Errorf("failed to write cache entries: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d cache entries to: %s\n", len(rows), entriesFile)
	return nil
}

// ExecuteHistoryExport writes every lifecycle run to outputFile + ".runs.parquet".
func ExecuteHistoryExport(ctx context.Context, w io.Writer, history contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	runs, err := history.Runs(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve lifecycle runs: %w", err)
	}
	if len(runs) == 0 {
		return errors.New("no lifecycle runs found to export")
	}

	runsFile := outputFile + ".runs.parquet"
	rows := parquet.FromLifecycleRuns(runs)
	if err := parquet.WriteRunsParquet(rows, runsFile); err != nil {
		return fmt.Errorf("failed to write lifecycle runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d lifecycle runs to: %s\n", len(rows), runsFile)
	return nil
}
