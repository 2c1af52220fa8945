// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteStatus prints cache and history statistics.
func (ow *OutWriter) WriteStatus(cache schema.CacheStatus, history schema.HistoryStatus, cfg *contract.Config) error {
	return PrintStatus(cache, history, cfg)
}

// WriteBuckets prints the bucket summaries.
func (ow *OutWriter) WriteBuckets(buckets []schema.BucketInfo, cfg *contract.Config) error {
	return PrintBuckets(buckets, cfg)
}

// WriteEntries prints the entries of one bucket.
func (ow *OutWriter) WriteEntries(entries []schema.EntryInfo, cfg *contract.Config) error {
	return PrintEntries(entries, cfg)
}

// WriteHistory prints recorded lifecycle runs.
func (ow *OutWriter) WriteHistory(runs []schema.LifecycleRun, cfg *contract.Config) error {
	return PrintHistory(runs, cfg)
}

// WriteFetch prints the outcome of a single fetch.
func (ow *OutWriter) WriteFetch(resp *schema.Response, cfg *contract.Config, duration time.Duration) error {
	return PrintFetch(resp, cfg, duration)
}

// WriteLifecycle prints the outcome of install or activate.
func (ow *OutWriter) WriteLifecycle(result schema.LifecycleResult, cfg *contract.Config) error {
	return PrintLifecycle(result, cfg)
}

// GetMaxTablePathWidth calculates the maximum width for URLs in table output
// based on terminal width and the width taken by the other columns.
func GetMaxTablePathWidth(cfg *contract.Config, otherColumns int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve space for table borders, separators, and padding
	available := termWidth - otherColumns - 20
	if available < 15 {
		return 15
	}
	if available > 90 {
		return 90
	}
	return available
}
