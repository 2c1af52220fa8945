package parquet

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/precache/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		schema  *parquet.Schema
		columns []string
	}{
		{
			name:    "entries",
			schema:  parquet.SchemaOf(new(CacheEntry)),
			columns: []string{"bucket", "cache_key", "url", "status_code", "size_bytes", "stored_at", "is_current"},
		},
		{
			name:    "runs",
			schema:  parquet.SchemaOf(new(LifecycleRun)),
			columns: []string{"run_id", "event", "version", "start_time", "end_time", "run_duration_ms", "outcome", "entries", "error_text"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, col := range tt.columns {
				_, ok := tt.schema.Lookup(col)
				assert.True(t, ok, "column %s should exist", col)
			}
		})
	}
}

func TestWriteEntriesParquet(t *testing.T) {
	stored := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	infos := []schema.EntryInfo{
		{Bucket: "v1", Key: "GET https://app.test/", URL: "https://app.test/", StatusCode: 200, SizeBytes: 10, StoredAt: stored},
		{Bucket: "v2", Key: "GET https://app.test/a.js", URL: "https://app.test/a.js", StatusCode: 200, SizeBytes: 20, StoredAt: stored},
	}
	data := FromEntryInfos(infos, "v2")
	assert.False(t, data[0].IsCurrent)
	assert.True(t, data[1].IsCurrent)

	path := filepath.Join(t.TempDir(), "entries.parquet")
	require.NoError(t, WriteEntriesParquet(data, path))

	rows := readAll[CacheEntry](t, path)
	require.Len(t, rows, 2)
	for i := range data {
		assert.Equal(t, data[i].Bucket, rows[i].Bucket)
		assert.Equal(t, data[i].CacheKey, rows[i].CacheKey)
		assert.Equal(t, data[i].SizeBytes, rows[i].SizeBytes)
		assert.Equal(t, data[i].IsCurrent, rows[i].IsCurrent)
		assert.WithinDuration(t, data[i].StoredAt, rows[i].StoredAt, time.Nanosecond)
	}
}

func TestWriteRunsParquet(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []schema.LifecycleRun{
		{RunID: 1, Event: schema.InstallEvent, Version: "v1", StartTime: start, EndTime: start.Add(2 * time.Second), Outcome: schema.SuccessOutcome, Entries: 9},
		{RunID: 2, Event: schema.InstallEvent, Version: "v2", StartTime: start, EndTime: start.Add(time.Second), Outcome: schema.FailedOutcome, Error: "install failed"},
		{RunID: 3, Event: schema.ActivateEvent, Version: "v2", StartTime: start, Outcome: schema.PendingOutcome},
	}
	data := FromLifecycleRuns(runs)

	path := filepath.Join(t.TempDir(), "runs.parquet")
	require.NoError(t, WriteRunsParquet(data, path))

	rows := readAll[LifecycleRun](t, path)
	require.Len(t, rows, 3)

	require.NotNil(t, rows[0].RunDurationMs)
	assert.Equal(t, int64(2000), *rows[0].RunDurationMs)
	assert.Nil(t, rows[0].ErrorText)
	assert.Equal(t, int32(9), rows[0].Entries)

	require.NotNil(t, rows[1].ErrorText)
	assert.Equal(t, "install failed", *rows[1].ErrorText)
	assert.Equal(t, "failed", rows[1].Outcome)

	assert.Nil(t, rows[2].EndTime, "pending runs have no end")
	assert.Nil(t, rows[2].RunDurationMs)
	assert.Equal(t, "activate", rows[2].Event)
}

func TestWriteEmptyParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteRunsParquet([]LifecycleRun{}, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Empty(t, readAll[LifecycleRun](t, path))
}

func TestWriteParquetBadPath(t *testing.T) {
	err := WriteEntriesParquet(nil, filepath.Join(t.TempDir(), "missing", "out.parquet"))
	assert.Error(t, err)
}
