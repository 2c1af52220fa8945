package iocache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/precache/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCacheExport(t *testing.T) {
	ctx := t.Context()
	store := NewMemoryStore()

	t.Run("requires output file", func(t *testing.T) {
		err := ExecuteCacheExport(ctx, &bytes.Buffer{}, store, "v1", "")
		assert.ErrorContains(t, err, "--output-file is required")
	})

	t.Run("empty store", func(t *testing.T) {
		err := ExecuteCacheExport(ctx, &bytes.Buffer{}, store, "v1", filepath.Join(t.TempDir(), "out"))
		assert.ErrorContains(t, err, "no cache buckets")
	})

	t.Run("writes entries", func(t *testing.T) {
		require.NoError(t, store.PutAll(ctx, "v1", []schema.Entry{entry("http://app.test/", "index")}))
		require.NoError(t, store.PutAll(ctx, "v2", []schema.Entry{
			entry("http://app.test/", "index"),
			entry("http://app.test/app.js", "js"),
		}))

		out := filepath.Join(t.TempDir(), "cache")
		var buf bytes.Buffer
		require.NoError(t, ExecuteCacheExport(ctx, &buf, store, "v2", out))

		info, err := os.Stat(out + ".entries.parquet")
		require.NoError(t, err)
		assert.Positive(t, info.Size())
		assert.Contains(t, buf.String(), "Total buckets: 2")
		assert.Contains(t, buf.String(), "Exported 3 cache entries")
	})
}

func TestExecuteHistoryExport(t *testing.T) {
	ctx := t.Context()
	history := NewMemoryHistoryStore()

	err := ExecuteHistoryExport(ctx, &bytes.Buffer{}, history, "")
	assert.ErrorContains(t, err, "--output-file is required")

	err = ExecuteHistoryExport(ctx, &bytes.Buffer{}, history, filepath.Join(t.TempDir(), "out"))
	assert.ErrorContains(t, err, "no lifecycle runs")

	start := time.Now()
	id, err := history.BeginRun(ctx, schema.InstallEvent, "v1", start)
	require.NoError(t, err)
	require.NoError(t, history.EndRun(ctx, id, start.Add(time.Second), schema.SuccessOutcome, 4, nil))

	out := filepath.Join(t.TempDir(), "history")
	var buf bytes.Buffer
	require.NoError(t, ExecuteHistoryExport(ctx, &buf, history, out))
	assert.FileExists(t, out+".runs.parquet")
	assert.Contains(t, buf.String(), "Exported 1 lifecycle runs")
}
