package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/precache/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOutcomeLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    schema.Outcome
		expected string
	}{
		{name: "success", input: schema.SuccessOutcome, expected: SuccessValue},
		{name: "failed", input: schema.FailedOutcome, expected: FailedValue},
		{name: "pending", input: schema.PendingOutcome, expected: PendingValue},
		{name: "unknown falls back to pending", input: schema.Outcome("weird"), expected: PendingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetOutcomeLabel(tt.input))
		})
	}
}

func TestGetColorOutcomeLabel(t *testing.T) {
	tests := []struct {
		name    string
		outcome schema.Outcome
		label   string
	}{
		{"success", schema.SuccessOutcome, SuccessValue},
		{"failed", schema.FailedOutcome, FailedValue},
		{"pending", schema.PendingOutcome, PendingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetColorOutcomeLabel(tt.outcome)
			// Should contain the plain label
			assert.Contains(t, result, tt.label)
		})
	}
}

func TestGetSourceLabel(t *testing.T) {
	assert.Equal(t, CacheValue, GetSourceLabel(schema.CacheSource))
	assert.Equal(t, NetworkValue, GetSourceLabel(schema.NetworkSource))
	assert.Contains(t, GetColorSourceLabel(schema.CacheSource), CacheValue)
	assert.Contains(t, GetColorSourceLabel(schema.NetworkSource), NetworkValue)
}

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		// Verify file was created
		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestGetCacheDBFilePath(t *testing.T) {
	path := GetCacheDBFilePath()

	// Should not be empty
	assert.NotEmpty(t, path)

	// Should contain the database name
	assert.Contains(t, path, ".precache.db")

	// Should be in home directory
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, homeDir), "path %s should start with home dir %s", path, homeDir)
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		maxWidth int
		want     string
	}{
		{"short path untouched", "/a", 10, "/a"},
		{"exact width untouched", "/abcd", 5, "/abcd"},
		{"long path truncated", "https://app.test/media/style.css", 12, "...style.css"},
		{"tiny width untouched", "/media/style.css", 3, "/media/style.css"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncatePath(tt.path, tt.maxWidth)
			assert.Equal(t, tt.want, got)
			if tt.maxWidth > 3 {
				assert.LessOrEqual(t, len([]rune(got)), tt.maxWidth)
			}
		})
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "YES", "true", "1"} {
		got, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, got, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		got, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, got, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "1023 B", FormatBytes(1023))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(1536*1024))
}
