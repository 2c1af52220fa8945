package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/precache/schema"
)

// Outcome label constants.
const (
	SuccessValue = "OK"      // Successful run
	FailedValue  = "FAILED"  // Failed run
	PendingValue = "PENDING" // Run that never finished
	CacheValue   = "CACHE"   // Served from a bucket
	NetworkValue = "NETWORK" // Served from the network
)

// Color variables for console output.
var (
	SuccessColor = color.New(color.FgGreen, color.Bold) // SuccessColor marks completed runs.
	FailedColor  = color.New(color.FgRed, color.Bold)   // FailedColor marks failed runs.
	PendingColor = color.New(color.FgYellow)            // PendingColor marks runs without an end.
	CacheColor   = color.New(color.FgCyan)              // CacheColor marks cache hits.
	NetworkColor = color.New(color.FgMagenta)           // NetworkColor marks network fallbacks.
	CurrentColor = color.New(color.FgGreen)             // CurrentColor marks the current bucket.
)

// GetOutcomeLabel returns a plain text label for a lifecycle outcome.
func GetOutcomeLabel(outcome schema.Outcome) string {
	switch outcome {
	case schema.SuccessOutcome:
		return SuccessValue
	case schema.FailedOutcome:
		return FailedValue
	default:
		return PendingValue
	}
}

// GetColorOutcomeLabel returns a colored outcome label for console output (table).
func GetColorOutcomeLabel(outcome schema.Outcome) string {
	text := GetOutcomeLabel(outcome)
	switch text {
	case SuccessValue:
		return SuccessColor.Sprint(text)
	case FailedValue:
		return FailedColor.Sprint(text)
	default:
		return PendingColor.Sprint(text)
	}
}

// GetSourceLabel returns a plain label for where a response came from.
func GetSourceLabel(source schema.Source) string {
	if source == schema.CacheSource {
		return CacheValue
	}
	return NetworkValue
}

// GetColorSourceLabel returns a colored source label for console output.
func GetColorSourceLabel(source schema.Source) string {
	text := GetSourceLabel(source)
	if text == CacheValue {
		return CacheColor.Sprint(text)
	}
	return NetworkColor.Sprint(text)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for bucket storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".precache.db"
	}
	return filepath.Join(homeDir, ".precache.db")
}

// TruncatePath truncates a URL or path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the "..." prefix and at least one character.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// FormatBytes renders a byte count for humans.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
