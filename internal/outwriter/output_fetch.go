package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
)

// fetchView is the serialized form of a fetch result.
type fetchView struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	Source     schema.Source `json:"source"`
	Bucket     string        `json:"bucket,omitempty"`
	SizeBytes  int           `json:"size_bytes"`
	Duration   time.Duration `json:"duration_ns"`
}

func newFetchView(resp *schema.Response, duration time.Duration) fetchView {
	return fetchView{
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Source:     resp.Source,
		Bucket:     resp.Bucket,
		SizeBytes:  len(resp.Body),
		Duration:   duration,
	}
}

// PrintFetch outputs where a response came from and what it contained.
func PrintFetch(resp *schema.Response, cfg *contract.Config, duration time.Duration) error {
	view := newFetchView(resp, duration)
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, view)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVFetch(w, view)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFetchText(w, view, contract.GetColorSourceLabel(view.Source))
		}, "Wrote fetch"); err != nil {
			return fmt.Errorf("error writing text output: %w", err)
		}
	}
	return nil
}

func writeFetchText(w io.Writer, view fetchView, sourceLabel string) error {
	from := sourceLabel
	if view.Bucket != "" {
		from = fmt.Sprintf("%s (%s)", sourceLabel, view.Bucket)
	}
	_, err := fmt.Fprintf(w, "%d %s from %s, %s in %s\n",
		view.StatusCode, view.URL, from, contract.FormatBytes(int64(view.SizeBytes)), formatDuration(view.Duration))
	return err
}

func writeCSVFetch(w io.Writer, view fetchView) error {
	header := []string{"url", "status_code", "source", "bucket", "size_bytes", "duration_ms"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		return cw.Write([]string{
			view.URL,
			strconv.Itoa(view.StatusCode),
			string(view.Source),
			view.Bucket,
			strconv.Itoa(view.SizeBytes),
			itoa64(view.Duration.Milliseconds()),
		})
	})
}

// PrintLifecycle outputs the result of an install, activate or update.
func PrintLifecycle(result schema.LifecycleResult, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVLifecycle(w, result)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeLifecycleText(w, result)
		}, "Wrote summary"); err != nil {
			return fmt.Errorf("error writing text output: %w", err)
		}
	}
	return nil
}

func writeLifecycleText(w io.Writer, result schema.LifecycleResult) error {
	var line string
	switch result.Event {
	case schema.InstallEvent:
		line = fmt.Sprintf("Installed %s: %d entries", result.Version, result.Entries)
	case schema.ActivateEvent:
		line = fmt.Sprintf("Activated %s: removed %d buckets", result.Version, len(result.Deleted))
	default:
		line = fmt.Sprintf("Updated to %s: %d entries, removed %d buckets", result.Version, result.Entries, len(result.Deleted))
	}
	if len(result.Deleted) > 0 {
		line += " (" + strings.Join(result.Deleted, ", ") + ")"
	}
	_, err := fmt.Fprintf(w, "%s in %s\n", line, formatDuration(result.Duration))
	return err
}

func writeCSVLifecycle(w io.Writer, result schema.LifecycleResult) error {
	header := []string{"event", "version", "entries", "deleted", "duration_ms"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		return cw.Write([]string{
			string(result.Event),
			result.Version,
			strconv.Itoa(result.Entries),
			strings.Join(result.Deleted, ";"),
			itoa64(result.Duration.Milliseconds()),
		})
	})
}
