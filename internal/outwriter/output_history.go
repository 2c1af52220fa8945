package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintHistory outputs lifecycle runs in the configured format.
func PrintHistory(runs []schema.LifecycleRun, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, runs)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVHistory(w, runs)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryTable(w, runs, true)
		}, "Wrote table"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// writeHistoryTable renders runs with an outcome label per row.
func writeHistoryTable(w io.Writer, runs []schema.LifecycleRun, colored bool) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Event", "Version", "Started", "Duration", "Entries", "Outcome"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, run := range runs {
		outcome := contract.GetOutcomeLabel(run.Outcome)
		if colored {
			outcome = contract.GetColorOutcomeLabel(run.Outcome)
		}
		data = append(data, []string{
			itoa64(run.RunID),
			string(run.Event),
			run.Version,
			formatTime(run.StartTime),
			formatDuration(run.Duration()),
			strconv.Itoa(run.Entries),
			outcome,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	for _, run := range runs {
		if run.Error == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "Run %d: %s\n", run.RunID, run.Error); err != nil {
			return err
		}
	}
	return nil
}

// writeCSVHistory writes one row per lifecycle run.
func writeCSVHistory(w io.Writer, runs []schema.LifecycleRun) error {
	header := []string{"run_id", "event", "version", "start_time", "end_time", "duration_ms", "entries", "outcome", "error"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, run := range runs {
			row := []string{
				itoa64(run.RunID),
				string(run.Event),
				run.Version,
				formatTime(run.StartTime),
				formatTime(run.EndTime),
				itoa64(run.Duration().Milliseconds()),
				strconv.Itoa(run.Entries),
				string(run.Outcome),
				run.Error,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
