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

// PrintBuckets outputs bucket summaries in the configured format.
func PrintBuckets(buckets []schema.BucketInfo, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, buckets)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVBuckets(w, buckets)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBucketTable(w, buckets)
		}, "Wrote table"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// writeBucketTable renders buckets in creation order with the current one highlighted.
func writeBucketTable(w io.Writer, buckets []schema.BucketInfo) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Bucket", "Entries", "Size", "Created", "Updated"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, b := range buckets {
		name := b.Name
		if b.IsCurrent {
			name = contract.CurrentColor.Sprint(b.Name + " *")
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			name,
			strconv.Itoa(b.Entries),
			contract.FormatBytes(b.SizeBytes),
			formatTime(b.CreatedAt),
			formatTime(b.UpdatedAt),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d buckets\n", len(buckets))
	return err
}

// writeCSVBuckets writes one row per bucket.
func writeCSVBuckets(w io.Writer, buckets []schema.BucketInfo) error {
	header := []string{"bucket", "entries", "size_bytes", "created_at", "updated_at", "is_current"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, b := range buckets {
			row := []string{
				b.Name,
				strconv.Itoa(b.Entries),
				itoa64(b.SizeBytes),
				formatTime(b.CreatedAt),
				formatTime(b.UpdatedAt),
				strconv.FormatBool(b.IsCurrent),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// PrintEntries outputs the entries of one bucket in the configured format.
func PrintEntries(entries []schema.EntryInfo, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, entries)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVEntries(w, entries)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		urlWidth := GetMaxTablePathWidth(cfg, 45) // Status + Size + Stored with padding
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeEntryTable(w, entries, urlWidth)
		}, "Wrote table"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// writeEntryTable renders entries with URLs truncated to urlWidth.
func writeEntryTable(w io.Writer, entries []schema.EntryInfo, urlWidth int) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"URL", "Status", "Size", "Stored"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	var total int64
	for _, e := range entries {
		total += e.SizeBytes
		data = append(data, []string{
			contract.TruncatePath(e.URL, urlWidth),
			strconv.Itoa(e.StatusCode),
			contract.FormatBytes(e.SizeBytes),
			formatTime(e.StoredAt),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d entries (%s)\n", len(entries), contract.FormatBytes(total))
	return err
}

// writeCSVEntries writes one row per entry.
func writeCSVEntries(w io.Writer, entries []schema.EntryInfo) error {
	header := []string{"bucket", "key", "url", "status_code", "size_bytes", "stored_at"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, e := range entries {
			row := []string{
				e.Bucket,
				e.Key,
				e.URL,
				strconv.Itoa(e.StatusCode),
				itoa64(e.SizeBytes),
				formatTime(e.StoredAt),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
