package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
)

// runsTable records lifecycle runs.
const runsTable = "precache_lifecycle_runs"

// SQLHistoryStore implements the HistoryStore interface.
type SQLHistoryStore struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &SQLHistoryStore{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.MemoryBackend {
		return NewMemoryHistoryStore(), nil
	}
	if _, err := applyMigrations(backend, connStr, LatestVersion); err != nil {
		return nil, fmt.Errorf("failed to migrate %s history schema: %w", backend, err)
	}
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	return &SQLHistoryStore{db: db, backend: backend}, nil
}

// q applies the table name and placeholder style to a query template.
func (hs *SQLHistoryStore) q(format string) string {
	return rebind(hs.backend, fmt.Sprintf(format, quoteTableName(runsTable, hs.backend)))
}

// BeginRun creates a pending run and returns its unique ID.
func (hs *SQLHistoryStore) BeginRun(ctx context.Context, event schema.EventKind, version string, start time.Time) (int64, error) {
	var runID int64
	var err error

	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := hs.q(`INSERT INTO %s (event, version, start_time, outcome) VALUES (?, ?, ?, ?) RETURNING run_id`)
		err = hs.db.QueryRowContext(ctx, query, string(event), version, start.UnixNano(), string(schema.PendingOutcome)).Scan(&runID)
	default: // SQLite and MySQL
		query := hs.q(`INSERT INTO %s (event, version, start_time, outcome) VALUES (?, ?, ?, ?)`)
		var result sql.Result
		result, err = hs.db.ExecContext(ctx, query, string(event), version, start.UnixNano(), string(schema.PendingOutcome))
		if err != nil {
			return 0, fmt.Errorf("failed to insert lifecycle run: %w", err)
		}
		runID, err = result.LastInsertId()
	}

	if err != nil {
		return 0, fmt.Errorf("failed to insert lifecycle run: %w", err)
	}
	return runID, nil
}

// EndRun stores the outcome of a run.
func (hs *SQLHistoryStore) EndRun(ctx context.Context, runID int64, end time.Time, outcome schema.Outcome, entries int, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	query := hs.q(`UPDATE %s SET end_time = ?, outcome = ?, entries = ?, error_text = ? WHERE run_id = ?`)
	res, err := hs.db.ExecContext(ctx, query, end.UnixNano(), string(outcome), entries, errText, runID)
	if err != nil {
		return fmt.Errorf("failed to update lifecycle run %d: %w", runID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("lifecycle run %d: %w", runID, contract.ErrNotFound)
	}
	return nil
}

// Runs retrieves all lifecycle runs ordered by ID.
func (hs *SQLHistoryStore) Runs(ctx context.Context) ([]schema.LifecycleRun, error) {
	rows, err := hs.db.QueryContext(ctx, hs.q(`
		SELECT run_id, event, version, start_time, end_time, outcome, entries, error_text
		FROM %s ORDER BY run_id`))
	if err != nil {
		return nil, fmt.Errorf("failed to query lifecycle runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []schema.LifecycleRun
	for rows.Next() {
		var (
			run            schema.LifecycleRun
			event, outcome string
			start          int64
			end            sql.NullInt64
			errText        sql.NullString
		)
		if err := rows.Scan(&run.RunID, &event, &run.Version, &start, &end, &outcome, &run.Entries, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan lifecycle run: %w", err)
		}
		run.Event = schema.EventKind(event)
		run.Outcome = schema.Outcome(outcome)
		run.StartTime = time.Unix(0, start)
		if end.Valid {
			run.EndTime = time.Unix(0, end.Int64)
		}
		run.Error = errText.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetStatus returns status information about the history store.
func (hs *SQLHistoryStore) GetStatus(ctx context.Context) (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:   string(hs.backend),
		Connected: hs.db != nil,
	}
	if hs.db == nil {
		return status, nil
	}

	row := hs.db.QueryRowContext(ctx, hs.q(`SELECT COUNT(*) FROM %s`))
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}
	if status.TotalRuns == 0 {
		return status, nil
	}

	row = hs.db.QueryRowContext(ctx, hs.q(`SELECT COUNT(*) FROM %s WHERE outcome = ?`), string(schema.FailedOutcome))
	if err := row.Scan(&status.FailedRuns); err != nil {
		return status, fmt.Errorf("failed to get failed runs: %w", err)
	}

	var lastStart int64
	row = hs.db.QueryRowContext(ctx, hs.q(`SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1`))
	if err := row.Scan(&status.LastRunID, &lastStart); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	status.LastRunTime = time.Unix(0, lastStart)

	var oldestStart int64
	row = hs.db.QueryRowContext(ctx, hs.q(`SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1`))
	if err := row.Scan(&oldestStart); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	status.OldestRunTime = time.Unix(0, oldestStart)

	return status, nil
}

// Close closes the underlying DB connection.
func (hs *SQLHistoryStore) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}
