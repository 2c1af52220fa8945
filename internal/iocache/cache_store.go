// Package iocache persists cache buckets and lifecycle history.
package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for bucket storage.
const (
	bucketsTable = "precache_buckets"
	entriesTable = "precache_entries"
)

// SQLStore handles durable bucket storage using various database backends.
type SQLStore struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.CacheStore = &SQLStore{} // Compile-time check

// NewCacheStore initializes and returns a new CacheStore based on the backend type.
func NewCacheStore(backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	if backend == schema.MemoryBackend {
		return NewMemoryStore(), nil
	}
	return NewSQLStore(backend, connStr)
}

// NewSQLStore migrates the schema to the latest version and opens the store.
func NewSQLStore(backend schema.DatabaseBackend, connStr string) (*SQLStore, error) {
	if _, err := applyMigrations(backend, connStr, LatestVersion); err != nil {
		return nil, fmt.Errorf("failed to migrate %s cache schema: %w", backend, err)
	}
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, backend: backend, connStr: connStr}, nil
}

// q applies table names and placeholder style to a query template.
func (s *SQLStore) q(format string) string {
	return rebind(s.backend, fmt.Sprintf(format,
		quoteTableName(bucketsTable, s.backend),
		quoteTableName(entriesTable, s.backend)))
}

// Open creates the bucket if it does not exist yet.
func (s *SQLStore) Open(ctx context.Context, bucket string) error {
	now := time.Now().UnixNano()
	if _, err := s.db.ExecContext(ctx, s.openBucketQuery(), bucket, now, now); err != nil {
		return fmt.Errorf("failed to open bucket %s: %w", bucket, err)
	}
	return nil
}

// openBucketQuery returns an insert that ignores existing buckets.
func (s *SQLStore) openBucketQuery() string {
	switch s.backend {
	case schema.MySQLBackend:
		return s.q(`INSERT IGNORE INTO %[1]s (bucket_name, created_at, updated_at) VALUES (?, ?, ?)`)
	case schema.PostgreSQLBackend:
		return s.q(`INSERT INTO %[1]s (bucket_name, created_at, updated_at) VALUES (?, ?, ?) ON CONFLICT (bucket_name) DO NOTHING`)
	default: // SQLite
		return s.q(`INSERT OR IGNORE INTO %[1]s (bucket_name, created_at, updated_at) VALUES (?, ?, ?)`)
	}
}

// Has reports whether the bucket exists.
func (s *SQLStore) Has(ctx context.Context, bucket string) (bool, error) {
	var count int
	row := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM %[1]s WHERE bucket_name = ?`), bucket)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	return count > 0, nil
}

// Keys lists bucket names in creation order.
func (s *SQLStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT bucket_name FROM %[1]s ORDER BY bucket_id`))
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan bucket name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes the bucket and its entries in one transaction.
func (s *SQLStore) Delete(ctx context.Context, bucket string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM %[2]s WHERE bucket_name = ?`), bucket); err != nil {
		return false, fmt.Errorf("failed to delete entries of bucket %s: %w", bucket, err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM %[1]s WHERE bucket_name = ?`), bucket)
	if err != nil {
		return false, fmt.Errorf("failed to delete bucket %s: %w", bucket, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit bucket deletion: %w", err)
	}
	return affected > 0, nil
}

// Match looks up a request key across all buckets, oldest bucket first.
func (s *SQLStore) Match(ctx context.Context, key string) (*schema.Response, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT e.bucket_name, e.request_url, e.status_code, e.headers, e.body
		FROM %[2]s e JOIN %[1]s b ON e.bucket_name = b.bucket_name
		WHERE `+s.keyCond("e.")+`
		ORDER BY b.bucket_id
		LIMIT 1`), key)
	return scanResponse(row)
}

// keyCond matches an entry by request key.
// MySQL keys are unbounded TEXT, so it compares the indexed SHA-256 of the key instead.
func (s *SQLStore) keyCond(alias string) string {
	if s.backend == schema.MySQLBackend {
		return alias + "key_hash = UNHEX(SHA2(?, 256))"
	}
	return alias + "cache_key = ?"
}

// Lookup reads a single entry from one bucket.
func (s *SQLStore) Lookup(ctx context.Context, bucket, key string) (*schema.Response, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT bucket_name, request_url, status_code, headers, body
		FROM %[2]s WHERE bucket_name = ? AND `+s.keyCond("")), bucket, key)
	return scanResponse(row)
}

// scanResponse turns an entry row into a cached response.
func scanResponse(row *sql.Row) (*schema.Response, error) {
	var (
		resp    schema.Response
		headers string
	)
	if err := row.Scan(&resp.Bucket, &resp.URL, &resp.StatusCode, &headers, &resp.Body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contract.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}
	resp.Header = http.Header{}
	if err := json.Unmarshal([]byte(headers), &resp.Header); err != nil {
		return nil, fmt.Errorf("failed to decode stored headers: %w", err)
	}
	if resp.Body == nil {
		resp.Body = []byte{}
	}
	resp.Source = schema.CacheSource
	return &resp, nil
}

// PutAll writes all entries into the bucket atomically.
func (s *SQLStore) PutAll(ctx context.Context, bucket string, entries []schema.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixNano()
	if _, err := tx.ExecContext(ctx, s.openBucketQuery(), bucket, now, now); err != nil {
		return fmt.Errorf("failed to open bucket %s: %w", bucket, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.upsertEntryQuery())
	if err != nil {
		return fmt.Errorf("failed to prepare entry upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, entry := range entries {
		headers, err := json.Marshal(schema.CloneHeader(entry.Response.Header))
		if err != nil {
			return fmt.Errorf("failed to encode headers for %s: %w", entry.Key, err)
		}
		body := entry.Response.Body
		if body == nil {
			body = []byte{}
		}
		storedAt := entry.StoredAt
		if storedAt.IsZero() {
			storedAt = time.Unix(0, now)
		}
		if _, err := stmt.ExecContext(ctx, bucket, entry.Key, entry.Response.URL, entry.Response.StatusCode,
			string(headers), body, storedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to store %s in bucket %s: %w", entry.Key, bucket, err)
		}
	}

	if _, err := tx.ExecContext(ctx, s.q(`UPDATE %[1]s SET updated_at = ? WHERE bucket_name = ?`), now, bucket); err != nil {
		return fmt.Errorf("failed to touch bucket %s: %w", bucket, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bucket %s: %w", bucket, err)
	}
	return nil
}

// upsertEntryQuery returns the UPSERT query for the backend.
func (s *SQLStore) upsertEntryQuery() string {
	switch s.backend {
	case schema.MySQLBackend:
		return s.q(`INSERT INTO %[2]s (bucket_name, cache_key, request_url, status_code, headers, body, stored_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE request_url = new.request_url, status_code = new.status_code,
			headers = new.headers, body = new.body, stored_at = new.stored_at`)

	case schema.PostgreSQLBackend:
		return s.q(`INSERT INTO %[2]s (bucket_name, cache_key, request_url, status_code, headers, body, stored_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (bucket_name, cache_key) DO UPDATE SET request_url = EXCLUDED.request_url,
			status_code = EXCLUDED.status_code, headers = EXCLUDED.headers, body = EXCLUDED.body, stored_at = EXCLUDED.stored_at`)

	default: // SQLite
		return s.q(`INSERT OR REPLACE INTO %[2]s (bucket_name, cache_key, request_url, status_code, headers, body, stored_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
	}
}

// Buckets summarizes every bucket in creation order.
func (s *SQLStore) Buckets(ctx context.Context) ([]schema.BucketInfo, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT b.bucket_name, b.created_at, b.updated_at, COUNT(e.cache_key), COALESCE(SUM(LENGTH(e.body)), 0)
		FROM %[1]s b LEFT JOIN %[2]s e ON e.bucket_name = b.bucket_name
		GROUP BY b.bucket_id, b.bucket_name, b.created_at, b.updated_at
		ORDER BY b.bucket_id`))
	if err != nil {
		return nil, fmt.Errorf("failed to summarize buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []schema.BucketInfo
	for rows.Next() {
		var (
			info             schema.BucketInfo
			created, updated int64
		)
		if err := rows.Scan(&info.Name, &created, &updated, &info.Entries, &info.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan bucket summary: %w", err)
		}
		info.CreatedAt = time.Unix(0, created)
		info.UpdatedAt = time.Unix(0, updated)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Entries lists the entries of one bucket ordered by key.
func (s *SQLStore) Entries(ctx context.Context, bucket string) ([]schema.EntryInfo, error) {
	exists, err := s.Has(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s: %w", bucket, contract.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT cache_key, request_url, status_code, LENGTH(body), stored_at
		FROM %[2]s WHERE bucket_name = ? ORDER BY cache_key`), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries of bucket %s: %w", bucket, err)
	}
	defer func() { _ = rows.Close() }()

	var infos []schema.EntryInfo
	for rows.Next() {
		var (
			info     = schema.EntryInfo{Bucket: bucket}
			storedAt int64
		)
		if err := rows.Scan(&info.Key, &info.URL, &info.StatusCode, &info.SizeBytes, &storedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		info.StoredAt = time.Unix(0, storedAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Close closes the underlying DB connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetStatus returns status information about the bucket store.
func (s *SQLStore) GetStatus(ctx context.Context) (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(s.backend),
		Connected: s.db != nil,
	}
	if s.db == nil {
		return status, nil
	}

	row := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM %[1]s`))
	if err := row.Scan(&status.TotalBuckets); err != nil {
		return status, fmt.Errorf("failed to get total buckets: %w", err)
	}

	row = s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM %[2]s`))
	if err := row.Scan(&status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to get total entries: %w", err)
	}

	if status.TotalEntries == 0 {
		return status, nil
	}

	var lastTs, oldestTs int64
	row = s.db.QueryRowContext(ctx, s.q(`SELECT MAX(stored_at), MIN(stored_at) FROM %[2]s`))
	if err := row.Scan(&lastTs, &oldestTs); err != nil {
		return status, fmt.Errorf("failed to get entry times: %w", err)
	}
	status.LastEntryTime = time.Unix(0, lastTs)
	status.OldestEntryTime = time.Unix(0, oldestTs)

	status.TableSizeBytes = s.estimateSize(ctx, int64(status.TotalEntries))
	return status, nil
}

// estimateSize asks the backend for the entries table size, falling back to a rough estimate.
func (s *SQLStore) estimateSize(ctx context.Context, totalEntries int64) int64 {
	fallback := totalEntries * 1000
	var size int64

	switch s.backend {
	case schema.SQLiteBackend:
		row := s.db.QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return 0
		}
		return size

	case schema.MySQLBackend:
		// Use information_schema for MySQL
		cfg, err := mysql.ParseDSN(s.connStr)
		if err != nil || cfg.DBName == "" {
			return fallback
		}
		row := s.db.QueryRowContext(ctx,
			"SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
			cfg.DBName, entriesTable)
		if err := row.Scan(&size); err != nil {
			return fallback
		}
		return size

	case schema.PostgreSQLBackend:
		row := s.db.QueryRowContext(ctx, "SELECT pg_total_relation_size($1)", entriesTable)
		if err := row.Scan(&size); err != nil {
			return fallback
		}
		return size

	default:
		return fallback
	}
}
