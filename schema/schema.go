// Package schema has models and global variables for all parts of precache.
package schema

import (
	"net/http"
	"time"
)

// Request identifies a resource request intercepted from the web app.
type Request struct {
	Method string      // HTTP method; empty means GET
	URL    string      // Absolute URL of the resource
	Header http.Header // Request headers forwarded to the network
	Body   []byte      // Request payload forwarded to the network; never part of the key
}

// Response is a stored or live response to a Request.
type Response struct {
	URL        string      `json:"url"`
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"-"`
	Source     Source      `json:"source"`
	Bucket     string      `json:"bucket,omitempty"` // bucket the response was served from
}

// OK reports whether the response status is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Entry is one request/response pair written into a bucket.
type Entry struct {
	Key      string    // Request identity, see RequestKey
	Response Response  // Stored response
	StoredAt time.Time // When the entry was written
}

// BucketInfo summarizes a single cache bucket.
type BucketInfo struct {
	Name      string    `json:"name"`
	Entries   int       `json:"entries"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsCurrent bool      `json:"is_current"`
}

// EntryInfo describes a stored entry without its body.
type EntryInfo struct {
	Bucket     string    `json:"bucket"`
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	SizeBytes  int64     `json:"size_bytes"`
	StoredAt   time.Time `json:"stored_at"`
}

// CacheStatus represents the status of the cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalBuckets    int       `json:"total_buckets"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// LifecycleRun is one recorded install or activate.
type LifecycleRun struct {
	RunID     int64     `json:"run_id"`
	Event     EventKind `json:"event"`
	Version   string    `json:"version"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Outcome   Outcome   `json:"outcome"`
	Entries   int       `json:"entries"`
	Error     string    `json:"error,omitempty"`
}

// Duration returns how long the run took, or zero while it is pending.
func (r LifecycleRun) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// HistoryStatus represents the status of the lifecycle history.
type HistoryStatus struct {
	Backend       string    `json:"backend"`
	Connected     bool      `json:"connected"`
	TotalRuns     int       `json:"total_runs"`
	FailedRuns    int       `json:"failed_runs"`
	LastRunID     int64     `json:"last_run_id"`
	LastRunTime   time.Time `json:"last_run_time"`
	OldestRunTime time.Time `json:"oldest_run_time"`
}

// LifecycleResult summarizes one install, activate or update for display.
type LifecycleResult struct {
	Event    EventKind     `json:"event"`
	Version  string        `json:"version"`
	Entries  int           `json:"entries"`           // stored by install
	Deleted  []string      `json:"deleted,omitempty"` // removed by activate
	Duration time.Duration `json:"duration_ns"`
}
