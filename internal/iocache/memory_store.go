package iocache

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
)

// memoryBucket holds the entries of one bucket.
type memoryBucket struct {
	name      string
	entries   map[string]schema.Entry
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore keeps buckets in process memory. It is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets []*memoryBucket // creation order
}

var _ contract.CacheStore = &MemoryStore{} // Compile-time check

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (ms *MemoryStore) find(name string) (int, *memoryBucket) {
	for i, b := range ms.buckets {
		if b.name == name {
			return i, b
		}
	}
	return -1, nil
}

func (ms *MemoryStore) openLocked(name string) *memoryBucket {
	if _, b := ms.find(name); b != nil {
		return b
	}
	now := time.Now()
	b := &memoryBucket{name: name, entries: map[string]schema.Entry{}, createdAt: now, updatedAt: now}
	ms.buckets = append(ms.buckets, b)
	return b
}

// Open creates the bucket if it does not exist yet.
func (ms *MemoryStore) Open(_ context.Context, bucket string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.openLocked(bucket)
	return nil
}

// Has reports whether the bucket exists.
func (ms *MemoryStore) Has(_ context.Context, bucket string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, b := ms.find(bucket)
	return b != nil, nil
}

// Keys lists bucket names in creation order.
func (ms *MemoryStore) Keys(_ context.Context) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	names := make([]string, 0, len(ms.buckets))
	for _, b := range ms.buckets {
		names = append(names, b.name)
	}
	return names, nil
}

// Delete removes the bucket and its entries.
func (ms *MemoryStore) Delete(_ context.Context, bucket string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	i, b := ms.find(bucket)
	if b == nil {
		return false, nil
	}
	ms.buckets = slices.Delete(ms.buckets, i, i+1)
	return true, nil
}

// Match looks up a request key across all buckets, oldest bucket first.
func (ms *MemoryStore) Match(_ context.Context, key string) (*schema.Response, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for _, b := range ms.buckets {
		if entry, ok := b.entries[key]; ok {
			return cachedResponse(b.name, entry), nil
		}
	}
	return nil, contract.ErrNotFound
}

// Lookup reads a single entry from one bucket.
func (ms *MemoryStore) Lookup(_ context.Context, bucket, key string) (*schema.Response, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, b := ms.find(bucket)
	if b == nil {
		return nil, contract.ErrNotFound
	}
	entry, ok := b.entries[key]
	if !ok {
		return nil, contract.ErrNotFound
	}
	return cachedResponse(b.name, entry), nil
}

// cachedResponse copies a stored entry so callers cannot mutate the store.
func cachedResponse(bucket string, entry schema.Entry) *schema.Response {
	resp := entry.Response
	resp.Header = schema.CloneHeader(resp.Header)
	resp.Body = slices.Clone(resp.Body)
	if resp.Body == nil {
		resp.Body = []byte{}
	}
	resp.Source = schema.CacheSource
	resp.Bucket = bucket
	return &resp
}

// PutAll writes all entries into the bucket under one lock.
func (ms *MemoryStore) PutAll(_ context.Context, bucket string, entries []schema.Entry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	b := ms.openLocked(bucket)
	now := time.Now()
	for _, entry := range entries {
		stored := entry
		stored.Response.Header = schema.CloneHeader(entry.Response.Header)
		stored.Response.Body = slices.Clone(entry.Response.Body)
		if stored.StoredAt.IsZero() {
			stored.StoredAt = now
		}
		b.entries[entry.Key] = stored
	}
	b.updatedAt = now
	return nil
}

// Buckets summarizes every bucket in creation order.
func (ms *MemoryStore) Buckets(_ context.Context) ([]schema.BucketInfo, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	infos := make([]schema.BucketInfo, 0, len(ms.buckets))
	for _, b := range ms.buckets {
		info := schema.BucketInfo{
			Name:      b.name,
			Entries:   len(b.entries),
			CreatedAt: b.createdAt,
			UpdatedAt: b.updatedAt,
		}
		for _, entry := range b.entries {
			info.SizeBytes += int64(len(entry.Response.Body))
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Entries lists the entries of one bucket ordered by key.
func (ms *MemoryStore) Entries(_ context.Context, bucket string) ([]schema.EntryInfo, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, b := ms.find(bucket)
	if b == nil {
		return nil, fmt.Errorf("bucket %s: %w", bucket, contract.ErrNotFound)
	}
	infos := make([]schema.EntryInfo, 0, len(b.entries))
	for key, entry := range b.entries {
		infos = append(infos, schema.EntryInfo{
			Bucket:     bucket,
			Key:        key,
			URL:        entry.Response.URL,
			StatusCode: entry.Response.StatusCode,
			SizeBytes:  int64(len(entry.Response.Body)),
			StoredAt:   entry.StoredAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// GetStatus returns status information about the in-memory store.
func (ms *MemoryStore) GetStatus(_ context.Context) (schema.CacheStatus, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	status := schema.CacheStatus{
		Backend:      string(schema.MemoryBackend),
		Connected:    true,
		TotalBuckets: len(ms.buckets),
	}
	for _, b := range ms.buckets {
		for _, entry := range b.entries {
			status.TotalEntries++
			status.TableSizeBytes += int64(len(entry.Response.Body))
			if entry.StoredAt.After(status.LastEntryTime) {
				status.LastEntryTime = entry.StoredAt
			}
			if status.OldestEntryTime.IsZero() || entry.StoredAt.Before(status.OldestEntryTime) {
				status.OldestEntryTime = entry.StoredAt
			}
		}
	}
	return status, nil
}

// Close drops every bucket.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.buckets = nil
	return nil
}

// MemoryHistoryStore keeps lifecycle runs in process memory.
type MemoryHistoryStore struct {
	mu   sync.RWMutex
	runs []schema.LifecycleRun
}

var _ contract.HistoryStore = &MemoryHistoryStore{} // Compile-time check

// NewMemoryHistoryStore returns an empty in-memory history.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{}
}

// BeginRun appends a pending run and returns its ID.
func (mh *MemoryHistoryStore) BeginRun(_ context.Context, event schema.EventKind, version string, start time.Time) (int64, error) {
	mh.mu.Lock()
	defer mh.mu.Unlock()
	id := int64(len(mh.runs) + 1)
	mh.runs = append(mh.runs, schema.LifecycleRun{
		RunID:     id,
		Event:     event,
		Version:   version,
		StartTime: start,
		Outcome:   schema.PendingOutcome,
	})
	return id, nil
}

// EndRun stores the outcome of a run.
func (mh *MemoryHistoryStore) EndRun(_ context.Context, runID int64, end time.Time, outcome schema.Outcome, entries int, runErr error) error {
	mh.mu.Lock()
	defer mh.mu.Unlock()
	if runID < 1 || runID > int64(len(mh.runs)) {
		return fmt.Errorf("lifecycle run %d: %w", runID, contract.ErrNotFound)
	}
	run := &mh.runs[runID-1]
	run.EndTime = end
	run.Outcome = outcome
	run.Entries = entries
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return nil
}

// Runs returns a copy of all runs ordered by ID.
func (mh *MemoryHistoryStore) Runs(_ context.Context) ([]schema.LifecycleRun, error) {
	mh.mu.RLock()
	defer mh.mu.RUnlock()
	return slices.Clone(mh.runs), nil
}

// GetStatus returns status information about the in-memory history.
func (mh *MemoryHistoryStore) GetStatus(_ context.Context) (schema.HistoryStatus, error) {
	mh.mu.RLock()
	defer mh.mu.RUnlock()
	status := schema.HistoryStatus{
		Backend:   string(schema.MemoryBackend),
		Connected: true,
		TotalRuns: len(mh.runs),
	}
	if len(mh.runs) == 0 {
		return status, nil
	}
	for _, run := range mh.runs {
		if run.Outcome == schema.FailedOutcome {
			status.FailedRuns++
		}
	}
	last := mh.runs[len(mh.runs)-1]
	status.LastRunID = last.RunID
	status.LastRunTime = last.StartTime
	status.OldestRunTime = mh.runs[0].StartTime
	return status, nil
}

// Close drops every run.
func (mh *MemoryHistoryStore) Close() error {
	mh.mu.Lock()
	defer mh.mu.Unlock()
	mh.runs = nil
	return nil
}
