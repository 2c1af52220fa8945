package iocache

import (
	"context"
	"time"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetCacheStore implements the CacheManager interface.
func (m *MockCacheManager) GetCacheStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetHistoryStore implements the CacheManager interface.
func (m *MockCacheManager) GetHistoryStore() contract.HistoryStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.HistoryStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Open implements the CacheStore interface.
func (m *MockCacheStore) Open(ctx context.Context, bucket string) error {
	args := m.Called(ctx, bucket)
	return args.Error(0)
}

// Has implements the CacheStore interface.
func (m *MockCacheStore) Has(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

// Keys implements the CacheStore interface.
func (m *MockCacheStore) Keys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

// Delete implements the CacheStore interface.
func (m *MockCacheStore) Delete(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

// Match implements the CacheStore interface.
func (m *MockCacheStore) Match(ctx context.Context, key string) (*schema.Response, error) {
	args := m.Called(ctx, key)
	resp, _ := args.Get(0).(*schema.Response)
	return resp, args.Error(1)
}

// Lookup implements the CacheStore interface.
func (m *MockCacheStore) Lookup(ctx context.Context, bucket, key string) (*schema.Response, error) {
	args := m.Called(ctx, bucket, key)
	resp, _ := args.Get(0).(*schema.Response)
	return resp, args.Error(1)
}

// PutAll implements the CacheStore interface.
func (m *MockCacheStore) PutAll(ctx context.Context, bucket string, entries []schema.Entry) error {
	args := m.Called(ctx, bucket, entries)
	return args.Error(0)
}

// Buckets implements the CacheStore interface.
func (m *MockCacheStore) Buckets(ctx context.Context) ([]schema.BucketInfo, error) {
	args := m.Called(ctx)
	infos, _ := args.Get(0).([]schema.BucketInfo)
	return infos, args.Error(1)
}

// Entries implements the CacheStore interface.
func (m *MockCacheStore) Entries(ctx context.Context, bucket string) ([]schema.EntryInfo, error) {
	args := m.Called(ctx, bucket)
	infos, _ := args.Get(0).([]schema.EntryInfo)
	return infos, args.Error(1)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus(ctx context.Context) (schema.CacheStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// BeginRun implements the HistoryStore interface.
func (m *MockHistoryStore) BeginRun(ctx context.Context, event schema.EventKind, version string, start time.Time) (int64, error) {
	args := m.Called(ctx, event, version, start)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the HistoryStore interface.
func (m *MockHistoryStore) EndRun(ctx context.Context, runID int64, end time.Time, outcome schema.Outcome, entries int, runErr error) error {
	args := m.Called(ctx, runID, end, outcome, entries, runErr)
	return args.Error(0)
}

// Runs implements the HistoryStore interface.
func (m *MockHistoryStore) Runs(ctx context.Context) ([]schema.LifecycleRun, error) {
	args := m.Called(ctx)
	runs, _ := args.Get(0).([]schema.LifecycleRun)
	return runs, args.Error(1)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus(ctx context.Context) (schema.HistoryStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
