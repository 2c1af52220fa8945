package core

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/internal/iocache"
	"github.com/huangsam/precache/schema"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://app.test"

// fakeOrigin serves canned bodies per path and counts network calls.
type fakeOrigin struct {
	mu     sync.Mutex
	bodies map[string]string // path -> body
	status map[string]int    // path -> status override
	fail   map[string]error  // path -> transport error
	calls  map[string]int    // request key -> count
}

func newFakeOrigin(bodies map[string]string) *fakeOrigin {
	return &fakeOrigin{
		bodies: bodies,
		status: map[string]int{},
		fail:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (o *fakeOrigin) Fetch(ctx context.Context, req schema.Request) (*schema.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[req.Key()]++
	if err := o.fail[u.Path]; err != nil {
		return nil, err
	}
	body, ok := o.bodies[u.Path]
	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
	}
	if s, ok := o.status[u.Path]; ok {
		status = s
	}
	return &schema.Response{
		URL:        req.URL,
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       []byte(body),
		Source:     schema.NetworkSource,
	}, nil
}

func (o *fakeOrigin) set(path, body string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bodies[path] = body
}

func (o *fakeOrigin) callCount(method, path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[schema.RequestKey(method, testOrigin+path)]
}

func (o *fakeOrigin) totalCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	total := 0
	for _, n := range o.calls {
		total += n
	}
	return total
}

var _ contract.Fetcher = &fakeOrigin{}

// testConfig builds a validated config for the given version and manifest.
func testConfig(t *testing.T, version string, assets ...string) *contract.Config {
	t.Helper()
	origin, err := contract.ParseOrigin(testOrigin)
	require.NoError(t, err)
	return &contract.Config{
		Version: version,
		Assets:  assets,
		Origin:  origin,
		Workers: 4,
	}
}

// storeBackends returns each local store implementation so lifecycle tests cover both.
func storeBackends() map[string]func(t *testing.T) (contract.CacheStore, contract.HistoryStore) {
	return map[string]func(t *testing.T) (contract.CacheStore, contract.HistoryStore){
		"memory": func(*testing.T) (contract.CacheStore, contract.HistoryStore) {
			return iocache.NewMemoryStore(), iocache.NewMemoryHistoryStore()
		},
		"sqlite": func(t *testing.T) (contract.CacheStore, contract.HistoryStore) {
			dbPath := filepath.Join(t.TempDir(), "precache.db")
			store, err := iocache.NewCacheStore(schema.SQLiteBackend, dbPath)
			require.NoError(t, err)
			history, err := iocache.NewHistoryStore(schema.SQLiteBackend, dbPath)
			require.NoError(t, err)
			t.Cleanup(func() {
				_ = store.Close()
				_ = history.Close()
			})
			return store, history
		},
	}
}

// bucketBodies reads every entry of a bucket as path -> body.
func bucketBodies(t *testing.T, store contract.CacheStore, bucket string) map[string]string {
	t.Helper()
	ctx := t.Context()
	infos, err := store.Entries(ctx, bucket)
	require.NoError(t, err)
	out := make(map[string]string, len(infos))
	for _, info := range infos {
		resp, err := store.Lookup(ctx, bucket, info.Key)
		require.NoError(t, err)
		u, err := url.Parse(info.URL)
		require.NoError(t, err)
		out[u.Path] = string(resp.Body)
	}
	return out
}

var errOffline = errors.New("network offline")
