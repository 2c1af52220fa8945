package core

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/huangsam/precache/internal/iocache"
	"github.com/huangsam/precache/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInstallStoresEveryAsset(t *testing.T) {
	for name, backend := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			store, history := backend(t)
			origin := newFakeOrigin(map[string]string{"/": "index", "/a": "alpha", "/b": "bravo"})
			w := NewWorker(testConfig(t, "v1", "/", "/a", "/b"), store, origin, history)

			n, err := w.Install(t.Context())
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			assert.Equal(t, map[string]string{"/": "index", "/a": "alpha", "/b": "bravo"}, bucketBodies(t, store, "v1"))

			runs, err := history.Runs(t.Context())
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, schema.InstallEvent, runs[0].Event)
			assert.Equal(t, schema.SuccessOutcome, runs[0].Outcome)
			assert.Equal(t, 3, runs[0].Entries)
		})
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	for name, backend := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			store, _ := backend(t)
			origin := newFakeOrigin(map[string]string{"/a": "alpha", "/b": "bravo"})
			w := NewWorker(testConfig(t, "v1", "/a", "/b"), store, origin, nil)

			_, err := w.Install(t.Context())
			require.NoError(t, err)

			origin.set("/a", "alpha-2")
			_, err = w.Install(t.Context())
			require.NoError(t, err)

			infos, err := store.Entries(t.Context(), "v1")
			require.NoError(t, err)
			assert.Len(t, infos, 2, "one entry per manifest URL")
			assert.Equal(t, map[string]string{"/a": "alpha-2", "/b": "bravo"}, bucketBodies(t, store, "v1"))
		})
	}
}

func TestInstallFailureIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name  string
		setup func(o *fakeOrigin)
	}{
		{"non-2xx asset", func(o *fakeOrigin) { o.status["/b"] = http.StatusInternalServerError }},
		{"missing asset", func(o *fakeOrigin) { delete(o.bodies, "/b") }},
		{"network error", func(o *fakeOrigin) { o.fail["/b"] = errOffline }},
	}

	for name, backend := range storeBackends() {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				store, history := backend(t)
				origin := newFakeOrigin(map[string]string{"/a": "alpha", "/b": "bravo"})
				w := NewWorker(testConfig(t, "v1", "/a", "/b"), store, origin, history)

				_, err := w.Install(t.Context())
				require.NoError(t, err)

				origin.set("/a", "alpha-2")
				tt.setup(origin)

				_, err = w.Install(t.Context())
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInstallFailed))

				// Previous contents are untouched
				assert.Equal(t, map[string]string{"/a": "alpha", "/b": "bravo"}, bucketBodies(t, store, "v1"))

				runs, err := history.Runs(t.Context())
				require.NoError(t, err)
				require.Len(t, runs, 2)
				assert.Equal(t, schema.FailedOutcome, runs[1].Outcome)
				assert.NotEmpty(t, runs[1].Error)
			})
		}
	}
}

func TestInstallPropagatesNetworkError(t *testing.T) {
	origin := newFakeOrigin(map[string]string{"/a": "alpha"})
	origin.fail["/a"] = errOffline
	w := NewWorker(testConfig(t, "v1", "/a"), iocache.NewMemoryStore(), origin, nil)

	_, err := w.Install(t.Context())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInstallFailed))
	assert.True(t, errors.Is(err, errOffline))
}

func TestInstallWithoutOrigin(t *testing.T) {
	cfg := testConfig(t, "v1", "/a")
	cfg.Origin = nil
	w := NewWorker(cfg, iocache.NewMemoryStore(), newFakeOrigin(nil), nil)

	_, err := w.Install(t.Context())
	assert.True(t, errors.Is(err, ErrInstallFailed))
}

func TestInstallCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	origin := newFakeOrigin(map[string]string{"/a": "alpha"})
	w := NewWorker(testConfig(t, "v1", "/a"), iocache.NewMemoryStore(), origin, nil)

	_, err := w.Install(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestInstallStorageFailure(t *testing.T) {
	store := new(iocache.MockCacheStore)
	store.On("Open", mock.Anything, "v1").Return(nil)
	store.On("PutAll", mock.Anything, "v1", mock.Anything).Return(errors.New("quota exceeded"))

	w := NewWorker(testConfig(t, "v1", "/a"), store, newFakeOrigin(map[string]string{"/a": "alpha"}), nil)
	_, err := w.Install(t.Context())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInstallFailed))
	assert.Contains(t, err.Error(), "quota exceeded")
	store.AssertExpectations(t)
}

func TestFetchCacheHitSkipsNetwork(t *testing.T) {
	for name, backend := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			store, _ := backend(t)
			origin := newFakeOrigin(map[string]string{"/a": "alpha"})
			w := NewWorker(testConfig(t, "v1", "/a"), store, origin, nil)
			_, err := w.Install(t.Context())
			require.NoError(t, err)
			before := origin.totalCalls()

			origin.set("/a", "changed upstream")
			resp, err := w.Fetch(t.Context(), schema.Request{Method: "GET", URL: testOrigin + "/a"})
			require.NoError(t, err)
			assert.Equal(t, "alpha", string(resp.Body))
			assert.Equal(t, schema.CacheSource, resp.Source)
			assert.Equal(t, "v1", resp.Bucket)
			assert.Equal(t, before, origin.totalCalls(), "cache hit must not touch the network")

			// Fragment does not change identity
			resp, err = w.Fetch(t.Context(), schema.Request{URL: testOrigin + "/a#top"})
			require.NoError(t, err)
			assert.Equal(t, schema.CacheSource, resp.Source)
		})
	}
}

func TestFetchMissEqualsNetwork(t *testing.T) {
	for name, backend := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			store, _ := backend(t)
			origin := newFakeOrigin(map[string]string{"/a": "alpha", "/other": "live"})
			w := NewWorker(testConfig(t, "v1", "/a"), store, origin, nil)
			_, err := w.Install(t.Context())
			require.NoError(t, err)

			req := schema.Request{URL: testOrigin + "/other"}
			direct, err := origin.Fetch(t.Context(), req)
			require.NoError(t, err)

			resp, err := w.Fetch(t.Context(), req)
			require.NoError(t, err)
			assert.Equal(t, direct, resp)

			// Non-2xx is passed through as-is
			resp, err = w.Fetch(t.Context(), schema.Request{URL: testOrigin + "/nope"})
			require.NoError(t, err)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			// Network errors are passed through unchanged
			origin.fail["/down"] = errOffline
			_, err = w.Fetch(t.Context(), schema.Request{URL: testOrigin + "/down"})
			assert.Equal(t, errOffline, err)
		})
	}
}

func TestFetchNonGetNeverMatches(t *testing.T) {
	store := iocache.NewMemoryStore()
	origin := newFakeOrigin(map[string]string{"/a": "alpha"})
	w := NewWorker(testConfig(t, "v1", "/a"), store, origin, nil)
	_, err := w.Install(t.Context())
	require.NoError(t, err)

	resp, err := w.Fetch(t.Context(), schema.Request{Method: http.MethodPost, URL: testOrigin + "/a"})
	require.NoError(t, err)
	assert.Equal(t, schema.NetworkSource, resp.Source)
	assert.Equal(t, 1, origin.callCount(http.MethodPost, "/a"))
}

func TestFetchStorageErrorPropagates(t *testing.T) {
	store := new(iocache.MockCacheStore)
	store.On("Match", mock.Anything, mock.Anything).Return(nil, errors.New("disk gone"))
	origin := newFakeOrigin(map[string]string{"/a": "alpha"})
	w := NewWorker(testConfig(t, "v1", "/a"), store, origin, nil)

	_, err := w.Fetch(t.Context(), schema.Request{URL: testOrigin + "/a"})
	assert.EqualError(t, err, "disk gone")
	assert.Equal(t, 0, origin.totalCalls())
}

func TestActivateKeepsOnlyCurrentVersion(t *testing.T) {
	for name, backend := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store, history := backend(t)
			for _, bucket := range []string{"v0", "v1", "other", "v2"} {
				require.NoError(t, store.Open(ctx, bucket))
			}

			w := NewWorker(testConfig(t, "v2", "/a"), store, newFakeOrigin(nil), history)
			deleted, err := w.Activate(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"v0", "v1", "other"}, deleted)

			keys, err := store.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"v2"}, keys)

			// Nothing left to delete
			deleted, err = w.Activate(ctx)
			require.NoError(t, err)
			assert.Empty(t, deleted)

			runs, err := history.Runs(ctx)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, schema.ActivateEvent, runs[0].Event)
			assert.Equal(t, 3, runs[0].Entries)
		})
	}
}

func TestActivateReportsDeleteFailure(t *testing.T) {
	store := new(iocache.MockCacheStore)
	store.On("Keys", mock.Anything).Return([]string{"v0", "v1", "v2"}, nil)
	store.On("Delete", mock.Anything, "v0").Return(true, nil)
	store.On("Delete", mock.Anything, "v1").Return(false, errors.New("locked"))

	w := NewWorker(testConfig(t, "v2", "/a"), store, newFakeOrigin(nil), nil)
	deleted, err := w.Activate(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete bucket v1")
	assert.Equal(t, []string{"v0"}, deleted)
	store.AssertExpectations(t)
}

func TestVersionBumpScenario(t *testing.T) {
	for name, backend := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store, _ := backend(t)
			origin := newFakeOrigin(map[string]string{"/a": "alpha", "/b": "bravo", "/c": "charlie"})

			v1 := NewWorker(testConfig(t, "v1", "/a", "/b"), store, origin, nil)
			_, err := v1.Install(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"/a": "alpha", "/b": "bravo"}, bucketBodies(t, store, "v1"))

			v2 := NewWorker(testConfig(t, "v2", "/a", "/c"), store, origin, nil)
			_, err = v2.Install(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"/a": "alpha", "/c": "charlie"}, bucketBodies(t, store, "v2"))

			deleted, err := v2.Activate(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"v1"}, deleted)

			keys, err := store.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"v2"}, keys)
			assert.Equal(t, map[string]string{"/a": "alpha", "/c": "charlie"}, bucketBodies(t, store, "v2"))

			// /b is gone from the cache and falls through to the network
			resp, err := v2.Fetch(ctx, schema.Request{URL: testOrigin + "/b"})
			require.NoError(t, err)
			assert.Equal(t, schema.NetworkSource, resp.Source)
		})
	}
}

func TestNewWorkerCopiesConfig(t *testing.T) {
	cfg := testConfig(t, "v1", "/a")
	w := NewWorker(cfg, iocache.NewMemoryStore(), newFakeOrigin(nil), nil)
	cfg.Version = "v9"
	cfg.Assets[0] = "/z"
	assert.Equal(t, "v1", w.Version())
}

func TestHistoryFailureDoesNotFailRun(t *testing.T) {
	history := new(iocache.MockHistoryStore)
	history.On("BeginRun", mock.Anything, schema.InstallEvent, "v1", mock.Anything).Return(int64(0), errors.New("history down"))

	w := NewWorker(testConfig(t, "v1", "/a"), iocache.NewMemoryStore(), newFakeOrigin(map[string]string{"/a": "alpha"}), history)
	n, err := w.Install(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	history.AssertExpectations(t)
	history.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
