package core

import (
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/huangsam/precache/internal/iocache"
	"github.com/huangsam/precache/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegistrationFetchWithoutWorker(t *testing.T) {
	origin := newFakeOrigin(map[string]string{"/a": "alpha"})
	reg := NewRegistration(origin)
	assert.Nil(t, reg.Active())

	resp, err := reg.Fetch(t.Context(), schema.Request{URL: testOrigin + "/a"})
	require.NoError(t, err)
	assert.Equal(t, schema.NetworkSource, resp.Source)
	assert.Equal(t, 1, origin.callCount(http.MethodGet, "/a"))
}

func TestRegistrationUpdate(t *testing.T) {
	for name, backend := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store, history := backend(t)
			origin := newFakeOrigin(map[string]string{"/a": "alpha", "/b": "bravo", "/c": "charlie"})
			reg := NewRegistration(origin)

			v1 := NewWorker(testConfig(t, "v1", "/a", "/b"), store, origin, history)
			result, err := reg.Update(ctx, v1)
			require.NoError(t, err)
			assert.Equal(t, 2, result.Entries)
			assert.Same(t, v1, reg.Active())

			resp, err := reg.Fetch(ctx, schema.Request{URL: testOrigin + "/b"})
			require.NoError(t, err)
			assert.Equal(t, schema.CacheSource, resp.Source)

			v2 := NewWorker(testConfig(t, "v2", "/a", "/c"), store, origin, history)
			result, err = reg.Update(ctx, v2)
			require.NoError(t, err)
			assert.Equal(t, schema.UpdateEvent, result.Event)
			assert.Equal(t, []string{"v1"}, result.Deleted)
			assert.Same(t, v2, reg.Active())

			keys, err := store.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"v2"}, keys)

			runs, err := history.Runs(ctx)
			require.NoError(t, err)
			require.Len(t, runs, 4)
			events := []schema.EventKind{runs[0].Event, runs[1].Event, runs[2].Event, runs[3].Event}
			assert.Equal(t, []schema.EventKind{schema.InstallEvent, schema.ActivateEvent, schema.InstallEvent, schema.ActivateEvent}, events)
		})
	}
}

func TestRegistrationFailedInstallKeepsOldWorker(t *testing.T) {
	ctx := t.Context()
	store := iocache.NewMemoryStore()
	origin := newFakeOrigin(map[string]string{"/a": "alpha"})
	reg := NewRegistration(origin)

	v1 := NewWorker(testConfig(t, "v1", "/a"), store, origin, nil)
	_, err := reg.Update(ctx, v1)
	require.NoError(t, err)

	v2 := NewWorker(testConfig(t, "v2", "/a", "/missing"), store, origin, nil)
	_, err = reg.Update(ctx, v2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInstallFailed)
	assert.Same(t, v1, reg.Active())

	// The old version still serves and was not purged
	resp, err := reg.Fetch(ctx, schema.Request{URL: testOrigin + "/a"})
	require.NoError(t, err)
	assert.Equal(t, "v1", resp.Bucket)
}

func TestRegistrationActivateFailure(t *testing.T) {
	store := new(iocache.MockCacheStore)
	store.On("Open", mock.Anything, "v2").Return(nil)
	store.On("PutAll", mock.Anything, "v2", mock.Anything).Return(nil)
	store.On("Keys", mock.Anything).Return([]string{"v1", "v2"}, nil)
	store.On("Delete", mock.Anything, "v1").Return(false, errors.New("locked"))

	origin := newFakeOrigin(map[string]string{"/a": "alpha"})
	reg := NewRegistration(origin)
	v2 := NewWorker(testConfig(t, "v2", "/a"), store, origin, nil)

	_, err := reg.Update(t.Context(), v2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activate v2")
	assert.Same(t, v2, reg.Active())
	store.AssertExpectations(t)
}

func TestRegistrationConcurrentUpdates(t *testing.T) {
	ctx := t.Context()
	store := iocache.NewMemoryStore()
	origin := newFakeOrigin(map[string]string{"/a": "alpha"})
	reg := NewRegistration(origin)

	var wg sync.WaitGroup
	for _, version := range []string{"v1", "v2", "v3", "v4"} {
		wg.Go(func() {
			_, err := reg.Update(ctx, NewWorker(testConfig(t, version, "/a"), store, origin, nil))
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	// The last update to run wins and purged every other bucket
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, reg.Active().Version(), keys[0])
}
