package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
)

// Registration holds the active worker and applies lifecycle events one at a time.
type Registration struct {
	events  sync.Mutex // serializes Update
	mu      sync.RWMutex
	active  *Worker
	network contract.Fetcher
}

// NewRegistration creates a registration with no active worker.
// Fetches go straight to network until a worker is activated.
func NewRegistration(network contract.Fetcher) *Registration {
	return &Registration{network: network}
}

// Active returns the active worker, or nil.
func (r *Registration) Active() *Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Update installs w and, once the install succeeds, activates it.
// When the install fails the previous worker keeps serving.
// When activation fails w is still the active worker and the error is returned.
func (r *Registration) Update(ctx context.Context, w *Worker) (schema.LifecycleResult, error) {
	r.events.Lock()
	defer r.events.Unlock()

	install := w.Dispatch(ctx, schema.InstallEvent)
	if err := install.Wait(ctx); err != nil {
		return install.Result(), err
	}

	r.mu.Lock()
	r.active = w
	r.mu.Unlock()

	activate := w.Dispatch(ctx, schema.ActivateEvent)
	err := activate.Wait(ctx)

	result := install.Result()
	result.Event = schema.UpdateEvent
	result.Deleted = activate.Result().Deleted
	result.Duration += activate.Result().Duration
	if err != nil {
		return result, fmt.Errorf("activate %s: %w", w.Version(), err)
	}
	return result, nil
}

// Fetch routes the request through the active worker.
func (r *Registration) Fetch(ctx context.Context, req schema.Request) (*schema.Response, error) {
	if w := r.Active(); w != nil {
		return w.Fetch(ctx, req)
	}
	return r.network.Fetch(ctx, req)
}
