// Package core has the offline cache lifecycle: install, fetch and activate.
package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
)

// ErrInstallFailed wraps every failure that aborts an install.
var ErrInstallFailed = errors.New("install failed")

// Worker runs the lifecycle for one cache version and asset manifest.
type Worker struct {
	cfg     *contract.Config
	store   contract.CacheStore
	network contract.Fetcher
	history contract.HistoryStore // optional
}

// NewWorker creates a worker for the given configuration.
// The configuration is copied, so later changes by the caller are not observed.
// history may be nil to skip lifecycle recording.
func NewWorker(cfg *contract.Config, store contract.CacheStore, network contract.Fetcher, history contract.HistoryStore) *Worker {
	return &Worker{
		cfg:     cfg.Clone(),
		store:   store,
		network: network,
		history: history,
	}
}

// Version returns the cache version this worker installs and keeps.
func (w *Worker) Version() string {
	return w.cfg.Version
}

// Install fetches every manifest asset and stores the responses in the bucket named by the version.
// Nothing is written unless every asset returns a 2xx response.
// It returns the number of stored entries.
func (w *Worker) Install(ctx context.Context) (int, error) {
	var stored int
	err := w.record(ctx, schema.InstallEvent, func() (int, error) {
		n, err := w.install(ctx)
		stored = n
		return n, err
	})
	return stored, err
}

func (w *Worker) install(ctx context.Context) (int, error) {
	urls, err := w.cfg.ResolveAssets()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	if err := w.store.Open(ctx, w.cfg.Version); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	responses, err := w.fetchAssets(ctx, urls)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	now := time.Now()
	entries := make([]schema.Entry, 0, len(responses))
	for _, resp := range responses {
		entries = append(entries, schema.Entry{
			Key:      schema.RequestKey(http.MethodGet, resp.URL),
			Response: *resp,
			StoredAt: now,
		})
	}

	if err := w.store.PutAll(ctx, w.cfg.Version, entries); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}
	return len(entries), nil
}

// fetchAssets downloads all urls over a bounded worker pool.
// The first failure cancels the remaining fetches.
func (w *Worker) fetchAssets(ctx context.Context, urls []string) ([]*schema.Response, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	jobCh := make(chan int, len(urls))
	responses := make([]*schema.Response, len(urls))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel(err)
		})
	}

	// Start worker pool
	for range min(max(w.cfg.Workers, 1), len(urls)) {
		wg.Go(func() {
			for idx := range jobCh {
				if ctx.Err() != nil {
					continue // Drain after cancellation
				}
				resp, err := w.network.Fetch(ctx, schema.Request{Method: http.MethodGet, URL: urls[idx]})
				if err != nil {
					fail(fmt.Errorf("asset %s: %w", urls[idx], err))
					continue
				}
				if !resp.OK() {
					fail(fmt.Errorf("asset %s: unexpected status %d", urls[idx], resp.StatusCode))
					continue
				}
				// Each goroutine writes to a unique index, which is safe
				resp.URL = urls[idx]
				responses[idx] = resp
			}
		})
	}

	for i := range urls {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	return responses, nil
}

// Fetch answers a request from any bucket, oldest first, and falls back to the network on a miss.
// Network responses and errors are returned unmodified.
func (w *Worker) Fetch(ctx context.Context, req schema.Request) (*schema.Response, error) {
	if schema.NormalizeMethod(req.Method) == http.MethodGet {
		resp, err := w.store.Match(ctx, req.Key())
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, contract.ErrNotFound) {
			return nil, err
		}
	}
	return w.network.Fetch(ctx, req)
}

// Activate deletes every bucket whose name is not the current version.
// Deletions run concurrently and the first failure is returned after all finish.
// It returns the names of the deleted buckets.
func (w *Worker) Activate(ctx context.Context) ([]string, error) {
	var deleted []string
	err := w.record(ctx, schema.ActivateEvent, func() (int, error) {
		names, err := w.activate(ctx)
		deleted = names
		return len(names), err
	})
	return deleted, err
}

func (w *Worker) activate(ctx context.Context) ([]string, error) {
	names, err := w.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	stale := schema.StaleBuckets(names, w.cfg.Whitelist())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		removed  = make([]bool, len(stale))
	)
	for i, name := range stale {
		wg.Go(func() {
			ok, err := w.store.Delete(ctx, name)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("delete bucket %s: %w", name, err)
				}
				mu.Unlock()
				return
			}
			removed[i] = ok
		})
	}
	wg.Wait()

	var deleted []string
	for i, name := range stale {
		if removed[i] {
			deleted = append(deleted, name)
		}
	}
	return deleted, firstErr
}

// record wraps a lifecycle run with history bookkeeping when a history store is set.
// History failures are reported but never change the outcome of the run.
func (w *Worker) record(ctx context.Context, event schema.EventKind, run func() (int, error)) error {
	if w.history == nil {
		_, err := run()
		return err
	}

	runID, herr := w.history.BeginRun(ctx, event, w.cfg.Version, time.Now())
	if herr != nil {
		contract.LogWarn(fmt.Sprintf("Cannot record %s run", event), herr)
	}

	entries, err := run()

	if herr == nil {
		outcome := schema.SuccessOutcome
		if err != nil {
			outcome = schema.FailedOutcome
		}
		// Record the outcome even when ctx was canceled
		if herr := w.history.EndRun(context.WithoutCancel(ctx), runID, time.Now(), outcome, entries, err); herr != nil {
			contract.LogWarn(fmt.Sprintf("Cannot finish %s run %d", event, runID), herr)
		}
	}
	return err
}
