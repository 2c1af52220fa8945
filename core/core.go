package core

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/internal/network"
	"github.com/huangsam/precache/internal/outwriter"
	"github.com/huangsam/precache/schema"
)

// ExecutorFunc defines the function signature for executing lifecycle commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// NewManagedWorker creates a worker backed by the manager stores and a live HTTP fetcher.
func NewManagedWorker(cfg *contract.Config, mgr contract.CacheManager, fetcher contract.Fetcher) *Worker {
	return NewWorker(cfg, mgr.GetCacheStore(), fetcher, mgr.GetHistoryStore())
}

// ExecuteInstall installs the configured version and prints a summary.
func ExecuteInstall(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	w := NewManagedWorker(cfg, mgr, network.NewHTTPFetcher(cfg.FetchTimeout))
	c := w.Dispatch(ctx, schema.InstallEvent)
	if err := c.Wait(ctx); err != nil {
		return err
	}
	return outwriter.PrintLifecycle(c.Result(), cfg)
}

// ExecuteActivate removes every bucket except the configured version and prints a summary.
func ExecuteActivate(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	w := NewManagedWorker(cfg, mgr, network.NewHTTPFetcher(cfg.FetchTimeout))
	c := w.Dispatch(ctx, schema.ActivateEvent)
	if err := c.Wait(ctx); err != nil {
		return err
	}
	return outwriter.PrintLifecycle(c.Result(), cfg)
}

// ExecuteUpdate installs then activates the configured version through a registration.
func ExecuteUpdate(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	fetcher := network.NewHTTPFetcher(cfg.FetchTimeout)
	reg := NewRegistration(fetcher)
	result, err := reg.Update(ctx, NewManagedWorker(cfg, mgr, fetcher))
	if err != nil {
		return err
	}
	return outwriter.PrintLifecycle(result, cfg)
}

// ExecuteFetch answers one request cache-first and prints where the response came from.
// The target is a path resolved against the origin or an absolute URL.
// When bodyFile is set the response body is written there.
func ExecuteFetch(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, method, target, bodyFile string) error {
	start := time.Now()
	u, err := schema.ResolveURL(cfg.Origin, target)
	if err != nil {
		return err
	}

	w := NewManagedWorker(cfg, mgr, network.NewHTTPFetcher(cfg.FetchTimeout))
	resp, err := w.Fetch(ctx, schema.Request{Method: method, URL: u})
	if err != nil {
		return err
	}
	if resp.URL == "" {
		resp.URL = u
	}

	if bodyFile != "" {
		if err := os.WriteFile(bodyFile, resp.Body, 0o644); err != nil {
			return fmt.Errorf("failed to write body to %s: %w", bodyFile, err)
		}
	}
	return outwriter.PrintFetch(resp, cfg, time.Since(start))
}

// ListBuckets summarizes every bucket and marks the one named by the configured version.
func ListBuckets(ctx context.Context, cfg *contract.Config, store contract.CacheStore) ([]schema.BucketInfo, error) {
	buckets, err := store.Buckets(ctx)
	if err != nil {
		return nil, err
	}
	for i := range buckets {
		buckets[i].IsCurrent = buckets[i].Name == cfg.Version
	}
	return buckets, nil
}
