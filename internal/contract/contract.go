// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"errors"

	"github.com/huangsam/precache/schema"
)

// ErrNotFound is returned when a bucket or entry does not exist.
var ErrNotFound = errors.New("not found")

// Fetcher defines the network side of a fetch.
// This allows the lifecycle logic to be tested without a real origin server.
type Fetcher interface {
	// Fetch performs an outbound request and returns the live response.
	// A non-2xx status is a response, not an error.
	Fetch(ctx context.Context, req schema.Request) (*schema.Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req schema.Request) (*schema.Response, error)

// Fetch calls f(ctx, req).
func (f FetcherFunc) Fetch(ctx context.Context, req schema.Request) (*schema.Response, error) {
	return f(ctx, req)
}
