package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/precache/schema"
)

// Completion is the result of a lifecycle event that finishes in the background.
type Completion struct {
	done   chan struct{}
	result schema.LifecycleResult
	err    error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// finish must be called exactly once.
func (c *Completion) finish(result schema.LifecycleResult, err error) {
	c.result = result
	c.err = err
	close(c.done)
}

// Done is closed when the event has finished.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the outcome of the event, or nil while it is still running.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Result returns what the event did. It is the zero value while the event is running.
func (c *Completion) Result() schema.LifecycleResult {
	select {
	case <-c.done:
		return c.result
	default:
		return schema.LifecycleResult{}
	}
}

// Wait blocks until the event finishes or ctx is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch runs an install or activate event in the background.
// The event keeps running under ctx even if nobody waits for it.
func (w *Worker) Dispatch(ctx context.Context, event schema.EventKind) *Completion {
	c := newCompletion()
	result := schema.LifecycleResult{Event: event, Version: w.Version()}

	var run func() error
	switch event {
	case schema.InstallEvent:
		run = func() (err error) {
			result.Entries, err = w.Install(ctx)
			return err
		}
	case schema.ActivateEvent:
		run = func() (err error) {
			result.Deleted, err = w.Activate(ctx)
			return err
		}
	default:
		c.finish(result, fmt.Errorf("event %q cannot be dispatched", event))
		return c
	}

	go func() {
		start := time.Now()
		err := run()
		result.Duration = time.Since(start)
		c.finish(result, err)
	}()
	return c
}
