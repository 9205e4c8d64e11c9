// Package pworker runs an independent task per item from a fixed set with
// bounded concurrency, surfacing the first failure to the caller and
// aborting the remaining work. It is the core's only concurrency
// primitive: each task owns its item exclusively and tasks never share
// mutable state with siblings.
package pworker

import (
	"context"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Options configures a Run call.
type Options struct {
	// Concurrency bounds the number of tasks running at once. Zero or
	// negative means runtime.GOMAXPROCS(0).
	Concurrency int
	// Logger, if non-nil, receives one line per task failure before the
	// group aborts.
	Logger *log.Logger
}

// Run calls fn(item) for every item in items, running up to
// opts.Concurrency tasks concurrently. If any call returns an error, Run
// cancels the context passed to not-yet-started and in-flight calls (via
// ctx.Err, which fn should check on suspension points) and returns that
// error once every started call has returned. Run returns nil only if
// every call succeeded.
func Run[T any](ctx context.Context, opts Options, items []T, fn func(context.Context, T) error) error {
	n := opts.Concurrency
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)
	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := fn(gctx, item); err != nil {
				if opts.Logger != nil {
					opts.Logger.Printf("pworker: task failed: %v", err)
				}
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
