package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEachItem runs fn for every item with at most workers in flight. The
// first error cancels the remaining items.
func forEachItem(ctx context.Context, items []string, workers int, fn func(ctx context.Context, i int, item string) error) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i, item)
		})
	}
	return g.Wait()
}
