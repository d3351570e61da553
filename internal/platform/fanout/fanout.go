// Package fanout runs independent remote operations concurrently and joins
// them, reporting every failure rather than only the first.
package fanout

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Task is one independent operation. Name labels its error in the aggregate.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Go builds a Task.
func Go(name string, run func(ctx context.Context) error) Task {
	return Task{Name: name, Run: run}
}

// All runs every task concurrently and waits for all of them, even when some
// fail early. It returns nil when all succeed, otherwise a multierr aggregate
// with one "name: cause" entry per failed task in task order.
//
// Tasks share ctx; All never cancels it, so a failing task does not abort its
// siblings mid-write.
func All(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}
	errs := make([]error, len(tasks))

	var g errgroup.Group
	for i, t := range tasks {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%s: panic: %v", t.Name, r)
				}
			}()
			if err := t.Run(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", t.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}
