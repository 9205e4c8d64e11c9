package pworker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/jemmacfen/pangraph/internal/pworker"
)

func TestRunProcessesEveryItem(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var sum int64
	err := pworker.Run(context.Background(), pworker.Options{Concurrency: 2}, items, func(_ context.Context, n int) error {
		atomic.AddInt64(&sum, int64(n))
		return nil
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(sum, int64(15)))
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	items := make([]int, 20)
	var cur, max int64
	err := pworker.Run(context.Background(), pworker.Options{Concurrency: 3}, items, func(_ context.Context, _ int) error {
		n := atomic.AddInt64(&cur, 1)
		for {
			m := atomic.LoadInt64(&max)
			if n <= m || atomic.CompareAndSwapInt64(&max, m, n) {
				break
			}
		}
		atomic.AddInt64(&cur, -1)
		return nil
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(max <= 3))
}

func TestRunReturnsFirstErrorAndAbortsRemaining(t *testing.T) {
	boom := errors.New("boom")
	items := []int{1, 2, 3}
	var started int64
	err := pworker.Run(context.Background(), pworker.Options{Concurrency: 1}, items, func(ctx context.Context, n int) error {
		atomic.AddInt64(&started, 1)
		if n == 2 {
			return boom
		}
		return ctx.Err()
	})
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsTrue(errors.Is(err, boom)))
}
