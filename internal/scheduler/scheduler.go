// Package scheduler runs an ordered, bounded, parallel pipeline.
//
// Items are produced sequentially, processed by a fixed pool of workers in
// any order, and flushed strictly in production order. At most
// Workers+Backlog items are in flight at any time: the producer takes a
// window token before producing an item and the token is returned only
// after that item is flushed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/zxc/errs"
)

// Config controls the size of the pipeline.
type Config struct {
	// Op labels errors returned by Run.
	Op errs.Op
	// Workers is the number of worker goroutines; zero means GOMAXPROCS.
	Workers int
	// Backlog is the number of completed items that may wait for the
	// flusher in addition to one per worker; zero means Workers.
	Backlog int
}

// Window returns the effective worker count and window size.
func (c Config) Window() (workers, window int, err error) {
	workers = c.Workers
	if workers < 0 {
		return 0, 0, fmt.Errorf("%w: %d", errs.ErrInvalidThreads, workers)
	}
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	backlog := c.Backlog
	if backlog < 0 {
		return 0, 0, fmt.Errorf("%w: %d", errs.ErrInvalidBacklog, backlog)
	}
	if backlog == 0 {
		backlog = workers
	}

	return workers, workers + backlog, nil
}

// Stats describes a finished run.
type Stats struct {
	Workers int
	Window  int
	// Items is the number of items flushed.
	Items uint64
	// Flushed is the total reported by the flush function.
	Flushed int64
}

// ProduceFunc returns item seq, or io.EOF when there are no more items.
// It is called from a single goroutine with strictly increasing seq.
type ProduceFunc[In any] func(ctx context.Context, seq uint64) (In, error)

// WorkFunc processes one item. It is called concurrently from the workers.
type WorkFunc[In, Out any] func(ctx context.Context, seq uint64, in In) (Out, error)

// FlushFunc consumes the result of item seq and returns how many bytes it
// wrote, including on failure. It is called in seq order from the goroutine
// that called Run.
type FlushFunc[Out any] func(seq uint64, out Out) (int64, error)

type job[In any] struct {
	seq uint64
	in  In
}

// Run drives produce, work and flush until the producer reports io.EOF or
// any stage fails.
//
// On failure Run stops producing, lets the workers finish items below the
// failing one so the longest valid prefix is flushed, waits for every
// goroutine to exit and returns a *errs.StreamError naming the first item
// that was not flushed. Cancelling ctx fails the run with the context error.
func Run[In, Out any](
	ctx context.Context,
	cfg Config,
	produce ProduceFunc[In],
	work WorkFunc[In, Out],
	flush FlushFunc[Out],
) (Stats, error) {
	workers, window, err := cfg.Window()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Workers: workers, Window: window}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	a := newArena[Out](window)
	stop := context.AfterFunc(ctx, func() {
		a.interrupt(context.Cause(ctx))
	})
	defer stop()

	jobs := make(chan job[In], window)

	var g errgroup.Group
	g.Go(func() error {
		defer close(jobs)

		for seq := uint64(0); ; seq++ {
			if !a.acquire(seq) {
				return nil
			}
			if err := ctx.Err(); err != nil {
				a.fail(seq, context.Cause(ctx))
				return nil
			}

			in, err := produce(ctx, seq)
			if errors.Is(err, io.EOF) {
				a.end(seq)
				return nil
			}
			if err != nil {
				a.fail(seq, err)
				return nil
			}
			jobs <- job[In]{seq: seq, in: in}
		}
	})

	for range workers {
		g.Go(func() error {
			for j := range jobs {
				if a.skip(j.seq) {
					continue
				}
				out, err := work(ctx, j.seq, j.in)
				if err != nil {
					a.fail(j.seq, err)
					continue
				}
				a.complete(j.seq, out)
			}

			return nil
		})
	}

	runErr := func() error {
		for seq := uint64(0); ; seq++ {
			out, res, err := a.wait(seq)
			switch res {
			case waitEnd:
				return nil
			case waitFailed:
				return &errs.StreamError{Op: cfg.Op, Seq: seq, Offset: stats.Flushed, Err: err}
			}

			n, err := flush(seq, out)
			stats.Flushed += n
			if err != nil {
				a.fail(seq, err)
				return &errs.StreamError{Op: cfg.Op, Seq: seq, Offset: stats.Flushed, Err: err}
			}
			a.release(seq)
			stats.Items++
		}
	}()

	if runErr != nil {
		// Wake anything blocked on work that honours the context.
		cancel(runErr)
	}
	_ = g.Wait()

	return stats, runErr
}
