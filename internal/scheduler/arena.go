package scheduler

import "sync"

// slot holds the result of one item until it is flushed.
type slot[Out any] struct {
	ready bool
	out   Out
}

// arena is the reassembly buffer shared by the producer, the workers and
// the flusher. Item seq lives in slots[seq%window]; the producer never runs
// more than window items ahead of the flusher, so a slot is free by the time
// its next occupant is produced.
type arena[Out any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	slots []slot[Out]

	window  uint64
	next    uint64 // next seq the producer will produce
	flushed uint64 // number of items flushed

	ended  bool
	endSeq uint64

	failed    bool
	failedSeq uint64
	failErr   error
}

func newArena[Out any](window int) *arena[Out] {
	a := &arena[Out]{
		slots:  make([]slot[Out], window),
		window: uint64(window), //nolint: gosec
	}
	a.cond = sync.NewCond(&a.mu)

	return a
}

// acquire blocks until seq fits in the window. It returns false when the
// stream has failed and nothing more should be produced.
func (a *arena[Out]) acquire(seq uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.next = seq
	for seq-a.flushed >= a.window && !a.failed {
		a.cond.Wait()
	}

	return !a.failed
}

// end records that the input ended before seq.
func (a *arena[Out]) end(seq uint64) {
	a.mu.Lock()
	a.ended = true
	a.endSeq = seq
	a.mu.Unlock()
	a.cond.Broadcast()
}

// fail records a failure at seq. The lowest failing seq wins, so items
// below it still run and the flushed prefix is as long as possible.
func (a *arena[Out]) fail(seq uint64, err error) {
	a.mu.Lock()
	if !a.failed || seq < a.failedSeq {
		a.failed = true
		a.failedSeq = seq
		a.failErr = err
	}
	a.mu.Unlock()
	a.cond.Broadcast()
}

// interrupt fails the stream at the next seq the producer would produce.
func (a *arena[Out]) interrupt(err error) {
	a.mu.Lock()
	seq := a.next
	a.mu.Unlock()

	a.fail(seq, err)
}

// skip reports whether a worker should drop seq instead of running it.
func (a *arena[Out]) skip(seq uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.failed && seq > a.failedSeq
}

// complete stores the result of seq.
func (a *arena[Out]) complete(seq uint64, out Out) {
	a.mu.Lock()
	s := &a.slots[seq%a.window]
	s.out = out
	s.ready = true
	a.mu.Unlock()
	a.cond.Broadcast()
}

type waitResult int

const (
	waitReady waitResult = iota
	waitEnd
	waitFailed
)

// wait blocks until seq can be flushed, the stream ended at seq, or the
// stream failed at or before seq.
func (a *arena[Out]) wait(seq uint64) (Out, waitResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		s := &a.slots[seq%a.window]
		switch {
		case s.ready:
			return s.out, waitReady, nil
		case a.ended && seq == a.endSeq:
			var zero Out
			return zero, waitEnd, nil
		case a.failed && seq >= a.failedSeq:
			var zero Out
			return zero, waitFailed, a.failErr
		}
		a.cond.Wait()
	}
}

// release frees the slot of a flushed item and hands its window token back
// to the producer.
func (a *arena[Out]) release(seq uint64) {
	a.mu.Lock()
	var zero Out
	a.slots[seq%a.window] = slot[Out]{out: zero}
	a.flushed++
	a.mu.Unlock()
	a.cond.Broadcast()
}
