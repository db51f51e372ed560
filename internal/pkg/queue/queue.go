// Package queue admits conversion jobs to the compressor in arrival order with
// bounded concurrency.
package queue

import (
	"container/list"
	"context"
	"sync"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
)

type Stats struct {
	MaxConcurrency int
	Running        int
	Pending        int
	Completed      uint64
	Rejected       uint64
}

// ticket is a job's place in line. ready is closed once the job is admitted or rejected.
type ticket struct {
	ready    chan struct{}
	elem     *list.Element
	admitted bool
	err      error
}

// Queue serves jobs first-come-first-served with at most MaxConcurrency of them running.
// All bookkeeping lives under one mutex.
type Queue struct {
	maxConcurrency int
	maxPending     int

	mu        sync.Mutex
	pending   *list.List
	running   int
	closed    bool
	completed uint64
	rejected  uint64
	inflight  sync.WaitGroup
}

// New creates a queue. maxConcurrency below 1 means 1; maxPending <= 0 leaves the
// pending sequence unbounded.
func New(maxConcurrency, maxPending int) *Queue {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if maxPending < 0 {
		maxPending = 0
	}
	return &Queue{
		maxConcurrency: maxConcurrency,
		maxPending:     maxPending,
		pending:        list.New(),
	}
}

// Do waits for admission and runs fn. Once admitted fn runs to completion even if ctx
// is cancelled, so fn receives a context detached from the caller's cancellation.
// A job that is rejected or abandoned before admission never runs fn and never holds
// a slot.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := q.enqueue()
	if err != nil {
		return err
	}

	select {
	case <-t.ready:
	case <-ctx.Done():
		if q.abandon(t) {
			return ctx.Err()
		}
		// admitted or rejected concurrently with the cancellation
	}

	if t.err != nil {
		return t.err
	}
	// the client went away right as the job was admitted
	if err := ctx.Err(); err != nil {
		q.finish(false)
		return err
	}

	defer q.finish(true)
	return fn(context.WithoutCancel(ctx))
}

func (q *Queue) enqueue() (*ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.rejected++
		return nil, entity.ErrQueueClosed
	}
	if q.maxPending > 0 && q.running >= q.maxConcurrency && q.pending.Len() >= q.maxPending {
		q.rejected++
		return nil, entity.ErrQueueFull
	}

	t := &ticket{ready: make(chan struct{})}
	t.elem = q.pending.PushBack(t)
	q.schedule()
	return t, nil
}

// schedule admits jobs from the front of the line while slots are free. Callers hold mu.
func (q *Queue) schedule() {
	for q.running < q.maxConcurrency && q.pending.Len() > 0 {
		t := q.pending.Remove(q.pending.Front()).(*ticket)
		t.admitted = true
		q.running++
		q.inflight.Add(1)
		close(t.ready)
	}
}

// abandon takes a waiting ticket out of line. It returns false when the ticket was
// already admitted or rejected.
func (q *Queue) abandon(t *ticket) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t.admitted || t.err != nil {
		return false
	}
	q.pending.Remove(t.elem)
	return true
}

func (q *Queue) finish(ran bool) {
	q.mu.Lock()
	q.running--
	if ran {
		q.completed++
	}
	q.schedule()
	q.mu.Unlock()

	q.inflight.Done()
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		MaxConcurrency: q.maxConcurrency,
		Running:        q.running,
		Pending:        q.pending.Len(),
		Completed:      q.completed,
		Rejected:       q.rejected,
	}
}

// Close stops admissions, fails pending jobs with ErrQueueClosed and waits for running
// jobs until ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	for e := q.pending.Front(); e != nil; {
		next := e.Next()
		t := q.pending.Remove(e).(*ticket)
		t.err = entity.ErrQueueClosed
		q.rejected++
		close(t.ready)
		e = next
	}
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
