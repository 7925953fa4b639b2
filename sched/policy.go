package sched

import (
	"github.com/sarchlab/kernelsim/thread"
)

// A Policy keeps the threads that are ready to run and picks the next one.
type Policy interface {
	Enqueue(t *thread.Thread)

	// SelectNext removes and returns the next thread to run, or nil.
	SelectNext() *thread.Thread

	// Remove drops a thread that will never run again.
	Remove(t *thread.Thread)
	Len() int
}

func removeThread(threads []*thread.Thread, t *thread.Thread) []*thread.Thread {
	for i, q := range threads {
		if q == t {
			return append(threads[:i], threads[i+1:]...)
		}
	}

	return threads
}

// NewPolicy returns the policy an algorithm schedules with.
func NewPolicy(alg Algorithm, table *thread.Table) Policy {
	switch {
	case alg == SJF:
		return &SJFQueue{}
	case alg.IsUNIX():
		return &ScanPriority{table: table}
	}

	return &FIFOQueue{}
}

// FIFOQueue runs threads in the order they became ready.
type FIFOQueue struct {
	threads []*thread.Thread
}

// Enqueue appends to the tail.
func (q *FIFOQueue) Enqueue(t *thread.Thread) {
	q.threads = append(q.threads, t)
}

// SelectNext removes the head.
func (q *FIFOQueue) SelectNext() *thread.Thread {
	if len(q.threads) == 0 {
		return nil
	}

	t := q.threads[0]
	q.threads = q.threads[1:]

	return t
}

// Remove takes a thread out of the queue.
func (q *FIFOQueue) Remove(t *thread.Thread) {
	q.threads = removeThread(q.threads, t)
}

// Len returns the number of queued threads.
func (q *FIFOQueue) Len() int {
	return len(q.threads)
}

// SJFQueue keeps threads ordered by estimated CPU burst. Threads with equal
// estimates run in arrival order.
type SJFQueue struct {
	threads []*thread.Thread
}

// Enqueue inserts after every thread whose estimate is not larger.
func (q *SJFQueue) Enqueue(t *thread.Thread) {
	i := len(q.threads)
	for i > 0 && q.threads[i-1].EstimatedBurst > t.EstimatedBurst {
		i--
	}

	q.threads = append(q.threads, nil)
	copy(q.threads[i+1:], q.threads[i:])
	q.threads[i] = t
}

// SelectNext removes the thread with the shortest estimate.
func (q *SJFQueue) SelectNext() *thread.Thread {
	if len(q.threads) == 0 {
		return nil
	}

	t := q.threads[0]
	q.threads = q.threads[1:]

	return t
}

// Remove takes a thread out of the queue.
func (q *SJFQueue) Remove(t *thread.Thread) {
	q.threads = removeThread(q.threads, t)
}

// Len returns the number of queued threads.
func (q *SJFQueue) Len() int {
	return len(q.threads)
}

// ScanPriority keeps no queue. It scans the thread table for the live ready
// or running thread with the lowest priority value, breaking ties by the
// earliest wait start.
type ScanPriority struct {
	table *thread.Table
}

// Enqueue does nothing; the thread status is all the state needed.
func (s *ScanPriority) Enqueue(*thread.Thread) {}

// Remove does nothing; finished threads are no candidates.
func (s *ScanPriority) Remove(*thread.Thread) {}

// SelectNext returns the best candidate. The candidate stays in the table.
func (s *ScanPriority) SelectNext() *thread.Thread {
	var best *thread.Thread

	for _, t := range s.candidates() {
		if best == nil ||
			t.Priority < best.Priority ||
			(t.Priority == best.Priority && t.WaitStart < best.WaitStart) {
			best = t
		}
	}

	return best
}

// Len returns the number of candidates.
func (s *ScanPriority) Len() int {
	return len(s.candidates())
}

func (s *ScanPriority) candidates() []*thread.Thread {
	var res []*thread.Thread

	for _, t := range s.table.Live() {
		if t.Status == thread.Ready || t.Status == thread.Running {
			res = append(res, t)
		}
	}

	return res
}
