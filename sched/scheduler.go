// Package sched decides which thread runs on the CPU and performs the
// bookkeeping of every context switch.
package sched

import (
	"log"

	"github.com/sarchlab/kernelsim/machine"
	"github.com/sarchlab/kernelsim/sim"
	"github.com/sarchlab/kernelsim/thread"
)

// A Switcher performs the low level switch from one thread to another. The
// old thread is nil when the CPU was idle.
type Switcher interface {
	Switch(old, next *thread.Thread)
}

// Stats summarizes the scheduling activity.
type Stats struct {
	Dispatches      uint64          `json:"dispatches"`
	TotalWait       sim.VTimeInTick `json:"total_wait"`
	CPUBusy         sim.VTimeInTick `json:"cpu_busy"`
	Bursts          uint64          `json:"bursts"`
	MinBurst        sim.VTimeInTick `json:"min_burst"`
	MaxBurst        sim.VTimeInTick `json:"max_burst"`
	EstimationError sim.VTimeInTick `json:"estimation_error"`
}

// Scheduler owns the ready threads and dispatches them.
type Scheduler struct {
	algorithm  Algorithm
	policy     Policy
	table      *thread.Table
	machine    *machine.Machine
	timeTeller sim.TimeTeller
	switcher   Switcher

	current       *thread.Thread
	toBeDestroyed []*thread.Thread
	stats         Stats
}

// NewScheduler creates a scheduler. The switcher may be nil.
func NewScheduler(
	alg Algorithm,
	table *thread.Table,
	m *machine.Machine,
	timeTeller sim.TimeTeller,
	switcher Switcher,
) *Scheduler {
	if !alg.Valid() {
		log.Panicf("scheduling algorithm %d not supported", alg)
	}

	return &Scheduler{
		algorithm:  alg,
		policy:     NewPolicy(alg, table),
		table:      table,
		machine:    m,
		timeTeller: timeTeller,
		switcher:   switcher,
	}
}

// Algorithm returns the scheduling algorithm.
func (s *Scheduler) Algorithm() Algorithm {
	return s.algorithm
}

// Current returns the thread that owns the CPU, or nil before the first
// dispatch.
func (s *Scheduler) Current() *thread.Thread {
	return s.current
}

// NumReady returns the number of threads that could be selected.
func (s *Scheduler) NumReady() int {
	return s.policy.Len()
}

// Stats returns the accumulated statistics.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// MoveToReady marks a thread ready and hands it to the policy.
func (s *Scheduler) MoveToReady(t *thread.Thread) {
	if t.Status == thread.Ready || t.Status == thread.Finished {
		log.Panicf("cannot make thread %s ready, it is %s", t, t.Status)
	}

	t.WaitStart = s.timeTeller.CurrentTime()
	t.Status = thread.Ready
	s.policy.Enqueue(t)
}

// SelectNext returns the next thread to run, or nil if none can run.
func (s *Scheduler) SelectNext() *thread.Thread {
	return s.policy.SelectNext()
}

// Schedule dispatches the CPU to next. The outgoing thread must already be
// out of the running state, unless it is next itself.
func (s *Scheduler) Schedule(next *thread.Thread) {
	old := s.current

	if old != nil {
		if old.Space != nil {
			old.SaveUserState(s.machine)
			old.Space.SaveContext()
		}

		old.CheckOverflow()
	}

	s.current = next
	now := s.timeTeller.CurrentTime()

	if next.Status == thread.Ready {
		wait := now - next.WaitStart
		next.TotalWait += wait
		s.stats.TotalWait += wait
	}

	next.BurstStart = now
	next.Status = thread.Running
	s.stats.Dispatches++

	if s.switcher != nil {
		s.switcher.Switch(old, next)
	}

	s.Tail()
}

// Tail finishes a switch on the incoming side: it reaps the threads that
// finished before the switch and restores the user state of the current
// thread. A freshly forked thread runs it directly.
func (s *Scheduler) Tail() {
	for _, t := range s.toBeDestroyed {
		s.table.Remove(t.PID)
	}

	s.toBeDestroyed = s.toBeDestroyed[:0]

	cur := s.current
	if cur != nil && cur.Space != nil {
		cur.RestoreUserState(s.machine)
		cur.Space.RestoreContext()
	}
}

// Finish marks a thread for destruction once the CPU has switched away
// from it. A finished thread is never selected again.
func (s *Scheduler) Finish(t *thread.Thread) {
	t.Status = thread.Finished
	s.policy.Remove(t)
	s.toBeDestroyed = append(s.toBeDestroyed, t)
}

// EndBurst accounts for the CPU burst a thread just ended, by blocking,
// yielding or exiting.
func (s *Scheduler) EndBurst(t *thread.Thread) {
	now := s.timeTeller.CurrentTime()
	burst := now - t.BurstStart

	if burst == 0 {
		return
	}

	t.CPUTime += burst
	t.NumBursts++
	s.recordBurst(burst)

	if s.algorithm == SJF {
		s.stats.EstimationError += absDiff(t.EstimatedBurst, burst)
		t.EstimatedBurst = (burst + t.EstimatedBurst) / 2
	}

	if s.algorithm.IsUNIX() {
		t.CPUCount += int(burst)
		s.age()
	}

	t.BurstStart = now
}

func (s *Scheduler) recordBurst(burst sim.VTimeInTick) {
	s.stats.CPUBusy += burst
	s.stats.Bursts++

	if s.stats.MinBurst == 0 || burst < s.stats.MinBurst {
		s.stats.MinBurst = burst
	}

	if burst > s.stats.MaxBurst {
		s.stats.MaxBurst = burst
	}
}

// age halves the recent CPU usage of every live thread and recomputes its
// priority from it.
func (s *Scheduler) age() {
	for _, t := range s.table.Live() {
		t.CPUCount /= 2
		t.Priority = t.BasePriority + t.CPUCount/2
	}
}

func absDiff(a, b sim.VTimeInTick) sim.VTimeInTick {
	if a > b {
		return a - b
	}

	return b - a
}
