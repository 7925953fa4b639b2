package kernel

import (
	"github.com/sarchlab/kernelsim/sim"
	"github.com/sarchlab/kernelsim/thread"
)

// A Workload describes the synthetic user programs the kernel runs in place
// of a MIPS interpreter. Each program fetches its instructions from its code
// image, writes to its data, stack and shared pages, and sleeps on I/O
// between CPU bursts.
type Workload struct {
	// Instructions is the number of instructions a launched program runs
	// before it exits.
	Instructions int

	// MeanBurst is the mean number of instructions between two I/O sleeps.
	MeanBurst int

	// IOTicks is how long an I/O sleep lasts.
	IOTicks sim.VTimeInTick

	// WriteEvery makes every n-th instruction also store a word. Zero
	// disables stores.
	WriteEvery int

	// Forks is the number of children a launched program forks. Children
	// never fork.
	Forks int

	// SharedBytes is the size of the shared region each launched program
	// allocates at start.
	SharedBytes int
}

// DefaultWorkload returns the workload used when none is given.
func DefaultWorkload() Workload {
	return Workload{
		Instructions: 2000,
		MeanBurst:    100,
		IOTicks:      200,
		WriteEvery:   4,
	}
}

// region is a half-open range of virtual addresses.
type region struct {
	low, high uint32
}

func (r region) empty() bool {
	return r.words() == 0
}

// words returns the number of aligned words that fit in the region.
func (r region) words() int {
	low := r.alignedLow()
	if r.high <= low {
		return 0
	}

	return int(r.high-low) / 4
}

func (r region) alignedLow() uint32 {
	return (r.low + 3) &^ 3
}

// process is the state of the synthetic program run by one thread.
type process struct {
	thread *thread.Thread
	taskID string

	total     int
	executed  int
	burstLeft int
	forksLeft int

	code   region
	data   region
	stack  region
	shared region

	openFaults []string
}

func (p *process) remaining() int {
	return p.total - p.executed
}

// nextForkAt returns the instruction count at which the next fork happens.
func (p *process) nextForkAt(forks int) int {
	if forks == 0 {
		return p.total
	}

	done := forks - p.forksLeft

	return p.total * (done + 1) / (forks + 1)
}

func (p *process) writableRegions() []region {
	regions := make([]region, 0, 3)

	for _, r := range []region{p.data, p.stack, p.shared} {
		if !r.empty() {
			regions = append(regions, r)
		}
	}

	return regions
}
