package kernel

import (
	"log"
	"log/slog"
	"math/rand"

	"github.com/sarchlab/kernelsim/datarecording"
	"github.com/sarchlab/kernelsim/machine"
	"github.com/sarchlab/kernelsim/mem/vm"
	"github.com/sarchlab/kernelsim/mem/vm/replacement"
	"github.com/sarchlab/kernelsim/sched"
	"github.com/sarchlab/kernelsim/sim"
	"github.com/sarchlab/kernelsim/thread"
)

// DefaultPageFaultTicks is the default cost of servicing a page fault.
const DefaultPageFaultTicks sim.VTimeInTick = 10

// A Builder can build kernels
type Builder struct {
	numPhysPages   int
	pageSize       int
	replacement    replacement.Algorithm
	algorithm      sched.Algorithm
	seed           int64
	pageFaultTicks sim.VTimeInTick
	recorder       datarecording.DataRecorder
	workload       Workload
	logger         *slog.Logger
}

// MakeBuilder creates a new builder with the default machine geometry, no
// page replacement and FIFO scheduling.
func MakeBuilder() Builder {
	return Builder{
		numPhysPages:   machine.DefaultNumPhysPages,
		pageSize:       machine.DefaultPageSize,
		replacement:    replacement.None,
		algorithm:      sched.FIFO,
		seed:           1,
		pageFaultTicks: DefaultPageFaultTicks,
		workload:       DefaultWorkload(),
	}
}

// WithNumPhysPages sets the number of physical frames.
func (b Builder) WithNumPhysPages(n int) Builder {
	b.numPhysPages = n
	return b
}

// WithPageSize sets the size of pages and frames in bytes.
func (b Builder) WithPageSize(size int) Builder {
	b.pageSize = size
	return b
}

// WithReplacement sets the page replacement algorithm.
func (b Builder) WithReplacement(alg replacement.Algorithm) Builder {
	b.replacement = alg
	return b
}

// WithSchedulingAlgorithm sets the CPU scheduling algorithm.
func (b Builder) WithSchedulingAlgorithm(alg sched.Algorithm) Builder {
	b.algorithm = alg
	return b
}

// WithSeed sets the seed of the random replacement and of the workload.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithPageFaultTicks sets how long a page fault takes to service.
func (b Builder) WithPageFaultTicks(ticks sim.VTimeInTick) Builder {
	b.pageFaultTicks = ticks
	return b
}

// WithDataRecorder makes the kernel record thread statistics, dispatches
// and evictions.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// WithWorkload sets the synthetic program behavior.
func (b Builder) WithWorkload(w Workload) Builder {
	b.workload = w
	return b
}

// WithLogger sets the logger. The default logger is used otherwise.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a kernel.
func (b Builder) Build(name string) *Kernel {
	b.parametersMustBeValid()

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	k := &Kernel{
		name:           name,
		logger:         logger.With("component", name),
		engine:         sim.NewSerialEngine(),
		machine:        machine.NewMachine(b.numPhysPages, b.pageSize),
		table:          thread.NewTable(),
		recorder:       b.recorder,
		workload:       b.workload,
		pageFaultTicks: b.pageFaultTicks,
		rng:            rand.New(rand.NewSource(b.seed)),
		processes:      make(map[vm.PID]*process),
		idle:           true,
	}

	vf := replacement.NewVictimFinder(
		b.replacement, b.numPhysPages, b.seed)
	k.pager = vm.NewPager(name+".Pager", k.machine, vf, k.engine)
	k.scheduler = sched.NewScheduler(
		b.algorithm, k.table, k.machine, k.engine, nil)

	k.pager.AcceptHook(sim.HookFunc(k.onPaging))

	if b.recorder != nil {
		k.createTables()
	}

	return k
}

func (b Builder) parametersMustBeValid() {
	if b.numPhysPages <= 0 {
		log.Panicf("number of physical pages must be positive, got %d",
			b.numPhysPages)
	}

	if b.pageSize <= 0 || b.pageSize%4 != 0 {
		log.Panicf("page size must be a positive multiple of 4, got %d",
			b.pageSize)
	}

	if !b.algorithm.Valid() {
		log.Panicf("scheduling algorithm %d not supported", b.algorithm)
	}

	if b.replacement < replacement.None || b.replacement > replacement.Clock {
		log.Panicf("replacement algorithm %d not supported", b.replacement)
	}

	if b.workload.Instructions < 0 || b.workload.Forks < 0 ||
		b.workload.SharedBytes < 0 || b.workload.WriteEvery < 0 {
		log.Panicf("invalid workload %+v", b.workload)
	}
}
