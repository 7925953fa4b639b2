// Package kernel drives the memory manager and the scheduler. It runs user
// programs on a single simulated CPU, one instruction per tick, on top of a
// serial discrete event engine.
package kernel

import (
	"log"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/sarchlab/kernelsim/datarecording"
	"github.com/sarchlab/kernelsim/machine"
	"github.com/sarchlab/kernelsim/mem/vm"
	"github.com/sarchlab/kernelsim/sched"
	"github.com/sarchlab/kernelsim/sim"
	"github.com/sarchlab/kernelsim/thread"
	"github.com/sarchlab/kernelsim/tracing"
)

// ForkCopyTicks is how long a parent sleeps after a fork that copied pages.
const ForkCopyTicks sim.VTimeInTick = 1000

// Kinds of the tasks the kernel traces, and the step added to a thread task
// each time it gets the CPU.
const (
	ThreadTaskKind    = "thread"
	PageFaultTaskKind = "page_fault"
	DispatchStep      = "dispatched"
)

// Kernel owns the machine and everything that manages it.
type Kernel struct {
	sim.HookableBase

	name   string
	logger *slog.Logger

	engine    *sim.SerialEngine
	machine   *machine.Machine
	pager     *vm.Pager
	scheduler *sched.Scheduler
	table     *thread.Table
	recorder  datarecording.DataRecorder

	workload       Workload
	pageFaultTicks sim.VTimeInTick
	rng            *rand.Rand

	// stateLock is held while an event is handled, so that observers from
	// other goroutines see the kernel between two events.
	stateLock  sync.Mutex
	processes  map[vm.PID]*process
	idle       bool
	sliceStart sim.VTimeInTick
	planned    uint64
	executed   uint64
	started    bool
}

type tickEvent struct {
	*sim.EventBase
	thread *thread.Thread
}

type wakeEvent struct {
	*sim.EventBase
	thread *thread.Thread
}

type startEvent struct {
	*sim.EventBase
}

// Name returns the name of the kernel.
func (k *Kernel) Name() string {
	return k.name
}

// Engine returns the event engine of the kernel.
func (k *Kernel) Engine() *sim.SerialEngine {
	return k.engine
}

// Machine returns the simulated machine.
func (k *Kernel) Machine() *machine.Machine {
	return k.machine
}

// Pager returns the physical memory manager.
func (k *Kernel) Pager() *vm.Pager {
	return k.pager
}

// Scheduler returns the CPU scheduler.
func (k *Kernel) Scheduler() *sched.Scheduler {
	return k.scheduler
}

// Threads returns the thread table.
func (k *Kernel) Threads() *thread.Table {
	return k.table
}

// CurrentTime returns the current tick.
func (k *Kernel) CurrentTime() sim.VTimeInTick {
	return k.engine.CurrentTime()
}

// Run executes the loaded programs until every thread has exited.
func (k *Kernel) Run() error {
	if k.started {
		log.Panicf("%s: kernel already ran", k.name)
	}

	k.started = true
	k.engine.Schedule(startEvent{
		EventBase: sim.NewEventBase(k.engine.CurrentTime(), k),
	})

	err := k.engine.Run()
	if err != nil {
		return err
	}

	k.engine.Finished()

	if k.recorder != nil {
		k.recorder.Flush()
	}

	return nil
}

// Handle processes the kernel events.
func (k *Kernel) Handle(e sim.Event) error {
	k.stateLock.Lock()
	defer k.stateLock.Unlock()

	switch e := e.(type) {
	case startEvent:
		k.idle = true
		k.dispatch()
	case tickEvent:
		k.tick(e.thread)
	case wakeEvent:
		k.wake(e.thread)
	default:
		log.Panicf("%s: cannot handle event of type %T", k.name, e)
	}

	return nil
}

// dispatch gives the CPU to the next ready thread. The CPU stays idle if no
// thread is ready.
func (k *Kernel) dispatch() {
	next := k.scheduler.SelectNext()
	if next == nil {
		k.idle = true
		return
	}

	now := k.engine.CurrentTime()
	waited := now - next.WaitStart

	k.idle = false
	k.scheduler.Schedule(next)
	k.sliceStart = now

	k.recordDispatch(next, waited)

	p := k.processes[next.PID]
	tracing.AddTaskStep(p.taskID, k, DispatchStep)

	k.engine.Schedule(tickEvent{
		EventBase: sim.NewEventBase(now, k),
		thread:    next,
	})
}

func (k *Kernel) tick(t *thread.Thread) {
	if k.scheduler.Current() != t || t.Status != thread.Running {
		log.Panicf("%s: tick for %s, which is not running", k.name, t)
	}

	p := k.processes[t.PID]
	now := k.engine.CurrentTime()

	k.closeFaults(p)

	if p.executed >= p.total {
		k.Exit(t, 0)
		k.dispatch()

		return
	}

	if p.forksLeft > 0 && p.executed >= p.nextForkAt(k.workload.Forks) {
		p.forksLeft--

		_, copied := k.Fork(t)
		if copied > 0 {
			k.sleep(t, ForkCopyTicks)
			k.dispatch()

			return
		}
	}

	if p.burstLeft == 0 {
		p.burstLeft = k.burstLength()
		k.sleep(t, k.workload.IOTicks)
		k.dispatch()

		return
	}

	quantum := k.scheduler.Algorithm().Quantum()
	if quantum > 0 && now-k.sliceStart >= quantum {
		k.Yield()
		return
	}

	faults := k.execute(p)
	cost := 1 + sim.VTimeInTick(faults)*k.pageFaultTicks

	k.engine.Schedule(tickEvent{
		EventBase: sim.NewEventBase(now+cost, k),
		thread:    t,
	})
}

// execute runs one instruction of the program and returns the number of
// page faults it took.
func (k *Kernel) execute(p *process) int {
	m := k.machine

	pc := uint32(m.ReadRegister(machine.PCReg))
	faults := k.mustAccess(p, pc, false)

	next := uint32(m.ReadRegister(machine.NextPCReg))
	if k.rng.Intn(16) == 0 {
		next = k.randomAddress(p.code)
	}

	if next < p.code.low || next >= p.code.high {
		next = p.code.low
	}

	m.WriteRegister(machine.PrevPCReg, int32(pc))
	m.WriteRegister(machine.PCReg, int32(next))
	m.WriteRegister(machine.NextPCReg, int32(next+4))

	p.executed++
	p.burstLeft--
	k.executed++

	every := k.workload.WriteEvery
	if every > 0 && p.executed%every == 0 {
		regions := p.writableRegions()
		if len(regions) > 0 {
			r := regions[k.rng.Intn(len(regions))]
			addr := k.randomAddress(r)
			faults += k.mustAccess(p, addr, true)

			err := m.WriteMem(addr, 4, int32(p.executed))
			if err != nil {
				log.Panicf("%s: storing to 0x%x: %v", k.name, addr, err)
			}
		}
	}

	return faults
}

func (k *Kernel) mustAccess(p *process, vaddr uint32, write bool) int {
	faults, err := k.Access(p.thread, vaddr, write)
	if err != nil {
		log.Panicf("%s: %s accessing 0x%x: %v", k.name, p.thread, vaddr, err)
	}

	for i := 0; i < faults; i++ {
		id := sim.GetIDGenerator().Generate()
		tracing.StartTask(
			id, p.taskID, k, PageFaultTaskKind, "demand_paging", vaddr)
		p.openFaults = append(p.openFaults, id)
	}

	return faults
}

func (k *Kernel) closeFaults(p *process) {
	for _, id := range p.openFaults {
		tracing.EndTask(id, k)
	}

	p.openFaults = p.openFaults[:0]
}

// randomAddress returns a word-aligned address inside a region.
func (k *Kernel) randomAddress(r region) uint32 {
	words := r.words()
	if words == 0 {
		return r.alignedLow()
	}

	return r.alignedLow() + uint32(k.rng.Intn(words))*4
}

func (k *Kernel) burstLength() int {
	mean := k.workload.MeanBurst
	if mean <= 0 {
		return -1
	}

	return 1 + k.rng.Intn(2*mean)
}

// sleep blocks a thread for a number of ticks.
func (k *Kernel) sleep(t *thread.Thread, ticks sim.VTimeInTick) {
	k.scheduler.EndBurst(t)
	t.Status = thread.Blocked

	k.engine.Schedule(wakeEvent{
		EventBase: sim.NewEventBase(k.engine.CurrentTime()+ticks, k),
		thread:    t,
	})
}

func (k *Kernel) wake(t *thread.Thread) {
	if t.Status != thread.Blocked {
		return
	}

	k.scheduler.MoveToReady(t)

	if k.idle {
		k.dispatch()
	}
}
