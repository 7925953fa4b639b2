package kernel

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/sarchlab/kernelsim/machine"
	"github.com/sarchlab/kernelsim/mem/vm"
	"github.com/sarchlab/kernelsim/sim"
	"github.com/sarchlab/kernelsim/thread"
	"github.com/sarchlab/kernelsim/tracing"
)

// Launch creates a process running the given executable and makes it ready.
// The base priority of the thread is BasePriorityOffset plus priority.
func (k *Kernel) Launch(
	name string,
	exe io.ReaderAt,
	priority int,
) (*thread.Thread, error) {
	t := k.table.NewThread(name)

	as, err := vm.NewAddressSpace(k.pager, t.PID, exe)
	if err != nil {
		k.table.Remove(t.PID)
		return nil, fmt.Errorf("launching %s: %w", name, err)
	}

	t.Space = as
	t.SetBasePriority(BasePriorityOffset + priority)
	t.StartTime = k.engine.CurrentTime()

	k.initUserState(t, as)

	p := k.newProcess(t, as)
	p.total = k.workload.Instructions
	p.forksLeft = k.workload.Forks
	k.processes[t.PID] = p
	k.planned += uint64(p.total)

	tracing.StartTask(p.taskID, "", k, ThreadTaskKind, name, nil)

	if k.workload.SharedBytes > 0 {
		k.ShmAllocate(t, k.workload.SharedBytes)
	}

	k.scheduler.MoveToReady(t)

	k.logger.Info("launched",
		"pid", t.PID, "name", name, "pages", as.NumPages(),
		"base_priority", t.BasePriority)

	return t, nil
}

// initUserState sets the saved registers of a new thread to the start of
// its program, leaving the machine registers as they were.
func (k *Kernel) initUserState(t *thread.Thread, as *vm.AddressSpace) {
	saved := k.machine.Registers()
	as.InitRegisters()
	t.SaveUserState(k.machine)
	k.machine.SetRegisters(saved)
}

func (k *Kernel) newProcess(t *thread.Thread, as *vm.AddressSpace) *process {
	h := as.Header()
	pageSize := uint32(k.pager.PageSize())
	top := uint32(as.NumPages()) * pageSize

	dataLow := uint32(h.InitData.VirtualAddr)
	if h.InitData.Size == 0 {
		dataLow = uint32(h.UninitData.VirtualAddr)
	}

	return &process{
		thread:    t,
		taskID:    fmt.Sprintf("thread-%d", t.PID),
		burstLeft: k.burstLength(),
		code: region{
			low:  uint32(h.Code.VirtualAddr),
			high: uint32(h.Code.VirtualAddr + h.Code.Size),
		},
		data: region{
			low:  dataLow,
			high: dataLow + uint32(h.InitData.Size+h.UninitData.Size),
		},
		stack: region{
			low:  top - vm.UserStackSize,
			high: top,
		},
	}
}

// Fork duplicates a process. The child gets a copy of the parent's private
// pages, shares its shared pages and resumes with a zero result register,
// while the parent sees the child pid. The child runs half of the parent's
// remaining instructions. Fork returns the child and the number of pages
// copied.
func (k *Kernel) Fork(parent *thread.Thread) (*thread.Thread, int) {
	parentSpace := spaceOf(parent)

	copied := 0
	for _, e := range parentSpace.PageTable() {
		if e.Valid && !e.Shared {
			copied++
		}
	}

	child := k.table.NewThread(parent.Name)
	child.ParentPID = parent.PID
	child.SetBasePriority(parent.BasePriority)
	child.EstimatedBurst = parent.EstimatedBurst
	child.StartTime = k.engine.CurrentTime()
	child.Space = parentSpace.Fork(child.PID)

	if k.scheduler.Current() == parent {
		child.SaveUserState(k.machine)
		k.machine.WriteRegister(machine.RetValReg, int32(child.PID))
	} else {
		child.SetUserRegisters(parent.UserRegisters())
		parent.SetUserRegister(machine.RetValReg, int32(child.PID))
	}

	child.SetUserRegister(machine.RetValReg, 0)

	pp := k.processes[parent.PID]
	cp := &process{
		thread:    child,
		taskID:    fmt.Sprintf("thread-%d", child.PID),
		burstLeft: k.burstLength(),
	}

	if pp != nil {
		cp.total = pp.remaining() / 2
		cp.code, cp.data, cp.stack, cp.shared =
			pp.code, pp.data, pp.stack, pp.shared
		tracing.StartTask(
			cp.taskID, pp.taskID, k, ThreadTaskKind, child.Name, nil)
	}

	k.processes[child.PID] = cp
	k.planned += uint64(cp.total)

	k.scheduler.MoveToReady(child)

	k.logger.Info("forked",
		"parent", parent.PID, "child", child.PID, "copied_pages", copied)

	return child, copied
}

// Exit terminates a thread. Its private frames go back to the pool and the
// thread is destroyed once the CPU switches away from it.
func (k *Kernel) Exit(t *thread.Thread, status int) {
	now := k.engine.CurrentTime()

	if t.Status == thread.Running {
		k.scheduler.EndBurst(t)
	}

	t.ExitStatus = status
	t.EndTime = now

	if t.Space != nil {
		spaceOf(t).FreePages()
	}

	k.table.MarkExited(t.PID, status)
	k.recordThread(t)

	if p, ok := k.processes[t.PID]; ok {
		k.closeFaults(p)
		tracing.EndTask(p.taskID, k)
		delete(k.processes, t.PID)
	}

	t.Space = nil
	k.scheduler.Finish(t)

	k.logger.Info("exited",
		"pid", t.PID, "name", t.Name, "status", status,
		"cpu", uint64(t.CPUTime), "wait", uint64(t.TotalWait))
}

// ShmAllocate grows the address space of a thread by a shared region of at
// least size bytes and returns the address of the region.
func (k *Kernel) ShmAllocate(t *thread.Thread, size int) uint32 {
	base := spaceOf(t).GrowShared(size)

	if p, ok := k.processes[t.PID]; ok {
		pageSize := k.pager.PageSize()
		pages := (size + pageSize - 1) / pageSize
		p.shared = region{
			low:  base,
			high: base + uint32(pages*pageSize),
		}
	}

	k.logger.Debug("shared memory allocated",
		"pid", t.PID, "addr", base, "size", size)

	return base
}

// Access translates a user address for the running thread, resolving a
// page fault by bringing the page in and retrying. It returns the number of
// faults taken.
func (k *Kernel) Access(
	t *thread.Thread,
	vaddr uint32,
	write bool,
) (int, error) {
	if k.machine.PageTableOwner() != int(t.PID) {
		log.Panicf("%s: %s accesses memory without its page table loaded",
			k.name, t)
	}

	faults := 0

	for {
		_, err := k.machine.Translate(vaddr, write)
		if err == nil {
			return faults, nil
		}

		if !errors.Is(err, machine.ErrPageFault) || faults > 0 {
			return faults, err
		}

		spaceOf(t).AllocateNextPage(vaddr)
		faults++
	}
}

// Yield gives the CPU away from the running thread, which goes back to the
// ready threads.
func (k *Kernel) Yield() {
	t := k.scheduler.Current()
	if t == nil || t.Status != thread.Running {
		return
	}

	k.scheduler.EndBurst(t)
	k.scheduler.MoveToReady(t)
	k.dispatch()
}

func spaceOf(t *thread.Thread) *vm.AddressSpace {
	as, ok := t.Space.(*vm.AddressSpace)
	if !ok {
		log.Panicf("%s has no user address space", t)
	}

	return as
}

var _ sim.Handler = (*Kernel)(nil)
