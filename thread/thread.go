// Package thread holds the thread control blocks of the kernel and the table
// that maps process ids to them.
package thread

import (
	"fmt"
	"log"

	"github.com/sarchlab/kernelsim/machine"
	"github.com/sarchlab/kernelsim/mem/vm"
	"github.com/sarchlab/kernelsim/sim"
)

// Status is the scheduling state of a thread.
type Status int

// Thread states.
const (
	JustCreated Status = iota
	Running
	Ready
	Blocked
	Finished
)

var statusNames = [...]string{"JUST_CREATED", "RUNNING", "READY", "BLOCKED", "FINISHED"}

func (s Status) String() string {
	if s < JustCreated || s > Finished {
		return fmt.Sprintf("Status(%d)", int(s))
	}

	return statusNames[s]
}

// stackFence is the magic value written at the far end of each thread's
// kernel stack. A thread that overruns its stack overwrites it.
const stackFence uint32 = 0xdedbeef

// UserSpace is the part of an address space the dispatcher talks to around
// a context switch.
type UserSpace interface {
	SaveContext()
	RestoreContext()
}

// A Thread is the control block of one kernel thread, optionally running a
// user program in its own address space.
type Thread struct {
	PID       vm.PID
	ParentPID vm.PID
	Name      string
	Status    Status

	// Space is nil for kernel-only threads.
	Space UserSpace

	Priority       int
	BasePriority   int
	CPUCount       int
	EstimatedBurst sim.VTimeInTick
	WaitStart      sim.VTimeInTick
	TotalWait      sim.VTimeInTick
	BurstStart     sim.VTimeInTick
	CPUTime        sim.VTimeInTick
	NumBursts      int
	StartTime      sim.VTimeInTick
	EndTime        sim.VTimeInTick
	ExitStatus     int

	userRegisters machine.Registers
	fence         uint32
}

// New creates a thread in the JustCreated state.
func New(pid vm.PID, name string) *Thread {
	return &Thread{
		PID:    pid,
		Name:   name,
		Status: JustCreated,
		fence:  stackFence,
	}
}

// SetBasePriority sets the base priority and resets the effective priority
// to it.
func (t *Thread) SetBasePriority(p int) {
	t.BasePriority = p
	t.Priority = p
}

// SaveUserState copies the user registers out of the machine.
func (t *Thread) SaveUserState(m *machine.Machine) {
	t.userRegisters = m.Registers()
}

// RestoreUserState loads the saved user registers into the machine.
func (t *Thread) RestoreUserState(m *machine.Machine) {
	m.SetRegisters(t.userRegisters)
}

// UserRegisters returns the saved user registers.
func (t *Thread) UserRegisters() machine.Registers {
	return t.userRegisters
}

// SetUserRegisters replaces all the saved user registers.
func (t *Thread) SetUserRegisters(r machine.Registers) {
	t.userRegisters = r
}

// SetUserRegister changes one saved user register, as a syscall returning a
// value to the thread does.
func (t *Thread) SetUserRegister(num int, value int32) {
	t.userRegisters[num] = value
}

// CheckOverflow panics if the thread's stack fence was overwritten.
func (t *Thread) CheckOverflow() {
	if t.fence != stackFence {
		log.Panicf("thread %d (%s) overflowed its stack", t.PID, t.Name)
	}
}

func (t *Thread) String() string {
	return fmt.Sprintf("%s(%d)", t.Name, t.PID)
}
