package kernel

import (
	"github.com/sarchlab/kernelsim/mem/vm"
	"github.com/sarchlab/kernelsim/sim"
	"github.com/sarchlab/kernelsim/thread"
)

// Names of the tables the kernel records into.
const (
	ThreadStatsTable = "thread_stats"
	EvictionTable    = "evictions"
	DispatchTable    = "dispatches"
)

// ThreadStatsEntry is written for every thread when it exits.
type ThreadStatsEntry struct {
	PID          uint32
	ParentPID    uint32
	Name         string
	BasePriority int
	StartTime    uint64
	EndTime      uint64
	CPUTime      uint64
	TotalWait    uint64
	Bursts       int
	ExitStatus   int
}

// EvictionEntry is written for every page evicted from memory.
type EvictionEntry struct {
	Time  uint64
	Frame int
	PID   uint32
	VPN   int
	Dirty bool
}

// DispatchEntry is written every time a thread gets the CPU.
type DispatchEntry struct {
	Time     uint64
	PID      uint32
	Name     string
	Priority int
	Waited   uint64
}

func (k *Kernel) createTables() {
	k.recorder.CreateTable(ThreadStatsTable, ThreadStatsEntry{})
	k.recorder.CreateTable(EvictionTable, EvictionEntry{})
	k.recorder.CreateTable(DispatchTable, DispatchEntry{})
}

func (k *Kernel) recordThread(t *thread.Thread) {
	if k.recorder == nil {
		return
	}

	k.recorder.InsertData(ThreadStatsTable, ThreadStatsEntry{
		PID:          uint32(t.PID),
		ParentPID:    uint32(t.ParentPID),
		Name:         t.Name,
		BasePriority: t.BasePriority,
		StartTime:    uint64(t.StartTime),
		EndTime:      uint64(t.EndTime),
		CPUTime:      uint64(t.CPUTime),
		TotalWait:    uint64(t.TotalWait),
		Bursts:       t.NumBursts,
		ExitStatus:   t.ExitStatus,
	})
}

func (k *Kernel) recordDispatch(t *thread.Thread, waited sim.VTimeInTick) {
	if k.recorder == nil {
		return
	}

	k.recorder.InsertData(DispatchTable, DispatchEntry{
		Time:     uint64(k.engine.CurrentTime()),
		PID:      uint32(t.PID),
		Name:     t.Name,
		Priority: t.Priority,
		Waited:   uint64(waited),
	})
}

// onPaging receives the pager hooks.
func (k *Kernel) onPaging(ctx sim.HookCtx) {
	switch ctx.Pos {
	case vm.HookPosEviction:
		evt := ctx.Item.(vm.EvictionEvent)
		k.logger.Debug("evicted",
			"frame", evt.Frame, "pid", evt.PID, "vpn", evt.VPN,
			"dirty", evt.Dirty)

		if k.recorder != nil {
			k.recorder.InsertData(EvictionTable, EvictionEntry{
				Time:  uint64(evt.Time),
				Frame: evt.Frame,
				PID:   uint32(evt.PID),
				VPN:   evt.VPN,
				Dirty: evt.Dirty,
			})
		}
	case vm.HookPosPageIn:
		evt := ctx.Item.(vm.PageInEvent)
		k.logger.Debug("paged in",
			"frame", evt.Frame, "pid", evt.PID, "vpn", evt.VPN,
			"from_backing", evt.FromBacking)
	}
}
