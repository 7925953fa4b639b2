package kernel

import (
	"github.com/sarchlab/kernelsim/mem/vm"
	"github.com/sarchlab/kernelsim/sched"
	"github.com/sarchlab/kernelsim/sim"
)

// ThreadInfo is a snapshot of one thread.
type ThreadInfo struct {
	PID            vm.PID          `json:"pid"`
	ParentPID      vm.PID          `json:"parent_pid"`
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	Priority       int             `json:"priority"`
	BasePriority   int             `json:"base_priority"`
	CPUCount       int             `json:"cpu_count"`
	EstimatedBurst sim.VTimeInTick `json:"estimated_burst"`
	CPUTime        sim.VTimeInTick `json:"cpu_time"`
	TotalWait      sim.VTimeInTick `json:"total_wait"`
	Executed       int             `json:"executed"`
	Total          int             `json:"total"`
}

// RunReport summarizes a run.
type RunReport struct {
	Ticks          sim.VTimeInTick `json:"ticks"`
	Threads        int             `json:"threads"`
	Exited         int             `json:"exited"`
	Instructions   uint64          `json:"instructions"`
	Paging         vm.PagerStats   `json:"paging"`
	Scheduling     sched.Stats     `json:"scheduling"`
	AverageWait    float64         `json:"average_wait"`
	AverageBurst   float64         `json:"average_burst"`
	CPUUtilization float64         `json:"cpu_utilization"`
}

// ThreadInfos returns a snapshot of the live threads, ordered by pid.
func (k *Kernel) ThreadInfos() []ThreadInfo {
	k.stateLock.Lock()
	defer k.stateLock.Unlock()

	var infos []ThreadInfo

	for _, t := range k.table.Live() {
		info := ThreadInfo{
			PID:            t.PID,
			ParentPID:      t.ParentPID,
			Name:           t.Name,
			Status:         t.Status.String(),
			Priority:       t.Priority,
			BasePriority:   t.BasePriority,
			CPUCount:       t.CPUCount,
			EstimatedBurst: t.EstimatedBurst,
			CPUTime:        t.CPUTime,
			TotalWait:      t.TotalWait,
		}

		if p, ok := k.processes[t.PID]; ok {
			info.Executed = p.executed
			info.Total = p.total
		}

		infos = append(infos, info)
	}

	return infos
}

// Progress returns the number of instructions executed and the number
// planned so far.
func (k *Kernel) Progress() (executed, planned uint64) {
	k.stateLock.Lock()
	defer k.stateLock.Unlock()

	return k.executed, k.planned
}

// Report summarizes the run so far.
func (k *Kernel) Report() RunReport {
	k.stateLock.Lock()
	defer k.stateLock.Unlock()

	r := RunReport{
		Ticks:        k.engine.CurrentTime(),
		Threads:      k.table.NumCreated(),
		Exited:       k.table.NumExited(),
		Instructions: k.executed,
		Paging:       k.pager.Stats(),
		Scheduling:   k.scheduler.Stats(),
	}

	if n := r.Scheduling.Dispatches; n > 0 {
		r.AverageWait = float64(r.Scheduling.TotalWait) / float64(n)
	}

	if n := r.Scheduling.Bursts; n > 0 {
		r.AverageBurst = float64(r.Scheduling.CPUBusy) / float64(n)
	}

	if r.Ticks > 0 {
		r.CPUUtilization = float64(r.Scheduling.CPUBusy) / float64(r.Ticks)
	}

	return r
}
