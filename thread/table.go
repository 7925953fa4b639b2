package thread

import (
	"sort"

	"github.com/sarchlab/kernelsim/mem/vm"
)

// Table maps process ids to threads and remembers which processes have
// exited, with their exit status.
type Table struct {
	nextPID vm.PID
	threads map[vm.PID]*Thread
	exited  map[vm.PID]int
}

// NewTable creates an empty table. Process ids start at 1.
func NewTable() *Table {
	return &Table{
		nextPID: 1,
		threads: make(map[vm.PID]*Thread),
		exited:  make(map[vm.PID]int),
	}
}

// NewThread allocates a fresh pid and registers a new thread under it.
func (tb *Table) NewThread(name string) *Thread {
	t := New(tb.nextPID, name)
	tb.nextPID++
	tb.threads[t.PID] = t

	return t
}

// Get returns the thread of a pid.
func (tb *Table) Get(pid vm.PID) (*Thread, bool) {
	t, ok := tb.threads[pid]
	return t, ok
}

// Remove drops a thread from the table. Its exit record stays.
func (tb *Table) Remove(pid vm.PID) {
	delete(tb.threads, pid)
}

// MarkExited records that a process exited.
func (tb *Table) MarkExited(pid vm.PID, status int) {
	tb.exited[pid] = status
}

// Exited tells if a process has exited and with which status.
func (tb *Table) Exited(pid vm.PID) (int, bool) {
	status, ok := tb.exited[pid]
	return status, ok
}

// All returns every thread in the table, ordered by pid.
func (tb *Table) All() []*Thread {
	all := make([]*Thread, 0, len(tb.threads))
	for _, t := range tb.threads {
		all = append(all, t)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].PID < all[j].PID
	})

	return all
}

// Live returns the threads that have not exited, ordered by pid.
func (tb *Table) Live() []*Thread {
	var live []*Thread

	for _, t := range tb.All() {
		if _, gone := tb.exited[t.PID]; !gone {
			live = append(live, t)
		}
	}

	return live
}

// Len returns the number of threads in the table.
func (tb *Table) Len() int {
	return len(tb.threads)
}

// NumCreated returns the number of threads ever created.
func (tb *Table) NumCreated() int {
	return int(tb.nextPID) - 1
}

// NumExited returns the number of processes that have exited.
func (tb *Table) NumExited() int {
	return len(tb.exited)
}
