package tracing

import "github.com/sarchlab/kernelsim/sim"

// A TaskStep represents a milestone in the processing of task
type TaskStep struct {
	Time sim.VTimeInTick `json:"time"`
	What string          `json:"what"`
}

// A Task is a piece of work followed from its start to its end
type Task struct {
	ID        string          `json:"id"`
	ParentID  string          `json:"parent_id"`
	Kind      string          `json:"kind"`
	What      string          `json:"what"`
	Where     string          `json:"where"`
	StartTime sim.VTimeInTick `json:"start_time"`
	EndTime   sim.VTimeInTick `json:"end_time"`
	Steps     []TaskStep      `json:"steps"`
	Detail    interface{}     `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// KindFilter keeps the tasks of one kind.
func KindFilter(kind string) TaskFilter {
	return func(t Task) bool {
		return t.Kind == kind
	}
}
