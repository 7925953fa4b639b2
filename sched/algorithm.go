package sched

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/kernelsim/sim"
)

// Algorithm selects the scheduling discipline. The numbers are the ones
// found on the first line of batch files.
type Algorithm int

// Supported algorithms.
const (
	FIFO Algorithm = iota + 1
	SJF
	RoundRobin33
	RoundRobin66
	RoundRobin99
	RoundRobin20
	UNIX33
	UNIX66
	UNIX99
	UNIX20
)

// ErrUnknownAlgorithm is returned for algorithm numbers outside 1 to 10.
var ErrUnknownAlgorithm = errors.New("unknown scheduling algorithm")

var quanta = [...]sim.VTimeInTick{33, 66, 99, 20}

// ParseAlgorithm converts a batch file or command line value.
func ParseAlgorithm(s string) (Algorithm, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !Algorithm(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}

	return Algorithm(n), nil
}

// Valid tells if the algorithm is one of the supported ones.
func (a Algorithm) Valid() bool {
	return a >= FIFO && a <= UNIX20
}

// IsRoundRobin tells if the algorithm is plain round robin.
func (a Algorithm) IsRoundRobin() bool {
	return a >= RoundRobin33 && a <= RoundRobin20
}

// IsUNIX tells if the algorithm is priority scheduling with aging.
func (a Algorithm) IsUNIX() bool {
	return a >= UNIX33 && a <= UNIX20
}

// Preemptive tells if a running thread loses the CPU when its quantum
// expires.
func (a Algorithm) Preemptive() bool {
	return a.IsRoundRobin() || a.IsUNIX()
}

// Quantum returns the time slice, or zero for non-preemptive algorithms.
func (a Algorithm) Quantum() sim.VTimeInTick {
	switch {
	case a.IsRoundRobin():
		return quanta[a-RoundRobin33]
	case a.IsUNIX():
		return quanta[a-UNIX33]
	}

	return 0
}

func (a Algorithm) String() string {
	switch {
	case a == FIFO:
		return "fifo"
	case a == SJF:
		return "sjf"
	case a.IsRoundRobin():
		return fmt.Sprintf("rr-%d", a.Quantum())
	case a.IsUNIX():
		return fmt.Sprintf("unix-%d", a.Quantum())
	}

	return "Algorithm(" + strconv.Itoa(int(a)) + ")"
}
