// Package replacement provides the policies that decide which physical frame
// gives up its page when the frame pool is exhausted.
package replacement

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/kernelsim/sim"
)

// NoProtection is passed as the protected frame when every evictable frame
// may be chosen.
const NoProtection = -1

// FrameState is the view of physical memory a VictimFinder needs.
type FrameState interface {
	NumFrames() int

	// Evictable reports whether the frame is owned by a process and is not
	// shared.
	Evictable(frame int) bool
}

// A VictimFinder decides which frame should be evicted. Loaded and
// Referenced keep the per-frame bookkeeping the policy relies on.
type VictimFinder interface {
	FindVictim(frames FrameState, protected int) int
	Loaded(frame int, now sim.VTimeInTick)
	Referenced(frame int, now sim.VTimeInTick)
}

// Algorithm selects the replacement policy. The numbering follows the
// command line flag of the kernel.
type Algorithm int

// Supported replacement algorithms.
const (
	None Algorithm = iota
	Random
	FIFO
	LRU
	Clock
)

// ErrUnknownAlgorithm is returned when a name or number maps to no policy.
var ErrUnknownAlgorithm = errors.New("unknown replacement algorithm")

var algorithmNames = []string{"none", "random", "fifo", "lru", "clock"}

func (a Algorithm) String() string {
	if a < None || a > Clock {
		return "Algorithm(" + strconv.Itoa(int(a)) + ")"
	}

	return algorithmNames[a]
}

// ParseAlgorithm accepts either a policy name or its number.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	for i, name := range algorithmNames {
		if s == name {
			return Algorithm(i), nil
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < int(None) || n > int(Clock) {
		return None, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}

	return Algorithm(n), nil
}

// NewVictimFinder creates the policy for an algorithm over numFrames frames.
// The None algorithm has no policy and yields nil.
func NewVictimFinder(alg Algorithm, numFrames int, seed int64) VictimFinder {
	switch alg {
	case None:
		return nil
	case Random:
		return NewRandomVictimFinder(seed)
	case FIFO:
		return NewFIFOVictimFinder(numFrames)
	case LRU:
		return NewLRUVictimFinder(numFrames)
	case Clock:
		return NewClockVictimFinder(numFrames)
	}

	panic(fmt.Sprintf("replacement algorithm %d not supported", alg))
}

func eligible(frames FrameState, frame, protected int) bool {
	return frame != protected && frames.Evictable(frame)
}

func mustHaveCandidate(frames FrameState, protected int) {
	for i := 0; i < frames.NumFrames(); i++ {
		if eligible(frames, i, protected) {
			return
		}
	}

	panic("no frame can be evicted")
}
