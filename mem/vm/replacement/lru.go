package replacement

import (
	"github.com/sarchlab/kernelsim/sim"
)

// LRUVictimFinder evicts the least recently used frame.
type LRUVictimFinder struct {
	lastUsed []sim.VTimeInTick
}

// NewLRUVictimFinder creates an LRU policy over numFrames frames.
func NewLRUVictimFinder(numFrames int) *LRUVictimFinder {
	return &LRUVictimFinder{
		lastUsed: make([]sim.VTimeInTick, numFrames),
	}
}

// FindVictim returns the eligible frame with the oldest reference. On a tie
// the highest numbered frame wins.
func (f *LRUVictimFinder) FindVictim(frames FrameState, protected int) int {
	victim := -1

	for i := 0; i < frames.NumFrames(); i++ {
		if !eligible(frames, i, protected) {
			continue
		}

		if victim == -1 || f.lastUsed[i] <= f.lastUsed[victim] {
			victim = i
		}
	}

	if victim == -1 {
		panic("no frame can be evicted")
	}

	return victim
}

// Loaded does nothing; the fill itself is followed by a reference.
func (f *LRUVictimFinder) Loaded(int, sim.VTimeInTick) {}

// Referenced stamps the frame with the current time.
func (f *LRUVictimFinder) Referenced(frame int, now sim.VTimeInTick) {
	f.lastUsed[frame] = now
}

// LastUsed returns the last reference time of a frame.
func (f *LRUVictimFinder) LastUsed(frame int) sim.VTimeInTick {
	return f.lastUsed[frame]
}
