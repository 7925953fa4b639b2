package replacement

import (
	"github.com/sarchlab/kernelsim/sim"
)

// FIFOVictimFinder evicts the frame that was filled the longest time ago.
type FIFOVictimFinder struct {
	loadTime []sim.VTimeInTick
}

// NewFIFOVictimFinder creates a FIFO policy over numFrames frames.
func NewFIFOVictimFinder(numFrames int) *FIFOVictimFinder {
	return &FIFOVictimFinder{
		loadTime: make([]sim.VTimeInTick, numFrames),
	}
}

// FindVictim returns the eligible frame with the smallest load time. On a
// tie the lowest numbered frame wins.
func (f *FIFOVictimFinder) FindVictim(frames FrameState, protected int) int {
	victim := -1

	for i := 0; i < frames.NumFrames(); i++ {
		if !eligible(frames, i, protected) {
			continue
		}

		if victim == -1 || f.loadTime[i] < f.loadTime[victim] {
			victim = i
		}
	}

	if victim == -1 {
		panic("no frame can be evicted")
	}

	return victim
}

// Loaded records when a frame received a new page.
func (f *FIFOVictimFinder) Loaded(frame int, now sim.VTimeInTick) {
	f.loadTime[frame] = now
}

// Referenced does nothing; FIFO ignores references.
func (f *FIFOVictimFinder) Referenced(int, sim.VTimeInTick) {}

// LoadTime returns the recorded load time of a frame.
func (f *FIFOVictimFinder) LoadTime(frame int) sim.VTimeInTick {
	return f.loadTime[frame]
}
