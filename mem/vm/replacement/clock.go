package replacement

import (
	"github.com/sarchlab/kernelsim/sim"
)

// ClockVictimFinder approximates LRU with one reference bit per frame and a
// hand that sweeps the frames in a circle.
type ClockVictimFinder struct {
	refBit  []bool
	hand    int
	started bool // false until the first victim is chosen
}

// NewClockVictimFinder creates a clock policy over numFrames frames.
func NewClockVictimFinder(numFrames int) *ClockVictimFinder {
	return &ClockVictimFinder{
		refBit: make([]bool, numFrames),
	}
}

// FindVictim advances the hand from just past its last position. The first
// call starts at frame 0, since the hand has not selected any frame yet.
// Frames with the bit set get a second chance and have the bit cleared.
// After one full sweep every eligible bit is clear, so the second sweep
// always selects. The victim's bit is set again and the hand rests on it.
func (f *ClockVictimFinder) FindVictim(frames FrameState, protected int) int {
	n := frames.NumFrames()

	pos := f.hand
	if f.started {
		pos = (f.hand + 1) % n
	}

	for i := 0; i < 2*n; i++ {
		frame := (pos + i) % n
		if !eligible(frames, frame, protected) {
			continue
		}

		if f.refBit[frame] {
			f.refBit[frame] = false
			continue
		}

		f.refBit[frame] = true
		f.hand = frame
		f.started = true

		return frame
	}

	panic("no frame can be evicted")
}

// Loaded does nothing; the fill itself is followed by a reference.
func (f *ClockVictimFinder) Loaded(int, sim.VTimeInTick) {}

// Referenced sets the reference bit of the frame.
func (f *ClockVictimFinder) Referenced(frame int, _ sim.VTimeInTick) {
	f.refBit[frame] = true
}

// Hand returns the frame the hand rests on.
func (f *ClockVictimFinder) Hand() int {
	return f.hand
}

// RefBit returns the reference bit of a frame.
func (f *ClockVictimFinder) RefBit(frame int) bool {
	return f.refBit[frame]
}

// SetRefBit overwrites the reference bit of a frame.
func (f *ClockVictimFinder) SetRefBit(frame int, bit bool) {
	f.refBit[frame] = bit
}
