package replacement

import (
	"math/rand"

	"github.com/sarchlab/kernelsim/sim"
)

// RandomVictimFinder evicts a uniformly chosen frame.
type RandomVictimFinder struct {
	rng *rand.Rand
}

// NewRandomVictimFinder returns a random policy with a fixed seed, so runs
// can be repeated.
func NewRandomVictimFinder(seed int64) *RandomVictimFinder {
	return &RandomVictimFinder{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// FindVictim samples frames until one is eligible.
func (f *RandomVictimFinder) FindVictim(frames FrameState, protected int) int {
	mustHaveCandidate(frames, protected)

	for {
		frame := f.rng.Intn(frames.NumFrames())
		if eligible(frames, frame, protected) {
			return frame
		}
	}
}

// Loaded does nothing; the random policy keeps no history.
func (f *RandomVictimFinder) Loaded(int, sim.VTimeInTick) {}

// Referenced does nothing.
func (f *RandomVictimFinder) Referenced(int, sim.VTimeInTick) {}
