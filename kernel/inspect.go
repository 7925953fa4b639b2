package kernel

import "github.com/sarchlab/kernelsim/mem/vm"

// Frames returns a snapshot of the physical frames, taken between two
// events.
func (k *Kernel) Frames() []vm.FrameInfo {
	k.stateLock.Lock()
	defer k.stateLock.Unlock()

	return k.pager.Frames()
}

// Inspect runs f between two events, so that f sees the kernel in a
// consistent state.
func (k *Kernel) Inspect(f func()) {
	k.stateLock.Lock()
	defer k.stateLock.Unlock()

	f()
}
