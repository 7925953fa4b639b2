package vm

import (
	"log"
)

// Owner is the reverse map entry of a frame: the process and the virtual
// page the frame currently backs. It is a lookup back-reference, not
// ownership.
type Owner struct {
	PID      PID
	VPN      int
	Assigned bool
}

// FramePool hands out physical frames. Frames that were never used are
// handed out in order first; released frames are reused in the order they
// were released.
type FramePool struct {
	numFrames  int
	allocated  int
	nextUnused int
	free       []int
	inUse      []bool
	owners     []Owner
}

// NewFramePool creates a pool of numFrames frames, all free.
func NewFramePool(numFrames int) *FramePool {
	return &FramePool{
		numFrames: numFrames,
		inUse:     make([]bool, numFrames),
		owners:    make([]Owner, numFrames),
	}
}

// Take removes a frame from the pool. It returns false if every frame is
// allocated.
func (p *FramePool) Take() (int, bool) {
	if p.allocated >= p.numFrames {
		return 0, false
	}

	var frame int
	if p.nextUnused < p.numFrames {
		frame = p.nextUnused
		p.nextUnused++
	} else {
		frame = p.free[0]
		p.free = p.free[1:]
	}

	p.inUse[frame] = true
	p.allocated++

	return frame, true
}

// Release returns a frame to the pool and clears its reverse map.
func (p *FramePool) Release(frame int) {
	if !p.inUse[frame] {
		log.Panicf("releasing frame %d, which is not allocated", frame)
	}

	p.inUse[frame] = false
	p.owners[frame] = Owner{}
	p.allocated--
	p.free = append(p.free, frame)
}

// SetOwner records which page of which process lives in a frame.
func (p *FramePool) SetOwner(frame int, pid PID, vpn int) {
	p.owners[frame] = Owner{PID: pid, VPN: vpn, Assigned: true}
}

// Owner returns the reverse map entry of a frame.
func (p *FramePool) Owner(frame int) Owner {
	return p.owners[frame]
}

// InUse tells if a frame is allocated.
func (p *FramePool) InUse(frame int) bool {
	return p.inUse[frame]
}

// NumFrames returns the size of the pool.
func (p *FramePool) NumFrames() int {
	return p.numFrames
}

// NumAllocated returns the number of frames currently handed out.
func (p *FramePool) NumAllocated() int {
	return p.allocated
}

// NumFree returns the number of frames that can still be taken.
func (p *FramePool) NumFree() int {
	return p.numFrames - p.allocated
}
