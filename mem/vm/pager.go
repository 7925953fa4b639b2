package vm

import (
	"log"
	"sync"

	"github.com/sarchlab/kernelsim/machine"
	"github.com/sarchlab/kernelsim/mem/vm/replacement"
	"github.com/sarchlab/kernelsim/sim"
)

// HookPosEviction marks a page being evicted from its frame. The hook item
// is an EvictionEvent.
var HookPosEviction = &sim.HookPos{Name: "Eviction"}

// HookPosPageIn marks a page being brought into a frame on a fault. The hook
// item is a PageInEvent.
var HookPosPageIn = &sim.HookPos{Name: "PageIn"}

// EvictionEvent describes one eviction.
type EvictionEvent struct {
	Time  sim.VTimeInTick
	Frame int
	PID   PID
	VPN   int
	Dirty bool
}

// PageInEvent describes one page brought into memory.
type PageInEvent struct {
	Time        sim.VTimeInTick
	Frame       int
	PID         PID
	VPN         int
	FromBacking bool
}

// PagerStats counts the paging activity since the pager was created.
type PagerStats struct {
	PageFaults      uint64
	Evictions       uint64
	BackingWrites   uint64
	BackingRestores uint64
}

// FrameInfo is a snapshot of one physical frame.
type FrameInfo struct {
	Frame  int  `json:"frame"`
	InUse  bool `json:"in_use"`
	PID    PID  `json:"pid"`
	VPN    int  `json:"vpn"`
	Shared bool `json:"shared"`
	Dirty  bool `json:"dirty"`
}

// A Pager owns the physical frames of the machine. It grants frames to
// address spaces, falling back to the replacement policy when the pool is
// empty. All the frame bookkeeping happens with the pager locked, which plays
// the role of disabling interrupts.
type Pager struct {
	sim.HookableBase

	lock sync.Mutex

	name         string
	machine      *machine.Machine
	pool         *FramePool
	victimFinder replacement.VictimFinder
	timeTeller   sim.TimeTeller
	spaces       map[PID]*AddressSpace
	stats        PagerStats
}

// NewPager creates a pager over the memory of m. A nil victimFinder means no
// replacement: running out of frames is then fatal. The pager registers
// itself as the access observer of the machine.
func NewPager(
	name string,
	m *machine.Machine,
	victimFinder replacement.VictimFinder,
	timeTeller sim.TimeTeller,
) *Pager {
	p := &Pager{
		name:         name,
		machine:      m,
		pool:         NewFramePool(m.Memory.NumFrames()),
		victimFinder: victimFinder,
		timeTeller:   timeTeller,
		spaces:       make(map[PID]*AddressSpace),
	}

	m.SetAccessObserver(p)

	return p
}

// Name returns the name of the pager.
func (p *Pager) Name() string {
	return p.name
}

// PageSize returns the size of pages and frames.
func (p *Pager) PageSize() int {
	return p.machine.Memory.PageSize()
}

// NumFrames returns the number of physical frames.
func (p *Pager) NumFrames() int {
	return p.pool.NumFrames()
}

// Evictable tells if the frame holds a private page of a live process.
func (p *Pager) Evictable(frame int) bool {
	entry := p.entryOf(frame)
	if entry == nil {
		return false
	}

	return !entry.Shared
}

// Referenced is called by the machine on each successful translation.
func (p *Pager) Referenced(frame int) {
	if p.victimFinder == nil {
		return
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	p.victimFinder.Referenced(frame, p.timeTeller.CurrentTime())
}

// Stats returns the paging counters.
func (p *Pager) Stats() PagerStats {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.stats
}

// NumFreeFrames returns the number of frames left in the pool.
func (p *Pager) NumFreeFrames() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.pool.NumFree()
}

// Frames returns a snapshot of every physical frame.
func (p *Pager) Frames() []FrameInfo {
	p.lock.Lock()
	defer p.lock.Unlock()

	infos := make([]FrameInfo, p.pool.NumFrames())
	for i := range infos {
		owner := p.pool.Owner(i)
		infos[i] = FrameInfo{
			Frame: i,
			InUse: p.pool.InUse(i),
			PID:   owner.PID,
			VPN:   owner.VPN,
		}

		if entry := p.entryOf(i); entry != nil {
			infos[i].Shared = entry.Shared
			infos[i].Dirty = entry.Dirty
		}
	}

	return infos
}

// Space returns the registered address space of a process.
func (p *Pager) Space(pid PID) (*AddressSpace, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	as, ok := p.spaces[pid]

	return as, ok
}

func (p *Pager) register(as *AddressSpace) {
	if _, found := p.spaces[as.pid]; found {
		log.Panicf("process %d already has an address space", as.pid)
	}

	p.spaces[as.pid] = as
}

func (p *Pager) unregister(as *AddressSpace) {
	if p.spaces[as.pid] == as {
		delete(p.spaces, as.pid)
	}
}

func (p *Pager) now() sim.VTimeInTick {
	return p.timeTeller.CurrentTime()
}

func (p *Pager) entryOf(frame int) *machine.TranslationEntry {
	owner := p.pool.Owner(frame)
	if !owner.Assigned {
		return nil
	}

	as, found := p.spaces[owner.PID]
	if !found || owner.VPN >= len(as.pageTable) {
		return nil
	}

	return &as.pageTable[owner.VPN]
}

// obtainFrame returns a frame for a new page, taking it from the pool when
// possible and evicting a page otherwise. The protected frame is never
// chosen as the victim.
func (p *Pager) obtainFrame(protected int) int {
	if frame, ok := p.pool.Take(); ok {
		return frame
	}

	if p.victimFinder == nil {
		log.Panicf("%s: out of physical frames and no replacement policy",
			p.name)
	}

	victim := p.victimFinder.FindVictim(p, protected)
	p.evict(victim)

	return victim
}

// evict detaches the page living in a frame from its address space. Dirty
// pages are saved to the owner's backing buffer. The frame stays allocated
// and goes to the caller.
func (p *Pager) evict(frame int) {
	owner := p.pool.Owner(frame)
	as := p.spaces[owner.PID]
	entry := &as.pageTable[owner.VPN]

	evt := EvictionEvent{
		Time:  p.now(),
		Frame: frame,
		PID:   owner.PID,
		VPN:   owner.VPN,
		Dirty: entry.Dirty,
	}

	entry.Valid = false
	entry.PhysicalPage = machine.NoFrame

	if entry.Dirty {
		as.saveToBacking(owner.VPN, p.machine.Memory.Frame(frame))
		entry.Backup = true
		entry.Dirty = false
		p.stats.BackingWrites++
	}

	p.pool.owners[frame] = Owner{}
	p.stats.Evictions++

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Pos:    HookPosEviction,
		Item:   evt,
	})
}

// assign binds a frame to a page of an address space.
func (p *Pager) assign(frame int, as *AddressSpace, vpn int) {
	p.pool.SetOwner(frame, as.pid, vpn)
	as.pageTable[vpn].PhysicalPage = frame
}

func (p *Pager) release(frame int) {
	p.pool.Release(frame)
}

func (p *Pager) loaded(frame int, now sim.VTimeInTick) {
	if p.victimFinder != nil {
		p.victimFinder.Loaded(frame, now)
	}
}

func (p *Pager) referenced(frame int, now sim.VTimeInTick) {
	if p.victimFinder != nil {
		p.victimFinder.Referenced(frame, now)
	}
}
