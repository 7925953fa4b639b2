package vm

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/sarchlab/kernelsim/machine"
	"github.com/sarchlab/kernelsim/mem/vm/replacement"
	"github.com/sarchlab/kernelsim/noff"
	"github.com/sarchlab/kernelsim/sim"
)

// An AddressSpace is the virtual memory of one user process. Pages start out
// non-resident and are brought in on demand, either from the executable or
// from the private backing buffer that receives evicted dirty pages.
type AddressSpace struct {
	pager  *Pager
	pid    PID
	exe    io.ReaderAt
	header noff.Header

	pageTable []machine.TranslationEntry
	numPages  int
	backing   []byte
}

// NewAddressSpace reads the header of the executable and lays out an address
// space large enough for its segments plus the user stack. No frame is
// allocated yet.
func NewAddressSpace(
	pager *Pager,
	pid PID,
	exe io.ReaderAt,
) (*AddressSpace, error) {
	header, err := noff.ReadHeader(exe)
	if err != nil {
		return nil, fmt.Errorf("loading executable of process %d: %w", pid, err)
	}

	pageSize := pager.PageSize()
	numPages := divRoundUp(header.Size()+UserStackSize, pageSize)

	as := &AddressSpace{
		pager:     pager,
		pid:       pid,
		exe:       exe,
		header:    header,
		pageTable: newPageTable(numPages),
		numPages:  numPages,
		backing:   make([]byte, numPages*pageSize),
	}

	pager.lock.Lock()
	defer pager.lock.Unlock()

	pager.register(as)

	return as, nil
}

// PID returns the process the address space belongs to.
func (as *AddressSpace) PID() PID {
	return as.pid
}

// Header returns the header of the executable.
func (as *AddressSpace) Header() noff.Header {
	return as.header
}

// NumPages returns the number of virtual pages.
func (as *AddressSpace) NumPages() int {
	as.pager.lock.Lock()
	defer as.pager.lock.Unlock()

	return as.numPages
}

// Entry returns a copy of the translation entry of a virtual page.
func (as *AddressSpace) Entry(vpn int) machine.TranslationEntry {
	as.pager.lock.Lock()
	defer as.pager.lock.Unlock()

	return as.pageTable[vpn]
}

// PageTable returns a copy of the page table.
func (as *AddressSpace) PageTable() []machine.TranslationEntry {
	as.pager.lock.Lock()
	defer as.pager.lock.Unlock()

	table := make([]machine.TranslationEntry, as.numPages)
	copy(table, as.pageTable)

	return table
}

// BackingPage returns a copy of the backing buffer range of a virtual page.
func (as *AddressSpace) BackingPage(vpn int) []byte {
	as.pager.lock.Lock()
	defer as.pager.lock.Unlock()

	pageSize := as.pager.PageSize()
	page := make([]byte, pageSize)
	copy(page, as.backing[vpn*pageSize:])

	return page
}

// Fork creates the address space of a child process. Private resident pages
// are copied into new frames, shared pages are aliased and non-resident
// pages stay non-resident. The whole copy happens with the pager locked.
func (as *AddressSpace) Fork(childPID PID) *AddressSpace {
	p := as.pager
	p.lock.Lock()
	defer p.lock.Unlock()

	child := &AddressSpace{
		pager:     p,
		pid:       childPID,
		exe:       as.exe,
		header:    as.header,
		pageTable: newPageTable(as.numPages),
		numPages:  as.numPages,
		backing:   make([]byte, len(as.backing)),
	}
	copy(child.backing, as.backing)

	p.register(child)

	pageSize := p.PageSize()
	mem := p.machine.Memory
	now := p.now()

	for vpn := 0; vpn < as.numPages; vpn++ {
		parentEntry := &as.pageTable[vpn]
		childEntry := &child.pageTable[vpn]

		switch {
		case parentEntry.Shared:
			*childEntry = *parentEntry
		case parentEntry.Valid:
			parentFrame := parentEntry.PhysicalPage
			frame := p.obtainFrame(parentFrame)

			*childEntry = *parentEntry
			mem.CopyFrame(frame, parentFrame)
			p.assign(frame, child, vpn)

			p.loaded(frame, now)
			p.referenced(frame, now)
			p.referenced(parentFrame, now+1)
			p.stats.PageFaults++
		default:
			// The parent page may have been evicted by an earlier copy in
			// this loop, after the backing buffer was duplicated.
			*childEntry = *parentEntry
			childEntry.PhysicalPage = machine.NoFrame
			start := vpn * pageSize
			copy(child.backing[start:start+pageSize],
				as.backing[start:start+pageSize])
		}
	}

	return child
}

// GrowShared appends enough shared, zero-filled, resident pages to cover
// size bytes and returns the virtual address of the first new page.
func (as *AddressSpace) GrowShared(size int) uint32 {
	p := as.pager
	p.lock.Lock()
	defer p.lock.Unlock()

	pageSize := p.PageSize()
	extra := divRoundUp(size, pageSize)
	base := as.numPages

	as.pageTable = growPageTable(as.pageTable[:as.numPages], extra)
	as.backing = append(as.backing, make([]byte, extra*pageSize)...)

	now := p.now()
	for vpn := base; vpn < base+extra; vpn++ {
		frame := p.obtainFrame(replacement.NoProtection)
		p.machine.Memory.ZeroFrame(frame)

		entry := &as.pageTable[vpn]
		entry.Valid = true
		entry.Shared = true
		p.assign(frame, as, vpn)
		p.loaded(frame, now)
		p.stats.PageFaults++
	}

	as.numPages = base + extra

	if p.machine.PageTableOwner() == int(as.pid) {
		p.machine.LoadPageTable(int(as.pid), as.pageTable)
	}

	return uint32(base * pageSize)
}

// AllocateNextPage resolves a page fault at vaddr. The page is filled from
// the backing buffer if it was evicted dirty, or from the executable
// otherwise.
func (as *AddressSpace) AllocateNextPage(vaddr uint32) bool {
	p := as.pager
	p.lock.Lock()
	defer p.lock.Unlock()

	pageSize := p.PageSize()
	vpn := int(vaddr) / pageSize

	if vpn >= as.numPages {
		log.Panicf("process %d faulted on vpn %d, beyond its %d pages",
			as.pid, vpn, as.numPages)
	}

	frame := p.obtainFrame(replacement.NoProtection)
	mem := p.machine.Memory
	mem.ZeroFrame(frame)

	p.assign(frame, as, vpn)
	entry := &as.pageTable[vpn]
	entry.Valid = true

	if entry.Backup {
		copy(mem.Frame(frame), as.backing[vpn*pageSize:(vpn+1)*pageSize])
		p.stats.BackingRestores++
	} else {
		as.loadFromExecutable(vpn, mem.Frame(frame))
	}

	now := p.now()
	p.loaded(frame, now)
	p.stats.PageFaults++

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Pos:    HookPosPageIn,
		Item: PageInEvent{
			Time:        now,
			Frame:       frame,
			PID:         as.pid,
			VPN:         vpn,
			FromBacking: entry.Backup,
		},
	})

	return true
}

func (as *AddressSpace) loadFromExecutable(vpn int, frame []byte) {
	offset := int64(as.header.Code.InFileAddr) + int64(vpn*len(frame))

	_, err := as.exe.ReadAt(frame, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		log.Panicf("process %d: reading page %d from executable: %v",
			as.pid, vpn, err)
	}
}

func (as *AddressSpace) saveToBacking(vpn int, frame []byte) {
	copy(as.backing[vpn*len(frame):], frame)
}

// FreePages returns every private resident frame to the pool. Shared frames
// are left alone since other processes may still map them.
func (as *AddressSpace) FreePages() {
	p := as.pager
	p.lock.Lock()
	defer p.lock.Unlock()

	for vpn := 0; vpn < as.numPages; vpn++ {
		entry := &as.pageTable[vpn]
		if !entry.Valid || entry.Shared {
			continue
		}

		p.release(entry.PhysicalPage)
		entry.Valid = false
		entry.PhysicalPage = machine.NoFrame
	}

	p.unregister(as)

	if p.machine.PageTableOwner() == int(as.pid) {
		p.machine.LoadPageTable(-1, nil)
	}
}

// SaveContext saves the paging state of the process before it is switched
// out. The machine keeps no paging state besides the page table, which is
// shared with the address space, so there is nothing to save.
func (as *AddressSpace) SaveContext() {}

// RestoreContext points the machine at this page table.
func (as *AddressSpace) RestoreContext() {
	p := as.pager
	p.lock.Lock()
	defer p.lock.Unlock()

	p.machine.LoadPageTable(int(as.pid), as.pageTable[:as.numPages])
}

// InitRegisters sets the machine registers for a fresh start of the
// program: everything zero except the next PC and a stack pointer just
// below the top of the address space.
func (as *AddressSpace) InitRegisters() {
	m := as.pager.machine
	m.SetRegisters(machine.Registers{})
	m.WriteRegister(machine.PCReg, 0)
	m.WriteRegister(machine.NextPCReg, 4)
	m.WriteRegister(machine.StackReg,
		int32(as.NumPages()*as.pager.PageSize()-16))
}
