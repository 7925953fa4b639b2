package machine

import (
	"errors"
	"fmt"
)

var (
	// ErrPageFault is raised when the referenced page is not resident.
	ErrPageFault = errors.New("page fault")

	// ErrReadOnly is raised on a write to a read-only page.
	ErrReadOnly = errors.New("write to read-only page")

	// ErrAddress is raised when an address lies outside the address space or
	// outside physical memory.
	ErrAddress = errors.New("address error")
)

// A TranslationEntry maps one virtual page of an address space to a physical
// frame.
type TranslationEntry struct {
	VirtualPage  int
	PhysicalPage int
	Valid        bool
	Use          bool // set by the hardware on every reference
	Dirty        bool // set by the hardware on every write
	ReadOnly     bool
	Shared       bool // frame outlives this address space
	Backup       bool // page content lives in the backing buffer
}

// NewInvalidEntry returns an entry for vpn with no frame assigned.
func NewInvalidEntry(vpn int) TranslationEntry {
	return TranslationEntry{
		VirtualPage:  vpn,
		PhysicalPage: NoFrame,
	}
}

// An AccessObserver is told about each successful reference to a frame, the
// way hardware reference bits would be.
type AccessObserver interface {
	Referenced(frame int)
}

// Translate converts a virtual address into a physical address using the
// loaded page table. It updates the use and dirty bits of the entry.
func (m *Machine) Translate(vaddr uint32, writing bool) (int, error) {
	pageSize := uint32(m.Memory.PageSize())
	vpn := int(vaddr / pageSize)
	offset := int(vaddr % pageSize)

	if vpn >= len(m.pageTable) {
		m.registers[BadVAddrReg] = int32(vaddr)
		return 0, fmt.Errorf("%w: vaddr 0x%x, vpn %d >= %d pages",
			ErrAddress, vaddr, vpn, len(m.pageTable))
	}

	entry := &m.pageTable[vpn]
	if !entry.Valid {
		m.registers[BadVAddrReg] = int32(vaddr)
		return 0, fmt.Errorf("%w: vaddr 0x%x", ErrPageFault, vaddr)
	}

	if writing && entry.ReadOnly {
		m.registers[BadVAddrReg] = int32(vaddr)
		return 0, fmt.Errorf("%w: vaddr 0x%x", ErrReadOnly, vaddr)
	}

	frame := entry.PhysicalPage
	if frame < 0 || frame >= m.Memory.NumFrames() {
		return 0, fmt.Errorf("%w: frame %d", ErrAddress, frame)
	}

	entry.Use = true
	if writing {
		entry.Dirty = true
	}

	if m.observer != nil {
		m.observer.Referenced(frame)
	}

	return frame*m.Memory.PageSize() + offset, nil
}

// ReadMem reads size (1, 2 or 4) bytes at a virtual address, little endian.
func (m *Machine) ReadMem(vaddr uint32, size int) (int32, error) {
	paddr, err := m.Translate(vaddr, false)
	if err != nil {
		return 0, err
	}

	data, err := m.Memory.Read(paddr, size)
	if err != nil {
		return 0, err
	}

	var value uint32
	for i := size - 1; i >= 0; i-- {
		value = value<<8 | uint32(data[i])
	}

	return int32(value), nil
}

// WriteMem writes size (1, 2 or 4) bytes at a virtual address, little endian.
func (m *Machine) WriteMem(vaddr uint32, size int, value int32) error {
	paddr, err := m.Translate(vaddr, true)
	if err != nil {
		return err
	}

	data := make([]byte, size)
	v := uint32(value)
	for i := 0; i < size; i++ {
		data[i] = byte(v)
		v >>= 8
	}

	return m.Memory.Write(paddr, data)
}
