// Package machine models the parts of the simulated MIPS machine that the
// kernel's memory manager and scheduler touch: physical memory, the register
// file and the page-table based address translation.
package machine

// Machine is the simulated CPU plus its main memory.
type Machine struct {
	Memory *Memory

	registers      Registers
	pageTable      []TranslationEntry
	pageTableOwner int
	observer       AccessObserver
}

// NewMachine creates a machine with the given memory geometry.
func NewMachine(numFrames, pageSize int) *Machine {
	return &Machine{
		Memory:         NewMemory(numFrames, pageSize),
		pageTableOwner: -1,
	}
}

// SetAccessObserver registers the observer told about every reference.
func (m *Machine) SetAccessObserver(o AccessObserver) {
	m.observer = o
}

// ReadRegister returns the content of a register.
func (m *Machine) ReadRegister(num int) int32 {
	return m.registers[num]
}

// WriteRegister sets the content of a register.
func (m *Machine) WriteRegister(num int, value int32) {
	m.registers[num] = value
}

// Registers returns a copy of the register file.
func (m *Machine) Registers() Registers {
	return m.registers
}

// SetRegisters overwrites the register file.
func (m *Machine) SetRegisters(r Registers) {
	m.registers = r
}

// LoadPageTable makes the given page table the one used for translation.
// The slice is used in place, so use and dirty bits land in the owner's
// entries.
func (m *Machine) LoadPageTable(owner int, table []TranslationEntry) {
	m.pageTableOwner = owner
	m.pageTable = table
}

// PageTableOwner returns the owner id passed to the last LoadPageTable, or
// -1 if none is loaded.
func (m *Machine) PageTableOwner() int {
	return m.pageTableOwner
}

// PageTableSize returns the number of entries of the loaded page table.
func (m *Machine) PageTableSize() int {
	return len(m.pageTable)
}
