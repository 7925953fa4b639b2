// Package vm manages the virtual memory of user processes: the pool of
// physical frames, the per-process address spaces and the pager that moves
// pages between frames and the backing store.
package vm

import (
	"github.com/sarchlab/kernelsim/machine"
)

// PID stands for Process ID.
type PID uint32

// UserStackSize is the number of bytes reserved for the user stack at the top
// of every address space.
const UserStackSize = 1024

func divRoundUp(n, s int) int {
	return (n + s - 1) / s
}

func newPageTable(numPages int) []machine.TranslationEntry {
	table := make([]machine.TranslationEntry, numPages)
	for i := range table {
		table[i] = machine.NewInvalidEntry(i)
	}

	return table
}

// growPageTable returns a table with extra invalid entries appended. Old
// entries are copied, so reverse maps keyed by (pid, vpn) stay correct.
func growPageTable(
	old []machine.TranslationEntry,
	extra int,
) []machine.TranslationEntry {
	table := make([]machine.TranslationEntry, len(old)+extra)
	copy(table, old)

	for i := len(old); i < len(table); i++ {
		table[i] = machine.NewInvalidEntry(i)
	}

	return table
}
