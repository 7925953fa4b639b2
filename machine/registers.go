package machine

// Register indexes of the simulated MIPS CPU.
const (
	RetValReg    = 2  // Syscall and fork results
	StackReg     = 29 // User's stack pointer
	RetAddrReg   = 31 // Holds return address for procedure calls
	NumGPRegs    = 32 // 32 general purpose registers
	HiReg        = 32 // Double register to hold multiply result
	LoReg        = 33
	PCReg        = 34 // Current program counter
	NextPCReg    = 35 // Next program counter (for branch delay)
	PrevPCReg    = 36 // Previous program counter (for debugging)
	LoadReg      = 37 // The register target of a delayed load.
	LoadValueReg = 38 // The value to be loaded by a delayed load.
	BadVAddrReg  = 39 // The failing virtual address on an exception
	NumTotalRegs = 40
)

// Registers holds the complete user-visible CPU state.
type Registers [NumTotalRegs]int32
