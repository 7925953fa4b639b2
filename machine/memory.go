package machine

import (
	"fmt"
)

// DefaultPageSize is the page and frame size of the simulated machine, in
// bytes.
const DefaultPageSize = 128

// DefaultNumPhysPages is the default number of physical page frames.
const DefaultNumPhysPages = 32

// NoFrame marks a translation entry that has no physical frame assigned.
const NoFrame = -1

// Memory is the main memory of the guest machine: one flat byte array made of
// equally sized page frames, addressed either by physical address or by frame
// number.
type Memory struct {
	pageSize  int
	numFrames int
	data      []byte
}

// NewMemory allocates a zeroed memory of numFrames frames of pageSize bytes.
func NewMemory(numFrames, pageSize int) *Memory {
	if numFrames <= 0 || pageSize <= 0 {
		panic(fmt.Sprintf("invalid memory geometry %d x %d", numFrames, pageSize))
	}

	return &Memory{
		pageSize:  pageSize,
		numFrames: numFrames,
		data:      make([]byte, numFrames*pageSize),
	}
}

// PageSize returns the frame size in bytes.
func (m *Memory) PageSize() int {
	return m.pageSize
}

// NumFrames returns the number of physical frames.
func (m *Memory) NumFrames() int {
	return m.numFrames
}

// Size returns the capacity in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// Bytes exposes the raw physical memory.
func (m *Memory) Bytes() []byte {
	return m.data
}

// Frame returns the bytes of one frame. Writes to the returned slice go
// straight into physical memory.
func (m *Memory) Frame(frame int) []byte {
	m.frameMustExist(frame)

	start := frame * m.pageSize

	return m.data[start : start+m.pageSize : start+m.pageSize]
}

// ZeroFrame clears a frame.
func (m *Memory) ZeroFrame(frame int) {
	clear(m.Frame(frame))
}

// CopyFrame copies the whole content of frame src into frame dst.
func (m *Memory) CopyFrame(dst, src int) {
	copy(m.Frame(dst), m.Frame(src))
}

// Read returns a copy of length bytes starting at a physical address.
func (m *Memory) Read(address, length int) ([]byte, error) {
	if err := m.rangeMustBeValid(address, length); err != nil {
		return nil, err
	}

	res := make([]byte, length)
	copy(res, m.data[address:address+length])

	return res, nil
}

// Write stores data starting at a physical address.
func (m *Memory) Write(address int, data []byte) error {
	if err := m.rangeMustBeValid(address, len(data)); err != nil {
		return err
	}

	copy(m.data[address:], data)

	return nil
}

func (m *Memory) rangeMustBeValid(address, length int) error {
	if address < 0 || length < 0 || address+length > len(m.data) {
		return fmt.Errorf("%w: [%d, %d) beyond %d bytes",
			ErrAddress, address, address+length, len(m.data))
	}

	return nil
}

func (m *Memory) frameMustExist(frame int) {
	if frame < 0 || frame >= m.numFrames {
		panic(fmt.Sprintf("frame %d does not exist", frame))
	}
}
