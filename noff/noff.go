// Package noff reads and writes the header of NOFF executables, the simple
// object format the simulated machine loads user programs from.
package noff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
)

// Magic identifies a NOFF file.
const Magic uint32 = 0x00badfad

// HeaderSize is the encoded size of a Header in bytes.
const HeaderSize = 40

// ErrBadMagic is returned when a file does not start with the NOFF magic
// number, in either byte order.
var ErrBadMagic = errors.New("not a NOFF executable")

// ErrBadSegment is returned for headers whose segments cannot be laid out.
var ErrBadSegment = errors.New("bad NOFF segment")

// MaxProgramSize bounds the in-memory size of a program, stack excluded.
const MaxProgramSize = 1 << 24

// Segment locates one part of the program in the file and in the virtual
// address space.
type Segment struct {
	VirtualAddr int32 // location of segment in virtual address space
	InFileAddr  int32 // location of segment in the file
	Size        int32
}

// Header describes the segments of an executable.
type Header struct {
	Magic      uint32
	Code       Segment // executable code segment
	InitData   Segment // initialized data segment
	UninitData Segment // uninitialized data segment, zeroed at start
}

// Size is the number of bytes the program occupies in memory, stack excluded.
func (h Header) Size() int {
	return int(h.Code.Size) + int(h.InitData.Size) + int(h.UninitData.Size)
}

// ReadHeader parses the header at the start of r. Headers written with the
// other byte order are swapped word by word.
func ReadHeader(r io.ReaderAt) (Header, error) {
	buf := make([]byte, HeaderSize)

	n, err := r.ReadAt(buf, 0)
	if n < HeaderSize {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return Header{}, fmt.Errorf("reading NOFF header: %w", err)
	}

	words := make([]uint32, HeaderSize/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}

	if words[0] != Magic {
		if bits.ReverseBytes32(words[0]) != Magic {
			return Header{}, fmt.Errorf("%w: magic 0x%08x", ErrBadMagic, words[0])
		}

		for i := range words {
			words[i] = bits.ReverseBytes32(words[i])
		}
	}

	h := Header{
		Magic:      words[0],
		Code:       segmentFromWords(words[1:4]),
		InitData:   segmentFromWords(words[4:7]),
		UninitData: segmentFromWords(words[7:10]),
	}

	err = h.validate()
	if err != nil {
		return Header{}, err
	}

	return h, nil
}

func (h Header) validate() error {
	segments := []struct {
		name string
		seg  Segment
	}{
		{"code", h.Code},
		{"initialized data", h.InitData},
		{"uninitialized data", h.UninitData},
	}

	for _, s := range segments {
		if s.seg.Size < 0 || s.seg.VirtualAddr < 0 || s.seg.InFileAddr < 0 {
			return fmt.Errorf("%w: %s segment %+v", ErrBadSegment, s.name, s.seg)
		}
	}

	if h.Size() > MaxProgramSize {
		return fmt.Errorf("%w: program of %d bytes exceeds %d",
			ErrBadSegment, h.Size(), MaxProgramSize)
	}

	return nil
}

func segmentFromWords(w []uint32) Segment {
	return Segment{
		VirtualAddr: int32(w[0]),
		InFileAddr:  int32(w[1]),
		Size:        int32(w[2]),
	}
}

// Encode serializes the header in little-endian order.
func (h Header) Encode() []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = binary.LittleEndian.AppendUint32(buf, h.Magic)

	for _, s := range []Segment{h.Code, h.InitData, h.UninitData} {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(s.VirtualAddr))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(s.InFileAddr))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(s.Size))
	}

	return buf
}

// Build lays out a complete executable: the header, then the code and the
// initialized data right after it. Code is mapped at virtual address 0 and
// data follows it.
func Build(code, initData []byte, uninitSize int) []byte {
	h := Header{
		Magic: Magic,
		Code: Segment{
			VirtualAddr: 0,
			InFileAddr:  HeaderSize,
			Size:        int32(len(code)),
		},
		InitData: Segment{
			VirtualAddr: int32(len(code)),
			InFileAddr:  int32(HeaderSize + len(code)),
			Size:        int32(len(initData)),
		},
		UninitData: Segment{
			VirtualAddr: int32(len(code) + len(initData)),
			Size:        int32(uninitSize),
		},
	}

	out := h.Encode()
	out = append(out, code...)
	out = append(out, initData...)

	return out
}
