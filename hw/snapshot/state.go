package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Version is the only save-state format version we know how to read.
const Version = 1

// Sizes of the raw memory dumps.
const (
	CPUMemSize = 0x10000
	PPUMemSize = 0x8000
	SprMemSize = 0x100
)

var ErrBadVersion = errors.New("unsupported save-state version")

// NES is a whole console save-state. The byte stream layout is, in order:
// version byte, CPU memory, PPU memory, sprite memory, CPU block, mapper
// block (length-prefixed) and PPU block. Multi-byte values are big-endian.
type NES struct {
	Version uint8
	CPUMem  []byte
	PPUMem  []byte
	SprMem  []byte
	CPU     CPU
	Mapper  []byte
	PPU     PPU
}

type CPU struct {
	PC uint16
	SP uint8
	P  uint8
	A  uint8
	X  uint8
	Y  uint8

	Cycles     uint64
	IRQFlag    uint8
	NMIPending bool
	HaltCycles uint32
}

type PPU struct {
	PPUCTRL   uint8
	PPUMASK   uint8
	PPUSTATUS uint8
	OAMAddr   uint8

	VRAMAddr   uint16
	VRAMTemp   uint16
	FineX      uint8
	WriteLatch bool
	DataBuf    uint8
	OpenBus    uint8

	Mirroring uint8
	Cycle     uint16
	Scanline  int16
	Frame     uint32
	OddFrame  bool
	NMIOut    bool

	// Rendering pipeline, prefetched ahead of the current dot.
	BgLatches     [4]uint8 // nametable, attribute, pattern low and high
	BgTileData    uint64
	SprCount      uint8
	SprPatterns   [8]uint32
	SprPositions  [8]uint8
	SprPriorities [8]uint8
	SprIndexes    [8]uint8
}

// Encode writes the save-state into w.
func (s *NES) Encode(w io.Writer) error {
	if len(s.CPUMem) != CPUMemSize || len(s.PPUMem) != PPUMemSize || len(s.SprMem) != SprMemSize {
		return fmt.Errorf("snapshot: invalid memory dump sizes")
	}

	var hdr [1]byte
	hdr[0] = s.Version
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	for _, mem := range [][]byte{s.CPUMem, s.PPUMem, s.SprMem} {
		if _, err := w.Write(mem); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, &s.CPU); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(s.Mapper))); err != nil {
		return err
	}
	if _, err := w.Write(s.Mapper); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, &s.PPU)
}

// Decode reads a whole save-state from r. The version is checked before
// anything else is read.
func (s *NES) Decode(r io.Reader) error {
	var hdr [1]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return fmt.Errorf("snapshot: version: %w", err)
	}
	if hdr[0] != Version {
		return fmt.Errorf("%w: %d", ErrBadVersion, hdr[0])
	}
	s.Version = hdr[0]

	s.CPUMem = make([]byte, CPUMemSize)
	s.PPUMem = make([]byte, PPUMemSize)
	s.SprMem = make([]byte, SprMemSize)
	for _, mem := range [][]byte{s.CPUMem, s.PPUMem, s.SprMem} {
		if _, err := io.ReadFull(r, mem); err != nil {
			return fmt.Errorf("snapshot: memory: %w", err)
		}
	}
	if err := binary.Read(r, binary.BigEndian, &s.CPU); err != nil {
		return fmt.Errorf("snapshot: cpu: %w", err)
	}

	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return fmt.Errorf("snapshot: mapper: %w", err)
	}
	if n > 1<<16 {
		return fmt.Errorf("snapshot: mapper block too large (%d bytes)", n)
	}
	s.Mapper = make([]byte, n)
	if _, err := io.ReadFull(r, s.Mapper); err != nil {
		return fmt.Errorf("snapshot: mapper: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &s.PPU); err != nil {
		return fmt.Errorf("snapshot: ppu: %w", err)
	}
	return nil
}
