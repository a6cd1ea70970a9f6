// Package ines implements a Reader for roms in the iNES file format, used for
// the distribution of NES binary programs. NES 2.0 headers are recognized.
package ines

import (
	"errors"
	"fmt"
	"io"
	"os"

	"nesemu/hw/hwdefs"
)

const Magic = "NES\x1a"

const (
	headerSize  = 16
	trainerSize = 512
	prgUnit     = 16384
	chrUnit     = 8192
)

var (
	ErrInvalidMagic = errors.New("invalid magic number")
	ErrTruncated    = errors.New("truncated rom")
)

type Rom struct {
	header
	Trainer []byte // Trainer, 512 bytes if present, or empty.
	PRG     []byte // PRG is PRG ROM data (length is multiples of 16k)
	CHR     []byte // CHR is CHR ROM data (length is multiples of 8k), empty for CHR RAM
}

// Open loads a rom from file.
func Open(path string) (*Rom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rom := new(Rom)
	if _, err := rom.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rom, nil
}

// ReadFrom implements io.ReaderFrom interface
func (rom *Rom) ReadFrom(r io.Reader) (int64, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	// header
	var off int
	if err := rom.decode(buf); err != nil {
		return 0, fmt.Errorf("failed to decode header: %w", err)
	}
	off += headerSize

	// trainer
	if rom.HasTrainer() {
		if len(buf) < off+trainerSize {
			return 0, fmt.Errorf("%w: incomplete TRAINER section", ErrTruncated)
		}
		rom.Trainer = buf[off : off+trainerSize]
		off += trainerSize
	}

	// PRG rom data
	if len(buf) < off+rom.prgsz {
		return 0, fmt.Errorf("%w: incomplete PRG section", ErrTruncated)
	}
	rom.PRG = buf[off : off+rom.prgsz]
	off += rom.prgsz

	// CHR rom data
	if len(buf) < off+rom.chrsz {
		return 0, fmt.Errorf("%w: incomplete CHR section", ErrTruncated)
	}
	rom.CHR = buf[off : off+rom.chrsz]

	return int64(len(buf)), nil
}

type header struct {
	raw   [headerSize]byte
	prgsz int
	chrsz int
}

func (hdr *header) decode(p []byte) error {
	if len(p) < headerSize {
		return fmt.Errorf("%w: header needs %d bytes", ErrTruncated, headerSize)
	}
	if string(p[:4]) != Magic {
		return ErrInvalidMagic
	}
	copy(hdr.raw[:], p[:headerSize])

	prgBanks, chrBanks := int(hdr.raw[4]), int(hdr.raw[5])
	if hdr.IsNES2() {
		prgBanks |= int(hdr.raw[9]&0x0F) << 8
		chrBanks |= int(hdr.raw[9]>>4) << 8
	}
	hdr.prgsz = prgBanks * prgUnit
	hdr.chrsz = chrBanks * chrUnit
	if hdr.prgsz == 0 {
		return fmt.Errorf("rom has no PRG ROM")
	}
	return nil
}

// IsNES2 reports whether the header uses the NES 2.0 format.
func (hdr *header) IsNES2() bool {
	return hdr.raw[7]&0x0C == 0x08
}

// legacy reports whether bytes 12-15 of an iNES 1.0 header contain garbage,
// like the "DiskDude!" signature some dumping tools wrote there.
func (hdr *header) legacy() bool {
	if hdr.IsNES2() {
		return false
	}
	for _, b := range hdr.raw[12:] {
		if b != 0 {
			return true
		}
	}
	return false
}

// HasTrainer indicates the presence of a trainer section in the rom.
func (hdr *header) HasTrainer() bool {
	return hdr.raw[6]&0x04 != 0
}

// HasPersistent indicates the presence of battery-backed memory in the rom.
func (hdr *header) HasPersistent() bool {
	return hdr.raw[6]&0x02 != 0
}

// Mapper returns the mapper number.
func (hdr *header) Mapper() uint16 {
	m := uint16(hdr.raw[6] >> 4)
	if !hdr.legacy() {
		m |= uint16(hdr.raw[7] & 0xF0)
	}
	if hdr.IsNES2() {
		m |= uint16(hdr.raw[8]&0x0F) << 8
	}
	return m
}

// SubMapper returns the NES 2.0 submapper number, or 0.
func (hdr *header) SubMapper() uint8 {
	if !hdr.IsNES2() {
		return 0
	}
	return hdr.raw[8] >> 4
}

// Mirroring returns the nametable mirroring hardwired on the cartridge.
func (hdr *header) Mirroring() hwdefs.Mirroring {
	switch {
	case hdr.raw[6]&0x08 != 0:
		return hwdefs.FourScreen
	case hdr.raw[6]&0x01 != 0:
		return hwdefs.VertMirroring
	}
	return hwdefs.HorzMirroring
}

// PRGRAMSize returns the size of the PRG RAM, in bytes.
func (hdr *header) PRGRAMSize() int {
	if hdr.IsNES2() {
		if shift := hdr.raw[10] & 0x0F; shift != 0 {
			return 64 << shift
		}
		return 0
	}
	// 0 infers 8KB for compatibility.
	if hdr.legacy() {
		return 0x2000
	}
	return max(int(hdr.raw[8]), 1) * 0x2000
}

// HasCHRRAM reports whether the cartridge uses CHR RAM instead of CHR ROM.
func (hdr *header) HasCHRRAM() bool {
	return hdr.chrsz == 0
}

func (hdr *header) PRGSize() int { return hdr.prgsz }
func (hdr *header) CHRSize() int { return hdr.chrsz }
