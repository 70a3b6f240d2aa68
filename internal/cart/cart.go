package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedMapper is returned together with a usable ROM-only cartridge
	// when the header names a mapper chip that is not emulated.
	ErrUnsupportedMapper = errors.New("unsupported mapper")
	// ErrROMTooSmall means the image cannot even hold a header.
	ErrROMTooSmall = errors.New("ROM too small to contain header")
)

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

// Cartridge is the bank-switched ROM/RAM window the bus delegates
// 0x0000-0x7FFF and 0xA000-0xBFFF to.
type Cartridge interface {
	// Read returns a byte for ROM (0x0000-0x7FFF) and external RAM (0xA000-0xBFFF).
	Read(addr uint16) byte
	// Write handles bank-control writes (0x0000-0x7FFF) and external RAM writes (0xA000-0xBFFF).
	Write(addr uint16, value byte)
	// Banks reports the currently mapped bank indices.
	Banks() BankState
	// SaveState/LoadState serialize banking registers and external RAM for save states.
	SaveState() []byte
	LoadState(data []byte) error
}

// BatteryBacked is implemented by cartridges owning external RAM.
// SaveRAM returns a copy; LoadRAM zero-fills whatever data does not cover.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// New picks an implementation from the header's mapper byte. An unknown
// mapper still yields a ROM-only cartridge alongside an error wrapping
// ErrUnsupportedMapper, so callers can report and keep running.
func New(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewROMOnly(rom, 0), err
	}
	switch h.Mapper {
	case MapperNone:
		return NewROMOnly(rom, h.RAMSizeBytes), nil
	case MapperMBC1:
		return NewMBC1(rom, h.RAMSizeBytes), nil
	case MapperMBC2:
		return NewMBC2(rom), nil
	case MapperMBC3:
		return NewMBC3(rom, h.RAMSizeBytes), nil
	case MapperMBC5:
		return NewMBC5(rom, h.RAMSizeBytes), nil
	}
	return NewROMOnly(rom, 0), fmt.Errorf("%w: type %02X (%s)", ErrUnsupportedMapper, h.CartType, h.CartTypeStr)
}
