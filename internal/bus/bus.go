// Package bus owns every byte of the address space and decodes CPU accesses
// onto cartridge, video, work and high RAM, the object table and I/O.
package bus

import (
	"io"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/input"
)

const (
	modeOAM      = 2
	modeTransfer = 3
)

type Bus struct {
	cart cart.Cartridge
	boot []byte

	vram [0x2000]byte
	wram [0x2000]byte
	oam  [0xA0]byte
	io   [0x80]byte
	hram [0x7F]byte
	ie   byte

	joypad *input.Joypad
	serial io.Writer

	// soundWrite sees every accepted write to FF10-FF3F after it is stored.
	soundWrite func(reg, value byte)
}

func New(c cart.Cartridge) *Bus {
	b := &Bus{cart: c, joypad: input.NewJoypad()}
	b.io[RegBoot] = 1
	return b
}

func (b *Bus) Cart() cart.Cartridge { return b.cart }

// SetBootROM maps a 256-byte boot image over 0x0000-0x00FF until FF50 is written.
func (b *Bus) SetBootROM(rom []byte) {
	b.boot = rom
	if len(rom) > 0 {
		b.io[RegBoot] = 0
	}
}

func (b *Bus) bootMapped() bool { return b.io[RegBoot] == 0 && len(b.boot) > 0 }

// SetSerialWriter receives every byte the program shifts out of the link port.
func (b *Bus) SetSerialWriter(w io.Writer) { b.serial = w }

// OnSoundWrite installs the hook the sound model uses to catch triggers.
func (b *Bus) OnSoundWrite(fn func(reg, value byte)) { b.soundWrite = fn }

// SetKeys forwards host key state to P1 and raises the joypad interrupt on a
// fresh press in the selected group.
func (b *Bus) SetKeys(k input.Keys) {
	if b.joypad.SetKeys(k) {
		b.RequestInterrupt(IntJoypad)
	}
}

// SetJoypadMasks takes the two active-low 4-bit group masks directly.
func (b *Bus) SetJoypadMasks(buttons, dirs byte) {
	if b.joypad.SetMasks(buttons, dirs) {
		b.RequestInterrupt(IntJoypad)
	}
}

func (b *Bus) mode() byte { return b.io[RegSTAT] & 0x03 }

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x0100 && b.bootMapped():
		return b.boot[addr]
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr < 0xA000:
		if b.mode() == modeTransfer {
			return 0xFF
		}
		return b.vram[addr-0x8000]
	case addr < 0xC000:
		return b.cart.Read(addr)
	case addr < 0xE000:
		return b.wram[addr-0xC000]
	case addr < 0xFE00:
		return b.wram[addr-0xE000]
	case addr < 0xFEA0:
		if b.mode() >= modeOAM {
			return 0xFF
		}
		return b.oam[addr-0xFE00]
	case addr < 0xFF00:
		return 0x00
	case addr < 0xFF80:
		return b.readIO(byte(addr - 0xFF00))
	case addr < 0xFFFF:
		return b.hram[addr-0xFF80]
	default:
		return b.ie
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr < 0xA000:
		if b.mode() != modeTransfer {
			b.vram[addr-0x8000] = value
		}
	case addr < 0xC000:
		b.cart.Write(addr, value)
	case addr < 0xE000:
		b.wram[addr-0xC000] = value
	case addr < 0xFE00:
		b.wram[addr-0xE000] = value
	case addr < 0xFEA0:
		if b.mode() < modeOAM {
			b.oam[addr-0xFE00] = value
		}
	case addr < 0xFF00:
	case addr < 0xFF80:
		b.writeIO(byte(addr-0xFF00), value)
	case addr < 0xFFFF:
		b.hram[addr-0xFF80] = value
	default:
		b.ie = value
	}
}

// ReadWord and WriteWord are little-endian pairs of byte accesses.
func (b *Bus) ReadWord(addr uint16) uint16 {
	return uint16(b.Read(addr)) | uint16(b.Read(addr+1))<<8
}

func (b *Bus) WriteWord(addr uint16, value uint16) {
	b.Write(addr, byte(value))
	b.Write(addr+1, byte(value>>8))
}

func (b *Bus) readIO(reg byte) byte {
	if reg == RegP1 {
		return b.joypad.Read()
	}
	return b.io[reg] | ioReadMask[reg]
}

func (b *Bus) writeIO(reg byte, value byte) {
	switch {
	case reg == RegP1:
		b.joypad.Write(value)
	case reg == RegSC:
		b.io[RegSC] = value
		if value&0x81 == 0x81 {
			b.serialTransfer()
		}
	case reg == RegDIV:
		b.io[RegDIVLo], b.io[RegDIV] = 0, 0
	case reg == RegTAC:
		b.io[RegTAC] = value & 0x07
	case reg == RegIF:
		b.io[RegIF] = value & 0x1F
	case reg >= RegNR10 && reg < RegLCDC:
		b.writeSound(reg, value)
	case reg == RegSTAT:
		b.io[RegSTAT] = b.io[RegSTAT]&0x87 | value&0x78
	case reg == RegLY:
	case reg == RegDMA:
		b.io[RegDMA] = value
		b.dma(value)
	case reg == RegBoot:
		if b.io[RegBoot] == 0 {
			b.io[RegBoot] = value
		}
	case reg > RegBoot:
	default:
		b.io[reg] = value
	}
}

// serialTransfer completes an internally clocked transfer at once. Nothing
// is connected on the other end, so the incoming byte is 0xFF.
func (b *Bus) serialTransfer() {
	if b.serial != nil {
		_, _ = b.serial.Write([]byte{b.io[RegSB]})
	}
	b.io[RegSB] = 0xFF
	b.io[RegSC] &^= 0x80
	b.RequestInterrupt(IntSerial)
}

func (b *Bus) writeSound(reg, value byte) {
	powered := b.io[RegNR52]&0x80 != 0
	switch {
	case reg == RegNR52:
		if value&0x80 == 0 {
			for r := RegNR10; r < RegNR52; r++ {
				b.io[r] = 0
			}
			b.io[RegNR52] = 0
		} else {
			b.io[RegNR52] = 0x80 | b.io[RegNR52]&0x0F
		}
	case reg >= RegWave:
		b.io[reg] = value
	case !powered:
		return
	default:
		b.io[reg] = value
	}
	if b.soundWrite != nil {
		b.soundWrite(reg, value)
	}
}

// dma copies 160 bytes from value<<8 into the object table in one go.
// Sources at E000 and above read the work RAM mirror.
func (b *Bus) dma(value byte) {
	src := uint16(value) << 8
	for i := range uint16(len(b.oam)) {
		b.oam[i] = b.dmaRead(src + i)
	}
}

func (b *Bus) dmaRead(addr uint16) byte {
	switch {
	case addr < 0x8000, addr >= 0xA000 && addr < 0xC000:
		return b.cart.Read(addr)
	case addr < 0xA000:
		return b.vram[addr-0x8000]
	default:
		return b.wram[addr&0x1FFF]
	}
}

// RequestInterrupt sets a bit in IF.
func (b *Bus) RequestInterrupt(bit int) { b.io[RegIF] |= 1 << bit }

// IO and SetIO bypass decoding and masks; they are how the timing models
// update status registers the CPU cannot write.
func (b *Bus) IO(reg byte) byte { return b.io[reg&0x7F] }

func (b *Bus) SetIO(reg, value byte) { b.io[reg&0x7F] = value }

func (b *Bus) IE() byte { return b.ie }

func (b *Bus) VRAM() *[0x2000]byte { return &b.vram }

func (b *Bus) OAM() *[0xA0]byte { return &b.oam }
