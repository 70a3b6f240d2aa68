package cart

import "encoding/binary"

// defaultProgram runs at 0x0150: wait for vblank, switch the LCD off, make
// tile 1 solid, fill the background map with alternating tiles 0 and 1,
// then switch the LCD back on and halt.
var defaultProgram = []byte{
	0xF3,             // DI
	0x31, 0xFE, 0xFF, // LD SP,FFFE
	0xF0, 0x44, // LDH A,(LY)
	0xFE, 0x90, // CP 144
	0x20, 0xFA, // JR NZ,-6
	0xAF,       // XOR A
	0xE0, 0x40, // LDH (LCDC),A
	0x21, 0x10, 0x80, // LD HL,8010
	0x06, 0x10, // LD B,16
	0x3E, 0xFF, // LD A,FF
	0x22,       // LD (HL+),A
	0x05,       // DEC B
	0x20, 0xFC, // JR NZ,-4
	0x21, 0x00, 0x98, // LD HL,9800
	0x7D,       // LD A,L
	0xE6, 0x01, // AND 1
	0x22,       // LD (HL+),A
	0x7C,       // LD A,H
	0xFE, 0x9C, // CP 9C
	0x20, 0xF7, // JR NZ,-9
	0x3E, 0xE4, 0xE0, 0x47, // BGP = E4
	0x3E, 0x91, 0xE0, 0x40, // LCDC = 91
	0x76,       // HALT
	0x18, 0xFD, // JR -3
}

// DefaultROM assembles the 32 KiB ROM-only image used when no cartridge
// could be read. Its header is valid, so it boots through a real boot ROM too.
func DefaultROM() []byte {
	rom := make([]byte, 2*romBankSize)
	copy(rom[headerStart:], []byte{0x00, 0xC3, 0x50, 0x01}) // NOP; JP 0150
	copy(rom[0x0104:], nintendoLogo[:])
	copy(rom[0x0134:0x0144], "DMGCORE")
	rom[0x014B] = 0x33
	rom[0x014D] = headerChecksum(rom)
	copy(rom[0x0150:], defaultProgram)

	var sum uint16
	for i, b := range rom {
		if i != 0x014E && i != 0x014F {
			sum += uint16(b)
		}
	}
	binary.BigEndian.PutUint16(rom[0x014E:headerEnd+1], sum)
	return rom
}
