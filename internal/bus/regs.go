package bus

// I/O register offsets relative to 0xFF00.
const (
	RegP1    = 0x00
	RegSB    = 0x01
	RegSC    = 0x02
	RegDIVLo = 0x03 // low byte of the divider counter; reads as unmapped
	RegDIV   = 0x04
	RegTIMA  = 0x05
	RegTMA   = 0x06
	RegTAC   = 0x07
	RegIF    = 0x0F

	RegNR10 = 0x10
	RegNR11 = 0x11
	RegNR12 = 0x12
	RegNR13 = 0x13
	RegNR14 = 0x14
	RegNR21 = 0x16
	RegNR22 = 0x17
	RegNR23 = 0x18
	RegNR24 = 0x19
	RegNR30 = 0x1A
	RegNR31 = 0x1B
	RegNR32 = 0x1C
	RegNR33 = 0x1D
	RegNR34 = 0x1E
	RegNR41 = 0x20
	RegNR42 = 0x21
	RegNR43 = 0x22
	RegNR44 = 0x23
	RegNR50 = 0x24
	RegNR51 = 0x25
	RegNR52 = 0x26
	RegWave = 0x30

	RegLCDC = 0x40
	RegSTAT = 0x41
	RegSCY  = 0x42
	RegSCX  = 0x43
	RegLY   = 0x44
	RegLYC  = 0x45
	RegDMA  = 0x46
	RegBGP  = 0x47
	RegOBP0 = 0x48
	RegOBP1 = 0x49
	RegWY   = 0x4A
	RegWX   = 0x4B
	RegBoot = 0x50
)

// Interrupt bits in IF/IE, in priority order.
const (
	IntVBlank = iota
	IntSTAT
	IntTimer
	IntSerial
	IntJoypad
)

// ioReadMask is OR-ed into every I/O read: unused and write-only bits read
// back as 1, unmapped offsets read 0xFF.
var ioReadMask = func() (m [0x80]byte) {
	for i := range m {
		m[i] = 0xFF
	}
	set := func(reg int, mask byte) { m[reg] = mask }
	set(RegP1, 0xC0)
	set(RegSB, 0x00)
	set(RegSC, 0x7E)
	set(RegDIV, 0x00)
	set(RegTIMA, 0x00)
	set(RegTMA, 0x00)
	set(RegTAC, 0xF8)
	set(RegIF, 0xE0)

	for reg, mask := range map[int]byte{
		RegNR10: 0x80, RegNR11: 0x3F, RegNR12: 0x00, RegNR13: 0xFF, RegNR14: 0xBF,
		RegNR21: 0x3F, RegNR22: 0x00, RegNR23: 0xFF, RegNR24: 0xBF,
		RegNR30: 0x7F, RegNR31: 0xFF, RegNR32: 0x9F, RegNR33: 0xFF, RegNR34: 0xBF,
		RegNR41: 0xFF, RegNR42: 0x00, RegNR43: 0x00, RegNR44: 0xBF,
		RegNR50: 0x00, RegNR51: 0x00, RegNR52: 0x70,
	} {
		set(reg, mask)
	}
	for reg := RegWave; reg < RegWave+16; reg++ {
		set(reg, 0x00)
	}
	for reg := RegLCDC; reg <= RegWX; reg++ {
		set(reg, 0x00)
	}
	set(RegSTAT, 0x80)
	return m
}()
