package cart

// Opcodes left undefined by the CPU that PatchIdleLoops rewrites busy-wait
// loops into. A CPU that has idle opcodes disabled locks up on them.
const (
	IdleOpLDH  byte = 0xD3 // D3 n:    repeat LDH A,(n) while A == 0
	IdleOpCPHL byte = 0xDB // DB:      repeat while (HL) != A
	IdleOpLD   byte = 0xDD // DD lo hi: repeat LD A,(hi:lo) while A == 0
)

// PatchIdleLoops rewrites three common polling loops in place and returns
// how many it replaced:
//
//	F0 n  A7|B7 28 FB   LDH A,(n); AND/OR A; JR Z,-5  ->  00 00 D3 n A7|B7
//	FA lo hi A7|B7 28 FA   LD A,(nn); AND/OR A; JR Z,-6  ->  00 00 DD lo hi A7|B7
//	BE 20 FD            CP (HL); JR NZ,-3           ->  00 DB BE
//
// The trailing AND/OR/CP still runs once the wait ends, so flags match the
// original loop's exit. A jump into the middle of a matched sequence breaks
// the rewrite; callers opt in.
func PatchIdleLoops(rom []byte) int {
	n := 0
	for i := 0; i < len(rom); i++ {
		// Patterns never straddle a bank boundary.
		room := romBankSize - i%romBankSize
		if room > len(rom)-i {
			room = len(rom) - i
		}
		p := rom[i:]
		switch {
		case room >= 5 && p[0] == 0xF0 && p[1] != 0xCC && isTest(p[2]) && p[3] == 0x28 && p[4] == 0xFB:
			reg, test := p[1], p[2]
			copy(p, []byte{0x00, 0x00, IdleOpLDH, reg, test})
			n++
			i += 4
		case room >= 6 && p[0] == 0xFA && isTest(p[3]) && p[4] == 0x28 && p[5] == 0xFA:
			lo, hi, test := p[1], p[2], p[3]
			copy(p, []byte{0x00, 0x00, IdleOpLD, lo, hi, test})
			n++
			i += 5
		case room >= 3 && p[0] == 0xBE && p[1] == 0x20 && p[2] == 0xFD:
			copy(p, []byte{0x00, IdleOpCPHL, 0xBE})
			n++
			i += 2
		}
	}
	return n
}

// isTest matches AND A and OR A.
func isTest(op byte) bool { return op == 0xA7 || op == 0xB7 }
