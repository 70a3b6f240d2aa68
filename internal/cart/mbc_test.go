package cart

import "testing"

func TestMBC2_BankAndRAMSelectByAddressBit8(t *testing.T) {
	m := NewMBC2(bankedROM(0x06, 0x03, 0x00)) // 16 banks

	m.Write(0x2100, 0x05)
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank got %02X want 05", got)
	}
	m.Write(0x2100, 0x10) // low nibble 0 aliases to 1
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank got %02X want 01", got)
	}
	// Bit 8 clear: RAM enable, bank untouched.
	m.Write(0x0000, 0x0A)
	if got := m.Banks().ROMBank; got != 1 {
		t.Fatalf("RAM enable changed bank to %d", got)
	}
	m.Write(0xA000, 0xAB)
	if got := m.Read(0xA000); got != 0xFB {
		t.Fatalf("nibble RAM got %02X want FB", got)
	}
	if got := m.Read(0xA200); got != 0xFB {
		t.Fatalf("mirror got %02X want FB", got)
	}
	if n := len(m.SaveRAM()); n != 512 {
		t.Fatalf("save size got %d want 512", n)
	}
}

func TestMBC3_BanksAndClockSelect(t *testing.T) {
	m := NewMBC3(bankedROM(0x13, 0x06, 0x03), 32*1024)
	m.Write(0x2000, 0x45)
	if got := m.Read(0x4000); got != 0x45 {
		t.Fatalf("bank got %02X want 45", got)
	}
	m.Write(0x2000, 0x00)
	if got := m.Banks().ROMBank; got != 1 {
		t.Fatalf("bank got %d want 1", got)
	}

	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x03)
	m.Write(0xBFFF, 0x5A)
	if got := m.Read(0xBFFF); got != 0x5A {
		t.Fatalf("RAM bank3 got %02X want 5A", got)
	}
	m.Write(0x4000, 0x08)
	if got := m.Read(0xBFFF); got != 0xFF {
		t.Fatalf("clock register read got %02X want FF", got)
	}
}

func TestMBC5_NineBitBank(t *testing.T) {
	m := NewMBC5(bankedROM(0x19, 0x08, 0x00), 0) // 512 banks
	m.Write(0x2000, 0x00)
	if got := m.Read(0x4000); got != 0x00 {
		t.Fatalf("bank 0 selectable: got %02X", got)
	}
	m.Write(0x2000, 0x34)
	m.Write(0x3000, 0x01)
	if got := m.Banks().ROMBank; got != 0x134 {
		t.Fatalf("bank got %03X want 134", got)
	}
	if lo, hi := m.Read(0x4000), m.Read(0x4001); lo != 0x34 || hi != 0x01 {
		t.Fatalf("window got %02X%02X want 0134", hi, lo)
	}
}

func TestMBC5_BankMaskedByCount(t *testing.T) {
	m := NewMBC5(bankedROM(0x19, 0x01, 0x00), 0) // 4 banks
	m.Write(0x2000, 0x07)
	if got := m.Banks().ROMBank; got != 3 {
		t.Fatalf("bank got %d want 3", got)
	}
}

func TestROMOnly_RAMAlwaysEnabled(t *testing.T) {
	c, err := New(bankedROM(0x09, 0x00, 0x02))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Write(0xA123, 0x11)
	if got := c.Read(0xA123); got != 0x11 {
		t.Fatalf("RAM got %02X want 11", got)
	}
	c.Write(0x2000, 0x01)
	if got := c.Read(0x0147); got != 0x09 {
		t.Fatalf("ROM changed by write: %02X", got)
	}
}

func TestDefaultROM_Header(t *testing.T) {
	rom := DefaultROM()
	if !HeaderChecksumOK(rom) {
		t.Fatalf("default ROM header checksum invalid")
	}
	h, err := ParseHeader(rom)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Mapper != MapperNone || h.Title != "DMGCORE" || !h.LogoOK {
		t.Fatalf("header got %+v", h)
	}
	if rom[0x0101] != 0xC3 || rom[0x0150] != 0xF3 {
		t.Fatalf("entry point not wired")
	}
}

func TestPatchIdleLoops(t *testing.T) {
	rom := make([]byte, 0x8000)
	copy(rom[0x200:], []byte{0xF0, 0x85, 0xA7, 0x28, 0xFB})
	copy(rom[0x300:], []byte{0xFA, 0x34, 0xC2, 0xB7, 0x28, 0xFA})
	copy(rom[0x400:], []byte{0xBE, 0x20, 0xFD})
	copy(rom[0x500:], []byte{0xF0, 0xCC, 0xA7, 0x28, 0xFB}) // excluded register
	copy(rom[0x3FFE:], []byte{0xBE, 0x20})                 // straddles banks
	rom[0x4000] = 0xFD

	if n := PatchIdleLoops(rom); n != 3 {
		t.Fatalf("patched %d loops want 3", n)
	}
	check := func(at int, want []byte) {
		t.Helper()
		for i, b := range want {
			if rom[at+i] != b {
				t.Fatalf("%04X: got % X want % X", at, rom[at:at+len(want)], want)
			}
		}
	}
	check(0x200, []byte{0x00, 0x00, IdleOpLDH, 0x85, 0xA7})
	check(0x300, []byte{0x00, 0x00, IdleOpLD, 0x34, 0xC2, 0xB7})
	check(0x400, []byte{0x00, IdleOpCPHL, 0xBE})
	check(0x500, []byte{0xF0, 0xCC, 0xA7, 0x28, 0xFB})
	check(0x3FFE, []byte{0xBE, 0x20, 0xFD})
}
