package cart

import (
	"encoding/binary"
	"testing"
)

// buildROM assembles an image with the logo, a title and both checksums set.
// size should match the ROM size code (e.g. 64*1024 for code 0x01).
func buildROM(title string, cartType, romSizeCode, ramSizeCode byte, size int) []byte {
	rom := make([]byte, size)
	copy(rom[0x0104:], nintendoLogo[:])
	copy(rom[0x0134:0x0143], title)
	rom[0x0147], rom[0x0148], rom[0x0149] = cartType, romSizeCode, ramSizeCode
	rom[0x014B] = 0x33
	rom[0x014D] = headerChecksum(rom)
	binary.BigEndian.PutUint16(rom[0x014E:], globalSum(rom))
	return rom
}

// globalSum adds every byte except the two that hold it.
func globalSum(rom []byte) uint16 {
	var sum uint16
	for i, b := range rom {
		if i != 0x014E && i != 0x014F {
			sum += uint16(b)
		}
	}
	return sum
}

func TestParseHeader_Basic(t *testing.T) {
	rom := buildROM("TEST", 0x01, 0x01, 0x02, 64*1024) // MBC1, 64KiB, 8KiB RAM

	h, err := ParseHeader(rom)
	if err != nil {
		t.Fatalf("ParseHeader error: %v", err)
	}
	if h.Title != "TEST" {
		t.Fatalf("Title got %q want %q", h.Title, "TEST")
	}
	if h.CartType != 0x01 || h.CartTypeStr != "MBC1" || h.Mapper != MapperMBC1 {
		t.Fatalf("CartType got %#02x / %s", h.CartType, h.CartTypeStr)
	}
	if h.ROMSizeBytes != 64*1024 || h.ROMBanks != 4 {
		t.Fatalf("ROM size decode got %d bytes / %d banks", h.ROMSizeBytes, h.ROMBanks)
	}
	if h.RAMSizeBytes != 8*1024 {
		t.Fatalf("RAM size decode got %d", h.RAMSizeBytes)
	}
	if !HeaderChecksumOK(rom) {
		t.Fatalf("HeaderChecksumOK = false, want true")
	}

	gsum := globalSum(rom)
	if h.GlobalChecksum != gsum {
		t.Fatalf("Global checksum got %#04x want %#04x", h.GlobalChecksum, gsum)
	}
}

func TestHeaderChecksum_Bad(t *testing.T) {
	rom := buildROM("TEST", 0x00, 0x00, 0x00, 32*1024)
	rom[0x0134] ^= 0xFF // corrupt a header byte
	if HeaderChecksumOK(rom) {
		t.Fatalf("HeaderChecksumOK = true, want false after corruption")
	}
}

func TestParseHeader_ShortROM(t *testing.T) {
	short := make([]byte, 0x140) // too small (header needs through 0x014F)
	if _, err := ParseHeader(short); err == nil {
		t.Fatalf("expected error on too-small ROM, got nil")
	}
}

func TestParseHeader_MapperTable(t *testing.T) {
	cases := []struct {
		typ     byte
		mapper  Mapper
		battery bool
	}{
		{0x00, MapperNone, false},
		{0x03, MapperMBC1, true},
		{0x06, MapperMBC2, true},
		{0x0D, MapperMBC1, true},
		{0x10, MapperMBC3, true},
		{0x1B, MapperMBC5, true},
		{0x1C, MapperMBC5, false},
		{0x20, MapperUnsupported, false},
		{0x42, MapperUnsupported, false},
	}
	for _, c := range cases {
		h, err := ParseHeader(buildROM("T", c.typ, 0x00, 0x00, 32*1024))
		if err != nil {
			t.Fatalf("type %02X: %v", c.typ, err)
		}
		if h.Mapper != c.mapper || h.Battery != c.battery {
			t.Fatalf("type %02X got %v battery=%v want %v battery=%v", c.typ, h.Mapper, h.Battery, c.mapper, c.battery)
		}
	}
}

func TestParseHeader_SizeCodes(t *testing.T) {
	rom := buildROM("T", 0x1B, 0x05, 0x01, 32*1024)
	h, _ := ParseHeader(rom)
	if h.ROMSizeBytes != 1024*1024 || h.ROMBanks != 64 {
		t.Fatalf("ROM size got %d / %d banks", h.ROMSizeBytes, h.ROMBanks)
	}
	if h.RAMSizeBytes != 2*1024 {
		t.Fatalf("RAM size got %d want 2048", h.RAMSizeBytes)
	}
	if !h.LogoOK {
		t.Fatalf("logo not recognised")
	}

	h, _ = ParseHeader(buildROM("T", 0x06, 0x00, 0x00, 32*1024))
	if h.RAMSizeBytes != 512 {
		t.Fatalf("MBC2 RAM got %d want 512", h.RAMSizeBytes)
	}
}
