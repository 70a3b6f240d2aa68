package cart

import (
	"encoding/binary"
	"strings"
)

const (
	headerStart = 0x0100
	headerEnd   = 0x014F
)

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Mapper is the bank controller generation a cartridge type decodes to.
type Mapper uint8

const (
	MapperNone Mapper = iota
	MapperMBC1
	MapperMBC2
	MapperMBC3
	MapperMBC5
	MapperUnsupported
)

func (m Mapper) String() string {
	switch m {
	case MapperNone:
		return "none"
	case MapperMBC1:
		return "MBC1"
	case MapperMBC2:
		return "MBC2"
	case MapperMBC3:
		return "MBC3"
	case MapperMBC5:
		return "MBC5"
	}
	return "unsupported"
}

type cartType struct {
	name    string
	mapper  Mapper
	battery bool
	// extra names a peripheral the cartridge carries but that is not emulated.
	extra string
}

// cartTypes is indexed by header byte 0x147. MMM01 multicarts boot like MBC1.
var cartTypes = map[byte]cartType{
	0x00: {"ROM ONLY", MapperNone, false, ""},
	0x01: {"MBC1", MapperMBC1, false, ""},
	0x02: {"MBC1+RAM", MapperMBC1, false, ""},
	0x03: {"MBC1+RAM+BATTERY", MapperMBC1, true, ""},
	0x05: {"MBC2", MapperMBC2, false, ""},
	0x06: {"MBC2+BATTERY", MapperMBC2, true, ""},
	0x08: {"ROM+RAM", MapperNone, false, ""},
	0x09: {"ROM+RAM+BATTERY", MapperNone, true, ""},
	0x0B: {"MMM01", MapperMBC1, false, ""},
	0x0C: {"MMM01+RAM", MapperMBC1, false, ""},
	0x0D: {"MMM01+RAM+BATTERY", MapperMBC1, true, ""},
	0x0F: {"MBC3+TIMER+BATTERY", MapperMBC3, true, "timer"},
	0x10: {"MBC3+TIMER+RAM+BATTERY", MapperMBC3, true, "timer"},
	0x11: {"MBC3", MapperMBC3, false, ""},
	0x12: {"MBC3+RAM", MapperMBC3, false, ""},
	0x13: {"MBC3+RAM+BATTERY", MapperMBC3, true, ""},
	0x19: {"MBC5", MapperMBC5, false, ""},
	0x1A: {"MBC5+RAM", MapperMBC5, false, ""},
	0x1B: {"MBC5+RAM+BATTERY", MapperMBC5, true, ""},
	0x1C: {"MBC5+RUMBLE", MapperMBC5, false, "rumble"},
	0x1D: {"MBC5+RUMBLE+RAM", MapperMBC5, false, "rumble"},
	0x1E: {"MBC5+RUMBLE+RAM+BATTERY", MapperMBC5, true, "rumble"},
	0x20: {"MBC6", MapperUnsupported, false, ""},
	0x22: {"MBC7+SENSOR+RUMBLE+RAM+BATTERY", MapperUnsupported, true, ""},
	0xFC: {"POCKET CAMERA", MapperUnsupported, false, ""},
	0xFD: {"BANDAI TAMA5", MapperUnsupported, false, ""},
	0xFE: {"HuC3", MapperUnsupported, false, ""},
	0xFF: {"HuC1+RAM+BATTERY", MapperUnsupported, true, ""},
}

type Header struct {
	Title          string // (trimmed ASCII)
	CGBFlag        byte   // 0x0143
	NewLicensee    string // 0x0144-0x0145 (ASCII), if old==0x33
	SGBFlag        byte   // 0x0146
	CartType       byte   // 0x0147
	ROMSizeCode    byte   // 0x0148
	RAMSizeCode    byte   // 0x0149
	Destination    byte   // 0x014A
	OldLicensee    byte   // 0x014B
	ROMVersion     byte   // 0x014C
	HeaderChecksum byte   // 0x014D
	GlobalChecksum uint16 // 0x014E-0x014F

	// Decoded from the fields above.
	ROMSizeBytes int
	ROMBanks     int
	RAMSizeBytes int
	CartTypeStr  string
	Mapper       Mapper
	Battery      bool
	Peripheral   string
	LogoOK       bool
}

func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerEnd+1 {
		return nil, ErrROMTooSmall
	}

	// Title region is 0x0134-0x0143, the last byte doubles as the CGB flag.
	title := strings.TrimRight(string(rom[0x0134:0x0144]), "\x00")

	h := &Header{
		Title:          title,
		CGBFlag:        rom[0x0143],
		NewLicensee:    string(rom[0x0144:0x0146]),
		SGBFlag:        rom[0x0146],
		CartType:       rom[0x0147],
		ROMSizeCode:    rom[0x0148],
		RAMSizeCode:    rom[0x0149],
		Destination:    rom[0x014A],
		OldLicensee:    rom[0x014B],
		ROMVersion:     rom[0x014C],
		HeaderChecksum: rom[0x014D],
		GlobalChecksum: binary.BigEndian.Uint16(rom[0x014E:0x0150]),
		LogoOK:         [48]byte(rom[0x0104:0x0134]) == nintendoLogo,
	}

	h.ROMSizeBytes, h.ROMBanks = decodeROMSize(h.ROMSizeCode)
	h.RAMSizeBytes = decodeRAMSize(h.RAMSizeCode)
	ct, ok := cartTypes[h.CartType]
	if !ok {
		ct = cartType{name: "UNKNOWN", mapper: MapperUnsupported}
	}
	h.CartTypeStr = ct.name
	h.Mapper = ct.mapper
	h.Battery = ct.battery
	h.Peripheral = ct.extra
	if h.Mapper == MapperMBC2 {
		h.RAMSizeBytes = mbc2RAMSize
	}
	return h, nil
}

func HeaderChecksumOK(rom []byte) bool {
	if len(rom) < 0x014E {
		return false
	}
	return headerChecksum(rom) == rom[0x014D]
}

func headerChecksum(rom []byte) byte {
	var sum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		sum = sum - rom[addr] - 1
	}
	return sum
}

// decodeROMSize maps 0x148 to the declared image size: 32 KiB << code, plus
// the three odd sizes a few carts declare.
func decodeROMSize(code byte) (size, banks int) {
	switch {
	case code <= 0x08:
		size = 32 * 1024 << code
	case code == 0x52:
		size = 1152 * 1024
	case code == 0x53:
		size = 1280 * 1024
	case code == 0x54:
		size = 1536 * 1024
	default:
		return 0, 0
	}
	return size, size / romBankSize
}

func decodeRAMSize(code byte) int {
	switch code {
	case 0x01:
		return 2 * 1024
	case 0x02:
		return 8 * 1024
	case 0x03:
		return 32 * 1024
	case 0x04:
		return 128 * 1024
	case 0x05:
		return 64 * 1024
	default:
		return 0
	}
}
