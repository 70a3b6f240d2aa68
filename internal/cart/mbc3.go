package cart

// MBC3 without the clock chip:
// - 0000-1FFF: RAM enable (0x0A in low nibble)
// - 2000-3FFF: ROM bank low 7 bits (0 maps to 1)
// - 4000-5FFF: RAM bank 0-3; 08-0C select clock registers, which read 0xFF
// - 6000-7FFF: clock latch, ignored
type MBC3 struct {
	banked

	bank   byte
	ramSel byte
}

func NewMBC3(rom []byte, ramSize int) *MBC3 {
	m := &MBC3{banked: newBanked(rom, ramSize), bank: 1}
	m.setROM(1)
	return m
}

func (m *MBC3) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return m.readROM(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramSel > 0x03 {
			return 0xFF
		}
		return m.readRAM(addr)
	}
	return 0xFF
}

func (m *MBC3) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.state.RAMEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		m.bank = value & 0x7F
		if m.bank == 0 {
			m.bank = 1
		}
		m.setROM(int(m.bank))
	case addr < 0x6000:
		m.ramSel = value
		if value <= 0x03 {
			m.setRAM(int(value))
		}
	case addr < 0x8000:
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramSel <= 0x03 {
			m.writeRAM(addr, value)
		}
	}
}

func (m *MBC3) SaveState() []byte { return m.encode([4]byte{m.bank, m.ramSel}) }

func (m *MBC3) LoadState(data []byte) error {
	regs, err := m.decode(data)
	if err != nil {
		return err
	}
	m.bank, m.ramSel = regs[0], regs[1]
	m.setROM(int(m.bank))
	return nil
}
