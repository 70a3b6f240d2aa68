package cart

// MBC5 splits a 9-bit ROM bank over 2000-2FFF (low 8) and 3000-3FFF (bit 8).
// Unlike MBC1, bank 0 is selectable in the switchable window.
type MBC5 struct {
	banked

	lo, hi byte
	ramSel byte
}

func NewMBC5(rom []byte, ramSize int) *MBC5 {
	m := &MBC5{banked: newBanked(rom, ramSize), lo: 1}
	m.setROM(1)
	return m
}

func (m *MBC5) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return m.readROM(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.readRAM(addr)
	}
	return 0xFF
}

func (m *MBC5) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.state.RAMEnabled = value&0x0F == 0x0A
	case addr < 0x3000:
		m.lo = value
		m.setROM(int(m.hi)<<8 | int(m.lo))
	case addr < 0x4000:
		m.hi = value & 0x01
		m.setROM(int(m.hi)<<8 | int(m.lo))
	case addr < 0x6000:
		// Bit 3 drives the rumble motor on rumble carts.
		m.ramSel = value & 0x0F
		m.setRAM(int(m.ramSel))
	case addr >= 0xA000 && addr <= 0xBFFF:
		m.writeRAM(addr, value)
	}
}

func (m *MBC5) SaveState() []byte { return m.encode([4]byte{m.lo, m.hi, m.ramSel}) }

func (m *MBC5) LoadState(data []byte) error {
	regs, err := m.decode(data)
	if err != nil {
		return err
	}
	m.lo, m.hi, m.ramSel = regs[0], regs[1], regs[2]
	m.setROM(int(m.hi)<<8 | int(m.lo))
	m.setRAM(int(m.ramSel))
	return nil
}
