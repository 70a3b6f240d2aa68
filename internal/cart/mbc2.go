package cart

const mbc2RAMSize = 512

// MBC2 has a 4-bit ROM bank register and 512 half-bytes of built-in RAM.
// Address bit 8 decides whether a 0x0000-0x3FFF write is RAM enable or bank select.
type MBC2 struct {
	banked

	bank byte
}

func NewMBC2(rom []byte) *MBC2 {
	m := &MBC2{banked: newBanked(rom, mbc2RAMSize), bank: 1}
	m.state.RAMBanks = 1
	m.setROM(1)
	return m
}

func (m *MBC2) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return m.readROM(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.state.RAMEnabled {
			return 0xFF
		}
		// Only the low nibble exists; the window mirrors every 512 bytes.
		return 0xF0 | m.ram[int(addr)&(mbc2RAMSize-1)]
	}
	return 0xFF
}

func (m *MBC2) Write(addr uint16, value byte) {
	switch {
	case addr < 0x4000:
		if addr&0x0100 == 0 {
			m.state.RAMEnabled = value&0x0F == 0x0A
			return
		}
		m.bank = value & 0x0F
		if m.bank == 0 {
			m.bank = 1
		}
		m.setROM(int(m.bank))
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.state.RAMEnabled {
			m.ram[int(addr)&(mbc2RAMSize-1)] = value & 0x0F
		}
	}
}

func (m *MBC2) LoadRAM(data []byte) {
	m.banked.LoadRAM(data)
	for i := range m.ram {
		m.ram[i] &= 0x0F
	}
}

func (m *MBC2) SaveState() []byte { return m.encode([4]byte{m.bank}) }

func (m *MBC2) LoadState(data []byte) error {
	regs, err := m.decode(data)
	if err != nil {
		return err
	}
	m.bank = regs[0]
	m.setROM(int(m.bank))
	return nil
}
