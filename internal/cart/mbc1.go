package cart

// MBC1 combines a 5-bit low bank register with a 2-bit register that either
// extends the ROM bank (mode 0) or selects the RAM bank and the bank seen at
// 0x0000 (mode 1).
type MBC1 struct {
	banked

	lo   byte // 1..31, a written 0 reads as 1
	hi   byte
	mode byte
}

func NewMBC1(rom []byte, ramSize int) *MBC1 {
	m := &MBC1{banked: newBanked(rom, ramSize), lo: 1}
	m.remap()
	return m
}

func (m *MBC1) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return m.readROM(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.readRAM(addr)
	}
	return 0xFF
}

func (m *MBC1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.state.RAMEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		m.lo = value & 0x1F
		if m.lo == 0 {
			m.lo = 1
		}
		m.remap()
	case addr < 0x6000:
		m.hi = value & 0x03
		m.remap()
	case addr < 0x8000:
		m.mode = value & 0x01
		m.remap()
	case addr >= 0xA000 && addr <= 0xBFFF:
		m.writeRAM(addr, value)
	}
}

func (m *MBC1) remap() {
	m.state.Mode = m.mode
	m.setROM(int(m.hi)<<5 | int(m.lo))
	if m.mode == 1 {
		m.setROM0(int(m.hi) << 5)
		m.setRAM(int(m.hi))
	} else {
		m.setROM0(0)
		m.setRAM(0)
	}
}

func (m *MBC1) SaveState() []byte { return m.encode([4]byte{m.lo, m.hi, m.mode}) }

func (m *MBC1) LoadState(data []byte) error {
	regs, err := m.decode(data)
	if err != nil {
		return err
	}
	m.lo, m.hi, m.mode = regs[0], regs[1], regs[2]
	m.remap()
	return nil
}
