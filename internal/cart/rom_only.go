package cart

// ROMOnly is a cartridge without a bank controller. Types 0x08/0x09 carry
// RAM that is always enabled.
type ROMOnly struct {
	banked
}

func NewROMOnly(rom []byte, ramSize int) *ROMOnly {
	c := &ROMOnly{banked: newBanked(rom, ramSize)}
	c.state.RAMEnabled = ramSize > 0
	return c
}

func (c *ROMOnly) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return c.readROM(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return c.readRAM(addr)
	}
	return 0xFF
}

func (c *ROMOnly) Write(addr uint16, value byte) {
	if addr >= 0xA000 && addr <= 0xBFFF {
		c.writeRAM(addr, value)
	}
}

func (c *ROMOnly) SaveState() []byte { return c.encode([4]byte{}) }

func (c *ROMOnly) LoadState(data []byte) error {
	_, err := c.decode(data)
	return err
}
