package cpu

func add8(a, b byte, carryIn bool) (res byte, z, n, h, cy bool) {
	ci := byte(0)
	if carryIn {
		ci = 1
	}
	r := uint16(a) + uint16(b) + uint16(ci)
	res = byte(r)
	return res, res == 0, false, (a&0x0F)+(b&0x0F)+ci > 0x0F, r > 0xFF
}

func sub8(a, b byte, carryIn bool) (res byte, z, n, h, cy bool) {
	ci := byte(0)
	if carryIn {
		ci = 1
	}
	r := int16(a) - int16(b) - int16(ci)
	res = byte(r)
	return res, res == 0, true, int16(a&0x0F)-int16(b&0x0F)-int16(ci) < 0, r < 0
}

// alu applies one of the eight accumulator operations selected by bits 3-5
// of opcodes 80-BF and C6-FE.
func (c *CPU) alu(kind, v byte) {
	var (
		res         byte
		z, n, h, cy bool
		discard     bool
	)
	switch kind {
	case 0: // ADD
		res, z, n, h, cy = add8(c.A, v, false)
	case 1: // ADC
		res, z, n, h, cy = add8(c.A, v, c.flag(flagC))
	case 2: // SUB
		res, z, n, h, cy = sub8(c.A, v, false)
	case 3: // SBC
		res, z, n, h, cy = sub8(c.A, v, c.flag(flagC))
	case 4: // AND
		res = c.A & v
		z, h = res == 0, true
	case 5: // XOR
		res = c.A ^ v
		z = res == 0
	case 6: // OR
		res = c.A | v
		z = res == 0
	case 7: // CP
		res, z, n, h, cy = sub8(c.A, v, false)
		discard = true
	}
	c.flags(z, n, h, cy)
	if !discard {
		c.A = res
	}
}

// rotate implements the eight CB shift/rotate kinds (bits 3-5 of CB 00-3F).
func (c *CPU) rotate(kind, v byte) (res byte, cy bool) {
	carry := byte(0)
	if c.flag(flagC) {
		carry = 1
	}
	switch kind {
	case 0: // RLC
		return v<<1 | v>>7, v&0x80 != 0
	case 1: // RRC
		return v>>1 | v<<7, v&0x01 != 0
	case 2: // RL
		return v<<1 | carry, v&0x80 != 0
	case 3: // RR
		return v>>1 | carry<<7, v&0x01 != 0
	case 4: // SLA
		return v << 1, v&0x80 != 0
	case 5: // SRA
		return v>>1 | v&0x80, v&0x01 != 0
	case 6: // SWAP
		return v<<4 | v>>4, false
	default: // SRL
		return v >> 1, v&0x01 != 0
	}
}

func (c *CPU) daa() {
	a := c.A
	cy := c.flag(flagC)
	if !c.flag(flagN) {
		if cy || a > 0x99 {
			a += 0x60
			cy = true
		}
		if c.flag(flagH) || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if cy {
			a -= 0x60
		}
		if c.flag(flagH) {
			a -= 0x06
		}
	}
	c.A = a
	c.flags(a == 0, false, false, cy)
}

// addSP is SP plus a signed byte; flags come from the unsigned low-byte add.
func (c *CPU) addSP(e uint16) uint16 {
	u := byte(e)
	c.flags(false, false, (c.SP&0x0F)+uint16(u&0x0F) > 0x0F, (c.SP&0xFF)+uint16(u) > 0xFF)
	return c.SP + uint16(int8(u))
}
