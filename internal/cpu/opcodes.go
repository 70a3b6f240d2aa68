package cpu

import (
	"fmt"
	"strings"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cart"
)

// flagEffect is the fixed per-opcode flag pattern: each flag is kept,
// taken from the computed result, forced to 1 or forced to 0.
type flagEffect struct {
	keep, calc, set byte
}

// pattern parses the four-character ZNHC notation: '-' unchanged, '0' or
// '1' forced, any letter computed.
func pattern(p string) flagEffect {
	var fe flagEffect
	for i, ch := range p {
		bit := byte(0x80) >> i
		switch ch {
		case '-':
			fe.keep |= bit
		case '1':
			fe.set |= bit
		case '0':
		default:
			fe.calc |= bit
		}
	}
	return fe
}

type opcode struct {
	name     string
	operands uint8 // immediate bytes after the opcode
	cycles   uint8
	taken    uint8 // added when exec reports a taken branch
	effect   flagEffect
	exec     func(c *CPU, arg uint16) bool
}

var (
	ops   [256]opcode
	cbOps [256]opcode
)

var (
	r8Names   = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	r16Names  = [4]string{"BC", "DE", "HL", "SP"}
	pushNames = [4]string{"BC", "DE", "HL", "AF"}
	condNames = [4]string{"NZ", "Z", "NC", "C"}
	aluNames  = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
	aluFlags  = [8]string{"Z0HC", "Z0HC", "Z1HC", "Z1HC", "Z010", "Z000", "Z000", "Z1HC"}
	rotNames  = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
)

// reg8 indexes B,C,D,E,H,L,(HL),A as encoded in opcode bit fields.
func (c *CPU) reg8(i byte) byte {
	switch i {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read8(c.getHL())
	}
	return c.A
}

func (c *CPU) setReg8(i, v byte) {
	switch i {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write8(c.getHL(), v)
	default:
		c.A = v
	}
}

func (c *CPU) reg16(i byte) uint16 {
	switch i {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	}
	return c.SP
}

func (c *CPU) setReg16(i byte, v uint16) {
	switch i {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.SP = v
	}
}

func (c *CPU) cond(i byte) bool {
	switch i {
	case 0:
		return !c.flag(flagZ)
	case 1:
		return c.flag(flagZ)
	case 2:
		return !c.flag(flagC)
	}
	return c.flag(flagC)
}

// memOp is the register index that goes through (HL).
const memOp = 6

func def(code byte, name string, operands, cycles uint8, flags string, exec func(c *CPU, arg uint16)) {
	ops[code] = opcode{name: name, operands: operands, cycles: cycles, effect: pattern(flags),
		exec: func(c *CPU, arg uint16) bool { exec(c, arg); return false }}
}

func branch(code byte, name string, operands, cycles, taken uint8, exec func(c *CPU, arg uint16) bool) {
	ops[code] = opcode{name: name, operands: operands, cycles: cycles, taken: taken, effect: pattern("----"), exec: exec}
}

func init() {
	for i := range ops {
		code := byte(i)
		def(code, fmt.Sprintf("ILLEGAL_%02X", code), 0, 1, "----", func(c *CPU, _ uint16) { c.locked = true })
	}

	def(0x00, "NOP", 0, 1, "----", func(*CPU, uint16) {})
	def(0x10, "STOP", 1, 1, "----", func(c *CPU, _ uint16) { c.stopped = true })
	def(0x76, "HALT", 0, 1, "----", func(c *CPU, _ uint16) {
		if !c.IME && c.pending() != 0 {
			if c.imeDelay > 0 {
				// EI; HALT: the interrupt returns to the HALT.
				c.PC--
				return
			}
			c.haltBug = true
			return
		}
		c.halted = true
	})
	def(0xF3, "DI", 0, 1, "----", func(c *CPU, _ uint16) { c.IME, c.imeDelay = false, 0 })
	def(0xFB, "EI", 0, 1, "----", func(c *CPU, _ uint16) {
		if !c.IME {
			c.imeDelay = 1
		}
	})

	for i := byte(0); i < 4; i++ {
		r := i
		def(0x01|r<<4, "LD "+r16Names[r]+",d16", 2, 3, "----", func(c *CPU, arg uint16) { c.setReg16(r, arg) })
		def(0x03|r<<4, "INC "+r16Names[r], 0, 2, "----", func(c *CPU, _ uint16) { c.setReg16(r, c.reg16(r)+1) })
		def(0x0B|r<<4, "DEC "+r16Names[r], 0, 2, "----", func(c *CPU, _ uint16) { c.setReg16(r, c.reg16(r)-1) })
		def(0x09|r<<4, "ADD HL,"+r16Names[r], 0, 2, "-0HC", func(c *CPU, _ uint16) {
			hl, v := c.getHL(), c.reg16(r)
			c.flags(false, false, hl&0x0FFF+v&0x0FFF > 0x0FFF, uint32(hl)+uint32(v) > 0xFFFF)
			c.setHL(hl + v)
		})
		def(0xC1|r<<4, "POP "+pushNames[r], 0, 3, "----", func(c *CPU, _ uint16) {
			if r == 3 {
				c.setAF(c.pop16())
				return
			}
			c.setReg16(r, c.pop16())
		})
		def(0xC5|r<<4, "PUSH "+pushNames[r], 0, 4, "----", func(c *CPU, _ uint16) {
			if r == 3 {
				c.push16(c.getAF())
				return
			}
			c.push16(c.reg16(r))
		})

		cc := i
		branch(0x20|cc<<3, "JR "+condNames[cc]+",r8", 1, 2, 1, func(c *CPU, arg uint16) bool {
			if !c.cond(cc) {
				return false
			}
			c.PC += uint16(int8(arg))
			return true
		})
		branch(0xC0|cc<<3, "RET "+condNames[cc], 0, 2, 3, func(c *CPU, _ uint16) bool {
			if !c.cond(cc) {
				return false
			}
			c.PC = c.pop16()
			return true
		})
		branch(0xC2|cc<<3, "JP "+condNames[cc]+",a16", 2, 3, 1, func(c *CPU, arg uint16) bool {
			if !c.cond(cc) {
				return false
			}
			c.PC = arg
			return true
		})
		branch(0xC4|cc<<3, "CALL "+condNames[cc]+",a16", 2, 3, 3, func(c *CPU, arg uint16) bool {
			if !c.cond(cc) {
				return false
			}
			c.push16(c.PC)
			c.PC = arg
			return true
		})
	}

	// Indirect accumulator loads through BC, DE and HL with post-increment/decrement.
	indirect := []struct {
		name string
		addr func(c *CPU) uint16
	}{
		{"(BC)", (*CPU).getBC},
		{"(DE)", (*CPU).getDE},
		{"(HL+)", func(c *CPU) uint16 { hl := c.getHL(); c.setHL(hl + 1); return hl }},
		{"(HL-)", func(c *CPU) uint16 { hl := c.getHL(); c.setHL(hl - 1); return hl }},
	}
	for i, ind := range indirect {
		addr := ind.addr
		def(0x02|byte(i)<<4, "LD "+ind.name+",A", 0, 2, "----", func(c *CPU, _ uint16) { c.write8(addr(c), c.A) })
		def(0x0A|byte(i)<<4, "LD A,"+ind.name, 0, 2, "----", func(c *CPU, _ uint16) { c.A = c.read8(addr(c)) })
	}

	for i := byte(0); i < 8; i++ {
		r := i
		cost := func(reg, mem uint8) uint8 {
			if r == memOp {
				return mem
			}
			return reg
		}
		def(0x04|r<<3, "INC "+r8Names[r], 0, cost(1, 3), "Z0H-", func(c *CPU, _ uint16) {
			v := c.reg8(r)
			c.setReg8(r, v+1)
			c.flags(v+1 == 0, false, v&0x0F == 0x0F, false)
		})
		def(0x05|r<<3, "DEC "+r8Names[r], 0, cost(1, 3), "Z1H-", func(c *CPU, _ uint16) {
			v := c.reg8(r)
			c.setReg8(r, v-1)
			c.flags(v-1 == 0, true, v&0x0F == 0, false)
		})
		def(0x06|r<<3, "LD "+r8Names[r]+",d8", 1, cost(2, 3), "----", func(c *CPU, arg uint16) { c.setReg8(r, byte(arg)) })

		for j := byte(0); j < 8; j++ {
			src := j
			if r == memOp && src == memOp {
				continue // 0x76 is HALT
			}
			cycles := uint8(1)
			if r == memOp || src == memOp {
				cycles = 2
			}
			def(0x40|r<<3|src, "LD "+r8Names[r]+","+r8Names[src], 0, cycles, "----", func(c *CPU, _ uint16) { c.setReg8(r, c.reg8(src)) })
		}

		kind := i
		for j := byte(0); j < 8; j++ {
			src := j
			cycles := uint8(1)
			if src == memOp {
				cycles = 2
			}
			def(0x80|kind<<3|src, aluNames[kind]+r8Names[src], 0, cycles, aluFlags[kind], func(c *CPU, _ uint16) { c.alu(kind, c.reg8(src)) })
		}
		def(0xC6|kind<<3, aluNames[kind]+"d8", 1, 2, aluFlags[kind], func(c *CPU, arg uint16) { c.alu(kind, byte(arg)) })
		vec := uint16(i) * 8
		def(0xC7|kind<<3, fmt.Sprintf("RST %02XH", vec), 0, 4, "----", func(c *CPU, _ uint16) {
			c.push16(c.PC)
			c.PC = vec
		})
	}

	def(0x07, "RLCA", 0, 1, "000C", func(c *CPU, _ uint16) { c.rotateA(0) })
	def(0x0F, "RRCA", 0, 1, "000C", func(c *CPU, _ uint16) { c.rotateA(1) })
	def(0x17, "RLA", 0, 1, "000C", func(c *CPU, _ uint16) { c.rotateA(2) })
	def(0x1F, "RRA", 0, 1, "000C", func(c *CPU, _ uint16) { c.rotateA(3) })
	def(0x27, "DAA", 0, 1, "Z-0C", func(c *CPU, _ uint16) { c.daa() })
	def(0x2F, "CPL", 0, 1, "-11-", func(c *CPU, _ uint16) { c.A = ^c.A })
	def(0x37, "SCF", 0, 1, "-001", func(*CPU, uint16) {})
	def(0x3F, "CCF", 0, 1, "-00C", func(c *CPU, _ uint16) { c.flags(false, false, false, !c.flag(flagC)) })

	def(0x08, "LD (a16),SP", 2, 5, "----", func(c *CPU, arg uint16) { c.bus.WriteWord(arg, c.SP) })
	branch(0x18, "JR r8", 1, 3, 0, func(c *CPU, arg uint16) bool { c.PC += uint16(int8(arg)); return false })
	branch(0xC3, "JP a16", 2, 4, 0, func(c *CPU, arg uint16) bool { c.PC = arg; return false })
	branch(0xE9, "JP (HL)", 0, 1, 0, func(c *CPU, _ uint16) bool { c.PC = c.getHL(); return false })
	branch(0xCD, "CALL a16", 2, 6, 0, func(c *CPU, arg uint16) bool {
		c.push16(c.PC)
		c.PC = arg
		return false
	})
	branch(0xC9, "RET", 0, 4, 0, func(c *CPU, _ uint16) bool { c.PC = c.pop16(); return false })
	branch(0xD9, "RETI", 0, 4, 0, func(c *CPU, _ uint16) bool {
		c.PC = c.pop16()
		c.IME, c.imeDelay = true, 0
		return false
	})

	def(0xE0, "LDH (a8),A", 1, 3, "----", func(c *CPU, arg uint16) { c.write8(0xFF00|arg, c.A) })
	def(0xF0, "LDH A,(a8)", 1, 3, "----", func(c *CPU, arg uint16) { c.A = c.read8(0xFF00 | arg) })
	def(0xE2, "LD (C),A", 0, 2, "----", func(c *CPU, _ uint16) { c.write8(0xFF00|uint16(c.C), c.A) })
	def(0xF2, "LD A,(C)", 0, 2, "----", func(c *CPU, _ uint16) { c.A = c.read8(0xFF00 | uint16(c.C)) })
	def(0xEA, "LD (a16),A", 2, 4, "----", func(c *CPU, arg uint16) { c.write8(arg, c.A) })
	def(0xFA, "LD A,(a16)", 2, 4, "----", func(c *CPU, arg uint16) { c.A = c.read8(arg) })
	def(0xE8, "ADD SP,r8", 1, 4, "00HC", func(c *CPU, arg uint16) { c.SP = c.addSP(arg) })
	def(0xF8, "LD HL,SP+r8", 1, 3, "00HC", func(c *CPU, arg uint16) { c.setHL(c.addSP(arg)) })
	def(0xF9, "LD SP,HL", 0, 2, "----", func(c *CPU, _ uint16) { c.SP = c.getHL() })

	// The prefix entry is never executed; Step decodes through cbOps.
	def(0xCB, "PREFIX CB", 0, 1, "----", func(*CPU, uint16) {})

	idleOps()
	cbInit()
}

func (c *CPU) rotateA(kind byte) {
	res, cy := c.rotate(kind, c.A)
	c.A = res
	c.flags(false, false, false, cy)
}

// idleOps defines the busy-wait replacements cart.PatchIdleLoops emits.
// Each re-executes itself until its condition changes, charging the cycles
// of one pass through the loop it replaced.
func idleOps() {
	branch(cart.IdleOpLDH, "IDLE LDH A,(a8)", 1, 3, 4, func(c *CPU, arg uint16) bool {
		if !c.IdleOps {
			c.locked = true
			return false
		}
		c.A = c.read8(0xFF00 | arg)
		if c.A == 0 {
			c.PC -= 2
			return true
		}
		return false
	})
	branch(cart.IdleOpLD, "IDLE LD A,(a16)", 2, 4, 4, func(c *CPU, arg uint16) bool {
		if !c.IdleOps {
			c.locked = true
			return false
		}
		c.A = c.read8(arg)
		if c.A == 0 {
			c.PC -= 3
			return true
		}
		return false
	})
	branch(cart.IdleOpCPHL, "IDLE CP (HL)", 0, 1, 4, func(c *CPU, _ uint16) bool {
		if !c.IdleOps {
			c.locked = true
			return false
		}
		if c.read8(c.getHL()) != c.A {
			c.PC--
			return true
		}
		return false
	})
}

func cbInit() {
	for i := 0; i < 256; i++ {
		code := byte(i)
		r, y := code&7, code>>3&7
		cycles := uint8(2)
		if r == memOp {
			cycles = 4
		}
		var o opcode
		switch code >> 6 {
		case 0:
			flags := "Z00C"
			if y == 6 {
				flags = "Z000"
			}
			o = opcode{name: rotNames[y] + " " + r8Names[r], effect: pattern(flags), exec: func(c *CPU, _ uint16) bool {
				res, cy := c.rotate(y, c.reg8(r))
				c.setReg8(r, res)
				c.flags(res == 0, false, false, cy)
				return false
			}}
		case 1:
			if r == memOp {
				cycles = 3
			}
			o = opcode{name: fmt.Sprintf("BIT %d,%s", y, r8Names[r]), effect: pattern("Z01-"), exec: func(c *CPU, _ uint16) bool {
				c.flags(c.reg8(r)&(1<<y) == 0, false, true, false)
				return false
			}}
		case 2:
			o = opcode{name: fmt.Sprintf("RES %d,%s", y, r8Names[r]), effect: pattern("----"), exec: func(c *CPU, _ uint16) bool {
				c.setReg8(r, c.reg8(r)&^(1<<y))
				return false
			}}
		default:
			o = opcode{name: fmt.Sprintf("SET %d,%s", y, r8Names[r]), effect: pattern("----"), exec: func(c *CPU, _ uint16) bool {
				c.setReg8(r, c.reg8(r)|1<<y)
				return false
			}}
		}
		o.cycles = cycles
		cbOps[code] = o
	}
}

// Disasm renders the instruction at addr and returns its length in bytes.
func (c *CPU) Disasm(addr uint16) (string, int) {
	code := c.bus.Read(addr)
	if code == 0xCB {
		return cbOps[c.bus.Read(addr+1)].name, 2
	}
	o := ops[code]
	name := o.name
	switch o.operands {
	case 1:
		v := c.bus.Read(addr + 1)
		if strings.Contains(name, "r8") {
			name = strings.Replace(strings.Replace(name, "+r8", "r8", 1), "r8", fmt.Sprintf("%+d", int8(v)), 1)
		} else {
			name = strings.NewReplacer("d8", fmt.Sprintf("$%02X", v), "a8", fmt.Sprintf("$FF%02X", v)).Replace(name)
		}
	case 2:
		v := c.bus.ReadWord(addr + 1)
		name = strings.NewReplacer("d16", fmt.Sprintf("$%04X", v), "a16", fmt.Sprintf("$%04X", v)).Replace(name)
	}
	return name, 1 + int(o.operands)
}
