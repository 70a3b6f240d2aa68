// Package cpu interprets the SM83 instruction set and owns the interrupt
// and timer logic. All durations are machine cycles (1,048,576 Hz).
package cpu

import (
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/bus"
)

type CPU struct {
	// 8-bit registers
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP uint16
	PC uint16

	IME bool
	// imeDelay counts down to IME=1 after EI: the instruction following EI
	// still runs with interrupts disabled.
	imeDelay int
	halted   bool
	stopped  bool
	haltBug  bool
	locked   bool
	looping  bool

	// Cycles is the monotonic machine-cycle counter shared with the timing models.
	Cycles uint64
	timer  timer

	// LoopDetect stops execution at JR -2 or JP to its own address.
	LoopDetect bool
	// IdleOps enables the rewritten busy-wait opcodes D3, DB and DD.
	IdleOps bool

	pend byte // flags computed by the executing instruction
	bus  *bus.Bus
}

func New(b *bus.Bus) *CPU {
	return &CPU{bus: b, SP: 0xFFFE}
}

func (c *CPU) Bus() *bus.Bus { return c.bus }

// ResetNoBoot loads the register state the boot ROM leaves behind.
func (c *CPU) ResetNoBoot() {
	c.setAF(0x01B0)
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.IME, c.imeDelay = false, 0
	c.halted, c.stopped, c.haltBug, c.locked, c.looping = false, false, false, false, false
}

func (c *CPU) Halted() bool { return c.halted }

func (c *CPU) Stopped() bool { return c.stopped }

// Locked reports an undefined opcode was executed; only a reset recovers.
func (c *CPU) Locked() bool { return c.locked }

// Looping reports the loop detector fired. PC still points at the jump.
func (c *CPU) Looping() bool { return c.looping }

const (
	flagZ byte = 1 << 7
	flagN byte = 1 << 6
	flagH byte = 1 << 5
	flagC byte = 1 << 4
)

func (c *CPU) flag(f byte) bool { return c.F&f != 0 }

// flags records computed flag values; the opcode's pattern decides which land in F.
func (c *CPU) flags(z, n, h, cy bool) {
	var f byte
	if z {
		f |= flagZ
	}
	if n {
		f |= flagN
	}
	if h {
		f |= flagH
	}
	if cy {
		f |= flagC
	}
	c.pend = f
}

func (c *CPU) read8(addr uint16) byte     { return c.bus.Read(addr) }
func (c *CPU) write8(addr uint16, v byte) { c.bus.Write(addr, v) }

func (c *CPU) fetch8() byte {
	b := c.read8(c.PC)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.PC++
	}
	return b
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | hi<<8
}

func (c *CPU) getAF() uint16  { return uint16(c.A)<<8 | uint16(c.F&0xF0) }
func (c *CPU) setAF(v uint16) { c.A = byte(v >> 8); c.F = byte(v) & 0xF0 }
func (c *CPU) getBC() uint16  { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) setBC(v uint16) { c.B = byte(v >> 8); c.C = byte(v) }
func (c *CPU) getDE() uint16  { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) setDE(v uint16) { c.D = byte(v >> 8); c.E = byte(v) }
func (c *CPU) getHL() uint16  { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) setHL(v uint16) { c.H = byte(v >> 8); c.L = byte(v) }

func (c *CPU) push16(v uint16) {
	c.SP -= 2
	c.bus.WriteWord(c.SP, v)
}

func (c *CPU) pop16() uint16 {
	v := c.bus.ReadWord(c.SP)
	c.SP += 2
	return v
}

func (c *CPU) pending() byte {
	return c.bus.IE() & c.bus.IO(bus.RegIF) & 0x1F
}

// Step runs one interrupt dispatch, one idle cycle or one instruction and
// returns the machine cycles it took.
func (c *CPU) Step() int {
	if p := c.pending(); p != 0 {
		c.halted, c.stopped = false, false
		if c.IME {
			return c.dispatch(p)
		}
	}
	if c.halted || c.stopped || c.locked {
		c.tick(1)
		return 1
	}

	pc := c.PC
	code := c.fetch8()
	o := &ops[code]
	if code == 0xCB {
		o = &cbOps[c.fetch8()]
	}
	var arg uint16
	switch o.operands {
	case 1:
		arg = uint16(c.fetch8())
	case 2:
		arg = c.fetch16()
	}

	if c.LoopDetect && (code == 0x18 && arg == 0xFE || code == 0xC3 && arg == pc) {
		c.PC = pc
		c.looping = true
		return 0
	}

	enable := c.imeDelay > 0
	cycles := int(o.cycles)
	if o.exec(c, arg) {
		cycles += int(o.taken)
	}
	c.F = c.F&o.effect.keep | c.pend&o.effect.calc | o.effect.set
	if enable && c.imeDelay > 0 {
		c.imeDelay--
		if c.imeDelay == 0 {
			c.IME = true
		}
	}
	c.tick(cycles)
	return cycles
}

// dispatch services the lowest pending bit: vblank first, joypad last.
func (c *CPU) dispatch(pending byte) int {
	var bit byte
	for pending&(1<<bit) == 0 {
		bit++
	}
	c.IME, c.imeDelay, c.haltBug = false, 0, false
	c.bus.SetIO(bus.RegIF, c.bus.IO(bus.RegIF)&^(1<<bit))
	c.push16(c.PC)
	c.PC = 0x40 + uint16(bit)*8
	c.tick(5)
	return 5
}

func (c *CPU) tick(cycles int) {
	c.Cycles += uint64(cycles)
	c.timer.advance(c.bus, cycles, c.stopped)
}
