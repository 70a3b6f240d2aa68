package cpu

import (
	"testing"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/bus"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cart"
)

func newCPUWithROM(code []byte) *CPU {
	rom := make([]byte, 0x8000)
	copy(rom, code)
	return New(bus.New(cart.NewROMOnly(rom, 0)))
}

// documented lists base durations in machine cycles, conditional branches
// not taken. Zero marks the prefix and the undefined opcodes.
var documented = [256]int{
	1, 3, 2, 2, 1, 1, 2, 1, 5, 2, 2, 2, 1, 1, 2, 1,
	1, 3, 2, 2, 1, 1, 2, 1, 3, 2, 2, 2, 1, 1, 2, 1,
	2, 3, 2, 2, 1, 1, 2, 1, 2, 2, 2, 2, 1, 1, 2, 1,
	2, 3, 2, 2, 3, 3, 3, 1, 2, 2, 2, 2, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	2, 2, 2, 2, 2, 2, 1, 2, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	2, 3, 3, 4, 3, 4, 2, 4, 2, 4, 3, 0, 3, 6, 2, 4,
	2, 3, 3, 0, 3, 4, 2, 4, 2, 4, 3, 0, 3, 0, 2, 4,
	3, 3, 2, 0, 0, 4, 2, 4, 4, 1, 4, 0, 0, 0, 2, 4,
	3, 3, 2, 1, 0, 4, 2, 4, 3, 2, 4, 1, 0, 0, 2, 4,
}

// takenExtra returns the extra cost of a conditional opcode and whether its
// condition holds for flags f.
func takenExtra(op, f byte) (int, bool) {
	var extra int
	switch {
	case op&0xE7 == 0x20: // JR cc
		extra = 1
	case op&0xE7 == 0xC0: // RET cc
		extra = 3
	case op&0xE7 == 0xC2: // JP cc
		extra = 1
	case op&0xE7 == 0xC4: // CALL cc
		extra = 3
	default:
		return 0, false
	}
	var hold bool
	switch op >> 3 & 3 {
	case 0:
		hold = f&flagZ == 0
	case 1:
		hold = f&flagZ != 0
	case 2:
		hold = f&flagC == 0
	case 3:
		hold = f&flagC != 0
	}
	return extra, hold
}

func TestCPU_OpcodeDurations(t *testing.T) {
	for op := 0; op < 256; op++ {
		if documented[op] == 0 {
			continue
		}
		for _, f := range []byte{0x00, 0xF0} {
			c := newCPUWithROM(nil)
			c.Bus().Write(0xC000, byte(op))
			c.PC, c.SP, c.F = 0xC000, 0xDFF0, f
			want := documented[op]
			if extra, hold := takenExtra(byte(op), f); hold {
				want += extra
			}
			if got := c.Step(); got != want {
				t.Fatalf("opcode %02X (%s) F=%02X: got %d cycles want %d", op, ops[op].name, f, got, want)
			}
		}
	}
}

func TestCPU_CBDurations(t *testing.T) {
	for op := 0; op < 256; op++ {
		want := 2
		if op&7 == memOp {
			want = 4
			if op>>6 == 1 {
				want = 3
			}
		}
		c := newCPUWithROM(nil)
		c.Bus().Write(0xC000, 0xCB)
		c.Bus().Write(0xC001, byte(op))
		c.PC = 0xC000
		c.setHL(0xC100)
		if got := c.Step(); got != want {
			t.Fatalf("CB %02X (%s): got %d cycles want %d", op, cbOps[op].name, got, want)
		}
		if c.PC != 0xC002 {
			t.Fatalf("CB %02X: PC got %04X want C002", op, c.PC)
		}
	}
}

func TestCPU_NopAndPC(t *testing.T) {
	c := newCPUWithROM([]byte{0x00})
	if cycles := c.Step(); cycles != 1 {
		t.Fatalf("NOP cycles got %d want 1", cycles)
	}
	if c.PC != 1 {
		t.Fatalf("PC after NOP got %#04x want 0x0001", c.PC)
	}
	if c.Cycles != 1 {
		t.Fatalf("cycle counter got %d want 1", c.Cycles)
	}
}

func TestCPU_LD_A_d8_And_XOR_A(t *testing.T) {
	c := newCPUWithROM([]byte{0x3E, 0x12, 0xAF}) // LD A,0x12; XOR A
	c.Step()
	if c.A != 0x12 {
		t.Fatalf("A after LD got %02x want 12", c.A)
	}
	c.Step()
	if c.A != 0x00 || c.F != flagZ {
		t.Fatalf("XOR A got A=%02X F=%02X", c.A, c.F)
	}
}

func TestCPU_INC_PreservesCarry(t *testing.T) {
	c := newCPUWithROM([]byte{0x04, 0x05}) // INC B; DEC B
	c.B, c.F = 0x0F, flagC
	c.Step()
	if c.B != 0x10 || c.F != flagH|flagC {
		t.Fatalf("INC B got B=%02X F=%02X want 10 / 30", c.B, c.F)
	}
	c.Step()
	if c.B != 0x0F || c.F != flagN|flagH|flagC {
		t.Fatalf("DEC B got B=%02X F=%02X want 0F / 70", c.B, c.F)
	}
}

func TestCPU_CALL_RET(t *testing.T) {
	rom := make([]byte, 0x8000)
	copy(rom, []byte{0xCD, 0x00, 0x20}) // CALL 2000
	rom[0x2000] = 0xC9                  // RET
	c := newCPUWithROM(rom)
	c.SP = 0xDFFE
	if cyc := c.Step(); cyc != 6 || c.PC != 0x2000 || c.SP != 0xDFFC {
		t.Fatalf("CALL got cyc=%d PC=%04X SP=%04X", cyc, c.PC, c.SP)
	}
	if cyc := c.Step(); cyc != 4 || c.PC != 0x0003 || c.SP != 0xDFFE {
		t.Fatalf("RET got cyc=%d PC=%04X SP=%04X", cyc, c.PC, c.SP)
	}
}

func TestCPU_InterruptDispatch(t *testing.T) {
	c := newCPUWithROM(nil)
	b := c.Bus()
	c.PC, c.SP, c.IME = 0x0150, 0xDFFE, true
	b.Write(0xFFFF, 0x1F)
	b.Write(0xFF0F, 0x06) // STAT and timer

	if cyc := c.Step(); cyc != 5 {
		t.Fatalf("dispatch took %d cycles want 5", cyc)
	}
	if c.PC != 0x0048 {
		t.Fatalf("STAT before timer: PC got %04X want 0048", c.PC)
	}
	if c.IME {
		t.Fatalf("IME still set after dispatch")
	}
	if got := b.Read(0xFF0F) & 0x1F; got != 0x04 {
		t.Fatalf("IF got %02X want 04", got)
	}
	if got := b.ReadWord(c.SP); got != 0x0150 {
		t.Fatalf("pushed PC got %04X want 0150", got)
	}
}

func TestCPU_HaltExitsWithoutDispatchWhenIMEClear(t *testing.T) {
	c := newCPUWithROM([]byte{0x76, 0x00}) // HALT; NOP
	b := c.Bus()
	b.Write(0xFFFF, 1<<bus.IntTimer)
	c.Step()
	if !c.Halted() {
		t.Fatalf("HALT did not halt")
	}
	if cyc := c.Step(); cyc != 1 || !c.Halted() {
		t.Fatalf("idle step got cyc=%d halted=%v", cyc, c.Halted())
	}

	b.Write(0xFF0F, 1<<bus.IntTimer)
	c.Step()
	if c.Halted() {
		t.Fatalf("still halted with timer pending")
	}
	if c.PC != 0x0002 {
		t.Fatalf("PC got %04X want 0002 (no vector jump)", c.PC)
	}
	if b.Read(0xFF0F)&(1<<bus.IntTimer) == 0 {
		t.Fatalf("IF bit consumed without dispatch")
	}
}

func TestCPU_EI_DelayedEnable(t *testing.T) {
	c := newCPUWithROM([]byte{0xFB, 0x00, 0x00}) // EI; NOP; NOP
	b := c.Bus()
	b.Write(0xFFFF, 0x01)
	b.Write(0xFF0F, 0x01)

	c.Step()
	if c.IME {
		t.Fatalf("IME should not be enabled immediately after EI")
	}
	c.Step()
	if c.PC != 0x0002 || !c.IME {
		t.Fatalf("instruction after EI: PC=%04X IME=%v", c.PC, c.IME)
	}
	if cyc := c.Step(); c.PC != 0x0040 || cyc != 5 {
		t.Fatalf("interrupt not serviced after EI delay; PC=%04X cyc=%d", c.PC, cyc)
	}
}

func TestCPU_DI_CancelsPendingEI(t *testing.T) {
	c := newCPUWithROM([]byte{0xFB, 0xF3, 0x00}) // EI; DI; NOP
	c.Step()
	c.Step()
	c.Step()
	if c.IME {
		t.Fatalf("IME set after EI; DI")
	}
}

func TestCPU_HALT_Bug_DoubleFetch(t *testing.T) {
	c := newCPUWithROM([]byte{0x76, 0x3C, 0x00}) // HALT; INC A; NOP
	b := c.Bus()
	b.Write(0xFFFF, 0x01)
	b.Write(0xFF0F, 0x01)

	c.Step()
	if c.Halted() {
		t.Fatalf("HALT with pending interrupt and IME=0 should not halt")
	}
	c.A = 0
	c.Step()
	if c.PC != 0x0001 || c.A != 1 {
		t.Fatalf("first INC A: PC=%04X A=%02X", c.PC, c.A)
	}
	c.Step()
	if c.PC != 0x0002 || c.A != 2 {
		t.Fatalf("byte after HALT not read twice: PC=%04X A=%02X", c.PC, c.A)
	}
}

func TestCPU_EI_HALT_WithPendingInterrupt(t *testing.T) {
	rom := make([]byte, 0x43)
	rom[0x00], rom[0x01] = 0xFB, 0x76 // EI; HALT
	copy(rom[0x40:], []byte{0xC3, 0x00, 0x01})
	c := newCPUWithROM(rom)
	b := c.Bus()
	c.SP = 0xDFFE
	b.Write(0xFFFF, 0x01)
	b.Write(0xFF0F, 0x01)

	c.Step() // EI
	c.Step() // HALT
	if c.Halted() || !c.IME {
		t.Fatalf("after EI; HALT: halted=%v IME=%v", c.Halted(), c.IME)
	}
	if cyc := c.Step(); cyc != 5 || c.PC != 0x0040 {
		t.Fatalf("dispatch: PC=%04X cyc=%d", c.PC, cyc)
	}
	if got := b.ReadWord(c.SP); got != 0x0001 {
		t.Fatalf("return address got %04X want 0001 (the HALT)", got)
	}
	c.Step()
	if c.PC != 0x0100 {
		t.Fatalf("handler JP landed at %04X want 0100", c.PC)
	}
}

func TestCPU_DispatchClearsHaltBug(t *testing.T) {
	rom := make([]byte, 0x43)
	copy(rom[0x40:], []byte{0xC3, 0x00, 0x01})
	c := newCPUWithROM(rom)
	c.SP, c.IME, c.haltBug = 0xDFFE, true, true
	c.Bus().Write(0xFFFF, 0x01)
	c.Bus().Write(0xFF0F, 0x01)

	c.Step()
	c.Step()
	if c.PC != 0x0100 {
		t.Fatalf("handler JP landed at %04X want 0100", c.PC)
	}
}

func TestCPU_STOP_ConsumesPadding(t *testing.T) {
	c := newCPUWithROM([]byte{0x10, 0x00, 0x00})
	if cyc := c.Step(); cyc != 1 || c.PC != 0x0002 || !c.Stopped() {
		t.Fatalf("STOP got cyc=%d PC=%04X stopped=%v", cyc, c.PC, c.Stopped())
	}
	div := c.Bus().IO(bus.RegDIV)
	for range 200 {
		c.Step()
	}
	if c.Bus().IO(bus.RegDIV) != div {
		t.Fatalf("DIV advanced while stopped")
	}
	c.Bus().Write(0xFFFF, 1<<bus.IntJoypad)
	c.Bus().RequestInterrupt(bus.IntJoypad)
	c.Step()
	if c.Stopped() || c.PC != 0x0003 {
		t.Fatalf("joypad did not wake STOP: PC=%04X", c.PC)
	}
}

func TestCPU_DAA_AddAndSub(t *testing.T) {
	c := newCPUWithROM([]byte{0x3E, 0x45, 0xC6, 0x38, 0x27}) // LD A,45; ADD A,38; DAA
	c.Step()
	c.Step()
	c.Step()
	if c.A != 0x83 || c.F != 0x00 {
		t.Fatalf("DAA after add got A=%02X F=%02X want 83/00", c.A, c.F)
	}

	c.Bus().Write(0xC000, 0x3E) // LD A,45
	c.Bus().Write(0xC001, 0x45)
	c.Bus().Write(0xC002, 0xD6) // SUB 06
	c.Bus().Write(0xC003, 0x06)
	c.Bus().Write(0xC004, 0x27) // DAA
	c.PC = 0xC000
	c.Step()
	c.Step()
	c.Step()
	if c.A != 0x39 || c.F&flagN == 0 {
		t.Fatalf("DAA after sub got A=%02X F=%02X", c.A, c.F)
	}
}

func TestCPU_ADD_HL_KeepsZero(t *testing.T) {
	c := newCPUWithROM([]byte{0x09, 0x09}) // ADD HL,BC twice
	c.setHL(0x0FFF)
	c.setBC(0x0001)
	c.F = flagZ
	c.Step()
	if c.getHL() != 0x1000 || c.F != flagZ|flagH {
		t.Fatalf("ADD HL #1 HL=%04X F=%02X", c.getHL(), c.F)
	}
	c.setHL(0xFFFF)
	c.F = 0
	c.Step()
	if c.getHL() != 0x0000 || c.F != flagH|flagC {
		t.Fatalf("ADD HL #2 HL=%04X F=%02X", c.getHL(), c.F)
	}
}

func TestCPU_SP_Relative(t *testing.T) {
	c := newCPUWithROM([]byte{0xF8, 0xFF, 0xE8, 0x01}) // LD HL,SP-1; ADD SP,+1
	c.SP = 0x00FF
	c.Step()
	if c.getHL() != 0x00FE || c.F != flagH|flagC {
		t.Fatalf("LD HL,SP-1 HL=%04X F=%02X", c.getHL(), c.F)
	}
	c.Step()
	if c.SP != 0x0100 || c.F != flagH|flagC {
		t.Fatalf("ADD SP,1 SP=%04X F=%02X", c.SP, c.F)
	}
}

func TestCPU_POP_AF_MasksFlagsLowNibble(t *testing.T) {
	c := newCPUWithROM([]byte{0xF1}) // POP AF
	c.SP = 0xC000
	c.Bus().WriteWord(0xC000, 0x12FF)
	c.Step()
	if c.A != 0x12 || c.F != 0xF0 {
		t.Fatalf("POP AF got A=%02X F=%02X", c.A, c.F)
	}
}

func TestCPU_RotatesAndFlagOps(t *testing.T) {
	c := newCPUWithROM([]byte{0x07, 0x37, 0x3F, 0x2F}) // RLCA; SCF; CCF; CPL
	c.A, c.F = 0x80, flagZ
	c.Step()
	if c.A != 0x01 || c.F != flagC {
		t.Fatalf("RLCA A=%02X F=%02X", c.A, c.F)
	}
	c.F = flagZ | flagN | flagH
	c.Step()
	if c.F != flagZ|flagC {
		t.Fatalf("SCF F=%02X", c.F)
	}
	c.Step()
	if c.F != flagZ {
		t.Fatalf("CCF F=%02X", c.F)
	}
	c.Step()
	if c.A != 0xFE || c.F != flagZ|flagN|flagH {
		t.Fatalf("CPL A=%02X F=%02X", c.A, c.F)
	}
}

func TestCPU_CB_Behaviour(t *testing.T) {
	c := newCPUWithROM([]byte{0xCB, 0x7E, 0xCB, 0xBE, 0xCB, 0x37, 0xCB, 0x28})
	c.setHL(0xC000)
	c.Bus().Write(0xC000, 0x80)

	c.Step() // BIT 7,(HL)
	if c.F&flagZ != 0 || c.F&flagH == 0 {
		t.Fatalf("BIT 7,(HL) F=%02X", c.F)
	}
	c.Step() // RES 7,(HL)
	if got := c.Bus().Read(0xC000); got != 0x00 {
		t.Fatalf("RES 7,(HL) mem=%02X", got)
	}
	c.A = 0xF1
	c.Step() // SWAP A
	if c.A != 0x1F || c.F != 0 {
		t.Fatalf("SWAP A got %02X F=%02X", c.A, c.F)
	}
	c.B = 0x81
	c.Step() // SRA B
	if c.B != 0xC0 || c.F != flagC {
		t.Fatalf("SRA B got %02X F=%02X", c.B, c.F)
	}
}

func TestCPU_UndefinedOpcodeLocks(t *testing.T) {
	c := newCPUWithROM([]byte{0xED})
	c.Step()
	if !c.Locked() {
		t.Fatalf("ED did not lock the CPU")
	}
	pc := c.PC
	c.Bus().Write(0xFFFF, 0x01)
	c.Bus().Write(0xFF0F, 0x01)
	if cyc := c.Step(); cyc != 1 || c.PC != pc {
		t.Fatalf("locked CPU advanced: cyc=%d PC=%04X", cyc, c.PC)
	}
}

func TestCPU_LoopDetect(t *testing.T) {
	c := newCPUWithROM([]byte{0x00, 0x18, 0xFE})
	c.LoopDetect = true
	c.Step()
	if cyc := c.Step(); cyc != 0 || !c.Looping() || c.PC != 0x0001 {
		t.Fatalf("JR -2 not detected: cyc=%d looping=%v PC=%04X", cyc, c.Looping(), c.PC)
	}

	c = newCPUWithROM([]byte{0xC3, 0x00, 0x00})
	c.LoopDetect = true
	c.Step()
	if !c.Looping() {
		t.Fatalf("JP to self not detected")
	}
}

func TestCPU_IdleOps(t *testing.T) {
	rom := []byte{0x00, 0x00, cart.IdleOpLDH, 0x80, 0xA7}
	c := newCPUWithROM(rom)
	c.Step()
	c.Step()
	c.Step()
	if !c.Locked() {
		t.Fatalf("idle opcode ran with IdleOps off")
	}

	c = newCPUWithROM(rom)
	c.IdleOps = true
	c.Step()
	c.Step()
	if cyc := c.Step(); cyc != 7 || c.PC != 0x0002 {
		t.Fatalf("waiting pass: cyc=%d PC=%04X", cyc, c.PC)
	}
	c.Bus().Write(0xFF80, 0x42)
	if cyc := c.Step(); cyc != 3 || c.PC != 0x0004 || c.A != 0x42 {
		t.Fatalf("exit pass: cyc=%d PC=%04X A=%02X", cyc, c.PC, c.A)
	}
	c.Step() // AND A
	if c.F != flagH {
		t.Fatalf("flags after loop exit F=%02X want 20", c.F)
	}
}

func TestCPU_Disasm(t *testing.T) {
	c := newCPUWithROM([]byte{0x20, 0xFE, 0xFA, 0x34, 0x12, 0xCB, 0x7C, 0xE0, 0x40})
	for _, want := range []struct {
		at   uint16
		text string
		n    int
	}{
		{0, "JR NZ,-2", 2},
		{2, "LD A,($1234)", 3},
		{5, "BIT 7,H", 2},
		{7, "LDH ($FF40),A", 2},
	} {
		got, n := c.Disasm(want.at)
		if got != want.text || n != want.n {
			t.Fatalf("Disasm(%d) got %q/%d want %q/%d", want.at, got, n, want.text, want.n)
		}
	}
}
