package ppu

import (
	"testing"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/bus"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cart"
)

func newPPU(lcdc byte) (*PPU, *bus.Bus) {
	b := bus.New(cart.NewROMOnly(make([]byte, 0x8000), 0))
	p := New(b)
	b.Write(0xFF40, lcdc)
	return p, b
}

func statMode(b *bus.Bus) byte { return b.IO(bus.RegSTAT) & 0x03 }

func ifBit(b *bus.Bus, bit int) bool { return b.IO(bus.RegIF)&(1<<bit) != 0 }

func TestPPU_FrameBoundaryOncePerFrame(t *testing.T) {
	p, _ := newPPU(0x80)
	var hits []int
	for i := 0; i < 2*FrameCycles; i++ {
		if p.Advance(1) {
			hits = append(hits, i)
		}
	}
	want := Height*LineCycles + 1
	if len(hits) != 2 || hits[0] != want || hits[1] != want+FrameCycles {
		t.Fatalf("frame boundaries got %v want [%d %d]", hits, want, want+FrameCycles)
	}
	if FrameCycles != 17556 {
		t.Fatalf("frame length got %d want 17556", FrameCycles)
	}
}

func TestPPU_AdvanceReportsBoundaryInBulk(t *testing.T) {
	p, _ := newPPU(0x80)
	if p.Advance(Height*LineCycles + 1) {
		t.Fatalf("boundary reported one unit early")
	}
	if !p.Advance(1) {
		t.Fatalf("boundary not reported")
	}
	if p.Advance(FrameCycles - 1) {
		t.Fatalf("boundary reported twice in one frame")
	}
}

func TestPPU_ModeSequence(t *testing.T) {
	p, b := newPPU(0x80)
	steps := []struct {
		units int
		mode  byte
	}{
		{2, 2},  // unit 1 starts the object search
		{21, 2}, // still searching at unit 20
		{22, 3}, // transfer from unit 21
		{65, 3},
		{66, 0}, // hblank from unit 65
		{LineCycles + 1, 0},
		{LineCycles + 2, 2},
	}
	done := 0
	for _, s := range steps {
		p.Advance(s.units - done)
		done = s.units
		if m := statMode(b); m != s.mode {
			t.Fatalf("after %d units mode got %d want %d", s.units, m, s.mode)
		}
	}
}

func TestPPU_LYProgression(t *testing.T) {
	p, b := newPPU(0x80)
	p.Advance(LineCycles)
	if ly := b.IO(bus.RegLY); ly != 0 {
		t.Fatalf("LY before line 1 got %d want 0", ly)
	}
	p.Advance(1)
	if ly := b.IO(bus.RegLY); ly != 1 {
		t.Fatalf("LY at line 1 got %d want 1", ly)
	}
	p.Advance(152 * LineCycles)
	if ly := b.IO(bus.RegLY); ly != 153 {
		t.Fatalf("LY at line 153 got %d want 153", ly)
	}
	p.Advance(1)
	if ly := b.IO(bus.RegLY); ly != 0 {
		t.Fatalf("LY after line 153 unit 1 got %d want 0", ly)
	}
}

func TestPPU_VBlankInterrupts(t *testing.T) {
	p, b := newPPU(0x80)
	b.Write(0xFF41, statVBlankIRQ)
	p.Advance(Height*LineCycles + 1)
	if ifBit(b, bus.IntVBlank) {
		t.Fatalf("vblank raised early")
	}
	p.Advance(1)
	if !ifBit(b, bus.IntVBlank) || !ifBit(b, bus.IntSTAT) {
		t.Fatalf("IF got %02X want vblank and STAT", b.IO(bus.RegIF))
	}
	if m := statMode(b); m != 1 {
		t.Fatalf("mode got %d want 1", m)
	}
}

func TestPPU_HBlankAndSearchSTAT(t *testing.T) {
	p, b := newPPU(0x80)
	b.Write(0xFF41, statHBlankIRQ)
	p.Advance(65)
	if ifBit(b, bus.IntSTAT) {
		t.Fatalf("STAT raised before hblank")
	}
	p.Advance(1)
	if !ifBit(b, bus.IntSTAT) {
		t.Fatalf("hblank STAT not raised")
	}

	p, b = newPPU(0x80)
	b.Write(0xFF41, statOAMIRQ)
	p.Advance(2)
	if !ifBit(b, bus.IntSTAT) {
		t.Fatalf("search STAT not raised")
	}
}

func TestPPU_LYCCompare(t *testing.T) {
	p, b := newPPU(0x80)
	b.Write(0xFF45, 2)
	b.Write(0xFF41, statLYCIRQ)
	p.Advance(2*LineCycles + 1)
	if ifBit(b, bus.IntSTAT) || b.IO(bus.RegSTAT)&statCoincidence != 0 {
		t.Fatalf("compare fired before unit 1 of line 2")
	}
	p.Advance(1)
	if !ifBit(b, bus.IntSTAT) {
		t.Fatalf("LYC STAT not raised on line 2")
	}
	if b.IO(bus.RegSTAT)&statCoincidence == 0 {
		t.Fatalf("coincidence flag not set")
	}
	p.Advance(LineCycles)
	if b.IO(bus.RegSTAT)&statCoincidence != 0 {
		t.Fatalf("coincidence flag still set on line 3")
	}
}

func TestPPU_LYCZeroMatchesOnLastLine(t *testing.T) {
	p, b := newPPU(0x80)
	b.Write(0xFF41, statLYCIRQ)
	p.Advance(153*LineCycles + 3)
	b.SetIO(bus.RegIF, 0)
	p.Advance(1)
	if !ifBit(b, bus.IntSTAT) {
		t.Fatalf("LYC=0 not matched at line 153 unit 3")
	}
}

func TestPPU_LCDOffSnapsToLineZero(t *testing.T) {
	p, b := newPPU(0x80)
	p.Advance(10*LineCycles + 30)
	if statMode(b) != 3 {
		t.Fatalf("setup: mode got %d want 3", statMode(b))
	}
	b.Write(0xFF40, 0x00)
	p.Advance(500)
	if ly := b.IO(bus.RegLY); ly != 0 {
		t.Fatalf("LY got %d want 0", ly)
	}
	if m := statMode(b); m != 0 {
		t.Fatalf("mode got %d want 0", m)
	}
	if line, unit := p.Position(); line != 0 || unit != 0 {
		t.Fatalf("position got %d/%d want 0/0", line, unit)
	}
	if b.IO(bus.RegIF) != 0 {
		t.Fatalf("interrupts raised while off: %02X", b.IO(bus.RegIF))
	}

	b.Write(0xFF40, 0x80)
	p.Advance(2)
	if m := statMode(b); m != 2 {
		t.Fatalf("mode after re-enable got %d want 2", m)
	}
}

func TestPPU_ObjectTableBlockedDuringSearch(t *testing.T) {
	p, b := newPPU(0x00)
	b.Write(0xFE00, 0x42)
	b.Write(0x8000, 0x24)
	b.Write(0xFF40, 0x80)
	p.Advance(2)
	if got := b.Read(0xFE00); got != 0xFF {
		t.Fatalf("OAM read in mode 2 got %02X want FF", got)
	}
	if got := b.Read(0x8000); got != 0x24 {
		t.Fatalf("VRAM read in mode 2 got %02X want 24", got)
	}
	p.Advance(20)
	if got := b.Read(0x8000); got != 0xFF {
		t.Fatalf("VRAM read in mode 3 got %02X want FF", got)
	}
	p.Advance(44)
	if got := b.Read(0xFE00); got != 0x42 {
		t.Fatalf("OAM read in hblank got %02X want 42", got)
	}
}

func TestPPU_WindowCounter(t *testing.T) {
	p, b := newPPU(0x80 | 0x01 | 0x20)
	b.Write(0xFF4A, 10) // WY
	b.Write(0xFF4B, 7)  // WX
	p.Advance(12 * LineCycles)

	if r := p.LineRegs(9); r.Window {
		t.Fatalf("window active above WY")
	}
	if r := p.LineRegs(10); !r.Window || r.WinLine != 0 {
		t.Fatalf("line 10 window=%v winline=%d want true/0", r.Window, r.WinLine)
	}
	if r := p.LineRegs(11); r.WinLine != 1 {
		t.Fatalf("line 11 winline got %d want 1", r.WinLine)
	}
}

func TestPPU_WindowCounterSkipsHiddenLines(t *testing.T) {
	p, b := newPPU(0x80 | 0x01 | 0x20)
	p.Advance(5 * LineCycles) // lines 0-4 show the window
	b.Write(0xFF40, 0x80|0x01)
	p.Advance(5 * LineCycles)
	b.Write(0xFF40, 0x80|0x01|0x20)
	p.Advance(LineCycles)
	if r := p.LineRegs(10); r.WinLine != 5 {
		t.Fatalf("winline after hidden lines got %d want 5", r.WinLine)
	}

	// A new frame restarts the counter.
	p.Advance(FrameCycles - 11*LineCycles + LineCycles)
	if r := p.LineRegs(0); r.WinLine != 0 {
		t.Fatalf("winline on new frame got %d want 0", r.WinLine)
	}
}

func TestPPU_WindowHiddenWhenWXTooLarge(t *testing.T) {
	p, b := newPPU(0x80 | 0x01 | 0x20)
	b.Write(0xFF4A, 5)
	b.Write(0xFF4B, 200)
	p.Advance(14 * LineCycles)
	for y := 5; y <= 12; y++ {
		if r := p.LineRegs(y); r.Window || r.WinLine != 0 {
			t.Fatalf("line %d window=%v winline=%d", y, r.Window, r.WinLine)
		}
	}
}

func TestPPU_RendersBackgroundIntoFrame(t *testing.T) {
	p, b := newPPU(0x00)
	for i := uint16(0); i < 16; i++ {
		b.Write(0x8010+i, 0xFF) // tile 1: colour 3 everywhere
	}
	b.Write(0x9800, 1)
	b.Write(0xFF47, 0xE4)
	b.Write(0xFF40, 0x80|0x10|0x01)
	p.Advance(FrameCycles)

	f := p.Frame()
	for x := 0; x < 8; x++ {
		if f[x] != 3 || f[7*Width+x] != 3 {
			t.Fatalf("tile pixel %d got %d/%d want 3", x, f[x], f[7*Width+x])
		}
	}
	if f[8] != 0 || f[8*Width] != 0 {
		t.Fatalf("neighbour pixels got %d/%d want 0", f[8], f[8*Width])
	}

	p.Layers = AllLayers &^ LayerBG
	p.Advance(FrameCycles)
	if f[0] != 0 {
		t.Fatalf("background layer drawn while masked: %d", f[0])
	}
}

func TestPPU_StateRoundTrip(t *testing.T) {
	p, b := newPPU(0x80)
	p.Advance(3*LineCycles + 17)
	data, err := p.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	p.Advance(1000)

	q := New(b)
	if err := q.LoadState(data); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if line, unit := q.Position(); line != 3 || unit != 17 {
		t.Fatalf("position got %d/%d want 3/17", line, unit)
	}
}
