// Package ppu advances the picture timing state machine on the shared cycle
// counter and renders each visible line into a shade framebuffer.
package ppu

import (
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/bus"
)

const (
	Width  = 160
	Height = 144

	// LineCycles is one scanline in machine cycles; Lines includes vblank.
	LineCycles  = 114
	Lines       = 154
	FrameCycles = LineCycles * Lines

	// Unit positions inside a visible line.
	searchStart   = 1
	transferStart = 21
	hblankStart   = 65
)

// STAT bits.
const (
	statCoincidence = 1 << 2
	statHBlankIRQ   = 1 << 3
	statVBlankIRQ   = 1 << 4
	statOAMIRQ      = 1 << 5
	statLYCIRQ      = 1 << 6
)

// LCDC bits.
const (
	lcdcBG          = 1 << 0
	lcdcSprites     = 1 << 1
	lcdcTallSprites = 1 << 2
	lcdcBGMap       = 1 << 3
	lcdcTileData    = 1 << 4
	lcdcWindow      = 1 << 5
	lcdcWindowMap   = 1 << 6
	lcdcOn          = 1 << 7
)

// Layers selects which planes the renderer draws.
type Layers uint8

const (
	LayerBG Layers = 1 << iota
	LayerWindow
	LayerSprites

	AllLayers = LayerBG | LayerWindow | LayerSprites
)

// LineRegs is the descriptor of one visible line: the registers the pixel
// sources read, latched when the line enters pixel transfer.
type LineRegs struct {
	LCDC    byte
	SCY     byte
	SCX     byte
	BGP     byte
	OBP0    byte
	OBP1    byte
	WY      byte
	WX      byte
	WinLine byte
	Window  bool // window covers this line

	Sprites  [maxLineSprites]Sprite
	NSprites int
}

// PPU keeps no register copies: LCDC, STAT, LY and friends live in the
// bus I/O block and are read back every unit.
type PPU struct {
	bus *bus.Bus

	pos     int // unit within the frame, 0..FrameCycles-1
	enabled bool
	winLine byte

	sprites  [maxLineSprites]Sprite
	nsprites int
	lineRegs [Height]LineRegs

	frame [Width * Height]byte

	// Layers masks planes out of the rendered picture.
	Layers Layers
}

func New(b *bus.Bus) *PPU {
	return &PPU{bus: b, Layers: AllLayers}
}

// Advance runs the state machine for the given machine cycles and reports
// whether the vertical-blank boundary was crossed.
func (p *PPU) Advance(cycles int) bool {
	frame := false
	for ; cycles > 0; cycles-- {
		if p.step() {
			frame = true
		}
	}
	return frame
}

// Position returns the current line and unit within it.
func (p *PPU) Position() (line, unit int) {
	return p.pos / LineCycles, p.pos % LineCycles
}

func (p *PPU) step() bool {
	b := p.bus
	lcdc := b.IO(bus.RegLCDC)
	if lcdc&lcdcOn == 0 {
		if p.enabled {
			b.SetIO(bus.RegSTAT, b.IO(bus.RegSTAT)&^0x03)
			b.SetIO(bus.RegLY, 0)
			clear(p.frame[:])
		}
		p.enabled = false
		p.pos = 0
		return false
	}
	p.enabled = true

	y, x := p.pos/LineCycles, p.pos%LineCycles
	if y > 0 && x == 1 || y == Lines-1 && x == 3 {
		p.compareLY()
	}
	if y > 0 && x == 0 {
		b.SetIO(bus.RegLY, byte(y))
	} else if y == Lines-1 && x == 1 {
		b.SetIO(bus.RegLY, 0)
	}

	frame := false
	switch {
	case y < Height:
		switch x {
		case searchStart:
			p.setMode(2, statOAMIRQ)
			p.nsprites = selectSprites(b.OAM(), y, lcdc&lcdcTallSprites != 0, &p.sprites)
		case transferStart:
			p.setMode(3, 0)
			p.latchLine(y)
			p.renderLine(y)
		case hblankStart:
			p.setMode(0, statHBlankIRQ)
		}
	case y == Height && x == 1:
		b.RequestInterrupt(bus.IntVBlank)
		p.setMode(1, statVBlankIRQ)
		frame = true
	}

	p.pos++
	if p.pos == FrameCycles {
		p.pos = 0
	}
	return frame
}

// compareLY updates the coincidence flag and raises STAT while LY matches
// LYC and the compare interrupt is enabled.
func (p *PPU) compareLY() {
	b := p.bus
	stat := b.IO(bus.RegSTAT) &^ statCoincidence
	if b.IO(bus.RegLY) == b.IO(bus.RegLYC) {
		stat |= statCoincidence
		if stat&statLYCIRQ != 0 {
			b.RequestInterrupt(bus.IntSTAT)
		}
	}
	b.SetIO(bus.RegSTAT, stat)
}

func (p *PPU) setMode(mode, irq byte) {
	stat := p.bus.IO(bus.RegSTAT)
	if stat&irq != 0 {
		p.bus.RequestInterrupt(bus.IntSTAT)
	}
	p.bus.SetIO(bus.RegSTAT, stat&^0x03|mode)
}

// latchLine captures the descriptor for line y and advances the window
// counter. The counter restarts on line 0 and only counts lines the
// window covers.
func (p *PPU) latchLine(y int) {
	b := p.bus
	if y == 0 {
		p.winLine = 0
	}
	lcdc, wy, wx := b.IO(bus.RegLCDC), b.IO(bus.RegWY), b.IO(bus.RegWX)
	window := lcdc&lcdcWindow != 0 && y >= int(wy) && y < int(wy)+Height && wx < 167

	p.lineRegs[y] = LineRegs{
		LCDC: lcdc, SCY: b.IO(bus.RegSCY), SCX: b.IO(bus.RegSCX),
		BGP: b.IO(bus.RegBGP), OBP0: b.IO(bus.RegOBP0), OBP1: b.IO(bus.RegOBP1),
		WY: wy, WX: wx, WinLine: p.winLine, Window: window,
		Sprites: p.sprites, NSprites: p.nsprites,
	}
	if window {
		p.winLine++
	}
}

// LineRegs returns the descriptor latched for a visible line.
func (p *PPU) LineRegs(y int) LineRegs {
	if y < 0 || y >= Height {
		return LineRegs{}
	}
	return p.lineRegs[y]
}

// Frame returns the shade (0 lightest, 3 darkest) of every pixel, row-major.
func (p *PPU) Frame() *[Width * Height]byte { return &p.frame }
