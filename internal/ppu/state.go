package ppu

import (
	"bytes"
	"encoding/gob"
)

// Registers live on the bus; only the state machine's private counters and
// the picture itself are saved here.
type ppuState struct {
	Pos      int
	Enabled  bool
	WinLine  byte
	Sprites  [maxLineSprites]Sprite
	NSprites int
	LineRegs [Height]LineRegs
	Frame    [Width * Height]byte
}

func (p *PPU) SaveState() ([]byte, error) {
	var buf bytes.Buffer
	s := ppuState{
		Pos: p.pos, Enabled: p.enabled, WinLine: p.winLine,
		Sprites: p.sprites, NSprites: p.nsprites,
		LineRegs: p.lineRegs, Frame: p.frame,
	}
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *PPU) LoadState(data []byte) error {
	var s ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	p.pos, p.enabled, p.winLine = s.Pos, s.Enabled, s.WinLine
	p.sprites, p.nsprites = s.Sprites, s.NSprites
	p.lineRegs, p.frame = s.LineRegs, s.Frame
	return nil
}
