package bus

import (
	"bytes"
	"encoding/gob"
)

type busState struct {
	VRAM      [0x2000]byte
	WRAM      [0x2000]byte
	OAM       [0xA0]byte
	IO        [0x80]byte
	HRAM      [0x7F]byte
	IE        byte
	JoypadSel byte
}

// SaveState snapshots bus-owned memory. The cartridge saves itself.
func (b *Bus) SaveState() ([]byte, error) {
	var buf bytes.Buffer
	st := busState{VRAM: b.vram, WRAM: b.wram, OAM: b.oam, IO: b.io, HRAM: b.hram, IE: b.ie, JoypadSel: b.joypad.Select()}
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Bus) LoadState(data []byte) error {
	var st busState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	b.vram, b.wram, b.oam, b.io, b.hram, b.ie = st.VRAM, st.WRAM, st.OAM, st.IO, st.HRAM, st.IE
	b.joypad.Write(st.JoypadSel)
	return nil
}
