package ppu

// fetchRow fills out with colour indices from map row y starting at pixel
// x, wrapping around the 256-pixel map.
func fetchRow(mem VRAMReader, mapBase uint16, unsigned bool, x, y byte, out []byte) {
	var q fifo
	f := newTileFetcher(mem, &q, mapBase, unsigned, y)
	f.Seek(x)
	f.Fetch()
	for i := 0; i < int(x&7); i++ {
		_, _ = q.Pop()
	}
	for i := range out {
		if q.Len() == 0 {
			f.Fetch()
		}
		out[i], _ = q.Pop()
	}
}

func mapBase(lcdc, bit byte) uint16 {
	if lcdc&bit != 0 {
		return 0x9C00
	}
	return 0x9800
}

// shade maps a colour index through a palette register.
func shade(pal, ci byte) byte { return pal >> (ci * 2) & 3 }

// drawLine renders line ly from its descriptor into out as shades.
func drawLine(mem VRAMReader, r *LineRegs, ly int, layers Layers, out []byte) {
	var bg [Width]byte
	unsigned := r.LCDC&lcdcTileData != 0
	if r.LCDC&lcdcBG != 0 {
		if layers&LayerBG != 0 {
			fetchRow(mem, mapBase(r.LCDC, lcdcBGMap), unsigned, r.SCX, byte(ly)+r.SCY, bg[:])
		}
		if r.Window && layers&LayerWindow != 0 {
			start := int(r.WX) - 7
			var win [Width + 7]byte
			fetchRow(mem, mapBase(r.LCDC, lcdcWindowMap), unsigned, 0, r.WinLine, win[:])
			for x := max(start, 0); x < Width; x++ {
				bg[x] = win[x-start]
			}
		}
		for x := range bg {
			out[x] = shade(r.BGP, bg[x])
		}
	} else {
		clear(out[:Width])
	}

	if r.LCDC&lcdcSprites == 0 || layers&LayerSprites == 0 {
		return
	}
	ci, obp1 := ComposeSpriteLine(mem, r.Sprites[:r.NSprites], ly, &bg, r.LCDC&lcdcTallSprites != 0)
	for x, c := range ci {
		if c == 0 {
			continue
		}
		pal := r.OBP0
		if obp1[x] {
			pal = r.OBP1
		}
		out[x] = shade(pal, c)
	}
}

func (p *PPU) renderLine(y int) {
	drawLine(vram{p.bus.VRAM()}, &p.lineRegs[y], y, p.Layers, p.frame[y*Width:(y+1)*Width])
}
