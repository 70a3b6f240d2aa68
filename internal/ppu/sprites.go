package ppu

const (
	maxLineSprites = 10
	oamSprites     = 40
)

// Sprite attribute bits.
const (
	AttrPalette = 1 << 4 // OBP1 instead of OBP0
	AttrXFlip   = 1 << 5
	AttrYFlip   = 1 << 6
	AttrBehind  = 1 << 7 // hidden behind background colours 1-3
)

// Sprite is one object table entry. Y and X carry the hardware offsets of
// 16 and 8.
type Sprite struct {
	Y, X, Tile, Attr byte
	Index            int // slot in the object table
}

// selectSprites collects the first ten sprites covering line ly, sorted by
// x. Equal x keeps table order so the earlier slot stays in front.
func selectSprites(oam *[0xA0]byte, ly int, tall bool, out *[maxLineSprites]Sprite) int {
	height := 8
	if tall {
		height = 16
	}
	n := 0
	for i := 0; i < oamSprites && n < maxLineSprites; i++ {
		e := oam[i*4 : i*4+4]
		y := int(e[0])
		if y > ly+16 || ly+16 >= y+height {
			continue
		}
		s := Sprite{Y: e[0], X: e[1], Tile: e[2], Attr: e[3], Index: i}
		j := n
		for j > 0 && out[j-1].X > s.X {
			out[j] = out[j-1]
			j--
		}
		out[j] = s
		n++
	}
	return n
}

// ComposeSpriteLine resolves the sprite plane of line ly. Sprites earlier in
// the list win overlapping pixels; bg holds background colour indices for
// the behind-background test. The result holds colour index per pixel (0 for
// none) and whether OBP1 applies.
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly int, bg *[Width]byte, tall bool) (ci [Width]byte, obp1 [Width]bool) {
	height := 8
	if tall {
		height = 16
	}
	var taken [Width]bool
	for _, s := range sprites {
		if s.X == 0 || s.X >= Width+8 {
			continue
		}
		row := ly + 16 - int(s.Y)
		if s.Attr&AttrYFlip != 0 {
			row = height - 1 - row
		}
		tile := s.Tile
		if tall {
			tile &^= 1
		}
		addr := 0x8000 + uint16(tile)*16 + uint16(row)*2
		lo, hi := mem.Read(addr), mem.Read(addr+1)

		for px := 0; px < 8; px++ {
			x := int(s.X) - 8 + px
			if x < 0 || x >= Width || taken[x] {
				continue
			}
			bit := 7 - px
			if s.Attr&AttrXFlip != 0 {
				bit = px
			}
			c := hi>>bit&1<<1 | lo>>bit&1
			if c == 0 {
				continue
			}
			taken[x] = true
			if s.Attr&AttrBehind != 0 && bg[x] != 0 {
				continue
			}
			ci[x] = c
			obp1[x] = s.Attr&AttrPalette != 0
		}
	}
	return ci, obp1
}
