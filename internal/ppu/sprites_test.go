package ppu

import "testing"

func TestSelectSpritesLimitAndOrder(t *testing.T) {
	var oam [0xA0]byte
	xs := []byte{50, 20, 20, 90, 10, 60, 70, 80, 30, 40, 5, 5}
	for i, x := range xs {
		oam[i*4] = 16 // covers line 0
		oam[i*4+1] = x
	}
	oam[12*4] = 100 // not on line 0

	var out [maxLineSprites]Sprite
	n := selectSprites(&oam, 0, false, &out)
	if n != 10 {
		t.Fatalf("selected %d want 10", n)
	}
	want := []int{4, 1, 2, 8, 9, 0, 5, 6, 7, 3}
	for i, idx := range want {
		if out[i].Index != idx {
			t.Fatalf("slot %d got sprite %d want %d", i, out[i].Index, idx)
		}
	}
}

func TestSelectSpritesHeight(t *testing.T) {
	var oam [0xA0]byte
	oam[0] = 16 // rows 0-7, or 0-15 when tall
	var out [maxLineSprites]Sprite
	if n := selectSprites(&oam, 7, false, &out); n != 1 {
		t.Fatalf("line 7 short: %d", n)
	}
	if n := selectSprites(&oam, 8, false, &out); n != 0 {
		t.Fatalf("line 8 short: %d", n)
	}
	if n := selectSprites(&oam, 15, true, &out); n != 1 {
		t.Fatalf("line 15 tall: %d", n)
	}
	oam[0] = 0 // entirely above the screen
	if n := selectSprites(&oam, 0, true, &out); n != 0 {
		t.Fatalf("hidden sprite selected")
	}
}

func TestComposeSpriteLinePriorityAndTransparency(t *testing.T) {
	mem := mockVRAM{}
	mem[0x8000] = 0x80 // leftmost pixel opaque
	sprites := []Sprite{{X: 10, Y: 16}}
	var bg [Width]byte
	ci, _ := ComposeSpriteLine(mem, sprites, 0, &bg, false)
	if ci[2] != 1 {
		t.Fatalf("expected sprite pixel at x=2, got %d", ci[2])
	}
	if ci[3] != 0 {
		t.Fatalf("transparent pixel drawn at x=3")
	}
	sprites[0].Attr = AttrBehind
	bg[2] = 1
	ci, _ = ComposeSpriteLine(mem, sprites, 0, &bg, false)
	if ci[2] != 0 {
		t.Fatalf("expected sprite pixel hidden behind background")
	}
	bg[2] = 0
	ci, _ = ComposeSpriteLine(mem, sprites, 0, &bg, false)
	if ci[2] != 1 {
		t.Fatalf("behind sprite must show over background colour 0")
	}
}

func TestComposeSpriteLineFrontSpriteWins(t *testing.T) {
	mem := mockVRAM{}
	mem[0x8000] = 0xFF                    // tile 0: colour 1
	mem[0x8010], mem[0x8011] = 0xFF, 0xFF // tile 1: colour 3
	front := Sprite{X: 20, Y: 16, Tile: 0, Attr: AttrBehind}
	back := Sprite{X: 20, Y: 16, Tile: 1, Attr: AttrPalette}
	var bg [Width]byte
	bg[12] = 2
	ci, obp1 := ComposeSpriteLine(mem, []Sprite{front, back}, 0, &bg, false)
	if ci[12] != 0 {
		t.Fatalf("back sprite showed through a hidden front pixel: %d", ci[12])
	}
	if ci[13] != 1 || obp1[13] {
		t.Fatalf("front sprite pixel got %d obp1=%v", ci[13], obp1[13])
	}
}

func TestComposeSpriteLineFlipsAndEdges(t *testing.T) {
	mem := mockVRAM{}
	mem[0x8000] = 0x80     // row 0: leftmost pixel
	mem[0x8000+7*2] = 0x01 // row 7: rightmost pixel
	var bg [Width]byte

	ci, _ := ComposeSpriteLine(mem, []Sprite{{X: 8, Y: 16, Attr: AttrXFlip}}, 0, &bg, false)
	if ci[7] != 1 || ci[0] != 0 {
		t.Fatalf("x-flip got %v", ci[:8])
	}
	ci, _ = ComposeSpriteLine(mem, []Sprite{{X: 8, Y: 16, Attr: AttrYFlip}}, 0, &bg, false)
	if ci[7] != 1 {
		t.Fatalf("y-flip should read row 7, got %v", ci[:8])
	}
	ci, _ = ComposeSpriteLine(mem, []Sprite{{X: 0, Y: 16}, {X: 168, Y: 16}}, 0, &bg, false)
	for x, c := range ci {
		if c != 0 {
			t.Fatalf("off-screen sprite drew at %d", x)
		}
	}
	ci, _ = ComposeSpriteLine(mem, []Sprite{{X: 4, Y: 16}}, 0, &bg, false)
	if ci[0] != 0 {
		t.Fatalf("clipped pixel leaked to x=0")
	}
}

func TestComposeSpriteLineTallIgnoresLowTileBit(t *testing.T) {
	mem := mockVRAM{}
	mem[0x8010+1*2] = 0x80 // tile 1 row 1 = row 9 of the pair starting at tile 0
	var bg [Width]byte
	ci, _ := ComposeSpriteLine(mem, []Sprite{{X: 8, Y: 16, Tile: 1}}, 9, &bg, true)
	if ci[0] != 1 {
		t.Fatalf("tall sprite row 9 got %d want 1", ci[0])
	}
}
