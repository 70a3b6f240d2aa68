package ppu

import "testing"

func TestDrawLinePalettesAndWindow(t *testing.T) {
	mem := mockVRAM{}
	mem[0x9800] = 1                       // background tile
	mem[0x9C00] = 2                       // window tile
	mem[0x8010], mem[0x8011] = 0xFF, 0x00 // tile 1: colour 1
	mem[0x8020], mem[0x8021] = 0x00, 0xFF // tile 2: colour 2

	r := LineRegs{LCDC: 0x80 | lcdcTileData | lcdcBG, BGP: 0xE4}
	out := make([]byte, Width)
	drawLine(mem, &r, 0, AllLayers, out)
	if out[0] != 1 || out[8] != 0 {
		t.Fatalf("background shades got %d/%d want 1/0", out[0], out[8])
	}

	r.BGP = 0x1B // reversed
	drawLine(mem, &r, 0, AllLayers, out)
	if out[0] != 2 || out[8] != 3 {
		t.Fatalf("palette mapping got %d/%d want 2/3", out[0], out[8])
	}

	r = LineRegs{LCDC: 0x80 | lcdcTileData | lcdcBG | lcdcWindowMap, BGP: 0xE4, WX: 7 + 20, Window: true}
	drawLine(mem, &r, 0, AllLayers, out)
	if out[19] != 0 || out[20] != 2 || out[27] != 2 {
		t.Fatalf("window edge got %d %d %d", out[19], out[20], out[27])
	}
	drawLine(mem, &r, 0, AllLayers&^LayerWindow, out)
	if out[20] != 0 {
		t.Fatalf("window drawn while masked")
	}
}

func TestDrawLineBackgroundOffAndSprites(t *testing.T) {
	mem := mockVRAM{}
	mem[0x8000], mem[0x8001] = 0xFF, 0xFF // tile 0: colour 3
	r := LineRegs{LCDC: 0x80 | lcdcTileData | lcdcSprites, BGP: 0xFF, OBP0: 0xE4, OBP1: 0x1B}
	r.Sprites[0] = Sprite{X: 8, Y: 16, Attr: AttrPalette}
	r.NSprites = 1

	out := make([]byte, Width)
	drawLine(mem, &r, 0, AllLayers, out)
	if out[8] != 0 {
		t.Fatalf("disabled background should be blank, got %d", out[8])
	}
	if out[0] != 0 { // colour 3 through OBP1=0x1B is shade 0
		t.Fatalf("sprite through OBP1 got %d want 0", out[0])
	}
	r.Sprites[0].Attr = 0
	drawLine(mem, &r, 0, AllLayers, out)
	if out[0] != 3 {
		t.Fatalf("sprite through OBP0 got %d want 3", out[0])
	}
	drawLine(mem, &r, 0, AllLayers&^LayerSprites, out)
	if out[0] != 0 {
		t.Fatalf("sprite drawn while masked")
	}
}
