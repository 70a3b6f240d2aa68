package emu

import (
	"fmt"
	"image/color"
)

// Palette maps the four DMG shades, lightest first, to display colors.
type Palette [4]color.RGBA

var paletteNames = []string{"grey", "green"}

var palettes = map[string]Palette{
	"grey": {
		{0xE3, 0xE3, 0xE3, 0xFF},
		{0xA2, 0xA2, 0xA2, 0xFF},
		{0x61, 0x61, 0x61, 0xFF},
		{0x20, 0x20, 0x20, 0xFF},
	},
	// the pea-soup LCD
	"green": {
		{0x82, 0x9A, 0x51, 0xFF},
		{0x59, 0x82, 0x49, 0xFF},
		{0x31, 0x69, 0x41, 0xFF},
		{0x08, 0x51, 0x39, 0xFF},
	},
}

// PaletteNames lists the built-in palettes in menu order.
func PaletteNames() []string { return append([]string(nil), paletteNames...) }

func lookupPalette(name string) (Palette, error) {
	p, ok := palettes[name]
	if !ok {
		return Palette{}, fmt.Errorf("unknown palette %q", name)
	}
	return p, nil
}
