package ui

import (
	"fmt"
	"image/color"
	"path/filepath"
	"slices"
	"strings"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/input"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

const (
	lineH    = 14
	charW    = 7 // basicfont.Face7x13 advance
	romListY = 40
)

// print draws one line with its top edge at y.
func (a *App) print(screen *ebiten.Image, s string, x, y int) {
	text.Draw(screen, s, basicfont.Face7x13, x, y+basicfont.Face7x13.Ascent, color.White)
}

func (a *App) maxCharsForText(x int) int {
	return max(1, (a.curW-2*x)/charW)
}

func (a *App) truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// wrapText breaks s on spaces into lines of at most n characters.
func (a *App) wrapText(s string, n int) []string {
	var lines []string
	cur := ""
	for _, w := range strings.Fields(s) {
		switch {
		case cur == "":
			cur = w
		case len(cur)+1+len(w) <= n:
			cur += " " + w
		default:
			lines = append(lines, cur)
			cur = w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// drawTitle prints a wrapped heading and returns the y below it.
func (a *App) drawTitle(screen *ebiten.Image, title string) int {
	y := 10
	for _, w := range a.wrapText(title, a.maxCharsForText(10)) {
		a.print(screen, w, 10, y)
		y += lineH
	}
	return y + 4
}

// drawList prints rows with a cursor on sel.
func (a *App) drawList(screen *ebiten.Image, rows []string, sel, y int) {
	maxChars := a.maxCharsForText(10)
	for i, s := range rows {
		prefix := "  "
		if i == sel {
			prefix = "> "
		}
		a.print(screen, a.truncateText(prefix+s, maxChars), 10, y+i*lineH)
	}
}

func (a *App) drawMenu(screen *ebiten.Image) {
	switch a.menuMode {
	case "slot":
		a.drawSlotMenu(screen)
	case "rom":
		a.drawRomMenu(screen)
	case "sound":
		a.drawSoundMenu(screen)
	case "video":
		a.drawVideoMenu(screen)
	case "keys":
		a.drawKeysMenu(screen)
	default:
		a.drawMainMenu(screen)
	}
}

func (a *App) drawMainMenu(screen *ebiten.Image) {
	y := a.drawTitle(screen, "Menu")
	rows := slices.Clone(mainItems)
	rows[0] = fmt.Sprintf("Save state (slot %d)", a.currentSlot+1)
	rows[1] = fmt.Sprintf("Load state (slot %d)", a.currentSlot+1)
	a.drawList(screen, rows, a.menuIdx, y)
	// quick hints, keep on-screen
	hint := "F5: Save  F9: Load  1-4: Slot  F11: Fullscreen  Backspace: Back"
	a.print(screen, a.truncateText(hint, a.maxCharsForText(10)), 10, y+(len(rows)+1)*lineH)
}

func (a *App) drawSlotMenu(screen *ebiten.Image) {
	y := a.drawTitle(screen, "Select Slot")
	rows := make([]string, numSlots)
	for i := range rows {
		rows[i] = fmt.Sprintf("%d", i+1)
		if !a.slotExists(i) {
			rows[i] += " [empty]"
		}
	}
	a.drawList(screen, rows, a.menuIdx, y)
}

func (a *App) drawRomMenu(screen *ebiten.Image) {
	a.print(screen, a.truncateText("Select ROM (Enter to load, Backspace/Esc to return)", a.maxCharsForText(10)), 10, 10)
	a.print(screen, a.truncateText("Dir: "+a.cfg.ROMsDir, a.maxCharsForText(10)), 10, 24)
	if len(a.romList) == 0 {
		a.print(screen, "No ROMs found", 10, romListY)
		return
	}
	rows := a.romRows()
	end := min(a.romOff+rows, len(a.romList))
	names := make([]string, 0, end-a.romOff)
	for _, p := range a.romList[a.romOff:end] {
		names = append(names, filepath.Base(p))
	}
	a.drawList(screen, names, a.romSel-a.romOff, romListY)
	// scroll indicators
	if a.romOff > 0 {
		a.print(screen, "^", 2, romListY)
	}
	if end < len(a.romList) {
		a.print(screen, "v", 2, romListY+(rows-1)*lineH)
	}
}

func (a *App) drawSoundMenu(screen *ebiten.Image) {
	y := a.drawTitle(screen, "Sound (Enter/Left/Right toggles)")
	rows := make([]string, 0, 6)
	for ch := range 4 {
		rows = append(rows, fmt.Sprintf("Channel %d: %s", ch+1, onOff(!a.m.Muted(ch))))
	}
	rows = append(rows,
		"Output: "+map[bool]string{true: "Stereo", false: "Mono"}[a.cfg.AudioStereo],
		"Low-Latency Audio: "+onOff(a.cfg.AudioLowLatency))
	a.drawList(screen, rows, a.menuIdx, y)
}

func (a *App) drawVideoMenu(screen *ebiten.Image) {
	y := a.drawTitle(screen, "Video (Enter/Left/Right changes)")
	rows := make([]string, 0, len(menuLayers)+2)
	for _, l := range menuLayers {
		shown := a.m.Layers()&l != 0
		rows = append(rows, fmt.Sprintf("%s: %s", layerName(l), onOff(shown)))
	}
	rows = append(rows,
		"Palette: "+a.m.PaletteName(),
		fmt.Sprintf("Scale: %dx", a.cfg.Scale))
	a.drawList(screen, rows, a.menuIdx, y)
}

var keyOrder = []input.Keys{input.Up, input.Down, input.Left, input.Right, input.A, input.B, input.Start, input.Select}

var keyLabels = map[input.Keys]string{
	input.Up: "Up", input.Down: "Down", input.Left: "Left", input.Right: "Right",
	input.A: "A", input.B: "B", input.Start: "Start", input.Select: "Select",
}

func (a *App) keyRows() []string {
	var rows []string
	for _, gb := range keyOrder {
		var hosts []string
		for k, v := range a.cfg.Keymap {
			if v == gb {
				hosts = append(hosts, k.String())
			}
		}
		slices.Sort(hosts)
		rows = append(rows, strings.Join(hosts, "/")+": "+keyLabels[gb])
	}
	return append(rows,
		"P: Pause",
		"N: Step (when paused)",
		"Tab: Fast-forward",
		"R: Reset",
		"B: Reset with Boot ROM",
		"F1-F4: Mute channel",
		"F6-F8: Toggle BG/Window/Sprites",
		"F10: Cycle palette",
		"F12: Screenshot",
		"M: Mute audio",
		"Esc: Open/Close Menu",
	)
}

func (a *App) drawKeysMenu(screen *ebiten.Image) {
	baseY := a.drawTitle(screen, "Keybindings (Up/Down to scroll, Backspace/Esc to return)")
	rows := a.keyRows()
	maxRows := max(1, (a.curH-baseY)/lineH)
	a.keysOff = max(0, min(a.keysOff, len(rows)-1))
	end := min(a.keysOff+maxRows, len(rows))
	maxChars := a.maxCharsForText(10)
	for i := a.keysOff; i < end; i++ {
		a.print(screen, a.truncateText(rows[i], maxChars), 10, baseY+(i-a.keysOff)*lineH)
	}
	// scroll indicators
	if a.keysOff > 0 {
		a.print(screen, "^", 2, baseY)
	}
	if end < len(rows) {
		a.print(screen, "v", 2, baseY+(maxRows-1)*lineH)
	}
}
