package ui

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

var mainItems = []string{"Save state", "Load state", "Select slot", "Switch ROM", "Sound", "Video", "Keybindings", "Close"}

var menuLayers = []ppu.Layers{ppu.LayerBG, ppu.LayerWindow, ppu.LayerSprites}

func (a *App) openMenu() {
	a.showMenu = true
	a.menuMode = "main"
	a.menuIdx = 0
}

func (a *App) closeMenu() {
	a.showMenu = false
	a.menuMode = "main"
}

func (a *App) back() {
	if a.menuMode == "main" {
		a.closeMenu()
		return
	}
	a.menuMode = "main"
	a.menuIdx = 0
}

func (a *App) updateMenu() {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.back()
		return
	}
	switch a.menuMode {
	case "slot":
		a.updateSlotMenu()
	case "rom":
		a.updateRomMenu()
	case "sound":
		a.updateSoundMenu()
	case "video":
		a.updateVideoMenu()
	case "keys":
		a.updateKeysMenu()
	default:
		a.updateMainMenu()
	}
}

// moveSel handles Up/Down over n entries.
func (a *App) moveSel(n int) {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
		a.menuIdx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < n-1 {
		a.menuIdx++
	}
}

func changed() bool {
	return inpututil.IsKeyJustPressed(ebiten.KeyEnter) ||
		inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) ||
		inpututil.IsKeyJustPressed(ebiten.KeyArrowRight)
}

func (a *App) updateMainMenu() {
	a.moveSel(len(mainItems))
	if !inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		return
	}
	switch a.menuIdx {
	case 0:
		a.saveSlot(a.currentSlot)
	case 1:
		a.loadSlot(a.currentSlot)
	case 2:
		a.menuMode = "slot"
		a.menuIdx = a.currentSlot
	case 3:
		a.romList = a.findROMs()
		a.romSel = 0
		a.romOff = 0
		a.menuMode = "rom"
	case 4:
		a.menuMode = "sound"
		a.menuIdx = 0
	case 5:
		a.menuMode = "video"
		a.menuIdx = 0
	case 6:
		a.menuMode = "keys"
		a.keysOff = 0
	case 7:
		a.closeMenu()
	}
}

func (a *App) updateSlotMenu() {
	a.moveSel(numSlots)
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		a.currentSlot = a.menuIdx
		a.toast(fmt.Sprintf("Slot set to %d", a.currentSlot+1))
		a.back()
	}
}

func (a *App) slotExists(slot int) bool {
	path, err := a.m.StatePath(slot)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// findROMs lists cartridge images under the ROMs directory, sorted.
func (a *App) findROMs() []string {
	var out []string
	filepath.WalkDir(a.cfg.ROMsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".gb", ".gbc":
			if !d.IsDir() {
				out = append(out, path)
			}
		}
		return nil
	})
	slices.Sort(out)
	return out
}

func (a *App) romRows() int {
	return max(1, (a.curH-romListY)/lineH)
}

func (a *App) updateRomMenu() {
	n := len(a.romList)
	if n == 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
			a.back()
		}
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.romSel > 0 {
		a.romSel--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.romSel < n-1 {
		a.romSel++
	}
	// keep the selection in the visible window
	rows := a.romRows()
	if a.romSel < a.romOff {
		a.romOff = a.romSel
	}
	if a.romSel >= a.romOff+rows {
		a.romOff = a.romSel - rows + 1
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		a.switchROM(a.romList[a.romSel])
		a.back()
	}
}

// switchROM writes the current battery RAM before loading another cartridge.
func (a *App) switchROM(path string) {
	if err := a.m.SaveBatteryFile(); err != nil {
		a.toast(err.Error())
		return
	}
	if err := a.m.LoadROMFromFile(path); err != nil {
		a.toast("ROM load failed: " + err.Error())
		return
	}
	if err := a.m.LoadBatteryFile(); err != nil {
		a.toast(err.Error())
	} else {
		a.toast("Loaded ROM: " + filepath.Base(path))
	}
	a.paused = false
	a.updateTitle()
}

// Sound menu rows: four channels, then stereo and low latency.
func (a *App) updateSoundMenu() {
	a.moveSel(6)
	if !changed() {
		return
	}
	switch {
	case a.menuIdx < 4:
		a.toggleMute(a.menuIdx)
	case a.menuIdx == 4:
		a.cfg.AudioStereo = !a.cfg.AudioStereo
		if a.audioSrc != nil {
			a.audioSrc.mono = !a.cfg.AudioStereo
		}
	case a.menuIdx == 5:
		a.cfg.AudioLowLatency = !a.cfg.AudioLowLatency
		if a.audioSrc != nil {
			a.audioSrc.lowLatency = a.cfg.AudioLowLatency
		}
		a.applyPlayerBufferSize()
	}
}

// Video menu rows: three layers, palette, scale.
func (a *App) updateVideoMenu() {
	a.moveSel(len(menuLayers) + 2)
	switch {
	case a.menuIdx < len(menuLayers):
		if changed() {
			a.toggleLayer(menuLayers[a.menuIdx])
		}
	case a.menuIdx == len(menuLayers):
		if changed() {
			a.m.CyclePalette()
		}
	default:
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) && a.cfg.Scale > 1 {
			a.cfg.Scale--
			a.applyWindowSize()
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) && a.cfg.Scale < 10 {
			a.cfg.Scale++
			a.applyWindowSize()
		}
	}
}

func (a *App) updateKeysMenu() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.keysOff > 0 {
		a.keysOff--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		a.keysOff++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		a.back()
	}
}
