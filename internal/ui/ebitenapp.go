package ui

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/capture"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/input"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const numSlots = 4

type App struct {
	cfg    Config
	m      *emu.Machine
	tex    *ebiten.Image
	shade  *ebiten.Image
	paused bool
	fast   bool

	audioCtx    *audio.Context
	audioPlayer *audio.Player
	audioSrc    *apuStream
	audioMuted  bool

	// overlay/menu
	showMenu    bool
	menuMode    string // "main", "slot", "rom", "sound", "video", "keys"
	menuIdx     int
	currentSlot int
	romList     []string
	romSel      int
	romOff      int
	keysOff     int

	toastMsg   string
	toastUntil time.Time

	curW, curH int
}

func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	a := &App{cfg: cfg, m: m, menuMode: "main"}
	a.applyWindowSize()
	a.updateTitle()
	if cfg.Audio {
		a.openAudio()
	}
	return a
}

func (a *App) Run() error {
	defer a.closeAudio()
	return ebiten.RunGame(a)
}

func (a *App) Update() error {
	if a.showMenu {
		a.m.SetKeys(0)
		a.updateMenu()
		return nil
	}

	var keys input.Keys
	for k, gb := range a.cfg.Keymap {
		if ebiten.IsKeyPressed(k) {
			keys |= gb
		}
	}
	a.m.SetKeys(keys)

	a.updateHotkeys()

	fast := ebiten.IsKeyPressed(ebiten.KeyTab)
	if fast != a.fast {
		a.fast = fast
		a.applyPlayerBufferSize()
	}

	if a.paused {
		if inpututil.IsKeyJustPressed(ebiten.KeyN) {
			a.stepFrame()
		}
		return nil
	}
	n := 1
	if a.fast {
		n = 5
	}
	for range n {
		if !a.stepFrame() {
			break
		}
	}
	a.capAudio()
	return nil
}

// stepFrame runs one frame and pauses on an emulation error.
func (a *App) stepFrame() bool {
	err := a.m.StepFrame()
	if err == nil {
		return true
	}
	a.paused = true
	if errors.Is(err, emu.ErrInfiniteLoop) {
		a.toast("CPU stopped: " + err.Error())
	} else {
		a.toast("Emulation error: " + err.Error())
	}
	return false
}

func (a *App) updateHotkeys() {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.openMenu()
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.reset(false)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		if a.m.HasBootROM() {
			a.reset(true)
		} else {
			a.toast("No boot ROM configured")
		}
	}
	// F1-F4 mute the sound channels.
	for ch, k := range []ebiten.Key{ebiten.KeyF1, ebiten.KeyF2, ebiten.KeyF3, ebiten.KeyF4} {
		if inpututil.IsKeyJustPressed(k) {
			a.toggleMute(ch)
		}
	}
	for l, k := range map[ppu.Layers]ebiten.Key{ppu.LayerBG: ebiten.KeyF6, ppu.LayerWindow: ebiten.KeyF7, ppu.LayerSprites: ebiten.KeyF8} {
		if inpututil.IsKeyJustPressed(k) {
			a.toggleLayer(l)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF10) {
		a.toast("Palette: " + a.m.CyclePalette())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		a.saveSlot(a.currentSlot)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		a.loadSlot(a.currentSlot)
	}
	for i, k := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4} {
		if inpututil.IsKeyJustPressed(k) {
			a.currentSlot = i
			a.toast(fmt.Sprintf("Slot set to %d", i+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		a.audioMuted = !a.audioMuted
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		a.screenshot()
	}
}

func (a *App) reset(withBoot bool) {
	if err := a.m.Reset(withBoot); err != nil {
		a.toast("Reset failed: " + err.Error())
		return
	}
	a.paused = false
}

func (a *App) toggleMute(ch int) {
	on := !a.m.Muted(ch)
	a.m.SetMute(ch, on)
	a.toast(fmt.Sprintf("Channel %d %s", ch+1, onOff(!on)))
}

func (a *App) toggleLayer(l ppu.Layers) {
	shown := a.m.ToggleLayer(l)&l != 0
	a.toast(fmt.Sprintf("%s %s", layerName(l), onOff(shown)))
}

func (a *App) saveSlot(slot int) {
	if err := a.m.SaveSlot(slot); err != nil {
		a.toast("Save failed: " + err.Error())
		return
	}
	a.toast(fmt.Sprintf("Saved slot %d", slot+1))
}

func (a *App) loadSlot(slot int) {
	if !a.slotExists(slot) {
		a.toast("Slot is empty")
		return
	}
	if err := a.m.LoadSlot(slot); err != nil {
		a.toast("Load failed: " + err.Error())
		return
	}
	a.paused = false
	a.toast(fmt.Sprintf("Loaded slot %d", slot+1))
}

func (a *App) screenshot() {
	name := capture.ScreenshotName(time.Now())
	if err := capture.SavePNG(name, a.m.Framebuffer(), ppu.Width, ppu.Height, a.cfg.Scale); err != nil {
		a.toast("Screenshot failed: " + err.Error())
		return
	}
	a.toast("Saved " + name)
}

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

func (a *App) applyWindowSize() {
	ebiten.SetWindowSize(ppu.Width*a.cfg.Scale, ppu.Height*a.cfg.Scale)
}

func (a *App) updateTitle() {
	title := a.cfg.Title
	if t := a.m.ROMTitle(); t != "" {
		title += " - [" + t + "]"
	}
	ebiten.SetWindowTitle(title)
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(ppu.Width, ppu.Height)
	}
	a.tex.WritePixels(a.m.Framebuffer())

	// Largest integer scale that fits, centered.
	s := max(1, min(a.curW/ppu.Width, a.curH/ppu.Height))
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(s), float64(s))
	op.GeoM.Translate(float64(a.curW-ppu.Width*s)/2, float64(a.curH-ppu.Height*s)/2)
	screen.DrawImage(a.tex, op)

	if a.showMenu {
		a.dim(screen)
		a.drawMenu(screen)
	} else if a.paused {
		a.print(screen, "PAUSED", 4, 4)
	}
	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		a.print(screen, a.truncateText(a.toastMsg, a.maxCharsForText(4)), 4, a.curH-lineH-2)
	}
}

// dim darkens the game picture behind the menu.
func (a *App) dim(screen *ebiten.Image) {
	if a.shade == nil {
		a.shade = ebiten.NewImage(1, 1)
		a.shade.Fill(color.RGBA{0, 0, 0, 0xC0})
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(a.curW), float64(a.curH))
	screen.DrawImage(a.shade, op)
}

func (a *App) Layout(outW, outH int) (int, int) {
	a.curW, a.curH = outW, outH
	return outW, outH
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func layerName(l ppu.Layers) string {
	switch l {
	case ppu.LayerBG:
		return "Background"
	case ppu.LayerWindow:
		return "Window"
	}
	return "Sprites"
}
