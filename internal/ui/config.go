package ui

import (
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/input"
	"github.com/hajimehoshi/ebiten/v2"
)

// Keymap binds host keys to joypad keys.
type Keymap map[ebiten.Key]input.Keys

// DefaultKeymap is Z/X for A/B, Enter for Start, right shift for Select and
// the arrow keys for the pad.
func DefaultKeymap() Keymap {
	return Keymap{
		ebiten.KeyZ:          input.A,
		ebiten.KeyX:          input.B,
		ebiten.KeyEnter:      input.Start,
		ebiten.KeyShiftRight: input.Select,
		ebiten.KeyArrowUp:    input.Up,
		ebiten.KeyArrowDown:  input.Down,
		ebiten.KeyArrowLeft:  input.Left,
		ebiten.KeyArrowRight: input.Right,
	}
}

// Config contains window/input/audio related settings.
type Config struct {
	Title       string // window title
	Scale       int    // integer upscaling factor
	Audio       bool   // open an audio player at start
	AudioStereo bool   // if true, output true stereo; if false, fold to mono
	// Audio buffering
	AudioBufferMs   int    // most audio kept queued before old frames are dropped
	AudioLowLatency bool   // smaller player buffer and read chunks
	ROMsDir         string // directory to browse for ROMs
	Keymap          Keymap
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbemu"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.AudioBufferMs <= 0 {
		c.AudioBufferMs = 60
	}
	if c.ROMsDir == "" {
		c.ROMsDir = "roms"
	}
	if c.Keymap == nil {
		c.Keymap = DefaultKeymap()
	}
}
