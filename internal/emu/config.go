package emu

import (
	"log"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/apu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
)

// Config contains settings that affect emulation behavior.
type Config struct {
	BootROM        string // optional 256-byte DMG boot ROM; empty starts at $0100
	PatchIdleLoops bool   // rewrite recognised busy-wait loops at load time
	LoopDetect     bool   // stop with ErrInfiniteLoop on a jump to itself (test harnesses)
	Palette        string // "grey" or "green"
	SoundTickRate  int    // voice frames per second handed to the synthesizer
	SampleRate     int    // PCM output rate in Hz
	Hide           ppu.Layers
	Mute           [4]bool
	FrameSkip      int // frames emulated between framebuffer refreshes

	// Logf receives non-fatal reports. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Palette == "" {
		c.Palette = "grey"
	}
	if c.SoundTickRate <= 0 {
		c.SoundTickRate = apu.DefaultTickRate
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 48000
	}
	if c.FrameSkip < 0 {
		c.FrameSkip = 0
	}
	if c.Logf == nil {
		c.Logf = log.Printf
	}
}
