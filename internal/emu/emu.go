// Package emu wires cartridge, bus, CPU, picture and sound into a Machine
// and drives them one frame or up to a cycle target at a time.
package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/apu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/bus"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/input"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
)

var (
	// ErrInfiniteLoop is returned when loop detection is on and the program
	// jumped to its own address.
	ErrInfiniteLoop = errors.New("infinite loop detected")
	// ErrNoCartridge is returned by operations that need a loaded cartridge.
	ErrNoCartridge = errors.New("no cartridge loaded")
)

type Machine struct {
	cfg Config
	fb  []byte // RGBA 160x144*4
	pal Palette

	// core components, nil until a cartridge is loaded
	bus   *bus.Bus
	cpu   *cpu.CPU
	ppu   *ppu.PPU
	sound *apu.SoundTimer
	synth *apu.Synth

	rom     []byte // image as loaded, before any idle-loop patching
	romPath string
	header  *cart.Header
	bootROM []byte
	serial  io.Writer

	soundCycles int // cycles run since the sound model last caught up
	frames      uint64
	skip        int
}

func New(cfg Config) *Machine {
	cfg.Defaults()
	m := &Machine{
		cfg:   cfg,
		fb:    make([]byte, ppu.Width*ppu.Height*4),
		synth: apu.NewSynth(cfg.SampleRate),
	}
	pal, err := lookupPalette(cfg.Palette)
	if err != nil {
		cfg.Logf("emu: %v, using grey", err)
		pal = palettes["grey"]
	}
	m.pal = pal
	if cfg.BootROM != "" {
		data, err := os.ReadFile(cfg.BootROM)
		if err != nil {
			cfg.Logf("emu: boot ROM: %v", err)
		} else {
			m.SetBootROM(data)
		}
	}
	return m
}

// LoadCartridge builds a fresh machine around rom. An unsupported mapper is
// reported through Logf and the image runs as a plain 32 KiB ROM.
func (m *Machine) LoadCartridge(rom []byte) error {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return fmt.Errorf("load cartridge: %w", err)
	}
	img := rom
	patched := 0
	if m.cfg.PatchIdleLoops {
		img = append([]byte(nil), rom...)
		patched = cart.PatchIdleLoops(img)
	}
	c, err := cart.New(img)
	if err != nil {
		if !errors.Is(err, cart.ErrUnsupportedMapper) {
			return fmt.Errorf("load cartridge: %w", err)
		}
		m.cfg.Logf("cart: %v, running without banking", err)
	}
	if h.Peripheral != "" {
		m.cfg.Logf("cart: %s not emulated", h.Peripheral)
	}
	if patched > 0 {
		m.cfg.Logf("cart: rewrote %d idle loops", patched)
	}

	b := bus.New(c)
	if m.serial != nil {
		b.SetSerialWriter(m.serial)
	}
	cp := cpu.New(b)
	cp.LoopDetect = m.cfg.LoopDetect
	cp.IdleOps = m.cfg.PatchIdleLoops
	p := ppu.New(b)
	p.Layers = ppu.AllLayers &^ m.cfg.Hide
	s := apu.NewSoundTimer(b, m.cfg.SoundTickRate)
	s.Mute = m.cfg.Mute
	s.SetSink(m.synth)

	m.bus, m.cpu, m.ppu, m.sound = b, cp, p, s
	m.rom, m.header = rom, h
	m.soundCycles, m.frames, m.skip = 0, 0, 0
	clear(m.fb)

	if len(m.bootROM) == 0x100 {
		b.SetBootROM(m.bootROM)
		cp.SP, cp.PC = 0xFFFE, 0x0000
	} else {
		cp.ResetNoBoot()
		m.applyPostBootIO()
	}
	return nil
}

// LoadROMFromFile replaces the current cartridge with a ROM from disk.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load ROM: %w", err)
	}
	if err := m.LoadCartridge(data); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// LoadROMOrDefault loads path and falls back to the bundled default program
// when the file is missing or unusable.
func (m *Machine) LoadROMOrDefault(path string) error {
	if path != "" {
		err := m.LoadROMFromFile(path)
		if err == nil {
			return nil
		}
		m.cfg.Logf("emu: %v, running default program", err)
	}
	m.romPath = ""
	return m.LoadCartridge(cart.DefaultROM())
}

// ROMPath returns the currently loaded ROM file path, if any.
func (m *Machine) ROMPath() string { return m.romPath }

// ROMTitle returns the header title of the loaded cartridge.
func (m *Machine) ROMTitle() string {
	if m.header == nil {
		return ""
	}
	return m.header.Title
}

// Header returns the parsed header of the loaded cartridge, or nil.
func (m *Machine) Header() *cart.Header { return m.header }

// SetBootROM sets the DMG boot ROM used by the next load or reset.
// Anything but a 256-byte image clears it.
func (m *Machine) SetBootROM(data []byte) {
	if len(data) != 0x100 {
		if len(data) > 0 {
			m.cfg.Logf("emu: boot ROM is %d bytes, want 256", len(data))
		}
		m.bootROM = nil
		return
	}
	m.bootROM = append([]byte(nil), data...)
}

// HasBootROM reports whether a DMG boot ROM is configured on this machine.
func (m *Machine) HasBootROM() bool { return len(m.bootROM) == 0x100 }

// Reset restarts the loaded cartridge, through the boot ROM when one is
// set and withBoot is true. Battery RAM survives.
func (m *Machine) Reset(withBoot bool) error {
	if m.bus == nil {
		return ErrNoCartridge
	}
	ram, hasRAM := m.SaveBattery()
	boot := m.bootROM
	if !withBoot {
		m.bootROM = nil
	}
	err := m.LoadCartridge(m.rom)
	m.bootROM = boot
	if err == nil && hasRAM {
		m.LoadBattery(ram)
	}
	return err
}

// applyPostBootIO sets the IO registers the boot ROM leaves behind, so ROMs
// can start from PC=0x0100 and still have the LCD enabled.
func (m *Machine) applyPostBootIO() {
	b := m.bus
	b.Write(0xFF00, 0xCF) // P1: no group selected
	b.Write(0xFF05, 0x00) // TIMA
	b.Write(0xFF06, 0x00) // TMA
	b.Write(0xFF07, 0x00) // TAC
	b.Write(0xFF26, 0x80) // NR52 power first, the other sound registers ignore writes while off
	b.Write(0xFF24, 0x77) // NR50
	b.Write(0xFF25, 0xF3) // NR51
	b.Write(0xFF40, 0x91) // LCDC: LCD on, BG on, tile data 8000, BG map 9800
	b.Write(0xFF42, 0x00) // SCY
	b.Write(0xFF43, 0x00) // SCX
	b.Write(0xFF45, 0x00) // LYC
	b.Write(0xFF47, 0xFC) // BGP
	b.Write(0xFF48, 0xFF) // OBP0
	b.Write(0xFF49, 0xFF) // OBP1
	b.Write(0xFF4A, 0x00) // WY
	b.Write(0xFF4B, 0x00) // WX
	b.Write(0xFFFF, 0x00) // IE
}

// StepFrame runs until the picture reaches vertical blank. With the LCD off
// there is no boundary, so a frame's worth of cycles is run instead.
func (m *Machine) StepFrame() error {
	if m.cpu == nil {
		return ErrNoCartridge
	}
	for elapsed := 0; elapsed < ppu.FrameCycles; {
		n, frame, err := m.step()
		if err != nil {
			m.catchUpSound()
			return err
		}
		elapsed += n
		if frame {
			m.endFrame()
			return nil
		}
	}
	m.endFrame()
	return nil
}

// RunUntil executes until the CPU cycle counter reaches target and returns
// the number of frame boundaries crossed. Control returns mid-frame.
func (m *Machine) RunUntil(target uint64) (int, error) {
	if m.cpu == nil {
		return 0, ErrNoCartridge
	}
	frames := 0
	for m.cpu.Cycles < target {
		_, frame, err := m.step()
		if err != nil {
			m.catchUpSound()
			return frames, err
		}
		if frame {
			frames++
			m.endFrame()
		}
	}
	m.catchUpSound()
	return frames, nil
}

// step executes one CPU step and lets the picture catch up to it.
func (m *Machine) step() (cycles int, frame bool, err error) {
	n := m.cpu.Step()
	if m.cpu.Looping() {
		return 0, false, fmt.Errorf("%w at %04X", ErrInfiniteLoop, m.cpu.PC)
	}
	m.soundCycles += n
	return n, m.ppu.Advance(n), nil
}

func (m *Machine) catchUpSound() {
	m.sound.Advance(m.soundCycles)
	m.soundCycles = 0
}

func (m *Machine) endFrame() {
	m.catchUpSound()
	m.frames++
	if m.skip > 0 {
		m.skip--
		return
	}
	m.skip = m.cfg.FrameSkip
	m.present()
}

// present converts the picture's shade buffer into RGBA.
func (m *Machine) present() {
	for i, s := range m.ppu.Frame() {
		c := m.pal[s&3]
		o := i * 4
		m.fb[o], m.fb[o+1], m.fb[o+2], m.fb[o+3] = c.R, c.G, c.B, 0xFF
	}
}

// Framebuffer returns the last presented frame as RGBA 160x144. The slice
// is reused.
func (m *Machine) Framebuffer() []byte { return m.fb }

// Shades returns the raw shade indices (0-3) of the picture in progress.
func (m *Machine) Shades() *[ppu.Width * ppu.Height]byte {
	if m.ppu == nil {
		return nil
	}
	return m.ppu.Frame()
}

// FrameCount is the number of frame boundaries since the cartridge was loaded.
func (m *Machine) FrameCount() uint64 { return m.frames }

// Cycles returns the CPU's machine-cycle counter.
func (m *Machine) Cycles() uint64 {
	if m.cpu == nil {
		return 0
	}
	return m.cpu.Cycles
}

// CPU exposes the processor for runners and debuggers.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Peek reads memory the way the CPU would.
func (m *Machine) Peek(addr uint16) byte {
	if m.bus == nil {
		return 0xFF
	}
	return m.bus.Read(addr)
}

// SetPalette switches to a built-in palette and redraws the current frame.
func (m *Machine) SetPalette(name string) error {
	p, err := lookupPalette(name)
	if err != nil {
		return err
	}
	m.pal, m.cfg.Palette = p, name
	if m.ppu != nil {
		m.present()
	}
	return nil
}

// CyclePalette advances to the next built-in palette and returns its name.
func (m *Machine) CyclePalette() string {
	next := paletteNames[0]
	for i, n := range paletteNames {
		if n == m.cfg.Palette {
			next = paletteNames[(i+1)%len(paletteNames)]
		}
	}
	_ = m.SetPalette(next)
	return next
}

func (m *Machine) PaletteName() string { return m.cfg.Palette }

// ToggleLayer flips the visibility of the given layers and returns the
// layers now shown.
func (m *Machine) ToggleLayer(l ppu.Layers) ppu.Layers {
	m.cfg.Hide ^= l
	if m.ppu != nil {
		m.ppu.Layers = ppu.AllLayers &^ m.cfg.Hide
	}
	return m.Layers()
}

// Layers reports the planes currently drawn.
func (m *Machine) Layers() ppu.Layers { return ppu.AllLayers &^ m.cfg.Hide }

// SetMute silences sound channel ch (0-3) in the mixed output.
func (m *Machine) SetMute(ch int, on bool) {
	if ch < 0 || ch >= len(m.cfg.Mute) {
		return
	}
	m.cfg.Mute[ch] = on
	if m.sound != nil {
		m.sound.Mute[ch] = on
	}
}

func (m *Machine) Muted(ch int) bool {
	return ch >= 0 && ch < len(m.cfg.Mute) && m.cfg.Mute[ch]
}

// SetButtons forwards host input to the joypad register.
func (m *Machine) SetButtons(b input.Buttons) { m.SetKeys(b.Keys()) }

func (m *Machine) SetKeys(k input.Keys) {
	if m.bus != nil {
		m.bus.SetKeys(k)
	}
}

// SetSerialWriter connects an io.Writer to receive bytes written to the
// serial port. Useful for running test ROMs that report via serial.
func (m *Machine) SetSerialWriter(w io.Writer) {
	m.serial = w
	if m.bus != nil {
		m.bus.SetSerialWriter(w)
	}
}

// SampleRate is the PCM rate of the stereo stream.
func (m *Machine) SampleRate() int { return m.synth.SampleRate() }

// SetAudioTap receives every rendered PCM batch, e.g. for WAV capture.
func (m *Machine) SetAudioTap(fn func(frames []int16)) { m.synth.SetTap(fn) }

// APUPullStereo returns up to max stereo frames as interleaved int16 L,R pairs.
func (m *Machine) APUPullStereo(max int) []int16 { return m.synth.PullStereo(max) }

// APUBufferedStereo returns the number of stereo frames ready in the buffer.
func (m *Machine) APUBufferedStereo() int { return m.synth.StereoAvailable() }

// APUCapBufferedStereo trims the buffered frames to at most target frames.
func (m *Machine) APUCapBufferedStereo(target int) { m.synth.TrimTo(target) }
