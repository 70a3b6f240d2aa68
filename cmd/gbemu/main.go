package main

import (
	"context"
	"flag"
	"fmt"
	"hash/crc32"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/capture"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/stats"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/tty"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ui"
)

type CLIFlags struct {
	ROMPath string
	BootROM string
	Scale   int
	Title   string
	SaveRAM bool // persist battery RAM next to ROM (.sav)
	ROMsDir string

	// emulation
	Palette   string
	FrameSkip int
	PatchIdle bool
	Mute      string // channels 1-4, comma separated
	Hide      string // bg,win,obj

	// output
	Audio     bool
	Stereo    bool
	WAVOut    string
	StatsView string
	TTY       bool

	// headless
	Headless bool
	Frames   int
	PNGOut   string
	Expect   string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb); the built-in test pattern runs without one")
	flag.StringVar(&f.BootROM, "bootrom", "", "optional DMG boot ROM")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "gbemu", "window title")
	flag.BoolVar(&f.SaveRAM, "save", true, "persist battery RAM to ROM.sav on exit and load on start")
	flag.StringVar(&f.ROMsDir, "romsdir", "roms", "directory listed by the ROM browser")

	flag.StringVar(&f.Palette, "palette", "grey", "display palette: "+strings.Join(emu.PaletteNames(), ", "))
	flag.IntVar(&f.FrameSkip, "frameskip", 0, "frames emulated between picture updates")
	flag.BoolVar(&f.PatchIdle, "patch-idle", false, "rewrite busy-wait loops at load time")
	flag.StringVar(&f.Mute, "mute", "", "sound channels to mute, e.g. 1,3")
	flag.StringVar(&f.Hide, "hide", "", "layers to hide: bg, win, obj")

	flag.BoolVar(&f.Audio, "audio", true, "play sound")
	flag.BoolVar(&f.Stereo, "stereo", true, "stereo output (false folds to mono)")
	flag.StringVar(&f.WAVOut, "wav", "", "record sound to a WAV file")
	flag.StringVar(&f.StatsView, "statsview", "", "serve runtime statistics on addr (e.g. "+stats.DefaultAddress+")")
	flag.BoolVar(&f.TTY, "tty", false, "render in the terminal instead of a window")

	// headless options
	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

// parseMute turns "1,3" into channel mutes.
func parseMute(s string) ([4]bool, error) {
	var mute [4]bool
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		ch, err := strconv.Atoi(field)
		if err != nil || ch < 1 || ch > 4 {
			return mute, fmt.Errorf("bad channel %q (want 1-4)", field)
		}
		mute[ch-1] = true
	}
	return mute, nil
}

func parseHide(s string) (ppu.Layers, error) {
	var hide ppu.Layers
	for _, field := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "":
		case "bg":
			hide |= ppu.LayerBG
		case "win", "window":
			hide |= ppu.LayerWindow
		case "obj", "sprites":
			hide |= ppu.LayerSprites
		default:
			return 0, fmt.Errorf("bad layer %q (want bg, win or obj)", field)
		}
	}
	return hide, nil
}

// frameCRC formats the CRC32 of an RGBA framebuffer the way -expect takes it.
func frameCRC(fb []byte) string { return fmt.Sprintf("%08x", crc32.ChecksumIEEE(fb)) }

func runHeadless(m *emu.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}

	start := time.Now()
	for range frames {
		if err := m.StepFrame(); err != nil {
			return err
		}
	}
	dur := time.Since(start)

	fb := m.Framebuffer() // RGBA 160x144*4
	crc := frameCRC(fb)
	fps := float64(frames) / dur.Seconds()

	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%s",
		frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := capture.SavePNG(pngPath, fb, ppu.Width, ppu.Height, 1); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectCRC != "" {
		// normalize expected hex (allow with/without 0x, upper/lowercase)
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		if crc != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", crc, want)
		}
	}
	return nil
}

func main() {
	if err := run(parseFlags()); err != nil {
		log.Fatal(err)
	}
}

func run(f CLIFlags) error {
	mute, err := parseMute(f.Mute)
	if err != nil {
		return fmt.Errorf("-mute: %w", err)
	}
	hide, err := parseHide(f.Hide)
	if err != nil {
		return fmt.Errorf("-hide: %w", err)
	}

	m := emu.New(emu.Config{
		BootROM:        f.BootROM,
		PatchIdleLoops: f.PatchIdle,
		Palette:        f.Palette,
		FrameSkip:      f.FrameSkip,
		Mute:           mute,
		Hide:           hide,
	})
	if err := m.SetPalette(f.Palette); err != nil {
		return fmt.Errorf("-palette: %w", err)
	}
	if err := m.LoadROMOrDefault(f.ROMPath); err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if h := m.Header(); h != nil {
		log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
	}

	// Battery RAM: load .sav if present
	if f.SaveRAM {
		if err := m.LoadBatteryFile(); err != nil {
			log.Printf("%v", err)
		}
	}

	if f.StatsView != "" {
		stop := stats.Launch(f.StatsView, log.Printf)
		defer stop()
	}

	if f.WAVOut != "" {
		rec, err := capture.NewWAVRecorder(f.WAVOut, m.SampleRate())
		if err != nil {
			return fmt.Errorf("-wav: %w", err)
		}
		m.SetAudioTap(rec.Write)
		defer func() {
			if err := rec.Close(); err != nil {
				log.Printf("close %s: %v", f.WAVOut, err)
				return
			}
			log.Printf("wrote %s (%d frames)", f.WAVOut, rec.Frames())
		}()
	}

	switch {
	case f.Headless:
		err = runHeadless(m, f.Frames, f.PNGOut, f.Expect)
	case f.TTY:
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		err = tty.Run(ctx, m, tty.Config{Audio: f.Audio})
		cancel()
	default:
		app := ui.NewApp(ui.Config{
			Title:       f.Title,
			Scale:       f.Scale,
			Audio:       f.Audio,
			AudioStereo: f.Stereo,
			ROMsDir:     f.ROMsDir,
		}, m)
		err = app.Run()
	}

	// Exit: save battery RAM if enabled. The ROM browser may have switched cartridges.
	if f.SaveRAM {
		if serr := m.SaveBatteryFile(); serr != nil {
			log.Printf("%v", serr)
		}
	}
	return err
}
