// Package tty runs the emulator inside a terminal: half-block graphics,
// raw keyboard input and optional sound.
package tty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/ppu"
)

// ErrNotTerminal is returned when stdin or stdout is not a terminal.
var ErrNotTerminal = errors.New("not a terminal")

// Run drives m until the user presses q, the context ends or the machine
// fails. The terminal is restored on every path.
func Run(ctx context.Context, m *emu.Machine, cfg Config) error {
	cfg.Defaults()
	in, out := int(os.Stdin.Fd()), int(os.Stdout.Fd())
	if !term.IsTerminal(in) || !term.IsTerminal(out) {
		return ErrNotTerminal
	}
	old, err := term.MakeRaw(in)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(in, old)
	fmt.Print("\x1b[?25l\x1b[2J")
	defer fmt.Print("\x1b[0m\x1b[?25h\r\n")

	if cfg.Audio {
		p, err := newPlayer(m)
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		defer p.Close()
	}

	bytesIn := make(chan []byte, 16)
	go readInput(os.Stdin, bytesIn)

	keys := newKeyState(cfg.HoldFrames)
	tick := time.NewTicker(time.Duration(float64(time.Second) / cfg.FPS))
	defer tick.Stop()
	frame := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-bytesIn:
			if !ok {
				return nil
			}
			keys.Feed(b)
			if keys.quit {
				return nil
			}
			continue
		case <-tick.C:
		}
		m.SetKeys(keys.Tick())
		if err := m.StepFrame(); err != nil {
			return err
		}
		if frame%cfg.RenderEvery == 0 {
			draw(out, m)
		}
		frame++
	}
}

func draw(fd int, m *emu.Machine) {
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		cols, rows = 80, 24
	}
	step := FitStep(ppu.Width, ppu.Height, cols, rows)
	fmt.Print(HalfBlocks(m.Framebuffer(), ppu.Width, ppu.Height, step))
	fmt.Printf("\x1b[0m%s  frame %d  z/x=A/B enter=start space=select q=quit\x1b[K", m.ROMTitle(), m.FrameCount())
}

func readInput(r io.Reader, out chan<- []byte) {
	defer close(out)
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out <- append([]byte(nil), buf[:n]...)
		}
		if err != nil {
			return
		}
	}
}
