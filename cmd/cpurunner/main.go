package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"go.bug.st/serial"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/script"
)

// Exit codes.
const (
	exitPass    = 0
	exitFail    = 1
	exitTimeout = 2
)

type options struct {
	romPath      string
	bootPath     string
	frames       int
	until        string
	failPattern  string
	auto         bool
	timeout      time.Duration
	serialWindow int
	loopDetect   bool
	quiet        bool
	scriptPath   string
	serialPort   string
	baud         int
	bench        int
	bins         int
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.romPath, "rom", "", "path to ROM (.gb)")
	flag.StringVar(&o.bootPath, "bootrom", "", "optional DMG boot ROM to run from 0x0000 until FF50 disables it")
	flag.IntVar(&o.frames, "frames", 60*120, "max frames to run")
	flag.StringVar(&o.until, "until", "Passed", "stop when serial output contains this substring (case-insensitive); empty to disable")
	flag.StringVar(&o.failPattern, "fail", defaultFailRe.String(), "regexp on serial output that marks a failure (with -auto)")
	flag.BoolVar(&o.auto, "auto", false, "detect pass or fail in serial output and exit with code 0/1")
	flag.DurationVar(&o.timeout, "timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	flag.IntVar(&o.serialWindow, "serialWindow", 8192, "number of recent serial bytes to retain for diagnostics on fail")
	flag.BoolVar(&o.loopDetect, "loop", true, "stop when the CPU jumps to itself")
	flag.BoolVar(&o.quiet, "quiet", false, "do not echo serial output")
	flag.StringVar(&o.scriptPath, "script", "", "Lua input script with an on_frame(n) function")
	flag.StringVar(&o.serialPort, "serial-port", "", "also forward link-port bytes to this serial device")
	flag.IntVar(&o.baud, "baud", 9600, "baud rate for -serial-port")
	flag.IntVar(&o.bench, "bench", 0, "run N frames as fast as possible and print a frame-time histogram")
	flag.IntVar(&o.bins, "bins", 10, "histogram buckets for -bench")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()
	if o.romPath == "" {
		log.Fatal("-rom is required")
	}
	os.Exit(run(o))
}

func run(o options) int {
	m := emu.New(emu.Config{BootROM: o.bootPath, LoopDetect: o.loopDetect && o.bench == 0})
	if err := m.LoadROMFromFile(o.romPath); err != nil {
		log.Printf("load rom: %v", err)
		return exitFail
	}
	if o.bench > 0 {
		if err := bench(m, o.bench, o.bins, os.Stdout); err != nil {
			log.Printf("bench: %v", err)
			return exitFail
		}
		return exitPass
	}

	var failRe *regexp.Regexp
	if o.auto {
		re, err := regexp.Compile(o.failPattern)
		if err != nil {
			log.Printf("-fail: %v", err)
			return exitFail
		}
		failRe = re
	}
	until := o.until
	if o.auto && until == "" {
		until = "passed"
	}
	watch := newSerialWatch(until, failRe, o.serialWindow)
	writers := []io.Writer{watch}
	if !o.quiet {
		writers = append(writers, os.Stdout)
	}
	if o.serialPort != "" {
		port, err := serial.Open(o.serialPort, &serial.Mode{
			BaudRate: o.baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			log.Printf("open %s: %v", o.serialPort, err)
			return exitFail
		}
		defer port.Close()
		writers = append(writers, port)
	}
	m.SetSerialWriter(io.MultiWriter(writers...))

	var sc *script.Script
	if o.scriptPath != "" {
		s, err := script.Load(o.scriptPath, m)
		if err != nil {
			log.Printf("script: %v", err)
			return exitFail
		}
		defer s.Close()
		sc = s
	}

	start := time.Now()
	var deadline time.Time
	if o.timeout > 0 {
		deadline = start.Add(o.timeout)
	}
	done := func(why string) {
		fmt.Printf("\n%s\nDone: frames=%d cycles=%d elapsed=%s\n", why, m.FrameCount(), m.Cycles(), time.Since(start).Truncate(time.Millisecond))
	}

	for range o.frames {
		if sc != nil {
			if err := sc.Frame(m.FrameCount()); errors.Is(err, script.ErrQuit) {
				return finish(m, watch, done, "Script finished.")
			} else if err != nil {
				log.Printf("script: %v", err)
				return exitFail
			}
		}
		err := m.StepFrame()
		if errors.Is(err, emu.ErrInfiniteLoop) {
			return finish(m, watch, done, fmt.Sprintf("CPU stopped: %v.", err))
		}
		if err != nil {
			log.Printf("emulation: %v", err)
			return exitFail
		}
		if v, _ := watch.Verdict(); v != running {
			return finish(m, watch, done, "")
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			done(fmt.Sprintf("Timeout after %s.", time.Since(start).Truncate(time.Millisecond)))
			return exitTimeout
		}
	}
	return finish(m, watch, done, fmt.Sprintf("Frame limit %d reached.", o.frames))
}

// finish prints the verdict and diagnostics and returns the exit code.
func finish(m *emu.Machine, w *serialWatch, done func(string), why string) int {
	v, match := w.Verdict()
	stage := w.LastStage()
	if why != "" {
		fmt.Printf("\n%s", why)
	}
	if !w.watching() {
		done("")
		return exitPass
	}
	switch v {
	case passed:
		fmt.Printf("\nDetected '%s' in serial output.\n", match)
	case failed:
		fmt.Printf("\nDetected %s in serial output.\n", match)
	default:
		fmt.Printf("\nNo verdict in serial output.\n")
	}
	if stage != "" {
		fmt.Printf("Last stage seen: %s\n", stage)
	}
	if v == passed {
		done("PASS")
		return exitPass
	}
	c := m.CPU()
	op, _ := c.Disasm(c.PC)
	fmt.Printf("at %04X: %s\n", c.PC, op)
	fmt.Printf("PC=%04X A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t\n",
		c.PC, c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L, c.SP, c.IME)
	if tail := w.Recent(); len(tail) > 0 {
		fmt.Printf("\n--- recent serial (last %d bytes) ---\n%s\n--- end serial ---\n", len(tail), tail)
	}
	done("FAIL")
	return exitFail
}

// bench runs frames flat out and prints throughput and a histogram of
// per-frame times in microseconds.
func bench(m *emu.Machine, frames, bins int, w io.Writer) error {
	times := make([]float64, 0, frames)
	start := time.Now()
	for range frames {
		t := time.Now()
		if err := m.StepFrame(); err != nil {
			return err
		}
		times = append(times, float64(time.Since(t).Microseconds()))
	}
	dur := time.Since(start)
	fmt.Fprintf(w, "bench: frames=%d elapsed=%s fps=%.1f (%.1fx real time)\n",
		frames, dur.Truncate(time.Millisecond), float64(frames)/dur.Seconds(),
		float64(frames)/dur.Seconds()/59.73)
	fmt.Fprintln(w, "frame time (us):")
	return histogram.Fprint(w, histogram.Hist(bins, times), histogram.Linear(40))
}
