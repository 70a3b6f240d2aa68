// Package apu models the four sound channels' timing (lengths, envelopes,
// sweep, triggers) and renders the resulting voice descriptions to PCM.
package apu

import (
	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/bus"
)

// ClockHz is the machine-cycle rate every cycle count in this package uses.
const ClockHz = 1 << 20

const (
	lengthCycles   = 4096  // 256 Hz
	sweepCycles    = 8192  // 128 Hz, times the NR10 period
	envelopeCycles = 16384 // 64 Hz, times the NRx2 period

	DefaultTickRate = 240
)

// Voice describes what one channel should sound like until the next tick.
type Voice struct {
	Channel int
	Active  bool
	// Period is 2048 minus the frequency register for the pulse and wave
	// channels, and the noise clock divisor for channel 4.
	Period int
	Volume byte // 0..15
	// Duty is the pulse duty (0..3), the wave output level code, or for
	// noise 1 when the short 7-bit sequence is selected.
	Duty        byte
	Left, Right bool
	Wave        [16]byte
}

// Frame is one tick's worth of voices plus master volumes (0..7).
type Frame struct {
	Voices            [4]Voice
	LeftVol, RightVol byte
}

// VoiceSink receives a frame each tick; cycles is the span it covers.
type VoiceSink interface {
	Voices(f *Frame, cycles int)
}

type channel struct {
	length    int
	lengthAcc int
	envAcc    int
	volume    byte
}

// regs is the NRx0 offset of each channel's register group.
var regs = [4]byte{bus.RegNR10, bus.RegNR21 - 1, bus.RegNR30, bus.RegNR41 - 1}

var waveLevels = [4]byte{0x0, 0xC, 0x6, 0x3}

// SoundTimer advances channel state from the cycle count and reads every
// register it needs from the bus I/O block.
type SoundTimer struct {
	bus  *bus.Bus
	sink VoiceSink

	tickCycles int
	acc        int

	ch       [4]channel
	sweepAcc int
	shadow   uint16

	// Mute silences channels in the emitted frames without stopping them.
	Mute [4]bool

	frame Frame
}

// NewSoundTimer hooks the bus sound registers. rate is the number of
// frames emitted per emulated second.
func NewSoundTimer(b *bus.Bus, rate int) *SoundTimer {
	if rate <= 0 {
		rate = DefaultTickRate
	}
	s := &SoundTimer{bus: b, tickCycles: ClockHz / rate}
	b.OnSoundWrite(s.write)
	return s
}

func (s *SoundTimer) SetSink(v VoiceSink) { s.sink = v }

// TickCycles is the span of one emitted frame.
func (s *SoundTimer) TickCycles() int { return s.tickCycles }

func (s *SoundTimer) io(reg byte) byte { return s.bus.IO(reg) }

func (s *SoundTimer) powered() bool { return s.io(bus.RegNR52)&0x80 != 0 }

func (s *SoundTimer) on(i int) bool { return s.io(bus.RegNR52)&(1<<i) != 0 }

func (s *SoundTimer) disable(i int) {
	s.bus.SetIO(bus.RegNR52, s.io(bus.RegNR52)&^(1<<i))
}

func (s *SoundTimer) freq(i int) uint16 {
	r := regs[i]
	return uint16(s.io(r+3)) | uint16(s.io(r+4)&7)<<8
}

// write runs after the bus stored a sound register.
func (s *SoundTimer) write(reg, value byte) {
	switch reg {
	case bus.RegNR52:
		if value&0x80 == 0 {
			s.ch = [4]channel{}
			s.sweepAcc, s.shadow = 0, 0
		}
		return
	case bus.RegNR12, bus.RegNR22, bus.RegNR42:
		if value&0xF8 == 0 {
			s.disable(int(reg-bus.RegNR10) / 5)
		}
	case bus.RegNR30:
		if value&0x80 == 0 {
			s.disable(2)
		}
	case bus.RegNR11, bus.RegNR21, bus.RegNR41:
		s.ch[(reg-bus.RegNR10)/5].length = 64 - int(value&0x3F)
	case bus.RegNR31:
		s.ch[2].length = 256 - int(value)
	case bus.RegNR14, bus.RegNR24, bus.RegNR34, bus.RegNR44:
		if value&0x80 != 0 {
			s.trigger(int(reg-bus.RegNR10) / 5)
		}
	}
}

func (s *SoundTimer) trigger(i int) {
	r := regs[i]
	c := &s.ch[i]
	if i == 2 {
		c.length = 256 - int(s.io(bus.RegNR31))
	} else {
		c.length = 64 - int(s.io(r+1)&0x3F)
		c.volume = s.io(r+2) >> 4
	}
	c.lengthAcc, c.envAcc = 0, 0
	s.bus.SetIO(r+4, s.io(r+4)&^0x80)

	dac := s.io(r+2)&0xF8 != 0
	if i == 2 {
		dac = s.io(bus.RegNR30)&0x80 != 0
	}
	if !dac {
		return
	}
	if i == 0 {
		s.sweepAcc = 0
		s.shadow = s.freq(0)
	}
	s.bus.SetIO(bus.RegNR52, s.io(bus.RegNR52)|1<<i)
}

// Advance runs the channel model for cycles and emits a frame to the sink
// at every tick boundary crossed.
func (s *SoundTimer) Advance(cycles int) {
	for cycles > 0 {
		n := min(cycles, s.tickCycles-s.acc)
		s.clock(n)
		s.acc += n
		cycles -= n
		if s.acc == s.tickCycles {
			s.acc = 0
			s.emit()
		}
	}
}

func (s *SoundTimer) clock(n int) {
	if !s.powered() {
		return
	}
	for i := range s.ch {
		if !s.on(i) {
			continue
		}
		c := &s.ch[i]
		r := regs[i]
		if s.io(r+4)&0x40 != 0 {
			c.lengthAcc += n
			for c.lengthAcc >= lengthCycles {
				c.lengthAcc -= lengthCycles
				if c.length > 0 {
					c.length--
				}
				if c.length == 0 {
					s.disable(i)
				}
			}
		}
		if i != 2 {
			s.envelope(c, s.io(r+2), n)
		}
	}
	if s.on(0) {
		s.sweep(n)
	}
}

func (s *SoundTimer) envelope(c *channel, nrx2 byte, n int) {
	period := int(nrx2 & 7)
	if period == 0 {
		return
	}
	c.envAcc += n
	for c.envAcc >= envelopeCycles*period {
		c.envAcc -= envelopeCycles * period
		if nrx2&0x08 != 0 {
			if c.volume < 15 {
				c.volume++
			}
		} else if c.volume > 0 {
			c.volume--
		}
	}
}

func (s *SoundTimer) sweep(n int) {
	nr10 := s.io(bus.RegNR10)
	period, shift := int(nr10>>4&7), nr10&7
	if period == 0 || shift == 0 {
		return
	}
	s.sweepAcc += n
	for s.sweepAcc >= sweepCycles*period {
		s.sweepAcc -= sweepCycles * period
		next := s.nextSweep(s.shadow, nr10)
		if next > 2047 {
			s.disable(0)
			return
		}
		s.shadow = uint16(next)
		s.bus.SetIO(bus.RegNR13, byte(next))
		s.bus.SetIO(bus.RegNR14, s.io(bus.RegNR14)&^7|byte(next>>8))
		if s.nextSweep(s.shadow, nr10) > 2047 {
			s.disable(0)
			return
		}
	}
}

func (s *SoundTimer) nextSweep(f uint16, nr10 byte) int {
	delta := int(f >> (nr10 & 7))
	if nr10&0x08 != 0 {
		return int(f) - delta
	}
	return int(f) + delta
}

// Snapshot fills f with the current voices.
func (s *SoundTimer) Snapshot(f *Frame) {
	nr50, nr51 := s.io(bus.RegNR50), s.io(bus.RegNR51)
	f.LeftVol, f.RightVol = nr50>>4&7, nr50&7
	for i := range f.Voices {
		r := regs[i]
		v := Voice{
			Channel: i,
			Active:  s.powered() && s.on(i) && !s.Mute[i],
			Right:   nr51&(1<<i) != 0,
			Left:    nr51&(0x10<<i) != 0,
		}
		switch i {
		case 0, 1:
			v.Period = 2048 - int(s.freq(i))
			v.Volume = s.ch[i].volume
			v.Duty = s.io(r+1) >> 6
		case 2:
			v.Active = v.Active && s.io(bus.RegNR30)&0x80 != 0
			v.Period = 2048 - int(s.freq(i))
			v.Duty = s.io(bus.RegNR32) >> 5 & 3
			v.Volume = waveLevels[v.Duty]
			for j := range v.Wave {
				v.Wave[j] = s.io(bus.RegWave + byte(j))
			}
		case 3:
			nr43 := s.io(bus.RegNR43)
			div := 1
			if ratio := int(nr43 & 7); ratio > 0 {
				div = 2 * ratio
			}
			v.Period = div << (nr43 >> 4)
			v.Volume = s.ch[i].volume
			v.Duty = nr43 >> 3 & 1
		}
		f.Voices[i] = v
	}
}

func (s *SoundTimer) emit() {
	if s.sink == nil {
		return
	}
	s.Snapshot(&s.frame)
	s.sink.Voices(&s.frame, s.tickCycles)
}
