package apu

import "sync"

const (
	defaultSampleRate = 48000
	ringSize          = 16384 // stereo frames, power of two

	// Channel clock rates in Hz for a period of 1.
	pulseHz = ClockHz / 8  // 8 duty steps per cycle at 131072/period Hz
	waveHz  = ClockHz / 16 // 32 samples per cycle at 65536/period Hz
	noiseHz = ClockHz / 2  // LFSR shifts at 524288/divisor Hz
)

var dutyTable = [4][8]byte{
	// 12.5%, 25%, 50%, 75%
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}

// Synth renders voice frames to 16-bit stereo PCM at a fixed sample rate
// and buffers them for the audio backend.
type Synth struct {
	sampleRate int
	mixGain    float64
	sampleAcc  int // ClockHz-scaled remainder toward the next sample

	phase [4]float64 // position within the current waveform cycle, 0..1
	lfsr  uint16

	// mu guards the ring; the audio backend drains it from its own goroutine.
	mu    sync.Mutex
	sL    []int16
	sR    []int16
	sHead int
	sTail int

	tap func(frames []int16)
	out []int16
}

func NewSynth(sampleRate int) *Synth {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	return &Synth{
		sampleRate: sampleRate,
		mixGain:    0.20,
		lfsr:       0x7FFF,
		sL:         make([]int16, ringSize),
		sR:         make([]int16, ringSize),
	}
}

func (s *Synth) SampleRate() int { return s.sampleRate }

// SetTap receives every rendered batch as interleaved L,R samples. The
// slice is reused after the call returns.
func (s *Synth) SetTap(fn func(frames []int16)) { s.tap = fn }

// Voices renders the samples covering cycles machine cycles.
func (s *Synth) Voices(f *Frame, cycles int) {
	s.sampleAcc += cycles * s.sampleRate
	n := s.sampleAcc / ClockHz
	s.sampleAcc %= ClockHz

	s.out = s.out[:0]
	for range n {
		l, r := s.mix(f)
		s.out = append(s.out, l, r)
	}
	s.mu.Lock()
	for i := 0; i < len(s.out); i += 2 {
		s.pushStereo(s.out[i], s.out[i+1])
	}
	s.mu.Unlock()
	if s.tap != nil && len(s.out) > 0 {
		s.tap(s.out)
	}
}

// sample returns the level of the voice in slot i in [-1, 1] and advances
// it by one output sample.
func (s *Synth) sample(i int, v *Voice) float64 {
	if !v.Active || v.Period <= 0 {
		return 0
	}
	amp := float64(v.Volume) / 15.0
	var out float64
	switch i {
	case 0, 1:
		if dutyTable[v.Duty&3][int(s.phase[i]*8)&7] != 0 {
			out = amp
		} else {
			out = -amp
		}
		s.advance(i, float64(pulseHz)/float64(v.Period))
	case 2:
		pos := int(s.phase[i]*32) & 31
		b := v.Wave[pos>>1]
		n4 := b >> 4
		if pos&1 != 0 {
			n4 = b & 0x0F
		}
		out = (float64(n4)/7.5 - 1.0) * amp
		s.advance(i, float64(waveHz)/float64(v.Period))
	case 3:
		if s.lfsr&1 == 0 {
			out = amp
		} else {
			out = -amp
		}
		s.phase[i] += float64(noiseHz) / float64(v.Period) / float64(s.sampleRate)
		for ; s.phase[i] >= 1; s.phase[i]-- {
			s.stepLFSR(v.Duty != 0)
		}
	}
	return out
}

func (s *Synth) advance(i int, hz float64) {
	s.phase[i] += hz / float64(s.sampleRate)
	s.phase[i] -= float64(int(s.phase[i]))
}

func (s *Synth) stepLFSR(short bool) {
	x := (s.lfsr ^ s.lfsr>>1) & 1
	s.lfsr = s.lfsr>>1 | x<<14
	if short {
		s.lfsr = s.lfsr&^(1<<6) | x<<6
	}
}

// mix computes one stereo sample pair according to the routing and master
// volumes in f.
func (s *Synth) mix(f *Frame) (int16, int16) {
	var l, r float64
	for i := range f.Voices {
		v := &f.Voices[i]
		c := s.sample(i, v)
		if v.Left {
			l += c
		}
		if v.Right {
			r += c
		}
	}
	l *= float64(f.LeftVol) / 7.0 * s.mixGain
	r *= float64(f.RightVol) / 7.0 * s.mixGain
	return clamp16(l), clamp16(r)
}

func clamp16(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

// pushStereo pushes a stereo frame to the ring buffers, dropping it when
// full. Callers hold mu.
func (s *Synth) pushStereo(l, r int16) {
	next := (s.sHead + 1) & (len(s.sL) - 1)
	if next == s.sTail {
		return
	}
	s.sL[s.sHead] = l
	s.sR[s.sHead] = r
	s.sHead = next
}

// PullStereo returns up to max stereo frames as an interleaved slice [L0,R0,L1,R1,...].
func (s *Synth) PullStereo(max int) []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(max, s.buffered())
	if n <= 0 {
		return nil
	}
	out := make([]int16, 0, n*2)
	for range n {
		out = append(out, s.sL[s.sTail], s.sR[s.sTail])
		s.sTail = (s.sTail + 1) & (len(s.sL) - 1)
	}
	return out
}

// StereoAvailable returns the number of stereo frames currently buffered.
func (s *Synth) StereoAvailable() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffered()
}

func (s *Synth) buffered() int { return (s.sHead - s.sTail) & (len(s.sL) - 1) }

// TrimTo drops the oldest frames so that at most target remain buffered.
func (s *Synth) TrimTo(target int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.buffered(); n > target {
		s.sTail = (s.sTail + n - max(target, 0)) & (len(s.sL) - 1)
	}
}
