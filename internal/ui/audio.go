package ui

import (
	"encoding/binary"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

// stereoSource is the part of the machine the audio stream drains.
type stereoSource interface {
	APUBufferedStereo() int
	APUPullStereo(max int) []int16
}

// openAudio creates the player on first use. The ebiten audio context can
// only be created once per process.
func (a *App) openAudio() {
	if a.audioPlayer != nil {
		return
	}
	if a.audioCtx == nil {
		a.audioCtx = audio.NewContext(a.m.SampleRate())
	}
	a.audioSrc = &apuStream{src: a.m, mono: !a.cfg.AudioStereo, muted: &a.audioMuted, lowLatency: a.cfg.AudioLowLatency}
	p, err := a.audioCtx.NewPlayer(a.audioSrc)
	if err != nil {
		a.toast("Audio failed: " + err.Error())
		return
	}
	a.audioPlayer = p
	a.applyPlayerBufferSize()
	a.audioPlayer.Play()
}

func (a *App) closeAudio() {
	if a.audioPlayer == nil {
		return
	}
	a.audioPlayer.Close()
	a.audioPlayer = nil
	a.audioSrc = nil
}

// applyPlayerBufferSize sets the audio player's internal buffer to a small size for low latency.
// ~20ms in low-latency (or during fast-forward), ~40ms otherwise.
func (a *App) applyPlayerBufferSize() {
	if a.audioPlayer == nil {
		return
	}
	bufMs := 40
	if a.cfg.AudioLowLatency || a.fast {
		bufMs = 20
	}
	a.audioPlayer.SetBufferSize(time.Duration(bufMs) * time.Millisecond)
}

// capAudio drops the oldest queued frames beyond the configured buffer, so
// fast-forward and stalls do not build up latency.
func (a *App) capAudio() {
	if a.audioPlayer == nil {
		return
	}
	a.m.APUCapBufferedStereo(a.cfg.AudioBufferMs * a.m.SampleRate() / 1000)
}

// apuStream implements io.Reader by pulling PCM samples from the synthesizer and
// converting them to 16-bit little-endian stereo frames.
type apuStream struct {
	src        stereoSource
	mono       bool
	muted      *bool
	lowLatency bool
	underruns  int
}

func (s *apuStream) Read(p []byte) (int, error) {
	if len(p) == 0 || s == nil || s.src == nil {
		return 0, nil
	}
	// Less than a stereo frame: hand back silence rather than 0 bytes.
	if len(p) < 4 || (s.muted != nil && *s.muted) {
		clear(p)
		if len(p) >= 4 {
			time.Sleep(5 * time.Millisecond)
		}
		return len(p), nil
	}
	maxReq := len(p) / 4
	capFrames := 2048 // ~42.7ms at 48kHz
	waitDur := 15 * time.Millisecond
	if s.lowLatency {
		capFrames = 1024
		waitDur = 8 * time.Millisecond
	}
	maxReq = min(maxReq, capFrames)

	// Read what is buffered, waiting briefly when nothing is.
	want := s.src.APUBufferedStereo()
	for deadline := time.Now().Add(waitDur); want == 0 && time.Now().Before(deadline); {
		time.Sleep(time.Millisecond)
		want = s.src.APUBufferedStereo()
	}
	want = min(want, maxReq)
	if want <= 0 {
		n := min(256, maxReq)
		clear(p[:n*4])
		s.underruns++
		return n * 4, nil
	}

	i, pulled := 0, 0
	for pulled < want {
		frames := s.src.APUPullStereo(want - pulled)
		if len(frames) == 0 {
			break
		}
		for j := 0; j+1 < len(frames); j += 2 {
			l, r := frames[j], frames[j+1]
			if s.mono {
				l = int16((int32(l) + int32(r)) / 2)
				r = l
			}
			binary.LittleEndian.PutUint16(p[i:], uint16(l))
			binary.LittleEndian.PutUint16(p[i+2:], uint16(r))
			i += 4
			pulled++
		}
	}
	if pulled == 0 {
		n := min(128, maxReq)
		clear(p[:n*4])
		s.underruns++
		return n * 4, nil
	}
	return pulled * 4, nil
}
