package capture

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// WAVRecorder streams interleaved 16-bit stereo frames into a WAV file.
// Write matches the synthesizer tap signature.
type WAVRecorder struct {
	mu     sync.Mutex
	f      *os.File
	enc    *wav.Encoder
	buf    *audio.IntBuffer
	frames int
	err    error
}

func NewWAVRecorder(path string, sampleRate int) (*WAVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &WAVRecorder{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, 16, 2, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

// Write appends interleaved L,R samples. The first error sticks and is
// reported by Close.
func (r *WAVRecorder) Write(samples []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil || len(samples) == 0 {
		return
	}
	r.buf.Data = r.buf.Data[:0]
	for _, s := range samples {
		r.buf.Data = append(r.buf.Data, int(s))
	}
	if err := r.enc.Write(r.buf); err != nil {
		r.err = fmt.Errorf("wav write: %w", err)
		return
	}
	r.frames += len(samples) / 2
}

// Frames is the number of stereo frames written so far.
func (r *WAVRecorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalizes the header and closes the file.
func (r *WAVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.enc.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	if r.err != nil {
		return r.err
	}
	return err
}
