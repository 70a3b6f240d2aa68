package tty

import (
	"encoding/binary"

	"github.com/ebitengine/oto/v3"
)

// stereoSource is the part of the machine the player drains.
type stereoSource interface {
	APUPullStereo(max int) []int16
	SampleRate() int
}

// pcmReader converts pulled frames to signed 16-bit little-endian stereo and
// pads with silence so the player never stalls.
type pcmReader struct {
	src stereoSource
}

func (r pcmReader) Read(p []byte) (int, error) {
	frames := r.src.APUPullStereo(len(p) / 4)
	i := 0
	for _, s := range frames {
		binary.LittleEndian.PutUint16(p[i:], uint16(s))
		i += 2
	}
	clear(p[i:])
	return len(p), nil
}

type player struct {
	ctx *oto.Context
	p   *oto.Player
}

func newPlayer(src stereoSource) (*player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   src.SampleRate(),
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	p := ctx.NewPlayer(pcmReader{src: src})
	p.Play()
	return &player{ctx: ctx, p: p}, nil
}

func (a *player) Close() error { return a.p.Close() }
