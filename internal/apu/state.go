package apu

import (
	"bytes"
	"encoding/gob"
)

type channelState struct {
	Length, LengthAcc, EnvAcc int
	Volume                    byte
}

type soundState struct {
	Acc      int
	Channels [4]channelState
	SweepAcc int
	Shadow   uint16
}

func (s *SoundTimer) SaveState() ([]byte, error) {
	st := soundState{Acc: s.acc, SweepAcc: s.sweepAcc, Shadow: s.shadow}
	for i, c := range s.ch {
		st.Channels[i] = channelState{Length: c.length, LengthAcc: c.lengthAcc, EnvAcc: c.envAcc, Volume: c.volume}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *SoundTimer) LoadState(data []byte) error {
	var st soundState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	s.acc, s.sweepAcc, s.shadow = st.Acc, st.SweepAcc, st.Shadow
	for i, c := range st.Channels {
		s.ch[i] = channel{length: c.Length, lengthAcc: c.LengthAcc, envAcc: c.EnvAcc, volume: c.Volume}
	}
	return nil
}
