package cpu

import (
	"bytes"
	"encoding/gob"
)

type cpuState struct {
	A, F, B, C, D, E, H, L byte
	SP, PC                 uint16
	IME                    bool
	IMEDelay               int
	Halted, Stopped        bool
	HaltBug, Locked        bool
	Cycles                 uint64
	TimerAcc               int
}

func (c *CPU) SaveState() ([]byte, error) {
	st := cpuState{
		A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L,
		SP: c.SP, PC: c.PC, IME: c.IME, IMEDelay: c.imeDelay,
		Halted: c.halted, Stopped: c.stopped, HaltBug: c.haltBug, Locked: c.locked,
		Cycles: c.Cycles, TimerAcc: c.timer.acc,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *CPU) LoadState(data []byte) error {
	var st cpuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L = st.A, st.F, st.B, st.C, st.D, st.E, st.H, st.L
	c.SP, c.PC, c.IME, c.imeDelay = st.SP, st.PC, st.IME, st.IMEDelay
	c.halted, c.stopped, c.haltBug, c.locked = st.Halted, st.Stopped, st.HaltBug, st.Locked
	c.Cycles, c.timer.acc = st.Cycles, st.TimerAcc
	c.looping = false
	return nil
}
