package emu

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/cart"
)

// ErrStateMismatch means a save state was taken with a different cartridge.
var ErrStateMismatch = errors.New("save state belongs to another cartridge")

// BatteryPath returns the .sav file that sits next to a ROM.
func BatteryPath(romPath string) string {
	return strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".sav"
}

// HasBattery reports whether the loaded cartridge keeps its RAM powered.
func (m *Machine) HasBattery() bool { return m.header != nil && m.header.Battery }

// SaveBattery returns a copy of external cartridge RAM if the cartridge has any.
// The actual file IO is managed by the caller or by SaveBatteryFile.
func (m *Machine) SaveBattery() ([]byte, bool) {
	if m.bus == nil {
		return nil, false
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return nil, false
	}
	data := bb.SaveRAM()
	return data, len(data) > 0
}

// LoadBattery loads external RAM bytes into the cartridge if supported.
// Short data leaves the rest zeroed.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.bus == nil {
		return false
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return false
	}
	bb.LoadRAM(data)
	return true
}

// LoadBatteryFile reads the .sav next to the current ROM. A missing file is
// not an error: RAM simply starts zeroed.
func (m *Machine) LoadBatteryFile() error {
	if !m.HasBattery() || m.romPath == "" {
		return nil
	}
	path := BatteryPath(m.romPath)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read save RAM: %w", err)
	}
	if m.LoadBattery(data) {
		m.cfg.Logf("loaded save RAM: %s (%d bytes)", path, len(data))
	}
	return nil
}

// SaveBatteryFile writes cartridge RAM next to the ROM, for battery carts only.
func (m *Machine) SaveBatteryFile() error {
	if !m.HasBattery() || m.romPath == "" {
		return nil
	}
	data, ok := m.SaveBattery()
	if !ok {
		return nil
	}
	path := BatteryPath(m.romPath)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write save RAM: %w", err)
	}
	m.cfg.Logf("wrote %s", path)
	return nil
}

// --- Save/Load state ---
type machineState struct {
	Title       string
	Cart        []byte
	Bus         []byte
	CPU         []byte
	PPU         []byte
	Sound       []byte
	SoundCycles int
	Frames      uint64
}

func (m *Machine) SaveState() ([]byte, error) {
	if m.bus == nil {
		return nil, ErrNoCartridge
	}
	st, err := m.captureState()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Machine) captureState() (machineState, error) {
	st := machineState{
		Title:       m.ROMTitle(),
		Cart:        m.bus.Cart().SaveState(),
		SoundCycles: m.soundCycles,
		Frames:      m.frames,
	}
	var err error
	if st.Bus, err = m.bus.SaveState(); err != nil {
		return st, fmt.Errorf("save bus: %w", err)
	}
	if st.CPU, err = m.cpu.SaveState(); err != nil {
		return st, fmt.Errorf("save cpu: %w", err)
	}
	if st.PPU, err = m.ppu.SaveState(); err != nil {
		return st, fmt.Errorf("save ppu: %w", err)
	}
	if st.Sound, err = m.sound.SaveState(); err != nil {
		return st, fmt.Errorf("save sound: %w", err)
	}
	return st, nil
}

// LoadState restores a state taken by SaveState. A state that fails part way
// leaves the machine as it was before the call.
func (m *Machine) LoadState(data []byte) error {
	if m.bus == nil {
		return ErrNoCartridge
	}
	var st machineState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	if st.Title != m.ROMTitle() {
		return fmt.Errorf("%w: %q", ErrStateMismatch, st.Title)
	}
	prev, err := m.captureState()
	if err != nil {
		return err
	}
	if err := m.applyState(st); err != nil {
		if rerr := m.applyState(prev); rerr != nil {
			return errors.Join(err, fmt.Errorf("roll back: %w", rerr))
		}
		return err
	}
	m.present()
	return nil
}

func (m *Machine) applyState(st machineState) error {
	if err := m.bus.Cart().LoadState(st.Cart); err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if err := m.bus.LoadState(st.Bus); err != nil {
		return fmt.Errorf("load bus: %w", err)
	}
	if err := m.cpu.LoadState(st.CPU); err != nil {
		return fmt.Errorf("load cpu: %w", err)
	}
	if err := m.ppu.LoadState(st.PPU); err != nil {
		return fmt.Errorf("load ppu: %w", err)
	}
	if err := m.sound.LoadState(st.Sound); err != nil {
		return fmt.Errorf("load sound: %w", err)
	}
	m.soundCycles, m.frames = st.SoundCycles, st.Frames
	return nil
}

// StatePath names the file for a save-state slot: <rom>.ss<slot>.
func (m *Machine) StatePath(slot int) (string, error) {
	if m.romPath == "" {
		return "", fmt.Errorf("state slot %d: %w", slot, ErrNoCartridge)
	}
	return fmt.Sprintf("%s.ss%d", m.romPath, slot), nil
}

func (m *Machine) SaveStateToFile(path string) error {
	data, err := m.SaveState()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (m *Machine) LoadStateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.LoadState(data)
}

// SaveSlot and LoadSlot store states next to the ROM.
func (m *Machine) SaveSlot(slot int) error {
	path, err := m.StatePath(slot)
	if err != nil {
		return err
	}
	return m.SaveStateToFile(path)
}

func (m *Machine) LoadSlot(slot int) error {
	path, err := m.StatePath(slot)
	if err != nil {
		return err
	}
	return m.LoadStateFromFile(path)
}
