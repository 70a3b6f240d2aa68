package cart

import (
	"bytes"
	"encoding/gob"
)

// BankState is the mapped view a controller's registers decode to.
// Every index is already reduced modulo the bank counts.
type BankState struct {
	ROM0Bank   int // bank visible at 0x0000-0x3FFF
	ROMBank    int // bank visible at 0x4000-0x7FFF
	RAMBank    int
	Mode       byte // MBC1 banking mode
	RAMEnabled bool
	ROMBanks   int
	RAMBanks   int
}

// banked holds the storage and decoded bank indices every controller shares.
// Controllers keep their raw registers and call remap after each write.
type banked struct {
	rom   []byte
	ram   []byte
	state BankState
}

func newBanked(rom []byte, ramSize int) banked {
	b := banked{rom: rom}
	if ramSize > 0 {
		b.ram = make([]byte, ramSize)
	}
	b.state.ROMBanks = romBankCount(rom)
	b.state.RAMBanks = (ramSize + ramBankSize - 1) / ramBankSize
	b.state.ROMBank = 1 % b.state.ROMBanks
	return b
}

// romBankCount uses the header's declared size when the image agrees with
// it and the image length otherwise.
func romBankCount(rom []byte) int {
	if len(rom) > 0x148 {
		if size, banks := decodeROMSize(rom[0x148]); banks > 0 && size == len(rom) {
			return banks
		}
	}
	n := (len(rom) + romBankSize - 1) / romBankSize
	if n < 2 {
		n = 2
	}
	return n
}

func (b *banked) Banks() BankState { return b.state }

func (b *banked) setROM(bank int) {
	b.state.ROMBank = bank % b.state.ROMBanks
}

func (b *banked) setROM0(bank int) {
	b.state.ROM0Bank = bank % b.state.ROMBanks
}

func (b *banked) setRAM(bank int) {
	if b.state.RAMBanks == 0 {
		b.state.RAMBank = 0
		return
	}
	b.state.RAMBank = bank % b.state.RAMBanks
}

func (b *banked) readROM(addr uint16) byte {
	bank := b.state.ROM0Bank
	if addr >= 0x4000 {
		bank = b.state.ROMBank
	}
	off := bank*romBankSize + int(addr&0x3FFF)
	if off < len(b.rom) {
		return b.rom[off]
	}
	return 0xFF
}

func (b *banked) ramOffset(addr uint16) int {
	// RAM smaller than a bank (2 KiB) mirrors across the window.
	return (b.state.RAMBank*ramBankSize + int(addr-0xA000)) % len(b.ram)
}

func (b *banked) readRAM(addr uint16) byte {
	if !b.state.RAMEnabled || len(b.ram) == 0 {
		return 0xFF
	}
	return b.ram[b.ramOffset(addr)]
}

func (b *banked) writeRAM(addr uint16, value byte) {
	if !b.state.RAMEnabled || len(b.ram) == 0 {
		return
	}
	b.ram[b.ramOffset(addr)] = value
}

func (b *banked) SaveRAM() []byte {
	if len(b.ram) == 0 {
		return nil
	}
	out := make([]byte, len(b.ram))
	copy(out, b.ram)
	return out
}

func (b *banked) LoadRAM(data []byte) {
	n := copy(b.ram, data)
	clear(b.ram[n:])
}

type bankedState struct {
	Regs  [4]byte
	State BankState
	RAM   []byte
}

func (b *banked) encode(regs [4]byte) []byte {
	var buf bytes.Buffer
	st := bankedState{Regs: regs, State: b.state, RAM: b.SaveRAM()}
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (b *banked) decode(data []byte) ([4]byte, error) {
	var st bankedState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return [4]byte{}, err
	}
	// Bank counts come from the loaded image, not the snapshot.
	st.State.ROMBanks, st.State.RAMBanks = b.state.ROMBanks, b.state.RAMBanks
	b.state = st.State
	b.LoadRAM(st.RAM)
	return st.Regs, nil
}
