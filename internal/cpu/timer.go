package cpu

import "github.com/FabianRolfMatthiasNoll/dmgcore/internal/bus"

// timerPeriods is the TIMA increment period for TAC bits 0-1, in machine cycles.
var timerPeriods = [4]int{256, 4, 16, 64}

// timer drives DIV and TIMA. DIV is the high byte of a 16-bit counter kept
// in FF03/FF04 that advances four per machine cycle, so a DIV write on the
// bus clears the whole counter.
type timer struct {
	acc int // cycles toward the next TIMA increment
}

func (t *timer) advance(b *bus.Bus, cycles int, stopped bool) {
	if !stopped {
		div := uint16(b.IO(bus.RegDIVLo)) | uint16(b.IO(bus.RegDIV))<<8
		div += uint16(cycles) << 2
		b.SetIO(bus.RegDIVLo, byte(div))
		b.SetIO(bus.RegDIV, byte(div>>8))
	}

	tac := b.IO(bus.RegTAC)
	if tac&0x04 == 0 {
		return
	}
	t.acc += cycles
	period := timerPeriods[tac&0x03]
	for t.acc >= period {
		t.acc -= period
		tima := b.IO(bus.RegTIMA) + 1
		if tima == 0 {
			tima = b.IO(bus.RegTMA)
			b.RequestInterrupt(bus.IntTimer)
		}
		b.SetIO(bus.RegTIMA, tima)
	}
}
