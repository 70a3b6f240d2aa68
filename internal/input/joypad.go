// Package input turns host key state into the joypad register nibbles.
package input

// Keys is a pressed-key bitmap. The low nibble is the direction group and
// the high nibble the button group, in register bit order.
type Keys uint8

const (
	Right Keys = 1 << iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

// Buttons is the boolean form front-ends usually fill in.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) Keys() Keys {
	var k Keys
	for _, kb := range []struct {
		on  bool
		key Keys
	}{
		{b.Right, Right}, {b.Left, Left}, {b.Up, Up}, {b.Down, Down},
		{b.A, A}, {b.B, B}, {b.Select, Select}, {b.Start, Start},
	} {
		if kb.on {
			k |= kb.key
		}
	}
	return k
}

const (
	selectButtons = 0x10 // P15 low
	selectDirs    = 0x20 // P14 low
)

// Joypad models P1 (FF00). Group masks are active low: a 0 bit is pressed.
type Joypad struct {
	buttons byte
	dirs    byte
	sel     byte
}

func NewJoypad() *Joypad {
	return &Joypad{buttons: 0x0F, dirs: 0x0F, sel: 0x30}
}

// SetKeys updates both groups and reports whether a key of the currently
// selected group went from released to pressed.
func (j *Joypad) SetKeys(k Keys) bool {
	return j.SetMasks(^byte(k>>4)&0x0F, ^byte(k)&0x0F)
}

// SetMasks takes the two active-low group masks directly and, like SetKeys,
// reports a high-to-low edge on the selected lines.
func (j *Joypad) SetMasks(buttons, dirs byte) bool {
	before := j.nibble()
	j.buttons, j.dirs = buttons&0x0F, dirs&0x0F
	return before&^j.nibble() != 0
}

// Write latches the group select bits of a P1 write.
func (j *Joypad) Write(v byte) { j.sel = v & 0x30 }

// Read returns the register value. Only a single selected group reports
// its mask; any other select value reads as idle.
func (j *Joypad) Read() byte {
	return 0xC0 | j.sel | j.nibble()
}

func (j *Joypad) nibble() byte {
	switch j.sel {
	case selectButtons:
		return j.buttons
	case selectDirs:
		return j.dirs
	}
	return 0x0F
}

// Select exposes the latched select bits for save states.
func (j *Joypad) Select() byte { return j.sel }
