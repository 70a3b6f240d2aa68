package tty

import "github.com/FabianRolfMatthiasNoll/dmgcore/internal/input"

// Terminals report key presses only, never releases, so every key is held
// for a fixed number of frames after its last byte.
type keyState struct {
	hold  int
	timer [8]int
	quit  bool
	esc   []byte
}

func newKeyState(hold int) *keyState { return &keyState{hold: hold} }

var byteKeys = map[byte]input.Keys{
	'z': input.A, 'Z': input.A,
	'x': input.B, 'X': input.B,
	'\r': input.Start, '\n': input.Start,
	' ': input.Select, 0x7F: input.Select,
	'w': input.Up, 'a': input.Left, 's': input.Down, 'd': input.Right,
}

var arrowKeys = map[byte]input.Keys{
	'A': input.Up, 'B': input.Down, 'C': input.Right, 'D': input.Left,
}

// Feed consumes raw bytes from the terminal.
func (k *keyState) Feed(p []byte) {
	for _, b := range p {
		if len(k.esc) > 0 {
			k.esc = append(k.esc, b)
			if len(k.esc) == 3 {
				if k.esc[1] == '[' {
					k.press(arrowKeys[k.esc[2]])
				}
				k.esc = k.esc[:0]
			}
			continue
		}
		switch b {
		case 0x1B:
			k.esc = append(k.esc, b)
		case 'q', 'Q', 0x03:
			k.quit = true
		default:
			k.press(byteKeys[b])
		}
	}
}

func (k *keyState) press(keys input.Keys) {
	for i := range k.timer {
		if keys&(1<<i) != 0 {
			k.timer[i] = k.hold
		}
	}
}

// Tick returns the keys held this frame and ages them by one frame.
func (k *keyState) Tick() input.Keys {
	var keys input.Keys
	for i := range k.timer {
		if k.timer[i] > 0 {
			keys |= 1 << i
			k.timer[i]--
		}
	}
	return keys
}
