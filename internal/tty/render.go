package tty

import (
	"fmt"
	"strings"
)

// HalfBlocks renders an RGBA framebuffer as rows of upper-half-block cells:
// the foreground paints the top pixel and the background the one below.
// Every step-th pixel is sampled in both directions.
func HalfBlocks(fb []byte, w, h, step int) string {
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	sb.WriteString("\x1b[H")
	for y := 0; y < h; y += 2 * step {
		var lastFG, lastBG [3]byte
		first := true
		for x := 0; x < w; x += step {
			top := pixel(fb, w, x, y)
			bot := top
			if y+step < h {
				bot = pixel(fb, w, x, y+step)
			}
			if first || top != lastFG {
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm", top[0], top[1], top[2])
			}
			if first || bot != lastBG {
				fmt.Fprintf(&sb, "\x1b[48;2;%d;%d;%dm", bot[0], bot[1], bot[2])
			}
			lastFG, lastBG, first = top, bot, false
			sb.WriteString("▀")
		}
		sb.WriteString("\x1b[0m\r\n")
	}
	return sb.String()
}

func pixel(fb []byte, w, x, y int) [3]byte {
	o := (y*w + x) * 4
	return [3]byte{fb[o], fb[o+1], fb[o+2]}
}

// FitStep picks the smallest sampling step that fits w x h pixels into a
// terminal of cols x rows cells, keeping one row for the status line.
func FitStep(w, h, cols, rows int) int {
	step := 1
	for w/step > cols || (h/step+1)/2 > rows-1 {
		step++
		if step > w {
			break
		}
	}
	return step
}
