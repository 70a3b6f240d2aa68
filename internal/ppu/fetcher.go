package ppu

// VRAMReader gives the renderer raw video memory without CPU contention.
type VRAMReader interface {
	Read(addr uint16) byte
}

// vram adapts the bus-owned video RAM array.
type vram struct{ mem *[0x2000]byte }

func (v vram) Read(addr uint16) byte { return v.mem[(addr-0x8000)&0x1FFF] }

// fifo is a ring buffer of 2-bit colour indices.
type fifo struct {
	buf  [16]byte
	head int
	tail int
	size int
}

func (q *fifo) Clear()   { q.head, q.tail, q.size = 0, 0, 0 }
func (q *fifo) Len() int { return q.size }
func (q *fifo) Push(ci byte) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.buf[q.tail] = ci & 0x03
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++
	return true
}
func (q *fifo) Pop() (byte, bool) {
	if q.size == 0 {
		return 0, false
	}
	v := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return v, true
}

// tileFetcher walks one 32-tile row of a tile map, pushing eight pixels per
// fetch and wrapping at the right edge.
type tileFetcher struct {
	mem      VRAMReader
	fifo     *fifo
	rowBase  uint16 // map address of column 0 of the current tile row
	col      uint16 // 0..31
	fineY    byte   // 0..7 within the tile
	unsigned bool   // 0x8000 addressing; otherwise signed from 0x9000
}

func newTileFetcher(mem VRAMReader, q *fifo, mapBase uint16, unsigned bool, y byte) *tileFetcher {
	return &tileFetcher{
		mem:      mem,
		fifo:     q,
		rowBase:  mapBase + uint16(y>>3)*32,
		fineY:    y & 7,
		unsigned: unsigned,
	}
}

// Seek moves to the tile column holding pixel x of the map row.
func (f *tileFetcher) Seek(x byte) { f.col = uint16(x>>3) & 31 }

// Fetch pushes the current tile's eight pixels and steps to the next column.
func (f *tileFetcher) Fetch() {
	tileNum := f.mem.Read(f.rowBase + f.col)
	var base uint16
	if f.unsigned {
		base = 0x8000 + uint16(tileNum)*16
	} else {
		base = uint16(0x9000 + int(int8(tileNum))*16)
	}
	base += uint16(f.fineY) * 2
	lo, hi := f.mem.Read(base), f.mem.Read(base+1)
	for px := 0; px < 8; px++ {
		bit := 7 - px
		_ = f.fifo.Push(hi>>bit&1<<1 | lo>>bit&1)
	}
	f.col = (f.col + 1) & 31
}
