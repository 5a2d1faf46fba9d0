// Package cell implements the fixed-size block arena that backs every
// dynamically allocated value in Mycelia: events, actors, and BOSE value
// chains all live in 32-byte cells drawn from one Pool.
package cell

import "encoding/binary"

// Cell is the single physical allocation unit: eight 32-bit words (32
// bytes), interpreted little-endian throughout, a fixed wire-stable
// layout shared by every value kind.
type Cell [8]uint32

// Ref is a pool-relative index naming a Cell. The zero Ref is reserved as
// the nil/null reference: it never names a live allocation, matching the
// "zero terminates" chaining convention used by strings, arrays, and
// objects.
type Ref uint32

// Nil is the null reference.
const Nil Ref = 0

// Word returns word i (0..7) of the cell.
func (c *Cell) Word(i int) uint32 { return c[i] }

// SetWord sets word i (0..7) of the cell.
func (c *Cell) SetWord(i int, v uint32) { c[i] = v }

// Bytes returns the cell's 32 bytes, little-endian, as a fresh slice.
func (c *Cell) Bytes() []byte {
	var b [32]byte
	for i, w := range c {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b[:]
}

// SetBytes overwrites the cell's content from 32 little-endian bytes.
func (c *Cell) SetBytes(b []byte) {
	for i := range c {
		c[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
}

// ByteAt returns the single byte at the given cell offset (0..31).
func (c *Cell) ByteAt(offset int) byte {
	word := c[offset/4]
	shift := uint(offset%4) * 8
	return byte(word >> shift)
}

// SetByteAt sets the single byte at the given cell offset (0..31).
func (c *Cell) SetByteAt(offset int, v byte) {
	shift := uint(offset%4) * 8
	mask := uint32(0xff) << shift
	c[offset/4] = (c[offset/4] &^ mask) | (uint32(v) << shift)
}
