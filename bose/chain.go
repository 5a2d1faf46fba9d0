package bose

import (
	"encoding/binary"

	"github.com/mycelia-vm/mycelia/cell"
)

// Every BOSE value other than the null/true/false singletons occupies a
// head cell plus, once its content outgrows the head's inline capacity,
// a chain of extension cells. The head cell's layout:
//
//	0x00-0x03  reserved
//	0x04       reserved
//	0x05       tag byte: the Value's Kind
//	0x06       sign byte, meaningful only for KindInt (0 non-negative, 1 negative)
//	0x07       reserved
//	0x08-0x0b  size: magnitude byte count (KindInt), content byte length
//	           (KindOctets/UTF8/UTF16), element count (KindArray), or pair
//	           count (KindObject)
//	0x0c-0x17  12 inline content bytes, or 3 inline element/pair refs
//	0x18-0x1b  link to the first extension cell (0 terminates)
//	0x1c-0x1f  reserved
//
// An extension cell devotes everything but its own link word to content:
//
//	0x00-0x1b  28 content bytes, continuing from the previous cell
//	0x1c-0x1f  link to the next extension cell (0 terminates)
//
// This is the in-pool counterpart of the wire format's extension-block
// chaining (see encode.go/decode.go): every BOSE value, not just actor
// and event cells, is reserved from and released back to the same
// cell.Pool, so its allocation counts against pool capacity the same
// way theirs does. The wire format's own size economization (smol
// inline lengths vs. an extended marker byte) is not duplicated here:
// a cell-resident value always carries a full-width size/count word,
// since the cost that optimization is avoiding (wire bytes on disk or
// over a socket) does not apply to an in-memory, fixed-width cell.
const (
	tagOffset  = 0x05
	signOffset = 0x06
	sizeWord   = 2

	headContentOffset = 0x0c
	headContentBytes  = 12
	headLinkWord      = 6

	extContentBytes = 28
	extLinkWord     = 7
)

// writeChainContent stores data across head's inline bytes and as many
// freshly reserved extension cells as needed. head must already be
// reserved and zero-filled. On failure, the caller is responsible for
// releasing whatever chain was attached so far (see releaseChain).
func writeChainContent(pool *cell.Pool, head cell.Ref, data []byte) error {
	tail := pool.Cell(head)
	linkWord := headLinkWord
	n := writeSegment(tail, headContentOffset, headContentBytes, data)
	data = data[n:]

	for len(data) > 0 {
		ext, err := pool.Reserve()
		if err != nil {
			return err
		}
		tail.SetWord(linkWord, uint32(ext))
		tail = pool.Cell(ext)
		linkWord = extLinkWord
		n := writeSegment(tail, 0, extContentBytes, data)
		data = data[n:]
	}
	return nil
}

// writeSegment copies up to capacity bytes of data into c starting at
// offset, returning how many bytes were written.
func writeSegment(c *cell.Cell, offset, capacity int, data []byte) int {
	n := len(data)
	if n > capacity {
		n = capacity
	}
	buf := c.Bytes()
	copy(buf[offset:], data[:n])
	c.SetBytes(buf)
	return n
}

// readChainContent reads total content bytes back out of the chain
// rooted at head.
func readChainContent(pool *cell.Pool, head cell.Ref, total int) []byte {
	out := make([]byte, 0, total)
	hc := pool.Cell(head)
	n := headContentBytes
	if total < n {
		n = total
	}
	buf := hc.Bytes()
	out = append(out, buf[headContentOffset:headContentOffset+n]...)
	remaining := total - n
	link := cell.Ref(hc.Word(headLinkWord))
	for remaining > 0 && link != cell.Nil {
		ec := pool.Cell(link)
		n := extContentBytes
		if remaining < n {
			n = remaining
		}
		ebuf := ec.Bytes()
		out = append(out, ebuf[:n]...)
		remaining -= n
		link = cell.Ref(ec.Word(extLinkWord))
	}
	return out
}

// releaseChain releases head and every extension cell chained off it.
func releaseChain(pool *cell.Pool, head cell.Ref) {
	link := cell.Ref(pool.Cell(head).Word(headLinkWord))
	pool.Release(head)
	for link != cell.Nil {
		next := cell.Ref(pool.Cell(link).Word(extLinkWord))
		pool.Release(link)
		link = next
	}
}

// writeChainRefs is writeChainContent specialised to a sequence of
// cell.Ref, used by arrays (stride 1) and objects (stride 2: key ref,
// value ref), matching the wire format's "same chaining convention over
// element references" for both.
func writeChainRefs(pool *cell.Pool, head cell.Ref, refs []cell.Ref) error {
	buf := make([]byte, 4*len(refs))
	for i, r := range refs {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(r))
	}
	return writeChainContent(pool, head, buf)
}

func readChainRefs(pool *cell.Pool, head cell.Ref, count int) []cell.Ref {
	buf := readChainContent(pool, head, 4*count)
	out := make([]cell.Ref, count)
	for i := range out {
		out[i] = cell.Ref(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return out
}

// reverseBytes returns a new slice with b's bytes in reverse order,
// used to flip between big.Int's big-endian Bytes()/SetBytes() and the
// little-endian magnitude words both the wire format and the in-pool
// representation store.
func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}
