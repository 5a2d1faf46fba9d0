package bose

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/mycelia-vm/mycelia/cell"
)

// EOF is returned by Iterator.Next once the string has been fully
// consumed.
const EOF rune = -1

// Iterator is an explicit cursor over a string Value's content: Next is
// a plain method call, not a goroutine or channel. The content itself
// lives in v's cell chain; NewIterator reads the whole chain once (via
// Value.Bytes/Value.Str) into a Go buffer so that decoding a multi-byte
// UTF-8/UTF-16 scalar never has to special-case a rune split across two
// cells.
type Iterator struct {
	enc  StringEncoding
	data []byte
	pos  int
	done bool
}

// NewIterator constructs a cursor over v's content. v must be a string
// Value (Octets, UTF8, or UTF16); NewIterator panics otherwise, matching
// the "fails at construction" contract builders use for invalid
// prefixes (see NewBuilder).
func NewIterator(v Value) *Iterator {
	switch v.Kind() {
	case KindOctets:
		return &Iterator{enc: Octets, data: v.Bytes()}
	case KindUTF8:
		return &Iterator{enc: UTF8, data: []byte(v.Str())}
	case KindUTF16:
		return &Iterator{enc: UTF16, data: []byte(v.Str())}
	default:
		panic("bose: NewIterator requires a string Value")
	}
}

// Next returns the next Unicode scalar, or EOF exactly once at the end
// (Testable Property 3).
func (it *Iterator) Next() rune {
	if it.done {
		return EOF
	}
	if it.pos >= len(it.data) {
		it.done = true
		return EOF
	}
	if it.enc == Octets {
		r := rune(it.data[it.pos])
		it.pos++
		return r
	}
	r, size := utf8.DecodeRune(it.data[it.pos:])
	it.pos += size
	return r
}

// Remaining reports whether Next would return anything other than EOF.
func (it *Iterator) Remaining() bool { return !it.done && it.pos < len(it.data) }

// Builder is the dual of Iterator: an under-construction string value
// whose head cell is reserved immediately and whose content chain
// grows directly in the pool as WriteByte/WriteRune append to it,
// keeping the head's size word self-describing at every point so
// Built can be called at any time and always yields a valid, complete,
// pool-backed Value.
type Builder struct {
	pool *cell.Pool
	kind Kind

	head cell.Ref
	tail cell.Ref // cell currently being appended to (head, or the latest extension)

	tailBase int // offset of the content region's start within tail
	tailCap  int // content byte capacity of tail
	used     int // bytes already used within tail's content region
	size     int // total content bytes written across the whole chain
}

// NewBuilder starts a builder for the given string kind, reserving its
// head cell from pool. Kind must be KindOctets, KindUTF8, or KindUTF16;
// any other kind panics immediately, since a builder for a prefix that
// is not octets/utf8/utf16 has no string content to build.
func NewBuilder(pool *cell.Pool, kind Kind) (*Builder, error) {
	switch kind {
	case KindOctets, KindUTF8, KindUTF16:
	default:
		panic("bose: NewBuilder requires a string Kind")
	}
	s := Store{pool: pool}
	head, err := s.newHead(kind)
	if err != nil {
		return nil, err
	}
	return &Builder{
		pool:     pool,
		kind:     kind,
		head:     head,
		tail:     head,
		tailBase: headContentOffset,
		tailCap:  headContentBytes,
	}, nil
}

func (b *Builder) appendByte(v byte) error {
	if b.used == b.tailCap {
		ext, err := b.pool.Reserve()
		if err != nil {
			return err
		}
		linkWord := headLinkWord
		if b.tail != b.head {
			linkWord = extLinkWord
		}
		b.pool.Cell(b.tail).SetWord(linkWord, uint32(ext))
		b.tail = ext
		b.tailBase = 0
		b.tailCap = extContentBytes
		b.used = 0
	}
	b.pool.Cell(b.tail).SetByteAt(b.tailBase+b.used, v)
	b.used++
	b.size++
	b.pool.Cell(b.head).SetWord(sizeWord, uint32(b.size))
	return nil
}

// WriteByte appends a raw byte; valid only for an Octets builder.
func (b *Builder) WriteByte(c byte) error {
	if b.kind != KindOctets {
		panic("bose: WriteByte on a non-Octets Builder")
	}
	return b.appendByte(c)
}

// WriteRune appends a decoded scalar; valid for UTF8/UTF16 builders.
// UTF16 content is stored as its encoded code units, matching the wire
// format and Store.UTF16String, not raw UTF-8 bytes.
func (b *Builder) WriteRune(r rune) error {
	switch b.kind {
	case KindUTF8:
		var tmp [utf8.UTFMax]byte
		n := utf8.EncodeRune(tmp[:], r)
		for _, c := range tmp[:n] {
			if err := b.appendByte(c); err != nil {
				return err
			}
		}
		return nil
	case KindUTF16:
		for _, u := range utf16.Encode([]rune{r}) {
			if err := b.appendByte(byte(u)); err != nil {
				return err
			}
			if err := b.appendByte(byte(u >> 8)); err != nil {
				return err
			}
		}
		return nil
	default:
		panic("bose: WriteRune on an Octets Builder")
	}
}

// Built finalises the builder and returns the root Value. The builder
// must not be used afterward.
func (b *Builder) Built() Value {
	return Value{pool: b.pool, ref: b.head}
}
