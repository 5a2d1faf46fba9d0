// Package bose implements the Binary Octet-Stream Encoding: a
// canonical, self-describing tagged encoding of null, booleans,
// integers, strings, arrays, and objects.
//
// A Value (value.go) is a handle into a Store's cell.Pool: every value
// other than the Null/True/False singletons is a chain of pool cells
// (see chain.go for the exact layout), allocated and released the same
// way actor and event cells are, so BOSE allocation counts against pool
// capacity and can fail with cell.ErrOutOfMemory like anything else
// drawn from the pool. This is the same discriminant-on-a-reserved-byte
// idea used one level up by an actor cell's word 0: a Value's Kind is
// read out of its head cell rather than carried as a Go struct field.
//
// Encode/Decode (encode.go/decode.go) are a separate concern: the wire
// byte-stream codec that serialises a Value tree to/from a flat []byte,
// independent of how that tree is materialised in memory.
package bose

// Kind is the wire-level type family a Value belongs to.
type Kind int

const (
	KindNull Kind = iota
	KindTrue
	KindFalse
	KindInt
	KindOctets
	KindUTF8
	KindUTF16
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindInt:
		return "int"
	case KindOctets:
		return "octets"
	case KindUTF8:
		return "utf8"
	case KindUTF16:
		return "utf16"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Wire prefix bytes. smol integers and smol lengths are folded into
// the surrounding byte ranges rather than given a single constant,
// since their value is part of the byte itself.
const (
	prefixNull  byte = 0x00
	prefixTrue  byte = 0x01
	prefixFalse byte = 0x02

	// smolIntMin/smolIntMax bound the inline integer range encoded
	// directly in the prefix byte: smol integers span -64..+126.
	// The smol range occupies 191 consecutive prefix bytes starting at
	// smolIntBase (smolIntBase..smolIntBase+190); every other prefix
	// constant below must start at or after smolIntBase+191 to avoid
	// colliding with it.
	smolIntBase byte = 0x03 // prefix for value -64
	smolIntMin  int  = -64
	smolIntMax  int  = 126

	// pIntBase/mIntBase: extended integer prefixes for non-negative
	// (p_int) and negative (m_int) magnitudes, each followed by a
	// size-encoded byte count and then that many little-endian magnitude
	// bytes.
	pIntBase byte = 0xC2
	mIntBase byte = 0xC3

	octetsBase byte = 0xC4
	utf8Base   byte = 0xC5
	utf16Base  byte = 0xC6

	arrayEmpty byte = 0xC7
	arrayNBase byte = 0xC8 // byte-size + element count

	objectEmpty byte = 0xC9
	objectNBase byte = 0xCA // byte-size + pair count
)
