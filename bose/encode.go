package bose

import (
	"math/big"
	"unicode/utf16"
)

// maxIntMagnitudeBytes bounds the extended-integer magnitude the decoder
// will accept, guarding against a hostile "size" field requesting an
// unbounded allocation; see DESIGN.md for the rationale.
const maxIntMagnitudeBytes = 256

// Encode serialises v as a BOSE byte stream.
func Encode(v Value) []byte {
	var out []byte
	return appendValue(out, v)
}

func appendValue(dst []byte, v Value) []byte {
	switch v.Kind() {
	case KindNull:
		return append(dst, prefixNull)
	case KindTrue:
		return append(dst, prefixTrue)
	case KindFalse:
		return append(dst, prefixFalse)
	case KindInt:
		return appendInt(dst, v.Int())
	case KindOctets:
		return appendString(dst, octetsBase, v.Bytes())
	case KindUTF8:
		return appendString(dst, utf8Base, []byte(v.Str()))
	case KindUTF16:
		units := utf16.Encode([]rune(v.Str()))
		b := make([]byte, 0, len(units)*2)
		for _, u := range units {
			b = append(b, byte(u), byte(u>>8))
		}
		return appendString(dst, utf16Base, b)
	case KindArray:
		return appendArray(dst, v.Elems())
	case KindObject:
		return appendObject(dst, v.Pairs())
	default:
		panic("bose: encode of invalid Value")
	}
}

func appendInt(dst []byte, n *big.Int) []byte {
	if n.IsInt64() {
		v := n.Int64()
		if v >= int64(smolIntMin) && v <= int64(smolIntMax) {
			return append(dst, smolIntBase+byte(v-int64(smolIntMin)))
		}
	}
	mag := new(big.Int).Abs(n)
	raw := mag.Bytes() // big-endian
	le := make([]byte, len(raw))
	for i, b := range raw {
		le[len(raw)-1-i] = b
	}
	prefix := pIntBase
	if n.Sign() < 0 {
		prefix = mIntBase
	}
	dst = append(dst, prefix)
	dst = appendSize(dst, len(le))
	return append(dst, le...)
}

func appendString(dst []byte, prefix byte, content []byte) []byte {
	if len(content) == 0 {
		return append(dst, prefix, 0x00) // size 0, dedicated empty form not needed: size-encoded 0 is one byte
	}
	dst = append(dst, prefix)
	dst = appendSize(dst, len(content))
	return append(dst, content...)
}

func appendArray(dst []byte, elems []Value) []byte {
	if len(elems) == 0 {
		return append(dst, arrayEmpty)
	}
	var body []byte
	for _, e := range elems {
		body = appendValue(body, e)
	}
	dst = append(dst, arrayNBase)
	dst = appendSize(dst, len(body))
	dst = appendSize(dst, len(elems))
	return append(dst, body...)
}

func appendObject(dst []byte, pairs []Pair) []byte {
	if len(pairs) == 0 {
		return append(dst, objectEmpty)
	}
	var body []byte
	for _, p := range pairs {
		body = appendSize(body, len(p.Key))
		body = append(body, p.Key...)
		body = appendValue(body, p.Value)
	}
	dst = append(dst, objectNBase)
	dst = appendSize(dst, len(body))
	dst = appendSize(dst, len(pairs))
	return append(dst, body...)
}

// appendSize writes an unsigned size as a smol byte (0..0xEF) when it
// fits, else a marker byte followed by a 1/2/4-byte little-endian
// field, an unsigned variable-width integer encoding.
func appendSize(dst []byte, n int) []byte {
	switch {
	case n < 0xF0:
		return append(dst, byte(n))
	case n <= 0xFF:
		return append(dst, 0xF1, byte(n))
	case n <= 0xFFFF:
		return append(dst, 0xF2, byte(n), byte(n>>8))
	default:
		return append(dst, 0xF4,
			byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
}
