package bose

import (
	"math/big"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/mycelia-vm/mycelia/cell"
)

// decoder walks a byte slice left to right, allocating a pool-backed
// Value tree as it goes. It is the wire-format counterpart of Iterator
// (iterator.go is the string-content cursor used during construction
// and reading; this decoder is its codec-level counterpart, operating
// over the whole wire byte stream rather than one string's chain).
type decoder struct {
	pool *cell.Pool
	buf  []byte
	pos  int
}

// Decode parses one BOSE value from b, allocating it into pool, and
// returns the value plus the number of bytes consumed.
func Decode(pool *cell.Pool, b []byte) (Value, int, error) {
	d := &decoder{pool: pool, buf: b}
	v, err := d.value()
	if err != nil {
		return Value{}, 0, err
	}
	return v, d.pos, nil
}

func (d *decoder) store() Store { return Store{pool: d.pool} }

func (d *decoder) byte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrOutOfBounds
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, ErrOutOfBounds
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) size() (int, error) {
	b, err := d.byte()
	if err != nil {
		return 0, err
	}
	switch b {
	case 0xF1:
		n, err := d.take(1)
		if err != nil {
			return 0, err
		}
		return int(n[0]), nil
	case 0xF2:
		n, err := d.take(2)
		if err != nil {
			return 0, err
		}
		return int(n[0]) | int(n[1])<<8, nil
	case 0xF4:
		n, err := d.take(4)
		if err != nil {
			return 0, err
		}
		return int(n[0]) | int(n[1])<<8 | int(n[2])<<16 | int(n[3])<<24, nil
	case 0xF3, 0xF0:
		return 0, ErrBadContinuation
	default:
		return int(b), nil
	}
}

func (d *decoder) value() (Value, error) {
	prefix, err := d.byte()
	if err != nil {
		return Value{}, err
	}
	switch {
	case prefix == prefixNull:
		return Null, nil
	case prefix == prefixTrue:
		return True, nil
	case prefix == prefixFalse:
		return False, nil
	case prefix >= smolIntBase && prefix < pIntBase:
		n := int64(prefix-smolIntBase) + int64(smolIntMin)
		return d.store().Int64(n)
	case prefix == pIntBase || prefix == mIntBase:
		return d.extendedInt(prefix == mIntBase)
	case prefix == octetsBase:
		b, err := d.stringContent()
		if err != nil {
			return Value{}, err
		}
		return d.store().OctetString(b)
	case prefix == utf8Base:
		b, err := d.stringContent()
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(b) {
			return Value{}, ErrMalformedUTF8
		}
		return d.store().UTF8String(string(b))
	case prefix == utf16Base:
		b, err := d.stringContent()
		if err != nil {
			return Value{}, err
		}
		if len(b)%2 != 0 {
			return Value{}, ErrMalformedUTF16
		}
		units := make([]uint16, len(b)/2)
		for i := range units {
			units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
		}
		return d.store().UTF16String(string(utf16.Decode(units)))
	case prefix == arrayEmpty:
		return d.store().Array()
	case prefix == arrayNBase:
		return d.array()
	case prefix == objectEmpty:
		return d.store().Object()
	case prefix == objectNBase:
		return d.object()
	default:
		return Value{}, ErrUnsupportedPrefix
	}
}

func (d *decoder) stringContent() ([]byte, error) {
	n, err := d.size()
	if err != nil {
		return nil, err
	}
	return d.take(n)
}

func (d *decoder) extendedInt(negative bool) (Value, error) {
	n, err := d.size()
	if err != nil {
		return Value{}, err
	}
	if n > maxIntMagnitudeBytes {
		return Value{}, ErrIntegerTooLarge
	}
	le, err := d.take(n)
	if err != nil {
		return Value{}, err
	}
	mag := new(big.Int).SetBytes(reverseBytes(le))
	if negative {
		mag.Neg(mag)
	}
	return d.store().BigInt(mag)
}

func (d *decoder) array() (Value, error) {
	byteSize, err := d.size()
	if err != nil {
		return Value{}, err
	}
	bodyEnd := d.pos + byteSize
	if bodyEnd > len(d.buf) {
		return Value{}, ErrOutOfBounds
	}
	count, err := d.size()
	if err != nil {
		return Value{}, err
	}
	elems := make([]Value, 0, count)
	for i := 0; i < count; i++ {
		v, err := d.value()
		if err != nil {
			releaseAll(elems)
			return Value{}, err
		}
		elems = append(elems, v)
	}
	if d.pos != bodyEnd {
		releaseAll(elems)
		return Value{}, ErrOutOfBounds
	}
	return d.store().Array(elems...)
}

func (d *decoder) object() (Value, error) {
	byteSize, err := d.size()
	if err != nil {
		return Value{}, err
	}
	bodyEnd := d.pos + byteSize
	if bodyEnd > len(d.buf) {
		return Value{}, ErrOutOfBounds
	}
	count, err := d.size()
	if err != nil {
		return Value{}, err
	}
	v, err := d.store().Object()
	if err != nil {
		return Value{}, err
	}
	for i := 0; i < count; i++ {
		keyLen, err := d.size()
		if err != nil {
			v.Release()
			return Value{}, err
		}
		keyBytes, err := d.take(keyLen)
		if err != nil {
			v.Release()
			return Value{}, err
		}
		val, err := d.value()
		if err != nil {
			v.Release()
			return Value{}, err
		}
		next, err := v.Set(string(keyBytes), val)
		if err != nil {
			v.Release()
			return Value{}, err
		}
		v.Release()
		v = next
	}
	if d.pos != bodyEnd {
		v.Release()
		return Value{}, ErrOutOfBounds
	}
	return v, nil
}

func releaseAll(vs []Value) {
	for _, v := range vs {
		v.Release()
	}
}
