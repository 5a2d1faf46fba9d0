package bose

import (
	"math"
	"math/big"
	"unicode/utf16"

	"github.com/mycelia-vm/mycelia/cell"
)

// StringEncoding distinguishes the three string prefixes the wire
// format supports: octets (raw bytes, no Unicode interpretation),
// utf8, and utf16.
type StringEncoding int

const (
	Octets StringEncoding = iota
	UTF8
	UTF16
)

// Sentinel refs for the three singleton kinds: out of range of any
// real allocation in a pool of fewer than math.MaxUint32-2 cells
// (cell.New itself imposes no upper bound), so Value's accessor methods
// recognise them before ever dereferencing v.pool.
const (
	nullRef  cell.Ref = math.MaxUint32
	trueRef  cell.Ref = math.MaxUint32 - 1
	falseRef cell.Ref = math.MaxUint32 - 2
)

// Value is a reference into a Store's cell.Pool: every BOSE value other
// than the three singletons below is a chain of pool cells (see
// chain.go for the layout), so allocating, inserting into, or setting a
// Value participates in the same pool accounting as actor and event
// cells, and a Value itself is a cheap two-word handle, not a content
// tree.
//
// Value trees are immutable after construction: Insert and Set always
// return a new root, never mutate their receiver or release any cell
// reachable from it.
type Value struct {
	pool *cell.Pool
	ref  cell.Ref
}

// Pair is one (key, value) entry of an Object, stored in insertion
// order: last-wins on duplicate keys, with the original key position
// retained on overwrite.
type Pair struct {
	Key   string
	Value Value
}

// Null, True, and False are the process-wide singleton values: they
// never occupy a pool cell, so they never count against any pool's
// capacity and never need releasing, and the same three values are
// shared by every Store and every decode regardless of which pool
// backs the rest of the tree.
var (
	Null  = Value{ref: nullRef}
	True  = Value{ref: trueRef}
	False = Value{ref: falseRef}
)

// Store allocates BOSE values into a cell.Pool: the BOSE counterpart of
// kernel.Kernel's NewActor-backed Symbol/Number/String/Cons
// constructors. Both materialise their domain's values as pool cells
// rather than Go-heap structures, so both participate in the same
// OutOfMemory accounting as every other pool consumer.
type Store struct {
	pool *cell.Pool
}

// NewStore wraps pool for BOSE allocation.
func NewStore(pool *cell.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the cell pool this Store allocates into.
func (s *Store) Pool() *cell.Pool { return s.pool }

// Bool returns True or False. Never allocates.
func (s *Store) Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func (s *Store) newHead(kind Kind) (cell.Ref, error) {
	ref, err := s.pool.Reserve()
	if err != nil {
		return cell.Nil, err
	}
	s.pool.Cell(ref).SetByteAt(tagOffset, byte(kind))
	return ref, nil
}

// Int64 constructs an integer Value.
func (s *Store) Int64(n int64) (Value, error) {
	return s.BigInt(big.NewInt(n))
}

// BigInt constructs an integer Value from an arbitrary-precision
// integer, matching the extended-integer chain the wire format allows.
func (s *Store) BigInt(n *big.Int) (Value, error) {
	head, err := s.newHead(KindInt)
	if err != nil {
		return Value{}, err
	}
	c := s.pool.Cell(head)
	if n.Sign() < 0 {
		c.SetByteAt(signOffset, 1)
	}
	mag := new(big.Int).Abs(n)
	le := reverseBytes(mag.Bytes())
	c.SetWord(sizeWord, uint32(len(le)))
	if err := writeChainContent(s.pool, head, le); err != nil {
		releaseChain(s.pool, head)
		return Value{}, err
	}
	return Value{pool: s.pool, ref: head}, nil
}

// OctetString constructs a raw-byte string Value.
func (s *Store) OctetString(b []byte) (Value, error) {
	return s.newString(KindOctets, b)
}

// UTF8String constructs a utf-8 string Value.
func (s *Store) UTF8String(str string) (Value, error) {
	return s.newString(KindUTF8, []byte(str))
}

// UTF16String constructs a utf-16 string Value, storing its encoded
// code units (matching the wire format's own utf16 content); Value.Str
// decodes them back to a Go string on read.
func (s *Store) UTF16String(str string) (Value, error) {
	units := utf16.Encode([]rune(str))
	b := make([]byte, 0, len(units)*2)
	for _, u := range units {
		b = append(b, byte(u), byte(u>>8))
	}
	return s.newString(KindUTF16, b)
}

func (s *Store) newString(kind Kind, content []byte) (Value, error) {
	head, err := s.newHead(kind)
	if err != nil {
		return Value{}, err
	}
	c := s.pool.Cell(head)
	c.SetWord(sizeWord, uint32(len(content)))
	if err := writeChainContent(s.pool, head, content); err != nil {
		releaseChain(s.pool, head)
		return Value{}, err
	}
	return Value{pool: s.pool, ref: head}, nil
}

// Array constructs an array Value from elems.
func (s *Store) Array(elems ...Value) (Value, error) {
	refs := make([]cell.Ref, len(elems))
	for i, e := range elems {
		refs[i] = e.ref
	}
	return s.newRefs(KindArray, refs)
}

// Object constructs an object Value from pairs, applied in the order
// given. Duplicate keys follow the last-wins/position-retained rule
// (see Value.Set).
func (s *Store) Object(pairs ...Pair) (Value, error) {
	v, err := s.newRefs(KindObject, nil)
	if err != nil {
		return Value{}, err
	}
	for _, p := range pairs {
		next, err := v.Set(p.Key, p.Value)
		if err != nil {
			v.Release()
			return Value{}, err
		}
		v.Release()
		v = next
	}
	return v, nil
}

// newRefs builds an array/object head from a flat ref sequence: stride
// 1 for arrays (one ref per element), stride 2 for objects (one key
// ref, one value ref per pair), the same chaining convention over
// element references used for both.
func (s *Store) newRefs(kind Kind, refs []cell.Ref) (Value, error) {
	head, err := s.newHead(kind)
	if err != nil {
		return Value{}, err
	}
	c := s.pool.Cell(head)
	count := len(refs)
	if kind == KindObject {
		count /= 2 // the size word holds the pair count, not the ref count
	}
	c.SetWord(sizeWord, uint32(count))
	if len(refs) > 0 {
		if err := writeChainRefs(s.pool, head, refs); err != nil {
			releaseChain(s.pool, head)
			return Value{}, err
		}
	}
	return Value{pool: s.pool, ref: head}, nil
}

// Kind returns the wire-level type family of v.
func (v Value) Kind() Kind {
	switch v.ref {
	case nullRef:
		return KindNull
	case trueRef:
		return KindTrue
	case falseRef:
		return KindFalse
	default:
		return Kind(v.pool.Cell(v.ref).ByteAt(tagOffset))
	}
}

// Int returns v's integer value. Meaningful only when v.Kind() ==
// KindInt.
func (v Value) Int() *big.Int {
	c := v.pool.Cell(v.ref)
	n := int(c.Word(sizeWord))
	le := readChainContent(v.pool, v.ref, n)
	mag := new(big.Int).SetBytes(reverseBytes(le))
	if c.ByteAt(signOffset) != 0 {
		mag.Neg(mag)
	}
	return mag
}

// Bytes returns v's raw content. Meaningful only when v.Kind() ==
// KindOctets.
func (v Value) Bytes() []byte {
	n := int(v.pool.Cell(v.ref).Word(sizeWord))
	return readChainContent(v.pool, v.ref, n)
}

// Str returns v's decoded text. Meaningful only when v.Kind() is
// KindUTF8 or KindUTF16.
func (v Value) Str() string {
	n := int(v.pool.Cell(v.ref).Word(sizeWord))
	b := readChainContent(v.pool, v.ref, n)
	if v.Kind() == KindUTF16 {
		units := make([]uint16, len(b)/2)
		for i := range units {
			units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
		}
		return string(utf16.Decode(units))
	}
	return string(b)
}

// Len returns the number of elements (arrays) or pairs (objects).
func (v Value) Len() int {
	switch v.Kind() {
	case KindArray, KindObject:
		return int(v.pool.Cell(v.ref).Word(sizeWord))
	default:
		return 0
	}
}

func (v Value) refs() []cell.Ref {
	n := v.Len()
	if n == 0 {
		return nil
	}
	stride := 1
	if v.Kind() == KindObject {
		stride = 2
	}
	return readChainRefs(v.pool, v.ref, n*stride)
}

// Elems returns an array's elements in order. Meaningful only when
// v.Kind() == KindArray.
func (v Value) Elems() []Value {
	refs := v.refs()
	out := make([]Value, len(refs))
	for i, r := range refs {
		out[i] = Value{pool: v.pool, ref: r}
	}
	return out
}

// Pairs returns an object's entries in insertion order. Meaningful only
// when v.Kind() == KindObject.
func (v Value) Pairs() []Pair {
	refs := v.refs()
	out := make([]Pair, len(refs)/2)
	for i := range out {
		key := Value{pool: v.pool, ref: refs[2*i]}
		out[i] = Pair{Key: key.Str(), Value: Value{pool: v.pool, ref: refs[2*i+1]}}
	}
	return out
}

// Insert implements array_insert: returns a new array with x inserted
// at index i. The new root is a freshly allocated head and ref chain;
// the element references themselves are shared with v, not copied or
// re-encoded (see DESIGN.md for how this relates to Invariant 2's
// "Insert/Set return a new root cell").
func (v Value) Insert(i int, x Value) (Value, error) {
	refs := v.refs()
	out := make([]cell.Ref, 0, len(refs)+1)
	out = append(out, refs[:i]...)
	out = append(out, x.ref)
	out = append(out, refs[i:]...)
	s := Store{pool: v.pool}
	return s.newRefs(KindArray, out)
}

// Set implements object_set: if key already exists its value is
// replaced in place (original position retained, last-wins); otherwise
// the pair is appended. Returns a new Object; v is unchanged. Every
// unaffected key and value reference is shared with v, the same
// structural-sharing approach Insert uses.
func (v Value) Set(key string, val Value) (Value, error) {
	refs := v.refs()
	s := Store{pool: v.pool}
	for i := 0; i < len(refs); i += 2 {
		existingKey := Value{pool: v.pool, ref: refs[i]}
		if existingKey.Str() == key {
			out := make([]cell.Ref, len(refs))
			copy(out, refs)
			out[i+1] = val.ref
			return s.newRefs(KindObject, out)
		}
	}
	keyVal, err := s.UTF8String(key)
	if err != nil {
		return Value{}, err
	}
	out := make([]cell.Ref, len(refs), len(refs)+2)
	copy(out, refs)
	out = append(out, keyVal.ref, val.ref)
	return s.newRefs(KindObject, out)
}

// Get looks up a key in an object, reporting whether it was found.
func (v Value) Get(key string) (Value, bool) {
	for _, p := range v.Pairs() {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Release returns v's own head and extension cells to its pool.
// Null/True/False are no-ops, since they are never allocated. Nested
// elements/pairs are not released: Insert/Set share element references
// across roots, so only whichever Value uniquely owns a leaf may
// safely release it.
func (v Value) Release() {
	switch v.ref {
	case nullRef, trueRef, falseRef:
		return
	default:
		releaseChain(v.pool, v.ref)
	}
}

// Equal reports structural equality: two Values compare equal if they
// denote the same BOSE value, regardless of which pool or cell backs
// them (Testable Property 2: decode/encode round trip under structural
// equality, array order preserved, object keys unique).
func (v Value) Equal(o Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull, KindTrue, KindFalse:
		return true
	case KindInt:
		return v.Int().Cmp(o.Int()) == 0
	case KindOctets:
		return string(v.Bytes()) == string(o.Bytes())
	case KindUTF8, KindUTF16:
		return v.Str() == o.Str()
	case KindArray:
		ve, oe := v.Elems(), o.Elems()
		if len(ve) != len(oe) {
			return false
		}
		for i := range ve {
			if !ve[i].Equal(oe[i]) {
				return false
			}
		}
		return true
	case KindObject:
		vp, op := v.Pairs(), o.Pairs()
		if len(vp) != len(op) {
			return false
		}
		for i := range vp {
			if vp[i].Key != op[i].Key || !vp[i].Value.Equal(op[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
