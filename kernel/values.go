package kernel

import (
	"math/big"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
)

// Symbol interns name, returning a stable actor ref: the same name
// always yields the same ref, so environment bindings can compare
// symbols by plain cell.Ref equality (env package never needs to know
// what a symbol actually is).
func (k *Kernel) Symbol(name string) (cell.Ref, error) {
	if ref, ok := k.symbolIndex[name]; ok {
		return ref, nil
	}
	idx := uint32(len(k.symbols))
	k.symbols = append(k.symbols, name)
	ref, err := k.d.NewActor(k.symbolBehav, idx)
	if err != nil {
		return cell.Nil, err
	}
	k.symbolIndex[name] = ref
	return ref, nil
}

// SymbolName returns the interned name for a symbol actor ref.
func (k *Kernel) SymbolName(ref cell.Ref) string {
	idx := k.d.Pool().Cell(ref).Word(1)
	return k.symbols[idx]
}

// Number constructs a fresh number actor for n.
func (k *Kernel) Number(n *big.Int) (cell.Ref, error) {
	idx := uint32(len(k.numbers))
	k.numbers = append(k.numbers, new(big.Int).Set(n))
	return k.d.NewActor(k.numberBehav, idx)
}

// Int64 is a convenience wrapper over Number.
func (k *Kernel) Int64(n int64) (cell.Ref, error) {
	return k.Number(big.NewInt(n))
}

// NumberValue returns the arbitrary-precision integer a number actor
// holds. ref must have been constructed by Number/Int64.
func (k *Kernel) NumberValue(ref cell.Ref) *big.Int {
	idx := k.d.Pool().Cell(ref).Word(1)
	return k.numbers[idx]
}

// String constructs a fresh Kernel string actor (distinct from a bose
// string: this is the Kernel-level datum a program manipulates with
// string-append etc., not the wire encoding).
func (k *Kernel) String(s string) (cell.Ref, error) {
	idx := uint32(len(k.strings))
	k.strings = append(k.strings, s)
	return k.d.NewActor(k.stringBehav, idx)
}

// StringValue returns the text a string actor holds.
func (k *Kernel) StringValue(ref cell.Ref) string {
	idx := k.d.Pool().Cell(ref).Word(1)
	return k.strings[idx]
}

// Cons constructs a fresh pair actor.
func (k *Kernel) Cons(car, cdr cell.Ref) (cell.Ref, error) {
	return k.d.NewActor(k.pairBehav, uint32(car), uint32(cdr))
}

// IsPair reports whether ref's behaviour is the pair template.
func (k *Kernel) IsPair(ref cell.Ref) bool {
	return dispatcher.BehaviorID(k.d.Pool().Cell(ref).Word(0)) == k.pairBehav
}

// IsSymbol reports whether ref's behaviour is the symbol template.
func (k *Kernel) IsSymbol(ref cell.Ref) bool {
	return dispatcher.BehaviorID(k.d.Pool().Cell(ref).Word(0)) == k.symbolBehav
}

// IsNumber reports whether ref was constructed by Number/Int64.
func (k *Kernel) IsNumber(ref cell.Ref) bool {
	return dispatcher.BehaviorID(k.d.Pool().Cell(ref).Word(0)) == k.numberBehav
}

// IsString reports whether ref was constructed by String.
func (k *Kernel) IsString(ref cell.Ref) bool {
	return dispatcher.BehaviorID(k.d.Pool().Cell(ref).Word(0)) == k.stringBehav
}

// Car/Cdr read a pair's fields directly (structural access, not a
// message send: the actor protocol governs evaluation and environment
// lookup, not reading your own freshly-built data).
func (k *Kernel) Car(ref cell.Ref) cell.Ref { return cell.Ref(k.d.Pool().Cell(ref).Word(1)) }
func (k *Kernel) Cdr(ref cell.Ref) cell.Ref { return cell.Ref(k.d.Pool().Cell(ref).Word(2)) }

// List builds a proper list terminated by Nil from vals, in order.
func (k *Kernel) List(vals ...cell.Ref) (cell.Ref, error) {
	result := k.Nil
	for i := len(vals) - 1; i >= 0; i-- {
		var err error
		result, err = k.Cons(vals[i], result)
		if err != nil {
			return cell.Nil, err
		}
	}
	return result, nil
}

// Slice flattens a proper list back into a Go slice.
func (k *Kernel) Slice(list cell.Ref) []cell.Ref {
	var out []cell.Ref
	for list != k.Nil {
		out = append(out, k.Car(list))
		list = k.Cdr(list)
	}
	return out
}
