package quartet

import "github.com/mycelia-vm/mycelia/bose"

// Value is one data-stack or dictionary-binding slot. Most slots hold a
// plain bose.Value, since the machine's data stack is a stack of
// bose.Value; a quoted block (the result of `[ ... ]`) has no BOSE
// representation of its own (BOSE's sum type is closed over data, not
// code), so Value extends it with an optional Block: exactly one of
// Data/Block is ever meaningful for a given stack slot.
type Value struct {
	Data  bose.Value
	Block *Block
}

func data(v bose.Value) Value { return Value{Data: v} }

func block(b *Block) Value { return Value{Block: b} }

func (v Value) isBlock() bool { return v.Block != nil }
