// Package quartet implements a stack-oriented concatenative evaluator
// that runs alongside Kernel, leaving the lexer and REPL front-end out
// of scope. Machine executes already-tokenized input; tokenizing
// whitespace-separated source text is the caller's job (see
// cmd/quartet-repl for a minimal one).
package quartet

import (
	"github.com/mycelia-vm/mycelia/bose"
	"github.com/mycelia-vm/mycelia/cell"
)

// defaultPoolCapacity sizes the cell pool a Machine created with New
// allocates its BOSE values into, when the caller has no pool of its
// own to share.
const defaultPoolCapacity = 1 << 16

// opKind tags one compiled step of a Block.
type opKind int

const (
	opPush opKind = iota
	opCall
	opQuoteWord
	opFetch
	opBind
)

type op struct {
	kind opKind
	lit  Value
	name string
}

// Block is a compiled `[ ... ]` body: an ordered list of steps, each
// either a literal push or a named reference resolved against the
// Machine's dictionary at invocation time (not at compile time, so
// redefining a word changes every block that calls it, same as a
// direct dictionary lookup would).
type Block struct {
	ops []op
}

// entry is one dictionary binding: exactly one field is non-nil/valid.
type entry struct {
	prim  Primitive
	value Value
}

// Primitive is a built-in word implemented in Go.
type Primitive func(m *Machine) error

// Machine holds Quartet's data stack, word dictionary, and the BOSE
// store its data values are allocated into. The zero value is not
// ready for use; call New or NewWithPool.
type Machine struct {
	stack []Value
	dict  map[string]entry
	store *bose.Store

	compileStack []*Block
	immediate    int
}

// New returns a Machine with the standard primitive dictionary
// installed (the arithmetic/stack/comparison words), backed by its own
// freshly allocated cell pool.
func New() *Machine {
	return NewWithPool(cell.New(defaultPoolCapacity))
}

// NewWithPool is New, but allocates the Machine's BOSE values into pool
// rather than a pool of its own, for callers that want a Quartet
// Machine's data to share an arena with another pool consumer (e.g. a
// dispatcher.Dispatcher), mirroring cmd/kernel-repl's cell.New wiring.
func NewWithPool(pool *cell.Pool) *Machine {
	m := &Machine{dict: make(map[string]entry), store: bose.NewStore(pool)}
	installPrimitives(m)
	return m
}

// Define registers a primitive word, overwriting any existing
// definition of the same name.
func (m *Machine) Define(name string, fn Primitive) {
	m.dict[name] = entry{prim: fn}
}

// Push pushes a plain data value onto the stack.
func (m *Machine) Push(v bose.Value) { m.stack = append(m.stack, data(v)) }

// Pop removes and returns the top stack value.
func (m *Machine) Pop() (Value, error) {
	if len(m.stack) == 0 {
		return Value{}, fail(KindStackUnderflow, "")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

// PopData pops a value that must not be a quoted block.
func (m *Machine) PopData() (bose.Value, error) {
	v, err := m.Pop()
	if err != nil {
		return bose.Value{}, err
	}
	if v.isBlock() {
		return bose.Value{}, fail(KindStackUnderflow, "")
	}
	return v.Data, nil
}

// Stack returns a snapshot slice of the current data-only stack
// contents, for tests and REPL printing; a quoted block's place is
// reported as bose.Null.
func (m *Machine) Stack() []bose.Value {
	out := make([]bose.Value, len(m.stack))
	for i, v := range m.stack {
		if v.isBlock() {
			out[i] = bose.Null
			continue
		}
		out[i] = v.Data
	}
	return out
}

// Depth reports the number of values currently on the stack.
func (m *Machine) Depth() int { return len(m.stack) }

// interpreting reports whether the current position executes tokens
// immediately rather than compiling them into the open block: true at
// top level, or inside a `( ... )` escape within a compiling block,
// which switches execution back to immediate interpretation.
func (m *Machine) interpreting() bool {
	return m.immediate > 0 || len(m.compileStack) == 0
}

// Eval executes a sequence of already-tokenized Quartet source.
// Each of ` ' `, `@`, `=` consumes the token that follows it, so
// the loop indexes explicitly rather than ranging.
func (m *Machine) Eval(tokens []string) error {
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok {
		case "[":
			m.compileStack = append(m.compileStack, &Block{})
			continue
		case "]":
			b, err := m.closeBlock()
			if err != nil {
				return err
			}
			m.emitOrRun(op{kind: opPush, lit: block(b)})
			continue
		case "(":
			m.immediate++
			continue
		case ")":
			if m.immediate == 0 {
				return fail(KindUnbalancedBracket, tok)
			}
			m.immediate--
			continue
		case "'", "@", "=":
			i++
			if i >= len(tokens) {
				return fail(KindMissingOperand, tok)
			}
			word := tokens[i]
			var o op
			switch tok {
			case "'":
				o = op{kind: opQuoteWord, name: word}
			case "@":
				o = op{kind: opFetch, name: word}
			case "=":
				o = op{kind: opBind, name: word}
			}
			if err := m.emitOrRunErr(o); err != nil {
				return err
			}
			continue
		}

		if n, ok := parseNumber(tok); ok {
			v, err := m.store.BigInt(n)
			if err != nil {
				return failCause(KindOutOfMemory, tok, err)
			}
			if err := m.emitOrRunErr(op{kind: opPush, lit: data(v)}); err != nil {
				return err
			}
			continue
		}

		if err := m.emitOrRunErr(op{kind: opCall, name: tok}); err != nil {
			return err
		}
	}
	if len(m.compileStack) != 0 {
		return fail(KindUnbalancedBracket, "[")
	}
	return nil
}

func (m *Machine) closeBlock() (*Block, error) {
	n := len(m.compileStack)
	if n == 0 {
		return nil, fail(KindUnbalancedBracket, "]")
	}
	b := m.compileStack[n-1]
	m.compileStack = m.compileStack[:n-1]
	return b, nil
}

// emitOrRun appends op to the innermost open block, or runs it
// immediately at top level; it never fails (used for the `]` case,
// whose op is always a plain literal push).
func (m *Machine) emitOrRun(o op) {
	_ = m.emitOrRunErr(o)
}

func (m *Machine) emitOrRunErr(o op) error {
	if !m.interpreting() {
		top := m.compileStack[len(m.compileStack)-1]
		top.ops = append(top.ops, o)
		return nil
	}
	return m.run(o)
}

// run executes a single op against the live stack/dictionary.
func (m *Machine) run(o op) error {
	switch o.kind {
	case opPush:
		m.stack = append(m.stack, o.lit)
		return nil
	case opCall:
		return m.call(o.name)
	case opQuoteWord:
		v, err := m.store.UTF8String(o.name)
		if err != nil {
			return failCause(KindOutOfMemory, o.name, err)
		}
		m.stack = append(m.stack, data(v))
		return nil
	case opFetch:
		e, ok := m.dict[o.name]
		if !ok {
			return fail(KindUnboundWord, o.name)
		}
		if e.prim != nil {
			return fail(KindUnboundWord, o.name)
		}
		m.stack = append(m.stack, e.value)
		return nil
	case opBind:
		v, err := m.Pop()
		if err != nil {
			return err
		}
		m.dict[o.name] = entry{value: v}
		return nil
	default:
		return fail(KindUnboundWord, o.name)
	}
}

// call looks up name and either invokes a primitive, runs a bound
// block, or pushes a bound plain value (a named constant).
func (m *Machine) call(name string) error {
	e, ok := m.dict[name]
	if !ok {
		return fail(KindUnboundWord, name)
	}
	if e.prim != nil {
		return e.prim(m)
	}
	if e.value.isBlock() {
		return m.runBlock(e.value.Block)
	}
	m.stack = append(m.stack, e.value)
	return nil
}

func (m *Machine) runBlock(b *Block) error {
	for _, o := range b.ops {
		if err := m.run(o); err != nil {
			return err
		}
	}
	return nil
}
