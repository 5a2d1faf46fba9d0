package quartet

import (
	"math/big"

	"github.com/mycelia-vm/mycelia/bose"
)

// installPrimitives registers the standard word set: stack shuffling,
// arithmetic, comparison, and block invocation. The quoting words
// (', @, =) and literal grammar are handled directly in Machine.Eval;
// everything here is the "library" a Quartet program actually computes
// with.
func installPrimitives(m *Machine) {
	m.Define("dup", primDup)
	m.Define("drop", primDrop)
	m.Define("swap", primSwap)
	m.Define("over", primOver)
	m.Define("rot", primRot)
	m.Define("call", primCall)

	m.Define("+", binaryIntOp(func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }))
	m.Define("-", binaryIntOp(func(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }))
	m.Define("*", binaryIntOp(func(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) }))
	m.Define("/", primDiv)
	m.Define("mod", primMod)

	m.Define("=", comparisonOp(func(c int) bool { return c == 0 }))
	m.Define("<", comparisonOp(func(c int) bool { return c < 0 }))
	m.Define(">", comparisonOp(func(c int) bool { return c > 0 }))
	m.Define("<=", comparisonOp(func(c int) bool { return c <= 0 }))
	m.Define(">=", comparisonOp(func(c int) bool { return c >= 0 }))

	m.Define("not", primNot)
}

func primDup(m *Machine) error {
	if len(m.stack) == 0 {
		return fail(KindStackUnderflow, "dup")
	}
	m.stack = append(m.stack, m.stack[len(m.stack)-1])
	return nil
}

func primDrop(m *Machine) error {
	_, err := m.Pop()
	return err
}

func primSwap(m *Machine) error {
	n := len(m.stack)
	if n < 2 {
		return fail(KindStackUnderflow, "swap")
	}
	m.stack[n-1], m.stack[n-2] = m.stack[n-2], m.stack[n-1]
	return nil
}

func primOver(m *Machine) error {
	n := len(m.stack)
	if n < 2 {
		return fail(KindStackUnderflow, "over")
	}
	m.stack = append(m.stack, m.stack[n-2])
	return nil
}

func primRot(m *Machine) error {
	n := len(m.stack)
	if n < 3 {
		return fail(KindStackUnderflow, "rot")
	}
	m.stack[n-3], m.stack[n-2], m.stack[n-1] = m.stack[n-2], m.stack[n-1], m.stack[n-3]
	return nil
}

// primCall invokes a quoted block popped from the stack: the one
// mechanism, not part of the core quoting grammar but required to make
// a value bound via `=` runnable more than once under a different
// name, that lets a program execute a block value it computed rather
// than one it merely named.
func primCall(m *Machine) error {
	v, err := m.Pop()
	if err != nil {
		return err
	}
	if !v.isBlock() {
		return fail(KindStackUnderflow, "call")
	}
	return m.runBlock(v.Block)
}

func popInts(m *Machine, word string) (*big.Int, *big.Int, error) {
	b, err := m.PopData()
	if err != nil {
		return nil, nil, err
	}
	a, err := m.PopData()
	if err != nil {
		return nil, nil, err
	}
	if a.Kind() != bose.KindInt || b.Kind() != bose.KindInt {
		return nil, nil, fail(KindNotANumber, word)
	}
	return a.Int(), b.Int(), nil
}

// pushInt materialises n into the machine's store and pushes it, or
// fails the op with KindOutOfMemory if the store's pool is exhausted.
func pushInt(m *Machine, word string, n *big.Int) error {
	v, err := m.store.BigInt(n)
	if err != nil {
		return failCause(KindOutOfMemory, word, err)
	}
	m.Push(v)
	return nil
}

func binaryIntOp(fn func(a, b *big.Int) *big.Int) Primitive {
	return func(m *Machine) error {
		a, b, err := popInts(m, "arith")
		if err != nil {
			return err
		}
		return pushInt(m, "arith", fn(a, b))
	}
}

func primDiv(m *Machine) error {
	a, b, err := popInts(m, "/")
	if err != nil {
		return err
	}
	if b.Sign() == 0 {
		return fail(KindNotANumber, "/")
	}
	return pushInt(m, "/", new(big.Int).Quo(a, b))
}

func primMod(m *Machine) error {
	a, b, err := popInts(m, "mod")
	if err != nil {
		return err
	}
	if b.Sign() == 0 {
		return fail(KindNotANumber, "mod")
	}
	return pushInt(m, "mod", new(big.Int).Rem(a, b))
}

func comparisonOp(accept func(cmp int) bool) Primitive {
	return func(m *Machine) error {
		a, b, err := popInts(m, "cmp")
		if err != nil {
			return err
		}
		m.Push(bose.Bool(accept(a.Cmp(b))))
		return nil
	}
}

func primNot(m *Machine) error {
	v, err := m.PopData()
	if err != nil {
		return err
	}
	m.Push(bose.Bool(v.Kind() != bose.KindTrue))
	return nil
}
