package quartet

import (
	"errors"
	"fmt"
)

// Kind is quartet's own small failure taxonomy, distinct from
// dispatcher.Kind since a Machine is a plain Go value with no actor or
// turn to roll back.
type Kind int

const (
	// KindUnboundWord: a bare or `@`-fetch reference named a word with
	// no dictionary entry, or `@` named a primitive.
	KindUnboundWord Kind = iota
	// KindStackUnderflow: a primitive or ')'/']' needed more stack
	// depth than was available.
	KindStackUnderflow
	// KindNotANumber: a numeric word got a non-integer operand, or `/`
	// or `mod` got a zero divisor. A token that does not parse as a
	// number is looked up as a word instead.
	KindNotANumber
	// KindUnbalancedBracket: ']' with no matching open '[', or input
	// ended while a block was still open.
	KindUnbalancedBracket
	// KindMissingOperand: ', @, or = appeared with no following WORD
	// token.
	KindMissingOperand
	// KindOutOfMemory: a BOSE value could not be allocated because the
	// machine's cell pool is exhausted.
	KindOutOfMemory
)

func (k Kind) Error() string { return k.String() }

func (k Kind) String() string {
	switch k {
	case KindUnboundWord:
		return "UnboundWord"
	case KindStackUnderflow:
		return "StackUnderflow"
	case KindNotANumber:
		return "NotANumber"
	case KindUnbalancedBracket:
		return "UnbalancedBracket"
	case KindMissingOperand:
		return "MissingOperand"
	case KindOutOfMemory:
		return "OutOfMemory"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a quartet evaluation failure: the Kind plus the offending
// token, if any, and an optional wrapped cause.
type Error struct {
	Kind  Kind
	Token string
	Cause error
}

func (e *Error) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("quartet: %s: %q", e.Kind, e.Token)
	}
	return fmt.Sprintf("quartet: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a bare Kind, or a *Error with the same
// Kind, mirroring dispatcher.Error's errors.Is convention.
func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

func fail(kind Kind, token string) error {
	return &Error{Kind: kind, Token: token}
}

// failCause wraps an underlying error, e.g. a cell.ErrOutOfMemory
// surfaced while materialising a literal into the machine's store.
func failCause(kind Kind, token string, cause error) error {
	return &Error{Kind: kind, Token: token, Cause: cause}
}
