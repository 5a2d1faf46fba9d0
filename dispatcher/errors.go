package dispatcher

import (
	"errors"
	"fmt"

	"github.com/mycelia-vm/mycelia/cell"
)

// Kind is the closed taxonomy of recoverable turn failures. All kinds
// except Panic abort only the current turn; Panic is fatal.
type Kind int

const (
	// KindOutOfMemory: the block pool's free list and high-water mark are
	// both exhausted.
	KindOutOfMemory Kind = iota
	// KindQueueOverflow: the event ring is full.
	KindQueueOverflow
	// KindWrongActorType: an operation targeted a cell whose behaviour
	// word does not match the expected template.
	KindWrongActorType
	// KindDecodeError: malformed BOSE input.
	KindDecodeError
	// KindUnboundSymbol: environment lookup fell through to the terminal
	// fail binding.
	KindUnboundSymbol
	// KindNotCombiner: a Kernel APPLY target is not a combiner.
	KindNotCombiner
	// KindNotEnvironment: a Kernel EVAL/BIND target is not an environment.
	KindNotEnvironment
	// KindNotApplicative: an UNWRAP target is not an applicative.
	KindNotApplicative
)

// Error satisfies the error interface so a bare Kind can be used directly
// as the target of errors.Is(err, dispatcher.KindOutOfMemory).
func (k Kind) Error() string { return k.String() }

func (k Kind) String() string {
	switch k {
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindQueueOverflow:
		return "QueueOverflow"
	case KindWrongActorType:
		return "WrongActorType"
	case KindDecodeError:
		return "DecodeError"
	case KindUnboundSymbol:
		return "UnboundSymbol"
	case KindNotCombiner:
		return "NotCombiner"
	case KindNotEnvironment:
		return "NotEnvironment"
	case KindNotApplicative:
		return "NotApplicative"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a recoverable turn failure: the Kind plus the actor that was
// dispatching (self) when it was raised, and an optional wrapped cause.
type Error struct {
	Kind  Kind
	Self  cell.Ref
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dispatcher: %s (self=%d): %v", e.Kind, e.Self, e.Cause)
	}
	return fmt.Sprintf("dispatcher: %s (self=%d)", e.Kind, e.Self)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a bare Kind value, or a *Error, with the
// same Kind, so callers can write errors.Is(err, dispatcher.KindOutOfMemory).
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

// Fail constructs a turn-failure error of the given kind.
func Fail(kind Kind, self cell.Ref, cause error) error {
	return &Error{Kind: kind, Self: self, Cause: cause}
}

// PanicError wraps a fatal invariant violation. Unlike Error, it is
// never recovered within the dispatch loop.
type PanicError struct {
	Message string
	Cause   error
}

func (e *PanicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dispatcher: panic: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("dispatcher: panic: %s", e.Message)
}

func (e *PanicError) Unwrap() error { return e.Cause }
