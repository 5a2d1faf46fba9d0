// Package watchdog implements a deadline actor that can be layered
// above the core dispatch loop without the loop itself needing to know
// about timeouts. It follows github.com/joeycumines/go-longpoll's
// shape: track a set of pending waiters, deliver each exactly once when
// its condition is met, the same thing a longpoll.Channel call does for
// a single channel receive loop. longpoll's own API blocks a goroutine
// on a real channel against wall-clock timers, which has no meaning for
// a single-threaded, virtual-clock dispatcher that never spawns
// goroutines for actor execution, so this package keeps longpoll's
// operational shape (bounded set of pending waits, each resolved at
// most once) while replacing the blocking receive with a registered
// dispatcher.Behavior and an explicit Poll call made by the driver;
// the dispatcher itself has no tick and never calls Poll.
package watchdog

import (
	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
)

// Signal is watchdog's own two-message protocol: distinct from
// proto.Selector since a watchdog is not a Kernel value.
type Signal uint32

const (
	// Arm: (cust, ARM, deadline_lo, deadline_hi) -- arms self with a
	// deadline (microseconds, split across two words since the
	// dispatcher's virtual clock is a 64-bit tick count).
	Arm Signal = iota + 1
	// Timeout: sent to cust, with no payload, when Poll observes the
	// armed deadline has elapsed.
	Timeout
)

// Registry owns the watchdog behaviour and the set of currently armed
// actors, mirroring longpoll's "track everything not yet delivered".
type Registry struct {
	d     *dispatcher.Dispatcher
	behav dispatcher.BehaviorID
	armed map[cell.Ref]struct{}
}

// New registers the watchdog behaviour on d.
func New(d *dispatcher.Dispatcher) *Registry {
	r := &Registry{d: d, armed: make(map[cell.Ref]struct{})}
	r.behav = d.Registry().Register(r.behavior)
	return r
}

// NewTimer allocates a fresh, disarmed watchdog actor.
func (r *Registry) NewTimer() (cell.Ref, error) {
	return r.d.NewActor(r.behav)
}

func (r *Registry) behavior(ctx *dispatcher.Context, self cell.Ref) error {
	switch Signal(ctx.Word(1)) {
	case Arm:
		cust := cell.Ref(ctx.Word(2))
		deadlineLo := ctx.Word(3)
		deadlineHi := ctx.Word(4)
		ctx.Become(r.behav, uint32(cust), deadlineLo, deadlineHi)
		r.armed[self] = struct{}{}
		ctx.Complete()
		return nil
	default:
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
}

// Poll compares now against every armed deadline, delivering exactly one
// TIMEOUT to every armed watchdog whose deadline has elapsed, then
// disarming it. Intended to be called from a driver's idle loop, after
// Run has drained the queue.
func (r *Registry) Poll(now int64) error {
	for ref := range r.armed {
		cl := r.d.Pool().Cell(ref)
		cust := cell.Ref(cl.Word(1))
		deadline := int64(cl.Word(2)) | int64(cl.Word(3))<<32
		if now < deadline {
			continue
		}
		delete(r.armed, ref)
		if _, err := r.d.Enqueue(cust, uint32(Timeout)); err != nil {
			return err
		}
	}
	return nil
}

// DeadlineWords splits a microsecond deadline into the two trailing
// words an ARM message expects: lo, hi := watchdog.DeadlineWords(deadlineUs);
// ctx.Send(timer, uint32(watchdog.Arm), uint32(cust), lo, hi).
func DeadlineWords(deadlineUs int64) (lo, hi uint32) {
	return uint32(deadlineUs), uint32(deadlineUs >> 32)
}
