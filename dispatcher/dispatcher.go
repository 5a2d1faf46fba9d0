// Package dispatcher implements a single-threaded turn loop: it drains
// the event queue, binds per-dispatch context (self, event, sponsor),
// invokes an actor's behaviour atomically with respect to the queue,
// and recovers from a failed turn via snapshot and restore of the
// pool, the queue, the actor's pre-turn cell content, and (when a
// Budget is configured) that sponsor's rate-limit accounting.
package dispatcher

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/queue"
)

// Budget is the optional per-sponsor accounting hook, implemented by
// package sponsor. A Dispatcher with no configured Budget imposes no
// sponsor-level limits beyond the pool and queue capacities themselves.
//
// Snapshot/Restore let a failed turn undo whatever charges it made, the
// same way a failed turn undoes its pool reservations and queue
// enqueues: a charge made earlier in a turn that later fails must not
// outlive the turn.
type Budget interface {
	// Charge records n units of the given kind of work against sponsor,
	// returning an error if the sponsor's rate would be exceeded.
	Charge(sponsor cell.Ref, kind string, n int) error

	// Snapshot captures sponsor's current accounting state.
	Snapshot(sponsor cell.Ref) any

	// Restore reverts sponsor's accounting state to a prior Snapshot.
	Restore(sponsor cell.Ref, snap any)
}

const (
	chargeReserve = "reserve"
	chargeEnqueue = "enqueue"
)

// Clock is the monotonic microsecond clock that is the only timing
// primitive the core depends on (now_us()).
type Clock func() int64

// ErrNotRunning reports a dispatcher that is not running. No Dispatcher
// method returns it: Step reports an empty queue by returning false.
var ErrNotRunning = errors.New("dispatcher: not running")

// Dispatcher is the single-threaded driver of the turn loop.
type Dispatcher struct {
	pool     *cell.Pool
	queue    *queue.Queue
	registry *Registry
	budget   Budget
	clock    Clock
	log      Logger

	onOverload func(error)

	turns  uint64
	fails  uint64
	panics uint64

	// dispatchGoroutineID is set for the duration of a single dispatch
	// (one behaviour invocation), so Context methods can assert they are
	// only ever called synchronously from within that invocation: the
	// runtime never spawns goroutines for actor execution, so a
	// behaviour that captured its *Context and called a method on it
	// from a goroutine of its own would violate that guarantee.
	dispatchGoroutineID atomic.Uint64
}

// New constructs a Dispatcher over a pool and queue, applying options.
func New(pool *cell.Pool, q *queue.Queue, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		pool:  pool,
		queue: q,
		clock: func() int64 { return 0 },
		log:   noopLogger{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Registry returns the dispatcher's behaviour registry, for registering
// actor templates before actors are spawned.
func (d *Dispatcher) Registry() *Registry {
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	return d.registry
}

// Pool returns the dispatcher's cell pool.
func (d *Dispatcher) Pool() *cell.Pool { return d.pool }

// Queue returns the dispatcher's event queue.
func (d *Dispatcher) Queue() *queue.Queue { return d.queue }

// Now returns the current value of the dispatcher's virtual clock.
func (d *Dispatcher) Now() int64 { return d.clock() }

// Counters returns (turns run, turns failed, panics observed) since New.
func (d *Dispatcher) Counters() (turns, fails, panics uint64) {
	return d.turns, d.fails, d.panics
}

// assertDispatchThread panics with a PanicError if called from any
// goroutine other than the one currently running a turn: a Context
// retained and invoked later, from a goroutine a behaviour spawned
// itself, is exactly the concurrency violation the single-threaded
// design rules out.
func (d *Dispatcher) assertDispatchThread() {
	id := d.dispatchGoroutineID.Load()
	if id == 0 || getGoroutineID() != id {
		panic(&PanicError{Message: "Context method called outside its dispatching goroutine"})
	}
}

func (d *Dispatcher) charge(sponsor cell.Ref, kind string) error {
	if d.budget == nil {
		return nil
	}
	return d.budget.Charge(sponsor, kind, 1)
}

// NewActor reserves a cell and installs it as an actor with the given
// behaviour and initial state words (at most 7).
func (d *Dispatcher) NewActor(behavior BehaviorID, state ...uint32) (cell.Ref, error) {
	ref, err := d.pool.Reserve()
	if err != nil {
		return cell.Nil, err
	}
	cl := d.pool.Cell(ref)
	cl.SetWord(0, uint32(behavior))
	for i, w := range state {
		if i >= 7 {
			break
		}
		cl.SetWord(i+1, w)
	}
	return ref, nil
}

// Enqueue builds and enqueues an event targeting target, outside of any
// turn (e.g. to seed the initial message before Run starts).
func (d *Dispatcher) Enqueue(target cell.Ref, words ...uint32) (cell.Ref, error) {
	ref, err := d.pool.Reserve()
	if err != nil {
		return cell.Nil, err
	}
	cl := d.pool.Cell(ref)
	cl.SetWord(0, uint32(target))
	for i, w := range words {
		if i >= 7 {
			break
		}
		cl.SetWord(i+1, w)
	}
	if err := d.queue.Enqueue(ref); err != nil {
		d.pool.Release(ref)
		return cell.Nil, err
	}
	return ref, nil
}

// Step dequeues and dispatches exactly one event, running its target's
// behaviour to completion (or failure). It returns false when the queue
// was empty (idle). A Panic aborts the process.
func (d *Dispatcher) Step() (ran bool) {
	ev, ok := d.queue.Dequeue()
	if !ok {
		return false
	}
	d.dispatch(ev)
	return true
}

// Run drives the loop until the queue is idle, dispatching every
// pending event: dequeue, dispatch, repeat, exit once dequeue finds
// nothing left.
func (d *Dispatcher) Run() {
	for d.Step() {
	}
}

func (d *Dispatcher) dispatch(ev cell.Ref) {
	self := cell.Ref(d.pool.Cell(ev).Word(0))

	selfSnapshot := *d.pool.Cell(self)
	poolSnap := d.pool.Snapshot()
	queueSnap := d.queue.Snapshot()
	var budgetSnap any
	if d.budget != nil {
		budgetSnap = d.budget.Snapshot(self)
	}

	d.turns++
	d.log.Debug("turn.start", self, d.turns)

	behaviorID := BehaviorID(selfSnapshot.Word(0))
	behavior := d.Registry().Lookup(behaviorID)

	ctx := &Context{d: d, self: self, event: ev, sponsor: self}

	d.dispatchGoroutineID.Store(getGoroutineID())
	defer d.dispatchGoroutineID.Store(0)
	ok := d.invoke(ctx, behavior, self)

	if !ok {
		d.pool.Restore(poolSnap)
		d.queue.Restore(queueSnap)
		*d.pool.Cell(self) = selfSnapshot
		if d.budget != nil {
			d.budget.Restore(self, budgetSnap)
		}
		d.fails++
		d.log.Warn("turn.fail", self, ctx.result)
		if d.onOverload != nil && ctx.result != nil {
			d.onOverload(ctx.result)
		}
		// The event was allocated before this turn, so the pool rewind
		// leaves it allocated; release it here so a failed turn does not
		// leak its event cell.
		d.pool.Release(ev)
		return
	}

	d.log.Debug("turn.complete", self, d.turns)
	d.pool.Release(ev)
}

func (d *Dispatcher) invoke(ctx *Context, behavior Behavior, self cell.Ref) (ok bool) {
	if behavior == nil {
		ctx.fail(KindWrongActorType, fmt.Errorf("dispatcher: no behaviour registered for self=%d", self))
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			d.panics++
			d.log.Error("turn.panic", self, r)
			panic(&PanicError{Message: fmt.Sprintf("behaviour panicked for self=%d", self), Cause: asError(r)})
		}
	}()
	if err := behavior(ctx, self); err != nil {
		if ctx.result == nil {
			ctx.result = err
		}
		return false
	}
	return ctx.result == nil
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
