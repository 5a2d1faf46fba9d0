package dispatcher

import "github.com/mycelia-vm/mycelia/cell"

// Context is the per-turn value passed to a Behavior: the global mutable
// registers, modelled as fields of a Dispatcher value, passed by
// exclusive reference into every behaviour invocation. The behaviour
// receives (disp, self, event) and owns neither beyond the turn. A
// Context must not be retained past the Behavior call that received it.
type Context struct {
	d       *Dispatcher
	self    cell.Ref
	event   cell.Ref
	sponsor cell.Ref

	done   bool
	result error
}

// Self returns the actor currently dispatching.
func (c *Context) Self() cell.Ref { return c.self }

// Event returns the event cell currently being dispatched (word 0 is the
// target, i.e. Self; words 1..7 are the message payload).
func (c *Context) Event() cell.Ref { return c.event }

// Sponsor returns the accounting root carried across this turn, opaque
// to behaviours.
func (c *Context) Sponsor() cell.Ref { return c.sponsor }

// Word reads message word i (1..7) of the event being dispatched.
func (c *Context) Word(i int) uint32 {
	return c.d.pool.Cell(c.event).Word(i)
}

// State reads state word i (1..7) of self.
func (c *Context) State(i int) uint32 {
	return c.d.pool.Cell(c.self).Word(i)
}

// SetState writes state word i (1..7) of self, without changing self's
// behaviour (word 0). Effective immediately, since only one turn ever
// runs at a time: a restore after failure reverts it.
func (c *Context) SetState(i int, v uint32) {
	c.d.assertDispatchThread()
	c.d.pool.Cell(c.self).SetWord(i, v)
}

// Reserve allocates a zero-filled cell, charged against sponsor's budget
// if one is configured. Aborts the turn on failure.
func (c *Context) Reserve() (cell.Ref, error) {
	c.d.assertDispatchThread()
	if err := c.d.charge(c.sponsor, chargeReserve); err != nil {
		return cell.Nil, c.fail(KindOutOfMemory, err)
	}
	ref, err := c.d.pool.Reserve()
	if err != nil {
		return cell.Nil, c.fail(KindOutOfMemory, err)
	}
	return ref, nil
}

// NewActor reserves a cell and installs it as an actor with the given
// behaviour and initial state words, charged against sponsor like any
// other Reserve. Used by behaviours that spawn helper actors mid-turn
// (continuations, environment frames), mirroring Dispatcher.NewActor for
// the pre-turn, seed-the-world case.
func (c *Context) NewActor(behavior BehaviorID, state ...uint32) (cell.Ref, error) {
	ref, err := c.Reserve()
	if err != nil {
		return cell.Nil, err
	}
	cl := c.d.pool.Cell(ref)
	cl.SetWord(0, uint32(behavior))
	for i, w := range state {
		if i >= 7 {
			break
		}
		cl.SetWord(i+1, w)
	}
	return ref, nil
}

// Release hands a cell back to the pool. Never fails.
func (c *Context) Release(ref cell.Ref) {
	c.d.assertDispatchThread()
	c.d.pool.Release(ref)
}

// Enqueue appends an already-built event cell to the queue. Fails the
// turn on ring overflow.
func (c *Context) Enqueue(ref cell.Ref) error {
	c.d.assertDispatchThread()
	if err := c.d.charge(c.sponsor, chargeEnqueue); err != nil {
		return c.fail(KindQueueOverflow, err)
	}
	if err := c.d.queue.Enqueue(ref); err != nil {
		return c.fail(KindQueueOverflow, err)
	}
	return nil
}

// Send reserves a fresh event targeting target with up to seven message
// words, and enqueues it: the Go rendition of the conventional send_N
// family of convenience wrappers.
func (c *Context) Send(target cell.Ref, words ...uint32) error {
	if len(words) > 7 {
		return c.fail(KindWrongActorType, errTooManyWords)
	}
	ev, err := c.Reserve()
	if err != nil {
		return err
	}
	cl := c.d.pool.Cell(ev)
	cl.SetWord(0, uint32(target))
	for i, w := range words {
		cl.SetWord(i+1, w)
	}
	return c.Enqueue(ev)
}

// Become overwrites self's entry point and state words. Visible to any
// event dispatched to self after the current turn completes; never
// visible within the current turn.
func (c *Context) Become(behavior BehaviorID, state ...uint32) {
	c.d.assertDispatchThread()
	if len(state) > 7 {
		state = state[:7]
	}
	cl := c.d.pool.Cell(c.self)
	cl.SetWord(0, uint32(behavior))
	for i, w := range state {
		cl.SetWord(i+1, w)
	}
}

// Complete terminates the current turn successfully.
func (c *Context) Complete() { c.done = true }

// Fail terminates the current turn with failure kind. Behaviours should
// return the result of Fail directly.
func (c *Context) Fail(kind Kind, cause error) error {
	return c.fail(kind, cause)
}

func (c *Context) fail(kind Kind, cause error) error {
	err := Fail(kind, c.self, cause)
	c.done = true
	c.result = err
	return err
}

var errTooManyWords = errNew("dispatcher: event carries at most 7 message words")

type simpleError string

func (e simpleError) Error() string { return string(e) }

func errNew(s string) error { return simpleError(s) }
