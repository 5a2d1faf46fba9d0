// Package env implements the Kernel environment chain: a linked chain
// of binding actors, each holding (symbol, value, next), searched by
// LOOKUP and extended by BIND.
package env

import (
	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
	"github.com/mycelia-vm/mycelia/proto"
)

// Chain registers the environment behaviours on a dispatcher and
// constructs the shared terminal "fail" binding every top-level
// environment eventually forwards to.
type Chain struct {
	d            *dispatcher.Dispatcher
	bindingBehav dispatcher.BehaviorID
	failBehav    dispatcher.BehaviorID
	// Fail is the terminal binding actor: looking up any symbol against
	// it fails the turn with dispatcher.KindUnboundSymbol.
	Fail cell.Ref
}

// New registers Chain's behaviours on d and builds the terminal Fail
// actor. One Chain (and its Fail actor) is normally shared by every
// environment constructed over the lifetime of a dispatcher.
func New(d *dispatcher.Dispatcher) (*Chain, error) {
	c := &Chain{d: d}
	c.bindingBehav = d.Registry().Register(c.bindingBehavior)
	c.failBehav = d.Registry().Register(c.failBehavior)
	fail, err := d.NewActor(c.failBehav)
	if err != nil {
		return nil, err
	}
	c.Fail = fail
	return c, nil
}

// NewScope allocates a fresh, as-yet-empty environment frame whose
// lookups fall through to parent. A word-1 value of cell.Nil marks "no
// binding here yet"; the first Bind on a scope replaces that sentinel
// (see bindingBehavior), exactly as it replaces any other binding.
func (c *Chain) NewScope(parent cell.Ref) (cell.Ref, error) {
	return c.d.NewActor(c.bindingBehav, uint32(cell.Nil), uint32(cell.Nil), uint32(parent))
}

// bindingBehavior implements one link of the chain: word1 = bound key
// (cell.Nil if this frame is still empty), word2 = bound value, word3 =
// next environment actor.
func (c *Chain) bindingBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	sel := proto.Selector(ctx.Word(1))
	switch sel {
	case proto.Lookup:
		cust := cell.Ref(ctx.Word(2))
		key := cell.Ref(ctx.Word(3))
		boundKey := cell.Ref(ctx.State(1))
		if boundKey != cell.Nil && boundKey == key {
			ctx.Complete()
			return ctx.Send(cust, uint32(ctx.State(2)))
		}
		next := cell.Ref(ctx.State(3))
		ctx.Complete()
		return ctx.Send(next, uint32(proto.Lookup), uint32(cust), uint32(key))

	case proto.Bind:
		cust := cell.Ref(ctx.Word(2))
		key := cell.Ref(ctx.Word(3))
		value := cell.Ref(ctx.Word(4))
		// Preserve self's current content as a new predecessor link, then
		// become the binding for (key, value) in front of it. self's
		// identity (cell.Ref) never changes, so every holder of this
		// environment ref observes the new binding as soon as the BIND
		// turn completes and replies inert to cust.
		predecessor, err := ctx.NewActor(c.bindingBehav, ctx.State(1), ctx.State(2), ctx.State(3))
		if err != nil {
			return err
		}
		ctx.Become(c.bindingBehav, uint32(key), uint32(value), uint32(predecessor))
		ctx.Complete()
		return ctx.Send(cust, 0) // inert marker; caller treats any reply as success

	default:
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
}

func (c *Chain) failBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	sel := proto.Selector(ctx.Word(1))
	switch sel {
	case proto.Lookup:
		return ctx.Fail(dispatcher.KindUnboundSymbol, nil)
	default:
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
}
