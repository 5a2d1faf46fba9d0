// Package kernel implements the fexpr-style Kernel evaluator layered on
// the dispatcher/env runtime: symbols, pairs, operatives, applicatives,
// and the ground environment's $vau/$define!/eval core.
//
// Every Kernel value is a dispatcher actor (a cell.Ref with a registered
// Behavior); values evaluate by being sent (cust, EVAL, env). Compound
// data that doesn't fit in an actor's seven state words (a symbol's
// name, a number's magnitude, a string's content) lives in small side
// tables owned by the Kernel, the same "arena indexed by u32, richer
// payload kept alongside" idea the cell pool applies to the block pool
// itself.
package kernel

import (
	"math/big"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
	"github.com/mycelia-vm/mycelia/env"
	"github.com/mycelia-vm/mycelia/proto"
)

// PrimitiveFn implements a ground operative's APPLY. operands is the
// un-evaluated argument pair list; denv is the dynamic environment the
// call is running in; cust is who to reply to. Implementations must
// reply to cust exactly once (directly, or by forwarding a tail send)
// and then return nil, or return a turn-failure error.
type PrimitiveFn func(k *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error

// Kernel owns the registered behaviours and side tables backing every
// Kernel value, plus the process-singleton cells shared across the
// whole runtime (#inert, #ignore, (), #t, #f).
type Kernel struct {
	d     *dispatcher.Dispatcher
	Env   *env.Chain
	Ground cell.Ref // the ground environment actor, parent of every top-level scope

	selfEvalBehav    dispatcher.BehaviorID // process singletons: #inert #ignore () #t #f
	numberBehav      dispatcher.BehaviorID
	stringBehav      dispatcher.BehaviorID
	symbolBehav      dispatcher.BehaviorID
	pairBehav        dispatcher.BehaviorID
	pairContBehav    dispatcher.BehaviorID
	primOpBehav      dispatcher.BehaviorID
	compoundOpBehav  dispatcher.BehaviorID
	applicativeBehav dispatcher.BehaviorID
	evlisKickBehav   dispatcher.BehaviorID
	evlisWaitBehav   dispatcher.BehaviorID
	bindKickBehav    dispatcher.BehaviorID
	bindWaitBehav    dispatcher.BehaviorID
	defineContBehav  dispatcher.BehaviorID
	defineBindBehav  dispatcher.BehaviorID
	ifContBehav      dispatcher.BehaviorID

	symbols     []string
	symbolIndex map[string]cell.Ref
	numbers     []*big.Int
	strings     []string
	primitives  []PrimitiveFn

	Inert  cell.Ref
	Ignore cell.Ref
	Nil    cell.Ref
	True   cell.Ref
	False  cell.Ref
}

// New registers every Kernel behaviour on d, builds the process
// singletons, and populates the ground environment with the core
// primitive combiners plus a self-hosted $lambda (see primitives.go).
func New(d *dispatcher.Dispatcher) (*Kernel, error) {
	ec, err := env.New(d)
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		d:           d,
		Env:         ec,
		symbolIndex: make(map[string]cell.Ref),
	}
	k.selfEvalBehav = d.Registry().Register(k.selfEvalBehavior)
	// numberBehav and stringBehav run the identical self-evaluating
	// behaviour as selfEvalBehav, but under distinct BehaviorIDs, so
	// IsNumber/IsString (kind tests used by eq? and friends) can tell a
	// number or string actor apart from a process singleton by word 0
	// alone, with no extra state word spent on a type tag.
	k.numberBehav = d.Registry().Register(k.selfEvalBehavior)
	k.stringBehav = d.Registry().Register(k.selfEvalBehavior)
	k.symbolBehav = d.Registry().Register(k.symbolBehavior)
	k.pairBehav = d.Registry().Register(k.pairBehavior)
	k.pairContBehav = d.Registry().Register(k.pairContBehavior)
	k.primOpBehav = d.Registry().Register(k.primOpBehavior)
	k.compoundOpBehav = d.Registry().Register(k.compoundOpBehavior)
	k.applicativeBehav = d.Registry().Register(k.applicativeBehavior)
	k.evlisKickBehav = d.Registry().Register(k.evlisKickBehavior)
	k.evlisWaitBehav = d.Registry().Register(k.evlisWaitBehavior)
	k.bindKickBehav = d.Registry().Register(k.bindKickBehavior)
	k.bindWaitBehav = d.Registry().Register(k.bindWaitBehavior)
	k.defineContBehav = d.Registry().Register(k.defineContBehavior)
	k.defineBindBehav = d.Registry().Register(k.defineBindBehavior)
	k.ifContBehav = d.Registry().Register(k.ifContBehavior)

	for _, ref := range []*cell.Ref{&k.Inert, &k.Ignore, &k.Nil, &k.True, &k.False} {
		a, err := d.NewActor(k.selfEvalBehav)
		if err != nil {
			return nil, err
		}
		*ref = a
	}

	ground, err := ec.NewScope(ec.Fail)
	if err != nil {
		return nil, err
	}
	k.Ground = ground
	if err := k.installGround(ground); err != nil {
		return nil, err
	}
	return k, nil
}

// Dispatcher returns the underlying dispatcher, for driving Run/Step.
func (k *Kernel) Dispatcher() *dispatcher.Dispatcher { return k.d }
