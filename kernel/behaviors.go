package kernel

import (
	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
	"github.com/mycelia-vm/mycelia/proto"
)

// selfEvalBehavior covers every self-evaluating value: #inert, #ignore,
// (), booleans, numbers, and strings all reply with themselves on
// EVAL, and are not combiners.
func (k *Kernel) selfEvalBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	switch proto.Selector(ctx.Word(1)) {
	case proto.Eval:
		cust := cell.Ref(ctx.Word(2))
		ctx.Complete()
		return ctx.Send(cust, uint32(self))
	case proto.Apply:
		return ctx.Fail(dispatcher.KindNotCombiner, nil)
	default:
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
}

// symbolBehavior forwards EVAL as a LOOKUP to the dynamic environment:
// a symbol forwards (cust, LOOKUP, self) to env.
func (k *Kernel) symbolBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	switch proto.Selector(ctx.Word(1)) {
	case proto.Eval:
		cust := cell.Ref(ctx.Word(2))
		denv := cell.Ref(ctx.Word(3))
		ctx.Complete()
		return ctx.Send(denv, uint32(proto.Lookup), uint32(cust), uint32(self))
	case proto.Apply:
		return ctx.Fail(dispatcher.KindNotCombiner, nil)
	default:
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
}

// pairBehavior implements combination: a pair sends (k_comb, EVAL,
// env) to its car; the continuation k_comb, on receiving the combiner
// C, sends (cust, APPLY, cdr, env) to C. State word 1 is car, word 2
// is cdr.
func (k *Kernel) pairBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	switch proto.Selector(ctx.Word(1)) {
	case proto.Eval:
		cust := cell.Ref(ctx.Word(2))
		denv := cell.Ref(ctx.Word(3))
		car := cell.Ref(ctx.State(1))
		cdr := cell.Ref(ctx.State(2))
		kcomb, err := ctx.NewActor(k.pairContBehav, uint32(cdr), uint32(cust), uint32(denv))
		if err != nil {
			return err
		}
		ctx.Complete()
		return ctx.Send(car, uint32(proto.Eval), uint32(kcomb), uint32(denv))
	case proto.Apply:
		return ctx.Fail(dispatcher.KindNotCombiner, nil)
	default:
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
}

// pairContBehavior is the one-shot continuation created by pairBehavior.
// State: word1=cdr (operands), word2=cust, word3=denv. Its single
// incoming message is a reply, not a selector-tagged request: word1
// directly carries the evaluated combiner ref.
func (k *Kernel) pairContBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	comb := cell.Ref(ctx.Word(1))
	operands := cell.Ref(ctx.State(1))
	cust := cell.Ref(ctx.State(2))
	denv := cell.Ref(ctx.State(3))
	ctx.Complete()
	return ctx.Send(comb, uint32(proto.Apply), uint32(cust), uint32(operands), uint32(denv))
}

// primOpBehavior wraps a ground Go-implemented operative. State word 1
// indexes k.primitives.
func (k *Kernel) primOpBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	switch proto.Selector(ctx.Word(1)) {
	case proto.Eval:
		cust := cell.Ref(ctx.Word(2))
		ctx.Complete()
		return ctx.Send(cust, uint32(self))
	case proto.Apply:
		cust := cell.Ref(ctx.Word(2))
		operands := cell.Ref(ctx.Word(3))
		denv := cell.Ref(ctx.Word(4))
		fn := k.primitives[ctx.State(1)]
		return fn(k, ctx, cust, operands, denv)
	default:
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
}

// compoundOpBehavior is a $vau-constructed operative. State: word1 =
// formals, word2 = environment-formal (a symbol bound to the caller's
// dynamic environment, or k.Ignore to discard it), word3 = body (a
// single expression), word4 = captured (static) environment.
func (k *Kernel) compoundOpBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	switch proto.Selector(ctx.Word(1)) {
	case proto.Eval:
		cust := cell.Ref(ctx.Word(2))
		ctx.Complete()
		return ctx.Send(cust, uint32(self))
	case proto.Apply:
		cust := cell.Ref(ctx.Word(2))
		operands := cell.Ref(ctx.Word(3))
		denv := cell.Ref(ctx.Word(4))
		formals := cell.Ref(ctx.State(1))
		eformal := cell.Ref(ctx.State(2))
		body := cell.Ref(ctx.State(3))
		staticEnv := cell.Ref(ctx.State(4))

		callEnv, err := k.Env.NewScope(staticEnv)
		if err != nil {
			return err
		}

		if eformal != k.Ignore {
			// Bind the environment formal first; bindWaitBehavior's ack
			// handler ignores the reply content and simply kicks off the
			// ordinary formals/operands walk with the state it was given,
			// so it doubles as "wait for this one extra bind, then proceed"
			// with no separate behaviour needed.
			kont, err := ctx.NewActor(k.bindWaitBehav,
				uint32(formals), uint32(operands), uint32(callEnv), uint32(body), uint32(cust))
			if err != nil {
				return err
			}
			ctx.Complete()
			return ctx.Send(callEnv, uint32(proto.Bind), uint32(kont), uint32(eformal), uint32(denv))
		}

		ref, err := ctx.NewActor(k.bindKickBehav,
			uint32(formals), uint32(operands), uint32(callEnv), uint32(body), uint32(cust))
		if err != nil {
			return err
		}
		ctx.Complete()
		return ctx.Send(ref, 0)
	default:
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
}

// applicativeBehavior wraps an inner combiner: APPLY evaluates operands
// first (evlis), then applies the wrapped combiner to the results;
// UNWRAP replies with the inner combiner.
func (k *Kernel) applicativeBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	switch proto.Selector(ctx.Word(1)) {
	case proto.Eval:
		cust := cell.Ref(ctx.Word(2))
		ctx.Complete()
		return ctx.Send(cust, uint32(self))
	case proto.Apply:
		cust := cell.Ref(ctx.Word(2))
		operands := cell.Ref(ctx.Word(3))
		denv := cell.Ref(ctx.Word(4))
		underlying := cell.Ref(ctx.State(1))
		evlis, err := ctx.NewActor(k.evlisKickBehav,
			uint32(operands), uint32(denv), uint32(cust), uint32(underlying), uint32(k.Nil))
		if err != nil {
			return err
		}
		ctx.Complete()
		return ctx.Send(evlis, 0)
	case proto.Unwrap:
		cust := cell.Ref(ctx.Word(2))
		ctx.Complete()
		return ctx.Send(cust, ctx.State(1))
	default:
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
}

// evlisKickBehavior/evlisWaitBehavior walk an operand list, evaluating
// each element in denv in turn, and finally APPLY the underlying
// combiner to the evaluated list (the classic evlis loop).
//
// State (kick): word1=remaining operands, word2=denv, word3=cust,
// word4=underlying combiner, word5=accumulator (reversed list so far).
func (k *Kernel) evlisKickBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	remaining := cell.Ref(ctx.State(1))
	denv := cell.Ref(ctx.State(2))
	cust := cell.Ref(ctx.State(3))
	underlying := cell.Ref(ctx.State(4))
	acc := cell.Ref(ctx.State(5))

	if remaining == k.Nil {
		evaled := k.reverseList(acc)
		ctx.Complete()
		return ctx.Send(underlying, uint32(proto.Apply), uint32(cust), uint32(evaled), uint32(denv))
	}
	head := k.Car(remaining)
	tail := k.Cdr(remaining)
	ctx.Become(k.evlisWaitBehav, uint32(tail), uint32(denv), uint32(cust), uint32(underlying), uint32(acc))
	ctx.Complete()
	return ctx.Send(head, uint32(proto.Eval), uint32(self), uint32(denv))
}

// evlisWaitBehavior state matches evlisKickBehavior's; its one message
// is a reply carrying the just-evaluated element in word1.
func (k *Kernel) evlisWaitBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	val := cell.Ref(ctx.Word(1))
	remaining := cell.Ref(ctx.State(1))
	denv := cell.Ref(ctx.State(2))
	cust := cell.Ref(ctx.State(3))
	underlying := cell.Ref(ctx.State(4))
	acc := cell.Ref(ctx.State(5))

	newAcc, err := k.Cons(val, acc)
	if err != nil {
		return err
	}
	ctx.Become(k.evlisKickBehav, uint32(remaining), uint32(denv), uint32(cust), uint32(underlying), uint32(newAcc))
	ctx.Complete()
	return ctx.Send(self, 0)
}

// reverseList reverses a proper list via direct pool reads (pure
// structural work, not a message protocol).
func (k *Kernel) reverseList(list cell.Ref) cell.Ref {
	result := k.Nil
	for list != k.Nil {
		result2, err := k.Cons(k.Car(list), result)
		if err != nil {
			panic(err) // pool exhaustion: Cons allocates outside ctx, so this helper cannot fail the turn
		}
		result = result2
		list = k.Cdr(list)
	}
	return result
}

// bindKickBehavior/bindWaitBehavior bind a compound operative's formals
// against the actual call operands, one pair at a time, then tail-calls
// into the body. Supports formals shaped as (): no parameters; a bare
// symbol: binds the whole operand list; or a list of symbols, bound one
// per operand, whose tail may itself be a symbol (a . rest) that binds
// the remaining operands. Fewer operands than formals fails the turn;
// operands left over once a proper formals list is exhausted are ignored.
//
// State: word1=formals remaining, word2=operands remaining, word3=call
// environment, word4=body, word5=cust.
func (k *Kernel) bindKickBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	formals := cell.Ref(ctx.State(1))
	operands := cell.Ref(ctx.State(2))
	callEnv := cell.Ref(ctx.State(3))
	body := cell.Ref(ctx.State(4))
	cust := cell.Ref(ctx.State(5))

	switch {
	case formals == k.Nil:
		ctx.Complete()
		return ctx.Send(body, uint32(proto.Eval), uint32(cust), uint32(callEnv))
	case k.IsSymbol(formals):
		ctx.Become(k.bindWaitBehav, uint32(k.Nil), uint32(operands), uint32(callEnv), uint32(body), uint32(cust))
		ctx.Complete()
		return ctx.Send(callEnv, uint32(proto.Bind), uint32(self), uint32(formals), uint32(operands))
	case k.IsPair(formals) && k.IsPair(operands):
		sym := k.Car(formals)
		val := k.Car(operands)
		ctx.Become(k.bindWaitBehav,
			uint32(k.Cdr(formals)), uint32(k.Cdr(operands)), uint32(callEnv), uint32(body), uint32(cust))
		ctx.Complete()
		return ctx.Send(callEnv, uint32(proto.Bind), uint32(self), uint32(sym), uint32(val))
	default:
		return ctx.Fail(dispatcher.KindWrongActorType, nil) // arity mismatch
	}
}

// bindWaitBehavior's state matches bindKickBehavior; its message is the
// BIND reply (ignored beyond acknowledging completion).
func (k *Kernel) bindWaitBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	ctx.Become(k.bindKickBehav, ctx.State(1), ctx.State(2), ctx.State(3), ctx.State(4), ctx.State(5))
	ctx.Complete()
	return ctx.Send(self, 0)
}

// defineContBehavior is $define!'s first continuation: it receives the
// evaluated value (word1 of the reply) and issues the BIND against denv.
// State: word1=symbol, word2=denv, word3=cust.
func (k *Kernel) defineContBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	val := cell.Ref(ctx.Word(1))
	sym := cell.Ref(ctx.State(1))
	denv := cell.Ref(ctx.State(2))
	cust := cell.Ref(ctx.State(3))
	ctx.Become(k.defineBindBehav, uint32(cust))
	ctx.Complete()
	return ctx.Send(denv, uint32(proto.Bind), uint32(self), uint32(sym), uint32(val))
}

// defineBindBehavior is $define!'s second continuation: the BIND has
// landed, so reply #inert to the original customer.
func (k *Kernel) defineBindBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	cust := cell.Ref(ctx.State(1))
	ctx.Complete()
	return ctx.Send(cust, uint32(k.Inert))
}

// ifContBehavior receives $if's evaluated test and evaluates whichever
// branch applies, in tail position relative to cust: only #t is truthy,
// matching the ground environment's two-valued boolean type.
//
// State: word1=thenExpr, word2=elseExpr, word3=denv, word4=cust.
func (k *Kernel) ifContBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	test := cell.Ref(ctx.Word(1))
	thenExpr := cell.Ref(ctx.State(1))
	elseExpr := cell.Ref(ctx.State(2))
	denv := cell.Ref(ctx.State(3))
	cust := cell.Ref(ctx.State(4))
	branch := elseExpr
	if test == k.True {
		branch = thenExpr
	}
	ctx.Complete()
	return ctx.Send(branch, uint32(proto.Eval), uint32(cust), uint32(denv))
}
