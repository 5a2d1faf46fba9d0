package kernel

import (
	"errors"
	"math/big"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
	"github.com/mycelia-vm/mycelia/proto"
)

// primitiveOperative registers fn as a ground operative: its operands
// arrive un-evaluated.
func (k *Kernel) primitiveOperative(fn PrimitiveFn) (cell.Ref, error) {
	idx := uint32(len(k.primitives))
	k.primitives = append(k.primitives, fn)
	return k.d.NewActor(k.primOpBehav, idx)
}

// primitiveApplicative registers fn as a ground applicative: operands
// are evaluated by evlis before fn runs.
func (k *Kernel) primitiveApplicative(fn PrimitiveFn) (cell.Ref, error) {
	inner, err := k.primitiveOperative(fn)
	if err != nil {
		return cell.Nil, err
	}
	return k.d.NewActor(k.applicativeBehav, uint32(inner))
}

// bindGround interns name and binds it to value directly in the ground
// environment's single frame, via a direct pool write rather than a
// BIND message: bootstrap runs before the dispatcher's queue holds
// anything, so there is no turn in flight to dispatch a message within.
func (k *Kernel) bindGround(ground cell.Ref, name string, value cell.Ref) error {
	sym, err := k.Symbol(name)
	if err != nil {
		return err
	}
	cl := k.d.Pool().Cell(ground)
	boundKey := cell.Ref(cl.Word(1))
	if boundKey == cell.Nil {
		cl.SetWord(1, uint32(sym))
		cl.SetWord(2, uint32(value))
		return nil
	}
	predecessor, err := k.d.NewActor(dispatcher.BehaviorID(cl.Word(0)), cl.Word(1), cl.Word(2), cl.Word(3))
	if err != nil {
		return err
	}
	cl.SetWord(1, uint32(sym))
	cl.SetWord(2, uint32(value))
	cl.SetWord(3, uint32(predecessor))
	return nil
}

// installGround populates the ground environment with the core
// primitive combiner set: $vau, $define!, $if, eval, wrap, unwrap, plus
// the small pair/predicate/arithmetic library needed to self-host
// $lambda.
func (k *Kernel) installGround(ground cell.Ref) error {
	type binding struct {
		name string
		ref  cell.Ref
	}
	var bindings []binding
	add := func(name string, ref cell.Ref, err error) error {
		if err != nil {
			return err
		}
		bindings = append(bindings, binding{name, ref})
		return nil
	}

	vau, err := k.primitiveOperative(k.primVau)
	if err := add("$vau", vau, err); err != nil {
		return err
	}
	define, err := k.primitiveOperative(k.primDefine)
	if err := add("$define!", define, err); err != nil {
		return err
	}
	ifOp, err := k.primitiveOperative(k.primIf)
	if err := add("$if", ifOp, err); err != nil {
		return err
	}
	evalApp, err := k.primitiveApplicative(k.primEval)
	if err := add("eval", evalApp, err); err != nil {
		return err
	}
	wrapApp, err := k.primitiveApplicative(k.primWrap)
	if err := add("wrap", wrapApp, err); err != nil {
		return err
	}
	unwrapApp, err := k.primitiveApplicative(k.primUnwrap)
	if err := add("unwrap", unwrapApp, err); err != nil {
		return err
	}
	consApp, err := k.primitiveApplicative(k.primCons)
	if err := add("cons", consApp, err); err != nil {
		return err
	}
	carApp, err := k.primitiveApplicative(k.primCar)
	if err := add("car", carApp, err); err != nil {
		return err
	}
	cdrApp, err := k.primitiveApplicative(k.primCdr)
	if err := add("cdr", cdrApp, err); err != nil {
		return err
	}
	pairPApp, err := k.primitiveApplicative(k.primPairP)
	if err := add("pair?", pairPApp, err); err != nil {
		return err
	}
	nullPApp, err := k.primitiveApplicative(k.primNullP)
	if err := add("null?", nullPApp, err); err != nil {
		return err
	}
	eqPApp, err := k.primitiveApplicative(k.primEqP)
	if err := add("eq?", eqPApp, err); err != nil {
		return err
	}
	eqPApp2, err := k.primitiveApplicative(k.primEqP)
	if err := add("=?", eqPApp2, err); err != nil {
		return err
	}
	addApp, err := k.primitiveApplicative(k.primAdd)
	if err := add("+", addApp, err); err != nil {
		return err
	}
	subApp, err := k.primitiveApplicative(k.primSub)
	if err := add("-", subApp, err); err != nil {
		return err
	}

	for _, b := range bindings {
		if err := k.bindGround(ground, b.name, b.ref); err != nil {
			return err
		}
	}

	return k.bootstrapLambda(ground)
}

// bootstrapLambda self-hosts $lambda in terms of $vau/wrap/eval, the
// textbook Kernel expansion:
//
//	($define! $lambda
//	  ($vau (formals . body) env
//	    (wrap (eval (cons $vau (cons formals (cons #ignore body))) env))))
//
// Built directly as Kernel data (Cons/Symbol calls), since the ground
// environment must exist before any source text can be read.
func (k *Kernel) bootstrapLambda(ground cell.Ref) error {
	vauSym, err := k.Symbol("$vau")
	if err != nil {
		return err
	}
	consSym, err := k.Symbol("cons")
	if err != nil {
		return err
	}
	formalsSym, err := k.Symbol("formals")
	if err != nil {
		return err
	}
	bodySym, err := k.Symbol("body")
	if err != nil {
		return err
	}
	envSym, err := k.Symbol("env")
	if err != nil {
		return err
	}
	wrapSym, err := k.Symbol("wrap")
	if err != nil {
		return err
	}
	evalSym, err := k.Symbol("eval")
	if err != nil {
		return err
	}

	// (cons #ignore body)
	consIgnoreBody, err := k.List(consSym, k.Ignore, bodySym)
	if err != nil {
		return err
	}
	// (cons formals (cons #ignore body))
	consFormalsRest, err := k.List(consSym, formalsSym, consIgnoreBody)
	if err != nil {
		return err
	}
	// (cons $vau (cons formals (cons #ignore body)))
	vauExpr, err := k.List(consSym, vauSym, consFormalsRest)
	if err != nil {
		return err
	}
	// (eval vauExpr env)
	evalCall, err := k.List(evalSym, vauExpr, envSym)
	if err != nil {
		return err
	}
	// (wrap evalCall)
	wrapCall, err := k.List(wrapSym, evalCall)
	if err != nil {
		return err
	}
	// (formals . body)
	formalsPattern, err := k.Cons(formalsSym, bodySym)
	if err != nil {
		return err
	}
	// ($vau (formals . body) env wrapCall)
	lambdaDef, err := k.List(vauSym, formalsPattern, envSym, wrapCall)
	if err != nil {
		return err
	}

	lambdaRef, err := k.evalToCompletion(lambdaDef, ground)
	if err != nil {
		return err
	}
	return k.bindGround(ground, "$lambda", lambdaRef)
}

// evalToCompletion runs the dispatcher until a single EVAL of expr in
// env has replied, returning the result. Used by ground-environment
// bootstrap and by Eval. A turn failure that leaves the EVAL without a
// reply is reported as a Go error rather than a Kernel-level condition.
func (k *Kernel) evalToCompletion(expr, env cell.Ref) (cell.Ref, error) {
	var result cell.Ref
	replied := false
	id := k.d.Registry().Register(func(ctx *dispatcher.Context, self cell.Ref) error {
		result = cell.Ref(ctx.Word(1))
		replied = true
		ctx.Complete()
		return nil
	})
	cust, err := k.d.NewActor(id)
	if err != nil {
		return cell.Nil, err
	}
	if _, err := k.d.Enqueue(expr, uint32(proto.Eval), uint32(cust), uint32(env)); err != nil {
		return cell.Nil, err
	}
	k.d.Run()
	if !replied {
		return cell.Nil, errors.New("kernel: evaluation failed before replying")
	}
	return result, nil
}

// --- ground operatives/applicatives ---

// primVau implements ($vau formals eformal . body): captures the static
// environment and constructs a compound operative. Supports a
// single-expression body (see DESIGN.md's Non-goals).
func (k *Kernel) primVau(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	formals := k2.Car(operands)
	rest := k2.Cdr(operands)
	eformal := k2.Car(rest)
	body := k2.Car(k2.Cdr(rest))
	ref, err := ctx.NewActor(k2.compoundOpBehav, uint32(formals), uint32(eformal), uint32(body), uint32(denv))
	if err != nil {
		return err
	}
	ctx.Complete()
	return ctx.Send(cust, uint32(ref))
}

// primDefine implements ($define! symbol expr): evaluates expr in denv,
// binds the result to symbol in denv, replies #inert.
func (k *Kernel) primDefine(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	sym := k2.Car(operands)
	exprRef := k2.Car(k2.Cdr(operands))
	kont, err := ctx.NewActor(k2.defineContBehav, uint32(sym), uint32(denv), uint32(cust))
	if err != nil {
		return err
	}
	ctx.Complete()
	return ctx.Send(exprRef, uint32(proto.Eval), uint32(kont), uint32(denv))
}

// primIf implements ($if test then else): evaluates test, then tail-
// evaluates whichever branch applies.
func (k *Kernel) primIf(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	test := k2.Car(operands)
	rest := k2.Cdr(operands)
	thenExpr := k2.Car(rest)
	elseExpr := k2.Car(k2.Cdr(rest))
	kont, err := ctx.NewActor(k2.ifContBehav, uint32(thenExpr), uint32(elseExpr), uint32(denv), uint32(cust))
	if err != nil {
		return err
	}
	ctx.Complete()
	return ctx.Send(test, uint32(proto.Eval), uint32(kont), uint32(denv))
}

// primEval implements the applicative (eval expr env).
func (k *Kernel) primEval(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	expr := k2.Car(operands)
	targetEnv := k2.Car(k2.Cdr(operands))
	ctx.Complete()
	return ctx.Send(expr, uint32(proto.Eval), uint32(cust), uint32(targetEnv))
}

// primWrap implements (wrap combiner): builds a fresh applicative over
// an already-evaluated combiner operand.
func (k *Kernel) primWrap(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	inner := k2.Car(operands)
	ref, err := ctx.NewActor(k2.applicativeBehav, uint32(inner))
	if err != nil {
		return err
	}
	ctx.Complete()
	return ctx.Send(cust, uint32(ref))
}

// primUnwrap implements (unwrap applicative) by delegating to the
// UNWRAP selector.
func (k *Kernel) primUnwrap(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	app := k2.Car(operands)
	ctx.Complete()
	return ctx.Send(app, uint32(proto.Unwrap), uint32(cust))
}

func (k *Kernel) primCons(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	a := k2.Car(operands)
	b := k2.Car(k2.Cdr(operands))
	ref, err := k2.Cons(a, b)
	if err != nil {
		return err
	}
	ctx.Complete()
	return ctx.Send(cust, uint32(ref))
}

func (k *Kernel) primCar(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	p := k2.Car(operands)
	if !k2.IsPair(p) {
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
	ctx.Complete()
	return ctx.Send(cust, uint32(k2.Car(p)))
}

func (k *Kernel) primCdr(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	p := k2.Car(operands)
	if !k2.IsPair(p) {
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
	ctx.Complete()
	return ctx.Send(cust, uint32(k2.Cdr(p)))
}

func (k *Kernel) primPairP(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	ctx.Complete()
	return ctx.Send(cust, uint32(k2.boolRef(k2.IsPair(k2.Car(operands)))))
}

func (k *Kernel) primNullP(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	ctx.Complete()
	return ctx.Send(cust, uint32(k2.boolRef(k2.Car(operands) == k2.Nil)))
}

// primEqP implements (eq? a b): reference equality, with numeric value
// equality as the one exception (so (eq? (+ 1 1) 2) holds even though
// the two numbers were built as distinct actors).
func (k *Kernel) primEqP(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	a := k2.Car(operands)
	b := k2.Car(k2.Cdr(operands))
	eq := a == b
	if !eq && k2.IsNumber(a) && k2.IsNumber(b) {
		eq = k2.NumberValue(a).Cmp(k2.NumberValue(b)) == 0
	}
	ctx.Complete()
	return ctx.Send(cust, uint32(k2.boolRef(eq)))
}

func (k *Kernel) primAdd(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	sum := new(big.Int)
	for _, ref := range k2.Slice(operands) {
		sum.Add(sum, k2.NumberValue(ref))
	}
	ref, err := k2.Number(sum)
	if err != nil {
		return err
	}
	ctx.Complete()
	return ctx.Send(cust, uint32(ref))
}

func (k *Kernel) primSub(k2 *Kernel, ctx *dispatcher.Context, cust, operands, denv cell.Ref) error {
	args := k2.Slice(operands)
	if len(args) == 0 {
		return ctx.Fail(dispatcher.KindWrongActorType, nil)
	}
	result := new(big.Int).Set(k2.NumberValue(args[0]))
	if len(args) == 1 {
		result.Neg(result)
	}
	for _, ref := range args[1:] {
		result.Sub(result, k2.NumberValue(ref))
	}
	ref, err := k2.Number(result)
	if err != nil {
		return err
	}
	ctx.Complete()
	return ctx.Send(cust, uint32(ref))
}

func (k *Kernel) boolRef(b bool) cell.Ref {
	if b {
		return k.True
	}
	return k.False
}
