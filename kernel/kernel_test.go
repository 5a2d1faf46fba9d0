package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
	"github.com/mycelia-vm/mycelia/kernel"
	"github.com/mycelia-vm/mycelia/proto"
	"github.com/mycelia-vm/mycelia/queue"
)

// newTestKernel builds a fresh dispatcher and Kernel with poolCap cells,
// capturing any recoverable turn failure via gotErr.
func newTestKernel(t *testing.T, poolCap int) (*kernel.Kernel, *error) {
	t.Helper()
	var gotErr error
	d := dispatcher.New(cell.New(poolCap), queue.New(queue.MinCapacity),
		dispatcher.WithOverloadHandler(func(err error) { gotErr = err }),
	)
	k, err := kernel.New(d)
	require.NoError(t, err)
	return k, &gotErr
}

// evalSource reads a single Kernel expression from src and evaluates it
// in env, returning the reply.
func evalSource(t *testing.T, k *kernel.Kernel, env cell.Ref, src string) cell.Ref {
	t.Helper()
	expr, err := kernel.NewReader(k, src).Read()
	require.NoError(t, err)

	d := k.Dispatcher()
	var result cell.Ref
	id := d.Registry().Register(func(ctx *dispatcher.Context, self cell.Ref) error {
		result = cell.Ref(ctx.Word(1))
		ctx.Complete()
		return nil
	})
	cust, err := d.NewActor(id)
	require.NoError(t, err)
	_, err = d.Enqueue(expr, uint32(proto.Eval), uint32(cust), uint32(env))
	require.NoError(t, err)
	d.Run()
	return result
}

func TestGroundArithmeticAndPairs(t *testing.T) {
	k, gotErr := newTestKernel(t, 4096)

	sum := evalSource(t, k, k.Ground, "(+ 1 2 3)")
	require.EqualValues(t, 6, k.NumberValue(sum).Int64())

	diff := evalSource(t, k, k.Ground, "(- 10 1 2)")
	require.EqualValues(t, 7, k.NumberValue(diff).Int64())

	car := evalSource(t, k, k.Ground, "(car (cons 1 2))")
	require.EqualValues(t, 1, k.NumberValue(car).Int64())

	cdr := evalSource(t, k, k.Ground, "(cdr (cons 1 2))")
	require.EqualValues(t, 2, k.NumberValue(cdr).Int64())

	require.NoError(t, *gotErr)
}

// TestUnboundedTailRecursion checks that a self-recursive $lambda
// counting down to zero from 500 completes without failing, because
// bindKickBehavior's terminal case sends the body straight to the
// original customer rather than nesting a new continuation: recursion
// here is the dispatcher's Run loop processing queued events, not Go
// call frames.
func TestUnboundedTailRecursion(t *testing.T) {
	k, gotErr := newTestKernel(t, 2_000_000)

	evalSource(t, k, k.Ground, `($define! f ($lambda (x) ($if (=? x 0) 0 (f (- x 1)))))`)
	require.NoError(t, *gotErr)

	result := evalSource(t, k, k.Ground, "(f 500)")
	require.NoError(t, *gotErr)
	require.EqualValues(t, 0, k.NumberValue(result).Int64())
}

// TestDefineBindsInCallersEnvAndChildShadowsWithoutMutating checks that
// $define! binds into the environment it is evaluated in, and that a
// child scope's shadowing define leaves the parent's binding for the
// same symbol untouched.
func TestDefineBindsInCallersEnvAndChildShadowsWithoutMutating(t *testing.T) {
	k, gotErr := newTestKernel(t, 4096)

	evalSource(t, k, k.Ground, "($define! x 1)")
	require.NoError(t, *gotErr)

	child, err := k.Env.NewScope(k.Ground)
	require.NoError(t, err)

	evalSource(t, k, child, "($define! x 2)")
	require.NoError(t, *gotErr)

	childVal := evalSource(t, k, child, "x")
	require.EqualValues(t, 2, k.NumberValue(childVal).Int64())

	groundVal := evalSource(t, k, k.Ground, "x")
	require.EqualValues(t, 1, k.NumberValue(groundVal).Int64(),
		"defining x in a child scope must not mutate the ground binding")
}

func TestIfSelectsBranchWithoutEvaluatingTheOther(t *testing.T) {
	k, gotErr := newTestKernel(t, 4096)

	result := evalSource(t, k, k.Ground, "($if #t 1 2)")
	require.EqualValues(t, 1, k.NumberValue(result).Int64())

	result = evalSource(t, k, k.Ground, "($if #f 1 2)")
	require.EqualValues(t, 2, k.NumberValue(result).Int64())

	require.NoError(t, *gotErr)
}

func TestQuotedSelfEvaluatingLiterals(t *testing.T) {
	k, _ := newTestKernel(t, 4096)

	require.Equal(t, k.Inert, evalSource(t, k, k.Ground, "#inert"))
	require.Equal(t, k.True, evalSource(t, k, k.Ground, "#t"))
	require.Equal(t, k.False, evalSource(t, k, k.Ground, "#f"))
}
