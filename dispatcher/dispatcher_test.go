package dispatcher_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
	"github.com/mycelia-vm/mycelia/queue"
	"github.com/mycelia-vm/mycelia/sponsor"
)

func newDispatcher(t *testing.T, capacity int) *dispatcher.Dispatcher {
	t.Helper()
	pool := cell.New(capacity)
	q := queue.New(queue.MinCapacity)
	return dispatcher.New(pool, q)
}

// echoBehavior copies the event's word 1 into self's state word 1, then
// completes. Used to assert that Become/SetState effects of a successful
// turn persist, and that they are rolled back on failure.
func echoBehavior(ctx *dispatcher.Context, self cell.Ref) error {
	ctx.SetState(1, ctx.Word(1))
	ctx.Complete()
	return nil
}

func TestStepDispatchesSingleEvent(t *testing.T) {
	d := newDispatcher(t, 1024)
	reg := d.Registry()
	id := reg.Register(echoBehavior)

	actor, err := d.NewActor(id)
	require.NoError(t, err)

	_, err = d.Enqueue(actor, 42)
	require.NoError(t, err)

	require.True(t, d.Step())
	require.False(t, d.Step()) // idle

	turns, fails, panics := d.Counters()
	require.EqualValues(t, 1, turns)
	require.Zero(t, fails)
	require.Zero(t, panics)
}

func TestRunDrainsQueue(t *testing.T) {
	d := newDispatcher(t, 1024)
	reg := d.Registry()
	id := reg.Register(func(ctx *dispatcher.Context, self cell.Ref) error {
		ctx.Complete()
		return nil
	})

	actor, err := d.NewActor(id)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := d.Enqueue(actor, uint32(i))
		require.NoError(t, err)
	}

	d.Run()

	turns, fails, _ := d.Counters()
	require.EqualValues(t, 5, turns)
	require.Zero(t, fails)
}

var errBoom = errors.New("boom")

func TestFailedTurnRestoresSnapshot(t *testing.T) {
	d := newDispatcher(t, 1024)
	reg := d.Registry()

	var attempts int
	id := reg.Register(func(ctx *dispatcher.Context, self cell.Ref) error {
		attempts++
		ctx.SetState(1, 99) // mutation that must be rolled back
		if _, err := ctx.Reserve(); err != nil {
			return err
		}
		return ctx.Fail(dispatcher.KindDecodeError, errBoom)
	})

	actor, err := d.NewActor(id, 7)
	require.NoError(t, err)

	freeBefore := d.Pool().FreeCount()

	var gotErr error
	d2 := dispatcher.New(d.Pool(), d.Queue(),
		dispatcher.WithRegistry(reg),
		dispatcher.WithOverloadHandler(func(err error) { gotErr = err }),
	)
	_, err = d2.Enqueue(actor, 1)
	require.NoError(t, err)

	d2.Run()

	require.Error(t, gotErr)
	require.True(t, errors.Is(gotErr, dispatcher.KindDecodeError))

	turns, fails, _ := d2.Counters()
	require.EqualValues(t, 1, turns)
	require.EqualValues(t, 1, fails)

	// The failed turn's Reserve call must have been rolled back along with
	// the SetState mutation (full-cell restore), matching the
	// transactional-turn guarantee, and the failed turn's event cell is
	// released rather than leaked.
	require.Equal(t, freeBefore, d2.Pool().FreeCount())
	require.EqualValues(t, 7, d2.Pool().Cell(actor).Word(1))
}

// TestFailedTurnRestoresSponsorBudget confirms that a turn which charges
// its sponsor's budget (via Reserve) and then fails later in the same
// turn does not leave that charge in place: the rate limit seen by a
// later turn must be exactly as if the failed turn never ran.
func TestFailedTurnRestoresSponsorBudget(t *testing.T) {
	pool := cell.New(1024)
	q := queue.New(queue.MinCapacity)
	var now int64
	budget, err := sponsor.New(func() int64 { return now }, sponsor.Rates{1000: 1})
	require.NoError(t, err)

	var lastErr error
	d := dispatcher.New(pool, q,
		dispatcher.WithBudget(budget),
		dispatcher.WithOverloadHandler(func(err error) { lastErr = err }),
	)
	reg := d.Registry()
	id := reg.Register(func(ctx *dispatcher.Context, self cell.Ref) error {
		if _, err := ctx.Reserve(); err != nil { // charges the budget
			return err
		}
		return ctx.Fail(dispatcher.KindDecodeError, errBoom) // turn fails after the charge
	})

	actor, err := d.NewActor(id)
	require.NoError(t, err)
	_, err = d.Enqueue(actor, 0)
	require.NoError(t, err)

	d.Run()
	require.True(t, errors.Is(lastErr, dispatcher.KindDecodeError))
	turns, fails, _ := d.Counters()
	require.EqualValues(t, 1, turns)
	require.EqualValues(t, 1, fails)

	// A second, identical turn reuses the same sponsor (self == sponsor).
	// If the first turn's charge had survived its own rollback, this
	// Reserve would itself fail the rate limit (limit is 1 per window),
	// and the turn would never reach ctx.Fail(KindDecodeError) at all.
	_, err = d.Enqueue(actor, 0)
	require.NoError(t, err)

	d.Run()
	require.True(t, errors.Is(lastErr, dispatcher.KindDecodeError),
		"the rolled-back first charge must not count against the second turn's Reserve")
}

func TestUnregisteredBehaviorFailsWithWrongActorType(t *testing.T) {
	d := newDispatcher(t, 1024)
	actor, err := d.NewActor(0) // behaviour 0 is the reserved "no behaviour" sentinel
	require.NoError(t, err)

	var gotErr error
	d = dispatcher.New(d.Pool(), d.Queue(), dispatcher.WithOverloadHandler(func(err error) { gotErr = err }))
	_, err = d.Enqueue(actor, 0)
	require.NoError(t, err)

	d.Run()

	require.True(t, errors.Is(gotErr, dispatcher.KindWrongActorType))
}

func TestBecomeTakesEffectOnlyAfterTurn(t *testing.T) {
	d := newDispatcher(t, 1024)
	reg := d.Registry()

	var observedBehaviorDuringTurn uint32

	second := reg.Register(func(ctx *dispatcher.Context, self cell.Ref) error {
		ctx.Complete()
		return nil
	})
	first := reg.Register(func(ctx *dispatcher.Context, self cell.Ref) error {
		observedBehaviorDuringTurn = ctx.State(0) // word 0 unchanged within this turn
		ctx.Become(second)
		ctx.Complete()
		return nil
	})

	actor, err := d.NewActor(first)
	require.NoError(t, err)
	_, err = d.Enqueue(actor, 0)
	require.NoError(t, err)

	d.Run()

	require.EqualValues(t, first, observedBehaviorDuringTurn)
	require.EqualValues(t, second, d.Pool().Cell(actor).Word(0))
}

func TestPanicIsFatalNotRecoveredAsTurnFailure(t *testing.T) {
	d := newDispatcher(t, 1024)
	reg := d.Registry()
	id := reg.Register(func(ctx *dispatcher.Context, self cell.Ref) error {
		panic("unexpected invariant violation")
	})

	actor, err := d.NewActor(id)
	require.NoError(t, err)
	_, err = d.Enqueue(actor, 0)
	require.NoError(t, err)

	require.Panics(t, func() { d.Run() })
}

func TestContextMethodCalledFromAnotherGoroutinePanics(t *testing.T) {
	d := newDispatcher(t, 1024)
	reg := d.Registry()

	captured := make(chan *dispatcher.Context, 1)
	id := reg.Register(func(ctx *dispatcher.Context, self cell.Ref) error {
		captured <- ctx
		ctx.Complete()
		return nil
	})

	actor, err := d.NewActor(id)
	require.NoError(t, err)
	_, err = d.Enqueue(actor, 0)
	require.NoError(t, err)

	d.Run()
	ctx := <-captured

	done := make(chan any, 1)
	go func() {
		defer func() { done <- recover() }()
		ctx.SetState(1, 1)
	}()
	r := <-done
	require.NotNil(t, r, "Context retained past its turn must panic when used from another goroutine")
}
