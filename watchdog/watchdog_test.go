package watchdog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
	"github.com/mycelia-vm/mycelia/queue"
	"github.com/mycelia-vm/mycelia/watchdog"
)

func newTestDispatcher(t *testing.T, capacity int) *dispatcher.Dispatcher {
	t.Helper()
	pool := cell.New(capacity)
	q := queue.New(queue.MinCapacity)
	return dispatcher.New(pool, q)
}

// captureBehavior records the selector of every message it receives
// into a slice supplied via closure, so tests can assert on delivery.
func captureBehavior(got *[]uint32) dispatcher.Behavior {
	return func(ctx *dispatcher.Context, self cell.Ref) error {
		*got = append(*got, ctx.Word(1))
		ctx.Complete()
		return nil
	}
}

func TestPollDeliversTimeoutOnceDeadlineElapses(t *testing.T) {
	d := newTestDispatcher(t, 1024)
	reg := watchdog.New(d)

	var got []uint32
	cust, err := d.NewActor(d.Registry().Register(captureBehavior(&got)))
	require.NoError(t, err)

	timer, err := reg.NewTimer()
	require.NoError(t, err)

	lo, hi := watchdog.DeadlineWords(1000)
	_, err = d.Enqueue(timer, uint32(watchdog.Arm), uint32(cust), lo, hi)
	require.NoError(t, err)
	d.Run()

	require.NoError(t, reg.Poll(999))
	d.Run()
	require.Empty(t, got, "deadline has not elapsed yet")

	require.NoError(t, reg.Poll(1000))
	d.Run()
	require.Equal(t, []uint32{uint32(watchdog.Timeout)}, got)

	require.NoError(t, reg.Poll(5000))
	d.Run()
	require.Len(t, got, 1, "a disarmed watchdog must not fire again")
}

func TestPollHandlesMultipleIndependentTimers(t *testing.T) {
	d := newTestDispatcher(t, 1024)
	reg := watchdog.New(d)

	var gotA, gotB []uint32
	custA, err := d.NewActor(d.Registry().Register(captureBehavior(&gotA)))
	require.NoError(t, err)
	custB, err := d.NewActor(d.Registry().Register(captureBehavior(&gotB)))
	require.NoError(t, err)

	timerA, err := reg.NewTimer()
	require.NoError(t, err)
	timerB, err := reg.NewTimer()
	require.NoError(t, err)

	loA, hiA := watchdog.DeadlineWords(100)
	loB, hiB := watchdog.DeadlineWords(200)
	_, err = d.Enqueue(timerA, uint32(watchdog.Arm), uint32(custA), loA, hiA)
	require.NoError(t, err)
	_, err = d.Enqueue(timerB, uint32(watchdog.Arm), uint32(custB), loB, hiB)
	require.NoError(t, err)
	d.Run()

	require.NoError(t, reg.Poll(150))
	d.Run()
	require.Equal(t, []uint32{uint32(watchdog.Timeout)}, gotA)
	require.Empty(t, gotB)

	require.NoError(t, reg.Poll(200))
	d.Run()
	require.Equal(t, []uint32{uint32(watchdog.Timeout)}, gotB)
}
