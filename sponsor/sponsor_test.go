package sponsor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
	"github.com/mycelia-vm/mycelia/sponsor"
)

func TestNewRejectsInvalidRates(t *testing.T) {
	tests := []struct {
		name  string
		rates sponsor.Rates
	}{
		{"empty", sponsor.Rates{}},
		{"zero_limit", sponsor.Rates{1000: 0}},
		{"negative_window", sponsor.Rates{-1: 5}},
		{"non_monotonic", sponsor.Rates{1000: 10, 2000: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sponsor.New(func() int64 { return 0 }, tt.rates)
			require.Error(t, err)
		})
	}
}

func TestChargeAllowsUpToLimitThenFails(t *testing.T) {
	var now int64
	b, err := sponsor.New(func() int64 { return now }, sponsor.Rates{1000: 2})
	require.NoError(t, err)

	s := cell.Ref(1)
	require.NoError(t, b.Charge(s, "reserve", 1))
	require.NoError(t, b.Charge(s, "reserve", 1))

	err = b.Charge(s, "reserve", 1)
	require.Error(t, err)
	var derr *dispatcher.Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, dispatcher.KindOutOfMemory, derr.Kind)
}

func TestChargeRecoversOnceWindowSlidesPast(t *testing.T) {
	var now int64
	b, err := sponsor.New(func() int64 { return now }, sponsor.Rates{1000: 1})
	require.NoError(t, err)

	s := cell.Ref(7)
	require.NoError(t, b.Charge(s, "enqueue", 1))
	require.Error(t, b.Charge(s, "enqueue", 1))

	now += 1001
	require.NoError(t, b.Charge(s, "enqueue", 1), "the window has fully slid past the first charge")
}

func TestChargeIsIndependentPerSponsorAndKind(t *testing.T) {
	var now int64
	b, err := sponsor.New(func() int64 { return now }, sponsor.Rates{1000: 1})
	require.NoError(t, err)

	a, z := cell.Ref(1), cell.Ref(2)
	require.NoError(t, b.Charge(a, "reserve", 1))
	require.NoError(t, b.Charge(z, "reserve", 1), "a different sponsor has its own budget")
	require.NoError(t, b.Charge(a, "enqueue", 1), "a different kind has its own budget")
	require.Error(t, b.Charge(a, "reserve", 1))
}

func TestSnapshotRestoreUndoesChargesSinceSnapshot(t *testing.T) {
	var now int64
	b, err := sponsor.New(func() int64 { return now }, sponsor.Rates{1000: 1})
	require.NoError(t, err)

	s := cell.Ref(9)
	snap := b.Snapshot(s) // taken before any charge: sponsor has never been seen

	require.NoError(t, b.Charge(s, "reserve", 1))
	require.Error(t, b.Charge(s, "reserve", 1), "limit is 1 per window")

	b.Restore(s, snap)

	require.NoError(t, b.Charge(s, "reserve", 1), "the restored budget must allow a fresh charge")
}

func TestSnapshotRestorePreservesPriorCharges(t *testing.T) {
	var now int64
	b, err := sponsor.New(func() int64 { return now }, sponsor.Rates{1000: 2})
	require.NoError(t, err)

	s := cell.Ref(4)
	require.NoError(t, b.Charge(s, "reserve", 1))

	snap := b.Snapshot(s) // one charge already recorded

	require.NoError(t, b.Charge(s, "reserve", 1))
	require.Error(t, b.Charge(s, "reserve", 1), "limit of 2 already reached")

	b.Restore(s, snap)

	require.NoError(t, b.Charge(s, "reserve", 1), "only the charge made after the snapshot should be undone")
	require.Error(t, b.Charge(s, "reserve", 1), "the charge made before the snapshot must still count")
}

func TestEnqueueExhaustionReportsQueueOverflowKind(t *testing.T) {
	b, err := sponsor.New(func() int64 { return 0 }, sponsor.Rates{1000: 1})
	require.NoError(t, err)

	s := cell.Ref(3)
	require.NoError(t, b.Charge(s, "enqueue", 1))
	err = b.Charge(s, "enqueue", 1)
	require.Error(t, err)
	var derr *dispatcher.Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, dispatcher.KindQueueOverflow, derr.Kind)
}
