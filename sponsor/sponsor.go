// Package sponsor implements the per-sponsor accounting budget that
// sits atop the dispatcher's fixed pool/queue capacities. It follows
// github.com/joeycumines/catrate's sliding-window rate limiter design:
// the same per-category windows, the same monotonic rate validation (a
// shorter window's count must be strictly smaller than a longer
// window's), and the
// same "prune expired, then check" shape, adapted from catrate's
// wall-clock goroutine-safe implementation to the dispatcher's
// single-threaded virtual microsecond clock, since a sponsor never has
// two turns in flight to race over.
package sponsor

import (
	"fmt"
	"sort"

	"github.com/mycelia-vm/mycelia/cell"
	"github.com/mycelia-vm/mycelia/dispatcher"
)

// Rates maps a sliding-window size, in microseconds, to the maximum
// number of charges a sponsor may accrue within that window (catrate's
// map[time.Duration]int, expressed in the dispatcher's tick unit).
type Rates map[int64]int

// window tracks one sponsor's charge timestamps for one kind, pruned to
// the largest configured rate on every Charge (catrate's ringBuffer
// role, played here by a plain slice since a single goroutine never
// contends over it).
type window struct {
	events []int64
}

// Budget enforces Rates independently per (sponsor, kind) pair, where
// kind is "reserve" or "enqueue" (dispatcher's chargeReserve/
// chargeEnqueue), charged before the pool or queue is actually touched.
type Budget struct {
	clock     func() int64
	rates     Rates
	retention int64
	windows   map[cell.Ref]map[string]*window
}

// New validates rates (same monotonic-window rule as catrate.parseRates)
// and returns a Budget driven by clock.
func New(clock func() int64, rates Rates) (*Budget, error) {
	retention, err := validateRates(rates)
	if err != nil {
		return nil, err
	}
	return &Budget{
		clock:     clock,
		rates:     rates,
		retention: retention,
		windows:   make(map[cell.Ref]map[string]*window),
	}, nil
}

// validateRates mirrors catrate.parseRates: every window must be
// positive, and a shorter window's allowance must be strictly smaller
// than any longer window's (a burst limit tighter than its own ceiling
// is not a rate limit).
func validateRates(rates Rates) (int64, error) {
	if len(rates) == 0 {
		return 0, fmt.Errorf("sponsor: no rates configured")
	}
	windows := make([]int64, 0, len(rates))
	for us := range rates {
		windows = append(windows, us)
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i] < windows[j] })
	for i, us := range windows {
		limit := rates[us]
		if us <= 0 || limit <= 0 {
			return 0, fmt.Errorf("sponsor: non-positive rate for window %dus", us)
		}
		if i < len(windows)-1 && limit >= rates[windows[i+1]] {
			return 0, fmt.Errorf("sponsor: rate for window %dus is not tighter than window %dus", us, windows[i+1])
		}
	}
	return windows[len(windows)-1], nil
}

// Charge implements dispatcher.Budget: it records n events for
// (sponsor, kind) and fails if any configured window would be exceeded.
func (b *Budget) Charge(sponsor cell.Ref, kind string, n int) error {
	now := b.clock()
	perKind, ok := b.windows[sponsor]
	if !ok {
		perKind = make(map[string]*window)
		b.windows[sponsor] = perKind
	}
	w, ok := perKind[kind]
	if !ok {
		w = &window{}
		perKind[kind] = w
	}

	boundary := now - b.retention
	w.events = pruneBefore(w.events, boundary)

	for us, limit := range b.rates {
		windowBoundary := now - us
		count := countAfter(w.events, windowBoundary) + n
		if count > limit {
			return dispatcher.Fail(kindForCharge(kind), sponsor,
				fmt.Errorf("sponsor: %s rate exceeded: %d/%d within %dus", kind, count, limit, us))
		}
	}

	for i := 0; i < n; i++ {
		w.events = append(w.events, now)
	}
	return nil
}

// sponsorSnapshot captures one sponsor's per-kind event timestamps,
// mirroring cell.Pool's own Snapshot/Restore pair: cheap to take (one
// map, one slice copy per kind) and sufficient to undo exactly the
// charges made since it was taken.
type sponsorSnapshot map[string][]int64

// Snapshot implements dispatcher.Budget: it captures sponsor's current
// per-kind windows so a later Restore can undo any charges made in
// between, the same way a failed turn undoes its pool reservations.
func (b *Budget) Snapshot(sponsor cell.Ref) any {
	perKind, ok := b.windows[sponsor]
	if !ok {
		return sponsorSnapshot{}
	}
	snap := make(sponsorSnapshot, len(perKind))
	for kind, w := range perKind {
		events := make([]int64, len(w.events))
		copy(events, w.events)
		snap[kind] = events
	}
	return snap
}

// Restore implements dispatcher.Budget: it reverts sponsor's windows to
// a snapshot taken earlier, discarding any charges recorded since.
func (b *Budget) Restore(sponsor cell.Ref, snap any) {
	s, ok := snap.(sponsorSnapshot)
	if !ok {
		return
	}
	if len(s) == 0 {
		delete(b.windows, sponsor)
		return
	}
	perKind := make(map[string]*window, len(s))
	for kind, events := range s {
		perKind[kind] = &window{events: events}
	}
	b.windows[sponsor] = perKind
}

func kindForCharge(kind string) dispatcher.Kind {
	if kind == "enqueue" {
		return dispatcher.KindQueueOverflow
	}
	return dispatcher.KindOutOfMemory
}

func pruneBefore(events []int64, boundary int64) []int64 {
	i := 0
	for i < len(events) && events[i] < boundary {
		i++
	}
	return events[i:]
}

func countAfter(events []int64, boundary int64) int {
	n := 0
	for _, e := range events {
		if e >= boundary {
			n++
		}
	}
	return n
}
