package dispatcher

// Metrics is a point-in-time snapshot of the dispatcher's turn
// counters, exported for console/watchdog reporting and tests.
type Metrics struct {
	Turns  uint64
	Fails  uint64
	Panics uint64
	// QueueLen and FreeCells are sampled at snapshot time, not accumulated.
	QueueLen  int
	FreeCells int
}

// Snapshot reports the dispatcher's current counters and live occupancy.
func (d *Dispatcher) Snapshot() Metrics {
	return Metrics{
		Turns:     d.turns,
		Fails:     d.fails,
		Panics:    d.panics,
		QueueLen:  d.queue.Len(),
		FreeCells: d.pool.FreeCount(),
	}
}
