package dispatcher

// Option configures a Dispatcher at construction, following the
// eventloop package's functional-options constructor style
// (eventloop.WithStrictMicrotaskOrdering et al.).
type Option func(*Dispatcher)

// WithRegistry installs a pre-built behaviour Registry, e.g. one shared
// across several dispatchers in tests.
func WithRegistry(r *Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// WithBudget installs a per-sponsor accounting Budget.
func WithBudget(b Budget) Option {
	return func(d *Dispatcher) { d.budget = b }
}

// WithClock installs the monotonic microsecond clock that is the
// core's only timing collaborator. Defaults to a clock stuck at 0,
// suitable for pure message-passing tests that never consult Now().
func WithClock(c Clock) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithLogger installs a structured Logger (see logging.go). Defaults to a
// no-op logger.
func WithLogger(l Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithOverloadHandler installs a callback invoked whenever a turn fails,
// receiving the recoverable error. Mirrors eventloop.Loop.OnOverload.
func WithOverloadHandler(f func(error)) Option {
	return func(d *Dispatcher) { d.onOverload = f }
}
