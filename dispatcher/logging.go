package dispatcher

import "github.com/mycelia-vm/mycelia/cell"

// Logger is the minimal structured-logging seam the dispatcher depends on.
// It intentionally hides the generic logiface.Logger[E] behind a handful of
// turn-shaped methods, the same way eventloop keeps its own narrow Logger
// interface rather than threading the generic type through the loop.
//
// Production callers wire a *github.com/mycelia-vm/mycelia/mlog.Logger
// (backed by logiface and stumpy) via WithLogger; tests default to
// noopLogger.
type Logger interface {
	Debug(msg string, self cell.Ref, turn uint64)
	Warn(msg string, self cell.Ref, err error)
	Error(msg string, self cell.Ref, recovered any)
}

// noopLogger discards every call, and is the Dispatcher's zero-value
// default so logging is always optional.
type noopLogger struct{}

func (noopLogger) Debug(string, cell.Ref, uint64)  {}
func (noopLogger) Warn(string, cell.Ref, error)    {}
func (noopLogger) Error(string, cell.Ref, any)     {}
