// Package mlog wires the dispatcher's narrow Logger seam to a real
// structured logger, built on github.com/joeycumines/logiface and its
// github.com/joeycumines/stumpy backend (stumpy.L.New(stumpy.L.WithStumpy(
// stumpy.WithWriter(...)), logiface.WithLevel(...))).
package mlog

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/mycelia-vm/mycelia/cell"
)

// Logger adapts a logiface/stumpy logger to the dispatcher.Logger
// interface.
type Logger struct {
	l *logiface.Logger[*stumpy.Event]
}

// New builds a Logger writing newline-delimited JSON to w, at minimum
// severity level. A nil w defaults to os.Stderr.
func New(w io.Writer, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		l: stumpy.L.New(
			stumpy.L.WithStumpy(stumpy.WithWriter(w)),
			logiface.WithLevel[*stumpy.Event](level),
		),
	}
}

// Debug logs a turn-start/turn-complete style event (dispatcher.Logger).
func (m *Logger) Debug(msg string, self cell.Ref, turn uint64) {
	m.l.Debug().Uint64(`self`, uint64(self)).Uint64(`turn`, turn).Log(msg)
}

// Warn logs a recoverable turn failure (dispatcher.Logger).
func (m *Logger) Warn(msg string, self cell.Ref, err error) {
	b := m.l.Warning().Uint64(`self`, uint64(self))
	if err != nil {
		b = b.Err(err)
	}
	b.Log(msg)
}

// Error logs a fatal panic recovered at the dispatch boundary
// (dispatcher.Logger).
func (m *Logger) Error(msg string, self cell.Ref, recovered any) {
	b := m.l.Err().Uint64(`self`, uint64(self))
	if err, ok := recovered.(error); ok {
		b = b.Err(err)
	} else {
		b = b.Interface(`recover`, recovered)
	}
	b.Log(msg)
}

// Infof logs a free-form informational message, for use outside the
// turn loop. No package in this module calls it.
func (m *Logger) Infof(msg string) {
	m.l.Info().Log(msg)
}
