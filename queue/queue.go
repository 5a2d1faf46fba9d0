// Package queue implements the dispatcher's FIFO of pending message
// events: a fixed-capacity ring buffer of cell.Ref, with a
// checkpoint/restore pair mirroring cell.Pool's snapshot mechanism so the
// dispatcher can undo a failed turn's enqueues in one assignment.
package queue

import (
	"errors"

	"github.com/mycelia-vm/mycelia/cell"
)

// ErrOverflow is returned by Enqueue when the ring is full.
var ErrOverflow = errors.New("queue: overflow")

// MinCapacity is the minimum ring capacity the dispatcher requires.
const MinCapacity = 1024

// Queue is a FIFO ring buffer of event cell.Ref values.
type Queue struct {
	slots []cell.Ref
	head  int // next to dequeue
	tail  int // next to enqueue (same convention as head)
	count int
}

// New creates a queue with at least MinCapacity slots.
func New(capacity int) *Queue {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	return &Queue{slots: make([]cell.Ref, capacity)}
}

// Capacity returns the ring's fixed capacity.
func (q *Queue) Capacity() int { return len(q.slots) }

// Len returns the number of events currently queued.
func (q *Queue) Len() int { return q.count }

// Enqueue appends an event reference. Fails with ErrOverflow rather than
// growing the ring.
func (q *Queue) Enqueue(ref cell.Ref) error {
	if q.count == len(q.slots) {
		return ErrOverflow
	}
	q.slots[q.tail] = ref
	q.tail = (q.tail + 1) % len(q.slots)
	q.count++
	return nil
}

// Dequeue removes and returns the oldest queued event. ok is false when
// the queue is empty.
func (q *Queue) Dequeue() (ref cell.Ref, ok bool) {
	if q.count == 0 {
		return cell.Nil, false
	}
	ref = q.slots[q.head]
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	return ref, true
}

// Checkpoint is a snapshot of the queue's tail position, taken at the
// start of every turn.
type Checkpoint struct {
	tail  int
	count int
}

// Snapshot captures the queue's current tail and length.
func (q *Queue) Snapshot() Checkpoint {
	return Checkpoint{tail: q.tail, count: q.count}
}

// Restore rewinds the queue to a prior Checkpoint, discarding any events
// enqueued since. It must only be called when no
// Dequeue has occurred since the checkpoint (the dispatcher only restores
// within the turn that produced the checkpoint, before anything else is
// dequeued).
func (q *Queue) Restore(c Checkpoint) {
	q.tail = c.tail
	q.count = c.count
}
