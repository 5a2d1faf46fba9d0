package dispatcher

import "github.com/mycelia-vm/mycelia/cell"

// Behavior is the code invoked when an actor receives a message: it reads
// the event's words, inspects or mutates self's state words via ctx, and
// returns nil on success or a recoverable *Error (see Fail) to abort the
// turn.
//
// This is a tagged actor template: an actor cell's word 0 names a
// Behavior by its registered BehaviorID rather than embedding a machine
// instruction pointer, so the dispatcher's invoke step is a single table
// lookup followed by a call.
type Behavior func(ctx *Context, self cell.Ref) error

// BehaviorID is the discriminant stored in word 0 of an actor cell.
type BehaviorID uint32

// Registry maps BehaviorIDs to their Behavior. One Registry is shared by
// all actors dispatched through a single Dispatcher.
type Registry struct {
	behaviors []Behavior
}

// NewRegistry creates an empty behaviour registry.
func NewRegistry() *Registry {
	return &Registry{behaviors: []Behavior{nil}} // index 0 reserved: "no behaviour"
}

// Register adds a behaviour and returns its stable BehaviorID.
func (r *Registry) Register(b Behavior) BehaviorID {
	id := BehaviorID(len(r.behaviors))
	r.behaviors = append(r.behaviors, b)
	return id
}

// Lookup returns the Behavior for id, or nil if id is unregistered.
func (r *Registry) Lookup(id BehaviorID) Behavior {
	if int(id) <= 0 || int(id) >= len(r.behaviors) {
		return nil
	}
	return r.behaviors[id]
}
