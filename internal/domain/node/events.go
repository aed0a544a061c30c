package node

import "time"

// EventKind names a component lifecycle transition.
type EventKind string

const (
	EventSpawned    EventKind = "spawned"
	EventRegistered EventKind = "registered"
	EventKilled     EventKind = "killed"
	EventCrashed    EventKind = "crashed"
	EventStopped    EventKind = "stopped"
)

// Event is delivered to Options.Observer on the node goroutine. Observers
// must not block.
type Event struct {
	Kind   EventKind `json:"kind"`
	Node   string    `json:"node"`
	Label  string    `json:"label"`
	Type   string    `json:"type"`
	Reason string    `json:"reason,omitempty"`
	Time   time.Time `json:"time"`
}
