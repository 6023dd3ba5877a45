package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	Phase() Phase
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	phase     Phase
	timestamp time.Time
}

// NewBase stamps an event with its kind and the phase active at emission
// time.
func NewBase(kind Kind, phase Phase) Base {
	return Base{kind: kind, phase: phase, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Phase() Phase {
	return b.phase
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
