package cycle

import (
	"github.com/google/uuid"
	"github.com/vocadrill/drill-core/core/events"
)

// Listener observes the cycle's event stream. Events are one-shot; the
// orchestrator keeps no history.
type Listener func(event events.Event)

// ListenerHandle identifies one registered listener.
type ListenerHandle string

func (o *Orchestrator) AddListener(listener Listener) ListenerHandle {
	handle := ListenerHandle(uuid.NewString())

	o.mu.Lock()
	o.listeners[handle] = listener
	o.mu.Unlock()

	return handle
}

func (o *Orchestrator) RemoveListener(handle ListenerHandle) {
	o.mu.Lock()
	delete(o.listeners, handle)
	o.mu.Unlock()
}

func (o *Orchestrator) emit(event events.Event) {
	o.mu.Lock()
	listeners := make([]Listener, 0, len(o.listeners))
	for _, listener := range o.listeners {
		listeners = append(listeners, listener)
	}
	o.mu.Unlock()

	for _, listener := range listeners {
		notifyListener(listener, event)
	}
}

// notifyListener isolates observer faults: a panicking listener is logged
// and the remaining listeners still run.
func notifyListener(listener Listener, event events.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Warn("cycle listener panicked", "event_kind", string(event.Kind()), "panic", recovered)
		}
	}()

	listener(event)
}
