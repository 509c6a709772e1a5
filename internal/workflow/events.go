package workflow

import "time"

// EventType identifies a lifecycle signal emitted during a run.
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventNodeStarted  EventType = "node_started"
	EventNodeFinished EventType = "node_finished"
	EventVerdict      EventType = "verdict"
	EventRunFinished  EventType = "run_finished"
)

// Event carries the state of a run at the moment something happened. Node is
// the versioned label of the step ("generator_v2", "validator_v1"); Status
// and Feedback are populated on verdict and run_finished events.
type Event struct {
	Type      EventType
	Timestamp time.Time
	TaskID    string
	Node      string
	Iteration int
	Status    Status
	Feedback  string
	Duration  time.Duration
}

// Listener receives run events. Implementations must not block: they are
// invoked synchronously from the run goroutine.
type Listener interface {
	OnWorkflowEvent(Event)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(Event)

// OnWorkflowEvent implements Listener.
func (f ListenerFunc) OnWorkflowEvent(e Event) { f(e) }

// AddListener registers a listener for all subsequent runs.
func (e *Engine) AddListener(l Listener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// emit delivers an event to every registered listener. Listeners run outside
// the lock, and a panicking listener must not abort the run.
func (e *Engine) emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	e.mu.RLock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() { _ = recover() }()
			l.OnWorkflowEvent(event)
		}()
	}
}
