// Package progress carries per-step progress events from long-running batch
// work to whoever is displaying it.
package progress

import (
	"strconv"
	"time"
)

// Status indicates the state of one step.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Event reports the outcome of one step of a batch. Current is 1-based.
type Event struct {
	Message   string
	Status    Status
	Current   int
	Total     int
	Timestamp time.Time
	Metadata  map[string]string // optional: line, library_id, etc.
}

// Percent is the share of the batch finished at this event, 0-100.
func (e Event) Percent() int {
	if e.Total <= 0 {
		return 0
	}
	return e.Current * 100 / e.Total
}

// Label renders "[current/total] message".
func (e Event) Label() string {
	if e.Total <= 0 {
		return e.Message
	}
	return "[" + strconv.Itoa(e.Current) + "/" + strconv.Itoa(e.Total) + "] " + e.Message
}

// Emitter receives progress events. Implementations must not block.
type Emitter interface {
	Emit(Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(Event) {}

// ChanEmitter emits events to a channel.
type ChanEmitter struct {
	Ch chan<- Event
}

// Emit sends the event to the channel (non-blocking; drops if full).
func (e *ChanEmitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case e.Ch <- ev:
	default:
		// Channel full; the batch must not stall on a slow reader.
	}
}

// Func adapts a function to Emitter.
type Func func(Event)

func (f Func) Emit(ev Event) {
	if f != nil {
		f(ev)
	}
}
