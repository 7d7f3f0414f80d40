package command

import "github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"

// Decision represents the pure outcome of handling a command.
//
// Suppressed lists guard trips that were absorbed silently; they never block
// the events of the same decision.
type Decision struct {
	Events     []event.Event
	Rejections []Rejection
	Suppressed []Rejection
}

// Rejection captures a domain-level reason a command was declined.
type Rejection struct {
	Code     string
	Message  string
	Metadata map[string]string
}

// Accept returns a decision that emits the provided events.
func Accept(events ...event.Event) Decision {
	return Decision{Events: append([]event.Event(nil), events...)}
}

// Reject returns a decision that carries the provided rejections.
func Reject(rejections ...Rejection) Decision {
	return Decision{Rejections: append([]Rejection(nil), rejections...)}
}

// Rejected reports whether the decision declined the command.
func (d Decision) Rejected() bool {
	return len(d.Rejections) > 0
}
