package gov

import "context"

// Event names published on governance activity.
type Event string

const (
	EventProposed        Event = "proposed"
	EventPassed          Event = "passed"
	EventRejected        Event = "rejected"
	EventExpired         Event = "expired"
	EventExecutionFailed Event = "execution_failed"
)

// Notifier is a fire-and-forget sink; implementations must never let a
// delivery failure affect resolution state.
type Notifier interface {
	Notify(ctx context.Context, event Event, communityID uint64, details map[string]any)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event, uint64, map[string]any) {}
