package notify

import (
	"context"
	"log"

	"github.com/emberforge/realm-gov/src/gov"
)

// Log writes every event to the process log. Always configured; the
// other sinks are optional.
type Log struct{}

func (Log) Notify(_ context.Context, event gov.Event, communityID uint64, details map[string]any) {
	log.Printf("event %s community=%d details=%v", event, communityID, details)
}

// Multi fans an event out to every configured sink.
type Multi []gov.Notifier

func (m Multi) Notify(ctx context.Context, event gov.Event, communityID uint64, details map[string]any) {
	for _, n := range m {
		n.Notify(ctx, event, communityID, details)
	}
}
