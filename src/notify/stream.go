package notify

import (
	"context"
	"log"

	"github.com/emberforge/realm-gov/src/data"
	"github.com/emberforge/realm-gov/src/gov"
	"github.com/redis/go-redis/v9"
)

// Stream publishes governance events to the shared Redis stream for
// downstream consumers (bots, indexers).
type Stream struct{ rdb *redis.Client }

func NewStream(rdb *redis.Client) *Stream { return &Stream{rdb: rdb} }

func (s *Stream) Notify(ctx context.Context, event gov.Event, communityID uint64, details map[string]any) {
	payload := map[string]interface{}{
		"event":     string(event),
		"community": communityID,
	}
	for k, v := range details {
		payload[k] = v
	}
	if err := data.PublishEvent(ctx, s.rdb, payload); err != nil {
		log.Printf("notify: redis stream: %v", err)
	}
}
