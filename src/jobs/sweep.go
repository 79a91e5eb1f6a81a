package jobs

import (
	"context"
	"log"
	"time"

	"github.com/emberforge/realm-gov/src/gov"
)

// Sweep drives the expiry sweeper on a fixed schedule. The engine holds
// no timers of its own.
type Sweep struct {
	engine   *gov.Engine
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSweep(engine *gov.Engine, interval time.Duration) *Sweep {
	return &Sweep{engine: engine, interval: interval}
}

func (s *Sweep) Name() string { return "sweep" }

func (s *Sweep) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	return nil
}

func (s *Sweep) Stop(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		select {
		case <-s.done:
		case <-ctx.Done():
		}
	}
}

func (s *Sweep) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping proposal sweep")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweep) sweep(ctx context.Context) {
	res, err := s.engine.SweepExpired(ctx, time.Now())
	if err != nil {
		log.Printf("sweep: %v", err)
		return
	}
	if res.Processed > 0 || res.Failed > 0 {
		log.Printf("sweep: resolved %d proposals (%d failed)", res.Processed, res.Failed)
	}
}
