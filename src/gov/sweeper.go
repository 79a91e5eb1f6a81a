package gov

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/emberforge/realm-gov/src/types"
)

// SweepResult summarizes one sweep batch.
type SweepResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// SweepExpired resolves every pending proposal whose window elapsed
// before now. Each proposal is handled independently; a failure is logged
// and counted without aborting the batch. The caller owns the schedule;
// the engine holds no timers.
func (e *Engine) SweepExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	expired, err := e.store.ExpiredPending(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for i := range expired {
		p := expired[i]
		if err := e.sweepOne(ctx, &p, now); err != nil {
			log.Printf("sweep: proposal %s: %v", p.ID, err)
			res.Failed++
			continue
		}
		res.Processed++
	}
	return res, nil
}

func (e *Engine) sweepOne(ctx context.Context, p *types.Proposal, now time.Time) error {
	community, err := e.store.Community(ctx, p.CommunityID)
	if err != nil {
		return fmt.Errorf("load community %d: %w", p.CommunityID, err)
	}
	rules, err := RulesFor(p.LawType, community.GovernanceType)
	if err != nil {
		return err
	}
	tally, err := e.currentTally(ctx, p, rules)
	if err != nil {
		return err
	}
	out := EvaluateFinal(rules.Condition, tally)
	return e.resolve(ctx, p, out, now)
}
