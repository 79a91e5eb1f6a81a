package gov

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emberforge/realm-gov/src/types"
	"github.com/google/uuid"
)

// MaxActiveAlliances caps concurrently active alliances per community,
// checked at activation time.
const MaxActiveAlliances = 5

// AllianceCoordinator implements the mirrored-proposal handshake: passing
// a form_alliance proposal in one community either matches an existing
// reciprocal proposal on the other side and activates the alliance, or
// plants a mirrored proposal there under that community's own rules.
type AllianceCoordinator struct {
	store  Store
	notify Notifier
	now    func() time.Time
}

func NewAllianceCoordinator(store Store, notify Notifier, now func() time.Time) *AllianceCoordinator {
	return &AllianceCoordinator{store: store, notify: notify, now: now}
}

// OnProposalPassed is invoked by the law executor once a form_alliance
// proposal is marked passed.
func (c *AllianceCoordinator) OnProposalPassed(ctx context.Context, p *types.Proposal, targetID uint64) error {
	if _, err := c.store.Community(ctx, targetID); err != nil {
		return fmt.Errorf("%w: community %d", ErrTargetNotFound, targetID)
	}

	existing, err := c.store.AllianceBetween(ctx, p.CommunityID, targetID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status == types.AllianceActive {
		return fmt.Errorf("communities %d and %d are already allied", p.CommunityID, targetID)
	}

	reciprocal, err := c.store.ReciprocalProposal(ctx, targetID, p.CommunityID)
	if err != nil {
		return err
	}
	if reciprocal == nil {
		return c.openHandshake(ctx, p, targetID, existing)
	}
	return c.completeHandshake(ctx, p, reciprocal, existing)
}

// openHandshake plants the mirrored proposal inside the target community
// and records the alliance as awaiting the target's approval.
func (c *AllianceCoordinator) openHandshake(ctx context.Context, p *types.Proposal, targetID uint64, existing *types.Alliance) error {
	target, err := c.store.Community(ctx, targetID)
	if err != nil {
		return fmt.Errorf("%w: community %d", ErrTargetNotFound, targetID)
	}
	rules, err := RulesFor(types.LawFormAlliance, target.GovernanceType)
	if err != nil {
		return err
	}

	now := c.now()
	mirror := &types.Proposal{
		ID:          uuid.NewString(),
		CommunityID: targetID,
		LawType:     types.LawFormAlliance,
		ProposerID:  p.ProposerID,
		Status:      types.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(rules.TimeToPass),
	}
	if err := mirror.SetMeta(map[string]any{
		"targetCommunityId": float64(p.CommunityID),
		"mirrorOf":          p.ID,
	}); err != nil {
		return err
	}
	if err := c.store.CreateProposal(ctx, mirror); err != nil {
		return err
	}

	if existing == nil {
		err := c.store.CreateAlliance(ctx, &types.Alliance{
			ID:                  uuid.NewString(),
			InitiatorID:         p.CommunityID,
			TargetID:            targetID,
			Status:              types.AlliancePendingTarget,
			InitiatorProposalID: p.ID,
			TargetProposalID:    mirror.ID,
			CreatedAt:           now,
		})
		// A concurrent resolver may have inserted the pair row after our
		// lookup; the unique pair index makes that visible here.
		if err != nil && !errors.Is(err, ErrAllianceExists) {
			return err
		}
	}

	c.notify.Notify(ctx, EventProposed, targetID, map[string]any{
		"proposalId": mirror.ID,
		"lawType":    string(types.LawFormAlliance),
		"mirrorOf":   p.ID,
	})
	return nil
}

// completeHandshake runs when both sides hold an approving proposal: the
// reciprocal is marked passed, caps are enforced, and the alliance goes
// active.
func (c *AllianceCoordinator) completeHandshake(ctx context.Context, p, reciprocal *types.Proposal, existing *types.Alliance) error {
	now := c.now()

	// Caps are enforced at the moment of activation, counting active
	// alliances only.
	for _, id := range []uint64{p.CommunityID, reciprocal.CommunityID} {
		n, err := c.store.CountActiveAlliances(ctx, id)
		if err != nil {
			return err
		}
		if n >= MaxActiveAlliances {
			return fmt.Errorf("%w: community %d already holds %d active alliances", ErrAllianceLimitExceeded, id, n)
		}
	}

	if reciprocal.Status == types.StatusPending {
		// Resolved directly, not through the lifecycle machine: the
		// coordinator activates the alliance itself, so the reciprocal
		// must not re-enter the executor.
		won, err := c.store.MarkResolved(ctx, reciprocal.ID, types.StatusPassed, "reciprocal alliance approval", now)
		if err != nil {
			return err
		}
		if won {
			c.notify.Notify(ctx, EventPassed, reciprocal.CommunityID, map[string]any{
				"proposalId": reciprocal.ID,
				"lawType":    string(types.LawFormAlliance),
				"reason":     "reciprocal alliance approval",
			})
		}
	}

	if existing == nil {
		err := c.store.CreateAlliance(ctx, &types.Alliance{
			ID:                  uuid.NewString(),
			InitiatorID:         p.CommunityID,
			TargetID:            reciprocal.CommunityID,
			Status:              types.AllianceActive,
			InitiatorProposalID: p.ID,
			TargetProposalID:    reciprocal.ID,
			CreatedAt:           now,
			ActivatedAt:         &now,
		})
		if !errors.Is(err, ErrAllianceExists) {
			return err
		}
		// Lost the insert race: another resolver created the pair row
		// inside our lookup window. Activate that row instead.
		existing, err = c.store.AllianceBetween(ctx, p.CommunityID, reciprocal.CommunityID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrAllianceExists
		}
	}

	// The target-side link must carry the proposal that belongs to the
	// row's target community, whichever side passed last.
	targetProposalID := reciprocal.ID
	if p.CommunityID == existing.TargetID {
		targetProposalID = p.ID
	}
	if _, err := c.store.ActivateAlliance(ctx, existing.ID, targetProposalID, now); err != nil {
		return err
	}
	return nil
}
