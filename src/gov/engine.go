package gov

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/emberforge/realm-gov/src/types"
	"github.com/google/uuid"
)

// Engine owns the proposal lifecycle: creation, voting, fast-tracking and
// resolution. Expiry resolution lives in sweeper.go and reuses the same
// evaluator and executor.
type Engine struct {
	store    Store
	exec     *Executor
	alliance *AllianceCoordinator
	notify   Notifier
	now      func() time.Time
}

func NewEngine(store Store, realms Realms, notify Notifier) *Engine {
	if notify == nil {
		notify = NopNotifier{}
	}
	e := &Engine{store: store, notify: notify, now: time.Now}
	e.alliance = NewAllianceCoordinator(store, notify, e.clock)
	e.exec = NewExecutor(store, realms, e.alliance)
	return e
}

func (e *Engine) clock() time.Time { return e.now() }

// ProposalView pairs a proposal with its current tallies.
type ProposalView struct {
	Proposal types.Proposal `json:"proposal"`
	Yes      int            `json:"yes"`
	No       int            `json:"no"`
}

// Propose creates a proposal for the community under its governance
// rules. Laws with a zero vote window resolve passed synchronously.
func (e *Engine) Propose(ctx context.Context, communityID uint64, law types.LawType, meta map[string]any, requesterID uint64) (*types.Proposal, error) {
	community, err := e.store.Community(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("%w: community %d", ErrTargetNotFound, communityID)
	}
	rank, err := e.store.RankOf(ctx, communityID, requesterID)
	if err != nil {
		return nil, err
	}

	rules, err := RulesFor(law, community.GovernanceType)
	if err != nil {
		return nil, err
	}
	if !rules.AllowsRank(rank) {
		return nil, fmt.Errorf("%w: rank %d may not propose %s", ErrPermissionDenied, rank, law)
	}
	if sovereignProposeOnly[law] && rank != 0 {
		return nil, fmt.Errorf("%w: only the sovereign may propose %s", ErrPermissionDenied, law)
	}

	if err := e.validateCreateMeta(ctx, community, law, rules, meta); err != nil {
		return nil, err
	}

	now := e.now()
	if hasCooldown(law) {
		last, err := e.store.LastProposalAt(ctx, communityID, law)
		if err != nil {
			return nil, err
		}
		if !last.IsZero() && now.Sub(last) < proposalCooldown {
			return nil, fmt.Errorf("%w: %s may be proposed once per %s", ErrDuplicateProposal, law, proposalCooldown)
		}
	}

	var targetID uint64
	if coexistByTarget[law] {
		targetID, _ = metaCommunityID(meta)
	}
	exists, err := e.store.HasPendingProposal(ctx, communityID, law, targetID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: a pending %s proposal already exists", ErrDuplicateProposal, law)
	}

	p := &types.Proposal{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		LawType:     law,
		ProposerID:  requesterID,
		Status:      types.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(rules.TimeToPass),
	}
	if err := p.SetMeta(meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if err := e.store.CreateProposal(ctx, p); err != nil {
		return nil, err
	}
	e.notify.Notify(ctx, EventProposed, communityID, map[string]any{
		"proposalId": p.ID,
		"lawType":    string(law),
		"proposerId": requesterID,
	})

	if rules.TimeToPass == 0 {
		out := Outcome{Status: types.StatusPassed, Reason: "instant passage law"}
		if err := e.resolve(ctx, p, out, now); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// CastVote records one member's yes/no on a pending proposal and re-runs
// the evaluator for early resolution.
func (e *Engine) CastVote(ctx context.Context, proposalID string, requesterID uint64, choice types.VoteChoice) error {
	if choice != types.VoteYes && choice != types.VoteNo {
		return fmt.Errorf("%w: vote must be yes or no", ErrInvalidMetadata)
	}
	p, err := e.store.Proposal(ctx, proposalID)
	if err != nil {
		return fmt.Errorf("%w: proposal %s", ErrTargetNotFound, proposalID)
	}
	now := e.now()
	if p.Status != types.StatusPending || now.After(p.ExpiresAt) {
		return ErrProposalNotPending
	}

	community, err := e.store.Community(ctx, p.CommunityID)
	if err != nil {
		return err
	}
	rules, err := RulesFor(p.LawType, community.GovernanceType)
	if err != nil {
		return err
	}

	rank, err := e.voterRank(ctx, p, requesterID)
	if err != nil {
		return err
	}
	if !rules.AllowsRank(rank) {
		return fmt.Errorf("%w: rank %d may not vote on %s", ErrPermissionDenied, rank, p.LawType)
	}

	if err := e.store.AddVote(ctx, &types.Vote{
		ProposalID: proposalID,
		VoterID:    requesterID,
		Choice:     choice,
		CreatedAt:  now,
	}); err != nil {
		return err
	}

	tally, err := e.currentTally(ctx, p, rules)
	if err != nil {
		return err
	}
	out := Evaluate(rules.Condition, tally)
	if out.Status == types.StatusPending {
		return nil
	}
	return e.resolve(ctx, p, out, e.now())
}

// FastTrack lets the sovereign of the proposal's own community pass a
// pending proposal immediately where the rules allow it.
func (e *Engine) FastTrack(ctx context.Context, proposalID string, requesterID uint64) error {
	p, err := e.store.Proposal(ctx, proposalID)
	if err != nil {
		return fmt.Errorf("%w: proposal %s", ErrTargetNotFound, proposalID)
	}
	if p.Status != types.StatusPending {
		return ErrProposalNotPending
	}
	rank, err := e.store.RankOf(ctx, p.CommunityID, requesterID)
	if err != nil {
		return err
	}
	if rank != 0 {
		return fmt.Errorf("%w: only the sovereign can fast-track", ErrPermissionDenied)
	}
	community, err := e.store.Community(ctx, p.CommunityID)
	if err != nil {
		return err
	}
	rules, err := RulesFor(p.LawType, community.GovernanceType)
	if err != nil {
		return err
	}
	if !rules.CanFastTrack {
		return fmt.Errorf("%w: %s cannot be fast-tracked", ErrPermissionDenied, p.LawType)
	}
	out := Outcome{Status: types.StatusPassed, Reason: "fast-tracked by the sovereign"}
	return e.resolve(ctx, p, out, e.now())
}

// GetProposal returns a proposal with its tallies.
func (e *Engine) GetProposal(ctx context.Context, id string) (*ProposalView, error) {
	p, err := e.store.Proposal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: proposal %s", ErrTargetNotFound, id)
	}
	yes, no, err := e.store.Tally(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProposalView{Proposal: *p, Yes: yes, No: no}, nil
}

// ListActive returns the community's pending proposals with tallies.
func (e *Engine) ListActive(ctx context.Context, communityID uint64) ([]ProposalView, error) {
	props, err := e.store.ActiveProposals(ctx, communityID)
	if err != nil {
		return nil, err
	}
	views := make([]ProposalView, 0, len(props))
	for _, p := range props {
		yes, no, err := e.store.Tally(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, ProposalView{Proposal: p, Yes: yes, No: no})
	}
	return views, nil
}

// ListResolved returns a page of the community's resolved proposals plus
// the total count.
func (e *Engine) ListResolved(ctx context.Context, communityID uint64, page, pageSize int) ([]types.Proposal, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return e.store.ResolvedProposals(ctx, communityID, page, pageSize)
}

// voterRank resolves the voter's rank; alliance proposals accept members
// of either side of the handshake.
func (e *Engine) voterRank(ctx context.Context, p *types.Proposal, userID uint64) (int, error) {
	rank, err := e.store.RankOf(ctx, p.CommunityID, userID)
	if err == nil || p.LawType != types.LawFormAlliance {
		return rank, err
	}
	meta, merr := p.Meta()
	if merr != nil {
		return 0, err
	}
	target, merr := metaCommunityID(meta)
	if merr != nil {
		return 0, err
	}
	return e.store.RankOf(ctx, target, userID)
}

func (e *Engine) currentTally(ctx context.Context, p *types.Proposal, rules Rules) (Tally, error) {
	yes, no, err := e.store.Tally(ctx, p.ID)
	if err != nil {
		return Tally{}, err
	}
	eligible, err := e.store.CountEligible(ctx, p.CommunityID, rules.VoteRanks)
	if err != nil {
		return Tally{}, err
	}
	t := Tally{Yes: yes, No: no, Eligible: eligible}
	if rules.Condition == types.CondSovereignOnly {
		t.Sovereign, err = e.store.SovereignChoice(ctx, p.ID, p.CommunityID)
		if err != nil {
			return Tally{}, err
		}
	}
	return t, nil
}

// resolve performs the guarded pending → terminal transition. The
// conditional write in the store guarantees at-most-once execution when
// concurrent votes both compute a decisive outcome.
func (e *Engine) resolve(ctx context.Context, p *types.Proposal, out Outcome, at time.Time) error {
	won, err := e.store.MarkResolved(ctx, p.ID, out.Status, out.Reason, at)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	p.Status = out.Status
	p.ResolvedAt = &at
	p.ResolutionNotes = out.Reason

	e.notify.Notify(ctx, eventFor(out.Status), p.CommunityID, map[string]any{
		"proposalId": p.ID,
		"lawType":    string(p.LawType),
		"reason":     out.Reason,
	})

	if out.Status != types.StatusPassed {
		return nil
	}
	if err := e.exec.Execute(ctx, p); err != nil {
		// The vote outcome is the ledger; execution is retryable
		// out-of-band and never rolls the resolution back.
		log.Printf("gov: execute %s for proposal %s: %v", p.LawType, p.ID, err)
		e.notify.Notify(ctx, EventExecutionFailed, p.CommunityID, map[string]any{
			"proposalId": p.ID,
			"lawType":    string(p.LawType),
			"error":      err.Error(),
		})
	}
	return nil
}

func eventFor(status types.ProposalStatus) Event {
	switch status {
	case types.StatusPassed:
		return EventPassed
	case types.StatusRejected:
		return EventRejected
	default:
		return EventExpired
	}
}

func (e *Engine) validateCreateMeta(ctx context.Context, community *types.Community, law types.LawType, rules Rules, meta map[string]any) error {
	for _, field := range rules.RequiredMeta {
		if _, ok := meta[field]; !ok {
			return fmt.Errorf("%w: missing field %q", ErrInvalidMetadata, field)
		}
	}
	switch law {
	case types.LawTaxRate:
		_, err := validateTaxRate(meta)
		return err
	case types.LawIssueCurrency:
		_, err := validateIssueAmount(meta)
		return err
	case types.LawDesignateHeir:
		heir, err := metaUint(meta, "heirId")
		if err != nil {
			return err
		}
		if _, err := e.store.RankOf(ctx, community.ID, heir); err != nil {
			return fmt.Errorf("%w: heir %d is not a member", ErrInvalidMetadata, heir)
		}
	case types.LawChangeGovernance:
		gt, err := validateGovernanceType(meta)
		if err != nil {
			return err
		}
		if gt == community.GovernanceType {
			return fmt.Errorf("%w: community is already a %s", ErrInvalidMetadata, gt)
		}
	case types.LawDeclareWar, types.LawFormAlliance:
		target, err := metaCommunityID(meta)
		if err != nil {
			return err
		}
		if target == community.ID {
			return fmt.Errorf("%w: target must be another community", ErrInvalidMetadata)
		}
		if _, err := e.store.Community(ctx, target); err != nil {
			return fmt.Errorf("%w: community %d", ErrTargetNotFound, target)
		}
	}
	return nil
}
