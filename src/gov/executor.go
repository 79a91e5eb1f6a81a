package gov

import (
	"context"
	"fmt"
	"math"

	"github.com/emberforge/realm-gov/src/types"
)

const maxCurrencyIssue = 1_000_000

// Handler applies the side effect of one passed law.
type Handler func(ctx context.Context, p *types.Proposal, meta map[string]any) error

// Executor dispatches side effects once a proposal is marked passed. Each
// handler re-validates its metadata before touching the domain store;
// failures are reported to the caller but never revert the resolution.
type Executor struct {
	store    Store
	realms   Realms
	alliance *AllianceCoordinator
	handlers map[types.LawType]Handler
}

func NewExecutor(store Store, realms Realms, alliance *AllianceCoordinator) *Executor {
	e := &Executor{store: store, realms: realms, alliance: alliance}
	e.handlers = map[types.LawType]Handler{
		types.LawTaxRate:          e.applyTaxRate,
		types.LawDeclareWar:       e.applyDeclareWar,
		types.LawIssueCurrency:    e.applyIssueCurrency,
		types.LawDesignateHeir:    e.applyDesignateHeir,
		types.LawChangeGovernance: e.applyChangeGovernance,
		types.LawFormAlliance:     e.applyFormAlliance,
	}
	return e
}

// Execute runs the handler for a passed proposal.
func (e *Executor) Execute(ctx context.Context, p *types.Proposal) error {
	h, ok := e.handlers[p.LawType]
	if !ok {
		return fmt.Errorf("no executor for law type %q", p.LawType)
	}
	meta, err := p.Meta()
	if err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	return h(ctx, p, meta)
}

func (e *Executor) applyTaxRate(ctx context.Context, p *types.Proposal, meta map[string]any) error {
	rate, err := validateTaxRate(meta)
	if err != nil {
		return err
	}
	return e.realms.SetTaxRate(ctx, p.CommunityID, rate)
}

func (e *Executor) applyDeclareWar(ctx context.Context, p *types.Proposal, meta map[string]any) error {
	target, err := metaCommunityID(meta)
	if err != nil {
		return err
	}
	if _, err := e.store.Community(ctx, target); err != nil {
		return fmt.Errorf("war target %d: %w", target, err)
	}
	return e.realms.RecordConflict(ctx, p.CommunityID, target, p.ID)
}

func (e *Executor) applyIssueCurrency(ctx context.Context, p *types.Proposal, meta map[string]any) error {
	amount, err := validateIssueAmount(meta)
	if err != nil {
		return err
	}
	return e.realms.IssueCurrency(ctx, p.CommunityID, amount, p.ID)
}

func (e *Executor) applyDesignateHeir(ctx context.Context, p *types.Proposal, meta map[string]any) error {
	heir, err := metaUint(meta, "heirId")
	if err != nil {
		return err
	}
	if _, err := e.store.RankOf(ctx, p.CommunityID, heir); err != nil {
		return fmt.Errorf("heir %d: %w", heir, err)
	}
	return e.realms.SetHeir(ctx, p.CommunityID, heir)
}

func (e *Executor) applyChangeGovernance(ctx context.Context, p *types.Proposal, meta map[string]any) error {
	gt, err := validateGovernanceType(meta)
	if err != nil {
		return err
	}
	return e.realms.SetGovernanceType(ctx, p.CommunityID, gt)
}

func (e *Executor) applyFormAlliance(ctx context.Context, p *types.Proposal, meta map[string]any) error {
	target, err := metaCommunityID(meta)
	if err != nil {
		return err
	}
	return e.alliance.OnProposalPassed(ctx, p, target)
}

// Metadata extraction. JSON payloads decode numbers as float64.

func metaFloat(meta map[string]any, key string) (float64, error) {
	raw, ok := meta[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", ErrInvalidMetadata, key)
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: field %q must be a number", ErrInvalidMetadata, key)
	}
	return f, nil
}

func metaUint(meta map[string]any, key string) (uint64, error) {
	f, err := metaFloat(meta, key)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: field %q must be a non-negative integer", ErrInvalidMetadata, key)
	}
	return uint64(f), nil
}

func metaString(meta map[string]any, key string) (string, error) {
	raw, ok := meta[key]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrInvalidMetadata, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q must be a string", ErrInvalidMetadata, key)
	}
	return s, nil
}

func metaCommunityID(meta map[string]any) (uint64, error) {
	id, err := metaUint(meta, "targetCommunityId")
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: targetCommunityId must be set", ErrInvalidMetadata)
	}
	return id, nil
}

func validateTaxRate(meta map[string]any) (float64, error) {
	rate, err := metaFloat(meta, "rate")
	if err != nil {
		return 0, err
	}
	if rate < 0 || rate > 1 {
		return 0, fmt.Errorf("%w: rate must be within [0,1]", ErrInvalidMetadata)
	}
	return rate, nil
}

func validateIssueAmount(meta map[string]any) (float64, error) {
	amount, err := metaFloat(meta, "amount")
	if err != nil {
		return 0, err
	}
	if amount <= 0 || amount > maxCurrencyIssue {
		return 0, fmt.Errorf("%w: amount must be within (0, %d]", ErrInvalidMetadata, maxCurrencyIssue)
	}
	return amount, nil
}

func validateGovernanceType(meta map[string]any) (types.GovernanceType, error) {
	s, err := metaString(meta, "governanceType")
	if err != nil {
		return "", err
	}
	gt := types.GovernanceType(s)
	if !gt.Valid() {
		return "", fmt.Errorf("%w: unknown governance type %q", ErrInvalidMetadata, s)
	}
	return gt, nil
}
