package gov

import (
	"context"
	"time"

	"github.com/emberforge/realm-gov/src/types"
)

// Store is the repository boundary the engine runs against. The MySQL
// implementation lives in src/data; tests run an in-memory one.
type Store interface {
	// Communities and membership.
	Community(ctx context.Context, id uint64) (*types.Community, error)
	// RankOf returns ErrNotAMember when the user does not belong to the
	// community.
	RankOf(ctx context.Context, communityID, userID uint64) (int, error)
	CountEligible(ctx context.Context, communityID uint64, ranks []int) (int, error)

	// Proposals.
	CreateProposal(ctx context.Context, p *types.Proposal) error
	Proposal(ctx context.Context, id string) (*types.Proposal, error)
	// HasPendingProposal reports whether a pending proposal of the law
	// type exists; targetID narrows the check for laws whose pending
	// proposals may coexist per target (0 matches any).
	HasPendingProposal(ctx context.Context, communityID uint64, law types.LawType, targetID uint64) (bool, error)
	// LastProposalAt returns the zero time when the community never
	// proposed the law type.
	LastProposalAt(ctx context.Context, communityID uint64, law types.LawType) (time.Time, error)
	// MarkResolved transitions pending → status with a conditional write
	// gated on the row still being pending. Returns false when another
	// resolver already won the race.
	MarkResolved(ctx context.Context, id string, status types.ProposalStatus, notes string, at time.Time) (bool, error)
	ExpiredPending(ctx context.Context, now time.Time) ([]types.Proposal, error)
	ActiveProposals(ctx context.Context, communityID uint64) ([]types.Proposal, error)
	ResolvedProposals(ctx context.Context, communityID uint64, page, pageSize int) ([]types.Proposal, int64, error)

	// Votes.
	// AddVote returns ErrAlreadyVoted on a duplicate (proposal, voter)
	// pair.
	AddVote(ctx context.Context, v *types.Vote) error
	Tally(ctx context.Context, proposalID string) (yes, no int, err error)
	// SovereignChoice returns the rank-0 member's recorded vote on the
	// proposal, or "" if the sovereign has not voted.
	SovereignChoice(ctx context.Context, proposalID string, communityID uint64) (types.VoteChoice, error)

	// Alliances.
	AllianceBetween(ctx context.Context, a, b uint64) (*types.Alliance, error)
	CountActiveAlliances(ctx context.Context, communityID uint64) (int, error)
	CreateAlliance(ctx context.Context, al *types.Alliance) error
	// ActivateAlliance flips a non-active alliance to active; returns
	// false when it is already active.
	ActivateAlliance(ctx context.Context, id, targetProposalID string, at time.Time) (bool, error)
	// ReciprocalProposal finds a pending or passed form_alliance proposal
	// inside the target community aimed back at the initiator.
	ReciprocalProposal(ctx context.Context, targetCommunityID, initiatorCommunityID uint64) (*types.Proposal, error)
}

// Realms is the domain-mutation boundary the law executor writes through.
// Each call is a single external mutation; its atomicity is the store's
// concern.
type Realms interface {
	SetTaxRate(ctx context.Context, communityID uint64, rate float64) error
	RecordConflict(ctx context.Context, aggressorID, defenderID uint64, proposalID string) error
	IssueCurrency(ctx context.Context, communityID uint64, amount float64, proposalID string) error
	SetHeir(ctx context.Context, communityID, heirID uint64) error
	SetGovernanceType(ctx context.Context, communityID uint64, gt types.GovernanceType) error
}
