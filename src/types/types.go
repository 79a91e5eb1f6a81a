package types

import (
	"encoding/json"
	"time"
)

// Governance types
type GovernanceType string

const (
	GovMonarchy GovernanceType = "monarchy"
	GovCouncil  GovernanceType = "council"
	GovRepublic GovernanceType = "republic"
)

func (g GovernanceType) Valid() bool {
	switch g {
	case GovMonarchy, GovCouncil, GovRepublic:
		return true
	}
	return false
}

// Law types
type LawType string

const (
	LawTaxRate          LawType = "tax_rate"
	LawDeclareWar       LawType = "declare_war"
	LawIssueCurrency    LawType = "issue_currency"
	LawDesignateHeir    LawType = "designate_heir"
	LawChangeGovernance LawType = "change_governance"
	LawFormAlliance     LawType = "form_alliance"
)

// Passing conditions
type PassingCondition string

const (
	CondSovereignOnly PassingCondition = "sovereign_only"
	CondMajority      PassingCondition = "majority_vote"
	CondSupermajority PassingCondition = "supermajority_vote"
	CondUnanimous     PassingCondition = "unanimous"
)

// Proposal statuses
type ProposalStatus string

const (
	StatusPending  ProposalStatus = "pending"
	StatusPassed   ProposalStatus = "passed"
	StatusRejected ProposalStatus = "rejected"
	StatusExpired  ProposalStatus = "expired"
)

// Vote choices
type VoteChoice string

const (
	VoteYes VoteChoice = "yes"
	VoteNo  VoteChoice = "no"
)

// Alliance statuses
type AllianceStatus string

const (
	AlliancePendingTarget AllianceStatus = "pending_target_approval"
	AlliancePendingMutual AllianceStatus = "pending_mutual_approval"
	AllianceActive        AllianceStatus = "active"
)

// Communities
type Community struct {
	ID             uint64         `gorm:"primaryKey"`
	Name           string         `gorm:"size:64;unique;not null"`
	GovernanceType GovernanceType `gorm:"size:32;not null;default:monarchy"`
	TaxRate        float64        `gorm:"default:0"`
	Treasury       float64        `gorm:"default:0"`
	HeirID         uint64         `gorm:"default:0"` // 0 = no heir designated
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Community members. Rank 0 is the sovereign; exactly one per community.
type Member struct {
	ID          uint64 `gorm:"primaryKey"`
	CommunityID uint64 `gorm:"not null;index;uniqueIndex:uk_member"`
	UserID      uint64 `gorm:"not null;index;uniqueIndex:uk_member"`
	Rank        int    `gorm:"not null;default:9"`
	JoinedAt    time.Time
}

// Proposals. Never deleted; resolved rows are the audit trail.
type Proposal struct {
	ID              string         `gorm:"primaryKey;size:36"`
	CommunityID     uint64         `gorm:"index;not null"`
	LawType         LawType        `gorm:"size:32;index;not null"`
	ProposerID      uint64         `gorm:"not null"`
	Status          ProposalStatus `gorm:"size:16;index;not null;default:pending"`
	Metadata        string         `gorm:"type:text"`
	CreatedAt       time.Time
	ExpiresAt       time.Time `gorm:"index"`
	ResolvedAt      *time.Time
	ResolutionNotes string `gorm:"size:255"`
}

// Meta decodes the law-specific metadata payload.
func (p *Proposal) Meta() (map[string]any, error) {
	if p.Metadata == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(p.Metadata), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetMeta encodes the law-specific metadata payload.
func (p *Proposal) SetMeta(m map[string]any) error {
	if m == nil {
		p.Metadata = ""
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	p.Metadata = string(raw)
	return nil
}

// Votes. One per (proposal, voter); inserts against the unique index,
// never updated or deleted.
type Vote struct {
	ID         uint64     `gorm:"primaryKey"`
	ProposalID string     `gorm:"size:36;not null;uniqueIndex:uk_vote"`
	VoterID    uint64     `gorm:"not null;uniqueIndex:uk_vote"`
	Choice     VoteChoice `gorm:"size:8;not null"`
	CreatedAt  time.Time
}

// Alliances between two communities, created only by the alliance
// handshake as a side effect of form_alliance resolution.
type Alliance struct {
	ID          string `gorm:"primaryKey;size:36"`
	InitiatorID uint64 `gorm:"index;not null"`
	TargetID    uint64 `gorm:"index;not null"`
	// Normalized community pair backing the one-row-per-pair unique
	// index; always PairLow < PairHigh.
	PairLow             uint64         `gorm:"not null;uniqueIndex:uk_alliance_pair"`
	PairHigh            uint64         `gorm:"not null;uniqueIndex:uk_alliance_pair"`
	Status              AllianceStatus `gorm:"size:32;not null"`
	InitiatorProposalID string         `gorm:"size:36"`
	TargetProposalID    string         `gorm:"size:36"`
	CreatedAt           time.Time
	ActivatedAt         *time.Time
}

// Conflict ledger rows written by passed declare_war laws.
type Conflict struct {
	ID          uint64 `gorm:"primaryKey"`
	AggressorID uint64 `gorm:"index;not null"`
	DefenderID  uint64 `gorm:"index;not null"`
	ProposalID  string `gorm:"size:36;not null"`
	DeclaredAt  time.Time
}

// Currency issuance ledger rows written by passed issue_currency laws.
type CurrencyIssue struct {
	ID          uint64  `gorm:"primaryKey"`
	CommunityID uint64  `gorm:"index;not null"`
	Amount      float64 `gorm:"not null"`
	ProposalID  string  `gorm:"size:36;not null"`
	IssuedAt    time.Time
}
