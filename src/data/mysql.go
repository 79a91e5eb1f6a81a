package data

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/emberforge/realm-gov/src/gov"
	"github.com/emberforge/realm-gov/src/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func MustMySQL(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	return db
}

// Store is the MySQL-backed repository behind the governance engine. It
// implements both gov.Store and gov.Realms.
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Community(ctx context.Context, id uint64) (*types.Community, error) {
	var c types.Community
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) RankOf(ctx context.Context, communityID, userID uint64) (int, error) {
	var m types.Member
	err := s.db.WithContext(ctx).First(&m, "community_id = ? AND user_id = ?", communityID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, gov.ErrNotAMember
	}
	if err != nil {
		return 0, err
	}
	return m.Rank, nil
}

func (s *Store) CountEligible(ctx context.Context, communityID uint64, ranks []int) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&types.Member{}).
		Where("community_id = ? AND `rank` IN ?", communityID, ranks).
		Count(&n).Error
	return int(n), err
}

func (s *Store) CreateProposal(ctx context.Context, p *types.Proposal) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) Proposal(ctx context.Context, id string) (*types.Proposal, error) {
	var p types.Proposal
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) HasPendingProposal(ctx context.Context, communityID uint64, law types.LawType, targetID uint64) (bool, error) {
	var pending []types.Proposal
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND law_type = ? AND status = ?", communityID, law, types.StatusPending).
		Find(&pending).Error
	if err != nil {
		return false, err
	}
	if targetID == 0 {
		return len(pending) > 0, nil
	}
	// Coexisting law types clash only on the same target; the target id
	// lives inside the metadata payload.
	for i := range pending {
		if proposalTarget(&pending[i]) == targetID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) LastProposalAt(ctx context.Context, communityID uint64, law types.LawType) (time.Time, error) {
	var p types.Proposal
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND law_type = ?", communityID, law).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return p.CreatedAt, nil
}

func (s *Store) MarkResolved(ctx context.Context, id string, status types.ProposalStatus, notes string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&types.Proposal{}).
		Where("id = ? AND status = ?", id, types.StatusPending).
		Updates(map[string]any{
			"status":           status,
			"resolved_at":      at,
			"resolution_notes": notes,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ExpiredPending(ctx context.Context, now time.Time) ([]types.Proposal, error) {
	var out []types.Proposal
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", types.StatusPending, now).
		Order("expires_at ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) ActiveProposals(ctx context.Context, communityID uint64) ([]types.Proposal, error) {
	var out []types.Proposal
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND status = ?", communityID, types.StatusPending).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) ResolvedProposals(ctx context.Context, communityID uint64, page, pageSize int) ([]types.Proposal, int64, error) {
	q := s.db.WithContext(ctx).Model(&types.Proposal{}).
		Where("community_id = ? AND status <> ?", communityID, types.StatusPending)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []types.Proposal
	err := q.Order("resolved_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out).Error
	return out, total, err
}

func (s *Store) AddVote(ctx context.Context, v *types.Vote) error {
	err := s.db.WithContext(ctx).Create(v).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return gov.ErrAlreadyVoted
	}
	return err
}

func (s *Store) Tally(ctx context.Context, proposalID string) (int, int, error) {
	type agg struct {
		Choice types.VoteChoice
		Count  int
	}
	var rows []agg
	err := s.db.WithContext(ctx).Model(&types.Vote{}).
		Select("choice, count(*) as count").
		Where("proposal_id = ?", proposalID).
		Group("choice").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	var yes, no int
	for _, r := range rows {
		switch r.Choice {
		case types.VoteYes:
			yes = r.Count
		case types.VoteNo:
			no = r.Count
		}
	}
	return yes, no, nil
}

func (s *Store) SovereignChoice(ctx context.Context, proposalID string, communityID uint64) (types.VoteChoice, error) {
	var v types.Vote
	err := s.db.WithContext(ctx).
		Joins("JOIN members ON members.user_id = votes.voter_id").
		Where("votes.proposal_id = ? AND members.community_id = ? AND members.`rank` = 0", proposalID, communityID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v.Choice, nil
}

func (s *Store) AllianceBetween(ctx context.Context, a, b uint64) (*types.Alliance, error) {
	var al types.Alliance
	err := s.db.WithContext(ctx).
		Where("(initiator_id = ? AND target_id = ?) OR (initiator_id = ? AND target_id = ?)", a, b, b, a).
		First(&al).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &al, nil
}

func (s *Store) CountActiveAlliances(ctx context.Context, communityID uint64) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&types.Alliance{}).
		Where("status = ? AND (initiator_id = ? OR target_id = ?)", types.AllianceActive, communityID, communityID).
		Count(&n).Error
	return int(n), err
}

func (s *Store) CreateAlliance(ctx context.Context, al *types.Alliance) error {
	al.PairLow, al.PairHigh = al.InitiatorID, al.TargetID
	if al.PairLow > al.PairHigh {
		al.PairLow, al.PairHigh = al.PairHigh, al.PairLow
	}
	err := s.db.WithContext(ctx).Create(al).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return gov.ErrAllianceExists
	}
	return err
}

func (s *Store) ActivateAlliance(ctx context.Context, id, targetProposalID string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&types.Alliance{}).
		Where("id = ? AND status <> ?", id, types.AllianceActive).
		Updates(map[string]any{
			"status":             types.AllianceActive,
			"target_proposal_id": targetProposalID,
			"activated_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ReciprocalProposal(ctx context.Context, targetCommunityID, initiatorCommunityID uint64) (*types.Proposal, error) {
	var candidates []types.Proposal
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND law_type = ? AND status IN ?",
			targetCommunityID, types.LawFormAlliance,
			[]types.ProposalStatus{types.StatusPending, types.StatusPassed}).
		Order("created_at DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if proposalTarget(&candidates[i]) == initiatorCommunityID {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func proposalTarget(p *types.Proposal) uint64 {
	meta, err := p.Meta()
	if err != nil {
		return 0
	}
	raw, ok := meta["targetCommunityId"].(float64)
	if !ok {
		return 0
	}
	return uint64(raw)
}

// gov.Realms implementation: one mutation per passed law.

func (s *Store) SetTaxRate(ctx context.Context, communityID uint64, rate float64) error {
	return s.db.WithContext(ctx).Model(&types.Community{}).
		Where("id = ?", communityID).
		Update("tax_rate", rate).Error
}

func (s *Store) RecordConflict(ctx context.Context, aggressorID, defenderID uint64, proposalID string) error {
	return s.db.WithContext(ctx).Create(&types.Conflict{
		AggressorID: aggressorID,
		DefenderID:  defenderID,
		ProposalID:  proposalID,
		DeclaredAt:  time.Now(),
	}).Error
}

func (s *Store) IssueCurrency(ctx context.Context, communityID uint64, amount float64, proposalID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&types.CurrencyIssue{
			CommunityID: communityID,
			Amount:      amount,
			ProposalID:  proposalID,
			IssuedAt:    time.Now(),
		}).Error; err != nil {
			return err
		}
		return tx.Model(&types.Community{}).
			Where("id = ?", communityID).
			Update("treasury", gorm.Expr("treasury + ?", amount)).Error
	})
}

func (s *Store) SetHeir(ctx context.Context, communityID, heirID uint64) error {
	return s.db.WithContext(ctx).Model(&types.Community{}).
		Where("id = ?", communityID).
		Update("heir_id", heirID).Error
}

func (s *Store) SetGovernanceType(ctx context.Context, communityID uint64, gt types.GovernanceType) error {
	return s.db.WithContext(ctx).Model(&types.Community{}).
		Where("id = ?", communityID).
		Update("governance_type", gt).Error
}
