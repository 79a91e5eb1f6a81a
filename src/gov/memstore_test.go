package gov

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/emberforge/realm-gov/src/types"
)

// memStore is an in-memory Store + Realms used by the engine tests. It
// mirrors the MySQL store's semantics, including the compare-and-swap
// resolution guard.
type memStore struct {
	mu          sync.Mutex
	communities map[uint64]*types.Community
	members     map[uint64]map[uint64]int // community -> user -> rank
	proposals   map[string]*types.Proposal
	votes       map[string]map[uint64]types.VoteChoice
	voteOrder   map[string][]uint64
	alliances   map[string]*types.Alliance

	taxRates  map[uint64]float64
	conflicts []types.Conflict
	issues    []types.CurrencyIssue
	heirs     map[uint64]uint64

	failCommunity map[uint64]error
	failRealms    error
	execCount     int

	// staleAllianceReads makes the next N AllianceBetween lookups miss,
	// simulating a concurrent insert landing inside the lookup window.
	staleAllianceReads int
}

func newMemStore() *memStore {
	return &memStore{
		communities:   make(map[uint64]*types.Community),
		members:       make(map[uint64]map[uint64]int),
		proposals:     make(map[string]*types.Proposal),
		votes:         make(map[string]map[uint64]types.VoteChoice),
		voteOrder:     make(map[string][]uint64),
		alliances:     make(map[string]*types.Alliance),
		taxRates:      make(map[uint64]float64),
		heirs:         make(map[uint64]uint64),
		failCommunity: make(map[uint64]error),
	}
}

func (s *memStore) addCommunity(id uint64, gt types.GovernanceType) {
	s.communities[id] = &types.Community{ID: id, Name: fmt.Sprintf("community-%d", id), GovernanceType: gt}
}

func (s *memStore) addMember(communityID, userID uint64, rank int) {
	if s.members[communityID] == nil {
		s.members[communityID] = make(map[uint64]int)
	}
	s.members[communityID][userID] = rank
}

func (s *memStore) Community(_ context.Context, id uint64) (*types.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failCommunity[id]; err != nil {
		return nil, err
	}
	c, ok := s.communities[id]
	if !ok {
		return nil, fmt.Errorf("community %d not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) RankOf(_ context.Context, communityID, userID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rank, ok := s.members[communityID][userID]
	if !ok {
		return 0, ErrNotAMember
	}
	return rank, nil
}

func (s *memStore) CountEligible(_ context.Context, communityID uint64, ranks []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	allowed := make(map[int]bool, len(ranks))
	for _, r := range ranks {
		allowed[r] = true
	}
	n := 0
	for _, rank := range s.members[communityID] {
		if allowed[rank] {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateProposal(_ context.Context, p *types.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.proposals[p.ID] = &cp
	return nil
}

func (s *memStore) Proposal(_ context.Context, id string) (*types.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, fmt.Errorf("proposal %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) HasPendingProposal(_ context.Context, communityID uint64, law types.LawType, targetID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.proposals {
		if p.CommunityID != communityID || p.LawType != law || p.Status != types.StatusPending {
			continue
		}
		if targetID == 0 || proposalTarget(p) == targetID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) LastProposalAt(_ context.Context, communityID uint64, law types.LawType) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last time.Time
	for _, p := range s.proposals {
		if p.CommunityID == communityID && p.LawType == law && p.CreatedAt.After(last) {
			last = p.CreatedAt
		}
	}
	return last, nil
}

func (s *memStore) MarkResolved(_ context.Context, id string, status types.ProposalStatus, notes string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return false, fmt.Errorf("proposal %s not found", id)
	}
	if p.Status != types.StatusPending {
		return false, nil
	}
	p.Status = status
	p.ResolvedAt = &at
	p.ResolutionNotes = notes
	return true, nil
}

func (s *memStore) ExpiredPending(_ context.Context, now time.Time) ([]types.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Proposal
	for _, p := range s.proposals {
		if p.Status == types.StatusPending && !p.ExpiresAt.After(now) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *memStore) ActiveProposals(_ context.Context, communityID uint64) ([]types.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Proposal
	for _, p := range s.proposals {
		if p.CommunityID == communityID && p.Status == types.StatusPending {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) ResolvedProposals(_ context.Context, communityID uint64, page, pageSize int) ([]types.Proposal, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []types.Proposal
	for _, p := range s.proposals {
		if p.CommunityID == communityID && p.Status != types.StatusPending {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *memStore) AddVote(_ context.Context, v *types.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.votes[v.ProposalID] == nil {
		s.votes[v.ProposalID] = make(map[uint64]types.VoteChoice)
	}
	if _, dup := s.votes[v.ProposalID][v.VoterID]; dup {
		return ErrAlreadyVoted
	}
	s.votes[v.ProposalID][v.VoterID] = v.Choice
	s.voteOrder[v.ProposalID] = append(s.voteOrder[v.ProposalID], v.VoterID)
	return nil
}

func (s *memStore) Tally(_ context.Context, proposalID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var yes, no int
	for _, choice := range s.votes[proposalID] {
		switch choice {
		case types.VoteYes:
			yes++
		case types.VoteNo:
			no++
		}
	}
	return yes, no, nil
}

func (s *memStore) SovereignChoice(_ context.Context, proposalID string, communityID uint64) (types.VoteChoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, rank := range s.members[communityID] {
		if rank != 0 {
			continue
		}
		if choice, ok := s.votes[proposalID][userID]; ok {
			return choice, nil
		}
	}
	return "", nil
}

func (s *memStore) AllianceBetween(_ context.Context, a, b uint64) (*types.Alliance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleAllianceReads > 0 {
		s.staleAllianceReads--
		return nil, nil
	}
	for _, al := range s.alliances {
		if (al.InitiatorID == a && al.TargetID == b) || (al.InitiatorID == b && al.TargetID == a) {
			cp := *al
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) CountActiveAlliances(_ context.Context, communityID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, al := range s.alliances {
		if al.Status == types.AllianceActive && (al.InitiatorID == communityID || al.TargetID == communityID) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateAlliance(_ context.Context, al *types.Alliance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.alliances {
		if (other.InitiatorID == al.InitiatorID && other.TargetID == al.TargetID) ||
			(other.InitiatorID == al.TargetID && other.TargetID == al.InitiatorID) {
			return ErrAllianceExists
		}
	}
	cp := *al
	s.alliances[al.ID] = &cp
	return nil
}

func (s *memStore) ActivateAlliance(_ context.Context, id, targetProposalID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	al, ok := s.alliances[id]
	if !ok {
		return false, fmt.Errorf("alliance %s not found", id)
	}
	if al.Status == types.AllianceActive {
		return false, nil
	}
	al.Status = types.AllianceActive
	al.TargetProposalID = targetProposalID
	al.ActivatedAt = &at
	return true, nil
}

func (s *memStore) ReciprocalProposal(_ context.Context, targetCommunityID, initiatorCommunityID uint64) (*types.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *types.Proposal
	for _, p := range s.proposals {
		if p.CommunityID != targetCommunityID || p.LawType != types.LawFormAlliance {
			continue
		}
		if p.Status != types.StatusPending && p.Status != types.StatusPassed {
			continue
		}
		if proposalTarget(p) != initiatorCommunityID {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
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

// Realms implementation recording every mutation.

func (s *memStore) SetTaxRate(_ context.Context, communityID uint64, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execCount++
	if s.failRealms != nil {
		return s.failRealms
	}
	s.taxRates[communityID] = rate
	return nil
}

func (s *memStore) RecordConflict(_ context.Context, aggressorID, defenderID uint64, proposalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execCount++
	if s.failRealms != nil {
		return s.failRealms
	}
	s.conflicts = append(s.conflicts, types.Conflict{AggressorID: aggressorID, DefenderID: defenderID, ProposalID: proposalID})
	return nil
}

func (s *memStore) IssueCurrency(_ context.Context, communityID uint64, amount float64, proposalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execCount++
	if s.failRealms != nil {
		return s.failRealms
	}
	s.issues = append(s.issues, types.CurrencyIssue{CommunityID: communityID, Amount: amount, ProposalID: proposalID})
	return nil
}

func (s *memStore) SetHeir(_ context.Context, communityID, heirID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execCount++
	if s.failRealms != nil {
		return s.failRealms
	}
	s.heirs[communityID] = heirID
	return nil
}

func (s *memStore) SetGovernanceType(_ context.Context, communityID uint64, gt types.GovernanceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execCount++
	if s.failRealms != nil {
		return s.failRealms
	}
	if c, ok := s.communities[communityID]; ok {
		c.GovernanceType = gt
	}
	return nil
}

func (s *memStore) executions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execCount
}

// recorder captures notifications for assertions.
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Event       Event
	CommunityID uint64
	Details     map[string]any
}

func (r *recorder) Notify(_ context.Context, event Event, communityID uint64, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Event: event, CommunityID: communityID, Details: details})
}

func (r *recorder) count(event Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}
