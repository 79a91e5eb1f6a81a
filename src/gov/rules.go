package gov

import (
	"fmt"
	"time"

	"github.com/emberforge/realm-gov/src/types"
)

// Rules is the rule set governing one (law type, governance type) pair.
type Rules struct {
	Condition    types.PassingCondition
	VoteRanks    []int
	TimeToPass   time.Duration // zero resolves at propose time
	CanFastTrack bool
	RequiredMeta []string
}

// AllowsRank reports whether a member of the given rank may vote under
// these rules.
func (r Rules) AllowsRank(rank int) bool {
	for _, v := range r.VoteRanks {
		if v == rank {
			return true
		}
	}
	return false
}

var (
	ranksMonarchy = []int{0}
	ranksCouncil  = []int{0, 1, 2}
	ranksRepublic = []int{0, 1, 2, 3, 4}
)

// ruleTable is defined for every supported pair; a missing pair is a
// configuration error surfaced by RulesFor, never a runtime fallback.
var ruleTable = map[types.GovernanceType]map[types.LawType]Rules{
	types.GovMonarchy: {
		types.LawTaxRate:          {Condition: types.CondSovereignOnly, VoteRanks: ranksMonarchy, TimeToPass: 24 * time.Hour, CanFastTrack: true, RequiredMeta: []string{"rate"}},
		types.LawDeclareWar:       {Condition: types.CondSovereignOnly, VoteRanks: ranksMonarchy, TimeToPass: 12 * time.Hour, CanFastTrack: true, RequiredMeta: []string{"targetCommunityId"}},
		types.LawIssueCurrency:    {Condition: types.CondSovereignOnly, VoteRanks: ranksMonarchy, TimeToPass: 0, RequiredMeta: []string{"amount"}},
		types.LawDesignateHeir:    {Condition: types.CondSovereignOnly, VoteRanks: ranksMonarchy, TimeToPass: 0, RequiredMeta: []string{"heirId"}},
		types.LawChangeGovernance: {Condition: types.CondSovereignOnly, VoteRanks: ranksMonarchy, TimeToPass: 24 * time.Hour, RequiredMeta: []string{"governanceType"}},
		types.LawFormAlliance:     {Condition: types.CondSovereignOnly, VoteRanks: ranksMonarchy, TimeToPass: 24 * time.Hour, CanFastTrack: true, RequiredMeta: []string{"targetCommunityId"}},
	},
	types.GovCouncil: {
		types.LawTaxRate:          {Condition: types.CondMajority, VoteRanks: ranksCouncil, TimeToPass: 48 * time.Hour, CanFastTrack: true, RequiredMeta: []string{"rate"}},
		types.LawDeclareWar:       {Condition: types.CondSupermajority, VoteRanks: ranksCouncil, TimeToPass: 24 * time.Hour, CanFastTrack: true, RequiredMeta: []string{"targetCommunityId"}},
		types.LawIssueCurrency:    {Condition: types.CondMajority, VoteRanks: ranksCouncil, TimeToPass: 24 * time.Hour, CanFastTrack: true, RequiredMeta: []string{"amount"}},
		types.LawDesignateHeir:    {Condition: types.CondUnanimous, VoteRanks: ranksCouncil, TimeToPass: 72 * time.Hour, RequiredMeta: []string{"heirId"}},
		types.LawChangeGovernance: {Condition: types.CondSupermajority, VoteRanks: ranksCouncil, TimeToPass: 72 * time.Hour, RequiredMeta: []string{"governanceType"}},
		types.LawFormAlliance:     {Condition: types.CondSupermajority, VoteRanks: ranksCouncil, TimeToPass: 48 * time.Hour, CanFastTrack: true, RequiredMeta: []string{"targetCommunityId"}},
	},
	types.GovRepublic: {
		types.LawTaxRate:          {Condition: types.CondMajority, VoteRanks: ranksRepublic, TimeToPass: 72 * time.Hour, CanFastTrack: true, RequiredMeta: []string{"rate"}},
		types.LawDeclareWar:       {Condition: types.CondSupermajority, VoteRanks: ranksRepublic, TimeToPass: 48 * time.Hour, RequiredMeta: []string{"targetCommunityId"}},
		types.LawIssueCurrency:    {Condition: types.CondMajority, VoteRanks: ranksRepublic, TimeToPass: 24 * time.Hour, CanFastTrack: true, RequiredMeta: []string{"amount"}},
		types.LawDesignateHeir:    {Condition: types.CondUnanimous, VoteRanks: ranksRepublic, TimeToPass: 96 * time.Hour, RequiredMeta: []string{"heirId"}},
		types.LawChangeGovernance: {Condition: types.CondSupermajority, VoteRanks: ranksRepublic, TimeToPass: 96 * time.Hour, RequiredMeta: []string{"governanceType"}},
		types.LawFormAlliance:     {Condition: types.CondSupermajority, VoteRanks: ranksRepublic, TimeToPass: 72 * time.Hour, CanFastTrack: true, RequiredMeta: []string{"targetCommunityId"}},
	},
}

// RulesFor returns the rule set for a law under a governance type.
func RulesFor(law types.LawType, gov types.GovernanceType) (Rules, error) {
	byLaw, ok := ruleTable[gov]
	if !ok {
		return Rules{}, fmt.Errorf("gov: no rules configured for governance type %q", gov)
	}
	rules, ok := byLaw[law]
	if !ok {
		return Rules{}, fmt.Errorf("gov: no rules configured for law %q under %q", law, gov)
	}
	return rules, nil
}

// sovereignOnly laws that only the rank-0 member may propose.
var sovereignProposeOnly = map[types.LawType]bool{
	types.LawDesignateHeir:    true,
	types.LawChangeGovernance: true,
}

// Laws that allow several pending proposals per community as long as the
// target differs.
var coexistByTarget = map[types.LawType]bool{
	types.LawDeclareWar:   true,
	types.LawFormAlliance: true,
}

// proposalCooldown applies to recurring laws; only currency issuance
// recurs today.
const proposalCooldown = 24 * time.Hour

func hasCooldown(law types.LawType) bool {
	return law == types.LawIssueCurrency
}
