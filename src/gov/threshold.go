package gov

import (
	"fmt"

	"github.com/emberforge/realm-gov/src/types"
)

// Tally is the evaluator input for one proposal: current counts plus, for
// sovereign-only laws, the rank-0 member's recorded choice ("" if they
// have not voted).
type Tally struct {
	Yes       int
	No        int
	Eligible  int
	Sovereign types.VoteChoice
}

// Outcome is a resolution decision. Status is StatusPending while the
// tally is still undecided.
type Outcome struct {
	Status types.ProposalStatus
	Reason string
}

func undecided() Outcome {
	return Outcome{Status: types.StatusPending}
}

// Evaluate decides whether the tally already resolves the proposal.
// Called after every vote cast and again, in final mode, by the sweeper.
func Evaluate(cond types.PassingCondition, t Tally) Outcome {
	switch cond {
	case types.CondSovereignOnly:
		// Rank-gated variant: only the sovereign's own vote resolves.
		switch t.Sovereign {
		case types.VoteYes:
			return Outcome{Status: types.StatusPassed, Reason: "approved by the sovereign"}
		case types.VoteNo:
			return Outcome{Status: types.StatusRejected, Reason: "rejected by the sovereign"}
		}
		return undecided()
	case types.CondMajority:
		return evalThreshold(t, ceilDiv(t.Eligible, 2))
	case types.CondSupermajority:
		return evalThreshold(t, ceilDiv(t.Eligible*2, 3))
	case types.CondUnanimous:
		if t.No > 0 {
			return Outcome{Status: types.StatusRejected, Reason: "unanimity broken"}
		}
		if t.Eligible > 0 && t.Yes == t.Eligible {
			return Outcome{Status: types.StatusPassed, Reason: "unanimous approval"}
		}
		return undecided()
	}
	return undecided()
}

// EvaluateFinal applies the expiry-time rule: an undecided tally rejects
// if any votes were cast and expires otherwise.
func EvaluateFinal(cond types.PassingCondition, t Tally) Outcome {
	out := Evaluate(cond, t)
	if out.Status != types.StatusPending {
		return out
	}
	if t.Yes+t.No == 0 {
		return Outcome{Status: types.StatusExpired, Reason: "vote window elapsed with no votes"}
	}
	return Outcome{Status: types.StatusRejected, Reason: "vote window elapsed without a decisive tally"}
}

func evalThreshold(t Tally, threshold int) Outcome {
	if t.Eligible == 0 {
		return undecided()
	}
	if t.Yes >= threshold {
		return Outcome{
			Status: types.StatusPassed,
			Reason: fmt.Sprintf("%d of %d eligible voted yes (needed %d)", t.Yes, t.Eligible, threshold),
		}
	}
	// Early reject once yes can no longer reach the threshold.
	if t.No >= t.Eligible-threshold+1 {
		return Outcome{
			Status: types.StatusRejected,
			Reason: fmt.Sprintf("%d of %d eligible voted no; yes can no longer reach %d", t.No, t.Eligible, threshold),
		}
	}
	return undecided()
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
