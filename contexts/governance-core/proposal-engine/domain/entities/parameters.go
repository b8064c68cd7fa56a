package entities

import (
	"time"

	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
)

// MaxVotingPeriod bounds the voting window so deadline arithmetic can never
// overflow a timestamp addition.
const MaxVotingPeriod = 365 * 24 * time.Hour

// MinSupermajorityPercent is the exclusive lower bound for supermajority.
// Validated at construction and at every later mutation site, never only once.
const MinSupermajorityPercent = 51

type TallyPolicy string

const (
	TallyPolicyMajority            TallyPolicy = "majority"
	TallyPolicyMajorityQuorum      TallyPolicy = "majority_quorum"
	TallyPolicySupermajority       TallyPolicy = "supermajority"
	TallyPolicySupermajorityQuorum TallyPolicy = "supermajority_quorum"
)

func (p TallyPolicy) Valid() bool {
	switch p {
	case TallyPolicyMajority, TallyPolicyMajorityQuorum,
		TallyPolicySupermajority, TallyPolicySupermajorityQuorum:
		return true
	default:
		return false
	}
}

func (p TallyPolicy) RequiresQuorum() bool {
	return p == TallyPolicyMajorityQuorum || p == TallyPolicySupermajorityQuorum
}

func (p TallyPolicy) RequiresSupermajority() bool {
	return p == TallyPolicySupermajority || p == TallyPolicySupermajorityQuorum
}

// PolicyTable maps every proposal type to its tally policy. Assigned exactly
// once through the initialization latch and immutable afterwards.
type PolicyTable map[ProposalType]TallyPolicy

// BuildPolicyTable expands the four input policy values across the eight
// proposal types: mint, burn and call map individually, the five
// governance-parameter types share gov.
func BuildPolicyTable(mint, burn, call, gov TallyPolicy) (PolicyTable, error) {
	for _, policy := range []TallyPolicy{mint, burn, call, gov} {
		if !policy.Valid() {
			return nil, domainerrors.ErrInvalidTallyPolicy
		}
	}
	return PolicyTable{
		ProposalTypeMint:          mint,
		ProposalTypeBurn:          burn,
		ProposalTypeCall:          call,
		ProposalTypeVotingPeriod:  gov,
		ProposalTypeQuorum:        gov,
		ProposalTypeSupermajority: gov,
		ProposalTypePause:         gov,
		ProposalTypeExtension:     gov,
	}, nil
}

// GovernanceParameters is the mutable governance aggregate. It is owned by
// the proposal registry and mutated only through passed governance-type
// proposals.
type GovernanceParameters struct {
	VotingPeriod         time.Duration
	QuorumPercent        uint64
	SupermajorityPercent uint64
}

func (g GovernanceParameters) Validate() error {
	if g.VotingPeriod <= 0 || g.VotingPeriod > MaxVotingPeriod {
		return domainerrors.ErrVotingPeriodBounds
	}
	if g.QuorumPercent > 100 {
		return domainerrors.ErrQuorumBounds
	}
	if g.SupermajorityPercent <= MinSupermajorityPercent || g.SupermajorityPercent > 100 {
		return domainerrors.ErrSupermajorityBounds
	}
	return nil
}

// DecideOutcome evaluates one proposal tally under the supplied policy.
// Quorum compares combined turnout against totalSupply*quorum/100 with
// integer truncation; the supermajority floor is (yes+no)*super/100.
func DecideOutcome(policy TallyPolicy, yes, no, totalSupply, quorumPct, superPct uint64) bool {
	if policy.RequiresQuorum() {
		minVotes := totalSupply * quorumPct / 100
		if yes+no < minVotes {
			return false
		}
	}
	if policy.RequiresSupermajority() {
		minYes := (yes + no) * superPct / 100
		return yes >= minYes
	}
	return yes > no
}

// FoundingMember seeds one account with initial voting weight.
type FoundingMember struct {
	Account string
	Weight  uint64
}

// FoundingCharter is the construction-time parameter set. Bounds are the
// same ones enforced on every runtime mutation path.
type FoundingCharter struct {
	Name       string
	Symbol     string
	Paused     bool
	Members    []FoundingMember
	Parameters GovernanceParameters
}

func (c FoundingCharter) Validate() error {
	if c.Name == "" || c.Symbol == "" {
		return domainerrors.ErrInvalidCharter
	}
	for _, member := range c.Members {
		if member.Account == "" || member.Weight == 0 {
			return domainerrors.ErrInvalidCharter
		}
	}
	return c.Parameters.Validate()
}
