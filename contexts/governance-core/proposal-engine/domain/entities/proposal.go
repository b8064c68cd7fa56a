package entities

import "time"

type ProposalType string

const (
	ProposalTypeMint          ProposalType = "mint"
	ProposalTypeBurn          ProposalType = "burn"
	ProposalTypeCall          ProposalType = "call"
	ProposalTypeVotingPeriod  ProposalType = "voting_period"
	ProposalTypeQuorum        ProposalType = "quorum"
	ProposalTypeSupermajority ProposalType = "supermajority"
	ProposalTypePause         ProposalType = "pause"
	ProposalTypeExtension     ProposalType = "extension"
)

func (t ProposalType) Valid() bool {
	switch t {
	case ProposalTypeMint, ProposalTypeBurn, ProposalTypeCall,
		ProposalTypeVotingPeriod, ProposalTypeQuorum, ProposalTypeSupermajority,
		ProposalTypePause, ProposalTypeExtension:
		return true
	default:
		return false
	}
}

// GovernsParameters reports whether the type shares the single "gov" tally
// policy slot. Mint, burn and call each carry their own policy.
func (t ProposalType) GovernsParameters() bool {
	switch t {
	case ProposalTypeVotingPeriod, ProposalTypeQuorum, ProposalTypeSupermajority,
		ProposalTypePause, ProposalTypeExtension:
		return true
	default:
		return false
	}
}

// MaxProposalActions caps the action batch carried by one proposal.
const MaxProposalActions = 10

// Action is one ordered entry of a proposal's action batch. Target and
// Amount are interpreted per proposal type; Payload is opaque call data.
type Action struct {
	Target  string
	Amount  uint64
	Payload []byte
}

type ProposalStatus string

const (
	ProposalStatusOpen      ProposalStatus = "open"
	ProposalStatusFinalized ProposalStatus = "finalized"
	ProposalStatusCancelled ProposalStatus = "cancelled"
)

type Proposal struct {
	ID          uint64
	Type        ProposalType
	Description string
	Proposer    string
	Actions     []Action
	YesWeight   uint64
	NoWeight    uint64
	Status      ProposalStatus
	Passed      bool
	CreatedAt   time.Time
	FinalizedAt time.Time
}

// Terminal reports whether the proposal reached a final state. Cancelled
// counts as terminal so it satisfies the sequential-finalization gate for
// its successor.
func (p Proposal) Terminal() bool {
	return p.Status == ProposalStatusFinalized || p.Status == ProposalStatusCancelled
}

// VotingEndsAt returns the close of the voting window under the supplied
// period. Votes are accepted up to and including this instant; tallying
// requires strictly passing it.
func (p Proposal) VotingEndsAt(period time.Duration) time.Time {
	return p.CreatedAt.Add(period)
}

func (p Proposal) HasVotes() bool {
	return p.YesWeight != 0 || p.NoWeight != 0
}

// CallResult captures the raw outcome of one external call action. A failed
// sub-call does not abort the batch; the failure is surfaced here instead.
type CallResult struct {
	Target string
	Output []byte
	Err    string
}
