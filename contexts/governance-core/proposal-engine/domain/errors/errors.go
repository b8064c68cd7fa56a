package errors

import "errors"

// Validation failures.
var (
	ErrInvalidProposalInput = errors.New("invalid proposal input")
	ErrTooManyActions       = errors.New("proposal action batch exceeds limit")
	ErrVotingPeriodBounds   = errors.New("voting period out of bounds")
	ErrQuorumBounds         = errors.New("quorum out of bounds")
	ErrSupermajorityBounds  = errors.New("supermajority out of bounds")
	ErrInvalidTallyPolicy   = errors.New("invalid tally policy")
	ErrInvalidCharter       = errors.New("invalid founding charter")
)

// Authorization failures.
var (
	ErrNoVotingWeight          = errors.New("caller holds no voting weight")
	ErrNotProposer             = errors.New("caller is not the proposer")
	ErrExtensionNotWhitelisted = errors.New("extension is not whitelisted")
)

// State failures.
var (
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrAlreadyVoted       = errors.New("voter already voted on this proposal")
	ErrAlreadyProcessed   = errors.New("proposal already processed")
	ErrVotingWindowClosed = errors.New("voting window is closed")
	ErrVotingWindowOpen   = errors.New("voting window has not elapsed")
	ErrPredecessorPending = errors.New("previous proposal not yet finalized")
	ErrProposalHasVotes   = errors.New("proposal already received votes")
	ErrPoliciesLatched    = errors.New("tally policies already initialized")
	ErrPoliciesNotSet     = errors.New("tally policies not initialized")
)

// ErrReentrantCall rejects re-entry into a guarded entry point while the
// governance latch is held.
var ErrReentrantCall = errors.New("reentrant call rejected")

// ErrConflict covers storage-level write conflicts.
var ErrConflict = errors.New("governance state conflict")

// ErrSupplyOverflow is returned by the token collaborator when a mint would
// overflow total supply.
var ErrSupplyOverflow = errors.New("total supply overflow")

// ErrInsufficientBalance is returned by the token collaborator on burns
// exceeding the holder's balance.
var ErrInsufficientBalance = errors.New("insufficient balance")
