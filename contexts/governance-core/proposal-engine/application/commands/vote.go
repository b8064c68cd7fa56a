package commands

import (
	"context"
	"strings"

	application "conclave/contexts/governance-core/proposal-engine/application"
	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
)

// CastVoteCommand records one member's ballot on an open proposal.
type CastVoteCommand struct {
	ProposalID uint64
	Voter      string
	Approve    bool
}

// CastVoteResult returns the proposal tallies after the vote plus the
// snapshot weight that was applied.
type CastVoteResult struct {
	Proposal entities.Proposal
	Weight   uint64
}

// CastVote records a ballot weighted by the voter's snapshot at proposal
// creation. One ballot per (proposal, voter); the membership is permanent
// for the proposal's lifetime. Acquiring tokens after creation cannot
// inflate an already-open vote.
func (uc GovernanceUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voter := strings.TrimSpace(cmd.Voter)
	if voter == "" {
		return CastVoteResult{}, domainerrors.ErrInvalidProposalInput
	}

	if err := uc.Guard.Acquire(); err != nil {
		logger.Warn("vote rejected by reentrancy guard",
			"event", "governance_vote_reentrancy_rejected",
			"module", "governance-core/proposal-engine",
			"layer", "application",
			"proposal_id", cmd.ProposalID,
			"voter", voter,
		)
		return CastVoteResult{}, err
	}
	defer uc.Guard.Release()

	proposal, err := uc.Proposals.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if proposal.Status != entities.ProposalStatusOpen {
		return CastVoteResult{}, domainerrors.ErrAlreadyProcessed
	}

	voted, err := uc.Proposals.HasVoted(ctx, proposal.ID, voter)
	if err != nil {
		return CastVoteResult{}, err
	}
	if voted {
		return CastVoteResult{}, domainerrors.ErrAlreadyVoted
	}

	balance, err := uc.Ledger.BalanceOf(ctx, voter)
	if err != nil {
		return CastVoteResult{}, err
	}
	if balance == 0 {
		return CastVoteResult{}, domainerrors.ErrNoVotingWeight
	}

	params, err := uc.Params.GetParameters(ctx)
	if err != nil {
		return CastVoteResult{}, err
	}
	// The deadline addition cannot overflow: VotingPeriod is bounded at
	// every mutation site.
	now := uc.now()
	if now.After(proposal.VotingEndsAt(params.VotingPeriod)) {
		return CastVoteResult{}, domainerrors.ErrVotingWindowClosed
	}

	weight, err := uc.Ledger.PriorVotingWeight(ctx, voter, proposal.CreatedAt)
	if err != nil {
		return CastVoteResult{}, err
	}

	updated, err := uc.Proposals.RecordVote(ctx, proposal.ID, voter, cmd.Approve, weight)
	if err != nil {
		return CastVoteResult{}, err
	}

	if err := uc.appendProposalEvent(ctx, "vote.cast", updated, now, map[string]any{
		"voter":   voter,
		"approve": cmd.Approve,
		"weight":  weight,
	}); err != nil {
		return CastVoteResult{}, err
	}

	logger.Info("vote cast",
		"event", "governance_vote_cast",
		"module", "governance-core/proposal-engine",
		"layer", "application",
		"proposal_id", updated.ID,
		"voter", voter,
		"approve", cmd.Approve,
		"weight", weight,
		"yes_weight", updated.YesWeight,
		"no_weight", updated.NoWeight,
	)
	return CastVoteResult{Proposal: updated, Weight: weight}, nil
}
