package commands

import (
	"context"
	"strings"
	"time"

	application "conclave/contexts/governance-core/proposal-engine/application"
	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
)

// SubmitProposalCommand is the write-model input for proposal creation.
type SubmitProposalCommand struct {
	Proposer    string
	Type        entities.ProposalType
	Description string
	Actions     []entities.Action
}

// CancelProposalCommand retracts an unsponsored proposal before any vote
// lands. It exists for the escrow collaborator, which stakes tribute
// against a proposal and needs a way out while the proposal is untouched.
type CancelProposalCommand struct {
	ProposalID uint64
	Caller     string
}

// SubmitProposal validates the action batch and type-specific bounds,
// assigns the next sequential identifier and emits proposal.created.
func (uc GovernanceUseCase) SubmitProposal(ctx context.Context, cmd SubmitProposalCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposer := strings.TrimSpace(cmd.Proposer)
	logger.Info("proposal submission started",
		"event", "governance_proposal_submit_started",
		"module", "governance-core/proposal-engine",
		"layer", "application",
		"proposer", proposer,
		"proposal_type", string(cmd.Type),
	)

	if proposer == "" || !cmd.Type.Valid() {
		logger.Warn("proposal submission validation failed",
			"event", "governance_proposal_submit_validation_failed",
			"module", "governance-core/proposal-engine",
			"layer", "application",
			"proposer", proposer,
			"proposal_type", string(cmd.Type),
		)
		return entities.Proposal{}, domainerrors.ErrInvalidProposalInput
	}
	if len(cmd.Actions) == 0 {
		return entities.Proposal{}, domainerrors.ErrInvalidProposalInput
	}
	if len(cmd.Actions) > entities.MaxProposalActions {
		return entities.Proposal{}, domainerrors.ErrTooManyActions
	}
	if err := validateTypedActions(cmd.Type, cmd.Actions); err != nil {
		return entities.Proposal{}, err
	}

	balance, err := uc.Ledger.BalanceOf(ctx, proposer)
	if err != nil {
		return entities.Proposal{}, err
	}
	if balance == 0 {
		return entities.Proposal{}, domainerrors.ErrNoVotingWeight
	}

	now := uc.now()
	proposal := entities.Proposal{
		Type:        cmd.Type,
		Description: strings.TrimSpace(cmd.Description),
		Proposer:    proposer,
		Actions:     cmd.Actions,
		Status:      entities.ProposalStatusOpen,
		CreatedAt:   now,
	}
	id, err := uc.Proposals.CreateProposal(ctx, proposal)
	if err != nil {
		return entities.Proposal{}, err
	}
	proposal.ID = id

	if err := uc.appendProposalEvent(ctx, "proposal.created", proposal, now, map[string]any{
		"proposal_type": string(proposal.Type),
		"proposer":      proposal.Proposer,
		"actions":       len(proposal.Actions),
	}); err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("proposal created",
		"event", "governance_proposal_created",
		"module", "governance-core/proposal-engine",
		"layer", "application",
		"proposal_id", proposal.ID,
		"proposal_type", string(proposal.Type),
		"proposer", proposal.Proposer,
	)
	return proposal, nil
}

// CancelProposal retracts a proposal that has no recorded votes. Only the
// proposer may cancel; the cancelled record stays terminal so the
// sequential gate of its successor is satisfied.
func (uc GovernanceUseCase) CancelProposal(ctx context.Context, cmd CancelProposalCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	if caller == "" {
		return domainerrors.ErrInvalidProposalInput
	}

	proposal, err := uc.Proposals.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return err
	}
	if proposal.Status != entities.ProposalStatusOpen {
		return domainerrors.ErrAlreadyProcessed
	}
	if !strings.EqualFold(proposal.Proposer, caller) {
		return domainerrors.ErrNotProposer
	}
	if proposal.HasVotes() {
		return domainerrors.ErrProposalHasVotes
	}

	now := uc.now()
	if err := uc.Proposals.FinalizeProposal(ctx, proposal.ID, entities.ProposalStatusCancelled, false, now); err != nil {
		return err
	}
	proposal.Status = entities.ProposalStatusCancelled
	if err := uc.appendProposalEvent(ctx, "proposal.cancelled", proposal, now, nil); err != nil {
		return err
	}

	logger.Info("proposal cancelled",
		"event", "governance_proposal_cancelled",
		"module", "governance-core/proposal-engine",
		"layer", "application",
		"proposal_id", proposal.ID,
		"caller", caller,
	)
	return nil
}

// validateTypedActions enforces the proposal-type preconditions carried by
// the leading action. The same bounds are revalidated at execution time.
func validateTypedActions(proposalType entities.ProposalType, actions []entities.Action) error {
	amount := actions[0].Amount
	switch proposalType {
	case entities.ProposalTypeVotingPeriod:
		// Compared in whole seconds; converting first would overflow the
		// duration type for amounts near the int64 ceiling.
		if amount > uint64(entities.MaxVotingPeriod/time.Second) {
			return domainerrors.ErrVotingPeriodBounds
		}
	case entities.ProposalTypeQuorum:
		if amount > 100 {
			return domainerrors.ErrQuorumBounds
		}
	case entities.ProposalTypeSupermajority:
		if amount <= entities.MinSupermajorityPercent || amount > 100 {
			return domainerrors.ErrSupermajorityBounds
		}
	case entities.ProposalTypeExtension:
		if strings.TrimSpace(actions[0].Target) == "" {
			return domainerrors.ErrInvalidProposalInput
		}
	case entities.ProposalTypeMint, entities.ProposalTypeBurn:
		for _, action := range actions {
			if strings.TrimSpace(action.Target) == "" {
				return domainerrors.ErrInvalidProposalInput
			}
		}
	}
	return nil
}
