package commands

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	application "conclave/contexts/governance-core/proposal-engine/application"
	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
)

// ProcessProposalCommand finalizes one proposal after its window elapsed.
type ProcessProposalCommand struct {
	ProposalID uint64
}

// ProcessResult reports the tally outcome and, for call proposals, the raw
// per-action results collected during dispatch.
type ProcessResult struct {
	ProposalID  uint64
	Passed      bool
	CallResults []entities.CallResult
}

// ProcessProposal runs the finalization state machine:
//
//	gate 1: the immediately preceding identifier must be terminal (id 0 exempt)
//	gate 2: the proposal must still be open
//	gate 3: the voting window must have strictly elapsed
//
// then evaluates the type's tally policy and, on pass, dispatches the
// type-specific effects. Pass or fail, the record is finalized and
// proposal.finalized is emitted; failed proposals have no further effect.
func (uc GovernanceUseCase) ProcessProposal(ctx context.Context, cmd ProcessProposalCommand) (ProcessResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("proposal processing started",
		"event", "governance_process_started",
		"module", "governance-core/proposal-engine",
		"layer", "application",
		"proposal_id", cmd.ProposalID,
	)

	if err := uc.Guard.Acquire(); err != nil {
		return ProcessResult{}, err
	}
	defer uc.Guard.Release()

	// Sequential-finalization gate. The explicit id check doubles as the
	// underflow guard for identifier 0. A stalled predecessor blocks every
	// successor; that head-of-line ordering is deliberate and keeps
	// settlement deterministic for downstream collaborators.
	if cmd.ProposalID > 0 {
		prev, err := uc.Proposals.GetProposal(ctx, cmd.ProposalID-1)
		switch {
		case err == nil:
			if !prev.Terminal() {
				return ProcessResult{}, domainerrors.ErrPredecessorPending
			}
		case errors.Is(err, domainerrors.ErrProposalNotFound):
			// Dense identifiers make a missing predecessor unreachable once
			// the proposal itself exists; only that case skips the gate.
		default:
			return ProcessResult{}, err
		}
	}

	proposal, err := uc.Proposals.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return ProcessResult{}, err
	}
	if proposal.Status != entities.ProposalStatusOpen {
		return ProcessResult{}, domainerrors.ErrAlreadyProcessed
	}

	params, err := uc.Params.GetParameters(ctx)
	if err != nil {
		return ProcessResult{}, err
	}
	now := uc.now()
	if !now.After(proposal.VotingEndsAt(params.VotingPeriod)) {
		return ProcessResult{}, domainerrors.ErrVotingWindowOpen
	}

	table, initialized, err := uc.Params.GetPolicyTable(ctx)
	if err != nil {
		return ProcessResult{}, err
	}
	if !initialized {
		return ProcessResult{}, domainerrors.ErrPoliciesNotSet
	}

	totalSupply, err := uc.Ledger.TotalSupply(ctx)
	if err != nil {
		return ProcessResult{}, err
	}
	passed := entities.DecideOutcome(
		table[proposal.Type],
		proposal.YesWeight,
		proposal.NoWeight,
		totalSupply,
		params.QuorumPercent,
		params.SupermajorityPercent,
	)

	result := ProcessResult{ProposalID: proposal.ID, Passed: passed}
	if passed {
		result.CallResults, err = uc.dispatch(ctx, proposal, params)
		if err != nil {
			return ProcessResult{}, err
		}
	}

	if err := uc.Proposals.FinalizeProposal(ctx, proposal.ID, entities.ProposalStatusFinalized, passed, now); err != nil {
		return ProcessResult{}, err
	}
	proposal.Status = entities.ProposalStatusFinalized
	proposal.Passed = passed
	if err := uc.appendProposalEvent(ctx, "proposal.finalized", proposal, now, map[string]any{
		"passed":     passed,
		"yes_weight": proposal.YesWeight,
		"no_weight":  proposal.NoWeight,
	}); err != nil {
		return ProcessResult{}, err
	}

	logger.Info("proposal finalized",
		"event", "governance_proposal_finalized",
		"module", "governance-core/proposal-engine",
		"layer", "application",
		"proposal_id", proposal.ID,
		"proposal_type", string(proposal.Type),
		"passed", passed,
		"yes_weight", proposal.YesWeight,
		"no_weight", proposal.NoWeight,
	)
	return result, nil
}

// dispatch applies the side effects of a passed proposal.
func (uc GovernanceUseCase) dispatch(
	ctx context.Context,
	proposal entities.Proposal,
	params entities.GovernanceParameters,
) ([]entities.CallResult, error) {
	switch proposal.Type {
	case entities.ProposalTypeMint:
		return nil, uc.dispatchMint(ctx, proposal.Actions)
	case entities.ProposalTypeBurn:
		return nil, uc.dispatchBurn(ctx, proposal.Actions)
	case entities.ProposalTypeCall:
		return uc.dispatchCalls(ctx, proposal.Actions), nil
	case entities.ProposalTypeVotingPeriod:
		return nil, uc.dispatchVotingPeriod(ctx, proposal.Actions[0], params)
	case entities.ProposalTypeQuorum:
		return nil, uc.dispatchQuorum(ctx, proposal.Actions[0], params)
	case entities.ProposalTypeSupermajority:
		return nil, uc.dispatchSupermajority(ctx, proposal.Actions[0], params)
	case entities.ProposalTypePause:
		return nil, uc.dispatchPause(ctx, proposal.Actions[0])
	case entities.ProposalTypeExtension:
		return nil, uc.dispatchExtension(ctx, proposal.Actions[0])
	default:
		return nil, domainerrors.ErrInvalidProposalInput
	}
}

// dispatchMint validates the whole batch against the current supply before
// touching the ledger. A rejected action therefore leaves no partial mint
// behind; the entry guard keeps the ledger unchanged between the two passes.
func (uc GovernanceUseCase) dispatchMint(ctx context.Context, actions []entities.Action) error {
	supply, err := uc.Ledger.TotalSupply(ctx)
	if err != nil {
		return err
	}
	delegates := make([]string, len(actions))
	for i, action := range actions {
		if supply > math.MaxUint64-action.Amount {
			return domainerrors.ErrSupplyOverflow
		}
		supply += action.Amount
		delegate, err := uc.Ledger.DelegateOf(ctx, action.Target)
		if err != nil {
			return err
		}
		delegates[i] = delegate
	}
	for i, action := range actions {
		if err := uc.Ledger.Mint(ctx, action.Target, action.Amount); err != nil {
			return err
		}
		if err := uc.Ledger.MoveDelegation(ctx, "", delegates[i], action.Amount); err != nil {
			return err
		}
	}
	return nil
}

// dispatchBurn stages the per-account burn totals first and applies nothing
// until every action clears its balance, so an insufficient balance midway
// through the batch leaves every earlier target untouched.
func (uc GovernanceUseCase) dispatchBurn(ctx context.Context, actions []entities.Action) error {
	staged := make(map[string]uint64)
	delegates := make([]string, len(actions))
	for i, action := range actions {
		target := strings.TrimSpace(action.Target)
		balance, err := uc.Ledger.BalanceOf(ctx, target)
		if err != nil {
			return err
		}
		if action.Amount > balance-staged[target] {
			return domainerrors.ErrInsufficientBalance
		}
		staged[target] += action.Amount
		delegate, err := uc.Ledger.DelegateOf(ctx, target)
		if err != nil {
			return err
		}
		delegates[i] = delegate
	}
	for i, action := range actions {
		if err := uc.Ledger.Burn(ctx, action.Target, action.Amount); err != nil {
			return err
		}
		if err := uc.Ledger.MoveDelegation(ctx, delegates[i], "", action.Amount); err != nil {
			return err
		}
	}
	return nil
}

// dispatchCalls collects each action's raw result. An individual call
// failure is captured, not fatal: finalization effects stay committed
// regardless of a downstream call's success.
func (uc GovernanceUseCase) dispatchCalls(ctx context.Context, actions []entities.Action) []entities.CallResult {
	logger := application.ResolveLogger(uc.Logger)
	results := make([]entities.CallResult, 0, len(actions))
	for _, action := range actions {
		output, err := uc.Caller.Call(ctx, action.Target, action.Amount, action.Payload)
		result := entities.CallResult{Target: action.Target, Output: output}
		if err != nil {
			result.Err = err.Error()
			logger.Warn("call action failed",
				"event", "governance_call_action_failed",
				"module", "governance-core/proposal-engine",
				"layer", "application",
				"target", action.Target,
				"error", err.Error(),
			)
		}
		results = append(results, result)
	}
	return results
}

func (uc GovernanceUseCase) dispatchVotingPeriod(ctx context.Context, action entities.Action, params entities.GovernanceParameters) error {
	if action.Amount == 0 {
		return nil
	}
	// Bounds are checked in whole seconds before the duration conversion;
	// a uint64 second count near the int64 ceiling would otherwise wrap.
	if action.Amount > uint64(entities.MaxVotingPeriod/time.Second) {
		return domainerrors.ErrVotingPeriodBounds
	}
	params.VotingPeriod = time.Duration(action.Amount) * time.Second
	if err := params.Validate(); err != nil {
		return err
	}
	return uc.Params.SaveParameters(ctx, params)
}

func (uc GovernanceUseCase) dispatchQuorum(ctx context.Context, action entities.Action, params entities.GovernanceParameters) error {
	if action.Amount == 0 {
		return nil
	}
	params.QuorumPercent = action.Amount
	if err := params.Validate(); err != nil {
		return err
	}
	return uc.Params.SaveParameters(ctx, params)
}

func (uc GovernanceUseCase) dispatchSupermajority(ctx context.Context, action entities.Action, params entities.GovernanceParameters) error {
	if action.Amount == 0 {
		return nil
	}
	params.SupermajorityPercent = action.Amount
	if err := params.Validate(); err != nil {
		return err
	}
	return uc.Params.SaveParameters(ctx, params)
}

func (uc GovernanceUseCase) dispatchPause(ctx context.Context, action entities.Action) error {
	if action.Amount == 0 {
		return nil
	}
	paused, err := uc.Ledger.Paused(ctx)
	if err != nil {
		return err
	}
	return uc.Ledger.SetPaused(ctx, !paused)
}

func (uc GovernanceUseCase) dispatchExtension(ctx context.Context, action entities.Action) error {
	if action.Amount == 0 {
		return nil
	}
	_, err := uc.Extensions.ToggleExtension(ctx, strings.TrimSpace(action.Target))
	return err
}
