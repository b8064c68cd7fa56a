package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"conclave/contexts/governance-core/proposal-engine/application/commands"
	"conclave/contexts/governance-core/proposal-engine/application/queries"
	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
	httptransport "conclave/contexts/governance-core/proposal-engine/transport/http"
)

type Handler struct {
	Governance commands.GovernanceUseCase
	Queries    queries.GovernanceQueries
	Logger     *slog.Logger
}

func (h Handler) SubmitProposalHandler(ctx context.Context, userID string, req httptransport.SubmitProposalRequest) (httptransport.ProposalResponse, error) {
	proposal, err := h.Governance.SubmitProposal(ctx, commands.SubmitProposalCommand{
		Proposer:    userID,
		Type:        entities.ProposalType(req.Type),
		Description: req.Description,
		Actions:     actionsFromPayload(req.Actions),
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) GetProposalHandler(ctx context.Context, id uint64) (httptransport.ProposalResponse, error) {
	view, err := h.Queries.GetProposal(ctx, id)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(view.Proposal), nil
}

func (h Handler) ListProposalsHandler(ctx context.Context) (httptransport.ProposalListResponse, error) {
	proposals, err := h.Queries.ListProposals(ctx)
	if err != nil {
		return httptransport.ProposalListResponse{}, err
	}
	items := make([]httptransport.ProposalResponse, 0, len(proposals))
	for _, proposal := range proposals {
		items = append(items, mapProposal(proposal))
	}
	return httptransport.ProposalListResponse{Items: items}, nil
}

func (h Handler) ProposalStatusHandler(ctx context.Context, id uint64) (httptransport.ProposalStatusResponse, error) {
	view, err := h.Queries.GetProposal(ctx, id)
	if err != nil {
		return httptransport.ProposalStatusResponse{}, err
	}
	return httptransport.ProposalStatusResponse{
		ProposalID: view.Proposal.ID,
		Status:     string(view.Proposal.Status),
		Finalized:  view.Finalized,
	}, nil
}

func (h Handler) CastVoteHandler(ctx context.Context, id uint64, userID string, req httptransport.CastVoteRequest) (httptransport.VoteResponse, error) {
	result, err := h.Governance.CastVote(ctx, commands.CastVoteCommand{
		ProposalID: id,
		Voter:      userID,
		Approve:    req.Approve,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		ProposalID: result.Proposal.ID,
		Voter:      userID,
		Approve:    req.Approve,
		Weight:     result.Weight,
		YesWeight:  result.Proposal.YesWeight,
		NoWeight:   result.Proposal.NoWeight,
	}, nil
}

func (h Handler) ProcessProposalHandler(ctx context.Context, id uint64) (httptransport.ProcessResponse, error) {
	result, err := h.Governance.ProcessProposal(ctx, commands.ProcessProposalCommand{ProposalID: id})
	if err != nil {
		return httptransport.ProcessResponse{}, err
	}
	return mapProcessResult(result), nil
}

func (h Handler) CancelProposalHandler(ctx context.Context, id uint64, userID string) error {
	return h.Governance.CancelProposal(ctx, commands.CancelProposalCommand{
		ProposalID: id,
		Caller:     userID,
	})
}

func (h Handler) ParametersHandler(ctx context.Context) (httptransport.ParametersResponse, error) {
	view, err := h.Queries.Parameters(ctx)
	if err != nil {
		return httptransport.ParametersResponse{}, err
	}
	resp := httptransport.ParametersResponse{
		VotingPeriodSeconds:  uint64(view.Parameters.VotingPeriod / time.Second),
		QuorumPercent:        view.Parameters.QuorumPercent,
		SupermajorityPercent: view.Parameters.SupermajorityPercent,
		Paused:               view.Paused,
		PoliciesInitialized:  view.Initialized,
	}
	if view.Initialized {
		resp.Policies = make(map[string]string, len(view.Policies))
		for proposalType, policy := range view.Policies {
			resp.Policies[string(proposalType)] = string(policy)
		}
	}
	return resp, nil
}

func (h Handler) InitPoliciesHandler(ctx context.Context, req httptransport.InitPoliciesRequest) error {
	return h.Governance.InitTallyPolicies(ctx, commands.InitTallyPoliciesCommand{
		Mint: entities.TallyPolicy(req.Mint),
		Burn: entities.TallyPolicy(req.Burn),
		Call: entities.TallyPolicy(req.Call),
		Gov:  entities.TallyPolicy(req.Gov),
	})
}

func (h Handler) ExtensionStatusHandler(ctx context.Context, extension string) (httptransport.ExtensionStatusResponse, error) {
	allowed, err := h.Queries.IsExtensionWhitelisted(ctx, extension)
	if err != nil {
		return httptransport.ExtensionStatusResponse{}, err
	}
	return httptransport.ExtensionStatusResponse{Extension: extension, Whitelisted: allowed}, nil
}

func (h Handler) InvokeExtensionHandler(ctx context.Context, extension string, userID string, req httptransport.InvokeExtensionRequest) (httptransport.InvokeExtensionResponse, error) {
	result, err := h.Governance.InvokeExtension(ctx, commands.InvokeExtensionCommand{
		Caller:    userID,
		Extension: extension,
		Amount:    req.Amount,
		Payload:   req.Payload,
		Mint:      req.Mint,
	})
	if err != nil {
		return httptransport.InvokeExtensionResponse{}, err
	}
	return httptransport.InvokeExtensionResponse{
		Extension: result.Extension,
		AmountOut: result.AmountOut,
	}, nil
}

// BatchHandler executes sub-calls in order. The first failing sub-call
// aborts the batch and re-surfaces its original failure message, wrapped
// with the item index so the caller can locate it.
func (h Handler) BatchHandler(ctx context.Context, userID string, req httptransport.BatchRequest) (httptransport.BatchResponse, error) {
	results := make([]httptransport.BatchItemResult, 0, len(req.Items))
	for i, item := range req.Items {
		result := httptransport.BatchItemResult{Op: item.Op}
		switch item.Op {
		case "submit_proposal":
			if item.Proposal == nil {
				return httptransport.BatchResponse{}, fmt.Errorf("batch item %d: %w", i, domainerrors.ErrInvalidProposalInput)
			}
			resp, err := h.SubmitProposalHandler(ctx, userID, *item.Proposal)
			if err != nil {
				return httptransport.BatchResponse{}, fmt.Errorf("batch item %d: %w", i, err)
			}
			result.Proposal = &resp
		case "cast_vote":
			if item.Vote == nil {
				return httptransport.BatchResponse{}, fmt.Errorf("batch item %d: %w", i, domainerrors.ErrInvalidProposalInput)
			}
			resp, err := h.CastVoteHandler(ctx, item.ProposalID, userID, *item.Vote)
			if err != nil {
				return httptransport.BatchResponse{}, fmt.Errorf("batch item %d: %w", i, err)
			}
			result.Vote = &resp
		case "process_proposal":
			resp, err := h.ProcessProposalHandler(ctx, item.ProposalID)
			if err != nil {
				return httptransport.BatchResponse{}, fmt.Errorf("batch item %d: %w", i, err)
			}
			result.Process = &resp
		case "cancel_proposal":
			if err := h.CancelProposalHandler(ctx, item.ProposalID, userID); err != nil {
				return httptransport.BatchResponse{}, fmt.Errorf("batch item %d: %w", i, err)
			}
		default:
			return httptransport.BatchResponse{}, fmt.Errorf("batch item %d: %w", i, domainerrors.ErrInvalidProposalInput)
		}
		results = append(results, result)
	}
	return httptransport.BatchResponse{Items: results}, nil
}

func actionsFromPayload(payloads []httptransport.ActionPayload) []entities.Action {
	actions := make([]entities.Action, 0, len(payloads))
	for _, payload := range payloads {
		actions = append(actions, entities.Action{
			Target:  payload.Target,
			Amount:  payload.Amount,
			Payload: payload.Payload,
		})
	}
	return actions
}

func mapProposal(proposal entities.Proposal) httptransport.ProposalResponse {
	actions := make([]httptransport.ActionPayload, 0, len(proposal.Actions))
	for _, action := range proposal.Actions {
		actions = append(actions, httptransport.ActionPayload{
			Target:  action.Target,
			Amount:  action.Amount,
			Payload: action.Payload,
		})
	}
	resp := httptransport.ProposalResponse{
		ProposalID:  proposal.ID,
		Type:        string(proposal.Type),
		Description: proposal.Description,
		Proposer:    proposal.Proposer,
		Actions:     actions,
		YesWeight:   proposal.YesWeight,
		NoWeight:    proposal.NoWeight,
		Status:      string(proposal.Status),
		Passed:      proposal.Passed,
		CreatedAt:   proposal.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !proposal.FinalizedAt.IsZero() {
		resp.FinalizedAt = proposal.FinalizedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func mapProcessResult(result commands.ProcessResult) httptransport.ProcessResponse {
	calls := make([]httptransport.CallResultPayload, 0, len(result.CallResults))
	for _, call := range result.CallResults {
		calls = append(calls, httptransport.CallResultPayload{
			Target: call.Target,
			Output: call.Output,
			Error:  call.Err,
		})
	}
	return httptransport.ProcessResponse{
		ProposalID:  result.ProposalID,
		Passed:      result.Passed,
		CallResults: calls,
	}
}
