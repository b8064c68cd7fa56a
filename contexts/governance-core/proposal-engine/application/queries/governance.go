package queries

import (
	"context"
	"strings"

	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	"conclave/contexts/governance-core/proposal-engine/ports"
)

// GovernanceQueries serves the read side of the proposal engine. Lookups
// have no side effects.
type GovernanceQueries struct {
	Proposals  ports.ProposalRepository
	Params     ports.ParameterStore
	Extensions ports.ExtensionRegistry
	Ledger     ports.TokenLedger
}

// ProposalView bundles a proposal with its finalization status. CreatedAt
// doubles as the sponsorship signal consumed by the escrow collaborator.
type ProposalView struct {
	Proposal  entities.Proposal
	Finalized bool
}

func (q GovernanceQueries) GetProposal(ctx context.Context, id uint64) (ProposalView, error) {
	proposal, err := q.Proposals.GetProposal(ctx, id)
	if err != nil {
		return ProposalView{}, err
	}
	return ProposalView{Proposal: proposal, Finalized: proposal.Terminal()}, nil
}

func (q GovernanceQueries) ListProposals(ctx context.Context) ([]entities.Proposal, error) {
	return q.Proposals.ListProposals(ctx)
}

// FinalizationStatus reports whether the proposal reached a terminal state.
func (q GovernanceQueries) FinalizationStatus(ctx context.Context, id uint64) (bool, error) {
	proposal, err := q.Proposals.GetProposal(ctx, id)
	if err != nil {
		return false, err
	}
	return proposal.Terminal(), nil
}

// ParametersView exposes the governance aggregate read-only, with the
// policy table when the latch has been set.
type ParametersView struct {
	Parameters  entities.GovernanceParameters
	Policies    entities.PolicyTable
	Initialized bool
	Paused      bool
}

func (q GovernanceQueries) Parameters(ctx context.Context) (ParametersView, error) {
	params, err := q.Params.GetParameters(ctx)
	if err != nil {
		return ParametersView{}, err
	}
	table, initialized, err := q.Params.GetPolicyTable(ctx)
	if err != nil {
		return ParametersView{}, err
	}
	paused, err := q.Ledger.Paused(ctx)
	if err != nil {
		return ParametersView{}, err
	}
	return ParametersView{
		Parameters:  params,
		Policies:    table,
		Initialized: initialized,
		Paused:      paused,
	}, nil
}

func (q GovernanceQueries) IsExtensionWhitelisted(ctx context.Context, extension string) (bool, error) {
	return q.Extensions.IsExtensionWhitelisted(ctx, strings.TrimSpace(extension))
}
