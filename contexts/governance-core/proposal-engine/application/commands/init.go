package commands

import (
	"context"

	application "conclave/contexts/governance-core/proposal-engine/application"
	"conclave/contexts/governance-core/proposal-engine/domain/entities"
)

// InitTallyPoliciesCommand fixes the tally-policy table from four input
// policy values: mint, burn and call map individually, the five
// governance-parameter types share Gov.
type InitTallyPoliciesCommand struct {
	Mint entities.TallyPolicy
	Burn entities.TallyPolicy
	Call entities.TallyPolicy
	Gov  entities.TallyPolicy
}

// InitTallyPolicies sets the table behind a one-shot latch. The first
// successful call permanently forbids further writes.
func (uc GovernanceUseCase) InitTallyPolicies(ctx context.Context, cmd InitTallyPoliciesCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	table, err := entities.BuildPolicyTable(cmd.Mint, cmd.Burn, cmd.Call, cmd.Gov)
	if err != nil {
		return err
	}
	if err := uc.Params.InitPolicyTable(ctx, table); err != nil {
		return err
	}
	logger.Info("tally policies initialized",
		"event", "governance_policies_initialized",
		"module", "governance-core/proposal-engine",
		"layer", "application",
		"mint", string(cmd.Mint),
		"burn", string(cmd.Burn),
		"call", string(cmd.Call),
		"gov", string(cmd.Gov),
	)
	return nil
}
