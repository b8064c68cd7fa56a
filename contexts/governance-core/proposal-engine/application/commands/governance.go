package commands

import (
	"log/slog"
	"time"

	application "conclave/contexts/governance-core/proposal-engine/application"
	"conclave/contexts/governance-core/proposal-engine/ports"
)

// GovernanceUseCase orchestrates the proposal lifecycle: submission,
// snapshot-weighted voting, sequential tally/execution, extension
// invocation, and the one-time tally-policy initialization. All mutations
// run to completion or fail with no partial state; entry points that reach
// external code additionally hold the reentrancy guard.
type GovernanceUseCase struct {
	Proposals  ports.ProposalRepository
	Params     ports.ParameterStore
	Extensions ports.ExtensionRegistry
	Ledger     ports.TokenLedger
	Caller     ports.ExternalCaller
	Gateway    ports.ExtensionGateway
	Outbox     ports.OutboxWriter
	Guard      *application.EntryGuard
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc GovernanceUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
