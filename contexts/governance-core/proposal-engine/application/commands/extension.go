package commands

import (
	"context"
	"strings"

	application "conclave/contexts/governance-core/proposal-engine/application"
	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
)

// InvokeExtensionCommand lets a whitelisted module request a privileged
// mint or burn on behalf of the calling member.
type InvokeExtensionCommand struct {
	Caller    string
	Extension string
	Amount    uint64
	Payload   []byte
	Mint      bool
}

// InvokeExtensionResult reports the quantity minted (mint direction) or
// burned (burn direction).
type InvokeExtensionResult struct {
	Extension string
	AmountOut uint64
}

// InvokeExtension is the single supply-mutation path outside the proposal
// pipeline. It is gated purely by prior governance approval of the
// whitelist entry: the extension's own accounting decides the mint output,
// the engine only applies it under the reentrancy guard.
func (uc GovernanceUseCase) InvokeExtension(ctx context.Context, cmd InvokeExtensionCommand) (InvokeExtensionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	extension := strings.TrimSpace(cmd.Extension)
	if caller == "" || extension == "" {
		return InvokeExtensionResult{}, domainerrors.ErrInvalidProposalInput
	}

	if err := uc.Guard.Acquire(); err != nil {
		return InvokeExtensionResult{}, err
	}
	defer uc.Guard.Release()

	allowed, err := uc.Extensions.IsExtensionWhitelisted(ctx, extension)
	if err != nil {
		return InvokeExtensionResult{}, err
	}
	if !allowed {
		logger.Warn("extension invocation denied",
			"event", "governance_extension_denied",
			"module", "governance-core/proposal-engine",
			"layer", "application",
			"extension", extension,
			"caller", caller,
		)
		return InvokeExtensionResult{}, domainerrors.ErrExtensionNotWhitelisted
	}

	amountOut, err := uc.Gateway.CallExtension(ctx, extension, caller, cmd.Amount, cmd.Payload)
	if err != nil {
		return InvokeExtensionResult{}, err
	}

	if cmd.Mint {
		if err := uc.Ledger.Mint(ctx, caller, amountOut); err != nil {
			return InvokeExtensionResult{}, err
		}
	} else {
		amountOut = cmd.Amount
		if err := uc.Ledger.Burn(ctx, caller, cmd.Amount); err != nil {
			return InvokeExtensionResult{}, err
		}
	}

	logger.Info("extension invoked",
		"event", "governance_extension_invoked",
		"module", "governance-core/proposal-engine",
		"layer", "application",
		"extension", extension,
		"caller", caller,
		"mint", cmd.Mint,
		"amount_out", amountOut,
	)
	return InvokeExtensionResult{Extension: extension, AmountOut: amountOut}, nil
}
