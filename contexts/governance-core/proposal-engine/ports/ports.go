package ports

import (
	"context"
	"time"

	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	contractsv1 "conclave/contracts/gen/events/v1"
)

// ProposalRepository owns proposal persistence. Identifier assignment is
// strictly sequential starting at 0; vote recording is atomic so a duplicate
// vote can never leave a partial tally behind.
type ProposalRepository interface {
	// CreateProposal assigns the next dense identifier and stores the record.
	CreateProposal(ctx context.Context, proposal entities.Proposal) (uint64, error)
	GetProposal(ctx context.Context, id uint64) (entities.Proposal, error)
	ProposalCount(ctx context.Context) (uint64, error)
	ListProposals(ctx context.Context) ([]entities.Proposal, error)
	HasVoted(ctx context.Context, id uint64, voter string) (bool, error)
	// RecordVote marks the voter and accumulates weight in one write. It
	// fails with ErrAlreadyVoted without touching the tallies.
	RecordVote(ctx context.Context, id uint64, voter string, approve bool, weight uint64) (entities.Proposal, error)
	// FinalizeProposal moves an open proposal to a terminal status.
	FinalizeProposal(ctx context.Context, id uint64, status entities.ProposalStatus, passed bool, finalizedAt time.Time) error
}

// ParameterStore holds the governance aggregate and the one-time tally
// policy latch.
type ParameterStore interface {
	GetParameters(ctx context.Context) (entities.GovernanceParameters, error)
	SaveParameters(ctx context.Context, params entities.GovernanceParameters) error
	// GetPolicyTable reports the table and whether the latch has been set.
	GetPolicyTable(ctx context.Context) (entities.PolicyTable, bool, error)
	// InitPolicyTable sets the table exactly once; later calls fail with
	// ErrPoliciesLatched.
	InitPolicyTable(ctx context.Context, table entities.PolicyTable) error
}

// ExtensionRegistry is the whitelist of modules allowed to request
// privileged mint/burn outside the proposal pipeline.
type ExtensionRegistry interface {
	IsExtensionWhitelisted(ctx context.Context, extension string) (bool, error)
	// ToggleExtension flips membership and returns the new state.
	ToggleExtension(ctx context.Context, extension string) (bool, error)
}

// TokenLedger is the external token collaborator. The ledger owns balance
// tracking, historical voting-weight checkpoints, supply arithmetic and the
// transferability pause flag.
type TokenLedger interface {
	BalanceOf(ctx context.Context, account string) (uint64, error)
	// PriorVotingWeight returns the account's voting weight checkpointed at
	// the supplied instant, immune to later balance changes.
	PriorVotingWeight(ctx context.Context, account string, at time.Time) (uint64, error)
	TotalSupply(ctx context.Context) (uint64, error)
	Mint(ctx context.Context, account string, amount uint64) error
	Burn(ctx context.Context, account string, amount uint64) error
	// DelegateOf resolves the account's delegate; an undelegated account is
	// its own delegate.
	DelegateOf(ctx context.Context, account string) (string, error)
	// MoveDelegation shifts voting weight between delegates; the empty
	// account stands for the null side of a mint or burn.
	MoveDelegation(ctx context.Context, from string, to string, amount uint64) error
	SetPaused(ctx context.Context, paused bool) error
	Paused(ctx context.Context) (bool, error)
}

// ExternalCaller dispatches arbitrary call actions of a passed proposal.
type ExternalCaller interface {
	Call(ctx context.Context, target string, amount uint64, payload []byte) ([]byte, error)
}

// ExtensionGateway reaches a whitelisted extension's own accounting logic
// and returns the quantity the engine should mint to the caller.
type ExtensionGateway interface {
	CallExtension(ctx context.Context, extension string, caller string, amount uint64, payload []byte) (uint64, error)
}

// Clock allows deterministic testing of window and deadline rules.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// OutboxWriter appends an event for asynchronous relay.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
