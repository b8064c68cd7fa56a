package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	"conclave/contexts/governance-core/proposal-engine/ports"
)

// appendProposalEvent persists a governance event through the outbox.
// Events are partitioned by proposal id so downstream consumers observe a
// stable per-proposal ordering. A nil outbox is a no-op for pure test
// wiring.
func (uc GovernanceUseCase) appendProposalEvent(
	ctx context.Context,
	eventType string,
	proposal entities.Proposal,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"proposal_id":   proposal.ID,
		"proposal_type": string(proposal.Type),
		"status":        string(proposal.Status),
		"occurred_at":   occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "proposal-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "proposal_id",
		PartitionKey:     strconv.FormatUint(proposal.ID, 10),
		Data:             payload,
	})
}
