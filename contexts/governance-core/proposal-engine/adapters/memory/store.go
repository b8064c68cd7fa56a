package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
	"conclave/contexts/governance-core/proposal-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message ports.OutboxMessage
	sent    bool
}

// Store is the in-memory proposal registry, parameter aggregate and
// extension whitelist. Proposals live in a dense slice so identifier
// assignment is sequential by construction.
type Store struct {
	mu sync.RWMutex

	proposals []entities.Proposal
	voted     map[uint64]map[string]bool

	params      entities.GovernanceParameters
	policies    entities.PolicyTable
	policiesSet bool

	extensions map[string]bool
	outbox     map[string]outboxRecord
}

func NewStore(params entities.GovernanceParameters) *Store {
	return &Store{
		voted:      make(map[uint64]map[string]bool),
		params:     params,
		extensions: make(map[string]bool),
		outbox:     make(map[string]outboxRecord),
	}
}

func (s *Store) CreateProposal(_ context.Context, proposal entities.Proposal) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal.ID = uint64(len(s.proposals))
	s.proposals = append(s.proposals, proposal)
	s.voted[proposal.ID] = make(map[string]bool)
	return proposal.ID, nil
}

func (s *Store) GetProposal(_ context.Context, id uint64) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= uint64(len(s.proposals)) {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return s.proposals[id], nil
}

func (s *Store) ProposalCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.proposals)), nil
}

func (s *Store) ListProposals(_ context.Context) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Proposal, len(s.proposals))
	copy(items, s.proposals)
	return items, nil
}

func (s *Store) HasVoted(_ context.Context, id uint64, voter string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= uint64(len(s.proposals)) {
		return false, domainerrors.ErrProposalNotFound
	}
	return s.voted[id][strings.TrimSpace(voter)], nil
}

// RecordVote re-checks membership under the write lock so a duplicate can
// never slip between check and mutation.
func (s *Store) RecordVote(_ context.Context, id uint64, voter string, approve bool, weight uint64) (entities.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id >= uint64(len(s.proposals)) {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	voter = strings.TrimSpace(voter)
	if s.voted[id][voter] {
		return entities.Proposal{}, domainerrors.ErrAlreadyVoted
	}
	s.voted[id][voter] = true
	if approve {
		s.proposals[id].YesWeight += weight
	} else {
		s.proposals[id].NoWeight += weight
	}
	return s.proposals[id], nil
}

func (s *Store) FinalizeProposal(_ context.Context, id uint64, status entities.ProposalStatus, passed bool, finalizedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id >= uint64(len(s.proposals)) {
		return domainerrors.ErrProposalNotFound
	}
	s.proposals[id].Status = status
	s.proposals[id].Passed = passed
	s.proposals[id].FinalizedAt = finalizedAt.UTC()
	return nil
}

func (s *Store) GetParameters(_ context.Context) (entities.GovernanceParameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params, nil
}

func (s *Store) SaveParameters(_ context.Context, params entities.GovernanceParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = params
	return nil
}

func (s *Store) GetPolicyTable(_ context.Context) (entities.PolicyTable, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.policiesSet {
		return nil, false, nil
	}
	table := make(entities.PolicyTable, len(s.policies))
	for key, value := range s.policies {
		table[key] = value
	}
	return table, true, nil
}

func (s *Store) InitPolicyTable(_ context.Context, table entities.PolicyTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.policiesSet {
		return domainerrors.ErrPoliciesLatched
	}
	s.policies = table
	s.policiesSet = true
	return nil
}

func (s *Store) IsExtensionWhitelisted(_ context.Context, extension string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extensions[strings.TrimSpace(extension)], nil
}

func (s *Store) ToggleExtension(_ context.Context, extension string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(extension)
	s.extensions[key] = !s.extensions[key]
	return s.extensions[key], nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.sent {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.sent = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
