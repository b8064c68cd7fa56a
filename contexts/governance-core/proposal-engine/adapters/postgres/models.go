package postgresadapter

import (
	"encoding/json"
	"time"

	"conclave/contexts/governance-core/proposal-engine/domain/entities"
)

type proposalModel struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	Type        string `gorm:"column:proposal_type"`
	Description string `gorm:"column:description"`
	Proposer    string `gorm:"column:proposer;index"`
	Actions     []byte `gorm:"column:actions;type:jsonb"`
	YesWeight   uint64 `gorm:"column:yes_weight"`
	NoWeight    uint64 `gorm:"column:no_weight"`
	Status      string `gorm:"column:status;index"`
	Passed      bool   `gorm:"column:passed"`
	CreatedAt   time.Time
	FinalizedAt *time.Time `gorm:"column:finalized_at"`
}

func (proposalModel) TableName() string { return "governance_proposals" }

type actionRow struct {
	Target  string `json:"target"`
	Amount  uint64 `json:"amount"`
	Payload []byte `json:"payload,omitempty"`
}

func proposalModelFromEntity(proposal entities.Proposal) (proposalModel, error) {
	rows := make([]actionRow, 0, len(proposal.Actions))
	for _, action := range proposal.Actions {
		rows = append(rows, actionRow{Target: action.Target, Amount: action.Amount, Payload: action.Payload})
	}
	actions, err := json.Marshal(rows)
	if err != nil {
		return proposalModel{}, err
	}
	row := proposalModel{
		ID:          proposal.ID,
		Type:        string(proposal.Type),
		Description: proposal.Description,
		Proposer:    proposal.Proposer,
		Actions:     actions,
		YesWeight:   proposal.YesWeight,
		NoWeight:    proposal.NoWeight,
		Status:      string(proposal.Status),
		Passed:      proposal.Passed,
		CreatedAt:   proposal.CreatedAt.UTC(),
	}
	if !proposal.FinalizedAt.IsZero() {
		finalizedAt := proposal.FinalizedAt.UTC()
		row.FinalizedAt = &finalizedAt
	}
	return row, nil
}

func (m proposalModel) toEntity() (entities.Proposal, error) {
	var rows []actionRow
	if len(m.Actions) > 0 {
		if err := json.Unmarshal(m.Actions, &rows); err != nil {
			return entities.Proposal{}, err
		}
	}
	actions := make([]entities.Action, 0, len(rows))
	for _, row := range rows {
		actions = append(actions, entities.Action{Target: row.Target, Amount: row.Amount, Payload: row.Payload})
	}
	proposal := entities.Proposal{
		ID:          m.ID,
		Type:        entities.ProposalType(m.Type),
		Description: m.Description,
		Proposer:    m.Proposer,
		Actions:     actions,
		YesWeight:   m.YesWeight,
		NoWeight:    m.NoWeight,
		Status:      entities.ProposalStatus(m.Status),
		Passed:      m.Passed,
		CreatedAt:   m.CreatedAt.UTC(),
	}
	if m.FinalizedAt != nil {
		proposal.FinalizedAt = m.FinalizedAt.UTC()
	}
	return proposal, nil
}

type voteModel struct {
	ID         string `gorm:"column:id;primaryKey"`
	ProposalID uint64 `gorm:"column:proposal_id;uniqueIndex:idx_governance_votes_identity"`
	Voter      string `gorm:"column:voter;uniqueIndex:idx_governance_votes_identity"`
	Approve    bool   `gorm:"column:approve"`
	Weight     uint64 `gorm:"column:weight"`
	CreatedAt  time.Time
}

func (voteModel) TableName() string { return "governance_votes" }

type parameterModel struct {
	ID                   uint   `gorm:"column:id;primaryKey"`
	VotingPeriodSeconds  int64  `gorm:"column:voting_period_seconds"`
	QuorumPercent        uint64 `gorm:"column:quorum_percent"`
	SupermajorityPercent uint64 `gorm:"column:supermajority_percent"`
	UpdatedAt            time.Time
}

func (parameterModel) TableName() string { return "governance_parameters" }

type policyModel struct {
	ProposalType string `gorm:"column:proposal_type;primaryKey"`
	Policy       string `gorm:"column:policy"`
	CreatedAt    time.Time
}

func (policyModel) TableName() string { return "governance_tally_policies" }

type extensionModel struct {
	Address     string `gorm:"column:address;primaryKey"`
	Whitelisted bool   `gorm:"column:whitelisted"`
	UpdatedAt   time.Time
}

func (extensionModel) TableName() string { return "governance_extensions" }

type outboxModel struct {
	ID           string `gorm:"column:id;primaryKey"`
	EventType    string `gorm:"column:event_type"`
	PartitionKey string `gorm:"column:partition_key"`
	Payload      []byte `gorm:"column:payload;type:jsonb"`
	Status       string `gorm:"column:status;index"`
	CreatedAt    time.Time
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "governance_outbox" }
