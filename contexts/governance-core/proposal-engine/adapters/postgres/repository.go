package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
	"conclave/contexts/governance-core/proposal-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"

	parameterRowID = 1
)

// Repository persists the proposal registry, governance parameters, tally
// policies, extension whitelist and outbox in Postgres.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// Migrate creates or updates the governance tables.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&proposalModel{},
		&voteModel{},
		&parameterModel{},
		&policyModel{},
		&extensionModel{},
		&outboxModel{},
	)
}

// EnsureParameters seeds the singleton parameter row on first boot and
// leaves an existing row untouched.
func (r *Repository) EnsureParameters(ctx context.Context, params entities.GovernanceParameters) error {
	row := parameterModel{
		ID:                   parameterRowID,
		VotingPeriodSeconds:  int64(params.VotingPeriod / time.Second),
		QuorumPercent:        params.QuorumPercent,
		SupermajorityPercent: params.SupermajorityPercent,
		UpdatedAt:            time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

// CreateProposal assigns the next dense identifier inside one transaction.
// Two concurrent submitters race on the primary key; the loser's unique
// violation surfaces as a retryable conflict instead of a gap.
func (r *Repository) CreateProposal(ctx context.Context, proposal entities.Proposal) (uint64, error) {
	var assigned uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&proposalModel{}).Count(&count).Error; err != nil {
			return err
		}
		proposal.ID = uint64(count)
		row, err := proposalModelFromEntity(proposal)
		if err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return err
		}
		assigned = proposal.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			return 0, err
		}
		return 0, r.logError("governance_repo_create_proposal_failed", err,
			"proposal_type", string(proposal.Type),
			"proposer", proposal.Proposer,
		)
	}
	return assigned, nil
}

func (r *Repository) GetProposal(ctx context.Context, id uint64) (entities.Proposal, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, r.logError("governance_repo_get_proposal_failed", err, "proposal_id", id)
	}
	return row.toEntity()
}

func (r *Repository) ProposalCount(ctx context.Context) (uint64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&proposalModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (r *Repository) ListProposals(ctx context.Context) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_proposals_failed", err)
	}
	proposals := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		proposal, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, proposal)
	}
	return proposals, nil
}

func (r *Repository) HasVoted(ctx context.Context, id uint64, voter string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&voteModel{}).
		Where("proposal_id = ?", id).
		Where("voter = ?", strings.TrimSpace(voter)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordVote inserts the ballot and bumps the matching accumulator in one
// transaction. The unique (proposal_id, voter) index is the duplicate-vote
// backstop: a violation rolls back with no tally change.
func (r *Repository) RecordVote(ctx context.Context, id uint64, voter string, approve bool, weight uint64) (entities.Proposal, error) {
	var updated entities.Proposal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := voteModel{
			ID:         uuid.NewString(),
			ProposalID: id,
			Voter:      strings.TrimSpace(voter),
			Approve:    approve,
			Weight:     weight,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.Create(&vote).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyVoted
			}
			return err
		}
		column := "no_weight"
		if approve {
			column = "yes_weight"
		}
		result := tx.Model(&proposalModel{}).
			Where("id = ?", id).
			UpdateColumn(column, gorm.Expr(column+" + ?", weight))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrProposalNotFound
		}
		var row proposalModel
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			return err
		}
		proposal, err := row.toEntity()
		if err != nil {
			return err
		}
		updated = proposal
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyVoted) || errors.Is(err, domainerrors.ErrProposalNotFound) {
			return entities.Proposal{}, err
		}
		return entities.Proposal{}, r.logError("governance_repo_record_vote_failed", err,
			"proposal_id", id,
			"voter", strings.TrimSpace(voter),
		)
	}
	return updated, nil
}

func (r *Repository) FinalizeProposal(ctx context.Context, id uint64, status entities.ProposalStatus, passed bool, finalizedAt time.Time) error {
	at := finalizedAt.UTC()
	result := r.db.WithContext(ctx).Model(&proposalModel{}).
		Where("id = ?", id).
		Where("status = ?", string(entities.ProposalStatusOpen)).
		Updates(map[string]any{
			"status":       string(status),
			"passed":       passed,
			"finalized_at": &at,
		})
	if result.Error != nil {
		return r.logError("governance_repo_finalize_failed", result.Error, "proposal_id", id)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAlreadyProcessed
	}
	return nil
}

func (r *Repository) GetParameters(ctx context.Context) (entities.GovernanceParameters, error) {
	var row parameterModel
	err := r.db.WithContext(ctx).Where("id = ?", parameterRowID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.GovernanceParameters{}, domainerrors.ErrConflict
		}
		return entities.GovernanceParameters{}, err
	}
	return entities.GovernanceParameters{
		VotingPeriod:         time.Duration(row.VotingPeriodSeconds) * time.Second,
		QuorumPercent:        row.QuorumPercent,
		SupermajorityPercent: row.SupermajorityPercent,
	}, nil
}

func (r *Repository) SaveParameters(ctx context.Context, params entities.GovernanceParameters) error {
	return r.db.WithContext(ctx).Model(&parameterModel{}).
		Where("id = ?", parameterRowID).
		Updates(map[string]any{
			"voting_period_seconds": int64(params.VotingPeriod / time.Second),
			"quorum_percent":        params.QuorumPercent,
			"supermajority_percent": params.SupermajorityPercent,
			"updated_at":            time.Now().UTC(),
		}).Error
}

func (r *Repository) GetPolicyTable(ctx context.Context) (entities.PolicyTable, bool, error) {
	var rows []policyModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	table := make(entities.PolicyTable, len(rows))
	for _, row := range rows {
		table[entities.ProposalType(row.ProposalType)] = entities.TallyPolicy(row.Policy)
	}
	return table, true, nil
}

// InitPolicyTable writes the full table once. Any existing row means the
// latch is set and the write is rejected.
func (r *Repository) InitPolicyTable(ctx context.Context, table entities.PolicyTable) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&policyModel{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domainerrors.ErrPoliciesLatched
		}
		now := time.Now().UTC()
		for proposalType, policy := range table {
			row := policyModel{
				ProposalType: string(proposalType),
				Policy:       string(policy),
				CreatedAt:    now,
			}
			if err := tx.Create(&row).Error; err != nil {
				if isUniqueViolation(err) {
					return domainerrors.ErrPoliciesLatched
				}
				return err
			}
		}
		return nil
	})
}

func (r *Repository) IsExtensionWhitelisted(ctx context.Context, extension string) (bool, error) {
	var row extensionModel
	err := r.db.WithContext(ctx).Where("address = ?", strings.TrimSpace(extension)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return row.Whitelisted, nil
}

func (r *Repository) ToggleExtension(ctx context.Context, extension string) (bool, error) {
	address := strings.TrimSpace(extension)
	var state bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row extensionModel
		err := tx.Where("address = ?", address).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = extensionModel{Address: address, Whitelisted: true, UpdatedAt: time.Now().UTC()}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			row.Whitelisted = !row.Whitelisted
			row.UpdatedAt = time.Now().UTC()
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		state = row.Whitelisted
		return nil
	})
	if err != nil {
		return false, r.logError("governance_repo_toggle_extension_failed", err, "extension", address)
	}
	return state, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	row := outboxModel{
		ID:           outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return r.logError("governance_repo_append_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("governance_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.ID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	at := sentAt.UTC()
	return r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": &at,
		}).Error
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator is the production event identifier source.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "governance-core/proposal-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
