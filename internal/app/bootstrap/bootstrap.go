package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	proposalengine "conclave/contexts/governance-core/proposal-engine"
	"conclave/contexts/governance-core/proposal-engine/adapters/memory"
	postgresadapter "conclave/contexts/governance-core/proposal-engine/adapters/postgres"
	"conclave/contexts/governance-core/proposal-engine/application/workers"
	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	"conclave/contexts/governance-core/proposal-engine/ports"
	"conclave/internal/platform/config"
	"conclave/internal/platform/db"
	"conclave/internal/platform/httpserver"
	"conclave/internal/platform/messaging"
	"conclave/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server       *httpserver.Server
	postgres     *db.Postgres
	outboxRelay  *workers.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	bus          *messaging.Kafka
	outboxRelay  workers.OutboxRelay
	mirrorTopics []string
	mirrorGroup  string
	enableMirror bool
	enableRelay  bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	charter := charterFromConfig(cfg)

	// Without a DSN the process runs entirely in memory, seeded from the
	// founding charter. The in-memory outbox is relayed by this process
	// because no worker shares its state.
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		module, err := proposalengine.NewInMemoryModule(charter, nil, logger)
		if err != nil {
			return nil, err
		}

		app := &APIApp{
			server:       httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort)),
			pollInterval: cfg.OutboxRelayEvery,
			logger:       logger,
		}
		if cfg.EnableOutboxRelay {
			bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
			if err != nil {
				return nil, err
			}
			app.outboxRelay = &workers.OutboxRelay{
				Outbox:    module.Store,
				Publisher: bus,
				Clock:     module.Store,
				BatchSize: cfg.OutboxRelayBatch,
				Logger:    logger,
			}
		}
		return app, nil
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	module, err := buildPostgresModule(pg, charter, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	return &APIApp{
		server:   httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort)),
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	charter := charterFromConfig(cfg)

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	var outbox ports.OutboxRepository
	var clock ports.Clock
	var pg *db.Postgres
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		store := memory.NewStore(charter.Parameters)
		outbox = store
		clock = store
	} else {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.Migrate(context.Background()); err != nil {
			_ = pg.Close()
			return nil, err
		}
		outbox = repo
		clock = postgresadapter.SystemClock{}
	}

	return &WorkerApp{
		postgres: pg,
		bus:      bus,
		outboxRelay: workers.OutboxRelay{
			Outbox:    outbox,
			Publisher: bus,
			Clock:     clock,
			BatchSize: cfg.OutboxRelayBatch,
			Logger:    logger,
		},
		mirrorTopics: cfg.EventMirrorTopics,
		mirrorGroup:  cfg.EventMirrorGroupID,
		enableMirror: cfg.EnableEventMirror,
		enableRelay:  cfg.EnableOutboxRelay,
		pollInterval: cfg.OutboxRelayEvery,
		logger:       logger,
	}, nil
}

func buildPostgresModule(pg *db.Postgres, charter entities.FoundingCharter, logger *slog.Logger) (proposalengine.Module, error) {
	repo := postgresadapter.NewRepository(pg.DB, logger)
	ctx := context.Background()
	if err := repo.Migrate(ctx); err != nil {
		return proposalengine.Module{}, err
	}
	if err := repo.EnsureParameters(ctx, charter.Parameters); err != nil {
		return proposalengine.Module{}, err
	}

	// The token ledger is the reference in-memory collaborator even when
	// proposals persist to postgres.
	if err := charter.Validate(); err != nil {
		return proposalengine.Module{}, err
	}
	clock := postgresadapter.SystemClock{}
	ledger, err := memory.NewLedger(charter, clock)
	if err != nil {
		return proposalengine.Module{}, err
	}

	module := proposalengine.NewModule(proposalengine.Dependencies{
		Proposals:  repo,
		Params:     repo,
		Extensions: repo,
		Ledger:     ledger,
		Caller:     memory.NewCallRouter(),
		Gateway:    memory.NewExtensionHub(),
		Outbox:     repo,
		Clock:      clock,
		IDGen:      postgresadapter.UUIDGenerator{},
		Logger:     logger,
	})
	module.Ledger = ledger
	return module, nil
}

func charterFromConfig(cfg config.Config) entities.FoundingCharter {
	members := make([]entities.FoundingMember, 0, len(cfg.GovMembers))
	for _, member := range cfg.GovMembers {
		members = append(members, entities.FoundingMember{
			Account: member.Account,
			Weight:  member.Weight,
		})
	}
	return entities.FoundingCharter{
		Name:    cfg.GovName,
		Symbol:  cfg.GovSymbol,
		Paused:  cfg.GovPaused,
		Members: members,
		Parameters: entities.GovernanceParameters{
			VotingPeriod:         cfg.GovVotingPeriod,
			QuorumPercent:        cfg.GovQuorumPercent,
			SupermajorityPercent: cfg.GovSupermajorityPercent,
		},
	}
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}

	if a.outboxRelay != nil {
		go func() {
			ticker := time.NewTicker(a.pollInterval)
			defer ticker.Stop()
			for {
				if err := a.outboxRelay.RunOnce(ctx); err != nil && a.logger != nil {
					a.logger.Error("outbox relay cycle failed",
						"event", "bootstrap_outbox_relay_failed",
						"module", "internal/app/bootstrap",
						"layer", "platform",
						"error", err.Error(),
					)
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}

	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.enableMirror {
		for _, topic := range w.mirrorTopics {
			topic := topic
			err := w.bus.Subscribe(ctx, topic, w.mirrorGroup, func(_ context.Context, event ports.EventEnvelope) error {
				metrics.OutboxPublished.Inc()
				w.logger.Info("governance event observed",
					"event", "bootstrap_event_mirrored",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"topic", topic,
					"event_id", event.EventID,
					"event_type", event.EventType,
					"partition_key", event.PartitionKey,
				)
				return nil
			})
			if err != nil {
				return err
			}
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.enableRelay {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
