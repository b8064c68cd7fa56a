package proposalengine

import (
	"log/slog"

	httpadapter "conclave/contexts/governance-core/proposal-engine/adapters/http"
	"conclave/contexts/governance-core/proposal-engine/adapters/memory"
	"conclave/contexts/governance-core/proposal-engine/application"
	"conclave/contexts/governance-core/proposal-engine/application/commands"
	"conclave/contexts/governance-core/proposal-engine/application/queries"
	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	"conclave/contexts/governance-core/proposal-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler

	// In-memory wiring extras, populated by NewInMemoryModule.
	Store  *memory.Store
	Ledger *memory.Ledger
	Router *memory.CallRouter
	Hub    *memory.ExtensionHub
}

type Dependencies struct {
	Proposals  ports.ProposalRepository
	Params     ports.ParameterStore
	Extensions ports.ExtensionRegistry
	Ledger     ports.TokenLedger
	Caller     ports.ExternalCaller
	Gateway    ports.ExtensionGateway
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	useCase := commands.GovernanceUseCase{
		Proposals:  deps.Proposals,
		Params:     deps.Params,
		Extensions: deps.Extensions,
		Ledger:     deps.Ledger,
		Caller:     deps.Caller,
		Gateway:    deps.Gateway,
		Outbox:     deps.Outbox,
		Guard:      &application.EntryGuard{},
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	governanceQueries := queries.GovernanceQueries{
		Proposals:  deps.Proposals,
		Params:     deps.Params,
		Extensions: deps.Extensions,
		Ledger:     deps.Ledger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Governance: useCase,
			Queries:    governanceQueries,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires the engine against the in-memory store, ledger
// and gateways, seeded from the founding charter. Used for local runs and
// tests.
func NewInMemoryModule(charter entities.FoundingCharter, clock ports.Clock, logger *slog.Logger) (Module, error) {
	if err := charter.Validate(); err != nil {
		return Module{}, err
	}
	ledger, err := memory.NewLedger(charter, clock)
	if err != nil {
		return Module{}, err
	}
	store := memory.NewStore(charter.Parameters)
	router := memory.NewCallRouter()
	hub := memory.NewExtensionHub()

	var moduleClock ports.Clock = store
	if clock != nil {
		moduleClock = clock
	}
	module := NewModule(Dependencies{
		Proposals:  store,
		Params:     store,
		Extensions: store,
		Ledger:     ledger,
		Caller:     router,
		Gateway:    hub,
		Outbox:     store,
		Clock:      moduleClock,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	module.Ledger = ledger
	module.Router = router
	module.Hub = hub
	return module, nil
}
