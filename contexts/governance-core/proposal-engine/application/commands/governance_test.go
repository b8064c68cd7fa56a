package commands

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"conclave/contexts/governance-core/proposal-engine/adapters/memory"
	"conclave/contexts/governance-core/proposal-engine/application"
	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type engineFixture struct {
	uc     GovernanceUseCase
	store  *memory.Store
	ledger *memory.Ledger
	router *memory.CallRouter
	hub    *memory.ExtensionHub
	clock  *manualClock
}

func newEngine(t *testing.T, members []entities.FoundingMember, params entities.GovernanceParameters) engineFixture {
	t.Helper()
	clock := newManualClock()
	charter := entities.FoundingCharter{
		Name:       "Conclave",
		Symbol:     "CNCLV",
		Members:    members,
		Parameters: params,
	}
	ledger, err := memory.NewLedger(charter, clock)
	if err != nil {
		t.Fatalf("seed ledger failed: %v", err)
	}
	store := memory.NewStore(params)
	router := memory.NewCallRouter()
	hub := memory.NewExtensionHub()
	uc := GovernanceUseCase{
		Proposals:  store,
		Params:     store,
		Extensions: store,
		Ledger:     ledger,
		Caller:     router,
		Gateway:    hub,
		Outbox:     store,
		Guard:      &application.EntryGuard{},
		Clock:      clock,
		IDGen:      store,
	}
	return engineFixture{uc: uc, store: store, ledger: ledger, router: router, hub: hub, clock: clock}
}

func defaultParams() entities.GovernanceParameters {
	return entities.GovernanceParameters{
		VotingPeriod:         72 * time.Hour,
		QuorumPercent:        0,
		SupermajorityPercent: 60,
	}
}

func initMajorityPolicies(t *testing.T, uc GovernanceUseCase) {
	t.Helper()
	err := uc.InitTallyPolicies(context.Background(), InitTallyPoliciesCommand{
		Mint: entities.TallyPolicyMajority,
		Burn: entities.TallyPolicyMajority,
		Call: entities.TallyPolicyMajority,
		Gov:  entities.TallyPolicyMajority,
	})
	if err != nil {
		t.Fatalf("init policies failed: %v", err)
	}
}

func submitMint(t *testing.T, uc GovernanceUseCase, proposer string, actions ...entities.Action) entities.Proposal {
	t.Helper()
	if len(actions) == 0 {
		actions = []entities.Action{{Target: "newbie", Amount: 10}}
	}
	proposal, err := uc.SubmitProposal(context.Background(), SubmitProposalCommand{
		Proposer: proposer,
		Type:     entities.ProposalTypeMint,
		Actions:  actions,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return proposal
}

func TestSubmitProposalAssignsSequentialIdentifiers(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	for want := uint64(0); want < 3; want++ {
		proposal := submitMint(t, fx.uc, "alice")
		if proposal.ID != want {
			t.Fatalf("expected identifier %d, got %d", want, proposal.ID)
		}
	}
}

func TestSubmitProposalValidation(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	ctx := context.Background()

	_, err := fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "stranger",
		Type:     entities.ProposalTypeMint,
		Actions:  []entities.Action{{Target: "stranger", Amount: 1}},
	})
	if !errors.Is(err, domainerrors.ErrNoVotingWeight) {
		t.Fatalf("expected no voting weight, got %v", err)
	}

	_, err = fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeMint,
	})
	if !errors.Is(err, domainerrors.ErrInvalidProposalInput) {
		t.Fatalf("expected invalid input for empty actions, got %v", err)
	}

	tooMany := make([]entities.Action, entities.MaxProposalActions+1)
	for i := range tooMany {
		tooMany[i] = entities.Action{Target: "alice", Amount: 1}
	}
	_, err = fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeMint,
		Actions:  tooMany,
	})
	if !errors.Is(err, domainerrors.ErrTooManyActions) {
		t.Fatalf("expected too many actions, got %v", err)
	}

	_, err = fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeSupermajority,
		Actions:  []entities.Action{{Amount: 40}},
	})
	if !errors.Is(err, domainerrors.ErrSupermajorityBounds) {
		t.Fatalf("expected supermajority bounds, got %v", err)
	}

	_, err = fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeQuorum,
		Actions:  []entities.Action{{Amount: 101}},
	})
	if !errors.Is(err, domainerrors.ErrQuorumBounds) {
		t.Fatalf("expected quorum bounds, got %v", err)
	}
}

func TestCastVoteOncePerVoter(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	proposal := submitMint(t, fx.uc, "alice")

	ctx := context.Background()
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	_, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: false})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
}

func TestCastVoteUsesCreationSnapshot(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{
		{Account: "alice", Weight: 40},
		{Account: "bob", Weight: 5},
	}, defaultParams())
	ctx := context.Background()

	fx.clock.Advance(time.Minute)
	proposal := submitMint(t, fx.uc, "alice")

	// Weight acquired after creation must not inflate the open vote.
	fx.clock.Advance(time.Minute)
	if err := fx.ledger.Mint(ctx, "alice", 60); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := fx.ledger.MoveDelegation(ctx, "", "alice", 60); err != nil {
		t.Fatalf("move delegation failed: %v", err)
	}

	result, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true})
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if result.Weight != 40 {
		t.Fatalf("expected snapshot weight 40, got %d", result.Weight)
	}
	if result.Proposal.YesWeight != 40 {
		t.Fatalf("expected yes tally 40, got %d", result.Proposal.YesWeight)
	}
}

func TestCastVoteAfterWindowCloses(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	proposal := submitMint(t, fx.uc, "alice")

	fx.clock.Advance(72*time.Hour + time.Second)
	_, err := fx.uc.CastVote(context.Background(), CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true})
	if !errors.Is(err, domainerrors.ErrVotingWindowClosed) {
		t.Fatalf("expected voting window closed, got %v", err)
	}
}

func TestProcessRequiresElapsedWindow(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	proposal := submitMint(t, fx.uc, "alice")

	// Exactly at the window close is still open; the window must strictly
	// elapse before tallying.
	fx.clock.Advance(72 * time.Hour)
	_, err := fx.uc.ProcessProposal(context.Background(), ProcessProposalCommand{ProposalID: proposal.ID})
	if !errors.Is(err, domainerrors.ErrVotingWindowOpen) {
		t.Fatalf("expected voting window open, got %v", err)
	}

	fx.clock.Advance(time.Second)
	if _, err := fx.uc.ProcessProposal(context.Background(), ProcessProposalCommand{ProposalID: proposal.ID}); err != nil {
		t.Fatalf("process after window failed: %v", err)
	}
}

func TestProcessSequentialGate(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	first := submitMint(t, fx.uc, "alice")
	second := submitMint(t, fx.uc, "alice")
	fx.clock.Advance(73 * time.Hour)

	_, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: second.ID})
	if !errors.Is(err, domainerrors.ErrPredecessorPending) {
		t.Fatalf("expected predecessor pending, got %v", err)
	}

	if _, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: first.ID}); err != nil {
		t.Fatalf("process first failed: %v", err)
	}
	if _, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: second.ID}); err != nil {
		t.Fatalf("process second failed: %v", err)
	}
}

func TestProcessRequiresPolicyInitialization(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	proposal := submitMint(t, fx.uc, "alice")
	fx.clock.Advance(73 * time.Hour)

	_, err := fx.uc.ProcessProposal(context.Background(), ProcessProposalCommand{ProposalID: proposal.ID})
	if !errors.Is(err, domainerrors.ErrPoliciesNotSet) {
		t.Fatalf("expected policies not set, got %v", err)
	}
}

func TestProcessQuorumShortfallFails(t *testing.T) {
	params := defaultParams()
	params.QuorumPercent = 50
	fx := newEngine(t, []entities.FoundingMember{
		{Account: "alice", Weight: 40},
		{Account: "bob", Weight: 5},
		{Account: "idle", Weight: 55},
	}, params)
	err := fx.uc.InitTallyPolicies(context.Background(), InitTallyPoliciesCommand{
		Mint: entities.TallyPolicyMajorityQuorum,
		Burn: entities.TallyPolicyMajority,
		Call: entities.TallyPolicyMajority,
		Gov:  entities.TallyPolicyMajority,
	})
	if err != nil {
		t.Fatalf("init policies failed: %v", err)
	}

	ctx := context.Background()
	proposal := submitMint(t, fx.uc, "alice", entities.Action{Target: "newbie", Amount: 10})
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("yes vote failed: %v", err)
	}
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "bob", Approve: false}); err != nil {
		t.Fatalf("no vote failed: %v", err)
	}

	fx.clock.Advance(73 * time.Hour)
	result, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Passed {
		t.Fatal("expected quorum shortfall to fail the tally")
	}
	if balance, _ := fx.ledger.BalanceOf(ctx, "newbie"); balance != 0 {
		t.Fatalf("failed proposal must not mint, got %d", balance)
	}
}

func TestProcessQuorumMetPasses(t *testing.T) {
	params := defaultParams()
	params.QuorumPercent = 50
	fx := newEngine(t, []entities.FoundingMember{
		{Account: "alice", Weight: 40},
		{Account: "carol", Weight: 20},
		{Account: "bob", Weight: 10},
		{Account: "idle", Weight: 30},
	}, params)
	err := fx.uc.InitTallyPolicies(context.Background(), InitTallyPoliciesCommand{
		Mint: entities.TallyPolicyMajorityQuorum,
		Burn: entities.TallyPolicyMajority,
		Call: entities.TallyPolicyMajority,
		Gov:  entities.TallyPolicyMajority,
	})
	if err != nil {
		t.Fatalf("init policies failed: %v", err)
	}

	ctx := context.Background()
	proposal := submitMint(t, fx.uc, "alice", entities.Action{Target: "newbie", Amount: 10})
	for _, yes := range []string{"alice", "carol"} {
		if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: yes, Approve: true}); err != nil {
			t.Fatalf("yes vote failed: %v", err)
		}
	}
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "bob", Approve: false}); err != nil {
		t.Fatalf("no vote failed: %v", err)
	}

	fx.clock.Advance(73 * time.Hour)
	result, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !result.Passed {
		t.Fatal("expected 70 turnout with 60 yes to pass")
	}
	if balance, _ := fx.ledger.BalanceOf(ctx, "newbie"); balance != 10 {
		t.Fatalf("expected minted balance 10, got %d", balance)
	}
}

func TestProcessSupermajorityFloor(t *testing.T) {
	params := defaultParams()
	params.SupermajorityPercent = 66
	fx := newEngine(t, []entities.FoundingMember{
		{Account: "alice", Weight: 7},
		{Account: "bob", Weight: 2},
	}, params)
	err := fx.uc.InitTallyPolicies(context.Background(), InitTallyPoliciesCommand{
		Mint: entities.TallyPolicySupermajority,
		Burn: entities.TallyPolicyMajority,
		Call: entities.TallyPolicyMajority,
		Gov:  entities.TallyPolicyMajority,
	})
	if err != nil {
		t.Fatalf("init policies failed: %v", err)
	}

	ctx := context.Background()
	proposal := submitMint(t, fx.uc, "alice", entities.Action{Target: "newbie", Amount: 1})
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("yes vote failed: %v", err)
	}
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "bob", Approve: false}); err != nil {
		t.Fatalf("no vote failed: %v", err)
	}

	fx.clock.Advance(73 * time.Hour)
	result, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	// Floor is (7+2)*66/100 = 5 with truncation; 7 yes clears it.
	if !result.Passed {
		t.Fatal("expected 7 of 9 to clear the supermajority floor")
	}
}

func TestProcessGovParameterZeroAmountIsNoop(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	proposal, err := fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeQuorum,
		Actions:  []entities.Action{{Amount: 0}},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	fx.clock.Advance(73 * time.Hour)
	result, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !result.Passed {
		t.Fatal("expected proposal to pass")
	}
	params, _ := fx.store.GetParameters(ctx)
	if params.QuorumPercent != 0 {
		t.Fatalf("zero-amount update must leave quorum unchanged, got %d", params.QuorumPercent)
	}
}

func TestProcessGovParameterUpdates(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	proposal, err := fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeVotingPeriod,
		Actions:  []entities.Action{{Amount: 3600}},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	fx.clock.Advance(73 * time.Hour)
	if _, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID}); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	params, _ := fx.store.GetParameters(ctx)
	if params.VotingPeriod != time.Hour {
		t.Fatalf("expected voting period 1h, got %s", params.VotingPeriod)
	}
}

func TestProcessTwiceFails(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	proposal := submitMint(t, fx.uc, "alice")
	fx.clock.Advance(73 * time.Hour)

	ctx := context.Background()
	if _, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID}); err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	_, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID})
	if !errors.Is(err, domainerrors.ErrAlreadyProcessed) {
		t.Fatalf("expected already processed, got %v", err)
	}
}

func TestProcessMintMovesDelegationPerAction(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{
		{Account: "alice", Weight: 40},
		{Account: "carol", Weight: 10},
	}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	// Carol delegates to dave; her minted weight must land on dave.
	fx.ledger.SetDelegate("carol", "dave")

	proposal := submitMint(t, fx.uc, "alice",
		entities.Action{Target: "bob", Amount: 10},
		entities.Action{Target: "carol", Amount: 15},
	)
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	fx.clock.Advance(73 * time.Hour)
	result, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !result.Passed {
		t.Fatal("expected mint proposal to pass")
	}

	if balance, _ := fx.ledger.BalanceOf(ctx, "bob"); balance != 10 {
		t.Fatalf("expected bob balance 10, got %d", balance)
	}
	if balance, _ := fx.ledger.BalanceOf(ctx, "carol"); balance != 25 {
		t.Fatalf("expected carol balance 25, got %d", balance)
	}
	if supply, _ := fx.ledger.TotalSupply(ctx); supply != 75 {
		t.Fatalf("expected total supply 75, got %d", supply)
	}

	now := fx.clock.Now()
	if weight, _ := fx.ledger.PriorVotingWeight(ctx, "bob", now); weight != 10 {
		t.Fatalf("expected bob voting weight 10, got %d", weight)
	}
	if weight, _ := fx.ledger.PriorVotingWeight(ctx, "dave", now); weight != 15 {
		t.Fatalf("expected delegated weight 15 on dave, got %d", weight)
	}
}

func TestProcessCallCapturesPerActionFailures(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	fx.router.Register("treasury", func(amount uint64, payload []byte) ([]byte, error) {
		return []byte("ok"), nil
	})

	proposal, err := fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeCall,
		Actions: []entities.Action{
			{Target: "treasury", Amount: 5},
			{Target: "missing", Amount: 1},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	fx.clock.Advance(73 * time.Hour)
	result, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !result.Passed {
		t.Fatal("expected call proposal to pass")
	}
	if len(result.CallResults) != 2 {
		t.Fatalf("expected 2 call results, got %d", len(result.CallResults))
	}
	if string(result.CallResults[0].Output) != "ok" || result.CallResults[0].Err != "" {
		t.Fatalf("unexpected first call result: %+v", result.CallResults[0])
	}
	if result.CallResults[1].Err == "" {
		t.Fatal("expected captured failure for unknown target")
	}

	stored, err := fx.store.GetProposal(ctx, proposal.ID)
	if err != nil {
		t.Fatalf("get proposal failed: %v", err)
	}
	if stored.Status != entities.ProposalStatusFinalized {
		t.Fatalf("call failure must not block finalization, status %s", stored.Status)
	}
}

func TestProcessPauseFlipsTransferability(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	proposal, err := fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypePause,
		Actions:  []entities.Action{{Amount: 1}},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	fx.clock.Advance(73 * time.Hour)
	if _, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID}); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if paused, _ := fx.ledger.Paused(ctx); !paused {
		t.Fatal("expected pause proposal to flip the flag")
	}
}

func TestCancelProposal(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{
		{Account: "alice", Weight: 40},
		{Account: "bob", Weight: 5},
	}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	first := submitMint(t, fx.uc, "alice")

	err := fx.uc.CancelProposal(ctx, CancelProposalCommand{ProposalID: first.ID, Caller: "bob"})
	if !errors.Is(err, domainerrors.ErrNotProposer) {
		t.Fatalf("expected not proposer, got %v", err)
	}

	if err := fx.uc.CancelProposal(ctx, CancelProposalCommand{ProposalID: first.ID, Caller: "alice"}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// A cancelled record is terminal, so the successor can settle.
	second := submitMint(t, fx.uc, "alice")
	fx.clock.Advance(73 * time.Hour)
	if _, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: second.ID}); err != nil {
		t.Fatalf("process after cancel failed: %v", err)
	}
}

func TestCancelProposalWithVotesFails(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	proposal := submitMint(t, fx.uc, "alice")
	ctx := context.Background()

	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	err := fx.uc.CancelProposal(ctx, CancelProposalCommand{ProposalID: proposal.ID, Caller: "alice"})
	if !errors.Is(err, domainerrors.ErrProposalHasVotes) {
		t.Fatalf("expected proposal has votes, got %v", err)
	}
}

func TestInitTallyPoliciesLatch(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)

	err := fx.uc.InitTallyPolicies(context.Background(), InitTallyPoliciesCommand{
		Mint: entities.TallyPolicySupermajority,
		Burn: entities.TallyPolicySupermajority,
		Call: entities.TallyPolicySupermajority,
		Gov:  entities.TallyPolicySupermajority,
	})
	if !errors.Is(err, domainerrors.ErrPoliciesLatched) {
		t.Fatalf("expected policies latched, got %v", err)
	}
}

func TestReentrancyGuardBlocksEntryPoints(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	proposal := submitMint(t, fx.uc, "alice")
	ctx := context.Background()

	if err := fx.uc.Guard.Acquire(); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer fx.uc.Guard.Release()

	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); !errors.Is(err, domainerrors.ErrReentrantCall) {
		t.Fatalf("expected reentrant call on vote, got %v", err)
	}
	if _, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID}); !errors.Is(err, domainerrors.ErrReentrantCall) {
		t.Fatalf("expected reentrant call on process, got %v", err)
	}
	if _, err := fx.uc.InvokeExtension(ctx, InvokeExtensionCommand{Caller: "alice", Extension: "rewards", Amount: 1}); !errors.Is(err, domainerrors.ErrReentrantCall) {
		t.Fatalf("expected reentrant call on extension, got %v", err)
	}
}

func TestInvokeExtensionRequiresWhitelist(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	_, err := fx.uc.InvokeExtension(context.Background(), InvokeExtensionCommand{
		Caller:    "alice",
		Extension: "rewards",
		Amount:    5,
		Mint:      true,
	})
	if !errors.Is(err, domainerrors.ErrExtensionNotWhitelisted) {
		t.Fatalf("expected extension not whitelisted, got %v", err)
	}
}

func TestInvokeExtensionMintAndBurn(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	// Whitelist the extension through a passed governance proposal.
	proposal, err := fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeExtension,
		Actions:  []entities.Action{{Target: "rewards", Amount: 1}},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	fx.clock.Advance(73 * time.Hour)
	if _, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID}); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	fx.hub.Register("rewards", func(caller string, amount uint64, payload []byte) (uint64, error) {
		return amount * 2, nil
	})

	minted, err := fx.uc.InvokeExtension(ctx, InvokeExtensionCommand{
		Caller:    "alice",
		Extension: "rewards",
		Amount:    5,
		Mint:      true,
	})
	if err != nil {
		t.Fatalf("mint invocation failed: %v", err)
	}
	if minted.AmountOut != 10 {
		t.Fatalf("expected extension mint output 10, got %d", minted.AmountOut)
	}
	if balance, _ := fx.ledger.BalanceOf(ctx, "alice"); balance != 50 {
		t.Fatalf("expected alice balance 50 after mint, got %d", balance)
	}

	burned, err := fx.uc.InvokeExtension(ctx, InvokeExtensionCommand{
		Caller:    "alice",
		Extension: "rewards",
		Amount:    8,
		Mint:      false,
	})
	if err != nil {
		t.Fatalf("burn invocation failed: %v", err)
	}
	if burned.AmountOut != 8 {
		t.Fatalf("expected burn output 8, got %d", burned.AmountOut)
	}
	if balance, _ := fx.ledger.BalanceOf(ctx, "alice"); balance != 42 {
		t.Fatalf("expected alice balance 42 after burn, got %d", balance)
	}
}

func TestLifecycleEventsAppendedToOutbox(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	proposal := submitMint(t, fx.uc, "alice")
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	fx.clock.Advance(73 * time.Hour)
	if _, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID}); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	pending, err := fx.store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	types := make(map[string]bool, len(pending))
	for _, row := range pending {
		types[row.EventType] = true
	}
	for _, want := range []string{"proposal.created", "vote.cast", "proposal.finalized"} {
		if !types[want] {
			t.Fatalf("expected outbox event %s, have %v", want, types)
		}
	}
}

func TestProcessBurnBatchAbortsWithoutPartialMutation(t *testing.T) {
	members := []entities.FoundingMember{
		{Account: "alice", Weight: 40},
		{Account: "bob", Weight: 30},
		{Account: "carol", Weight: 10},
	}
	fx := newEngine(t, members, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	proposal, err := fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeBurn,
		Actions: []entities.Action{
			{Target: "carol", Amount: 5},
			{Target: "bob", Amount: 100},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	fx.clock.Advance(73 * time.Hour)

	// Two attempts: the second proves a retry does not re-apply the
	// leading action either.
	for attempt := 1; attempt <= 2; attempt++ {
		_, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID})
		if !errors.Is(err, domainerrors.ErrInsufficientBalance) {
			t.Fatalf("attempt %d: expected insufficient balance, got %v", attempt, err)
		}
		balance, _ := fx.ledger.BalanceOf(ctx, "carol")
		if balance != 10 {
			t.Fatalf("attempt %d: carol's balance mutated to %d", attempt, balance)
		}
	}
	got, err := fx.store.GetProposal(ctx, proposal.ID)
	if err != nil {
		t.Fatalf("get proposal failed: %v", err)
	}
	if got.Status != entities.ProposalStatusOpen {
		t.Fatalf("aborted proposal must stay open, got %s", got.Status)
	}
}

func TestProcessBurnBatchAggregatesPerTarget(t *testing.T) {
	members := []entities.FoundingMember{
		{Account: "alice", Weight: 40},
		{Account: "carol", Weight: 10},
	}
	fx := newEngine(t, members, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	// Each action clears carol's balance alone; their sum does not.
	proposal, err := fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeBurn,
		Actions: []entities.Action{
			{Target: "carol", Amount: 6},
			{Target: "carol", Amount: 6},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	fx.clock.Advance(73 * time.Hour)

	_, err = fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID})
	if !errors.Is(err, domainerrors.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	balance, _ := fx.ledger.BalanceOf(ctx, "carol")
	if balance != 10 {
		t.Fatalf("carol's balance mutated to %d", balance)
	}
}

func TestProcessMintBatchOverflowLeavesLedgerUntouched(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	ctx := context.Background()

	proposal := submitMint(t, fx.uc, "alice",
		entities.Action{Target: "bob", Amount: 10},
		entities.Action{Target: "carol", Amount: math.MaxUint64},
	)
	if _, err := fx.uc.CastVote(ctx, CastVoteCommand{ProposalID: proposal.ID, Voter: "alice", Approve: true}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	fx.clock.Advance(73 * time.Hour)

	_, err := fx.uc.ProcessProposal(ctx, ProcessProposalCommand{ProposalID: proposal.ID})
	if !errors.Is(err, domainerrors.ErrSupplyOverflow) {
		t.Fatalf("expected supply overflow, got %v", err)
	}
	balance, _ := fx.ledger.BalanceOf(ctx, "bob")
	if balance != 0 {
		t.Fatalf("bob must not be minted on an aborted batch, got %d", balance)
	}
	supply, _ := fx.ledger.TotalSupply(ctx)
	if supply != 40 {
		t.Fatalf("expected supply 40, got %d", supply)
	}
}

func TestSubmitVotingPeriodSecondsBound(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	ctx := context.Background()
	maxSeconds := uint64(entities.MaxVotingPeriod / time.Second)

	for _, amount := range []uint64{maxSeconds + 1, 1 << 62, math.MaxUint64} {
		_, err := fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
			Proposer: "alice",
			Type:     entities.ProposalTypeVotingPeriod,
			Actions:  []entities.Action{{Amount: amount}},
		})
		if !errors.Is(err, domainerrors.ErrVotingPeriodBounds) {
			t.Fatalf("amount %d: expected voting period bounds error, got %v", amount, err)
		}
	}

	if _, err := fx.uc.SubmitProposal(ctx, SubmitProposalCommand{
		Proposer: "alice",
		Type:     entities.ProposalTypeVotingPeriod,
		Actions:  []entities.Action{{Amount: maxSeconds}},
	}); err != nil {
		t.Fatalf("maximum period must be accepted: %v", err)
	}
}

type faultyProposalStore struct {
	*memory.Store
	failID uint64
	err    error
}

func (s faultyProposalStore) GetProposal(ctx context.Context, id uint64) (entities.Proposal, error) {
	if id == s.failID {
		return entities.Proposal{}, s.err
	}
	return s.Store.GetProposal(ctx, id)
}

func TestProcessPropagatesPredecessorLookupFailure(t *testing.T) {
	fx := newEngine(t, []entities.FoundingMember{{Account: "alice", Weight: 40}}, defaultParams())
	initMajorityPolicies(t, fx.uc)
	submitMint(t, fx.uc, "alice")
	second := submitMint(t, fx.uc, "alice")
	fx.clock.Advance(73 * time.Hour)

	storeErr := errors.New("store unavailable")
	uc := fx.uc
	uc.Proposals = faultyProposalStore{Store: fx.store, failID: second.ID - 1, err: storeErr}

	_, err := uc.ProcessProposal(context.Background(), ProcessProposalCommand{ProposalID: second.ID})
	if !errors.Is(err, storeErr) {
		t.Fatalf("a transient predecessor lookup failure must not open the gate, got %v", err)
	}
}
