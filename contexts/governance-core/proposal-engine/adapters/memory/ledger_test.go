package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testCharter(members ...entities.FoundingMember) entities.FoundingCharter {
	return entities.FoundingCharter{
		Name:    "Conclave",
		Symbol:  "CNCLV",
		Members: members,
		Parameters: entities.GovernanceParameters{
			VotingPeriod:         72 * time.Hour,
			SupermajorityPercent: 60,
		},
	}
}

func TestLedgerSeedsFoundingMembers(t *testing.T) {
	ledger, err := NewLedger(testCharter(
		entities.FoundingMember{Account: "alice", Weight: 40},
		entities.FoundingMember{Account: "bob", Weight: 10},
	), nil)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	ctx := context.Background()
	if balance, _ := ledger.BalanceOf(ctx, "alice"); balance != 40 {
		t.Fatalf("expected alice balance 40, got %d", balance)
	}
	if supply, _ := ledger.TotalSupply(ctx); supply != 50 {
		t.Fatalf("expected total supply 50, got %d", supply)
	}
	if weight, _ := ledger.PriorVotingWeight(ctx, "bob", time.Now().UTC()); weight != 10 {
		t.Fatalf("expected bob seeded weight 10, got %d", weight)
	}
}

func TestPriorVotingWeightCheckpointHistory(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger, err := NewLedger(testCharter(entities.FoundingMember{Account: "alice", Weight: 40}), clock)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	ctx := context.Background()
	seeded := clock.Now()

	clock.Advance(time.Hour)
	if err := ledger.MoveDelegation(ctx, "", "alice", 20); err != nil {
		t.Fatalf("move delegation failed: %v", err)
	}
	afterFirst := clock.Now()

	clock.Advance(time.Hour)
	if err := ledger.MoveDelegation(ctx, "alice", "", 50); err != nil {
		t.Fatalf("move delegation failed: %v", err)
	}

	if weight, _ := ledger.PriorVotingWeight(ctx, "alice", seeded); weight != 40 {
		t.Fatalf("expected seeded snapshot 40, got %d", weight)
	}
	if weight, _ := ledger.PriorVotingWeight(ctx, "alice", afterFirst); weight != 60 {
		t.Fatalf("expected intermediate snapshot 60, got %d", weight)
	}
	if weight, _ := ledger.PriorVotingWeight(ctx, "alice", clock.Now()); weight != 10 {
		t.Fatalf("expected latest snapshot 10, got %d", weight)
	}
	if weight, _ := ledger.PriorVotingWeight(ctx, "alice", seeded.Add(-time.Minute)); weight != 0 {
		t.Fatalf("expected zero weight before any checkpoint, got %d", weight)
	}
}

func TestMoveDelegationRejectsShortfall(t *testing.T) {
	ledger, err := NewLedger(testCharter(entities.FoundingMember{Account: "alice", Weight: 40}), nil)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := ledger.MoveDelegation(context.Background(), "alice", "", 41); err != domainerrors.ErrInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestBurnRejectsInsufficientBalance(t *testing.T) {
	ledger, err := NewLedger(testCharter(entities.FoundingMember{Account: "alice", Weight: 40}), nil)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := ledger.Burn(context.Background(), "alice", 41); err != domainerrors.ErrInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestDelegateOfDefaultsToSelf(t *testing.T) {
	ledger, err := NewLedger(testCharter(entities.FoundingMember{Account: "alice", Weight: 40}), nil)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	ctx := context.Background()

	if delegate, _ := ledger.DelegateOf(ctx, "alice"); delegate != "alice" {
		t.Fatalf("expected self delegation, got %q", delegate)
	}

	ledger.SetDelegate("alice", "bob")
	if delegate, _ := ledger.DelegateOf(ctx, "alice"); delegate != "bob" {
		t.Fatalf("expected delegate bob, got %q", delegate)
	}

	// Delegating to self clears the entry.
	ledger.SetDelegate("alice", "alice")
	if delegate, _ := ledger.DelegateOf(ctx, "alice"); delegate != "alice" {
		t.Fatalf("expected cleared delegation, got %q", delegate)
	}
}
