package memory

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"conclave/contexts/governance-core/proposal-engine/domain/entities"
	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
	"conclave/contexts/governance-core/proposal-engine/ports"
)

type weightCheckpoint struct {
	at     time.Time
	weight uint64
}

// Ledger is the reference in-memory token collaborator: balances, the
// transferability pause flag, delegation, and timestamped voting-weight
// checkpoints backing snapshot queries. It stands in for the external
// token module in local wiring and tests.
type Ledger struct {
	mu sync.RWMutex

	name   string
	symbol string

	balances    map[string]uint64
	delegates   map[string]string
	checkpoints map[string][]weightCheckpoint
	totalSupply uint64
	paused      bool

	clock ports.Clock
}

// NewLedger seeds the ledger from the founding charter. Each founding
// member receives balance, self-delegated weight and an initial checkpoint.
func NewLedger(charter entities.FoundingCharter, clock ports.Clock) (*Ledger, error) {
	if err := charter.Validate(); err != nil {
		return nil, err
	}
	ledger := &Ledger{
		name:        charter.Name,
		symbol:      charter.Symbol,
		balances:    make(map[string]uint64),
		delegates:   make(map[string]string),
		checkpoints: make(map[string][]weightCheckpoint),
		paused:      charter.Paused,
		clock:       clock,
	}
	now := ledger.now()
	for _, member := range charter.Members {
		account := strings.TrimSpace(member.Account)
		if ledger.totalSupply > math.MaxUint64-member.Weight {
			return nil, domainerrors.ErrSupplyOverflow
		}
		ledger.balances[account] += member.Weight
		ledger.totalSupply += member.Weight
		ledger.writeCheckpoint(account, ledger.weightOf(account)+member.Weight, now)
	}
	return ledger, nil
}

func (l *Ledger) Name() string   { return l.name }
func (l *Ledger) Symbol() string { return l.symbol }

func (l *Ledger) BalanceOf(_ context.Context, account string) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[strings.TrimSpace(account)], nil
}

func (l *Ledger) TotalSupply(_ context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply, nil
}

// PriorVotingWeight returns the latest checkpoint at or before the supplied
// instant. Weight acquired later never leaks into an earlier snapshot.
func (l *Ledger) PriorVotingWeight(_ context.Context, account string, at time.Time) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	history := l.checkpoints[strings.TrimSpace(account)]
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].at.After(at) {
			return history[i].weight, nil
		}
	}
	return 0, nil
}

func (l *Ledger) Mint(_ context.Context, account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.totalSupply > math.MaxUint64-amount {
		return domainerrors.ErrSupplyOverflow
	}
	l.balances[strings.TrimSpace(account)] += amount
	l.totalSupply += amount
	return nil
}

func (l *Ledger) Burn(_ context.Context, account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := strings.TrimSpace(account)
	if l.balances[key] < amount {
		return domainerrors.ErrInsufficientBalance
	}
	l.balances[key] -= amount
	l.totalSupply -= amount
	return nil
}

func (l *Ledger) DelegateOf(_ context.Context, account string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	key := strings.TrimSpace(account)
	if delegate, ok := l.delegates[key]; ok && delegate != "" {
		return delegate, nil
	}
	return key, nil
}

// SetDelegate assigns the account's delegate. Passing the account itself or
// the empty string clears the delegation.
func (l *Ledger) SetDelegate(account string, delegate string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	account = strings.TrimSpace(account)
	delegate = strings.TrimSpace(delegate)
	if delegate == account {
		delegate = ""
	}
	l.delegates[account] = delegate
}

// MoveDelegation shifts voting weight between delegates and records a
// checkpoint on each touched side. The empty account is the null side of a
// mint or burn.
func (l *Ledger) MoveDelegation(_ context.Context, from string, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from != "" {
		current := l.weightOf(from)
		if current < amount {
			return domainerrors.ErrInsufficientBalance
		}
		l.writeCheckpoint(from, current-amount, now)
	}
	if to != "" {
		current := l.weightOf(to)
		if current > math.MaxUint64-amount {
			return domainerrors.ErrSupplyOverflow
		}
		l.writeCheckpoint(to, current+amount, now)
	}
	return nil
}

func (l *Ledger) SetPaused(_ context.Context, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = paused
	return nil
}

func (l *Ledger) Paused(_ context.Context) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused, nil
}

func (l *Ledger) now() time.Time {
	if l.clock != nil {
		return l.clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *Ledger) weightOf(account string) uint64 {
	history := l.checkpoints[account]
	if len(history) == 0 {
		return 0
	}
	return history[len(history)-1].weight
}

func (l *Ledger) writeCheckpoint(account string, weight uint64, at time.Time) {
	l.checkpoints[account] = append(l.checkpoints[account], weightCheckpoint{at: at, weight: weight})
}
