// Package ledger provides the shared accounting primitives the adapters and
// the embedding service consult before spending: a cumulative cost ledger
// with atomic budget reservations, and fixed rate windows that delay rather
// than reject calls.
package ledger

import (
	"sync"

	"github.com/echolens/echolens/internal/domain"
)

// CostMicros converts a token count into micro-USD using the provider rate.
// Cost is ceil(tokens/1000 * ratePerThousand), computed in integer micro-USD
// so concurrent accounting never drifts.
func CostMicros(tokens int64, ratePerThousandMicros int64) int64 {
	if tokens <= 0 || ratePerThousandMicros <= 0 {
		return 0
	}
	return (tokens*ratePerThousandMicros + 999) / 1000
}

// Usage is a point-in-time snapshot of ledger totals.
type Usage struct {
	TokensUsed   int64
	CostMicros   int64
	RequestsMade int64
}

// CostLedger tracks cumulative tokens, spend, and request counts for one
// session. Totals are monotonically non-decreasing except through Reset,
// which is an explicit operator action.
//
// Budget enforcement is reservation-based: Reserve atomically checks the
// budget and holds the estimated spend, so two concurrent calls can never
// both pass a check that combined would exceed it. Callers settle the
// reservation with the actual spend afterwards.
type CostLedger struct {
	mu           sync.Mutex
	budgetMicros int64 // 0 means unlimited
	reserved     int64
	tokensUsed   int64
	costMicros   int64
	requestsMade int64
}

// NewCostLedger creates a ledger with the given session budget in micro-USD.
// A budget of 0 disables enforcement.
func NewCostLedger(budgetMicros int64) *CostLedger {
	return &CostLedger{budgetMicros: budgetMicros}
}

// Reservation is a held estimate that must be settled exactly once.
type Reservation struct {
	ledger   *CostLedger
	estimate int64
	done     bool
}

// Reserve holds estimatedMicros against the budget. It fails with
// ErrBudgetExceeded before any spend occurs if accrued plus outstanding
// reservations plus the estimate would exceed the budget.
func (l *CostLedger) Reserve(estimatedMicros int64) (*Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.budgetMicros > 0 && l.costMicros+l.reserved+estimatedMicros > l.budgetMicros {
		return nil, domain.ErrBudgetExceeded
	}

	l.reserved += estimatedMicros
	return &Reservation{ledger: l, estimate: estimatedMicros}, nil
}

// Settle releases the reservation and records the actual spend.
func (r *Reservation) Settle(tokens int64, actualMicros int64) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if r.done {
		return
	}
	r.done = true

	l.reserved -= r.estimate
	l.tokensUsed += tokens
	l.costMicros += actualMicros
	l.requestsMade++
}

// Cancel releases the reservation without recording spend. Used when the
// provider call failed before being charged.
func (r *Reservation) Cancel() {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if r.done {
		return
	}
	r.done = true
	l.reserved -= r.estimate
}

// RecordRequest counts a non-billed call (e.g. an adapter fetch).
func (l *CostLedger) RecordRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requestsMade++
}

// Snapshot returns the current totals.
func (l *CostLedger) Snapshot() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Usage{
		TokensUsed:   l.tokensUsed,
		CostMicros:   l.costMicros,
		RequestsMade: l.requestsMade,
	}
}

// Reset zeroes all totals. Only called on explicit operator request.
func (l *CostLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokensUsed = 0
	l.costMicros = 0
	l.requestsMade = 0
}
