/*
ledger.go - Append-only exercise log and clamp rules

PURPOSE:
  The Ledger is the immutable source of truth for every count adjustment.
  Each player owns two ledgers of the same shape:

    Lifetime:  every delta ever recorded; its sum IS the player's total
    DailyGoal: a shadow of the same deltas used only for "today's progress",
               independently clamped per calendar day

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete (except cascade on player delete)
  2. SUM: Player.Total == sum(lifetime amounts), exactly
  3. NON-NEGATIVE: Neither running sum ever drops below zero

CLAMPING:
  Removals are clamped BEFORE they are stored. If a player has 30 and asks
  to remove 50, the stored delta is -30, not -50. The ledger records what
  was actually removed, so the sum invariant holds by construction.

  The two ledgers clamp against different accumulators:
    lifetime  → the player's lifetime total
    dailyGoal → the player's shadow sum for that one day

EXAMPLE FLOW:
  total 0, today 0
  +50  → lifetime +50, dailyGoal +50         (total 50, today 50)
  +30  → lifetime +30, dailyGoal +30         (total 80, today 80)
  -100 → lifetime -80, dailyGoal -80         (total 0,  today 0)

SEE ALSO:
  - store.go: Low-level persistence interface
  - exercise/recorder.go: Applies both clamps in one transaction
*/
package generic

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLAMP
// =============================================================================

// ClampRemoval returns the delta that may actually be stored against a running
// sum. Additions pass through. A removal larger than the running sum becomes
// -running, so running+result is never negative.
func ClampRemoval(running, delta decimal.Decimal) decimal.Decimal {
	if !delta.IsNegative() {
		return delta
	}
	if !running.IsPositive() {
		return decimal.Zero
	}
	if running.Add(delta).IsNegative() {
		return running.Neg()
	}
	return delta
}

// =============================================================================
// LEDGER - Append-only entry log
// =============================================================================

// Ledger is the source of truth for all count changes.
type Ledger interface {
	// Append adds an entry. This is the ONLY write operation.
	Append(ctx context.Context, e Entry) (Entry, error)

	// Entries returns all entries of a kind for a player, in insertion order.
	Entries(ctx context.Context, kind LedgerKind, playerID PlayerID) ([]Entry, error)

	// Sum returns the exact sum of a player's ledger.
	Sum(ctx context.Context, kind LedgerKind, playerID PlayerID) (decimal.Decimal, error)

	// SumDay returns the exact sum of a player's ledger for one day.
	SumDay(ctx context.Context, kind LedgerKind, playerID PlayerID, day Day) (decimal.Decimal, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using LedgerStore
// =============================================================================

type DefaultLedger struct {
	Store LedgerStore
}

func NewLedger(store LedgerStore) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, e Entry) (Entry, error) {
	if err := validateEntry(e); err != nil {
		return Entry{}, err
	}
	return l.Store.Append(ctx, e)
}

func (l *DefaultLedger) Entries(ctx context.Context, kind LedgerKind, playerID PlayerID) ([]Entry, error) {
	return l.Store.Load(ctx, kind, playerID)
}

func (l *DefaultLedger) Sum(ctx context.Context, kind LedgerKind, playerID PlayerID) (decimal.Decimal, error) {
	entries, err := l.Store.Load(ctx, kind, playerID)
	if err != nil {
		return decimal.Zero, err
	}
	return SumEntries(entries), nil
}

func (l *DefaultLedger) SumDay(ctx context.Context, kind LedgerKind, playerID PlayerID, day Day) (decimal.Decimal, error) {
	entries, err := l.Store.LoadDay(ctx, kind, playerID, day)
	if err != nil {
		return decimal.Zero, err
	}
	return SumEntries(entries), nil
}

func validateEntry(e Entry) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("append entry: unknown ledger kind %d", e.Kind)
	}
	if e.Day.IsZero() {
		return &ValidationError{Field: "day", Message: "entry has no day"}
	}
	switch e.Kind {
	case LedgerLifetime:
		if e.GoalTarget != nil {
			return fmt.Errorf("append entry: lifetime entries carry no goal target")
		}
	case LedgerDailyGoal:
		if e.GoalTarget == nil {
			return fmt.Errorf("append entry: daily goal entries need a goal target")
		}
	}
	return nil
}
