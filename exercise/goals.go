/*
goals.go - Daily goal tracker

PURPOSE:
  Manages the mutable current target per player and reads the shadow
  ledger back as "today's progress" and as goal history.

RETROACTIVE TARGET STABILITY:
  Every shadow entry stores the target that was configured when it was
  written. A day's effective target is the target on the most recently
  inserted entry of that day (insertion order, not day order). Changing
  the current target later never changes whether an old day was met.

  day 2025-12-09: +70 (target 100), +50 (target 100)  → 120 >= 100, met
  SetTarget(150)
  day 2025-12-09 is still met; only new entries carry 150.

SEE ALSO:
  - recorder.go: Writes the shadow entries
*/
package exercise

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/repboard/generic"
)

// DayResult is one day of goal history.
type DayResult struct {
	Day    generic.Day
	Total  decimal.Decimal
	Target decimal.Decimal
	Met    bool
}

// GoalHistory is the outcome of EvaluateHistory.
type GoalHistory struct {
	GoalsMet      int
	CurrentTarget decimal.Decimal
	Days          []DayResult // newest first
}

// Goals reads and configures daily goals.
type Goals struct {
	store         generic.Store
	dates         *generic.DateResolver
	defaultTarget decimal.Decimal
	now           func() time.Time
}

func NewGoals(store generic.Store, dates *generic.DateResolver, defaultTarget decimal.Decimal) *Goals {
	if !defaultTarget.IsPositive() {
		defaultTarget = DefaultDailyGoal
	}
	return &Goals{store: store, dates: dates, defaultTarget: defaultTarget, now: time.Now}
}

// SetTarget upserts the current target. Historical shadow rows keep theirs.
func (g *Goals) SetTarget(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID, target decimal.Decimal) (generic.GoalTarget, error) {
	if !target.IsPositive() {
		return generic.GoalTarget{}, &generic.ValidationError{Field: "dailyGoal", Message: "daily goal must be greater than zero"}
	}
	if _, err := g.store.GetPlayer(ctx, sessionID, playerID); err != nil {
		return generic.GoalTarget{}, err
	}
	t := generic.GoalTarget{
		SessionID: sessionID,
		PlayerID:  playerID,
		Target:    target,
		UpdatedAt: g.now().UTC(),
	}
	if err := g.store.UpsertGoalTarget(ctx, t); err != nil {
		return generic.GoalTarget{}, err
	}
	return t, nil
}

// GetTarget returns the configured target, or the default when none is set.
func (g *Goals) GetTarget(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (decimal.Decimal, error) {
	if _, err := g.store.GetPlayer(ctx, sessionID, playerID); err != nil {
		return decimal.Zero, err
	}
	return currentTarget(ctx, g.store, sessionID, playerID, g.defaultTarget)
}

// ProgressToday sums the shadow ledger for the resolved day.
func (g *Goals) ProgressToday(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID, date string) (generic.Day, decimal.Decimal, error) {
	day, err := g.dates.Resolve(date)
	if err != nil {
		return generic.Day{}, decimal.Zero, err
	}
	if _, err := g.store.GetPlayer(ctx, sessionID, playerID); err != nil {
		return generic.Day{}, decimal.Zero, err
	}
	total, err := generic.NewLedger(g.store).SumDay(ctx, generic.LedgerDailyGoal, playerID, day)
	if err != nil {
		return generic.Day{}, decimal.Zero, err
	}
	return day, total, nil
}

// EvaluateHistory groups the shadow ledger by day and judges each day
// against its own effective target.
func (g *Goals) EvaluateHistory(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (GoalHistory, error) {
	current, err := g.GetTarget(ctx, sessionID, playerID)
	if err != nil {
		return GoalHistory{}, err
	}
	entries, err := generic.NewLedger(g.store).Entries(ctx, generic.LedgerDailyGoal, playerID)
	if err != nil {
		return GoalHistory{}, err
	}

	days := evaluateDays(entries)
	met := 0
	for _, d := range days {
		if d.Met {
			met++
		}
	}
	return GoalHistory{GoalsMet: met, CurrentTarget: current, Days: days}, nil
}

// evaluateDays expects entries in insertion order.
func evaluateDays(entries []generic.Entry) []DayResult {
	byDay := make(map[generic.Day]*DayResult)
	lastID := make(map[generic.Day]generic.EntryID)
	for _, e := range entries {
		d, ok := byDay[e.Day]
		if !ok {
			d = &DayResult{Day: e.Day, Total: decimal.Zero}
			byDay[e.Day] = d
		}
		d.Total = d.Total.Add(e.Amount)
		if e.GoalTarget != nil && e.ID >= lastID[e.Day] {
			d.Target = *e.GoalTarget
			lastID[e.Day] = e.ID
		}
	}

	result := make([]DayResult, 0, len(byDay))
	for _, d := range byDay {
		d.Met = d.Target.IsPositive() && d.Total.GreaterThanOrEqual(d.Target)
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day.After(result[j].Day) })
	return result
}
