/*
recorder.go - Aggregation engine: one delta, two ledgers, one transaction

PURPOSE:
  RecordDelta is the only way counts change. It keeps Player.Total equal to
  the lifetime ledger sum and keeps today's goal progress non-negative,
  clamping each side against its own accumulator.

SEQUENCE (all inside one TxStore.WithTx):
  1. Resolve the day (explicit client date wins, else today in the zone)
  2. Load the player, scoped to the session (NotFound aborts)
  3. Clamp the delta against the lifetime total
  4. Append the lifetime entry
  5. Persist total + stored delta
  6. Sum the shadow ledger for that day, clamp the stored delta again
  7. Append the shadow entry with the current target, unless it is zero

  Steps 3 and 6 clamp independently. A player with 100 lifetime and 20
  today who removes 50 stores -50 lifetime and -20 shadow.

WHY ONE TRANSACTION:
  Reading the total and writing it back in separate statements loses
  updates when two deltas for the same player race. WithTx serializes the
  whole read-modify-write.

SEE ALSO:
  - generic/ledger.go: ClampRemoval
  - goals.go: Reading the shadow ledger back
*/
package exercise

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/repboard/generic"
	"github.com/warp/repboard/logging"
	"github.com/warp/repboard/metrics"
)

// DefaultDailyGoal is used for players who never configured a target.
var DefaultDailyGoal = decimal.NewFromInt(100)

// DeltaInput is one requested adjustment.
type DeltaInput struct {
	SessionID generic.SessionID
	PlayerID  generic.PlayerID
	Kind      Kind
	Amount    decimal.Decimal

	// Day is the client's YYYY-MM-DD; empty means today in the resolver zone.
	Day string
}

// DeltaResult describes what was actually stored.
type DeltaResult struct {
	Player   generic.Player
	Lifetime generic.Entry

	// Goal is nil when the shadow delta clamped to zero and was skipped.
	Goal *generic.Entry

	LifetimeClamped bool
	GoalClamped     bool
}

// Recorder applies deltas to both ledgers.
type Recorder struct {
	store         generic.TxStore
	dates         *generic.DateResolver
	defaultTarget decimal.Decimal
	now           func() time.Time
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithDefaultTarget overrides DefaultDailyGoal.
func WithDefaultTarget(target decimal.Decimal) RecorderOption {
	return func(r *Recorder) { r.defaultTarget = target }
}

// WithClock overrides time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(store generic.TxStore, dates *generic.DateResolver, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:         store,
		dates:         dates,
		defaultTarget: DefaultDailyGoal,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordDelta validates the amount, then runs the dual-ledger write atomically.
// Nothing is written when validation fails or the player is unknown.
func (r *Recorder) RecordDelta(ctx context.Context, in DeltaInput) (DeltaResult, error) {
	if err := in.Kind.ValidateAmount(in.Amount); err != nil {
		return DeltaResult{}, err
	}
	day, err := r.dates.Resolve(in.Day)
	if err != nil {
		return DeltaResult{}, err
	}

	var res DeltaResult
	err = r.store.WithTx(ctx, func(tx generic.Store) error {
		var err error
		res, err = r.apply(ctx, tx, in, day)
		return err
	})
	if err != nil {
		return DeltaResult{}, err
	}

	metrics.RecordLedgerEntry(generic.LedgerLifetime.String(), res.LifetimeClamped)
	if res.Goal != nil {
		metrics.RecordLedgerEntry(generic.LedgerDailyGoal.String(), res.GoalClamped)
	} else if res.GoalClamped {
		metrics.RecordLedgerClamp(generic.LedgerDailyGoal.String())
	}
	if res.LifetimeClamped || res.GoalClamped {
		logging.Ctx(ctx).Debug().
			Int64("player_id", int64(in.PlayerID)).
			Str("requested", in.Amount.String()).
			Str("lifetime", res.Lifetime.Amount.String()).
			Bool("goal_skipped", res.Goal == nil).
			Msg("removal clamped")
	}
	return res, nil
}

func (r *Recorder) apply(ctx context.Context, tx generic.Store, in DeltaInput, day generic.Day) (DeltaResult, error) {
	ledger := generic.NewLedger(tx)

	player, err := tx.GetPlayer(ctx, in.SessionID, in.PlayerID)
	if err != nil {
		return DeltaResult{}, err
	}

	// Lifetime side
	stored := generic.ClampRemoval(player.Total, in.Amount)
	res := DeltaResult{LifetimeClamped: !stored.Equal(in.Amount)}

	res.Lifetime, err = ledger.Append(ctx, generic.Entry{
		Kind:      generic.LedgerLifetime,
		SessionID: in.SessionID,
		PlayerID:  in.PlayerID,
		Amount:    stored,
		Day:       day,
	})
	if err != nil {
		return DeltaResult{}, err
	}

	res.Player, err = tx.UpdateTotal(ctx, in.PlayerID, player.Total.Add(stored), r.now())
	if err != nil {
		return DeltaResult{}, err
	}

	// Shadow side: clamp what was actually removed against that day's progress
	today, err := ledger.SumDay(ctx, generic.LedgerDailyGoal, in.PlayerID, day)
	if err != nil {
		return DeltaResult{}, err
	}
	shadow := generic.ClampRemoval(today, stored)
	res.GoalClamped = !shadow.Equal(stored)
	if shadow.IsZero() {
		return res, nil
	}

	target, err := currentTarget(ctx, tx, in.SessionID, in.PlayerID, r.defaultTarget)
	if err != nil {
		return DeltaResult{}, err
	}
	goal, err := ledger.Append(ctx, generic.Entry{
		Kind:       generic.LedgerDailyGoal,
		SessionID:  in.SessionID,
		PlayerID:   in.PlayerID,
		Amount:     shadow,
		Day:        day,
		GoalTarget: &target,
	})
	if err != nil {
		return DeltaResult{}, err
	}
	res.Goal = &goal
	return res, nil
}

func currentTarget(ctx context.Context, store generic.GoalStore, sessionID generic.SessionID, playerID generic.PlayerID, fallback decimal.Decimal) (decimal.Decimal, error) {
	t, err := store.GetGoalTarget(ctx, sessionID, playerID)
	if err != nil {
		return decimal.Zero, err
	}
	if t == nil {
		return fallback, nil
	}
	return t.Target, nil
}
