package exercise_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/repboard/exercise"
	"github.com/warp/repboard/generic"
)

func TestGoals_RetroactiveTargetStability(t *testing.T) {
	// GIVEN: A day with 120 logged against a target of 100 (met)
	// WHEN: The current target is later changed to 150
	// THEN: That day is still met, evaluated against 100

	f := newFixture(t)
	ctx := context.Background()
	p := f.player(t, "ana")

	f.record(t, p, "70", "2025-12-08")
	f.record(t, p, "50", "2025-12-08")

	before, err := f.goals.EvaluateHistory(ctx, testSession, p.ID)
	require.NoError(t, err)
	require.Len(t, before.Days, 1)
	assert.True(t, before.Days[0].Met)

	_, err = f.goals.SetTarget(ctx, testSession, p.ID, decimal.NewFromInt(150))
	require.NoError(t, err)

	after, err := f.goals.EvaluateHistory(ctx, testSession, p.ID)
	require.NoError(t, err)
	require.Len(t, after.Days, 1)
	assert.True(t, after.Days[0].Met)
	assert.Equal(t, "100", after.Days[0].Target.String())
	assert.Equal(t, "120", after.Days[0].Total.String())
	assert.Equal(t, 1, after.GoalsMet)
	assert.Equal(t, "150", after.CurrentTarget.String())
}

func TestGoals_EffectiveTargetIsLastInsertedOfDay(t *testing.T) {
	// GIVEN: Two entries on one day written under targets 100 then 200
	// THEN: The day's effective target is 200 and 150 does not meet it

	f := newFixture(t)
	ctx := context.Background()
	p := f.player(t, "ana")

	f.record(t, p, "100", "2025-12-08")
	_, err := f.goals.SetTarget(ctx, testSession, p.ID, decimal.NewFromInt(200))
	require.NoError(t, err)
	f.record(t, p, "50", "2025-12-08")

	h, err := f.goals.EvaluateHistory(ctx, testSession, p.ID)
	require.NoError(t, err)
	require.Len(t, h.Days, 1)
	assert.Equal(t, "200", h.Days[0].Target.String())
	assert.False(t, h.Days[0].Met)
	assert.Zero(t, h.GoalsMet)
}

func TestGoals_EffectiveTargetFollowsInsertionNotDayOrder(t *testing.T) {
	// GIVEN: Day 8 logged under 100, target set to 50, then a back-dated
	//        entry for day 8 written under 50
	// THEN: Day 8 is judged against 50

	f := newFixture(t)
	ctx := context.Background()
	p := f.player(t, "ana")

	f.record(t, p, "60", "2025-12-08")
	f.record(t, p, "10", "2025-12-09")
	_, err := f.goals.SetTarget(ctx, testSession, p.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	f.record(t, p, "1", "2025-12-08")

	h, err := f.goals.EvaluateHistory(ctx, testSession, p.ID)
	require.NoError(t, err)
	require.Len(t, h.Days, 2)

	assert.Equal(t, "2025-12-09", h.Days[0].Day.String(), "newest first")
	assert.False(t, h.Days[0].Met)
	assert.Equal(t, "2025-12-08", h.Days[1].Day.String())
	assert.Equal(t, "50", h.Days[1].Target.String())
	assert.True(t, h.Days[1].Met)
	assert.Equal(t, 1, h.GoalsMet)
}

func TestGoals_SetTarget_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.player(t, "ana")

	_, err := f.goals.SetTarget(ctx, testSession, p.ID, decimal.Zero)
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.goals.SetTarget(ctx, testSession, p.ID, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.goals.SetTarget(ctx, testSession, 999, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestGoals_GetTarget_DefaultsWhenUnset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.player(t, "ana")

	target, err := f.goals.GetTarget(ctx, testSession, p.ID)
	require.NoError(t, err)
	assert.True(t, exercise.DefaultDailyGoal.Equal(target))

	_, err = f.goals.SetTarget(ctx, testSession, p.ID, decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	target, err = f.goals.GetTarget(ctx, testSession, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.5", target.String())
}

func TestGoals_ProgressToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.player(t, "ana")

	f.record(t, p, "30", "2025-12-08")
	f.record(t, p, "12", "")

	day, total, err := f.goals.ProgressToday(ctx, testSession, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-09", day.String())
	assert.Equal(t, "12", total.String())

	_, total, err = f.goals.ProgressToday(ctx, testSession, p.ID, "2025-12-08")
	require.NoError(t, err)
	assert.Equal(t, "30", total.String())

	_, _, err = f.goals.ProgressToday(ctx, testSession, p.ID, "yesterday")
	assert.ErrorIs(t, err, generic.ErrValidation)
}
