/*
roster.go - Players of a session

PURPOSE:
  Adds and removes players, lists the leaderboard and summarizes the
  lifetime ledger per day for the history view.

LEADERBOARD ORDER:
  total descending, then name ascending

SEE ALSO:
  - recorder.go: Changes totals
  - store/sqlite/ledger.go: Persistence and ordering
*/
package exercise

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/warp/repboard/generic"
)

// MaxNameLength bounds player names.
const MaxNameLength = 100

// DefaultHistoryDays is how many days DailyHistory returns when no limit is given.
const DefaultHistoryDays = 30

// DailySummary aggregates one day of the lifetime ledger.
type DailySummary struct {
	Day       generic.Day
	Total     decimal.Decimal
	Additions int
	Removals  int
}

// Roster manages the players of a session.
type Roster struct {
	store generic.Store
}

func NewRoster(store generic.Store) *Roster {
	return &Roster{store: store}
}

// Add creates a player with a zero total. Names are unique per session.
func (r *Roster) Add(ctx context.Context, sessionID generic.SessionID, name string) (generic.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return generic.Player{}, &generic.ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return generic.Player{}, &generic.ValidationError{Field: "name", Message: "name is too long"}
	}
	return r.store.CreatePlayer(ctx, generic.Player{SessionID: sessionID, Name: name})
}

func (r *Roster) Get(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (generic.Player, error) {
	return r.store.GetPlayer(ctx, sessionID, playerID)
}

// Leaderboard lists the session's players by total descending, then name.
func (r *Roster) Leaderboard(ctx context.Context, sessionID generic.SessionID) ([]generic.Player, error) {
	return r.store.ListPlayers(ctx, sessionID)
}

// Remove deletes the player together with both ledgers and its goal target.
func (r *Roster) Remove(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID) error {
	return r.store.DeletePlayer(ctx, sessionID, playerID)
}

// DailyHistory sums the lifetime ledger per day, newest first.
func (r *Roster) DailyHistory(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID, limit int) ([]DailySummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryDays
	}
	if _, err := r.store.GetPlayer(ctx, sessionID, playerID); err != nil {
		return nil, err
	}
	entries, err := generic.NewLedger(r.store).Entries(ctx, generic.LedgerLifetime, playerID)
	if err != nil {
		return nil, err
	}

	byDay := make(map[generic.Day]*DailySummary)
	for _, e := range entries {
		s, ok := byDay[e.Day]
		if !ok {
			s = &DailySummary{Day: e.Day, Total: decimal.Zero}
			byDay[e.Day] = s
		}
		s.Total = s.Total.Add(e.Amount)
		switch {
		case e.Amount.IsPositive():
			s.Additions++
		case e.Amount.IsNegative():
			s.Removals++
		}
	}

	result := make([]DailySummary, 0, len(byDay))
	for _, s := range byDay {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day.After(result[j].Day) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
