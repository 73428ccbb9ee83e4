// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/repboard/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	nextID  int64
	players map[generic.PlayerID]generic.Player
	entries map[key][]generic.Entry
	targets map[generic.PlayerID]generic.GoalTarget

	// Now stamps CreatedAt/UpdatedAt. Defaults to time.Now.
	Now func() time.Time
}

type key struct {
	Kind     generic.LedgerKind
	PlayerID generic.PlayerID
}

func NewMemory() *Memory {
	return &Memory{
		players: make(map[generic.PlayerID]generic.Player),
		entries: make(map[key][]generic.Entry),
		targets: make(map[generic.PlayerID]generic.GoalTarget),
		Now:     time.Now,
	}
}

func (m *Memory) now() time.Time { return m.Now().UTC() }

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// --- ledger ---

// Append adds a single entry. Append-only.
func (m *Memory) Append(_ context.Context, e generic.Entry) (generic.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

func (m *Memory) appendLocked(e generic.Entry) (generic.Entry, error) {
	if _, ok := m.players[e.PlayerID]; !ok {
		return generic.Entry{}, generic.PlayerNotFound(e.PlayerID)
	}
	e.ID = generic.EntryID(m.id())
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}
	k := key{Kind: e.Kind, PlayerID: e.PlayerID}
	m.entries[k] = append(m.entries[k], e)
	return e, nil
}

func (m *Memory) Load(_ context.Context, kind generic.LedgerKind, playerID generic.PlayerID) ([]generic.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadLocked(kind, playerID), nil
}

func (m *Memory) loadLocked(kind generic.LedgerKind, playerID generic.PlayerID) []generic.Entry {
	src := m.entries[key{Kind: kind, PlayerID: playerID}]
	result := make([]generic.Entry, len(src))
	copy(result, src)
	return result
}

func (m *Memory) LoadDay(_ context.Context, kind generic.LedgerKind, playerID generic.PlayerID, day generic.Day) ([]generic.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadDayLocked(kind, playerID, day), nil
}

func (m *Memory) loadDayLocked(kind generic.LedgerKind, playerID generic.PlayerID, day generic.Day) []generic.Entry {
	var result []generic.Entry
	for _, e := range m.entries[key{Kind: kind, PlayerID: playerID}] {
		if e.Day == day {
			result = append(result, e)
		}
	}
	return result
}

// --- players ---

func (m *Memory) CreatePlayer(_ context.Context, p generic.Player) (generic.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createPlayerLocked(p)
}

func (m *Memory) createPlayerLocked(p generic.Player) (generic.Player, error) {
	for _, existing := range m.players {
		if existing.SessionID == p.SessionID && existing.Name == p.Name {
			return generic.Player{}, &generic.ConflictError{Resource: "player", Name: p.Name}
		}
	}
	now := m.now()
	p.ID = generic.PlayerID(m.id())
	p.Total = decimal.Zero
	p.CreatedAt = now
	p.UpdatedAt = now
	m.players[p.ID] = p
	return p, nil
}

func (m *Memory) GetPlayer(_ context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (generic.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPlayerLocked(sessionID, playerID)
}

func (m *Memory) getPlayerLocked(sessionID generic.SessionID, playerID generic.PlayerID) (generic.Player, error) {
	p, ok := m.players[playerID]
	if !ok || p.SessionID != sessionID {
		return generic.Player{}, generic.PlayerNotFound(playerID)
	}
	return p, nil
}

func (m *Memory) ListPlayers(_ context.Context, sessionID generic.SessionID) ([]generic.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPlayersLocked(sessionID), nil
}

func (m *Memory) listPlayersLocked(sessionID generic.SessionID) []generic.Player {
	var result []generic.Player
	for _, p := range m.players {
		if p.SessionID == sessionID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].Total.Cmp(result[j].Total); c != 0 {
			return c > 0
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func (m *Memory) DeletePlayer(_ context.Context, sessionID generic.SessionID, playerID generic.PlayerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletePlayerLocked(sessionID, playerID)
}

func (m *Memory) deletePlayerLocked(sessionID generic.SessionID, playerID generic.PlayerID) error {
	if _, err := m.getPlayerLocked(sessionID, playerID); err != nil {
		return err
	}
	delete(m.players, playerID)
	delete(m.targets, playerID)
	delete(m.entries, key{Kind: generic.LedgerLifetime, PlayerID: playerID})
	delete(m.entries, key{Kind: generic.LedgerDailyGoal, PlayerID: playerID})
	return nil
}

func (m *Memory) UpdateTotal(_ context.Context, playerID generic.PlayerID, total decimal.Decimal, at time.Time) (generic.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateTotalLocked(playerID, total, at)
}

func (m *Memory) updateTotalLocked(playerID generic.PlayerID, total decimal.Decimal, at time.Time) (generic.Player, error) {
	p, ok := m.players[playerID]
	if !ok {
		return generic.Player{}, generic.PlayerNotFound(playerID)
	}
	p.Total = total
	p.UpdatedAt = at.UTC()
	m.players[playerID] = p
	return p, nil
}

// --- goal targets ---

func (m *Memory) GetGoalTarget(_ context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (*generic.GoalTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getGoalTargetLocked(sessionID, playerID), nil
}

func (m *Memory) getGoalTargetLocked(sessionID generic.SessionID, playerID generic.PlayerID) *generic.GoalTarget {
	t, ok := m.targets[playerID]
	if !ok || t.SessionID != sessionID {
		return nil
	}
	return &t
}

func (m *Memory) UpsertGoalTarget(_ context.Context, t generic.GoalTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertGoalTargetLocked(t)
}

func (m *Memory) upsertGoalTargetLocked(t generic.GoalTarget) error {
	if _, err := m.getPlayerLocked(t.SessionID, t.PlayerID); err != nil {
		return err
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = m.now()
	}
	m.targets[t.PlayerID] = t
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The write lock is held for the whole call, so transactions are serialized.
func (tm *TxMemory) WithTx(_ context.Context, fn func(generic.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}

	// Commit (already done via direct writes)
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	entries := make(map[key][]generic.Entry, len(tm.entries))
	for k, v := range tm.entries {
		entries[k] = append([]generic.Entry{}, v...)
	}
	players := make(map[generic.PlayerID]generic.Player, len(tm.players))
	for k, v := range tm.players {
		players[k] = v
	}
	targets := make(map[generic.PlayerID]generic.GoalTarget, len(tm.targets))
	for k, v := range tm.targets {
		targets[k] = v
	}
	return memorySnapshot{nextID: tm.nextID, players: players, entries: entries, targets: targets}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.nextID = s.nextID
	tm.players = s.players
	tm.entries = s.entries
	tm.targets = s.targets
}

type memorySnapshot struct {
	nextID  int64
	players map[generic.PlayerID]generic.Player
	entries map[key][]generic.Entry
	targets map[generic.PlayerID]generic.GoalTarget
}

// txMemoryView runs against the parent while WithTx already holds its lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) Append(_ context.Context, e generic.Entry) (generic.Entry, error) {
	return tv.parent.appendLocked(e)
}

func (tv *txMemoryView) Load(_ context.Context, kind generic.LedgerKind, playerID generic.PlayerID) ([]generic.Entry, error) {
	return tv.parent.loadLocked(kind, playerID), nil
}

func (tv *txMemoryView) LoadDay(_ context.Context, kind generic.LedgerKind, playerID generic.PlayerID, day generic.Day) ([]generic.Entry, error) {
	return tv.parent.loadDayLocked(kind, playerID, day), nil
}

func (tv *txMemoryView) CreatePlayer(_ context.Context, p generic.Player) (generic.Player, error) {
	return tv.parent.createPlayerLocked(p)
}

func (tv *txMemoryView) GetPlayer(_ context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (generic.Player, error) {
	return tv.parent.getPlayerLocked(sessionID, playerID)
}

func (tv *txMemoryView) ListPlayers(_ context.Context, sessionID generic.SessionID) ([]generic.Player, error) {
	return tv.parent.listPlayersLocked(sessionID), nil
}

func (tv *txMemoryView) DeletePlayer(_ context.Context, sessionID generic.SessionID, playerID generic.PlayerID) error {
	return tv.parent.deletePlayerLocked(sessionID, playerID)
}

func (tv *txMemoryView) UpdateTotal(_ context.Context, playerID generic.PlayerID, total decimal.Decimal, at time.Time) (generic.Player, error) {
	return tv.parent.updateTotalLocked(playerID, total, at)
}

func (tv *txMemoryView) GetGoalTarget(_ context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (*generic.GoalTarget, error) {
	return tv.parent.getGoalTargetLocked(sessionID, playerID), nil
}

func (tv *txMemoryView) UpsertGoalTarget(_ context.Context, t generic.GoalTarget) error {
	return tv.parent.upsertGoalTargetLocked(t)
}
