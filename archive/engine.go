/*
engine.go - Archival engine

PURPOSE:
  Snapshots every non-empty tenant table of a session into
  archive_snapshots, one row per table, and reads them back decoded.

PARTIAL FAILURE:
  Tables are archived independently. When some fail, the snapshots that
  succeeded are kept and a *PartialArchiveError names both sides. Live
  tables are never modified.

SEE ALSO:
  - payload.go: Typed payload per table
  - store/sqlite/archive.go: Source and Sink
*/
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/repboard/generic"
	"github.com/warp/repboard/logging"
	"github.com/warp/repboard/metrics"
)

// =============================================================================
// STORE CONTRACTS
// =============================================================================

// Source reads every tenant-scoped row of one session.
type Source interface {
	SessionPlayers(ctx context.Context, sessionID generic.SessionID) ([]generic.Player, error)
	SessionEntries(ctx context.Context, sessionID generic.SessionID, kind generic.LedgerKind) ([]generic.Entry, error)
	SessionGoalTargets(ctx context.Context, sessionID generic.SessionID) ([]generic.GoalTarget, error)
	SessionSettings(ctx context.Context, sessionID generic.SessionID) ([]generic.Setting, error)
	SessionCompetitionWindows(ctx context.Context, sessionID generic.SessionID) ([]generic.CompetitionWindow, error)
}

// Record is a stored snapshot before decoding.
type Record struct {
	ID        int64
	SessionID generic.SessionID
	Table     Table
	Data      []byte
	CreatedAt time.Time
}

// Sink persists write-once snapshot records.
type Sink interface {
	SaveSnapshot(ctx context.Context, r Record) (Record, error)
	ListSnapshots(ctx context.Context, sessionID generic.SessionID) ([]Record, error)
}

// Snapshot is a decoded Record.
type Snapshot struct {
	ID        int64
	SessionID generic.SessionID
	Payload   Payload
	CreatedAt time.Time
}

// =============================================================================
// PARTIAL FAILURE
// =============================================================================

// PartialArchiveError reports which tables were archived before others failed.
// Archived snapshots are kept; nothing is rolled back.
type PartialArchiveError struct {
	Archived []Table
	Failed   map[Table]error
}

func (e *PartialArchiveError) Error() string {
	failed := make([]string, 0, len(e.Failed))
	for t := range e.Failed {
		failed = append(failed, string(t))
	}
	sort.Strings(failed)
	archived := make([]string, len(e.Archived))
	for i, t := range e.Archived {
		archived[i] = string(t)
	}
	return fmt.Sprintf("archive incomplete: failed [%s], archived [%s]",
		strings.Join(failed, ", "), strings.Join(archived, ", "))
}

// Unwrap exposes the per-table causes to errors.Is/As.
func (e *PartialArchiveError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine snapshots sessions. It never mutates live tables.
type Engine struct {
	source Source
	sink   Sink
}

func NewEngine(source Source, sink Sink) *Engine {
	return &Engine{source: source, sink: sink}
}

// Archive writes one snapshot per non-empty table. Each table is independent:
// a failure on one does not stop the others and is reported through
// *PartialArchiveError alongside the snapshots that did succeed.
func (e *Engine) Archive(ctx context.Context, sessionID generic.SessionID) ([]Snapshot, error) {
	var (
		snapshots []Snapshot
		partial   = &PartialArchiveError{Failed: map[Table]error{}}
	)
	for _, table := range Tables {
		payload, err := e.collect(ctx, sessionID, table)
		if err == nil && payload.Len() == 0 {
			continue
		}
		var snap Snapshot
		if err == nil {
			snap, err = e.save(ctx, sessionID, payload)
		}
		metrics.RecordArchiveSnapshot(string(table), err)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("table", string(table)).Msg("archive snapshot failed")
			partial.Failed[table] = err
			continue
		}
		partial.Archived = append(partial.Archived, table)
		snapshots = append(snapshots, snap)
	}

	logging.Ctx(ctx).Info().
		Int64("session_id", int64(sessionID)).
		Int("snapshots", len(snapshots)).
		Int("failed", len(partial.Failed)).
		Msg("session archived")

	if len(partial.Failed) > 0 {
		return snapshots, partial
	}
	return snapshots, nil
}

// History returns a session's snapshots, oldest first, decoded.
func (e *Engine) History(ctx context.Context, sessionID generic.SessionID) ([]Snapshot, error) {
	records, err := e.sink.ListSnapshots(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(records))
	for _, r := range records {
		p, err := Decode(r.Table, r.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{ID: r.ID, SessionID: r.SessionID, Payload: p, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (e *Engine) save(ctx context.Context, sessionID generic.SessionID, p Payload) (Snapshot, error) {
	data, err := Encode(p)
	if err != nil {
		return Snapshot{}, err
	}
	rec, err := e.sink.SaveSnapshot(ctx, Record{SessionID: sessionID, Table: p.Table(), Data: data})
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ID: rec.ID, SessionID: rec.SessionID, Payload: p, CreatedAt: rec.CreatedAt}, nil
}

func (e *Engine) collect(ctx context.Context, sessionID generic.SessionID, table Table) (Payload, error) {
	switch table {
	case TablePlayers:
		rows, err := e.source.SessionPlayers(ctx, sessionID)
		return playersPayload(rows), err
	case TableLifetimeLedger:
		rows, err := e.source.SessionEntries(ctx, sessionID, generic.LedgerLifetime)
		return LifetimeLedgerPayload(entryRows(rows)), err
	case TableGoalTargets:
		rows, err := e.source.SessionGoalTargets(ctx, sessionID)
		return goalTargetsPayload(rows), err
	case TableGoalLedger:
		rows, err := e.source.SessionEntries(ctx, sessionID, generic.LedgerDailyGoal)
		return GoalLedgerPayload(entryRows(rows)), err
	case TableSettings:
		rows, err := e.source.SessionSettings(ctx, sessionID)
		return settingsPayload(rows), err
	case TableCompetitionWindows:
		rows, err := e.source.SessionCompetitionWindows(ctx, sessionID)
		return competitionWindowPayload(rows), err
	}
	return nil, errors.New("archive: unknown table " + string(table))
}
