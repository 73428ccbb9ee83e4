package archive_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/repboard/archive"
	"github.com/warp/repboard/generic"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakeSource struct {
	players  []generic.Player
	lifetime []generic.Entry
	goal     []generic.Entry
	targets  []generic.GoalTarget
	settings []generic.Setting
	windows  []generic.CompetitionWindow

	failTable archive.Table
}

var errBoom = errors.New("boom")

func (f *fakeSource) fail(t archive.Table) error {
	if f.failTable == t {
		return errBoom
	}
	return nil
}

func (f *fakeSource) SessionPlayers(context.Context, generic.SessionID) ([]generic.Player, error) {
	return f.players, f.fail(archive.TablePlayers)
}

func (f *fakeSource) SessionEntries(_ context.Context, _ generic.SessionID, kind generic.LedgerKind) ([]generic.Entry, error) {
	if kind == generic.LedgerLifetime {
		return f.lifetime, f.fail(archive.TableLifetimeLedger)
	}
	return f.goal, f.fail(archive.TableGoalLedger)
}

func (f *fakeSource) SessionGoalTargets(context.Context, generic.SessionID) ([]generic.GoalTarget, error) {
	return f.targets, f.fail(archive.TableGoalTargets)
}

func (f *fakeSource) SessionSettings(context.Context, generic.SessionID) ([]generic.Setting, error) {
	return f.settings, f.fail(archive.TableSettings)
}

func (f *fakeSource) SessionCompetitionWindows(context.Context, generic.SessionID) ([]generic.CompetitionWindow, error) {
	return f.windows, f.fail(archive.TableCompetitionWindows)
}

type memorySink struct {
	records []archive.Record
}

func (m *memorySink) SaveSnapshot(_ context.Context, r archive.Record) (archive.Record, error) {
	r.ID = int64(len(m.records) + 1)
	r.CreatedAt = time.Now().UTC()
	m.records = append(m.records, r)
	return r, nil
}

func (m *memorySink) ListSnapshots(_ context.Context, sessionID generic.SessionID) ([]archive.Record, error) {
	var out []archive.Record
	for _, r := range m.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func sampleSource() *fakeSource {
	day := generic.MustParseDay("2025-12-09")
	return &fakeSource{
		players: []generic.Player{
			{ID: 1, SessionID: 7, Name: "ana", Total: decimal.NewFromInt(30)},
			{ID: 2, SessionID: 7, Name: "bob", Total: decimal.NewFromInt(5)},
		},
		lifetime: []generic.Entry{
			{ID: 1, Kind: generic.LedgerLifetime, SessionID: 7, PlayerID: 1, Amount: decimal.NewFromInt(50), Day: day},
			{ID: 2, Kind: generic.LedgerLifetime, SessionID: 7, PlayerID: 1, Amount: decimal.NewFromInt(-20), Day: day},
			{ID: 3, Kind: generic.LedgerLifetime, SessionID: 7, PlayerID: 2, Amount: decimal.NewFromInt(5), Day: day},
		},
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestArchive_OneSnapshotPerNonEmptyTable(t *testing.T) {
	// GIVEN: A session with 2 players, 3 ledger rows and no goal targets
	// WHEN: Archiving
	// THEN: Exactly two snapshots (players, lifetime ledger), none for goal targets

	sink := &memorySink{}
	engine := archive.NewEngine(sampleSource(), sink)

	snaps, err := engine.Archive(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, archive.TablePlayers, snaps[0].Payload.Table())
	assert.Equal(t, 2, snaps[0].Payload.Len())
	assert.Equal(t, archive.TableLifetimeLedger, snaps[1].Payload.Table())
	assert.Equal(t, 3, snaps[1].Payload.Len())
	assert.Len(t, sink.records, 2)
}

func TestArchive_EmptySessionWritesNothing(t *testing.T) {
	sink := &memorySink{}
	snaps, err := archive.NewEngine(&fakeSource{}, sink).Archive(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, snaps)
	assert.Empty(t, sink.records)
}

func TestArchive_PartialFailureKeepsOtherTables(t *testing.T) {
	// GIVEN: Reading the lifetime ledger fails
	// WHEN: Archiving
	// THEN: Players are still archived; the error names both sides

	src := sampleSource()
	src.failTable = archive.TableLifetimeLedger
	sink := &memorySink{}

	snaps, err := archive.NewEngine(src, sink).Archive(context.Background(), 7)
	require.Error(t, err)

	var partial *archive.PartialArchiveError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []archive.Table{archive.TablePlayers}, partial.Archived)
	assert.Contains(t, partial.Failed, archive.TableLifetimeLedger)
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, snaps, 1)
	assert.Len(t, sink.records, 1)
}

func TestHistory_DecodesTypedPayloads(t *testing.T) {
	target := decimal.NewFromInt(100)
	src := sampleSource()
	src.goal = []generic.Entry{{ID: 4, Kind: generic.LedgerDailyGoal, PlayerID: 1, Amount: decimal.NewFromInt(30), Day: generic.MustParseDay("2025-12-09"), GoalTarget: &target}}
	src.windows = []generic.CompetitionWindow{{SessionID: 7, EndsAt: "2025-12-31T23:59"}}

	engine := archive.NewEngine(src, &memorySink{})
	_, err := engine.Archive(context.Background(), 7)
	require.NoError(t, err)

	history, err := engine.History(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, history, 4)

	for _, snap := range history {
		switch p := snap.Payload.(type) {
		case archive.PlayersPayload:
			assert.Equal(t, "ana", p[0].Name)
			assert.Equal(t, "30", p[0].Total.String())
		case archive.LifetimeLedgerPayload:
			assert.Equal(t, "-20", p[1].Amount.String())
			assert.Nil(t, p[1].GoalTarget)
		case archive.GoalLedgerPayload:
			require.NotNil(t, p[0].GoalTarget)
			assert.Equal(t, "100", p[0].GoalTarget.String())
			assert.Equal(t, "2025-12-09", p[0].Day)
		case archive.CompetitionWindowPayload:
			assert.Equal(t, "2025-12-31T23:59", p[0].EndsAt)
		default:
			t.Fatalf("unexpected payload %T", p)
		}
	}

	other, err := engine.History(context.Background(), 8)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDecode_UnknownTable(t *testing.T) {
	_, err := archive.Decode("sessions", []byte("[]"))
	assert.Error(t, err)

	_, err = archive.Decode(archive.TablePlayers, []byte("{not json"))
	assert.Error(t, err)
}
