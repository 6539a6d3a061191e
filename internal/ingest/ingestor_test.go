package ingest

import (
	"context"
	"testing"
	"time"

	"melee-tracker/internal/domain"
	"melee-tracker/internal/identity"
	"melee-tracker/internal/ledger"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	windowStart = time.Date(2023, 5, 8, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	inWindow    = time.Date(2023, 7, 15, 10, 0, 0, 0, time.UTC)
)

type fixture struct {
	ledger   *ledger.Ledger
	ingestor *Ingestor
}

func newFixture(t *testing.T,
	duplicates map[domain.PlayerID]domain.PlayerID,
	swaps map[string]map[domain.PlayerID]domain.PlayerID,
	banned map[string]struct{},
) *fixture {
	t.Helper()
	resolver, err := identity.NewResolver(duplicates, swaps, zerolog.Nop())
	require.NoError(t, err)

	led := ledger.New()
	scope := Scope{WindowStart: windowStart, WindowEnd: windowEnd, Banned: banned}
	return &fixture{
		ledger:   led,
		ingestor: New(resolver, led, scope, zerolog.Nop()),
	}
}

func offlineTournament(id, name string, start time.Time) domain.Tournament {
	return domain.Tournament{ID: id, Name: name, StartTime: start, Attendees: 64}
}

func set(id string, p1, p2, winner domain.PlayerID, p1Score, p2Score string) domain.Set {
	return domain.Set{
		ID:       id,
		P1ID:     p1,
		P2ID:     p2,
		P1Tag:    string(p1) + "-tag",
		P2Tag:    string(p2) + "-tag",
		P1Score:  p1Score,
		P2Score:  p2Score,
		WinnerID: winner,
	}
}

func results(recs ...domain.TournamentRecord) map[string]domain.TournamentRecord {
	out := make(map[string]domain.TournamentRecord, len(recs))
	for _, rec := range recs {
		out[rec.Info.ID] = rec
	}
	return out
}

func TestIngestEmptyResultsIsCollaboratorFailure(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	err := f.ingestor.IngestPlayer(context.Background(), "A", nil)
	require.ErrorIs(t, err, ErrNoResults)
	assert.Contains(t, err.Error(), "A")
}

func TestIngestRecordsWinAndLossOnce(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{set("s1", "A", "B", "A", "3", "1")},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	assert.Equal(t, 1, f.ledger.Wins("A", "B"))
	assert.Equal(t, 1, f.ledger.Losses("B", "A"))
	assert.Equal(t, ledger.GameTally{Won: 3, Lost: 1}, f.ledger.GameTally("A", "B"))
	require.Len(t, f.ingestor.Recorded(), 1)
	assert.Equal(t, "s1", f.ingestor.Recorded()[0].SetID)
}

func TestIngestIsIdempotentAcrossReruns(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{set("s1", "A", "B", "A", "3", "1")},
	}

	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	assert.Equal(t, 1, f.ledger.Wins("A", "B"))
	assert.Equal(t, 1, f.ledger.Losses("B", "A"))
	assert.Equal(t, ledger.GameTally{Won: 3, Lost: 1}, f.ledger.GameTally("A", "B"))
	assert.Len(t, f.ledger.History("A", "B"), 1)
}

func TestIngestDeduplicatesAcrossBothParticipantsFeeds(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	// The same match appears once in each participant's own feed.
	shared := set("s1", "A", "B", "A", "3", "2")
	feedA := results(domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{shared},
	})
	feedB := results(domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{shared},
	})

	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", feedA))
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "B", feedB))

	assert.Equal(t, 1, f.ledger.Wins("A", "B"))
	assert.Equal(t, 1, f.ledger.Losses("B", "A"))
	assert.Len(t, f.ingestor.Recorded(), 1)
}

func TestIngestSkipsDQSetsEntirely(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	dq := set("s1", "A", "B", "A", "0", "0")
	dq.DQ = true
	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{dq},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	assert.Equal(t, 0, f.ledger.Wins("A", "B"))
	assert.Equal(t, 0, f.ledger.Losses("B", "A"))
	assert.Equal(t, ledger.GameTally{}, f.ledger.GameTally("A", "B"))
	assert.Empty(t, f.ingestor.Recorded())
}

func TestIngestSkipsOnlineTournaments(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	online := offlineTournament("T1", "Online Open", inWindow)
	online.Online = true
	rec := domain.TournamentRecord{
		Info: online,
		Sets: []domain.Set{set("s1", "A", "B", "A", "3", "0")},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	assert.Equal(t, 0, f.ledger.Wins("A", "B"))
	assert.Equal(t, 0, f.ingestor.Stats("A").Tournaments)
}

func TestIngestSkipsTournamentsOutsideWindow(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	early := offlineTournament("T1", "Too Early", windowStart.Add(-24*time.Hour))
	late := offlineTournament("T2", "Too Late", windowEnd.Add(24*time.Hour))
	feed := results(
		domain.TournamentRecord{Info: early, Sets: []domain.Set{set("s1", "A", "B", "A", "3", "0")}},
		domain.TournamentRecord{Info: late, Sets: []domain.Set{set("s2", "A", "B", "A", "3", "0")}},
	)
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", feed))

	assert.Equal(t, 0, f.ledger.Wins("A", "B"))
	assert.Equal(t, 0, f.ingestor.Stats("A").Tournaments)
}

func TestIngestSkipsBannedTournamentsEvenInWindow(t *testing.T) {
	f := newFixture(t, nil, nil, map[string]struct{}{"T1": {}})

	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Banned Major", inWindow),
		Sets: []domain.Set{set("s1", "A", "B", "A", "3", "0")},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	assert.Equal(t, 0, f.ledger.Wins("A", "B"))
}

func TestIngestResolvesIdentitiesBeforeTallying(t *testing.T) {
	// B's alternate account "B2" shows up in the bracket; both halves
	// of the record land on the canonical id.
	f := newFixture(t, map[domain.PlayerID]domain.PlayerID{"B2": "B"}, nil, nil)

	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{set("s1", "A", "B2", "B2", "1", "3")},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	assert.Equal(t, 1, f.ledger.Wins("B", "A"))
	assert.Equal(t, 1, f.ledger.Losses("A", "B"))
	assert.Equal(t, 0, f.ledger.Wins("B2", "A"))
}

func TestIngestDeduplicatesAcrossAliasedFeeds(t *testing.T) {
	// A's feed shows the set under B's alt; B's feed shows it under the
	// canonical id. Resolution must collapse both onto one key.
	f := newFixture(t, map[domain.PlayerID]domain.PlayerID{"B2": "B"}, nil, nil)

	feedA := results(domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{set("s1", "A", "B2", "A", "3", "1")},
	})
	feedB := results(domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{set("s1", "A", "B", "A", "3", "1")},
	})

	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", feedA))
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "B2", feedB))

	assert.Equal(t, 1, f.ledger.Wins("A", "B"))
	assert.Equal(t, 1, f.ledger.Losses("B", "A"))
}

func TestIngestAppliesBracketSwapWithinTournamentOnly(t *testing.T) {
	swaps := map[string]map[domain.PlayerID]domain.PlayerID{
		"T1": {"X": "Y"},
	}
	f := newFixture(t, nil, swaps, nil)

	feed := results(
		domain.TournamentRecord{
			Info: offlineTournament("T1", "Swapped Bracket", inWindow),
			Sets: []domain.Set{set("s1", "A", "X", "X", "0", "3")},
		},
		domain.TournamentRecord{
			Info: offlineTournament("T2", "Normal Bracket", inWindow.Add(time.Hour)),
			Sets: []domain.Set{set("s2", "A", "X", "X", "1", "3")},
		},
	)
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", feed))

	assert.Equal(t, 1, f.ledger.Wins("Y", "A"))
	assert.Equal(t, 1, f.ledger.Wins("X", "A"))
}

func TestIngestToleratesNonNumericScores(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{set("s1", "A", "B", "A", "W", "L")},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	assert.Equal(t, 1, f.ledger.Wins("A", "B"))
	assert.Equal(t, ledger.GameTally{}, f.ledger.GameTally("A", "B"))
	require.Len(t, f.ingestor.Recorded(), 1)
	assert.False(t, f.ingestor.Recorded()[0].HasScores)
}

func TestIngestTreatsNegativeScoresAsUnknown(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{set("s1", "A", "B", "A", "3", "-1")},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	assert.Equal(t, 1, f.ledger.Wins("A", "B"))
	assert.Equal(t, ledger.GameTally{}, f.ledger.GameTally("A", "B"))
}

func TestIngestSkipsSetWithInvalidWinner(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{set("s1", "A", "B", "C", "3", "1")},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	assert.Equal(t, 0, f.ledger.Wins("A", "B"))
	assert.Equal(t, 0, f.ledger.Wins("C", "B"))
	assert.Empty(t, f.ingestor.Recorded())
}

func TestIngestSkipsSelfPlayAfterResolution(t *testing.T) {
	// A bad mapping folds both participants onto the same player.
	f := newFixture(t, map[domain.PlayerID]domain.PlayerID{"A2": "A"}, nil, nil)

	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{set("s1", "A", "A2", "A", "3", "1")},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	assert.Equal(t, 0, f.ledger.Wins("A", "A"))
	assert.Empty(t, f.ingestor.Recorded())
}

func TestIngestTracksPlacementsAndAttendance(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	s1 := set("s1", "A", "B", "A", "3", "1")
	s1.P1Standing = 4
	s1.P2Standing = 9
	s2 := set("s2", "A", "C", "A", "3", "0")
	s2.P1Standing = 2
	s2.P2Standing = 13

	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{s1, s2},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	stats := f.ingestor.Stats("A")
	assert.Equal(t, 1, stats.Tournaments)
	assert.Equal(t, 2, stats.TotalSets)
	assert.Equal(t, 2, stats.BestPlacement["T1"])
	assert.Equal(t, 3, f.ingestor.AttendeeCount("T1"))
}

func TestIngestUsesObservedTags(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	s := set("s1", "A", "B", "A", "3", "1")
	s.P1Tag = "Mango,Jr"
	s.P2Tag = ""
	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{s},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(rec)))

	// Commas would break CSV cells; empty tags get a placeholder.
	assert.Equal(t, "Mango-Jr", f.ingestor.TagFor("A"))
	assert.Equal(t, "_null", f.ingestor.TagFor("B"))
	assert.Equal(t, "C", f.ingestor.TagFor("C"))
}

func TestIngestEndToEndThreePlayers(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	s1 := set("s1", "A", "B", "A", "2", "1")
	s2 := set("s2", "B", "C", "B", "2", "0")
	tournament := offlineTournament("T1", "Regional", inWindow)

	// Every participant's feed carries both sets.
	for _, player := range []domain.PlayerID{"A", "B", "C"} {
		feed := results(domain.TournamentRecord{Info: tournament, Sets: []domain.Set{s1, s2}})
		require.NoError(t, f.ingestor.IngestPlayer(context.Background(), player, feed))
	}

	assert.Equal(t, 1, f.ledger.Wins("A", "B"))
	assert.Equal(t, 1, f.ledger.Losses("B", "A"))
	assert.Equal(t, ledger.GameTally{Won: 2, Lost: 1}, f.ledger.GameTally("A", "B"))

	assert.Equal(t, 1, f.ledger.Wins("B", "C"))
	assert.Equal(t, 1, f.ledger.Losses("C", "B"))
	assert.Equal(t, ledger.GameTally{Won: 2, Lost: 0}, f.ledger.GameTally("B", "C"))

	for _, p := range f.ledger.Players() {
		for _, q := range f.ledger.Players() {
			assert.LessOrEqual(t, f.ledger.Wins(p, q), 1)
			assert.LessOrEqual(t, f.ledger.Losses(p, q), 1)
		}
	}
	assert.Len(t, f.ingestor.Recorded(), 2)
}

func TestIngestProcessesTournamentsChronologically(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	later := domain.TournamentRecord{
		Info: offlineTournament("T2", "Later", inWindow.Add(48*time.Hour)),
		Sets: []domain.Set{set("s2", "A", "B", "A", "3", "1")},
	}
	earlier := domain.TournamentRecord{
		Info: offlineTournament("T1", "Earlier", inWindow),
		Sets: []domain.Set{set("s1", "A", "B", "B", "1", "3")},
	}
	require.NoError(t, f.ingestor.IngestPlayer(context.Background(), "A", results(later, earlier)))

	// Most recent encounter first.
	history := f.ledger.History("A", "B")
	require.Len(t, history, 2)
	assert.Contains(t, history[0], "Later")
	assert.Contains(t, history[1], "Earlier")
}

func TestIngestHonorsContextCancellation(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := domain.TournamentRecord{
		Info: offlineTournament("T1", "Weekly 12", inWindow),
		Sets: []domain.Set{set("s1", "A", "B", "A", "3", "1")},
	}
	err := f.ingestor.IngestPlayer(ctx, "A", results(rec))
	require.ErrorIs(t, err, context.Canceled)
}
