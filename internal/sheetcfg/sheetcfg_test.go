package sheetcfg

import (
	"context"
	"testing"

	"melee-tracker/internal/config"
	"melee-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLToID(t *testing.T) {
	id, err := URLToID("https://www.pgstats.com/melee/player/Kevbot?id=S12293")
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerID("S12293"), id)

	_, err = URLToID("https://www.pgstats.com/melee/player/Kevbot")
	require.Error(t, err)
}

func TestParseRosterBuildsDuplicateTable(t *testing.T) {
	rows := [][]string{
		{"tag", "url"},
		{"Mango", "https://pgstats.com/p?id=S1"},
		{"^", "https://pgstats.com/p?id=S1b"},
		{"^", "https://pgstats.com/p?id=S1c"},
		{"Zain", "https://pgstats.com/p?id=S2"},
		{"^", "https://pgstats.com/p?id=S2b"},
	}

	tables, err := ParseRoster(rows)
	require.NoError(t, err)

	assert.Len(t, tables.Roster, 5)
	assert.Equal(t, map[domain.PlayerID]domain.PlayerID{
		"S1b": "S1",
		"S1c": "S1",
		"S2b": "S2",
	}, tables.Duplicates)

	primaries := tables.Primaries()
	require.Len(t, primaries, 2)
	assert.Equal(t, "Mango", primaries[0].Tag)
	assert.Equal(t, domain.PlayerID("S2"), primaries[1].PlayerID)
}

func TestParseRosterCopyBadgeColumn(t *testing.T) {
	rows := [][]string{
		{"tag", "url", "copy_badge_count_from"},
		{"Newcomer", "https://pgstats.com/p?id=S9", "https://pgstats.com/p?id=S1"},
	}

	tables, err := ParseRoster(rows)
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerID("S1"), tables.CopyBadges["S9"])
	assert.Equal(t, domain.PlayerID("S1"), tables.Roster[0].CopyBadgesFrom)
}

func TestParseRosterRejectsLeadingDuplicateRow(t *testing.T) {
	rows := [][]string{
		{"tag", "url"},
		{"^", "https://pgstats.com/p?id=S1b"},
	}
	_, err := ParseRoster(rows)
	require.Error(t, err)
}

func TestParseRosterSkipsBlankRows(t *testing.T) {
	rows := [][]string{
		{"tag", "url"},
		{"", ""},
		{"Mango", "https://pgstats.com/p?id=S1"},
		{},
	}
	tables, err := ParseRoster(rows)
	require.NoError(t, err)
	assert.Len(t, tables.Roster, 1)
}

func TestParseSwaps(t *testing.T) {
	rows := [][]string{
		{"tournament_id", "entrant", "actual"},
		{"T1", "https://pgstats.com/p?id=X1", "X2"},
		{"T1", "X3", "X4"},
		{"T2", "X5", "https://pgstats.com/p?id=X6"},
		{"", "X7", "X8"},
	}

	swaps := ParseSwaps(rows)
	assert.Equal(t, map[string]map[domain.PlayerID]domain.PlayerID{
		"T1": {"X1": "X2", "X3": "X4"},
		"T2": {"X5": "X6"},
	}, swaps)
}

func TestParseBanned(t *testing.T) {
	rows := [][]string{
		{"tournament_id", "reason"},
		{"T9", "bracket never finished"},
		{"T12"},
		{""},
	}

	banned := ParseBanned(rows)
	assert.Equal(t, map[string]struct{}{"T9": {}, "T12": {}}, banned)
}

func TestParsePeriods(t *testing.T) {
	rows := [][]string{
		{"name", "start", "end", "sheet"},
		{"Spring 2022", "2022-01-01", "2022-06-30", "https://docs.google.com/spreadsheets/d/abc"},
		{"short row"},
		{"Fall 2022", "2022-07-01", "2022-12-31", ""},
		{"Spring 2023", "2023-01-01", "2023-06-30", "https://docs.google.com/spreadsheets/d/def"},
	}

	links := ParsePeriods(rows)
	assert.Equal(t, []string{
		"https://docs.google.com/spreadsheets/d/abc",
		"https://docs.google.com/spreadsheets/d/def",
	}, links)
}

type stubCSVFetcher struct {
	tabs map[string][][]string
}

func (s *stubCSVFetcher) GetSheetCSV(_ context.Context, gid string) ([][]string, error) {
	return s.tabs[gid], nil
}

func TestLoaderLoadsAllTabs(t *testing.T) {
	fetcher := &stubCSVFetcher{tabs: map[string][][]string{
		"0": {
			{"tag", "url"},
			{"Mango", "https://pgstats.com/p?id=S1"},
			{"^", "https://pgstats.com/p?id=S1b"},
		},
		"10": {
			{"tournament_id", "entrant", "actual"},
			{"T1", "X1", "X2"},
		},
		"20": {
			{"tournament_id"},
			{"T9"},
		},
		"30": {
			{"name", "start", "end", "sheet"},
			{"Spring 2023", "2023-01-01", "2023-06-30", "https://docs.google.com/spreadsheets/d/abc"},
		},
	}}

	cfg := &config.Config{RosterGID: "0", SwapsGID: "10", BannedGID: "20", PeriodsGID: "30"}
	loader := NewLoader(fetcher, cfg, zerolog.Nop())

	tables, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, tables.Roster, 2)
	assert.Equal(t, domain.PlayerID("S1"), tables.Duplicates["S1b"])
	assert.Equal(t, domain.PlayerID("X2"), tables.Swaps["T1"]["X1"])
	assert.Contains(t, tables.Banned, "T9")
	assert.Equal(t, []string{"https://docs.google.com/spreadsheets/d/abc"}, tables.PastPeriods)
}

func TestLoaderToleratesMissingOptionalTabs(t *testing.T) {
	fetcher := &stubCSVFetcher{tabs: map[string][][]string{
		"0": {
			{"tag", "url"},
			{"Mango", "https://pgstats.com/p?id=S1"},
		},
	}}

	cfg := &config.Config{RosterGID: "0"}
	loader := NewLoader(fetcher, cfg, zerolog.Nop())

	tables, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables.Swaps)
	assert.Empty(t, tables.Banned)
}
