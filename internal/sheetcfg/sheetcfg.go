package sheetcfg

import (
	"context"
	"fmt"
	"strings"

	"melee-tracker/internal/config"
	"melee-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// CSVFetcher downloads one tab of the config spreadsheet.
type CSVFetcher interface {
	GetSheetCSV(ctx context.Context, gid string) ([][]string, error)
}

// Tables is the run configuration loaded from the curated spreadsheet:
// the tracked roster plus the identity and scope tables.
type Tables struct {
	// Roster in sheet order, duplicate rows included.
	Roster []domain.RosterEntry

	// Duplicates maps alternate-account ids onto their canonical id.
	Duplicates map[domain.PlayerID]domain.PlayerID

	// Swaps: tournament id -> bracket entrant id -> actual player id.
	Swaps map[string]map[domain.PlayerID]domain.PlayerID

	// Banned tournament ids, excluded regardless of the date window.
	Banned map[string]struct{}

	// CopyBadges maps a player to the player whose badge count they
	// borrow for ranking.
	CopyBadges map[domain.PlayerID]domain.PlayerID

	// PastPeriods holds the sheet links of prior ranking periods, newest
	// last, for operators digging through history.
	PastPeriods []string
}

// Primaries returns the tracked (non-duplicate) roster entries in sheet
// order.
func (t *Tables) Primaries() []domain.RosterEntry {
	out := make([]domain.RosterEntry, 0, len(t.Roster))
	for _, entry := range t.Roster {
		if !entry.Duplicate {
			out = append(out, entry)
		}
	}
	return out
}

type Loader struct {
	fetcher CSVFetcher
	cfg     *config.Config
	logger  zerolog.Logger
}

func NewLoader(fetcher CSVFetcher, cfg *config.Config, logger zerolog.Logger) *Loader {
	return &Loader{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Load downloads and parses every config tab. Tabs without a configured
// gid yield empty tables; an unreachable tab is a fatal collaborator
// failure.
func (l *Loader) Load(ctx context.Context) (*Tables, error) {
	rosterRows, err := l.fetcher.GetSheetCSV(ctx, l.cfg.RosterGID)
	if err != nil {
		return nil, fmt.Errorf("load roster tab: %w", err)
	}
	tables, err := ParseRoster(rosterRows)
	if err != nil {
		return nil, fmt.Errorf("parse roster tab: %w", err)
	}

	tables.Swaps = map[string]map[domain.PlayerID]domain.PlayerID{}
	if l.cfg.SwapsGID != "" {
		rows, err := l.fetcher.GetSheetCSV(ctx, l.cfg.SwapsGID)
		if err != nil {
			return nil, fmt.Errorf("load swaps tab: %w", err)
		}
		tables.Swaps = ParseSwaps(rows)
	}

	tables.Banned = map[string]struct{}{}
	if l.cfg.BannedGID != "" {
		rows, err := l.fetcher.GetSheetCSV(ctx, l.cfg.BannedGID)
		if err != nil {
			return nil, fmt.Errorf("load banned tab: %w", err)
		}
		tables.Banned = ParseBanned(rows)
	}

	if l.cfg.PeriodsGID != "" {
		rows, err := l.fetcher.GetSheetCSV(ctx, l.cfg.PeriodsGID)
		if err != nil {
			return nil, fmt.Errorf("load periods tab: %w", err)
		}
		tables.PastPeriods = ParsePeriods(rows)
	}

	l.logger.Info().
		Int("roster", len(tables.Roster)).
		Int("duplicates", len(tables.Duplicates)).
		Int("swap_tournaments", len(tables.Swaps)).
		Int("banned", len(tables.Banned)).
		Int("past_periods", len(tables.PastPeriods)).
		Msg("config tables loaded")

	return tables, nil
}

// ParseRoster reads the player tab. Each row after the header is
// tag, pgstats URL, and optionally a URL to copy badge counts from. A
// "^" tag marks a duplicate account belonging to the preceding primary
// row.
func ParseRoster(rows [][]string) (*Tables, error) {
	tables := &Tables{
		Duplicates: map[domain.PlayerID]domain.PlayerID{},
		CopyBadges: map[domain.PlayerID]domain.PlayerID{},
	}

	var lastPrimary domain.PlayerID
	for i, row := range skipHeader(rows) {
		if len(row) < 2 || strings.TrimSpace(row[1]) == "" {
			continue
		}
		tag := strings.TrimSpace(row[0])
		id, err := URLToID(row[1])
		if err != nil {
			return nil, fmt.Errorf("roster row %d: %w", i+2, err)
		}

		entry := domain.RosterEntry{Tag: tag, PlayerID: id}
		if tag == "^" {
			if lastPrimary == "" {
				return nil, fmt.Errorf("roster row %d: duplicate row before any primary", i+2)
			}
			entry.Duplicate = true
			tables.Duplicates[id] = lastPrimary
		} else {
			lastPrimary = id
		}

		if len(row) >= 3 && strings.TrimSpace(row[2]) != "" {
			src, err := URLToID(row[2])
			if err != nil {
				return nil, fmt.Errorf("roster row %d copy column: %w", i+2, err)
			}
			entry.CopyBadgesFrom = src
			tables.CopyBadges[id] = src
		}

		tables.Roster = append(tables.Roster, entry)
	}
	return tables, nil
}

// ParseSwaps reads the bracket-swap tab: tournament id, entrant id,
// actual player id per row. Ids may be given as pgstats URLs.
func ParseSwaps(rows [][]string) map[string]map[domain.PlayerID]domain.PlayerID {
	swaps := map[string]map[domain.PlayerID]domain.PlayerID{}
	for _, row := range skipHeader(rows) {
		if len(row) < 3 {
			continue
		}
		tournamentID := strings.TrimSpace(row[0])
		entrant := looseID(row[1])
		actual := looseID(row[2])
		if tournamentID == "" || entrant == "" || actual == "" {
			continue
		}
		if swaps[tournamentID] == nil {
			swaps[tournamentID] = map[domain.PlayerID]domain.PlayerID{}
		}
		swaps[tournamentID][entrant] = actual
	}
	return swaps
}

// ParseBanned reads the banned-tournament tab, one id per row.
func ParseBanned(rows [][]string) map[string]struct{} {
	banned := map[string]struct{}{}
	for _, row := range skipHeader(rows) {
		if len(row) == 0 {
			continue
		}
		if id := strings.TrimSpace(row[0]); id != "" {
			banned[id] = struct{}{}
		}
	}
	return banned
}

// ParsePeriods reads the past-ranking-periods tab; the fourth column of
// each row links to that period's published sheet.
func ParsePeriods(rows [][]string) []string {
	var links []string
	for _, row := range skipHeader(rows) {
		if len(row) < 4 {
			continue
		}
		if link := strings.TrimSpace(row[3]); link != "" {
			links = append(links, link)
		}
	}
	return links
}

// URLToID extracts the player id from a pgstats profile URL.
func URLToID(url string) (domain.PlayerID, error) {
	_, after, found := strings.Cut(url, "?id=")
	if !found || after == "" {
		return "", fmt.Errorf("no player id in url %q", url)
	}
	return domain.PlayerID(after), nil
}

// looseID accepts a bare player id or a pgstats URL.
func looseID(s string) domain.PlayerID {
	s = strings.TrimSpace(s)
	if id, err := URLToID(s); err == nil {
		return id
	}
	return domain.PlayerID(s)
}

func skipHeader(rows [][]string) [][]string {
	if len(rows) == 0 {
		return nil
	}
	return rows[1:]
}
