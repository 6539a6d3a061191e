package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"melee-tracker/internal/domain"
	"melee-tracker/internal/identity"
	"melee-tracker/internal/ledger"

	"github.com/rs/zerolog"
)

// ErrNoResults is returned when a player's results feed is empty or the
// provider returned nothing for them. The caller decides whether to skip
// that player or abort the run.
var ErrNoResults = errors.New("no tournament results")

// Scope decides which tournaments count toward the ledger. The three
// predicates are independent and combined with AND.
type Scope struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Banned      map[string]struct{}
}

func (s Scope) InScope(t domain.Tournament) bool {
	if t.Online {
		return false
	}
	if t.StartTime.Before(s.WindowStart) || t.StartTime.After(s.WindowEnd) {
		return false
	}
	if _, banned := s.Banned[t.ID]; banned {
		return false
	}
	return true
}

// setKey is the natural identity of a set: the same real-world match
// shows up once in each participant's feed, and both observations must
// collapse onto one key.
type setKey struct {
	winner       domain.PlayerID
	loser        domain.PlayerID
	tournamentID string
	setID        string
}

// RecordedSet is one deduplicated set as booked into the ledger,
// exported so the archive store can persist the run's output.
type RecordedSet struct {
	Winner       domain.PlayerID
	Loser        domain.PlayerID
	TournamentID string
	SetID        string
	WinnerScore  int
	LoserScore   int
	HasScores    bool
	PlayedAt     time.Time
}

// PlayerStats is per-tracked-player bookkeeping kept purely for report
// columns; it has no bearing on win/loss correctness.
type PlayerStats struct {
	Tournaments int
	TotalSets   int

	// BestPlacement maps tournament id to the lowest standing the
	// player reached there.
	BestPlacement map[string]int
}

// Ingestor walks tracked players' tournament histories and feeds unique
// sets into the ledger exactly once, no matter how many feeds the same
// set appears in. One Ingestor serves one run; the seen-set state is
// shared across all IngestPlayer calls and must be mutated in call
// order, which the single-threaded pipeline guarantees.
type Ingestor struct {
	resolver *identity.Resolver
	ledger   *ledger.Ledger
	scope    Scope
	logger   zerolog.Logger

	seen       map[setKey]struct{}
	recorded   []RecordedSet
	tags       map[domain.PlayerID]string
	stats      map[domain.PlayerID]*PlayerStats
	tournInfo  map[string]domain.Tournament
	attendance map[string]map[domain.PlayerID]struct{}
}

func New(resolver *identity.Resolver, led *ledger.Ledger, scope Scope, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		resolver:   resolver,
		ledger:     led,
		scope:      scope,
		logger:     logger,
		seen:       make(map[setKey]struct{}),
		tags:       make(map[domain.PlayerID]string),
		stats:      make(map[domain.PlayerID]*PlayerStats),
		tournInfo:  make(map[string]domain.Tournament),
		attendance: make(map[string]map[domain.PlayerID]struct{}),
	}
}

// IngestPlayer consumes one tracked player's full tournament history.
// Tournaments are processed in ascending start-time order (ties broken
// by tournament id) so ledger histories come out chronological. The call
// is idempotent at the set level: re-ingesting a feed, or ingesting the
// opposing participant's copy of a set, never double-counts.
func (in *Ingestor) IngestPlayer(
	ctx context.Context,
	playerID domain.PlayerID,
	results map[string]domain.TournamentRecord,
) error {
	if len(results) == 0 {
		return fmt.Errorf("player %s: %w", playerID, ErrNoResults)
	}

	player := in.resolver.Resolve(playerID, "")

	order := make([]string, 0, len(results))
	for id := range results {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		ti, tj := results[order[i]].Info.StartTime, results[order[j]].Info.StartTime
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return order[i] < order[j]
	})

	for _, tournamentID := range order {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ingest player %s: %w", player, err)
		}

		rec := results[tournamentID]
		info := rec.Info
		if info.ID == "" {
			info.ID = tournamentID
		}

		if !in.scope.InScope(info) {
			in.logger.Debug().
				Str("player_id", string(player)).
				Str("tournament_id", info.ID).
				Str("tournament_name", info.Name).
				Msg("skipping out-of-scope tournament")
			continue
		}

		in.logger.Info().
			Str("player_id", string(player)).
			Str("tournament_name", info.Name).
			Msg("adding tournament")

		in.tournInfo[info.ID] = info
		in.playerStats(player).Tournaments++

		for _, set := range rec.Sets {
			in.ingestSet(player, info, set)
		}
	}

	return nil
}

func (in *Ingestor) ingestSet(player domain.PlayerID, info domain.Tournament, set domain.Set) {
	p1 := in.resolver.Resolve(set.P1ID, info.ID)
	p2 := in.resolver.Resolve(set.P2ID, info.ID)
	winner := in.resolver.Resolve(set.WinnerID, info.ID)

	in.addTag(p1, set.P1Tag)
	in.addTag(p2, set.P2Tag)

	if set.DQ {
		in.logger.Info().
			Str("tournament_id", info.ID).
			Str("set_id", set.ID).
			Str("p1_tag", set.P1Tag).
			Str("p2_tag", set.P2Tag).
			Msg("dq found, skipping set")
		return
	}

	var loser domain.PlayerID
	switch {
	case p1 == p2:
		// Self-play after resolution means the mapping tables
		// misattribute one of the accounts.
		in.logMalformed(player, info.ID, set.ID, "both participants resolve to the same player")
		return
	case winner == p1:
		loser = p2
	case winner == p2:
		loser = p1
	default:
		in.logMalformed(player, info.ID, set.ID, "no valid winner_id among participants")
		return
	}

	in.recordAttendance(info.ID, p1, p2)
	in.recordPlacement(info.ID, p1, set.P1Standing)
	in.recordPlacement(info.ID, p2, set.P2Standing)
	in.playerStats(player).TotalSets++

	key := setKey{winner: winner, loser: loser, tournamentID: info.ID, setID: set.ID}
	if _, dup := in.seen[key]; dup {
		// Second observation of the same match from the opposing
		// participant's feed (or a re-run). Attendance above still
		// counts; the tallies must not.
		in.logger.Debug().
			Str("tournament_id", info.ID).
			Str("set_id", set.ID).
			Msg("set already ingested, skipping tallies")
		return
	}
	in.seen[key] = struct{}{}

	winnerRaw, loserRaw := set.P1Score, set.P2Score
	if winner == p2 {
		winnerRaw, loserRaw = set.P2Score, set.P1Score
	}
	winnerScore, wok := parseScore(winnerRaw)
	loserScore, lok := parseScore(loserRaw)
	hasScores := wok && lok

	score := "?-?"
	if hasScores {
		score = fmt.Sprintf("%d-%d", winnerScore, loserScore)
	}
	date := info.StartTime.Format("2006-01-02")
	wonLine := fmt.Sprintf("%s %s: beat %s %s", date, info.Name, in.TagFor(loser), score)
	lostLine := fmt.Sprintf("%s %s: lost to %s %s", date, info.Name, in.TagFor(winner), score)

	in.ledger.RecordResult(winner, loser, winnerScore, loserScore, hasScores, wonLine, lostLine)
	in.recorded = append(in.recorded, RecordedSet{
		Winner:       winner,
		Loser:        loser,
		TournamentID: info.ID,
		SetID:        set.ID,
		WinnerScore:  winnerScore,
		LoserScore:   loserScore,
		HasScores:    hasScores,
		PlayedAt:     info.StartTime,
	})
}

func (in *Ingestor) logMalformed(player domain.PlayerID, tournamentID, setID, reason string) {
	in.logger.Error().
		Str("player_id", string(player)).
		Str("tournament_id", tournamentID).
		Str("set_id", setID).
		Str("reason", reason).
		Msg("malformed set record, skipping")
}

func (in *Ingestor) addTag(id domain.PlayerID, tag string) {
	tag = strings.ReplaceAll(tag, ",", "-")
	if tag == "" {
		tag = "_null"
	}
	in.tags[id] = tag
}

func (in *Ingestor) recordAttendance(tournamentID string, players ...domain.PlayerID) {
	att, ok := in.attendance[tournamentID]
	if !ok {
		att = make(map[domain.PlayerID]struct{})
		in.attendance[tournamentID] = att
	}
	for _, p := range players {
		att[p] = struct{}{}
	}
}

func (in *Ingestor) recordPlacement(tournamentID string, player domain.PlayerID, standing int) {
	if standing <= 0 {
		return
	}
	stats := in.playerStats(player)
	if best, ok := stats.BestPlacement[tournamentID]; !ok || standing < best {
		stats.BestPlacement[tournamentID] = standing
	}
}

func (in *Ingestor) playerStats(player domain.PlayerID) *PlayerStats {
	stats, ok := in.stats[player]
	if !ok {
		stats = &PlayerStats{BestPlacement: make(map[string]int)}
		in.stats[player] = stats
	}
	return stats
}

// TagFor returns the last tag observed for a player, falling back to the
// raw id for players whose tag never appeared in a set record.
func (in *Ingestor) TagFor(id domain.PlayerID) string {
	if tag, ok := in.tags[id]; ok {
		return tag
	}
	return string(id)
}

// Stats returns the reporting counters for one tracked player.
func (in *Ingestor) Stats(player domain.PlayerID) PlayerStats {
	if stats, ok := in.stats[player]; ok {
		return *stats
	}
	return PlayerStats{}
}

// Recorded returns every unique set booked into the ledger this run, in
// ingestion order.
func (in *Ingestor) Recorded() []RecordedSet {
	return in.recorded
}

// Tournaments returns the in-scope tournaments encountered this run.
func (in *Ingestor) Tournaments() []domain.Tournament {
	out := make([]domain.Tournament, 0, len(in.tournInfo))
	for _, info := range in.tournInfo {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AttendeeCount reports how many distinct resolved players were seen in
// a tournament's sets across all feeds, duplicates included.
func (in *Ingestor) AttendeeCount(tournamentID string) int {
	return len(in.attendance[tournamentID])
}

// parseScore reads a raw provider score. Non-numeric and negative values
// (forfeits, unreported games) yield ok=false; the set still counts for
// win/loss, just not for the game tally.
func parseScore(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
