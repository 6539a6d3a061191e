package ledger

import (
	"fmt"
	"sort"

	"melee-tracker/internal/domain"
)

// GameTally is the total games won and lost across all deduplicated sets
// between an ordered pair of players.
type GameTally struct {
	Won  int
	Lost int
}

// Ledger accumulates head-to-head results for one reporting run. It is
// constructed once per run and mutated only by RecordResult; re-reading
// never changes state. Not safe for concurrent use, which is fine: the
// pipeline ingests players strictly one at a time.
type Ledger struct {
	wins    map[domain.PlayerID]map[domain.PlayerID]int
	losses  map[domain.PlayerID]map[domain.PlayerID]int
	games   map[domain.PlayerID]map[domain.PlayerID]GameTally
	history map[domain.PlayerID]map[domain.PlayerID][]string
}

func New() *Ledger {
	return &Ledger{
		wins:    make(map[domain.PlayerID]map[domain.PlayerID]int),
		losses:  make(map[domain.PlayerID]map[domain.PlayerID]int),
		games:   make(map[domain.PlayerID]map[domain.PlayerID]GameTally),
		history: make(map[domain.PlayerID]map[domain.PlayerID][]string),
	}
}

// RecordResult books exactly one win for winner over loser and one loss
// for loser against winner. The game tally is only touched when both
// scores were numeric (hasScores); a set with unreported games still
// counts as a win and a loss. wonLine and lostLine are the two
// perspectives of the same encounter and land in the respective
// histories in chronological append order.
func (l *Ledger) RecordResult(
	winner, loser domain.PlayerID,
	winnerScore, loserScore int,
	hasScores bool,
	wonLine, lostLine string,
) {
	bump(l.wins, winner, loser, 1)
	bump(l.losses, loser, winner, 1)

	if hasScores {
		wt := tallyFor(l.games, winner, loser)
		wt.Won += winnerScore
		wt.Lost += loserScore
		l.games[winner][loser] = wt

		lt := tallyFor(l.games, loser, winner)
		lt.Won += loserScore
		lt.Lost += winnerScore
		l.games[loser][winner] = lt
	}

	appendHistory(l.history, winner, loser, wonLine)
	appendHistory(l.history, loser, winner, lostLine)
}

// Wins returns how often player beat opponent. Unseen pairs are 0.
func (l *Ledger) Wins(player, opponent domain.PlayerID) int {
	return l.wins[player][opponent]
}

// Losses returns how often player lost to opponent. Unseen pairs are 0.
func (l *Ledger) Losses(player, opponent domain.PlayerID) int {
	return l.losses[player][opponent]
}

// GameTally returns the game totals for player against opponent.
func (l *Ledger) GameTally(player, opponent domain.PlayerID) GameTally {
	return l.games[player][opponent]
}

// History returns the encounter summaries between player and opponent,
// most recent first. The returned slice is a copy.
func (l *Ledger) History(player, opponent domain.PlayerID) []string {
	lines := l.history[player][opponent]
	out := make([]string, len(lines))
	for i, line := range lines {
		out[len(lines)-1-i] = line
	}
	return out
}

// H2H formats the record between player and opponent as "W-L" from
// player's perspective.
func (l *Ledger) H2H(player, opponent domain.PlayerID) string {
	return fmt.Sprintf("%d-%d", l.Wins(player, opponent), l.Losses(player, opponent))
}

// TotalWins sums player's wins over all opponents.
func (l *Ledger) TotalWins(player domain.PlayerID) int {
	total := 0
	for _, n := range l.wins[player] {
		total += n
	}
	return total
}

// TotalLosses sums player's losses against all opponents.
func (l *Ledger) TotalLosses(player domain.PlayerID) int {
	total := 0
	for _, n := range l.losses[player] {
		total += n
	}
	return total
}

// Players returns every player that appears on either side of the
// ledger, in unspecified order.
func (l *Ledger) Players() []domain.PlayerID {
	seen := make(map[domain.PlayerID]struct{})
	for p := range l.wins {
		seen[p] = struct{}{}
	}
	for p := range l.losses {
		seen[p] = struct{}{}
	}
	out := make([]domain.PlayerID, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}

func bump(m map[domain.PlayerID]map[domain.PlayerID]int, a, b domain.PlayerID, n int) {
	inner, ok := m[a]
	if !ok {
		inner = make(map[domain.PlayerID]int)
		m[a] = inner
	}
	inner[b] += n
}

func tallyFor(m map[domain.PlayerID]map[domain.PlayerID]GameTally, a, b domain.PlayerID) GameTally {
	inner, ok := m[a]
	if !ok {
		inner = make(map[domain.PlayerID]GameTally)
		m[a] = inner
	}
	return inner[b]
}

func appendHistory(m map[domain.PlayerID]map[domain.PlayerID][]string, a, b domain.PlayerID, line string) {
	inner, ok := m[a]
	if !ok {
		inner = make(map[domain.PlayerID][]string)
		m[a] = inner
	}
	inner[b] = append(inner[b], line)
}

// Strength supplies the ranking key used purely to order report rows.
// It never affects win/loss correctness.
type Strength func(domain.PlayerID) float64

// OpponentLine is a single opponent cell in a report row.
type OpponentLine struct {
	Opponent domain.PlayerID
	Count    int
	H2H      string
}

// PlayerRow is one report row: a player and their ordered opponents.
type PlayerRow struct {
	Player    domain.PlayerID
	Opponents []OpponentLine
}

// WinsView enumerates every player with at least one win, strongest
// player first, and within a row the opponents beaten, strongest
// opponent first: a player's best wins lead.
func (l *Ledger) WinsView(strength Strength) []PlayerRow {
	return l.view(l.wins, strength, true)
}

// LossesView enumerates every player with at least one loss, strongest
// player first, and within a row the opponents lost to, weakest
// opponent first: a player's worst losses lead.
func (l *Ledger) LossesView(strength Strength) []PlayerRow {
	return l.view(l.losses, strength, false)
}

func (l *Ledger) view(
	counts map[domain.PlayerID]map[domain.PlayerID]int,
	strength Strength,
	opponentsDesc bool,
) []PlayerRow {
	rows := make([]PlayerRow, 0, len(counts))
	for player, opponents := range counts {
		row := PlayerRow{Player: player}
		for opponent, n := range opponents {
			row.Opponents = append(row.Opponents, OpponentLine{
				Opponent: opponent,
				Count:    n,
				H2H:      l.H2H(player, opponent),
			})
		}
		sortOpponents(row.Opponents, strength, opponentsDesc)
		rows = append(rows, row)
	}

	// Equal keys fall back to the id so the order is reproducible
	// across runs even when two players share a strength value.
	sort.Slice(rows, func(i, j int) bool {
		si, sj := strength(rows[i].Player), strength(rows[j].Player)
		if si != sj {
			return si > sj
		}
		return rows[i].Player < rows[j].Player
	})
	return rows
}

func sortOpponents(lines []OpponentLine, strength Strength, desc bool) {
	sort.Slice(lines, func(i, j int) bool {
		si, sj := strength(lines[i].Opponent), strength(lines[j].Opponent)
		if si != sj {
			if desc {
				return si > sj
			}
			return si < sj
		}
		return lines[i].Opponent < lines[j].Opponent
	})
}
