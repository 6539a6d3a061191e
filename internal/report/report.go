package report

import (
	"fmt"

	"melee-tracker/internal/domain"
	"melee-tracker/internal/ingest"
	"melee-tracker/internal/ledger"
)

// Meta supplies the display metadata a report needs on top of the
// ledger's counts; the ingestor satisfies it.
type Meta interface {
	TagFor(id domain.PlayerID) string
	Stats(player domain.PlayerID) ingest.PlayerStats
}

// Row is one rendered report row: the summary cell followed by one cell
// per opponent, already ordered.
type Row struct {
	Player   domain.PlayerID
	Leftmost string
	Cells    []string
}

// H2HGrid is the all-pairs head-to-head matrix. Header carries the
// column tags; each row starts with the player's tag.
type H2HGrid struct {
	Header []string
	Rows   [][]string
}

// Data is a fully rendered report, ready for any sink.
type Data struct {
	Wins   []Row
	Losses []Row
	H2H    H2HGrid
}

// Build renders the ledger's sorted views into report rows. Players are
// ordered strongest first; a wins row lists the strongest opponents
// beaten first, a losses row the weakest opponents lost to first.
func Build(led *ledger.Ledger, meta Meta, strength ledger.Strength) *Data {
	data := &Data{
		Wins:   buildRows(led, led.WinsView(strength), meta),
		Losses: buildRows(led, led.LossesView(strength), meta),
	}

	players := make([]domain.PlayerID, 0, len(data.Wins))
	seen := make(map[domain.PlayerID]struct{}, len(data.Wins))
	for _, row := range data.Wins {
		players = append(players, row.Player)
		seen[row.Player] = struct{}{}
	}
	for _, row := range data.Losses {
		if _, ok := seen[row.Player]; !ok {
			players = append(players, row.Player)
		}
	}
	data.H2H = buildGrid(led, meta, players)

	return data
}

func buildRows(led *ledger.Ledger, view []ledger.PlayerRow, meta Meta) []Row {
	rows := make([]Row, 0, len(view))
	for _, pr := range view {
		row := Row{
			Player:   pr.Player,
			Leftmost: summaryCell(led, meta, pr.Player),
		}
		for _, line := range pr.Opponents {
			row.Cells = append(row.Cells, fmt.Sprintf("%s (%s)", meta.TagFor(line.Opponent), line.H2H))
		}
		rows = append(rows, row)
	}
	return rows
}

func summaryCell(led *ledger.Ledger, meta Meta, player domain.PlayerID) string {
	w := led.TotalWins(player)
	l := led.TotalLosses(player)
	tournaments := meta.Stats(player).Tournaments
	return fmt.Sprintf("%s (%d),%d-%d in %d ", meta.TagFor(player), w+l, w, l, tournaments)
}

func buildGrid(led *ledger.Ledger, meta Meta, players []domain.PlayerID) H2HGrid {
	grid := H2HGrid{Header: make([]string, 0, len(players)+1)}
	grid.Header = append(grid.Header, "")
	for _, p := range players {
		grid.Header = append(grid.Header, meta.TagFor(p))
	}

	for _, p := range players {
		row := make([]string, 0, len(players)+1)
		row = append(row, meta.TagFor(p))
		for _, q := range players {
			if p == q {
				row = append(row, "-")
				continue
			}
			row = append(row, led.H2H(p, q))
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}
