package report

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// maxTerminalOpponents caps how many opponent cells the terminal table
// shows per player; the file sinks carry the full rows.
const maxTerminalOpponents = 5

// PrintWins writes the wins view as a terminal table.
func PrintWins(w io.Writer, data *Data) {
	printRows(w, "BEST WINS", data.Wins)
}

// PrintLosses writes the losses view as a terminal table.
func PrintLosses(w io.Writer, data *Data) {
	printRows(w, "WORST LOSSES", data.Losses)
}

func printRows(w io.Writer, label string, rows []Row) {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))

	table.Header("PLAYER", "RECORD", label)

	for _, row := range rows {
		tag, record, _ := strings.Cut(row.Leftmost, ",")
		cells := row.Cells
		if len(cells) > maxTerminalOpponents {
			cells = cells[:maxTerminalOpponents]
		}
		table.Append(tag, strings.TrimSpace(record), strings.Join(cells, ", "))
	}
	table.Render()
}
