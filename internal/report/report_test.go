package report

import (
	"bytes"
	"strings"
	"testing"

	"melee-tracker/internal/domain"
	"melee-tracker/internal/ingest"
	"melee-tracker/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMeta struct {
	tags        map[domain.PlayerID]string
	tournaments map[domain.PlayerID]int
}

func (s *stubMeta) TagFor(id domain.PlayerID) string {
	if tag, ok := s.tags[id]; ok {
		return tag
	}
	return string(id)
}

func (s *stubMeta) Stats(player domain.PlayerID) ingest.PlayerStats {
	return ingest.PlayerStats{Tournaments: s.tournaments[player]}
}

func buildFixture() (*ledger.Ledger, *stubMeta, ledger.Strength) {
	led := ledger.New()
	led.RecordResult("A", "B", 3, 1, true, "beat B", "lost to A")
	led.RecordResult("A", "C", 3, 0, true, "beat C", "lost to A")
	led.RecordResult("B", "A", 3, 2, true, "beat A", "lost to B")

	meta := &stubMeta{
		tags:        map[domain.PlayerID]string{"A": "Alpha", "B": "Bravo", "C": "Charlie"},
		tournaments: map[domain.PlayerID]int{"A": 4, "B": 2, "C": 1},
	}
	strength := func(id domain.PlayerID) float64 {
		return map[domain.PlayerID]float64{"A": 30, "B": 20, "C": 10}[id]
	}
	return led, meta, strength
}

func TestBuildSummaryCellFormat(t *testing.T) {
	led, meta, strength := buildFixture()
	data := Build(led, meta, strength)

	require.NotEmpty(t, data.Wins)
	assert.Equal(t, domain.PlayerID("A"), data.Wins[0].Player)
	// tag (total sets), wins-losses in tournaments
	assert.Equal(t, "Alpha (3),2-1 in 4 ", data.Wins[0].Leftmost)
}

func TestBuildOpponentCells(t *testing.T) {
	led, meta, strength := buildFixture()
	data := Build(led, meta, strength)

	require.Len(t, data.Wins[0].Cells, 2)
	// Strongest beaten opponent first, with the H2H from A's side.
	assert.Equal(t, "Bravo (1-1)", data.Wins[0].Cells[0])
	assert.Equal(t, "Charlie (1-0)", data.Wins[0].Cells[1])
}

func TestBuildH2HGrid(t *testing.T) {
	led, meta, strength := buildFixture()
	data := Build(led, meta, strength)

	require.Equal(t, []string{"", "Alpha", "Bravo"}, data.H2H.Header[:3])
	require.Len(t, data.H2H.Rows, 3)

	rowA := data.H2H.Rows[0]
	assert.Equal(t, "Alpha", rowA[0])
	assert.Equal(t, "-", rowA[1])
	assert.Equal(t, "1-1", rowA[2])
}

func TestBuildIncludesLossOnlyPlayersInGrid(t *testing.T) {
	led, meta, strength := buildFixture()
	data := Build(led, meta, strength)

	// C never won a set but must still appear in the matrix.
	tags := make([]string, 0, len(data.H2H.Rows))
	for _, row := range data.H2H.Rows {
		tags = append(tags, row[0])
	}
	assert.Contains(t, tags, "Charlie")
}

func TestPrintWinsRendersTable(t *testing.T) {
	led, meta, strength := buildFixture()
	data := Build(led, meta, strength)

	var buf bytes.Buffer
	PrintWins(&buf, data)

	out := buf.String()
	assert.True(t, strings.Contains(out, "Alpha"))
	assert.True(t, strings.Contains(out, "2-1 in 4"))
	assert.True(t, strings.Contains(out, "Bravo (1-1)"))
}
