package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// WriteCSV publishes the report as wins.csv, losses.csv, and h2h.csv in
// the given directory.
func WriteCSV(dir string, data *Data) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	if err := writeRowsCSV(filepath.Join(dir, "wins.csv"), data.Wins); err != nil {
		return err
	}
	if err := writeRowsCSV(filepath.Join(dir, "losses.csv"), data.Losses); err != nil {
		return err
	}

	grid := append([][]string{data.H2H.Header}, data.H2H.Rows...)
	return writeRecords(filepath.Join(dir, "h2h.csv"), grid)
}

func writeRowsCSV(path string, rows []Row) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, append([]string{row.Leftmost}, row.Cells...))
	}
	return writeRecords(path, records)
}

func writeRecords(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
