package report

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// WriteXLSX publishes the report as a workbook with wins, losses, and
// h2h sheets.
func WriteXLSX(path string, data *Data, logger zerolog.Logger) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeRowsSheet(f, "wins", data.Wins); err != nil {
		return err
	}
	if err := writeRowsSheet(f, "losses", data.Losses); err != nil {
		return err
	}
	if err := writeGridSheet(f, "h2h", data.H2H); err != nil {
		return err
	}

	// Drop the default sheet so the workbook opens on wins.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}

	logger.Info().
		Str("path", path).
		Int("wins_rows", len(data.Wins)).
		Int("losses_rows", len(data.Losses)).
		Msg("report workbook written")
	return nil
}

func writeRowsSheet(f *excelize.File, name string, rows []Row) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	for i, row := range rows {
		cells := append([]string{row.Leftmost}, row.Cells...)
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
		}
	}
	return nil
}

func writeGridSheet(f *excelize.File, name string, grid H2HGrid) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	all := append([][]string{grid.Header}, grid.Rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
		}
	}
	return nil
}
