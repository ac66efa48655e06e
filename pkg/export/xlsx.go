package export

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the exported records.
const SheetName = "Produits"

// WriteXLSX renders the dataset as a spreadsheet with a bold header row.
func WriteXLSX(ds *Dataset, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for c, col := range ds.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, col); err != nil {
			return fmt.Errorf("write header cell: %w", err)
		}
	}

	if len(ds.Columns) > 0 {
		styleID, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
		})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(ds.Columns), 1)
		if err != nil {
			return fmt.Errorf("header range: %w", err)
		}
		if err := f.SetCellStyle(SheetName, "A1", last, styleID); err != nil {
			return fmt.Errorf("apply header style: %w", err)
		}
	}

	for i := 0; i < ds.Len(); i++ {
		row := ds.Row(i)
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, i+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(SheetName, cell, value); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}

	log.Info().
		Str("path", path).
		Int("records", ds.Len()).
		Msg("Excel file created")
	return nil
}
