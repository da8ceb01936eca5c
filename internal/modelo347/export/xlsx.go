package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const moneyFormat = 4 // #,##0.00

// WriteXLSX writes sheets as a workbook. An empty list yields a workbook with
// a single empty sheet titled fallback.
func WriteXLSX(w io.Writer, sheets []Sheet, fallback string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := f.GetSheetName(0)
	if len(sheets) == 0 {
		if fallback != "" {
			if err := f.SetSheetName(first, sheetTitle(fallback)); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		}
		return write(f, w)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}
	numeric, err := f.NewStyle(&excelize.Style{NumFmt: moneyFormat})
	if err != nil {
		return fmt.Errorf("export: money style: %w", err)
	}

	for i, sheet := range sheets {
		name := sheetTitle(sheet.Title)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: new sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, sheet, bold, numeric); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)
	return write(f, w)
}

func writeSheet(f *excelize.File, name string, sheet Sheet, bold, numeric int) error {
	header := make([]any, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("export: %s header: %w", name, err)
	}
	if len(sheet.Headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(sheet.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(name, "A1", last, bold); err != nil {
			return fmt.Errorf("export: %s header style: %w", name, err)
		}
	}

	for r, row := range sheet.Rows {
		values := row
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("export: %s row %d: %w", name, r+1, err)
		}
		for c, v := range row {
			if _, ok := v.(float64); !ok {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(name, ref, ref, numeric); err != nil {
				return fmt.Errorf("export: %s money style: %w", name, err)
			}
		}
	}
	return nil
}

func write(f *excelize.File, w io.Writer) error {
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// sheetTitle trims a title to the 31 characters a sheet name may hold.
func sheetTitle(title string) string {
	runes := []rune(title)
	if len(runes) > 31 {
		runes = runes[:31]
	}
	if len(runes) == 0 {
		return "Sheet1"
	}
	return string(runes)
}
