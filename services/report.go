package services

import (
	"fmt"
	"io"

	"footfall-prediction-api/models"

	"github.com/xuri/excelize/v2"
)

// WriteReport writes the views as an XLSX workbook, one sheet per view in
// display order. Cells without data are left empty.
func WriteReport(views models.Views, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	flat := []models.View{views.Hourly, views.Weekday, views.Monthly, views.Locations, views.Weekend}
	for i, v := range flat {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", v.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(v.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", v.Name, err)
		}
		if err := writeView(f, v); err != nil {
			return fmt.Errorf("write sheet %s: %w", v.Name, err)
		}
	}

	pivot := views.HourlyByLocation
	if _, err := f.NewSheet(pivot.Name); err != nil {
		return fmt.Errorf("create sheet %s: %w", pivot.Name, err)
	}
	if err := writePivot(f, pivot); err != nil {
		return fmt.Errorf("write sheet %s: %w", pivot.Name, err)
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeView(f *excelize.File, v models.View) error {
	sheet := v.Name
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{v.Title, v.YLabel}); err != nil {
		return err
	}
	for i, p := range v.Points {
		row := []interface{}{p.Label}
		if p.Value != nil {
			row = append(row, *p.Value)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writePivot(f *excelize.File, v models.PivotView) error {
	sheet := v.Name
	if err := f.SetCellValue(sheet, "A1", v.XLabel); err != nil {
		return err
	}
	for col, s := range v.Series {
		cell, err := excelize.CoordinatesToCellName(col+2, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, s.Location); err != nil {
			return err
		}
	}
	for row, h := range v.Hours {
		cell, err := excelize.CoordinatesToCellName(1, row+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		for col, s := range v.Series {
			if s.Values[row] == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+2, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, *s.Values[row]); err != nil {
				return err
			}
		}
	}
	return nil
}
