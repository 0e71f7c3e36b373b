package outfmt

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/tsiemens/ukcgt/portfolio"
)

// XLSXWriter collects the tables as sheets of one workbook, written by Save.
type XLSXWriter struct {
	f        *excelize.File
	filename string
	sheets   int
}

func NewXLSXWriter(filename string) *XLSXWriter {
	return &XLSXWriter{f: excelize.NewFile(), filename: filename}
}

func sheetName(outType OutputType, name string) string {
	var sheet string
	switch outType {
	case Disposals:
		sheet = fileSafe(name)
	case TaxYearSummary:
		sheet = "Tax Years"
	}
	// Sheet names are limited to 31 characters.
	if r := []rune(sheet); len(r) > 31 {
		sheet = string(r[:31])
	}
	return sheet
}

// PrintRenderTable implements ReportWriter.
func (w *XLSXWriter) PrintRenderTable(outType OutputType, name string, tableModel *portfolio.RenderTable) error {
	if outType != Disposals && outType != TaxYearSummary {
		return fmt.Errorf("OutputType %v not implemented", outType)
	}
	sheet := sheetName(outType, name)
	w.f.NewSheet(sheet)
	w.sheets++

	rows := [][]string{tableModel.Header}
	rows = append(rows, tableModel.Rows...)
	if len(tableModel.Footer) > 0 {
		rows = append(rows, tableModel.Footer)
	}
	for _, note := range tableModel.Notes {
		rows = append(rows, []string{note})
	}
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, axis, &cells); err != nil {
			return fmt.Errorf("Write sheet %q: %w", sheet, err)
		}
	}
	return nil
}

func (w *XLSXWriter) Save() error {
	if w.sheets > 0 {
		w.f.DeleteSheet("Sheet1")
	}
	if err := w.f.SaveAs(w.filename); err != nil {
		return fmt.Errorf("Save workbook %q: %w", w.filename, err)
	}
	return nil
}
