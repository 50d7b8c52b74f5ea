package dataset

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	DefaultSheet = "Sheet1"
	dateFormat   = "yyyy-mm-dd"
)

// ReadXLSX loads the first sheet of a workbook. The first row is the header;
// every column is read as raw text, ready to be projected.
func ReadXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return NewTable(nil), nil
	}

	columns := make([]Column, len(rows[0]))
	for i, name := range rows[0] {
		columns[i] = Text(name)
	}

	t := NewTable(columns)
	for _, cells := range rows[1:] {
		row := make([]any, len(columns))
		for i := range columns {
			if i < len(cells) && cells[i] != "" {
				row[i] = cells[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadSheet returns the formatted cell text of a named sheet, header row included.
func ReadSheet(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// WriteXLSX renders the table into a single-sheet workbook. Dates are stored
// as date cells, numbers as numeric cells, nil as empty cells.
func WriteXLSX(t *Table, sheet string) ([]byte, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: stringPtr(dateFormat)})
	if err != nil {
		return nil, fmt.Errorf("create date style: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for r, row := range t.Rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := writeCell(f, sheet, cell, v, dateStyle); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeCell(f *excelize.File, sheet, cell string, v any, dateStyle int) error {
	switch t := v.(type) {
	case time.Time:
		if err := f.SetCellValue(sheet, cell, t); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, cell, cell, dateStyle)
	case decimal.Decimal:
		return f.SetCellFloat(sheet, cell, t.InexactFloat64(), -1, 64)
	case string:
		return f.SetCellStr(sheet, cell, t)
	default:
		return f.SetCellValue(sheet, cell, t)
	}
}

func stringPtr(s string) *string {
	return &s
}
