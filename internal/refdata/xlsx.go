package refdata

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// XLSXOptions selects the worksheet and layout inside a rate workbook.
type XLSXOptions struct {
	// SheetName selects a sheet by name; takes precedence over SheetIndex.
	SheetName string
	// SheetIndex selects a sheet by position (default 0).
	SheetIndex int
	// SkipRows skips leading banner rows before the header row.
	SkipRows int
}

// ParseXLSX reads rate observations from a workbook on disk. tealeg needs a
// file path, so remote sources download to a temp file first.
func ParseXLSX(path string, opts XLSXOptions) ([]model.RateObservation, error) {
	xlFile, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open xlsx %s", path)
	}

	sheet, err := selectSheet(xlFile, opts)
	if err != nil {
		return nil, err
	}

	headerIdx := opts.SkipRows
	if len(sheet.Rows) <= headerIdx {
		return nil, eris.Errorf("xlsx sheet %q has no header row", sheet.Name)
	}

	header := make([]string, len(sheet.Rows[headerIdx].Cells))
	for i, cell := range sheet.Rows[headerIdx].Cells {
		header[i] = strings.TrimSpace(cell.String())
	}
	cols := mapColumns(header)

	var observations []model.RateObservation
	for rowIdx := headerIdx + 1; rowIdx < len(sheet.Rows); rowIdx++ {
		row := sheet.Rows[rowIdx]

		record := make([]string, len(row.Cells))
		empty := true
		for i, cell := range row.Cells {
			record[i] = strings.TrimSpace(cell.String())
			if record[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}

		obs, err := observationFromRecord(record, cols, rowIdx+1)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}

	return observations, nil
}

func selectSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx has no sheets")
	}

	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx has no sheet named %q", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx sheet index %d out of range (%d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}
