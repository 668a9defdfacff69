// Package xlsx reads the first sheet of an uploaded workbook into a raw grid.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"egitim/internal/core"
	"egitim/internal/sheets"
)

// Parse opens a workbook from r and returns the cells of its first sheet.
// Numeric and date cells come back as serial float64 values, blank cells as
// nil and everything else as the text stored in the file.
func Parse(ctx context.Context, r io.Reader) (core.Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreadableWorkbook, err)
	}
	defer func() { _ = f.Close() }()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", core.ErrUnreadableWorkbook)
	}
	sheet := names[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreadableWorkbook, err)
	}

	grid := make(core.Grid, 0, len(rows))
	for ri, row := range rows {
		if ri%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out := make([]core.Cell, len(row))
		for ci, raw := range row {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(ci+1, ri+1)
			if err != nil {
				out[ci] = raw
				continue
			}
			typ, err := f.GetCellType(sheet, ref)
			if err != nil {
				out[ci] = raw
				continue
			}
			out[ci] = typedCell(typ, raw)
		}
		grid = append(grid, out)
	}
	return grid, nil
}

func typedCell(typ excelize.CellType, raw string) core.Cell {
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return v
		}
	}
	return raw
}

// Reader is a GridReader over workbook bytes already in memory.
type Reader struct {
	data []byte
}

var _ sheets.GridReader = (*Reader)(nil)

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) ReadGrid(ctx context.Context) (core.Grid, error) {
	return Parse(ctx, bytes.NewReader(r.data))
}
