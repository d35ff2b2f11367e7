package ingest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	mferrors "github.com/mesflow/mesflow/pkg/errors"
)

// decodeXLSX reads one worksheet. Cells are read raw so dates arrive as
// Excel serial numbers instead of display strings. Excel drops trailing
// empty cells, so short rows are padded; rows wider than the header are
// malformed.
func decodeXLSX(ctx context.Context, data []byte, sheet string) ([]row, int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, 0, mferrors.Wrap(err, mferrors.CodeInvalidFormat, "failed to open xlsx")
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, 0, mferrors.New(mferrors.CodeInvalidFormat, "no sheets found in xlsx file")
		}
		sheet = sheets[0]
	}

	rs, err := f.Rows(sheet)
	if err != nil {
		return nil, 0, mferrors.Wrap(err, mferrors.CodeInvalidFormat, fmt.Sprintf("failed to read sheet %q", sheet))
	}
	defer rs.Close()

	var rows []row
	malformed := 0
	for line := 1; rs.Next(); line++ {
		if line%4096 == 0 && ctx.Err() != nil {
			return nil, 0, mferrors.Wrap(ctx.Err(), mferrors.CodeContextCanceled, "decode canceled")
		}

		cells, err := rs.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			malformed++
			continue
		}
		if isBlank(cells) {
			continue
		}

		if len(rows) == 0 {
			rows = append(rows, row{line: line, values: trimAll(cells)})
			continue
		}

		width := len(rows[0].values)
		if len(cells) > width {
			malformed++
			continue
		}
		for len(cells) < width {
			cells = append(cells, "")
		}
		rows = append(rows, row{line: line, values: cells})
	}
	return rows, malformed, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
