package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
)

// SheetReader reads tickets from a CSV export with a header row. The first
// row names the columns; every following row becomes one raw ticket.
type SheetReader struct {
	path string
}

// NewSheetReader creates a SheetReader for the CSV file at path.
func NewSheetReader(path string) *SheetReader {
	return &SheetReader{path: path}
}

// FetchAll reads the whole file. A missing file is not an error: it returns
// no tickets, matching the behavior of syncing before the export exists.
func (r *SheetReader) FetchAll(ctx context.Context) ([]Raw, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening spreadsheet %s: %w", r.path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1 // ragged rows are tolerated, short rows drop trailing columns

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading spreadsheet %s: %w", r.path, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	raws := make([]Raw, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fields := make(map[string]string, len(header))
		for j, col := range header {
			if j < len(row) {
				fields[col] = row[j]
			}
		}
		raws = append(raws, Raw{
			Kind:  KindSpreadsheet,
			Sheet: &SheetRow{Line: i + 2, Fields: fields},
		})
	}
	return raws, nil
}
