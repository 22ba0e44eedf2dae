package export

import (
	"fmt"
	"time"
)

// Column describes one exported column. Weight sizes the column relative to its siblings in PDFs.
type Column struct {
	Header string
	Weight float64
}

// Dataset defines tabular export content. Every row holds one cell per column.
type Dataset struct {
	Title       string
	GeneratedAt time.Time
	Columns     []Column
	Rows        [][]string
}

// Headers returns the column headers in order.
func (d Dataset) Headers() []string {
	headers := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		headers[i] = c.Header
	}
	return headers
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("export requires at least one column")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Columns))
		}
	}
	return nil
}
