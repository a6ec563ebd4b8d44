package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes one line per row, prefixed by the group labels of its
// section. The separator is ';' when decimals use a comma.
func WriteCSV(w io.Writer, doc *Document) error {
	cw := csv.NewWriter(w)
	if doc.DecimalComma {
		cw.Comma = ';'
	}

	header := append(append([]string{}, doc.GroupHeaders...), doc.Columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	levels := len(doc.GroupHeaders)
	for _, s := range doc.Sections {
		for _, r := range s.Rows {
			line := make([]string, 0, levels+len(r.Cells))
			for i := 0; i < levels; i++ {
				if i < len(s.Path) {
					line = append(line, s.Path[i])
				} else {
					line = append(line, "")
				}
			}
			for _, c := range r.Cells {
				line = append(line, c.Value)
			}
			if err := cw.Write(line); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
