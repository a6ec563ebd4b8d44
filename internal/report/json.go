package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes the nested grouping with its export metadata.
func WriteJSON(w io.Writer, doc *Document) error {
	data, err := json.MarshalIndent(doc.Export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal grouping: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
