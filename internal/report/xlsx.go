package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/gradereport/internal/cell"
)

// sheetNameMax is the longest sheet name Excel accepts.
const sheetNameMax = 31

// xlsxWriter keeps one excelize style per distinct cell style.
type xlsxWriter struct {
	f      *excelize.File
	sheet  string
	styles map[cell.Style]int
}

// WriteXLSX writes the document to a single worksheet: title lines, a
// header row, then every section with its group labels in the first
// columns.
func WriteXLSX(w io.Writer, doc *Document) error {
	f := excelize.NewFile()
	defer f.Close()

	x := &xlsxWriter{f: f, sheet: sheetName(doc.Title), styles: make(map[cell.Style]int)}
	if err := f.SetSheetName(f.GetSheetName(0), x.sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := x.write(doc); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func (x *xlsxWriter) write(doc *Document) error {
	bold, err := x.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("create title style: %w", err)
	}
	header, err := x.f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"305496"}},
		Border: borders(),
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := x.set(1, 1, doc.Title, bold); err != nil {
		return err
	}
	if err := x.set(1, 2, doc.Subtitle, 0); err != nil {
		return err
	}
	if err := x.set(1, 3, doc.Generated, 0); err != nil {
		return err
	}

	row := 5
	headers := append(append([]string{}, doc.GroupHeaders...), doc.Columns...)
	for i, h := range headers {
		if err := x.set(i+1, row, h, header); err != nil {
			return err
		}
	}
	if len(doc.Sections) == 0 {
		return x.set(1, row+1, doc.Empty, 0)
	}

	levels := len(doc.GroupHeaders)
	for _, s := range doc.Sections {
		for _, r := range s.Rows {
			row++
			for i := 0; i < levels && i < len(s.Path); i++ {
				if err := x.set(i+1, row, s.Path[i], 0); err != nil {
					return err
				}
			}
			for i, c := range r.Cells {
				style := c.Style
				if r.Summary {
					style.FontStyle = cell.FontBold
				}
				id, err := x.style(style)
				if err != nil {
					return err
				}
				if err := x.set(levels+i+1, row, c.Value, id); err != nil {
					return err
				}
			}
		}
		if len(s.Rows) == 0 {
			row++
			for i := 0; i < levels && i < len(s.Path); i++ {
				if err := x.set(i+1, row, s.Path[i], 0); err != nil {
					return err
				}
			}
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	if err := x.f.SetColWidth(x.sheet, "A", last, 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

// set writes value at (col, row), both 1-based, with an optional style id.
func (x *xlsxWriter) set(col, row int, value string, style int) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := x.f.SetCellStr(x.sheet, name, value); err != nil {
		return fmt.Errorf("set cell %s: %w", name, err)
	}
	if style == 0 {
		return nil
	}
	if err := x.f.SetCellStyle(x.sheet, name, name, style); err != nil {
		return fmt.Errorf("style cell %s: %w", name, err)
	}
	return nil
}

func (x *xlsxWriter) style(s cell.Style) (int, error) {
	if id, ok := x.styles[s]; ok {
		return id, nil
	}
	st := &excelize.Style{
		Font: &excelize.Font{
			Color:  strings.TrimPrefix(s.Color, "#"),
			Bold:   s.FontStyle == cell.FontBold,
			Italic: s.FontStyle == cell.FontItalic,
		},
		Border: borders(),
	}
	if s.BackgroundColor != "" {
		st.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{strings.TrimPrefix(s.BackgroundColor, "#")}}
	}
	id, err := x.f.NewStyle(st)
	if err != nil {
		return 0, fmt.Errorf("create cell style: %w", err)
	}
	x.styles[s] = id
	return id, nil
}

func borders() []excelize.Border {
	var out []excelize.Border
	for _, side := range []string{"left", "top", "right", "bottom"} {
		out = append(out, excelize.Border{Type: side, Color: "BFBFBF", Style: 1})
	}
	return out
}

// sheetName strips the characters Excel forbids in sheet names and
// truncates to the allowed length.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return -1
		}
		return r
	}, title)
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > sheetNameMax {
		name = string(runes[:sheetNameMax])
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}
