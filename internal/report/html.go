package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/pavelanni/gradereport/internal/cell"
)

// WriteHTML renders doc as a standalone HTML page.
func WriteHTML(ctx context.Context, w io.Writer, doc *Document) error {
	if err := ReportPage(doc).Render(ctx, w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// ReportPage is the full preview page of a report.
func ReportPage(doc *Document) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, "<!DOCTYPE html>\n<html lang=\"%s\"><head><meta charset=\"utf-8\"><title>", templ.EscapeString(doc.Lang))
		b.WriteString(templ.EscapeString(doc.Title))
		b.WriteString("</title><style>")
		b.WriteString(pageCSS)
		b.WriteString("</style></head><body>")
		fmt.Fprintf(&b, "<h1>%s</h1><p class=\"subtitle\">%s</p><p class=\"generated\">%s</p>",
			templ.EscapeString(doc.Title), templ.EscapeString(doc.Subtitle), templ.EscapeString(doc.Generated))
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}

		if len(doc.Sections) == 0 {
			if _, err := fmt.Fprintf(w, "<p class=\"empty\">%s</p>", templ.EscapeString(doc.Empty)); err != nil {
				return err
			}
		}
		for _, s := range doc.Sections {
			if err := SectionTable(doc.Columns, s).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</body></html>\n")
		return err
	})
}

// SectionTable renders one section as a titled table.
func SectionTable(columns []string, s Section) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, "<section><h2>%s</h2><table><thead><tr>", templ.EscapeString(s.Title()))
		for _, c := range columns {
			fmt.Fprintf(&b, "<th>%s</th>", templ.EscapeString(c))
		}
		b.WriteString("</tr></thead><tbody>")
		for _, r := range s.Rows {
			if r.Summary {
				b.WriteString("<tr class=\"summary\">")
			} else {
				b.WriteString("<tr>")
			}
			for _, c := range r.Cells {
				fmt.Fprintf(&b, "<td style=\"%s\">%s</td>", cssStyle(c.Style), templ.EscapeString(c.Value))
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table></section>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func cssStyle(s cell.Style) string {
	var parts []string
	if s.Color != "" {
		parts = append(parts, "color:"+s.Color)
	}
	if s.BackgroundColor != "" {
		parts = append(parts, "background-color:"+s.BackgroundColor)
	}
	switch s.FontStyle {
	case cell.FontBold:
		parts = append(parts, "font-weight:bold")
	case cell.FontItalic:
		parts = append(parts, "font-style:italic")
	}
	return templ.EscapeString(strings.Join(parts, ";"))
}

const pageCSS = `body{font-family:sans-serif;margin:2em;color:#222}` +
	`h1{margin-bottom:0}.subtitle,.generated{color:#666;margin:.2em 0}` +
	`table{border-collapse:collapse;margin-bottom:1.5em;min-width:60%}` +
	`th{background:#305496;color:#fff;text-align:left}` +
	`th,td{border:1px solid #bfbfbf;padding:.3em .6em}` +
	`tr.summary td{font-weight:bold;border-top:2px solid #305496}` +
	`.empty{font-style:italic;color:#888}`
