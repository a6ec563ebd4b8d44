package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pavelanni/gradereport/internal/model"
)

// ErrUnsupportedFormat is returned by Write for an unknown output format.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Formats lists the supported output formats.
var Formats = []model.Format{model.FormatCSV, model.FormatXLSX, model.FormatPDF, model.FormatHTML, model.FormatJSON}

var contentTypes = map[model.Format]string{
	model.FormatCSV:  "text/csv; charset=utf-8",
	model.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	model.FormatPDF:  "application/pdf",
	model.FormatHTML: "text/html; charset=utf-8",
	model.FormatJSON: "application/json",
}

// ContentType returns the MIME type of format.
func ContentType(format model.Format) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Filename returns the download name of the report req asks for.
func Filename(req model.ReportRequest) string {
	secondary := req.Secondary
	if secondary == "" {
		secondary = model.AxisNone
	}
	return fmt.Sprintf("releve-%s-%s.%s", req.Primary, secondary, req.Format)
}

// Write renders doc in format to w.
func Write(ctx context.Context, w io.Writer, doc *Document, format model.Format) error {
	switch format {
	case model.FormatCSV:
		return WriteCSV(w, doc)
	case model.FormatXLSX:
		return WriteXLSX(w, doc)
	case model.FormatPDF:
		return WritePDF(w, doc)
	case model.FormatHTML:
		return WriteHTML(ctx, w, doc)
	case model.FormatJSON:
		return WriteJSON(w, doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
