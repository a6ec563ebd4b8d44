// Package report turns an arranged grouping into printable tables and
// writes them as CSV, XLSX, PDF, HTML or JSON.
//
// Every writer renders the same Document, so a cell shows the same value
// and style in every format.
package report

import (
	"context"
	"strings"
	"time"

	"github.com/pavelanni/gradereport/internal/arrange"
	"github.com/pavelanni/gradereport/internal/cell"
	"github.com/pavelanni/gradereport/internal/i18n"
	"github.com/pavelanni/gradereport/internal/model"
)

// Document is a rendered report: an ordered list of sections sharing one
// set of columns.
type Document struct {
	Title     string
	Subtitle  string
	Generated string
	Empty     string
	Lang      string
	// GroupHeaders names the grouping levels, one per entry of Section.Path.
	GroupHeaders []string
	Columns      []string
	Sections     []Section
	DecimalComma bool

	// Export is the nested grouping written by the JSON writer.
	Export model.GroupingExport
}

// Section is one group of the report.
type Section struct {
	Path []string
	Rows []Row
}

// Title joins the labels of the section path.
func (s Section) Title() string {
	return strings.Join(s.Path, " / ")
}

// Row is one line of a section. Summary rows aggregate the section.
type Row struct {
	Cells   []cell.Cell
	Summary bool
}

// Input is everything Build needs.
type Input struct {
	Dataset *model.Dataset
	Groups  *model.Groups
	Request model.ReportRequest
	Info    model.ExportInfo
	Now     time.Time
}

var axisMessages = map[model.Axis]string{
	model.AxisStudent:  "AxisStudent",
	model.AxisClass:    "AxisClass",
	model.AxisSubclass: "AxisSubclass",
	model.AxisActivity: "AxisActivity",
	model.AxisNone:     "AxisNone",
}

// identityAxes are the reference columns a row may show, in column order.
var identityAxes = []model.Axis{model.AxisStudent, model.AxisClass, model.AxisActivity}

// AxisLabel returns the localized name of an axis.
func AxisLabel(ctx context.Context, a model.Axis) string {
	if id, ok := axisMessages[a]; ok {
		return i18n.T(ctx, id)
	}
	return string(a)
}

// Generate arranges ds for req and builds the resulting document.
func Generate(ctx context.Context, ds *model.Dataset, req model.ReportRequest, info model.ExportInfo, now time.Time) (*Document, error) {
	groups, err := arrange.Arrange(ds, arrange.RequestFrom(req))
	if err != nil {
		return nil, err
	}
	return Build(ctx, Input{Dataset: ds, Groups: groups, Request: req, Info: info, Now: now}), nil
}

// Build lays out in.Groups as a document. Headers are translated with the
// localizer carried by ctx.
func Build(ctx context.Context, in Input) *Document {
	req := in.Request
	secondary := req.Secondary
	if secondary == "" {
		secondary = model.AxisNone
	}
	lang := req.Lang
	if lang == "" {
		lang = i18n.DefaultLang
	}
	groups := in.Groups
	if groups == nil {
		groups = model.NewGroups()
	}

	doc := &Document{
		Title: i18n.T(ctx, "ReportTitle"),
		Subtitle: i18n.Td(ctx, "ReportSubtitle", map[string]any{
			"Primary":   AxisLabel(ctx, req.Primary),
			"Secondary": AxisLabel(ctx, secondary),
		}),
		Generated:    i18n.Td(ctx, "GeneratedAt", map[string]any{"Date": in.Now.Format("02/01/2006 15:04")}),
		Empty:        i18n.T(ctx, "EmptyReport"),
		Lang:         lang,
		DecimalComma: req.DecimalComma,
		Export: model.GroupingExport{
			Info:      in.Info,
			Primary:   req.Primary,
			Secondary: secondary,
			Groups:    groups,
			Request:   req,
		},
	}

	doc.GroupHeaders = append(doc.GroupHeaders, AxisLabel(ctx, req.Primary))
	if secondary != model.AxisNone {
		doc.GroupHeaders = append(doc.GroupHeaders, AxisLabel(ctx, secondary))
	}

	var shown []model.Axis
	for _, a := range identityAxes {
		if a != req.Primary && a != secondary {
			shown = append(shown, a)
		}
	}
	for _, a := range shown {
		doc.Columns = append(doc.Columns, AxisLabel(ctx, a))
	}
	doc.Columns = append(doc.Columns, i18n.T(ctx, "ColPoints"), i18n.T(ctx, "ColGrade"), i18n.T(ctx, "ColStatus"))

	b := &builder{
		ctx:      ctx,
		ds:       in.Dataset,
		resolver: arrange.NewResolver(in.Dataset),
		shown:    shown,
		opts:     cell.Options{DecimalComma: req.DecimalComma},
	}
	for _, key := range groups.Keys() {
		node, _ := groups.Get(key)
		if node.IsLeaf() {
			doc.Sections = append(doc.Sections, b.section([]string{key}, node.Corrections()))
			continue
		}
		items := node.Items()
		if items.Len() == 0 {
			doc.Sections = append(doc.Sections, Section{Path: []string{key}})
			continue
		}
		for _, sub := range items.Keys() {
			child, _ := items.Get(sub)
			doc.Sections = append(doc.Sections, b.section([]string{key, sub}, child.Corrections()))
		}
	}
	return doc
}

type builder struct {
	ctx      context.Context
	ds       *model.Dataset
	resolver *arrange.Resolver
	shown    []model.Axis
	opts     cell.Options
}

func (b *builder) section(path []string, rows []model.Correction) Section {
	s := Section{Path: path}
	for _, c := range rows {
		s.Rows = append(s.Rows, b.row(c))
	}
	if len(rows) > 0 {
		s.Rows = append(s.Rows, b.summary(rows))
	}
	return s
}

func (b *builder) row(c model.Correction) Row {
	names := b.resolver.Names(c)
	cells := make([]cell.Cell, 0, len(b.shown)+3)
	for _, a := range b.shown {
		switch a {
		case model.AxisStudent:
			cells = append(cells, cell.Text(names.Student))
		case model.AxisClass:
			cells = append(cells, cell.Text(names.Class))
		case model.AxisActivity:
			cells = append(cells, cell.Text(names.Activity))
		}
	}

	var act *model.Activity
	if b.ds != nil {
		if a, ok := b.ds.Activity(c.ActivityID); ok {
			act = &a
		}
	}
	r := cell.Render(c, act, b.opts)
	cells = append(cells, r.Points, r.Grade, r.Status)
	return Row{Cells: cells}
}

// summary counts the graded rows of a section and averages their
// normalized grades.
func (b *builder) summary(rows []model.Correction) Row {
	var sum float64
	var n int
	for _, c := range rows {
		if v, ok := cell.Normalized(c); ok {
			sum += v
			n++
		}
	}

	average := cell.Text(cell.LabelNA)
	average.Style = cell.StyleFor(cell.LabelNA)
	if n > 0 {
		v := cell.FormatNumber(sum/float64(n), b.opts.DecimalComma) + " / 20"
		average = cell.Cell{Value: v, Style: cell.StyleFor(v)}
	}

	cells := make([]cell.Cell, 0, len(b.shown)+3)
	for i := range b.shown {
		if i == 0 {
			cells = append(cells, cell.Text(i18n.T(b.ctx, "SummaryLabel")))
			continue
		}
		cells = append(cells, cell.Text(""))
	}
	cells = append(cells, cell.Text(i18n.Tp(b.ctx, "SummaryGraded", n)), average, cell.Text(""))
	return Row{Cells: cells, Summary: true}
}
