package model

// Axis is a grouping dimension of a report.
type Axis string

const (
	AxisStudent  Axis = "student"
	AxisClass    Axis = "class"
	AxisSubclass Axis = "subclass"
	AxisActivity Axis = "activity"
	AxisNone     Axis = "none"
)

// Format is an export output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

// ReportRequest carries the user's export selections.
type ReportRequest struct {
	Format       Format  `json:"format" validate:"required,oneof=csv xlsx pdf html json"`
	Primary      Axis    `json:"primary" validate:"required,oneof=student class subclass activity"`
	Secondary    Axis    `json:"secondary" validate:"omitempty,oneof=student class subclass activity none"`
	IncludeAll   bool    `json:"include_all"`
	ActivityIDs  []int64 `json:"activity_ids,omitempty" validate:"omitempty,dive,gt=0"`
	ClassID      *int64  `json:"class_id,omitempty" validate:"omitempty,gt=0"`
	DecimalComma bool    `json:"decimal_comma"`
	Lang         string  `json:"lang,omitempty" validate:"omitempty,oneof=fr en"`
}

// ExportInfo describes the dataset an export was built from.
type ExportInfo struct {
	DatasetName string `json:"dataset_name"`
	ImportedAt  string `json:"imported_at"`
	Version     string `json:"version"`
}

// GroupingExport is the top-level JSON structure of a nested export.
type GroupingExport struct {
	Info      ExportInfo    `json:"info"`
	Primary   Axis          `json:"primary"`
	Secondary Axis          `json:"secondary"`
	Groups    *Groups       `json:"groups"`
	Request   ReportRequest `json:"request"`
}
