// Package cell derives display values and styles for grade cells. Every
// exporter goes through this package so that all formats agree.
package cell

import "github.com/pavelanni/gradereport/internal/model"

// Canonical labels shown in place of a grade.
const (
	LabelActive       = "ACTIVE"
	LabelNotGraded    = "NON NOTÉ"
	LabelAbsent       = "ABSENT"
	LabelNotSubmitted = "NON RENDU"
	LabelDeactivated  = "DÉSACTIVÉ"
	LabelNA           = "N/A"
)

// ResolveStatus returns the effective status of c: the explicit status when
// set, else DEACTIVATED for a legacy active flag of 0, else ACTIVE.
// Unknown explicit values are returned unchanged.
func ResolveStatus(c model.Correction) model.Status {
	if c.Status != "" {
		return c.Status
	}
	if c.Active != nil && *c.Active == 0 {
		return model.StatusDeactivated
	}
	return model.StatusActive
}

// Label returns the display label of a status. Unknown statuses are shown as-is.
func Label(s model.Status) string {
	switch s {
	case model.StatusActive:
		return LabelActive
	case model.StatusNotGraded:
		return LabelNotGraded
	case model.StatusAbsent:
		return LabelAbsent
	case model.StatusNotSubmitted:
		return LabelNotSubmitted
	case model.StatusDeactivated:
		return LabelDeactivated
	}
	return string(s)
}

// numeric reports whether a correction in status s shows numbers. Unknown
// statuses behave like ACTIVE.
func numeric(s model.Status) bool {
	return s == model.StatusActive || !s.Known()
}
