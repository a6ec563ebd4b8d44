package cell

import "github.com/pavelanni/gradereport/internal/model"

// Scale is the denominator of every normalized grade.
const Scale = 20

// Options controls locale-dependent formatting.
type Options struct {
	DecimalComma bool
}

// Display holds the three strings shown for a correction.
type Display struct {
	Points string `json:"points"`
	Grade  string `json:"grade"`
	Status string `json:"status"`
}

// Cell is a display value paired with its style.
type Cell struct {
	Value string `json:"value"`
	Style Style  `json:"style"`
}

// Row holds the rendered cells of one correction.
type Row struct {
	Points Cell `json:"points"`
	Grade  Cell `json:"grade"`
	Status Cell `json:"status"`
}

// Format derives the display strings of c. a is the owning activity, nil when unknown.
func Format(c model.Correction, a *model.Activity, opts Options) Display {
	status := ResolveStatus(c)
	if !numeric(status) {
		label := Label(status)
		return Display{Points: label, Grade: label, Status: label}
	}

	outOf := OriginalMax(c, a)
	d := Display{Points: LabelNA, Grade: LabelNA, Status: Label(status)}

	earned, hasPoints := EarnedPoints(c, a)
	if hasPoints {
		d.Points = FormatNumber(earned, opts.DecimalComma) + " / " + FormatNumber(outOf, opts.DecimalComma)
	}

	switch {
	case c.PercentageGrade != nil:
		pct := *c.PercentageGrade
		original := earned
		if !hasPoints {
			original = pct / 100 * outOf
		}
		d.Grade = FormatNumber(pct/100*Scale, opts.DecimalComma) + " / 20 [" +
			FormatNumber(original, opts.DecimalComma) + " / " + FormatNumber(outOf, opts.DecimalComma) + "]"
	case c.Grade != nil:
		d.Grade = FormatNumber(*c.Grade, opts.DecimalComma) + " / 20"
	}
	return d
}

// Render formats c and attaches a style to each cell. The status of a
// non-ACTIVE correction decides every style, never its numbers.
func Render(c model.Correction, a *model.Activity, opts Options) Row {
	d := Format(c, a, opts)
	return Row{
		Points: Cell{Value: d.Points, Style: StyleFor(d.Points)},
		Grade:  Cell{Value: d.Grade, Style: StyleFor(d.Grade)},
		Status: Cell{Value: d.Status, Style: StyleFor(d.Status)},
	}
}

// OriginalMax returns the achievable points of c's activity after removing
// disabled parts. It falls back to Scale when the activity is unknown or
// the total is not positive.
func OriginalMax(c model.Correction, a *model.Activity) float64 {
	if a == nil {
		return Scale
	}
	total := a.TotalPoints(c.DisabledParts)
	if total <= 0 {
		return Scale
	}
	return total
}

// EarnedPoints sums the points of every enabled part. It reports false when
// c carries no points.
func EarnedPoints(c model.Correction, a *model.Activity) (float64, bool) {
	if c.PointsEarned == nil {
		return 0, false
	}
	var sum float64
	for i, p := range c.PointsEarned {
		if i < len(c.DisabledParts) && c.DisabledParts[i] {
			continue
		}
		if a != nil && len(a.Parts) > 0 && i >= len(a.Parts) {
			continue
		}
		sum += p
	}
	return sum, true
}

// Normalized returns the grade of c on the 0-20 scale. It reports false for
// placeholders, non-ACTIVE statuses and corrections without a grade.
func Normalized(c model.Correction) (float64, bool) {
	if !c.IsGraded() || !numeric(ResolveStatus(c)) {
		return 0, false
	}
	switch {
	case c.PercentageGrade != nil:
		return *c.PercentageGrade / 100 * Scale, true
	case c.Grade != nil:
		return *c.Grade, true
	}
	return 0, false
}

// Text returns a neutral cell holding a label.
func Text(value string) Cell {
	return Cell{Value: value, Style: neutralStyle}
}
