package arrange

import (
	"errors"
	"fmt"
	"slices"

	"github.com/pavelanni/gradereport/internal/model"
)

// ErrInvalidAxes is returned for a primary/secondary pair outside the axis table.
var ErrInvalidAxes = errors.New("invalid axis combination")

// PrimaryAxes lists the primary axes in display order.
var PrimaryAxes = []model.Axis{model.AxisStudent, model.AxisClass, model.AxisSubclass, model.AxisActivity}

var secondaryAxes = map[model.Axis][]model.Axis{
	model.AxisStudent:  {model.AxisNone, model.AxisActivity},
	model.AxisClass:    {model.AxisNone, model.AxisStudent, model.AxisSubclass, model.AxisActivity},
	model.AxisSubclass: {model.AxisNone, model.AxisStudent, model.AxisActivity},
	model.AxisActivity: {model.AxisNone, model.AxisStudent, model.AxisClass, model.AxisSubclass},
}

// AxisOption is one row of the axis table.
type AxisOption struct {
	Primary     model.Axis   `json:"primary"`
	Secondaries []model.Axis `json:"secondaries"`
}

// SecondaryAxes returns the secondary axes allowed under primary.
func SecondaryAxes(primary model.Axis) []model.Axis {
	return slices.Clone(secondaryAxes[primary])
}

// AxisTable returns the whole table in display order.
func AxisTable() []AxisOption {
	out := make([]AxisOption, 0, len(PrimaryAxes))
	for _, p := range PrimaryAxes {
		out = append(out, AxisOption{Primary: p, Secondaries: SecondaryAxes(p)})
	}
	return out
}

// ValidateAxes checks primary and secondary against the axis table. An
// empty secondary means none.
func ValidateAxes(primary, secondary model.Axis) error {
	allowed, ok := secondaryAxes[primary]
	if !ok {
		return fmt.Errorf("%w: unknown primary axis %q", ErrInvalidAxes, primary)
	}
	if secondary == "" {
		secondary = model.AxisNone
	}
	if !slices.Contains(allowed, secondary) {
		return fmt.Errorf("%w: %q under %q", ErrInvalidAxes, secondary, primary)
	}
	return nil
}
