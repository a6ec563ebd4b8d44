package arrange

import "github.com/pavelanni/gradereport/internal/model"

// Resolver labels the references of single corrections exactly as Arrange
// labels groups. It is not safe for concurrent use.
type Resolver struct {
	e *engine
}

// NewResolver indexes ds for label lookups. A nil ds resolves every
// reference to its fallback label.
func NewResolver(ds *model.Dataset) *Resolver {
	if ds == nil {
		ds = model.NewDataset(nil, nil, nil, nil)
	}
	return &Resolver{e: newEngine(ds, Request{})}
}

// Names returns the student, activity and class labels of c.
func (r *Resolver) Names(c model.Correction) Names {
	return Names{
		Student:  r.e.keyLabel(studentKey(c.StudentID)),
		Activity: r.e.keyLabel(activityKey(c.ActivityID)),
		Class:    r.e.keyLabel(r.e.rowKey(model.AxisClass, c)),
	}
}

// SubGroup returns the sub-group label of c's student.
func (r *Resolver) SubGroup(c model.Correction) string {
	return r.e.keyLabel(r.e.rowKey(model.AxisSubclass, c))
}
