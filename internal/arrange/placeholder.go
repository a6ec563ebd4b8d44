package arrange

import "github.com/pavelanni/gradereport/internal/model"

// PlaceholderID is the id of every synthesized correction.
const PlaceholderID int64 = -1

// Names carries the labels attached to a placeholder.
type Names struct {
	Student  string
	Activity string
	Class    string
}

// Placeholder fabricates the record standing for a missing grade. It is
// flagged placeholder and NOT_GRADED; consumers must check both before
// treating a record as graded.
func Placeholder(studentID, activityID int64, classID *int64, names Names, parts int) model.Correction {
	if parts < 0 {
		parts = 0
	}
	var class *int64
	if classID != nil {
		v := *classID
		class = &v
	}
	grade := 0.0
	return model.Correction{
		ID:           PlaceholderID,
		StudentID:    studentID,
		ActivityID:   activityID,
		ClassID:      class,
		PointsEarned: make([]float64, parts),
		Grade:        &grade,
		Status:       model.StatusNotGraded,
		Placeholder:  true,
		StudentName:  names.Student,
		ActivityName: names.Activity,
		ClassName:    names.Class,
	}
}

// IsPlaceholder reports whether c was synthesized.
func IsPlaceholder(c model.Correction) bool {
	return c.Placeholder && c.Status == model.StatusNotGraded
}
