package model

import (
	"context"
	"strings"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleTeacher can download reports.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin can also import datasets.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Status is the grading state of a correction.
// Values outside the known set are carried verbatim.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusNotGraded    Status = "NOT_GRADED"
	StatusAbsent       Status = "ABSENT"
	StatusNotSubmitted Status = "NOT_SUBMITTED"
	StatusDeactivated  Status = "DEACTIVATED"
)

// Known reports whether s is one of the closed set of statuses.
func (s Status) Known() bool {
	switch s {
	case StatusActive, StatusNotGraded, StatusAbsent, StatusNotSubmitted, StatusDeactivated:
		return true
	}
	return false
}

// ClassMembership links a student to a class.
type ClassMembership struct {
	ClassID   int64  `json:"class_id"`
	ClassName string `json:"class_name"`
}

// Student is reference data for one learner.
type Student struct {
	ID        int64             `json:"id"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	SubGroup  *string           `json:"sub_class,omitempty"`
	Classes   []ClassMembership `json:"classes"`
}

// DisplayName returns "Last First".
func (s Student) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(s.LastName) + " " + strings.TrimSpace(s.FirstName))
}

// HomeClass returns the first class the student belongs to, or nil.
func (s Student) HomeClass() *ClassMembership {
	if len(s.Classes) == 0 {
		return nil
	}
	return &s.Classes[0]
}

// InClass reports whether the student is a member of the given class.
func (s Student) InClass(classID int64) bool {
	for _, m := range s.Classes {
		if m.ClassID == classID {
			return true
		}
	}
	return false
}

// Activity is a graded piece of work with a per-part scoring schema.
type Activity struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Parts []float64 `json:"parts"`
}

// TotalPoints sums the maximum points of every part not flagged in disabled.
func (a Activity) TotalPoints(disabled []bool) float64 {
	var total float64
	for i, p := range a.Parts {
		if i < len(disabled) && disabled[i] {
			continue
		}
		total += p
	}
	return total
}

// ClassRef is a class as returned by the classes listing.
type ClassRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Correction is one grade record for a student and an activity.
type Correction struct {
	ID              int64     `json:"id"`
	StudentID       int64     `json:"student_id"`
	ActivityID      int64     `json:"activity_id"`
	ClassID         *int64    `json:"class_id"`
	PointsEarned    []float64 `json:"points_earned"`
	Grade           *float64  `json:"grade"`
	PercentageGrade *float64  `json:"percentage_grade,omitempty"`
	DisabledParts   []bool    `json:"disabled_parts,omitempty"`
	Status          Status    `json:"status,omitempty"`
	Active          *int      `json:"active,omitempty"`
	Placeholder     bool      `json:"placeholder"`

	StudentName  string `json:"student_name,omitempty"`
	ClassName    string `json:"class_name,omitempty"`
	ActivityName string `json:"activity_name,omitempty"`
}

// IsGraded reports whether c holds a genuine grade. Placeholders and
// NOT_GRADED records are never graded, whatever their numeric fields say.
func (c Correction) IsGraded() bool {
	return !c.Placeholder && c.Status != StatusNotGraded
}

// Clone returns a copy that shares no slices or pointers with c.
func (c Correction) Clone() Correction {
	out := c
	if c.ClassID != nil {
		v := *c.ClassID
		out.ClassID = &v
	}
	if c.Grade != nil {
		v := *c.Grade
		out.Grade = &v
	}
	if c.PercentageGrade != nil {
		v := *c.PercentageGrade
		out.PercentageGrade = &v
	}
	if c.Active != nil {
		v := *c.Active
		out.Active = &v
	}
	if c.PointsEarned != nil {
		out.PointsEarned = append([]float64{}, c.PointsEarned...)
	}
	if c.DisabledParts != nil {
		out.DisabledParts = append([]bool{}, c.DisabledParts...)
	}
	return out
}
