package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pavelanni/gradereport/internal/model"
)

// ReplaceDataset swaps the stored reference data and corrections for ds in
// a single transaction.
func (s *Store) ReplaceDataset(ctx context.Context, ds *model.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"corrections", "student_classes", "students", "activities", "classes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, c := range ds.Classes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classes (id, name, position) VALUES (?, ?, ?)`,
			c.ID, c.Name, i,
		); err != nil {
			return fmt.Errorf("insert class %d: %w", c.ID, err)
		}
	}

	for i, st := range ds.Students {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO students (id, first_name, last_name, sub_group, position) VALUES (?, ?, ?, ?, ?)`,
			st.ID, st.FirstName, st.LastName, st.SubGroup, i,
		); err != nil {
			return fmt.Errorf("insert student %d: %w", st.ID, err)
		}
		for j, m := range st.Classes {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO student_classes (student_id, class_id, class_name, position) VALUES (?, ?, ?, ?)`,
				st.ID, m.ClassID, m.ClassName, j,
			); err != nil {
				return fmt.Errorf("insert membership %d/%d: %w", st.ID, m.ClassID, err)
			}
		}
	}

	for i, a := range ds.Activities {
		parts, err := encodeJSON(a.Parts)
		if err != nil {
			return fmt.Errorf("encode parts of activity %d: %w", a.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO activities (id, name, parts, position) VALUES (?, ?, ?, ?)`,
			a.ID, a.Name, parts, i,
		); err != nil {
			return fmt.Errorf("insert activity %d: %w", a.ID, err)
		}
	}

	for i, c := range ds.Corrections {
		points, err := encodeJSON(c.PointsEarned)
		if err != nil {
			return fmt.Errorf("encode points of correction %d: %w", c.ID, err)
		}
		disabled, err := encodeJSON(c.DisabledParts)
		if err != nil {
			return fmt.Errorf("encode disabled parts of correction %d: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO corrections (id, student_id, activity_id, class_id, points_earned, grade,
			 percentage_grade, disabled_parts, status, active, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.StudentID, c.ActivityID, c.ClassID, points, c.Grade,
			c.PercentageGrade, disabled, c.Status, c.Active, i,
		); err != nil {
			return fmt.Errorf("insert correction %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("stored dataset",
		"students", len(ds.Students),
		"activities", len(ds.Activities),
		"classes", len(ds.Classes),
		"corrections", len(ds.Corrections),
	)
	return nil
}

// LoadDataset reads the stored dataset in import order.
func (s *Store) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	classes, err := s.listClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	students, err := s.listStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	activities, err := s.listActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	corrections, err := s.listCorrections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	return model.NewDataset(students, activities, classes, corrections), nil
}

func (s *Store) listClasses(ctx context.Context) ([]model.ClassRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM classes ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []model.ClassRef
	for rows.Next() {
		var c model.ClassRef
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (s *Store) listStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, first_name, last_name, sub_group FROM students ORDER BY position`)
	if err != nil {
		return nil, err
	}
	var students []model.Student
	index := make(map[int64]int)
	for rows.Next() {
		var st model.Student
		var sub sql.NullString
		if err := rows.Scan(&st.ID, &st.FirstName, &st.LastName, &sub); err != nil {
			rows.Close()
			return nil, err
		}
		if sub.Valid {
			v := sub.String
			st.SubGroup = &v
		}
		index[st.ID] = len(students)
		students = append(students, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT student_id, class_id, class_name FROM student_classes ORDER BY student_id, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var studentID int64
		var m model.ClassMembership
		if err := rows.Scan(&studentID, &m.ClassID, &m.ClassName); err != nil {
			return nil, err
		}
		if i, ok := index[studentID]; ok {
			students[i].Classes = append(students[i].Classes, m)
		}
	}
	return students, rows.Err()
}

func (s *Store) listActivities(ctx context.Context) ([]model.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, parts FROM activities ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		var parts sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &parts); err != nil {
			return nil, err
		}
		if err := decodeJSON(parts, &a.Parts); err != nil {
			return nil, fmt.Errorf("decode parts of activity %d: %w", a.ID, err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *Store) listCorrections(ctx context.Context) ([]model.Correction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, activity_id, class_id, points_earned, grade, percentage_grade,
		 disabled_parts, status, active
		 FROM corrections ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var corrections []model.Correction
	for rows.Next() {
		var c model.Correction
		var classID, active sql.NullInt64
		var grade, pct sql.NullFloat64
		var points, disabled sql.NullString
		var status string
		if err := rows.Scan(&c.ID, &c.StudentID, &c.ActivityID, &classID, &points, &grade, &pct,
			&disabled, &status, &active); err != nil {
			return nil, err
		}
		if classID.Valid {
			v := classID.Int64
			c.ClassID = &v
		}
		if grade.Valid {
			v := grade.Float64
			c.Grade = &v
		}
		if pct.Valid {
			v := pct.Float64
			c.PercentageGrade = &v
		}
		if active.Valid {
			v := int(active.Int64)
			c.Active = &v
		}
		c.Status = model.Status(status)
		if err := decodeJSON(points, &c.PointsEarned); err != nil {
			return nil, fmt.Errorf("decode points of correction %d: %w", c.ID, err)
		}
		if err := decodeJSON(disabled, &c.DisabledParts); err != nil {
			return nil, fmt.Errorf("decode disabled parts of correction %d: %w", c.ID, err)
		}
		corrections = append(corrections, c)
	}
	return corrections, rows.Err()
}

// CorrectionCount returns the number of stored corrections.
func (s *Store) CorrectionCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corrections`).Scan(&count)
	return count, err
}

// encodeJSON stores nil slices as SQL NULL.
func encodeJSON[T any](v []T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeJSON[T any](s sql.NullString, dst *[]T) error {
	if !s.Valid {
		*dst = nil
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}
