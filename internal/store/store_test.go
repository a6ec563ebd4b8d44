package store

import (
	"context"
	"reflect"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/gradereport/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func testDataset() *model.Dataset {
	return model.NewDataset(
		[]model.Student{
			{ID: 7, FirstName: "Léa", LastName: "Martin", SubGroup: ptr("G2"), Classes: []model.ClassMembership{
				{ClassID: 2, ClassName: "Seconde B"},
				{ClassID: 1, ClassName: "Seconde A"},
			}},
			{ID: 3, FirstName: "Jean", LastName: "Dupont"},
		},
		[]model.Activity{
			{ID: 20, Name: "DM 2", Parts: []float64{5, 5, 10}},
			{ID: 10, Name: "Contrôle 1"},
		},
		[]model.ClassRef{{ID: 2, Name: "Seconde B"}, {ID: 1, Name: "Seconde A"}},
		[]model.Correction{
			{ID: 5, StudentID: 7, ActivityID: 20, ClassID: ptr(int64(2)), PointsEarned: []float64{4, 2.5, 0},
				PercentageGrade: ptr(32.5), DisabledParts: []bool{false, false, true}, Status: model.StatusActive},
			{ID: 1, StudentID: 3, ActivityID: 10, Grade: ptr(14.0), Active: ptr(0)},
			{ID: 2, StudentID: 3, ActivityID: 20, Status: model.StatusNotSubmitted},
		},
	)
}

func TestDatasetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Empty DB loads an empty dataset.
	empty, err := s.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(empty.Students) != 0 || len(empty.Corrections) != 0 {
		t.Fatalf("expected empty dataset, got %+v", empty)
	}

	want := testDataset()
	if err := s.ReplaceDataset(ctx, want); err != nil {
		t.Fatalf("ReplaceDataset: %v", err)
	}
	got, err := s.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}

	if !reflect.DeepEqual(got.Students, want.Students) {
		t.Errorf("students = %+v, want %+v", got.Students, want.Students)
	}
	if !reflect.DeepEqual(got.Activities, want.Activities) {
		t.Errorf("activities = %+v, want %+v", got.Activities, want.Activities)
	}
	if !reflect.DeepEqual(got.Classes, want.Classes) {
		t.Errorf("classes = %+v, want %+v", got.Classes, want.Classes)
	}
	if !reflect.DeepEqual(got.Corrections, want.Corrections) {
		t.Errorf("corrections = %+v, want %+v", got.Corrections, want.Corrections)
	}

	// Lookups work on the loaded dataset.
	if st, ok := got.Student(7); !ok || st.HomeClass().ClassID != 2 {
		t.Errorf("Student(7) = %+v, %v; want home class 2", st, ok)
	}
	if got.ActivityIndex(10) != 1 {
		t.Errorf("ActivityIndex(10) = %d, want 1", got.ActivityIndex(10))
	}

	count, err := s.CorrectionCount(ctx)
	if err != nil {
		t.Fatalf("CorrectionCount: %v", err)
	}
	if count != 3 {
		t.Errorf("CorrectionCount = %d, want 3", count)
	}
}

func TestReplaceDatasetDropsPreviousRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.ReplaceDataset(ctx, testDataset()); err != nil {
		t.Fatalf("ReplaceDataset: %v", err)
	}
	next := model.NewDataset(
		[]model.Student{{ID: 1, FirstName: "Paul", LastName: "Émery"}},
		nil, nil,
		[]model.Correction{{ID: 9, StudentID: 1, ActivityID: 4}},
	)
	if err := s.ReplaceDataset(ctx, next); err != nil {
		t.Fatalf("ReplaceDataset: %v", err)
	}

	got, err := s.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(got.Students) != 1 || got.Students[0].ID != 1 {
		t.Errorf("students = %+v, want only student 1", got.Students)
	}
	if len(got.Activities) != 0 || len(got.Classes) != 0 {
		t.Errorf("expected no activities or classes, got %+v %+v", got.Activities, got.Classes)
	}
	if len(got.Corrections) != 1 || got.Corrections[0].PointsEarned != nil {
		t.Errorf("corrections = %+v, want one with null points", got.Corrections)
	}
}

func TestReplaceDatasetRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.ReplaceDataset(ctx, testDataset()); err != nil {
		t.Fatalf("ReplaceDataset: %v", err)
	}
	dup := model.NewDataset(
		[]model.Student{{ID: 1, LastName: "A"}, {ID: 1, LastName: "B"}},
		nil, nil, nil,
	)
	if err := s.ReplaceDataset(ctx, dup); err == nil {
		t.Fatal("expected error for duplicate student ids")
	}

	got, err := s.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(got.Corrections) != 3 {
		t.Errorf("expected previous dataset to survive, got %d corrections", len(got.Corrections))
	}
}

func TestImportDataset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	data := []byte(`{
		"students": [{"id": 1, "first_name": "Jean", "last_name": "Dupont", "sub_class": "G1",
			"classes": [{"class_id": 4, "class_name": "Première 4"}]}],
		"activities": [{"id": 2, "name": "TP", "parts": [10, 10]}],
		"classes": [{"id": 4, "name": "Première 4"}],
		"corrections": [{"id": 3, "student_id": 1, "activity_id": 2, "class_id": 4,
			"points_earned": [7, 8], "grade": 15, "status": "ACTIVE"}]
	}`)

	res, err := s.ImportDataset(ctx, "t1.json", data)
	if err != nil {
		t.Fatalf("ImportDataset: %v", err)
	}
	if !res.Imported {
		t.Fatal("expected first import to run")
	}
	if res.Info.DatasetName != "t1.json" || len(res.Info.Version) != 64 {
		t.Errorf("unexpected info %+v", res.Info)
	}

	info, err := s.GetExportInfo(ctx)
	if err != nil {
		t.Fatalf("GetExportInfo: %v", err)
	}
	if info != res.Info {
		t.Errorf("GetExportInfo = %+v, want %+v", info, res.Info)
	}

	ds, err := s.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(ds.Corrections) != 1 || *ds.Corrections[0].Grade != 15 {
		t.Errorf("corrections = %+v", ds.Corrections)
	}
	if sub := ds.Students[0].SubGroup; sub == nil || *sub != "G1" {
		t.Errorf("sub group = %v, want G1", sub)
	}

	// Same content again is skipped.
	res, err = s.ImportDataset(ctx, "t1.json", data)
	if err != nil {
		t.Fatalf("ImportDataset again: %v", err)
	}
	if res.Imported {
		t.Error("expected unchanged file to be skipped")
	}
	if res.Info.Version != info.Version {
		t.Errorf("skipped import info = %+v, want %+v", res.Info, info)
	}

	// Another file replaces it; the first one can then be imported again.
	other := []byte(`{"students": [], "activities": [], "classes": [], "corrections": []}`)
	if res, err = s.ImportDataset(ctx, "t2.json", other); err != nil || !res.Imported {
		t.Fatalf("ImportDataset t2: %+v %v", res, err)
	}
	if res, err = s.ImportDataset(ctx, "t1.json", data); err != nil || !res.Imported {
		t.Fatalf("ImportDataset t1 after t2: %+v %v", res, err)
	}
}

func TestImportDatasetRejectsBadJSON(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.ImportDataset(context.Background(), "bad.json", []byte(`{"students": 3}`)); err == nil {
		t.Fatal("expected parse error")
	}
	hash, err := s.GetImportedFileHash(context.Background(), "bad.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("failed import must not be recorded, got %q", hash)
	}
}

func TestMetadata(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	v, err := s.GetMetadata(ctx, "missing")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value, got %q", v)
	}

	if err := s.SetMetadata(ctx, "k", "one"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata(ctx, "k", "two"); err != nil {
		t.Fatalf("SetMetadata update: %v", err)
	}
	if v, _ := s.GetMetadata(ctx, "k"); v != "two" {
		t.Errorf("expected 'two', got %q", v)
	}
}

func TestImportedFileHash(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	hash, err := s.GetImportedFileHash(ctx, "/some/path.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash for unknown path, got %q", hash)
	}

	if err := s.SetImportedFileHash(ctx, "/some/path.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	if hash, _ = s.GetImportedFileHash(ctx, "/some/path.json"); hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}

	if err := s.SetImportedFileHash(ctx, "/some/path.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	if hash, _ = s.GetImportedFileHash(ctx, "/some/path.json"); hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	count, err := s.UserCount(ctx)
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	id, err := s.CreateUser(ctx, model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id || u.Role != model.UserRoleAdmin || !u.Active {
		t.Errorf("unexpected user %+v", u)
	}

	missing, err := s.GetUserByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("GetUserByUsername(nobody) = %+v, %v; want nil, nil", missing, err)
	}

	if _, err := s.CreateUser(ctx, model.User{Username: "admin", PasswordHash: "x"}); err == nil {
		t.Error("expected duplicate username to fail")
	}

	tests := []struct {
		name     string
		username string
		password string
		wantOK   bool
	}{
		{"valid", "admin", "secret", true},
		{"wrong password", "admin", "nope", false},
		{"unknown user", "ghost", "secret", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := s.Authenticate(ctx, tt.username, tt.password)
			if err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			if (u != nil) != tt.wantOK {
				t.Errorf("Authenticate(%q, %q) = %+v, want ok=%v", tt.username, tt.password, u, tt.wantOK)
			}
		})
	}
}
