package arrange

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/gradereport/internal/model"
)

func ptr[T any](v T) *T { return &v }

// fixture: two classes, four students (one without class or sub-group),
// two activities, plus a correction for an unknown student and one for an
// unknown activity.
func fixture() *model.Dataset {
	classA := model.ClassMembership{ClassID: 1, ClassName: "Seconde A"}
	classB := model.ClassMembership{ClassID: 2, ClassName: "Seconde B"}
	students := []model.Student{
		{ID: 1, FirstName: "Jean", LastName: "Dupont", SubGroup: ptr("G1"), Classes: []model.ClassMembership{classA}},
		{ID: 2, FirstName: "Léa", LastName: "Martin", SubGroup: ptr("G2"), Classes: []model.ClassMembership{classA}},
		{ID: 3, FirstName: "Paul", LastName: "Émery", SubGroup: ptr("G1"), Classes: []model.ClassMembership{classB}},
		{ID: 4, FirstName: "anne", LastName: "Fabre"},
	}
	activities := []model.Activity{
		{ID: 10, Name: "Contrôle 1", Parts: []float64{10, 10}},
		{ID: 11, Name: "DM 2", Parts: []float64{5, 5, 10}},
	}
	classes := []model.ClassRef{{ID: 1, Name: "Seconde A"}, {ID: 2, Name: "Seconde B"}}
	corrections := []model.Correction{
		{ID: 1, StudentID: 1, ActivityID: 10, ClassID: ptr(int64(1)), Grade: ptr(14.0), Status: model.StatusActive},
		{ID: 2, StudentID: 3, ActivityID: 10, ClassID: ptr(int64(2)), PercentageGrade: ptr(50.0)},
		{ID: 3, StudentID: 2, ActivityID: 11, Status: model.StatusAbsent},
		{ID: 4, StudentID: 99, ActivityID: 10, Grade: ptr(8.0)},
		{ID: 5, StudentID: 1, ActivityID: 77, ClassID: ptr(int64(1)), Grade: ptr(12.0)},
	}
	return model.NewDataset(students, activities, classes, corrections)
}

func leaf(t *testing.T, g *model.Groups, path ...string) []model.Correction {
	t.Helper()
	node, ok := g.Get(path[0])
	require.True(t, ok, "missing group %q in %v", path[0], g.Keys())
	for _, p := range path[1:] {
		require.False(t, node.IsLeaf(), "group %q is a leaf", p)
		node, ok = node.Items().Get(p)
		require.True(t, ok, "missing sub-group %q", p)
	}
	require.True(t, node.IsLeaf())
	return node.Corrections()
}

func ids(rows []model.Correction) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func studentIDs(rows []model.Correction) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.StudentID)
	}
	return out
}

func TestArrangeSingleClassExample(t *testing.T) {
	class := model.ClassMembership{ClassID: 1, ClassName: "ClassA"}
	ds := model.NewDataset(
		[]model.Student{
			{ID: 1, FirstName: "Jean", LastName: "Dupont", Classes: []model.ClassMembership{class}},
			{ID: 2, FirstName: "Léa", LastName: "Martin", Classes: []model.ClassMembership{class}},
		},
		[]model.Activity{{ID: 10, Name: "Devoir", Parts: []float64{20}}},
		[]model.ClassRef{{ID: 1, Name: "ClassA"}},
		[]model.Correction{{ID: 7, StudentID: 1, ActivityID: 10, ClassID: ptr(int64(1)), Grade: ptr(14.0)}},
	)

	g, err := Arrange(ds, Request{Primary: model.AxisClass, Secondary: model.AxisStudent, IncludeAll: true})
	require.NoError(t, err)

	require.Equal(t, []string{"ClassA"}, g.Keys())
	classNode, _ := g.Get("ClassA")
	require.Equal(t, []string{"Dupont Jean", "Martin Léa"}, classNode.Items().Keys())

	graded := leaf(t, g, "ClassA", "Dupont Jean")
	require.Len(t, graded, 1)
	assert.Equal(t, int64(7), graded[0].ID)
	assert.Equal(t, 14.0, *graded[0].Grade)
	assert.False(t, graded[0].Placeholder)

	missing := leaf(t, g, "ClassA", "Martin Léa")
	require.Len(t, missing, 1)
	assert.True(t, IsPlaceholder(missing[0]))
	assert.Equal(t, model.StatusNotGraded, missing[0].Status)
	assert.Equal(t, []float64{0}, missing[0].PointsEarned)

	data, err := json.Marshal(g)
	require.NoError(t, err)
	s := string(data)
	assert.True(t, strings.HasPrefix(s, `{"ClassA":{"items":{"Dupont Jean":{"corrections":[`), s)
	assert.Less(t, strings.Index(s, "Dupont Jean"), strings.Index(s, "Martin Léa"))
}

func TestArrangeClassOnlyWithoutPlaceholders(t *testing.T) {
	g, err := Arrange(fixture(), Request{Primary: model.AxisClass})
	require.NoError(t, err)

	require.Equal(t, []string{"Seconde A", "Seconde B", model.UnattributedClassLabel}, g.Keys())
	assert.Equal(t, []int64{1, 5, 3}, ids(leaf(t, g, "Seconde A")))
	assert.Equal(t, []int64{2}, ids(leaf(t, g, "Seconde B")))
	assert.Equal(t, []int64{4}, ids(leaf(t, g, model.UnattributedClassLabel)))
}

func TestArrangeClassByStudentIncludeAll(t *testing.T) {
	g, err := Arrange(fixture(), Request{Primary: model.AxisClass, Secondary: model.AxisStudent, IncludeAll: true})
	require.NoError(t, err)

	require.Equal(t, []string{"Seconde A", "Seconde B", model.UnattributedClassLabel}, g.Keys())

	a, _ := g.Get("Seconde A")
	require.Equal(t, []string{"Dupont Jean", "Martin Léa"}, a.Items().Keys())
	assert.Equal(t, []int64{1, PlaceholderID, 5}, ids(leaf(t, g, "Seconde A", "Dupont Jean")))
	assert.Equal(t, []int64{PlaceholderID, 3}, ids(leaf(t, g, "Seconde A", "Martin Léa")))

	b, _ := g.Get("Seconde B")
	require.Equal(t, []string{"Émery Paul"}, b.Items().Keys())
	assert.Equal(t, []int64{2, PlaceholderID}, ids(leaf(t, g, "Seconde B", "Émery Paul")))

	none, _ := g.Get(model.UnattributedClassLabel)
	require.Equal(t, []string{"Fabre anne", UnknownLabel}, none.Items().Keys())
	fabre := leaf(t, g, model.UnattributedClassLabel, "Fabre anne")
	require.Len(t, fabre, 2)
	for _, p := range fabre {
		assert.True(t, IsPlaceholder(p))
		assert.Nil(t, p.ClassID)
		assert.Equal(t, model.UnattributedClassLabel, p.ClassName)
	}
	assert.Equal(t, []int64{4}, ids(leaf(t, g, model.UnattributedClassLabel, UnknownLabel)))
}

func TestArrangeActivityLeavesSortedByCollatedName(t *testing.T) {
	g, err := Arrange(fixture(), Request{Primary: model.AxisActivity, IncludeAll: true})
	require.NoError(t, err)

	require.Equal(t, []string{"Contrôle 1", "DM 2", UnknownLabel}, g.Keys())
	assert.Equal(t, []int64{1, 3, 4, 2, 99}, studentIDs(leaf(t, g, "Contrôle 1")))
	assert.Equal(t, []int64{1, 3, 4, 2}, studentIDs(leaf(t, g, "DM 2")))
	assert.Equal(t, []int64{5}, ids(leaf(t, g, UnknownLabel)))
}

func TestArrangeSubclass(t *testing.T) {
	g, err := Arrange(fixture(), Request{Primary: model.AxisSubclass, Secondary: model.AxisStudent, IncludeAll: true})
	require.NoError(t, err)

	require.Equal(t, []string{"G1", "G2", NoGroupLabel}, g.Keys())
	g1, _ := g.Get("G1")
	assert.Equal(t, []string{"Dupont Jean", "Émery Paul"}, g1.Items().Keys())
	noGroup, _ := g.Get(NoGroupLabel)
	assert.Equal(t, []string{"Fabre anne", UnknownLabel}, noGroup.Items().Keys())
}

func TestArrangeSubGroupNamedLikeSentinel(t *testing.T) {
	ds := model.NewDataset(
		[]model.Student{
			{ID: 1, FirstName: "A", LastName: "Alpha", SubGroup: ptr("null")},
			{ID: 2, FirstName: "B", LastName: "Beta"},
		},
		[]model.Activity{{ID: 1, Name: "TP"}},
		nil, nil,
	)
	g, err := Arrange(ds, Request{Primary: model.AxisSubclass, IncludeAll: true})
	require.NoError(t, err)

	require.Equal(t, []string{"null", NoGroupLabel}, g.Keys())
	assert.Equal(t, []int64{1}, studentIDs(leaf(t, g, "null")))
	assert.Equal(t, []int64{2}, studentIDs(leaf(t, g, NoGroupLabel)))
}

func TestArrangeFlatOutputIsEnrichedCopy(t *testing.T) {
	ds := fixture()
	g, err := Arrange(ds, Request{Primary: model.AxisStudent, Secondary: model.AxisNone})
	require.NoError(t, err)

	require.Equal(t, []string{"Dupont Jean", "Émery Paul", "Martin Léa", UnknownLabel}, g.Keys())

	dupont := leaf(t, g, "Dupont Jean")
	require.Len(t, dupont, 2)
	assert.Equal(t, "Dupont Jean", dupont[0].StudentName)
	assert.Equal(t, "Contrôle 1", dupont[0].ActivityName)
	assert.Equal(t, "Seconde A", dupont[0].ClassName)
	assert.Equal(t, UnknownLabel, dupont[1].ActivityName)

	martin := leaf(t, g, "Martin Léa")
	assert.Equal(t, "Seconde A", martin[0].ClassName, "falls back to home class")

	unknown := leaf(t, g, UnknownLabel)
	assert.Equal(t, UnknownLabel, unknown[0].StudentName)
	assert.Equal(t, model.UnattributedClassLabel, unknown[0].ClassName)

	for _, c := range ds.Corrections {
		assert.Empty(t, c.StudentName, "input must not be mutated")
	}
	*dupont[0].Grade = 1
	assert.Equal(t, 14.0, *ds.Corrections[0].Grade, "output must not alias input")
}

func TestArrangeIdempotent(t *testing.T) {
	for _, opt := range AxisTable() {
		for _, sec := range opt.Secondaries {
			for _, all := range []bool{false, true} {
				req := Request{Primary: opt.Primary, Secondary: sec, IncludeAll: all}
				first, err := Arrange(fixture(), req)
				require.NoError(t, err)
				second, err := Arrange(fixture(), req)
				require.NoError(t, err)
				require.Equal(t, first, second, "%+v", req)

				a, err := json.Marshal(first)
				require.NoError(t, err)
				b, err := json.Marshal(second)
				require.NoError(t, err)
				require.Equal(t, string(a), string(b))
			}
		}
	}
}

func TestArrangeCompletenessWithIncludeAll(t *testing.T) {
	ds := fixture()
	for _, opt := range AxisTable() {
		for _, sec := range opt.Secondaries {
			t.Run(string(opt.Primary)+"/"+string(sec), func(t *testing.T) {
				g, err := Arrange(ds, Request{Primary: opt.Primary, Secondary: sec, IncludeAll: true})
				require.NoError(t, err)

				seen := make(map[pair]int)
				total := 0
				g.Walk(func(_ []string, rows []model.Correction) {
					for _, r := range rows {
						seen[pair{r.StudentID, r.ActivityID}]++
						total++
						if r.Placeholder {
							assert.Equal(t, model.StatusNotGraded, r.Status)
							assert.Equal(t, PlaceholderID, r.ID)
						} else {
							assert.Positive(t, r.ID)
						}
					}
				})

				for _, s := range ds.Students {
					for _, a := range ds.Activities {
						assert.Equal(t, 1, seen[pair{s.ID, a.ID}], "student %d activity %d", s.ID, a.ID)
					}
				}
				assert.Equal(t, 10, total, "8 pairs plus two orphan corrections")
			})
		}
	}
}

func TestArrangeLeavesAreCollationOrdered(t *testing.T) {
	ds := fixture()
	coll := newCollator()
	g, err := Arrange(ds, Request{Primary: model.AxisActivity, Secondary: model.AxisClass, IncludeAll: true})
	require.NoError(t, err)

	g.Walk(func(path []string, rows []model.Correction) {
		known := true
		for i := 1; i < len(rows); i++ {
			prev, okPrev := ds.Student(rows[i-1].StudentID)
			cur, okCur := ds.Student(rows[i].StudentID)
			if !okPrev {
				known = false
			}
			if !known {
				assert.False(t, okCur, "%v: known student after unknown one", path)
				continue
			}
			if okCur {
				assert.LessOrEqual(t, coll.CompareString(prev.DisplayName(), cur.DisplayName()), 0, "%v", path)
			}
		}
	})
}

func TestArrangeEmptyActivitySelection(t *testing.T) {
	ds := fixture()
	req := Request{Primary: model.AxisStudent, Secondary: model.AxisActivity, IncludeAll: true, ActivityIDs: []int64{999}}

	g, err := Arrange(ds, req)
	require.NoError(t, err)
	require.Equal(t, []string{"Dupont Jean", "Émery Paul", "Fabre anne", "Martin Léa"}, g.Keys())
	for _, k := range g.Keys() {
		n, _ := g.Get(k)
		require.False(t, n.IsLeaf())
		assert.Equal(t, 0, n.Items().Len())
	}
	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Dupont Jean":{"items":{}}`)

	req.Secondary = model.AxisNone
	g, err = Arrange(ds, req)
	require.NoError(t, err)
	data, err = json.Marshal(g)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Fabre anne":{"corrections":[]}`)

	req.Primary = model.AxisActivity
	g, err = Arrange(ds, req)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
}

func TestArrangeActivityAndClassFilters(t *testing.T) {
	ds := fixture()

	g, err := Arrange(ds, Request{Primary: model.AxisStudent, IncludeAll: true, ActivityIDs: []int64{11}})
	require.NoError(t, err)
	g.Walk(func(_ []string, rows []model.Correction) {
		for _, r := range rows {
			assert.Equal(t, int64(11), r.ActivityID)
		}
	})

	g, err = Arrange(ds, Request{Primary: model.AxisClass, Secondary: model.AxisStudent, IncludeAll: true, ClassID: ptr(int64(2))})
	require.NoError(t, err)
	require.Equal(t, []string{"Seconde B"}, g.Keys())
	assert.Equal(t, []int64{2, PlaceholderID}, ids(leaf(t, g, "Seconde B", "Émery Paul")))
}

func TestArrangeDisambiguatesHomonyms(t *testing.T) {
	ds := model.NewDataset(
		[]model.Student{
			{ID: 5, FirstName: "Marc", LastName: "Durand"},
			{ID: 6, FirstName: "Marc", LastName: "Durand"},
		},
		[]model.Activity{{ID: 1, Name: "TP"}},
		nil, nil,
	)
	g, err := Arrange(ds, Request{Primary: model.AxisStudent, IncludeAll: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Durand Marc", "Durand Marc (#6)"}, g.Keys())
}

func TestArrangeRejectsInvalidAxes(t *testing.T) {
	tests := []struct {
		primary, secondary model.Axis
	}{
		{model.AxisActivity, model.AxisActivity},
		{model.AxisStudent, model.AxisStudent},
		{model.AxisStudent, model.AxisClass},
		{model.AxisNone, model.AxisStudent},
		{"teacher", model.AxisNone},
	}
	for _, tt := range tests {
		_, err := Arrange(fixture(), Request{Primary: tt.primary, Secondary: tt.secondary})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidAxes), "%s/%s", tt.primary, tt.secondary)
	}
}

func TestArrangeToleratesMissingData(t *testing.T) {
	g, err := Arrange(nil, Request{Primary: model.AxisClass, Secondary: model.AxisStudent, IncludeAll: true})
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())

	ds := model.NewDataset(nil, nil, nil, []model.Correction{{ID: 1, StudentID: 3, ActivityID: 4, ClassID: ptr(int64(8))}})
	g, err = Arrange(ds, Request{Primary: model.AxisClass, Secondary: model.AxisActivity})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(leaf(t, g, model.UnattributedClassLabel, UnknownLabel)))
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder(1, 2, ptr(int64(3)), Names{Student: "Dupont Jean", Activity: "TP", Class: "A"}, 3)
	assert.Equal(t, PlaceholderID, p.ID)
	assert.True(t, p.Placeholder)
	assert.Equal(t, model.StatusNotGraded, p.Status)
	assert.Equal(t, 0.0, *p.Grade)
	assert.Equal(t, []float64{0, 0, 0}, p.PointsEarned)
	assert.Equal(t, "Dupont Jean", p.StudentName)
	assert.False(t, p.IsGraded())
	assert.True(t, IsPlaceholder(p))

	empty := Placeholder(1, 2, nil, Names{}, -1)
	assert.Equal(t, []float64{}, empty.PointsEarned)
	assert.Nil(t, empty.ClassID)

	graded := model.Correction{ID: 4, Grade: ptr(0.0), Status: model.StatusActive}
	assert.False(t, IsPlaceholder(graded))
	assert.True(t, graded.IsGraded())
}

func TestAxisTable(t *testing.T) {
	table := AxisTable()
	require.Len(t, table, 4)
	for _, opt := range table {
		assert.Contains(t, opt.Secondaries, model.AxisNone)
		assert.NotContains(t, opt.Secondaries, opt.Primary)
		for _, s := range opt.Secondaries {
			assert.NoError(t, ValidateAxes(opt.Primary, s))
		}
	}
	assert.NoError(t, ValidateAxes(model.AxisClass, ""))

	s := SecondaryAxes(model.AxisClass)
	s[0] = model.AxisClass
	assert.Equal(t, model.AxisNone, SecondaryAxes(model.AxisClass)[0], "returns a copy")
}

func TestResolver(t *testing.T) {
	r := NewResolver(fixture())

	names := r.Names(model.Correction{StudentID: 2, ActivityID: 11})
	assert.Equal(t, Names{Student: "Martin Léa", Activity: "DM 2", Class: "Seconde A"}, names)
	assert.Equal(t, "G2", r.SubGroup(model.Correction{StudentID: 2}))

	names = r.Names(model.Correction{StudentID: 99, ActivityID: 77, ClassID: ptr(int64(2))})
	assert.Equal(t, Names{Student: UnknownLabel, Activity: UnknownLabel, Class: "Seconde B"}, names)
	assert.Equal(t, NoGroupLabel, r.SubGroup(model.Correction{StudentID: 99}))

	assert.Equal(t, UnknownLabel, NewResolver(nil).Names(model.Correction{StudentID: 1}).Student)
}
