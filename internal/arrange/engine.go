// Package arrange partitions flat grade records into the two-level grouping
// every report is rendered from.
//
// Arrange is pure: it performs no I/O, never mutates its inputs, and returns
// the same grouping for the same inputs. Missing reference data degrades to
// fallback labels instead of failing.
package arrange

import (
	"sort"

	"golang.org/x/text/collate"

	"github.com/pavelanni/gradereport/internal/model"
)

// Request selects how corrections are grouped.
type Request struct {
	Primary   model.Axis
	Secondary model.Axis
	// IncludeAll adds a placeholder for every in-scope student and selected
	// activity that has no correction.
	IncludeAll bool
	// ActivityIDs restricts the report to these activities; empty means all.
	ActivityIDs []int64
	// ClassID restricts the report to the students of one class.
	ClassID *int64
}

// RequestFrom extracts the grouping part of a report request.
func RequestFrom(r model.ReportRequest) Request {
	return Request{
		Primary:     r.Primary,
		Secondary:   r.Secondary,
		IncludeAll:  r.IncludeAll,
		ActivityIDs: r.ActivityIDs,
		ClassID:     r.ClassID,
	}
}

type pair struct {
	student  int64
	activity int64
}

type engine struct {
	ds   *model.Dataset
	req  Request
	coll *collate.Collator

	selected        map[int64]bool
	activities      []model.Activity
	students        []model.Student
	membershipNames map[int64]string
}

// Arrange groups the corrections of ds according to req. It fails only for
// an axis combination outside the axis table.
func Arrange(ds *model.Dataset, req Request) (*model.Groups, error) {
	if req.Secondary == "" {
		req.Secondary = model.AxisNone
	}
	if err := ValidateAxes(req.Primary, req.Secondary); err != nil {
		return nil, err
	}
	if ds == nil {
		ds = model.NewDataset(nil, nil, nil, nil)
	}
	e := newEngine(ds, req)
	return e.arrange(), nil
}

func newEngine(ds *model.Dataset, req Request) *engine {
	e := &engine{
		ds:              ds,
		req:             req,
		coll:            newCollator(),
		membershipNames: make(map[int64]string),
	}

	if len(req.ActivityIDs) > 0 {
		e.selected = make(map[int64]bool, len(req.ActivityIDs))
		for _, id := range req.ActivityIDs {
			e.selected[id] = true
		}
	}
	for _, a := range ds.Activities {
		if e.activitySelected(a.ID) && !containsActivity(e.activities, a.ID) {
			e.activities = append(e.activities, a)
		}
	}

	seen := make(map[int64]bool, len(ds.Students))
	for _, s := range ds.Students {
		for _, m := range s.Classes {
			if _, ok := e.membershipNames[m.ClassID]; !ok {
				e.membershipNames[m.ClassID] = m.ClassName
			}
		}
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		if req.ClassID != nil && !s.InClass(*req.ClassID) {
			continue
		}
		e.students = append(e.students, s)
	}
	return e
}

func containsActivity(list []model.Activity, id int64) bool {
	for _, a := range list {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (e *engine) activitySelected(id int64) bool {
	return e.selected == nil || e.selected[id]
}

func (e *engine) arrange() *model.Groups {
	rows := e.rows()
	out := model.NewGroups()

	primaryKeys := e.keysFor(e.req.Primary, rows, e.students)
	byPrimary := e.partition(e.req.Primary, rows)
	labels := e.labelKeys(primaryKeys)

	for i, pk := range primaryKeys {
		pRows := byPrimary[pk]
		if e.req.Secondary == model.AxisNone {
			out.Set(labels[i], model.NewLeaf(e.sortRows(e.enrich(pRows))))
			continue
		}

		scope := e.scope(pk)
		subKeys := e.keysFor(e.req.Secondary, pRows, scope)
		bySecondary := e.partition(e.req.Secondary, pRows)
		subLabels := e.labelKeys(subKeys)

		items := model.NewGroups()
		for j, sk := range subKeys {
			items.Set(subLabels[j], model.NewLeaf(e.sortRows(e.copyRows(bySecondary[sk]))))
		}
		out.Set(labels[i], model.NewBranch(items))
	}
	return out
}

// rows returns the corrections passing the filters plus, with IncludeAll,
// one placeholder per uncovered (student, activity) pair.
func (e *engine) rows() []model.Correction {
	var rows []model.Correction
	covered := make(map[pair]bool)
	for _, c := range e.ds.Corrections {
		if !e.activitySelected(c.ActivityID) || !e.inClassFilter(c) {
			continue
		}
		rows = append(rows, c)
		covered[pair{c.StudentID, c.ActivityID}] = true
	}

	if !e.req.IncludeAll {
		return rows
	}
	for _, s := range e.students {
		classID := e.studentClassID(s)
		for _, a := range e.activities {
			if covered[pair{s.ID, a.ID}] {
				continue
			}
			names := Names{
				Student:  e.keyLabel(studentKey(s.ID)),
				Activity: e.keyLabel(activityKey(a.ID)),
				Class:    e.className(classID),
			}
			rows = append(rows, Placeholder(s.ID, a.ID, classID, names, len(a.Parts)))
			covered[pair{s.ID, a.ID}] = true
		}
	}
	return rows
}

func (e *engine) inClassFilter(c model.Correction) bool {
	if e.req.ClassID == nil {
		return true
	}
	if c.ClassID != nil {
		return *c.ClassID == *e.req.ClassID
	}
	s, ok := e.ds.Student(c.StudentID)
	return ok && s.InClass(*e.req.ClassID)
}

// studentClassID is the class a student's rows fall under when the
// correction itself names none: the filtered class, else the home class.
func (e *engine) studentClassID(s model.Student) *int64 {
	if e.req.ClassID != nil {
		id := *e.req.ClassID
		return &id
	}
	if home := s.HomeClass(); home != nil {
		id := home.ClassID
		return &id
	}
	return nil
}

// rowKey returns the group of c on axis.
func (e *engine) rowKey(axis model.Axis, c model.Correction) groupKey {
	switch axis {
	case model.AxisStudent:
		return studentKey(c.StudentID)
	case model.AxisActivity:
		return activityKey(c.ActivityID)
	case model.AxisClass:
		if c.ClassID != nil {
			return classKey(c.ClassID)
		}
		if s, ok := e.ds.Student(c.StudentID); ok {
			return classKey(e.studentClassID(s))
		}
		return classKey(nil)
	case model.AxisSubclass:
		if s, ok := e.ds.Student(c.StudentID); ok {
			return subGroupKey(s.SubGroup)
		}
		return subGroupKey(nil)
	}
	return groupKey{axis: axis}
}

// studentGroup returns the group a student belongs to on axis.
func (e *engine) studentGroup(axis model.Axis, s model.Student) groupKey {
	switch axis {
	case model.AxisStudent:
		return studentKey(s.ID)
	case model.AxisClass:
		return classKey(e.studentClassID(s))
	case model.AxisSubclass:
		return subGroupKey(s.SubGroup)
	}
	return groupKey{axis: axis}
}

// scope returns the in-scope students belonging to the primary group pk.
func (e *engine) scope(pk groupKey) []model.Student {
	if pk.axis == model.AxisActivity {
		return e.students
	}
	var out []model.Student
	for _, s := range e.students {
		if e.studentGroup(pk.axis, s) == pk {
			out = append(out, s)
		}
	}
	return out
}

// keysFor returns the sorted groups of axis: the reference universe over
// scope when IncludeAll is set, plus every group present in rows.
func (e *engine) keysFor(axis model.Axis, rows []model.Correction, scope []model.Student) []groupKey {
	seen := make(map[groupKey]bool)
	var keys []groupKey
	add := func(k groupKey) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	if e.req.IncludeAll {
		if axis == model.AxisActivity {
			for _, a := range e.activities {
				add(activityKey(a.ID))
			}
		} else {
			for _, s := range scope {
				add(e.studentGroup(axis, s))
			}
		}
	}
	for _, c := range rows {
		add(e.rowKey(axis, c))
	}

	e.sortKeys(keys)
	return keys
}

func (e *engine) partition(axis model.Axis, rows []model.Correction) map[groupKey][]model.Correction {
	out := make(map[groupKey][]model.Correction)
	for _, c := range rows {
		k := e.rowKey(axis, c)
		out[k] = append(out[k], c)
	}
	return out
}

func (e *engine) copyRows(rows []model.Correction) []model.Correction {
	out := make([]model.Correction, 0, len(rows))
	for _, c := range rows {
		out = append(out, c.Clone())
	}
	return out
}

// enrich copies rows and attaches the derived name fields used by flat output.
func (e *engine) enrich(rows []model.Correction) []model.Correction {
	out := make([]model.Correction, 0, len(rows))
	for _, c := range rows {
		cp := c.Clone()
		cp.StudentName = e.keyLabel(studentKey(c.StudentID))
		cp.ActivityName = e.keyLabel(activityKey(c.ActivityID))
		cp.ClassName = e.keyLabel(e.rowKey(model.AxisClass, c))
		out = append(out, cp)
	}
	return out
}

// sortRows orders a leaf by collated student display name. Rows of unknown
// students come last; ties keep activity order, then correction id.
func (e *engine) sortRows(rows []model.Correction) []model.Correction {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		sa, oka := e.ds.Student(a.StudentID)
		sb, okb := e.ds.Student(b.StudentID)
		if oka != okb {
			return oka
		}
		if oka {
			if c := e.coll.CompareString(sa.DisplayName(), sb.DisplayName()); c != 0 {
				return c < 0
			}
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		if ra, rb := e.activityRank(a.ActivityID), e.activityRank(b.ActivityID); ra != rb {
			return ra < rb
		}
		return a.ID < b.ID
	})
	return rows
}
