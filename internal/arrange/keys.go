package arrange

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pavelanni/gradereport/internal/model"
)

// Group labels used when a reference cannot be resolved.
const (
	NoGroupLabel = "Sans groupe"
	UnknownLabel = "N/A"
)

// groupKey identifies a group on one axis. set is false for the
// unattributed class and for students without a sub-group.
type groupKey struct {
	axis model.Axis
	id   int64
	name string
	set  bool
}

func studentKey(id int64) groupKey {
	return groupKey{axis: model.AxisStudent, id: id, set: true}
}

func activityKey(id int64) groupKey {
	return groupKey{axis: model.AxisActivity, id: id, set: true}
}

func classKey(id *int64) groupKey {
	if id == nil {
		return groupKey{axis: model.AxisClass}
	}
	return groupKey{axis: model.AxisClass, id: *id, set: true}
}

func subGroupKey(name *string) groupKey {
	if name == nil {
		return groupKey{axis: model.AxisSubclass}
	}
	return groupKey{axis: model.AxisSubclass, name: *name, set: true}
}

// newCollator returns a French, case-insensitive collator. Collators are
// not safe for concurrent use, so each arrangement creates its own.
func newCollator() *collate.Collator {
	return collate.New(language.French, collate.IgnoreCase)
}

// keyLabel resolves the display label of k.
func (e *engine) keyLabel(k groupKey) string {
	switch k.axis {
	case model.AxisStudent:
		if s, ok := e.ds.Student(k.id); ok && s.DisplayName() != "" {
			return s.DisplayName()
		}
		return UnknownLabel
	case model.AxisClass:
		if !k.set {
			return model.UnattributedClassLabel
		}
		return e.className(&k.id)
	case model.AxisSubclass:
		if !k.set {
			return NoGroupLabel
		}
		if k.name == "" {
			return NoGroupLabel
		}
		return k.name
	case model.AxisActivity:
		if a, ok := e.ds.Activity(k.id); ok && a.Name != "" {
			return a.Name
		}
		return UnknownLabel
	}
	return UnknownLabel
}

// className prefers the class listing, then the name carried by a student
// membership, then the unattributed label.
func (e *engine) className(id *int64) string {
	if id == nil {
		return model.UnattributedClassLabel
	}
	if c, ok := e.ds.ClassMap().Lookup(id); ok && c.Name != "" {
		return c.Name
	}
	if name, ok := e.membershipNames[*id]; ok && name != "" {
		return name
	}
	return model.UnattributedClassLabel
}

// resolved reports whether k points at known reference data.
func (e *engine) resolved(k groupKey) bool {
	switch k.axis {
	case model.AxisStudent:
		_, ok := e.ds.Student(k.id)
		return ok
	case model.AxisActivity:
		_, ok := e.ds.Activity(k.id)
		return ok
	}
	return k.set
}

// sortKeys orders keys of one axis: unresolved keys last, activities in
// dataset order, everything else by collated label.
func (e *engine) sortKeys(keys []groupKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		ra, rb := e.resolved(a), e.resolved(b)
		if ra != rb {
			return ra
		}
		if a.axis == model.AxisActivity {
			ia, ib := e.activityRank(a.id), e.activityRank(b.id)
			if ia != ib {
				return ia < ib
			}
			return a.id < b.id
		}
		if c := e.coll.CompareString(e.keyLabel(a), e.keyLabel(b)); c != 0 {
			return c < 0
		}
		if a.name != b.name {
			return a.name < b.name
		}
		return a.id < b.id
	})
}

func (e *engine) activityRank(id int64) int {
	if i := e.ds.ActivityIndex(id); i >= 0 {
		return i
	}
	return math.MaxInt
}

// labelKeys assigns each key a label unique within its level so that two
// distinct entities never share a group.
func (e *engine) labelKeys(keys []groupKey) []string {
	labels := make([]string, len(keys))
	used := make(map[string]bool, len(keys))
	for i, k := range keys {
		label := e.keyLabel(k)
		if used[label] {
			base := label
			if k.set && k.axis != model.AxisSubclass {
				label = fmt.Sprintf("%s (#%d)", base, k.id)
			}
			for n := 2; used[label]; n++ {
				label = fmt.Sprintf("%s (%d)", base, n)
			}
		}
		used[label] = true
		labels[i] = label
	}
	return labels
}
