package model

import (
	"encoding/json"
	"fmt"
)

// UnattributedClassLabel names the bucket for students and corrections without a class.
const UnattributedClassLabel = "Classe non attribuée"

// ClassMap resolves class ids to classes. A nil id resolves to the
// unattributed bucket rather than to a sentinel key.
type ClassMap struct {
	byID map[int64]ClassRef
}

// NewClassMap indexes classes by id. Later duplicates win.
func NewClassMap(classes []ClassRef) ClassMap {
	m := ClassMap{byID: make(map[int64]ClassRef, len(classes))}
	for _, c := range classes {
		m.byID[c.ID] = c
	}
	return m
}

// Lookup returns the class for id. It reports false for nil ids and unknown ids.
func (m ClassMap) Lookup(id *int64) (ClassRef, bool) {
	if id == nil {
		return ClassRef{}, false
	}
	c, ok := m.byID[*id]
	return c, ok
}

// Name returns the class name for id, UnattributedClassLabel when id is nil
// or cannot be resolved.
func (m ClassMap) Name(id *int64) string {
	if c, ok := m.Lookup(id); ok && c.Name != "" {
		return c.Name
	}
	return UnattributedClassLabel
}

// Len returns the number of known classes.
func (m ClassMap) Len() int {
	return len(m.byID)
}

// Dataset is the in-memory snapshot a report is built from.
type Dataset struct {
	Students    []Student    `json:"students"`
	Activities  []Activity   `json:"activities"`
	Classes     []ClassRef   `json:"classes"`
	Corrections []Correction `json:"corrections"`

	students   map[int64]int
	activities map[int64]int
	classMap   ClassMap
}

// NewDataset builds a Dataset and its lookup indexes.
func NewDataset(students []Student, activities []Activity, classes []ClassRef, corrections []Correction) *Dataset {
	ds := &Dataset{
		Students:    students,
		Activities:  activities,
		Classes:     classes,
		Corrections: corrections,
	}
	ds.Index()
	return ds
}

// Index (re)builds the id lookups. It must be called after the exported
// slices are replaced, e.g. after JSON decoding.
func (d *Dataset) Index() {
	d.students = make(map[int64]int, len(d.Students))
	for i, s := range d.Students {
		if _, dup := d.students[s.ID]; !dup {
			d.students[s.ID] = i
		}
	}
	d.activities = make(map[int64]int, len(d.Activities))
	for i, a := range d.Activities {
		if _, dup := d.activities[a.ID]; !dup {
			d.activities[a.ID] = i
		}
	}
	d.classMap = NewClassMap(d.Classes)
}

// Student returns the student with the given id.
func (d *Dataset) Student(id int64) (Student, bool) {
	i, ok := d.students[id]
	if !ok {
		return Student{}, false
	}
	return d.Students[i], true
}

// Activity returns the activity with the given id.
func (d *Dataset) Activity(id int64) (Activity, bool) {
	i, ok := d.activities[id]
	if !ok {
		return Activity{}, false
	}
	return d.Activities[i], true
}

// ActivityIndex returns the position of the activity in Activities, or -1.
func (d *Dataset) ActivityIndex(id int64) int {
	i, ok := d.activities[id]
	if !ok {
		return -1
	}
	return i
}

// ClassMap returns the class lookup.
func (d *Dataset) ClassMap() ClassMap {
	return d.classMap
}

// ParseDataset decodes a JSON dataset file and indexes it.
func ParseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	ds.Index()
	return &ds, nil
}
