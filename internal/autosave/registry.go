package autosave

import (
	"fmt"
	"io"
	"iter"
)

// Pass is the restore tier of an autosaved field. Pass 0 is restored
// before record initialisation and saved on the fast cadence; passes 1
// and 2 are saved on the slower cadence.
type Pass int

const (
	Pass0 Pass = iota
	Pass1
	Pass2
)

// NumPasses is the fixed number of autosave passes.
const NumPasses = 3

// Valid reports whether p is one of the three supported passes.
func (p Pass) Valid() bool {
	return p >= Pass0 && p < NumPasses
}

// Record is the view of a record the registry needs: its name and a way to
// check that a field belongs to its type.
type Record interface {
	RecordName() string
	ValidFieldName(field string) error
}

// FieldMark is a single (record, pass, field) autosave entry.
type FieldMark struct {
	Record string
	Pass   Pass
	Field  string
}

// fieldSet is an insertion-ordered set of field names.
type fieldSet struct {
	order []string
	seen  map[string]struct{}
}

func (s *fieldSet) add(field string) {
	if _, ok := s.seen[field]; ok {
		return
	}
	s.seen[field] = struct{}{}
	s.order = append(s.order, field)
}

// passTable maps record name to its field set for one pass, remembering
// the order in which records were first marked.
type passTable struct {
	records map[string]*fieldSet
	order   []string
}

// FieldRegistry tracks which fields of which records are autosaved in each pass.
//
// Marks are additive only: there is no way to unmark a field, so the set
// for a (pass, record) pair never shrinks.
type FieldRegistry struct {
	passes [NumPasses]passTable
	marks  int
}

// NewFieldRegistry creates an empty registry.
func NewFieldRegistry() *FieldRegistry {
	r := &FieldRegistry{}
	for i := range r.passes {
		r.passes[i].records = make(map[string]*fieldSet)
	}
	return r
}

// Mark records fields of rec for autosave in the given pass.
//
// Every field is validated before anything is stored, so a failing call
// leaves the registry exactly as it was.
func (r *FieldRegistry) Mark(rec Record, pass Pass, fields ...string) error {
	if !pass.Valid() {
		return &InvalidPassError{Pass: pass}
	}

	name := rec.RecordName()
	for _, field := range fields {
		if err := rec.ValidFieldName(field); err != nil {
			return &InvalidFieldError{Record: name, Field: field, Err: err}
		}
	}
	if len(fields) == 0 {
		return nil
	}

	table := &r.passes[pass]
	set, ok := table.records[name]
	if !ok {
		set = &fieldSet{seen: make(map[string]struct{})}
		table.records[name] = set
		table.order = append(table.order, name)
	}
	for _, field := range fields {
		before := len(set.order)
		set.add(field)
		r.marks += len(set.order) - before
	}
	return nil
}

// MetadataFor returns the marks for one record, pass-ascending and, within a
// pass, in the order the fields were first marked.
//
// The sequence reads the registry each time it is ranged over, so it can be
// iterated any number of times.
func (r *FieldRegistry) MetadataFor(record string) iter.Seq[FieldMark] {
	return func(yield func(FieldMark) bool) {
		for i := range r.passes {
			set, ok := r.passes[i].records[record]
			if !ok {
				continue
			}
			for _, field := range set.order {
				if !yield(FieldMark{Record: record, Pass: Pass(i), Field: field}) {
					return
				}
			}
		}
	}
}

// AnyMarksExist reports whether at least one field has been marked.
func (r *FieldRegistry) AnyMarksExist() bool {
	return r.marks > 0
}

// Len returns the number of distinct (record, pass, field) marks.
func (r *FieldRegistry) Len() int {
	return r.marks
}

// Records returns the names of records with at least one field marked in
// pass, in first-mark order.
func (r *FieldRegistry) Records(pass Pass) []string {
	if !pass.Valid() {
		return nil
	}
	out := make([]string, len(r.passes[pass].order))
	copy(out, r.passes[pass].order)
	return out
}

// WriteMetadata writes the "#% autosave <pass> <field>" annotation lines
// for record.
func (r *FieldRegistry) WriteMetadata(w io.Writer, record string) error {
	for mark := range r.MetadataFor(record) {
		if _, err := fmt.Fprintf(w, "#%% autosave %d %s\n", int(mark.Pass), mark.Field); err != nil {
			return fmt.Errorf("write autosave metadata for %s: %w", record, err)
		}
	}
	return nil
}
