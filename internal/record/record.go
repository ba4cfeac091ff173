package record

import (
	"fmt"
)

// UnknownFieldError reports a field that the record's type does not declare.
type UnknownFieldError struct {
	RecordType  string
	Field       string
	UnknownType bool
}

func (e *UnknownFieldError) Error() string {
	if e.UnknownType {
		return fmt.Sprintf("unknown record type %q", e.RecordType)
	}
	return fmt.Sprintf("record type %q has no field %q", e.RecordType, e.Field)
}

// FieldValue is one field(NAME, "value") assignment.
type FieldValue struct {
	Name  string
	Value string
}

// Record is a single database record.
type Record struct {
	Type   string
	Name   string
	Fields []FieldValue

	schema *Schema
}

// New creates a record of recordType validated against schema. Field
// assignments are validated as they are set.
func New(schema *Schema, recordType, name string) (*Record, error) {
	if !schema.HasType(recordType) {
		return nil, &UnknownFieldError{RecordType: recordType, UnknownType: true}
	}
	if name == "" {
		return nil, fmt.Errorf("record of type %s has no name", recordType)
	}
	return &Record{Type: recordType, Name: name, schema: schema}, nil
}

// RecordName returns the record name.
func (r *Record) RecordName() string {
	return r.Name
}

// ValidFieldName returns an error unless field belongs to the record's type.
func (r *Record) ValidFieldName(field string) error {
	if r.schema == nil || !r.schema.Valid(r.Type, field) {
		return &UnknownFieldError{RecordType: r.Type, Field: field}
	}
	return nil
}

// Set assigns a field value, replacing an earlier assignment of the same field.
func (r *Record) Set(field, value string) error {
	if err := r.ValidFieldName(field); err != nil {
		return fmt.Errorf("record %s: %w", r.Name, err)
	}
	for i := range r.Fields {
		if r.Fields[i].Name == field {
			r.Fields[i].Value = value
			return nil
		}
	}
	r.Fields = append(r.Fields, FieldValue{Name: field, Value: value})
	return nil
}
