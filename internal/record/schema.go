package record

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed recordtypes.yaml
var defaultSchemaYAML []byte

// SchemaFile is the on-disk form of a record type schema.
//
//	common: [NAME, DESC, SCAN, ...]
//	types:
//	  ai: [VAL, INP, EGU, ...]
type SchemaFile struct {
	// Common lists fields every record type declares.
	Common []string `yaml:"common"`

	// Types maps a record type to its type-specific fields.
	Types map[string][]string `yaml:"types"`
}

// Schema is the set of valid field names per record type.
type Schema struct {
	types map[string]map[string]struct{}
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{types: make(map[string]map[string]struct{})}
}

// DefaultSchema returns the built-in schema for the standard EPICS base
// record types.
func DefaultSchema() *Schema {
	s, err := ParseSchema(defaultSchemaYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in record schema: %v", err))
	}
	return s
}

// ParseSchema parses a YAML schema document. Unknown keys are rejected.
func ParseSchema(data []byte) (*Schema, error) {
	var file SchemaFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse record schema: %w", err)
	}

	s := NewSchema()
	s.addFile(&file)
	return s, nil
}

// LoadSchemaFile reads a YAML schema from path.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record schema: %w", err)
	}
	return ParseSchema(data)
}

func (s *Schema) addFile(file *SchemaFile) {
	for typ, fields := range file.Types {
		s.Define(typ, file.Common...)
		s.Define(typ, fields...)
	}
}

// Define adds fields to a record type, creating it if needed.
func (s *Schema) Define(recordType string, fields ...string) {
	set, ok := s.types[recordType]
	if !ok {
		set = make(map[string]struct{})
		s.types[recordType] = set
	}
	for _, f := range fields {
		set[f] = struct{}{}
	}
}

// Merge adds every type and field of other to s.
func (s *Schema) Merge(other *Schema) {
	for typ, fields := range other.types {
		for f := range fields {
			s.Define(typ, f)
		}
	}
}

// HasType reports whether recordType is declared.
func (s *Schema) HasType(recordType string) bool {
	_, ok := s.types[recordType]
	return ok
}

// Valid reports whether field is declared for recordType.
func (s *Schema) Valid(recordType, field string) bool {
	_, ok := s.types[recordType][field]
	return ok
}

// Types returns the declared record types, sorted.
func (s *Schema) Types() []string {
	out := make([]string, 0, len(s.types))
	for typ := range s.types {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}
