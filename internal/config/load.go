package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// Stage identifies where loading a definition failed.
type Stage string

const (
	StageRead   Stage = "read"
	StageParse  Stage = "parse"
	StageSchema Stage = "schema"
	StageDecode Stage = "decode"
)

// LoadError is returned when an IOC definition cannot be loaded.
type LoadError struct {
	Path  string
	Stage Stage
	Pos   token.Pos // CUE position if available
	Err   error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Definition is a decoded IOC definition.
type Definition struct {
	IOC            string       `json:"ioc"`
	Arch           string       `json:"arch"`
	SubstituteBoot bool         `json:"substitute_boot"`
	Autosave       *AutosaveDef `json:"autosave,omitempty"`
	Records        []RecordDef  `json:"records"`
}

// AutosaveDef configures the IOC's autosave device.
type AutosaveDef struct {
	Server   string `json:"server,omitempty"`
	Address  string `json:"address,omitempty"`
	Path     string `json:"path,omitempty"`
	Name     string `json:"name,omitempty"`
	Debug    int    `json:"debug"`
	Skip1    bool   `json:"skip_1"`
	Beamline bool   `json:"bl"`
	VxUID    int    `json:"vx_uid"`
	VxGID    int    `json:"vx_gid"`
}

// RecordDef is one record and its autosave marks.
type RecordDef struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields,omitempty"`
	Autosave PassFields     `json:"autosave,omitempty"`
}

// PassFields lists the fields marked in each pass.
type PassFields struct {
	Pass0 []string `json:"pass0,omitempty"`
	Pass1 []string `json:"pass1,omitempty"`
	Pass2 []string `json:"pass2,omitempty"`
}

// Empty reports whether no field is marked in any pass.
func (p PassFields) Empty() bool {
	return len(p.Pass0) == 0 && len(p.Pass1) == 0 && len(p.Pass2) == 0
}

// Loader parses IOC definitions against the embedded schema.
type Loader struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewLoader compiles the embedded schema.
func NewLoader() (*Loader, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling IOC schema: %w", err)
	}
	return &Loader{ctx: ctx, schema: schema.LookupPath(cue.ParsePath("#IOC"))}, nil
}

// LoadFile reads a definition from a .cue, .yaml or .yml file.
func (l *Loader) LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Stage: StageRead, Err: err}
	}
	return l.Load(path, data)
}

// Load parses data; the extension of filename selects the format.
func (l *Loader) Load(filename string, data []byte) (*Definition, error) {
	var v cue.Value
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cue":
		v = l.ctx.CompileBytes(data, cue.Filename(filename))
	case ".yaml", ".yml":
		f, err := cueyaml.Extract(filename, data)
		if err != nil {
			return nil, loadError(filename, StageParse, err)
		}
		v = l.ctx.BuildFile(f)
	default:
		return nil, &LoadError{Path: filename, Stage: StageRead, Err: fmt.Errorf("unsupported definition format %q", filepath.Ext(filename))}
	}
	if err := v.Err(); err != nil {
		return nil, loadError(filename, StageParse, err)
	}

	unified := l.schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, loadError(filename, StageSchema, err)
	}

	var def Definition
	if err := unified.Decode(&def); err != nil {
		return nil, loadError(filename, StageDecode, err)
	}
	return &def, nil
}

// loadError attaches the first CUE position of err, if any.
func loadError(path string, stage Stage, err error) *LoadError {
	le := &LoadError{Path: path, Stage: stage, Err: err}
	var cueErr cueerrors.Error
	if errors.As(err, &cueErr) {
		le.Pos = cueErr.Position()
		le.Err = errors.New(cueErr.Error())
	}
	return le
}
