package iocwriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIOCString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "data", want: `"data"`},
		{in: "", want: `""`},
		{in: `a"b`, want: `"a\"b"`},
		{in: `C:\epics`, want: `"C:\\epics"`},
		{in: "line\nnext\ttab\r", want: `"line\nnext\ttab\r"`},
		{in: "bell\x07", want: `"bell\x07"`},
		{in: "${TOP}", want: `"${TOP}"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteIOCString(tt.in))
		})
	}
}

func TestMakefile(t *testing.T) {
	mk := &Makefile{}
	mk.AddLine("DB += TS1.db")
	mk.AddRule("a: b\n\tcmd")
	mk.AddRule("c: d\n")
	mk.AddLine("endif")

	assert.Equal(t, 4, mk.Len())
	assert.Equal(t, "DB += TS1.db\n\na: b\n\tcmd\n\nc: d\nendif\n", mk.String())
	assert.Equal(t, mk.String(), string(mk.Bytes()))
}

func TestWriteSubstitutions(t *testing.T) {
	rows := []Substitution{
		{Template: "a.template", Args: []Arg{{Name: "P", Value: "TS1"}, {Name: "N", Value: "0"}}},
		{Template: "b.template", Args: []Arg{{Name: "device", Value: "TS1"}}},
		{Template: "a.template", Args: []Arg{{Name: "P", Value: "TS1"}, {Name: "N", Value: "1"}}},
	}

	got, err := WriteSubstitutions(rows)
	assert.NoError(t, err)
	assert.Equal(t, `file a.template
{
pattern { P, N }
    { "TS1", "0" }
    { "TS1", "1" }
}

file b.template
{
pattern { device }
    { "TS1" }
}

`, string(got))
}

func TestWriteSubstitutions_InconsistentArgs(t *testing.T) {
	_, err := WriteSubstitutions([]Substitution{
		{Template: "a.template", Args: []Arg{{Name: "P", Value: "x"}}},
		{Template: "a.template", Args: []Arg{{Name: "Q", Value: "y"}}},
	})
	assert.Error(t, err)
}
