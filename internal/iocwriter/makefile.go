package iocwriter

import (
	"bytes"
	"strings"
)

// RuleSink receives build rules and raw lines for an IOC Makefile.
type RuleSink interface {
	AddRule(rule string)
	AddLine(line string)
}

// Makefile is the Db directory Makefile fragment of an IOC. Rules and lines
// are kept in the order they were added.
type Makefile struct {
	chunks []string
}

// AddRule appends a rule, separated from what precedes it by a blank line.
func (m *Makefile) AddRule(rule string) {
	if !strings.HasSuffix(rule, "\n") {
		rule += "\n"
	}
	m.chunks = append(m.chunks, "\n"+rule)
}

// AddLine appends a single line.
func (m *Makefile) AddLine(line string) {
	m.chunks = append(m.chunks, line+"\n")
}

// Len returns the number of rules and lines added.
func (m *Makefile) Len() int {
	return len(m.chunks)
}

// Bytes renders the fragment.
func (m *Makefile) Bytes() []byte {
	var buf bytes.Buffer
	for _, c := range m.chunks {
		buf.WriteString(c)
	}
	return buf.Bytes()
}

// String renders the fragment.
func (m *Makefile) String() string {
	return string(m.Bytes())
}
