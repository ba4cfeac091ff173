package iocwriter

import (
	"bytes"
	"fmt"
	"strings"
)

// Arg is one named template argument.
type Arg struct {
	Name  string
	Value string
}

// Substitution is one row of a template substitutions file.
type Substitution struct {
	Template string
	Args     []Arg
}

// WriteSubstitutions renders rows in EPICS substitutions format. Rows are
// grouped by template in first-seen order; every row of a template must use
// the same argument names in the same order.
func WriteSubstitutions(rows []Substitution) ([]byte, error) {
	type group struct {
		names []string
		rows  [][]string
	}
	groups := make(map[string]*group)
	var order []string

	for _, row := range rows {
		names := make([]string, len(row.Args))
		values := make([]string, len(row.Args))
		for i, a := range row.Args {
			names[i] = a.Name
			values[i] = QuoteIOCString(a.Value)
		}

		g, ok := groups[row.Template]
		if !ok {
			g = &group{names: names}
			groups[row.Template] = g
			order = append(order, row.Template)
		} else if strings.Join(g.names, ",") != strings.Join(names, ",") {
			return nil, fmt.Errorf("substitutions for %s: arguments %v do not match %v", row.Template, names, g.names)
		}
		g.rows = append(g.rows, values)
	}

	var buf bytes.Buffer
	for _, tmpl := range order {
		g := groups[tmpl]
		fmt.Fprintf(&buf, "file %s\n{\n", tmpl)
		fmt.Fprintf(&buf, "pattern { %s }\n", strings.Join(g.names, ", "))
		for _, values := range g.rows {
			fmt.Fprintf(&buf, "    { %s }\n", strings.Join(values, ", "))
		}
		buf.WriteString("}\n\n")
	}
	return buf.Bytes(), nil
}
