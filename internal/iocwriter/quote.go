package iocwriter

import (
	"fmt"
	"strings"
)

// QuoteIOCString quotes s for the IOC shell: the result is wrapped in double
// quotes with backslashes, double quotes and control characters escaped.
// Adjacent quoted strings are concatenated by the shell, so the result can
// be appended directly to another quoted argument.
func QuoteIOCString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\r':
			b.WriteString(`\r`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
