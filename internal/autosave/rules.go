package autosave

import (
	"fmt"
	"strings"

	"github.com/roach88/autosave/internal/iocwriter"
)

// RequestParser is the external tool that extracts autosave request files
// from an annotated database.
const RequestParser = "epicsparser.py"

// Makefile receives build rules and raw lines.
type Makefile = iocwriter.RuleSink

// DbFileEvent describes a database file added to an IOC build.
type DbFileEvent = iocwriter.DbFileEvent

// BuildRuleEmitter writes the request file rule into the IOC Makefile the
// first time a database file is added, and ignores every later event.
type BuildRuleEmitter struct {
	registry *FieldRegistry
	added    bool
	prefix   string
}

// NewBuildRuleEmitter returns an emitter that consults registry to decide
// whether the database file carries any autosave annotations.
func NewBuildRuleEmitter(registry *FieldRegistry) *BuildRuleEmitter {
	return &BuildRuleEmitter{registry: registry}
}

// DbFileAdded handles a database-file-added event. It reports whether
// this call emitted anything.
func (e *BuildRuleEmitter) DbFileAdded(mk Makefile, ev DbFileEvent) bool {
	if e.added {
		return false
	}
	e.added = true
	e.prefix = ev.IOCName

	var deps []string
	if ev.DbFilename != "" && e.registry.AnyMarksExist() {
		deps = append(deps, "../"+wildcard(ev.DbFilename, ev.IOCName))
	}
	if ev.ExpandedFilename != "" {
		deps = append(deps, wildcard(ev.ExpandedFilename, ev.IOCName))
	}
	if len(deps) == 0 {
		return false
	}

	mk.AddRule(RequestRule(strings.Join(deps, " ")))
	mk.AddLine("ifeq (linux, $(findstring linux, $(T_A)))")
	for n := range NumPasses {
		mk.AddLine(fmt.Sprintf("DATA += %s_%d.req", e.prefix, n))
	}
	mk.AddLine("endif")
	return true
}

// Prefix returns the request file prefix bound by the first event.
func (e *BuildRuleEmitter) Prefix() (string, bool) {
	return e.prefix, e.added
}

// RequestRule renders the pattern rule that builds all three request files
// from deps. The parser writes nothing for an empty pass, hence the touch.
func RequestRule(deps string) string {
	return fmt.Sprintf("%%_0.req %%_1.req %%_2.req: %s\n\t%s -s as -r $* $^\n\ttouch $*_0.req $*_1.req $*_2.req\n",
		deps, RequestParser)
}

// wildcard replaces the IOC name in filename with the make stem "%".
func wildcard(filename, iocName string) string {
	if iocName == "" {
		return filename
	}
	return strings.ReplaceAll(filename, iocName, "%")
}
