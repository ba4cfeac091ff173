package iocwriter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/autosave/internal/record"
)

// Target describes the boot environment of an IOC.
type Target struct {
	// Arch is the EPICS target architecture, e.g. "linux-x86_64".
	Arch string

	// SubstituteBoot is set when the boot loader expands ${...} variables
	// in the startup script.
	SubstituteBoot bool
}

// DbFileEvent describes a database file added to an IOC build.
type DbFileEvent struct {
	IOCName string

	// DbFilename is the generated database file, relative to the Db
	// directory. Empty when the IOC has no records of its own.
	DbFilename string

	// ExpandedFilename is the expanded substitutions file, if any.
	ExpandedFilename string
}

// DbFileListener is notified each time a database file is added.
type DbFileListener interface {
	DbMakefileHook(mk RuleSink, ev DbFileEvent)
}

// Initialiser contributes boot script commands before and after iocInit.
type Initialiser interface {
	Initialise(t Target) ([]string, error)
	PostIocInitialise() ([]string, error)
}

// SupportProvider names the support libraries and dbd files a component needs.
type SupportProvider interface {
	Libraries() []string
	DbdFiles() []string
}

// SubstitutionProvider contributes template substitution rows.
type SubstitutionProvider interface {
	Substitutions() []Substitution
}

// IOC is everything the writer needs to produce an IOC's artifacts.
type IOC struct {
	Name       string
	Target     Target
	Database   *record.Database
	Components []any
}

// File is one generated artifact.
type File struct {
	Name string
	Data []byte
}

// Output is the ordered set of generated artifacts.
type Output struct {
	Files []File
}

// Lookup returns the file called name.
func (o *Output) Lookup(name string) (File, bool) {
	for _, f := range o.Files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

// WriteDir writes every file below dir, creating directories as needed.
func (o *Output) WriteDir(dir string) error {
	for _, f := range o.Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.Name, err)
		}
		if err := os.WriteFile(path, f.Data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}
	return nil
}

// Writer generates IOC artifacts.
type Writer struct {
	logger *zap.Logger
}

// NewWriter returns a writer that logs to logger (nil for none).
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger}
}

// MakefileName is the path of the Db Makefile fragment in an Output.
const MakefileName = "db/Makefile"

// DbFileName is the database file name of ioc, relative to the Db directory.
func DbFileName(ioc string) string { return ioc + ".db" }

// ExpandedFileName is the expanded substitutions file name of ioc.
func ExpandedFileName(ioc string) string { return ioc + "_expanded.substitutions" }

// BootScriptName is the boot script path of ioc in an Output.
func BootScriptName(ioc string) string { return "st" + ioc + ".cmd" }

func dbPath(name string) string { return "db/" + name }

// Generate renders the database, substitutions, Makefile fragment and
// boot script of ioc, in that order. Listeners see the database file event
// after the database has been rendered, so every record's metadata hooks
// have run before any rule is emitted.
func (w *Writer) Generate(ioc *IOC) (*Output, error) {
	if ioc.Name == "" {
		return nil, fmt.Errorf("IOC has no name")
	}
	out := &Output{}
	log := w.logger.With(zap.String("ioc", ioc.Name), zap.String("arch", ioc.Target.Arch))

	var rows []Substitution
	for _, c := range ioc.Components {
		if p, ok := c.(SubstitutionProvider); ok {
			rows = append(rows, p.Substitutions()...)
		}
	}

	ev := DbFileEvent{IOCName: ioc.Name}
	if ioc.Database != nil && ioc.Database.Len() > 0 {
		var buf bytes.Buffer
		if _, err := ioc.Database.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("rendering database: %w", err)
		}
		ev.DbFilename = DbFileName(ioc.Name)
		out.Files = append(out.Files, File{Name: dbPath(ev.DbFilename), Data: buf.Bytes()})
		log.Debug("rendered database", zap.Int("records", ioc.Database.Len()))
	}
	if len(rows) > 0 {
		data, err := WriteSubstitutions(rows)
		if err != nil {
			return nil, fmt.Errorf("rendering substitutions: %w", err)
		}
		ev.ExpandedFilename = ExpandedFileName(ioc.Name)
		out.Files = append(out.Files, File{Name: dbPath(ev.ExpandedFilename), Data: data})
		log.Debug("rendered substitutions", zap.Int("rows", len(rows)))
	}

	mk := &Makefile{}
	w.writeMakefileHeader(mk, ioc, ev)
	if ev.DbFilename != "" || ev.ExpandedFilename != "" {
		for _, c := range ioc.Components {
			if l, ok := c.(DbFileListener); ok {
				l.DbMakefileHook(mk, ev)
			}
		}
	}
	out.Files = append(out.Files, File{Name: MakefileName, Data: mk.Bytes()})

	boot, err := w.bootScript(ioc, ev)
	if err != nil {
		return nil, err
	}
	out.Files = append(out.Files, File{Name: BootScriptName(ioc.Name), Data: boot})

	log.Info("generated IOC artifacts", zap.Int("files", len(out.Files)))
	return out, nil
}

func (w *Writer) writeMakefileHeader(mk *Makefile, ioc *IOC, ev DbFileEvent) {
	mk.AddLine("# Db Makefile fragment for " + ioc.Name)
	if ev.DbFilename != "" {
		mk.AddLine("DB += " + ev.DbFilename)
	}
	var libs, dbds []string
	for _, c := range ioc.Components {
		if p, ok := c.(SupportProvider); ok {
			libs = appendUnique(libs, p.Libraries()...)
			dbds = appendUnique(dbds, p.DbdFiles()...)
		}
	}
	if len(libs) > 0 {
		mk.AddLine(fmt.Sprintf("%s_LIBS += %s", ioc.Name, strings.Join(libs, " ")))
	}
	for _, d := range dbds {
		mk.AddLine(fmt.Sprintf("%s_DBD += %s.dbd", ioc.Name, d))
	}
}

func (w *Writer) bootScript(ioc *IOC, ev DbFileEvent) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Boot script for %s (%s)\n\n", ioc.Name, ioc.Target.Arch)
	fmt.Fprintf(&buf, "dbLoadDatabase %s\n", QuoteIOCString("dbd/"+ioc.Name+".dbd"))
	fmt.Fprintf(&buf, "%s_registerRecordDeviceDriver pdbbase\n", ioc.Name)

	var post [][]string
	for _, c := range ioc.Components {
		in, ok := c.(Initialiser)
		if !ok {
			continue
		}
		lines, err := in.Initialise(ioc.Target)
		if err != nil {
			return nil, fmt.Errorf("initialising %T: %w", c, err)
		}
		writeBlock(&buf, lines)

		after, err := in.PostIocInitialise()
		if err != nil {
			return nil, fmt.Errorf("post-init of %T: %w", c, err)
		}
		post = append(post, after)
	}

	if ev.DbFilename != "" {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "dbLoadRecords %s\n", QuoteIOCString("db/"+ev.DbFilename))
	}
	buf.WriteString("\niocInit\n")
	for _, lines := range post {
		writeBlock(&buf, lines)
	}
	return buf.Bytes(), nil
}

// writeBlock writes lines preceded by a blank line.
func writeBlock(buf *bytes.Buffer, lines []string) {
	if len(lines) == 0 {
		return
	}
	buf.WriteString("\n")
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteString("\n")
	}
}

func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		found := false
		for _, have := range list {
			if have == it {
				found = true
				break
			}
		}
		if !found {
			list = append(list, it)
		}
	}
	return list
}
