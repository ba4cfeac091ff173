package record

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// MetadataHook is called for every record as it is written, between the
// opening brace and the first field. Implementations write "#%" comment
// lines that downstream database tooling reads.
type MetadataHook interface {
	PrintMetadata(w io.Writer, rec *Record) error
}

// MetadataHookFunc adapts a function to MetadataHook.
type MetadataHookFunc func(w io.Writer, rec *Record) error

// PrintMetadata implements MetadataHook.
func (f MetadataHookFunc) PrintMetadata(w io.Writer, rec *Record) error {
	return f(w, rec)
}

// Database is an ordered collection of records with unique names.
type Database struct {
	records []*Record
	byName  map[string]*Record
	hooks   []MetadataHook
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{byName: make(map[string]*Record)}
}

// Add appends rec. Record names must be unique.
func (d *Database) Add(rec *Record) error {
	if _, ok := d.byName[rec.Name]; ok {
		return fmt.Errorf("duplicate record name %q", rec.Name)
	}
	d.records = append(d.records, rec)
	d.byName[rec.Name] = rec
	return nil
}

// Lookup returns the record called name.
func (d *Database) Lookup(name string) (*Record, bool) {
	rec, ok := d.byName[name]
	return rec, ok
}

// Records returns the records in insertion order.
func (d *Database) Records() []*Record {
	return d.records
}

// Len returns the number of records.
func (d *Database) Len() int {
	return len(d.records)
}

// AddMetadataHook registers h to run for every record written.
func (d *Database) AddMetadataHook(h MetadataHook) {
	d.hooks = append(d.hooks, h)
}

// WriteTo renders the database in .db format.
func (d *Database) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	for _, rec := range d.records {
		if err := d.writeRecord(cw, rec); err != nil {
			return cw.n, err
		}
	}
	if err := cw.w.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, cw.err
}

func (d *Database) writeRecord(w *countingWriter, rec *Record) error {
	fmt.Fprintf(w, "record(%s, %s)\n{\n", rec.Type, quoteDbString(rec.Name))
	for _, h := range d.hooks {
		if err := h.PrintMetadata(w, rec); err != nil {
			return fmt.Errorf("metadata for %s: %w", rec.Name, err)
		}
	}
	for _, f := range rec.Fields {
		fmt.Fprintf(w, "    field(%s, %s)\n", f.Name, quoteDbString(f.Value))
	}
	fmt.Fprint(w, "}\n\n")
	return w.err
}

// quoteDbString quotes a value for a .db file.
func quoteDbString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
