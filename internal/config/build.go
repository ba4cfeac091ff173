package config

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/roach88/autosave/internal/autosave"
	"github.com/roach88/autosave/internal/iocwriter"
	"github.com/roach88/autosave/internal/record"
)

// Built is an IOC ready for the writer, plus handles tests and commands
// inspect.
type Built struct {
	IOC    *iocwriter.IOC
	Device *autosave.Device // nil when the definition has no autosave block
	Server *autosave.Server
}

// Build turns a definition into records, an autosave device and its marks.
// Field and mark errors carry the record name and keep their type, so an
// unknown autosave field is still an *autosave.InvalidFieldError.
func Build(def *Definition, schema *record.Schema, logger *zap.Logger) (*Built, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schema == nil {
		schema = record.DefaultSchema()
	}

	db := record.NewDatabase()
	built := &Built{
		IOC: &iocwriter.IOC{
			Name:     def.IOC,
			Target:   iocwriter.Target{Arch: def.Arch, SubstituteBoot: def.SubstituteBoot},
			Database: db,
		},
		Server: autosave.NewServer(),
	}

	if as := def.Autosave; as != nil {
		opts := []autosave.Option{
			autosave.WithServer(built.Server),
			autosave.WithDebug(as.Debug),
			autosave.WithSkipPass1(as.Skip1),
			autosave.WithBeamline(as.Beamline),
			autosave.WithVxIdentity(as.VxUID, as.VxGID),
			autosave.WithName(as.Name),
			autosave.WithLogger(logger),
		}
		if as.Path != "" {
			opts = append(opts, autosave.WithServerParams(as.Server, as.Address, as.Path))
		}
		built.Device = autosave.New(def.IOC, opts...)
		db.AddMetadataHook(built.Device)
		built.IOC.Components = append(built.IOC.Components, built.Device)
	}

	for _, rd := range def.Records {
		rec, err := buildRecord(schema, rd)
		if err != nil {
			return nil, err
		}
		if err := db.Add(rec); err != nil {
			return nil, err
		}
		if rd.Autosave.Empty() {
			continue
		}
		if built.Device == nil {
			return nil, fmt.Errorf("record %s marks autosave fields but %s has no autosave block", rd.Name, def.IOC)
		}
		if err := markRecord(built.Device, rec, rd.Autosave); err != nil {
			return nil, fmt.Errorf("record %s: %w", rd.Name, err)
		}
	}

	logger.Debug("built IOC definition",
		zap.String("ioc", def.IOC),
		zap.Int("records", db.Len()),
		zap.Bool("autosave", built.Device != nil))
	return built, nil
}

func buildRecord(schema *record.Schema, rd RecordDef) (*record.Record, error) {
	rec, err := record.New(schema, rd.Type, rd.Name)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rd.Name, err)
	}
	names := make([]string, 0, len(rd.Fields))
	for name := range rd.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := rec.Set(name, fmt.Sprint(rd.Fields[name])); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func markRecord(dev *autosave.Device, rec *record.Record, marks PassFields) error {
	for pass, fields := range [autosave.NumPasses][]string{marks.Pass0, marks.Pass1, marks.Pass2} {
		if len(fields) == 0 {
			continue
		}
		if err := dev.AutosavePass(rec, autosave.Pass(pass), fields...); err != nil {
			return err
		}
	}
	return nil
}
