package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/autosave/internal/config"
	"github.com/roach88/autosave/internal/iocwriter"
	"github.com/roach88/autosave/internal/manifest"
	"github.com/roach88/autosave/internal/record"
)

// generated is an IOC definition rendered in memory.
type generated struct {
	Built    *config.Built
	Output   *iocwriter.Output
	Manifest *manifest.Manifest
}

// recordSchema returns the built-in record types, extended by the YAML
// file at path when one is given.
func recordSchema(path string) (*record.Schema, error) {
	schema := record.DefaultSchema()
	if path == "" {
		return schema, nil
	}
	extra, err := record.LoadSchemaFile(path)
	if err != nil {
		return nil, err
	}
	schema.Merge(extra)
	return schema, nil
}

// loadAndBuild loads the definition at path and builds its records and
// autosave device.
func loadAndBuild(path string, schema *record.Schema, logger *zap.Logger) (*config.Built, error) {
	loader, err := config.NewLoader()
	if err != nil {
		return nil, err
	}
	def, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded IOC definition",
		zap.String("path", path),
		zap.String("ioc", def.IOC),
		zap.Int("records", len(def.Records)))
	return config.Build(def, schema, logger)
}

// generate renders every artifact of the definition at path.
func generate(path string, schema *record.Schema, logger *zap.Logger) (*generated, error) {
	built, err := loadAndBuild(path, schema, logger)
	if err != nil {
		return nil, err
	}
	out, err := iocwriter.NewWriter(logger).Generate(built.IOC)
	if err != nil {
		return nil, fmt.Errorf("generating %s: %w", built.IOC.Name, err)
	}
	return &generated{
		Built:    built,
		Output:   out,
		Manifest: manifest.FromOutput(built.IOC.Name, built.IOC.Target.Arch, out),
	}, nil
}
