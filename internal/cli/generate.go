package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/autosave/internal/manifest"
	"github.com/roach88/autosave/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	OutputDir string
	Schema    string
	DBPath    string
}

// GenerateResult describes the files written by generate.
type GenerateResult struct {
	IOC          string              `json:"ioc"`
	OutputDir    string              `json:"output_dir"`
	Files        []manifest.Artifact `json:"files"`
	ManifestHash string              `json:"manifest_hash"`
	Run          *store.Run          `json:"run,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return newGenerateCommand(rootOpts, store.UUIDGenerator{})
}

func newGenerateCommand(rootOpts *RootOptions, ids store.IDGenerator) *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <ioc-file>",
		Short: "Generate the IOC's database, Makefile fragment and boot script",
		Long: `Generate the artifacts of an IOC definition.

Writes db/<ioc>.db with autosave annotations, the expanded substitutions
for the status templates, the db/Makefile fragment with the request-file
rule, and st<ioc>.cmd with the autosave boot commands.

With --db the run's manifest is recorded for later checks.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(rootOpts, opts, ids, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", ".", "output directory")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "extra record type schema (YAML)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record the run in this history database")

	return cmd
}

func runGenerate(rootOpts *RootOptions, opts *GenerateOptions, ids store.IDGenerator, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd.OutOrStdout())
	logger := rootOpts.logger()

	schema, err := recordSchema(opts.Schema)
	if err != nil {
		return failWith(formatter, ErrCodeRecordTypes, ExitCommandError, err)
	}

	gen, err := generate(path, schema, logger)
	if err != nil {
		return fail(formatter, err)
	}

	if err := gen.Output.WriteDir(opts.OutputDir); err != nil {
		return failWith(formatter, ErrCodeWriteFailed, ExitCommandError, err)
	}
	logger.Info("wrote IOC artifacts",
		zap.String("ioc", gen.Manifest.IOC),
		zap.String("dir", opts.OutputDir),
		zap.Int("files", len(gen.Output.Files)))

	hash, err := gen.Manifest.Hash()
	if err != nil {
		return fail(formatter, err)
	}
	result := GenerateResult{
		IOC:          gen.Manifest.IOC,
		OutputDir:    opts.OutputDir,
		Files:        gen.Manifest.Artifacts,
		ManifestHash: hash,
	}

	if opts.DBPath != "" {
		run, err := recordRun(cmd.Context(), opts.DBPath, ids.Generate(), gen.Manifest)
		if err != nil {
			return failWith(formatter, ErrCodeHistory, ExitCommandError, err)
		}
		logger.Debug("recorded run", zap.String("id", run.ID), zap.Int64("seq", run.Seq))
		result.Run = &run
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	for _, f := range result.Files {
		fmt.Fprintf(formatter.Writer, "wrote %s (%d bytes)\n", f.Name, f.Size)
	}
	if result.Run != nil {
		fmt.Fprintf(formatter.Writer, "recorded run %s (seq %d)\n", result.Run.ID, result.Run.Seq)
	}
	return nil
}

func recordRun(ctx context.Context, dbPath, runID string, m *manifest.Manifest) (store.Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()
	return st.WriteRun(ctx, runID, m)
}
