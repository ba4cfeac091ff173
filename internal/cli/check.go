package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/autosave/internal/manifest"
	"github.com/roach88/autosave/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	Schema string
	DBPath string
}

// CheckResult compares a fresh generation with the last recorded run.
type CheckResult struct {
	IOC          string            `json:"ioc"`
	Run          store.Run         `json:"run"`
	ManifestHash string            `json:"manifest_hash"`
	Changes      []manifest.Change `json:"changes,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check <ioc-file>",
		Short: "Check generated output against the last recorded run",
		Long: `Regenerate an IOC definition in memory and compare each artifact's
content hash with the last run recorded for the IOC.

Exits 1 when any artifact was added, removed or modified.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "extra record type schema (YAML)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "history database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCheck(rootOpts *RootOptions, opts *CheckOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd.OutOrStdout())
	logger := rootOpts.logger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	schema, err := recordSchema(opts.Schema)
	if err != nil {
		return failWith(formatter, ErrCodeRecordTypes, ExitCommandError, err)
	}

	gen, err := generate(path, schema, logger)
	if err != nil {
		return fail(formatter, err)
	}
	hash, err := gen.Manifest.Hash()
	if err != nil {
		return fail(formatter, err)
	}

	st, err := openHistory(opts.DBPath)
	if err != nil {
		return historyError(formatter, err)
	}
	defer st.Close()

	run, ok, err := st.LatestRun(ctx, gen.Manifest.IOC)
	if err != nil {
		return failWith(formatter, ErrCodeHistory, ExitCommandError, err)
	}
	if !ok {
		return failWith(formatter, ErrCodeNoHistory, ExitFailure,
			fmt.Errorf("no recorded run for %s in %s", gen.Manifest.IOC, opts.DBPath))
	}

	result := CheckResult{IOC: gen.Manifest.IOC, Run: run, ManifestHash: hash}
	if hash != run.ManifestHash {
		recorded, err := st.ReadArtifacts(ctx, run.ID)
		if err != nil {
			return failWith(formatter, ErrCodeHistory, ExitCommandError, err)
		}
		result.Changes = manifest.Diff(recorded, gen.Manifest.Artifacts)
	}
	logger.Debug("checked IOC against history",
		zap.String("ioc", result.IOC),
		zap.String("run", run.ID),
		zap.Int("changes", len(result.Changes)))

	if len(result.Changes) == 0 {
		if formatter.IsJSON() {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "✓ %s matches run %s (seq %d)\n", result.IOC, run.ID, run.Seq)
		return nil
	}

	message := fmt.Sprintf("%s differs from run %s in %d artifact(s)", result.IOC, run.ID, len(result.Changes))
	if formatter.IsJSON() {
		if err := formatter.Failure(ErrCodeDrift, message, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s drifted from run %s (seq %d)\n", result.IOC, run.ID, run.Seq)
		for _, c := range result.Changes {
			fmt.Fprintf(formatter.Writer, "  %s %s\n", c.Kind, c.Name)
		}
	}
	return NewExitError(ExitFailure, message)
}

// openHistory opens an existing history database. Unlike store.Open it
// does not create a missing file.
func openHistory(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return store.Open(path)
}

func historyError(formatter *OutputFormatter, err error) error {
	if os.IsNotExist(err) {
		return failWith(formatter, ErrCodeNotFound, ExitCommandError, fmt.Errorf("history database not found: %w", err))
	}
	return failWith(formatter, ErrCodeHistory, ExitCommandError, err)
}
