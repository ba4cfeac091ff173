package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult summarises a valid IOC definition.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	IOC     string `json:"ioc"`
	Records int    `json:"records"`
	Marks   int    `json:"marks"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	Schema string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <ioc-file>",
		Short: "Validate an IOC definition without writing files",
		Long: `Validate an IOC definition without writing files.

Loads the definition against the IOC schema, builds its records and
autosave marks, and renders every artifact in memory so that missing or
inconsistent autosave settings are reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "extra record type schema (YAML)")

	return cmd
}

func runValidate(rootOpts *RootOptions, opts *ValidateOptions, path string, cmd *cobra.Command) error {
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

	result := ValidationResult{
		Valid:   true,
		IOC:     gen.Built.IOC.Name,
		Records: gen.Built.IOC.Database.Len(),
	}
	if gen.Built.Device != nil {
		result.Marks = gen.Built.Device.Registry().Len()
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s valid (%d records, %d autosave marks)\n", result.IOC, result.Records, result.Marks)
	return nil
}
