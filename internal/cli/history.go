package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/autosave/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	DBPath string
}

// HistoryResult lists the recorded runs of an IOC.
type HistoryResult struct {
	IOC  string      `json:"ioc"`
	Runs []store.Run `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:           "history <ioc>",
		Short:         "List recorded generation runs of an IOC",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "history database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(rootOpts *RootOptions, opts *HistoryOptions, ioc string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd.OutOrStdout())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openHistory(opts.DBPath)
	if err != nil {
		return historyError(formatter, err)
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, ioc)
	if err != nil {
		return failWith(formatter, ErrCodeHistory, ExitCommandError, err)
	}

	if formatter.IsJSON() {
		return formatter.Success(HistoryResult{IOC: ioc, Runs: runs})
	}
	if len(runs) == 0 {
		fmt.Fprintf(formatter.Writer, "no recorded runs for %s\n", ioc)
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%4d  %s  %s  %s\n", r.Seq, r.ID, r.Arch, shortHash(r.ManifestHash))
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
