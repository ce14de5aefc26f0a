package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payments/internal/buildinfo"
)

const rootLong = `Replay a transaction log into client account balances.

The report goes to stdout unless an output path is given. Diagnostics go
to stderr. An input file literally named "config" collides with the config
subcommand; pass it as --input config or ./config.`

// NewRootCommand creates the root CLI command with all subcommands registered.
// Run without a subcommand it processes a transaction file:
//
//	payments transactions.csv > accounts.csv
//	payments --input transactions.csv --output accounts.csv
func NewRootCommand() *cobra.Command {
	var opts processOptions

	rootCmd := &cobra.Command{
		Use:     "payments [input.csv] [output.csv]",
		Short:   "Replay a transaction log into client account balances",
		Long:    rootLong,
		Version: buildinfo.String(),
		Args:    cobra.MaximumNArgs(2),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolvePaths(args); err != nil {
				return err
			}
			return runProcess(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "transactions CSV to read")
	flags.StringVarP(&opts.output, "output", "o", "", "accounts CSV to write (default stdout)")
	flags.StringVar(&opts.configPath, "config", "", "path to a payments.yaml config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

// resolvePaths fills input and output from positional arguments when the
// flags were not given.
func (o *processOptions) resolvePaths(args []string) error {
	rest := args
	if o.input == "" && len(rest) > 0 {
		o.input, rest = rest[0], rest[1:]
	}
	if o.output == "" && len(rest) > 0 {
		o.output, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument %q", rest[0])
	}
	if o.input == "" {
		return errors.New("input file is required")
	}
	return nil
}
