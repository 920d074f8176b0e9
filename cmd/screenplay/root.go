package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"pkt.systems/pslog"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "screenplay",
		Short: "Run Screenplay HTTP scenarios",
		Long: "screenplay runs TOML scenarios in which named actors call HTTP APIs\n" +
			"and ask questions about the responses they observed.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromFlags(cmd, os.Stdout)
			if err != nil {
				return err
			}
			cmd.SetContext(pslog.ContextWithLogger(cmd.Context(), logger))
			return nil
		},
	}

	addLoggingFlags(root.PersistentFlags())
	root.AddCommand(newRunCmd(), newImportCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loggerFromFlags builds a logger writing to w from the logging flags.
func loggerFromFlags(cmd *cobra.Command, w io.Writer) (pslog.Logger, error) {
	flags := cmd.Flags()
	structured, _ := flags.GetBool("structured")
	levelStr, _ := flags.GetString("log-level")
	caller, _ := flags.GetBool("log-caller")
	levelFlagSet := flags.Lookup("log-level") != nil && flags.Lookup("log-level").Changed
	return newLogger(structured, levelStr, levelFlagSet, caller, w)
}

func loggerFromCmd(cmd *cobra.Command) pslog.Logger {
	fallback := func() pslog.Logger {
		return pslog.NewWithOptions(os.Stdout, pslog.Options{MinLevel: pslog.InfoLevel})
	}
	if cmd == nil {
		return fallback()
	}
	if logger := pslog.LoggerFromContext(cmd.Context()); logger != nil {
		return logger
	}
	// subcommands executed directly in tests skip the root pre-run
	logger, err := loggerFromFlags(cmd, os.Stdout)
	if err != nil {
		return fallback()
	}
	return logger
}

func addLoggingFlags(flags *pflag.FlagSet) {
	if flags.Lookup("log-level") == nil {
		flags.String("log-level", "info", "Log level (trace|debug|info|warn|error)")
	}
	if flags.Lookup("structured") == nil {
		flags.Bool("structured", false, "Emit structured JSON logs")
	}
	if flags.Lookup("log-caller") == nil {
		flags.Bool("log-caller", false, "Include caller function name on each log line")
	}
}
