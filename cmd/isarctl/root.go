package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danmuck/isarlink/internal/logging"
)

// newRootCmd creates the isarctl command tree.
func newRootCmd() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:           "isarctl",
		Short:         "Inspect and replay ISAR client traffic",
		Long:          "isarctl drives the ISAR client layer offline.\nIt replays captured custom and QR channel traffic and manages client config files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			if logLevel == "" {
				return nil
			}
			lvl, ok := logging.ParseLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}
			zerolog.SetGlobalLevel(lvl)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override "+logging.EnvLogLevel)

	cmd.AddCommand(
		newReplayCmd(),
		newInspectCmd(),
		newConfigCmd(),
	)
	return cmd
}
