package main

import (
	"fmt"
	"os"

	"github.com/kocubinski/costor-api/logz"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var log = logz.Logger.With().Str("bench", "ledger").Logger()

func rootCommand() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:          "ledger-bench",
		Short:        "drive and inspect a versioned AVL ledger",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "zerolog level (debug, info, warn, error)")
	cmd.AddCommand(runCommand(), dumpCommand())
	return cmd
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}
}
