package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gosessionctl",
		Short: "goSession server and administration tool",
		Long: `gosessionctl runs the goSession HTTP API and manages its Postgres schema,
token secret and user accounts.

Settings are read from an optional YAML file (--config) and overridden by flags.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "YAML config file path")
	addConfigFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewKeygenCmd())
	cmd.AddCommand(NewHashCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewUseraddCmd())
	cmd.AddCommand(NewPasswdCmd())
	cmd.AddCommand(NewBenchcmpCmd())

	return cmd
}
