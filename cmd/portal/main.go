package main

import (
	"os"

	"github.com/portalautarca/portal/cmd/portal/cmd"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "portal",
		Short:        "Operations for the Portal do Autarca API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.ServeCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.SeedCmd())
	rootCmd.AddCommand(cmd.ImportCmd())
	rootCmd.AddCommand(cmd.PurgeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
