package cmd

import (
	"fmt"
	"os"

	"github.com/portalautarca/portal/internal/app"

	"github.com/spf13/cobra"
)

func ImportCmd() *cobra.Command {
	var asEmail string

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import initiatives from a semicolon-separated file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			return withApp(func(a *app.App) error {
				creator, err := a.UserService.ByEmail(cmd.Context(), asEmail)
				if err != nil {
					return fmt.Errorf("unknown user %s: %w", asEmail, err)
				}

				result, err := a.ImportService.Import(cmd.Context(), creator, string(data))
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "created %d initiatives\n", result.Created)
				for _, rowErr := range result.Errors {
					fmt.Fprintf(out, "  line %d: %v\n", rowErr.Line, rowErr.Err)
				}
				return nil
			})
		},
	}

	importCmd.Flags().StringVar(&asEmail, "as", "admin@portal.pt", "Email of the account recorded as creator")

	return importCmd
}

func PurgeCmd() *cobra.Command {
	var yes bool

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every initiative with its votes, tags and files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to purge without --yes")
			}

			return withApp(func(a *app.App) error {
				result, err := a.InitiativeService.DeleteAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d initiatives, %d file errors\n", result.Deleted, result.Errors)
				return nil
			})
		},
	}

	purgeCmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return purgeCmd
}
