package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/remotedev/rdv/internal/app"
	"github.com/remotedev/rdv/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	root := &cobra.Command{
		Use:           "rdv",
		Short:         "Local CLI for the orchestration platform (sessions, folders, orchestrators, memory)",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				return err
			}

			// Wire --db-path into app-level resolver.
			if dbPath, err := cmd.Flags().GetString("db-path"); err == nil && dbPath != "" {
				app.SetDBPathOverride(dbPath)
			}

			return nil
		},
	}

	root.PersistentFlags().String("db-path", "", "Override database path")
	root.PersistentFlags().String("request-id", "", "Idempotency key for mutating operations (default: $RDV_REQUEST_ID)")
	root.Flags().BoolP("version", "v", false, "version for rdv")

	root.AddCommand(NewSessionCmd())
	root.AddCommand(NewFolderCmd())
	root.AddCommand(NewOrchestratorCmd())
	root.AddCommand(NewMemoryCmd())
	root.AddCommand(NewTokenCmd())
	root.AddCommand(NewHookCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewUpgradeCmd())
	root.AddCommand(NewDBCmd())

	err := root.Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Default().Error("command failed", "error", err.Error())
			printError(err)
		}
	}
	return err
}
