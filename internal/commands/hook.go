package commands

import (
	"github.com/spf13/cobra"

	"github.com/remotedev/rdv/internal/hooks"
	"github.com/remotedev/rdv/internal/output"
)

// NewHookCmd creates the hook parent command. Hook installation itself is
// external tooling; this surface only reports what a folder already has
// wired up, mirroring the diagnostic /api/folders/{id}/hooks endpoint.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Inspect installed hook scripts for a project folder",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newHookListCmd())

	namespaceIndex(cmd)
	return cmd
}

func newHookListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List hooks.toml entries for a project directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				return cmdErr(errRequiredFlag("--path"))
			}

			manifest, err := hooks.Load(path)
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Count int          `json:"count"`
				Hooks []hooks.Hook `json:"hooks"`
				Path  string       `json:"path"`
			}
			return output.PrintSuccess(resp{Count: len(manifest.Hooks), Hooks: manifest.Hooks, Path: path})
		},
	}

	cmd.Flags().String("path", "", "Project directory to inspect (required)")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}
