package commands

import (
	"github.com/spf13/cobra"

	"github.com/remotedev/rdv/internal/auth"
	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/output"
	"github.com/remotedev/rdv/internal/store"
)

// NewTokenCmd creates the token command with subcommands for managing the
// CLI tokens used to authenticate against the Unix-socket API as a specific
// user (as opposed to the shared service token rdvd mints for itself).
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage CLI API tokens",
	}

	cmd.AddCommand(newTokenCreateCmd())
	cmd.AddCommand(newTokenListCmd())
	cmd.AddCommand(newTokenRevokeCmd())

	namespaceIndex(cmd)
	return cmd
}

func newTokenCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a new CLI token; the plaintext is shown once",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")

			var minted *store.MintedCLIToken
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				m, err := auth.MintCLIToken(db, user.ID, name)
				if err != nil {
					return err
				}
				minted = m
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Token     *models.CLIToken `json:"token"`
				Plaintext string            `json:"plaintext"`
			}
			return output.PrintSuccess(resp{Token: minted.Token, Plaintext: minted.Plaintext})
		},
	}

	cmd.Flags().String("name", "", "Human-readable label for this token")
	return cmd
}

func newTokenListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List CLI tokens for the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var tokens []*models.CLIToken
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				t, err := auth.ListCLITokens(db, user.ID)
				if err != nil {
					return err
				}
				tokens = t
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count  int                `json:"count"`
				Tokens []*models.CLIToken `json:"tokens"`
			}
			return output.PrintSuccess(resp{Count: len(tokens), Tokens: tokens})
		},
	}

	return cmd
}

func newTokenRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a CLI token",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return cmdErr(errRequiredFlag("--id"))
			}

			if err := withDB(func(db *DB) error {
				return auth.RevokeCLIToken(db, id)
			}); err != nil {
				return err
			}

			type resp struct {
				ID      string `json:"id"`
				Revoked bool   `json:"revoked"`
			}
			return output.PrintSuccess(resp{ID: id, Revoked: true})
		},
	}

	cmd.Flags().String("id", "", "Token ID (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
