package commands

import (
	"github.com/spf13/cobra"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/output"
	"github.com/remotedev/rdv/internal/store"
)

// NewFolderCmd creates the folder command with subcommands.
func NewFolderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage project folders",
	}

	cmd.AddCommand(newFolderCreateCmd())
	cmd.AddCommand(newFolderListCmd())
	cmd.AddCommand(newFolderChildrenCmd())
	cmd.AddCommand(newFolderDeleteCmd())

	namespaceIndex(cmd)
	return cmd
}

func newFolderCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return cmdErr(errRequiredFlag("--name"))
			}
			parentID, _ := cmd.Flags().GetString("parent")
			path, _ := cmd.Flags().GetString("path")
			color, _ := cmd.Flags().GetString("color")
			icon, _ := cmd.Flags().GetString("icon")
			sortOrder, _ := cmd.Flags().GetInt("sort-order")

			var folder *models.Folder
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				f, err := store.CreateFolder(db, store.CreateFolderParams{
					UserID:    user.ID,
					ParentID:  parentID,
					Name:      name,
					Path:      path,
					Color:     color,
					Icon:      icon,
					SortOrder: sortOrder,
				})
				if err != nil {
					return err
				}
				folder = f
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(folder)
		},
	}

	cmd.Flags().StringP("name", "n", "", "Folder name (required)")
	cmd.Flags().String("parent", "", "Parent folder ID")
	cmd.Flags().String("path", "", "Project directory this folder tracks")
	cmd.Flags().String("color", "", "Display color")
	cmd.Flags().String("icon", "", "Display icon")
	cmd.Flags().Int("sort-order", 0, "Sibling sort position")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newFolderListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List top-level folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			var folders []*models.Folder
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				f, err := store.ListFolders(db, user.ID)
				if err != nil {
					return err
				}
				folders = f
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count   int              `json:"count"`
				Folders []*models.Folder `json:"folders"`
			}
			return output.PrintSuccess(resp{Count: len(folders), Folders: folders})
		},
	}

	return cmd
}

func newFolderChildrenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "children",
		Short: "List a folder's direct children",
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, _ := cmd.Flags().GetString("parent")
			if parentID == "" {
				return cmdErr(errRequiredFlag("--parent"))
			}

			var folders []*models.Folder
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				f, err := store.ListChildFolders(db, user.ID, parentID)
				if err != nil {
					return err
				}
				folders = f
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count   int              `json:"count"`
				Folders []*models.Folder `json:"folders"`
			}
			return output.PrintSuccess(resp{Count: len(folders), Folders: folders})
		},
	}

	cmd.Flags().String("parent", "", "Parent folder ID (required)")
	_ = cmd.MarkFlagRequired("parent")
	return cmd
}

func newFolderDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return cmdErr(errRequiredFlag("--id"))
			}

			if err := withDB(func(db *DB) error {
				return store.DeleteFolder(db, id)
			}); err != nil {
				return err
			}

			type resp struct {
				ID      string `json:"id"`
				Deleted bool   `json:"deleted"`
			}
			return output.PrintSuccess(resp{ID: id, Deleted: true})
		},
	}

	cmd.Flags().String("id", "", "Folder ID (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
