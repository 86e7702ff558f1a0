package commands

import (
	"github.com/spf13/cobra"

	"github.com/remotedev/rdv/internal/memory"
	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/output"
	"github.com/remotedev/rdv/internal/store"
)

// NewMemoryCmd creates the memory command with subcommands spanning the
// three tiers (short-term, working, long-term).
func NewMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Remember, hold, and learn across the three memory tiers",
	}

	cmd.AddCommand(newMemoryRememberCmd())
	cmd.AddCommand(newMemoryRecentCmd())
	cmd.AddCommand(newMemoryHoldCmd())
	cmd.AddCommand(newMemoryActiveCmd())
	cmd.AddCommand(newMemoryReleaseCmd())
	cmd.AddCommand(newMemoryLearnCmd())
	cmd.AddCommand(newMemoryKnowledgeCmd())
	cmd.AddCommand(newMemoryRecallCmd())
	cmd.AddCommand(newMemoryForgetCmd())
	cmd.AddCommand(newMemoryMaintainCmd())

	namespaceIndex(cmd)
	return cmd
}

func newMemoryRememberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remember",
		Short: "Store an observation in short-term memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			folderID, _ := cmd.Flags().GetString("folder")
			content, _ := cmd.Flags().GetString("content")
			if content == "" {
				return cmdErr(errRequiredFlag("--content"))
			}

			var entry *models.MemoryEntry
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				e, err := memory.Remember(db, user.ID, sessionID, folderID, content, memory.RememberOptions{})
				if err != nil {
					return err
				}
				entry = e
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(entry)
		},
	}

	cmd.Flags().String("session", "", "Session this observation belongs to")
	cmd.Flags().String("folder", "", "Folder this observation belongs to")
	cmd.Flags().String("content", "", "Observation text (required)")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func newMemoryRecentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recent short-term memory for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			folderID, _ := cmd.Flags().GetString("folder")
			limit, _ := cmd.Flags().GetInt("limit")

			var entries []*models.MemoryEntry
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				e, err := memory.Recent(db, user.ID, sessionID, folderID, limit)
				if err != nil {
					return err
				}
				entries = e
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count   int                     `json:"count"`
				Entries []*models.MemoryEntry `json:"entries"`
			}
			return output.PrintSuccess(resp{Count: len(entries), Entries: entries})
		},
	}

	cmd.Flags().String("session", "", "Session ID")
	cmd.Flags().String("folder", "", "Folder ID")
	cmd.Flags().Int("limit", 20, "Maximum entries to return")
	return cmd
}

func newMemoryHoldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hold",
		Short: "Store active task context in working memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			folderID, _ := cmd.Flags().GetString("folder")
			taskID, _ := cmd.Flags().GetString("task")
			content, _ := cmd.Flags().GetString("content")
			priority, _ := cmd.Flags().GetInt("priority")
			if content == "" {
				return cmdErr(errRequiredFlag("--content"))
			}

			var entry *models.MemoryEntry
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				e, err := memory.Hold(db, user.ID, sessionID, folderID, content, memory.HoldOptions{
					TaskID:   taskID,
					Priority: priority,
				})
				if err != nil {
					return err
				}
				entry = e
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(entry)
		},
	}

	cmd.Flags().String("session", "", "Session this context belongs to")
	cmd.Flags().String("folder", "", "Folder this context belongs to")
	cmd.Flags().String("task", "", "Task ID this context is scoped to")
	cmd.Flags().String("content", "", "Context text (required)")
	cmd.Flags().Int("priority", 0, "Relative priority among active working-memory entries")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func newMemoryActiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "active",
		Short: "List active working-memory entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			folderID, _ := cmd.Flags().GetString("folder")
			taskID, _ := cmd.Flags().GetString("task")

			var entries []*models.MemoryEntry
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				e, err := memory.Active(db, user.ID, sessionID, folderID, taskID)
				if err != nil {
					return err
				}
				entries = e
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count   int                      `json:"count"`
				Entries []*models.MemoryEntry `json:"entries"`
			}
			return output.PrintSuccess(resp{Count: len(entries), Entries: entries})
		},
	}

	cmd.Flags().String("session", "", "Session ID")
	cmd.Flags().String("folder", "", "Folder ID")
	cmd.Flags().String("task", "", "Task ID")
	return cmd
}

func newMemoryReleaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release a working-memory entry back to short-term",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetInt64("id")
			if id == 0 {
				return cmdErr(errRequiredFlag("--id"))
			}

			var entry *models.MemoryEntry
			if err := withDB(func(db *DB) error {
				e, err := memory.Release(db, id)
				if err != nil {
					return err
				}
				entry = e
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(entry)
		},
	}

	cmd.Flags().Int64("id", 0, "Memory entry ID (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newMemoryLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Record long-term project knowledge for a folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID, _ := cmd.Flags().GetString("folder")
			content, _ := cmd.Flags().GetString("content")
			contentType, _ := cmd.Flags().GetString("content-type")
			name, _ := cmd.Flags().GetString("name")
			description, _ := cmd.Flags().GetString("description")
			if folderID == "" {
				return cmdErr(errRequiredFlag("--folder"))
			}
			if content == "" {
				return cmdErr(errRequiredFlag("--content"))
			}

			var entry *models.MemoryEntry
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				e, err := memory.Learn(db, user.ID, folderID, content, models.ContentType(contentType), memory.LearnOptions{
					Name:        name,
					Description: description,
				})
				if err != nil {
					return err
				}
				entry = e
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(entry)
		},
	}

	cmd.Flags().String("folder", "", "Folder ID (required)")
	cmd.Flags().String("content", "", "Knowledge text (required)")
	cmd.Flags().String("content-type", string(models.ContentTypeDocumentation), "documentation, pattern, preference, skill, or code")
	cmd.Flags().String("name", "", "Short label for this knowledge entry")
	cmd.Flags().String("description", "", "Longer description")
	_ = cmd.MarkFlagRequired("folder")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func newMemoryKnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "List a folder's long-term knowledge",
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID, _ := cmd.Flags().GetString("folder")
			contentType, _ := cmd.Flags().GetString("content-type")
			if folderID == "" {
				return cmdErr(errRequiredFlag("--folder"))
			}

			var typeFilter *models.ContentType
			if contentType != "" {
				ct := models.ContentType(contentType)
				typeFilter = &ct
			}

			var entries []*models.MemoryEntry
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				e, err := memory.Knowledge(db, user.ID, folderID, typeFilter)
				if err != nil {
					return err
				}
				entries = e
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count   int                      `json:"count"`
				Entries []*models.MemoryEntry `json:"entries"`
			}
			return output.PrintSuccess(resp{Count: len(entries), Entries: entries})
		},
	}

	cmd.Flags().String("folder", "", "Folder ID (required)")
	cmd.Flags().String("content-type", "", "Restrict to one content type")
	_ = cmd.MarkFlagRequired("folder")
	return cmd
}

func newMemoryRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Search long-term knowledge for a folder by query text",
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID, _ := cmd.Flags().GetString("folder")
			query, _ := cmd.Flags().GetString("query")
			limit, _ := cmd.Flags().GetInt("limit")
			if folderID == "" {
				return cmdErr(errRequiredFlag("--folder"))
			}

			var entries []*models.MemoryEntry
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				e, err := memory.Recall(db, memory.LevenshteinEmbedder{}, user.ID, folderID, query, limit)
				if err != nil {
					return err
				}
				entries = e
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count   int                      `json:"count"`
				Entries []*models.MemoryEntry `json:"entries"`
			}
			return output.PrintSuccess(resp{Count: len(entries), Entries: entries})
		},
	}

	cmd.Flags().String("folder", "", "Folder ID (required)")
	cmd.Flags().String("query", "", "Free-text query")
	cmd.Flags().Int("limit", 10, "Maximum entries to return")
	_ = cmd.MarkFlagRequired("folder")
	return cmd
}

func newMemoryForgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Delete a memory entry (any tier)",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetInt64("id")
			if id == 0 {
				return cmdErr(errRequiredFlag("--id"))
			}

			if err := withDB(func(db *DB) error {
				return memory.Forget(db, id)
			}); err != nil {
				return err
			}

			type resp struct {
				ID      int64 `json:"id"`
				Deleted bool  `json:"deleted"`
			}
			return output.PrintSuccess(resp{ID: id, Deleted: true})
		},
	}

	cmd.Flags().Int64("id", 0, "Memory entry ID (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newMemoryMaintainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run short-term pruning, auto-promotion, and TTL sweeps for the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result *memory.MaintainResult
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				result = memory.Maintain(db, user.ID)
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(result)
		},
	}

	return cmd
}
