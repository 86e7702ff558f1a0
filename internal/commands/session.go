package commands

import (
	"github.com/spf13/cobra"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/output"
	"github.com/remotedev/rdv/internal/store"
)

// NewSessionCmd creates the session command with subcommands.
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage agent sessions (tmux-backed)",
	}

	cmd.AddCommand(newSessionCreateCmd())
	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionGetCmd())
	cmd.AddCommand(newSessionStatusCmd())
	cmd.AddCommand(newSessionNoteCmd())
	cmd.AddCommand(newSessionNotesCmd())

	namespaceIndex(cmd)
	return cmd
}

func newSessionCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			folderID, _ := cmd.Flags().GetString("folder")
			tmuxName, _ := cmd.Flags().GetString("tmux-session-name")
			projectPath, _ := cmd.Flags().GetString("project-path")
			worktreeBranch, _ := cmd.Flags().GetString("worktree-branch")
			agentProvider, _ := cmd.Flags().GetString("agent-provider")
			isOrchestrator, _ := cmd.Flags().GetBool("orchestrator")

			var session *models.Session
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				s, err := store.CreateSession(db, store.CreateSessionParams{
					UserID:          user.ID,
					FolderID:        folderID,
					Name:            name,
					TmuxSessionName: tmuxName,
					ProjectPath:     projectPath,
					WorktreeBranch:  worktreeBranch,
					AgentProvider:   agentProvider,
					IsOrchestrator:  isOrchestrator,
				})
				if err != nil {
					return err
				}
				session = s
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(session)
		},
	}

	cmd.Flags().StringP("name", "n", "", "Session name")
	cmd.Flags().String("folder", "", "Owning folder ID")
	cmd.Flags().String("tmux-session-name", "", "Backing tmux session name (required)")
	cmd.Flags().String("project-path", "", "Project directory this session runs in")
	cmd.Flags().String("worktree-branch", "", "Git worktree branch the session is on, if any")
	cmd.Flags().String("agent-provider", "", "Agent CLI backing the session (claude, codex, ...)")
	cmd.Flags().Bool("orchestrator", false, "Mark this session as an orchestrator's own session")
	_ = cmd.MarkFlagRequired("tmux-session-name")

	return cmd
}

func newSessionListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, optionally scoped to a folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID, _ := cmd.Flags().GetString("folder")

			var sessions []*models.Session
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				s, err := store.ListSessions(db, user.ID, folderID)
				if err != nil {
					return err
				}
				sessions = s
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count    int               `json:"count"`
				Sessions []*models.Session `json:"sessions"`
			}
			return output.PrintSuccess(resp{Count: len(sessions), Sessions: sessions})
		},
	}

	cmd.Flags().String("folder", "", "Restrict to sessions in this folder")
	return cmd
}

func newSessionGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a session by ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return cmdErr(errRequiredFlag("--id"))
			}

			var session *models.Session
			if err := withDB(func(db *DB) error {
				s, err := store.GetSession(db, id)
				if err != nil {
					return err
				}
				session = s
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(session)
		},
	}

	cmd.Flags().String("id", "", "Session ID (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newSessionStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Update a session's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			status, _ := cmd.Flags().GetString("status")
			if id == "" {
				return cmdErr(errRequiredFlag("--id"))
			}
			if status == "" {
				return cmdErr(errRequiredFlag("--status"))
			}

			if err := withDB(func(db *DB) error {
				return store.SetSessionStatus(db, id, models.SessionStatus(status))
			}); err != nil {
				return err
			}

			type resp struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			}
			return output.PrintSuccess(resp{ID: id, Status: status})
		},
	}

	cmd.Flags().String("id", "", "Session ID (required)")
	cmd.Flags().String("status", "", "New status: active, suspended, closed (required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newSessionNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Attach a free-text note to a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			content, _ := cmd.Flags().GetString("content")
			if sessionID == "" {
				return cmdErr(errRequiredFlag("--session"))
			}
			if content == "" {
				return cmdErr(errRequiredFlag("--content"))
			}

			var note *models.Note
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				n, err := store.CreateNote(db, user.ID, sessionID, content)
				if err != nil {
					return err
				}
				note = n
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(note)
		},
	}

	cmd.Flags().String("session", "", "Session ID (required)")
	cmd.Flags().String("content", "", "Note text (required)")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func newSessionNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List notes attached to a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			if sessionID == "" {
				return cmdErr(errRequiredFlag("--session"))
			}

			var notes []*models.Note
			if err := withDB(func(db *DB) error {
				n, err := store.ListNotesBySession(db, sessionID)
				if err != nil {
					return err
				}
				notes = n
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count int            `json:"count"`
				Notes []*models.Note `json:"notes"`
			}
			return output.PrintSuccess(resp{Count: len(notes), Notes: notes})
		},
	}

	cmd.Flags().String("session", "", "Session ID (required)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
