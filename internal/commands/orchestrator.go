package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/remotedev/rdv/internal/insight"
	"github.com/remotedev/rdv/internal/memory"
	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/monitoring"
	"github.com/remotedev/rdv/internal/output"
	"github.com/remotedev/rdv/internal/store"
	"github.com/remotedev/rdv/internal/terminal"
)

// NewOrchestratorCmd creates the orchestrator command with subcommands.
func NewOrchestratorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Manage orchestrators and their stall-monitoring loops",
	}

	cmd.AddCommand(newOrchestratorCreateCmd())
	cmd.AddCommand(newOrchestratorListCmd())
	cmd.AddCommand(newOrchestratorInstructionsCmd())
	cmd.AddCommand(newOrchestratorStalledCmd())
	cmd.AddCommand(newOrchestratorMonitoringCmd())
	cmd.AddCommand(newOrchestratorEscalateCmd())

	namespaceIndex(cmd)
	return cmd
}

func newOrchestratorCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a master or folder orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			folderID, _ := cmd.Flags().GetString("folder")
			instructions, _ := cmd.Flags().GetString("instructions")
			intervalSecs, _ := cmd.Flags().GetInt("interval-secs")
			thresholdSecs, _ := cmd.Flags().GetInt("stall-threshold-secs")
			autoIntervention, _ := cmd.Flags().GetBool("auto-intervention")

			scopeType, scopeID := "", ""
			if models.OrchestratorKind(kind) == models.OrchestratorKindFolder {
				if folderID == "" {
					return cmdErr(errRequiredFlag("--folder (required for kind=folder)"))
				}
				scopeType, scopeID = "folder", folderID
			}

			var orch *models.Orchestrator
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				o, err := store.CreateOrchestrator(db, store.CreateOrchestratorParams{
					UserID:                 user.ID,
					Kind:                   models.OrchestratorKind(kind),
					ScopeType:              scopeType,
					ScopeID:                scopeID,
					CustomInstructions:     instructions,
					MonitoringIntervalSecs: intervalSecs,
					StallThresholdSecs:     thresholdSecs,
					AutoIntervention:       autoIntervention,
				})
				if err != nil {
					return err
				}
				orch = o
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(orch)
		},
	}

	cmd.Flags().String("kind", string(models.OrchestratorKindFolder), "master or folder")
	cmd.Flags().String("folder", "", "Folder ID (required when kind=folder)")
	cmd.Flags().String("instructions", "", "Custom instructions for this orchestrator")
	cmd.Flags().Int("interval-secs", 0, "Monitoring poll interval, 0 uses the platform default")
	cmd.Flags().Int("stall-threshold-secs", 0, "Seconds of inactivity before a session counts as stalled, 0 uses the platform default")
	cmd.Flags().Bool("auto-intervention", false, "Let the orchestrator act on stalls without operator confirmation")

	return cmd
}

func newOrchestratorListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orchestrators, or show the master orchestrator with --master",
		RunE: func(cmd *cobra.Command, args []string) error {
			master, _ := cmd.Flags().GetBool("master")

			if master {
				var orch *models.Orchestrator
				if err := withDB(func(db *DB) error {
					user, err := store.GetOrCreateLocalUser(db)
					if err != nil {
						return err
					}
					o, err := store.GetMasterOrchestrator(db, user.ID)
					if err != nil {
						return err
					}
					orch = o
					return nil
				}); err != nil {
					return err
				}
				return output.PrintSuccess(orch)
			}

			var orchs []*models.Orchestrator
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				o, err := store.ListOrchestrators(db, user.ID)
				if err != nil {
					return err
				}
				orchs = o
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count         int                    `json:"count"`
				Orchestrators []*models.Orchestrator `json:"orchestrators"`
			}
			return output.PrintSuccess(resp{Count: len(orchs), Orchestrators: orchs})
		},
	}

	cmd.Flags().Bool("master", false, "Show the master orchestrator instead of listing all")
	return cmd
}

func newOrchestratorInstructionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instructions",
		Short: "Update an orchestrator's custom instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			text, _ := cmd.Flags().GetString("text")
			if id == "" {
				return cmdErr(errRequiredFlag("--id"))
			}

			if err := withDB(func(db *DB) error {
				return store.UpdateOrchestratorInstructions(db, id, text)
			}); err != nil {
				return err
			}

			type resp struct {
				ID           string `json:"id"`
				Instructions string `json:"custom_instructions"`
			}
			return output.PrintSuccess(resp{ID: id, Instructions: text})
		},
	}

	cmd.Flags().String("id", "", "Orchestrator ID (required)")
	cmd.Flags().String("text", "", "New instructions text")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newOrchestratorStalledCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stalled-sessions",
		Short: "Run a stall check for an orchestrator and list the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return cmdErr(errRequiredFlag("--id"))
			}

			var result *monitoring.StallCheckResult
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				svc := monitoring.NewService(db, insight.NewGenerator(db, memory.LevenshteinEmbedder{}), terminal.NewTmuxAdapter())
				r, err := svc.CheckForStalledSessions(id, user.ID)
				if err != nil {
					return err
				}
				result = r
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(result)
		},
	}

	cmd.Flags().String("id", "", "Orchestrator ID (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newOrchestratorMonitoringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitoring",
		Short: "Start, stop, or inspect an orchestrator's background stall-check loop",
	}

	cmd.AddCommand(newOrchestratorMonitoringStartCmd())
	cmd.AddCommand(newOrchestratorMonitoringStopCmd())
	cmd.AddCommand(newOrchestratorMonitoringStatusCmd())

	return cmd
}

func newOrchestratorMonitoringStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start periodic stall checking for an orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			intervalSecs, _ := cmd.Flags().GetInt("interval-secs")
			if id == "" {
				return cmdErr(errRequiredFlag("--id"))
			}

			// Starts a stall-check loop in this CLI process (it lives only as
			// long as the process) and marks the orchestrator running. The
			// daemon's equivalent is in internal/server/orchestrators.go.
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				orch, err := store.GetOrchestrator(db, id)
				if err != nil {
					return err
				}
				interval := intervalSecs
				if interval <= 0 {
					interval = orch.MonitoringIntervalSecs
				}
				svc := monitoring.NewService(db, insight.NewGenerator(db, memory.LevenshteinEmbedder{}), terminal.NewTmuxAdapter())
				svc.StartStallChecking(id, user.ID, time.Duration(interval)*time.Second)
				return store.SetOrchestratorStatus(db, id, models.OrchestratorStatusRunning)
			}); err != nil {
				return err
			}

			type resp struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			}
			return output.PrintSuccess(resp{ID: id, Status: string(models.OrchestratorStatusRunning)})
		},
	}

	cmd.Flags().String("id", "", "Orchestrator ID (required)")
	cmd.Flags().Int("interval-secs", 0, "Override the orchestrator's stored monitoring interval")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newOrchestratorMonitoringStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop periodic stall checking for an orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return cmdErr(errRequiredFlag("--id"))
			}

			if err := withDB(func(db *DB) error {
				return store.SetOrchestratorStatus(db, id, models.OrchestratorStatusIdle)
			}); err != nil {
				return err
			}

			type resp struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			}
			return output.PrintSuccess(resp{ID: id, Status: string(models.OrchestratorStatusIdle)})
		},
	}

	cmd.Flags().String("id", "", "Orchestrator ID (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newOrchestratorMonitoringStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show an orchestrator's stored status",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return cmdErr(errRequiredFlag("--id"))
			}

			var orch *models.Orchestrator
			if err := withDB(func(db *DB) error {
				o, err := store.GetOrchestrator(db, id)
				if err != nil {
					return err
				}
				orch = o
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			}
			return output.PrintSuccess(resp{ID: orch.ID, Status: string(orch.Status)})
		},
	}

	cmd.Flags().String("id", "", "Orchestrator ID (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newOrchestratorEscalateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalate",
		Short: "Copy an unresolved insight onto the master orchestrator's insight stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			insightID, _ := cmd.Flags().GetString("insight")
			if insightID == "" {
				return cmdErr(errRequiredFlag("--insight"))
			}

			var escalated *models.Insight
			if err := withDB(func(db *DB) error {
				user, err := store.GetOrCreateLocalUser(db)
				if err != nil {
					return err
				}
				master, err := store.GetMasterOrchestrator(db, user.ID)
				if err != nil {
					return err
				}
				e, err := store.EscalateInsight(db, insightID, master.ID)
				if err != nil {
					return err
				}
				escalated = e
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(escalated)
		},
	}

	cmd.Flags().String("insight", "", "Insight ID to escalate (required)")
	_ = cmd.MarkFlagRequired("insight")
	return cmd
}
