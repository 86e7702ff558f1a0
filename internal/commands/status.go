package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/remotedev/rdv/internal/app"
	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/output"
	"github.com/remotedev/rdv/internal/store"
)

// NewStatusCmd creates the status command, a one-shot overview of the
// database location, entity counts, and the master orchestrator, read
// directly from the database (the daemon has no status endpoint).
func NewStatusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show rdv installation status and entity counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefaultStatus(check)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Run database connectivity check (SELECT 1) and consistency diagnostics")

	return cmd
}

func runDefaultStatus(check bool) error {
	dbPath, dbSource, err := app.ResolveDBPathDetailed()
	if err != nil {
		return cmdErr(err)
	}

	type dbInfo struct {
		Path      string `json:"path"`
		Source    string `json:"source"`
		OK        bool   `json:"ok"`
		SizeBytes *int64 `json:"size_bytes,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	type resp struct {
		DB                 dbInfo                `json:"db"`
		Counts             *store.StatusCounts   `json:"counts,omitempty"`
		MasterOrchestrator *models.Orchestrator  `json:"master_orchestrator,omitempty"`
		QueryOK            *bool                 `json:"query_ok,omitempty"`
		QueryError         string                `json:"query_error,omitempty"`
		Hint               string                `json:"hint,omitempty"`
		Diagnostics        []store.Diagnostic    `json:"diagnostics,omitempty"`
	}

	result := resp{
		DB: dbInfo{
			Path:   dbPath,
			Source: dbSource,
		},
	}

	db, err := store.OpenDB(dbPath)
	if err != nil {
		result.DB.OK = false
		result.DB.Error = err.Error()
		if check {
			qOK := false
			result.QueryOK = &qOK
			result.QueryError = "db not available"
			result.Hint = "If this is running in a sandboxed environment, set db_path to a writable location or use --db-path."
		}
		return output.PrintSuccess(result)
	}

	result.DB.OK = true
	defer func() { _ = db.Close() }()

	if stat, err := os.Stat(dbPath); err == nil {
		size := stat.Size()
		result.DB.SizeBytes = &size
	}

	if counts, err := store.GetStatusCounts(db); err == nil {
		result.Counts = counts
	}

	if user, err := store.GetOrCreateLocalUser(db); err == nil {
		if master, err := store.GetMasterOrchestrator(db, user.ID); err == nil {
			result.MasterOrchestrator = master
		}
	}

	if check {
		var one int
		qErr := db.QueryRowContext(context.Background(), "SELECT 1").Scan(&one)
		qOK := qErr == nil
		result.QueryOK = &qOK
		if !qOK {
			result.QueryError = qErr.Error()
		}

		if diagnostics, diagErr := store.RunDiagnostics(db); diagErr == nil {
			result.Diagnostics = diagnostics
		}
	}

	return output.PrintSuccess(result)
}
