package store

import (
	"context"
	"database/sql"
	"fmt"
)

// StatusCounts holds summary counts for all entity types tracked by rdv, for
// the CLI's `rdv status` overview.
type StatusCounts struct {
	Sessions           SessionStatusCounts `json:"sessions"`
	Folders            int                 `json:"folders"`
	Orchestrators      int                 `json:"orchestrators"`
	Memory             MemoryTierCounts    `json:"memory"`
	UnresolvedInsights int                 `json:"unresolved_insights"`
}

// SessionStatusCounts breaks down session counts by status.
type SessionStatusCounts struct {
	Active    int `json:"active"`
	Suspended int `json:"suspended"`
	Closed    int `json:"closed"`
}

// MemoryTierCounts breaks down memory entry counts by tier: short_term
// entries come from Remember, working entries from Hold, long_term entries
// from Learn.
type MemoryTierCounts struct {
	ShortTerm int `json:"short_term"`
	Working   int `json:"working"`
	LongTerm  int `json:"long_term"`
}

// GetStatusCounts retrieves all status counts in a single atomic query with retry.
func GetStatusCounts(db *sql.DB) (*StatusCounts, error) {
	counts := &StatusCounts{}

	err := RetryWithBackoff(context.Background(), func() error {
		return db.QueryRowContext(context.Background(), `
			SELECT
				COALESCE((SELECT SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END) FROM sessions), 0),
				COALESCE((SELECT SUM(CASE WHEN status = 'suspended' THEN 1 ELSE 0 END) FROM sessions), 0),
				COALESCE((SELECT SUM(CASE WHEN status = 'closed' THEN 1 ELSE 0 END) FROM sessions), 0),
				(SELECT COUNT(*) FROM folders),
				(SELECT COUNT(*) FROM orchestrators),
				COALESCE((SELECT SUM(CASE WHEN tier = 'short_term' THEN 1 ELSE 0 END) FROM memory_entries), 0),
				COALESCE((SELECT SUM(CASE WHEN tier = 'working' THEN 1 ELSE 0 END) FROM memory_entries), 0),
				COALESCE((SELECT SUM(CASE WHEN tier = 'long_term' THEN 1 ELSE 0 END) FROM memory_entries), 0),
				(SELECT COUNT(*) FROM insights WHERE resolved = 0)
		`).Scan(
			&counts.Sessions.Active,
			&counts.Sessions.Suspended,
			&counts.Sessions.Closed,
			&counts.Folders,
			&counts.Orchestrators,
			&counts.Memory.ShortTerm,
			&counts.Memory.Working,
			&counts.Memory.LongTerm,
			&counts.UnresolvedInsights,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get status counts: %w", err)
	}

	return counts, nil
}
