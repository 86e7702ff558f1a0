package memory

import (
	"database/sql"
	"fmt"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

// AutoPromote moves every short-term entry with access_count >= 3 to
// working, resetting its access clock, and returns the promoted IDs.
func AutoPromote(db *sql.DB, userID string) ([]int64, error) {
	tier := models.MemoryTierShortTerm
	candidates, err := store.ListMemoryEntries(db, models.MemoryFilter{
		UserID: userID,
		Tier:   &tier,
	})
	if err != nil {
		return nil, fmt.Errorf("list short-term candidates: %w", err)
	}

	working := models.MemoryTierWorking
	var promoted []int64
	for _, e := range candidates {
		if e.AccessCount < autoPromoteAccessCount {
			continue
		}
		if _, err := store.UpdateMemoryEntry(db, e.ID, store.UpdateMemoryEntryParams{Tier: &working, ClearTTL: true}); err != nil {
			return promoted, fmt.Errorf("promote entry %d: %w", e.ID, err)
		}
		if _, err := store.TouchMemoryEntry(db, e.ID); err != nil {
			return promoted, fmt.Errorf("reset clock for entry %d: %w", e.ID, err)
		}
		promoted = append(promoted, e.ID)
	}
	return promoted, nil
}

// ConsolidationCandidates returns working entries eligible for promotion to
// long-term: confidence >= 0.8 and access_count >= 5.
func ConsolidationCandidates(db *sql.DB, userID string) ([]*models.MemoryEntry, error) {
	tier := models.MemoryTierWorking
	entries, err := store.ListMemoryEntries(db, models.MemoryFilter{
		UserID: userID,
		Tier:   &tier,
	})
	if err != nil {
		return nil, fmt.Errorf("list working candidates: %w", err)
	}
	out := make([]*models.MemoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Confidence >= consolidationConfidenceThreshold && e.AccessCount >= consolidationAccessCount {
			out = append(out, e)
		}
	}
	return out, nil
}

// MaintainResult reports the outcome of a Maintain sweep. Each step's
// failure is captured here, not returned as an error, so one bad step never
// prevents the others from running.
type MaintainResult struct {
	ExpiredCleaned int      `json:"expired_cleaned"`
	Promoted       []int64  `json:"promoted"`
	Consolidated   []int64  `json:"consolidated"`
	Errors         []string `json:"errors"`
}

// Maintain runs prune + auto-promote + consolidate-candidates for a user, in
// that order, tolerating a failure in any single step.
func Maintain(db *sql.DB, userID string) *MaintainResult {
	result := &MaintainResult{}

	if n, err := Prune(db, userID); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("prune: %v", err))
	} else {
		result.ExpiredCleaned = n
	}

	if ids, err := AutoPromote(db, userID); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("auto_promote: %v", err))
	} else {
		result.Promoted = ids
	}

	candidates, err := ConsolidationCandidates(db, userID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("consolidation_candidates: %v", err))
	} else {
		longTerm := models.MemoryTierLongTerm
		for _, c := range candidates {
			if _, err := store.UpdateMemoryEntry(db, c.ID, store.UpdateMemoryEntryParams{Tier: &longTerm, ClearTTL: true}); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("consolidate %d: %v", c.ID, err))
				continue
			}
			result.Consolidated = append(result.Consolidated, c.ID)
		}
	}

	return result
}
