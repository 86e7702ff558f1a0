// Package consolidation implements the periodic sweep that expires,
// prunes, promotes/demotes, and merges near-duplicate memory entries — a
// longer-running, more thorough process than internal/memory's per-request
// maintain().
package consolidation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

// Defaults mirror spec.md §4.4's configurable cycle parameters.
const (
	DefaultCycleInterval = 5 * time.Minute
	DefaultBatchSize     = 100
	DefaultMinAge        = 5 * time.Minute
	DefaultPruneThreshold = 0.1

	pruneConfidenceThreshold = 0.3

	shortTermPromoteAccessCount = 3
	workingPromoteAccessCount   = 10
	workingPromoteConfidence    = 0.7

	longTermDemoteAge        = 30 * 24 * time.Hour
	longTermDemoteRelevance  = 0.3
	longTermDemoteConfidence = 0.8 // never demote at or above this confidence
	workingDemoteAge         = 7 * 24 * time.Hour
	workingDemoteRelevance   = 0.3
)

// Config tunes a single cycle. Zero values are replaced by the package
// defaults in RunCycle.
type Config struct {
	BatchSize        int
	MinAge           time.Duration
	PruneThreshold   float64
	PromotionEnabled bool
	DemotionEnabled  bool
	MergeStrategy    MergeStrategy
}

// DefaultConfig returns the spec's stated defaults, promotion and demotion
// both enabled, merge strategy update_relevance.
func DefaultConfig() Config {
	return Config{
		BatchSize:        DefaultBatchSize,
		MinAge:           DefaultMinAge,
		PruneThreshold:   DefaultPruneThreshold,
		PromotionEnabled: true,
		DemotionEnabled:  true,
		MergeStrategy:    MergeUpdateRelevance,
	}
}

// withDefaults fills in BatchSize/PruneThreshold/MergeStrategy when left at
// their zero value. MinAge is deliberately NOT defaulted here: a caller that
// wants "no minimum age" passes MinAge: 0 explicitly (e.g. tests exercising
// a cycle against freshly inserted entries); DefaultConfig() is where the
// spec's 5-minute default actually lives.
func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.PruneThreshold <= 0 {
		c.PruneThreshold = DefaultPruneThreshold
	}
	if c.MergeStrategy == "" {
		c.MergeStrategy = MergeUpdateRelevance
	}
	return c
}

// CycleResult reports per-step counts and any non-fatal errors encountered
// during a cycle. A step's error never aborts the remaining steps.
type CycleResult struct {
	ExpiredPruned    int      `json:"expired_pruned"`
	IrrelevantPruned int      `json:"irrelevant_pruned"`
	Promoted         int      `json:"promoted"`
	Demoted          int      `json:"demoted"`
	Merged           int      `json:"merged"`
	RelevanceBoosted int      `json:"relevance_boosted"`
	DurationMS       int64    `json:"duration_ms"`
	Errors           []string `json:"errors"`
}

func (r *CycleResult) fail(step string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", step, err))
}

// RunCycle runs one full consolidation cycle for a user: prune expired,
// prune irrelevant, promote, demote, consolidate similar, then boost
// relevance for singletons. now is threaded through for deterministic tests.
func RunCycle(db *sql.DB, userID string, cfg Config, now time.Time) *CycleResult {
	cfg = cfg.withDefaults()
	start := now
	result := &CycleResult{}

	// Step 1: prune expired.
	if n, err := store.CleanupExpiredMemory(db, userID); err != nil {
		result.fail("prune_expired", err)
	} else {
		result.ExpiredPruned = n
	}

	// Step 2: prune irrelevant.
	if n, err := store.DeleteIrrelevantEntries(db, userID, cfg.PruneThreshold, pruneConfidenceThreshold); err != nil {
		result.fail("prune_irrelevant", err)
	} else {
		result.IrrelevantPruned = n
	}

	batch, err := store.ListConsolidationBatch(db, userID, cfg.MinAge, cfg.BatchSize)
	if err != nil {
		result.fail("list_batch", err)
		result.DurationMS = time.Since(start).Milliseconds()
		return result
	}

	// Step 3: promote.
	if cfg.PromotionEnabled {
		promoteCandidates(batch)
		for _, e := range batch {
			if !shouldPromote(e) {
				continue
			}
			next := nextPromotionTier(e.Tier)
			if _, err := store.SetMemoryEntryTier(db, e.ID, next); err != nil {
				result.fail(fmt.Sprintf("promote %d", e.ID), err)
				continue
			}
			e.Tier = next
			result.Promoted++
		}
	}

	// Step 4: demote.
	if cfg.DemotionEnabled {
		for _, e := range batch {
			next, ok := suggestDemotion(e, now)
			if !ok {
				continue
			}
			if _, err := store.SetMemoryEntryTier(db, e.ID, next); err != nil {
				result.fail(fmt.Sprintf("demote %d", e.ID), err)
				continue
			}
			e.Tier = next
			result.Demoted++
		}
	}

	// Step 5: consolidate similar, grouped by (tier, content_type).
	singletons := make([]*models.MemoryEntry, 0, len(batch))
	for key, group := range groupByTierAndType(batch) {
		_ = key
		for _, class := range equivalenceClasses(group) {
			if len(class) <= 1 {
				singletons = append(singletons, class...)
				continue
			}
			base := electBase(class)
			content := mergedContent(cfg.MergeStrategy, class, base)
			accessCount, confidence, relevance := mergedMetrics(class)
			ids := make([]int64, len(class))
			for i, e := range class {
				ids[i] = e.ID
			}
			if _, err := store.MergeMemoryEntries(db, store.MergedEntryParams{
				BaseID:      base.ID,
				DeleteIDs:   ids,
				Content:     content,
				AccessCount: accessCount,
				Confidence:  confidence,
				Relevance:   relevance,
			}); err != nil {
				result.fail(fmt.Sprintf("merge class base=%d", base.ID), err)
				continue
			}
			result.Merged += len(class) - 1
		}
	}

	// Step 6: relevance boost for singletons with non-zero recent access.
	for _, e := range singletons {
		if e.AccessCount == 0 {
			continue
		}
		bonus := relevanceBonus(1, e.AccessCount)
		newRelevance := e.Relevance + bonus
		if newRelevance > 1 {
			newRelevance = 1
		}
		if newRelevance <= e.Relevance {
			continue
		}
		if _, err := store.BumpRelevance(db, e.ID, newRelevance); err != nil {
			result.fail(fmt.Sprintf("boost relevance %d", e.ID), err)
			continue
		}
		result.RelevanceBoosted++
	}

	result.DurationMS = time.Since(start).Milliseconds()
	return result
}

// promoteCandidates is a hook point kept separate from shouldPromote so the
// promotion pass can be extended with tie-break ordering later; currently a
// no-op, batch order already comes back oldest-first from the store.
func promoteCandidates(batch []*models.MemoryEntry) {}

// shouldPromote implements suggest_promotion: short-term with access_count
// >= 3, or working with access_count >= 10 and confidence >= 0.7.
func shouldPromote(e *models.MemoryEntry) bool {
	switch e.Tier {
	case models.MemoryTierShortTerm:
		return e.AccessCount >= shortTermPromoteAccessCount
	case models.MemoryTierWorking:
		return e.AccessCount >= workingPromoteAccessCount && e.Confidence >= workingPromoteConfidence
	default:
		return false
	}
}

func nextPromotionTier(tier models.MemoryTier) models.MemoryTier {
	switch tier {
	case models.MemoryTierShortTerm:
		return models.MemoryTierWorking
	case models.MemoryTierWorking:
		return models.MemoryTierLongTerm
	default:
		return tier
	}
}

// suggestDemotion implements suggest_demotion: long-term with access_count
// = 0, older than 30 days, relevance < 0.3, and confidence < 0.8 demotes to
// working; working with access_count = 0, older than 7 days, relevance <
// 0.3 demotes to short_term.
func suggestDemotion(e *models.MemoryEntry, now time.Time) (models.MemoryTier, bool) {
	if e.AccessCount != 0 || e.Relevance >= longTermDemoteRelevance {
		return "", false
	}
	age := now.Sub(e.CreatedAt)
	switch e.Tier {
	case models.MemoryTierLongTerm:
		if e.Confidence >= longTermDemoteConfidence {
			return "", false
		}
		if age >= longTermDemoteAge {
			return models.MemoryTierWorking, true
		}
	case models.MemoryTierWorking:
		if age >= workingDemoteAge {
			return models.MemoryTierShortTerm, true
		}
	}
	return "", false
}
