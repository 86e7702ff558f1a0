// Package memory implements the hierarchical working-memory store: three
// tiers (short_term, working, long_term) layered over internal/store's
// MemoryEntry persistence, plus the maintenance sweep that moves entries
// between tiers as access patterns accumulate.
package memory

import "github.com/remotedev/rdv/internal/models"

// Tier defaults, mirrored from the hierarchical memory config in
// original_source/crates/rdv-sdk/src/memory/hierarchical.rs.
const (
	defaultShortTermTTLSeconds = 300

	// autoPromoteAccessCount is the access_count threshold at which a
	// short-term entry is promoted to working by AutoPromote.
	autoPromoteAccessCount = 3

	// consolidationConfidenceThreshold and consolidationAccessCount gate
	// which working entries ConsolidationCandidates surfaces for
	// promotion to long-term.
	consolidationConfidenceThreshold = 0.8
	consolidationAccessCount         = 5
)

// Embedder is an optional semantic-search collaborator for Recall. When nil,
// Recall falls back to recency-ordered filtering, which satisfies every
// invariant that does not depend on semantic similarity.
type Embedder interface {
	// Rank reorders candidates by relevance to query, most relevant first,
	// and may truncate to limit.
	Rank(query string, candidates []*models.MemoryEntry, limit int) []*models.MemoryEntry
}
