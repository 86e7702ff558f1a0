package memory

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/remotedev/rdv/internal/models"
)

// LevenshteinEmbedder is the default Embedder: no vector index, no external
// service, just edit-distance scoring against the query. It exists so Recall
// has a ranked result even when no real embedding backend is configured;
// SPEC_FULL treats semantic search as a pluggable collaborator, not a
// required component.
type LevenshteinEmbedder struct{}

// Rank scores each candidate by normalized edit distance between its content
// and the query (lower distance, relative to content length, ranks higher),
// and returns at most limit entries.
func (LevenshteinEmbedder) Rank(query string, candidates []*models.MemoryEntry, limit int) []*models.MemoryEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	type scored struct {
		entry *models.MemoryEntry
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, e := range candidates {
		content := strings.ToLower(e.Content)
		dist := levenshtein.ComputeDistance(q, content)
		maxLen := len(q)
		if len(content) > maxLen {
			maxLen = len(content)
		}
		score := 1.0
		if maxLen > 0 {
			score = 1 - float64(dist)/float64(maxLen)
		}
		if strings.Contains(content, q) {
			score += 0.5
		}
		ranked = append(ranked, scored{entry: e, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]*models.MemoryEntry, len(ranked))
	for i, r := range ranked {
		out[i] = r.entry
	}
	return out
}
