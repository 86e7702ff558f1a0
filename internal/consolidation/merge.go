package consolidation

import (
	"math"
	"sort"
	"strings"

	"github.com/remotedev/rdv/internal/models"
)

// MergeStrategy selects how an equivalence class's content is combined into
// its base entry.
type MergeStrategy string

const (
	// MergeUpdateRelevance keeps the base entry's own content unchanged;
	// only its metrics are recomputed from the class.
	MergeUpdateRelevance MergeStrategy = "update_relevance"
	// MergeConcat joins every distinct content in the class with newlines.
	MergeConcat MergeStrategy = "concat"
	// MergeFirstOnly keeps the base entry's content, same result as
	// MergeUpdateRelevance but named distinctly per spec.md §4.4.
	MergeFirstOnly MergeStrategy = "first_only"
	// MergeLongest keeps whichever content in the class is longest.
	MergeLongest MergeStrategy = "longest"
)

// electBase picks the entry an equivalence class merges into: most recent
// created_at, ties broken by largest access_count.
func electBase(class []*models.MemoryEntry) *models.MemoryEntry {
	base := class[0]
	for _, e := range class[1:] {
		switch {
		case e.CreatedAt.After(base.CreatedAt):
			base = e
		case e.CreatedAt.Equal(base.CreatedAt) && e.AccessCount > base.AccessCount:
			base = e
		}
	}
	return base
}

// mergedContent computes the class's merged content under strategy, relative
// to the already-elected base entry.
func mergedContent(strategy MergeStrategy, class []*models.MemoryEntry, base *models.MemoryEntry) string {
	switch strategy {
	case MergeConcat:
		seen := make(map[string]bool)
		var distinct []string
		for _, e := range class {
			if !seen[e.Content] {
				seen[e.Content] = true
				distinct = append(distinct, e.Content)
			}
		}
		sort.Strings(distinct)
		return strings.Join(distinct, "\n")
	case MergeLongest:
		longest := base
		for _, e := range class {
			if len(e.Content) > len(longest.Content) ||
				(len(e.Content) == len(longest.Content) && e.CreatedAt.Before(longest.CreatedAt)) {
				longest = e
			}
		}
		return longest.Content
	case MergeFirstOnly, MergeUpdateRelevance:
		fallthrough
	default:
		return base.Content
	}
}

// relevanceBonus is the shared formula behind both the equivalence-class
// merge (k > 1) and the singleton relevance boost (k = 1):
// bonus = 0.05*log2(k) + 0.01*total_access.
func relevanceBonus(k int, totalAccess int64) float64 {
	return 0.05*math.Log2(float64(k)) + 0.01*float64(totalAccess)
}

// mergedMetrics computes the class's merged access_count/confidence/relevance
// per spec.md §4.4 step 5: access_count sums, confidence averages, relevance
// is capped at 1 after adding the class's relevance bonus to its max.
func mergedMetrics(class []*models.MemoryEntry) (accessCount int64, confidence, relevance float64) {
	var totalAccess int64
	var sumConfidence, maxRelevance float64
	for _, e := range class {
		totalAccess += e.AccessCount
		sumConfidence += e.Confidence
		if e.Relevance > maxRelevance {
			maxRelevance = e.Relevance
		}
	}
	accessCount = totalAccess
	confidence = sumConfidence / float64(len(class))
	bonus := relevanceBonus(len(class), totalAccess)
	relevance = math.Min(1, maxRelevance+bonus)
	return accessCount, confidence, relevance
}
