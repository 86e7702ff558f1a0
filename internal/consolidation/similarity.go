package consolidation

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/remotedev/rdv/internal/models"
)

// similarityThreshold is the relative edit-distance ceiling below which two
// entries of the same (tier, content_type) are considered duplicates.
const similarityThreshold = 0.15

// normalizeWhitespace collapses runs of whitespace before distance
// comparison, so "a  b" and "a b" are treated as identical content.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// areSimilar reports whether two entries of the same (tier, content_type)
// group are near-duplicates: either their content hashes already match, or
// the relative edit distance between their whitespace-normalized contents is
// at most similarityThreshold.
func areSimilar(a, b *models.MemoryEntry) bool {
	if a.ContentHash == b.ContentHash {
		return true
	}
	na, nb := normalizeWhitespace(a.Content), normalizeWhitespace(b.Content)
	if na == nb {
		return true
	}
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen == 0 {
		return true
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return float64(dist)/float64(maxLen) <= similarityThreshold
}

// groupKey identifies the (tier, content_type) bucket an entry merges within.
type groupKey struct {
	tier        models.MemoryTier
	contentType models.ContentType
}

// groupByTierAndType buckets entries by (tier, content_type), the
// granularity spec.md §4.4 step 5 merges within.
func groupByTierAndType(entries []*models.MemoryEntry) map[groupKey][]*models.MemoryEntry {
	groups := make(map[groupKey][]*models.MemoryEntry)
	for _, e := range entries {
		k := groupKey{tier: e.Tier, contentType: e.ContentType}
		groups[k] = append(groups[k], e)
	}
	return groups
}

// equivalenceClasses partitions a group into sets of mutually similar
// entries using union-find over the pairwise areSimilar relation, so
// similarity need not be transitive to form sensible classes within a batch
// of this size.
func equivalenceClasses(group []*models.MemoryEntry) [][]*models.MemoryEntry {
	n := len(group)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(x, y int) {
		rx, ry := find(x), find(y)
		if rx != ry {
			parent[rx] = ry
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if areSimilar(group[i], group[j]) {
				union(i, j)
			}
		}
	}
	byRoot := make(map[int][]*models.MemoryEntry)
	for i, e := range group {
		r := find(i)
		byRoot[r] = append(byRoot[r], e)
	}
	classes := make([][]*models.MemoryEntry, 0, len(byRoot))
	for _, class := range byRoot {
		classes = append(classes, class)
	}
	return classes
}
